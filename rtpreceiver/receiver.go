/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package rtpreceiver

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/ravennakit/core/bytecodec"
	"github.com/ravennakit/core/concurrency"
	"github.com/ravennakit/core/sdp"
)

// channel is one (session, filter) pair a redundant stream can feed a
// Receiver through.
type channel struct {
	session Session
	filter  FilterEvaluator
}

type queuedPacket struct {
	channel      int
	ts           uint32
	seq          uint16
	frameCount   int
	payload      []byte
	receivedAt   time.Time
}

// Receiver is a reader for one logical (possibly redundant) RTP stream: up
// to Config.MaxRedundantSessions physical sessions feed a single SPSC FIFO,
// which the audio thread drains into a timestamp-ordered reorder buffer.
// The network thread only ever calls Dispatch; the audio/orchestration
// thread only ever calls Drain, ReadAudio, AddChannel and RemoveChannel -
// the AtomicRwLock lets channel slot mutation happen without the network
// thread ever blocking.
type Receiver struct {
	cfg           Config
	bytesPerFrame int

	lock     concurrency.AtomicRwLock
	channels []*channel

	fifo    *concurrency.SPSCFIFO[queuedPacket]
	reorder *ReorderBuffer

	stats PacketStats

	consumerActive atomic.Bool
	lastPacketAt   atomic.Int64 // unix nanos

	state   State
	metrics *Metrics
}

// NewReceiver builds a Receiver sized per cfg. bytesPerFrame is the
// transcoded frame size (channels * bytes-per-sample) used to size the
// reorder buffer's storage.
func NewReceiver(cfg Config, bytesPerFrame int) *Receiver {
	r := &Receiver{
		cfg:           cfg,
		bytesPerFrame: bytesPerFrame,
		channels:      make([]*channel, cfg.MaxRedundantSessions),
		fifo:          concurrency.NewSPSCFIFO[queuedPacket](cfg.FIFODepth()),
		reorder:       NewReorderBuffer(cfg.BufferSizeFrames(), bytesPerFrame),
		state:         StateIdle,
	}
	r.consumerActive.Store(true)
	return r
}

// AddChannel installs a (session, filter) pair at index, joining a
// redundant stream. index must be within [0, MaxRedundantSessions). Only
// the orchestration thread calls this.
func (r *Receiver) AddChannel(index int, session Session, filter *sdp.SourceFilter) error {
	if index < 0 || index >= len(r.channels) {
		return fmt.Errorf("rtpreceiver: channel index %d out of range [0,%d)", index, len(r.channels))
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.channels[index] = &channel{session: session, filter: NewFilterEvaluator(filter)}
	if r.state == StateIdle {
		r.state = StateWaitingForData
	}
	return nil
}

// RemoveChannel clears the channel at index.
func (r *Receiver) RemoveChannel(index int) {
	if index < 0 || index >= len(r.channels) {
		return
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.channels[index] = nil
}

// Dispatch is called by the network thread for every datagram, already
// parsed into (ts, seq, frameCount, payload). It matches dst/src against
// every ready channel and, on a match, pushes into the FIFO. Returns false
// if no channel matched or the channel lock was held by a writer. A packet
// that matched but found the FIFO full still returns true; the receiver
// counts that drop itself in Stats().Dropped.
func (r *Receiver) Dispatch(src net.IP, dst Session, ts uint32, seq uint16, frameCount int, payload []byte, receivedAt time.Time) bool {
	if !r.lock.TryRLock() {
		return false
	}
	defer r.lock.RUnlock()

	matched := false
	for i, ch := range r.channels {
		if ch == nil {
			continue
		}
		if !ch.session.Equal(dst) || !ch.filter.Accept(src) {
			continue
		}
		matched = true
		pkt := queuedPacket{channel: i, ts: ts, seq: seq, frameCount: frameCount, payload: payload, receivedAt: receivedAt}
		if !r.fifo.Push(pkt) {
			r.consumerActive.Store(false)
			r.stats.Dropped++
			if r.metrics != nil {
				r.metrics.dropped.Inc()
			}
			continue
		}
		before := r.stats.OutOfOrder
		r.stats.RecordSequence(seq)
		r.lastPacketAt.Store(receivedAt.UnixNano())
		if r.metrics != nil {
			r.metrics.received.Inc()
			if r.stats.OutOfOrder > before {
				r.metrics.outOfOrder.Inc()
			}
		}
	}
	return matched
}

// Drain moves up to maxPackets queued packets from the FIFO into the
// reorder buffer. Only the audio/orchestration thread calls this.
func (r *Receiver) Drain(maxPackets int) {
	for i := 0; i < maxPackets; i++ {
		pkt, ok := r.fifo.Pop()
		if !ok {
			break
		}
		switch r.reorder.WritePacket(pkt.ts, pkt.frameCount, pkt.payload) {
		case DropTooOld:
			r.stats.TooOld++
			if r.metrics != nil {
				r.metrics.tooOld.Inc()
			}
		case DropDuplicate:
			r.stats.Duplicates++
			if r.metrics != nil {
				r.metrics.duplicates.Inc()
			}
		}
	}
	if !r.fifo.Full() {
		r.consumerActive.Store(true)
	}
}

// ReadAudio reads framesRequested frames out of the reorder buffer,
// transcoding from the wire format to Config.HostFormat (when HostFormat is
// set) before returning, alongside the transitioned lifecycle state.
// atTimestamp, if non-nil, overrides the read cursor.
func (r *Receiver) ReadAudio(framesRequested, delayFrames int, atTimestamp *uint32) ([]byte, State) {
	last := r.lastPacketAt.Load()
	if last == 0 {
		r.state = StateWaitingForData
		return nil, r.state
	}
	if time.Since(time.Unix(0, last)) > InactivityTimeout {
		r.state = StateInactive
		return nil, r.state
	}
	if !r.consumerActive.Load() {
		r.state = StateOKNoConsumer
		return nil, r.state
	}

	out, ok := r.reorder.Read(framesRequested, delayFrames, atTimestamp)
	if !ok {
		r.state = StateWaitingForData
		return nil, r.state
	}
	r.state = StateOK

	host := r.cfg.HostFormat
	if host.BitDepth == 0 || host == r.cfg.WireFormat() {
		return out, r.state
	}
	transcoded := make([]byte, framesRequested*r.cfg.Channels*host.BytesPerSample())
	bytecodec.Transcode(transcoded, out, r.cfg.Channels, r.cfg.WireFormat(), host)
	return transcoded, r.state
}

// Stats returns a snapshot of the reader's packet statistics.
func (r *Receiver) Stats() PacketStats {
	return r.stats
}

// State returns the reader's last-computed lifecycle state.
func (r *Receiver) State() State {
	return r.state
}
