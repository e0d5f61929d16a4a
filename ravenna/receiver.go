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

// Package ravenna composes discovery, RTSP and the RTP receive pipeline
// into a single session-oriented facade: Subscribe resolves a session name
// to a host, fetches its SDP, and wires up the reorder/redundancy pipeline;
// ReadAudio passes straight through to the underlying receiver.
package ravenna

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/ravennakit/core/discovery"
	"github.com/ravennakit/core/rtpreceiver"
	"github.com/ravennakit/core/rtsp"
	"github.com/ravennakit/core/sdp"
)

// DefaultRTSPPort is used when a resolved entry's port is unset.
const DefaultRTSPPort = 554

// Dialer opens an RTSP client connection; overridable in tests.
type Dialer func(ctx context.Context, addr string) (*rtsp.Client, error)

// Receiver is a single-session RAVENNA audio receiver: discovery resolves a
// session name, RTSP DESCRIBE fetches its SDP, and the parsed SDP's
// multicast address/filter feed an rtpreceiver.Receiver.
type Receiver struct {
	provider      discovery.Provider
	dial          Dialer
	cfg           rtpreceiver.Config
	bytesPerFrame int

	mu          sync.Mutex
	sessionName string
	sdpText     []byte
	sdpSession  *sdp.Session
	client      *rtsp.Client
	pipeline    *rtpreceiver.Receiver
}

// NewReceiver builds a Receiver over provider, sizing its RTP pipeline per
// cfg/bytesPerFrame. Pass rtsp.Dial (or a fake for tests) as dial.
func NewReceiver(provider discovery.Provider, dial Dialer, cfg rtpreceiver.Config, bytesPerFrame int) *Receiver {
	return &Receiver{provider: provider, dial: dial, cfg: cfg, bytesPerFrame: bytesPerFrame}
}

// SessionName returns the name of the currently subscribed session, or ""
// if not subscribed.
func (r *Receiver) SessionName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionName
}

// SDP returns the parsed session description for the current subscription,
// or nil if not subscribed.
func (r *Receiver) SDP() *sdp.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sdpSession
}

// SDPText returns the original SDP body as received, which may carry
// attributes the typed sdp.Session does not model.
func (r *Receiver) SDPText() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sdpText
}

// Subscribe resolves name via the discovery provider, issues DESCRIBE
// against the resolved host, and wires the returned SDP's first media
// description into the RTP receive pipeline. Returns an error (and leaves
// any prior subscription intact) if resolution, DESCRIBE or SDP parsing
// fails.
func (r *Receiver) Subscribe(ctx context.Context, name string) error {
	entry, err := r.provider.Resolve(ctx, name, discovery.RAVENNAServiceType, discovery.RAVENNAServiceDomain)
	if err != nil {
		return fmt.Errorf("ravenna: resolve %s: %w", name, err)
	}
	port := entry.Port
	if port == 0 {
		port = DefaultRTSPPort
	}

	client, err := r.dial(ctx, fmt.Sprintf("%s:%d", entry.HostName, port))
	if err != nil {
		return fmt.Errorf("ravenna: dial %s: %w", name, err)
	}

	path := "/by-name/" + url.PathEscape(name)
	session, rawBody, err := client.DescribeRaw(ctx, path)
	if err != nil {
		client.Close()
		return fmt.Errorf("ravenna: describe %s: %w", name, err)
	}
	if len(session.Media) == 0 {
		client.Close()
		return fmt.Errorf("ravenna: %s: SDP has no media descriptions", name)
	}

	media := session.Media[0]
	var addr net.IP
	if len(media.Connections) > 0 {
		addr = net.ParseIP(media.Connections[0].Address)
	}
	sess := rtpreceiver.Session{ConnectionAddress: addr, RTPPort: media.Port, RTCPPort: media.Port + 1}

	pipelineCfg := r.cfg
	if len(media.Formats) > 0 {
		format := media.Formats[0]
		if depth := linearPCMBitDepth(format.Encoding); depth != 0 {
			pipelineCfg.WireBitDepth = depth
		}
		if format.Channels > 0 {
			pipelineCfg.Channels = format.Channels
		}
	}

	pipeline := rtpreceiver.NewReceiver(pipelineCfg, r.bytesPerFrame)
	var filter *sdp.SourceFilter
	if len(media.Filters) > 0 {
		filter = &media.Filters[0]
	}
	if err := pipeline.AddChannel(0, sess, filter); err != nil {
		client.Close()
		return fmt.Errorf("ravenna: %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked()
	r.sessionName = name
	r.sdpSession = session
	r.sdpText = rawBody
	r.client = client
	r.pipeline = pipeline
	return nil
}

// Unsubscribe tears down the current subscription, if any.
func (r *Receiver) Unsubscribe() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked()
}

func (r *Receiver) unsubscribeLocked() {
	if r.client != nil {
		r.client.Close()
	}
	r.sessionName = ""
	r.sdpText = nil
	r.sdpSession = nil
	r.client = nil
	r.pipeline = nil
}

// Dispatch forwards an arriving datagram to the underlying RTP pipeline, if
// subscribed.
func (r *Receiver) Dispatch(src net.IP, dst rtpreceiver.Session, ts uint32, seq uint16, frameCount int, payload []byte) bool {
	r.mu.Lock()
	p := r.pipeline
	r.mu.Unlock()
	if p == nil {
		return false
	}
	return p.Dispatch(src, dst, ts, seq, frameCount, payload, time.Now())
}

// ReadAudio passes through to the underlying pipeline's ReadAudio. Returns
// (nil, rtpreceiver.StateIdle) if not subscribed.
func (r *Receiver) ReadAudio(framesRequested, delayFrames int, atTimestamp *uint32) ([]byte, rtpreceiver.State) {
	r.mu.Lock()
	p := r.pipeline
	r.mu.Unlock()
	if p == nil {
		return nil, rtpreceiver.StateIdle
	}
	return p.ReadAudio(framesRequested, delayFrames, atTimestamp)
}

// Drain passes through to the underlying pipeline's Drain.
func (r *Receiver) Drain(maxPackets int) {
	r.mu.Lock()
	p := r.pipeline
	r.mu.Unlock()
	if p != nil {
		p.Drain(maxPackets)
	}
}

// linearPCMBitDepth maps an AES67 rtpmap encoding name (L16, L24, L32) to
// its bit depth, or 0 if encoding isn't a linear-PCM encoding this module
// recognizes.
func linearPCMBitDepth(encoding string) int {
	switch encoding {
	case "L16":
		return 16
	case "L24":
		return 24
	case "L32":
		return 32
	default:
		return 0
	}
}
