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

// Package rtpreceiver implements the multicast RTP receive pipeline: socket
// pooling, per-datagram source filtering, timestamp-ordered reordering
// across redundant streams, packet statistics and a lock-free handoff to a
// real-time audio consumer.
package rtpreceiver

import (
	"net"

	"github.com/ravennakit/core/bytecodec"
)

// Session identifies one physical network path a redundant stream can
// arrive on. Two sessions are equal iff all three fields match.
type Session struct {
	ConnectionAddress net.IP
	RTPPort           int
	RTCPPort          int
}

// Equal reports whether s and o name the same session.
func (s Session) Equal(o Session) bool {
	return s.ConnectionAddress.Equal(o.ConnectionAddress) && s.RTPPort == o.RTPPort && s.RTCPPort == o.RTCPPort
}

// Config describes the knobs a receiver exposes: sample rate and packet
// duration drive buffer sizing; MaxRedundantSessions bounds how many
// physical paths one logical stream may be fed from.
type Config struct {
	SampleRate           int
	PacketTimeFrames     int
	MaxRedundantSessions int
	Channels             int

	// WireBitDepth is the AES67 on-wire sample depth (16, 24 or 32). Wire
	// samples are always big-endian.
	WireBitDepth int

	// HostFormat is the format ReadAudio transcodes into before returning.
	// The zero value (BitDepth 0) disables transcoding: ReadAudio then
	// returns raw wire-format bytes. Every test in this package except
	// TestReceiverReadAudioTranscodesWireToHostFormat leaves it at zero.
	HostFormat bytecodec.SampleFormat
}

// WireFormat is the on-wire AES67 sample format described by c.
func (c Config) WireFormat() bytecodec.SampleFormat {
	return bytecodec.WireFormat(c.WireBitDepth)
}

// WireBytesPerFrame is the on-wire size, in bytes, of one frame (one sample
// per channel).
func (c Config) WireBytesPerFrame() int {
	return c.Channels * c.WireFormat().BytesPerSample()
}

// BufferSizeFrames computes the reorder buffer size per the 200ms/1024-frame
// floor: max(sample_rate * 200ms, 1024).
func (c Config) BufferSizeFrames() int {
	frames := c.SampleRate / 5 // 200ms = sampleRate * 0.2
	if frames < 1024 {
		frames = 1024
	}
	return frames
}

// FIFODepth computes the per-session SPSC FIFO depth in packets:
// buffer_size_frames / packet_time_frames.
func (c Config) FIFODepth() int {
	if c.PacketTimeFrames <= 0 {
		return 1
	}
	depth := c.BufferSizeFrames() / c.PacketTimeFrames
	if depth < 1 {
		depth = 1
	}
	return depth
}
