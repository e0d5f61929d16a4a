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
	"net"
	"testing"
	"time"

	"github.com/ravennakit/core/bytecodec"
	"github.com/stretchr/testify/require"
)

func testReceiver(t *testing.T) *Receiver {
	t.Helper()
	cfg := Config{SampleRate: 1000, PacketTimeFrames: 1, MaxRedundantSessions: 2}
	r := NewReceiver(cfg, bpf)
	sessA := Session{ConnectionAddress: net.ParseIP("239.1.15.52"), RTPPort: 5004, RTCPPort: 5005}
	sessB := Session{ConnectionAddress: net.ParseIP("239.1.16.52"), RTPPort: 5004, RTCPPort: 5005}
	require.NoError(t, r.AddChannel(0, sessA, nil))
	require.NoError(t, r.AddChannel(1, sessB, nil))
	return r
}

func TestReceiverDispatchAndReadAudio(t *testing.T) {
	r := testReceiver(t)
	sessA := Session{ConnectionAddress: net.ParseIP("239.1.15.52"), RTPPort: 5004, RTCPPort: 5005}
	now := time.Now()

	matched := r.Dispatch(net.ParseIP("192.168.1.1"), sessA, 10, 1, 1, frame(1), now)
	require.True(t, matched)

	r.Drain(10)
	out, state := r.ReadAudio(1, 0, nil)
	require.Equal(t, StateOK, state)
	require.Equal(t, frame(1), out)
}

func TestReceiverRedundancyMergeByPosition(t *testing.T) {
	r := testReceiver(t)
	sessA := Session{ConnectionAddress: net.ParseIP("239.1.15.52"), RTPPort: 5004, RTCPPort: 5005}
	sessB := Session{ConnectionAddress: net.ParseIP("239.1.16.52"), RTPPort: 5004, RTCPPort: 5005}
	now := time.Now()

	// Session A drops sequence ts=1; session B delivers every timestamp.
	r.Dispatch(net.ParseIP("10.0.0.1"), sessA, 0, 0, 1, frame(0xA), now)
	r.Dispatch(net.ParseIP("10.0.0.2"), sessB, 0, 0, 1, frame(0xA), now)
	r.Dispatch(net.ParseIP("10.0.0.2"), sessB, 1, 1, 1, frame(0xB), now)
	r.Dispatch(net.ParseIP("10.0.0.1"), sessA, 2, 2, 1, frame(0xC), now)
	r.Dispatch(net.ParseIP("10.0.0.2"), sessB, 2, 2, 1, frame(0xC), now)

	r.Drain(10)

	// delay 2 puts the first read at the most recent timestamp minus 2: 2-2=0.
	out, state := r.ReadAudio(3, 2, nil)
	require.Equal(t, StateOK, state)
	require.Equal(t, frame(0xA), out[0:4])
	require.Equal(t, frame(0xB), out[4:8])
	require.Equal(t, frame(0xC), out[8:12])
	require.Equal(t, uint64(2), r.Stats().Duplicates)
}

func TestReceiverWaitingForDataBeforeFirstPacket(t *testing.T) {
	r := testReceiver(t)
	_, state := r.ReadAudio(1, 0, nil)
	require.Equal(t, StateWaitingForData, state)
}

func TestReceiverReadAudioTranscodesWireToHostFormat(t *testing.T) {
	cfg := Config{
		SampleRate:           1000,
		PacketTimeFrames:     1,
		MaxRedundantSessions: 1,
		Channels:             2,
		WireBitDepth:         16,
		HostFormat:           bytecodec.SampleFormat{BitDepth: 16, BigEndian: false},
	}
	r := NewReceiver(cfg, bpf)
	sess := Session{ConnectionAddress: net.ParseIP("239.1.15.52"), RTPPort: 5004, RTCPPort: 5005}
	require.NoError(t, r.AddChannel(0, sess, nil))

	// Wire bytes are big-endian: sample0 = 0x0102, sample1 = 0x0304.
	wire := []byte{0x01, 0x02, 0x03, 0x04}
	r.Dispatch(net.ParseIP("10.0.0.1"), sess, 0, 0, 1, wire, time.Now())
	r.Drain(10)

	out, state := r.ReadAudio(1, 0, nil)
	require.Equal(t, StateOK, state)
	require.Equal(t, []byte{0x02, 0x01, 0x04, 0x03}, out)
}

func TestReceiverUnmatchedSessionIsDropped(t *testing.T) {
	r := testReceiver(t)
	other := Session{ConnectionAddress: net.ParseIP("239.9.9.9"), RTPPort: 1, RTCPPort: 2}
	matched := r.Dispatch(net.ParseIP("10.0.0.1"), other, 0, 0, 1, frame(1), time.Now())
	require.False(t, matched)
}
