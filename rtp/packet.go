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

// Package rtp wraps pion/rtp's wire codec with the verify() invariant this
// toolkit requires on every inbound packet: version must be 2 and the
// declared header size must not exceed the frame length. pion/rtp parses
// the fixed header and CSRC list but does not reject a short, truncated, or
// wrong-version packet on its own - this package adds that check at the
// boundary.
package rtp

import (
	"fmt"

	pionrtp "github.com/pion/rtp"
)

// Version is the only RTP version this toolkit accepts.
const Version = 2

// Packet is a received/to-send RTP packet: pion's header fields plus the
// sequence/timestamp wraparound-aware accessors this toolkit layers on top.
type Packet struct {
	pionrtp.Packet
}

// Unmarshal decodes buf into p and runs verify().
func (p *Packet) Unmarshal(buf []byte) error {
	if err := p.Packet.Unmarshal(buf); err != nil {
		return fmt.Errorf("rtp: unmarshal: %w", err)
	}
	return p.verify(len(buf))
}

// Marshal encodes p to a new buffer.
func (p *Packet) Marshal() ([]byte, error) {
	return p.Packet.Marshal()
}

// verify rejects a packet whose version isn't 2 or whose declared header
// size exceeds the frame length, per the wire-level invariant pion/rtp
// itself does not enforce. The header size is the fixed 12 bytes plus the
// CSRC list pion/rtp already parsed out; pion/rtp rejects a frame too short
// to hold its own declared extension, so by the time verify runs the
// extension (if any) is already known to fit.
func (p *Packet) verify(frameLen int) error {
	if p.Version != Version {
		return fmt.Errorf("rtp: invalid version %d", p.Version)
	}
	headerSize := 12 + 4*len(p.CSRC)
	if headerSize > frameLen {
		return fmt.Errorf("rtp: header size %d exceeds frame length %d", headerSize, frameLen)
	}
	return nil
}

// SequenceNumber returns the wrapping RTP sequence number.
func (p *Packet) SequenceNumber() uint16 {
	return p.Header.SequenceNumber
}

// RTPTimestamp returns the wrapping RTP timestamp, in samples at the media
// clock rate.
func (p *Packet) RTPTimestamp() uint32 {
	return p.Header.Timestamp
}
