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

package protocol

import (
	"encoding/binary"
	"fmt"
)

// TLV is a single type-length-value record trailing a message body. An
// ordinary-clock slave never needs to interpret trailing TLVs (path trace
// and organization extensions are informational, unicast negotiation and
// management don't apply to a multicast two-step E2E slave); every TLV this
// codec sees round-trips through RawTLV instead of a dedicated struct.
type TLV interface {
	MarshalBinary() ([]byte, error)
	Type() TLVType
}

// tlvHeadLen is the size, in bytes, of a TLV's tlvType+lengthField prefix.
const tlvHeadLen = 4

// RawTLV carries a TLV's type and its value bytes verbatim, without
// interpreting them. This is the only TLV representation this codec
// produces: it lets Announce and Sync carry (and, if this instance ever
// relays, re-transmit) TLVs whose semantics this module has no use for,
// without either choking on them or silently dropping them.
type RawTLV struct {
	TLVType TLVType
	Value   []byte
}

// Type implements TLV.
func (t RawTLV) Type() TLVType { return t.TLVType }

// MarshalBinary implements TLV.
func (t RawTLV) MarshalBinary() ([]byte, error) {
	if len(t.Value) > 0xffff-2 {
		return nil, fmt.Errorf("tlv value too long: %d bytes", len(t.Value))
	}
	b := make([]byte, tlvHeadLen+len(t.Value))
	binary.BigEndian.PutUint16(b[0:2], uint16(t.TLVType))
	binary.BigEndian.PutUint16(b[2:4], uint16(len(t.Value)))
	copy(b[4:], t.Value)
	return b, nil
}

// writeTLVs marshals every tlv into b, starting at b[0], and returns the
// number of bytes written. b must be at least as long as the total encoding.
func writeTLVs(tlvs []TLV, b []byte) (int, error) {
	pos := 0
	for _, tlv := range tlvs {
		enc, err := tlv.MarshalBinary()
		if err != nil {
			return 0, fmt.Errorf("marshaling tlv: %w", err)
		}
		if pos+len(enc) > len(b) {
			return 0, fmt.Errorf("not enough buffer to write tlv %s", tlv.Type())
		}
		copy(b[pos:], enc)
		pos += len(enc)
	}
	return pos, nil
}

// readTLVs parses up to maxLen bytes of b as zero or more back-to-back TLV
// records, appending the result to existing.
func readTLVs(existing []TLV, maxLen int, b []byte) ([]TLV, error) {
	if maxLen <= 0 {
		return existing, nil
	}
	if maxLen > len(b) {
		return nil, fmt.Errorf("not enough data for tlvs: need %d, got %d", maxLen, len(b))
	}
	b = b[:maxLen]
	for len(b) > 0 {
		if len(b) < tlvHeadLen {
			return nil, fmt.Errorf("not enough data for tlv header: got %d bytes", len(b))
		}
		tlvType := TLVType(binary.BigEndian.Uint16(b[0:2]))
		length := int(binary.BigEndian.Uint16(b[2:4]))
		if len(b) < tlvHeadLen+length {
			return nil, fmt.Errorf("not enough data for tlv %s value: need %d, got %d", tlvType, length, len(b)-tlvHeadLen)
		}
		value := make([]byte, length)
		copy(value, b[tlvHeadLen:tlvHeadLen+length])
		existing = append(existing, RawTLV{TLVType: tlvType, Value: value})
		b = b[tlvHeadLen+length:]
	}
	return existing, nil
}
