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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRawTLVRoundTrip(t *testing.T) {
	tlv := RawTLV{TLVType: TLVOrganizationExtension, Value: []byte{0xde, 0xad, 0xbe, 0xef}}
	require.Equal(t, TLVOrganizationExtension, tlv.Type())

	enc, err := tlv.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x03, 0x00, 0x04, 0xde, 0xad, 0xbe, 0xef}, enc)

	got, err := readTLVs(nil, len(enc), enc)
	require.NoError(t, err)
	require.Equal(t, []TLV{tlv}, got)
}

func TestReadTLVsMultipleBackToBack(t *testing.T) {
	a := RawTLV{TLVType: TLVPathTrace, Value: []byte{1, 2, 3}}
	b := RawTLV{TLVType: TLVType(0x1234), Value: nil}

	encA, err := a.MarshalBinary()
	require.NoError(t, err)
	encB, err := b.MarshalBinary()
	require.NoError(t, err)
	buf := append(encA, encB...)

	got, err := readTLVs(nil, len(buf), buf)
	require.NoError(t, err)
	require.Equal(t, []TLV{a, b}, got)
}

func TestReadTLVsTruncatedValueErrors(t *testing.T) {
	buf := []byte{0x00, 0x08, 0x00, 0x10, 0x01, 0x02} // claims 16 bytes of value, has 2
	_, err := readTLVs(nil, len(buf), buf)
	require.Error(t, err)
}

func TestWriteTLVsBufferTooSmall(t *testing.T) {
	tlvs := []TLV{RawTLV{TLVType: TLVPathTrace, Value: make([]byte, 8)}}
	_, err := writeTLVs(tlvs, make([]byte, 4))
	require.Error(t, err)
}

// TestParseAnnounceWithTrailingTLV exercises a real captured Announce whose
// suffix TLV (path trace) this codec never interprets: it must still
// round-trip byte-for-byte through RawTLV.
func TestParseAnnounceWithTrailingTLV(t *testing.T) {
	raw := []uint8("\x0b\x12\x00\x4c\x00\x00\x04\x08\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x08\xc0\xeb\xff\xfe\x63\x7a\x4e\x00\x01\x00\x00\x05\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x25\x00\x80\xf8\xfe\xff\xff\x80\x08\xc0\xeb\xff\xfe\x63\x7a\x4e\x00\x00\xa0\x00\x08\x00\x18\x08\xc0\xeb\xff\xfe\x63\x7a\x4e\x01\xb6\xaf\xc4\xe5\x46\x12\x29\x04\xc0\x87\x32\xf0\x61\xee\xce\x00\x00")
	packet := new(Announce)
	err := FromBytes(raw, packet)
	require.Nil(t, err)

	want := Announce{
		Header: Header{
			SdoIDAndMsgType: NewSdoIDAndMsgType(MessageAnnounce, 0),
			Version:         Version,
			MessageLength:   76,
			DomainNumber:    0,
			FlagField:       FlagUnicast | FlagPTPTimescale,
			SequenceID:      0,
			SourcePortIdentity: PortIdentity{
				PortNumber:    1,
				ClockIdentity: 630763432548989518,
			},
			LogMessageInterval: 1,
			ControlField:       5,
		},
		AnnounceBody: AnnounceBody{
			CurrentUTCOffset:     37,
			Reserved:             0,
			GrandmasterPriority1: 128,
			GrandmasterClockQuality: ClockQuality{
				ClockClass:              248,
				ClockAccuracy:           254,
				OffsetScaledLogVariance: 65535,
			},
			GrandmasterPriority2: 128,
			GrandmasterIdentity:  630763432548989518,
			StepsRemoved:         0,
			TimeSource:           TimeSourceInternalOscillator,
		},
		TLVs: []TLV{
			RawTLV{
				TLVType: TLVPathTrace,
				Value: []byte{
					0x08, 0xc0, 0xeb, 0xff, 0xfe, 0x63, 0x7a, 0x4e,
					0x01, 0xb6, 0xaf, 0xc4, 0xe5, 0x46, 0x12, 0x29,
					0x04, 0xc0, 0x87, 0x32, 0xf0, 0x61, 0xee, 0xce,
				},
			},
		},
	}
	require.Equal(t, want, *packet)

	b, err := Bytes(packet)
	require.Nil(t, err)
	require.Equal(t, raw, b)

	pp, err := DecodePacket(b)
	require.Nil(t, err)
	require.Equal(t, &want, pp)
}
