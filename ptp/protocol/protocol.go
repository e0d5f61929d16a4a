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

// Message layouts follow IEEE 1588-2019; table references below point at
// that standard. This codec implements the multicast end-to-end delay
// mechanism with two-step Sync only, which is what every PTPv2 media
// profile (including AES67/RAVENNA's default profile) actually runs over
// Ethernet: peer delay, unicast negotiation and management are not decoded.

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"fmt"
)

// Version is the protocol version this codec speaks: major 2, minor 1.
const (
	MajorVersion     uint8 = 2
	MinorVersion     uint8 = 1
	Version          uint8 = MinorVersion<<4 | MajorVersion
	MajorVersionMask uint8 = 0x0f
)

// Well-known UDP ports (event messages carry hardware timestamps and go to
// PortEvent; everything else goes to PortGeneral).
var (
	PortEvent   = 319
	PortGeneral = 320
)

// TrailingBytes is the two-byte pad PTP-over-UDPv6 appends so an
// intermediate node can rewrite PTP fields without breaking the UDP
// checksum. Every packet this codec builds carries it, UDPv4 or not.
const TrailingBytes = 2

var twoZeros = []byte{0, 0}

// MgmtLogMessageInterval is the logMessageInterval sentinel (Table 42)
// meaning "not applicable", carried by some peer event-message fields this
// codec still has to round-trip even though it never sends management
// messages itself.
const MgmtLogMessageInterval LogInterval = 0x7f

// DefaultTargetPortIdentity is the port identity wildcard: "any port".
var DefaultTargetPortIdentity = PortIdentity{
	ClockIdentity: 0xffffffffffffffff,
	PortNumber:    0xffff,
}

// Header is the 34-byte common message header (Table 35) every PTP message
// starts with.
type Header struct {
	SdoIDAndMsgType     SdoIDAndMsgType
	Version             uint8
	MessageLength       uint16
	DomainNumber        uint8
	MinorSdoID          uint8
	FlagField           uint16
	CorrectionField     Correction
	MessageTypeSpecific uint32
	SourcePortIdentity  PortIdentity
	SequenceID          uint16
	ControlField        uint8
	LogMessageInterval  LogInterval
}

const headerSize = 34

// unmarshalHeader is a free function, not a Header.UnmarshalBinary method,
// so embedding Header doesn't give every message body a default (and
// incomplete) UnmarshalBinary through promotion.
func unmarshalHeader(p *Header, b []byte) {
	p.SdoIDAndMsgType = SdoIDAndMsgType(b[0])
	p.Version = b[1]
	p.MessageLength = binary.BigEndian.Uint16(b[2:])
	p.DomainNumber = b[4]
	p.MinorSdoID = b[5]
	p.FlagField = binary.BigEndian.Uint16(b[6:])
	p.CorrectionField = Correction(binary.BigEndian.Uint64(b[8:]))
	p.MessageTypeSpecific = binary.BigEndian.Uint32(b[16:])
	p.SourcePortIdentity.ClockIdentity = ClockIdentity(binary.BigEndian.Uint64(b[20:]))
	p.SourcePortIdentity.PortNumber = binary.BigEndian.Uint16(b[28:])
	p.SequenceID = binary.BigEndian.Uint16(b[30:])
	p.ControlField = b[32]
	p.LogMessageInterval = LogInterval(b[33])
}

// MessageType reports the header's message type.
func (p *Header) MessageType() MessageType {
	return p.SdoIDAndMsgType.MsgType()
}

// SetSequence sets the header's sequenceId.
func (p *Header) SetSequence(sequence uint16) {
	p.SequenceID = sequence
}

func checkPacketLength(p *Header, l int) error {
	if int(p.MessageLength) > l {
		return fmt.Errorf("cannot decode message of length %d from %d bytes", p.MessageLength, l)
	}
	return nil
}

// headerMarshalBinaryTo is the mirror of unmarshalHeader, kept as a free
// function for the same embedding reason.
func headerMarshalBinaryTo(p *Header, b []byte) int {
	b[0] = byte(p.SdoIDAndMsgType)
	b[1] = p.Version
	binary.BigEndian.PutUint16(b[2:], p.MessageLength)
	b[4] = p.DomainNumber
	b[5] = p.MinorSdoID
	binary.BigEndian.PutUint16(b[6:], p.FlagField)
	binary.BigEndian.PutUint64(b[8:], uint64(p.CorrectionField))
	binary.BigEndian.PutUint32(b[16:], p.MessageTypeSpecific)
	binary.BigEndian.PutUint64(b[20:], uint64(p.SourcePortIdentity.ClockIdentity))
	binary.BigEndian.PutUint16(b[28:], p.SourcePortIdentity.PortNumber)
	binary.BigEndian.PutUint16(b[30:], p.SequenceID)
	b[32] = p.ControlField
	b[33] = byte(p.LogMessageInterval)
	return headerSize
}

// flagField bits (Table 37). Only the ones this codec reads or sets are
// named; the rest of the header's bit space is left as zero.
const (
	FlagAlternateMaster  uint16 = 1 << (8 + 0)
	FlagTwoStep          uint16 = 1 << (8 + 1)
	FlagUnicast          uint16 = 1 << (8 + 2)
	FlagProfileSpecific1 uint16 = 1 << (8 + 5)
	FlagProfileSpecific2 uint16 = 1 << (8 + 6)

	FlagLeap61                   uint16 = 1 << 0
	FlagLeap59                   uint16 = 1 << 1
	FlagCurrentUtcOffsetValid    uint16 = 1 << 2
	FlagPTPTimescale             uint16 = 1 << 3
	FlagTimeTraceable            uint16 = 1 << 4
	FlagFrequencyTraceable       uint16 = 1 << 5
	FlagSynchronizationUncertain uint16 = 1 << 6
)

// Every message below splits into the common Header, a body unique to the
// message type, and a suffix of zero or more TLVs (Announce and
// Sync/Delay_Req only; the other bodies never carry TLVs in this profile).

// AnnounceBody is the Announce-specific fields (Table 43).
type AnnounceBody struct {
	OriginTimestamp         Timestamp
	CurrentUTCOffset        int16
	Reserved                uint8
	GrandmasterPriority1    uint8
	GrandmasterClockQuality ClockQuality
	GrandmasterPriority2    uint8
	GrandmasterIdentity     ClockIdentity
	StepsRemoved            uint16
	TimeSource              TimeSource
}

// Announce is a full Announce message: the dataset a BMCA run compares
// this port's foreign masters against.
type Announce struct {
	Header
	AnnounceBody
	TLVs []TLV
}

// MarshalBinaryTo writes the wire encoding of p into b.
func (p *Announce) MarshalBinaryTo(b []byte) (int, error) {
	if len(b) < headerSize+30 {
		return 0, fmt.Errorf("not enough buffer to write Announce")
	}
	n := headerMarshalBinaryTo(&p.Header, b)
	copy(b[n:], p.OriginTimestamp.Seconds[:])
	binary.BigEndian.PutUint32(b[n+6:], p.OriginTimestamp.Nanoseconds)
	binary.BigEndian.PutUint16(b[n+10:], uint16(p.CurrentUTCOffset))
	b[n+12] = p.Reserved
	b[n+13] = p.GrandmasterPriority1
	b[n+14] = byte(p.GrandmasterClockQuality.ClockClass)
	b[n+15] = byte(p.GrandmasterClockQuality.ClockAccuracy)
	binary.BigEndian.PutUint16(b[n+16:], p.GrandmasterClockQuality.OffsetScaledLogVariance)
	b[n+18] = p.GrandmasterPriority2
	binary.BigEndian.PutUint64(b[n+19:], uint64(p.GrandmasterIdentity))
	binary.BigEndian.PutUint16(b[n+27:], p.StepsRemoved)
	b[n+29] = byte(p.TimeSource)
	pos := n + 30
	tlvLen, err := writeTLVs(p.TLVs, b[pos:])
	return pos + tlvLen, err
}

// UnmarshalBinary parses b into p.
func (p *Announce) UnmarshalBinary(b []byte) error {
	if len(b) < headerSize+30 {
		return fmt.Errorf("not enough data to decode Announce")
	}
	unmarshalHeader(&p.Header, b)
	if err := checkPacketLength(&p.Header, len(b)); err != nil {
		return err
	}
	n := headerSize
	copy(p.OriginTimestamp.Seconds[:], b[n:])
	p.OriginTimestamp.Nanoseconds = binary.BigEndian.Uint32(b[n+6:])
	p.CurrentUTCOffset = int16(binary.BigEndian.Uint16(b[n+10:]))
	p.Reserved = b[n+12]
	p.GrandmasterPriority1 = b[n+13]
	p.GrandmasterClockQuality.ClockClass = ClockClass(b[n+14])
	p.GrandmasterClockQuality.ClockAccuracy = ClockAccuracy(b[n+15])
	p.GrandmasterClockQuality.OffsetScaledLogVariance = binary.BigEndian.Uint16(b[n+16:])
	p.GrandmasterPriority2 = b[n+18]
	p.GrandmasterIdentity = ClockIdentity(binary.BigEndian.Uint64(b[n+19:]))
	p.StepsRemoved = binary.BigEndian.Uint16(b[n+27:])
	p.TimeSource = TimeSource(b[n+29])
	pos := n + 30
	var err error
	p.TLVs, err = readTLVs(p.TLVs, int(p.MessageLength)-pos, b[pos:])
	return err
}

// MarshalBinary converts p to its wire bytes.
func (p *Announce) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 508)
	n, err := p.MarshalBinaryTo(buf)
	return buf[:n], err
}

// SyncDelayReqBody is the shared Sync/Delay_Req body (Table 44): both
// messages carry nothing but a single timestamp, set by the sender in
// different ways (Sync: origin timestamp, possibly zero if two-step;
// Delay_Req: transmit timestamp, unused by this profile's receiver).
type SyncDelayReqBody struct {
	OriginTimestamp Timestamp
}

// SyncDelayReq is a full Sync or Delay_Req message.
type SyncDelayReq struct {
	Header
	SyncDelayReqBody
	TLVs []TLV
}

// MarshalBinaryTo writes the wire encoding of p into b.
func (p *SyncDelayReq) MarshalBinaryTo(b []byte) (int, error) {
	if len(b) < headerSize+10 {
		return 0, fmt.Errorf("not enough buffer to write SyncDelayReq")
	}
	n := headerMarshalBinaryTo(&p.Header, b)
	copy(b[n:], p.OriginTimestamp.Seconds[:])
	binary.BigEndian.PutUint32(b[n+6:], p.OriginTimestamp.Nanoseconds)
	pos := n + 10
	tlvLen, err := writeTLVs(p.TLVs, b[pos:])
	return pos + tlvLen, err
}

// MarshalBinary converts p to its wire bytes.
func (p *SyncDelayReq) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 50)
	n, err := p.MarshalBinaryTo(buf)
	return buf[:n], err
}

// UnmarshalBinary parses b into p.
func (p *SyncDelayReq) UnmarshalBinary(b []byte) error {
	if len(b) < headerSize+10 {
		return fmt.Errorf("not enough data to decode SyncDelayReq")
	}
	unmarshalHeader(&p.Header, b)
	if err := checkPacketLength(&p.Header, len(b)); err != nil {
		return err
	}
	copy(p.OriginTimestamp.Seconds[:], b[headerSize:])
	p.OriginTimestamp.Nanoseconds = binary.BigEndian.Uint32(b[headerSize+6:])

	pos := headerSize + 10
	var err error
	p.TLVs, err = readTLVs(p.TLVs, int(p.MessageLength)-pos, b[pos:])
	return err
}

// FollowUpBody is the Follow_Up-specific field (Table 45): the precise
// hardware-timestamped transmit time of the two-step Sync it completes.
type FollowUpBody struct {
	PreciseOriginTimestamp Timestamp
}

// FollowUp is a full Follow_Up message.
type FollowUp struct {
	Header
	FollowUpBody
}

// MarshalBinaryTo writes the wire encoding of p into b.
func (p *FollowUp) MarshalBinaryTo(b []byte) (int, error) {
	if len(b) < headerSize+10 {
		return 0, fmt.Errorf("not enough buffer to write FollowUp")
	}
	n := headerMarshalBinaryTo(&p.Header, b)
	copy(b[n:], p.PreciseOriginTimestamp.Seconds[:])
	binary.BigEndian.PutUint32(b[n+6:], p.PreciseOriginTimestamp.Nanoseconds)
	return n + 10, nil
}

// MarshalBinary converts p to its wire bytes.
func (p *FollowUp) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 44)
	n, err := p.MarshalBinaryTo(buf)
	return buf[:n], err
}

// UnmarshalBinary parses b into p.
func (p *FollowUp) UnmarshalBinary(b []byte) error {
	if len(b) < headerSize+10 {
		return fmt.Errorf("not enough data to decode FollowUp")
	}
	unmarshalHeader(&p.Header, b)
	if err := checkPacketLength(&p.Header, len(b)); err != nil {
		return err
	}
	copy(p.PreciseOriginTimestamp.Seconds[:], b[headerSize:])
	p.PreciseOriginTimestamp.Nanoseconds = binary.BigEndian.Uint32(b[headerSize+6:])
	return nil
}

// DelayRespBody is the Delay_Resp-specific fields (Table 46): the master's
// receive timestamp for a given Delay_Req, and the identity of the port
// that sent it, so a multi-port slave can tell its own response apart from
// another port's.
type DelayRespBody struct {
	ReceiveTimestamp       Timestamp
	RequestingPortIdentity PortIdentity
}

// DelayResp is a full Delay_Resp message.
type DelayResp struct {
	Header
	DelayRespBody
}

// MarshalBinaryTo writes the wire encoding of p into b.
func (p *DelayResp) MarshalBinaryTo(b []byte) (int, error) {
	if len(b) < headerSize+20 {
		return 0, fmt.Errorf("not enough buffer to write DelayResp")
	}
	n := headerMarshalBinaryTo(&p.Header, b)
	copy(b[n:], p.ReceiveTimestamp.Seconds[:])
	binary.BigEndian.PutUint32(b[n+6:], p.ReceiveTimestamp.Nanoseconds)
	binary.BigEndian.PutUint64(b[n+10:], uint64(p.RequestingPortIdentity.ClockIdentity))
	binary.BigEndian.PutUint16(b[n+18:], p.RequestingPortIdentity.PortNumber)
	return n + 20, nil
}

// MarshalBinary converts p to its wire bytes.
func (p *DelayResp) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 54)
	n, err := p.MarshalBinaryTo(buf)
	return buf[:n], err
}

// UnmarshalBinary parses b into p.
func (p *DelayResp) UnmarshalBinary(b []byte) error {
	if len(b) < headerSize+20 {
		return fmt.Errorf("not enough data to decode DelayResp")
	}
	unmarshalHeader(&p.Header, b)
	if err := checkPacketLength(&p.Header, len(b)); err != nil {
		return err
	}
	copy(p.ReceiveTimestamp.Seconds[:], b[headerSize:])
	p.ReceiveTimestamp.Nanoseconds = binary.BigEndian.Uint32(b[headerSize+6:])
	p.RequestingPortIdentity.ClockIdentity = ClockIdentity(binary.BigEndian.Uint64(b[headerSize+10:]))
	p.RequestingPortIdentity.PortNumber = binary.BigEndian.Uint16(b[headerSize+18:])
	return nil
}

// Packet is implemented by every decodable message type.
type Packet interface {
	MessageType() MessageType
	SetSequence(uint16)
}

// BinaryMarshalerTo is implemented by messages that can marshal themselves
// into a caller-provided buffer, avoiding an allocation per send.
type BinaryMarshalerTo interface {
	MarshalBinaryTo([]byte) (int, error)
}

// BytesTo marshals p into buf using its optimized MarshalBinaryTo and
// appends the trailing pad bytes.
func BytesTo(p BinaryMarshalerTo, buf []byte) (int, error) {
	n, err := p.MarshalBinaryTo(buf)
	if err != nil {
		return 0, err
	}
	buf[n] = 0x0
	buf[n+1] = 0x0
	return n + 2, nil
}

// Bytes marshals any Packet to its wire bytes, including the trailing pad.
func Bytes(p Packet) ([]byte, error) {
	if pp, ok := p.(encoding.BinaryMarshaler); ok {
		b, err := pp.MarshalBinary()
		return append(b, twoZeros...), err
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, p); err != nil {
		return nil, err
	}
	err := binary.Write(&buf, binary.BigEndian, twoZeros)
	return buf.Bytes(), err
}

// FromBytes parses rawBytes into any Packet.
func FromBytes(rawBytes []byte, p Packet) error {
	if pp, ok := p.(encoding.BinaryUnmarshaler); ok {
		return pp.UnmarshalBinary(rawBytes)
	}
	reader := bytes.NewReader(rawBytes)
	return binary.Read(reader, binary.BigEndian, p)
}

// DecodePacket classifies and decodes b into the concrete message type its
// header names. Peer-delay, signaling and management messages are
// recognized but rejected: this codec never runs a delay mechanism other
// than multicast end-to-end, and has no management-protocol responder.
func DecodePacket(b []byte) (Packet, error) {
	r := bytes.NewReader(b)
	head := &Header{}
	if err := binary.Read(r, binary.BigEndian, head); err != nil {
		return nil, err
	}
	msgType := head.MessageType()
	var p Packet
	switch msgType {
	case MessageSync, MessageDelayReq:
		p = &SyncDelayReq{}
	case MessageFollowUp:
		p = &FollowUp{}
	case MessageDelayResp:
		p = &DelayResp{}
	case MessageAnnounce:
		p = &Announce{}
	default:
		return nil, fmt.Errorf("unsupported message type for this delay mechanism: %s", msgType)
	}

	if err := FromBytes(b, p); err != nil {
		return nil, err
	}
	return p, nil
}
