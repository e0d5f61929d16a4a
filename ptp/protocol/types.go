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

// Package protocol is the IEEE 1588-2019 wire codec used by an AES67/RAVENNA
// ordinary-clock slave: Announce, Sync, Follow_Up, Delay_Req and Delay_Resp
// only. Peer-delay, management and signaling messages are out of scope for a
// multicast E2E two-step slave and are rejected rather than decoded.
package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"time"
)

const twoPow16 = 65536

// MessageType identifies the kind of a PTP message (Table 36).
type MessageType uint8

const (
	MessageSync               MessageType = 0x0
	MessageDelayReq           MessageType = 0x1
	MessagePDelayReq          MessageType = 0x2
	MessagePDelayResp         MessageType = 0x3
	MessageFollowUp           MessageType = 0x8
	MessageDelayResp          MessageType = 0x9
	MessagePDelayRespFollowUp MessageType = 0xA
	MessageAnnounce           MessageType = 0xB
	MessageSignaling          MessageType = 0xC
	MessageManagement         MessageType = 0xD
)

var messageTypeNames = map[MessageType]string{
	MessageSync:               "SYNC",
	MessageDelayReq:           "DELAY_REQ",
	MessagePDelayReq:          "PDELAY_REQ",
	MessagePDelayResp:         "PDELAY_RESP",
	MessageFollowUp:           "FOLLOW_UP",
	MessageDelayResp:          "DELAY_RESP",
	MessagePDelayRespFollowUp: "PDELAY_RESP_FOLLOW_UP",
	MessageAnnounce:           "ANNOUNCE",
	MessageSignaling:          "SIGNALING",
	MessageManagement:         "MANAGEMENT",
}

func (m MessageType) String() string {
	if s, ok := messageTypeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("MessageType(0x%x)", uint8(m))
}

// SdoIDAndMsgType packs a 4-bit SdoID and a 4-bit MessageType into one byte.
type SdoIDAndMsgType uint8

// MsgType extracts the MessageType (low nibble).
func (m SdoIDAndMsgType) MsgType() MessageType {
	return MessageType(m & 0xf)
}

// NewSdoIDAndMsgType packs msgType and sdoID into one byte.
func NewSdoIDAndMsgType(msgType MessageType, sdoID uint8) SdoIDAndMsgType {
	return SdoIDAndMsgType(sdoID<<4 | uint8(msgType))
}

// ProbeMsgType peeks at the first byte of a datagram to classify it without
// a full decode.
func ProbeMsgType(data []byte) (MessageType, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("not enough data to probe message type")
	}
	return SdoIDAndMsgType(data[0]).MsgType(), nil
}

// TLVType identifies what follows a TLVHead (Table 52). Only a subset of
// the registry is named here; anything else still round-trips through
// RawTLV, it's just reported by its numeric value.
type TLVType uint16

const (
	TLVOrganizationExtension TLVType = 0x0003
	TLVPathTrace             TLVType = 0x0008
)

func (t TLVType) String() string {
	switch t {
	case TLVOrganizationExtension:
		return "ORGANIZATION_EXTENSION"
	case TLVPathTrace:
		return "PATH_TRACE"
	default:
		return fmt.Sprintf("TLVType(0x%04x)", uint16(t))
	}
}

// Correction is the correctionField: nanoseconds scaled by 2**16, or, with
// every bit but the sign set, a sentinel meaning "too big to represent".
type Correction int64

// Nanoseconds decodes the field to a float64 count of nanoseconds.
func (t Correction) Nanoseconds() float64 {
	if t.TooBig() {
		return math.Inf(1)
	}
	return float64(t) / twoPow16
}

// Duration converts the field to a time.Duration, truncating fractional
// nanoseconds and treating TooBig() as zero.
func (t Correction) Duration() time.Duration {
	if t.TooBig() {
		return 0
	}
	return time.Duration(t.Nanoseconds())
}

func (t Correction) String() string {
	if t.TooBig() {
		return "Correction(too big)"
	}
	return fmt.Sprintf("Correction(%.3fns)", t.Nanoseconds())
}

// TooBig reports whether the field is the "too big to represent" sentinel.
func (t Correction) TooBig() bool {
	return t == 0x7fffffffffffffff
}

// NewCorrection builds a Correction from a nanosecond count, saturating at
// the TooBig sentinel rather than overflowing.
func NewCorrection(ns float64) Correction {
	scaled := ns * twoPow16
	if scaled > 0x7fffffffffffffff {
		return Correction(0x7fffffffffffffff)
	}
	return Correction(scaled)
}

// ClockIdentity is the EUI-64 identity of a PTP instance or port.
type ClockIdentity uint64

// String formats a ClockIdentity the way ptp4l's pmc client does.
func (c ClockIdentity) String() string {
	ptr := make([]byte, 8)
	binary.BigEndian.PutUint64(ptr, uint64(c))
	return fmt.Sprintf("%02x%02x%02x.%02x%02x.%02x%02x%02x",
		ptr[0], ptr[1], ptr[2], ptr[3],
		ptr[4], ptr[5], ptr[6], ptr[7],
	)
}

// MAC recovers the EUI-48 MAC address a ClockIdentity was derived from,
// assuming it followed the usual EUI-48-to-EUI-64 padding.
func (c ClockIdentity) MAC() net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	mac[0] = byte(c >> 56)
	mac[1] = byte(c >> 48)
	mac[2] = byte(c >> 40)
	mac[3] = byte(c >> 16)
	mac[4] = byte(c >> 8)
	mac[5] = byte(c)
	return mac
}

// NewClockIdentity derives a ClockIdentity from a MAC address (EUI-48 or
// EUI-64).
func NewClockIdentity(mac net.HardwareAddr) (ClockIdentity, error) {
	var b [8]byte
	switch len(mac) {
	case 6: // EUI-48
		b[0], b[1], b[2] = mac[0], mac[1], mac[2]
		b[3], b[4] = 0xFF, 0xFE
		b[5], b[6], b[7] = mac[3], mac[4], mac[5]
	case 8: // EUI-64
		copy(b[:], mac)
	default:
		return 0, fmt.Errorf("unsupported MAC %v, must be either EUI48 or EUI64", mac)
	}
	return ClockIdentity(binary.BigEndian.Uint64(b[:])), nil
}

// PortIdentity names a single PTP port: its instance's ClockIdentity plus a
// 1-based port number.
type PortIdentity struct {
	ClockIdentity ClockIdentity
	PortNumber    uint16
}

func (p PortIdentity) String() string {
	return fmt.Sprintf("%s-%d", p.ClockIdentity, p.PortNumber)
}

// Compare orders two port identities by clock identity, then port number.
func (p PortIdentity) Compare(q PortIdentity) int {
	if p.ClockIdentity != q.ClockIdentity {
		if p.ClockIdentity < q.ClockIdentity {
			return -1
		}
		return 1
	}
	switch {
	case p.PortNumber < q.PortNumber:
		return -1
	case p.PortNumber > q.PortNumber:
		return 1
	default:
		return 0
	}
}

// Less reports whether p sorts before q.
func (p PortIdentity) Less(q PortIdentity) bool { return p.Compare(q) == -1 }

// PTPSeconds is a 48-bit big-endian seconds-since-epoch field.
type PTPSeconds [6]uint8

// Empty reports the zero value.
func (s PTPSeconds) Empty() bool {
	return s == [6]uint8{}
}

// Seconds decodes the 48-bit field to a uint64.
func (s PTPSeconds) Seconds() uint64 {
	return uint64(s[5]) | uint64(s[4])<<8 | uint64(s[3])<<16 | uint64(s[2])<<24 |
		uint64(s[1])<<32 | uint64(s[0])<<40
}

// Time converts to a Go time.Time at whole-second resolution.
func (s PTPSeconds) Time() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return time.Unix(int64(s.Seconds()), 0)
}

func (s PTPSeconds) String() string {
	if s.Empty() {
		return "PTPSeconds(empty)"
	}
	return fmt.Sprintf("PTPSeconds(%s)", s.Time())
}

// NewPTPSeconds encodes a time.Time's whole-second component.
func NewPTPSeconds(t time.Time) PTPSeconds {
	if t.IsZero() {
		return PTPSeconds{}
	}
	v := uint64(t.Unix())
	return PTPSeconds{byte(v >> 40), byte(v >> 32), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// Timestamp is a seconds+nanoseconds timestamp, as carried in Announce,
// Sync, Follow_Up and Delay_Resp bodies.
type Timestamp struct {
	Seconds     PTPSeconds
	Nanoseconds uint32
}

// Time converts to a Go time.Time.
func (t Timestamp) Time() time.Time {
	if t.Empty() {
		return time.Time{}
	}
	return time.Unix(int64(t.Seconds.Seconds()), int64(t.Nanoseconds))
}

// Empty reports the zero value.
func (t Timestamp) Empty() bool {
	return t.Nanoseconds == 0 && t.Seconds.Empty()
}

func (t Timestamp) String() string {
	if t.Empty() {
		return "Timestamp(empty)"
	}
	return fmt.Sprintf("Timestamp(%s)", t.Time())
}

// NewTimestamp encodes a Go time.Time.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	ts := Timestamp{Nanoseconds: uint32(t.Nanosecond())}
	ts.Seconds = NewPTPSeconds(t)
	return ts
}

// ClockClass indicates the traceability of a grandmaster's time source
// (https://datatracker.ietf.org/doc/html/rfc8173#section-7.6.2.4).
type ClockClass uint8

const (
	ClockClass6         ClockClass = 6
	ClockClass7         ClockClass = 7
	ClockClass13        ClockClass = 13
	ClockClass14        ClockClass = 14
	ClockClass52        ClockClass = 52
	ClockClass58        ClockClass = 58
	ClockClassSlaveOnly ClockClass = 255
)

// ClockAccuracy bounds how far a grandmaster's time can be from true time
// (https://datatracker.ietf.org/doc/html/rfc8173#section-7.6.2.5).
type ClockAccuracy uint8

const (
	ClockAccuracyNanosecond25       ClockAccuracy = 0x20
	ClockAccuracyNanosecond100      ClockAccuracy = 0x21
	ClockAccuracyNanosecond250      ClockAccuracy = 0x22
	ClockAccuracyMicrosecond1       ClockAccuracy = 0x23
	ClockAccuracyMicrosecond2point5 ClockAccuracy = 0x24
	ClockAccuracyMicrosecond10      ClockAccuracy = 0x25
	ClockAccuracyMicrosecond25      ClockAccuracy = 0x26
	ClockAccuracyMicrosecond100     ClockAccuracy = 0x27
	ClockAccuracyMicrosecond250     ClockAccuracy = 0x28
	ClockAccuracyMillisecond1       ClockAccuracy = 0x29
	ClockAccuracyMillisecond2point5 ClockAccuracy = 0x2A
	ClockAccuracyMillisecond10      ClockAccuracy = 0x2B
	ClockAccuracyMillisecond25      ClockAccuracy = 0x2C
	ClockAccuracyMillisecond100     ClockAccuracy = 0x2D
	ClockAccuracyMillisecond250     ClockAccuracy = 0x2E
	ClockAccuracySecond1            ClockAccuracy = 0x2F
	ClockAccuracySecond10           ClockAccuracy = 0x30
	ClockAccuracySecondGreater10    ClockAccuracy = 0x31
	ClockAccuracyUnknown            ClockAccuracy = 0xFE
)

// ClockAccuracyFromOffset picks the smallest accuracy bucket covering offset.
func ClockAccuracyFromOffset(offset time.Duration) ClockAccuracy {
	if offset < 0 {
		offset = -offset
	}
	switch {
	case offset <= 25*time.Nanosecond:
		return ClockAccuracyNanosecond25
	case offset <= 100*time.Nanosecond:
		return ClockAccuracyNanosecond100
	case offset <= 250*time.Nanosecond:
		return ClockAccuracyNanosecond250
	case offset <= time.Microsecond:
		return ClockAccuracyMicrosecond1
	case offset <= 2500*time.Nanosecond:
		return ClockAccuracyMicrosecond2point5
	case offset <= 10*time.Microsecond:
		return ClockAccuracyMicrosecond10
	case offset <= 25*time.Microsecond:
		return ClockAccuracyMicrosecond25
	case offset <= 100*time.Microsecond:
		return ClockAccuracyMicrosecond100
	case offset <= 250*time.Microsecond:
		return ClockAccuracyMicrosecond250
	case offset <= time.Millisecond:
		return ClockAccuracyMillisecond1
	case offset <= 2500*time.Microsecond:
		return ClockAccuracyMillisecond2point5
	case offset <= 10*time.Millisecond:
		return ClockAccuracyMillisecond10
	case offset <= 25*time.Millisecond:
		return ClockAccuracyMillisecond25
	case offset <= 100*time.Millisecond:
		return ClockAccuracyMillisecond100
	case offset <= 250*time.Millisecond:
		return ClockAccuracyMillisecond250
	case offset <= time.Second:
		return ClockAccuracySecond1
	case offset <= 10*time.Second:
		return ClockAccuracySecond10
	default:
		return ClockAccuracySecondGreater10
	}
}

// Duration returns the matching upper-bound time.Duration for c.
func (c ClockAccuracy) Duration() time.Duration {
	switch c {
	case ClockAccuracyNanosecond25:
		return 25 * time.Nanosecond
	case ClockAccuracyNanosecond100:
		return 100 * time.Nanosecond
	case ClockAccuracyNanosecond250:
		return 250 * time.Nanosecond
	case ClockAccuracyMicrosecond1:
		return 1000 * time.Nanosecond
	case ClockAccuracyMicrosecond2point5:
		return 2500 * time.Nanosecond
	case ClockAccuracyMicrosecond10:
		return 10 * time.Microsecond
	case ClockAccuracyMicrosecond25:
		return 25 * time.Microsecond
	case ClockAccuracyMicrosecond100:
		return 100 * time.Microsecond
	case ClockAccuracyMicrosecond250:
		return 250 * time.Microsecond
	case ClockAccuracyMillisecond1:
		return time.Millisecond
	case ClockAccuracyMillisecond2point5:
		return 2500 * time.Microsecond
	case ClockAccuracyMillisecond10:
		return 10 * time.Millisecond
	case ClockAccuracyMillisecond25:
		return 25 * time.Millisecond
	case ClockAccuracyMillisecond100:
		return 100 * time.Millisecond
	case ClockAccuracyMillisecond250:
		return 250 * time.Millisecond
	case ClockAccuracySecond1:
		return time.Second
	case ClockAccuracySecond10:
		return 10 * time.Second
	default:
		return 25 * time.Second
	}
}

// ClockQuality bundles the three fields an Announce uses to describe a
// grandmaster's quality.
type ClockQuality struct {
	ClockClass              ClockClass    `json:"clock_class"`
	ClockAccuracy           ClockAccuracy `json:"clock_accuracy"`
	OffsetScaledLogVariance uint16        `json:"offset_scaled_log_variance"`
}

// TimeSource names where a grandmaster's time ultimately comes from
// (Table 6).
type TimeSource uint8

const (
	TimeSourceAtomicClock        TimeSource = 0x10
	TimeSourceGNSS               TimeSource = 0x20
	TimeSourceTerrestrialRadio   TimeSource = 0x30
	TimeSourceSerialTimeCode     TimeSource = 0x39
	TimeSourcePTP                TimeSource = 0x40
	TimeSourceNTP                TimeSource = 0x50
	TimeSourceHandSet            TimeSource = 0x60
	TimeSourceOther              TimeSource = 0x90
	TimeSourceInternalOscillator TimeSource = 0xa0
)

var timeSourceNames = map[TimeSource]string{
	TimeSourceAtomicClock:        "ATOMIC_CLOCK",
	TimeSourceGNSS:               "GNSS",
	TimeSourceTerrestrialRadio:   "TERRESTRIAL_RADIO",
	TimeSourceSerialTimeCode:     "SERIAL_TIME_CODE",
	TimeSourcePTP:                "PTP",
	TimeSourceNTP:                "NTP",
	TimeSourceHandSet:            "HAND_SET",
	TimeSourceOther:              "OTHER",
	TimeSourceInternalOscillator: "INTERNAL_OSCILLATOR",
}

func (t TimeSource) String() string {
	if s, ok := timeSourceNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TimeSource(0x%x)", uint8(t))
}

// LogInterval is a base-2 logarithm of a period in seconds, the unit PTP
// uses for every message interval field.
type LogInterval int8

// Duration converts a LogInterval to a time.Duration.
func (i LogInterval) Duration() time.Duration {
	secs := math.Pow(2, float64(i))
	return time.Duration(secs * float64(time.Second))
}

// NewLogInterval converts a time.Duration to the nearest LogInterval.
func NewLogInterval(d time.Duration) (LogInterval, error) {
	li := int(math.Log2(d.Seconds()))
	if li > 127 || li < -128 {
		return 0, fmt.Errorf("logInterval %d out of the representable range", li)
	}
	return LogInterval(li), nil
}

// PortState is the state of a port's state machine (Table 20). This module
// only ever drives a port through INITIALIZING -> LISTENING -> (UNCALIBRATED
// <-> SLAVE) or PASSIVE; MASTER and the grandmaster-only states exist here
// only so a received Announce's own claims can be represented faithfully.
type PortState uint8

const (
	PortStateInitializing PortState = iota + 1
	PortStateFaulty
	PortStateDisabled
	PortStateListening
	PortStatePreMaster
	PortStateMaster
	PortStatePassive
	PortStateUncalibrated
	PortStateSlave
)

var portStateNames = map[PortState]string{
	PortStateInitializing: "INITIALIZING",
	PortStateFaulty:       "FAULTY",
	PortStateDisabled:     "DISABLED",
	PortStateListening:    "LISTENING",
	PortStatePreMaster:    "PRE_MASTER",
	PortStateMaster:       "MASTER",
	PortStatePassive:      "PASSIVE",
	PortStateUncalibrated: "UNCALIBRATED",
	PortStateSlave:        "SLAVE",
}

func (ps PortState) String() string {
	if s, ok := portStateNames[ps]; ok {
		return s
	}
	return fmt.Sprintf("PortState(%d)", uint8(ps))
}
