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

// Package sdp wraps pion/sdp/v3's RFC 8866 grammar with typed AES67/RAVENNA
// extension accessors: rtpmap, ptime, maxptime, direction, ts-refclk,
// mediaclk, clock-domain, clock-deviation, source-filter, group:DUP, mid.
// pion/sdp/v3 parses the generic session/media grammar and leaves these as
// opaque Attribute{Key, Value} pairs; this package derives typed fields from
// them on parse and re-serializes them from typed fields on emit, so a
// round trip through Parse/Marshal reproduces the same attributes.
package sdp

import (
	"fmt"
	"strconv"
	"strings"

	psdp "github.com/pion/sdp/v3"
)

// Direction is a media description's sendrecv/sendonly/recvonly/inactive
// attribute.
type Direction uint8

const (
	DirectionUnspecified Direction = iota
	DirectionSendRecv
	DirectionSendOnly
	DirectionRecvOnly
	DirectionInactive
)

func (d Direction) String() string {
	switch d {
	case DirectionSendRecv:
		return "sendrecv"
	case DirectionSendOnly:
		return "sendonly"
	case DirectionRecvOnly:
		return "recvonly"
	case DirectionInactive:
		return "inactive"
	default:
		return ""
	}
}

// Format is one entry of a media description's rtpmap-annotated payload
// type list.
type Format struct {
	PayloadType int
	Encoding    string
	ClockRate   int
	Channels    int // defaults to 1 when rtpmap omits it
}

// ReferenceClock is the ts-refclk/clock-domain pair describing the PTP
// grandmaster a media stream is locked to.
type ReferenceClock struct {
	Source              string // "ptp"
	Version              int    // 2008 or 2019
	GrandmasterIdentity  string // "00-1D-C1-FF-FE-51-9E-F7"
	Domain               int
}

// MediaClock is the mediaclk attribute: direct offset plus an optional
// rate ratio.
type MediaClock struct {
	Mode     string // "direct"
	Offset   int64
	HasRate  bool
	RateNum  uint64
	RateDen  uint64
}

// SourceFilterMode is the include/exclude mode of one source-filter entry.
type SourceFilterMode uint8

const (
	SourceFilterInclude SourceFilterMode = iota
	SourceFilterExclude
)

// SourceFilter is the parsed source-filter attribute for one media
// description: an ordered mode plus destination/source addresses.
type SourceFilter struct {
	Mode        SourceFilterMode
	NetworkType string // "IN"
	AddressType string // "IP4" or "IP6"
	Destination string
	Sources     []string
}

// ClockDeviation is the clock-deviation attribute, a rational number.
type ClockDeviation struct {
	Numerator   int64
	Denominator int64
}

// ConnectionInfo mirrors an SDP c= line.
type ConnectionInfo struct {
	NetworkType string
	AddressType string
	Address     string
}

// MediaDescription is one m= block plus its typed AES67 attributes.
type MediaDescription struct {
	Media       string // "audio"
	Port        int
	PortCount   int // 0 means unspecified (defaults to 1 on emit)
	Proto       []string
	Formats     []Format
	Connections []ConnectionInfo
	PTimeMs     float64
	MaxPTimeMs  float64
	Direction   Direction
	RefClock    *ReferenceClock
	MediaClock  *MediaClock
	Filters     []SourceFilter
	Deviation   *ClockDeviation
	Mid         string
}

// Origin mirrors an SDP o= line.
type Origin struct {
	Username       string
	SessionID      uint64
	SessionVersion uint64
	NetworkType    string
	AddressType    string
	UnicastAddress string
}

// TimeActive mirrors an SDP t= line.
type TimeActive struct {
	StartTime uint64
	StopTime  uint64
}

// Session is a parsed SDP session description with typed AES67 extensions.
type Session struct {
	Version    int
	Origin     Origin
	Name       string
	Connection *ConnectionInfo
	Active     TimeActive
	RefClock   *ReferenceClock
	MediaClock *MediaClock
	GroupDup   []string // group:DUP tags, session scope
	Media      []*MediaDescription
}

// ParseError identifies the offending attribute key so callers can surface
// a structured failure rather than a bare parse error.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sdp: parse %q: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes an SDP text body into a Session, deriving every typed
// AES67 extension field from the generic attribute list pion/sdp/v3
// exposes. The parser does not partially accept: any malformed recognized
// attribute fails the whole parse.
func Parse(data []byte) (*Session, error) {
	var raw psdp.SessionDescription
	if err := raw.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("sdp: unmarshal: %w", err)
	}

	s := &Session{
		Version: int(raw.Version),
		Origin: Origin{
			Username:       raw.Origin.Username,
			SessionID:      raw.Origin.SessionID,
			SessionVersion: raw.Origin.SessionVersion,
			NetworkType:    raw.Origin.NetworkType,
			AddressType:    raw.Origin.AddressType,
			UnicastAddress: raw.Origin.UnicastAddress,
		},
		Name: string(raw.SessionName),
	}
	if raw.ConnectionInformation != nil {
		s.Connection = connectionFromWire(raw.ConnectionInformation)
	}
	if len(raw.TimeDescriptions) > 0 {
		s.Active = TimeActive{
			StartTime: raw.TimeDescriptions[0].Timing.StartTime,
			StopTime:  raw.TimeDescriptions[0].Timing.StopTime,
		}
	}

	for _, a := range raw.Attributes {
		if err := applySessionAttribute(s, a); err != nil {
			return nil, err
		}
	}

	for _, m := range raw.MediaDescriptions {
		md, err := parseMediaDescription(m)
		if err != nil {
			return nil, err
		}
		s.Media = append(s.Media, md)
	}

	return s, nil
}

func connectionFromWire(c *psdp.ConnectionInformation) *ConnectionInfo {
	out := &ConnectionInfo{NetworkType: c.NetworkType, AddressType: c.AddressType}
	if c.Address != nil {
		out.Address = c.Address.Address
	}
	return out
}

func applySessionAttribute(s *Session, a psdp.Attribute) error {
	switch a.Key {
	case "group":
		fields := strings.Fields(a.Value)
		if len(fields) < 1 || fields[0] != "DUP" {
			return nil
		}
		s.GroupDup = append(s.GroupDup, fields[1:]...)
	case "ts-refclk":
		rc, err := parseRefClock(a.Value)
		if err != nil {
			return &ParseError{Key: a.Key, Err: err}
		}
		s.RefClock = rc
	case "clock-domain":
		if s.RefClock != nil {
			domain, err := parseClockDomain(a.Value)
			if err != nil {
				return &ParseError{Key: a.Key, Err: err}
			}
			s.RefClock.Domain = domain
		}
	case "mediaclk":
		mc, err := parseMediaClock(a.Value)
		if err != nil {
			return &ParseError{Key: a.Key, Err: err}
		}
		s.MediaClock = mc
	}
	return nil
}

func parseMediaDescription(m *psdp.MediaDescription) (*MediaDescription, error) {
	md := &MediaDescription{
		Media:     m.MediaName.Media,
		Port:      m.MediaName.Port.Value,
		PortCount: 1,
		Proto:     append([]string(nil), m.MediaName.Protos...),
	}
	if m.MediaName.Port.Range != nil {
		md.PortCount = *m.MediaName.Port.Range
	}
	if m.ConnectionInformation != nil {
		md.Connections = []ConnectionInfo{*connectionFromWire(m.ConnectionInformation)}
	}

	formats := make(map[int]*Format, len(m.MediaName.Formats))
	for _, f := range m.MediaName.Formats {
		pt, err := strconv.Atoi(f)
		if err != nil {
			return nil, &ParseError{Key: "m", Err: fmt.Errorf("bad payload type %q: %w", f, err)}
		}
		fmtEntry := &Format{PayloadType: pt, Channels: 1}
		formats[pt] = fmtEntry
		md.Formats = append(md.Formats, *fmtEntry)
	}

	for _, a := range m.Attributes {
		if err := applyMediaAttribute(md, formats, a); err != nil {
			return nil, err
		}
	}

	// reconcile rtpmap-filled formats back into md.Formats, preserving order
	for i := range md.Formats {
		if f, ok := formats[md.Formats[i].PayloadType]; ok {
			md.Formats[i] = *f
		}
	}
	return md, nil
}

func applyMediaAttribute(md *MediaDescription, formats map[int]*Format, a psdp.Attribute) error {
	switch a.Key {
	case "rtpmap":
		fields := strings.SplitN(a.Value, " ", 2)
		if len(fields) != 2 {
			return &ParseError{Key: a.Key, Err: fmt.Errorf("malformed rtpmap %q", a.Value)}
		}
		pt, err := strconv.Atoi(fields[0])
		if err != nil {
			return &ParseError{Key: a.Key, Err: err}
		}
		f, ok := formats[pt]
		if !ok {
			return &ParseError{Key: a.Key, Err: fmt.Errorf("rtpmap for unknown payload type %d", pt)}
		}
		parts := strings.Split(fields[1], "/")
		f.Encoding = parts[0]
		if len(parts) > 1 {
			rate, err := strconv.Atoi(parts[1])
			if err != nil {
				return &ParseError{Key: a.Key, Err: err}
			}
			f.ClockRate = rate
		}
		if len(parts) > 2 {
			ch, err := strconv.Atoi(parts[2])
			if err != nil {
				return &ParseError{Key: a.Key, Err: err}
			}
			f.Channels = ch
		}
	case "ptime":
		v, err := strconv.ParseFloat(a.Value, 64)
		if err != nil || v <= 0 {
			return &ParseError{Key: a.Key, Err: fmt.Errorf("invalid ptime %q", a.Value)}
		}
		md.PTimeMs = v
	case "maxptime":
		v, err := strconv.ParseFloat(a.Value, 64)
		if err != nil {
			return &ParseError{Key: a.Key, Err: err}
		}
		md.MaxPTimeMs = v
	case "sendrecv":
		md.Direction = DirectionSendRecv
	case "sendonly":
		md.Direction = DirectionSendOnly
	case "recvonly":
		md.Direction = DirectionRecvOnly
	case "inactive":
		md.Direction = DirectionInactive
	case "ts-refclk":
		rc, err := parseRefClock(a.Value)
		if err != nil {
			return &ParseError{Key: a.Key, Err: err}
		}
		md.RefClock = rc
	case "clock-domain":
		if md.RefClock != nil {
			domain, err := parseClockDomain(a.Value)
			if err != nil {
				return &ParseError{Key: a.Key, Err: err}
			}
			md.RefClock.Domain = domain
		}
	case "mediaclk":
		mc, err := parseMediaClock(a.Value)
		if err != nil {
			return &ParseError{Key: a.Key, Err: err}
		}
		md.MediaClock = mc
	case "clock-deviation":
		parts := strings.SplitN(a.Value, "/", 2)
		if len(parts) != 2 {
			return &ParseError{Key: a.Key, Err: fmt.Errorf("malformed clock-deviation %q", a.Value)}
		}
		num, err1 := strconv.ParseInt(parts[0], 10, 64)
		den, err2 := strconv.ParseInt(parts[1], 10, 64)
		if err1 != nil || err2 != nil {
			return &ParseError{Key: a.Key, Err: fmt.Errorf("malformed clock-deviation %q", a.Value)}
		}
		md.Deviation = &ClockDeviation{Numerator: num, Denominator: den}
	case "source-filter":
		sf, err := parseSourceFilter(a.Value)
		if err != nil {
			return &ParseError{Key: a.Key, Err: err}
		}
		md.Filters = append(md.Filters, *sf)
	case "mid":
		md.Mid = a.Value
	}
	return nil
}

// parseRefClock parses "ptp=IEEE1588-2008:00-1D-C1-FF-FE-51-9E-F7:0".
func parseRefClock(v string) (*ReferenceClock, error) {
	parts := strings.SplitN(v, "=", 2)
	if len(parts) != 2 || parts[0] != "ptp" {
		return nil, fmt.Errorf("unsupported refclk source %q", v)
	}
	fields := strings.Split(parts[1], ":")
	if len(fields) < 2 {
		return nil, fmt.Errorf("malformed ts-refclk %q", v)
	}
	versionField := fields[0] // "IEEE1588-2008" or "IEEE1588-2019"
	vp := strings.SplitN(versionField, "-", 2)
	if len(vp) != 2 {
		return nil, fmt.Errorf("malformed refclk version %q", versionField)
	}
	year, err := strconv.Atoi(vp[1])
	if err != nil {
		return nil, fmt.Errorf("malformed refclk year %q: %w", vp[1], err)
	}
	rc := &ReferenceClock{Source: "ptp", Version: year, GrandmasterIdentity: fields[1]}
	if len(fields) >= 3 {
		domain, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("malformed refclk domain %q: %w", fields[2], err)
		}
		rc.Domain = domain
	}
	return rc, nil
}

func parseClockDomain(v string) (int, error) {
	fields := strings.Fields(v)
	if len(fields) != 2 || fields[0] != "PTPv2" {
		return 0, fmt.Errorf("malformed clock-domain %q", v)
	}
	return strconv.Atoi(fields[1])
}

// parseMediaClock parses "direct=0" or "direct=0 rate=48000/1".
func parseMediaClock(v string) (*MediaClock, error) {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty mediaclk")
	}
	modeField := strings.SplitN(fields[0], "=", 2)
	if len(modeField) != 2 {
		return nil, fmt.Errorf("malformed mediaclk %q", v)
	}
	offset, err := strconv.ParseInt(modeField[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed mediaclk offset %q: %w", modeField[1], err)
	}
	mc := &MediaClock{Mode: modeField[0], Offset: offset}
	if len(fields) > 1 {
		rateField := strings.SplitN(fields[1], "=", 2)
		if len(rateField) != 2 || rateField[0] != "rate" {
			return nil, fmt.Errorf("malformed mediaclk rate %q", v)
		}
		rp := strings.SplitN(rateField[1], "/", 2)
		num, err1 := strconv.ParseUint(rp[0], 10, 64)
		if err1 != nil {
			return nil, fmt.Errorf("malformed mediaclk rate %q", v)
		}
		mc.HasRate = true
		mc.RateNum = num
		mc.RateDen = 1
		if len(rp) > 1 {
			den, err2 := strconv.ParseUint(rp[1], 10, 64)
			if err2 != nil {
				return nil, fmt.Errorf("malformed mediaclk rate %q", v)
			}
			mc.RateDen = den
		}
	}
	return mc, nil
}

// parseSourceFilter parses " incl IN IP4 239.1.1.1 10.0.0.1 10.0.0.2".
func parseSourceFilter(v string) (*SourceFilter, error) {
	fields := strings.Fields(v)
	if len(fields) < 4 {
		return nil, fmt.Errorf("malformed source-filter %q", v)
	}
	var mode SourceFilterMode
	switch fields[0] {
	case "incl":
		mode = SourceFilterInclude
	case "excl":
		mode = SourceFilterExclude
	default:
		return nil, fmt.Errorf("unknown source-filter mode %q", fields[0])
	}
	if fields[1] != "IN" {
		return nil, fmt.Errorf("unknown network type %q", fields[1])
	}
	switch fields[2] {
	case "IP4", "IP6":
	default:
		return nil, fmt.Errorf("unknown address type %q", fields[2])
	}
	return &SourceFilter{
		Mode:        mode,
		NetworkType: fields[1],
		AddressType: fields[2],
		Destination: fields[3],
		Sources:     append([]string(nil), fields[4:]...),
	}, nil
}
