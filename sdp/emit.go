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

package sdp

import (
	"fmt"
	"strconv"
	"strings"

	psdp "github.com/pion/sdp/v3"
)

// Marshal re-serializes s to canonical RFC 8866 text, re-deriving every
// attribute line from the typed fields set on s and its media descriptions.
// Field order follows RFC 8866: v/o/s/c/t then the session attributes,
// then each m= block and its own attributes.
func (s *Session) Marshal() ([]byte, error) {
	raw := &psdp.SessionDescription{
		Version: psdp.Version(s.Version),
		Origin: psdp.Origin{
			Username:       s.Origin.Username,
			SessionID:      s.Origin.SessionID,
			SessionVersion: s.Origin.SessionVersion,
			NetworkType:    s.Origin.NetworkType,
			AddressType:    s.Origin.AddressType,
			UnicastAddress: s.Origin.UnicastAddress,
		},
		SessionName: psdp.SessionName(s.Name),
		TimeDescriptions: []psdp.TimeDescription{
			{Timing: psdp.Timing{StartTime: s.Active.StartTime, StopTime: s.Active.StopTime}},
		},
	}
	if s.Connection != nil {
		raw.ConnectionInformation = connectionToWire(s.Connection)
	}

	if s.RefClock != nil {
		raw.Attributes = append(raw.Attributes, psdp.Attribute{Key: "ts-refclk", Value: formatRefClock(s.RefClock)})
		raw.Attributes = append(raw.Attributes, psdp.Attribute{Key: "clock-domain", Value: fmt.Sprintf("PTPv2 %d", s.RefClock.Domain)})
	}
	if s.MediaClock != nil {
		raw.Attributes = append(raw.Attributes, psdp.Attribute{Key: "mediaclk", Value: formatMediaClock(s.MediaClock)})
	}
	if len(s.GroupDup) > 0 {
		raw.Attributes = append(raw.Attributes, psdp.Attribute{Key: "group", Value: "DUP " + strings.Join(s.GroupDup, " ")})
	}

	for _, md := range s.Media {
		wireMedia, err := md.toWire()
		if err != nil {
			return nil, err
		}
		raw.MediaDescriptions = append(raw.MediaDescriptions, wireMedia)
	}

	return raw.Marshal()
}

func connectionToWire(c *ConnectionInfo) *psdp.ConnectionInformation {
	return &psdp.ConnectionInformation{
		NetworkType: c.NetworkType,
		AddressType: c.AddressType,
		Address:     &psdp.Address{Address: c.Address},
	}
}

func (md *MediaDescription) toWire() (*psdp.MediaDescription, error) {
	if md.PTimeMs <= 0 && len(md.Formats) > 0 {
		return nil, &ParseError{Key: "ptime", Err: fmt.Errorf("ptime must be > 0")}
	}

	formats := make([]string, len(md.Formats))
	for i, f := range md.Formats {
		formats[i] = strconv.Itoa(f.PayloadType)
	}

	portRange := &md.PortCount
	if md.PortCount <= 1 {
		portRange = nil
	}

	out := &psdp.MediaDescription{
		MediaName: psdp.MediaName{
			Media:   md.Media,
			Port:    psdp.RangedPort{Value: md.Port, Range: portRange},
			Protos:  append([]string(nil), md.Proto...),
			Formats: formats,
		},
	}
	if len(md.Connections) > 0 {
		out.ConnectionInformation = connectionToWire(&md.Connections[0])
	}

	for _, f := range md.Formats {
		if f.Encoding == "" {
			continue
		}
		value := fmt.Sprintf("%d %s/%d", f.PayloadType, f.Encoding, f.ClockRate)
		if f.Channels > 1 {
			value += fmt.Sprintf("/%d", f.Channels)
		}
		out.Attributes = append(out.Attributes, psdp.Attribute{Key: "rtpmap", Value: value})
	}
	if md.PTimeMs > 0 {
		out.Attributes = append(out.Attributes, psdp.Attribute{Key: "ptime", Value: formatFloat(md.PTimeMs)})
	}
	if md.MaxPTimeMs > 0 {
		out.Attributes = append(out.Attributes, psdp.Attribute{Key: "maxptime", Value: formatFloat(md.MaxPTimeMs)})
	}
	if dir := md.Direction.String(); dir != "" {
		out.Attributes = append(out.Attributes, psdp.Attribute{Key: dir})
	}
	if md.RefClock != nil {
		out.Attributes = append(out.Attributes, psdp.Attribute{Key: "ts-refclk", Value: formatRefClock(md.RefClock)})
		out.Attributes = append(out.Attributes, psdp.Attribute{Key: "clock-domain", Value: fmt.Sprintf("PTPv2 %d", md.RefClock.Domain)})
	}
	if md.MediaClock != nil {
		out.Attributes = append(out.Attributes, psdp.Attribute{Key: "mediaclk", Value: formatMediaClock(md.MediaClock)})
	}
	if md.Deviation != nil {
		out.Attributes = append(out.Attributes, psdp.Attribute{
			Key:   "clock-deviation",
			Value: fmt.Sprintf("%d/%d", md.Deviation.Numerator, md.Deviation.Denominator),
		})
	}
	for _, f := range md.Filters {
		out.Attributes = append(out.Attributes, psdp.Attribute{Key: "source-filter", Value: formatSourceFilter(&f)})
	}
	if md.Mid != "" {
		out.Attributes = append(out.Attributes, psdp.Attribute{Key: "mid", Value: md.Mid})
	}
	return out, nil
}

func formatFloat(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatRefClock(rc *ReferenceClock) string {
	return fmt.Sprintf("ptp=IEEE1588-%d:%s:%d", rc.Version, rc.GrandmasterIdentity, rc.Domain)
}

func formatMediaClock(mc *MediaClock) string {
	s := fmt.Sprintf("%s=%d", mc.Mode, mc.Offset)
	if mc.HasRate {
		s += fmt.Sprintf(" rate=%d/%d", mc.RateNum, mc.RateDen)
	}
	return s
}

func formatSourceFilter(f *SourceFilter) string {
	mode := "incl"
	if f.Mode == SourceFilterExclude {
		mode = "excl"
	}
	return fmt.Sprintf(" %s %s %s %s %s", mode, f.NetworkType, f.AddressType, f.Destination, strings.Join(f.Sources, " "))
}
