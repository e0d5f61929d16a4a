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
	"testing"

	"github.com/stretchr/testify/require"
)

const anubisSDP = "v=0\r\n" +
	"o=- 13 0 IN IP4 192.168.15.52\r\n" +
	"s=Anubis_610120_13\r\n" +
	"c=IN IP4 239.1.15.52/15\r\n" +
	"t=0 0\r\n" +
	"a=clock-domain:PTPv2 0\r\n" +
	"a=ts-refclk:ptp=IEEE1588-2008:00-1D-C1-FF-FE-51-9E-F7:0\r\n" +
	"a=mediaclk:direct=0\r\n" +
	"m=audio 5004 RTP/AVP 98\r\n" +
	"c=IN IP4 239.1.15.52/15\r\n" +
	"a=rtpmap:98 L16/48000/2\r\n" +
	"a=source-filter: incl IN IP4 239.1.15.52 192.168.15.52\r\n" +
	"a=clock-domain:PTPv2 0\r\n" +
	"a=ptime:1\r\n" +
	"a=ts-refclk:ptp=IEEE1588-2008:00-1D-C1-FF-FE-51-9E-F7:0\r\n" +
	"a=mediaclk:direct=0\r\n" +
	"a=recvonly\r\n"

func TestParseAnubisSDP(t *testing.T) {
	s, err := Parse([]byte(anubisSDP))
	require.NoError(t, err)
	require.Equal(t, "Anubis_610120_13", s.Name)
	require.Len(t, s.Media, 1)

	m := s.Media[0]
	require.Len(t, m.Formats, 1)
	require.Equal(t, "L16", m.Formats[0].Encoding)
	require.Equal(t, 48000, m.Formats[0].ClockRate)
	require.Equal(t, 2, m.Formats[0].Channels)
	require.Equal(t, 1.0, m.PTimeMs)
	require.NotNil(t, m.RefClock)
	require.Equal(t, "ptp", m.RefClock.Source)
	require.Equal(t, 2008, m.RefClock.Version)
	require.Equal(t, "00-1D-C1-FF-FE-51-9E-F7", m.RefClock.GrandmasterIdentity)
	require.Equal(t, 0, m.RefClock.Domain)
	require.Equal(t, DirectionRecvOnly, m.Direction)
	require.Len(t, m.Filters, 1)
	require.Equal(t, SourceFilterInclude, m.Filters[0].Mode)
}

func TestMediaFormatSlotsBeforeRtpmap(t *testing.T) {
	body := "v=0\r\n" +
		"o=- 1 0 IN IP4 0.0.0.0\r\n" +
		"s=-\r\n" +
		"t=0 0\r\n" +
		"m=audio 5004/2 RTP/AVP 98 99 100\r\n"
	s, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, s.Media, 1)
	require.Len(t, s.Media[0].Formats, 3)
	require.Equal(t, 2, s.Media[0].PortCount)
}

func TestRoundTripAnubis(t *testing.T) {
	s, err := Parse([]byte(anubisSDP))
	require.NoError(t, err)

	b, err := s.Marshal()
	require.NoError(t, err)

	s2, err := Parse(b)
	require.NoError(t, err)
	require.Equal(t, s, s2)
}

func TestInvalidPtimeRejected(t *testing.T) {
	body := "v=0\r\n" +
		"o=- 1 0 IN IP4 0.0.0.0\r\n" +
		"s=-\r\n" +
		"t=0 0\r\n" +
		"m=audio 5004 RTP/AVP 98\r\n" +
		"a=ptime:0\r\n"
	_, err := Parse([]byte(body))
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "ptime", perr.Key)
}
