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

package ravenna

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ravennakit/core/discovery"
	"github.com/ravennakit/core/reactor"
	"github.com/ravennakit/core/rtpreceiver"
	"github.com/ravennakit/core/rtsp"
	"github.com/stretchr/testify/require"
)

const fixtureSDP = "v=0\r\n" +
	"o=- 13 0 IN IP4 192.168.15.52\r\n" +
	"s=Anubis_610120_13\r\n" +
	"c=IN IP4 239.1.15.52/15\r\n" +
	"t=0 0\r\n" +
	"m=audio 5004 RTP/AVP 98\r\n" +
	"c=IN IP4 239.1.15.52/15\r\n" +
	"a=rtpmap:98 L16/48000/2\r\n" +
	"a=source-filter: incl IN IP4 239.1.15.52 192.168.15.52\r\n" +
	"a=ptime:1\r\n" +
	"a=recvonly\r\n"

type fakeResolveProvider struct {
	entry discovery.ServiceEntry
}

func (p *fakeResolveProvider) Register(context.Context, string, string, string, int, []string) (discovery.RegistrationHandle, error) {
	panic("not used")
}

func (p *fakeResolveProvider) Browse(context.Context, string, string, func(discovery.BrowseEvent)) (discovery.BrowseHandle, error) {
	panic("not used")
}

func (p *fakeResolveProvider) Resolve(context.Context, string, string, string) (discovery.ServiceEntry, error) {
	return p.entry, nil
}

// fakeDescribeServer answers every DESCRIBE with a 200 OK carrying
// fixtureSDP, over a net.Pipe connection.
func startFakeDescribeServer(ctx context.Context, t *testing.T, serverConn net.Conn) {
	t.Helper()
	loop := reactor.NewLoop(16)
	go loop.Run(ctx)

	sub := &describeResponder{}
	conn := rtsp.NewConnection(serverConn, loop, sub)
	conn.Start(ctx)
}

type describeResponder struct{}

func (d *describeResponder) OnMessage(c *rtsp.Connection, msg *rtsp.Message) {
	resp := rtsp.NewResponse(200, "OK")
	resp.Headers.Set("CSeq", msg.Headers.Get("CSeq"))
	resp.Headers.Set("Content-Type", "application/sdp")
	resp.Body = []byte(fixtureSDP)
	c.Send(resp)
}

func (d *describeResponder) OnClosed(*rtsp.Connection, error) {}

func TestReceiverSubscribeWiresPipeline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	serverConn, clientConn := net.Pipe()
	startFakeDescribeServer(ctx, t, serverConn)

	provider := &fakeResolveProvider{entry: discovery.ServiceEntry{
		Instance: "Anubis_610120_13",
		HostName: "anubis",
		Port:     554,
		AddrsV4:  []net.IP{net.ParseIP("192.168.15.52")},
	}}

	dial := func(ctx context.Context, addr string) (*rtsp.Client, error) {
		return rtsp.NewClient(ctx, clientConn, addr), nil
	}

	cfg := rtpreceiver.Config{SampleRate: 48000, PacketTimeFrames: 48, MaxRedundantSessions: 1}
	r := NewReceiver(provider, dial, cfg, 4)

	require.NoError(t, r.Subscribe(ctx, "Anubis_610120_13"))
	require.Equal(t, "Anubis_610120_13", r.SessionName())
	require.NotNil(t, r.SDP())
	require.Equal(t, "Anubis_610120_13", r.SDP().Name)
	require.NotEmpty(t, r.SDPText())

	_, state := r.ReadAudio(1, 0, nil)
	require.Equal(t, rtpreceiver.StateWaitingForData, state)

	r.Unsubscribe()
	require.Equal(t, "", r.SessionName())
	_, state = r.ReadAudio(1, 0, nil)
	require.Equal(t, rtpreceiver.StateIdle, state)
}
