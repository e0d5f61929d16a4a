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

package rtsp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ravennakit/core/clockmath"
	"github.com/ravennakit/core/reactor"
	"github.com/ravennakit/core/sdp"
)

// DefaultDescribeTimeout bounds how long Describe waits for a response
// before giving up, per the request/response contract: one in flight
// request per connection, keyed by CSeq.
const DefaultDescribeTimeout = time.Second

// Client issues RTSP requests against one session source and parses
// DESCRIBE responses into typed SDP sessions.
type Client struct {
	conn    *Connection
	reactor reactor.Reactor
	host    string

	mu      sync.Mutex
	cseq    int
	pending map[int]chan *Message

	describeLatency clockmath.RunningAverage
}

// Dial connects to addr (host:port) and starts the client's own reactor
// loop on a background goroutine. Close closes the connection; the loop
// keeps running until ctx is cancelled.
func Dial(ctx context.Context, addr string) (*Client, error) {
	raw, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rtsp: dial %s: %w", addr, err)
	}
	return NewClient(ctx, raw, addr), nil
}

// NewClient wraps an already-established net.Conn (e.g. net.Pipe in tests)
// as a Client addressed as addr, starting its own reactor loop on a
// background goroutine.
func NewClient(ctx context.Context, conn net.Conn, addr string) *Client {
	loop := reactor.NewLoop(64)
	c := &Client{
		reactor: loop,
		host:    addr,
		pending: make(map[int]chan *Message),
	}
	c.conn = NewConnection(conn, loop, c)

	go loop.Run(ctx)
	c.conn.Start(ctx)
	return c
}

// OnMessage implements Subscriber. It routes the response to the channel
// waiting on its CSeq, if any.
func (c *Client) OnMessage(_ *Connection, msg *Message) {
	cseqStr := msg.Headers.Get("CSeq")
	cseq, err := strconv.Atoi(cseqStr)
	if err != nil {
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[cseq]
	if ok {
		delete(c.pending, cseq)
	}
	c.mu.Unlock()
	if ok {
		ch <- msg
	}
}

// OnClosed implements Subscriber. Any requests still awaiting a response
// are unblocked with a nil message so callers see a timeout-equivalent
// error rather than hanging forever.
func (c *Client) OnClosed(_ *Connection, _ error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int]chan *Message)
	c.mu.Unlock()
	for _, ch := range pending {
		close(ch)
	}
}

// Close shuts down the underlying socket.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) nextCSeq() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cseq++
	return c.cseq
}

func (c *Client) do(ctx context.Context, req *Message) (*Message, error) {
	cseq := c.nextCSeq()
	req.Headers.Set("CSeq", strconv.Itoa(cseq))

	ch := make(chan *Message, 1)
	c.mu.Lock()
	c.pending[cseq] = ch
	c.mu.Unlock()

	if err := c.conn.Send(req); err != nil {
		c.mu.Lock()
		delete(c.pending, cseq)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case resp, ok := <-ch:
		if !ok || resp == nil {
			return nil, fmt.Errorf("rtsp: connection closed before response to CSeq %d", cseq)
		}
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, cseq)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Describe issues a DESCRIBE for path (e.g. "/by-name/Anubis%20610120") and
// parses the response body as an SDP session. The request targets
// rtsp://<host>/<path> and asks for application/sdp per RFC 7826 §13.2.
func (c *Client) Describe(ctx context.Context, path string) (*sdp.Session, error) {
	session, _, err := c.DescribeRaw(ctx, path)
	return session, err
}

// DescribeRaw behaves like Describe but also returns the original SDP body
// bytes as received, since they may carry attributes the typed sdp.Session
// does not model.
func (c *Client) DescribeRaw(ctx context.Context, path string) (*sdp.Session, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDescribeTimeout)
	defer cancel()

	req := NewRequest(MethodDescribe, fmt.Sprintf("rtsp://%s%s", c.host, path))
	req.Headers.Set("Accept", "application/sdp")

	start := time.Now()
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	c.mu.Lock()
	c.describeLatency.Add(float64(time.Since(start)))
	c.mu.Unlock()
	if resp.StatusCode != 200 {
		return nil, nil, fmt.Errorf("rtsp: DESCRIBE %s: %d %s", path, resp.StatusCode, resp.Reason)
	}
	session, err := sdp.Parse(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return session, resp.Body, nil
}

// DescribeLatency returns the running average round-trip time of every
// DESCRIBE this client has completed, and how many samples fed it. A
// sustained rise is an early signal of a strained RTSP session source
// before requests start timing out outright.
func (c *Client) DescribeLatency() (time.Duration, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.describeLatency.Average()), c.describeLatency.Count()
}
