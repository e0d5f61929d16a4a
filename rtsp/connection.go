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
	"sync"

	"github.com/ravennakit/core/reactor"
)

// Subscriber receives messages and closure notifications for a Connection.
// Callbacks run on the owning reactor's thread, so implementations never
// need their own locking against other Connection callbacks.
type Subscriber interface {
	OnMessage(c *Connection, msg *Message)
	OnClosed(c *Connection, err error)
}

// Connection owns one TCP socket, its read/write buffers, a Parser instance
// and a subscriber. Reads happen on a dedicated goroutine (net.Conn has no
// portable readiness notification this module can multiplex on a reactor
// the way reactorshim does multicast sockets); every byte read is handed to
// the parser and every resulting Message is dispatched via reactor.Post so
// subscriber code always runs on the reactor thread alongside PTP and RTP
// state.
type Connection struct {
	conn     net.Conn
	reactor  reactor.Reactor
	sub      Subscriber
	parser   Parser
	writeMu  sync.Mutex
	closeMu  sync.Mutex
	closed   bool
}

// NewConnection wraps an already-established net.Conn. Call Start to begin
// reading.
func NewConnection(conn net.Conn, r reactor.Reactor, sub Subscriber) *Connection {
	return &Connection{conn: conn, reactor: r, sub: sub}
}

// Start launches the read loop. It returns immediately; the loop runs until
// ctx is cancelled or the peer closes the connection.
func (c *Connection) Start(ctx context.Context) {
	go c.readLoop(ctx)
}

func (c *Connection) readLoop(ctx context.Context) {
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			msgs, ferr := c.parser.Feed(chunk)
			for _, m := range msgs {
				msg := m
				c.reactor.Post(func() { c.sub.OnMessage(c, msg) })
			}
			if ferr != nil {
				c.closeWithError(ferr)
				return
			}
		}
		if err != nil {
			c.closeWithError(err)
			return
		}
		select {
		case <-ctx.Done():
			c.closeWithError(ctx.Err())
			return
		default:
		}
	}
}

func (c *Connection) closeWithError(err error) {
	c.closeMu.Lock()
	already := c.closed
	c.closed = true
	c.closeMu.Unlock()
	if already {
		return
	}
	c.conn.Close()
	c.reactor.Post(func() { c.sub.OnClosed(c, err) })
}

// Send marshals msg and writes it to the socket. Safe for concurrent use.
func (c *Connection) Send(msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	b := msg.Marshal()
	n, err := c.conn.Write(b)
	if err != nil {
		return fmt.Errorf("rtsp: write: %w", err)
	}
	if n != len(b) {
		return fmt.Errorf("rtsp: short write: %d of %d bytes", n, len(b))
	}
	return nil
}

// Close closes the underlying socket. OnClosed still fires once the read
// loop observes the resulting error.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the peer address, or nil if unavailable.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
