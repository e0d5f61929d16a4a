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

	"github.com/sirupsen/logrus"

	"github.com/ravennakit/core/reactor"
	"github.com/ravennakit/core/sdp"
)

// DescribeHandler resolves a request path (e.g. "/by-name/Anubis 610120",
// already URL-decoded) to the SDP session advertised for it. A nil session
// with a nil error means "not found".
type DescribeHandler func(path string) (*sdp.Session, error)

// Server accepts RTSP connections and answers DESCRIBE requests by
// delegating to a DescribeHandler. All request handling for every
// connection runs on the server's single reactor, matching how the
// PTP/RTP state machines in this module are driven.
type Server struct {
	listener net.Listener
	reactor  reactor.Reactor
	describe DescribeHandler

	mu    sync.Mutex
	conns map[*Connection]struct{}
}

// NewServer wraps an already-listening net.Listener. r is the reactor every
// accepted Connection dispatches messages on.
func NewServer(listener net.Listener, r reactor.Reactor, handler DescribeHandler) *Server {
	return &Server{
		listener: listener,
		reactor:  r,
		describe: handler,
		conns:    make(map[*Connection]struct{}),
	}
}

// Serve accepts connections until ctx is cancelled or the listener errors.
func (s *Server) Serve(ctx context.Context) error {
	for {
		raw, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return fmt.Errorf("rtsp: accept: %w", err)
			}
		}
		conn := NewConnection(raw, s.reactor, s)
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		conn.Start(ctx)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

// OnMessage implements Subscriber, answering DESCRIBE requests and
// rejecting every other method with 501 Not Implemented.
func (s *Server) OnMessage(c *Connection, msg *Message) {
	if msg.IsResponse {
		return
	}

	switch msg.Method {
	case MethodDescribe:
		s.handleDescribe(c, msg)
	default:
		s.reply(c, msg, NewResponse(501, "Not Implemented"))
	}
}

func (s *Server) handleDescribe(c *Connection, req *Message) {
	path, err := requestPath(req.URI)
	if err != nil {
		logrus.WithError(err).WithField("uri", req.URI).Warn("rtsp: DESCRIBE with unparsable request URI")
		s.reply(c, req, NewResponse(400, "Bad Request"))
		return
	}

	session, err := s.describe(path)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Error("rtsp: DESCRIBE handler failed")
		s.reply(c, req, NewResponse(500, "Internal Server Error"))
		return
	}
	if session == nil {
		logrus.WithField("path", path).Debug("rtsp: DESCRIBE for unknown session")
		s.reply(c, req, NewResponse(404, "Not Found"))
		return
	}

	body, err := session.Marshal()
	if err != nil {
		logrus.WithError(err).WithField("path", path).Error("rtsp: failed to marshal SDP for DESCRIBE response")
		s.reply(c, req, NewResponse(500, "Internal Server Error"))
		return
	}

	resp := NewResponse(200, "OK")
	resp.Headers.Set("Content-Type", "application/sdp")
	resp.Body = body
	s.reply(c, req, resp)
}

func (s *Server) reply(c *Connection, req *Message, resp *Message) {
	resp.Headers.Set("CSeq", req.Headers.Get("CSeq"))
	c.Send(resp)
}

// OnClosed implements Subscriber.
func (s *Server) OnClosed(c *Connection, _ error) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func requestPath(uri string) (string, error) {
	u, err := parseRequestURI(uri)
	if err != nil {
		return "", err
	}
	return u, nil
}
