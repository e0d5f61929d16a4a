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

// Package rtsp hand-rolls the subset of RFC 7826 this toolkit needs: an
// incremental request/response parser, a TCP connection wrapper, a client
// that issues DESCRIBE, and a server that accepts connections and forwards
// parsed messages to a subscriber. No RTSP library is used - this is core
// deliverable surface, not ambient plumbing.
package rtsp

import (
	"fmt"
	"strings"
)

// Method is an RTSP request method.
type Method string

const (
	MethodDescribe  Method = "DESCRIBE"
	MethodOptions   Method = "OPTIONS"
	MethodSetup     Method = "SETUP"
	MethodPlay      Method = "PLAY"
	MethodPause     Method = "PAUSE"
	MethodTeardown  Method = "TEARDOWN"
	MethodAnnounce  Method = "ANNOUNCE"
)

// Header is one ordered, case-sensitive name/value pair. RTSP headers may
// repeat; Headers preserves every occurrence in wire order.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered, multi-valued header list.
type Headers struct {
	entries []Header
}

// Add appends a header, preserving any existing entries with the same name.
func (h *Headers) Add(name, value string) {
	h.entries = append(h.entries, Header{Name: name, Value: value})
}

// Set replaces every existing entry for name with a single new one.
func (h *Headers) Set(name, value string) {
	out := h.entries[:0]
	for _, e := range h.entries {
		if !strings.EqualFold(e.Name, name) {
			out = append(out, e)
		}
	}
	h.entries = append(out, Header{Name: name, Value: value})
}

// Get returns the first value for name, case-insensitively, or "" if absent.
func (h *Headers) Get(name string) string {
	for _, e := range h.entries {
		if strings.EqualFold(e.Name, name) {
			return e.Value
		}
	}
	return ""
}

// Values returns every value for name, in wire order.
func (h *Headers) Values(name string) []string {
	var out []string
	for _, e := range h.entries {
		if strings.EqualFold(e.Name, name) {
			out = append(out, e.Value)
		}
	}
	return out
}

// All returns every header, in wire order.
func (h *Headers) All() []Header {
	return h.entries
}

// Message is a parsed RTSP request or response.
type Message struct {
	IsResponse bool

	// Request fields.
	Method Method
	URI    string

	// Response fields.
	StatusCode int
	Reason     string

	VersionMajor int
	VersionMinor int

	Headers Headers
	Body    []byte
}

// NewRequest builds a request message with RTSP/1.0 and the given headers
// empty; callers add headers with Headers.Add before sending.
func NewRequest(method Method, uri string) *Message {
	return &Message{Method: method, URI: uri, VersionMajor: 1, VersionMinor: 0}
}

// NewResponse builds a response message with RTSP/1.0.
func NewResponse(status int, reason string) *Message {
	return &Message{IsResponse: true, StatusCode: status, Reason: reason, VersionMajor: 1, VersionMinor: 0}
}

// ContentLength returns the Content-Length header value, or 0 if absent -
// per the invariant that an absent header means a zero-length body.
func (m *Message) ContentLength() int {
	v := m.Headers.Get("Content-Length")
	if v == "" {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n < 0 {
		return 0
	}
	return n
}

// Marshal serializes m to wire bytes, always emitting \r\n line endings
// regardless of what the parser tolerated on input.
func (m *Message) Marshal() []byte {
	var b strings.Builder
	if m.IsResponse {
		fmt.Fprintf(&b, "RTSP/%d.%d %d %s\r\n", m.VersionMajor, m.VersionMinor, m.StatusCode, m.Reason)
	} else {
		fmt.Fprintf(&b, "%s %s RTSP/%d.%d\r\n", m.Method, m.URI, m.VersionMajor, m.VersionMinor)
	}
	headers := m.Headers
	if len(m.Body) > 0 && headers.Get("Content-Length") == "" {
		headers.Set("Content-Length", fmt.Sprintf("%d", len(m.Body)))
	}
	for _, h := range headers.All() {
		fmt.Fprintf(&b, "%s: %s\r\n", h.Name, h.Value)
	}
	b.WriteString("\r\n")
	out := []byte(b.String())
	out = append(out, m.Body...)
	return out
}
