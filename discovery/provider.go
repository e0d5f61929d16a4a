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

// Package discovery abstracts DNS-SD registration and browsing behind a
// minimal interface, so the RAVENNA session browser and transmitter
// advertiser never depend on a specific mDNS/DNS-SD stack directly. The
// default backend wraps github.com/libp2p/zeroconf/v2; platform-native
// backends (Bonjour, avahi) implement the same interface.
package discovery

import (
	"context"
	"net"
)

// ServiceEntry describes one resolved or removed service instance.
type ServiceEntry struct {
	Instance string
	Service  string
	Domain   string
	HostName string
	Port     int
	Text     []string
	AddrsV4  []net.IP
	AddrsV6  []net.IP
}

// HasAddress reports whether the entry resolved at least one address, the
// minimum needed before a browser may act on a "resolved" event.
func (e ServiceEntry) HasAddress() bool {
	return len(e.AddrsV4) > 0 || len(e.AddrsV6) > 0
}

// BrowseEventKind distinguishes a newly (re-)resolved entry from a removed
// one in a Browse callback.
type BrowseEventKind int

const (
	BrowseResolved BrowseEventKind = iota
	BrowseRemoved
)

// BrowseEvent is delivered to a Browse callback on the reactor thread.
type BrowseEvent struct {
	Kind  BrowseEventKind
	Entry ServiceEntry
}

// RegistrationHandle stops an advertised service when closed.
type RegistrationHandle interface {
	Stop()
}

// BrowseHandle stops a browse subscription when closed.
type BrowseHandle interface {
	Stop()
}

// Provider is the minimal DNS-SD trait the core consumes: register a
// locally originated service, browse for a service type, and resolve a
// specific instance. Every provider callback must hop to the reactor
// thread before touching shared state - a provider backed by a
// platform-native stack (Bonjour) may otherwise deliver on its own thread.
type Provider interface {
	// Register advertises a service (instance, service type, domain, port,
	// TXT records) until the returned handle is stopped.
	Register(ctx context.Context, instance, service, domain string, port int, text []string) (RegistrationHandle, error)

	// Browse subscribes to every instance of service/domain, invoking fn for
	// every resolved or removed entry. fn runs on whatever goroutine the
	// implementation delivers on; ZeroconfProvider calls it from a goroutine
	// of its own, not from a reactor thread.
	Browse(ctx context.Context, service, domain string, fn func(BrowseEvent)) (BrowseHandle, error)

	// Resolve looks up one specific named instance.
	Resolve(ctx context.Context, instance, service, domain string) (ServiceEntry, error)
}
