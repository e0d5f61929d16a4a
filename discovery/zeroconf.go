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

package discovery

import (
	"context"
	"fmt"

	"github.com/libp2p/zeroconf/v2"
)

// ZeroconfProvider is the default Provider, backed by mDNS/DNS-SD via
// libp2p/zeroconf/v2.
type ZeroconfProvider struct{}

// NewZeroconfProvider builds the default provider.
func NewZeroconfProvider() *ZeroconfProvider {
	return &ZeroconfProvider{}
}

type zeroconfRegistration struct {
	server *zeroconf.Server
}

func (r *zeroconfRegistration) Stop() {
	r.server.Shutdown()
}

// Register advertises the service via zeroconf.Register, which runs its own
// responder goroutine until Shutdown is called.
func (p *ZeroconfProvider) Register(_ context.Context, instance, service, domain string, port int, text []string) (RegistrationHandle, error) {
	server, err := zeroconf.Register(instance, service, domain, port, text, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: register %s.%s: %w", instance, service, err)
	}
	return &zeroconfRegistration{server: server}, nil
}

type zeroconfBrowse struct {
	cancel context.CancelFunc
}

func (b *zeroconfBrowse) Stop() {
	b.cancel()
}

// Browse subscribes via zeroconf.Browse. Per the underlying library's
// convention, an entry whose TTL has dropped to zero signals removal rather
// than a fresh resolution. fn is called from a goroutine Browse starts, one
// entry at a time, not from a reactor thread.
func (p *ZeroconfProvider) Browse(ctx context.Context, service, domain string, fn func(BrowseEvent)) (BrowseHandle, error) {
	browseCtx, cancel := context.WithCancel(ctx)
	entries := make(chan *zeroconf.ServiceEntry, 16)

	if err := zeroconf.Browse(browseCtx, service, domain, entries); err != nil {
		cancel()
		return nil, fmt.Errorf("discovery: browse %s: %w", service, err)
	}

	go func() {
		for entry := range entries {
			fn(toBrowseEvent(entry))
		}
	}()

	return &zeroconfBrowse{cancel: cancel}, nil
}

// Resolve looks up a specific instance via zeroconf.Resolve, returning the
// first entry seen before ctx is done.
func (p *ZeroconfProvider) Resolve(ctx context.Context, instance, service, domain string) (ServiceEntry, error) {
	resolveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 1)
	if err := zeroconf.Resolve(resolveCtx, instance, service, domain, entries); err != nil {
		return ServiceEntry{}, fmt.Errorf("discovery: resolve %s.%s: %w", instance, service, err)
	}

	select {
	case entry := <-entries:
		if entry == nil {
			return ServiceEntry{}, fmt.Errorf("discovery: resolve %s.%s: no entry", instance, service)
		}
		return toBrowseEvent(entry).Entry, nil
	case <-ctx.Done():
		return ServiceEntry{}, ctx.Err()
	}
}

func toBrowseEvent(entry *zeroconf.ServiceEntry) BrowseEvent {
	e := ServiceEntry{
		Instance: entry.Instance,
		Service:  entry.Service,
		Domain:   entry.Domain,
		HostName: entry.HostName,
		Port:     entry.Port,
		Text:     entry.Text,
		AddrsV4:  entry.AddrIPv4,
		AddrsV6:  entry.AddrIPv6,
	}
	kind := BrowseResolved
	if entry.TTL == 0 {
		kind = BrowseRemoved
	}
	return BrowseEvent{Kind: kind, Entry: e}
}
