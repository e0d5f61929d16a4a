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
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHandle struct{ stopped *bool }

func (h *fakeHandle) Stop() { *h.stopped = true }

type fakeProvider struct {
	browseFn map[string]func(BrowseEvent)
	stopped  map[string]*bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{browseFn: make(map[string]func(BrowseEvent)), stopped: make(map[string]*bool)}
}

func (p *fakeProvider) Register(context.Context, string, string, string, int, []string) (RegistrationHandle, error) {
	panic("not used")
}

func (p *fakeProvider) Browse(_ context.Context, service, _ string, fn func(BrowseEvent)) (BrowseHandle, error) {
	p.browseFn[service] = fn
	stopped := new(bool)
	p.stopped[service] = stopped
	return &fakeHandle{stopped: stopped}, nil
}

func (p *fakeProvider) Resolve(context.Context, string, string, string) (ServiceEntry, error) {
	panic("not used")
}

func (p *fakeProvider) fire(service string, ev BrowseEvent) {
	p.browseFn[service](ev)
}

func TestSessionBrowserResolvedRequiresAddress(t *testing.T) {
	p := newFakeProvider()
	b := NewSessionBrowser(p)
	require.NoError(t, b.Start(context.Background(), func(SessionEvent) {
		t.Fatal("should not fire for an address-less entry")
	}))
	p.fire(RAVENNAServiceType, BrowseEvent{Kind: BrowseResolved, Entry: ServiceEntry{Instance: "Anubis_610120"}})
}

func TestSessionBrowserResolvedWithAddress(t *testing.T) {
	p := newFakeProvider()
	b := NewSessionBrowser(p)
	var got SessionEvent
	require.NoError(t, b.Start(context.Background(), func(ev SessionEvent) { got = ev }))

	p.fire(RAVENNAServiceType, BrowseEvent{
		Kind: BrowseResolved,
		Entry: ServiceEntry{
			Instance: "Anubis_610120",
			HostName: "anubis.local.",
			Port:     554,
			AddrsV4:  []net.IP{net.ParseIP("192.168.15.52")},
		},
	})

	require.Equal(t, "Anubis_610120", got.Name)
	require.Equal(t, "anubis.local.", got.Host)
	require.Equal(t, 554, got.Port)
	require.False(t, got.Removed)
}

func TestSessionBrowserRemoved(t *testing.T) {
	p := newFakeProvider()
	b := NewSessionBrowser(p)
	var got SessionEvent
	require.NoError(t, b.Start(context.Background(), func(ev SessionEvent) { got = ev }))

	p.fire(RAVENNASessionType, BrowseEvent{Kind: BrowseRemoved, Entry: ServiceEntry{Instance: "Anubis_610120"}})
	require.True(t, got.Removed)
	require.Equal(t, "Anubis_610120", got.Name)
}

func TestSessionBrowserStopStopsBothSubscriptions(t *testing.T) {
	p := newFakeProvider()
	b := NewSessionBrowser(p)
	require.NoError(t, b.Start(context.Background(), func(SessionEvent) {}))
	b.Stop()
	require.True(t, *p.stopped[RAVENNAServiceType])
	require.True(t, *p.stopped[RAVENNASessionType])
}
