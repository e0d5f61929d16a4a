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

import "context"

// RAVENNAServiceType and RAVENNASessionType are the two service types a
// session browser watches (RTSP session sources announce themselves under
// both); RAVENNAServiceDomain is the domain it browses them in.
const (
	RAVENNAServiceType   = "_rtsp._tcp"
	RAVENNASessionType   = "_ravenna_session"
	RAVENNAServiceDomain = "local."
)

// SessionEvent reports a RAVENNA session source appearing or disappearing.
type SessionEvent struct {
	Removed  bool
	Name     string
	Host     string
	Port     int
}

// SessionBrowser subscribes to the RAVENNA service types and reports
// resolved/removed sessions as (name, host, port) tuples. Events from the
// two underlying service types are forwarded as they arrive and are not
// merged: an instance seen under both types is reported once per type.
type SessionBrowser struct {
	provider Provider
	handles  []BrowseHandle
}

// NewSessionBrowser builds a browser over provider. Call Start to begin
// watching.
func NewSessionBrowser(provider Provider) *SessionBrowser {
	return &SessionBrowser{provider: provider}
}

// Start subscribes to both RAVENNA service types, invoking fn for every
// resolved entry with at least one address and for every removal, on the
// goroutine the provider delivers browse events on.
func (b *SessionBrowser) Start(ctx context.Context, fn func(SessionEvent)) error {
	for _, svc := range []string{RAVENNAServiceType, RAVENNASessionType} {
		h, err := b.provider.Browse(ctx, svc, RAVENNAServiceDomain, func(ev BrowseEvent) {
			if ev.Kind == BrowseRemoved {
				fn(SessionEvent{Removed: true, Name: ev.Entry.Instance})
				return
			}
			if !ev.Entry.HasAddress() {
				return
			}
			fn(SessionEvent{
				Name: ev.Entry.Instance,
				Host: ev.Entry.HostName,
				Port: ev.Entry.Port,
			})
		})
		if err != nil {
			b.Stop()
			return err
		}
		b.handles = append(b.handles, h)
	}
	return nil
}

// Stop cancels every subscription.
func (b *SessionBrowser) Stop() {
	for _, h := range b.handles {
		h.Stop()
	}
	b.handles = nil
}
