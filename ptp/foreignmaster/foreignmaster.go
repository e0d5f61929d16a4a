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

// Package foreignmaster implements the per-port foreign-master record list
// an ordinary-clock slave uses to qualify Announce senders before they enter
// the Best Master Clock Algorithm.
package foreignmaster

import ptp "github.com/ravennakit/core/ptp/protocol"

// WindowSize is the number of announce intervals a record survives without
// a fresh Announce before it is purged.
const WindowSize = 4

// QualifyThreshold is the minimum number of announces, observed within the
// window, required for a record to become qualified.
const QualifyThreshold = 2

// Record tracks one foreign master as seen on a single port.
type Record struct {
	PortIdentity    ptp.PortIdentity
	CountInWindow   int
	MostRecent      *ptp.Announce
	Age             int
}

// Qualified reports whether this record has been seen often enough within
// the window to be eligible for BMCA.
func (r *Record) Qualified() bool {
	return r.CountInWindow >= QualifyThreshold
}

// List is the foreign-master record set for one port.
type List struct {
	records map[ptp.PortIdentity]*Record
	best    ptp.PortIdentity
	hasBest bool
}

// NewList creates an empty foreign-master list.
func NewList() *List {
	return &List{records: make(map[ptp.PortIdentity]*Record)}
}

// Update folds in a newly-received Announce. An Announce older (by sequence
// id, wrap-aware) than the most recently stored one for that sender is
// dropped.
func (l *List) Update(a *ptp.Announce) {
	pi := a.Header.SourcePortIdentity
	rec, ok := l.records[pi]
	if !ok {
		rec = &Record{PortIdentity: pi}
		l.records[pi] = rec
	} else if rec.MostRecent != nil {
		if int16(a.Header.SequenceID-rec.MostRecent.Header.SequenceID) <= 0 {
			return
		}
	}
	rec.MostRecent = a
	rec.Age = 0
	if rec.CountInWindow < WindowSize {
		rec.CountInWindow++
	}
}

// Tick runs one announce-interval decay step: every record's count decays by
// one and its age advances; records whose age exceeds the window are purged,
// except the record currently marked as best (which is re-qualified by the
// caller's next BMCA run, not evicted out from under it).
func (l *List) Tick() {
	for pi, rec := range l.records {
		rec.Age++
		if rec.CountInWindow > 0 {
			rec.CountInWindow--
		}
		if rec.Age > WindowSize && (!l.hasBest || pi != l.best) {
			delete(l.records, pi)
		}
	}
}

// SetBest marks a port identity as the instance's current Ebest selection,
// exempting it from window-expiry eviction.
func (l *List) SetBest(pi ptp.PortIdentity) {
	l.best = pi
	l.hasBest = true
}

// ClearBest removes the best-record exemption.
func (l *List) ClearBest() {
	l.hasBest = false
}

// Qualified returns every currently-qualified record.
func (l *List) Qualified() []*Record {
	out := make([]*Record, 0, len(l.records))
	for _, rec := range l.records {
		if rec.Qualified() {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the number of tracked records, qualified or not.
func (l *List) Len() int {
	return len(l.records)
}
