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

package reactor

import (
	"context"
	"sort"
	"time"
)

// Fake is a manually-driven Reactor for deterministic tests: Advance moves
// its virtual clock forward and synchronously fires every timer/ticker due
// by the new time, in order.
type Fake struct {
	now     time.Time
	posted  []func()
	timers  []*fakeTimer
	nextSeq int
}

type fakeTimer struct {
	at      time.Time
	period  time.Duration // 0 for one-shot
	fn      func()
	stopped bool
	seq     int
}

func (t *fakeTimer) Stop() {
	t.stopped = true
}

// NewFake creates a fake reactor with its virtual clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Run blocks until ctx is cancelled. It neither runs posted tasks nor
// advances time by itself — call RunPosted or Advance from the test.
func (f *Fake) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Post queues fn; RunPosted executes queued tasks.
func (f *Fake) Post(fn func()) {
	f.posted = append(f.posted, fn)
}

// RunPosted executes and clears every task queued via Post, in order.
func (f *Fake) RunPosted() {
	pending := f.posted
	f.posted = nil
	for _, fn := range pending {
		fn()
	}
}

// AfterFunc registers a one-shot timer relative to the fake's current time.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.nextSeq++
	t := &fakeTimer{at: f.now.Add(d), fn: fn, seq: f.nextSeq}
	f.timers = append(f.timers, t)
	return t
}

// TickerFunc registers a repeating timer relative to the fake's current
// time.
func (f *Fake) TickerFunc(d time.Duration, fn func()) Timer {
	f.nextSeq++
	t := &fakeTimer{at: f.now.Add(d), period: d, fn: fn, seq: f.nextSeq}
	f.timers = append(f.timers, t)
	return t
}

// Now returns the fake reactor's current virtual time.
func (f *Fake) Now() time.Time {
	return f.now
}

// Advance moves the virtual clock forward by d, firing every timer/ticker
// due at or before the new time, in chronological (then registration) order,
// and draining posted tasks after each fire.
func (f *Fake) Advance(d time.Duration) {
	target := f.now.Add(d)
	for {
		due := f.dueTimer(target)
		if due == nil {
			break
		}
		f.now = due.at
		due.fn()
		f.RunPosted()
		if due.period > 0 && !due.stopped {
			due.at = due.at.Add(due.period)
		} else {
			due.stopped = true
		}
	}
	f.now = target
	f.RunPosted()
}

func (f *Fake) dueTimer(target time.Time) *fakeTimer {
	var candidates []*fakeTimer
	for _, t := range f.timers {
		if !t.stopped && !t.at.After(target) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].at.Equal(candidates[j].at) {
			return candidates[i].seq < candidates[j].seq
		}
		return candidates[i].at.Before(candidates[j].at)
	})
	return candidates[0]
}
