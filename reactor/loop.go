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
	"time"
)

// Loop is the standard-library-backed Reactor: a single goroutine draining a
// task channel, fed by Post and by time.Timer/time.Ticker callbacks that
// re-enter the loop rather than running on their own goroutine.
type Loop struct {
	tasks chan func()
}

// NewLoop creates a reactor with a buffered task queue of the given size.
func NewLoop(queueSize int) *Loop {
	if queueSize < 1 {
		queueSize = 64
	}
	return &Loop{tasks: make(chan func(), queueSize)}
}

// Run drains the task queue until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post enqueues fn to run on the loop goroutine.
func (l *Loop) Post(fn func()) {
	l.tasks <- fn
}

type timerHandle struct {
	stop func()
}

func (t *timerHandle) Stop() {
	t.stop()
}

// AfterFunc schedules fn once, re-entering the loop via Post when it fires.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := time.AfterFunc(d, func() { l.Post(fn) })
	return &timerHandle{stop: func() { t.Stop() }}
}

// TickerFunc schedules fn repeatedly, re-entering the loop via Post on each
// tick.
func (l *Loop) TickerFunc(d time.Duration, fn func()) Timer {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				l.Post(fn)
			}
		}
	}()
	return &timerHandle{stop: func() {
		ticker.Stop()
		select {
		case <-done:
		default:
			close(done)
		}
	}}
}
