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

// Package reactor defines the cooperative single-threaded event loop
// abstraction every protocol state machine in this module runs on: sockets,
// timers and DNS-SD callbacks all hop onto it before touching shared state.
// This package holds the interface, the emitter, the standard-library-backed
// Loop and the manually driven Fake, so PTP/RTSP/RTP logic can be driven by a
// fake reactor in tests; reactorshim holds only the UDP socket helpers.
package reactor

import (
	"context"
	"time"
)

// Reactor owns sockets and timers and runs callbacks on a single logical
// thread. Run blocks until ctx is cancelled.
type Reactor interface {
	// Run drives the event loop until ctx is done.
	Run(ctx context.Context) error
	// Post schedules fn to run on the reactor thread as soon as possible.
	Post(fn func())
	// AfterFunc schedules fn to run once, after d, on the reactor thread. The
	// returned Timer can be stopped before it fires.
	AfterFunc(d time.Duration, fn func()) Timer
	// TickerFunc schedules fn to run repeatedly every d, on the reactor
	// thread, until the returned Timer is stopped.
	TickerFunc(d time.Duration, fn func()) Timer
}

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the timer. Safe to call more than once.
	Stop()
}
