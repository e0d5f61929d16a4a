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

package rtpreceiver

import "time"

// State is a reader's lifecycle state, published on the reactor thread.
type State int

const (
	StateIdle State = iota
	StateWaitingForData
	StateOK
	StateOKNoConsumer
	StateInactive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingForData:
		return "waiting_for_data"
	case StateOK:
		return "ok"
	case StateOKNoConsumer:
		return "ok_no_consumer"
	case StateInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// InactivityTimeout is how long a reader may go without a packet before its
// state flips to StateInactive.
const InactivityTimeout = time.Second

// slotState is a reader slot's place in the free/adding/ready/removing/free
// lifecycle, guarded by the reader's AtomicRwLock.
type slotState int

const (
	slotFree slotState = iota
	slotAdding
	slotReady
	slotRemoving
)
