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

package concurrency

import "sync/atomic"

// DoubleBuffer carries the latest scalar value (PTP offset, health flags)
// between threads without FIFO semantics: a late reader simply observes the
// most recent write, never a backlog.
type DoubleBuffer[T any] struct {
	slots [2]T
	which atomic.Uint32
}

// Store publishes a new value, visible to the next Load.
func (d *DoubleBuffer[T]) Store(v T) {
	next := d.which.Load() ^ 1
	d.slots[next] = v
	d.which.Store(next)
}

// Load returns the most recently stored value.
func (d *DoubleBuffer[T]) Load() T {
	return d.slots[d.which.Load()]
}
