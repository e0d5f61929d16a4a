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

// Emitter is a slab of event subscribers keyed by a stable id, replacing the
// intrusive self-unlinking list nodes the pattern is traditionally built on:
// a subscriber holds the id returned by Subscribe and calls Unsubscribe
// itself, rather than relying on destructor-ordering between node and
// emitter.
type Emitter[T any] struct {
	nextID      uint64
	subscribers map[uint64]func(T)
}

// NewEmitter creates an empty emitter.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{subscribers: make(map[uint64]func(T))}
}

// Subscribe registers fn and returns a stable id used to unsubscribe it.
func (e *Emitter[T]) Subscribe(fn func(T)) uint64 {
	e.nextID++
	id := e.nextID
	e.subscribers[id] = fn
	return id
}

// Unsubscribe removes a previously-subscribed handler. Safe to call with an
// id that was already removed.
func (e *Emitter[T]) Unsubscribe(id uint64) {
	delete(e.subscribers, id)
}

// Emit calls every current subscriber with value, in unspecified order.
func (e *Emitter[T]) Emit(value T) {
	for _, fn := range e.subscribers {
		fn(value)
	}
}

// Len returns the number of currently-registered subscribers.
func (e *Emitter[T]) Len() int {
	return len(e.subscribers)
}
