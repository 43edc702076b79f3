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

package ncpconn

import "sync"

// generalQueueCapacity bounds the mailbox that recv() drains. Fields
// not claimed by any registered predicate land here; a consumer too
// slow to keep up fails with QueueOverflow rather than stalling the
// reader (spec §9 backpressure).
const generalQueueCapacity = 64

// waiter is a single-shot registration: it matches at most one field,
// is then removed from the registry, and delivers that field (or a
// terminal error) on its channels.
type waiter struct {
	match func(f *Field) bool

	field chan *Field
	err   chan error
}

func newWaiter(match func(f *Field) bool) *waiter {
	return &waiter{
		match: match,
		field: make(chan *Field, 1),
		err:   make(chan error, 1),
	}
}

// registry holds the predicate waiters registered by RecvField and
// SendAndRecv, the general queue drained by Recv, and the terminal
// error broadcast to every waiter once the connection fails or closes.
type registry struct {
	mu              sync.Mutex
	predicates      []*waiter
	general         chan *Field
	generalOverflow chan error
	closed          bool
	closeErr        error
}

func newRegistry() *registry {
	return &registry{
		general:         make(chan *Field, generalQueueCapacity),
		generalOverflow: make(chan error, 1),
	}
}

// register adds w to the predicate list, in registration order, unless
// the registry has already been terminated.
func (r *registry) register(w *waiter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.closeErr
	}
	r.predicates = append(r.predicates, w)
	return nil
}

// unregister removes w if it is still pending (used on cancellation).
func (r *registry) unregister(w *waiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.predicates {
		if p == w {
			r.predicates = append(r.predicates[:i], r.predicates[i+1:]...)
			return
		}
	}
}

// dispatch routes an inbound field to the first matching predicate, in
// registration order, or to the general queue when none match (spec
// §9 "first match claims the field"). Called only from the background
// reader goroutine.
func (r *registry) dispatch(f *Field) {
	r.mu.Lock()
	for i, w := range r.predicates {
		if w.match(f) {
			r.predicates = append(r.predicates[:i], r.predicates[i+1:]...)
			r.mu.Unlock()
			w.field <- f
			return
		}
	}
	r.mu.Unlock()

	select {
	case r.general <- f:
	default:
		// The consumer draining recv() isn't keeping up; fail the
		// next recv() call without blocking the reader or touching
		// any other waiter.
		select {
		case r.generalOverflow <- &QueueOverflow{Queue: "recv"}:
		default:
		}
	}
}

// fail broadcasts a terminal error to every currently registered
// predicate waiter and marks the registry closed so future
// registrations are rejected immediately. Called once when the
// connection transitions to Failed or Closed.
func (r *registry) fail(err error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.closeErr = err
	pending := r.predicates
	r.predicates = nil
	r.mu.Unlock()

	for _, w := range pending {
		w.err <- err
	}
}
