// Copyright (c) 2026 The Uno Authors
// released under the MIT license

// Package handle implements self-invalidating subscriptions.
//
// Every Register call returns a *Handle that owns the subscription. The
// registry only observes it through a weak pointer: once the handle is closed,
// or becomes unreachable and is garbage collected, the callback stops firing
// and its slot is pruned the next time the registry delivers. There is no
// unsubscribe call.
package handle

import (
	"sync"
	"weak"

	"go.uber.org/atomic"
)

// slot holds the callback; it is strongly referenced only by its Handle.
type slot[T any] struct {
	closed   atomic.Bool
	callback T
}

// Handle is an owned subscription token.
type Handle struct {
	owner  any // keeps the slot reachable
	closed *atomic.Bool
}

// Close drops the subscription. It is safe to call more than once, and on a nil Handle.
func (h *Handle) Close() {
	if h == nil || h.closed == nil {
		return
	}
	if h.closed.Swap(true) {
		return
	}
	h.owner = nil
}

// Alive reports whether the subscription can still fire.
func (h *Handle) Alive() bool {
	return h != nil && h.closed != nil && !h.closed.Load()
}

// Registry is a list of weakly held callbacks of type T.
type Registry[T any] struct {
	mu sync.Mutex // tier 0, never held while a callback runs

	slots []weak.Pointer[slot[T]]
}

// Register adds a callback and returns the handle that keeps it alive.
func (r *Registry[T]) Register(callback T) *Handle {
	s := &slot[T]{callback: callback}

	r.mu.Lock()
	r.slots = append(r.slots, weak.Make(s))
	r.mu.Unlock()

	return &Handle{owner: s, closed: &s.closed}
}

// Each calls visit with every live callback, in registration order. Dead
// slots found along the way are removed.
func (r *Registry[T]) Each(visit func(T)) {
	r.mu.Lock()
	live := make([]*slot[T], 0, len(r.slots))
	kept := r.slots[:0]
	for _, wp := range r.slots {
		s := wp.Value()
		if s == nil || s.closed.Load() {
			continue
		}
		kept = append(kept, wp)
		live = append(live, s)
	}
	// clear the tail so pruned weak pointers don't linger in the backing array
	for i := len(kept); i < len(r.slots); i++ {
		r.slots[i] = weak.Pointer[slot[T]]{}
	}
	r.slots = kept
	r.mu.Unlock()

	for _, s := range live {
		// the handle may have been closed since the snapshot
		if !s.closed.Load() {
			visit(s.callback)
		}
	}
}

// Len returns the number of slots currently held, including dead slots that
// have not been pruned yet.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
