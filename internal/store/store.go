// Package store provides the small state-container primitive every console
// slice is built on: a mutex-guarded snapshot with subscriptions, plus
// cancellable timers that are guaranteed not to fire after Stop.
//
// Stores are plain values constructed at the composition root; there are no
// package-level singletons. All cross-slice coordination happens through
// explicit calls at the mutation site, never through hidden watchers.
package store

import (
	"sort"
	"sync"
)

// Store holds one slice of console state. T should be a snapshot value:
// reducers receive the current value and return the next one, and readers
// get copies, so no caller ever sees a torn state.
type Store[T any] struct {
	mu    sync.Mutex
	state T
	subs  map[int]func(T)
	next  int
}

// New creates a store with the given initial snapshot.
func New[T any](initial T) *Store[T] {
	return &Store[T]{state: initial, subs: make(map[int]func(T))}
}

// Snapshot returns the current state.
func (s *Store[T]) Snapshot() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies the reducer atomically and returns the new state.
// Subscribers run after the lock is released, in subscription order.
func (s *Store[T]) Update(reduce func(T) T) T {
	s.mu.Lock()
	s.state = reduce(s.state)
	state := s.state
	keys := make([]int, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	listeners := make([]func(T), 0, len(keys))
	for _, k := range keys {
		listeners = append(listeners, s.subs[k])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
	return state
}

// Subscribe registers a listener for every state change and returns its
// cancel function. The listener is not called with the current state.
func (s *Store[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
