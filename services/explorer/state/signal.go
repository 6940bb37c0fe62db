// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package state

import "sync"

// Signal is a minimal observer primitive: subscribers register a
// callback and receive every value emitted after subscription.
//
// # Description
//
// Signal replaces ambient framework reactivity with an explicit
// subscription mechanism. Emission is synchronous: emit returns after
// every subscriber callback has run, so a subscriber observes store
// state that already includes the mutation that triggered the emit.
//
// # Thread Safety
//
// Safe for concurrent use. Callbacks run without the Signal's lock held,
// so a subscriber may re-enter the store (e.g. re-read a snapshot).
type Signal[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

// Subscribe registers fn and returns an unsubscribe function. The
// unsubscribe function is idempotent.
func (s *Signal[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs == nil {
		s.subs = make(map[int]func(T))
	}
	id := s.next
	s.next++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Emit delivers v to every current subscriber.
func (s *Signal[T]) Emit(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
