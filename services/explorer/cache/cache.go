// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache holds resolved diagram payloads for the session.
//
// This is a look-aside cache: every read path (opening a tab, rendering
// a diagram) consults it before the remote service is called, and every
// successful remote response populates it before the UI sees the
// payload. There is no eviction; a cached payload is replaced only by an
// explicit regenerate, update, or fix action calling Set again.
package cache

import (
	"sort"
	"sync"

	"github.com/CartographAI/cartograph/services/explorer"
	"github.com/CartographAI/cartograph/services/explorer/state"
)

// Store maps a section id to its resolved diagram payload.
//
// # Description
//
// Keys are section ids, not project+section pairs: section ids are
// namespaced per repository upstream (server-issued) or carry a UUID
// (client-synthesized custom sections), so they are assumed unique
// across projects within a session.
//
// Payloads are stored and returned as deep copies. Set swaps the whole
// entry under the lock, so a concurrent Get observes either the old or
// the new payload in full, never a mix.
//
// # Thread Safety
//
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	payloads map[string]explorer.DiagramPayload
	signal   state.Signal[string]
}

// NewStore creates an empty cache.
func NewStore() *Store {
	return &Store{payloads: make(map[string]explorer.DiagramPayload)}
}

// Get returns a copy of the payload for sectionID, if present.
func (s *Store) Get(sectionID string) (explorer.DiagramPayload, bool) {
	s.mu.RLock()
	payload, ok := s.payloads[sectionID]
	s.mu.RUnlock()

	if !ok {
		return explorer.DiagramPayload{}, false
	}
	return payload.Clone(), true
}

// Has reports whether sectionID has a cached payload.
func (s *Store) Has(sectionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.payloads[sectionID]
	return ok
}

// Set stores the payload under its section id, unconditionally
// overwriting any previous entry. Subscribers are notified with the
// section id after the swap.
func (s *Store) Set(payload explorer.DiagramPayload) {
	clone := payload.Clone()
	s.mu.Lock()
	s.payloads[clone.SectionID] = clone
	s.mu.Unlock()

	s.signal.Emit(clone.SectionID)
}

// Len returns the number of cached payloads.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payloads)
}

// SectionIDs returns the cached section ids, sorted.
func (s *Store) SectionIDs() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.payloads))
	for k := range s.payloads {
		out = append(out, k)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Subscribe registers a callback invoked with the section id after
// every Set. Returns an unsubscribe function.
func (s *Store) Subscribe(fn func(sectionID string)) func() {
	return s.signal.Subscribe(fn)
}
