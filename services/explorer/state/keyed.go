// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package state provides project-keyed state containers for the diagram
// explorer.
//
// Every stateful component of the client (sections requested, sections
// available, sections failed, identified-section registries) keeps its
// per-project collections in one of these stores. Mutations follow a
// copy-and-replace discipline: the per-project collection is rebuilt and
// swapped under the lock, and reads hand out copies, so a reader never
// observes a partially updated collection. Each mutation re-reads
// current state inside the critical section before computing the next
// state, which is what makes read-modify-write transitions safe even
// when callers interleave around I/O.
package state

import (
	"sort"
	"sync"
)

// Event describes a store mutation delivered to subscribers.
type Event struct {
	// Project is the project key the mutation applied to.
	Project string

	// ID is the member that was added or removed. Empty for
	// project-level operations (ClearProject).
	ID string

	// Added is true for additions, false for removals.
	Added bool
}

// SetStore is an associative container mapping a project identifier to a
// set of section ids.
//
// # Description
//
// Membership mutations return whether they changed anything, so callers
// can implement check-and-act transitions ("remove from failed, then
// retry") atomically with respect to other mutators. When a removal
// empties a project's set the whole project entry is dropped, keeping
// the store from accumulating empty sets.
//
// # Thread Safety
//
// Safe for concurrent use.
type SetStore struct {
	mu     sync.RWMutex
	sets   map[string]map[string]struct{}
	signal Signal[Event]
}

// NewSetStore creates an empty SetStore.
func NewSetStore() *SetStore {
	return &SetStore{sets: make(map[string]map[string]struct{})}
}

// Add inserts id into the project's set. Returns false if it was
// already present.
func (s *SetStore) Add(project, id string) bool {
	s.mu.Lock()
	current := s.sets[project]
	if _, ok := current[id]; ok {
		s.mu.Unlock()
		return false
	}
	next := make(map[string]struct{}, len(current)+1)
	for k := range current {
		next[k] = struct{}{}
	}
	next[id] = struct{}{}
	s.sets[project] = next
	s.mu.Unlock()

	s.signal.Emit(Event{Project: project, ID: id, Added: true})
	return true
}

// Remove deletes id from the project's set. Returns false if it was not
// present. Removing the last member drops the project entry entirely.
func (s *SetStore) Remove(project, id string) bool {
	s.mu.Lock()
	current, ok := s.sets[project]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if _, ok := current[id]; !ok {
		s.mu.Unlock()
		return false
	}
	if len(current) == 1 {
		delete(s.sets, project)
	} else {
		next := make(map[string]struct{}, len(current)-1)
		for k := range current {
			if k != id {
				next[k] = struct{}{}
			}
		}
		s.sets[project] = next
	}
	s.mu.Unlock()

	s.signal.Emit(Event{Project: project, ID: id, Added: false})
	return true
}

// Has reports whether id is in the project's set.
func (s *SetStore) Has(project, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[project][id]
	return ok
}

// Snapshot returns the project's members, sorted. The slice is a copy.
func (s *SetStore) Snapshot(project string) []string {
	s.mu.RLock()
	current := s.sets[project]
	out := make([]string, 0, len(current))
	for k := range current {
		out = append(out, k)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Len returns the size of the project's set.
func (s *SetStore) Len(project string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets[project])
}

// Projects returns the project keys that currently have members, sorted.
func (s *SetStore) Projects() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.sets))
	for k := range s.sets {
		out = append(out, k)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

// ClearProject drops the project's entire set.
func (s *SetStore) ClearProject(project string) {
	s.mu.Lock()
	_, ok := s.sets[project]
	delete(s.sets, project)
	s.mu.Unlock()

	if ok {
		s.signal.Emit(Event{Project: project})
	}
}

// Subscribe registers a callback for every mutation. Returns an
// unsubscribe function.
func (s *SetStore) Subscribe(fn func(Event)) func() {
	return s.signal.Subscribe(fn)
}

// ListStore is an associative container mapping a project identifier to
// an ordered list of values.
//
// # Description
//
// Used for per-project identified-section registries, where order is
// meaningful (the batch generates sections in identification order).
// Same copy-and-replace discipline as SetStore.
//
// # Thread Safety
//
// Safe for concurrent use.
type ListStore[T any] struct {
	mu     sync.RWMutex
	lists  map[string][]T
	signal Signal[string]
}

// NewListStore creates an empty ListStore.
func NewListStore[T any]() *ListStore[T] {
	return &ListStore[T]{lists: make(map[string][]T)}
}

// Put replaces the project's list wholesale.
func (s *ListStore[T]) Put(project string, values []T) {
	next := append([]T(nil), values...)
	s.mu.Lock()
	s.lists[project] = next
	s.mu.Unlock()

	s.signal.Emit(project)
}

// Append adds value to the end of the project's list unless keep
// rejects it. keep receives the current list and may return false to
// skip the append (e.g. a duplicate id check); it runs inside the
// critical section so the decision and the append are atomic.
func (s *ListStore[T]) Append(project string, value T, keep func(current []T) bool) bool {
	s.mu.Lock()
	current := s.lists[project]
	if keep != nil && !keep(current) {
		s.mu.Unlock()
		return false
	}
	next := make([]T, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, value)
	s.lists[project] = next
	s.mu.Unlock()

	s.signal.Emit(project)
	return true
}

// Snapshot returns a copy of the project's list.
func (s *ListStore[T]) Snapshot(project string) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.lists[project]...)
}

// ClearProject drops the project's list.
func (s *ListStore[T]) ClearProject(project string) {
	s.mu.Lock()
	_, ok := s.lists[project]
	delete(s.lists, project)
	s.mu.Unlock()

	if ok {
		s.signal.Emit(project)
	}
}

// Subscribe registers a callback invoked with the project key after
// every mutation.
func (s *ListStore[T]) Subscribe(fn func(project string)) func() {
	return s.signal.Subscribe(fn)
}
