// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package history persists the cross-session project history and
// optional per-project tab snapshots.
//
// Persistence sits behind the Backend capability so the same store runs
// against a JSON file or an embedded BadgerDB. Saves happen explicitly
// on the store's mutation path; there is no fire-and-forget side
// channel.
package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/CartographAI/cartograph/pkg/logging"
	"github.com/CartographAI/cartograph/services/explorer/tabs"
)

// MaxEntries caps the project history at the ten most recent projects.
const MaxEntries = 10

// Entry is one project in the history list.
type Entry struct {
	// Path is the project's local root path.
	Path string `json:"path"`

	// LastAccessed is when the project was last opened or analyzed.
	LastAccessed time.Time `json:"last_accessed"`

	// DiagramCount is the number of identified sections at last access.
	DiagramCount int `json:"diagram_count"`
}

// Backend is the persistence capability behind the Store.
type Backend interface {
	// LoadHistory returns the persisted history, most recent first.
	// A missing record is an empty list, not an error.
	LoadHistory() ([]Entry, error)

	// SaveHistory replaces the persisted history.
	SaveHistory(entries []Entry) error

	// LoadTabs returns the project's persisted tab snapshot. The bool
	// is false when no snapshot exists.
	LoadTabs(project string) (tabs.Snapshot, bool, error)

	// SaveTabs replaces the project's persisted tab snapshot.
	SaveTabs(project string, snap tabs.Snapshot) error

	// Close releases backend resources.
	Close() error
}

// Store is the project-history state with explicit persistence.
//
// # Description
//
// The in-memory list is authoritative between saves; every mutation
// writes through to the backend before returning. The list is kept
// most-recent-first and capped at MaxEntries, evicting the oldest.
//
// # Thread Safety
//
// Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	backend Backend
	entries []Entry
	log     *logging.Logger
	now     func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store's logger.
func WithStoreLogger(l *logging.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a Store and loads the persisted history.
func NewStore(backend Backend, opts ...StoreOption) (*Store, error) {
	entries, err := backend.LoadHistory()
	if err != nil {
		return nil, fmt.Errorf("loading project history: %w", err)
	}

	s := &Store{
		backend: backend,
		entries: entries,
		log:     logging.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Touch records an access to the project, moving it to the front of the
// history (or inserting it) and persisting the result.
func (s *Store) Touch(path string, diagramCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{Path: path, LastAccessed: s.now(), DiagramCount: diagramCount}

	next := make([]Entry, 0, len(s.entries)+1)
	next = append(next, entry)
	for _, e := range s.entries {
		if e.Path != path {
			next = append(next, e)
		}
	}
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}

	if err := s.backend.SaveHistory(next); err != nil {
		return fmt.Errorf("saving project history: %w", err)
	}
	s.entries = next
	return nil
}

// List returns the history, most recent first. The slice is a copy.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// SaveTabs persists the project's tab layout.
func (s *Store) SaveTabs(project string, snap tabs.Snapshot) error {
	if err := s.backend.SaveTabs(project, snap); err != nil {
		return fmt.Errorf("saving tab snapshot: %w", err)
	}
	return nil
}

// LoadTabs returns the project's persisted tab layout, if any.
func (s *Store) LoadTabs(project string) (tabs.Snapshot, bool, error) {
	snap, ok, err := s.backend.LoadTabs(project)
	if err != nil {
		return tabs.Snapshot{}, false, fmt.Errorf("loading tab snapshot: %w", err)
	}
	return snap, ok, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
