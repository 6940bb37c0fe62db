// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package corruption records sections whose generated diagram failed to
// render client-side.
//
// Corruption is orthogonal to generation failure: a payload can be
// generated successfully and still fail to render. The rendering layer
// consults the tracker before a render attempt (to short-circuit to the
// error-explanation view) and reports every outcome through
// RecordRender. The fix flow clears a record only after the backend
// returns a repaired payload.
package corruption

import (
	"sort"
	"sync"

	"github.com/CartographAI/cartograph/services/explorer/state"
)

// Tracker maps a section id to its most recent rendering error.
//
// # Description
//
// Exactly one message is kept per corrupted section: a later
// MarkCorrupted overwrites rather than accumulates. Records are not
// implicitly carried across payload replacement; callers must re-render
// and report the outcome, which clears or refreshes the record.
//
// # Thread Safety
//
// Safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	errors map[string]string
	signal state.Signal[string]
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{errors: make(map[string]string)}
}

// MarkCorrupted records message as the section's rendering error,
// replacing any previous message.
func (t *Tracker) MarkCorrupted(sectionID, message string) {
	t.mu.Lock()
	t.errors[sectionID] = message
	t.mu.Unlock()

	t.signal.Emit(sectionID)
}

// Clear removes the section's record, if any.
func (t *Tracker) Clear(sectionID string) {
	t.mu.Lock()
	_, ok := t.errors[sectionID]
	delete(t.errors, sectionID)
	t.mu.Unlock()

	if ok {
		t.signal.Emit(sectionID)
	}
}

// IsCorrupted reports whether the section's last render attempt failed.
func (t *Tracker) IsCorrupted(sectionID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.errors[sectionID]
	return ok
}

// Get returns the section's last rendering error message.
func (t *Tracker) Get(sectionID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	msg, ok := t.errors[sectionID]
	return msg, ok
}

// RecordRender reports a render outcome: success clears the record,
// failure marks the section with the error message.
func (t *Tracker) RecordRender(sectionID string, renderErr error) {
	if renderErr == nil {
		t.Clear(sectionID)
		return
	}
	t.MarkCorrupted(sectionID, renderErr.Error())
}

// SectionIDs returns the currently corrupted section ids, sorted.
func (t *Tracker) SectionIDs() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.errors))
	for k := range t.errors {
		out = append(out, k)
	}
	t.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Subscribe registers a callback invoked with the section id whenever a
// record is added, replaced, or cleared.
func (t *Tracker) Subscribe(fn func(sectionID string)) func() {
	return t.signal.Subscribe(fn)
}
