// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tabs owns the ordered list of open diagram tabs per project
// and the active-tab pointer.
//
// Tab lifecycle is independent from generation lifecycle: closing a tab
// leaves the diagram cached, and reopening reuses the cache. The active
// diagram is a pure function of (open tabs, active index); there is no
// separately stored "current diagram".
package tabs

import (
	"sync"

	"github.com/CartographAI/cartograph/services/explorer"
	"github.com/CartographAI/cartograph/services/explorer/cache"
	"github.com/CartographAI/cartograph/services/explorer/state"
)

// SelectionKind discriminates the selected-element union.
type SelectionKind int

const (
	// SelectionNone means no element is selected and the detail
	// inspector is closed.
	SelectionNone SelectionKind = iota

	// SelectionNode means a diagram node is selected.
	SelectionNode

	// SelectionEdge means a diagram edge is selected.
	SelectionEdge
)

// Selection is the tagged selected-element variant for the detail
// inspector. The zero value is "nothing selected".
type Selection struct {
	Kind SelectionKind

	// ID is the node id or edge key, depending on Kind. Empty for
	// SelectionNone.
	ID string
}

// NodeSelection selects a diagram node.
func NodeSelection(nodeID string) Selection {
	return Selection{Kind: SelectionNode, ID: nodeID}
}

// EdgeSelection selects a diagram edge by its edge key.
func EdgeSelection(edgeKey string) Selection {
	return Selection{Kind: SelectionEdge, ID: edgeKey}
}

// Snapshot captures a project's tab layout for persistence. Payloads
// are not included; restore resolves section ids against the cache.
type Snapshot struct {
	SectionIDs  []string `json:"section_ids"`
	ActiveIndex int      `json:"active_index"`
}

// projectTabs is the per-project tab state. Mutated only under the
// Manager lock, always by full-slice replacement.
type projectTabs struct {
	open      []explorer.DiagramPayload
	active    int
	selection Selection
}

// Manager owns open diagram tabs for all projects in the session.
//
// # Description
//
// Opening a payload whose section already has a tab activates the
// existing tab instead of duplicating it. Opening also ensures the
// payload is present in the diagram cache and recorded in the
// available set, and closes the element detail inspector (selection is
// tab-scoped). Closing clamps the active index so it is never negative
// or out of bounds.
//
// # Thread Safety
//
// Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	projects map[string]*projectTabs

	cache     *cache.Store
	available *state.SetStore
	signal    state.Signal[string]
}

// NewManager creates a Manager backed by the given cache and available
// set. Both may be shared with the generation coordinator.
func NewManager(diagrams *cache.Store, available *state.SetStore) *Manager {
	return &Manager{
		projects:  make(map[string]*projectTabs),
		cache:     diagrams,
		available: available,
	}
}

func (m *Manager) tabsFor(project string) *projectTabs {
	pt, ok := m.projects[project]
	if !ok {
		pt = &projectTabs{}
		m.projects[project] = pt
	}
	return pt
}

// Open opens (or re-activates) a tab for the payload's section.
//
// # Description
//
// If a tab for the section id exists it is activated; otherwise the
// payload is appended and the new last index activated. Either way the
// payload is written to the diagram cache (idempotent overwrite), the
// section is marked available for the project, and the detail inspector
// is closed.
func (m *Manager) Open(project string, payload explorer.DiagramPayload) {
	m.cache.Set(payload)
	m.available.Add(project, payload.SectionID)

	m.mu.Lock()
	pt := m.tabsFor(project)
	pt.selection = Selection{}

	activated := false
	for i, tab := range pt.open {
		if tab.SectionID == payload.SectionID {
			pt.active = i
			activated = true
			break
		}
	}
	if !activated {
		next := make([]explorer.DiagramPayload, 0, len(pt.open)+1)
		next = append(next, pt.open...)
		next = append(next, payload.Clone())
		pt.open = next
		pt.active = len(next) - 1
	}
	m.mu.Unlock()

	m.signal.Emit(project)
}

// Close removes the tab at index. Out-of-range indices are a no-op.
// The active index is clamped to the new last tab (or 0 when the list
// becomes empty), never negative or past the end.
func (m *Manager) Close(project string, index int) {
	m.mu.Lock()
	pt, ok := m.projects[project]
	if !ok || index < 0 || index >= len(pt.open) {
		m.mu.Unlock()
		return
	}

	next := make([]explorer.DiagramPayload, 0, len(pt.open)-1)
	next = append(next, pt.open[:index]...)
	next = append(next, pt.open[index+1:]...)
	pt.open = next

	if pt.active >= index {
		pt.active--
	}
	if pt.active < 0 {
		pt.active = 0
	}
	if pt.active >= len(pt.open) && len(pt.open) > 0 {
		pt.active = len(pt.open) - 1
	}
	m.mu.Unlock()

	m.signal.Emit(project)
}

// SwitchTo activates the tab at index. Out-of-range indices are a
// strict no-op; state is never corrupted by a bad index.
func (m *Manager) SwitchTo(project string, index int) {
	m.mu.Lock()
	pt, ok := m.projects[project]
	if !ok || index < 0 || index >= len(pt.open) {
		m.mu.Unlock()
		return
	}
	changed := pt.active != index
	pt.active = index
	m.mu.Unlock()

	if changed {
		m.signal.Emit(project)
	}
}

// Active derives the active diagram from (open tabs, active index).
// Returns false when the project has no open tabs.
func (m *Manager) Active(project string) (explorer.DiagramPayload, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pt, ok := m.projects[project]
	if !ok || len(pt.open) == 0 {
		return explorer.DiagramPayload{}, false
	}
	return pt.open[pt.active].Clone(), true
}

// ActiveIndex returns the current active index (0 when no tabs).
func (m *Manager) ActiveIndex(project string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if pt, ok := m.projects[project]; ok {
		return pt.active
	}
	return 0
}

// Tabs returns copies of the project's open tabs, in order.
func (m *Manager) Tabs(project string) []explorer.DiagramPayload {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pt, ok := m.projects[project]
	if !ok {
		return nil
	}
	out := make([]explorer.DiagramPayload, len(pt.open))
	for i, tab := range pt.open {
		out[i] = tab.Clone()
	}
	return out
}

// SelectElement records the selected node/edge for the project's detail
// inspector. A zero Selection closes the inspector.
func (m *Manager) SelectElement(project string, sel Selection) {
	m.mu.Lock()
	pt := m.tabsFor(project)
	pt.selection = sel
	m.mu.Unlock()

	m.signal.Emit(project)
}

// SelectedElement returns the project's current selection.
func (m *Manager) SelectedElement(project string) Selection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if pt, ok := m.projects[project]; ok {
		return pt.selection
	}
	return Selection{}
}

// UpdatePayload replaces the payload of every open tab showing the
// section, across all projects. Used by the fix flow so a repaired
// diagram appears in place without reopening the tab.
func (m *Manager) UpdatePayload(payload explorer.DiagramPayload) {
	var touched []string

	m.mu.Lock()
	for project, pt := range m.projects {
		for i, tab := range pt.open {
			if tab.SectionID != payload.SectionID {
				continue
			}
			next := make([]explorer.DiagramPayload, len(pt.open))
			copy(next, pt.open)
			next[i] = payload.Clone()
			pt.open = next
			touched = append(touched, project)
		}
	}
	m.mu.Unlock()

	for _, project := range touched {
		m.signal.Emit(project)
	}
}

// CloseProject drops all tab state for the project.
func (m *Manager) CloseProject(project string) {
	m.mu.Lock()
	_, ok := m.projects[project]
	delete(m.projects, project)
	m.mu.Unlock()

	if ok {
		m.signal.Emit(project)
	}
}

// Snapshot captures the project's tab layout (section ids + active
// index) for persistence.
func (m *Manager) Snapshot(project string) Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pt, ok := m.projects[project]
	if !ok {
		return Snapshot{}
	}
	ids := make([]string, len(pt.open))
	for i, tab := range pt.open {
		ids[i] = tab.SectionID
	}
	return Snapshot{SectionIDs: ids, ActiveIndex: pt.active}
}

// Restore rebuilds the project's tabs from a snapshot, resolving each
// section id against the diagram cache. Ids with no cached payload are
// skipped; the active index is clamped to the restored list.
func (m *Manager) Restore(project string, snap Snapshot) {
	var open []explorer.DiagramPayload
	for _, id := range snap.SectionIDs {
		if payload, ok := m.cache.Get(id); ok {
			open = append(open, payload)
		}
	}

	active := snap.ActiveIndex
	if active >= len(open) {
		active = len(open) - 1
	}
	if active < 0 {
		active = 0
	}

	m.mu.Lock()
	m.projects[project] = &projectTabs{open: open, active: active}
	m.mu.Unlock()

	m.signal.Emit(project)
}

// Subscribe registers a callback invoked with the project key after
// every tab mutation.
func (m *Manager) Subscribe(fn func(project string)) func() {
	return m.signal.Subscribe(fn)
}
