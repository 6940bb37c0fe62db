// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tabs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CartographAI/cartograph/services/explorer"
	"github.com/CartographAI/cartograph/services/explorer/cache"
	"github.com/CartographAI/cartograph/services/explorer/state"
)

const project = "/repo/demo"

func newTestManager() (*Manager, *cache.Store, *state.SetStore) {
	diagrams := cache.NewStore()
	available := state.NewSetStore()
	return NewManager(diagrams, available), diagrams, available
}

func payload(id string) explorer.DiagramPayload {
	return explorer.DiagramPayload{
		SectionID: id,
		Title:     "Title " + id,
		Diagram:   explorer.Diagram{MermaidCode: "graph " + id, IsValid: true},
	}
}

func TestManager_OpenAppendsAndActivates(t *testing.T) {
	m, diagrams, available := newTestManager()

	m.Open(project, payload("s1"))
	m.Open(project, payload("s2"))

	tabs := m.Tabs(project)
	require.Len(t, tabs, 2)
	assert.Equal(t, "s1", tabs[0].SectionID)
	assert.Equal(t, "s2", tabs[1].SectionID)
	assert.Equal(t, 1, m.ActiveIndex(project))

	// Opening also populates the cache and the available set.
	assert.True(t, diagrams.Has("s1"))
	assert.True(t, diagrams.Has("s2"))
	assert.True(t, available.Has(project, "s1"))
	assert.True(t, available.Has(project, "s2"))
}

func TestManager_OpenIsIdempotentPerSection(t *testing.T) {
	m, _, _ := newTestManager()

	m.Open(project, payload("s1"))
	m.Open(project, payload("s2"))
	m.Open(project, payload("s1")) // existing tab, just activate

	tabs := m.Tabs(project)
	require.Len(t, tabs, 2, "no duplicate tab for the same section")
	assert.Equal(t, 0, m.ActiveIndex(project), "existing tab was activated")

	active, ok := m.Active(project)
	require.True(t, ok)
	assert.Equal(t, "s1", active.SectionID)
}

func TestManager_OpenClosesInspector(t *testing.T) {
	m, _, _ := newTestManager()

	m.Open(project, payload("s1"))
	m.SelectElement(project, NodeSelection("A"))
	require.Equal(t, SelectionNode, m.SelectedElement(project).Kind)

	m.Open(project, payload("s2"))
	assert.Equal(t, SelectionNone, m.SelectedElement(project).Kind,
		"opening a tab deactivates the element detail inspector")
}

func TestManager_CloseClampsActiveIndex(t *testing.T) {
	m, _, _ := newTestManager()

	m.Open(project, payload("s1"))
	m.Open(project, payload("s2"))
	m.Open(project, payload("s3"))
	require.Equal(t, 2, m.ActiveIndex(project))

	// Close the last tab while it is active.
	m.Close(project, 2)
	assert.Equal(t, 1, m.ActiveIndex(project), "active clamps to the new last tab")

	active, ok := m.Active(project)
	require.True(t, ok)
	assert.Equal(t, "s2", active.SectionID)

	// Close everything.
	m.Close(project, 1)
	m.Close(project, 0)
	assert.Equal(t, 0, m.ActiveIndex(project), "empty list leaves index at 0, never negative")
	_, ok = m.Active(project)
	assert.False(t, ok)
}

func TestManager_CloseBeforeActiveKeepsActiveTab(t *testing.T) {
	m, _, _ := newTestManager()

	m.Open(project, payload("s1"))
	m.Open(project, payload("s2"))
	m.Open(project, payload("s3"))
	m.SwitchTo(project, 2)

	m.Close(project, 0)

	active, ok := m.Active(project)
	require.True(t, ok)
	assert.Equal(t, "s3", active.SectionID, "active tab follows its new position")
}

func TestManager_CloseLeavesCacheIntact(t *testing.T) {
	m, diagrams, _ := newTestManager()

	m.Open(project, payload("s1"))
	m.Close(project, 0)

	assert.True(t, diagrams.Has("s1"), "closing a tab must not evict the cached diagram")

	// Reopening reuses the cache without a fresh payload.
	cached, ok := diagrams.Get("s1")
	require.True(t, ok)
	m.Open(project, cached)
	assert.Len(t, m.Tabs(project), 1)
}

func TestManager_SwitchToOutOfRangeIsNoop(t *testing.T) {
	m, _, _ := newTestManager()

	m.Open(project, payload("s1"))
	m.Open(project, payload("s2"))
	m.SwitchTo(project, 0)

	m.SwitchTo(project, -1)
	m.SwitchTo(project, 5)

	assert.Equal(t, 0, m.ActiveIndex(project))
	assert.Len(t, m.Tabs(project), 2)
}

func TestManager_CloseOutOfRangeIsNoop(t *testing.T) {
	m, _, _ := newTestManager()

	m.Open(project, payload("s1"))
	m.Close(project, -1)
	m.Close(project, 3)

	assert.Len(t, m.Tabs(project), 1)
}

func TestManager_UpdatePayloadInPlace(t *testing.T) {
	m, _, _ := newTestManager()

	m.Open(project, payload("s1"))
	m.Open(project, payload("s2"))
	m.SwitchTo(project, 0)

	fixed := payload("s1")
	fixed.Diagram.MermaidCode = "graph repaired"
	m.UpdatePayload(fixed)

	active, ok := m.Active(project)
	require.True(t, ok)
	assert.Equal(t, "graph repaired", active.Diagram.MermaidCode)
	assert.Equal(t, 0, m.ActiveIndex(project), "update does not move the active pointer")
}

func TestManager_ProjectIsolation(t *testing.T) {
	m, _, _ := newTestManager()

	m.Open("/p1", payload("s1"))
	m.Open("/p2", payload("s9"))

	assert.Len(t, m.Tabs("/p1"), 1)
	assert.Len(t, m.Tabs("/p2"), 1)

	m.CloseProject("/p1")
	assert.Empty(t, m.Tabs("/p1"))
	assert.Len(t, m.Tabs("/p2"), 1)
}

func TestManager_SnapshotRestore(t *testing.T) {
	m, diagrams, _ := newTestManager()

	m.Open(project, payload("s1"))
	m.Open(project, payload("s2"))
	m.Open(project, payload("s3"))
	m.SwitchTo(project, 1)

	snap := m.Snapshot(project)
	assert.Equal(t, []string{"s1", "s2", "s3"}, snap.SectionIDs)
	assert.Equal(t, 1, snap.ActiveIndex)

	m.CloseProject(project)
	require.Empty(t, m.Tabs(project))

	m.Restore(project, snap)
	tabs := m.Tabs(project)
	require.Len(t, tabs, 3, "restore resolves ids against the cache")
	assert.Equal(t, 1, m.ActiveIndex(project))
	assert.True(t, diagrams.Has("s2"))
}

func TestManager_RestoreSkipsUncachedSections(t *testing.T) {
	m, _, _ := newTestManager()

	m.Open(project, payload("s1"))
	snap := Snapshot{SectionIDs: []string{"s1", "missing"}, ActiveIndex: 1}

	m.Restore(project, snap)

	tabs := m.Tabs(project)
	require.Len(t, tabs, 1)
	assert.Equal(t, "s1", tabs[0].SectionID)
	assert.Equal(t, 0, m.ActiveIndex(project), "active index clamps to restored list")
}

func TestManager_Subscribe(t *testing.T) {
	m, _, _ := newTestManager()

	var events int
	unsubscribe := m.Subscribe(func(string) { events++ })

	m.Open(project, payload("s1"))
	m.SwitchTo(project, 0) // already active, no event
	m.Close(project, 0)
	unsubscribe()
	m.Open(project, payload("s2"))

	assert.Equal(t, 2, events)
}
