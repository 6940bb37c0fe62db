// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStore_AddRemoveHas(t *testing.T) {
	s := NewSetStore()

	assert.True(t, s.Add("/p1", "s1"))
	assert.False(t, s.Add("/p1", "s1"), "duplicate add reports no change")
	assert.True(t, s.Has("/p1", "s1"))
	assert.False(t, s.Has("/p1", "s2"))

	assert.True(t, s.Remove("/p1", "s1"))
	assert.False(t, s.Remove("/p1", "s1"), "second remove reports no change")
	assert.False(t, s.Has("/p1", "s1"))
}

func TestSetStore_EmptySetPruned(t *testing.T) {
	s := NewSetStore()

	s.Add("/p1", "s1")
	s.Add("/p2", "s2")
	require.Equal(t, []string{"/p1", "/p2"}, s.Projects())

	s.Remove("/p1", "s1")
	assert.Equal(t, []string{"/p2"}, s.Projects(), "emptied project entry is dropped")
}

func TestSetStore_ProjectIsolation(t *testing.T) {
	s := NewSetStore()

	s.Add("/p1", "s1")
	s.Add("/p1", "s2")
	s.Add("/p2", "s9")

	assert.Equal(t, []string{"s1", "s2"}, s.Snapshot("/p1"))
	assert.Equal(t, []string{"s9"}, s.Snapshot("/p2"))
	assert.False(t, s.Has("/p2", "s1"))

	s.ClearProject("/p1")
	assert.Empty(t, s.Snapshot("/p1"))
	assert.Equal(t, []string{"s9"}, s.Snapshot("/p2"), "clearing one project leaves the other intact")
}

func TestSetStore_SnapshotIsCopy(t *testing.T) {
	s := NewSetStore()
	s.Add("/p1", "s1")

	snap := s.Snapshot("/p1")
	snap[0] = "mutated"

	assert.True(t, s.Has("/p1", "s1"), "mutating a snapshot must not reach the store")
}

func TestSetStore_Subscribe(t *testing.T) {
	s := NewSetStore()

	var events []Event
	unsubscribe := s.Subscribe(func(e Event) {
		events = append(events, e)
	})

	s.Add("/p1", "s1")
	s.Add("/p1", "s1") // no change, no event
	s.Remove("/p1", "s1")

	require.Len(t, events, 2)
	assert.Equal(t, Event{Project: "/p1", ID: "s1", Added: true}, events[0])
	assert.Equal(t, Event{Project: "/p1", ID: "s1", Added: false}, events[1])

	unsubscribe()
	s.Add("/p1", "s2")
	assert.Len(t, events, 2, "no events after unsubscribe")
}

func TestSetStore_SubscriberSeesMutation(t *testing.T) {
	s := NewSetStore()

	var sawDuringCallback bool
	s.Subscribe(func(e Event) {
		// The emit happens after the swap, so a re-read from inside the
		// callback must observe the new state.
		sawDuringCallback = s.Has(e.Project, e.ID)
	})

	s.Add("/p1", "s1")
	assert.True(t, sawDuringCallback)
}

func TestSetStore_ConcurrentMutation(t *testing.T) {
	s := NewSetStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Add("/p1", "s1")
			s.Remove("/p1", "s1")
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot("/p1")
			_ = s.Has("/p1", "s1")
		}()
	}
	wg.Wait()
}

func TestListStore_PutSnapshotAppend(t *testing.T) {
	s := NewListStore[string]()

	s.Put("/p1", []string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, s.Snapshot("/p1"))

	ok := s.Append("/p1", "c", nil)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, s.Snapshot("/p1"))
}

func TestListStore_AppendKeepRejects(t *testing.T) {
	s := NewListStore[string]()
	s.Put("/p1", []string{"a"})

	ok := s.Append("/p1", "a", func(current []string) bool {
		for _, v := range current {
			if v == "a" {
				return false
			}
		}
		return true
	})

	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, s.Snapshot("/p1"))
}

func TestListStore_SnapshotIsCopy(t *testing.T) {
	s := NewListStore[string]()
	s.Put("/p1", []string{"a"})

	snap := s.Snapshot("/p1")
	snap[0] = "mutated"

	assert.Equal(t, []string{"a"}, s.Snapshot("/p1"))
}

func TestListStore_Subscribe(t *testing.T) {
	s := NewListStore[int]()

	var notified []string
	s.Subscribe(func(project string) {
		notified = append(notified, project)
	})

	s.Put("/p1", []int{1})
	s.Append("/p1", 2, nil)
	s.ClearProject("/p1")
	s.ClearProject("/p1") // already gone, no event

	assert.Equal(t, []string{"/p1", "/p1", "/p1"}, notified)
}
