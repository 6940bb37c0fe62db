// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CartographAI/cartograph/services/explorer/tabs"
)

// backends under test, each constructed fresh per subtest.
func testBackends(t *testing.T) map[string]func(t *testing.T) Backend {
	return map[string]func(t *testing.T) Backend{
		"file": func(t *testing.T) Backend {
			b, err := NewFileBackend(filepath.Join(t.TempDir(), "state.json"))
			require.NoError(t, err)
			return b
		},
		"badger": func(t *testing.T) Backend {
			b, err := NewBadgerBackend(InMemoryBadgerConfig())
			require.NoError(t, err)
			return b
		},
	}
}

func TestStore_TouchOrdersMostRecentFirst(t *testing.T) {
	for name, newBackend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			backend := newBackend(t)
			defer backend.Close()

			now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
			s, err := NewStore(backend, WithClock(func() time.Time { return now }))
			require.NoError(t, err)

			require.NoError(t, s.Touch("/repo/a", 3))
			require.NoError(t, s.Touch("/repo/b", 5))
			require.NoError(t, s.Touch("/repo/a", 4)) // re-access moves to front

			entries := s.List()
			require.Len(t, entries, 2, "re-touch deduplicates by path")
			assert.Equal(t, "/repo/a", entries[0].Path)
			assert.Equal(t, 4, entries[0].DiagramCount, "count updated on re-touch")
			assert.Equal(t, "/repo/b", entries[1].Path)
		})
	}
}

func TestStore_CapEvictsOldest(t *testing.T) {
	for name, newBackend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			backend := newBackend(t)
			defer backend.Close()

			s, err := NewStore(backend)
			require.NoError(t, err)

			for i := 0; i < MaxEntries+3; i++ {
				require.NoError(t, s.Touch(fmt.Sprintf("/repo/p%02d", i), i))
			}

			entries := s.List()
			require.Len(t, entries, MaxEntries)
			assert.Equal(t, "/repo/p12", entries[0].Path, "newest first")
			assert.Equal(t, "/repo/p03", entries[MaxEntries-1].Path, "oldest surviving entry")
		})
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	backend, err := NewFileBackend(path)
	require.NoError(t, err)

	s, err := NewStore(backend)
	require.NoError(t, err)
	require.NoError(t, s.Touch("/repo/a", 7))
	require.NoError(t, s.Close())

	reopened, err := NewFileBackend(path)
	require.NoError(t, err)
	s2, err := NewStore(reopened)
	require.NoError(t, err)
	defer s2.Close()

	entries := s2.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "/repo/a", entries[0].Path)
	assert.Equal(t, 7, entries[0].DiagramCount)
}

func TestStore_BadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultBadgerConfig(filepath.Join(dir, "db"))
	cfg.SyncWrites = false

	backend, err := NewBadgerBackend(cfg)
	require.NoError(t, err)
	s, err := NewStore(backend)
	require.NoError(t, err)
	require.NoError(t, s.Touch("/repo/a", 2))
	require.NoError(t, s.Close())

	backend2, err := NewBadgerBackend(cfg)
	require.NoError(t, err)
	s2, err := NewStore(backend2)
	require.NoError(t, err)
	defer s2.Close()

	entries := s2.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "/repo/a", entries[0].Path)
}

func TestStore_TabSnapshotRoundTrip(t *testing.T) {
	for name, newBackend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			backend := newBackend(t)
			defer backend.Close()

			s, err := NewStore(backend)
			require.NoError(t, err)

			_, ok, err := s.LoadTabs("/repo/a")
			require.NoError(t, err)
			assert.False(t, ok, "no snapshot before first save")

			snap := tabs.Snapshot{SectionIDs: []string{"s1", "s2"}, ActiveIndex: 1}
			require.NoError(t, s.SaveTabs("/repo/a", snap))

			got, ok, err := s.LoadTabs("/repo/a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, snap, got)

			// Per-project isolation.
			_, ok, err = s.LoadTabs("/repo/b")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestFileBackend_CorruptFileSurfacesError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	backend, err := NewFileBackend(path)
	require.NoError(t, err)

	_, err = backend.LoadHistory()
	assert.Error(t, err)
}
