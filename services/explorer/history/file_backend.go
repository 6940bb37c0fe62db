// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/CartographAI/cartograph/services/explorer/tabs"
)

// fileState is the on-disk shape of the JSON backend.
type fileState struct {
	History []Entry                  `json:"history"`
	Tabs    map[string]tabs.Snapshot `json:"tabs,omitempty"`
}

// FileBackend persists history and tab snapshots in a single JSON file.
//
// Writes go through a temp file and rename, so a crash mid-save never
// leaves a truncated state file behind.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend creates a FileBackend at path. The parent directory is
// created if missing; the file itself is created on first save.
func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &FileBackend{path: path}, nil
}

func (b *FileBackend) load() (fileState, error) {
	var st fileState
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("reading %s: %w", b.path, err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parsing %s: %w", b.path, err)
	}
	return st, nil
}

func (b *FileBackend) save(st fileState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replacing %s: %w", b.path, err)
	}
	return nil
}

// LoadHistory implements Backend.
func (b *FileBackend) LoadHistory() ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, err := b.load()
	if err != nil {
		return nil, err
	}
	return st.History, nil
}

// SaveHistory implements Backend.
func (b *FileBackend) SaveHistory(entries []Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, err := b.load()
	if err != nil {
		return err
	}
	st.History = entries
	return b.save(st)
}

// LoadTabs implements Backend.
func (b *FileBackend) LoadTabs(project string) (tabs.Snapshot, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, err := b.load()
	if err != nil {
		return tabs.Snapshot{}, false, err
	}
	snap, ok := st.Tabs[project]
	return snap, ok, nil
}

// SaveTabs implements Backend.
func (b *FileBackend) SaveTabs(project string, snap tabs.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, err := b.load()
	if err != nil {
		return err
	}
	if st.Tabs == nil {
		st.Tabs = make(map[string]tabs.Snapshot)
	}
	st.Tabs[project] = snap
	return b.save(st)
}

// Close implements Backend. The file backend holds no open resources.
func (b *FileBackend) Close() error { return nil }
