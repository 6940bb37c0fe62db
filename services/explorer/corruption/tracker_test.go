// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package corruption

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_MarkClearIs(t *testing.T) {
	tr := NewTracker()

	assert.False(t, tr.IsCorrupted("s1"))

	tr.MarkCorrupted("s1", "parse error at line 3")
	assert.True(t, tr.IsCorrupted("s1"))

	msg, ok := tr.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "parse error at line 3", msg)

	tr.Clear("s1")
	assert.False(t, tr.IsCorrupted("s1"))
	_, ok = tr.Get("s1")
	assert.False(t, ok)
}

func TestTracker_LaterMarkOverwrites(t *testing.T) {
	tr := NewTracker()

	tr.MarkCorrupted("s1", "first error")
	tr.MarkCorrupted("s1", "second error")

	msg, ok := tr.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "second error", msg, "one message per section, latest wins")
	assert.Equal(t, []string{"s1"}, tr.SectionIDs())
}

func TestTracker_RecordRender(t *testing.T) {
	tr := NewTracker()

	tr.MarkCorrupted("s1", "old render failure")

	// Successful re-render clears the record.
	tr.RecordRender("s1", nil)
	assert.False(t, tr.IsCorrupted("s1"))

	// Failed render marks it again.
	tr.RecordRender("s1", errors.New("unknown node shape"))
	assert.True(t, tr.IsCorrupted("s1"))
	msg, _ := tr.Get("s1")
	assert.Equal(t, "unknown node shape", msg)
}

func TestTracker_Subscribe(t *testing.T) {
	tr := NewTracker()

	var seen []string
	tr.Subscribe(func(id string) {
		seen = append(seen, id)
	})

	tr.MarkCorrupted("s1", "err")
	tr.Clear("s1")
	tr.Clear("s1") // already clear, no event

	assert.Equal(t, []string{"s1", "s1"}, seen)
}
