// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CartographAI/cartograph/services/explorer"
	"github.com/CartographAI/cartograph/services/explorer/coordinate"
	"github.com/CartographAI/cartograph/services/explorer/history"
	"github.com/CartographAI/cartograph/services/explorer/remote"
	"github.com/CartographAI/cartograph/services/explorer/retry"
)

const project = "/repo/demo"

type fakeRemote struct {
	sections []explorer.Section
	stream   []remote.StreamEvent
	result   *remote.StreamResult
	modified explorer.DiagramPayload

	modifyCalls []remote.ModifyRequest
}

func (f *fakeRemote) Health(context.Context) error                { return nil }
func (f *fakeRemote) EnsureIndexed(context.Context, string) error { return nil }

func (f *fakeRemote) IdentifySections(context.Context, string, string) ([]explorer.Section, error) {
	return f.sections, nil
}

func (f *fakeRemote) GenerateSectionDiagram(_ context.Context, req remote.GenerateRequest) (explorer.DiagramPayload, error) {
	return explorer.DiagramPayload{
		SectionID: req.Section.ID,
		Title:     req.Section.Title,
		Diagram:   explorer.Diagram{MermaidCode: "flowchart " + req.Section.ID, IsValid: true},
	}, nil
}

func (f *fakeRemote) FixCorruptedDiagram(_ context.Context, req remote.FixRequest) (explorer.DiagramPayload, error) {
	return explorer.DiagramPayload{SectionID: req.Section.ID}, nil
}

func (f *fakeRemote) ModifyOrCreateDiagram(_ context.Context, req remote.ModifyRequest) (explorer.DiagramPayload, error) {
	f.modifyCalls = append(f.modifyCalls, req)
	return f.modified, nil
}

func (f *fakeRemote) GetReferences(context.Context, string, string) ([]explorer.Reference, error) {
	return []explorer.Reference{{File: "main.go", Relevance: "entry point"}}, nil
}

func (f *fakeRemote) QueryStream(_ context.Context, _ remote.QueryRequest, onEvent func(remote.StreamEvent)) (*remote.StreamResult, error) {
	for _, ev := range f.stream {
		if onEvent != nil {
			onEvent(ev)
		}
	}
	if f.result == nil {
		return &remote.StreamResult{}, nil
	}
	return f.result, nil
}

func newSession(t *testing.T, svc remote.Service) *Session {
	backend, err := history.NewFileBackend(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	hist, err := history.NewStore(backend)
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	instant := retry.NewPolicy(retry.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	return New(svc, hist, WithCoordinatorOptions(coordinate.WithPolicy(instant)))
}

func TestSession_OpenProjectRecordsHistory(t *testing.T) {
	svc := &fakeRemote{sections: []explorer.Section{
		{ID: "s1", Title: "Flow"},
		{ID: "s2", Title: "Auth"},
	}}
	s := newSession(t, svc)

	sections, err := s.OpenProject(context.Background(), project)
	require.NoError(t, err)
	assert.Len(t, sections, 2)
	assert.Equal(t, project, s.CurrentProject())

	entries := s.History().List()
	require.Len(t, entries, 1)
	assert.Equal(t, project, entries[0].Path)
	assert.Equal(t, 2, entries[0].DiagramCount)

	// Batch generation ran and opened the first section.
	assert.True(t, s.Diagrams().Has("s1"))
	active, ok := s.Tabs().Active(project)
	require.True(t, ok)
	assert.Equal(t, "s1", active.SectionID)
}

func TestSession_CloseProjectKeepsCacheAndSavesTabs(t *testing.T) {
	svc := &fakeRemote{sections: []explorer.Section{{ID: "s1"}, {ID: "s2"}}}
	s := newSession(t, svc)

	_, err := s.OpenProject(context.Background(), project)
	require.NoError(t, err)

	p2, _ := s.Diagrams().Get("s2")
	s.Tabs().Open(project, p2)
	require.Len(t, s.Tabs().Tabs(project), 2)

	s.CloseProject(project)
	assert.Empty(t, s.Tabs().Tabs(project))
	assert.Empty(t, s.CurrentProject())
	assert.True(t, s.Diagrams().Has("s1"), "cache survives project close")

	// Reopening restores the saved tab layout from the cache.
	_, err = s.OpenProject(context.Background(), project)
	require.NoError(t, err)
	tabsOpen := s.Tabs().Tabs(project)
	require.Len(t, tabsOpen, 2)
	assert.Equal(t, "s1", tabsOpen[0].SectionID)
	assert.Equal(t, "s2", tabsOpen[1].SectionID)
}

func TestSession_AskPlainAnswer(t *testing.T) {
	svc := &fakeRemote{
		stream: []remote.StreamEvent{
			{Type: remote.EventToken, Content: "answer text"},
			{Type: remote.EventDone},
		},
		result: &remote.StreamResult{Answer: "answer text"},
	}
	s := newSession(t, svc)

	var tokens int
	result, err := s.Ask(context.Background(), project, "what does this do?", func(ev remote.StreamEvent) {
		if ev.Type == remote.EventToken {
			tokens++
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "answer text", result.Answer)
	assert.Equal(t, 1, tokens)
	assert.Empty(t, svc.modifyCalls, "plain answers trigger no diagram operation")
}

func TestSession_AskActionPlanCreatesDiagram(t *testing.T) {
	svc := &fakeRemote{
		result: &remote.StreamResult{Action: &remote.ActionPlan{
			Kind:        "create",
			TargetName:  "Deploy Pipeline",
			Instruction: "diagram the deploy pipeline",
		}},
		modified: explorer.DiagramPayload{
			SectionID: "custom_xyz",
			Title:     "Deploy Pipeline",
			Diagram:   explorer.Diagram{MermaidCode: "graph LR", IsValid: true},
		},
	}
	s := newSession(t, svc)

	result, err := s.Ask(context.Background(), project, "diagram the deploy pipeline", nil)
	require.NoError(t, err)
	require.NotNil(t, result.Action)

	require.Len(t, svc.modifyCalls, 1)
	assert.True(t, svc.modifyCalls[0].CreateNew)

	assert.True(t, s.Diagrams().Has("custom_xyz"))
	active, ok := s.Tabs().Active(project)
	require.True(t, ok)
	assert.Equal(t, "custom_xyz", active.SectionID)

	sections := s.Coordinator().Sections().Snapshot(project)
	require.Len(t, sections, 1)
	assert.Equal(t, "custom_xyz", sections[0].ID)
}

func TestSession_RenderOutcomeFlow(t *testing.T) {
	s := newSession(t, &fakeRemote{})

	s.RecordRender("s1", errors.New("bad markup"))
	assert.True(t, s.Corruption().IsCorrupted("s1"))

	s.RecordRender("s1", nil)
	assert.False(t, s.Corruption().IsCorrupted("s1"))
}

func TestSession_References(t *testing.T) {
	s := newSession(t, &fakeRemote{})

	refs, err := s.References(context.Background(), project, "s1")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "main.go", refs[0].File)
}

func TestSession_CurrentProjectSubscription(t *testing.T) {
	svc := &fakeRemote{sections: []explorer.Section{{ID: "s1"}}}
	s := newSession(t, svc)

	var seen []string
	s.SubscribeCurrentProject(func(p string) { seen = append(seen, p) })

	_, err := s.OpenProject(context.Background(), project)
	require.NoError(t, err)
	s.CloseProject(project)

	assert.Equal(t, []string{project, ""}, seen)
}
