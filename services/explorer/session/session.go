// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session wires the explorer's stores, coordinator, tab
// manager, and history into one object the presentation layer drives.
//
// Presentation components mutate state only through the operations
// here (and the components they expose); everything else is read-only
// access plus subscriptions.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/CartographAI/cartograph/pkg/logging"
	"github.com/CartographAI/cartograph/services/explorer"
	"github.com/CartographAI/cartograph/services/explorer/cache"
	"github.com/CartographAI/cartograph/services/explorer/coordinate"
	"github.com/CartographAI/cartograph/services/explorer/corruption"
	"github.com/CartographAI/cartograph/services/explorer/history"
	"github.com/CartographAI/cartograph/services/explorer/remote"
	"github.com/CartographAI/cartograph/services/explorer/state"
	"github.com/CartographAI/cartograph/services/explorer/tabs"
)

// Session is one run of the explorer across any number of projects.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying stores carry their own locks.
type Session struct {
	remote      remote.Service
	diagrams    *cache.Store
	available   *state.SetStore
	tabs        *tabs.Manager
	corruption  *corruption.Tracker
	coordinator *coordinate.Coordinator
	history     *history.Store
	log         *logging.Logger
	language    string

	current currentProject
}

// Option configures a Session.
type Option func(*options)

type options struct {
	log         *logging.Logger
	language    string
	coordinator []coordinate.Option
}

// WithLogger sets the session logger, propagated to the coordinator.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithLanguage sets the target language for queries and generation.
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(o *options) {
		if lang != "" {
			o.language = lang
		}
	}
}

// WithCoordinatorOptions forwards options to the coordinator.
func WithCoordinatorOptions(opts ...coordinate.Option) Option {
	return func(o *options) {
		o.coordinator = append(o.coordinator, opts...)
	}
}

// New builds a Session around the remote service and history store.
func New(svc remote.Service, hist *history.Store, opts ...Option) *Session {
	o := &options{log: logging.Default(), language: "en"}
	for _, opt := range opts {
		opt(o)
	}

	diagrams := cache.NewStore()
	available := state.NewSetStore()
	tabMgr := tabs.NewManager(diagrams, available)
	tracker := corruption.NewTracker()

	coordOpts := append([]coordinate.Option{
		coordinate.WithLogger(o.log),
		coordinate.WithLanguage(o.language),
	}, o.coordinator...)
	coord := coordinate.New(svc, diagrams, available, tabMgr, tracker, coordOpts...)

	return &Session{
		remote:      svc,
		diagrams:    diagrams,
		available:   available,
		tabs:        tabMgr,
		corruption:  tracker,
		coordinator: coord,
		history:     hist,
		log:         o.log,
		language:    o.language,
	}
}

// Component accessors. Presentation subscribes through these; mutation
// goes through the operations below or the components' own operations.

func (s *Session) Diagrams() *cache.Store { return s.diagrams }

func (s *Session) Tabs() *tabs.Manager { return s.tabs }

func (s *Session) Corruption() *corruption.Tracker { return s.corruption }

func (s *Session) Coordinator() *coordinate.Coordinator { return s.coordinator }

func (s *Session) History() *history.Store { return s.history }

func (s *Session) Remote() remote.Service { return s.remote }

// OpenProject analyzes a project and makes it current.
//
// # Description
//
// Runs the full identify-then-generate flow, records the project in
// the durable history, and restores the project's persisted tab layout
// when one exists (cached sections only; the restore never triggers
// generation). History and tab-restore failures are logged, not
// propagated; the analysis result stands on its own.
func (s *Session) OpenProject(ctx context.Context, project string) ([]explorer.Section, error) {
	sections, err := s.coordinator.AnalyzeProject(ctx, project)
	if err != nil {
		return nil, err
	}
	s.current.set(project)

	if err := s.history.Touch(project, len(sections)); err != nil {
		s.log.Warn("recording project history failed",
			"project", project, "error", err.Error())
	}
	if snap, ok, err := s.history.LoadTabs(project); err != nil {
		s.log.Warn("loading tab snapshot failed",
			"project", project, "error", err.Error())
	} else if ok && len(snap.SectionIDs) > 0 {
		s.tabs.Restore(project, snap)
	}

	return sections, nil
}

// CloseProject persists the project's tab layout and drops its session
// state. The diagram cache survives, so reopening reuses cached
// payloads.
func (s *Session) CloseProject(project string) {
	if snap := s.tabs.Snapshot(project); len(snap.SectionIDs) > 0 {
		if err := s.history.SaveTabs(project, snap); err != nil {
			s.log.Warn("saving tab snapshot failed",
				"project", project, "error", err.Error())
		}
	}
	s.tabs.CloseProject(project)
	s.coordinator.CloseProject(project)
	s.current.clearIf(project)
}

// CurrentProject returns the active project path, empty when none.
func (s *Session) CurrentProject() string { return s.current.get() }

// SubscribeCurrentProject registers a callback for project switches.
func (s *Session) SubscribeCurrentProject(fn func(project string)) func() {
	return s.current.subscribe(fn)
}

// Retry re-attempts a failed section's generation.
func (s *Session) Retry(ctx context.Context, project, sectionID string) (explorer.DiagramPayload, error) {
	return s.coordinator.Retry(ctx, project, sectionID)
}

// GenerateCustom generates a diagram from a free-form prompt.
func (s *Session) GenerateCustom(ctx context.Context, project, prompt string, referenceFiles ...string) (explorer.DiagramPayload, error) {
	return s.coordinator.GenerateCustom(ctx, project, prompt, referenceFiles...)
}

// FixCorrupted repairs a corrupted diagram in place.
func (s *Session) FixCorrupted(ctx context.Context, project, sectionID string) (explorer.DiagramPayload, error) {
	return s.coordinator.FixCorrupted(ctx, project, sectionID)
}

// RecordRender reports a render outcome to the corruption tracker.
func (s *Session) RecordRender(sectionID string, renderErr error) {
	s.corruption.RecordRender(sectionID, renderErr)
}

// Ask streams a free-form query. When the stream resolves into an
// action plan instead of an answer, the plan is executed: the backend
// modifies or creates the diagram, the result lands in the cache, and
// a tab opens on it.
func (s *Session) Ask(ctx context.Context, project, prompt string, onEvent func(remote.StreamEvent)) (*remote.StreamResult, error) {
	result, err := s.remote.QueryStream(ctx, remote.QueryRequest{
		ProjectRoot: project,
		Prompt:      prompt,
		Language:    s.language,
	}, onEvent)
	if err != nil {
		return nil, err
	}
	if result.Action == nil {
		return result, nil
	}

	payload, err := s.remote.ModifyOrCreateDiagram(ctx, remote.ModifyRequest{
		ProjectRoot: project,
		Instruction: result.Action.Instruction,
		TargetName:  result.Action.TargetName,
		CreateNew:   result.Action.Kind == "create",
		Language:    s.language,
	})
	if err != nil {
		return nil, fmt.Errorf("executing %s action: %w", result.Action.Kind, err)
	}

	s.tabs.Open(project, payload)
	section := explorer.SectionFromPayload(payload)
	s.coordinator.Sections().Append(project, section, func(current []explorer.Section) bool {
		for _, existing := range current {
			if existing.ID == section.ID {
				return false
			}
		}
		return true
	})
	return result, nil
}

// References fetches the source references backing a section.
func (s *Session) References(ctx context.Context, project, sectionID string) ([]explorer.Reference, error) {
	return s.remote.GetReferences(ctx, project, sectionID)
}

// Health checks the backend.
func (s *Session) Health(ctx context.Context) error {
	return s.remote.Health(ctx)
}

// currentProject is the observable "which project is open" cell.
type currentProject struct {
	mu     sync.Mutex
	value  string
	signal state.Signal[string]
}

func (c *currentProject) set(project string) {
	c.mu.Lock()
	c.value = project
	c.mu.Unlock()
	c.signal.Emit(project)
}

func (c *currentProject) clearIf(project string) {
	c.mu.Lock()
	cleared := c.value == project
	if cleared {
		c.value = ""
	}
	c.mu.Unlock()
	if cleared {
		c.signal.Emit("")
	}
}

func (c *currentProject) get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *currentProject) subscribe(fn func(string)) func() {
	return c.signal.Subscribe(fn)
}
