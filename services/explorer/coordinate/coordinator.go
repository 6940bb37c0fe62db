// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package coordinate orchestrates the identify-then-generate lifecycle
// for a project's diagrams.
//
// Each (project, section) pair moves through unrequested, requesting,
// and then available or failed. The coordinator is the only writer of
// those transitions: it dedupes concurrent generation requests per
// section, drives the retry policy, and lands every outcome in the
// shared stores so badges reflect the latest known state even when a
// resolution arrives after the user navigated elsewhere.
package coordinate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/CartographAI/cartograph/pkg/logging"
	"github.com/CartographAI/cartograph/services/explorer"
	"github.com/CartographAI/cartograph/services/explorer/cache"
	"github.com/CartographAI/cartograph/services/explorer/corruption"
	"github.com/CartographAI/cartograph/services/explorer/remote"
	"github.com/CartographAI/cartograph/services/explorer/retry"
	"github.com/CartographAI/cartograph/services/explorer/state"
	"github.com/CartographAI/cartograph/services/explorer/tabs"
)

// Coordinator drives diagram generation for all projects in a session.
//
// # Description
//
// The requested set is the in-flight guard: a section enters it before
// the network call and leaves it when the outcome lands, so at most one
// generation runs per section at any time. Success writes the payload
// to the cache and the section to the available set; exhaustion writes
// the section to the failed set. A section is never in more than one of
// requested/available/failed for a given attempt.
//
// # Thread Safety
//
// Safe for concurrent use.
type Coordinator struct {
	remote     remote.Service
	policy     *retry.Policy
	diagrams   *cache.Store
	tabs       *tabs.Manager
	corruption *corruption.Tracker
	log        *logging.Logger
	language   string

	requested *state.SetStore
	available *state.SetStore
	failed    *state.SetStore
	sections  *state.ListStore[explorer.Section]
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPolicy replaces the default retry policy.
func WithPolicy(p *retry.Policy) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithLogger sets the coordinator's logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithLanguage sets the target language for generated content.
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(c *Coordinator) {
		if lang != "" {
			c.language = lang
		}
	}
}

// New creates a Coordinator.
//
// The diagram cache, available set, tab manager, and corruption tracker
// are shared with the rest of the session; the requested/failed sets
// and the identified-section registry are owned by the coordinator.
func New(svc remote.Service, diagrams *cache.Store, available *state.SetStore, tabMgr *tabs.Manager, tracker *corruption.Tracker, opts ...Option) *Coordinator {
	c := &Coordinator{
		remote:     svc,
		policy:     retry.NewPolicy(),
		diagrams:   diagrams,
		tabs:       tabMgr,
		corruption: tracker,
		log:        logging.Default(),
		language:   "en",
		requested:  state.NewSetStore(),
		available:  available,
		failed:     state.NewSetStore(),
		sections:   state.NewListStore[explorer.Section](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Requested exposes the in-flight set for read-only subscription.
func (c *Coordinator) Requested() *state.SetStore { return c.requested }

// Available exposes the generated set for read-only subscription.
func (c *Coordinator) Available() *state.SetStore { return c.available }

// Failed exposes the failed set for read-only subscription.
func (c *Coordinator) Failed() *state.SetStore { return c.failed }

// Sections exposes the per-project identified-section registry.
func (c *Coordinator) Sections() *state.ListStore[explorer.Section] { return c.sections }

// SectionByID looks up a section in the project's identified list.
func (c *Coordinator) SectionByID(project, sectionID string) (explorer.Section, bool) {
	for _, s := range c.sections.Snapshot(project) {
		if s.ID == sectionID {
			return s, true
		}
	}
	return explorer.Section{}, false
}

// EnsureGenerated resolves a section's diagram, generating it if needed.
//
// # Description
//
// Cached sections return immediately with no network call. A section
// already in flight returns ErrGenerationInFlight; the caller consults
// the cache again after a store notification instead of firing a second
// request. Otherwise the section enters the requested set, the
// retry-wrapped generation runs, and the outcome lands in the cache and
// available set (success) or the failed set (exhaustion). The requested
// entry is removed either way.
//
// # Inputs
//
//   - ctx: Cancels the retry waits and the network call.
//   - project: Project key.
//   - section: Section metadata to generate for.
//   - referenceFiles: Optional manually selected files that bypass
//     server-side retrieval.
//
// # Outputs
//
//   - explorer.DiagramPayload: The cached or freshly generated payload.
//   - error: ErrGenerationInFlight, or the exhaustion error.
func (c *Coordinator) EnsureGenerated(ctx context.Context, project string, section explorer.Section, referenceFiles ...string) (explorer.DiagramPayload, error) {
	if payload, ok := c.diagrams.Get(section.ID); ok {
		cacheHits.Inc()
		c.available.Add(project, section.ID)
		return payload, nil
	}

	if !c.requested.Add(project, section.ID) {
		return explorer.DiagramPayload{}, fmt.Errorf("%w: %s", ErrGenerationInFlight, section.ID)
	}
	generationsInFlight.Inc()
	defer generationsInFlight.Dec()
	defer c.requested.Remove(project, section.ID)

	payload, err := retry.Execute(ctx, c.policy, section.ID, func(ctx context.Context) (explorer.DiagramPayload, error) {
		return c.remote.GenerateSectionDiagram(ctx, remote.GenerateRequest{
			ProjectRoot:    project,
			Section:        section,
			ReferenceFiles: referenceFiles,
			Language:       c.language,
		})
	})
	if err != nil {
		recordGeneration(false)
		c.failed.Add(project, section.ID)
		c.log.Error("diagram generation exhausted",
			"project", project, "section", section.ID, "error", err.Error())
		return explorer.DiagramPayload{}, err
	}

	recordGeneration(true)
	c.diagrams.Set(payload)
	c.available.Add(project, section.ID)
	c.log.Info("diagram generated",
		"project", project, "section", section.ID)
	return payload, nil
}

// AnalyzeAndPopulate generates diagrams for the identified sections,
// strictly sequentially to bound backend load and preserve "first
// opened" semantics.
//
// Sections already available or in flight are skipped. Failures are
// captured per section into the failed set and never cross the batch
// boundary. The first section to become available is auto-opened as a
// tab.
func (c *Coordinator) AnalyzeAndPopulate(ctx context.Context, project string, sections []explorer.Section) {
	opened := false
	for _, section := range sections {
		if ctx.Err() != nil {
			return
		}
		if c.available.Has(project, section.ID) || c.requested.Has(project, section.ID) {
			continue
		}

		payload, err := c.EnsureGenerated(ctx, project, section)
		if err != nil {
			// Already captured in the failed set; keep going.
			continue
		}
		if !opened {
			c.tabs.Open(project, payload)
			opened = true
		}
	}
}

// AnalyzeProject runs the full identify-then-generate flow.
//
// # Description
//
// Backend indexing is ensured best-effort first; a failure there is
// logged and swallowed since indexing legitimately fails when already
// done. Identification errors propagate. The identified list replaces
// the project's registry, then the batch generation pass runs.
func (c *Coordinator) AnalyzeProject(ctx context.Context, project string) ([]explorer.Section, error) {
	if err := c.remote.EnsureIndexed(ctx, project); err != nil {
		c.log.Warn("backend indexing not confirmed, continuing",
			"project", project, "error", err.Error())
	}

	sections, err := c.remote.IdentifySections(ctx, project, c.language)
	if err != nil {
		return nil, fmt.Errorf("identifying sections: %w", err)
	}
	c.sections.Put(project, sections)

	c.AnalyzeAndPopulate(ctx, project, sections)
	return sections, nil
}

// Retry re-attempts generation for a section that exhausted its
// automatic retries.
//
// The section leaves the failed set before the attempt; the check and
// removal are atomic, so two concurrent retries of the same section
// cannot both proceed. A second exhaustion re-enters the failed set
// (inside EnsureGenerated) and propagates so the caller can present a
// terminal error.
func (c *Coordinator) Retry(ctx context.Context, project, sectionID string) (explorer.DiagramPayload, error) {
	section, ok := c.SectionByID(project, sectionID)
	if !ok {
		return explorer.DiagramPayload{}, fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}
	if !c.failed.Remove(project, sectionID) {
		return explorer.DiagramPayload{}, fmt.Errorf("%w: %s", ErrNotFailed, sectionID)
	}
	manualRetries.Inc()

	return c.EnsureGenerated(ctx, project, section)
}

// GenerateCustom generates a diagram from a free-form prompt.
//
// # Description
//
// A synthetic Section is built with a collision-resistant custom id and
// run through the standard generation path. The server may rewrite the
// prompt into a concise title; the returned payload's title is
// authoritative and is reflected into the stored section. On success
// the section joins the project's identified list (unless the id is
// already present) and a tab opens, making it a first-class citizen of
// the tree and tab UI. Failures propagate to the invoking handler.
func (c *Coordinator) GenerateCustom(ctx context.Context, project, prompt string, referenceFiles ...string) (explorer.DiagramPayload, error) {
	section := explorer.Section{
		ID:          explorer.CustomSectionPrefix + uuid.NewString(),
		Title:       prompt,
		Description: prompt,
		Type:        explorer.DiagramFlowchart,
	}

	payload, err := c.EnsureGenerated(ctx, project, section, referenceFiles...)
	if err != nil {
		return explorer.DiagramPayload{}, err
	}

	stored := explorer.SectionFromPayload(payload)
	if stored.ID == "" {
		stored = section
	}
	c.sections.Append(project, stored, func(current []explorer.Section) bool {
		for _, s := range current {
			if s.ID == stored.ID {
				return false
			}
		}
		return true
	})
	c.tabs.Open(project, payload)
	return payload, nil
}

// FixCorrupted asks the backend to repair a diagram whose markup failed
// to render. This is a distinct flow from Retry: generation succeeded,
// so there is nothing to regenerate.
//
// On success the cache is replaced, every open tab showing the section
// updates in place, and the corruption record clears. No automatic
// retry wraps the fix. On failure the corruption record is preserved so
// the section remains marked for another attempt, and the error
// propagates for an alert-level message.
func (c *Coordinator) FixCorrupted(ctx context.Context, project, sectionID string) (explorer.DiagramPayload, error) {
	renderErr, ok := c.corruption.Get(sectionID)
	if !ok {
		return explorer.DiagramPayload{}, fmt.Errorf("%w: %s", ErrNotCorrupted, sectionID)
	}
	current, ok := c.diagrams.Get(sectionID)
	if !ok {
		return explorer.DiagramPayload{}, fmt.Errorf("%w: %s", ErrNotCached, sectionID)
	}

	fixed, err := c.remote.FixCorruptedDiagram(ctx, remote.FixRequest{
		ProjectRoot:     project,
		Section:         explorer.SectionFromPayload(current),
		CorruptedMarkup: current.Diagram.MermaidCode,
		ErrorMessage:    renderErr,
		Language:        c.language,
	})
	if err != nil {
		recordFix(false)
		c.log.Error("diagram fix failed",
			"project", project, "section", sectionID, "error", err.Error())
		return explorer.DiagramPayload{}, err
	}

	recordFix(true)
	c.diagrams.Set(fixed)
	c.tabs.UpdatePayload(fixed)
	c.corruption.Clear(sectionID)
	c.log.Info("diagram repaired", "project", project, "section", sectionID)
	return fixed, nil
}

// CloseProject drops the coordinator's per-project state. The diagram
// cache is deliberately untouched; section ids are globally unique, so
// reopening the project reuses cached payloads.
func (c *Coordinator) CloseProject(project string) {
	c.requested.ClearProject(project)
	c.failed.ClearProject(project)
	c.sections.ClearProject(project)
	c.available.ClearProject(project)
}
