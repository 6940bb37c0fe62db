// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package remote defines the network boundary to the diagram backend and
// provides the HTTP/SSE client implementation.
//
// The coordinator and the CLI depend only on the Service interface; tests
// substitute fakes with controllable resolution.
package remote

import (
	"context"
	"errors"

	"github.com/CartographAI/cartograph/services/explorer"
)

// ErrFixFailed is returned when the backend accepts a fix request but
// reports that the repair attempt did not produce a valid diagram. The
// caller keeps the corruption record so another attempt stays possible.
var ErrFixFailed = errors.New("diagram fix attempt reported failure")

// GenerateRequest asks the backend to generate one section's diagram.
type GenerateRequest struct {
	// ProjectRoot is the local path of the codebase being analyzed.
	ProjectRoot string `json:"project_root"`

	// Section carries the identified section metadata the backend
	// needs to scope generation.
	Section explorer.Section `json:"section"`

	// ReferenceFiles, when non-empty, lists manually selected files
	// that bypass server-side retrieval.
	ReferenceFiles []string `json:"reference_files,omitempty"`

	// Language is the target natural language code, e.g. "en".
	Language string `json:"language"`
}

// FixRequest asks the backend to repair a diagram whose markup failed to
// render client-side. This is a distinct operation from regeneration: the
// backend receives the broken markup and the renderer's error message.
type FixRequest struct {
	ProjectRoot     string           `json:"project_root"`
	Section         explorer.Section `json:"section"`
	CorruptedMarkup string           `json:"corrupted_markup"`
	ErrorMessage    string           `json:"error_message"`
	Language        string           `json:"language"`
}

// ModifyRequest asks the backend to modify an existing diagram or create
// a new one from an instruction.
type ModifyRequest struct {
	ProjectRoot string `json:"project_root"`
	Instruction string `json:"instruction"`
	TargetName  string `json:"target_name"`
	CreateNew   bool   `json:"create_new"`
	Language    string `json:"language"`
}

// QueryRequest starts a free-form streamed query over the codebase.
type QueryRequest struct {
	ProjectRoot string `json:"project_root"`
	Prompt      string `json:"prompt"`
	Language    string `json:"language"`
}

// EventType discriminates streamed query events.
type EventType string

const (
	EventStatus EventType = "status"
	EventToken  EventType = "token"
	EventAction EventType = "action"
	EventDone   EventType = "done"
	EventError  EventType = "error"
)

// ActionPlan is the structured outcome of a query that resolved into a
// diagram operation rather than a plain answer.
type ActionPlan struct {
	// Kind is "modify" or "create".
	Kind        string `json:"kind"`
	TargetName  string `json:"target_name"`
	Instruction string `json:"instruction"`
}

// StreamEvent is a single event on a query stream.
type StreamEvent struct {
	Type    EventType   `json:"type"`
	Content string      `json:"content,omitempty"`
	Message string      `json:"message,omitempty"`
	Action  *ActionPlan `json:"action,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StreamResult is the final outcome of a completed query stream: either a
// plain-text answer or an action plan the caller should execute.
type StreamResult struct {
	Answer string
	Action *ActionPlan
}

// Service is the remote diagram backend boundary.
//
// All operations honor context cancellation; for QueryStream, canceling
// the context closes the underlying connection and ends the stream.
type Service interface {
	// Health reports whether the backend is reachable and ready.
	Health(ctx context.Context) error

	// EnsureIndexed asks the backend to index the project if it has
	// not already. Callers treat failures as best-effort.
	EnsureIndexed(ctx context.Context, projectRoot string) error

	// IdentifySections analyzes the project and returns the ordered
	// list of sections worth diagramming.
	IdentifySections(ctx context.Context, projectRoot, language string) ([]explorer.Section, error)

	// GenerateSectionDiagram generates one section's diagram payload.
	GenerateSectionDiagram(ctx context.Context, req GenerateRequest) (explorer.DiagramPayload, error)

	// FixCorruptedDiagram repairs broken markup. Returns ErrFixFailed
	// when the backend reports the repair did not succeed.
	FixCorruptedDiagram(ctx context.Context, req FixRequest) (explorer.DiagramPayload, error)

	// ModifyOrCreateDiagram applies an instruction to an existing
	// diagram or creates a new one.
	ModifyOrCreateDiagram(ctx context.Context, req ModifyRequest) (explorer.DiagramPayload, error)

	// GetReferences returns the source references backing a section's
	// diagram.
	GetReferences(ctx context.Context, projectRoot, sectionID string) ([]explorer.Reference, error)

	// QueryStream runs a free-form query, invoking onEvent for every
	// stream event in order, and returns the final structured result.
	// A mid-stream error event ends the stream with an error; partial
	// output is never treated as a final result.
	QueryStream(ctx context.Context, req QueryRequest, onEvent func(StreamEvent)) (*StreamResult, error)
}
