// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package explorer defines the shared data model for the diagram
// exploration client: sections identified by the wiki backend, the
// diagram payloads generated for them, and the reference material that
// backs a diagram.
//
// The types here mirror the backend's JSON responses field for field so
// that payloads can round-trip through the local cache without
// translation layers.
package explorer

import "fmt"

// DiagramType identifies the Mermaid diagram family used for a section.
type DiagramType string

const (
	DiagramFlowchart          DiagramType = "flowchart"
	DiagramSequence           DiagramType = "sequence"
	DiagramClass              DiagramType = "class"
	DiagramState              DiagramType = "state"
	DiagramEntityRelationship DiagramType = "entity-relationship"
)

// Valid reports whether t is one of the known diagram families.
func (t DiagramType) Valid() bool {
	switch t {
	case DiagramFlowchart, DiagramSequence, DiagramClass, DiagramState, DiagramEntityRelationship:
		return true
	}
	return false
}

// CustomSectionPrefix marks client-synthesized sections created from a
// free-form user prompt. The backend relies on this prefix to apply its
// concise-title generation and to register the section as first-class.
const CustomSectionPrefix = "custom_"

// Section is one diagram-worthy architectural aspect of a codebase.
//
// # Description
//
// Sections are produced by the backend's identification step, or
// synthesized client-side for ad-hoc diagrams (id carries
// CustomSectionPrefix). A Section is immutable once identified, except
// DiagramType which a user may override before regeneration.
type Section struct {
	// ID is unique within a project's identified set. Server-issued ids
	// are namespaced per repository; client-synthesized ids carry
	// CustomSectionPrefix plus a UUID.
	ID string `json:"section_id"`

	// Title is the short human-readable section name.
	Title string `json:"section_title"`

	// Description explains what this section covers.
	Description string `json:"section_description"`

	// Type is the Mermaid diagram family to generate.
	Type DiagramType `json:"diagram_type"`

	// KeyConcepts lists the concepts the diagram should include, in the
	// order the backend identified them.
	KeyConcepts []string `json:"key_concepts"`
}

// IsCustom reports whether the section was synthesized client-side from
// a free-form prompt.
func (s Section) IsCustom() bool {
	return len(s.ID) > len(CustomSectionPrefix) && s.ID[:len(CustomSectionPrefix)] == CustomSectionPrefix
}

// Validate checks the minimal shape an identified section must have.
func (s Section) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("section id is empty")
	}
	if s.Title == "" {
		return fmt.Errorf("section %q has no title", s.ID)
	}
	return nil
}

// Node is the metadata for a single diagram node.
type Node struct {
	Label       string `json:"label"`
	Shape       string `json:"shape"`
	Explanation string `json:"explanation"`
}

// Edge is the metadata for a single diagram edge. The map key in
// DiagramPayload.Edges is the backend's edge key ("source->target").
type Edge struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
}

// Diagram is the nested markup object inside a payload.
type Diagram struct {
	// MermaidCode is the opaque markup consumed by the rendering layer.
	MermaidCode string `json:"mermaid_code"`

	// Description is the backend's prose summary of the diagram.
	Description string `json:"description"`

	// IsValid reports whether the backend's own syntax validation passed.
	// A payload can carry IsValid true and still fail to render
	// client-side; that condition is tracked by the corruption package.
	IsValid bool `json:"is_valid"`

	// Type is the diagram family the backend actually produced, which may
	// differ from the requested one.
	Type DiagramType `json:"diagram_type"`
}

// Reference points at source material that backed a diagram.
type Reference struct {
	File      string `json:"file"`
	Lines     string `json:"lines,omitempty"`
	Relevance string `json:"relevance"`
}

// DiagramPayload is the resolved visual artifact for a section.
//
// # Description
//
// Created on first successful generation or fix, replaced wholesale on
// regeneration. Payloads are treated as values: the cache stores and
// returns deep copies so a reader never observes a partially updated
// payload.
type DiagramPayload struct {
	SectionID   string          `json:"section_id"`
	Title       string          `json:"section_title"`
	Description string          `json:"section_description"`
	Language    string          `json:"language,omitempty"`
	Diagram     Diagram         `json:"diagram"`
	Nodes       map[string]Node `json:"nodes"`
	Edges       map[string]Edge `json:"edges"`
	Sources     []Reference     `json:"rag_sources,omitempty"`
}

// Clone returns a deep copy of the payload. The nested node and edge
// maps are copied so mutations on the clone never reach the original.
func (p DiagramPayload) Clone() DiagramPayload {
	out := p
	if p.Nodes != nil {
		out.Nodes = make(map[string]Node, len(p.Nodes))
		for k, v := range p.Nodes {
			out.Nodes[k] = v
		}
	}
	if p.Edges != nil {
		out.Edges = make(map[string]Edge, len(p.Edges))
		for k, v := range p.Edges {
			out.Edges[k] = v
		}
	}
	if p.Sources != nil {
		out.Sources = append([]Reference(nil), p.Sources...)
	}
	return out
}

// SectionFromPayload reconstructs section metadata from a cached
// payload. Used by the fix flow, which must resend the section shape the
// backend expects without re-running identification.
func SectionFromPayload(p DiagramPayload) Section {
	return Section{
		ID:          p.SectionID,
		Title:       p.Title,
		Description: p.Description,
		Type:        p.Diagram.Type,
	}
}
