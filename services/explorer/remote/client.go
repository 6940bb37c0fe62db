// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/CartographAI/cartograph/pkg/logging"
	"github.com/CartographAI/cartograph/services/explorer"
)

const defaultRequestTimeout = 120 * time.Second

// Client is the HTTP implementation of Service.
//
// # Description
//
// JSON request/response for the unary operations, Server-Sent Events for
// QueryStream. Non-2xx responses are surfaced with the backend's error
// body. Generation calls can run for minutes, so the default client
// timeout is generous; stream requests use no timeout at all and rely on
// context cancellation.
//
// # Thread Safety
//
// Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
	log     *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client for unary calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithClientLogger sets the client's logger.
func WithClientLogger(log *logging.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a Client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		stream:  &http.Client{},
		log:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// statusEnvelope is the common wrapper the backend puts around unary
// responses.
type statusEnvelope struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (e statusEnvelope) ok() bool {
	return e.Status == "" || e.Status == "ok" || e.Status == "success"
}

// postJSON sends body to path and decodes the response into out. It
// returns an error for transport failures, non-2xx responses, and
// envelope-level failures when out embeds a statusEnvelope.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// Health checks the backend's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// EnsureIndexed asks the backend to build its index for the project.
// Already-indexed projects are a success, not an error.
func (c *Client) EnsureIndexed(ctx context.Context, projectRoot string) error {
	body := map[string]string{"project_root": projectRoot}
	var env statusEnvelope
	if err := c.postJSON(ctx, "/api/index", body, &env); err != nil {
		return err
	}
	if !env.ok() {
		return fmt.Errorf("indexing failed: %s", env.Error)
	}
	return nil
}

// IdentifySections returns the ordered sections the backend identified
// for the project.
func (c *Client) IdentifySections(ctx context.Context, projectRoot, language string) ([]explorer.Section, error) {
	body := map[string]string{
		"project_root": projectRoot,
		"language":     language,
	}
	var resp struct {
		statusEnvelope
		Sections []explorer.Section `json:"sections"`
	}
	if err := c.postJSON(ctx, "/api/diagram/sections", body, &resp); err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, fmt.Errorf("section identification failed: %s", resp.Error)
	}

	c.log.Debug("identified sections",
		"project", projectRoot, "count", len(resp.Sections))
	return resp.Sections, nil
}

// payloadResponse is a DiagramPayload inside the status envelope.
type payloadResponse struct {
	statusEnvelope
	explorer.DiagramPayload
}

// GenerateSectionDiagram generates one section's diagram.
func (c *Client) GenerateSectionDiagram(ctx context.Context, req GenerateRequest) (explorer.DiagramPayload, error) {
	var resp payloadResponse
	if err := c.postJSON(ctx, "/api/diagram/generate", req, &resp); err != nil {
		return explorer.DiagramPayload{}, err
	}
	if !resp.ok() {
		return explorer.DiagramPayload{}, fmt.Errorf("generation failed for %s: %s", req.Section.ID, resp.Error)
	}
	return resp.DiagramPayload, nil
}

// FixCorruptedDiagram asks the backend to repair broken markup. A fix
// the backend could not complete comes back as ErrFixFailed.
func (c *Client) FixCorruptedDiagram(ctx context.Context, req FixRequest) (explorer.DiagramPayload, error) {
	var resp payloadResponse
	if err := c.postJSON(ctx, "/api/diagram/fix", req, &resp); err != nil {
		return explorer.DiagramPayload{}, err
	}
	if !resp.ok() {
		return explorer.DiagramPayload{}, fmt.Errorf("%w: %s", ErrFixFailed, resp.Error)
	}
	return resp.DiagramPayload, nil
}

// ModifyOrCreateDiagram applies an instruction to a diagram.
func (c *Client) ModifyOrCreateDiagram(ctx context.Context, req ModifyRequest) (explorer.DiagramPayload, error) {
	var resp payloadResponse
	if err := c.postJSON(ctx, "/api/diagram/modify", req, &resp); err != nil {
		return explorer.DiagramPayload{}, err
	}
	if !resp.ok() {
		return explorer.DiagramPayload{}, fmt.Errorf("modify failed for %q: %s", req.TargetName, resp.Error)
	}
	return resp.DiagramPayload, nil
}

// GetReferences returns the source references backing a section.
func (c *Client) GetReferences(ctx context.Context, projectRoot, sectionID string) ([]explorer.Reference, error) {
	q := url.Values{}
	q.Set("project_root", projectRoot)
	q.Set("section_id", sectionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/diagram/references?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building references request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching references: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("references returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var decoded struct {
		statusEnvelope
		References []explorer.Reference `json:"references"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding references: %w", err)
	}
	if !decoded.ok() {
		return nil, fmt.Errorf("references failed: %s", decoded.Error)
	}
	return decoded.References, nil
}

// QueryStream runs a free-form query over SSE. Cancel the context to
// close the connection mid-stream.
func (c *Client) QueryStream(ctx context.Context, req QueryRequest, onEvent func(StreamEvent)) (*StreamResult, error) {
	encoded, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/query/stream", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("building query request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("starting query stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("query stream returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	result, err := readStream(resp.Body, onEvent)
	if err != nil {
		// Prefer the cancellation cause when the caller ended the
		// stream; the read error is just the closed connection.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return result, nil
}
