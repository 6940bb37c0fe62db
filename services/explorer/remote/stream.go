// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remote

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// readStream consumes an SSE body line by line, invoking onEvent for
// every parsed event and accumulating the final result.
//
// Lines follow the "data: {json}" SSE convention; blank lines separate
// events. A line that is not valid JSON is treated as a raw token, which
// keeps the reader tolerant of plain-text backends.
func readStream(body io.Reader, onEvent func(StreamEvent)) (*StreamResult, error) {
	var (
		answer strings.Builder
		action *ActionPlan
	)
	emit := func(ev StreamEvent) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		line = strings.TrimPrefix(line, "data: ")

		var event StreamEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			event = StreamEvent{Type: EventToken, Content: line}
		}

		switch event.Type {
		case EventStatus:
			emit(event)
		case EventToken:
			answer.WriteString(event.Content)
			emit(event)
		case EventAction:
			action = event.Action
			emit(event)
		case EventDone:
			emit(event)
			return &StreamResult{Answer: answer.String(), Action: action}, nil
		case EventError:
			emit(event)
			return nil, fmt.Errorf("stream error: %s", event.Error)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stream: %w", err)
	}

	// Stream ended without an explicit done event; treat what arrived
	// as the final answer.
	return &StreamResult{Answer: answer.String(), Action: action}, nil
}
