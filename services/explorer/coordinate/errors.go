// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coordinate

import "errors"

var (
	// ErrGenerationInFlight means another caller already has a
	// generation running for the section. Callers should wait for a
	// store notification and consult the cache again rather than
	// firing a second request.
	ErrGenerationInFlight = errors.New("generation already in flight for section")

	// ErrUnknownSection means the section id is not in the project's
	// identified list.
	ErrUnknownSection = errors.New("section not identified for project")

	// ErrNotFailed means a manual retry was requested for a section
	// that is not in the project's failed set.
	ErrNotFailed = errors.New("section is not in a failed state")

	// ErrNotCorrupted means a fix was requested for a section that has
	// no corruption record.
	ErrNotCorrupted = errors.New("section has no corruption record")

	// ErrNotCached means an operation needed the section's cached
	// payload and none exists.
	ErrNotCached = errors.New("no cached payload for section")
)
