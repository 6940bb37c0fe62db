// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retry provides a bounded fixed-delay retry wrapper for
// fallible operations against the wiki backend.
//
// The policy is deliberately fixed-delay, not exponential: the backend's
// generation endpoint is a long-running LLM call, so spacing attempts a
// constant two seconds apart bounds total wait without starving the
// caller. All failures are retried identically up to the cap; no attempt
// is made to classify errors as retryable.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/CartographAI/cartograph/pkg/logging"
)

const (
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts = 3

	// Delay is the fixed wait between attempts.
	Delay = 2000 * time.Millisecond
)

// ExhaustedError reports that every attempt failed. It wraps the error
// from the final attempt and carries the operation key for diagnostics.
type ExhaustedError struct {
	// Key identifies the operation, typically a section id.
	Key string

	// Attempts is the number of attempts made.
	Attempts int

	// Last is the error from the final attempt.
	Last error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("operation %q failed after %d attempts: %v", e.Key, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Sleeper waits for d or returns early with the context's error. It is
// injectable so tests can observe delays without waiting them out.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy executes operations with bounded fixed-delay retries.
//
// # Thread Safety
//
// Policy is immutable after construction and safe for concurrent use.
type Policy struct {
	attempts int
	delay    time.Duration
	sleep    Sleeper
	logger   *logging.Logger
}

// Option configures a Policy.
type Option func(*Policy)

// WithAttempts overrides MaxAttempts. Values below 1 are ignored.
func WithAttempts(n int) Option {
	return func(p *Policy) {
		if n >= 1 {
			p.attempts = n
		}
	}
}

// WithDelay overrides the fixed delay between attempts.
func WithDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithSleeper replaces the real clock. Tests use this to record delays.
func WithSleeper(s Sleeper) Option {
	return func(p *Policy) {
		if s != nil {
			p.sleep = s
		}
	}
}

// WithLogger sets the logger for attempt diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(p *Policy) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPolicy creates a Policy with MaxAttempts/Delay defaults.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		attempts: MaxAttempts,
		delay:    Delay,
		sleep:    defaultSleep,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs op until it succeeds or the attempt cap is reached.
//
// # Description
//
// The first successful result is returned immediately. Between failed
// attempts Execute waits the fixed delay. When every attempt fails it
// returns an *ExhaustedError wrapping the last failure, tagged with key.
// Attempts and failures are logged; logging never alters control flow.
//
// Context cancellation during the inter-attempt wait aborts the
// remaining attempts and returns an ExhaustedError whose Last error is
// the context error.
//
// # Inputs
//
//   - ctx: Cancels the inter-attempt wait and is passed to op.
//   - p: The retry policy.
//   - key: Operation key for diagnostics (typically a section id).
//   - op: The fallible operation.
//
// # Outputs
//
//   - T: Result of the first successful attempt.
//   - error: Nil on success; *ExhaustedError when the cap is reached.
func Execute[T any](ctx context.Context, p *Policy, key string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	made := 0

	for attempt := 1; attempt <= p.attempts; attempt++ {
		made = attempt
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				p.logger.Info("operation succeeded after retry",
					"key", key,
					"attempt", attempt,
				)
			}
			return result, nil
		}

		lastErr = err
		p.logger.Warn("operation attempt failed",
			"key", key,
			"attempt", attempt,
			"max_attempts", p.attempts,
			"error", err.Error(),
		)

		if attempt < p.attempts {
			if sleepErr := p.sleep(ctx, p.delay); sleepErr != nil {
				lastErr = sleepErr
				break
			}
		}
	}

	p.logger.Error("operation exhausted retries", "key", key, "error", lastErr.Error())
	return zero, &ExhaustedError{Key: key, Attempts: made, Last: lastErr}
}
