// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/CartographAI/cartograph/services/explorer"
	"github.com/CartographAI/cartograph/services/explorer/history"
	"github.com/CartographAI/cartograph/services/explorer/remote"
	"github.com/CartographAI/cartograph/services/explorer/session"
)

// buildSession wires a Session from the loaded configuration. The
// returned cleanup closes the history backend.
func buildSession() (*session.Session, func(), error) {
	client := remote.NewClient(config.ServerURL, remote.WithClientLogger(logger))

	var (
		backend history.Backend
		err     error
	)
	switch config.Storage.Backend {
	case "badger":
		cfg := history.DefaultBadgerConfig(filepath.Join(config.Storage.Dir, "history.db"))
		cfg.Logger = logger.Slog()
		backend, err = history.NewBadgerBackend(cfg)
	default:
		backend, err = history.NewFileBackend(filepath.Join(config.Storage.Dir, "history.json"))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening history backend: %w", err)
	}

	hist, err := history.NewStore(backend, history.WithStoreLogger(logger))
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	s := session.New(client, hist,
		session.WithLogger(logger),
		session.WithLanguage(config.Language),
	)
	cleanup := func() {
		if err := hist.Close(); err != nil {
			logger.Warn("closing history store", "error", err.Error())
		}
	}
	return s, cleanup, nil
}

// resolveProject normalizes the project path argument to an absolute
// path, so history entries and store keys are stable across shells.
func resolveProject(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolving project path %q: %w", arg, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project path %q: %w", arg, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project path %q is not a directory", arg)
	}
	return abs, nil
}

// stderrIsTerminal gates spinner animation and inline token printing.
func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// spinner is a minimal terminal spinner. On non-terminals it degrades
// to one status line per message.
type spinner struct {
	mu      sync.Mutex
	message string
	active  bool
	stop    chan struct{}
	done    chan struct{}
}

func newSpinner(message string) *spinner {
	return &spinner{message: message}
}

func (s *spinner) Start() {
	if !stderrIsTerminal() {
		fmt.Fprintf(os.Stderr, "%s...\n", s.message)
		return
	}
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run()
}

func (s *spinner) run() {
	defer close(s.done)
	frames := []rune{'|', '/', '-', '\\'}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-s.stop:
			fmt.Fprint(os.Stderr, "\r\033[K")
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			fmt.Fprintf(os.Stderr, "\r%c %s", frames[i%len(frames)], msg)
			i++
		}
	}
}

func (s *spinner) Update(message string) {
	s.mu.Lock()
	changed := message != s.message
	s.message = message
	active := s.active
	s.mu.Unlock()

	if !active && changed && !stderrIsTerminal() {
		fmt.Fprintf(os.Stderr, "%s...\n", message)
	}
}

func (s *spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.stop)
	s.mu.Unlock()
	<-s.done
}

// printSections renders the identified-section list with state badges.
func printSections(s *session.Session, project string, sections []explorer.Section) {
	coord := s.Coordinator()
	for i, section := range sections {
		badge := " "
		switch {
		case coord.Failed().Has(project, section.ID):
			badge = "✗"
		case s.Corruption().IsCorrupted(section.ID):
			badge = "!"
		case coord.Available().Has(project, section.ID):
			badge = "✓"
		case coord.Requested().Has(project, section.ID):
			badge = "…"
		}
		fmt.Printf("%2d. [%s] %-14s %s  (%s)\n", i+1, badge, section.Type, section.Title, section.ID)
	}
}
