// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// retryCmd re-attempts generation for sections that exhausted their
// automatic retries. Since the failed set lives in session state, the
// command re-runs identification first and retries the requested
// section (or every failed one with --all).
var retryCmd = &cobra.Command{
	Use:   "retry <path> [section-id]",
	Short: "Retry diagram generation for failed sections",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := resolveProject(args[0])
		if err != nil {
			return err
		}
		s, cleanup, err := buildSession()
		if err != nil {
			return err
		}
		defer cleanup()

		spin := newSpinner("Analyzing codebase")
		spin.Start()
		_, err = s.OpenProject(cmd.Context(), project)
		spin.Stop()
		if err != nil {
			return err
		}

		failed := s.Coordinator().Failed().Snapshot(project)
		if len(failed) == 0 {
			fmt.Println("No failed sections; nothing to retry.")
			return nil
		}

		targets := failed
		if len(args) == 2 {
			targets = []string{args[1]}
		}

		var lastErr error
		for _, id := range targets {
			spin := newSpinner(fmt.Sprintf("Retrying %s", id))
			spin.Start()
			payload, err := s.Retry(cmd.Context(), project, id)
			spin.Stop()
			if err != nil {
				fmt.Printf("✗ %s: %v\n", id, err)
				lastErr = err
				continue
			}
			fmt.Printf("✓ %s: %s (%d nodes)\n", id, payload.Title, len(payload.Nodes))
		}
		return lastErr
	},
}

func init() {
	rootCmd.AddCommand(retryCmd)
}
