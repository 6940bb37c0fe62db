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

var fixErrorMessage string

// fixCmd repairs a diagram whose markup fails to render. The renderer's
// error message travels to the backend so the fix is targeted; this is
// a different operation than regeneration.
var fixCmd = &cobra.Command{
	Use:   "fix <path> <section-id>",
	Short: "Repair a diagram whose markup fails to render",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := resolveProject(args[0])
		if err != nil {
			return err
		}
		sectionID := args[1]

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
		if !s.Diagrams().Has(sectionID) {
			return fmt.Errorf("no diagram for section %q; run analyze first", sectionID)
		}

		// The CLI has no renderer, so the error message stands in for
		// the render outcome a graphical client would report.
		s.RecordRender(sectionID, fmt.Errorf("%s", fixErrorMessage))

		spin = newSpinner(fmt.Sprintf("Repairing %s", sectionID))
		spin.Start()
		fixed, err := s.FixCorrupted(cmd.Context(), project, sectionID)
		spin.Stop()
		if err != nil {
			return fmt.Errorf("fix failed (section stays marked for another attempt): %w", err)
		}

		fmt.Printf("✓ Repaired %s\n\n%s\n", sectionID, fixed.Diagram.MermaidCode)
		return nil
	},
}

func init() {
	fixCmd.Flags().StringVar(&fixErrorMessage, "message", "diagram failed to render",
		"the renderer's error message, forwarded to the backend")
	rootCmd.AddCommand(fixCmd)
}
