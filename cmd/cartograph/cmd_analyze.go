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

	"github.com/spf13/cobra"

	"github.com/CartographAI/cartograph/services/explorer/session"
)

var analyzeOutputDir string

// analyzeCmd runs the full identify-then-generate flow for a project.
//
// # Examples
//
//	cartograph analyze ./myrepo
//	cartograph analyze ./myrepo --out ./diagrams
var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Identify sections and generate every diagram for a codebase",
	Args:  cobra.ExactArgs(1),
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
		sections, err := s.OpenProject(cmd.Context(), project)
		spin.Stop()
		if err != nil {
			return err
		}

		available := s.Coordinator().Available().Len(project)
		failed := s.Coordinator().Failed().Snapshot(project)

		fmt.Printf("Identified %d sections, generated %d diagrams\n\n", len(sections), available)
		printSections(s, project, sections)

		if len(failed) > 0 {
			fmt.Printf("\n%d sections failed; rerun with:\n", len(failed))
			for _, id := range failed {
				fmt.Printf("  cartograph retry %s %s\n", args[0], id)
			}
		}

		if analyzeOutputDir != "" {
			if err := exportDiagrams(s, project, analyzeOutputDir); err != nil {
				return err
			}
			fmt.Printf("\nWrote diagrams to %s\n", analyzeOutputDir)
		}
		return nil
	},
}

// exportDiagrams writes each cached diagram's markup to a .mmd file.
func exportDiagrams(s *session.Session, project, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, id := range s.Coordinator().Available().Snapshot(project) {
		payload, ok := s.Diagrams().Get(id)
		if !ok {
			continue
		}
		path := fmt.Sprintf("%s/%s.mmd", dir, id)
		if err := os.WriteFile(path, []byte(payload.Diagram.MermaidCode), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOutputDir, "out", "",
		"write generated Mermaid files to this directory")
	rootCmd.AddCommand(analyzeCmd)
}
