// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var generateRefFiles []string

// generateCmd generates a one-off custom diagram from a prompt. The
// section becomes first-class: it joins the identified list and future
// analyze runs of the same session see it.
//
// # Examples
//
//	cartograph generate ./myrepo "the request lifecycle end to end"
//	cartograph generate ./myrepo "the cache layer" --ref internal/cache/store.go
var generateCmd = &cobra.Command{
	Use:   "generate <path> <prompt...>",
	Short: "Generate a custom diagram from a free-form prompt",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := resolveProject(args[0])
		if err != nil {
			return err
		}
		prompt := strings.Join(args[1:], " ")

		s, cleanup, err := buildSession()
		if err != nil {
			return err
		}
		defer cleanup()

		spin := newSpinner("Generating diagram")
		spin.Start()
		payload, err := s.GenerateCustom(cmd.Context(), project, prompt, generateRefFiles...)
		spin.Stop()
		if err != nil {
			return err
		}

		fmt.Printf("✓ %s (%s, %d nodes, %d edges)\n\n%s\n",
			payload.Title, payload.SectionID, len(payload.Nodes), len(payload.Edges),
			payload.Diagram.MermaidCode)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringSliceVar(&generateRefFiles, "ref", nil,
		"reference files that bypass server-side retrieval (repeatable)")
	rootCmd.AddCommand(generateCmd)
}
