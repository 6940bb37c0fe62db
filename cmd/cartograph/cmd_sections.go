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

	"github.com/CartographAI/cartograph/services/explorer/remote"
)

var sectionsShowRefs bool

// sectionsCmd identifies sections without generating diagrams.
var sectionsCmd = &cobra.Command{
	Use:   "sections <path>",
	Short: "List the sections the backend would diagram, without generating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := resolveProject(args[0])
		if err != nil {
			return err
		}

		client := remote.NewClient(config.ServerURL, remote.WithClientLogger(logger))
		if err := client.EnsureIndexed(cmd.Context(), project); err != nil {
			logger.Warn("backend indexing not confirmed, continuing", "error", err.Error())
		}

		spin := newSpinner("Identifying sections")
		spin.Start()
		sections, err := client.IdentifySections(cmd.Context(), project, config.Language)
		spin.Stop()
		if err != nil {
			return err
		}

		for i, section := range sections {
			fmt.Printf("%2d. %-14s %s  (%s)\n", i+1, section.Type, section.Title, section.ID)
			if section.Description != "" {
				fmt.Printf("    %s\n", section.Description)
			}
			if sectionsShowRefs {
				refs, err := client.GetReferences(cmd.Context(), project, section.ID)
				if err != nil {
					logger.Warn("fetching references failed",
						"section", section.ID, "error", err.Error())
					continue
				}
				for _, ref := range refs {
					if ref.Lines != "" {
						fmt.Printf("      %s:%s - %s\n", ref.File, ref.Lines, ref.Relevance)
					} else {
						fmt.Printf("      %s - %s\n", ref.File, ref.Relevance)
					}
				}
			}
		}
		return nil
	},
}

func init() {
	sectionsCmd.Flags().BoolVar(&sectionsShowRefs, "refs", false,
		"also fetch the source references backing each section")
	rootCmd.AddCommand(sectionsCmd)
}
