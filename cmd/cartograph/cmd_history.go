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

// historyCmd lists recently analyzed projects, most recent first.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently analyzed projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := buildSession()
		if err != nil {
			return err
		}
		defer cleanup()

		entries := s.History().List()
		if len(entries) == 0 {
			fmt.Println("No projects analyzed yet.")
			return nil
		}
		for i, e := range entries {
			fmt.Printf("%2d. %s  (%d diagrams, last opened %s)\n",
				i+1, e.Path, e.DiagramCount, e.LastAccessed.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
