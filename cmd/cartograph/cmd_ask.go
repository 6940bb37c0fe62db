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

	"github.com/CartographAI/cartograph/services/explorer/remote"
)

// askCmd streams a free-form question about the codebase. When the
// backend resolves the question into a diagram action instead of a
// text answer, the diagram is created or modified and reported.
//
// # Examples
//
//	cartograph ask ./myrepo "how does authentication work?"
//	cartograph ask ./myrepo "diagram the deploy pipeline"
var askCmd = &cobra.Command{
	Use:   "ask <path> <question...>",
	Short: "Ask a free-form question about a codebase",
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

		spin := newSpinner("Thinking")
		spin.Start()
		streaming := false

		result, err := s.Ask(cmd.Context(), project, prompt, func(ev remote.StreamEvent) {
			switch ev.Type {
			case remote.EventStatus:
				spin.Update(ev.Message)
			case remote.EventToken:
				if !streaming {
					spin.Stop()
					streaming = true
				}
				if stderrIsTerminal() {
					fmt.Print(ev.Content)
				}
			}
		})
		spin.Stop()
		if err != nil {
			return err
		}

		if streaming && stderrIsTerminal() {
			fmt.Println()
		} else if result.Answer != "" {
			fmt.Println(result.Answer)
		}

		if result.Action != nil {
			fmt.Printf("\nResolved into a %s action: %q\n", result.Action.Kind, result.Action.TargetName)
			if active, ok := s.Tabs().Active(project); ok {
				fmt.Printf("Diagram %s is ready (%d nodes)\n", active.SectionID, len(active.Nodes))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
