// Copyright (C) 2025 Cartograph AI (oss@cartograph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import "github.com/spf13/cobra"

var (
	configPath string
	serverURL  string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "cartograph",
	Short: "Explore a codebase as generated diagrams",
	Long: `Cartograph turns a codebase into an explorable set of diagrams.

The backend identifies the architectural sections worth visualizing,
generates a Mermaid diagram per section, and answers free-form questions
about the code. This CLI drives the full flow:

  cartograph analyze ./myrepo           # identify + generate all sections
  cartograph sections ./myrepo          # identify only
  cartograph ask ./myrepo "how does auth work?"
  cartograph retry ./myrepo <section-id>
  cartograph fix ./myrepo <section-id> --message "parse error at line 3"
  cartograph history                    # recently analyzed projects
  cartograph doctor                     # backend connectivity check`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.cartograph/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"backend URL, overrides the configured server_url")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress log output")
}
