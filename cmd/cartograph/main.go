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

	"github.com/CartographAI/cartograph/pkg/logging"
)

var (
	config Config
	logger *logging.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		config = cfg

		logger = logging.New(logging.Config{
			Level:   logging.ParseLevel(config.Log.Level),
			LogDir:  config.Log.Dir,
			Service: "cartograph",
			JSON:    config.Log.JSON,
			Quiet:   quiet,
		})
		return nil
	}
}
