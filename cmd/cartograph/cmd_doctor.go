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
	"time"

	"github.com/spf13/cobra"

	"github.com/CartographAI/cartograph/services/explorer/remote"
)

// doctorCmd checks backend connectivity and local state.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check backend connectivity and local configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Server:    %s\n", config.ServerURL)
		fmt.Printf("State dir: %s (%s backend)\n", config.Storage.Dir, config.Storage.Backend)

		if _, err := os.Stat(config.Storage.Dir); err != nil {
			fmt.Println("State dir: not created yet (created on first analyze)")
		}

		client := remote.NewClient(config.ServerURL, remote.WithClientLogger(logger))
		start := time.Now()
		if err := client.Health(cmd.Context()); err != nil {
			fmt.Printf("Backend:   UNREACHABLE (%v)\n", err)
			return fmt.Errorf("backend health check failed")
		}
		fmt.Printf("Backend:   ok (%.0fms)\n", float64(time.Since(start).Microseconds())/1000)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
