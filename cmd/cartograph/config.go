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
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration, loaded from YAML with environment
// overrides applied on top.
type Config struct {
	// ServerURL is the diagram backend base URL.
	ServerURL string `yaml:"server_url" validate:"required,url"`

	// Language is the target language for generated content.
	Language string `yaml:"language" validate:"required"`

	// Storage configures the durable history store.
	Storage StorageConfig `yaml:"storage"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`
}

// StorageConfig selects and locates the history backend.
type StorageConfig struct {
	// Backend is "file" or "badger".
	Backend string `yaml:"backend" validate:"oneof=file badger"`

	// Dir is the state directory. Defaults to ~/.cartograph.
	Dir string `yaml:"dir" validate:"required"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	stateDir := "~/.cartograph"
	if home, err := os.UserHomeDir(); err == nil {
		stateDir = filepath.Join(home, ".cartograph")
	}
	return Config{
		ServerURL: "http://localhost:8001",
		Language:  "en",
		Storage:   StorageConfig{Backend: "file", Dir: stateDir},
		Log:       LogConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from path (default
// ~/.cartograph/config.yaml), layering the file over the defaults and
// environment variables over the file. A missing file is not an error;
// the defaults stand.
//
// Environment overrides: CARTOGRAPH_SERVER_URL, CARTOGRAPH_LANGUAGE,
// CARTOGRAPH_LOG_LEVEL, CARTOGRAPH_STATE_DIR.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = filepath.Join(cfg.Storage.Dir, "config.yaml")
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if v := os.Getenv("CARTOGRAPH_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("CARTOGRAPH_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv("CARTOGRAPH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CARTOGRAPH_STATE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
