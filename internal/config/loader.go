// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// Config file names searched by FindConfig, in order.
var configNames = []string{
	"buildwatch.hjson",
	"buildwatch.json",
}

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Parse HJSON to intermediate map
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	// Convert to JSON and unmarshal to struct (for type safety)
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Project.Root == "" {
		cfg.Project.Root = filepath.Dir(path)
	}
	if abs, err := filepath.Abs(cfg.Project.Root); err == nil {
		cfg.Project.Root = abs
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied and
// templates expanded.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig(root string) (*Config, error) {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return finish(&Config{Project: ProjectConfig{Root: root}})
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	return NewTemplateExpander().ExpandConfig(cfg, &TemplateContext{
		Project: ProjectTemplateData{Root: cfg.Project.Root, Name: cfg.Project.Name},
	})
}

// FindConfig searches for a config file in dir.
// It looks for buildwatch.hjson first, then buildwatch.json.
func (l *Loader) FindConfig(dir string) (string, error) {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("config file not found (looked for buildwatch.hjson, buildwatch.json): %w", os.ErrNotExist)
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cfg.Project.Root)
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7420
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}

	// Diagnostics defaults
	if cfg.Diagnostics.DBPath == "" {
		cfg.Diagnostics.DBPath = "{{.Project.Root}}/.buildwatch/diagnostics.db"
	}
	if cfg.Diagnostics.StatusFile == "" {
		cfg.Diagnostics.StatusFile = "{{.Project.Root}}/.buildwatch/current_build_status.json"
	}
	if cfg.Diagnostics.TrendWindowDays == 0 {
		cfg.Diagnostics.TrendWindowDays = 7
	}

	// Build defaults
	if cfg.Build.WorkDir == "" {
		cfg.Build.WorkDir = "{{.Project.Root}}"
	}
	if cfg.Build.Timeout == "" {
		cfg.Build.Timeout = "10m"
	}
	if cfg.Build.WatchPattern == "" {
		cfg.Build.WatchPattern = "*.log"
	}
	if cfg.Build.Debounce == "" {
		cfg.Build.Debounce = "500ms"
	}

	// Monitor defaults
	if cfg.Monitor.LogDir == "" {
		cfg.Monitor.LogDir = "{{.Project.Root}}/.buildwatch/runtime"
	}
	if cfg.Monitor.LogBufferSize == 0 {
		cfg.Monitor.LogBufferSize = 10000
	}
	if cfg.Monitor.ErrorBufferSize == 0 {
		cfg.Monitor.ErrorBufferSize = 1000
	}
	if cfg.Monitor.StopTimeout == "" {
		cfg.Monitor.StopTimeout = "5s"
	}

	// Crash defaults
	if cfg.Crashes.ReportsDir == "" {
		cfg.Crashes.ReportsDir = "{{.Project.Root}}/.buildwatch/crashes"
	}
	if cfg.Crashes.RecentLogs == 0 {
		cfg.Crashes.RecentLogs = 100
	}
	if cfg.Crashes.RecentErrors == 0 {
		cfg.Crashes.RecentErrors = 20
	}

	// Events defaults
	if cfg.Events.History.MaxEvents == 0 {
		cfg.Events.History.MaxEvents = 1000
	}
	if cfg.Events.History.MaxAge == "" {
		cfg.Events.History.MaxAge = "24h"
	}
}
