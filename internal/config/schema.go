// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading and template expansion.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure for buildwatch.
type Config struct {
	Version     string            `json:"version"`
	Project     ProjectConfig     `json:"project"`
	Server      ServerConfig      `json:"server"`
	Diagnostics DiagnosticsConfig `json:"diagnostics"`
	Build       BuildConfig       `json:"build"`
	Monitor     MonitorConfig     `json:"monitor"`
	Crashes     CrashesConfig     `json:"crashes"`
	Events      EventsConfig      `json:"events"`
}

// ProjectConfig contains project metadata.
type ProjectConfig struct {
	Name string `json:"name"`
	Root string `json:"root"` // Defaults to the config file directory
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int    `json:"port"`
	Host         string `json:"host"`
	TLSCert      string `json:"tls_cert"`      // Path to TLS certificate file (enables HTTPS if both cert and key set)
	TLSKey       string `json:"tls_key"`       // Path to TLS private key file
	TLSTailscale bool   `json:"tls_tailscale"` // Fetch certificates from the local Tailscale daemon
}

// DiagnosticsConfig configures the diagnostics store.
type DiagnosticsConfig struct {
	DBPath          string `json:"db_path"`
	SeedFile        string `json:"seed_file"` // Extra YAML solution seeds
	TrendWindowDays int    `json:"trend_window_days"`
	StatusFile      string `json:"status_file"` // Current build status cache
}

// BuildConfig configures the build runner and build log watcher.
type BuildConfig struct {
	Command      interface{}       `json:"command"` // string or []string
	WorkDir      string            `json:"work_dir"`
	Env          map[string]string `json:"env"`
	Timeout      string            `json:"timeout"`
	Scheme       string            `json:"scheme"`
	Target       string            `json:"target"`
	WatchDir     string            `json:"watch_dir"` // Enables the build log watcher
	WatchPattern string            `json:"watch_pattern"`
	Debounce     string            `json:"debounce"`
}

// MonitorConfig configures the runtime log monitor.
type MonitorConfig struct {
	BundleID        string            `json:"bundle_id"`
	Command         interface{}       `json:"command"` // string or []string; defaults to the simulator log stream
	WorkDir         string            `json:"work_dir"`
	Env             map[string]string `json:"env"`
	UsePTY          bool              `json:"use_pty"`
	LogDir          string            `json:"log_dir"`
	LogBufferSize   int               `json:"log_buffer_size"`
	ErrorBufferSize int               `json:"error_buffer_size"`
	StopTimeout     string            `json:"stop_timeout"`
}

// CrashesConfig configures crash context storage.
type CrashesConfig struct {
	ReportsDir   string `json:"reports_dir"`
	RecentLogs   int    `json:"recent_logs"`
	RecentErrors int    `json:"recent_errors"`
}

// EventsConfig configures the event system.
type EventsConfig struct {
	History EventHistoryConfig `json:"history"`
}

// EventHistoryConfig configures event history retention.
type EventHistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// TemplateContext provides data for template expansion.
type TemplateContext struct {
	Project ProjectTemplateData
}

// ProjectTemplateData provides project data for templates.
type ProjectTemplateData struct {
	Root string
	Name string
}

// ParseDuration parses a duration string, returning a default if empty.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := parseDurationWithDays(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// GetCommand returns the build command as a slice.
func (b *BuildConfig) GetCommand() []string {
	return commandSlice(b.Command)
}

// GetCommand returns the monitor command as a slice.
func (m *MonitorConfig) GetCommand() []string {
	return commandSlice(m.Command)
}

// commandSlice normalizes a string or array command.
func commandSlice(cmd interface{}) []string {
	switch c := cmd.(type) {
	case string:
		if c == "" {
			return nil
		}
		return splitCommand(c)
	case []string:
		return c
	case []interface{}:
		result := make([]string, 0, len(c))
		for _, v := range c {
			result = append(result, fmt.Sprint(v))
		}
		return result
	}
	return nil
}

// splitCommand splits a command string on whitespace, respecting quoted strings.
// Supports both single and double quotes.
func splitCommand(cmd string) []string {
	var result []string
	var current strings.Builder
	var inQuote rune
	var escape bool

	for _, r := range cmd {
		if escape {
			current.WriteRune(r)
			escape = false
			continue
		}

		if r == '\\' && inQuote != '\'' {
			escape = true
			continue
		}

		if inQuote != 0 {
			if r == inQuote {
				inQuote = 0
			} else {
				current.WriteRune(r)
			}
			continue
		}

		if r == '"' || r == '\'' {
			inQuote = r
			continue
		}

		if r == ' ' || r == '\t' || r == '\n' {
			if current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
			continue
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}
