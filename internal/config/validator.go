// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Upper bounds for crash snapshot sizes.
const (
	maxRecentLogs   = 100
	maxRecentErrors = 20
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateServer(cfg, errs)
	v.validateDiagnostics(cfg, errs)
	v.validateBuild(cfg, errs)
	v.validateMonitor(cfg, errs)
	v.validateCrashes(cfg, errs)
	v.validateDurations(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs.Add("server.port", "must be between 0 and 65535")
	}

	// tls_tailscale and tls_cert/tls_key are mutually exclusive
	hasCertKey := cfg.Server.TLSCert != "" || cfg.Server.TLSKey != ""
	if cfg.Server.TLSTailscale && hasCertKey {
		errs.Add("server", "tls_tailscale and tls_cert/tls_key are mutually exclusive")
	}
	if !cfg.Server.TLSTailscale && (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		errs.Add("server", "both tls_cert and tls_key must be specified together")
	}
}

func (v *Validator) validateDiagnostics(cfg *Config, errs *ValidationError) {
	if cfg.Diagnostics.DBPath == "" {
		errs.Add("diagnostics.db_path", "is required")
	}
	if cfg.Diagnostics.TrendWindowDays < 0 {
		errs.Add("diagnostics.trend_window_days", "must be positive")
	}
}

func (v *Validator) validateBuild(cfg *Config, errs *ValidationError) {
	if cfg.Build.Command != nil && len(cfg.Build.GetCommand()) == 0 {
		errs.Add("build.command", "must be a non-empty string or array")
	}
	if cfg.Build.WatchPattern != "" {
		if _, err := filepath.Match(cfg.Build.WatchPattern, ""); err != nil {
			errs.Add("build.watch_pattern", fmt.Sprintf("invalid glob: %s", err))
		}
	}
}

func (v *Validator) validateMonitor(cfg *Config, errs *ValidationError) {
	if cfg.Monitor.Command != nil && len(cfg.Monitor.GetCommand()) == 0 {
		errs.Add("monitor.command", "must be a non-empty string or array")
	}
	if cfg.Monitor.LogBufferSize < 0 {
		errs.Add("monitor.log_buffer_size", "must be positive")
	}
	if cfg.Monitor.ErrorBufferSize < 0 {
		errs.Add("monitor.error_buffer_size", "must be positive")
	}
}

func (v *Validator) validateCrashes(cfg *Config, errs *ValidationError) {
	if cfg.Crashes.RecentLogs < 0 || cfg.Crashes.RecentLogs > maxRecentLogs {
		errs.Add("crashes.recent_logs", fmt.Sprintf("must be between 0 and %d", maxRecentLogs))
	}
	if cfg.Crashes.RecentErrors < 0 || cfg.Crashes.RecentErrors > maxRecentErrors {
		errs.Add("crashes.recent_errors", fmt.Sprintf("must be between 0 and %d", maxRecentErrors))
	}
}

func (v *Validator) validateDurations(cfg *Config, errs *ValidationError) {
	durations := []struct {
		field string
		value string
	}{
		{"build.timeout", cfg.Build.Timeout},
		{"build.debounce", cfg.Build.Debounce},
		{"monitor.stop_timeout", cfg.Monitor.StopTimeout},
		{"events.history.max_age", cfg.Events.History.MaxAge},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := parseDurationWithDays(d.value)
		if err != nil {
			errs.Add(d.field, fmt.Sprintf("invalid duration format: %s", err))
		} else if parsed < 0 {
			errs.Add(d.field, "must be positive")
		}
	}
}

// parseDurationWithDays parses a duration string that may include days (e.g., "7d").
func parseDurationWithDays(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
