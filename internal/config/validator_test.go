// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := DefaultConfig(t.TempDir())
	require.NoError(t, err)
	return cfg
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok, "expected *ValidationError, got %T", err)
	fields := make(map[string]string)
	for _, fe := range verr.Errors {
		fields[fe.Field] = fe.Message
	}
	return fields
}

func TestValidator_Validate_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Build.Command = "xcodebuild build"
	cfg.Monitor.Command = []interface{}{"tail", "-F", "app.log"}
	assert.NoError(t, NewValidator().Validate(cfg))
}

func TestValidator_Validate_ServerConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ServerConfig)
		field  string
	}{
		{"port too high", func(s *ServerConfig) { s.Port = 70000 }, "server.port"},
		{"negative port", func(s *ServerConfig) { s.Port = -1 }, "server.port"},
		{"cert without key", func(s *ServerConfig) { s.TLSCert = "cert.pem" }, "server"},
		{"tailscale with cert", func(s *ServerConfig) {
			s.TLSTailscale = true
			s.TLSCert = "cert.pem"
			s.TLSKey = "key.pem"
		}, "server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.modify(&cfg.Server)
			fields := fieldErrors(t, NewValidator().Validate(cfg))
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidator_Validate_TailscaleAlone(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.TLSTailscale = true
	assert.NoError(t, NewValidator().Validate(cfg))
}

func TestValidator_Validate_Sections(t *testing.T) {
	cfg := validConfig(t)
	cfg.Diagnostics.DBPath = ""
	cfg.Diagnostics.TrendWindowDays = -1
	cfg.Build.Command = ""
	cfg.Build.WatchPattern = "["
	cfg.Monitor.LogBufferSize = -5
	cfg.Crashes.RecentLogs = 500
	cfg.Crashes.RecentErrors = 21

	fields := fieldErrors(t, NewValidator().Validate(cfg))
	for _, f := range []string{
		"diagnostics.db_path",
		"diagnostics.trend_window_days",
		"build.command",
		"build.watch_pattern",
		"monitor.log_buffer_size",
		"crashes.recent_logs",
		"crashes.recent_errors",
	} {
		assert.Contains(t, fields, f)
	}
}

func TestValidator_Validate_DurationFormats(t *testing.T) {
	cfg := validConfig(t)
	cfg.Build.Timeout = "ten minutes"
	cfg.Build.Debounce = "-1s"
	cfg.Monitor.StopTimeout = "5s"
	cfg.Events.History.MaxAge = "7d"

	fields := fieldErrors(t, NewValidator().Validate(cfg))
	assert.Contains(t, fields["build.timeout"], "invalid duration format")
	assert.Equal(t, "must be positive", fields["build.debounce"])
	assert.NotContains(t, fields, "monitor.stop_timeout")
	assert.NotContains(t, fields, "events.history.max_age")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{}
	err.Add("field1", "error1")
	err.Add("field2", "error2")

	assert.Equal(t, "field1: error1; field2: error2", err.Error())
}

func TestValidationError_IsEmpty(t *testing.T) {
	err := &ValidationError{}
	assert.True(t, err.IsEmpty())

	err.Add("field", "error")
	assert.False(t, err.IsEmpty())
}
