// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package crashes

import (
	"fmt"
	"time"

	"github.com/wingedpig/buildwatch/internal/logs"
)

// CrashContext is the forensic snapshot written when a fatal or crash
// line is seen on a monitored stream.
type CrashContext struct {
	Version         string          `json:"version"`          // Report format version
	ID              string          `json:"id"`               // Bundle id + capture time
	TriggeringError logs.LogEntry   `json:"triggering_error"` // The line that caused the capture
	BundleID        string          `json:"bundle_id"`
	Timestamp       time.Time       `json:"timestamp"` // Capture time
	RecentLogs      []logs.LogEntry `json:"recent_logs"`
	RecentErrors    []logs.LogEntry `json:"recent_errors"`
	SourceLogPath   string          `json:"source_log_path"` // Per-session log file
	Summary         CrashStats      `json:"summary"`
}

// CrashStats contains summary statistics for a crash report.
type CrashStats struct {
	TotalLogs   int            `json:"total_logs"`
	TotalErrors int            `json:"total_errors"`
	ByKind      map[string]int `json:"by_kind"`  // Errors per error kind
	ByLevel     map[string]int `json:"by_level"` // Log lines per level
}

// CrashSummary is a minimal representation for listing crashes.
type CrashSummary struct {
	ID        string         `json:"id"`
	BundleID  string         `json:"bundle_id"`
	Timestamp time.Time      `json:"timestamp"`
	ErrorKind logs.ErrorKind `json:"error_kind"`
	Error     string         `json:"error"`
	Path      string         `json:"path"`
}

// History is the source of recent entries for a capture.
type History interface {
	RecentLogs(count int) []logs.LogEntry
	RecentErrors(count int) []logs.LogEntry
}

// CaptureRequest describes a single capture.
type CaptureRequest struct {
	Trigger       logs.LogEntry
	BundleID      string
	SourceLogPath string
	History       History
}

// CaptureWriteError is returned when a crash artifact cannot be persisted.
type CaptureWriteError struct {
	Path string
	Err  error
}

func (e *CaptureWriteError) Error() string {
	return fmt.Sprintf("write crash context %s: %v", e.Path, e.Err)
}

func (e *CaptureWriteError) Unwrap() error {
	return e.Err
}
