// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package diagnostics persists build events, their diagnostics and the
// solutions that fixed them, and answers ranking and trend queries over
// that history.
package diagnostics

import "time"

// BuildStatus is the outcome of a build.
type BuildStatus string

const (
	StatusSuccess BuildStatus = "success"
	StatusWarning BuildStatus = "warning"
	StatusError   BuildStatus = "error"
)

// Valid reports whether s is a known build status.
func (s BuildStatus) Valid() bool {
	switch s {
	case StatusSuccess, StatusWarning, StatusError:
		return true
	}
	return false
}

// Severity is the severity of a single diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Category is a coarse classification of a diagnostic message.
type Category string

const (
	CategoryImports          Category = "imports"
	CategoryStringFormatting Category = "string_formatting"
	CategoryConcurrency      Category = "concurrency"
	CategorySyntax           Category = "syntax"
	CategoryTypeErrors       Category = "type_errors"
	CategoryUnusedCode       Category = "unused_code"
	CategoryOther            Category = "other"
)

// BuildEvent is one recorded build.
type BuildEvent struct {
	ID           int64       `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	ProjectPath  string      `json:"project_path"`
	Status       BuildStatus `json:"status"`
	Duration     *float64    `json:"duration_seconds,omitempty"`
	WarningCount int         `json:"warning_count"`
	ErrorCount   int         `json:"error_count"`
	Scheme       string      `json:"scheme,omitempty"`
	Target       string      `json:"target,omitempty"`
}

// BuildEventInput carries the fields of a build event to record.
type BuildEventInput struct {
	Status       BuildStatus `json:"status"`
	Duration     *float64    `json:"duration_seconds,omitempty"`
	WarningCount int         `json:"warning_count"`
	ErrorCount   int         `json:"error_count"`
	Scheme       string      `json:"scheme,omitempty"`
	Target       string      `json:"target,omitempty"`
}

// DiagnosticInput carries the fields of a diagnostic to record. An empty
// Category is filled in by Categorize.
type DiagnosticInput struct {
	Severity Severity `json:"severity"`
	FilePath string   `json:"file_path"`
	Line     *int     `json:"line_number,omitempty"`
	Message  string   `json:"message"`
	Category Category `json:"category,omitempty"`
}

// Diagnostic is a stored compiler diagnostic.
type Diagnostic struct {
	ID           int64    `json:"id"`
	BuildEventID int64    `json:"build_event_id"`
	Severity     Severity `json:"severity"`
	FilePath     string   `json:"file_path"`
	Line         *int     `json:"line_number,omitempty"`
	Message      string   `json:"message"`
	Fingerprint  string   `json:"message_fingerprint"`
	Category     Category `json:"category"`
}

// RecentDiagnostic is a diagnostic joined with its build's time and status.
type RecentDiagnostic struct {
	Diagnostic
	Timestamp   time.Time   `json:"timestamp"`
	BuildStatus BuildStatus `json:"build_status"`
}

// Solution is a known fix for diagnostics sharing a fingerprint.
type Solution struct {
	ID           int64     `json:"id"`
	Fingerprint  string    `json:"message_fingerprint"`
	Text         string    `json:"solution"`
	FixPattern   string    `json:"fix_pattern,omitempty"`
	SuccessCount int       `json:"success_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FrequentIssue groups recurring errors by fingerprint.
type FrequentIssue struct {
	Fingerprint  string    `json:"message_fingerprint"`
	Message      string    `json:"message"`
	Category     Category  `json:"category"`
	FilePath     string    `json:"file_path"`
	Frequency    int       `json:"frequency"`
	BestSolution *Solution `json:"best_solution,omitempty"`
}

// FileIssueCount is the number of error and warning diagnostics in a file.
type FileIssueCount struct {
	FilePath string `json:"file_path"`
	Issues   int    `json:"issues"`
}

// BuildTrends summarizes builds over a trailing window.
type BuildTrends struct {
	WindowDays       int              `json:"window_days"`
	TotalBuilds      int              `json:"total_builds"`
	SuccessfulBuilds int              `json:"successful_builds"`
	SuccessRate      float64          `json:"success_rate"`
	AvgDuration      *float64         `json:"avg_duration_seconds,omitempty"`
	ProblematicFiles []FileIssueCount `json:"problematic_files"`
}
