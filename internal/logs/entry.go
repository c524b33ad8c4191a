// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logs holds the runtime log entry model, the runtime error
// taxonomy used to classify console lines, and the bounded ring buffers
// the monitor keeps them in.
package logs

import (
	"time"
)

// LogLevel represents a log severity level.
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

// ErrorKind is a runtime error category from the fixed taxonomy.
type ErrorKind string

const (
	KindFatal     ErrorKind = "fatal"
	KindCrash     ErrorKind = "crash"
	KindException ErrorKind = "exception"
	KindAssertion ErrorKind = "assertion"
	KindRange     ErrorKind = "range"
	KindNil       ErrorKind = "nil"
	KindMemory    ErrorKind = "memory"
	KindIndex     ErrorKind = "index"
)

// TriggersCapture reports whether an entry of this kind should produce a
// crash context artifact.
func (k ErrorKind) TriggersCapture() bool {
	return k == KindFatal || k == KindCrash
}

// RangeViolation carries bounds extracted from a range-construction failure.
type RangeViolation struct {
	Lower int64  `json:"lower"`
	Upper int64  `json:"upper"`
	Issue string `json:"issue,omitempty"`
}

// LogEntry represents a single classified runtime console line.
type LogEntry struct {
	// Timestamp is the time the line was received.
	Timestamp time.Time `json:"timestamp"`
	// Level is info for ordinary lines, error or fatal for classified ones.
	Level LogLevel `json:"level"`
	// Raw is the decoded line with surrounding whitespace removed.
	Raw string `json:"raw"`
	// IsError is true when the line matched a taxonomy pattern.
	IsError bool `json:"is_error"`
	// ErrorKind is the first matching taxonomy kind.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	// Range is set for range errors whose bounds could be extracted.
	Range *RangeViolation `json:"range,omitempty"`
	// Sequence is a monotonically increasing counter for ordering.
	Sequence uint64 `json:"sequence"`
}
