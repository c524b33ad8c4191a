// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/wingedpig/buildwatch/internal/logs"
)

// State is the lifecycle state of a Monitor.
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateStopped   State = "stopped"
)

// Result statuses returned by Start and Stop.
const (
	StatusMonitoringStarted = "monitoring_started"
	StatusAlreadyRunning    = "already_running"
	StatusStopped           = "stopped"
	StatusNotRunning        = "not_running"
)

// StartResult describes the outcome of Start.
type StartResult struct {
	Status    string `json:"status"`
	BundleID  string `json:"bundle_id"`
	SessionID string `json:"session_id"`
	LogFile   string `json:"log_file"`
	PID       int    `json:"pid,omitempty"`
}

// StopResult describes the outcome of Stop.
type StopResult struct {
	Status         string `json:"status"`
	LogFile        string `json:"log_file,omitempty"`
	ErrorsCaptured int    `json:"errors_captured"`
}

// Status is a point-in-time view of the monitor.
type Status struct {
	Monitoring      bool       `json:"monitoring"`
	State           State      `json:"state"`
	BundleID        string     `json:"bundle_id,omitempty"`
	SessionID       string     `json:"session_id,omitempty"`
	LogFile         string     `json:"log_file,omitempty"`
	LogsInBuffer    int        `json:"logs_in_buffer"`
	ErrorsInBuffer  int        `json:"errors_in_buffer"`
	ProcessRunning  bool       `json:"process_running"`
	PID             int        `json:"pid,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CrashesCaptured int        `json:"crashes_captured"`
}

// Suggestion is a remediation hint for one error kind.
type Suggestion struct {
	Kind  logs.ErrorKind `json:"type"`
	Issue string         `json:"issue,omitempty"`
	Fixes []string       `json:"fixes"`
}

// Analysis summarizes the errors currently held by the monitor.
type Analysis struct {
	ErrorCount  int                    `json:"error_count"`
	ErrorTypes  map[logs.ErrorKind]int `json:"error_types,omitempty"`
	MostRecent  *logs.LogEntry         `json:"most_recent,omitempty"`
	Suggestions []Suggestion           `json:"suggestions,omitempty"`
	Insights    string                 `json:"insights,omitempty"`
}

// ProcessSpawnError is returned by Start when the log source cannot be
// launched. The monitor stays idle.
type ProcessSpawnError struct {
	Command []string
	Err     error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *ProcessSpawnError) Unwrap() error {
	return e.Err
}
