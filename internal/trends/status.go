// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wingedpig/buildwatch/internal/recorder"
)

// StatusFileName is the default name of the current build status file.
const StatusFileName = "current_build_status.json"

// CurrentBuild is the last recorded build as cached on disk.
type CurrentBuild struct {
	LastBuildTime time.Time                   `json:"last_build_time"`
	BuildEventID  int64                       `json:"build_event_id"`
	BuildStatus   string                      `json:"build_status"`
	WarningsCount int                         `json:"warnings_count"`
	ErrorsCount   int                         `json:"errors_count"`
	Duration      *float64                    `json:"duration,omitempty"`
	Diagnostics   []recorder.ParsedDiagnostic `json:"diagnostics"`
}

// StatusCache persists the most recent build to a JSON file. It is
// registered as a recorder observer.
type StatusCache struct {
	mu       sync.Mutex
	filePath string
}

// NewStatusCache creates a cache backed by filePath.
func NewStatusCache(filePath string) *StatusCache {
	return &StatusCache{filePath: filePath}
}

// Path returns the backing file path.
func (c *StatusCache) Path() string {
	return c.filePath
}

// BuildRecorded implements recorder.Observer.
func (c *StatusCache) BuildRecorded(ctx context.Context, rec recorder.BuildRecord) {
	cur := CurrentBuild{
		LastBuildTime: rec.RecordedAt,
		BuildEventID:  rec.EventID,
		BuildStatus:   string(rec.Result.Status),
		WarningsCount: rec.Result.WarningCount,
		ErrorsCount:   rec.Result.ErrorCount,
		Duration:      rec.Result.Duration,
		Diagnostics:   rec.Result.Diagnostics,
	}
	if cur.Diagnostics == nil {
		cur.Diagnostics = []recorder.ParsedDiagnostic{}
	}
	if err := c.Save(cur); err != nil {
		log.Printf("Status cache: %v", err)
	}
}

// Load reads the cached build. Returns nil if nothing has been recorded.
func (c *StatusCache) Load() (*CurrentBuild, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read build status file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var cur CurrentBuild
	if err := json.Unmarshal(data, &cur); err != nil {
		return nil, fmt.Errorf("parse build status file: %w", err)
	}
	return &cur, nil
}

// Save writes the build status to disk atomically (write tmp + rename).
func (c *StatusCache) Save(cur CurrentBuild) error {
	data, err := json.MarshalIndent(cur, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal build status: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return fmt.Errorf("create build status dir: %w", err)
	}

	tmpPath := c.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp build status file: %w", err)
	}
	if err := os.Rename(tmpPath, c.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename build status file: %w", err)
	}
	return nil
}
