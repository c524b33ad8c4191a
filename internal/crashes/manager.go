// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package crashes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wingedpig/buildwatch/internal/events"
	"github.com/wingedpig/buildwatch/internal/logs"
)

const crashReportVersion = "1.0"

// ErrInvalidID is returned by Get for ids that cannot name a crash file.
var ErrInvalidID = errors.New("invalid crash id")

const (
	filePrefix    = "crash_context_"
	fileSuffix    = ".json"
	idTimeLayout  = "20060102_150405"
	maxCollisions = 100
)

// Defaults for the snapshot sizes.
const (
	DefaultRecentLogs   = 100
	DefaultRecentErrors = 20
)

// Config holds configuration for crash storage.
type Config struct {
	ReportsDir   string // Directory to store crash files
	RecentLogs   int    // Max log lines per snapshot
	RecentErrors int    // Max error lines per snapshot
}

// Manager captures crash contexts and reads them back. Artifacts are
// write-once; a capture never replaces an existing file.
type Manager struct {
	mu       sync.RWMutex
	config   Config
	eventBus events.EventBus
	now      func() time.Time
	write    func(f *os.File, data []byte) error
}

// NewManager creates a new crash manager.
func NewManager(cfg Config, bus events.EventBus) (*Manager, error) {
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = filepath.Join(os.TempDir(), "buildwatch", "crashes")
	}
	if cfg.RecentLogs <= 0 || cfg.RecentLogs > DefaultRecentLogs {
		cfg.RecentLogs = DefaultRecentLogs
	}
	if cfg.RecentErrors <= 0 || cfg.RecentErrors > DefaultRecentErrors {
		cfg.RecentErrors = DefaultRecentErrors
	}

	if err := os.MkdirAll(cfg.ReportsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create crashes directory: %w", err)
	}

	return &Manager{
		config:   cfg,
		eventBus: bus,
		now:      time.Now,
		write:    writeAndClose,
	}, nil
}

// Dir returns the directory crash contexts are written to.
func (m *Manager) Dir() string {
	return m.config.ReportsDir
}

// Capture assembles a crash context from the request and persists it.
// The returned error is always a *CaptureWriteError when the artifact
// could not be written.
func (m *Manager) Capture(req CaptureRequest) (*CrashContext, error) {
	ts := m.now()

	crash := &CrashContext{
		Version:         crashReportVersion,
		TriggeringError: req.Trigger,
		BundleID:        req.BundleID,
		Timestamp:       ts,
		SourceLogPath:   req.SourceLogPath,
	}
	if req.History != nil {
		crash.RecentLogs = req.History.RecentLogs(m.config.RecentLogs)
		crash.RecentErrors = req.History.RecentErrors(m.config.RecentErrors)
	}
	crash.Summary = buildSummary(crash.RecentLogs, crash.RecentErrors)

	path, err := m.save(crash)
	if err != nil {
		return nil, err
	}

	log.Printf("Crash context captured for %s: %s", req.BundleID, path)

	if m.eventBus != nil {
		m.eventBus.Publish(context.Background(), events.Event{
			Type: events.EventCrashCaptured,
			Payload: map[string]interface{}{
				"id":         crash.ID,
				"bundle_id":  crash.BundleID,
				"error_kind": string(req.Trigger.ErrorKind),
				"error":      req.Trigger.Raw,
				"path":       path,
			},
		})
	}

	return crash, nil
}

// save writes the crash with O_EXCL, picking a suffixed id when another
// capture already claimed the same second.
func (m *Manager) save(crash *CrashContext) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := sanitizeBundleID(crash.BundleID) + "_" + crash.Timestamp.Format(idTimeLayout)

	for i := 0; i < maxCollisions; i++ {
		id := base
		if i > 0 {
			id = fmt.Sprintf("%s_%d", base, i)
		}
		crash.ID = id
		path := m.pathFor(id)

		data, err := json.MarshalIndent(crash, "", "  ")
		if err != nil {
			return "", &CaptureWriteError{Path: path, Err: err}
		}

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", &CaptureWriteError{Path: path, Err: err}
		}

		if err := m.write(f, data); err != nil {
			os.Remove(path)
			return "", &CaptureWriteError{Path: path, Err: err}
		}
		return path, nil
	}

	return "", &CaptureWriteError{Path: m.pathFor(base), Err: fs.ErrExist}
}

func writeAndClose(f *os.File, data []byte) error {
	_, err := f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// List returns all crashes, sorted by timestamp (newest first).
func (m *Manager) List() ([]CrashSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries, err := os.ReadDir(m.config.ReportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read crashes directory: %w", err)
	}

	var summaries []CrashSummary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}

		crash, err := m.loadCrash(name)
		if err != nil {
			continue
		}

		summaries = append(summaries, CrashSummary{
			ID:        crash.ID,
			BundleID:  crash.BundleID,
			Timestamp: crash.Timestamp,
			ErrorKind: crash.TriggeringError.ErrorKind,
			Error:     crash.TriggeringError.Raw,
			Path:      filepath.Join(m.config.ReportsDir, name),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})

	return summaries, nil
}

// Get retrieves a specific crash by ID.
func (m *Manager) Get(id string) (*CrashContext, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.loadCrash(filePrefix + id + fileSuffix)
}

// Newest returns the most recent crash, or nil when none exist.
func (m *Manager) Newest() (*CrashContext, error) {
	summaries, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}

	return m.Get(summaries[0].ID)
}

func (m *Manager) pathFor(id string) string {
	return filepath.Join(m.config.ReportsDir, filePrefix+id+fileSuffix)
}

// loadCrash loads a crash from disk.
func (m *Manager) loadCrash(filename string) (*CrashContext, error) {
	data, err := os.ReadFile(filepath.Join(m.config.ReportsDir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read crash file: %w", err)
	}

	var crash CrashContext
	if err := json.Unmarshal(data, &crash); err != nil {
		return nil, fmt.Errorf("failed to unmarshal crash: %w", err)
	}

	return &crash, nil
}

func buildSummary(recent, errs []logs.LogEntry) CrashStats {
	summary := CrashStats{
		TotalLogs:   len(recent),
		TotalErrors: len(errs),
		ByKind:      make(map[string]int),
		ByLevel:     make(map[string]int),
	}
	for _, e := range recent {
		summary.ByLevel[string(e.Level)]++
	}
	for _, e := range errs {
		if e.ErrorKind != "" {
			summary.ByKind[string(e.ErrorKind)]++
		}
	}
	return summary
}

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeBundleID(bundleID string) string {
	s := unsafeIDChars.ReplaceAllString(bundleID, "_")
	s = strings.Trim(s, ".")
	if s == "" {
		return "unknown"
	}
	return s
}
