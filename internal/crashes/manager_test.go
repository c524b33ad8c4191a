// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package crashes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/buildwatch/internal/events"
	"github.com/wingedpig/buildwatch/internal/logs"
)

type fakeHistory struct {
	logs   []logs.LogEntry
	errors []logs.LogEntry
}

func (h *fakeHistory) RecentLogs(count int) []logs.LogEntry {
	if count < len(h.logs) {
		return h.logs[len(h.logs)-count:]
	}
	return h.logs
}

func (h *fakeHistory) RecentErrors(count int) []logs.LogEntry {
	if count < len(h.errors) {
		return h.errors[len(h.errors)-count:]
	}
	return h.errors
}

func newHistory(nLogs, nErrors int) *fakeHistory {
	h := &fakeHistory{}
	for i := 0; i < nLogs; i++ {
		h.logs = append(h.logs, logs.LogEntry{Raw: fmt.Sprintf("log %d", i), Level: logs.LevelInfo})
	}
	for i := 0; i < nErrors; i++ {
		h.errors = append(h.errors, logs.LogEntry{Raw: fmt.Sprintf("err %d", i), Level: logs.LevelError, IsError: true, ErrorKind: logs.KindNil})
	}
	return h
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestManager_CaptureAndGet(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(Config{ReportsDir: dir}, nil)
	require.NoError(t, err)
	mgr.now = fixedClock(time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC))

	trigger := logs.LogEntry{Raw: "Fatal error: boom", IsError: true, ErrorKind: logs.KindFatal, Level: logs.LevelFatal}
	crash, err := mgr.Capture(CaptureRequest{
		Trigger:       trigger,
		BundleID:      "com.example.app",
		SourceLogPath: "/tmp/runtime.log",
		History:       newHistory(250, 40),
	})
	require.NoError(t, err)

	assert.Equal(t, "com.example.app_20260504_103000", crash.ID)
	assert.Len(t, crash.RecentLogs, DefaultRecentLogs)
	assert.Len(t, crash.RecentErrors, DefaultRecentErrors)
	assert.Equal(t, "log 249", crash.RecentLogs[len(crash.RecentLogs)-1].Raw)
	assert.Equal(t, 20, crash.Summary.ByKind[string(logs.KindNil)])

	assert.FileExists(t, filepath.Join(dir, "crash_context_com.example.app_20260504_103000.json"))

	loaded, err := mgr.Get(crash.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fatal error: boom", loaded.TriggeringError.Raw)
	assert.Equal(t, "com.example.app", loaded.BundleID)
	assert.Equal(t, "/tmp/runtime.log", loaded.SourceLogPath)
}

func TestManager_CaptureNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(Config{ReportsDir: dir}, nil)
	require.NoError(t, err)
	mgr.now = fixedClock(time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC))

	first, err := mgr.Capture(CaptureRequest{Trigger: logs.LogEntry{Raw: "first"}, BundleID: "app"})
	require.NoError(t, err)
	second, err := mgr.Capture(CaptureRequest{Trigger: logs.LogEntry{Raw: "second"}, BundleID: "app"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	loaded, err := mgr.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", loaded.TriggeringError.Raw)

	loaded, err = mgr.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.TriggeringError.Raw)
}

func TestManager_CaptureWriteError(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(Config{ReportsDir: dir}, nil)
	require.NoError(t, err)

	// Pull the directory out from under the manager.
	require.NoError(t, os.RemoveAll(dir))

	_, err = mgr.Capture(CaptureRequest{Trigger: logs.LogEntry{Raw: "x"}, BundleID: "app"})
	require.Error(t, err)

	var cwe *CaptureWriteError
	assert.True(t, errors.As(err, &cwe))
}

func TestManager_FailedWriteLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(Config{ReportsDir: dir}, nil)
	require.NoError(t, err)
	mgr.write = func(f *os.File, data []byte) error {
		f.Write(data[:len(data)/2])
		f.Close()
		return errors.New("disk full")
	}

	_, err = mgr.Capture(CaptureRequest{Trigger: logs.LogEntry{Raw: "x"}, BundleID: "app"})
	var cwe *CaptureWriteError
	require.True(t, errors.As(err, &cwe))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManager_ListAndNewest(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(Config{ReportsDir: dir}, nil)
	require.NoError(t, err)

	newest, err := mgr.Newest()
	require.NoError(t, err)
	assert.Nil(t, newest)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		mgr.now = fixedClock(base.Add(time.Duration(i) * time.Minute))
		_, err := mgr.Capture(CaptureRequest{
			Trigger:  logs.LogEntry{Raw: fmt.Sprintf("crash %d", i), ErrorKind: logs.KindCrash},
			BundleID: "app",
		})
		require.NoError(t, err)
	}

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0644))

	summaries, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.True(t, summaries[0].Timestamp.After(summaries[1].Timestamp))
	assert.Equal(t, "crash 2", summaries[0].Error)
	assert.Equal(t, logs.KindCrash, summaries[0].ErrorKind)

	newest, err = mgr.Newest()
	require.NoError(t, err)
	require.NotNil(t, newest)
	assert.Equal(t, "crash 2", newest.TriggeringError.Raw)
}

func TestManager_GetRejectsTraversal(t *testing.T) {
	mgr, err := NewManager(Config{ReportsDir: t.TempDir()}, nil)
	require.NoError(t, err)

	for _, id := range []string{"", "../etc/passwd", "a/b"} {
		_, err := mgr.Get(id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestManager_PublishesEvent(t *testing.T) {
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{})
	defer bus.Close()

	var got []events.Event
	_, err := bus.Subscribe(events.EventCrashCaptured, func(ctx context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)

	mgr, err := NewManager(Config{ReportsDir: t.TempDir()}, bus)
	require.NoError(t, err)

	_, err = mgr.Capture(CaptureRequest{Trigger: logs.LogEntry{Raw: "Thread 1: signal SIGABRT", ErrorKind: logs.KindCrash}, BundleID: "app"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "app", got[0].Payload["bundle_id"])
	assert.Equal(t, "crash", got[0].Payload["error_kind"])
}

func TestSanitizeBundleID(t *testing.T) {
	assert.Equal(t, "com.example.app", sanitizeBundleID("com.example.app"))
	assert.Equal(t, "a_b", sanitizeBundleID("a/b"))
	assert.Equal(t, "unknown", sanitizeBundleID(""))
	assert.Equal(t, "unknown", sanitizeBundleID(".."))
}
