// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/buildwatch/internal/config"
	"github.com/wingedpig/buildwatch/internal/logs"
	"github.com/wingedpig/buildwatch/internal/trends"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// run executes the CLI with args and returns combined output.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "buildwatch "+version+"\n", out)
}

func TestInit_Defaults(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "", "--dir", dir, "init", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+filepath.Join(dir, configFileName))

	cfg, err := config.NewLoader().LoadWithDefaults(context.Background(), filepath.Join(dir, configFileName))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), cfg.Project.Name)
	assert.Equal(t, 7420, cfg.Server.Port)
	assert.Equal(t, "xcodebuild", cfg.Build.GetCommand()[0])
	assert.Empty(t, cfg.Build.WatchDir)
	assert.Empty(t, cfg.Monitor.BundleID)
	require.NoError(t, config.NewValidator().Validate(cfg))

	_, err = run(t, "", "--dir", dir, "init", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInit_Prompts(t *testing.T) {
	dir := t.TempDir()
	answers := strings.Join([]string{"weather", "9100", "make app", "", "com.example.weather", "logs"}, "\n") + "\n"

	out, err := run(t, answers, "--dir", dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Project name [")

	cfg, err := config.NewLoader().LoadWithDefaults(context.Background(), filepath.Join(dir, configFileName))
	require.NoError(t, err)
	assert.Equal(t, "weather", cfg.Project.Name)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, []string{"make", "app"}, cfg.Build.GetCommand())
	assert.Equal(t, filepath.Base(dir), cfg.Build.Scheme)
	assert.Equal(t, "com.example.weather", cfg.Monitor.BundleID)
	assert.Equal(t, filepath.Join(dir, "logs"), cfg.Build.WatchDir)
}

func TestRecordStatusAndSolutions(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "build.log")
	writeFile(t, logPath, strings.Join([]string{
		"Sources/View.swift:42:10: error: Extra argument 'specifier' in call",
		"Sources/Model.swift:7:1: warning: variable 'x' was never used",
		"** BUILD FAILED **",
	}, "\n"))

	out, err := run(t, "", "--dir", dir, "record", logPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Build #1: error (1 errors, 1 warnings)")
	assert.Contains(t, out, "error Sources/View.swift:42: Extra argument 'specifier' in call")
	assert.Contains(t, out, "fix: Use String(format:")
	assert.Contains(t, out, "warning Sources/Model.swift:7")

	out, err = run(t, "", "--dir", dir, "status", "--json")
	require.NoError(t, err)
	var report trends.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotNil(t, report.CurrentBuild)
	assert.Equal(t, 1, report.CurrentBuild.ErrorsCount)
	require.Len(t, report.ImmediateSolutions, 1)
	assert.Equal(t, 42, report.ImmediateSolutions[0].Line)

	out, err = run(t, "", "--dir", dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Immediate solutions")
	assert.Contains(t, out, "Runtime monitoring: inactive")

	out, err = run(t, "", "--dir", dir, "issues")
	require.NoError(t, err)
	assert.Contains(t, out, "1x Extra argument 'specifier' in call")

	out, err = run(t, "", "--dir", dir, "solution", "add",
		"--message", "Cannot find 'FooKit' in scope", "--solution", "import FooKit")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded solution")

	out, err = run(t, "", "--dir", dir, "solution", "best", "Cannot", "find", "'FooKit'", "in", "scope")
	require.NoError(t, err)
	assert.Contains(t, out, "fix: import FooKit")

	out, err = run(t, "", "--dir", dir, "solution", "best", "never seen before")
	require.NoError(t, err)
	assert.Equal(t, "No known solution\n", out)
}

func TestRecord_JSONFromStdin(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, `{"status":"success","duration_seconds":3.5}`, "--dir", dir, "record", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "Build #1: success in 3.5s (0 errors, 0 warnings)")

	out, err = run(t, "", "--dir", dir, "trends", "--days", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Builds:        1")
	assert.Contains(t, out, "Success rate:  100.0% excellent")

	_, err = run(t, `{"status":"bogus"}`, "--dir", dir, "record", "--json")
	require.Error(t, err)
}

func TestSolutionAdd_RequiresTarget(t *testing.T) {
	_, err := run(t, "", "--dir", t.TempDir(), "solution", "add", "--solution", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--message or --fingerprint")
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, configFileName), `{
		build: {
			command: ["sh", "-c", "echo 'App.swift:3:5: error: boom'; echo '** BUILD FAILED **'; exit 65"]
		}
	}`)

	out, err := run(t, "", "--dir", dir, "build")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBuildFailed))
	assert.Contains(t, out, "error App.swift:3: boom")
}

func TestBuild_NoCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, configFileName), `{ project: { name: "empty" } }`)

	_, err := run(t, "", "--dir", dir, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no build command configured")
}

func TestCrashes_None(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "", "--dir", dir, "crashes")
	require.NoError(t, err)
	assert.Equal(t, "No crashes captured\n", out)

	out, err = run(t, "", "--dir", dir, "crashes", "newest")
	require.NoError(t, err)
	assert.Equal(t, "No crashes captured\n", out)
}

// envelope writes data in the API response envelope.
func envelope(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestMonitorCommands(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/monitor/logs":
			assert.Equal(t, "2", r.URL.Query().Get("count"))
			envelope(w, http.StatusOK, map[string]interface{}{"data": []logs.LogEntry{
				{Raw: "one", Level: logs.LevelInfo, Sequence: 1},
				{Raw: "two", Level: logs.LevelInfo, Sequence: 2},
			}})
		case "/api/v1/monitor/errors":
			envelope(w, http.StatusOK, map[string]interface{}{"data": []logs.LogEntry{
				{Raw: "Fatal error: boom", Level: logs.LevelFatal, IsError: true, ErrorKind: logs.KindFatal},
			}})
		case "/api/v1/monitor/start":
			envelope(w, http.StatusBadGateway, map[string]interface{}{"error": map[string]string{
				"code":    "process_spawn_error",
				"message": "spawn xcrun: executable file not found",
			}})
		case "/api/v1/monitor/analyze":
			envelope(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{
				"error_count": 2,
				"error_types": map[string]int{"range": 1, "nil": 1},
				"most_recent": map[string]interface{}{"raw": "Unexpectedly found nil"},
				"suggestions": []map[string]interface{}{
					{"type": "range", "issue": "Lower bound 5 exceeds upper bound 2", "fixes": []string{"Clamp the bounds"}},
				},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	out, err := run(t, "", "--server", server.URL, "monitor", "logs", "-n", "2", "-o", "raw")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", out)

	out, err = run(t, "", "--server", server.URL, "monitor", "errors")
	require.NoError(t, err)
	assert.Contains(t, out, "FATAL [fatal] Fatal error: boom")

	out, err = run(t, "", "--server", server.URL, "monitor", "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "2 runtime errors")
	assert.Contains(t, out, "  nil            1\n")
	assert.Contains(t, out, "range: Lower bound 5 exceeds upper bound 2")
	assert.Contains(t, out, "  - Clamp the bounds")

	_, err = run(t, "", "--server", server.URL, "monitor", "start", "com.example.app")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "process_spawn_error")

	_, err = run(t, "", "--server", server.URL, "monitor", "logs", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
