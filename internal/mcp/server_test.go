// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/buildwatch/internal/crashes"
	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/monitor"
	"github.com/wingedpig/buildwatch/internal/recorder"
	"github.com/wingedpig/buildwatch/internal/trends"
)

func newTestServer(t *testing.T, monitorCommand ...string) (*Server, *monitor.Monitor) {
	t.Helper()
	dir := t.TempDir()

	store, err := diagnostics.Open(diagnostics.Config{Path: filepath.Join(dir, "diagnostics.db"), ProjectPath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mgr, err := crashes.NewManager(crashes.Config{ReportsDir: filepath.Join(dir, "crashes")}, nil)
	require.NoError(t, err)

	mon := monitor.New(monitor.Config{
		BundleID: "com.example.weather",
		Command:  monitorCommand,
		LogDir:   filepath.Join(dir, "runtime"),
	}, mgr, nil)
	t.Cleanup(func() { mon.Stop(context.Background()) })

	status := trends.NewStatusCache(filepath.Join(dir, trends.StatusFileName))
	rec := recorder.New(store, nil)
	rec.AddObserver(status)

	srv := NewServer(Dependencies{
		Store:        store,
		Recorder:     rec,
		Aggregator:   trends.NewAggregator(store, status, mon.Active),
		Monitor:      mon,
		CrashManager: mgr,
	}, "test")
	return srv, mon
}

func connectInMemory(t *testing.T, ctx context.Context, srv *Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	_, err := srv.MCPServer.Connect(ctx, t1, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func toolText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content in tool result")
	return ""
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	text := toolText(t, res)
	require.False(t, res.IsError, "%s returned error: %s", name, text)
	require.NoError(t, json.Unmarshal([]byte(text), out), text)
}

func callToolExpectError(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.True(t, res.IsError, "expected %s to fail", name)
	return toolText(t, res)
}

func TestServer_ListTools(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	res, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"analyze_runtime", "best_solution", "build_status", "build_trends",
		"frequent_issues", "list_crashes", "monitor_status", "recent_errors",
		"recent_logs", "record_build", "record_fix", "start_monitoring",
		"stop_monitoring",
	}, names)
}

func TestServer_BuildTools(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	var rec recorder.BuildRecord
	callTool(t, ctx, session, "record_build", map[string]any{
		"output": "Sources/App.swift:42:7: error: cannot find 'Foo' in scope\n" +
			"Sources/App.swift:9:3: warning: variable 'x' was never used\n" +
			"** BUILD FAILED **\n",
		"duration_seconds": 3.5,
		"scheme":           "Weather",
	}, &rec)
	assert.NotZero(t, rec.EventID)
	assert.Equal(t, diagnostics.StatusError, rec.Result.Status)
	assert.Equal(t, 1, rec.Result.ErrorCount)
	assert.Equal(t, "Weather", rec.Result.Scheme)

	var fix recordFixOutput
	callTool(t, ctx, session, "record_fix", map[string]any{
		"message":  "cannot find 'Foo' in scope",
		"solution": "import FooKit",
	}, &fix)
	assert.Equal(t, diagnostics.Fingerprint("cannot find 'Foo' in scope"), fix.Fingerprint)

	var best bestSolutionOutput
	callTool(t, ctx, session, "best_solution", map[string]any{"message": "cannot find 'Foo' in scope"}, &best)
	require.True(t, best.Found)
	assert.Equal(t, "import FooKit", best.Solution.Text)

	callTool(t, ctx, session, "best_solution", map[string]any{"message": "never seen"}, &best)
	assert.False(t, best.Found)

	var issues frequentIssuesOutput
	callTool(t, ctx, session, "frequent_issues", map[string]any{}, &issues)
	require.Len(t, issues.Issues, 1)
	require.NotNil(t, issues.Issues[0].BestSolution)

	var tr trends.Trends
	callTool(t, ctx, session, "build_trends", map[string]any{"days": 7}, &tr)
	assert.Equal(t, 1, tr.TotalBuilds)
	assert.Equal(t, trends.HealthPoor, tr.Health)

	var report trends.Report
	callTool(t, ctx, session, "build_status", map[string]any{}, &report)
	require.NotNil(t, report.CurrentBuild)
	require.Len(t, report.ImmediateSolutions, 1)
	assert.Equal(t, 1, report.ImmediateSolutions[0].Confidence)
	assert.Equal(t, "3.5s", report.BuildHealth.AvgBuildTime)
}

func TestServer_ToolErrorsCarryKind(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t, "/nonexistent/log-source")
	session := connectInMemory(t, ctx, srv)

	text := callToolExpectError(t, ctx, session, "record_build", map[string]any{"status": "exploded"})
	assert.Regexp(t, `^invalid_argument: `, text)

	text = callToolExpectError(t, ctx, session, "record_fix", map[string]any{"message": "m", "solution": ""})
	assert.Regexp(t, `^invalid_argument: `, text)

	text = callToolExpectError(t, ctx, session, "start_monitoring", map[string]any{})
	assert.Regexp(t, `^process_spawn_error: `, text)

	text = callToolExpectError(t, ctx, session, "recent_logs", map[string]any{"count": -1})
	assert.Regexp(t, `^invalid_argument: `, text)
}

func TestServer_MonitorTools(t *testing.T) {
	ctx := context.Background()
	srv, mon := newTestServer(t, "sh", "-c", `echo "App launched"; echo "Fatal error: Unexpectedly found nil"; sleep 30`)
	session := connectInMemory(t, ctx, srv)

	var started monitor.StartResult
	callTool(t, ctx, session, "start_monitoring", map[string]any{}, &started)
	assert.Equal(t, monitor.StatusMonitoringStarted, started.Status)

	callTool(t, ctx, session, "start_monitoring", map[string]any{}, &started)
	assert.Equal(t, monitor.StatusAlreadyRunning, started.Status)

	require.Eventually(t, func() bool {
		return mon.Status().CrashesCaptured == 1
	}, 5*time.Second, 10*time.Millisecond)

	var st monitor.Status
	callTool(t, ctx, session, "monitor_status", map[string]any{}, &st)
	assert.True(t, st.Monitoring)
	assert.Equal(t, "com.example.weather", st.BundleID)

	var logsOut entriesOutput
	callTool(t, ctx, session, "recent_logs", map[string]any{"count": 10}, &logsOut)
	assert.Equal(t, 2, logsOut.Total)

	var errsOut entriesOutput
	callTool(t, ctx, session, "recent_errors", map[string]any{}, &errsOut)
	require.Equal(t, 1, errsOut.Total)
	assert.True(t, errsOut.Entries[0].IsError)

	var analysis monitor.Analysis
	callTool(t, ctx, session, "analyze_runtime", map[string]any{}, &analysis)
	assert.Equal(t, 1, analysis.ErrorCount)

	var list listCrashesOutput
	callTool(t, ctx, session, "list_crashes", map[string]any{}, &list)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "com.example.weather", list.Crashes[0].BundleID)

	var stopped monitor.StopResult
	callTool(t, ctx, session, "stop_monitoring", map[string]any{}, &stopped)
	assert.Equal(t, monitor.StatusStopped, stopped.Status)

	callTool(t, ctx, session, "stop_monitoring", map[string]any{}, &stopped)
	assert.Equal(t, monitor.StatusNotRunning, stopped.Status)
}
