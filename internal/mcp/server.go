// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package mcp exposes the diagnostics store, trends and runtime monitor as
// MCP tools over line-delimited JSON-RPC on stdio.
package mcp

import (
	"context"
	"fmt"
	"log"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wingedpig/buildwatch/internal/crashes"
	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/errkind"
	"github.com/wingedpig/buildwatch/internal/logs"
	"github.com/wingedpig/buildwatch/internal/monitor"
	"github.com/wingedpig/buildwatch/internal/recorder"
	"github.com/wingedpig/buildwatch/internal/trends"
)

// Tool defaults.
const (
	defaultFrequentLimit = 10
	defaultFrequentDays  = 30
	defaultLogCount      = 100
	defaultErrorCount    = 50
)

// Dependencies holds the components the tools operate on.
type Dependencies struct {
	Store           *diagnostics.Store
	Recorder        *recorder.Recorder
	Aggregator      *trends.Aggregator
	Monitor         *monitor.Monitor
	CrashManager    *crashes.Manager
	TrendWindowDays int
}

// Server wraps the MCP SDK server with the buildwatch tools registered.
type Server struct {
	MCPServer *sdkmcp.Server
	deps      Dependencies
}

// NewServer creates an MCP server with all tools registered.
func NewServer(deps Dependencies, version string) *Server {
	if deps.TrendWindowDays <= 0 {
		deps.TrendWindowDays = trends.DefaultWindowDays
	}
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "buildwatch", Version: version}, nil),
		deps:      deps,
	}
	s.registerTools()
	return s
}

// Run serves on stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	log.Printf("MCP: serving on stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "record_build",
		Description: "Record a completed build with its diagnostics. Pass either structured fields or raw build output to parse.",
	}, s.handleRecordBuild)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "record_fix",
		Description: "Record that a solution fixed a diagnostic message. Repeating a fix raises its confidence.",
	}, s.handleRecordFix)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "best_solution",
		Description: "Get the highest-ranked known solution for a diagnostic message.",
	}, s.handleBestSolution)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "frequent_issues",
		Description: "List the most frequent build errors in a trailing window, with their best solutions.",
	}, s.handleFrequentIssues)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "build_trends",
		Description: "Summarize builds in a trailing window: success rate, average duration, problematic files and health.",
	}, s.handleBuildTrends)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "build_status",
		Description: "Get the current build, build health, immediate solutions and frequent issues in one report.",
	}, s.handleBuildStatus)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "start_monitoring",
		Description: "Start streaming runtime logs for an app bundle. Fatal errors are captured as crash contexts.",
	}, s.handleStartMonitoring)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "stop_monitoring",
		Description: "Stop the runtime log stream.",
	}, s.handleStopMonitoring)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "recent_logs",
		Description: "Get the most recent runtime log lines, oldest first.",
	}, s.handleRecentLogs)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "recent_errors",
		Description: "Get the most recent runtime errors, oldest first.",
	}, s.handleRecentErrors)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "analyze_runtime",
		Description: "Summarize buffered runtime errors by kind with fix suggestions.",
	}, s.handleAnalyzeRuntime)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "monitor_status",
		Description: "Get the runtime monitor status.",
	}, s.handleMonitorStatus)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_crashes",
		Description: "List captured crash contexts, newest first.",
	}, s.handleListCrashes)
}

// toolError formats err as "<kind>: <message>".
func toolError(err error) error {
	return fmt.Errorf("%s: %v", errkind.Kind(err), err)
}

func invalidArgument(format string, args ...any) error {
	return toolError(fmt.Errorf("%w: %s", diagnostics.ErrInvalidArgument, fmt.Sprintf(format, args...)))
}

// --- Tool input/output types ---

type emptyInput struct{}

type recordBuildInput struct {
	Status          string                      `json:"status,omitempty" jsonschema:"success, warning or error; derived from output when omitted"`
	DurationSeconds *float64                    `json:"duration_seconds,omitempty" jsonschema:"build duration in seconds"`
	WarningCount    int                         `json:"warning_count,omitempty" jsonschema:"number of warnings"`
	ErrorCount      int                         `json:"error_count,omitempty" jsonschema:"number of errors"`
	Scheme          string                      `json:"scheme,omitempty" jsonschema:"build scheme"`
	Target          string                      `json:"target,omitempty" jsonschema:"build target"`
	Diagnostics     []recorder.ParsedDiagnostic `json:"diagnostics,omitempty" jsonschema:"structured diagnostics"`
	Output          string                      `json:"output,omitempty" jsonschema:"raw build output to parse instead of structured diagnostics"`
}

type recordFixInput struct {
	Message    string `json:"message" jsonschema:"diagnostic message the solution fixed"`
	Solution   string `json:"solution" jsonschema:"description of the fix"`
	FixPattern string `json:"fix_pattern,omitempty" jsonschema:"optional machine-applicable pattern"`
}

type recordFixOutput struct {
	ID          int64  `json:"id"`
	Fingerprint string `json:"message_fingerprint"`
}

type bestSolutionInput struct {
	Message string `json:"message" jsonschema:"diagnostic message"`
}

type bestSolutionOutput struct {
	Found    bool                  `json:"found"`
	Solution *diagnostics.Solution `json:"solution,omitempty"`
}

type frequentIssuesInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum issues (default 10)"`
	Days  int `json:"days,omitempty" jsonschema:"trailing window in days (default 30)"`
}

type frequentIssuesOutput struct {
	Issues []diagnostics.FrequentIssue `json:"issues"`
}

type buildTrendsInput struct {
	Days int `json:"days,omitempty" jsonschema:"trailing window in days"`
}

type startMonitoringInput struct {
	BundleID string `json:"bundle_id,omitempty" jsonschema:"app bundle identifier; defaults to the configured bundle"`
}

type countInput struct {
	Count int `json:"count,omitempty" jsonschema:"maximum entries to return"`
}

type entriesOutput struct {
	Entries []logs.LogEntry `json:"entries"`
	Total   int             `json:"total"`
}

type listCrashesInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum crashes to return (default all)"`
}

type listCrashesOutput struct {
	Crashes []crashes.CrashSummary `json:"crashes"`
	Total   int                    `json:"total"`
}

// --- Tool handlers ---

func (s *Server) handleRecordBuild(ctx context.Context, _ *sdkmcp.CallToolRequest, input recordBuildInput) (*sdkmcp.CallToolResult, any, error) {
	result := recorder.BuildResult{
		Status:       diagnostics.BuildStatus(input.Status),
		Duration:     input.DurationSeconds,
		WarningCount: input.WarningCount,
		ErrorCount:   input.ErrorCount,
		Scheme:       input.Scheme,
		Target:       input.Target,
		Diagnostics:  input.Diagnostics,
	}
	if input.Output != "" {
		parsed, err := recorder.ParseOutput(strings.NewReader(input.Output))
		if err != nil {
			return nil, nil, toolError(err)
		}
		parsed.Duration = input.DurationSeconds
		if input.Status != "" {
			parsed.Status = result.Status
		}
		if input.Scheme != "" {
			parsed.Scheme = input.Scheme
		}
		if input.Target != "" {
			parsed.Target = input.Target
		}
		result = *parsed
	}

	rec, err := s.deps.Recorder.Record(ctx, result)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, rec, nil
}

func (s *Server) handleRecordFix(ctx context.Context, _ *sdkmcp.CallToolRequest, input recordFixInput) (*sdkmcp.CallToolResult, any, error) {
	if input.Message == "" {
		return nil, nil, invalidArgument("message is required")
	}
	id, err := s.deps.Store.RecordFix(ctx, input.Message, input.Solution, input.FixPattern)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, recordFixOutput{ID: id, Fingerprint: diagnostics.Fingerprint(input.Message)}, nil
}

func (s *Server) handleBestSolution(ctx context.Context, _ *sdkmcp.CallToolRequest, input bestSolutionInput) (*sdkmcp.CallToolResult, any, error) {
	if input.Message == "" {
		return nil, nil, invalidArgument("message is required")
	}
	sol, err := s.deps.Store.BestSolutionFor(ctx, input.Message)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, bestSolutionOutput{Found: sol != nil, Solution: sol}, nil
}

func (s *Server) handleFrequentIssues(ctx context.Context, _ *sdkmcp.CallToolRequest, input frequentIssuesInput) (*sdkmcp.CallToolResult, any, error) {
	if input.Limit < 0 || input.Days < 0 {
		return nil, nil, invalidArgument("limit and days must not be negative")
	}
	limit, days := input.Limit, input.Days
	if limit == 0 {
		limit = defaultFrequentLimit
	}
	if days == 0 {
		days = defaultFrequentDays
	}
	issues, err := s.deps.Store.FrequentIssues(ctx, limit, days)
	if err != nil {
		return nil, nil, toolError(err)
	}
	if issues == nil {
		issues = []diagnostics.FrequentIssue{}
	}
	return nil, frequentIssuesOutput{Issues: issues}, nil
}

func (s *Server) handleBuildTrends(ctx context.Context, _ *sdkmcp.CallToolRequest, input buildTrendsInput) (*sdkmcp.CallToolResult, any, error) {
	if input.Days < 0 {
		return nil, nil, invalidArgument("days must not be negative")
	}
	days := input.Days
	if days == 0 {
		days = s.deps.TrendWindowDays
	}
	t, err := s.deps.Aggregator.Trends(ctx, days)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, t, nil
}

func (s *Server) handleBuildStatus(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, any, error) {
	report, err := s.deps.Aggregator.Report(ctx)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, report, nil
}

func (s *Server) handleStartMonitoring(ctx context.Context, _ *sdkmcp.CallToolRequest, input startMonitoringInput) (*sdkmcp.CallToolResult, any, error) {
	// The session outlives this call; only the request is bound to ctx.
	res, err := s.deps.Monitor.Start(context.WithoutCancel(ctx), input.BundleID)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, res, nil
}

func (s *Server) handleStopMonitoring(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, any, error) {
	res, err := s.deps.Monitor.Stop(ctx)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return nil, res, nil
}

func (s *Server) handleRecentLogs(_ context.Context, _ *sdkmcp.CallToolRequest, input countInput) (*sdkmcp.CallToolResult, any, error) {
	return s.entries(input.Count, defaultLogCount, s.deps.Monitor.RecentLogs)
}

func (s *Server) handleRecentErrors(_ context.Context, _ *sdkmcp.CallToolRequest, input countInput) (*sdkmcp.CallToolResult, any, error) {
	return s.entries(input.Count, defaultErrorCount, s.deps.Monitor.RecentErrors)
}

func (s *Server) entries(count, def int, get func(int) []logs.LogEntry) (*sdkmcp.CallToolResult, any, error) {
	if count < 0 {
		return nil, nil, invalidArgument("count must not be negative")
	}
	if count == 0 {
		count = def
	}
	entries := get(count)
	if entries == nil {
		entries = []logs.LogEntry{}
	}
	return nil, entriesOutput{Entries: entries, Total: len(entries)}, nil
}

func (s *Server) handleAnalyzeRuntime(_ context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, any, error) {
	return nil, s.deps.Monitor.Analyze(), nil
}

func (s *Server) handleMonitorStatus(_ context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, any, error) {
	return nil, s.deps.Monitor.Status(), nil
}

func (s *Server) handleListCrashes(_ context.Context, _ *sdkmcp.CallToolRequest, input listCrashesInput) (*sdkmcp.CallToolResult, any, error) {
	if input.Limit < 0 {
		return nil, nil, invalidArgument("limit must not be negative")
	}
	list, err := s.deps.CrashManager.List()
	if err != nil {
		return nil, nil, toolError(err)
	}
	total := len(list)
	if input.Limit > 0 && len(list) > input.Limit {
		list = list[:input.Limit]
	}
	if list == nil {
		list = []crashes.CrashSummary{}
	}
	return nil, listCrashesOutput{Crashes: list, Total: total}, nil
}
