// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/recorder"
	"github.com/wingedpig/buildwatch/internal/trends"
)

// BuildClient provides access to build recording and diagnostics.
//
// Access this client through [Client.Builds]:
//
//	rec, err := client.Builds.Record(ctx, result)
//	sol, err := client.Builds.BestSolution(ctx, "cannot find 'x' in scope")
type BuildClient struct {
	c *Client
}

// AddedSolution identifies a stored solution.
type AddedSolution struct {
	ID          int64  `json:"id"`
	Fingerprint string `json:"message_fingerprint"`
}

// SolutionInput is a fix to record. Fingerprint takes precedence over
// Message.
type SolutionInput struct {
	Message     string `json:"message,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Solution    string `json:"solution"`
	FixPattern  string `json:"fix_pattern,omitempty"`
}

// Record stores a completed build.
func (b *BuildClient) Record(ctx context.Context, result recorder.BuildResult) (*recorder.BuildRecord, error) {
	data, err := b.c.postJSON(ctx, "/api/v1/builds", result)
	if err != nil {
		return nil, err
	}
	return decode[recorder.BuildRecord](data, "build record")
}

// Trends returns build trends over the last days. Zero uses the server
// default window.
func (b *BuildClient) Trends(ctx context.Context, days int) (*trends.Trends, error) {
	path := "/api/v1/builds/trends"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	data, err := b.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decode[trends.Trends](data, "trends")
}

// RecentDiagnostics returns diagnostics from builds in the last hours.
func (b *BuildClient) RecentDiagnostics(ctx context.Context, hours, limit int) ([]diagnostics.RecentDiagnostic, error) {
	params := url.Values{}
	if hours > 0 {
		params.Set("hours", strconv.Itoa(hours))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	data, err := b.c.get(ctx, withQuery("/api/v1/builds/diagnostics", params))
	if err != nil {
		return nil, err
	}
	return decodeList[diagnostics.RecentDiagnostic](data, "diagnostics")
}

// FrequentIssues returns the most frequent errors of the last days.
func (b *BuildClient) FrequentIssues(ctx context.Context, limit, days int) ([]diagnostics.FrequentIssue, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if days > 0 {
		params.Set("days", strconv.Itoa(days))
	}
	data, err := b.c.get(ctx, withQuery("/api/v1/issues/frequent", params))
	if err != nil {
		return nil, err
	}
	return decodeList[diagnostics.FrequentIssue](data, "frequent issues")
}

// AddSolution records a fix, or reinforces it if already known.
func (b *BuildClient) AddSolution(ctx context.Context, in SolutionInput) (*AddedSolution, error) {
	data, err := b.c.postJSON(ctx, "/api/v1/solutions", in)
	if err != nil {
		return nil, err
	}
	added, err := decode[AddedSolution](data, "solution")
	if err != nil {
		return nil, err
	}
	if added == nil {
		return nil, fmt.Errorf("empty solution response")
	}
	return added, nil
}

// BestSolution returns the highest-ranked fix for message, or nil.
func (b *BuildClient) BestSolution(ctx context.Context, message string) (*diagnostics.Solution, error) {
	data, err := b.c.get(ctx, withQuery("/api/v1/solutions/best", url.Values{"message": {message}}))
	if err != nil {
		return nil, err
	}
	return decode[diagnostics.Solution](data, "solution")
}

// Status returns the enhanced build status report.
func (b *BuildClient) Status(ctx context.Context) (*trends.Report, error) {
	data, err := b.c.get(ctx, "/api/v1/status")
	if err != nil {
		return nil, err
	}
	return decode[trends.Report](data, "status")
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
