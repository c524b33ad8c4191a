// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package trends provides read-only projections over the diagnostics
// store: health banding, immediate solutions for the current build and
// the combined status report.
package trends

import (
	"context"
	"fmt"

	"github.com/wingedpig/buildwatch/internal/diagnostics"
)

// Health is a success-rate band.
type Health string

const (
	HealthExcellent Health = "excellent"
	HealthGood      Health = "good"
	HealthFair      Health = "fair"
	HealthPoor      Health = "poor"
)

// Report windows.
const (
	DefaultWindowDays   = 7
	reportFrequentLimit = 5
)

// Band maps a success rate in [0, 1] to a health band.
func Band(successRate float64) Health {
	switch {
	case successRate >= 0.9:
		return HealthExcellent
	case successRate >= 0.7:
		return HealthGood
	case successRate >= 0.5:
		return HealthFair
	default:
		return HealthPoor
	}
}

// Source is the read side of the diagnostics store.
type Source interface {
	BuildTrends(ctx context.Context, windowDays int) (*diagnostics.BuildTrends, error)
	FrequentIssues(ctx context.Context, limit, windowDays int) ([]diagnostics.FrequentIssue, error)
	BestSolutionFor(ctx context.Context, message string) (*diagnostics.Solution, error)
}

// Trends is BuildTrends with its health band.
type Trends struct {
	*diagnostics.BuildTrends
	Health Health `json:"health"`
}

// ImmediateSolution is a known fix for an error in the current build.
type ImmediateSolution struct {
	Error      string `json:"error"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Solution   string `json:"solution"`
	FixPattern string `json:"fix_pattern,omitempty"`
	Confidence int    `json:"confidence"`
}

// BuildHealth is the health section of a Report.
type BuildHealth struct {
	SuccessRate7d string  `json:"success_rate_7d"`
	AvgBuildTime  string  `json:"avg_build_time"`
	TotalBuilds7d int     `json:"total_builds_7d"`
	SuccessRate   float64 `json:"success_rate"`
	Status        Health  `json:"status"`
}

// Report is the enhanced build status.
type Report struct {
	CurrentBuild       *CurrentBuild                `json:"current_build"`
	BuildHealth        BuildHealth                  `json:"build_health"`
	ImmediateSolutions []ImmediateSolution          `json:"immediate_solutions"`
	FrequentIssues     []diagnostics.FrequentIssue  `json:"frequent_issues"`
	ProblematicFiles   []diagnostics.FileIssueCount `json:"problematic_files"`
	MonitoringActive   bool                         `json:"monitoring_active"`
}

// Aggregator computes trend projections. It never writes.
type Aggregator struct {
	source   Source
	status   *StatusCache
	activity func() bool
}

// NewAggregator creates an aggregator. status and activity may be nil.
func NewAggregator(source Source, status *StatusCache, activity func() bool) *Aggregator {
	return &Aggregator{source: source, status: status, activity: activity}
}

// Trends returns build trends for the window with the health band.
func (a *Aggregator) Trends(ctx context.Context, windowDays int) (*Trends, error) {
	t, err := a.source.BuildTrends(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	return &Trends{BuildTrends: t, Health: Band(t.SuccessRate)}, nil
}

// ImmediateSolutions returns the best known solution for each error
// diagnostic in the current build. Errors without a solution are skipped.
func (a *Aggregator) ImmediateSolutions(ctx context.Context, cur *CurrentBuild) ([]ImmediateSolution, error) {
	out := []ImmediateSolution{}
	if cur == nil {
		return out, nil
	}
	for _, d := range cur.Diagnostics {
		if d.Severity != diagnostics.SeverityError {
			continue
		}
		sol, err := a.source.BestSolutionFor(ctx, d.Message)
		if err != nil {
			return nil, err
		}
		if sol == nil {
			continue
		}
		line := 0
		if d.Line != nil {
			line = *d.Line
		}
		out = append(out, ImmediateSolution{
			Error:      d.Message,
			File:       d.FilePath,
			Line:       line,
			Solution:   sol.Text,
			FixPattern: sol.FixPattern,
			Confidence: sol.SuccessCount,
		})
	}
	return out, nil
}

// Report assembles the enhanced build status.
func (a *Aggregator) Report(ctx context.Context) (*Report, error) {
	var cur *CurrentBuild
	if a.status != nil {
		var err error
		if cur, err = a.status.Load(); err != nil {
			return nil, err
		}
	}

	t, err := a.source.BuildTrends(ctx, DefaultWindowDays)
	if err != nil {
		return nil, err
	}
	frequent, err := a.source.FrequentIssues(ctx, reportFrequentLimit, DefaultWindowDays)
	if err != nil {
		return nil, err
	}
	solutions, err := a.ImmediateSolutions(ctx, cur)
	if err != nil {
		return nil, err
	}

	avg := "N/A"
	if t.AvgDuration != nil {
		avg = fmt.Sprintf("%.1fs", *t.AvgDuration)
	}

	r := &Report{
		CurrentBuild: cur,
		BuildHealth: BuildHealth{
			SuccessRate7d: fmt.Sprintf("%.1f%%", t.SuccessRate*100),
			AvgBuildTime:  avg,
			TotalBuilds7d: t.TotalBuilds,
			SuccessRate:   t.SuccessRate,
			Status:        Band(t.SuccessRate),
		},
		ImmediateSolutions: solutions,
		FrequentIssues:     frequent,
		ProblematicFiles:   t.ProblematicFiles,
	}
	if r.FrequentIssues == nil {
		r.FrequentIssues = []diagnostics.FrequentIssue{}
	}
	if a.activity != nil {
		r.MonitoringActive = a.activity()
	}
	return r, nil
}
