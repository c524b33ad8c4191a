// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/recorder"
	"github.com/wingedpig/buildwatch/internal/trends"
)

var (
	header = color.New(color.FgCyan, color.Bold).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusColor(status string) func(a ...interface{}) string {
	switch diagnostics.BuildStatus(status) {
	case diagnostics.StatusSuccess:
		return green
	case diagnostics.StatusWarning:
		return yellow
	default:
		return red
	}
}

func healthColor(h trends.Health) func(a ...interface{}) string {
	switch h {
	case trends.HealthExcellent, trends.HealthGood:
		return green
	case trends.HealthFair:
		return yellow
	default:
		return red
	}
}

func severityLabel(s diagnostics.Severity) string {
	switch s {
	case diagnostics.SeverityError:
		return red("error")
	case diagnostics.SeverityWarning:
		return yellow("warning")
	default:
		return gray(string(s))
	}
}

func location(file string, line *int) string {
	if line == nil {
		return file
	}
	return fmt.Sprintf("%s:%d", file, *line)
}

// printBuildRecord prints a recorded build and the known fix for each of
// its errors.
func printBuildRecord(w io.Writer, rec *recorder.BuildRecord, fixes map[string]*diagnostics.Solution) {
	res := rec.Result
	status := string(res.Status)
	fmt.Fprintf(w, "Build #%d: %s", rec.EventID, statusColor(status)(status))
	if res.Duration != nil {
		fmt.Fprintf(w, " in %.1fs", *res.Duration)
	}
	fmt.Fprintf(w, " (%d errors, %d warnings)\n", res.ErrorCount, res.WarningCount)

	for _, d := range res.Diagnostics {
		fmt.Fprintf(w, "  %s %s: %s\n", severityLabel(d.Severity), location(d.FilePath, d.Line), d.Message)
		if sol := fixes[d.Message]; sol != nil {
			fmt.Fprintf(w, "    %s %s\n", green("fix:"), sol.Text)
		}
	}
}

func printTrends(w io.Writer, t *trends.Trends, days int) {
	fmt.Fprintf(w, "%s\n", header(fmt.Sprintf("Build trends (last %d days)", days)))
	fmt.Fprintf(w, "  Builds:        %d\n", t.TotalBuilds)
	fmt.Fprintf(w, "  Success rate:  %.1f%% %s\n", t.SuccessRate*100, healthColor(t.Health)(string(t.Health)))
	if t.AvgDuration != nil {
		fmt.Fprintf(w, "  Avg duration:  %.1fs\n", *t.AvgDuration)
	}
	if len(t.ProblematicFiles) > 0 {
		fmt.Fprintf(w, "  Problematic files:\n")
		for _, f := range t.ProblematicFiles {
			fmt.Fprintf(w, "    %s (%d)\n", f.FilePath, f.Issues)
		}
	}
}

func printIssues(w io.Writer, issues []diagnostics.FrequentIssue) {
	if len(issues) == 0 {
		return
	}
	for _, is := range issues {
		fmt.Fprintf(w, "  %s %s %s\n", yellow(fmt.Sprintf("%dx", is.Frequency)), is.Message, gray(string(is.Category)))
		if is.BestSolution != nil {
			fmt.Fprintf(w, "    %s %s\n", green("fix:"), is.BestSolution.Text)
		}
	}
}

func printReport(w io.Writer, r *trends.Report) {
	fmt.Fprintf(w, "%s\n", header("Current build"))
	if cur := r.CurrentBuild; cur == nil {
		fmt.Fprintf(w, "  %s\n", gray("No builds recorded"))
	} else {
		fmt.Fprintf(w, "  #%d %s at %s (%d errors, %d warnings)\n",
			cur.BuildEventID, statusColor(cur.BuildStatus)(cur.BuildStatus),
			cur.LastBuildTime.Local().Format("2006-01-02 15:04:05"), cur.ErrorsCount, cur.WarningsCount)
	}

	h := r.BuildHealth
	fmt.Fprintf(w, "%s\n", header("Build health"))
	fmt.Fprintf(w, "  Success rate:  %s over %d builds %s\n", h.SuccessRate7d, h.TotalBuilds7d, healthColor(h.Status)(string(h.Status)))
	fmt.Fprintf(w, "  Avg duration:  %s\n", h.AvgBuildTime)

	if len(r.ImmediateSolutions) > 0 {
		fmt.Fprintf(w, "%s\n", header("Immediate solutions"))
		for _, s := range r.ImmediateSolutions {
			fmt.Fprintf(w, "  %s:%d %s\n", s.File, s.Line, s.Error)
			fmt.Fprintf(w, "    %s %s %s\n", green("fix:"), s.Solution, gray(fmt.Sprintf("(confidence %d)", s.Confidence)))
		}
	}
	if len(r.FrequentIssues) > 0 {
		fmt.Fprintf(w, "%s\n", header("Frequent issues"))
		printIssues(w, r.FrequentIssues)
	}
	if len(r.ProblematicFiles) > 0 {
		fmt.Fprintf(w, "%s\n", header("Problematic files"))
		for _, f := range r.ProblematicFiles {
			fmt.Fprintf(w, "  %s (%d)\n", f.FilePath, f.Issues)
		}
	}

	monitoring := gray("inactive")
	if r.MonitoringActive {
		monitoring = green("active")
	}
	fmt.Fprintf(w, "Runtime monitoring: %s\n", monitoring)
}
