// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/wingedpig/buildwatch/internal/diagnostics"
)

// maxLineSize bounds a single line of build output.
const maxLineSize = 1024 * 1024

// ParsedDiagnostic is one diagnostic extracted from build output.
type ParsedDiagnostic struct {
	Severity diagnostics.Severity `json:"severity"`
	FilePath string               `json:"file_path"`
	Line     *int                 `json:"line_number,omitempty"`
	Column   int                  `json:"column,omitempty"`
	Message  string               `json:"message"`
}

// BuildResult is a parsed build, ready to be recorded.
type BuildResult struct {
	Status       diagnostics.BuildStatus `json:"status"`
	Duration     *float64                `json:"duration_seconds,omitempty"`
	WarningCount int                     `json:"warning_count"`
	ErrorCount   int                     `json:"error_count"`
	Scheme       string                  `json:"scheme,omitempty"`
	Target       string                  `json:"target,omitempty"`
	Diagnostics  []ParsedDiagnostic      `json:"diagnostics,omitempty"`
}

// diagnosticPattern matches: file:line:col: severity: message
// Supports Windows paths with drive letters.
var diagnosticPattern = regexp.MustCompile(`^((?:[A-Za-z]:)?[^:]+?):(\d+):(\d+): (error|warning|note): (.+)$`)

// barePattern matches diagnostics with no location, e.g. linker errors.
var barePattern = regexp.MustCompile(`^(error|warning): (.+)$`)

var (
	resultPattern = regexp.MustCompile(`BUILD (SUCCEEDED|FAILED)`)
	targetPattern = regexp.MustCompile(`(?:=== BUILD TARGET|Build target) (\S+)`)
	schemePattern = regexp.MustCompile(`-scheme (\S+)`)
)

func severityFor(word string) diagnostics.Severity {
	switch word {
	case "error":
		return diagnostics.SeverityError
	case "warning":
		return diagnostics.SeverityWarning
	}
	return diagnostics.SeverityInfo
}

// ParseLine parses a single line of compiler output. It returns nil for
// lines that are not diagnostics.
func ParseLine(line string) *ParsedDiagnostic {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if m := diagnosticPattern.FindStringSubmatch(line); m != nil {
		lineNum, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		return &ParsedDiagnostic{
			Severity: severityFor(m[4]),
			FilePath: m[1],
			Line:     &lineNum,
			Column:   col,
			Message:  strings.TrimSpace(m[5]),
		}
	}

	if m := barePattern.FindStringSubmatch(line); m != nil {
		return &ParsedDiagnostic{
			Severity: severityFor(m[1]),
			Message:  strings.TrimSpace(m[2]),
		}
	}

	return nil
}

// ParseOutput reads build tool output and returns the parsed result.
// Identical diagnostics repeated by the tool are kept once. The status is
// error when the build reports failure or any error was seen, warning when
// only warnings were seen, otherwise success.
func ParseOutput(r io.Reader) (*BuildResult, error) {
	result := &BuildResult{}
	seen := make(map[string]bool)
	failed := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()

		if m := resultPattern.FindStringSubmatch(line); m != nil {
			failed = m[1] == "FAILED"
			continue
		}
		if result.Target == "" {
			if m := targetPattern.FindStringSubmatch(line); m != nil {
				result.Target = m[1]
			}
		}
		if result.Scheme == "" {
			if m := schemePattern.FindStringSubmatch(line); m != nil {
				result.Scheme = strings.Trim(m[1], `"'`)
			}
		}

		d := ParseLine(line)
		if d == nil {
			continue
		}
		key := fmt.Sprintf("%s|%s|%d|%d|%s", d.Severity, d.FilePath, lineOf(d), d.Column, d.Message)
		if seen[key] {
			continue
		}
		seen[key] = true

		switch d.Severity {
		case diagnostics.SeverityError:
			result.ErrorCount++
		case diagnostics.SeverityWarning:
			result.WarningCount++
		}
		result.Diagnostics = append(result.Diagnostics, *d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read build output: %w", err)
	}

	switch {
	case failed || result.ErrorCount > 0:
		result.Status = diagnostics.StatusError
	case result.WarningCount > 0:
		result.Status = diagnostics.StatusWarning
	default:
		result.Status = diagnostics.StatusSuccess
	}
	return result, nil
}

func lineOf(d *ParsedDiagnostic) int {
	if d.Line == nil {
		return 0
	}
	return *d.Line
}
