// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"github.com/wingedpig/buildwatch/internal/logs"
)

// NoErrorsInsight is reported by Analyze when no errors are buffered.
const NoErrorsInsight = "no runtime errors detected"

var rangeFixes = []string{
	"Ensure lowerBound <= upperBound before creating a Range",
	"Build the range from ordered bounds: min(a, b)...max(a, b)",
	"Validate first: guard lower <= upper else { return }",
}

var nilFixes = []string{
	"Use optional binding: if let value = optional { }",
	"Use nil-coalescing: value ?? defaultValue",
	"Add guard statements for early return",
}

// Analyze summarizes the buffered errors by kind and attaches fixes for
// range and nil errors.
func (m *Monitor) Analyze() Analysis {
	return analyze(m.errors.Get(0))
}

func analyze(errs []logs.LogEntry) Analysis {
	if len(errs) == 0 {
		return Analysis{Insights: NoErrorsInsight}
	}

	a := Analysis{
		ErrorCount: len(errs),
		ErrorTypes: make(map[logs.ErrorKind]int),
	}
	var lastRange *logs.LogEntry
	for i := range errs {
		a.ErrorTypes[errs[i].ErrorKind]++
		if errs[i].ErrorKind == logs.KindRange {
			lastRange = &errs[i]
		}
	}
	last := errs[len(errs)-1]
	a.MostRecent = &last

	if lastRange != nil {
		issue := "Range bounds error"
		if lastRange.Range != nil && lastRange.Range.Issue != "" {
			issue = lastRange.Range.Issue
		}
		a.Suggestions = append(a.Suggestions, Suggestion{Kind: logs.KindRange, Issue: issue, Fixes: rangeFixes})
	}
	if a.ErrorTypes[logs.KindNil] > 0 {
		a.Suggestions = append(a.Suggestions, Suggestion{Kind: logs.KindNil, Fixes: nilFixes})
	}
	return a
}
