// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package logs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type rule struct {
	kind    ErrorKind
	level   LogLevel
	pattern *regexp.Regexp
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{KindFatal, LevelFatal, regexp.MustCompile(`(?i)fatal error:.*`)},
	{KindCrash, LevelFatal, regexp.MustCompile(`(?i)thread \d+:.*signal`)},
	{KindException, LevelError, regexp.MustCompile(`(?i)(?:NS)?exception`)},
	{KindAssertion, LevelError, regexp.MustCompile(`(?i)assertion failed|precondition failed`)},
	{KindRange, LevelError, regexp.MustCompile(`(?i)range requires lowerbound.*upperbound`)},
	{KindNil, LevelError, regexp.MustCompile(`(?i)unexpectedly found nil|force unwrap`)},
	{KindMemory, LevelError, regexp.MustCompile(`(?i)exc_bad_access|memory`)},
	{KindIndex, LevelError, regexp.MustCompile(`(?i)index out of range|index.*bounds`)},
}

var rangeBoundsPattern = regexp.MustCompile(`Range\(uncheckedBounds: \(lower: (-?\d+), upper: (-?\d+)\)\)`)

// Kinds returns the taxonomy in evaluation order.
func Kinds() []ErrorKind {
	kinds := make([]ErrorKind, len(rules))
	for i, r := range rules {
		kinds[i] = r.kind
	}
	return kinds
}

// Classify turns a decoded console line into a LogEntry. Lines that are
// empty after trimming are dropped and reported with ok=false.
func Classify(line string, now time.Time) (LogEntry, bool) {
	text := strings.TrimSpace(line)
	if text == "" {
		return LogEntry{}, false
	}

	entry := LogEntry{
		Timestamp: now,
		Level:     LevelInfo,
		Raw:       text,
	}

	for _, r := range rules {
		if !r.pattern.MatchString(text) {
			continue
		}
		entry.IsError = true
		entry.ErrorKind = r.kind
		entry.Level = r.level
		break
	}

	if entry.ErrorKind == KindRange || entry.ErrorKind == KindFatal {
		entry.Range = extractRange(text)
	}

	return entry, true
}

// extractRange pulls lower/upper bounds out of a range-construction failure.
// Issue is only set when the bounds are inverted.
func extractRange(text string) *RangeViolation {
	m := rangeBoundsPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	lower, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil
	}
	upper, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return nil
	}

	rv := &RangeViolation{Lower: lower, Upper: upper}
	if lower > upper {
		rv.Issue = fmt.Sprintf("Lower bound (%d) > Upper bound (%d)", lower, upper)
	}
	return rv
}
