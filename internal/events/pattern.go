// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"strings"
)

// PatternMatcher handles event pattern matching.
type PatternMatcher struct{}

// NewPatternMatcher creates a new pattern matcher.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// Match checks if an event type matches a pattern.
// Patterns support wildcards:
// - "build.*" matches "build.recorded", "build.timed_out", etc.
// - "*.stopped" matches "monitor.stopped"
// - "*" matches everything
func (pm *PatternMatcher) Match(eventType, pattern string) bool {
	if pattern == "" || eventType == "" {
		return false
	}

	switch {
	case pattern == "*", pattern == eventType:
		return true
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(eventType, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(eventType, strings.TrimPrefix(pattern, "*"))
	}
	return false
}

// CompiledPattern is a pre-validated pattern.
type CompiledPattern struct {
	pattern string
	matcher *PatternMatcher
}

// Compile validates a pattern for repeated matching.
func (pm *PatternMatcher) Compile(pattern string) (*CompiledPattern, error) {
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}
	return &CompiledPattern{pattern: pattern, matcher: pm}, nil
}

// Match reports whether eventType matches the compiled pattern.
func (cp *CompiledPattern) Match(eventType string) bool {
	return cp.matcher.Match(eventType, cp.pattern)
}
