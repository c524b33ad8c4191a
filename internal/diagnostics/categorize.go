// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package diagnostics

import "strings"

type categoryRule struct {
	category Category
	match    func(msg string) bool
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// categoryRules are checked in order; the first match wins.
var categoryRules = []categoryRule{
	{CategoryImports, func(m string) bool {
		return containsAny(m, "import", "module", "cannot find", "in scope")
	}},
	{CategoryStringFormatting, func(m string) bool {
		return containsAny(m, "format", "specifier", "interpolation")
	}},
	{CategoryConcurrency, func(m string) bool {
		return containsAny(m, "concurren", "actor", "captured", "sendable", "data race")
	}},
	{CategorySyntax, func(m string) bool {
		return containsAny(m, "syntax", "expected")
	}},
	{CategoryTypeErrors, func(m string) bool {
		return containsAny(m, "mismatch", "cannot convert", "has no member", "does not conform") ||
			(strings.Contains(m, "type") && strings.Contains(m, "cannot"))
	}},
	{CategoryUnusedCode, func(m string) bool {
		return containsAny(m, "unused", "never used", "never mutated")
	}},
}

// Categorize maps a diagnostic message to a category using a fixed,
// ordered keyword taxonomy. Messages that match nothing are CategoryOther.
func Categorize(message string) Category {
	m := strings.ToLower(message)
	for _, r := range categoryRules {
		if r.match(m) {
			return r.category
		}
	}
	return CategoryOther
}
