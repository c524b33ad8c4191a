// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package diagnostics

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Normalize returns the form of a message that fingerprints are computed
// from. Only surrounding whitespace is removed; case and inner text are
// preserved.
func Normalize(message string) string {
	return strings.TrimSpace(message)
}

// Fingerprint returns the hex MD5 of the normalized message. It groups
// identical messages and is not a similarity measure.
func Fingerprint(message string) string {
	sum := md5.Sum([]byte(Normalize(message)))
	return hex.EncodeToString(sum[:])
}
