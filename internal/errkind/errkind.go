// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errkind maps domain errors to the stable kind strings reported
// at the HTTP and MCP boundaries.
package errkind

import (
	"errors"
	"io/fs"

	"github.com/wingedpig/buildwatch/internal/crashes"
	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/monitor"
)

const (
	Storage         = "storage_error"
	Referential     = "referential_error"
	ProcessSpawn    = "process_spawn_error"
	CaptureWrite    = "capture_write_error"
	InvalidArgument = "invalid_argument"
	NotFound        = "not_found"
	Internal        = "internal_error"
)

// Kind returns the kind of err. Unrecognized errors are internal.
func Kind(err error) string {
	var (
		storageErr *diagnostics.StorageError
		refErr     *diagnostics.ReferentialError
		spawnErr   *monitor.ProcessSpawnError
		captureErr *crashes.CaptureWriteError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &refErr):
		return Referential
	case errors.As(err, &storageErr):
		return Storage
	case errors.As(err, &spawnErr):
		return ProcessSpawn
	case errors.As(err, &captureErr):
		return CaptureWrite
	case errors.Is(err, diagnostics.ErrInvalidArgument), errors.Is(err, crashes.ErrInvalidID):
		return InvalidArgument
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	}
	return Internal
}
