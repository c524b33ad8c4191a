// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package diagnostics

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is wrapped by validation failures.
var ErrInvalidArgument = errors.New("invalid argument")

// StorageError reports that the persistence layer failed. Callers may retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ReferentialError reports a diagnostic that names an unknown build event.
type ReferentialError struct {
	BuildEventID int64
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("build event %d does not exist", e.BuildEventID)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
