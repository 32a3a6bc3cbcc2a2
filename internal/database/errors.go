// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package database

import (
	"errors"
	"io"
)

// Lookup misses. These are expected outcomes and do not trip the breaker.
var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrRouteNotFound   = errors.New("route not found")
	ErrStopNotFound    = errors.New("stop not found")
	ErrAlertNotFound   = errors.New("alert not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user with this email already exists")
)

// IsNotFound reports whether err is one of the lookup-miss sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrVehicleNotFound) ||
		errors.Is(err, ErrRouteNotFound) ||
		errors.Is(err, ErrStopNotFound) ||
		errors.Is(err, ErrAlertNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrUserExists)
}

// closeQuietly is for error paths where a Close failure is not actionable.
func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
