// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package ingest

import (
	"errors"
	"fmt"

	"github.com/tomtom215/transitwatch/internal/database"
	"github.com/tomtom215/transitwatch/internal/validation"
)

// ValidationError rejects an input before anything is stored.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PersistenceError wraps a store failure. Nothing was broadcast.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Unavailable reports whether the store rejected the call because its
// circuit breaker is open.
func (e *PersistenceError) Unavailable() bool {
	return database.IsUnavailable(e.Err)
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func fromRequestErrors(verr *validation.RequestValidationError) *ValidationError {
	errs := verr.Errors()
	if len(errs) == 0 {
		return &ValidationError{Field: "unknown", Message: verr.Error()}
	}
	return &ValidationError{Field: errs[0].Field(), Message: errs[0].Error()}
}
