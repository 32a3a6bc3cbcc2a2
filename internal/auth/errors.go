// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package auth

import (
	"errors"
	"fmt"
)

// Reasons reported in AuthError.Reason.
const (
	ReasonMissingToken       = "missing_token"
	ReasonInvalidToken       = "invalid_token"
	ReasonExpired            = "expired"
	ReasonRevoked            = "revoked"
	ReasonInactiveUser       = "inactive_user"
	ReasonInvalidCredentials = "invalid_credentials"
)

// AuthError reports a rejected credential. The connection or request that
// carried it is not otherwise affected.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Reason, e.Err)
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// Message is the client-facing text; it never includes the wrapped cause.
func (e *AuthError) Message() string {
	switch e.Reason {
	case ReasonMissingToken:
		return "Authentication required"
	case ReasonExpired:
		return "Token expired"
	case ReasonRevoked:
		return "Token revoked"
	case ReasonInactiveUser:
		return "Account disabled"
	case ReasonInvalidCredentials:
		return "Invalid email or password"
	default:
		return "Invalid token"
	}
}

// IsAuthError reports whether err is or wraps an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func newAuthError(reason string, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}
