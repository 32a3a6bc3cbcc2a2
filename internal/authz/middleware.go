// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package authz

import (
	"errors"
	"net/http"

	"github.com/tomtom215/transitwatch/internal/auth"
)

// ErrForbidden is passed to the deny func when the role lacks permission.
var ErrForbidden = errors.New("insufficient permissions")

// Authorize returns middleware that requires the principal placed by
// auth.RequireAuth to hold object/action.
func (e *Enforcer) Authorize(object, action string, deny auth.DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.PrincipalFromContext(r.Context())
			if p == nil || !e.Allow(p.Role, object, action) {
				deny(w, r, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
