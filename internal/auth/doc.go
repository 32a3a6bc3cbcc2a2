// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// Package auth issues and verifies the HS256 tokens that identify operators,
// drivers and riders.
//
// Tokens carry {userId, email, role} and a unique jti. Verification checks the
// signature and expiry, then the revocation denylist (BadgerDB, TTL equal to
// the token's remaining lifetime), then that the user still exists and is
// active. Every failure is an *AuthError; callers decide whether that means a
// 401 (HTTP) or an auth_result{success:false} frame (WebSocket).
//
// Passwords are hashed with bcrypt at cost 12.
package auth
