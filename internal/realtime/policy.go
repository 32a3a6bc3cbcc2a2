// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package realtime

import (
	"time"

	"golang.org/x/time/rate"
)

// newMalformedLimiter builds the per-session bucket for bad frames: limit
// tokens refilled over window. A zero limit disables the policy and the
// session only ever receives error replies.
func newMalformedLimiter(limit int, window time.Duration) *rate.Limiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)
}

// allowMalformed consumes one token and reports whether the session may
// stay connected.
func (s *Session) allowMalformed(now time.Time) bool {
	if s.malformed == nil {
		return true
	}
	return s.malformed.AllowN(now, 1)
}
