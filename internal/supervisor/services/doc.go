// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// Package services adapts component lifecycles to suture.Service.
//
// Every wrapper returns ctx.Err() on a requested shutdown and a wrapped
// error on failure, so suture restarts only what actually broke.
package services
