// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

/*
Package supervisor runs the long-lived components under a suture v4 tree.

	transitwatch (root)
	├── data-layer       relay consumer (when the relay is enabled)
	├── messaging-layer  realtime hub, liveness monitor
	└── api-layer        HTTP server

Each layer is its own supervisor, so a relay that keeps failing backs off
without restarting the HTTP server. Supervisor events are logged through
sutureslog on top of the zerolog slog bridge.

Service wrappers live in the services subpackage.
*/
package supervisor
