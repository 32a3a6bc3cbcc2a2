// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

/*
Package realtime is the WebSocket fan-out core: a hub that owns every live
session, a topic registry that indexes sessions by channel, and a liveness
monitor that probes and evicts silent peers.

# Architecture

	Ingest Adapter ──► Hub.Publish ──► Registry.MembersOf ──► Session.send ──► writePump
	                         │
	                         └──► Forwarder (relay) ──► other instances ──► Hub.BroadcastRaw

Each Session has exactly two goroutines. readPump decodes frames and calls
Hub.HandleInbound sequentially, so per-session inbound order is preserved.
writePump drains the buffered send queue and is the only writer of data
frames; the monitor writes ping control frames, which gorilla/websocket
allows concurrently with one data writer.

# Locking

Hub.mu guards the session set, the Registry and every Session's subscription
set. Broadcast enqueues under the lock with a non-blocking send, so a slow
reader is evicted rather than stalling everyone else. Transports are closed
outside the lock.

The invariant maintained by every mutation:

	t ∈ s.subs  ⇔  s ∈ registry[t]

# Wire Protocol

Client to server:

	{"type":"auth","token":"..."}
	{"type":"subscribe","channel":"route:45A"}
	{"type":"unsubscribe","channel":"route:45A"}
	{"type":"ping"}
	{"type":"vehicle_location_update","data":{"vehicleId":"V1","latitude":40.7,"longitude":-74.0}}

Server to client control frames carry their fields at the top level
(connected, auth_result, subscribed, unsubscribed, pong, error). Routed
events carry their payload under "data".

# Liveness

The monitor sweeps every SweepInterval. A session idle longer than
IdleTimeout receives a transport ping and is marked probed; a probed session
idle longer than twice IdleTimeout is evicted. Any inbound frame or pong
clears the probe.
*/
package realtime
