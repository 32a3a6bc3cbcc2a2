// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

/*
Package relay fans events out across Transitwatch instances.

Each hub broadcasts locally first, then hands the already-encoded frame to
Relay.Forward, which wraps it in an Envelope stamped with the instance id and
publishes it on one NATS subject. Every instance subscribes to that subject
without a queue group, so each one sees every envelope; an instance drops
envelopes carrying its own id and passes the rest to Hub.BroadcastRaw.

	hub A ──Publish──► local sessions
	   │
	   └──Forward──► NATS subject ──► relay B ──BroadcastRaw──► hub B sessions
	                              └─► relay A (own origin, skipped)

Transport is Watermill: watermill-nats over core NATS in production, or the
in-process gochannel Pub/Sub in tests. For single-node or development setups
NewEmbeddedServer runs nats-server inside the process.

Delivery is at-most-once. Live positions are superseded within seconds, so
there is no JetStream persistence and no redelivery.
*/
package relay
