// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

/*
Package main is the Transitwatch server.

Transitwatch accepts vehicle positions, service alerts and arrival
predictions over REST and WebSocket, stores them in DuckDB, and fans each
event out to every WebSocket session subscribed to a matching topic. With
the relay enabled, events also cross to other instances over NATS.

# Supervision

	RootSupervisor ("transitwatch")
	├── DataSupervisor ("data-layer")
	│   └── relay (optional, RELAY_ENABLED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── realtime-hub
	│   └── liveness-monitor
	└── APISupervisor ("api-layer")
	    └── http-server

Initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog
 3. Database: DuckDB, optional demo seed, bootstrap admin
 4. Authentication: JWT with a Badger-backed revocation list
 5. Authorization: Casbin role policy
 6. Realtime hub and liveness monitor
 7. Relay: embedded or external NATS via Watermill
 8. HTTP server: Chi router
 9. Supervisor tree: Suture v4

# Signal Handling

SIGINT and SIGTERM cancel the root context. Every service drains within
SUPERVISOR_SHUTDOWN_TIMEOUT, then the database and revocation store close.

# Example Usage

	export JWT_SECRET=$(openssl rand -base64 32)
	export ADMIN_EMAIL=admin@example.com
	export ADMIN_PASSWORD=change-me-please
	export SEED_DEMO_DATA=true
	./transitwatch

Two instances sharing one NATS server:

	RELAY_ENABLED=true NATS_URL=nats://nats:4222 ./transitwatch
*/
package main
