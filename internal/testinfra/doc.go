// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// Package testinfra manages Docker containers for integration tests.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/relay/...
//
// Tests call SkipIfNoDocker first so they degrade to a skip on machines
// without a Docker daemon.
//
// # NATS Container
//
//	natsC, err := testinfra.NewNATSContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, natsC)
//
//	pub, sub, err := relay.NewNATSTransport(relay.TransportConfig{URL: natsC.URL}, logger)
package testinfra
