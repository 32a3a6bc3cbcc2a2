// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

/*
Package middleware provides HTTP middleware shared by the REST API and the
WebSocket upgrade endpoint.

All middleware uses the func(http.Handler) http.Handler shape so it plugs
into chi's Use and With.

  - RequestID assigns or propagates X-Request-ID and seeds the logging
    context with request and correlation ids.
  - PrometheusMetrics records request counts, latency and in-flight
    requests labelled by chi route pattern, which keeps label cardinality
    bounded.
  - AccessLog writes one zerolog line per request.
  - Compression gzips REST responses and never touches WebSocket upgrades.

Response wrappers implement http.Hijacker and Unwrap so the WebSocket
upgrader can take over the connection underneath them.
*/
package middleware
