// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocket hub

	WSSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_sessions",
		Help: "Connected WebSocket sessions",
	})

	WSTopics = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_topics",
		Help: "Topics with at least one subscriber",
	})

	WSMessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_messages_received_total",
		Help: "Inbound WebSocket frames",
	})

	WSMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_messages_sent_total",
		Help: "Outbound WebSocket frames written",
	})

	WSBroadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_broadcasts_total",
		Help: "Topic-routed broadcasts by event kind",
	}, []string{"kind"})

	WSDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_deliveries_total",
		Help: "Per-session deliveries of broadcast events by kind",
	}, []string{"kind"})

	WSEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_evictions_total",
		Help: "Sessions removed by the server, by reason",
	}, []string{"reason"})

	WSProbes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_liveness_probes_total",
		Help: "Pings sent to idle sessions",
	})

	WSErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_errors_total",
		Help: "WebSocket protocol errors by type",
	}, []string{"error_type"})

	// Ingest

	IngestEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_events_total",
		Help: "Ingested producer events by kind and outcome",
	}, []string{"kind", "outcome"})

	IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_duration_seconds",
		Help:    "Time from receipt to addressed event",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// Relay

	RelayMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_messages_total",
		Help: "Relay messages by direction (published, received, skipped, failed)",
	}, []string{"direction"})

	// Store

	DBQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "duckdb_query_duration_seconds",
		Help:    "Duration of DuckDB queries in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	DBQueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duckdb_query_errors_total",
		Help: "DuckDB query errors",
	}, []string{"operation", "table"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_transitions_total",
		Help: "Circuit breaker state changes",
	}, []string{"name", "from", "to"})

	// Auth

	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Token verifications and logins by outcome",
	}, []string{"method", "outcome"})

	// HTTP API

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_requests_total",
		Help: "HTTP requests",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "api_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "endpoint"})

	APIActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "api_active_requests",
		Help: "In-flight HTTP requests",
	})
)

// RecordDBQuery observes one store call.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordIngest observes one ingest call. outcome is success, invalid or error.
func RecordIngest(kind, outcome string, duration time.Duration) {
	IngestEvents.WithLabelValues(kind, outcome).Inc()
	IngestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordBroadcast counts one broadcast and its per-session deliveries.
func RecordBroadcast(kind string, delivered int) {
	WSBroadcasts.WithLabelValues(kind).Inc()
	if delivered > 0 {
		WSDeliveries.WithLabelValues(kind).Add(float64(delivered))
	}
}

// RecordEviction counts a server-initiated session removal.
func RecordEviction(reason string) {
	WSEvictions.WithLabelValues(reason).Inc()
}

// RecordAPIRequest observes one HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetBreakerState publishes a breaker state as 0, 1 or 2.
func SetBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
