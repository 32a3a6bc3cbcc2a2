// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

/*
Package api exposes the HTTP surface: the REST endpoints that feed the
ingest pipeline, the WebSocket upgrade into the realtime hub, health
probes, Prometheus metrics and the Swagger UI.

Routing uses chi with go-chi/cors and go-chi/httprate. Every JSON body is
wrapped in models.APIResponse:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","request_id":"..."}}

Errors map onto HTTP status codes in one place (respondServiceError):

	ingest.ValidationError           400 VALIDATION_ERROR
	auth.AuthError                   401 UNAUTHORIZED
	authz.ErrForbidden               403 FORBIDDEN
	not found sentinels              404 NOT_FOUND
	ingest.PersistenceError          500 DATABASE_ERROR
	open store circuit breaker       503 SERVICE_UNAVAILABLE

A failed ingest never reaches the hub, so a client that sees an error
knows nothing was broadcast.
*/
package api
