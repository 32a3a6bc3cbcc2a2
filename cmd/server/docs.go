// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// @title Transitwatch API
// @version 1.0
// @description Real-time transit tracking: vehicle locations, service alerts and arrival predictions.
// @description
// @description ## Authentication
// @description
// @description Write endpoints require a JWT, sent as `Authorization: Bearer <token>` or the
// @description `auth-token` cookie set by `/auth/login`.
// @description
// @description ## Realtime
// @description
// @description Connect to `/ws`, then send `{"type":"subscribe","channels":["route:45A"]}`.
// @description Every accepted write is pushed to subscribers of its topics.
// @description
// @description ## Error Responses
// @description
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {"code": "VALIDATION_ERROR", "message": "...", "details": {}},
// @description   "metadata": {"timestamp": "2026-01-01T12:00:00Z"}
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/transitwatch
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main
