// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// Package models holds the transit entities shared by the store, the ingest
// pipeline and the HTTP API, plus the API response envelope.
package models

import "time"

// APIResponse wraps every HTTP response body.
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}
//	{"status":"error","error":{"code":"VALIDATION_ERROR","message":"..."},"metadata":{...}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response bookkeeping.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Count     *int      `json:"count,omitempty"`
}

// APIError is the error body of a failed request.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1,max=256"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// LocationRequest is the body of POST /api/v1/vehicles/{id}/location.
// Pointers distinguish a missing coordinate from zero.
type LocationRequest struct {
	Latitude       *float64 `json:"latitude" validate:"required,latitude"`
	Longitude      *float64 `json:"longitude" validate:"required,longitude"`
	SpeedKmh       float64  `json:"speed_kmh" validate:"gte=0,lte=400"`
	Heading        float64  `json:"heading" validate:"gte=0,lt=360"`
	AccuracyMeters *float64 `json:"accuracy_meters,omitempty" validate:"omitempty,gte=0"`
}

// AlertRequest is the body of POST /api/v1/admin/alerts.
type AlertRequest struct {
	CityID    string     `json:"city_id,omitempty" validate:"omitempty,transitid"`
	RouteID   string     `json:"route_id,omitempty" validate:"omitempty,transitid"`
	AlertType string     `json:"alert_type" validate:"required,oneof=delay cancellation diversion maintenance emergency"`
	Severity  string     `json:"severity" validate:"required,oneof=low medium high critical"`
	Title     string     `json:"title" validate:"required,max=200"`
	Message   string     `json:"message" validate:"required,max=4000"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// ETARequest is the body of POST /api/v1/stops/{id}/eta.
type ETARequest struct {
	VehicleID            string    `json:"vehicle_id" validate:"required,transitid"`
	RouteID              string    `json:"route_id,omitempty" validate:"omitempty,transitid"`
	PredictedArrivalTime time.Time `json:"predicted_arrival_time" validate:"required"`
	DelayMinutes         int       `json:"delay_minutes"`
	ConfidenceLevel      float64   `json:"confidence_level" validate:"gte=0,lte=1"`
}

// AlertListRequest holds GET /api/v1/alerts query parameters.
type AlertListRequest struct {
	CityID   string `validate:"omitempty,transitid"`
	RouteID  string `validate:"omitempty,transitid"`
	Severity string `validate:"omitempty,oneof=low medium high critical"`
}

// LocationHistoryRequest holds GET /api/v1/vehicles/{id}/location query parameters.
type LocationHistoryRequest struct {
	VehicleID string `validate:"required,transitid"`
	Limit     int    `validate:"min=1,max=1000"`
	Hours     int    `validate:"min=1,max=720"`
}

// HealthStatus is returned by the readiness probe.
type HealthStatus struct {
	Status    string `json:"status"`
	Database  bool   `json:"database"`
	Sessions  int    `json:"sessions"`
	Topics    int    `json:"topics"`
	Relay     string `json:"relay"`
	Uptime    string `json:"uptime"`
	Version   string `json:"version,omitempty"`
	CheckedAt string `json:"checked_at"`
}

// RealtimeInfo describes the WebSocket endpoint.
type RealtimeInfo struct {
	Path              string   `json:"path"`
	ActiveConnections int      `json:"active_connections"`
	ActiveTopics      int      `json:"active_topics"`
	Topics            []string `json:"topics"`
	Channels          []string `json:"channels"`
	InboundTypes      []string `json:"inbound_types"`
}

// PublishResult is returned by endpoints that broadcast an event.
type PublishResult struct {
	Type      string      `json:"type"`
	Topics    []string    `json:"topics"`
	Delivered int         `json:"delivered"`
	Data      interface{} `json:"data"`
}

// CurrentUser is returned by GET /api/v1/auth/me.
type CurrentUser struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}
