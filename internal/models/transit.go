// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package models

import "time"

// Vehicle statuses.
const (
	VehicleActive      = "active"
	VehicleInactive    = "inactive"
	VehicleMaintenance = "maintenance"
	VehicleBreakdown   = "breakdown"
)

// City is a service area. Alerts may be scoped to one.
type City struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
}

// Route is a numbered line within a city.
type Route struct {
	ID          string `json:"id"`
	CityID      string `json:"city_id"`
	RouteNumber string `json:"route_number"`
	RouteName   string `json:"route_name"`
	IsActive    bool   `json:"is_active"`
}

// Stop is a boarding point.
type Stop struct {
	ID           string  `json:"id"`
	CityID       string  `json:"city_id"`
	StopName     string  `json:"stop_name"`
	StopCode     string  `json:"stop_code,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	IsAccessible bool    `json:"is_accessible"`
}

// Vehicle is a tracked bus or tram.
type Vehicle struct {
	ID            string `json:"id"`
	CityID        string `json:"city_id"`
	VehicleNumber string `json:"vehicle_number"`
	VehicleType   string `json:"vehicle_type"`
	Capacity      int    `json:"capacity"`
	Status        string `json:"status"`
}

// Assignment binds a vehicle to the route it is currently running.
// At most one assignment per vehicle is active.
type Assignment struct {
	VehicleID     string    `json:"vehicle_id"`
	VehicleNumber string    `json:"vehicle_number"`
	RouteID       string    `json:"route_id"`
	RouteNumber   string    `json:"route_number"`
	RouteName     string    `json:"route_name"`
	AssignedAt    time.Time `json:"assigned_at"`
}

// LocationSample is one persisted GPS fix. Samples are append-only.
type LocationSample struct {
	ID             int64     `json:"id"`
	VehicleID      string    `json:"vehicle_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	SpeedKmh       float64   `json:"speed_kmh"`
	Heading        float64   `json:"heading"`
	AccuracyMeters *float64  `json:"accuracy_meters,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Alert types.
const (
	AlertDelay        = "delay"
	AlertCancellation = "cancellation"
	AlertDiversion    = "diversion"
	AlertMaintenance  = "maintenance"
	AlertEmergency    = "emergency"
)

// Alert severities, lowest first.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// ServiceAlert is an operator-authored disruption notice.
type ServiceAlert struct {
	ID          int64      `json:"id"`
	CityID      string     `json:"city_id,omitempty"`
	RouteID     string     `json:"route_id,omitempty"`
	AlertType   string     `json:"alert_type"`
	Severity    string     `json:"severity"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CityName    string     `json:"city_name,omitempty"`
	RouteNumber string     `json:"route_number,omitempty"`
	RouteName   string     `json:"route_name,omitempty"`
}

// AlertFilter narrows ListActiveAlerts. Empty fields match everything;
// CityID and RouteID also match alerts that are not scoped at all.
type AlertFilter struct {
	CityID   string
	RouteID  string
	Severity string
}

// ETAPrediction is an arrival estimate. It is broadcast and never stored.
type ETAPrediction struct {
	VehicleID            string    `json:"vehicle_id"`
	VehicleNumber        string    `json:"vehicle_number,omitempty"`
	StopID               string    `json:"stop_id"`
	StopName             string    `json:"stop_name,omitempty"`
	RouteID              string    `json:"route_id,omitempty"`
	RouteNumber          string    `json:"route_number,omitempty"`
	RouteName            string    `json:"route_name,omitempty"`
	PredictedArrivalTime time.Time `json:"predicted_arrival_time"`
	DelayMinutes         int       `json:"delay_minutes"`
	ConfidenceLevel      float64   `json:"confidence_level"`
}

// User roles.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleDriver   = "driver"
	RoleUser     = "user"
)

// User is an account that can log in. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
