// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package events

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/transitwatch/internal/models"
)

// Event kinds as they appear in the "type" field.
const (
	KindLocationUpdate = "vehicle_location_update"
	KindServiceAlert   = "service_alert"
	KindETAUpdate      = "eta_update"

	KindConnected    = "connected"
	KindAuthResult   = "auth_result"
	KindSubscribed   = "subscribed"
	KindUnsubscribed = "unsubscribed"
	KindPong         = "pong"
	KindError        = "error"
)

// Event is one server-to-client frame. Control frames carry their fields at
// the top level; routed events carry a payload under "data". Treat an Event
// as immutable once built.
type Event struct {
	Type     string      `json:"type"`
	ClientID string      `json:"clientId,omitempty"`
	Success  *bool       `json:"success,omitempty"`
	UserID   string      `json:"userId,omitempty"`
	Role     string      `json:"role,omitempty"`
	Channel  string      `json:"channel,omitempty"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// Encode serialises the event once for every recipient.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Connected greets a new session.
func Connected(clientID string) Event {
	return Event{Type: KindConnected, ClientID: clientID, Message: "WebSocket connection established"}
}

// AuthSucceeded reports a verified token.
func AuthSucceeded(userID, role string) Event {
	ok := true
	return Event{Type: KindAuthResult, Success: &ok, UserID: userID, Role: role}
}

// AuthFailed reports a rejected token. The connection stays open.
func AuthFailed(message string) Event {
	ok := false
	return Event{Type: KindAuthResult, Success: &ok, Message: message}
}

// Subscribed acknowledges a subscribe request.
func Subscribed(channel string) Event {
	return Event{Type: KindSubscribed, Channel: channel}
}

// Unsubscribed acknowledges an unsubscribe request.
func Unsubscribed(channel string) Event {
	return Event{Type: KindUnsubscribed, Channel: channel}
}

// Pong answers an application-level ping.
func Pong() Event {
	return Event{Type: KindPong}
}

// Error reports a problem with the sender's last frame.
func Error(message string) Event {
	return Event{Type: KindError, Message: message}
}

// LocationUpdate is the enriched payload of a vehicle_location_update.
// RouteID and RouteNumber are null for unassigned vehicles.
type LocationUpdate struct {
	VehicleID     string    `json:"vehicleId"`
	VehicleNumber string    `json:"vehicleNumber"`
	RouteID       *string   `json:"routeId"`
	RouteNumber   *string   `json:"routeNumber"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	SpeedKmh      float64   `json:"speed_kmh"`
	Heading       float64   `json:"heading"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLocationUpdate wraps p.
func NewLocationUpdate(p LocationUpdate) Event {
	return Event{Type: KindLocationUpdate, Data: p}
}

// NewServiceAlert wraps a stored alert.
func NewServiceAlert(a *models.ServiceAlert) Event {
	return Event{Type: KindServiceAlert, Data: a}
}

// NewETAUpdate wraps a prediction.
func NewETAUpdate(p *models.ETAPrediction) Event {
	return Event{Type: KindETAUpdate, Data: p}
}
