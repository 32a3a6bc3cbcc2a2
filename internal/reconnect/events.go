// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package reconnect

import (
	"time"

	"github.com/goccy/go-json"
)

// State is the connection state of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateGaveUp
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateGaveUp:
		return "gave_up"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventKind selects which listeners receive an Event. Lifecycle kinds are
// defined below; every server frame is also delivered under its own "type"
// (for example "vehicle_location_update") and under EventMessage.
type EventKind string

const (
	EventConnected    EventKind = "connected_state"
	EventDisconnected EventKind = "disconnected"
	EventReconnecting EventKind = "reconnecting"
	EventGaveUp       EventKind = "max_reconnect_attempts"
	EventError        EventKind = "transport_error"
	EventMessage      EventKind = "message"
)

// Event is what listeners receive.
type Event struct {
	Kind    EventKind
	State   State
	Attempt int
	Delay   time.Duration
	Err     error
	Frame   *Frame
}

// Frame is a decoded server frame.
type Frame struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId,omitempty"`
	Success  *bool           `json:"success,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Role     string          `json:"role,omitempty"`
	Channel  string          `json:"channel,omitempty"`
	Message  string          `json:"message,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// outbound is a client-to-server frame.
type outbound struct {
	Type    string      `json:"type"`
	Token   string      `json:"token,omitempty"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
