// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package events

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestParseTopic(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in    string
		valid bool
	}{
		{"tracking", true},
		{"alerts", true},
		{"route:45A", true},
		{"vehicle:V1", true},
		{"stop:stop_001", true},
		{"city:new-york", true},
		{"route:" + strings.Repeat("a", 64), true},
		{"route:" + strings.Repeat("a", 65), false},
		{"route:", false},
		{"route", false},
		{"depot:1", false},
		{"route:45 A", false},
		{"route:45A:extra", false},
		{"Tracking", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTopic(tt.in)
			if tt.valid {
				if err != nil || string(got) != tt.in {
					t.Errorf("ParseTopic(%q) = %q, %v", tt.in, got, err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidTopic) {
				t.Errorf("ParseTopic(%q) error = %v, want ErrInvalidTopic", tt.in, err)
			}
		})
	}
}

func TestAddressing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		got  []Topic
		want []Topic
	}{
		{"assigned location", LocationTopics("V1", "45A"), []Topic{"tracking", "vehicle:V1", "route:45A"}},
		{"unassigned location", LocationTopics("V3", ""), []Topic{"tracking", "vehicle:V3"}},
		{"global alert", AlertTopics("", ""), []Topic{"alerts"}},
		{"scoped alert", AlertTopics("nyc", "12B"), []Topic{"alerts", "city:nyc", "route:12B"}},
		{"eta with route", ETATopics("stop_001", "45A"), []Topic{"stop:stop_001", "route:45A"}},
		{"eta without route", ETATopics("stop_002", ""), []Topic{"stop:stop_002"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestEvent_WireShape(t *testing.T) {
	t.Parallel()
	route := "45A"
	tests := []struct {
		name  string
		event Event
		want  map[string]interface{}
	}{
		{"connected", Connected("client_7"), map[string]interface{}{
			"type": "connected", "clientId": "client_7", "message": "WebSocket connection established"}},
		{"auth ok", AuthSucceeded("u1", "driver"), map[string]interface{}{
			"type": "auth_result", "success": true, "userId": "u1", "role": "driver"}},
		{"auth failed", AuthFailed("Invalid token"), map[string]interface{}{
			"type": "auth_result", "success": false, "message": "Invalid token"}},
		{"subscribed", Subscribed("route:45A"), map[string]interface{}{"type": "subscribed", "channel": "route:45A"}},
		{"pong", Pong(), map[string]interface{}{"type": "pong"}},
		{"error", Error("Unknown message type"), map[string]interface{}{"type": "error", "message": "Unknown message type"}},
		{"location", NewLocationUpdate(LocationUpdate{
			VehicleID: "V1", VehicleNumber: "BUS-001", RouteID: &route, RouteNumber: &route,
			Latitude: 40.7, Longitude: -74, SpeedKmh: 30, Heading: 90,
			Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}), map[string]interface{}{
			"type": "vehicle_location_update",
			"data": map[string]interface{}{
				"vehicleId": "V1", "vehicleNumber": "BUS-001", "routeId": "45A", "routeNumber": "45A",
				"latitude": 40.7, "longitude": -74.0, "speed_kmh": 30.0, "heading": 90.0,
				"timestamp": "2026-01-02T03:04:05Z",
			}}},
		{"unassigned location", NewLocationUpdate(LocationUpdate{VehicleID: "V3", VehicleNumber: "BUS-003"}),
			map[string]interface{}{
				"type": "vehicle_location_update",
				"data": map[string]interface{}{
					"vehicleId": "V3", "vehicleNumber": "BUS-003", "routeId": nil, "routeNumber": nil,
					"latitude": 0.0, "longitude": 0.0, "speed_kmh": 0.0, "heading": 0.0,
					"timestamp": "0001-01-01T00:00:00Z",
				}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.event.Encode()
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			var got map[string]interface{}
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("wire = %v\nwant %v", got, tt.want)
			}
		})
	}
}
