// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// Package events defines what travels over the fan-out layer: topic names,
// the wire envelope and the payloads of each event kind. It has no
// dependencies on the hub, the store or the relay so all three can share it.
package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/transitwatch/internal/validation"
)

// Topic is a validated channel name:
//
//	tracking | alerts | route:<id> | vehicle:<id> | stop:<id> | city:<id>
//
// where <id> is 1..64 characters of [A-Za-z0-9_-].
type Topic string

// Global topics.
const (
	TopicTracking Topic = "tracking"
	TopicAlerts   Topic = "alerts"
)

// Scoped topic prefixes.
const (
	PrefixRoute   = "route"
	PrefixVehicle = "vehicle"
	PrefixStop    = "stop"
	PrefixCity    = "city"
)

// ErrInvalidTopic is wrapped by ParseTopic failures.
var ErrInvalidTopic = errors.New("invalid channel")

// Grammar lists the accepted channel forms for introspection endpoints.
var Grammar = []string{
	string(TopicTracking),
	string(TopicAlerts),
	PrefixRoute + ":<id>",
	PrefixVehicle + ":<id>",
	PrefixStop + ":<id>",
	PrefixCity + ":<id>",
}

// ParseTopic validates s against the topic grammar.
func ParseTopic(s string) (Topic, error) {
	switch Topic(s) {
	case TopicTracking, TopicAlerts:
		return Topic(s), nil
	}
	prefix, id, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTopic, s)
	}
	switch prefix {
	case PrefixRoute, PrefixVehicle, PrefixStop, PrefixCity:
	default:
		return "", fmt.Errorf("%w: unknown prefix %q", ErrInvalidTopic, prefix)
	}
	if !validation.IsTransitID(id) {
		return "", fmt.Errorf("%w: bad id in %q", ErrInvalidTopic, s)
	}
	return Topic(s), nil
}

func scoped(prefix, id string) Topic {
	return Topic(prefix + ":" + id)
}

// RouteTopic returns route:<id>.
func RouteTopic(id string) Topic { return scoped(PrefixRoute, id) }

// VehicleTopic returns vehicle:<id>.
func VehicleTopic(id string) Topic { return scoped(PrefixVehicle, id) }

// StopTopic returns stop:<id>.
func StopTopic(id string) Topic { return scoped(PrefixStop, id) }

// CityTopic returns city:<id>.
func CityTopic(id string) Topic { return scoped(PrefixCity, id) }

// LocationTopics addresses a location update.
func LocationTopics(vehicleID, routeID string) []Topic {
	topics := []Topic{TopicTracking, VehicleTopic(vehicleID)}
	if routeID != "" {
		topics = append(topics, RouteTopic(routeID))
	}
	return topics
}

// AlertTopics addresses a service alert.
func AlertTopics(cityID, routeID string) []Topic {
	topics := []Topic{TopicAlerts}
	if cityID != "" {
		topics = append(topics, CityTopic(cityID))
	}
	if routeID != "" {
		topics = append(topics, RouteTopic(routeID))
	}
	return topics
}

// ETATopics addresses an arrival prediction.
func ETATopics(stopID, routeID string) []Topic {
	topics := []Topic{StopTopic(stopID)}
	if routeID != "" {
		topics = append(topics, RouteTopic(routeID))
	}
	return topics
}
