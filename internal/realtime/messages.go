// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package realtime

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/transitwatch/internal/events"
	"github.com/tomtom215/transitwatch/internal/ingest"
)

// InboundKind tags a decoded client frame.
type InboundKind int

const (
	InboundUnknown InboundKind = iota
	InboundAuth
	InboundSubscribe
	InboundUnsubscribe
	InboundPing
	InboundLocation
)

// Inbound frame type names.
const (
	TypeAuth        = "auth"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
)

// InboundTypes lists the accepted client frame types.
var InboundTypes = []string{TypeAuth, TypeSubscribe, TypeUnsubscribe, TypePing, events.KindLocationUpdate}

// DecodeError is a client-facing reason a frame was rejected.
type DecodeError string

func (e DecodeError) Error() string { return string(e) }

const (
	errInvalidFormat DecodeError = "Invalid message format"
	errUnknownType   DecodeError = "Unknown message type"
)

// Inbound is a decoded client frame. Only the fields for Kind are set.
type Inbound struct {
	Kind     InboundKind
	Token    string
	Channel  events.Topic
	Location *ingest.LocationInput
}

type rawInbound struct {
	Type    string          `json:"type"`
	Token   string          `json:"token"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// DecodeInbound parses frame into a tagged Inbound. The error text is safe
// to send back to the client.
func DecodeInbound(frame []byte) (Inbound, error) {
	var raw rawInbound
	if err := json.Unmarshal(frame, &raw); err != nil {
		return Inbound{}, errInvalidFormat
	}

	switch raw.Type {
	case TypeAuth:
		// An empty token is an auth failure, not a malformed frame.
		return Inbound{Kind: InboundAuth, Token: raw.Token}, nil

	case TypeSubscribe, TypeUnsubscribe:
		topic, err := events.ParseTopic(raw.Channel)
		if err != nil {
			return Inbound{}, DecodeError(fmt.Sprintf("Invalid channel: %q", raw.Channel))
		}
		kind := InboundSubscribe
		if raw.Type == TypeUnsubscribe {
			kind = InboundUnsubscribe
		}
		return Inbound{Kind: kind, Channel: topic}, nil

	case TypePing:
		return Inbound{Kind: InboundPing}, nil

	case events.KindLocationUpdate:
		if len(raw.Data) == 0 {
			return Inbound{}, errInvalidFormat
		}
		var loc ingest.LocationInput
		if err := json.Unmarshal(raw.Data, &loc); err != nil {
			return Inbound{}, errInvalidFormat
		}
		return Inbound{Kind: InboundLocation, Location: &loc}, nil

	case "":
		return Inbound{}, errInvalidFormat
	default:
		return Inbound{}, errUnknownType
	}
}
