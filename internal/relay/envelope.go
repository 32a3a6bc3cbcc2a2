// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package relay

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/transitwatch/internal/events"
)

// Envelope is the relay wire format.
type Envelope struct {
	Origin string          `json:"origin"`
	Kind   string          `json:"kind"`
	Topics []string        `json:"topics"`
	Frame  json.RawMessage `json:"frame"`
}

// EncodeEnvelope serializes an envelope.
func EncodeEnvelope(origin, kind string, frame []byte, topics []events.Topic) ([]byte, error) {
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = string(t)
	}
	return json.Marshal(Envelope{Origin: origin, Kind: kind, Topics: names, Frame: frame})
}

// DecodeEnvelope parses an envelope and revalidates its topics, dropping
// any that do not parse.
func DecodeEnvelope(payload []byte) (Envelope, []events.Topic, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, nil, fmt.Errorf("decode relay envelope: %w", err)
	}
	if env.Origin == "" || env.Kind == "" || len(env.Frame) == 0 {
		return Envelope{}, nil, fmt.Errorf("decode relay envelope: missing origin, kind or frame")
	}
	topics := make([]events.Topic, 0, len(env.Topics))
	for _, name := range env.Topics {
		t, err := events.ParseTopic(name)
		if err != nil {
			continue
		}
		topics = append(topics, t)
	}
	return env, topics, nil
}
