// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package relay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"

	"github.com/tomtom215/transitwatch/internal/events"
	"github.com/tomtom215/transitwatch/internal/logging"
	"github.com/tomtom215/transitwatch/internal/metrics"
)

// MetadataOrigin carries the publishing instance id on every message.
const MetadataOrigin = "origin"

const handlerName = "relay-fanout"

// Status values reported by Relay.Status.
const (
	StatusStopped = "stopped"
	StatusRunning = "running"
)

// ErrClosed is returned by Forward after Close.
var ErrClosed = errors.New("relay closed")

// Broadcaster delivers a relayed frame to local sessions.
type Broadcaster interface {
	BroadcastRaw(kind string, frame []byte, topics []events.Topic) int
}

// Config selects the subject and identity of this instance.
type Config struct {
	Subject      string
	InstanceID   string // generated when empty
	CloseTimeout time.Duration
}

// Relay publishes local events and replays remote ones into the hub.
type Relay struct {
	pub        message.Publisher
	sub        message.Subscriber
	router     *message.Router
	hub        Broadcaster
	subject    string
	instanceID string
	running    atomic.Bool
	closed     atomic.Bool
}

// New wires a relay over pub/sub. Call Run to start consuming.
func New(cfg Config, pub message.Publisher, sub message.Subscriber, hub Broadcaster) (*Relay, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("relay subject is required")
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 10 * time.Second
	}

	logger := logging.NewWatermillLogger("relay")
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	r := &Relay{
		pub:        pub,
		sub:        sub,
		router:     router,
		hub:        hub,
		subject:    cfg.Subject,
		instanceID: cfg.InstanceID,
	}
	router.AddConsumerHandler(handlerName, cfg.Subject, sub, r.handle)
	return r, nil
}

// InstanceID returns the id stamped on outgoing envelopes.
func (r *Relay) InstanceID() string { return r.instanceID }

// Forward publishes an encoded frame for other instances.
func (r *Relay) Forward(ctx context.Context, kind string, frame []byte, topics []events.Topic) error {
	if r.closed.Load() {
		return ErrClosed
	}
	payload, err := EncodeEnvelope(r.instanceID, kind, frame, topics)
	if err != nil {
		metrics.RelayMessages.WithLabelValues("failed").Inc()
		return fmt.Errorf("encode relay envelope: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataOrigin, r.instanceID)
	msg.SetContext(ctx)

	if err := r.pub.Publish(r.subject, msg); err != nil {
		metrics.RelayMessages.WithLabelValues("failed").Inc()
		return fmt.Errorf("publish to %s: %w", r.subject, err)
	}
	metrics.RelayMessages.WithLabelValues("published").Inc()
	return nil
}

// handle replays a remote envelope. Undecodable messages are acked and
// dropped; retrying them cannot succeed.
func (r *Relay) handle(msg *message.Message) error {
	if msg.Metadata.Get(MetadataOrigin) == r.instanceID {
		metrics.RelayMessages.WithLabelValues("skipped").Inc()
		return nil
	}
	env, topics, err := DecodeEnvelope(msg.Payload)
	if err != nil {
		metrics.RelayMessages.WithLabelValues("failed").Inc()
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping relay message")
		return nil
	}
	if env.Origin == r.instanceID {
		metrics.RelayMessages.WithLabelValues("skipped").Inc()
		return nil
	}
	metrics.RelayMessages.WithLabelValues("received").Inc()
	delivered := r.hub.BroadcastRaw(env.Kind, env.Frame, topics)
	logging.Debug().Str("origin", env.Origin).Str("type", env.Kind).Int("delivered", delivered).Msg("relayed event")
	return nil
}

// Run consumes until ctx is canceled.
func (r *Relay) Run(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)
	logging.Info().Str("subject", r.subject).Str("instance_id", r.instanceID).Msg("relay started")
	return r.router.Run(ctx)
}

// Running closes once the router is consuming.
func (r *Relay) Running() <-chan struct{} {
	return r.router.Running()
}

// Status reports whether the consumer loop is active.
func (r *Relay) Status() string {
	if r.running.Load() {
		return StatusRunning
	}
	return StatusStopped
}

// Close stops the router and both transports.
func (r *Relay) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	var errs []error
	if err := r.router.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close router: %w", err))
	}
	if err := r.pub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if err := r.sub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}
	return errors.Join(errs...)
}
