// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/transitwatch/internal/auth"
	"github.com/tomtom215/transitwatch/internal/authz"
	"github.com/tomtom215/transitwatch/internal/config"
	"github.com/tomtom215/transitwatch/internal/events"
	"github.com/tomtom215/transitwatch/internal/ingest"
	"github.com/tomtom215/transitwatch/internal/logging"
	"github.com/tomtom215/transitwatch/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful path (SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Eviction reasons recorded in metrics and logs.
const (
	ReasonSlowConsumer = "slow_consumer"
	ReasonIdle         = "idle"
	ReasonProbeFailed  = "probe_failed"
	ReasonMalformed    = "malformed"
	ReasonShutdown     = "shutdown"
)

const (
	defaultSendBuffer     = 256
	defaultMaxMessageSize = 64 * 1024
	defaultWriteWait      = 10 * time.Second

	inboundTimeout = 10 * time.Second
)

// TokenVerifier checks a bearer token sent in an auth frame.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*auth.Principal, error)
}

// LocationIngestor validates and persists a location update sent over the socket.
type LocationIngestor interface {
	IngestLocation(ctx context.Context, in ingest.LocationInput) (events.Event, []events.Topic, error)
}

// Policy decides whether a role may act on an object.
type Policy interface {
	Allow(role, object, action string) bool
}

// Forwarder carries an already-encoded frame to other instances.
type Forwarder interface {
	Forward(ctx context.Context, kind string, frame []byte, topics []events.Topic) error
}

// Deps are the hub's collaborators. Any may be nil; the matching inbound
// frames are then answered with an error.
type Deps struct {
	Verifier TokenVerifier
	Ingestor LocationIngestor
	Policy   Policy
}

// Hub owns every live session and the topic registry. All mutation of
// either happens under mu.
type Hub struct {
	cfg      config.RealtimeConfig
	verifier TokenVerifier
	ingestor LocationIngestor
	policy   Policy
	now      func() time.Time

	mu        sync.Mutex
	sessions  map[*Session]struct{}
	registry  *Registry
	forwarder Forwarder
}

// NewHub creates a hub. Zero config fields take their defaults.
func NewHub(cfg config.RealtimeConfig, deps Deps) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	return &Hub{
		cfg:      cfg,
		verifier: deps.Verifier,
		ingestor: deps.Ingestor,
		policy:   deps.Policy,
		now:      time.Now,
		sessions: make(map[*Session]struct{}),
		registry: NewRegistry(),
	}
}

// SetForwarder installs the cross-instance relay. Call before serving.
func (h *Hub) SetForwarder(f Forwarder) {
	h.mu.Lock()
	h.forwarder = f
	h.mu.Unlock()
}

// Accept registers a new session for conn and queues its connected frame.
// The caller starts the pumps; Serve does both.
func (h *Hub) Accept(conn Transport) *Session {
	s := newSession(conn, h.cfg, h.now())

	h.mu.Lock()
	h.sessions[s] = struct{}{}
	count := len(h.sessions)
	h.mu.Unlock()
	metrics.WSSessions.Set(float64(count))

	logging.Info().Str("session", s.id.String()).Int("total_clients", count).Msg("websocket client connected")
	h.reply(s, events.Connected(s.id.String()))
	return s
}

// Serve runs a session for conn until the peer goes away or the hub drops
// it. It blocks on the read loop.
func (h *Hub) Serve(conn Transport) {
	s := h.Accept(conn)
	go s.writePump(h)
	s.readPump(h)
}

// HandleInbound decodes and dispatches one client frame. Frames from one
// session are handled in arrival order.
func (h *Hub) HandleInbound(s *Session, frame []byte) {
	metrics.WSMessagesReceived.Inc()

	in, err := DecodeInbound(frame)
	if err != nil {
		h.rejectMalformed(s, err.Error())
		return
	}

	switch in.Kind {
	case InboundAuth:
		h.authenticate(s, in.Token)
	case InboundSubscribe:
		if h.subscribe(s, in.Channel) {
			h.reply(s, events.Subscribed(string(in.Channel)))
		}
	case InboundUnsubscribe:
		if h.unsubscribe(s, in.Channel) {
			h.reply(s, events.Unsubscribed(string(in.Channel)))
		}
	case InboundPing:
		h.reply(s, events.Pong())
	case InboundLocation:
		h.publishLocation(s, in.Location)
	default:
		h.rejectMalformed(s, errUnknownType.Error())
	}
}

func (h *Hub) authenticate(s *Session, token string) {
	if token == "" {
		metrics.WSErrors.WithLabelValues("auth").Inc()
		h.reply(s, events.AuthFailed("Invalid token"))
		return
	}
	if h.verifier == nil {
		h.reply(s, events.AuthFailed("Authentication unavailable"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
	defer cancel()

	p, err := h.verifier.VerifyToken(ctx, token)
	if err != nil {
		msg := "Authentication failed"
		var ae *auth.AuthError
		if errors.As(err, &ae) {
			msg = ae.Message()
		} else {
			logging.Error().Err(err).Str("session", s.id.String()).Msg("token verification failed")
		}
		metrics.WSErrors.WithLabelValues("auth").Inc()
		h.reply(s, events.AuthFailed(msg))
		return
	}
	s.principal.Store(p)
	logging.Debug().Str("session", s.id.String()).Str("user_id", p.UserID).Str("role", p.Role).Msg("websocket session authenticated")
	h.reply(s, events.AuthSucceeded(p.UserID, p.Role))
}

func (h *Hub) publishLocation(s *Session, loc *ingest.LocationInput) {
	p := s.Principal()
	if p == nil {
		h.reply(s, events.Error("Authentication required"))
		return
	}
	if h.policy == nil || !h.policy.Allow(p.Role, authz.ObjectVehicleLocation, authz.ActionPublish) {
		h.reply(s, events.Error("Not authorized to publish vehicle locations"))
		return
	}
	if h.ingestor == nil {
		h.reply(s, events.Error("Location updates are not accepted"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
	defer cancel()
	ctx = logging.ContextWithNewCorrelationID(ctx)

	ev, topics, err := h.ingestor.IngestLocation(ctx, *loc)
	if err != nil {
		var ve *ingest.ValidationError
		if errors.As(err, &ve) {
			h.reply(s, events.Error(ve.Message))
			return
		}
		logging.CtxErr(ctx, err).Str("session", s.id.String()).Msg("location ingest failed")
		h.reply(s, events.Error("Failed to process location update"))
		return
	}
	h.Publish(ctx, ev, topics)
}

func (h *Hub) rejectMalformed(s *Session, msg string) {
	metrics.WSErrors.WithLabelValues("malformed").Inc()
	if !s.allowMalformed(h.now()) {
		h.reply(s, events.Error("Too many malformed messages"))
		h.evict(s, ReasonMalformed)
		return
	}
	h.reply(s, events.Error(msg))
}

// reply sends a control frame to one session, bypassing topic routing.
func (h *Hub) reply(s *Session, ev events.Event) {
	frame, err := ev.Encode()
	if err != nil {
		logging.Error().Err(err).Str("type", ev.Type).Msg("failed to encode websocket frame")
		return
	}
	if err := s.enqueue(frame); err != nil {
		if errors.Is(err, errQueueFull) {
			h.evict(s, ReasonSlowConsumer)
		}
	}
}

func (h *Hub) subscribe(s *Session, t events.Topic) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, live := h.sessions[s]; !live {
		return false
	}
	h.registry.Subscribe(s, t)
	s.subs[t] = struct{}{}
	metrics.WSTopics.Set(float64(h.registry.Len()))
	return true
}

func (h *Hub) unsubscribe(s *Session, t events.Topic) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, live := h.sessions[s]; !live {
		return false
	}
	h.registry.Unsubscribe(s, t)
	delete(s.subs, t)
	metrics.WSTopics.Set(float64(h.registry.Len()))
	return true
}

// Publish broadcasts ev locally and hands the same encoded frame to the
// forwarder, if any. It returns the local delivery count.
func (h *Hub) Publish(ctx context.Context, ev events.Event, topics []events.Topic) int {
	frame, err := ev.Encode()
	if err != nil {
		logging.CtxErr(ctx, err).Str("type", ev.Type).Msg("failed to encode event")
		return 0
	}
	delivered := h.BroadcastRaw(ev.Type, frame, topics)

	h.mu.Lock()
	fwd := h.forwarder
	h.mu.Unlock()
	if fwd != nil {
		if err := fwd.Forward(ctx, ev.Type, frame, topics); err != nil {
			logging.CtxErr(ctx, err).Str("type", ev.Type).Msg("failed to forward event to relay")
		}
	}
	return delivered
}

// Broadcast delivers ev to every session subscribed to any of topics.
func (h *Hub) Broadcast(ev events.Event, topics []events.Topic) int {
	frame, err := ev.Encode()
	if err != nil {
		logging.Error().Err(err).Str("type", ev.Type).Msg("failed to encode event")
		return 0
	}
	return h.BroadcastRaw(ev.Type, frame, topics)
}

// BroadcastRaw delivers an encoded frame to the union of the members of
// topics. A session subscribed to several of them receives it once.
// Sessions whose queue is full are evicted; the rest still receive it.
func (h *Hub) BroadcastRaw(kind string, frame []byte, topics []events.Topic) int {
	var (
		delivered int
		failed    []*Session
	)
	seen := make(map[*Session]struct{})

	h.mu.Lock()
	for _, t := range topics {
		for s := range h.registry.MembersOf(t) {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			if err := s.enqueue(frame); err != nil {
				failed = append(failed, s)
				continue
			}
			delivered++
		}
	}
	for _, s := range failed {
		h.removeLocked(s)
	}
	h.updateGaugesLocked()
	h.mu.Unlock()

	for _, s := range failed {
		s.close()
		metrics.RecordEviction(ReasonSlowConsumer)
		logging.Warn().Str("session", s.id.String()).Str("type", kind).Msg("evicted slow websocket client")
	}
	metrics.RecordBroadcast(kind, delivered)
	return delivered
}

// Disconnect removes s from the hub and every topic, then closes it.
// It is idempotent.
func (h *Hub) Disconnect(s *Session, reason string) {
	h.mu.Lock()
	removed := h.removeLocked(s)
	count := len(h.sessions)
	h.updateGaugesLocked()
	h.mu.Unlock()

	s.close()
	if removed {
		logging.Info().Str("session", s.id.String()).Str("reason", reason).Int("total_clients", count).
			Msg("websocket client disconnected")
	}
}

// evict is Disconnect for server-initiated removals.
func (h *Hub) evict(s *Session, reason string) {
	metrics.RecordEviction(reason)
	h.Disconnect(s, reason)
}

func (h *Hub) removeLocked(s *Session) bool {
	if _, ok := h.sessions[s]; !ok {
		return false
	}
	h.registry.RemoveAll(s, s.subs)
	s.subs = make(map[events.Topic]struct{})
	delete(h.sessions, s)
	return true
}

func (h *Hub) updateGaugesLocked() {
	metrics.WSSessions.Set(float64(len(h.sessions)))
	metrics.WSTopics.Set(float64(h.registry.Len()))
}

// snapshot returns the live sessions. Used by the monitor outside the lock.
func (h *Hub) snapshot() []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// RunWithContext blocks until ctx is canceled, then closes every session.
func (h *Hub) RunWithContext(ctx context.Context) error {
	<-ctx.Done()

	count := h.closeAll()
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", count).
		Msg("websocket hub stopped")
	return ctx.Err()
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

func (h *Hub) closeAll() int {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	for _, s := range sessions {
		h.removeLocked(s)
	}
	h.updateGaugesLocked()
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	return len(sessions)
}

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// TopicCount returns the number of topics with at least one subscriber.
func (h *Hub) TopicCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Len()
}

// Subscribers returns the number of sessions subscribed to t.
func (h *Hub) Subscribers(t events.Topic) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.registry.MembersOf(t))
}

// Topics lists the topics that currently have subscribers.
func (h *Hub) Topics() []events.Topic {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Topics()
}
