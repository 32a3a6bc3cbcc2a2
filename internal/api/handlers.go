// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/transitwatch/internal/auth"
	"github.com/tomtom215/transitwatch/internal/config"
	"github.com/tomtom215/transitwatch/internal/events"
	"github.com/tomtom215/transitwatch/internal/ingest"
	"github.com/tomtom215/transitwatch/internal/models"
	"github.com/tomtom215/transitwatch/internal/realtime"
)

// Version is reported by the readiness probe. Overridden at build time.
var Version = "dev"

// Store is the read side of the database used directly by handlers.
type Store interface {
	Ping(ctx context.Context) error
	LookupVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	LocationHistory(ctx context.Context, vehicleID string, since time.Time, limit int) ([]models.LocationSample, error)
	ListActiveAlerts(ctx context.Context, f models.AlertFilter, now time.Time) ([]models.ServiceAlert, error)
	DeactivateAlert(ctx context.Context, id int64) error
}

// Ingestor validates, persists and enriches inbound events.
type Ingestor interface {
	IngestLocation(ctx context.Context, in ingest.LocationInput) (events.Event, []events.Topic, error)
	IngestServiceAlert(ctx context.Context, in ingest.AlertInput) (events.Event, []events.Topic, error)
	IngestETA(ctx context.Context, in ingest.ETAInput) (events.Event, []events.Topic, error)
}

// Hub is the realtime fan-out.
type Hub interface {
	Publish(ctx context.Context, ev events.Event, topics []events.Topic) int
	Serve(conn realtime.Transport)
	SessionCount() int
	TopicCount() int
	Topics() []events.Topic
}

// Authenticator issues, verifies and revokes tokens.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Logout(ctx context.Context, p *auth.Principal) error
	RequireAuth(deny auth.DenyFunc) func(http.Handler) http.Handler
}

// Authorizer gates routes by role permission.
type Authorizer interface {
	Authorize(object, action string, deny auth.DenyFunc) func(http.Handler) http.Handler
}

// RelayStatus reports the cross-instance relay state. Optional.
type RelayStatus interface {
	Status() string
}

// Dependencies are the collaborators a Handler needs. Relay may be nil.
type Dependencies struct {
	Store  Store
	Ingest Ingestor
	Hub    Hub
	Auth   Authenticator
	Authz  Authorizer
	Relay  RelayStatus
}

// Handler serves every HTTP endpoint.
type Handler struct {
	cfg       *config.Config
	store     Store
	ingest    Ingestor
	hub       Hub
	auth      Authenticator
	authz     Authorizer
	relay     RelayStatus
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a handler. cfg supplies CORS origins for the
// WebSocket origin check and the server timeout.
func NewHandler(cfg *config.Config, deps Dependencies) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     deps.Store,
		ingest:    deps.Ingest,
		hub:       deps.Hub,
		auth:      deps.Auth,
		authz:     deps.Authz,
		relay:     deps.Relay,
		startTime: time.Now(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}
