// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/transitwatch/internal/api"
	"github.com/tomtom215/transitwatch/internal/auth"
	"github.com/tomtom215/transitwatch/internal/authz"
	"github.com/tomtom215/transitwatch/internal/config"
	"github.com/tomtom215/transitwatch/internal/database"
	"github.com/tomtom215/transitwatch/internal/ingest"
	"github.com/tomtom215/transitwatch/internal/logging"
	"github.com/tomtom215/transitwatch/internal/realtime"
	"github.com/tomtom215/transitwatch/internal/relay"
	"github.com/tomtom215/transitwatch/internal/supervisor"
	"github.com/tomtom215/transitwatch/internal/supervisor/services"
)

// app holds every long-lived component so close can release them in
// reverse order of construction.
type app struct {
	cfg      *config.Config
	db       *database.DB
	denylist *auth.Denylist
	hub      *realtime.Hub
	monitor  *realtime.Monitor
	nats     *relay.EmbeddedServer
	relay    *relay.Relay
	server   *http.Server
}

func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.db, err = database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	if cfg.Database.SeedDemoData {
		if err = a.db.SeedDemoData(ctx); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		logging.Info().Msg("Demo data seeded")
	}

	err = auth.EnsureAdmin(ctx, a.db, cfg.Security.AdminEmail, cfg.Security.AdminPassword, func(err error) bool {
		return errors.Is(err, database.ErrUserExists)
	})
	if err != nil {
		return nil, err
	}

	store := database.NewResilient(a.db, cfg.Breaker)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("initialize JWT manager: %w", err)
	}
	a.denylist, err = auth.OpenDenylist(cfg.Security.RevocationStorePath)
	if err != nil {
		return nil, fmt.Errorf("open revocation store: %w", err)
	}
	if cfg.Security.RevocationStorePath == "" {
		logging.Warn().Msg("Token revocation list is in memory; revoked tokens become valid again after restart")
	}
	authService := auth.NewService(jwtManager, a.denylist, store, database.IsNotFound)

	enforcer, err := authz.NewEnforcer("")
	if err != nil {
		return nil, fmt.Errorf("initialize authorization policy: %w", err)
	}

	adapter := ingest.NewAdapter(store)
	a.hub = realtime.NewHub(cfg.Realtime, realtime.Deps{
		Verifier: authService,
		Ingestor: adapter,
		Policy:   enforcer,
	})
	a.monitor = realtime.NewMonitor(a.hub, cfg.Realtime.SweepInterval, cfg.Realtime.IdleTimeout)

	deps := api.Dependencies{
		Store:  store,
		Ingest: adapter,
		Hub:    a.hub,
		Auth:   authService,
		Authz:  enforcer,
	}
	if cfg.Relay.Enabled {
		if err = a.startRelay(); err != nil {
			return nil, err
		}
		deps.Relay = a.relay
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS allows any origin; set CORS_ORIGINS to specific origins in production")
			break
		}
	}

	handler := api.NewHandler(cfg, deps)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))
	a.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// startRelay connects to NATS, starting an embedded server first when
// configured, and installs the relay as the hub's forwarder.
func (a *app) startRelay() error {
	rc := a.cfg.Relay
	url := rc.URL
	if rc.EmbeddedServer {
		ns, err := relay.NewEmbeddedServer(rc.EmbeddedHost, rc.EmbeddedPort)
		if err != nil {
			return fmt.Errorf("start embedded NATS: %w", err)
		}
		a.nats = ns
		url = ns.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	pub, sub, err := relay.NewNATSTransport(relay.TransportConfig{URL: url}, logging.NewWatermillLogger("nats"))
	if err != nil {
		return fmt.Errorf("connect relay transport: %w", err)
	}
	r, err := relay.New(relay.Config{Subject: rc.Subject, InstanceID: rc.InstanceID}, pub, sub, a.hub)
	if err != nil {
		_ = pub.Close()
		_ = sub.Close()
		return fmt.Errorf("create relay: %w", err)
	}
	a.relay = r
	a.hub.SetForwarder(r)
	logging.Info().Str("subject", rc.Subject).Str("instance_id", r.InstanceID()).Msg("Relay enabled")
	return nil
}

// supervise registers every service with tree.
func (a *app) supervise(tree *supervisor.SupervisorTree) {
	if a.relay != nil {
		tree.AddDataService(services.NewRelayService(a.relay))
	}
	tree.AddMessagingService(services.NewHubService(a.hub))
	tree.AddMessagingService(services.NewMonitorService(a.monitor))
	tree.AddAPIService(services.NewHTTPServerService(a.server, a.cfg.Server.ShutdownTimeout))
}

// close releases stores and the embedded NATS server. Safe on a partially
// built app.
func (a *app) close() {
	if a.relay != nil {
		if err := a.relay.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing relay")
		}
	}
	if a.nats != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.nats.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error stopping embedded NATS server")
		}
		cancel()
	}
	if a.denylist != nil {
		if err := a.denylist.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing revocation store")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}
}
