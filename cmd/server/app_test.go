// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/transitwatch/internal/config"
	"github.com/tomtom215/transitwatch/internal/relay"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0, Timeout: 5 * time.Second, ShutdownTimeout: time.Second},
		Database: config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1, SeedDemoData: true},
		Security: config.SecurityConfig{
			JWTSecret:         strings.Repeat("s", 32),
			TokenTTL:          time.Hour,
			AdminEmail:        "admin@example.com",
			AdminPassword:     "change-me-please",
			RateLimitDisabled: true,
		},
		Realtime: config.RealtimeConfig{SweepInterval: time.Second, IdleTimeout: time.Minute},
		Relay:    config.RelayConfig{Subject: "transitwatch.test", EmbeddedHost: "127.0.0.1", EmbeddedPort: -1},
		Supervisor: config.SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   100 * time.Millisecond,
			ShutdownTimeout:  2 * time.Second,
		},
	}
}

func TestNewApp_ServesHealth(t *testing.T) {
	a, err := newApp(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(a.close)

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		rec := httptest.NewRecorder()
		a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200: %s", path, rec.Code, rec.Body.String())
		}
	}
	if a.relay != nil {
		t.Error("relay started while disabled")
	}
}

func TestNewApp_BootstrapAdminIsIdempotent(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Path = t.TempDir() + "/transitwatch.duckdb"

	for i := 0; i < 2; i++ {
		a, err := newApp(context.Background(), cfg)
		if err != nil {
			t.Fatalf("newApp() run %d error = %v", i+1, err)
		}
		a.close()
	}
}

func TestNewApp_RejectsShortSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Security.JWTSecret = "short"
	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Fatal("newApp() accepted a short JWT secret")
	}
}

func TestNewApp_EmbeddedRelay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	cfg := testConfig()
	cfg.Relay.Enabled = true
	cfg.Relay.EmbeddedServer = true

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(a.close)

	if a.nats == nil || !a.nats.IsRunning() {
		t.Fatal("embedded NATS server not running")
	}
	if a.relay == nil {
		t.Fatal("relay not created")
	}
	if got := a.relay.Status(); got != relay.StatusStopped {
		t.Errorf("Status() before Run = %q, want %q", got, relay.StatusStopped)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, testConfig()) }()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}
