// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if cfg.Realtime.SweepInterval != 30*time.Second {
		t.Errorf("SweepInterval = %v, want 30s", cfg.Realtime.SweepInterval)
	}
	if cfg.Realtime.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.Realtime.IdleTimeout)
	}
	if cfg.Security.TokenTTL != 7*24*time.Hour {
		t.Errorf("TokenTTL = %v, want 168h", cfg.Security.TokenTTL)
	}
	if cfg.Realtime.MalformedLimit != 0 {
		t.Errorf("MalformedLimit = %d, want 0 (disabled)", cfg.Realtime.MalformedLimit)
	}
	if cfg.Relay.Enabled {
		t.Error("relay should be disabled by default")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"WS_SWEEP_INTERVAL", "realtime.sweep_interval"},
		{"ws_idle_timeout", "realtime.idle_timeout"},
		{"NATS_URL", "relay.url"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("WS_IDLE_TIMEOUT", "90s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("WS_MALFORMED_LIMIT", "5")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Realtime.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v, want 90s", cfg.Realtime.IdleTimeout)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Realtime.MalformedLimit != 5 {
		t.Errorf("MalformedLimit = %d, want 5", cfg.Realtime.MalformedLimit)
	}
	if cfg.Realtime.SweepInterval != 30*time.Second {
		t.Errorf("SweepInterval default lost: %v", cfg.Realtime.SweepInterval)
	}
}

func TestLoadWithKoanfFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transitwatch.yaml")
	yaml := `
server:
  port: 7000
realtime:
  sweep_interval: 10s
  idle_timeout: 20s
relay:
  enabled: true
  url: nats://nats:4222
security:
  jwt_secret: ` + testSecret + `
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "7100")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("env should override file: Port = %d", cfg.Server.Port)
	}
	if cfg.Realtime.SweepInterval != 10*time.Second || cfg.Realtime.IdleTimeout != 20*time.Second {
		t.Errorf("file values not applied: %+v", cfg.Realtime)
	}
	if !cfg.Relay.Enabled || cfg.Relay.URL != "nats://nats:4222" {
		t.Errorf("relay = %+v", cfg.Relay)
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")

	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() = %q, want empty", got)
	}
	if err := os.WriteFile("config.yml", []byte("server:\n  port: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := findConfigFile(); got != "config.yml" {
		t.Errorf("findConfigFile() = %q, want config.yml", got)
	}
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = testSecret
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with secret", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "JWT_SECRET"},
		{"sweep equals idle", func(c *Config) { c.Realtime.SweepInterval = c.Realtime.IdleTimeout }, "WS_SWEEP_INTERVAL"},
		{"sweep above idle", func(c *Config) { c.Realtime.SweepInterval = 2 * time.Minute }, "WS_SWEEP_INTERVAL"},
		{"zero sweep", func(c *Config) { c.Realtime.SweepInterval = 0 }, "WS_SWEEP_INTERVAL"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"admin email without password", func(c *Config) { c.Security.AdminEmail = "a@b.c" }, "ADMIN_PASSWORD"},
		{"malformed limit without window", func(c *Config) {
			c.Realtime.MalformedLimit = 3
			c.Realtime.MalformedWindow = 0
		}, "WS_MALFORMED_WINDOW"},
		{"relay bad url", func(c *Config) {
			c.Relay.Enabled = true
			c.Relay.URL = "http://nats"
		}, "NATS_URL"},
		{"relay embedded ignores url", func(c *Config) {
			c.Relay.Enabled = true
			c.Relay.EmbeddedServer = true
			c.Relay.URL = ""
		}, ""},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	t.Parallel()
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}
