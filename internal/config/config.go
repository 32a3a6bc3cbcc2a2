// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// Package config loads Transitwatch configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence (later
// layers win). See LoadWithKoanf for the layering and envTransformFunc for
// the recognised environment variables.
package config

import "time"

// Config is the root configuration tree.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Security   SecurityConfig   `koanf:"security"`
	Realtime   RealtimeConfig   `koanf:"realtime"`
	Relay      RelayConfig      `koanf:"relay"`
	Breaker    BreakerConfig    `koanf:"breaker"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}

// DatabaseConfig controls the embedded DuckDB store.
type DatabaseConfig struct {
	Path         string `koanf:"path"`
	MaxMemory    string `koanf:"max_memory"`
	Threads      int    `koanf:"threads"`
	SeedDemoData bool   `koanf:"seed_demo_data"`
}

// SecurityConfig covers token issuance, revocation, CORS and rate limiting.
type SecurityConfig struct {
	JWTSecret           string        `koanf:"jwt_secret"`
	TokenTTL            time.Duration `koanf:"token_ttl"`
	RevocationStorePath string        `koanf:"revocation_store_path"` // empty keeps the denylist in memory
	AdminEmail          string        `koanf:"admin_email"`
	AdminPassword       string        `koanf:"admin_password"`
	CORSOrigins         []string      `koanf:"cors_origins"`
	RateLimitReqs       int           `koanf:"rate_limit_reqs"`
	RateLimitWindow     time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled   bool          `koanf:"rate_limit_disabled"`
}

// RealtimeConfig controls the WebSocket hub and the liveness monitor.
type RealtimeConfig struct {
	SweepInterval   time.Duration `koanf:"sweep_interval"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	SendBuffer      int           `koanf:"send_buffer"`
	MaxMessageSize  int64         `koanf:"max_message_size"`
	WriteWait       time.Duration `koanf:"write_wait"`
	MalformedLimit  int           `koanf:"malformed_limit"` // 0 disables eviction for bad frames
	MalformedWindow time.Duration `koanf:"malformed_window"`
}

// RelayConfig controls cross-instance fan-out over NATS.
type RelayConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	EmbeddedHost   string `koanf:"embedded_host"`
	EmbeddedPort   int    `koanf:"embedded_port"`
	Subject        string `koanf:"subject"`
	InstanceID     string `koanf:"instance_id"` // generated at startup when empty
}

// BreakerConfig tunes the circuit breaker around the store.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// SupervisorConfig mirrors suture's restart tuning.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig feeds logging.Init.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load is the entry point used by main.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
