// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package config

import (
	"errors"
	"fmt"
	"strings"
)

// MinJWTSecretLength is the shortest accepted HS256 secret.
const MinJWTSecretLength = 32

// Validate checks the loaded configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateRealtime(); err != nil {
		return err
	}
	if err := c.validateRelay(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("DUCKDB_PATH is required")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	if c.Security.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if (c.Security.AdminEmail == "") != (c.Security.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if !c.Security.RateLimitDisabled && (c.Security.RateLimitReqs <= 0 || c.Security.RateLimitWindow <= 0) {
		return errors.New("rate limit requests and window must be positive unless DISABLE_RATE_LIMIT=true")
	}
	return nil
}

// validateRealtime enforces 0 < sweep < idle; a sweep slower than the idle
// timeout could let a dead session skip the probe stage entirely.
func (c *Config) validateRealtime() error {
	r := c.Realtime
	if r.SweepInterval <= 0 {
		return errors.New("WS_SWEEP_INTERVAL must be positive")
	}
	if r.SweepInterval >= r.IdleTimeout {
		return fmt.Errorf("WS_SWEEP_INTERVAL (%s) must be less than WS_IDLE_TIMEOUT (%s)", r.SweepInterval, r.IdleTimeout)
	}
	if r.SendBuffer < 1 {
		return errors.New("WS_SEND_BUFFER must be at least 1")
	}
	if r.MaxMessageSize < 256 {
		return errors.New("WS_MAX_MESSAGE_SIZE must be at least 256 bytes")
	}
	if r.WriteWait <= 0 {
		return errors.New("WS_WRITE_WAIT must be positive")
	}
	if r.MalformedLimit < 0 {
		return errors.New("WS_MALFORMED_LIMIT must not be negative")
	}
	if r.MalformedLimit > 0 && r.MalformedWindow <= 0 {
		return errors.New("WS_MALFORMED_WINDOW must be positive when WS_MALFORMED_LIMIT is set")
	}
	return nil
}

func (c *Config) validateRelay() error {
	if !c.Relay.Enabled {
		return nil
	}
	if c.Relay.Subject == "" {
		return errors.New("RELAY_SUBJECT is required when RELAY_ENABLED=true")
	}
	if c.Relay.EmbeddedServer {
		if c.Relay.EmbeddedPort < 1 || c.Relay.EmbeddedPort > 65535 {
			return fmt.Errorf("NATS_PORT must be between 1 and 65535, got %d", c.Relay.EmbeddedPort)
		}
		return nil
	}
	if !strings.HasPrefix(c.Relay.URL, "nats://") && !strings.HasPrefix(c.Relay.URL, "tls://") {
		return fmt.Errorf("NATS_URL must start with nats:// or tls://, got %q", c.Relay.URL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
