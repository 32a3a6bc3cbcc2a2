// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package realtime

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/transitwatch/internal/logging"
	"github.com/tomtom215/transitwatch/internal/metrics"
)

const (
	defaultSweepInterval = 30 * time.Second
	defaultIdleTimeout   = 60 * time.Second
)

// Monitor probes idle sessions and evicts the ones that stay silent.
//
//	Active --(idle > T)--> Probed --(idle > 2T)--> Evicted
//	   ^                      |
//	   +---- frame or pong ---+
type Monitor struct {
	hub   *Hub
	sweep time.Duration
	idle  time.Duration
	now   func() time.Time
}

// NewMonitor creates a monitor for hub using the realtime config intervals.
func NewMonitor(hub *Hub, sweep, idle time.Duration) *Monitor {
	if sweep <= 0 {
		sweep = defaultSweepInterval
	}
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &Monitor{hub: hub, sweep: sweep, idle: idle, now: time.Now}
}

// Sweep runs one liveness pass at now and returns the number of sessions
// probed and evicted.
func (m *Monitor) Sweep(now time.Time) (probed, evicted int) {
	for _, s := range m.hub.snapshot() {
		idle := now.Sub(s.LastActivity())
		switch {
		case s.probed.Load() && idle > 2*m.idle:
			m.hub.evict(s, ReasonIdle)
			evicted++
		case !s.probed.Load() && idle > m.idle:
			// Flag first: a pong can arrive before WriteControl returns.
			s.probed.Store(true)
			err := s.conn.WriteControl(websocket.PingMessage, nil, now.Add(m.hub.cfg.WriteWait))
			if err != nil {
				logging.Debug().Err(err).Str("session", s.id.String()).Msg("liveness probe failed")
				m.hub.evict(s, ReasonProbeFailed)
				evicted++
				continue
			}
			metrics.WSProbes.Inc()
			probed++
		}
	}
	return probed, evicted
}

// RunWithContext sweeps on a ticker until ctx is canceled.
func (m *Monitor) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(m.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "liveness-monitor").Str("reason", string(getShutdownReason(ctx))).
				Msg("liveness monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			probed, evicted := m.Sweep(m.now())
			if probed > 0 || evicted > 0 {
				logging.Debug().Int("probed", probed).Int("evicted", evicted).Msg("liveness sweep")
			}
		}
	}
}
