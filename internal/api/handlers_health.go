// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/transitwatch/internal/events"
	"github.com/tomtom215/transitwatch/internal/models"
	"github.com/tomtom215/transitwatch/internal/realtime"
)

const readyPingTimeout = 2 * time.Second

// HealthLive handles liveness probes.
//
// @Summary Liveness probe
// @Description Returns 200 while the process is up, regardless of dependencies
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse "Service is alive"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady handles readiness probes. The store must answer a ping.
//
// @Summary Readiness probe
// @Description Pings the store and reports hub statistics. Returns 503 when the store is unreachable.
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus} "Service is ready"
// @Failure 503 {object} models.APIResponse{data=models.HealthStatus} "Store unreachable"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyPingTimeout)
	defer cancel()

	dbOK := h.store != nil && h.store.Ping(ctx) == nil
	health := models.HealthStatus{
		Status:    "healthy",
		Database:  dbOK,
		Relay:     "disabled",
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   Version,
		CheckedAt: h.now().Format(time.RFC3339),
	}
	if h.hub != nil {
		health.Sessions = h.hub.SessionCount()
		health.Topics = h.hub.TopicCount()
	}
	if h.relay != nil {
		health.Relay = h.relay.Status()
	}

	status := http.StatusOK
	if !dbOK {
		health.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	respondData(w, r, status, health)
}

// RealtimeInfo describes the WebSocket endpoint and its current load.
//
// @Summary Realtime hub information
// @Description Active connection and topic counts, the active topics and the accepted channel grammar
// @Tags Realtime
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.RealtimeInfo}
// @Router /realtime [get]
func (h *Handler) RealtimeInfo(w http.ResponseWriter, r *http.Request) {
	info := models.RealtimeInfo{
		Path:         wsPath,
		Channels:     events.Grammar,
		InboundTypes: realtime.InboundTypes,
		Topics:       []string{},
	}
	if h.hub != nil {
		info.ActiveConnections = h.hub.SessionCount()
		info.ActiveTopics = h.hub.TopicCount()
		for _, t := range h.hub.Topics() {
			info.Topics = append(info.Topics, string(t))
		}
	}
	respondData(w, r, http.StatusOK, info)
}
