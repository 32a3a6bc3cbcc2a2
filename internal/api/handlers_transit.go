// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/transitwatch/internal/auth"
	"github.com/tomtom215/transitwatch/internal/events"
	"github.com/tomtom215/transitwatch/internal/ingest"
	"github.com/tomtom215/transitwatch/internal/logging"
	"github.com/tomtom215/transitwatch/internal/models"
	"github.com/tomtom215/transitwatch/internal/validation"
)

const (
	defaultHistoryLimit = 50
	defaultHistoryHours = 24
)

// publish broadcasts a successfully ingested event and writes the result.
func (h *Handler) publish(w http.ResponseWriter, r *http.Request, status int, ev events.Event, topics []events.Topic) {
	delivered := h.hub.Publish(r.Context(), ev, topics)
	respondData(w, r, status, models.PublishResult{
		Type:      ev.Type,
		Topics:    topicNames(topics),
		Delivered: delivered,
		Data:      ev.Data,
	})
}

// PostLocation ingests a vehicle position and broadcasts it.
//
// @Summary Publish a vehicle location
// @Description Validates and stores a GPS fix, then broadcasts it to tracking, vehicle and route subscribers
// @Tags Vehicles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vehicle ID"
// @Param location body models.LocationRequest true "Position report"
// @Success 200 {object} models.APIResponse{data=models.PublishResult}
// @Failure 400 {object} models.APIResponse "Validation failed"
// @Failure 401 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Failure 500 {object} models.APIResponse "Store failure"
// @Failure 503 {object} models.APIResponse "Store unavailable"
// @Router /vehicles/{id}/location [post]
func (h *Handler) PostLocation(w http.ResponseWriter, r *http.Request) {
	var req models.LocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	speed, heading := req.SpeedKmh, req.Heading
	in := ingest.LocationInput{
		VehicleID:      chi.URLParam(r, "id"),
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		SpeedKmh:       &speed,
		Heading:        &heading,
		AccuracyMeters: req.AccuracyMeters,
	}

	ev, topics, err := h.ingest.IngestLocation(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.publish(w, r, http.StatusOK, ev, topics)
}

// LocationHistory returns recent fixes for a vehicle, newest first.
//
// @Summary Vehicle location history
// @Tags Vehicles
// @Produce json
// @Param id path string true "Vehicle ID"
// @Param limit query int false "Maximum samples (1-1000)" default(50)
// @Param hours query int false "Look-back window in hours (1-720)" default(24)
// @Success 200 {object} models.APIResponse{data=[]models.LocationSample}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse "Unknown vehicle"
// @Router /vehicles/{id}/location [get]
func (h *Handler) LocationHistory(w http.ResponseWriter, r *http.Request) {
	req := models.LocationHistoryRequest{VehicleID: chi.URLParam(r, "id")}
	var ok bool
	if req.Limit, ok = queryInt(w, r, "limit", defaultHistoryLimit); !ok {
		return
	}
	if req.Hours, ok = queryInt(w, r, "hours", defaultHistoryHours); !ok {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	if _, err := h.store.LookupVehicle(r.Context(), req.VehicleID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	since := h.now().Add(-time.Duration(req.Hours) * time.Hour)
	samples, err := h.store.LocationHistory(r.Context(), req.VehicleID, since, req.Limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, r, samples, len(samples))
}

// ListAlerts returns active alerts, most severe first.
//
// @Summary Active service alerts
// @Tags Alerts
// @Produce json
// @Param city_id query string false "City filter (also matches unscoped alerts)"
// @Param route_id query string false "Route filter (also matches unscoped alerts)"
// @Param severity query string false "Severity" Enums(low, medium, high, critical)
// @Success 200 {object} models.APIResponse{data=[]models.ServiceAlert}
// @Failure 400 {object} models.APIResponse
// @Router /alerts [get]
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.AlertListRequest{
		CityID:   q.Get("city_id"),
		RouteID:  q.Get("route_id"),
		Severity: q.Get("severity"),
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	alerts, err := h.store.ListActiveAlerts(r.Context(), models.AlertFilter(req), h.now())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, r, alerts, len(alerts))
}

// CreateAlert stores a service alert and broadcasts it.
//
// @Summary Create a service alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param alert body models.AlertRequest true "Alert"
// @Success 201 {object} models.APIResponse{data=models.PublishResult}
// @Failure 400 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Router /admin/alerts [post]
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req models.AlertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := ingest.AlertInput{
		CityID:    req.CityID,
		RouteID:   req.RouteID,
		AlertType: req.AlertType,
		Severity:  req.Severity,
		Title:     req.Title,
		Message:   req.Message,
		EndTime:   req.EndTime,
	}
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		in.CreatedBy = p.UserID
	}

	ev, topics, err := h.ingest.IngestServiceAlert(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.publish(w, r, http.StatusCreated, ev, topics)
}

// DeleteAlert deactivates an alert. It stops appearing in listings.
//
// @Summary Deactivate a service alert
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Alert ID"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /admin/alerts/{id} [delete]
func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Alert id must be a positive integer", map[string]interface{}{"field": "id"})
		return
	}
	if err := h.store.DeactivateAlert(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Int64("alert_id", id).Msg("Alert deactivated")
	respondData(w, r, http.StatusOK, map[string]interface{}{"id": id, "is_active": false})
}

// PostETA broadcasts an arrival prediction. Predictions are not stored.
//
// @Summary Publish an ETA prediction
// @Tags Stops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Stop ID"
// @Param eta body models.ETARequest true "Prediction"
// @Success 200 {object} models.APIResponse{data=models.PublishResult}
// @Failure 400 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Router /stops/{id}/eta [post]
func (h *Handler) PostETA(w http.ResponseWriter, r *http.Request) {
	var req models.ETARequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := ingest.ETAInput{
		StopID:               chi.URLParam(r, "id"),
		VehicleID:            req.VehicleID,
		RouteID:              req.RouteID,
		PredictedArrivalTime: req.PredictedArrivalTime,
		DelayMinutes:         req.DelayMinutes,
		ConfidenceLevel:      req.ConfidenceLevel,
	}

	ev, topics, err := h.ingest.IngestETA(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.publish(w, r, http.StatusOK, ev, topics)
}

// queryInt parses an optional integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, name+" must be an integer", map[string]interface{}{"field": name})
		return 0, false
	}
	return v, true
}
