// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// Package ingest turns producer input into addressed events: validate,
// persist, enrich, address. Persistence always happens before an event is
// returned, so a caller that broadcasts the result never announces data the
// store does not have.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/transitwatch/internal/database"
	"github.com/tomtom215/transitwatch/internal/events"
	"github.com/tomtom215/transitwatch/internal/logging"
	"github.com/tomtom215/transitwatch/internal/metrics"
	"github.com/tomtom215/transitwatch/internal/models"
	"github.com/tomtom215/transitwatch/internal/validation"
)

// Store is what the adapter needs from the database.
type Store interface {
	LookupVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	LookupActiveAssignment(ctx context.Context, vehicleID string) (*models.Assignment, error)
	PersistLocation(ctx context.Context, s *models.LocationSample) error
	PersistAlert(ctx context.Context, a *models.ServiceAlert) error
	LookupAlert(ctx context.Context, id int64) (*models.ServiceAlert, error)
	LookupStop(ctx context.Context, id string) (*models.Stop, error)
	LookupRoute(ctx context.Context, id string) (*models.Route, error)
}

// LocationInput is a raw position report from a driver app or the HTTP API.
// Pointers distinguish "missing" from zero.
type LocationInput struct {
	VehicleID      string   `json:"vehicleId" validate:"required,transitid"`
	Latitude       *float64 `json:"latitude" validate:"required,latitude"`
	Longitude      *float64 `json:"longitude" validate:"required,longitude"`
	SpeedKmh       *float64 `json:"speed_kmh,omitempty" validate:"omitempty,gte=0,lte=400"`
	Heading        *float64 `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
	AccuracyMeters *float64 `json:"accuracy_meters,omitempty" validate:"omitempty,gte=0"`
}

// AlertInput is an operator-authored alert.
type AlertInput struct {
	CityID    string     `json:"city_id,omitempty" validate:"omitempty,transitid"`
	RouteID   string     `json:"route_id,omitempty" validate:"omitempty,transitid"`
	AlertType string     `json:"alert_type" validate:"required,oneof=delay cancellation diversion maintenance emergency"`
	Severity  string     `json:"severity" validate:"required,oneof=low medium high critical"`
	Title     string     `json:"title" validate:"required,max=200"`
	Message   string     `json:"message" validate:"required,max=4000"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	CreatedBy string     `json:"-"`
}

// ETAInput is an arrival prediction for one vehicle at one stop.
type ETAInput struct {
	StopID               string    `json:"stop_id" validate:"required,transitid"`
	VehicleID            string    `json:"vehicle_id" validate:"required,transitid"`
	RouteID              string    `json:"route_id,omitempty" validate:"omitempty,transitid"`
	PredictedArrivalTime time.Time `json:"predicted_arrival_time" validate:"required"`
	DelayMinutes         int       `json:"delay_minutes"`
	ConfidenceLevel      float64   `json:"confidence_level" validate:"gte=0,lte=1"`
}

// Adapter implements the ingest pipelines.
type Adapter struct {
	store Store
	now   func() time.Time
}

// NewAdapter creates an adapter over store.
func NewAdapter(store Store) *Adapter {
	return &Adapter{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func validate(in interface{}) error {
	if verr := validation.ValidateStruct(in); verr != nil {
		return fromRequestErrors(verr)
	}
	return nil
}

func valueOr(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// IngestLocation validates, persists and enriches a position report.
// Unknown vehicles are a ValidationError and nothing is stored.
func (a *Adapter) IngestLocation(ctx context.Context, in LocationInput) (ev events.Event, topics []events.Topic, err error) {
	defer observe(events.KindLocationUpdate, time.Now(), &err)

	if err = validate(&in); err != nil {
		return events.Event{}, nil, err
	}

	vehicle, err := a.store.LookupVehicle(ctx, in.VehicleID)
	if errors.Is(err, database.ErrVehicleNotFound) {
		return events.Event{}, nil, &ValidationError{Field: "vehicleId", Message: "unknown vehicle " + in.VehicleID}
	}
	if err != nil {
		return events.Event{}, nil, &PersistenceError{Op: "lookup vehicle", Err: err}
	}

	now := a.now()
	sample := &models.LocationSample{
		VehicleID:      vehicle.ID,
		Latitude:       *in.Latitude,
		Longitude:      *in.Longitude,
		SpeedKmh:       valueOr(in.SpeedKmh),
		Heading:        valueOr(in.Heading),
		AccuracyMeters: in.AccuracyMeters,
		Timestamp:      now,
	}
	if err = a.store.PersistLocation(ctx, sample); err != nil {
		return events.Event{}, nil, &PersistenceError{Op: "persist location", Err: err}
	}

	assignment, err := a.store.LookupActiveAssignment(ctx, vehicle.ID)
	if err != nil {
		return events.Event{}, nil, &PersistenceError{Op: "lookup assignment", Err: err}
	}

	payload := events.LocationUpdate{
		VehicleID:     vehicle.ID,
		VehicleNumber: vehicle.VehicleNumber,
		Latitude:      sample.Latitude,
		Longitude:     sample.Longitude,
		SpeedKmh:      sample.SpeedKmh,
		Heading:       sample.Heading,
		Timestamp:     now,
	}
	routeID := ""
	if assignment != nil {
		routeID = assignment.RouteID
		rid, rnum := assignment.RouteID, assignment.RouteNumber
		payload.RouteID, payload.RouteNumber = &rid, &rnum
	}

	logging.Ctx(ctx).Debug().Str("vehicle_id", vehicle.ID).Str("route_id", routeID).Int64("sample_id", sample.ID).
		Msg("Location ingested")
	return events.NewLocationUpdate(payload), events.LocationTopics(vehicle.ID, routeID), nil
}

// IngestServiceAlert validates and stores an alert, then addresses it to
// "alerts" plus its city and route when scoped.
func (a *Adapter) IngestServiceAlert(ctx context.Context, in AlertInput) (ev events.Event, topics []events.Topic, err error) {
	defer observe(events.KindServiceAlert, time.Now(), &err)

	if err = validate(&in); err != nil {
		return events.Event{}, nil, err
	}
	if in.RouteID != "" {
		if _, lookupErr := a.store.LookupRoute(ctx, in.RouteID); errors.Is(lookupErr, database.ErrRouteNotFound) {
			err = &ValidationError{Field: "route_id", Message: "unknown route " + in.RouteID}
			return events.Event{}, nil, err
		} else if lookupErr != nil {
			err = &PersistenceError{Op: "lookup route", Err: lookupErr}
			return events.Event{}, nil, err
		}
	}

	alert := &models.ServiceAlert{
		CityID:    in.CityID,
		RouteID:   in.RouteID,
		AlertType: in.AlertType,
		Severity:  in.Severity,
		Title:     in.Title,
		Message:   in.Message,
		StartTime: a.now(),
		EndTime:   in.EndTime,
		CreatedBy: in.CreatedBy,
	}
	if err = a.store.PersistAlert(ctx, alert); err != nil {
		return events.Event{}, nil, &PersistenceError{Op: "persist alert", Err: err}
	}

	// Re-read so the broadcast carries the joined city and route names.
	stored, err := a.store.LookupAlert(ctx, alert.ID)
	if err != nil {
		return events.Event{}, nil, &PersistenceError{Op: "lookup alert", Err: err}
	}

	logging.Ctx(ctx).Info().Int64("alert_id", stored.ID).Str("severity", stored.Severity).Msg("Service alert created")
	return events.NewServiceAlert(stored), events.AlertTopics(stored.CityID, stored.RouteID), nil
}

// IngestETA enriches a prediction with stop, vehicle and route names. ETAs
// are ephemeral and never stored.
func (a *Adapter) IngestETA(ctx context.Context, in ETAInput) (ev events.Event, topics []events.Topic, err error) {
	defer observe(events.KindETAUpdate, time.Now(), &err)

	if err = validate(&in); err != nil {
		return events.Event{}, nil, err
	}

	stop, err := a.store.LookupStop(ctx, in.StopID)
	if errors.Is(err, database.ErrStopNotFound) {
		return events.Event{}, nil, &ValidationError{Field: "stop_id", Message: "unknown stop " + in.StopID}
	}
	if err != nil {
		return events.Event{}, nil, &PersistenceError{Op: "lookup stop", Err: err}
	}

	vehicle, err := a.store.LookupVehicle(ctx, in.VehicleID)
	if errors.Is(err, database.ErrVehicleNotFound) {
		return events.Event{}, nil, &ValidationError{Field: "vehicle_id", Message: "unknown vehicle " + in.VehicleID}
	}
	if err != nil {
		return events.Event{}, nil, &PersistenceError{Op: "lookup vehicle", Err: err}
	}

	pred := &models.ETAPrediction{
		VehicleID:            vehicle.ID,
		VehicleNumber:        vehicle.VehicleNumber,
		StopID:               stop.ID,
		StopName:             stop.StopName,
		PredictedArrivalTime: in.PredictedArrivalTime.UTC(),
		DelayMinutes:         in.DelayMinutes,
		ConfidenceLevel:      in.ConfidenceLevel,
	}
	if in.RouteID != "" {
		route, lookupErr := a.store.LookupRoute(ctx, in.RouteID)
		if errors.Is(lookupErr, database.ErrRouteNotFound) {
			err = &ValidationError{Field: "route_id", Message: "unknown route " + in.RouteID}
			return events.Event{}, nil, err
		}
		if lookupErr != nil {
			err = &PersistenceError{Op: "lookup route", Err: lookupErr}
			return events.Event{}, nil, err
		}
		pred.RouteID, pred.RouteNumber, pred.RouteName = route.ID, route.RouteNumber, route.RouteName
	}

	return events.NewETAUpdate(pred), events.ETATopics(stop.ID, pred.RouteID), nil
}

func observe(kind string, start time.Time, errp *error) {
	outcome := "success"
	switch {
	case *errp == nil:
	case IsValidation(*errp):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	metrics.RecordIngest(kind, outcome, time.Since(start))
}
