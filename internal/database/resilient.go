// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package database

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/transitwatch/internal/config"
	"github.com/tomtom215/transitwatch/internal/logging"
	"github.com/tomtom215/transitwatch/internal/metrics"
	"github.com/tomtom215/transitwatch/internal/models"
)

// BreakerName labels the store breaker in metrics and logs.
const BreakerName = "store"

// Resilient routes every store call through a circuit breaker. Lookup misses
// count as successes; only real database failures trip it.
type Resilient struct {
	db *DB
	cb *gobreaker.CircuitBreaker[any]
}

// NewResilient wraps db with a breaker tuned by cfg.
func NewResilient(db *DB, cfg config.BreakerConfig) *Resilient {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsNotFound(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, int(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}
	metrics.SetBreakerState(BreakerName, int(gobreaker.StateClosed))
	return &Resilient{db: db, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// IsUnavailable reports whether err came from an open or saturated breaker.
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// State returns the breaker state name.
func (r *Resilient) State() string {
	return r.cb.State().String()
}

// DB returns the wrapped store.
func (r *Resilient) DB() *DB {
	return r.db
}

func call[T any](r *Resilient, fn func() (T, error)) (T, error) {
	v, err := r.cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		var zero T
		if t, ok := v.(T); ok {
			return t, err
		}
		return zero, err
	}
	return v.(T), nil
}

func exec(r *Resilient, fn func() error) error {
	_, err := r.cb.Execute(func() (any, error) { return nil, fn() })
	return err
}

// Ping checks the database through the breaker.
func (r *Resilient) Ping(ctx context.Context) error {
	return exec(r, func() error { return r.db.Ping(ctx) })
}

func (r *Resilient) LookupVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	return call(r, func() (*models.Vehicle, error) { return r.db.LookupVehicle(ctx, id) })
}

func (r *Resilient) LookupActiveAssignment(ctx context.Context, vehicleID string) (*models.Assignment, error) {
	return call(r, func() (*models.Assignment, error) { return r.db.LookupActiveAssignment(ctx, vehicleID) })
}

func (r *Resilient) PersistLocation(ctx context.Context, s *models.LocationSample) error {
	return exec(r, func() error { return r.db.PersistLocation(ctx, s) })
}

func (r *Resilient) LocationHistory(ctx context.Context, vehicleID string, since time.Time, limit int) ([]models.LocationSample, error) {
	return call(r, func() ([]models.LocationSample, error) {
		return r.db.LocationHistory(ctx, vehicleID, since, limit)
	})
}

func (r *Resilient) PersistAlert(ctx context.Context, a *models.ServiceAlert) error {
	return exec(r, func() error { return r.db.PersistAlert(ctx, a) })
}

func (r *Resilient) LookupAlert(ctx context.Context, id int64) (*models.ServiceAlert, error) {
	return call(r, func() (*models.ServiceAlert, error) { return r.db.LookupAlert(ctx, id) })
}

func (r *Resilient) ListActiveAlerts(ctx context.Context, f models.AlertFilter, now time.Time) ([]models.ServiceAlert, error) {
	return call(r, func() ([]models.ServiceAlert, error) { return r.db.ListActiveAlerts(ctx, f, now) })
}

func (r *Resilient) DeactivateAlert(ctx context.Context, id int64) error {
	return exec(r, func() error { return r.db.DeactivateAlert(ctx, id) })
}

func (r *Resilient) LookupStop(ctx context.Context, id string) (*models.Stop, error) {
	return call(r, func() (*models.Stop, error) { return r.db.LookupStop(ctx, id) })
}

func (r *Resilient) LookupRoute(ctx context.Context, id string) (*models.Route, error) {
	return call(r, func() (*models.Route, error) { return r.db.LookupRoute(ctx, id) })
}

func (r *Resilient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return call(r, func() (*models.User, error) { return r.db.GetUserByEmail(ctx, email) })
}

func (r *Resilient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return call(r, func() (*models.User, error) { return r.db.GetUserByID(ctx, id) })
}
