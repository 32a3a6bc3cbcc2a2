// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/transitwatch/internal/models"
)

// LookupRoute returns the route or ErrRouteNotFound.
func (db *DB) LookupRoute(ctx context.Context, id string) (r *models.Route, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("select", "routes", start, ignoreMiss(err)) }(time.Now())

	var cityID sql.NullString
	r = &models.Route{}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, city_id, route_number, route_name, is_active FROM routes WHERE id = ?`, id,
	).Scan(&r.ID, &cityID, &r.RouteNumber, &r.RouteName, &r.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query route %s: %w", id, err)
	}
	r.CityID = cityID.String
	return r, nil
}

// LookupStop returns the stop or ErrStopNotFound.
func (db *DB) LookupStop(ctx context.Context, id string) (s *models.Stop, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("select", "stops", start, ignoreMiss(err)) }(time.Now())

	var cityID, code sql.NullString
	s = &models.Stop{}
	err = db.conn.QueryRowContext(ctx, `
		SELECT id, city_id, stop_name, stop_code, latitude, longitude, is_accessible
		FROM stops WHERE id = ? AND is_active`, id,
	).Scan(&s.ID, &cityID, &s.StopName, &code, &s.Latitude, &s.Longitude, &s.IsAccessible)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stop %s: %w", id, err)
	}
	s.CityID = cityID.String
	s.StopCode = code.String
	return s, nil
}

// UpsertCity inserts or replaces a city.
func (db *DB) UpsertCity(ctx context.Context, c *models.City) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tz := c.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO cities (id, name, country, timezone) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Country, tz); err != nil {
		return fmt.Errorf("failed to upsert city %s: %w", c.ID, err)
	}
	return nil
}

// UpsertRoute inserts or replaces a route.
func (db *DB) UpsertRoute(ctx context.Context, r *models.Route) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO routes (id, city_id, route_number, route_name, is_active) VALUES (?, ?, ?, ?, ?)`,
		r.ID, nullIfEmpty(r.CityID), r.RouteNumber, r.RouteName, r.IsActive); err != nil {
		return fmt.Errorf("failed to upsert route %s: %w", r.ID, err)
	}
	return nil
}

// UpsertStop inserts or replaces a stop.
func (db *DB) UpsertStop(ctx context.Context, s *models.Stop) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO stops (id, city_id, stop_name, stop_code, latitude, longitude, is_accessible)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, nullIfEmpty(s.CityID), s.StopName, nullIfEmpty(s.StopCode), s.Latitude, s.Longitude, s.IsAccessible); err != nil {
		return fmt.Errorf("failed to upsert stop %s: %w", s.ID, err)
	}
	return nil
}
