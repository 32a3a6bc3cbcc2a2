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

// LookupVehicle returns the vehicle or ErrVehicleNotFound.
func (db *DB) LookupVehicle(ctx context.Context, id string) (v *models.Vehicle, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("select", "vehicles", start, ignoreMiss(err)) }(time.Now())

	var cityID sql.NullString
	v = &models.Vehicle{}
	err = db.conn.QueryRowContext(ctx, `
		SELECT id, city_id, vehicle_number, vehicle_type, capacity, status
		FROM vehicles WHERE id = ?`, id,
	).Scan(&v.ID, &cityID, &v.VehicleNumber, &v.VehicleType, &v.Capacity, &v.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicle %s: %w", id, err)
	}
	v.CityID = cityID.String
	return v, nil
}

// UpsertVehicle inserts or replaces a vehicle row.
func (db *DB) UpsertVehicle(ctx context.Context, v *models.Vehicle) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("upsert", "vehicles", start, err) }(time.Now())

	status := v.Status
	if status == "" {
		status = models.VehicleActive
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO vehicles (id, city_id, vehicle_number, vehicle_type, capacity, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, nullIfEmpty(v.CityID), v.VehicleNumber, v.VehicleType, v.Capacity, status)
	if err != nil {
		return fmt.Errorf("failed to upsert vehicle %s: %w", v.ID, err)
	}
	return nil
}

// LookupActiveAssignment returns the vehicle's current route assignment,
// or (nil, nil) when the vehicle is not running a route.
func (db *DB) LookupActiveAssignment(ctx context.Context, vehicleID string) (a *models.Assignment, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("select", "vehicle_assignments", start, err) }(time.Now())

	a = &models.Assignment{}
	err = db.conn.QueryRowContext(ctx, `
		SELECT va.vehicle_id, v.vehicle_number, va.route_id, r.route_number, r.route_name, va.assigned_at
		FROM vehicle_assignments va
		JOIN vehicles v ON v.id = va.vehicle_id
		JOIN routes r ON r.id = va.route_id
		WHERE va.vehicle_id = ? AND va.is_active
		ORDER BY va.assigned_at DESC
		LIMIT 1`, vehicleID,
	).Scan(&a.VehicleID, &a.VehicleNumber, &a.RouteID, &a.RouteNumber, &a.RouteName, &a.AssignedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment for %s: %w", vehicleID, err)
	}
	return a, nil
}

// AssignVehicle makes routeID the vehicle's only active assignment.
func (db *DB) AssignVehicle(ctx context.Context, vehicleID, routeID string, at time.Time) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("assign", "vehicle_assignments", start, err) }(time.Now())

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`UPDATE vehicle_assignments SET is_active = false WHERE vehicle_id = ? AND is_active`, vehicleID); err != nil {
		return fmt.Errorf("failed to end previous assignment: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO vehicle_assignments (vehicle_id, route_id, assigned_at, is_active) VALUES (?, ?, ?, true)`,
		vehicleID, routeID, at.UTC()); err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignment: %w", err)
	}
	return nil
}

// PersistLocation appends one sample and sets s.ID.
func (db *DB) PersistLocation(ctx context.Context, s *models.LocationSample) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("insert", "vehicle_locations", start, err) }(time.Now())

	var accuracy interface{}
	if s.AccuracyMeters != nil {
		accuracy = *s.AccuracyMeters
	}
	err = db.conn.QueryRowContext(ctx, `
		INSERT INTO vehicle_locations (vehicle_id, latitude, longitude, speed_kmh, heading, accuracy_meters, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		s.VehicleID, s.Latitude, s.Longitude, s.SpeedKmh, s.Heading, accuracy, s.Timestamp.UTC(),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to insert location for %s: %w", s.VehicleID, err)
	}
	return nil
}

// LocationHistory returns up to limit samples recorded at or after since, newest first.
func (db *DB) LocationHistory(ctx context.Context, vehicleID string, since time.Time, limit int) (out []models.LocationSample, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("select", "vehicle_locations", start, err) }(time.Now())

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, vehicle_id, latitude, longitude, speed_kmh, heading, accuracy_meters, recorded_at
		FROM vehicle_locations
		WHERE vehicle_id = ? AND recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`, vehicleID, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query location history: %w", err)
	}
	defer rows.Close()

	out = []models.LocationSample{}
	for rows.Next() {
		var s models.LocationSample
		var accuracy sql.NullFloat64
		if err = rows.Scan(&s.ID, &s.VehicleID, &s.Latitude, &s.Longitude, &s.SpeedKmh, &s.Heading, &accuracy, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		if accuracy.Valid {
			v := accuracy.Float64
			s.AccuracyMeters = &v
		}
		out = append(out, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}
	return out, nil
}

// CountLocations returns the number of stored samples for a vehicle.
func (db *DB) CountLocations(ctx context.Context, vehicleID string) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vehicle_locations WHERE vehicle_id = ?`, vehicleID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count locations: %w", err)
	}
	return n, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ignoreMiss keeps lookup misses out of the error metric.
func ignoreMiss(err error) error {
	if IsNotFound(err) {
		return nil
	}
	return err
}
