// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package database

import (
	"context"
	"fmt"
)

// schemaStatements run in order on every start; all are idempotent.
// Timestamps are stored as UTC TIMESTAMP.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cities (
		id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL,
		country VARCHAR NOT NULL DEFAULT '',
		timezone VARCHAR NOT NULL DEFAULT 'UTC',
		is_active BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS routes (
		id VARCHAR PRIMARY KEY,
		city_id VARCHAR,
		route_number VARCHAR NOT NULL,
		route_name VARCHAR NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS stops (
		id VARCHAR PRIMARY KEY,
		city_id VARCHAR,
		stop_name VARCHAR NOT NULL,
		stop_code VARCHAR,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		is_accessible BOOLEAN NOT NULL DEFAULT false,
		is_active BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id VARCHAR PRIMARY KEY,
		city_id VARCHAR,
		vehicle_number VARCHAR NOT NULL,
		vehicle_type VARCHAR NOT NULL DEFAULT 'bus',
		capacity INTEGER NOT NULL DEFAULT 0,
		status VARCHAR NOT NULL DEFAULT 'active'
	)`,
	`CREATE TABLE IF NOT EXISTS vehicle_assignments (
		vehicle_id VARCHAR NOT NULL,
		route_id VARCHAR NOT NULL,
		assigned_at TIMESTAMP NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_vehicle ON vehicle_assignments(vehicle_id)`,
	`CREATE SEQUENCE IF NOT EXISTS vehicle_locations_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS vehicle_locations (
		id BIGINT PRIMARY KEY DEFAULT nextval('vehicle_locations_id_seq'),
		vehicle_id VARCHAR NOT NULL,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		speed_kmh DOUBLE NOT NULL DEFAULT 0,
		heading DOUBLE NOT NULL DEFAULT 0,
		accuracy_meters DOUBLE,
		recorded_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_locations_vehicle_time ON vehicle_locations(vehicle_id, recorded_at)`,
	`CREATE SEQUENCE IF NOT EXISTS service_alerts_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS service_alerts (
		id BIGINT PRIMARY KEY DEFAULT nextval('service_alerts_id_seq'),
		city_id VARCHAR,
		route_id VARCHAR,
		alert_type VARCHAR NOT NULL,
		severity VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		message VARCHAR NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_by VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR PRIMARY KEY,
		email VARCHAR NOT NULL UNIQUE,
		full_name VARCHAR NOT NULL DEFAULT '',
		role VARCHAR NOT NULL DEFAULT 'user',
		password_hash VARCHAR NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMP NOT NULL
	)`,
}

func (db *DB) createSchema() error {
	ctx, cancel := ensureContext(context.Background())
	defer cancel()

	for i, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
