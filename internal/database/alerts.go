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
	"strings"
	"time"

	"github.com/tomtom215/transitwatch/internal/models"
)

const alertSelect = `
	SELECT sa.id, sa.city_id, sa.route_id, sa.alert_type, sa.severity, sa.title, sa.message,
	       sa.start_time, sa.end_time, sa.is_active, sa.created_by,
	       c.name, r.route_number, r.route_name
	FROM service_alerts sa
	LEFT JOIN cities c ON c.id = sa.city_id
	LEFT JOIN routes r ON r.id = sa.route_id`

// PersistAlert inserts a new alert and sets a.ID. StartTime defaults to now.
func (db *DB) PersistAlert(ctx context.Context, a *models.ServiceAlert) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("insert", "service_alerts", start, err) }(time.Now())

	if a.StartTime.IsZero() {
		a.StartTime = time.Now().UTC()
	}
	var end interface{}
	if a.EndTime != nil {
		end = a.EndTime.UTC()
	}
	a.IsActive = true

	err = db.conn.QueryRowContext(ctx, `
		INSERT INTO service_alerts (city_id, route_id, alert_type, severity, title, message, start_time, end_time, is_active, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, true, ?)
		RETURNING id`,
		nullIfEmpty(a.CityID), nullIfEmpty(a.RouteID), a.AlertType, a.Severity, a.Title, a.Message,
		a.StartTime.UTC(), end, nullIfEmpty(a.CreatedBy),
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// LookupAlert returns the alert with city and route names joined in.
func (db *DB) LookupAlert(ctx context.Context, id int64) (a *models.ServiceAlert, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("select", "service_alerts", start, ignoreMiss(err)) }(time.Now())

	a, err = scanAlert(db.conn.QueryRowContext(ctx, alertSelect+` WHERE sa.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query alert %d: %w", id, err)
	}
	return a, nil
}

// ListActiveAlerts returns alerts that are active and not yet ended at now,
// most severe first. A city or route filter also matches unscoped alerts.
func (db *DB) ListActiveAlerts(ctx context.Context, f models.AlertFilter, now time.Time) (out []models.ServiceAlert, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("select", "service_alerts", start, err) }(time.Now())

	var sb strings.Builder
	sb.WriteString(alertSelect)
	sb.WriteString(` WHERE sa.is_active AND (sa.end_time IS NULL OR sa.end_time > ?)`)
	args := []interface{}{now.UTC()}

	if f.CityID != "" {
		sb.WriteString(` AND (sa.city_id = ? OR sa.city_id IS NULL)`)
		args = append(args, f.CityID)
	}
	if f.RouteID != "" {
		sb.WriteString(` AND (sa.route_id = ? OR sa.route_id IS NULL)`)
		args = append(args, f.RouteID)
	}
	if f.Severity != "" {
		sb.WriteString(` AND sa.severity = ?`)
		args = append(args, f.Severity)
	}
	sb.WriteString(` ORDER BY CASE sa.severity
		WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC,
		sa.start_time DESC, sa.id DESC`)

	rows, err := db.conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	out = []models.ServiceAlert{}
	for rows.Next() {
		a, scanErr := scanAlert(rows)
		if scanErr != nil {
			err = fmt.Errorf("failed to scan alert: %w", scanErr)
			return nil, err
		}
		out = append(out, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return out, nil
}

// DeactivateAlert marks an alert inactive. Missing ids return ErrAlertNotFound.
func (db *DB) DeactivateAlert(ctx context.Context, id int64) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("update", "service_alerts", start, ignoreMiss(err)) }(time.Now())

	res, err := db.conn.ExecContext(ctx, `UPDATE service_alerts SET is_active = false WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate alert %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrAlertNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*models.ServiceAlert, error) {
	var (
		a                                models.ServiceAlert
		cityID, routeID, createdBy       sql.NullString
		cityName, routeNumber, routeName sql.NullString
		end                              sql.NullTime
	)
	if err := row.Scan(&a.ID, &cityID, &routeID, &a.AlertType, &a.Severity, &a.Title, &a.Message,
		&a.StartTime, &end, &a.IsActive, &createdBy, &cityName, &routeNumber, &routeName); err != nil {
		return nil, err
	}
	a.CityID = cityID.String
	a.RouteID = routeID.String
	a.CreatedBy = createdBy.String
	a.CityName = cityName.String
	a.RouteNumber = routeNumber.String
	a.RouteName = routeName.String
	if end.Valid {
		t := end.Time
		a.EndTime = &t
	}
	return &a, nil
}
