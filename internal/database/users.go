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

	"github.com/google/uuid"

	"github.com/tomtom215/transitwatch/internal/models"
)

// CreateUser inserts u. An empty ID is filled with a UUID. Emails are stored lowercased.
func (db *DB) CreateUser(ctx context.Context, u *models.User) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("insert", "users", start, ignoreMiss(err)) }(time.Now())

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	if _, lookupErr := db.GetUserByEmail(ctx, u.Email); lookupErr == nil {
		return ErrUserExists
	} else if !errors.Is(lookupErr, ErrUserNotFound) {
		return lookupErr
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, role, password_hash, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, u.Role, u.PasswordHash, u.IsActive, u.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user or ErrUserNotFound.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, `email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByID returns the user or ErrUserNotFound.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.getUser(ctx, `id = ?`, id)
}

func (db *DB) getUser(ctx context.Context, where string, arg string) (u *models.User, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("select", "users", start, ignoreMiss(err)) }(time.Now())

	u = &models.User{}
	err = db.conn.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, password_hash, is_active, created_at
		FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}
