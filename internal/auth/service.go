// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/transitwatch/internal/logging"
	"github.com/tomtom215/transitwatch/internal/metrics"
	"github.com/tomtom215/transitwatch/internal/models"
)

// Principal is an authenticated caller.
type Principal struct {
	UserID    string
	Email     string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// UserStore is the subset of the store used for login and verification.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// UserCreator is used only to bootstrap the admin account.
type UserCreator interface {
	UserStore
	CreateUser(ctx context.Context, u *models.User) error
}

// Service ties token issuance, the denylist and the user store together.
type Service struct {
	jwt      *JWTManager
	denylist *Denylist
	users    UserStore
	isMiss   func(error) bool
}

// NewService wires the collaborators. isMiss reports whether a store error
// means "no such user" rather than a store failure.
func NewService(jwt *JWTManager, denylist *Denylist, users UserStore, isMiss func(error) bool) *Service {
	if isMiss == nil {
		isMiss = func(error) bool { return false }
	}
	return &Service{jwt: jwt, denylist: denylist, users: users, isMiss: isMiss}
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if s.isMiss(err) {
			CheckPassword(string(dummyHash), password)
			metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
			return nil, newAuthError(ReasonInvalidCredentials, nil)
		}
		metrics.AuthAttempts.WithLabelValues("password", "error").Inc()
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, newAuthError(ReasonInvalidCredentials, nil)
	}
	if !u.IsActive {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, newAuthError(ReasonInactiveUser, nil)
	}

	token, claims, err := s.jwt.GenerateToken(u)
	if err != nil {
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	logging.Ctx(ctx).Info().Str("user_id", u.ID).Str("role", u.Role).Msg("User logged in")
	return &models.LoginResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: *u}, nil
}

// VerifyToken resolves a bearer token to a Principal. Store failures are
// returned unwrapped; everything else is an *AuthError.
func (s *Service) VerifyToken(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.jwt.ParseToken(token)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("token", "failure").Inc()
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		metrics.AuthAttempts.WithLabelValues("token", "revoked").Inc()
		return nil, newAuthError(ReasonRevoked, nil)
	}

	u, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if s.isMiss(err) {
			metrics.AuthAttempts.WithLabelValues("token", "failure").Inc()
			return nil, newAuthError(ReasonInvalidToken, err)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !u.IsActive {
		metrics.AuthAttempts.WithLabelValues("token", "failure").Inc()
		return nil, newAuthError(ReasonInactiveUser, nil)
	}

	metrics.AuthAttempts.WithLabelValues("token", "success").Inc()
	return &Principal{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes p's token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	if p == nil || p.TokenID == "" {
		return newAuthError(ReasonMissingToken, nil)
	}
	if err := s.denylist.Revoke(ctx, p.TokenID, time.Until(p.ExpiresAt)); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	logging.Ctx(ctx).Info().Str("user_id", p.UserID).Msg("Token revoked")
	return nil
}

// EnsureAdmin creates the bootstrap admin account if the email is unused.
// Empty credentials skip bootstrapping.
func EnsureAdmin(ctx context.Context, store UserCreator, email, password string, isExists func(error) bool) error {
	if email == "" || password == "" {
		return nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u := &models.User{Email: email, FullName: "Administrator", Role: models.RoleAdmin, PasswordHash: hash, IsActive: true}
	err = store.CreateUser(ctx, u)
	if err != nil && isExists != nil && isExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	logging.Info().Str("email", u.Email).Msg("Bootstrap admin account created")
	return nil
}

// IsStoreFailure reports whether err came from a collaborator rather than
// from the credential itself.
func IsStoreFailure(err error) bool {
	return err != nil && !IsAuthError(err) && !errors.Is(err, context.Canceled)
}
