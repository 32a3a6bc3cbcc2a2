// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package api

import (
	"net/http"

	"github.com/tomtom215/transitwatch/internal/auth"
	"github.com/tomtom215/transitwatch/internal/models"
	"github.com/tomtom215/transitwatch/internal/validation"
)

// Login exchanges email and password for a JWT.
//
// @Summary Log in
// @Description Verifies credentials and returns a bearer token, also set as an httpOnly cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.APIResponse{data=models.LoginResponse}
// @Failure 400 {object} models.APIResponse "Invalid request body"
// @Failure 401 {object} models.APIResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	auth.SetTokenCookie(w, r, resp.Token, resp.ExpiresAt)
	respondData(w, r, http.StatusOK, resp)
}

// Logout revokes the caller's token.
//
// @Summary Log out
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), auth.PrincipalFromContext(r.Context())); err != nil {
		respondServiceError(w, r, err)
		return
	}
	auth.ClearTokenCookie(w)
	respondData(w, r, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the authenticated principal.
//
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=models.CurrentUser}
// @Failure 401 {object} models.APIResponse
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required", nil)
		return
	}
	respondData(w, r, http.StatusOK, models.CurrentUser{
		UserID:    p.UserID,
		Email:     p.Email,
		Role:      p.Role,
		ExpiresAt: p.ExpiresAt,
	})
}
