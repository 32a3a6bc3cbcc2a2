// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/transitwatch/internal/auth"
	"github.com/tomtom215/transitwatch/internal/authz"
	"github.com/tomtom215/transitwatch/internal/database"
	"github.com/tomtom215/transitwatch/internal/ingest"
	"github.com/tomtom215/transitwatch/internal/logging"
	"github.com/tomtom215/transitwatch/internal/models"
	"github.com/tomtom215/transitwatch/internal/validation"
)

// Error codes.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeDatabase           = "DATABASE_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func metadata(r *http.Request) models.Metadata {
	return models.Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
}

func respondData(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, status, &models.APIResponse{Status: "success", Data: data, Metadata: metadata(r)})
}

func respondList(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	meta := metadata(r)
	meta.Count = &count
	respondJSON(w, http.StatusOK, &models.APIResponse{Status: "success", Data: data, Metadata: meta})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: metadata(r),
		Error:    &models.APIError{Code: code, Message: message, Details: details},
	})
}

func respondValidation(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
}

// respondServiceError maps the error taxonomy onto HTTP. Server-side
// failures are logged; client errors are not.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *ingest.ValidationError
		ae *auth.AuthError
		pe *ingest.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, ve.Message, map[string]interface{}{"field": ve.Field})
	case errors.As(err, &ae):
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, ae.Message(), nil)
	case errors.Is(err, authz.ErrForbidden):
		respondError(w, r, http.StatusForbidden, ErrCodeForbidden, "Insufficient permissions", nil)
	case database.IsNotFound(err):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, capitalize(err.Error()), nil)
	case database.IsUnavailable(err):
		logging.CtxErr(r.Context(), err).Msg("Store unavailable")
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service temporarily unavailable", nil)
	case errors.As(err, &pe):
		logging.CtxErr(r.Context(), err).Str("op", pe.Op).Msg("Persistence failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabase, "Failed to store data", nil)
	default:
		logging.CtxErr(r.Context(), err).Msg("Request failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", nil)
	}
}

// deny is the auth.DenyFunc used by RequireAuth and Authorize. Anything
// that is neither an AuthError nor ErrForbidden is a store failure.
func deny(w http.ResponseWriter, r *http.Request, err error) {
	if !auth.IsAuthError(err) && !errors.Is(err, authz.ErrForbidden) {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Authentication temporarily unavailable", nil)
		return
	}
	respondServiceError(w, r, err)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Request body too large or unreadable", nil)
		return false
	}
	if len(body) == 0 {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Request body is required", nil)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("Invalid JSON: %s", sanitizeLogValue(err.Error())), nil)
		return false
	}
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// sanitizeLogValue strips control characters and bounds length.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}

func topicNames[T ~string](topics []T) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = string(t)
	}
	return out
}
