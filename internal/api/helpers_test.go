// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/transitwatch/internal/auth"
	"github.com/tomtom215/transitwatch/internal/authz"
	"github.com/tomtom215/transitwatch/internal/config"
	"github.com/tomtom215/transitwatch/internal/database"
	"github.com/tomtom215/transitwatch/internal/ingest"
	"github.com/tomtom215/transitwatch/internal/models"
)

func TestRespondServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "validation", err: &ingest.ValidationError{Field: "latitude", Message: "latitude must be between -90 and 90"}, wantStatus: http.StatusBadRequest, wantCode: ErrCodeValidation},
		{name: "auth", err: &auth.AuthError{Reason: auth.ReasonExpired}, wantStatus: http.StatusUnauthorized, wantCode: ErrCodeUnauthorized},
		{name: "forbidden", err: authz.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: ErrCodeForbidden},
		{name: "not found", err: fmt.Errorf("lookup: %w", database.ErrAlertNotFound), wantStatus: http.StatusNotFound, wantCode: ErrCodeNotFound},
		{name: "breaker open", err: &ingest.PersistenceError{Op: "persist location", Err: gobreaker.ErrOpenState}, wantStatus: http.StatusServiceUnavailable, wantCode: ErrCodeServiceUnavailable},
		{name: "breaker open unwrapped", err: gobreaker.ErrOpenState, wantStatus: http.StatusServiceUnavailable, wantCode: ErrCodeServiceUnavailable},
		{name: "persistence", err: &ingest.PersistenceError{Op: "persist alert", Err: errors.New("disk full")}, wantStatus: http.StatusInternalServerError, wantCode: ErrCodeDatabase},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rr := httptest.NewRecorder()
			respondServiceError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var resp models.APIResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != "error" || resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("body = %s, want code %s", rr.Body.String(), tt.wantCode)
			}
		})
	}
}

func TestDeny_StoreFailureIs503(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	deny(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("badger closed"))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	t.Parallel()

	h := NewHandler(&config.Config{Security: config.SecurityConfig{CORSOrigins: []string{"https://dispatch.example.com"}}}, Dependencies{})
	wildcard := NewHandler(&config.Config{Security: config.SecurityConfig{CORSOrigins: []string{"*"}}}, Dependencies{})

	tests := []struct {
		name    string
		h       *Handler
		origin  string
		allowed bool
	}{
		{name: "no origin header", h: h, allowed: true},
		{name: "listed origin", h: h, origin: "https://dispatch.example.com", allowed: true},
		{name: "unlisted origin", h: h, origin: "https://evil.example.com", allowed: false},
		{name: "wildcard", h: wildcard, origin: "https://anything.example.com", allowed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := tt.h.checkWebSocketOrigin(r); got != tt.allowed {
				t.Errorf("checkWebSocketOrigin() = %v, want %v", got, tt.allowed)
			}
		})
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	if got := sanitizeLogValue("a\nb\rc\x00d"); got != "abcd" {
		t.Errorf("sanitizeLogValue() = %q, want %q", got, "abcd")
	}
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	if got := sanitizeLogValue(string(long)); len(got) != 203 {
		t.Errorf("len = %d, want 203", len(got))
	}
}
