// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package authz

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/transitwatch/internal/auth"
	"github.com/tomtom215/transitwatch/internal/models"
)

func TestEnforcer_EmbeddedPolicy(t *testing.T) {
	t.Parallel()
	e, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	tests := []struct {
		role   string
		object string
		action string
		want   bool
	}{
		{models.RoleDriver, ObjectVehicleLocation, ActionPublish, true},
		{models.RoleOperator, ObjectVehicleLocation, ActionPublish, true},
		{models.RoleAdmin, ObjectVehicleLocation, ActionPublish, true},
		{models.RoleUser, ObjectVehicleLocation, ActionPublish, false},
		{models.RoleDriver, ObjectAlerts, ActionCreate, false},
		{models.RoleOperator, ObjectAlerts, ActionCreate, true},
		{models.RoleAdmin, ObjectAlerts, ActionDelete, true},
		{models.RoleOperator, ObjectETA, ActionPublish, true},
		{models.RoleUser, ObjectETA, ActionPublish, false},
		{"", ObjectETA, ActionPublish, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.object+"/"+tt.action, func(t *testing.T) {
			if got := e.Allow(tt.role, tt.object, tt.action); got != tt.want {
				t.Errorf("Allow(%q, %q, %q) = %v, want %v", tt.role, tt.object, tt.action, got, tt.want)
			}
		})
	}
}

func TestEnforcer_PolicyFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "policy.csv")
	if err := os.WriteFile(path, []byte("p, user, eta, publish\n"), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	e, err := NewEnforcer(path)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	if !e.Allow(models.RoleUser, ObjectETA, ActionPublish) {
		t.Error("file policy grant not applied")
	}
	if e.Allow(models.RoleOperator, ObjectAlerts, ActionCreate) {
		t.Error("embedded policy leaked into file policy")
	}
}

func TestAuthorize(t *testing.T) {
	t.Parallel()
	e, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	var denied error
	deny := func(w http.ResponseWriter, _ *http.Request, err error) {
		denied = err
		w.WriteHeader(http.StatusForbidden)
	}
	h := e.Authorize(ObjectAlerts, ActionCreate, deny)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	tests := []struct {
		name      string
		principal *auth.Principal
		want      int
	}{
		{"operator allowed", &auth.Principal{UserID: "u1", Role: models.RoleOperator}, http.StatusCreated},
		{"driver denied", &auth.Principal{UserID: "u2", Role: models.RoleDriver}, http.StatusForbidden},
		{"no principal", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/alerts", nil)
			if tt.principal != nil {
				req = req.WithContext(auth.ContextWithPrincipal(req.Context(), tt.principal))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if !errors.Is(denied, ErrForbidden) {
		t.Errorf("deny error = %v, want ErrForbidden", denied)
	}
}
