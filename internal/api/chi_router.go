// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/tomtom215/transitwatch/internal/apidocs"
	"github.com/tomtom215/transitwatch/internal/authz"
	"github.com/tomtom215/transitwatch/internal/middleware"
)

// Router binds handlers to routes.
type Router struct {
	handler *Handler
	mw      *ChiMiddleware
}

// NewRouter creates a router.
func NewRouter(h *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: h, mw: mw}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	requireAuth := h.auth.RequireAuth(deny)
	allow := func(object, action string) func(http.Handler) http.Handler {
		return h.authz.Authorize(object, action, deny)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(router.mw.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.Compression)

		r.Get("/realtime", h.RealtimeInfo)
		r.Get("/vehicles/{id}/location", h.LocationHistory)
		r.Get("/alerts", h.ListAlerts)

		r.Route("/auth", func(r chi.Router) {
			r.With(router.mw.RateLimitCustom(RateLimitLogin)).Post("/login", h.Login)
			r.With(requireAuth).Post("/logout", h.Logout)
			r.With(requireAuth).Get("/me", h.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.With(allow(authz.ObjectVehicleLocation, authz.ActionPublish)).Post("/vehicles/{id}/location", h.PostLocation)
			r.With(allow(authz.ObjectETA, authz.ActionPublish)).Post("/stops/{id}/eta", h.PostETA)
			r.With(allow(authz.ObjectAlerts, authz.ActionCreate)).Post("/admin/alerts", h.CreateAlert)
			r.With(allow(authz.ObjectAlerts, authz.ActionDelete)).Delete("/admin/alerts/{id}", h.DeleteAlert)
		})
	})

	r.With(router.mw.RateLimitCustom(RateLimitWebSocket), middleware.PrometheusMetrics).Get(wsPath, h.WebSocket)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	return r
}
