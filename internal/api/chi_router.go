// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/waymark/internal/auth"
	"github.com/tomtom215/waymark/internal/middleware"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	sessions      *auth.SessionManager
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware config uses the defaults.
func NewRouter(handler *Handler, sessions *auth.SessionManager, mwConfig *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		sessions:      sessions,
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
//
// The editor endpoints are served both at the root (/login, /me, /load,
// /save, /logout) and under /api/ for clients built against the older
// serverless layout.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Set before any Route/Mount so sub-routers inherit them.
	r.NotFound(router.notFound)
	r.MethodNotAllowed(router.methodNotAllowed)

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(chiMiddleware(middleware.RequestID)) // X-Request-ID and logging context
	r.Use(chimiddleware.RealIP)                // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer)             // Recover from panics
	r.Use(router.chiMiddleware.CORS())         // CORS must be global to handle OPTIONS preflight

	// ========================
	// Health and Metrics
	// ========================
	r.Route("/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	// ========================
	// Editor API
	// ========================
	r.Group(router.editorRoutes)
	r.Route("/api", router.editorRoutes)

	return r
}

// editorRoutes registers the session, map and login endpoints on r.
func (router *Router) editorRoutes(r chi.Router) {
	r.Use(router.chiMiddleware.RateLimit())
	r.Use(APISecurityHeaders())
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(router.sessions.Authenticate)

	r.With(router.chiMiddleware.RateLimitLogin()).Get("/login", router.handler.Login)
	r.Get("/me", router.handler.Me)
	r.With(chiMiddleware(middleware.Compression)).Get("/load", router.handler.Load)
	r.Post("/save", router.handler.Save)
	r.Get("/logout", router.handler.Logout)
	r.Post("/logout", router.handler.Logout)
}

func (router *Router) notFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "not found", nil)
}

func (router *Router) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed", nil)
}
