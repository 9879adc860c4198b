// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

// Package api provides the HTTP surface: a Chi router with CORS, rate
// limiting and panic recovery from the go-chi ecosystem, JSON request
// validation via go-playground/validator, and Prometheus metrics
// exposition.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the HTTP handler tree.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router around the given handler set. A nil
// middleware config gets secure defaults.
func NewRouter(handler *Handler, mwConfig *MiddlewareConfig) *Router {
	return &Router{
		handler:    handler,
		middleware: NewMiddleware(mwConfig),
	}
}

// Setup configures all HTTP routes using Chi.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())
	if t := router.middleware.config.RequestTimeout; t > 0 {
		r.Use(chimiddleware.Timeout(t))
	}

	// Operational endpoints, outside the API rate limit so scrapers and
	// probes are never throttled by client traffic.
	r.Get("/healthz", router.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())

		r.Post("/recommendations", router.handler.Recommendations)
		r.Post("/feedback", router.handler.Feedback)
		r.Get("/stats", router.handler.Stats)
	})

	return r
}
