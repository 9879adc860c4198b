// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// MiddlewareConfig holds configuration for the Chi middleware factories.
type MiddlewareConfig struct {
	// CORS configuration. Origins default to empty, requiring explicit
	// configuration; this prevents accidental wildcard deployments.
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSMaxAge         int // seconds

	// Rate limiting. RateLimitRequests == 0 disables the limiter.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// RequestTimeout bounds handler execution. 0 disables the timeout.
	RequestTimeout time.Duration
}

// DefaultMiddlewareConfig returns a secure default configuration.
func DefaultMiddlewareConfig() *MiddlewareConfig {
	return &MiddlewareConfig{
		CORSAllowedOrigins: []string{},
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		CORSMaxAge:         86400,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,

		RequestTimeout: 30 * time.Second,
	}
}

// Middleware provides Chi-compatible middleware built from the
// production-hardened go-chi ecosystem packages.
type Middleware struct {
	config *MiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewMiddleware creates a middleware factory with the given configuration.
func NewMiddleware(config *MiddlewareConfig) *Middleware {
	if config == nil {
		config = DefaultMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: config.CORSAllowedOrigins,
		AllowedMethods: config.CORSAllowedMethods,
		AllowedHeaders: config.CORSAllowedHeaders,
		MaxAge:         config.CORSMaxAge,
	})

	return &Middleware{
		config: config,
		cors:   corsHandler,
	}
}

// CORS returns the go-chi/cors middleware.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns an IP-keyed go-chi/httprate limiter, or a no-op
// when the configured request budget is zero.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	if m.config.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	window := m.config.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	return httprate.LimitByIP(m.config.RateLimitRequests, window)
}
