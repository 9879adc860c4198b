// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

// Package main is the entry point for the Uplift recommendation server.
//
// Uplift ranks wellness activities for users with per-user, incrementally
// trained models: three online predictors (mood, engagement, satisfaction)
// blended with learned preferences and a diversity term.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered loading via Koanf v2 (defaults, YAML, env)
//  2. Storage: BadgerDB blob store behind a circuit breaker gateway
//  3. Event log: DuckDB feedback log (optional)
//  4. Event bus: in-process Watermill router carrying feedback events
//  5. Engine: feature builder, online predictors, preference store
//  6. HTTP server: Chi router with CORS, rate limiting and metrics
//
// Long-running components run under a suture/v4 supervision tree.
//
// # Configuration
//
// All settings are reachable through UPLIFT_ prefixed environment
// variables (UPLIFT_SERVER_PORT, UPLIFT_STORAGE_BACKEND, ...) or a YAML
// file pointed at by UPLIFT_CONFIG_PATH.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: in-flight requests
// drain, buffered training samples are flushed and models snapshot to
// storage before the process exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/upliftlabs/uplift/internal/api"
	"github.com/upliftlabs/uplift/internal/config"
	"github.com/upliftlabs/uplift/internal/eventbus"
	"github.com/upliftlabs/uplift/internal/eventlog"
	"github.com/upliftlabs/uplift/internal/logging"
	"github.com/upliftlabs/uplift/internal/recommend"
	"github.com/upliftlabs/uplift/internal/recommend/storage"
	"github.com/upliftlabs/uplift/internal/supervisor"
	"github.com/upliftlabs/uplift/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("backend", cfg.Storage.Backend).
		Bool("eventlog", cfg.EventLog.Enabled).
		Int("port", cfg.Server.Port).
		Msg("Starting Uplift")

	// Storage backend behind the circuit breaker gateway.
	var backend storage.Blob
	var badgerStore *storage.BadgerStore
	switch cfg.Storage.Backend {
	case "badger":
		badgerStore, err = storage.NewBadgerStore(cfg.Storage.Path, logger)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to open storage")
		}
		backend = badgerStore
	default:
		backend = storage.NewMemoryStore()
	}

	gateway := storage.NewGateway(backend, storage.GatewayConfig{
		MaxFailures: cfg.Storage.BreakerMaxFailures,
		Timeout:     cfg.Storage.BreakerTimeout,
		ModelTTL:    cfg.Recommend.ModelTTL,
	}, logger)
	defer func() {
		if err := gateway.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()
	logging.Info().Str("store", storage.Describe(backend)).Msg("Storage initialized")

	tracker := storage.NewRecentTracker(gateway, storage.TrackerConfig{
		Window: cfg.Recommend.RecentCategories,
		TTL:    24 * time.Hour,
	}, logger)

	// Optional DuckDB feedback log.
	var feedbackLog *eventlog.Log
	if cfg.EventLog.Enabled {
		feedbackLog, err = eventlog.Open(cfg.EventLog.Path, logger)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.EventLog.Path).Msg("Failed to open event log")
		}
		defer func() {
			if err := feedbackLog.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event log")
			}
		}()
		logging.Info().Str("path", cfg.EventLog.Path).Msg("Event log initialized")
	}

	// In-process event bus. Watermill logs through the zerolog-backed
	// slog bridge.
	bus, err := eventbus.New(eventbus.Config{
		BufferSize:    cfg.EventBus.BufferSize,
		RetryCount:    cfg.EventBus.RetryCount,
		RetryInterval: cfg.EventBus.RetryInterval,
		CloseTimeout:  cfg.EventBus.CloseTimeout,
	}, watermill.NewSlogLogger(logging.NewSlogLogger()))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	if feedbackLog != nil {
		bus.Subscribe("eventlog-writer", eventbus.TopicFeedbackRecorded, feedbackWriter(feedbackLog))
	}

	// The adaptive engine.
	engine, err := recommend.NewEngine(engineConfig(cfg.Recommend), gateway, storage.NewModelStore(gateway), tracker, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create engine")
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing engine")
		}
	}()
	logging.Info().Msg("Engine initialized")

	// HTTP surface.
	handler := api.NewHandler(engine, tracker, bus, statsSource(feedbackLog), logger)
	router := api.NewRouter(handler, &api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
		RequestTimeout:     cfg.Server.Timeout,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Supervision tree.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewSnapshotService(engine, cfg.Recommend.SnapshotInterval))
	if badgerStore != nil {
		tree.AddDataService(services.NewGCService(badgerStore, cfg.Storage.GCInterval))
	}
	tree.AddMessagingService(services.NewBusService(bus))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Uplift stopped gracefully")
}

// engineConfig maps the loaded configuration onto the engine's tunables.
func engineConfig(rc config.RecommendConfig) recommend.Config {
	cfg := recommend.DefaultConfig()

	cfg.Weights = recommend.StrategyWeights{
		Mood:         rc.Weights.Mood,
		Engagement:   rc.Weights.Engagement,
		Satisfaction: rc.Weights.Satisfaction,
		Diversity:    rc.Weights.Diversity,
	}
	cfg.NovelCategoryScore = rc.NovelCategoryScore
	cfg.RepeatedCategoryScore = rc.RepeatedCategoryScore
	cfg.CategoryBoostScale = rc.CategoryBoostScale
	cfg.TimeBoostScale = rc.TimeBoostScale
	cfg.DifficultyBoostScale = rc.DifficultyBoostScale
	cfg.BoostClamp = rc.BoostClamp
	cfg.CategoryAlpha = rc.CategoryAlpha
	cfg.TimeAlpha = rc.TimeAlpha
	cfg.DifficultyAlpha = rc.DifficultyAlpha
	cfg.PreferencesTTL = rc.PreferencesTTL

	cfg.Predictor.BufferSize = rc.BufferSize
	cfg.Predictor.BatchThreshold = rc.BatchThreshold
	cfg.Predictor.HistorySize = rc.HistorySize
	cfg.Predictor.ConfidenceWindow = rc.ConfidenceWindow
	cfg.Predictor.SeedSamples = rc.SeedSamples
	cfg.Predictor.LearningRate = rc.LearningRate

	return cfg
}

// feedbackWriter returns the bus handler that appends accepted feedback
// events to the DuckDB log.
func feedbackWriter(log *eventlog.Log) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		event, err := eventbus.ParseFeedbackRecorded(msg)
		if err != nil {
			// Malformed payloads are dropped, not retried.
			logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed feedback event")
			return nil
		}
		return log.Insert(msg.Context(), eventlog.Entry{
			ID:                 event.EventID,
			UserID:             event.UserID,
			RecommendationID:   event.RecommendationID,
			Category:           event.Category,
			MoodDelta:          event.MoodDelta,
			EngagementScore:    event.EngagementScore,
			SatisfactionRating: event.SatisfactionRating,
			CreatedAt:          event.Timestamp,
		})
	}
}

// statsSource adapts the nilable event log to the handler's optional
// stats dependency without passing a typed nil interface.
func statsSource(log *eventlog.Log) api.EventStatsSource {
	if log == nil {
		return nil
	}
	return log
}
