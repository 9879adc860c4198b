// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

// Package metrics provides Prometheus instrumentation for Uplift.
//
// Covered areas:
//   - Recommendation request latency and throughput
//   - Incremental learning batches and consumed samples
//   - Prediction failures and degraded responses
//   - Persistence gateway health
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendationRequests counts scored recommendation requests.
	RecommendationRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "uplift_recommendation_requests_total",
			Help: "Total number of recommendation scoring requests",
		},
	)

	// RecommendationLatency observes end-to-end candidate scoring latency.
	RecommendationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uplift_recommendation_duration_seconds",
			Help:    "Duration of candidate scoring in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// FeedbackEvents counts recorded feedback events by routed target.
	FeedbackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uplift_feedback_events_total",
			Help: "Total number of feedback events routed to predictors",
		},
		[]string{"target"}, // "mood", "engagement", "satisfaction", "preferences"
	)

	// LearnBatches counts incremental learning batches per predictor.
	LearnBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uplift_learn_batches_total",
			Help: "Total number of incremental learning batches processed",
		},
		[]string{"predictor"},
	)

	// LearnFailures counts discarded batches after a failed model update.
	LearnFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uplift_learn_failures_total",
			Help: "Total number of incremental learning batches discarded on error",
		},
		[]string{"predictor"},
	)

	// SamplesConsumed counts training samples folded into models.
	SamplesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uplift_training_samples_total",
			Help: "Total number of training samples consumed by incremental learning",
		},
		[]string{"predictor"},
	)

	// PredictorError exposes the most recent batch error metric per predictor.
	PredictorError = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "uplift_predictor_recent_error",
			Help: "Most recent batch error metric (MSE for regression, 1-accuracy for classification)",
		},
		[]string{"predictor"},
	)

	// DegradedPredictions counts predictions that fell back to the degraded default.
	DegradedPredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uplift_degraded_predictions_total",
			Help: "Total number of predictions served from the degraded default path",
		},
		[]string{"predictor"},
	)

	// PersistenceFailures counts best-effort persistence errors by operation.
	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uplift_persistence_failures_total",
			Help: "Total number of ignored persistence gateway failures",
		},
		[]string{"operation"}, // "get", "set"
	)

	// EventLogInserts counts feedback events written to the relational log.
	EventLogInserts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "uplift_eventlog_inserts_total",
			Help: "Total number of feedback events written to the event log",
		},
	)
)

// ObserveRecommendation records one scored request with its latency.
func ObserveRecommendation(start time.Time) {
	RecommendationRequests.Inc()
	RecommendationLatency.Observe(time.Since(start).Seconds())
}
