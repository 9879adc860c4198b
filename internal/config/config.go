// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

// Package config provides layered configuration loading for Uplift.
//
// Precedence (highest wins): environment variables > YAML config file >
// built-in defaults. All settings are reachable through UPLIFT_ prefixed
// environment variables, e.g. UPLIFT_SERVER_PORT maps to server.port.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Uplift server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	EventLog  EventLogConfig  `koanf:"eventlog"`
	EventBus  EventBusConfig  `koanf:"eventbus"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address.
	Host string `koanf:"host"`
	// Port is the listen port.
	Port int `koanf:"port"`
	// Timeout bounds request read/write duration.
	Timeout time.Duration `koanf:"timeout"`
	// RateLimitReqs is the allowed requests per window per client IP.
	// Zero disables rate limiting.
	RateLimitReqs int `koanf:"rate_limit_reqs"`
	// RateLimitWindow is the rate limit window size.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// StorageConfig holds persistence gateway settings.
type StorageConfig struct {
	// Backend selects the blob store: "badger" or "memory".
	Backend string `koanf:"backend"`
	// Path is the BadgerDB directory. Ignored for the memory backend.
	Path string `koanf:"path"`
	// GCInterval controls Badger value-log garbage collection cadence.
	GCInterval time.Duration `koanf:"gc_interval"`
	// BreakerMaxFailures is the consecutive failure count that opens
	// the circuit breaker around the store.
	BreakerMaxFailures uint32 `koanf:"breaker_max_failures"`
	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// EventLogConfig holds relational feedback log settings.
type EventLogConfig struct {
	// Enabled toggles the DuckDB feedback log.
	Enabled bool `koanf:"enabled"`
	// Path is the DuckDB database file. Empty means in-memory.
	Path string `koanf:"path"`
}

// EventBusConfig holds in-process event bus settings.
type EventBusConfig struct {
	// BufferSize is the per-subscriber channel buffer.
	BufferSize int `koanf:"buffer_size"`
	// RetryCount is the handler retry count before an event is dropped.
	RetryCount int `koanf:"retry_count"`
	// RetryInterval is the initial backoff between handler retries.
	RetryInterval time.Duration `koanf:"retry_interval"`
	// CloseTimeout bounds router shutdown.
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is "json" or "console".
	Format string `koanf:"format"`
	// Caller adds file:line to log events.
	Caller bool `koanf:"caller"`
}

// RecommendConfig holds adaptive engine tunables. Zero values are
// replaced by defaults at load time, so a partial YAML section is fine.
type RecommendConfig struct {
	// BufferSize is the per-predictor training buffer capacity.
	// The oldest sample is evicted when full.
	BufferSize int `koanf:"buffer_size"`
	// BatchThreshold is the buffered sample count that triggers
	// an incremental learning pass.
	BatchThreshold int `koanf:"batch_threshold"`
	// HistorySize is the per-predictor performance history capacity.
	HistorySize int `koanf:"history_size"`
	// ConfidenceWindow is how many recent metrics inform confidence.
	ConfidenceWindow int `koanf:"confidence_window"`
	// SeedSamples is the synthetic bootstrap sample count per predictor.
	SeedSamples int `koanf:"seed_samples"`
	// LearningRate is the SGD base step size.
	LearningRate float64 `koanf:"learning_rate"`

	// CategoryAlpha is the EMA smoothing factor for category preferences.
	CategoryAlpha float64 `koanf:"category_alpha"`
	// TimeAlpha is the EMA smoothing factor for time-slot preferences.
	TimeAlpha float64 `koanf:"time_alpha"`
	// DifficultyAlpha is the EMA smoothing factor for difficulty
	// preference, applied only on positive feedback.
	DifficultyAlpha float64 `koanf:"difficulty_alpha"`

	// Weights blends the per-target predictions into a base score.
	Weights WeightsConfig `koanf:"weights"`

	// NovelCategoryScore is the diversity term for unseen categories.
	NovelCategoryScore float64 `koanf:"novel_category_score"`
	// RepeatedCategoryScore is the diversity term for recent categories.
	RepeatedCategoryScore float64 `koanf:"repeated_category_score"`

	// CategoryBoostScale scales the category preference boost component.
	CategoryBoostScale float64 `koanf:"category_boost_scale"`
	// TimeBoostScale scales the time-slot preference boost component.
	TimeBoostScale float64 `koanf:"time_boost_scale"`
	// DifficultyBoostScale scales the difficulty match boost component.
	DifficultyBoostScale float64 `koanf:"difficulty_boost_scale"`
	// BoostClamp bounds each boost component and the boost total.
	BoostClamp float64 `koanf:"boost_clamp"`

	// SnapshotInterval is the periodic model snapshot cadence.
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`
	// ModelTTL is the persisted model snapshot lifetime.
	ModelTTL time.Duration `koanf:"model_ttl"`
	// PreferencesTTL is the persisted preference state lifetime.
	PreferencesTTL time.Duration `koanf:"preferences_ttl"`
	// RecentCategories is the per-user served-category window size.
	RecentCategories int `koanf:"recent_categories"`
}

// WeightsConfig is the scoring strategy weight set. The four weights
// must sum to 1.0.
type WeightsConfig struct {
	Mood         float64 `koanf:"mood"`
	Engagement   float64 `koanf:"engagement"`
	Satisfaction float64 `koanf:"satisfaction"`
	Diversity    float64 `koanf:"diversity"`
}

// Validate checks semantic constraints that cannot be expressed through
// struct tags. It returns the first violation found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}

	switch c.Storage.Backend {
	case "badger", "memory":
	default:
		return fmt.Errorf("storage.backend must be badger or memory, got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "badger" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the badger backend")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return c.Recommend.Validate()
}

// Validate checks engine tunables for internal consistency.
func (c *RecommendConfig) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("recommend.buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.BatchThreshold <= 0 || c.BatchThreshold > c.BufferSize {
		return fmt.Errorf("recommend.batch_threshold must be in 1-%d, got %d", c.BufferSize, c.BatchThreshold)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("recommend.history_size must be positive, got %d", c.HistorySize)
	}
	if c.ConfidenceWindow <= 0 {
		return fmt.Errorf("recommend.confidence_window must be positive, got %d", c.ConfidenceWindow)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("recommend.learning_rate must be positive, got %g", c.LearningRate)
	}

	for name, alpha := range map[string]float64{
		"category_alpha":   c.CategoryAlpha,
		"time_alpha":       c.TimeAlpha,
		"difficulty_alpha": c.DifficultyAlpha,
	} {
		if alpha <= 0 || alpha > 1 {
			return fmt.Errorf("recommend.%s must be in (0, 1], got %g", name, alpha)
		}
	}

	sum := c.Weights.Mood + c.Weights.Engagement + c.Weights.Satisfaction + c.Weights.Diversity
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		return fmt.Errorf("recommend.weights must sum to 1.0, got %g", sum)
	}
	for name, w := range map[string]float64{
		"mood":         c.Weights.Mood,
		"engagement":   c.Weights.Engagement,
		"satisfaction": c.Weights.Satisfaction,
		"diversity":    c.Weights.Diversity,
	} {
		if w < 0 {
			return fmt.Errorf("recommend.weights.%s must be non-negative, got %g", name, w)
		}
	}

	if c.BoostClamp < 0 {
		return fmt.Errorf("recommend.boost_clamp must be non-negative, got %g", c.BoostClamp)
	}
	if c.RecentCategories <= 0 {
		return fmt.Errorf("recommend.recent_categories must be positive, got %d", c.RecentCategories)
	}
	return nil
}
