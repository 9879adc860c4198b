// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/uplift/config.yaml",
	"/etc/uplift/config.yml",
}

// ConfigPathEnvVar overrides the config file search entirely.
const ConfigPathEnvVar = "UPLIFT_CONFIG_PATH"

// envPrefix is stripped from environment variables before mapping them
// onto config paths: UPLIFT_SERVER_PORT -> server.port.
const envPrefix = "UPLIFT_"

// Default returns a Config with all default values applied. These match
// a single-node deployment with persistence under /data.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8484,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Storage: StorageConfig{
			Backend:            "badger",
			Path:               "/data/uplift/models",
			GCInterval:         5 * time.Minute,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		EventLog: EventLogConfig{
			Enabled: true,
			Path:    "/data/uplift/feedback.duckdb",
		},
		EventBus: EventBusConfig{
			BufferSize:    256,
			RetryCount:    3,
			RetryInterval: 100 * time.Millisecond,
			CloseTimeout:  10 * time.Second,
		},
		Recommend: DefaultRecommend(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// DefaultRecommend returns the engine tunables with their defaults.
func DefaultRecommend() RecommendConfig {
	return RecommendConfig{
		BufferSize:       50,
		BatchThreshold:   10,
		HistorySize:      100,
		ConfidenceWindow: 10,
		SeedSamples:      100,
		LearningRate:     0.01,

		CategoryAlpha:   0.1,
		TimeAlpha:       0.1,
		DifficultyAlpha: 0.05,

		Weights: WeightsConfig{
			Mood:         0.3,
			Engagement:   0.25,
			Satisfaction: 0.25,
			Diversity:    0.2,
		},

		NovelCategoryScore:    1.0,
		RepeatedCategoryScore: 0.3,

		CategoryBoostScale:   0.2,
		TimeBoostScale:       0.1,
		DifficultyBoostScale: 0.1,
		BoostClamp:           0.3,

		SnapshotInterval: 5 * time.Minute,
		ModelTTL:         7 * 24 * time.Hour,
		PreferencesTTL:   30 * 24 * time.Hour,
		RecentCategories: 5,
	}
}

// Load builds the configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. UPLIFT_ prefixed environment variables (highest priority)
//
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps UPLIFT_ environment variables onto config paths.
// The first underscore separates the section; the rest of the name maps
// onto the field key verbatim:
//
//	UPLIFT_SERVER_PORT            -> server.port
//	UPLIFT_RECOMMEND_BUFFER_SIZE  -> recommend.buffer_size
//	UPLIFT_LOGGING_LEVEL          -> logging.level
//
// Nested sections use a double underscore:
//
//	UPLIFT_RECOMMEND__WEIGHTS__MOOD -> recommend.weights.mood
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if strings.Contains(key, "__") {
		return strings.ReplaceAll(key, "__", ".")
	}
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return section
	}
	return section + "." + rest
}

// sliceConfigPaths lists paths parsed as comma-separated slices when
// they arrive as plain strings from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated strings to slices for
// known slice fields. YAML-provided slices pass through untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}
