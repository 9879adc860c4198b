// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package recommend

import (
	"fmt"
	"time"

	"github.com/upliftlabs/uplift/internal/recommend/online"
)

// Config holds the engine tunables. The scoring constants are
// heuristics carried over from production tuning, kept configurable
// rather than re-derived.
type Config struct {
	// Weights blends predictor terms and the diversity term.
	Weights StrategyWeights

	// NovelCategoryScore is the diversity term for categories absent
	// from the user's recent recommendations.
	NovelCategoryScore float64

	// RepeatedCategoryScore is the diversity term for recently
	// recommended categories.
	RepeatedCategoryScore float64

	// CategoryBoostScale scales the category affinity deviation from
	// neutral (0.5) in the preference boost.
	CategoryBoostScale float64

	// TimeBoostScale scales the time-of-day affinity deviation.
	TimeBoostScale float64

	// DifficultyBoostScale scales the difficulty match closeness.
	DifficultyBoostScale float64

	// BoostClamp bounds each boost component and the summed boost.
	BoostClamp float64

	// CategoryAlpha is the EMA step for category preferences.
	CategoryAlpha float64

	// TimeAlpha is the EMA step for time-slot preferences.
	TimeAlpha float64

	// DifficultyAlpha is the EMA step for difficulty preference,
	// applied only on positively rated outcomes. Smaller than the
	// other steps so difficulty preference moves slowly.
	DifficultyAlpha float64

	// PreferencesTTL is the persisted preference state lifetime.
	PreferencesTTL time.Duration

	// Predictor configures the three incremental predictors.
	Predictor online.Config
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Weights: StrategyWeights{
			Mood:         0.3,
			Engagement:   0.25,
			Satisfaction: 0.25,
			Diversity:    0.2,
		},
		NovelCategoryScore:    1.0,
		RepeatedCategoryScore: 0.3,
		CategoryBoostScale:    0.2,
		TimeBoostScale:        0.1,
		DifficultyBoostScale:  0.1,
		BoostClamp:            0.3,
		CategoryAlpha:         0.1,
		TimeAlpha:             0.1,
		DifficultyAlpha:       0.05,
		PreferencesTTL:        30 * 24 * time.Hour,
		Predictor:             online.DefaultConfig(),
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	sum := c.Weights.Mood + c.Weights.Engagement + c.Weights.Satisfaction + c.Weights.Diversity
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		return fmt.Errorf("strategy weights must sum to 1.0, got %g", sum)
	}
	if c.Weights.Mood < 0 || c.Weights.Engagement < 0 || c.Weights.Satisfaction < 0 || c.Weights.Diversity < 0 {
		return fmt.Errorf("strategy weights must be non-negative")
	}
	if c.BoostClamp < 0 {
		return fmt.Errorf("boost clamp must be non-negative, got %g", c.BoostClamp)
	}
	for name, alpha := range map[string]float64{
		"category":   c.CategoryAlpha,
		"time":       c.TimeAlpha,
		"difficulty": c.DifficultyAlpha,
	} {
		if alpha <= 0 || alpha > 1 {
			return fmt.Errorf("%s alpha must be in (0, 1], got %g", name, alpha)
		}
	}
	return c.Predictor.Validate()
}

// Clone returns a deep copy.
func (c *Config) Clone() Config {
	// All fields are value types.
	return *c
}
