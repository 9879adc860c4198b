// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package recommend

import (
	"time"

	"github.com/upliftlabs/uplift/internal/recommend/online"
)

// Candidate is an activity under consideration for recommendation.
type Candidate struct {
	// ID identifies the activity. Optional; echoed back in results.
	ID string `json:"id,omitempty"`

	// Category is the activity category, e.g. "exercise", "mindfulness".
	Category string `json:"category"`

	// Difficulty is the activity difficulty on a 0-1 scale.
	Difficulty float64 `json:"difficulty"`

	// EstimatedDuration is the expected duration in minutes.
	EstimatedDuration float64 `json:"estimated_duration"`
}

// Context carries the situational signals accompanying a recommendation
// request. Every field is optional; missing fields fall back to the
// documented defaults in the feature builder.
type Context struct {
	// HourOfDay is the local hour (0-23). Defaults to the current hour.
	HourOfDay *int `json:"hour_of_day,omitempty"`

	// DayOfWeek is the day (0=Monday .. 6=Sunday). Defaults to 1.
	DayOfWeek *int `json:"day_of_week,omitempty"`

	// WeatherScore rates current weather on a 0-5 scale. Defaults to 3.
	WeatherScore *float64 `json:"weather_score,omitempty"`

	// CurrentMood is the self-reported mood on a 1-5 scale. Defaults to 3.
	CurrentMood *float64 `json:"current_mood,omitempty"`

	// StressLevel is self-reported stress on a 1-5 scale. Defaults to 3.
	StressLevel *float64 `json:"stress_level,omitempty"`

	// EnergyLevel is self-reported energy on a 1-5 scale. Defaults to 3.
	EnergyLevel *float64 `json:"energy_level,omitempty"`

	// SocialContext is 0 when alone, 1 when with others. Defaults to 0.
	SocialContext *float64 `json:"social_context,omitempty"`
}

// Feedback is a user's response to a completed activity. Each of the
// three predictor targets is optional; one event may update zero, one,
// or all three predictors, plus the preference store.
type Feedback struct {
	// MoodBefore and MoodAfter bracket the activity on a 1-5 scale.
	// When both are present, the mood predictor trains on MoodAfter.
	MoodBefore *float64 `json:"mood_before,omitempty"`
	MoodAfter  *float64 `json:"mood_after,omitempty"`

	// MoodDelta is the mood change. Used when MoodAfter is absent: the
	// mood target becomes clamp(3+delta, 1, 5).
	MoodDelta *float64 `json:"mood_delta,omitempty"`

	// EngagementScore rates engagement on a 0-1 scale.
	EngagementScore *float64 `json:"engagement_score,omitempty"`

	// SatisfactionRating rates satisfaction on a 1-5 scale.
	SatisfactionRating *float64 `json:"satisfaction_rating,omitempty"`

	// Category is the completed activity's category.
	Category string `json:"category,omitempty"`

	// Situational signals, all optional with builder defaults.
	HourOfDay      *int     `json:"hour_of_day,omitempty"`
	DayOfWeek      *int     `json:"day_of_week,omitempty"`
	WeatherScore   *float64 `json:"weather_score,omitempty"`
	StressLevel    *float64 `json:"stress_level,omitempty"`
	EnergyLevel    *float64 `json:"energy_level,omitempty"`
	SocialContext  *float64 `json:"social_context,omitempty"`
	TaskDifficulty *float64 `json:"task_difficulty,omitempty"`
	TaskDuration   *float64 `json:"task_duration,omitempty"`
}

// ScoredCandidate is a ranked recommendation with transparency fields
// exposing the per-target predictions behind the final score.
type ScoredCandidate struct {
	Candidate

	// FinalScore is the blended ranking score. Results are sorted by
	// FinalScore descending, ties broken by input order.
	FinalScore float64 `json:"final_score"`

	// MoodPrediction is the predicted post-activity mood (1-5).
	MoodPrediction float64 `json:"mood_prediction"`

	// EngagementPrediction is the predicted engagement (0-1).
	EngagementPrediction float64 `json:"engagement_prediction"`

	// SatisfactionPrediction is the predicted satisfaction (1-5).
	SatisfactionPrediction float64 `json:"satisfaction_prediction"`

	// Confidence is the mean predictor confidence behind this score.
	Confidence float64 `json:"confidence"`
}

// StrategyWeights blends the three predictor terms and the diversity
// term into a base score. The four weights must sum to 1.0; Normalize
// enforces this at the boundary where weights are updated.
type StrategyWeights struct {
	Mood         float64 `json:"mood_based"`
	Engagement   float64 `json:"engagement_based"`
	Satisfaction float64 `json:"satisfaction_based"`
	Diversity    float64 `json:"diversity"`
}

// Normalize returns a copy scaled so the weights sum to 1.0. A zero or
// negative sum returns the default weights unchanged.
func (w StrategyWeights) Normalize() StrategyWeights {
	sum := w.Mood + w.Engagement + w.Satisfaction + w.Diversity
	if sum <= 0 {
		return DefaultConfig().Weights
	}
	return StrategyWeights{
		Mood:         w.Mood / sum,
		Engagement:   w.Engagement / sum,
		Satisfaction: w.Satisfaction / sum,
		Diversity:    w.Diversity / sum,
	}
}

// ToMap returns the weights keyed by strategy name, for logging and
// the stats endpoint.
func (w StrategyWeights) ToMap() map[string]float64 {
	return map[string]float64{
		"mood_based":         w.Mood,
		"engagement_based":   w.Engagement,
		"satisfaction_based": w.Satisfaction,
		"diversity":          w.Diversity,
	}
}

// BlobStore is the opaque persistence gateway consumed by the engine.
// Implementations must be safe for concurrent use. All calls are best
// effort from the engine's perspective; a store failure never fails a
// prediction or feedback call.
type BlobStore interface {
	// Get returns the blob stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores the blob under key with the given lifetime.
	// A zero ttl means no expiry.
	Set(key string, value []byte, ttl time.Duration) error
}

// CategoryTracker reports the categories most recently recommended to a
// user. It feeds only the diversity term; when the tracker errors, every
// candidate is treated as novel.
type CategoryTracker interface {
	RecentCategories(userID string) ([]string, error)
}

// EngineStats is a point-in-time snapshot of engine activity, exposed
// through the stats endpoint.
type EngineStats struct {
	Requests         uint64                 `json:"requests"`
	CandidatesScored uint64                 `json:"candidates_scored"`
	FeedbackEvents   uint64                 `json:"feedback_events"`
	Users            int                    `json:"users"`
	Weights          map[string]float64     `json:"weights"`
	Predictors       map[string]online.Info `json:"predictors"`
}
