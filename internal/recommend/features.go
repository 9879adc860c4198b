// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package recommend

import (
	"time"

	"github.com/upliftlabs/uplift/internal/recommend/online"
)

// NumFeatures is the fixed feature vector length shared by the builder
// and all predictors. The vector order is fixed by the online package's
// feature index constants.
const NumFeatures = online.NumFeatures

// Builder defaults, substituted for any missing input field. Feedback
// arrives from untrusted, partially filled client payloads, so the
// builder never fails; it defaults liberally instead.
const (
	defaultDayOfWeek        = 1.0
	defaultWeatherScore     = 3.0
	defaultMood             = 3.0
	defaultStressLevel      = 3.0
	defaultEnergyLevel      = 3.0
	defaultSocialContext    = 0.0
	defaultTaskDifficulty   = 0.5
	defaultTaskDuration     = 15.0
	defaultCategoryAffinity = 0.5
)

// FeatureBuilder turns sparse context and feedback records into
// fixed-order feature vectors. The clock is injectable so tests can pin
// the hour-of-day default.
type FeatureBuilder struct {
	now func() time.Time
}

// NewFeatureBuilder returns a builder using the wall clock.
func NewFeatureBuilder() *FeatureBuilder {
	return &FeatureBuilder{now: time.Now}
}

// NewFeatureBuilderWithClock returns a builder with a fixed clock.
func NewFeatureBuilderWithClock(now func() time.Time) *FeatureBuilder {
	return &FeatureBuilder{now: now}
}

// FromContext builds the vector for scoring one candidate: situational
// signals from ctx plus the candidate's attributes and the user's
// category affinity.
func (b *FeatureBuilder) FromContext(ctx Context, candidate Candidate, affinity float64) []float64 {
	v := make([]float64, NumFeatures)
	v[online.FeatHourOfDay] = floatOrInt(ctx.HourOfDay, float64(b.now().Hour()))
	v[online.FeatDayOfWeek] = floatOrInt(ctx.DayOfWeek, defaultDayOfWeek)
	v[online.FeatWeatherScore] = floatOr(ctx.WeatherScore, defaultWeatherScore)
	v[online.FeatCurrentMood] = floatOr(ctx.CurrentMood, defaultMood)
	v[online.FeatStressLevel] = floatOr(ctx.StressLevel, defaultStressLevel)
	v[online.FeatEnergyLevel] = floatOr(ctx.EnergyLevel, defaultEnergyLevel)
	v[online.FeatSocialContext] = floatOr(ctx.SocialContext, defaultSocialContext)
	v[online.FeatTaskDifficulty] = candidate.Difficulty
	v[online.FeatTaskDuration] = candidate.EstimatedDuration
	v[online.FeatCategoryAffinity] = affinity
	return v
}

// FromFeedback builds the training vector for a feedback event. The
// mood slot holds the pre-activity mood when reported.
func (b *FeatureBuilder) FromFeedback(fb Feedback, affinity float64) []float64 {
	v := make([]float64, NumFeatures)
	v[online.FeatHourOfDay] = floatOrInt(fb.HourOfDay, float64(b.now().Hour()))
	v[online.FeatDayOfWeek] = floatOrInt(fb.DayOfWeek, defaultDayOfWeek)
	v[online.FeatWeatherScore] = floatOr(fb.WeatherScore, defaultWeatherScore)
	v[online.FeatCurrentMood] = floatOr(fb.MoodBefore, defaultMood)
	v[online.FeatStressLevel] = floatOr(fb.StressLevel, defaultStressLevel)
	v[online.FeatEnergyLevel] = floatOr(fb.EnergyLevel, defaultEnergyLevel)
	v[online.FeatSocialContext] = floatOr(fb.SocialContext, defaultSocialContext)
	v[online.FeatTaskDifficulty] = floatOr(fb.TaskDifficulty, defaultTaskDifficulty)
	v[online.FeatTaskDuration] = floatOr(fb.TaskDuration, defaultTaskDuration)
	v[online.FeatCategoryAffinity] = affinity
	return v
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func floatOrInt(p *int, def float64) float64 {
	if p == nil {
		return def
	}
	return float64(*p)
}
