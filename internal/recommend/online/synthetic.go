// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package online

import (
	"math/rand"
	"time"
)

// NumFeatures is the canonical feature vector length. The index
// constants below fix the vector order; the feature builder and the
// synthetic seed both depend on it, and persisted model weights are
// positional.
const NumFeatures = 10

// Canonical feature vector indices.
const (
	FeatHourOfDay = iota
	FeatDayOfWeek
	FeatWeatherScore
	FeatCurrentMood
	FeatStressLevel
	FeatEnergyLevel
	FeatSocialContext
	FeatTaskDifficulty
	FeatTaskDuration
	FeatCategoryAffinity
)

// seed bootstraps an empty predictor from a synthetic dataset encoding
// domain priors, so the engine never branches on "no model": wellbeing
// improves in the morning and evening and degrades late at night,
// improves with good weather, high energy, company, and well-liked
// activity categories, and dips slightly under stress. The generated
// target lives on a 1-5 scale and is rescaled to the predictor's own
// target range.
func (p *Predictor) seed() {
	if p.cfg.SeedSamples <= 0 || p.dim != NumFeatures {
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // statistical seed, not security material
	X := make([][]float64, p.cfg.SeedSamples)
	y := make([]float64, p.cfg.SeedSamples)
	for i := range X {
		x := syntheticVector(rng)
		X[i] = x
		y[i] = p.rescale(syntheticTarget(rng, x))
	}

	p.bufMu.Lock()
	defer p.bufMu.Unlock()
	batch := make([]sample, len(X))
	now := time.Now()
	for i := range X {
		batch[i] = sample{features: X[i], target: y[i], weight: 1.0, ts: now}
	}
	p.learn(batch)
	p.logger.Info().Int("samples", len(batch)).Msg("Seeded model from synthetic priors")
}

// rescale maps a 1-5 score onto the predictor's target range.
func (p *Predictor) rescale(score float64) float64 {
	return p.targetMin + (score-1.0)/4.0*(p.targetMax-p.targetMin)
}

// syntheticVector draws one plausible context/activity vector.
func syntheticVector(rng *rand.Rand) []float64 {
	x := make([]float64, NumFeatures)
	x[FeatHourOfDay] = float64(rng.Intn(24))
	x[FeatDayOfWeek] = float64(rng.Intn(7))
	x[FeatWeatherScore] = rng.Float64() * 5
	x[FeatCurrentMood] = 1 + rng.Float64()*4
	x[FeatStressLevel] = 1 + rng.Float64()*4
	x[FeatEnergyLevel] = 1 + rng.Float64()*4
	x[FeatSocialContext] = float64(rng.Intn(2))
	x[FeatTaskDifficulty] = rng.Float64()
	x[FeatTaskDuration] = 5 + rng.Float64()*55
	x[FeatCategoryAffinity] = rng.Float64()
	return x
}

// syntheticTarget scores one vector against the priors, with noise,
// clamped to the 1-5 scale.
func syntheticTarget(rng *rand.Rand, x []float64) float64 {
	score := 3.0

	hour := x[FeatHourOfDay]
	switch {
	case hour >= 6 && hour <= 10, hour >= 18 && hour <= 22:
		score += 0.5
	case hour <= 5:
		score -= 0.8
	}

	switch weather := x[FeatWeatherScore]; {
	case weather >= 4.0:
		score += 0.7
	case weather <= 1.5:
		score -= 0.5
	}

	switch affinity := x[FeatCategoryAffinity]; {
	case affinity >= 0.7:
		score += 0.6
	case affinity <= 0.3:
		score -= 0.2
	}

	score += x[FeatSocialContext] * 0.2
	score += (x[FeatEnergyLevel] - 3.0) * 0.4
	score -= (x[FeatStressLevel] - 3.0) * 0.2
	score += (rng.Float64()*2 - 1) * 0.3

	if score < 1 {
		return 1
	}
	if score > 5 {
		return 5
	}
	return score
}
