// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

// Package recommend implements the adaptive recommendation engine.
//
// The engine blends three incrementally trained predictors (mood delta,
// engagement, satisfaction) with per-user preference statistics and a
// category diversity term to rank candidate activities. Predictors learn
// continuously from streaming feedback; there is no retrain-from-scratch
// path. All public entry points absorb internal errors and degrade to
// neutral defaults rather than failing the request.
//
// Architecture:
//   - FeatureBuilder converts sparse feedback/context records into
//     fixed-order numeric vectors.
//   - online.Predictor (one per target) owns an SGD model, an
//     incrementally fit scaler, a bounded sample buffer, and a rolling
//     performance history.
//   - PreferenceStore tracks per-user EMA affinities over category,
//     time of day, and difficulty.
//   - Engine orchestrates all of the above behind two public calls:
//     ScoreCandidates and RecordFeedback.
package recommend
