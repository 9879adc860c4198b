// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

// Package online implements incremental learning primitives: a running
// mean/variance feature scaler, stochastic gradient descent models with
// a single always-incremental update rule, and the buffered Predictor
// that ties them together with bounded memory and crash-safe state
// swaps. Model updates never retrain on historical data; each batch is
// folded into existing parameters.
package online
