// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

// Package storage provides the persistence gateway for model snapshots,
// user preferences, and the recent-category tracker.
//
// State is stored as opaque blobs in a key-value backend (BadgerDB in
// production, an in-memory map in tests), serialized with gob, gzip
// compressed, and integrity-checked with a SHA-256 checksum. A circuit
// breaker wraps the backend so a failing store degrades to in-memory
// operation instead of stalling the request path.
package storage
