// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// RecentKeyPrefix namespaces per-user recently served category lists.
const RecentKeyPrefix = "recent_categories:"

// TrackerConfig tunes the recent-category tracker.
type TrackerConfig struct {
	// Window caps how many served categories are remembered per user,
	// newest first.
	Window int

	// TTL expires a user's list after inactivity.
	TTL time.Duration
}

// DefaultTrackerConfig returns the production defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Window: 5,
		TTL:    24 * time.Hour,
	}
}

// RecentTracker remembers which categories were recently served to each
// user, feeding the engine's diversity term. Lists are cached in memory
// and written through to the gateway so they survive restarts.
type RecentTracker struct {
	mu    sync.Mutex
	cache map[string][]string

	gw     *Gateway
	cfg    TrackerConfig
	logger zerolog.Logger
}

// NewRecentTracker builds a tracker over the gateway. gw may be nil for
// a purely in-memory tracker.
func NewRecentTracker(gw *Gateway, cfg TrackerConfig, logger zerolog.Logger) *RecentTracker {
	return &RecentTracker{
		cache:  make(map[string][]string),
		gw:     gw,
		cfg:    cfg,
		logger: logger.With().Str("component", "recent_tracker").Logger(),
	}
}

// RecentCategories returns the user's recently served categories,
// newest first. An empty list means everything is novel.
func (t *RecentTracker) RecentCategories(userID string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cats, ok := t.cache[userID]; ok {
		return append([]string(nil), cats...), nil
	}

	cats, err := t.load(userID)
	if err != nil {
		return nil, err
	}
	t.cache[userID] = cats
	return append([]string(nil), cats...), nil
}

// RecordServed prepends the served categories to the user's list,
// deduplicating and truncating to the window, then writes through.
func (t *RecentTracker) RecordServed(userID string, categories []string) {
	if len(categories) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.cache[userID]
	if !ok {
		loaded, err := t.load(userID)
		if err == nil {
			current = loaded
		}
	}

	merged := make([]string, 0, t.cfg.Window)
	seen := make(map[string]struct{}, t.cfg.Window)
	for _, cat := range categories {
		if cat == "" {
			continue
		}
		if _, dup := seen[cat]; dup {
			continue
		}
		seen[cat] = struct{}{}
		merged = append(merged, cat)
		if len(merged) == t.cfg.Window {
			break
		}
	}
	for _, cat := range current {
		if len(merged) == t.cfg.Window {
			break
		}
		if _, dup := seen[cat]; dup {
			continue
		}
		seen[cat] = struct{}{}
		merged = append(merged, cat)
	}
	t.cache[userID] = merged

	if t.gw == nil {
		return
	}
	blob, err := json.Marshal(merged)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to encode recent categories")
		return
	}
	if err := t.gw.Set(RecentKeyPrefix+userID, blob, t.cfg.TTL); err != nil {
		t.logger.Warn().Err(err).Str("user", userID).Msg("Failed to persist recent categories")
	}
}

// load must be called with the lock held.
func (t *RecentTracker) load(userID string) ([]string, error) {
	if t.gw == nil {
		return nil, nil
	}
	blob, err := t.gw.Get(RecentKeyPrefix + userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load recent categories: %w", err)
	}
	var cats []string
	if err := json.Unmarshal(blob, &cats); err != nil {
		return nil, fmt.Errorf("decode recent categories: %w", err)
	}
	return cats, nil
}
