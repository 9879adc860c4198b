// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package recommend

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/upliftlabs/uplift/internal/recommend/storage"
)

// KeyUserPreferences is the persistence key for the full preference map.
const KeyUserPreferences = "user_preferences"

// Profile holds one user's learned affinities. Category and time
// weights are unbounded EMA values on their native scales (satisfaction
// 1-5, engagement 0-1); difficulty and social preference are clamped to
// [0, 1] after every update.
type Profile struct {
	CategoryWeights      map[string]float64 `json:"category_weights"`
	TimePreferences      map[int]float64    `json:"time_preferences"`
	DifficultyPreference float64            `json:"difficulty_preference"`
	SocialPreference     float64            `json:"social_preference"`
	LastUpdated          time.Time          `json:"last_updated"`
}

func newProfile() *Profile {
	return &Profile{
		CategoryWeights:      make(map[string]float64),
		TimePreferences:      make(map[int]float64),
		DifficultyPreference: 0.5,
		SocialPreference:     0.5,
	}
}

// clone returns a deep copy so callers never alias live map state.
func (p *Profile) clone() Profile {
	out := Profile{
		CategoryWeights:      make(map[string]float64, len(p.CategoryWeights)),
		TimePreferences:      make(map[int]float64, len(p.TimePreferences)),
		DifficultyPreference: p.DifficultyPreference,
		SocialPreference:     p.SocialPreference,
		LastUpdated:          p.LastUpdated,
	}
	for k, v := range p.CategoryWeights {
		out.CategoryWeights[k] = v
	}
	for k, v := range p.TimePreferences {
		out.TimePreferences[k] = v
	}
	return out
}

// PreferenceStore maintains per-user EMA affinities, decoupled from the
// regression predictors. A single lock serializes updates; contention
// is low and the critical sections are a handful of map writes.
type PreferenceStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile

	cfg    Config
	store  BlobStore
	logger zerolog.Logger
}

// NewPreferenceStore builds a store and loads any persisted profiles.
// A load failure is logged and ignored; the store starts empty.
func NewPreferenceStore(cfg Config, store BlobStore, logger zerolog.Logger) *PreferenceStore {
	ps := &PreferenceStore{
		profiles: make(map[string]*Profile),
		cfg:      cfg,
		store:    store,
		logger:   logger.With().Str("component", "preferences").Logger(),
	}
	ps.load()
	return ps
}

// Get returns a copy of the user's profile, lazily creating one with
// neutral defaults. The copy never aliases live state.
func (s *PreferenceStore) Get(userID string) Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreate(userID).clone()
}

// getOrCreate must be called with the lock held.
func (s *PreferenceStore) getOrCreate(userID string) *Profile {
	p, ok := s.profiles[userID]
	if !ok {
		p = newProfile()
		s.profiles[userID] = p
	}
	return p
}

// CategoryAffinity maps the user's category weight onto [0, 1] for use
// as a feature and boost input. Unseen categories are neutral (0.5);
// seen categories map their 1-5 rating EMA through weight/5.
func (s *PreferenceStore) CategoryAffinity(userID, category string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return 0.5
	}
	w, ok := p.CategoryWeights[category]
	if !ok {
		return 0.5
	}
	return clamp(w/5.0, 0, 1)
}

// TimeAffinity returns the user's engagement EMA for the hour, or
// neutral (0.5) when the hour has never been observed.
func (s *PreferenceStore) TimeAffinity(userID string, hour int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return 0.5
	}
	w, ok := p.TimePreferences[hour]
	if !ok {
		return 0.5
	}
	return clamp(w, 0, 1)
}

// DifficultyPreference returns the user's difficulty preference in
// [0, 1], defaulting to 0.5.
func (s *PreferenceStore) DifficultyPreference(userID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return p.DifficultyPreference
	}
	return 0.5
}

// Update folds one feedback event into the user's profile. Each signal
// is optional and skipped when absent; the call never fails.
//
// EMA rules:
//   - category weight: α = CategoryAlpha on the satisfaction rating
//   - time preference: α = TimeAlpha on the engagement score
//   - difficulty and social preference: α = DifficultyAlpha, only when
//     the outcome was liked (rating > 3), clamped to [0, 1]
func (s *PreferenceStore) Update(userID string, fb Feedback) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreate(userID)

	if fb.Category != "" && fb.SatisfactionRating != nil {
		old := p.CategoryWeights[fb.Category]
		p.CategoryWeights[fb.Category] = ema(old, *fb.SatisfactionRating, s.cfg.CategoryAlpha)
	}

	if fb.HourOfDay != nil && fb.EngagementScore != nil {
		hour := *fb.HourOfDay
		if hour >= 0 && hour <= 23 {
			old := p.TimePreferences[hour]
			p.TimePreferences[hour] = ema(old, *fb.EngagementScore, s.cfg.TimeAlpha)
		}
	}

	liked := fb.SatisfactionRating != nil && *fb.SatisfactionRating > 3
	if liked && fb.TaskDifficulty != nil {
		p.DifficultyPreference = clamp(
			ema(p.DifficultyPreference, *fb.TaskDifficulty, s.cfg.DifficultyAlpha), 0, 1)
	}
	if liked && fb.SocialContext != nil {
		p.SocialPreference = clamp(
			ema(p.SocialPreference, *fb.SocialContext, s.cfg.DifficultyAlpha), 0, 1)
	}

	p.LastUpdated = time.Now()
}

// Count returns the number of known users.
func (s *PreferenceStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// Persist writes the full profile map to the blob store. Failures are
// returned for logging but in-memory state stays authoritative.
func (s *PreferenceStore) Persist() error {
	if s.store == nil {
		return nil
	}
	s.mu.RLock()
	snapshot := make(map[string]Profile, len(s.profiles))
	for id, p := range s.profiles {
		snapshot[id] = p.clone()
	}
	s.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshot); err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.store.Set(KeyUserPreferences, buf.Bytes(), s.cfg.PreferencesTTL); err != nil {
		return fmt.Errorf("persist preferences: %w", err)
	}
	return nil
}

// load restores persisted profiles. Missing state is a normal cold
// start; decode failures discard the blob and log.
func (s *PreferenceStore) load() {
	if s.store == nil {
		return
	}
	blob, err := s.store.Get(KeyUserPreferences)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("Failed to load persisted preferences")
		}
		return
	}

	var snapshot map[string]Profile
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&snapshot); err != nil {
		s.logger.Warn().Err(err).Msg("Discarding undecodable preference snapshot")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range snapshot {
		restored := p.clone()
		s.profiles[id] = &restored
	}
	s.logger.Info().Int("users", len(snapshot)).Msg("Restored user preferences")
}

func ema(old, observation, alpha float64) float64 {
	return (1-alpha)*old + alpha*observation
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
