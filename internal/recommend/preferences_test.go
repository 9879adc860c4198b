// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package recommend

import (
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/upliftlabs/uplift/internal/recommend/storage"
)

func newTestPrefs(t *testing.T) (*PreferenceStore, *storage.MemoryStore) {
	t.Helper()
	mem := storage.NewMemoryStore()
	return NewPreferenceStore(DefaultConfig(), mem, zerolog.Nop()), mem
}

func TestGetCreatesNeutralProfile(t *testing.T) {
	ps, _ := newTestPrefs(t)

	p := ps.Get("u1")
	if p.DifficultyPreference != 0.5 {
		t.Errorf("DifficultyPreference = %g, want 0.5", p.DifficultyPreference)
	}
	if p.SocialPreference != 0.5 {
		t.Errorf("SocialPreference = %g, want 0.5", p.SocialPreference)
	}
	if len(p.CategoryWeights) != 0 || len(p.TimePreferences) != 0 {
		t.Error("new profile should have empty weight maps")
	}
	if ps.Count() != 1 {
		t.Errorf("Count = %d, want 1 after lazy create", ps.Count())
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ps, _ := newTestPrefs(t)

	p := ps.Get("u1")
	p.CategoryWeights["hacked"] = 99

	if _, ok := ps.Get("u1").CategoryWeights["hacked"]; ok {
		t.Error("mutating a returned profile leaked into the store")
	}
}

func TestCategoryEMAConvergesTowardRating(t *testing.T) {
	ps, _ := newTestPrefs(t)

	for range [200]struct{}{} {
		ps.Update("u1", Feedback{Category: "mindfulness", SatisfactionRating: f64(5)})
	}

	got := ps.Get("u1").CategoryWeights["mindfulness"]
	if math.Abs(got-5) > 0.01 {
		t.Errorf("category weight = %g, want converged toward 5", got)
	}
}

func TestTimePreferenceEMA(t *testing.T) {
	ps, _ := newTestPrefs(t)

	ps.Update("u1", Feedback{HourOfDay: i(20), EngagementScore: f64(0.9)})

	got := ps.Get("u1").TimePreferences[20]
	want := 0.1 * 0.9 // (1-α)·0 + α·0.9
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("time preference = %g, want %g", got, want)
	}

	// Out-of-range hours are skipped, not stored.
	ps.Update("u1", Feedback{HourOfDay: i(25), EngagementScore: f64(1)})
	if _, ok := ps.Get("u1").TimePreferences[25]; ok {
		t.Error("out-of-range hour should be skipped")
	}
}

func TestDifficultyMovesOnlyOnLikedOutcomes(t *testing.T) {
	ps, _ := newTestPrefs(t)

	// Disliked outcome: difficulty preference must not move.
	ps.Update("u1", Feedback{SatisfactionRating: f64(2), TaskDifficulty: f64(0.9)})
	if got := ps.Get("u1").DifficultyPreference; got != 0.5 {
		t.Errorf("DifficultyPreference = %g after disliked outcome, want unchanged 0.5", got)
	}

	// Liked outcome: small EMA step toward the task difficulty.
	ps.Update("u1", Feedback{SatisfactionRating: f64(5), TaskDifficulty: f64(0.9)})
	want := 0.95*0.5 + 0.05*0.9
	if got := ps.Get("u1").DifficultyPreference; math.Abs(got-want) > 1e-12 {
		t.Errorf("DifficultyPreference = %g, want %g", got, want)
	}
}

func TestDifficultyPreferenceStaysClamped(t *testing.T) {
	ps, _ := newTestPrefs(t)

	for range [500]struct{}{} {
		ps.Update("u1", Feedback{SatisfactionRating: f64(5), TaskDifficulty: f64(5)})
	}
	got := ps.Get("u1").DifficultyPreference
	if got < 0 || got > 1 {
		t.Errorf("DifficultyPreference = %g, want within [0, 1]", got)
	}
}

func TestMissingSignalsAreSkipped(t *testing.T) {
	ps, _ := newTestPrefs(t)

	// No recognized signal at all: a no-op beyond profile creation.
	ps.Update("u1", Feedback{Category: "exercise"})

	p := ps.Get("u1")
	if len(p.CategoryWeights) != 0 {
		t.Error("category weight written without a rating")
	}
}

func TestAffinityMapping(t *testing.T) {
	ps, _ := newTestPrefs(t)

	if got := ps.CategoryAffinity("ghost", "exercise"); got != 0.5 {
		t.Errorf("unknown user affinity = %g, want 0.5", got)
	}

	for range [200]struct{}{} {
		ps.Update("u1", Feedback{Category: "exercise", SatisfactionRating: f64(5)})
	}
	if got := ps.CategoryAffinity("u1", "exercise"); got < 0.9 {
		t.Errorf("converged affinity = %g, want near 1", got)
	}
	if got := ps.CategoryAffinity("u1", "unseen"); got != 0.5 {
		t.Errorf("unseen category affinity = %g, want 0.5", got)
	}
}

func TestPersistRoundTrip(t *testing.T) {
	ps, mem := newTestPrefs(t)

	ps.Update("u1", Feedback{Category: "reading", SatisfactionRating: f64(4)})
	ps.Update("u2", Feedback{HourOfDay: i(8), EngagementScore: f64(0.7)})
	if err := ps.Persist(); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	restored := NewPreferenceStore(DefaultConfig(), mem, zerolog.Nop())
	if restored.Count() != 2 {
		t.Fatalf("restored Count = %d, want 2", restored.Count())
	}
	orig := ps.Get("u1").CategoryWeights["reading"]
	got := restored.Get("u1").CategoryWeights["reading"]
	if math.Abs(got-orig) > 1e-12 {
		t.Errorf("restored weight = %g, want %g", got, orig)
	}
}

func TestConcurrentUpdatesSameUser(t *testing.T) {
	ps, _ := newTestPrefs(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range [100]struct{}{} {
				ps.Update("u1", Feedback{Category: "exercise", SatisfactionRating: f64(4)})
			}
		}()
	}
	wg.Wait()

	got := ps.Get("u1").CategoryWeights["exercise"]
	if got <= 0 || got > 5 {
		t.Errorf("weight = %g after concurrent updates, want within (0, 5]", got)
	}
}
