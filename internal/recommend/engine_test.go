// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package recommend

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/upliftlabs/uplift/internal/recommend/storage"
)

type fakeTracker struct {
	recent map[string][]string
	err    error
}

func (f *fakeTracker) RecentCategories(userID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recent[userID], nil
}

func newTestEngine(t *testing.T, tracker CategoryTracker) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig(), storage.NewMemoryStore(), nil, tracker, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return e
}

func TestAllPredictorsInitializedAfterConstruction(t *testing.T) {
	e := newTestEngine(t, nil)

	stats := e.Stats()
	for name, info := range stats.Predictors {
		if !info.Initialized {
			t.Errorf("predictor %s not initialized after construction", name)
		}
	}
}

func TestScoreCandidatesDeterministicForIdenticalInputs(t *testing.T) {
	e := newTestEngine(t, nil)

	ctx := Context{HourOfDay: i(9), WeatherScore: f64(4.5), CurrentMood: f64(3)}
	candidates := []Candidate{
		{Category: "exercise", Difficulty: 0.3, EstimatedDuration: 10},
		{Category: "exercise", Difficulty: 0.3, EstimatedDuration: 10},
	}

	results := e.ScoreCandidates("u1", ctx, candidates)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].FinalScore != results[1].FinalScore {
		t.Errorf("identical candidates scored differently: %g vs %g",
			results[0].FinalScore, results[1].FinalScore)
	}
	for idx, r := range results {
		if r.MoodPrediction < 1 || r.MoodPrediction > 5 {
			t.Errorf("result %d mood = %g, want within [1, 5]", idx, r.MoodPrediction)
		}
		if r.EngagementPrediction < 0 || r.EngagementPrediction > 1 {
			t.Errorf("result %d engagement = %g, want within [0, 1]", idx, r.EngagementPrediction)
		}
		if r.SatisfactionPrediction < 1 || r.SatisfactionPrediction > 5 {
			t.Errorf("result %d satisfaction = %g, want within [1, 5]", idx, r.SatisfactionPrediction)
		}
		if r.Confidence <= 0 || r.Confidence > 1 {
			t.Errorf("result %d confidence = %g, want within (0, 1]", idx, r.Confidence)
		}
	}
}

func TestDiversityPenalizesRecentCategory(t *testing.T) {
	tracker := &fakeTracker{recent: map[string][]string{"u1": {"exercise"}}}
	e := newTestEngine(t, tracker)

	ctx := Context{HourOfDay: i(9)}
	candidates := []Candidate{
		{Category: "exercise", Difficulty: 0.3, EstimatedDuration: 10},
		{Category: "mindfulness", Difficulty: 0.3, EstimatedDuration: 10},
	}
	results := e.ScoreCandidates("u1", ctx, candidates)

	var exercise, mindfulness float64
	for _, r := range results {
		switch r.Category {
		case "exercise":
			exercise = r.FinalScore
		case "mindfulness":
			mindfulness = r.FinalScore
		}
	}
	if exercise >= mindfulness {
		t.Errorf("recently served category must score strictly lower: exercise=%g mindfulness=%g",
			exercise, mindfulness)
	}
	if results[0].Category != "mindfulness" {
		t.Errorf("results not sorted by score: first is %s", results[0].Category)
	}
}

func TestTrackerFailureTreatsAllAsNovel(t *testing.T) {
	tracker := &fakeTracker{err: errors.New("tracker down")}
	e := newTestEngine(t, tracker)

	candidates := []Candidate{
		{Category: "exercise", Difficulty: 0.3, EstimatedDuration: 10},
		{Category: "mindfulness", Difficulty: 0.3, EstimatedDuration: 10},
	}
	results := e.ScoreCandidates("u1", Context{HourOfDay: i(9)}, candidates)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].FinalScore != results[1].FinalScore {
		t.Errorf("with no diversity memory both candidates should tie: %g vs %g",
			results[0].FinalScore, results[1].FinalScore)
	}
}

func TestFeedbackRoundTripMovesCategoryWeight(t *testing.T) {
	e := newTestEngine(t, nil)

	before := e.Preferences().Get("u2").CategoryWeights["mindfulness"]
	if before != 0 {
		t.Fatalf("initial weight = %g, want 0", before)
	}

	for range [10]struct{}{} {
		e.RecordFeedback("u2", "r1", Feedback{
			SatisfactionRating: f64(5),
			Category:           "mindfulness",
			HourOfDay:          i(20),
			EngagementScore:    f64(0.9),
		})
	}

	after := e.Preferences().Get("u2").CategoryWeights["mindfulness"]
	if after <= before {
		t.Errorf("category weight did not move toward 5: before=%g after=%g", before, after)
	}

	stats := e.Stats()
	if stats.FeedbackEvents != 10 {
		t.Errorf("FeedbackEvents = %d, want 10", stats.FeedbackEvents)
	}
	// Ten events carry satisfaction and engagement targets each; the
	// satisfaction predictor crossed its batch threshold once.
	if got := stats.Predictors[PredictorSatisfaction].SampleCount; got <= 100 {
		t.Errorf("satisfaction SampleCount = %d, want above the synthetic seed count", got)
	}
}

func TestMoodTargetDerivation(t *testing.T) {
	tests := []struct {
		name string
		fb   Feedback
		want float64
		ok   bool
	}{
		{"mood after wins", Feedback{MoodAfter: f64(4.2), MoodDelta: f64(-2)}, 4.2, true},
		{"delta applied to midpoint", Feedback{MoodDelta: f64(1.5)}, 4.5, true},
		{"delta clamped", Feedback{MoodDelta: f64(9)}, 5, true},
		{"after clamped", Feedback{MoodAfter: f64(0)}, 1, true},
		{"no mood signal", Feedback{SatisfactionRating: f64(4)}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := moodTarget(tt.fb)
			if ok != tt.ok || got != tt.want {
				t.Errorf("moodTarget() = (%g, %v), want (%g, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRecordFeedbackNeverFails(t *testing.T) {
	e := newTestEngine(t, nil)

	// Entirely empty feedback is a no-op beyond the counter.
	e.RecordFeedback("u1", "r1", Feedback{})
	// Out-of-scale values are clamped, not rejected.
	e.RecordFeedback("u1", "r2", Feedback{
		SatisfactionRating: f64(99),
		EngagementScore:    f64(-3),
		MoodDelta:          f64(1000),
	})

	if got := e.Stats().FeedbackEvents; got != 2 {
		t.Errorf("FeedbackEvents = %d, want 2", got)
	}
}

func TestScoreCandidatesEmptyInput(t *testing.T) {
	e := newTestEngine(t, nil)
	if got := e.ScoreCandidates("u1", Context{}, nil); len(got) != 0 {
		t.Errorf("got %d results for empty input, want 0", len(got))
	}
}

func TestPreferenceBoostIsBounded(t *testing.T) {
	e := newTestEngine(t, nil)

	// Push affinities to their extremes, then check the boost bound.
	for range [300]struct{}{} {
		e.RecordFeedback("u1", "r", Feedback{
			SatisfactionRating: f64(5),
			Category:           "exercise",
			HourOfDay:          i(9),
			EngagementScore:    f64(1),
			TaskDifficulty:     f64(1),
		})
	}

	affinity := e.Preferences().CategoryAffinity("u1", "exercise")
	boost := e.preferenceBoost("u1", Candidate{Category: "exercise", Difficulty: 1}, affinity, 9)
	if boost < -e.cfg.BoostClamp || boost > e.cfg.BoostClamp {
		t.Errorf("boost = %g, want within ±%g", boost, e.cfg.BoostClamp)
	}
}

func TestEngineCloseFlushesBufferedSamples(t *testing.T) {
	e := newTestEngine(t, nil)

	seedCount := e.Stats().Predictors[PredictorSatisfaction].SampleCount
	// Fewer samples than the batch threshold, so only Close learns them.
	for range [3]struct{}{} {
		e.RecordFeedback("u1", "r", Feedback{SatisfactionRating: f64(4)})
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	got := e.Stats().Predictors[PredictorSatisfaction].SampleCount
	if got != seedCount+3 {
		t.Errorf("SampleCount after Close = %d, want %d", got, seedCount+3)
	}
}

func TestStrategyWeightsNormalize(t *testing.T) {
	w := StrategyWeights{Mood: 2, Engagement: 1, Satisfaction: 1, Diversity: 0}.Normalize()
	sum := w.Mood + w.Engagement + w.Satisfaction + w.Diversity
	if diff := sum - 1.0; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("normalized sum = %g, want 1.0", sum)
	}
	if w.Mood != 0.5 {
		t.Errorf("Mood = %g, want 0.5", w.Mood)
	}

	// Degenerate input falls back to the defaults.
	d := StrategyWeights{}.Normalize()
	if d != DefaultConfig().Weights {
		t.Errorf("zero weights should normalize to defaults, got %+v", d)
	}
}
