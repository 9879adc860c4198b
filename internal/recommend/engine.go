// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package recommend

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/upliftlabs/uplift/internal/metrics"
	"github.com/upliftlabs/uplift/internal/recommend/online"
)

// Predictor names, also used as persistence keys and metric labels.
const (
	PredictorMood         = "mood"
	PredictorEngagement   = "engagement"
	PredictorSatisfaction = "satisfaction"
)

// Engine is the public entry point of the recommendation core. It owns
// three incremental predictors and the preference store, and exposes
// two total functions: ScoreCandidates and RecordFeedback. Neither ever
// propagates an internal model error; they degrade to neutral defaults
// instead.
//
// An Engine is safe for concurrent use and should be constructed once
// at startup and closed on shutdown.
type Engine struct {
	cfg     Config
	builder *FeatureBuilder
	prefs   *PreferenceStore
	tracker CategoryTracker

	mood         *online.Predictor
	engagement   *online.Predictor
	satisfaction *online.Predictor

	requests       atomic.Uint64
	scored         atomic.Uint64
	feedbackEvents atomic.Uint64

	logger zerolog.Logger
}

// NewEngine builds an engine. Persisted predictor and preference state
// is restored through the given stores when present; otherwise the
// predictors are synthetically seeded so every predictor is initialized
// before the first request. models and tracker may be nil to disable
// model persistence and the diversity memory respectively.
func NewEngine(cfg Config, store BlobStore, models online.Store, tracker CategoryTracker, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	elog := logger.With().Str("component", "engine").Logger()
	e := &Engine{
		cfg:     cfg,
		builder: NewFeatureBuilder(),
		prefs:   NewPreferenceStore(cfg, store, logger),
		tracker: tracker,
		logger:  elog,
	}

	e.mood = online.NewPredictor(
		PredictorMood, online.KindRegression, 1.0, 5.0, NumFeatures, cfg.Predictor, models, logger)
	e.engagement = online.NewPredictor(
		PredictorEngagement, online.KindRegression, 0.0, 1.0, NumFeatures, cfg.Predictor, models, logger)
	e.satisfaction = online.NewPredictor(
		PredictorSatisfaction, online.KindRegression, 1.0, 5.0, NumFeatures, cfg.Predictor, models, logger)

	elog.Info().
		Interface("weights", cfg.Weights.ToMap()).
		Msg("Adaptive engine ready")
	return e, nil
}

// ScoreCandidates ranks the candidates for the user in the given
// context. Results are sorted by final score descending; ties keep
// input order, so identical inputs produce identical output.
func (e *Engine) ScoreCandidates(userID string, ctx Context, candidates []Candidate) []ScoredCandidate {
	start := time.Now()
	defer metrics.ObserveRecommendation(start)
	e.requests.Add(1)
	e.scored.Add(uint64(len(candidates)))

	recent := e.recentCategorySet(userID)
	hour := e.contextHour(ctx)

	results := make([]ScoredCandidate, len(candidates))
	for i, cand := range candidates {
		results[i] = e.scoreOne(userID, ctx, cand, recent, hour)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})

	e.logger.Debug().
		Str("user", userID).
		Int("candidates", len(candidates)).
		Dur("elapsed", time.Since(start)).
		Msg("Scored candidates")
	return results
}

// scoreOne computes one candidate's blended score:
//
//	base  = Σ weight[k] · prediction[k] · confidence[k]
//	total = base + diversity_weight · diversity_term
//	final = total · (1 + preference_boost)
func (e *Engine) scoreOne(userID string, ctx Context, cand Candidate, recent map[string]struct{}, hour int) ScoredCandidate {
	affinity := e.prefs.CategoryAffinity(userID, cand.Category)
	features := e.builder.FromContext(ctx, cand, affinity)

	moodVal, moodConf := e.mood.Predict(features)
	engVal, engConf := e.engagement.Predict(features)
	satVal, satConf := e.satisfaction.Predict(features)

	w := e.cfg.Weights
	base := w.Mood*moodVal*moodConf +
		w.Engagement*engVal*engConf +
		w.Satisfaction*satVal*satConf

	diversity := e.cfg.NovelCategoryScore
	if _, repeated := recent[cand.Category]; repeated {
		diversity = e.cfg.RepeatedCategoryScore
	}
	total := base + w.Diversity*diversity

	boost := e.preferenceBoost(userID, cand, affinity, hour)

	return ScoredCandidate{
		Candidate:              cand,
		FinalScore:             total * (1 + boost),
		MoodPrediction:         moodVal,
		EngagementPrediction:   engVal,
		SatisfactionPrediction: satVal,
		Confidence:             (moodConf + engConf + satConf) / 3,
	}
}

// preferenceBoost derives a bounded multiplier adjustment from the
// user's learned affinities: category affinity deviation from neutral,
// time-of-day affinity deviation, and difficulty match closeness. Each
// component is clipped to the clamp before summing, then the sum is
// clipped again.
func (e *Engine) preferenceBoost(userID string, cand Candidate, affinity float64, hour int) float64 {
	c := e.cfg.BoostClamp

	catTerm := clamp((affinity-0.5)*e.cfg.CategoryBoostScale, -c, c)

	timeAff := e.prefs.TimeAffinity(userID, hour)
	timeTerm := clamp((timeAff-0.5)*e.cfg.TimeBoostScale, -c, c)

	diffMatch := 1 - abs(cand.Difficulty-e.prefs.DifficultyPreference(userID))
	diffTerm := clamp((diffMatch-0.5)*e.cfg.DifficultyBoostScale, -c, c)

	return clamp(catTerm+timeTerm+diffTerm, -c, c)
}

// recentCategorySet resolves the diversity memory. A missing tracker or
// a tracker error treats every candidate as novel.
func (e *Engine) recentCategorySet(userID string) map[string]struct{} {
	if e.tracker == nil {
		return nil
	}
	cats, err := e.tracker.RecentCategories(userID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user", userID).Msg("Recent category lookup failed, treating all candidates as novel")
		return nil
	}
	set := make(map[string]struct{}, len(cats))
	for _, cat := range cats {
		set[cat] = struct{}{}
	}
	return set
}

// contextHour resolves the request hour used by the time-of-day boost.
func (e *Engine) contextHour(ctx Context) int {
	if ctx.HourOfDay != nil {
		return *ctx.HourOfDay
	}
	return e.builder.now().Hour()
}

// RecordFeedback routes one feedback event to the predictors and the
// preference store. Each of the three targets is optional; the event
// trains whichever predictors it carries a target for. The call never
// fails; malformed pieces are logged and skipped.
func (e *Engine) RecordFeedback(userID, recommendationID string, fb Feedback) {
	e.feedbackEvents.Add(1)

	affinity := e.prefs.CategoryAffinity(userID, fb.Category)
	features := e.builder.FromFeedback(fb, affinity)

	if target, ok := moodTarget(fb); ok {
		e.train(e.mood, PredictorMood, features, target, userID)
	}
	if fb.EngagementScore != nil {
		e.train(e.engagement, PredictorEngagement, features, clamp(*fb.EngagementScore, 0, 1), userID)
	}
	if fb.SatisfactionRating != nil {
		e.train(e.satisfaction, PredictorSatisfaction, features, clamp(*fb.SatisfactionRating, 1, 5), userID)
	}

	e.prefs.Update(userID, fb)
	metrics.FeedbackEvents.WithLabelValues("preferences").Inc()

	e.logger.Debug().
		Str("user", userID).
		Str("recommendation", recommendationID).
		Msg("Recorded feedback")
}

// train adds one sample to a predictor, absorbing input errors.
func (e *Engine) train(p *online.Predictor, target string, features []float64, value float64, userID string) {
	if err := p.AddSample(features, value, userID, 1.0); err != nil {
		e.logger.Warn().Err(err).Str("predictor", target).Msg("Dropped malformed training sample")
		return
	}
	metrics.FeedbackEvents.WithLabelValues(target).Inc()
}

// moodTarget derives the mood predictor's 1-5 target. MoodAfter wins
// when present; otherwise a reported delta is applied to the neutral
// midpoint.
func moodTarget(fb Feedback) (float64, bool) {
	if fb.MoodAfter != nil {
		return clamp(*fb.MoodAfter, 1, 5), true
	}
	if fb.MoodDelta != nil {
		return clamp(3.0+*fb.MoodDelta, 1, 5), true
	}
	return 0, false
}

// Stats returns a point-in-time engine summary.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Requests:         e.requests.Load(),
		CandidatesScored: e.scored.Load(),
		FeedbackEvents:   e.feedbackEvents.Load(),
		Users:            e.prefs.Count(),
		Weights:          e.cfg.Weights.ToMap(),
		Predictors: map[string]online.Info{
			PredictorMood:         e.mood.Info(),
			PredictorEngagement:   e.engagement.Info(),
			PredictorSatisfaction: e.satisfaction.Info(),
		},
	}
}

// Preferences exposes the preference store, used by the stats surface.
func (e *Engine) Preferences() *PreferenceStore {
	return e.prefs
}

// Flush learns any buffered samples and persists all state. Called
// periodically by the snapshot loop.
func (e *Engine) Flush() {
	for _, p := range []*online.Predictor{e.mood, e.engagement, e.satisfaction} {
		p.Flush()
		p.Persist()
	}
	if err := e.prefs.Persist(); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to persist preferences")
	}
}

// Close flushes all buffered state before shutdown.
func (e *Engine) Close() error {
	e.Flush()
	e.logger.Info().Msg("Adaptive engine closed")
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
