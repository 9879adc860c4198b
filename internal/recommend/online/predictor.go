// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package online

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/upliftlabs/uplift/internal/metrics"
)

// snapshotVersion guards persisted state against incompatible layout
// changes. Snapshots with a different version are discarded on load.
const snapshotVersion = "1"

// numClasses is the fixed class count for classification predictors:
// dislike, neutral, like.
const numClasses = 3

// Kind selects the model family behind a predictor.
type Kind int

const (
	// KindRegression predicts a continuous target.
	KindRegression Kind = iota
	// KindClassification predicts a discrete class (dislike/neutral/like).
	KindClassification
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindRegression:
		return "regression"
	case KindClassification:
		return "classification"
	default:
		return "unknown"
	}
}

// Config holds predictor tunables.
type Config struct {
	// BufferSize caps the in-memory training buffer. When full, the
	// oldest unprocessed sample is silently dropped.
	BufferSize int

	// BatchThreshold is the buffered count that triggers a learning
	// pass automatically.
	BatchThreshold int

	// HistorySize caps the rolling performance history.
	HistorySize int

	// ConfidenceWindow is how many recent metrics inform confidence.
	ConfidenceWindow int

	// SeedSamples is the synthetic bootstrap dataset size.
	SeedSamples int

	// LearningRate is the SGD base step size.
	LearningRate float64

	// ModelTTL is the persisted snapshot lifetime.
	ModelTTL time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:       50,
		BatchThreshold:   10,
		HistorySize:      100,
		ConfidenceWindow: 10,
		SeedSamples:      100,
		LearningRate:     0.01,
		ModelTTL:         7 * 24 * time.Hour,
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	if c.BatchThreshold <= 0 || c.BatchThreshold > c.BufferSize {
		return fmt.Errorf("batch threshold must be in 1-%d, got %d", c.BufferSize, c.BatchThreshold)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history size must be positive, got %d", c.HistorySize)
	}
	if c.ConfidenceWindow <= 0 {
		return fmt.Errorf("confidence window must be positive, got %d", c.ConfidenceWindow)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	}
	return nil
}

// Store persists predictor snapshots. Load returns (nil, nil) when no
// snapshot exists. Implementations must be safe for concurrent use.
type Store interface {
	Save(name string, snap *Snapshot) error
	Load(name string) (*Snapshot, error)
}

// PerfPoint is one entry of the rolling performance history: MSE for
// regression, accuracy for classification.
type PerfPoint struct {
	Metric    float64
	Timestamp time.Time
}

// Snapshot is the gob-serializable predictor state persisted across
// restarts.
type Snapshot struct {
	Version     string
	Kind        Kind
	Regressor   *Regressor
	Classifier  *Classifier
	Scaler      *Scaler
	Initialized bool
	SampleCount uint64
	LastUpdate  time.Time
	History     []PerfPoint
}

// Info summarizes a predictor's learning state.
type Info struct {
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Initialized bool      `json:"initialized"`
	SampleCount uint64    `json:"sample_count"`
	BufferLen   int       `json:"buffer_len"`
	Confidence  float64   `json:"confidence"`
	LastUpdate  time.Time `json:"last_update"`
}

type sample struct {
	features []float64
	target   float64
	userID   string
	weight   float64
	ts       time.Time
}

// Predictor owns one incrementally trained model for a single target,
// plus its feature scaler, bounded sample buffer, and rolling
// performance history.
//
// Locking: bufMu guards the sample buffer; buffer drain and the
// resulting learning pass run entirely under it so a threshold crossing
// triggers exactly one pass and no batch is processed twice. mu guards
// model, scaler, and history; learning mutates clones and swaps them in
// under the write lock, so Predict never observes a model mid-update.
type Predictor struct {
	name                 string
	kind                 Kind
	targetMin, targetMax float64
	dim                  int
	cfg                  Config

	bufMu  sync.Mutex
	buffer []sample

	mu          sync.RWMutex
	model       *Regressor
	clf         *Classifier
	scaler      *Scaler
	initialized bool
	sampleCount uint64
	lastUpdate  time.Time
	history     []PerfPoint

	store  Store
	logger zerolog.Logger
}

// NewPredictor builds a predictor for a target on the [targetMin,
// targetMax] scale with dim input features. Persisted state is restored
// when available; otherwise the model is seeded from a synthetic
// dataset so it is never cold at first request. store may be nil to
// disable persistence.
func NewPredictor(name string, kind Kind, targetMin, targetMax float64, dim int, cfg Config, store Store, logger zerolog.Logger) *Predictor {
	p := &Predictor{
		name:      name,
		kind:      kind,
		targetMin: targetMin,
		targetMax: targetMax,
		dim:       dim,
		cfg:       cfg,
		buffer:    make([]sample, 0, cfg.BufferSize),
		scaler:    NewScaler(dim),
		store:     store,
		logger:    logger.With().Str("component", "predictor").Str("predictor", name).Logger(),
	}
	switch kind {
	case KindClassification:
		p.clf = NewClassifier(numClasses, dim, cfg.LearningRate)
	default:
		p.model = NewRegressor(dim, cfg.LearningRate)
	}

	if p.restore() {
		return p
	}
	p.seed()
	return p
}

// Neutral is the default prediction on this predictor's target scale,
// served while uninitialized or degraded.
func (p *Predictor) Neutral() float64 {
	return (p.targetMin + p.targetMax) / 2
}

// Name returns the predictor name.
func (p *Predictor) Name() string { return p.name }

// Initialized reports whether at least one batch has been fit.
func (p *Predictor) Initialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// SampleCount returns the total samples consumed. Monotonically
// non-decreasing.
func (p *Predictor) SampleCount() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sampleCount
}

// BufferLen returns the current unprocessed buffer length.
func (p *Predictor) BufferLen() int {
	p.bufMu.Lock()
	defer p.bufMu.Unlock()
	return len(p.buffer)
}

// AddSample appends one training sample. When the buffer reaches the
// batch threshold the sample batch is drained and learned immediately,
// inside the same critical section. A full buffer drops the oldest
// unprocessed sample. Returns an error only for malformed input.
func (p *Predictor) AddSample(features []float64, target float64, userID string, weight float64) error {
	if len(features) != p.dim {
		return fmt.Errorf("predictor %s: got %d features, want %d", p.name, len(features), p.dim)
	}
	if weight < 0 || math.IsNaN(weight) {
		return fmt.Errorf("predictor %s: sample weight must be >= 0, got %g", p.name, weight)
	}
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return fmt.Errorf("predictor %s: non-numeric target", p.name)
	}

	p.bufMu.Lock()
	defer p.bufMu.Unlock()

	if len(p.buffer) >= p.cfg.BufferSize {
		p.buffer = p.buffer[1:]
	}
	p.buffer = append(p.buffer, sample{
		features: features,
		target:   target,
		userID:   userID,
		weight:   weight,
		ts:       time.Now(),
	})

	if len(p.buffer) >= p.cfg.BatchThreshold {
		batch := p.buffer
		p.buffer = make([]sample, 0, p.cfg.BufferSize)
		p.learn(batch)
	}
	return nil
}

// Flush learns any buffered samples regardless of the threshold. Used
// on shutdown and by the periodic snapshot loop.
func (p *Predictor) Flush() {
	p.bufMu.Lock()
	defer p.bufMu.Unlock()
	if len(p.buffer) == 0 {
		return
	}
	batch := p.buffer
	p.buffer = make([]sample, 0, p.cfg.BufferSize)
	p.learn(batch)
}

// learn folds one batch into the model. On any update error the
// predictor keeps its pre-update state and the batch is discarded, not
// retried. Called with bufMu held.
func (p *Predictor) learn(batch []sample) {
	X := make([][]float64, len(batch))
	y := make([]float64, len(batch))
	w := make([]float64, len(batch))
	for i, s := range batch {
		X[i] = s.features
		y[i] = s.target
		w[i] = s.weight
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Mutate clones so a failed update leaves prior state intact.
	scaler := p.scaler.Clone()
	if err := scaler.Update(X); err != nil {
		p.discardBatch(len(batch), err)
		return
	}
	scaled := make([][]float64, len(X))
	for i, row := range X {
		scaled[i] = scaler.Transform(row)
	}

	var metric float64
	switch p.kind {
	case KindClassification:
		clf := p.clf.Clone()
		labels := make([]int, len(y))
		for i, t := range y {
			labels[i] = p.classOf(t)
		}
		if err := clf.PartialFit(scaled, labels, w); err != nil {
			p.discardBatch(len(batch), err)
			return
		}
		correct := 0
		for i, row := range scaled {
			if class, _ := clf.Predict(row); class == labels[i] {
				correct++
			}
		}
		metric = float64(correct) / float64(len(scaled))
		p.clf = clf
	default:
		model := p.model.Clone()
		if err := model.PartialFit(scaled, y, w); err != nil {
			p.discardBatch(len(batch), err)
			return
		}
		var sse float64
		for i, row := range scaled {
			d := model.Predict(row) - y[i]
			sse += d * d
		}
		metric = sse / float64(len(scaled))
		p.model = model
	}

	p.scaler = scaler
	p.initialized = true
	p.sampleCount += uint64(len(batch))
	p.lastUpdate = time.Now()
	p.appendHistory(metric)

	metrics.LearnBatches.WithLabelValues(p.name).Inc()
	metrics.SamplesConsumed.WithLabelValues(p.name).Add(float64(len(batch)))
	if p.kind == KindClassification {
		metrics.PredictorError.WithLabelValues(p.name).Set(1 - metric)
	} else {
		metrics.PredictorError.WithLabelValues(p.name).Set(metric)
	}

	p.persistLocked()

	p.logger.Debug().
		Int("batch", len(batch)).
		Uint64("samples", p.sampleCount).
		Float64("metric", metric).
		Msg("Incremental learning pass complete")
}

// discardBatch records a failed update. Called with mu held.
func (p *Predictor) discardBatch(n int, err error) {
	metrics.LearnFailures.WithLabelValues(p.name).Inc()
	p.logger.Warn().Err(err).Int("batch", n).Msg("Model update failed, batch discarded")
}

// classOf maps a 1-5 scale target onto dislike/neutral/like.
func (p *Predictor) classOf(target float64) int {
	switch {
	case target < 2.5:
		return 0
	case target <= 3.5:
		return 1
	default:
		return 2
	}
}

// appendHistory records one performance metric, evicting the oldest
// entry beyond the cap. Called with mu held.
func (p *Predictor) appendHistory(metric float64) {
	p.history = append(p.history, PerfPoint{Metric: metric, Timestamp: time.Now()})
	if len(p.history) > p.cfg.HistorySize {
		p.history = p.history[len(p.history)-p.cfg.HistorySize:]
	}
}

// Predict returns a point estimate and a heuristic confidence for the
// feature vector. It never fails: an uninitialized predictor returns
// (neutral, 0.5) and any runtime problem returns the degraded
// (neutral, 0.3). Estimates are clamped to the target scale.
func (p *Predictor) Predict(features []float64) (float64, float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized {
		return p.Neutral(), 0.5
	}
	if len(features) != p.dim {
		return p.degraded()
	}

	scaled := p.scaler.Transform(features)

	var value float64
	switch p.kind {
	case KindClassification:
		class, _ := p.clf.Predict(scaled)
		value = float64(class)
	default:
		value = p.model.Predict(scaled)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return p.degraded()
	}

	if p.kind == KindRegression {
		if value < p.targetMin {
			value = p.targetMin
		} else if value > p.targetMax {
			value = p.targetMax
		}
	}
	return value, p.confidenceLocked()
}

// degraded is the never-throw fallback tuple. Called with mu held.
func (p *Predictor) degraded() (float64, float64) {
	metrics.DegradedPredictions.WithLabelValues(p.name).Inc()
	return p.Neutral(), 0.3
}

// Confidence returns the current heuristic confidence.
//
// Regression predictors map the mean of the recent error window through
// 1/(1+avg_mse), clamped to [0.1, 0.95]; classification predictors use
// the mean recent accuracy directly. An empty history returns 0.5. This
// is a tuning heuristic, not a calibrated interval.
func (p *Predictor) Confidence() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.confidenceLocked()
}

// confidenceLocked must be called with mu held (read or write).
func (p *Predictor) confidenceLocked() float64 {
	if len(p.history) == 0 {
		return 0.5
	}
	window := p.history
	if len(window) > p.cfg.ConfidenceWindow {
		window = window[len(window)-p.cfg.ConfidenceWindow:]
	}
	var sum float64
	for _, pt := range window {
		sum += pt.Metric
	}
	avg := sum / float64(len(window))

	if p.kind == KindClassification {
		if avg < 0 {
			return 0
		}
		if avg > 1 {
			return 1
		}
		return avg
	}
	c := 1.0 / (1.0 + avg)
	if c < 0.1 {
		return 0.1
	}
	if c > 0.95 {
		return 0.95
	}
	return c
}

// Info returns a point-in-time summary of learning state.
func (p *Predictor) Info() Info {
	bufLen := p.BufferLen()
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Info{
		Name:        p.name,
		Kind:        p.kind.String(),
		Initialized: p.initialized,
		SampleCount: p.sampleCount,
		BufferLen:   bufLen,
		Confidence:  p.confidenceLocked(),
		LastUpdate:  p.lastUpdate,
	}
}

// Persist writes the current snapshot to the store, best effort.
func (p *Predictor) Persist() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.persistLocked()
}

// persistLocked must be called with mu held (read or write). A nil
// store or a store failure is logged and ignored; in-memory state
// remains authoritative.
func (p *Predictor) persistLocked() {
	if p.store == nil {
		return
	}
	snap := &Snapshot{
		Version:     snapshotVersion,
		Kind:        p.kind,
		Scaler:      p.scaler.Clone(),
		Initialized: p.initialized,
		SampleCount: p.sampleCount,
		LastUpdate:  p.lastUpdate,
		History:     append([]PerfPoint(nil), p.history...),
	}
	if p.kind == KindClassification {
		snap.Classifier = p.clf.Clone()
	} else {
		snap.Regressor = p.model.Clone()
	}
	if err := p.store.Save(p.name, snap); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to persist model snapshot")
	}
}

// restore loads persisted state, returning true on success. Missing or
// incompatible snapshots leave the predictor untouched.
func (p *Predictor) restore() bool {
	if p.store == nil {
		return false
	}
	snap, err := p.store.Load(p.name)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to load model snapshot")
		return false
	}
	if snap == nil {
		return false
	}
	if snap.Version != snapshotVersion || snap.Kind != p.kind {
		p.logger.Warn().
			Str("version", snap.Version).
			Str("kind", snap.Kind.String()).
			Msg("Discarding incompatible model snapshot")
		return false
	}
	if snap.Scaler == nil || len(snap.Scaler.Mean) != p.dim {
		p.logger.Warn().Msg("Discarding model snapshot with mismatched dimensions")
		return false
	}
	switch p.kind {
	case KindClassification:
		if snap.Classifier == nil {
			return false
		}
		p.clf = snap.Classifier
	default:
		if snap.Regressor == nil || len(snap.Regressor.Weights) != p.dim {
			return false
		}
		p.model = snap.Regressor
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.scaler = snap.Scaler
	p.initialized = snap.Initialized
	p.sampleCount = snap.SampleCount
	p.lastUpdate = snap.LastUpdate
	p.history = snap.History
	p.logger.Info().Uint64("samples", p.sampleCount).Msg("Restored model snapshot")
	return true
}
