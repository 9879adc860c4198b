// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package online

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnstableUpdate reports that a gradient step produced non-finite
// parameters. The caller discards the batch and keeps prior state.
var ErrUnstableUpdate = errors.New("numerically unstable model update")

// Regressor is a linear model trained by stochastic gradient descent on
// squared error. One update rule serves both the first batch and every
// later batch. Fields are exported for gob.
type Regressor struct {
	Weights []float64
	Bias    float64
	Eta0    float64
	Steps   uint64
}

// NewRegressor returns a zero-initialized regressor for dim features
// with base learning rate eta0.
func NewRegressor(dim int, eta0 float64) *Regressor {
	return &Regressor{
		Weights: make([]float64, dim),
		Eta0:    eta0,
	}
}

// PartialFit folds one weighted batch into the model. The step size
// decays as eta0/sqrt(1+steps) so late samples perturb a converged
// model less than early ones.
func (r *Regressor) PartialFit(X [][]float64, y, sampleWeight []float64) error {
	if len(X) != len(y) || len(X) != len(sampleWeight) {
		return fmt.Errorf("regressor: batch size mismatch: %d features, %d targets, %d weights",
			len(X), len(y), len(sampleWeight))
	}
	for i, row := range X {
		if len(row) != len(r.Weights) {
			return fmt.Errorf("regressor: row %d has %d features, want %d", i, len(row), len(r.Weights))
		}
		eta := r.Eta0 / math.Sqrt(1+float64(r.Steps))
		g := (r.predict(row) - y[i]) * sampleWeight[i]
		for j, v := range row {
			r.Weights[j] -= eta * g * v
		}
		r.Bias -= eta * g
		r.Steps++
	}
	if !r.finite() {
		return ErrUnstableUpdate
	}
	return nil
}

// Predict returns the point estimate for x.
func (r *Regressor) Predict(x []float64) float64 {
	return r.predict(x)
}

func (r *Regressor) predict(x []float64) float64 {
	sum := r.Bias
	for j, v := range x {
		sum += r.Weights[j] * v
	}
	return sum
}

func (r *Regressor) finite() bool {
	if math.IsNaN(r.Bias) || math.IsInf(r.Bias, 0) {
		return false
	}
	for _, w := range r.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return false
		}
	}
	return true
}

// Clone returns an independent deep copy.
func (r *Regressor) Clone() *Regressor {
	out := &Regressor{
		Weights: make([]float64, len(r.Weights)),
		Bias:    r.Bias,
		Eta0:    r.Eta0,
		Steps:   r.Steps,
	}
	copy(out.Weights, r.Weights)
	return out
}

// Classifier is a one-vs-rest logistic model trained by SGD, used for
// discrete targets such as like/neutral/dislike. Fields are exported
// for gob.
type Classifier struct {
	NumClasses int
	Weights    [][]float64
	Bias       []float64
	Eta0       float64
	Steps      uint64
}

// NewClassifier returns a zero-initialized classifier.
func NewClassifier(numClasses, dim int, eta0 float64) *Classifier {
	w := make([][]float64, numClasses)
	for c := range w {
		w[c] = make([]float64, dim)
	}
	return &Classifier{
		NumClasses: numClasses,
		Weights:    w,
		Bias:       make([]float64, numClasses),
		Eta0:       eta0,
	}
}

// PartialFit folds one weighted batch of class labels into the model.
func (c *Classifier) PartialFit(X [][]float64, labels []int, sampleWeight []float64) error {
	if len(X) != len(labels) || len(X) != len(sampleWeight) {
		return fmt.Errorf("classifier: batch size mismatch: %d features, %d labels, %d weights",
			len(X), len(labels), len(sampleWeight))
	}
	for i, row := range X {
		label := labels[i]
		if label < 0 || label >= c.NumClasses {
			return fmt.Errorf("classifier: label %d out of range [0, %d)", label, c.NumClasses)
		}
		eta := c.Eta0 / math.Sqrt(1+float64(c.Steps))
		for class := 0; class < c.NumClasses; class++ {
			target := 0.0
			if class == label {
				target = 1.0
			}
			g := (sigmoid(c.score(class, row)) - target) * sampleWeight[i]
			for j, v := range row {
				c.Weights[class][j] -= eta * g * v
			}
			c.Bias[class] -= eta * g
		}
		c.Steps++
	}
	if !c.finite() {
		return ErrUnstableUpdate
	}
	return nil
}

// Predict returns the most probable class and its sigmoid activation.
func (c *Classifier) Predict(x []float64) (int, float64) {
	best, bestScore := 0, math.Inf(-1)
	for class := 0; class < c.NumClasses; class++ {
		if s := c.score(class, x); s > bestScore {
			best, bestScore = class, s
		}
	}
	return best, sigmoid(bestScore)
}

func (c *Classifier) score(class int, x []float64) float64 {
	sum := c.Bias[class]
	for j, v := range x {
		sum += c.Weights[class][j] * v
	}
	return sum
}

func (c *Classifier) finite() bool {
	for class := range c.Weights {
		if math.IsNaN(c.Bias[class]) || math.IsInf(c.Bias[class], 0) {
			return false
		}
		for _, w := range c.Weights[class] {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return false
			}
		}
	}
	return true
}

// Clone returns an independent deep copy.
func (c *Classifier) Clone() *Classifier {
	out := &Classifier{
		NumClasses: c.NumClasses,
		Weights:    make([][]float64, len(c.Weights)),
		Bias:       make([]float64, len(c.Bias)),
		Eta0:       c.Eta0,
		Steps:      c.Steps,
	}
	for i, w := range c.Weights {
		out.Weights[i] = make([]float64, len(w))
		copy(out.Weights[i], w)
	}
	copy(out.Bias, c.Bias)
	return out
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
