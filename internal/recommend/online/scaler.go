// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package online

import (
	"fmt"
	"math"
)

// minStd floors the per-feature standard deviation so constant features
// do not divide by zero.
const minStd = 1e-8

// Scaler standardizes features using running mean and variance,
// updatable one batch at a time. New batches are merged with Chan's
// parallel variance formula, so the first batch and every later batch
// go through the same code path. Fields are exported for gob.
type Scaler struct {
	Count float64
	Mean  []float64
	M2    []float64
}

// NewScaler returns an unfitted scaler for dim features.
func NewScaler(dim int) *Scaler {
	return &Scaler{
		Mean: make([]float64, dim),
		M2:   make([]float64, dim),
	}
}

// Fitted reports whether any batch has been folded in.
func (s *Scaler) Fitted() bool {
	return s.Count > 0
}

// Update merges the batch's statistics into the running state.
func (s *Scaler) Update(X [][]float64) error {
	if len(X) == 0 {
		return nil
	}
	dim := len(s.Mean)
	for i, row := range X {
		if len(row) != dim {
			return fmt.Errorf("scaler: row %d has %d features, want %d", i, len(row), dim)
		}
	}

	n := float64(len(X))
	batchMean := make([]float64, dim)
	batchM2 := make([]float64, dim)
	for _, row := range X {
		for j, v := range row {
			batchMean[j] += v
		}
	}
	for j := range batchMean {
		batchMean[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			d := v - batchMean[j]
			batchM2[j] += d * d
		}
	}

	if s.Count == 0 {
		s.Count = n
		copy(s.Mean, batchMean)
		copy(s.M2, batchM2)
		return nil
	}

	total := s.Count + n
	for j := range s.Mean {
		delta := batchMean[j] - s.Mean[j]
		s.M2[j] += batchM2[j] + delta*delta*s.Count*n/total
		s.Mean[j] += delta * n / total
	}
	s.Count = total
	return nil
}

// Transform returns the standardized copy of x. An unfitted scaler
// passes values through unchanged.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	if !s.Fitted() {
		copy(out, x)
		return out
	}
	for j, v := range x {
		std := math.Sqrt(s.M2[j] / s.Count)
		if std < minStd {
			std = minStd
		}
		out[j] = (v - s.Mean[j]) / std
	}
	return out
}

// Clone returns an independent deep copy.
func (s *Scaler) Clone() *Scaler {
	out := &Scaler{
		Count: s.Count,
		Mean:  make([]float64, len(s.Mean)),
		M2:    make([]float64, len(s.M2)),
	}
	copy(out.Mean, s.Mean)
	copy(out.M2, s.M2)
	return out
}
