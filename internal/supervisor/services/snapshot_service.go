// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package services

import (
	"context"
	"time"
)

// Flusher drains buffered training samples and persists model state.
// Implemented by the recommendation engine.
type Flusher interface {
	Flush()
}

// SnapshotService periodically flushes the engine so partially filled
// training buffers are learned and models reach durable storage even
// between feedback bursts. A final flush runs on shutdown.
type SnapshotService struct {
	flusher  Flusher
	interval time.Duration
	name     string
}

// NewSnapshotService creates the periodic snapshot loop.
func NewSnapshotService(flusher Flusher, interval time.Duration) *SnapshotService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SnapshotService{
		flusher:  flusher,
		interval: interval,
		name:     "model-snapshots",
	}
}

// Serve implements suture.Service.
func (s *SnapshotService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flusher.Flush()
		case <-ctx.Done():
			s.flusher.Flush()
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *SnapshotService) String() string {
	return s.name
}
