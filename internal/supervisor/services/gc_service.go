// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package services

import (
	"context"
	"time"
)

// GCRunner matches the Badger store's value log GC loop.
type GCRunner interface {
	RunGC(ctx context.Context, interval time.Duration)
}

// GCService runs the storage backend's garbage collection loop under
// supervision.
type GCService struct {
	runner   GCRunner
	interval time.Duration
	name     string
}

// NewGCService creates the GC loop service.
func NewGCService(runner GCRunner, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{
		runner:   runner,
		interval: interval,
		name:     "storage-gc",
	}
}

// Serve implements suture.Service. RunGC blocks until the context is
// canceled.
func (g *GCService) Serve(ctx context.Context) error {
	g.runner.RunGC(ctx, g.interval)
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (g *GCService) String() string {
	return g.name
}
