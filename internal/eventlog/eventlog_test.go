// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package eventlog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func f64(v float64) *float64 { return &v }

func TestInsertAndStats(t *testing.T) {
	l, err := Open("", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer func() { _ = l.Close() }()

	ctx := context.Background()
	entries := []Entry{
		{ID: uuid.NewString(), UserID: "u1", RecommendationID: "r1", Category: "exercise", SatisfactionRating: f64(5)},
		{ID: uuid.NewString(), UserID: "u1", Category: "exercise", SatisfactionRating: f64(3)},
		{ID: uuid.NewString(), UserID: "u2", Category: "mindfulness", MoodDelta: f64(1.5), EngagementScore: f64(0.8)},
	}
	for _, e := range entries {
		if err := l.Insert(ctx, e); err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", stats.TotalEvents)
	}
	if stats.Users != 2 {
		t.Errorf("Users = %d, want 2", stats.Users)
	}
	if stats.AvgSatisfaction == nil || *stats.AvgSatisfaction != 4 {
		t.Errorf("AvgSatisfaction = %v, want 4", stats.AvgSatisfaction)
	}
	if stats.ByCategory["exercise"] != 2 || stats.ByCategory["mindfulness"] != 1 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
}

func TestStatsOnEmptyLog(t *testing.T) {
	l, err := Open("", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer func() { _ = l.Close() }()

	stats, err := l.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalEvents != 0 || stats.AvgSatisfaction != nil {
		t.Errorf("empty log stats = %+v", stats)
	}
}
