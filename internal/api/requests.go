// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package api

import (
	"github.com/upliftlabs/uplift/internal/recommend"
)

// RecommendationRequest asks the engine to rank a set of candidate
// activities for one user.
type RecommendationRequest struct {
	UserID     string                `json:"user_id" validate:"required,max=128"`
	Context    recommend.Context     `json:"context"`
	Candidates []recommend.Candidate `json:"candidates" validate:"required,min=1,max=100,dive"`

	// Limit truncates the ranked results. 0 returns everything.
	Limit int `json:"limit" validate:"min=0,max=100"`
}

// RecommendationResponse is the ranked result list.
type RecommendationResponse struct {
	UserID          string                      `json:"user_id"`
	Recommendations []recommend.ScoredCandidate `json:"recommendations"`
}

// FeedbackRequest reports a user's response to a completed activity.
type FeedbackRequest struct {
	UserID           string             `json:"user_id" validate:"required,max=128"`
	RecommendationID string             `json:"recommendation_id" validate:"max=128"`
	Feedback         recommend.Feedback `json:"feedback"`
}

// FeedbackResponse acknowledges an accepted feedback event.
type FeedbackResponse struct {
	EventID  string `json:"event_id,omitempty"`
	Accepted bool   `json:"accepted"`
}

// StatsResponse combines live engine counters with event log aggregates.
type StatsResponse struct {
	Engine recommend.EngineStats `json:"engine"`
	Events interface{}           `json:"events,omitempty"`
}
