// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/upliftlabs/uplift/internal/eventbus"
	"github.com/upliftlabs/uplift/internal/eventlog"
	"github.com/upliftlabs/uplift/internal/recommend"
)

// ServedRecorder records which categories were just recommended so the
// diversity term can penalize repeats. Implemented by the recent
// category tracker in the storage package.
type ServedRecorder interface {
	RecordServed(userID string, categories []string)
}

// EventPublisher publishes accepted feedback events for downstream
// consumers. Implemented by the event bus.
type EventPublisher interface {
	Publish(topic string, msg *message.Message) error
}

// EventStatsSource reports aggregate feedback statistics. Implemented
// by the event log.
type EventStatsSource interface {
	Stats(ctx context.Context) (eventlog.Stats, error)
}

// Handler holds the dependencies behind the HTTP endpoints. The served
// recorder, publisher and stats source are all optional; a nil value
// disables the corresponding behavior.
type Handler struct {
	engine  *recommend.Engine
	served  ServedRecorder
	publish EventPublisher
	events  EventStatsSource
	logger  zerolog.Logger
}

// NewHandler wires the endpoint dependencies together.
func NewHandler(engine *recommend.Engine, served ServedRecorder, publish EventPublisher, events EventStatsSource, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		served:  served,
		publish: publish,
		events:  events,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// Recommendations handles POST /api/v1/recommendations. It scores the
// submitted candidates for the user and returns them ranked.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RecommendationRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	scored := h.engine.ScoreCandidates(req.UserID, req.Context, req.Candidates)
	if req.Limit > 0 && req.Limit < len(scored) {
		scored = scored[:req.Limit]
	}

	if h.served != nil && len(scored) > 0 {
		categories := make([]string, 0, len(scored))
		for _, s := range scored {
			categories = append(categories, s.Category)
		}
		h.served.RecordServed(req.UserID, categories)
	}

	h.logger.Debug().
		Str("user_id", sanitizeLogValue(req.UserID)).
		Int("candidates", len(req.Candidates)).
		Int("returned", len(scored)).
		Msg("Recommendations served")

	respondSuccess(w, http.StatusOK, &RecommendationResponse{
		UserID:          req.UserID,
		Recommendations: scored,
	}, start)
}

// Feedback handles POST /api/v1/feedback. The engine consumes the event
// synchronously; persistence to the event log happens asynchronously via
// the bus.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req FeedbackRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	h.engine.RecordFeedback(req.UserID, req.RecommendationID, req.Feedback)

	resp := FeedbackResponse{Accepted: true}
	if h.publish != nil {
		event := eventbus.NewFeedbackRecorded(req.UserID, req.RecommendationID)
		event.Category = req.Feedback.Category
		event.MoodDelta = req.Feedback.MoodDelta
		event.EngagementScore = req.Feedback.EngagementScore
		event.SatisfactionRating = req.Feedback.SatisfactionRating

		msg, err := event.Message()
		if err == nil {
			err = h.publish.Publish(eventbus.TopicFeedbackRecorded, msg)
		}
		if err != nil {
			// The engine already learned from this event; losing the
			// log entry is acceptable.
			h.logger.Warn().Err(err).
				Str("user_id", sanitizeLogValue(req.UserID)).
				Msg("Failed to publish feedback event")
		} else {
			resp.EventID = event.EventID
		}
	}

	respondSuccess(w, http.StatusAccepted, &resp, start)
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	resp := StatsResponse{Engine: h.engine.Stats()}
	if h.events != nil {
		logStats, err := h.events.Stats(r.Context())
		if err != nil {
			h.logger.Warn().Err(err).Msg("Event log stats query failed")
		} else {
			resp.Events = logStats
		}
	}

	respondSuccess(w, http.StatusOK, &resp, start)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}
