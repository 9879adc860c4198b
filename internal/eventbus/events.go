// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package eventbus

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaVersion is the current event schema version. Increment on
// breaking changes to FeedbackRecorded.
const SchemaVersion = 1

// TopicFeedbackRecorded carries feedback events from the API layer to
// the event log.
const TopicFeedbackRecorded = "feedback.recorded"

// FeedbackRecorded is published after the engine has consumed a
// feedback event, so downstream consumers (the event log) see only
// accepted events.
type FeedbackRecorded struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	Timestamp     time.Time `json:"timestamp"`

	UserID           string `json:"user_id"`
	RecommendationID string `json:"recommendation_id,omitempty"`
	Category         string `json:"category,omitempty"`

	MoodDelta          *float64 `json:"mood_delta,omitempty"`
	EngagementScore    *float64 `json:"engagement_score,omitempty"`
	SatisfactionRating *float64 `json:"satisfaction_rating,omitempty"`
}

// NewFeedbackRecorded builds an event with a fresh ID and timestamp.
func NewFeedbackRecorded(userID, recommendationID string) FeedbackRecorded {
	return FeedbackRecorded{
		SchemaVersion:    SchemaVersion,
		EventID:          uuid.NewString(),
		Timestamp:        time.Now(),
		UserID:           userID,
		RecommendationID: recommendationID,
	}
}

// Message serializes the event into a Watermill message. The event ID
// doubles as the message UUID.
func (e FeedbackRecorded) Message() (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return message.NewMessage(e.EventID, payload), nil
}

// ParseFeedbackRecorded decodes a message payload.
func ParseFeedbackRecorded(msg *message.Message) (FeedbackRecorded, error) {
	var e FeedbackRecorded
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return FeedbackRecorded{}, err
	}
	return e, nil
}
