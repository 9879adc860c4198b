// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/upliftlabs/uplift/internal/eventbus"
	"github.com/upliftlabs/uplift/internal/recommend"
	"github.com/upliftlabs/uplift/internal/recommend/storage"
)

type fakeRecorder struct {
	userID     string
	categories []string
}

func (f *fakeRecorder) RecordServed(userID string, categories []string) {
	f.userID = userID
	f.categories = categories
}

type fakePublisher struct {
	topic string
	msgs  []*message.Message
	err   error
}

func (f *fakePublisher) Publish(topic string, msg *message.Message) error {
	if f.err != nil {
		return f.err
	}
	f.topic = topic
	f.msgs = append(f.msgs, msg)
	return nil
}

// envelope mirrors APIResponse with raw data for per-test decoding.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *APIError       `json:"error"`
}

func newTestServer(t *testing.T, served ServedRecorder, publish EventPublisher) *httptest.Server {
	t.Helper()

	engine, err := recommend.NewEngine(recommend.DefaultConfig(), storage.NewMemoryStore(), nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	handler := NewHandler(engine, served, publish, nil, zerolog.Nop())
	srv := httptest.NewServer(NewRouter(handler, &MiddlewareConfig{}).Setup())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, env
}

func f64(v float64) *float64 { return &v }

func TestRecommendationsEndpoint(t *testing.T) {
	recorder := &fakeRecorder{}
	srv := newTestServer(t, recorder, nil)

	req := RecommendationRequest{
		UserID: "u1",
		Context: recommend.Context{
			WeatherScore: f64(4.5),
			EnergyLevel:  f64(4),
		},
		Candidates: []recommend.Candidate{
			{ID: "a", Category: "exercise", Difficulty: 0.3, EstimatedDuration: 20},
			{ID: "b", Category: "mindfulness", Difficulty: 0.1, EstimatedDuration: 10},
			{ID: "c", Category: "social", Difficulty: 0.5, EstimatedDuration: 45},
		},
	}

	resp, env := postJSON(t, srv.URL+"/api/v1/recommendations", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if env.Status != "success" {
		t.Fatalf("envelope status = %q, want success", env.Status)
	}
	if resp.Header.Get("ETag") == "" {
		t.Error("missing ETag header")
	}

	var data RecommendationResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Recommendations) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(data.Recommendations))
	}
	for i := 1; i < len(data.Recommendations); i++ {
		if data.Recommendations[i].FinalScore > data.Recommendations[i-1].FinalScore {
			t.Errorf("results not sorted: [%d]=%.4f > [%d]=%.4f",
				i, data.Recommendations[i].FinalScore, i-1, data.Recommendations[i-1].FinalScore)
		}
	}

	if recorder.userID != "u1" {
		t.Errorf("served recorder userID = %q, want u1", recorder.userID)
	}
	if len(recorder.categories) != 3 {
		t.Errorf("served recorder got %d categories, want 3", len(recorder.categories))
	}
}

func TestRecommendationsLimit(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	req := RecommendationRequest{
		UserID: "u1",
		Candidates: []recommend.Candidate{
			{Category: "exercise"},
			{Category: "mindfulness"},
			{Category: "social"},
		},
		Limit: 1,
	}

	_, env := postJSON(t, srv.URL+"/api/v1/recommendations", req)
	var data RecommendationResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(data.Recommendations))
	}
}

func TestRecommendationsValidation(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	tests := []struct {
		name string
		req  RecommendationRequest
	}{
		{
			name: "missing user_id",
			req: RecommendationRequest{
				Candidates: []recommend.Candidate{{Category: "exercise"}},
			},
		},
		{
			name: "empty candidates",
			req:  RecommendationRequest{UserID: "u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := postJSON(t, srv.URL+"/api/v1/recommendations", tt.req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
			if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
				t.Fatalf("error = %+v, want VALIDATION_ERROR", env.Error)
			}
		})
	}
}

func TestRecommendationsRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := http.Post(srv.URL+"/api/v1/recommendations", "application/json",
		bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestFeedbackEndpointPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	srv := newTestServer(t, nil, pub)

	req := FeedbackRequest{
		UserID:           "u1",
		RecommendationID: "rec-1",
		Feedback: recommend.Feedback{
			Category:           "exercise",
			MoodAfter:          f64(4.5),
			EngagementScore:    f64(0.8),
			SatisfactionRating: f64(5),
		},
	}

	resp, env := postJSON(t, srv.URL+"/api/v1/feedback", req)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	var data FeedbackResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !data.Accepted {
		t.Error("feedback not accepted")
	}
	if data.EventID == "" {
		t.Error("missing event ID")
	}

	if pub.topic != eventbus.TopicFeedbackRecorded {
		t.Fatalf("published to %q, want %q", pub.topic, eventbus.TopicFeedbackRecorded)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	event, err := eventbus.ParseFeedbackRecorded(pub.msgs[0])
	if err != nil {
		t.Fatalf("ParseFeedbackRecorded() error: %v", err)
	}
	if event.UserID != "u1" || event.Category != "exercise" {
		t.Errorf("event = %+v, want user u1 category exercise", event)
	}
	if event.SatisfactionRating == nil || *event.SatisfactionRating != 5 {
		t.Errorf("event satisfaction = %v, want 5", event.SatisfactionRating)
	}
}

func TestFeedbackAcceptedWhenPublishFails(t *testing.T) {
	pub := &fakePublisher{err: http.ErrHandlerTimeout}
	srv := newTestServer(t, nil, pub)

	req := FeedbackRequest{
		UserID:   "u1",
		Feedback: recommend.Feedback{SatisfactionRating: f64(4)},
	}

	resp, env := postJSON(t, srv.URL+"/api/v1/feedback", req)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	var data FeedbackResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !data.Accepted {
		t.Error("feedback should be accepted even when publish fails")
	}
	if data.EventID != "" {
		t.Error("event ID should be empty when publish fails")
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	postJSON(t, srv.URL+"/api/v1/recommendations", RecommendationRequest{
		UserID:     "u1",
		Candidates: []recommend.Candidate{{Category: "exercise"}},
	})

	resp, err := http.Get(srv.URL + "/api/v1/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var data StatsResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Engine.Requests != 1 {
		t.Errorf("engine requests = %d, want 1", data.Engine.Requests)
	}
	if len(data.Engine.Predictors) != 3 {
		t.Errorf("got %d predictors, want 3", len(data.Engine.Predictors))
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	got := sanitizeLogValue("user\nname\x00x")
	want := "user\\x0aname\\x00x"
	if got != want {
		t.Errorf("sanitizeLogValue() = %q, want %q", got, want)
	}
}
