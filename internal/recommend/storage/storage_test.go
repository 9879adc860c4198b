// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/upliftlabs/uplift/internal/recommend/online"
)

func testGatewayConfig() GatewayConfig {
	return GatewayConfig{
		MaxFailures: 3,
		Timeout:     time.Minute,
		ModelTTL:    time.Hour,
	}
}

type flakyBlob struct {
	mu      sync.Mutex
	inner   *MemoryStore
	failing bool
	calls   int
}

func (f *flakyBlob) Get(key string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return nil, errors.New("backend down")
	}
	return f.inner.Get(key)
}

func (f *flakyBlob) Set(key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	f.calls++
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return errors.New("backend down")
	}
	return f.inner.Set(key, value, ttl)
}

func (f *flakyBlob) Close() error { return f.inner.Close() }

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, err := s.Get("k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}

	// The returned slice must not alias stored state.
	got[0] = 'x'
	again, _ := s.Get("k")
	if string(again) != "v" {
		t.Error("mutating a returned value leaked into the store")
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Set("k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired Get() error = %v, want ErrNotFound", err)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	type payload struct {
		Name  string
		Score float64
	}
	in := payload{Name: "mood", Score: 4.2}

	blob, err := encodeValue(in)
	if err != nil {
		t.Fatalf("encodeValue() error: %v", err)
	}
	var out payload
	if err := decodeValue(blob, &out); err != nil {
		t.Fatalf("decodeValue() error: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestEnvelopeDetectsCorruption(t *testing.T) {
	blob, err := encodeValue("payload")
	if err != nil {
		t.Fatalf("encodeValue() error: %v", err)
	}
	// Flip a byte near the end, inside the compressed data.
	blob[len(blob)-3] ^= 0xff

	var out string
	if err := decodeValue(blob, &out); err == nil {
		t.Error("expected error decoding corrupted envelope")
	}
}

func TestGatewayBreakerOpensAndDegrades(t *testing.T) {
	backend := &flakyBlob{inner: NewMemoryStore(), failing: true}
	gw := NewGateway(backend, testGatewayConfig(), zerolog.Nop())

	// Drive the breaker open with consecutive failures.
	for range [3]struct{}{} {
		_ = gw.Set("k", []byte("v"), 0)
	}

	callsWhenOpen := backend.calls
	// An open breaker reports missing state without touching the
	// backend.
	if _, err := gw.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("open-breaker Get() error = %v, want ErrNotFound", err)
	}
	if backend.calls != callsWhenOpen {
		t.Error("open breaker still reached the backend")
	}
}

func TestGatewayMissingKeyDoesNotTripBreaker(t *testing.T) {
	backend := &flakyBlob{inner: NewMemoryStore()}
	gw := NewGateway(backend, testGatewayConfig(), zerolog.Nop())

	for range [10]struct{}{} {
		if _, err := gw.Get("missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
		}
	}
	// Breaker stayed closed: a real write still goes through.
	if err := gw.Set("k", []byte("v"), 0); err != nil {
		t.Errorf("Set() after misses error = %v, want nil", err)
	}
}

func TestModelStoreRoundTrip(t *testing.T) {
	gw := NewGateway(NewMemoryStore(), testGatewayConfig(), zerolog.Nop())
	ms := NewModelStore(gw)

	snap, err := ms.Load("mood")
	if err != nil {
		t.Fatalf("Load(absent) error: %v", err)
	}
	if snap != nil {
		t.Fatal("Load(absent) should return nil snapshot")
	}

	in := &online.Snapshot{
		Version:     "1",
		Kind:        online.KindRegression,
		Regressor:   online.NewRegressor(3, 0.01),
		Scaler:      online.NewScaler(3),
		Initialized: true,
		SampleCount: 42,
		LastUpdate:  time.Now(),
	}
	if err := ms.Save("mood", in); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	out, err := ms.Load("mood")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if out == nil || out.SampleCount != 42 || !out.Initialized {
		t.Errorf("Load() = %+v, want restored snapshot", out)
	}
	if len(out.Regressor.Weights) != 3 {
		t.Errorf("restored regressor has %d weights, want 3", len(out.Regressor.Weights))
	}
}

func TestTrackerWindowAndDedup(t *testing.T) {
	gw := NewGateway(NewMemoryStore(), testGatewayConfig(), zerolog.Nop())
	tr := NewRecentTracker(gw, TrackerConfig{Window: 3, TTL: time.Hour}, zerolog.Nop())

	tr.RecordServed("u1", []string{"a", "a", "b"})
	tr.RecordServed("u1", []string{"c", "d"})

	got, err := tr.RecentCategories("u1")
	if err != nil {
		t.Fatalf("RecentCategories() error: %v", err)
	}
	want := []string{"c", "d", "a"}
	if len(got) != len(want) {
		t.Fatalf("RecentCategories() = %v, want %v", got, want)
	}
	for idx := range want {
		if got[idx] != want[idx] {
			t.Errorf("RecentCategories()[%d] = %s, want %s", idx, got[idx], want[idx])
		}
	}
}

func TestTrackerSurvivesRestart(t *testing.T) {
	mem := NewMemoryStore()
	gw := NewGateway(mem, testGatewayConfig(), zerolog.Nop())

	first := NewRecentTracker(gw, DefaultTrackerConfig(), zerolog.Nop())
	first.RecordServed("u1", []string{"exercise"})

	second := NewRecentTracker(gw, DefaultTrackerConfig(), zerolog.Nop())
	got, err := second.RecentCategories("u1")
	if err != nil {
		t.Fatalf("RecentCategories() error: %v", err)
	}
	if len(got) != 1 || got[0] != "exercise" {
		t.Errorf("RecentCategories() = %v, want [exercise]", got)
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBadgerStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBadgerStore() error: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.Set("k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, err := s.Get("k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}
}
