// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/upliftlabs/uplift/internal/metrics"
	"github.com/upliftlabs/uplift/internal/recommend/online"
)

// ModelKeyPrefix namespaces persisted predictor snapshots.
const ModelKeyPrefix = "online_model:"

// GatewayConfig tunes the circuit breaker and snapshot lifetime.
type GatewayConfig struct {
	// MaxFailures is the consecutive failure count that opens the
	// breaker.
	MaxFailures uint32

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// ModelTTL is the lifetime for persisted model snapshots.
	ModelTTL time.Duration
}

// Gateway wraps a Blob backend with a circuit breaker and the typed
// snapshot codec. Every caller treats it as best effort: when the
// backend fails or the breaker is open, reads report missing state and
// writes are dropped, so in-memory state keeps serving.
type Gateway struct {
	backend Blob
	cb      *gobreaker.CircuitBreaker[[]byte]
	cfg     GatewayConfig
	logger  zerolog.Logger
}

// NewGateway builds a gateway over the backend.
func NewGateway(backend Blob, cfg GatewayConfig, logger zerolog.Logger) *Gateway {
	glog := logger.With().Str("component", "persistence").Logger()

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "persistence",
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// A missing key is a normal outcome, not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			glog.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Persistence circuit breaker state change")
		},
	})

	return &Gateway{backend: backend, cb: cb, cfg: cfg, logger: glog}
}

// Get returns the blob stored under key, or ErrNotFound. An open
// breaker reports ErrNotFound so callers fall back to defaults.
func (g *Gateway) Get(key string) ([]byte, error) {
	value, err := g.cb.Execute(func() ([]byte, error) {
		return g.backend.Get(key)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		metrics.PersistenceFailures.WithLabelValues("get").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// Set stores the blob under key with the given lifetime.
func (g *Gateway) Set(key string, value []byte, ttl time.Duration) error {
	_, err := g.cb.Execute(func() ([]byte, error) {
		return nil, g.backend.Set(key, value, ttl)
	})
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("set").Inc()
		return err
	}
	return nil
}

// SaveValue serializes v through the envelope codec and stores it.
func (g *Gateway) SaveValue(key string, v interface{}, ttl time.Duration) error {
	blob, err := encodeValue(v)
	if err != nil {
		return err
	}
	return g.Set(key, blob, ttl)
}

// LoadValue fetches and decodes the value under key into target.
// Returns ErrNotFound when no value exists.
func (g *Gateway) LoadValue(key string, target interface{}) error {
	blob, err := g.Get(key)
	if err != nil {
		return err
	}
	return decodeValue(blob, target)
}

// Close closes the underlying backend.
func (g *Gateway) Close() error {
	return g.backend.Close()
}

// ModelStore adapts the gateway to the predictor snapshot interface.
// Snapshots live under ModelKeyPrefix with the configured TTL.
type ModelStore struct {
	gw *Gateway
}

// NewModelStore returns the snapshot view of the gateway.
func NewModelStore(gw *Gateway) *ModelStore {
	return &ModelStore{gw: gw}
}

// Save persists one predictor snapshot.
func (m *ModelStore) Save(name string, snap *online.Snapshot) error {
	return m.gw.SaveValue(ModelKeyPrefix+name, snap, m.gw.cfg.ModelTTL)
}

// Load restores one predictor snapshot. A missing snapshot returns
// (nil, nil); that is the normal cold start.
func (m *ModelStore) Load(name string) (*online.Snapshot, error) {
	var snap online.Snapshot
	err := m.gw.LoadValue(ModelKeyPrefix+name, &snap)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Describe returns a short backend description for startup logging.
func Describe(b Blob) string {
	switch b.(type) {
	case *BadgerStore:
		return "badger"
	case *MemoryStore:
		return "memory"
	default:
		return fmt.Sprintf("%T", b)
	}
}
