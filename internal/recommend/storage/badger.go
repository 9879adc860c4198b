// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// BadgerStore is the production Blob backend, a BadgerDB keyspace with
// native per-key TTL support.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerStore opens (or creates) a BadgerDB directory.
func NewBadgerStore(path string, logger zerolog.Logger) (*BadgerStore, error) {
	blog := logger.With().Str("component", "badger").Logger()
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogAdapter{blog})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", path, err)
	}
	return &BadgerStore{db: db, logger: blog}, nil
}

// Get returns the blob stored under key, or ErrNotFound.
func (s *BadgerStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	return value, nil
}

// Set stores the blob under key. A zero ttl means no expiry.
func (s *BadgerStore) Set(key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// RunGC runs value-log garbage collection at the given interval until
// the context is canceled. Badger returns ErrNoRewrite when there is
// nothing to reclaim; that is the common case and not logged.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn().Err(err).Msg("Badger value log GC failed")
			}
		}
	}
}

// badgerLogAdapter routes Badger's internal logging through zerolog.
type badgerLogAdapter struct {
	logger zerolog.Logger
}

func (a badgerLogAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Error().Msgf(format, args...)
}

func (a badgerLogAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warn().Msgf(format, args...)
}

func (a badgerLogAdapter) Infof(format string, args ...interface{}) {
	a.logger.Debug().Msgf(format, args...)
}

func (a badgerLogAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug().Msgf(format, args...)
}
