// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotFound reports that no blob exists under the requested key.
var ErrNotFound = errors.New("storage: key not found")

// Blob is a key-value backend with per-key TTL. Implementations must be
// safe for concurrent use.
type Blob interface {
	// Get returns the blob stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores the blob under key. A zero ttl means no expiry.
	Set(key string, value []byte, ttl time.Duration) error

	// Close releases backend resources.
	Close() error
}

// envelope is the on-disk framing for structured values: gob payload,
// gzip compressed, with a SHA-256 checksum over the uncompressed bytes.
type envelope struct {
	Checksum       string
	CompressedData []byte
}

// encodeValue serializes v into a checksummed, compressed envelope.
func encodeValue(v interface{}) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(v); err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}

	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress value: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	var out bytes.Buffer
	env := envelope{
		Checksum:       hex.EncodeToString(hash[:]),
		CompressedData: compressed.Bytes(),
	}
	if err := gob.NewEncoder(&out).Encode(env); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out.Bytes(), nil
}

// decodeValue unwraps an envelope into target, verifying the checksum.
func decodeValue(data []byte, target interface{}) error {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(env.CompressedData))
	if err != nil {
		return fmt.Errorf("decompress value: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return fmt.Errorf("read decompressed value: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != env.Checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", env.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}
