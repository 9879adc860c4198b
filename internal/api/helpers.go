// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/upliftlabs/uplift/internal/logging"
	"github.com/upliftlabs/uplift/internal/validation"
)

// sanitizeLogValue removes control characters from strings to prevent
// log injection. Newlines, carriage returns and other control characters
// are replaced with a hex escape so forged log entries stay on one line.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Vary", "Accept-Encoding")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", generateETag(data))

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// generateETag creates a simple ETag from data using FNV-1a hash.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// respondSuccess wraps data in the standard envelope.
func respondSuccess(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &APIResponse{
		Status: "success",
		Data:   data,
		Metadata: Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}

	respondJSON(w, status, &APIResponse{
		Status: "error",
		Data:   nil,
		Metadata: Metadata{
			Timestamp: time.Now(),
		},
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

// validateRequest validates a struct using go-playground/validator.
// Returns nil if validation passes.
func validateRequest(v interface{}) *APIError {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return nil
	}
	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: verr.Error(),
		Details: verr.Details(),
	}
}

// decodeJSONBody decodes a request body into dst, rejecting unknown
// fields and oversized payloads.
func decodeJSONBody(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// maxBodyBytes bounds request bodies; candidate lists are small.
const maxBodyBytes = 1 << 20
