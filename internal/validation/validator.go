// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

// Package validation provides struct validation using go-playground/validator v10.
// It exposes a thread-safe singleton validator instance so struct metadata is
// cached once per type across all request handlers.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes a single failed validation constraint.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// RequestError collects the field errors from one validation pass.
type RequestError struct {
	fields []FieldError
}

// Fields returns the individual field errors.
func (e *RequestError) Fields() []FieldError {
	return e.fields
}

// Error implements the error interface with a combined message.
func (e *RequestError) Error() string {
	if len(e.fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.fields))
	for i, f := range e.fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Details returns the field errors as a map suitable for JSON error
// response bodies.
func (e *RequestError) Details() map[string]interface{} {
	if len(e.fields) == 1 {
		f := e.fields[0]
		return map[string]interface{}{
			"field": f.Field,
			"tag":   f.Tag,
		}
	}
	fields := make([]map[string]interface{}, len(e.fields))
	for i, f := range e.fields {
		fields[i] = map[string]interface{}{
			"field":   f.Field,
			"tag":     f.Tag,
			"message": f.Message,
		}
	}
	return map[string]interface{}{"fields": fields}
}

// GetValidator returns the singleton validator instance. Thread-safe.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil on success, or a *RequestError describing every failed field.
func ValidateStruct(s interface{}) *RequestError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestError{fields: []FieldError{{
			Field:   "unknown",
			Tag:     "unknown",
			Message: err.Error(),
		}}}
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe),
		}
	}
	return &RequestError{fields: fields}
}

func translate(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
