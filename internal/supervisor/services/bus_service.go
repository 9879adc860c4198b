// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package services

import (
	"context"
	"fmt"
)

// MessageRouter matches the event bus's blocking Run method.
type MessageRouter interface {
	Run(ctx context.Context) error
}

// BusService runs the Watermill router under supervision. The router
// blocks in Run until the context is canceled; a router crash is
// surfaced to suture for restart.
type BusService struct {
	router MessageRouter
	name   string
}

// NewBusService wraps an event bus as a supervised service.
func NewBusService(router MessageRouter) *BusService {
	return &BusService{router: router, name: "event-bus"}
}

// Serve implements suture.Service.
func (b *BusService) Serve(ctx context.Context) error {
	if err := b.router.Run(ctx); err != nil {
		return fmt.Errorf("event bus failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (b *BusService) String() string {
	return b.name
}
