// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

// Package eventbus provides the in-process event pipeline. Feedback
// events are published to a Go-channel pub/sub and routed to consumers
// through a Watermill router with panic recovery and retry middleware.
// The bus decouples the request path from slower consumers such as the
// relational event log.
package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Config tunes the bus.
type Config struct {
	// BufferSize is the per-subscriber channel buffer.
	BufferSize int

	// RetryCount is the handler retry count before an event is dropped.
	RetryCount int

	// RetryInterval is the initial backoff between handler retries.
	RetryInterval time.Duration

	// CloseTimeout bounds router shutdown.
	CloseTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:    256,
		RetryCount:    3,
		RetryInterval: 100 * time.Millisecond,
		CloseTimeout:  10 * time.Second,
	}
}

// Bus wires an in-process publisher to a middleware-wrapped router.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter
}

// New builds the bus. Handlers are registered with Subscribe before
// Run is called.
func New(cfg Config, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.BufferSize),
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create event router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      cfg.RetryCount,
		InitialInterval: cfg.RetryInterval,
		Multiplier:      2.0,
		Logger:          logger,
	}.Middleware)

	return &Bus{pubsub: pubsub, router: router, logger: logger}, nil
}

// Publish sends one message to the topic.
func (b *Bus) Publish(topic string, msg *message.Message) error {
	return b.pubsub.Publish(topic, msg)
}

// Subscribe registers a no-publish handler for the topic. Must be
// called before Run.
func (b *Bus) Subscribe(name, topic string, handler message.NoPublishHandlerFunc) {
	b.router.AddNoPublisherHandler(name, topic, b.pubsub, handler)
}

// Run blocks processing events until the context is canceled.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running returns a channel closed once the router is running, used by
// tests and startup ordering.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close shuts down the router and the pub/sub.
func (b *Bus) Close() error {
	routerErr := b.router.Close()
	pubsubErr := b.pubsub.Close()
	if routerErr != nil {
		return routerErr
	}
	return pubsubErr
}
