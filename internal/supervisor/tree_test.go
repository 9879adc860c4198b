// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

package supervisor

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

type probeService struct {
	ran atomic.Bool
}

func (p *probeService) Serve(ctx context.Context) error {
	p.ran.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func (p *probeService) String() string { return "probe" }

func TestTreeRunsServicesInAllLayers(t *testing.T) {
	tree := NewTree(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})), DefaultTreeConfig())

	data := &probeService{}
	messaging := &probeService{}
	api := &probeService{}
	tree.AddDataService(data)
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for !data.ran.Load() || !messaging.ran.Load() || !api.ran.Load() {
		select {
		case <-deadline:
			t.Fatal("services did not all start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}
}

func TestTreeConfigZeroValuesGetDefaults(t *testing.T) {
	tree := NewTree(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})), TreeConfig{})

	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %v, want 5.0", tree.config.FailureThreshold)
	}
	if tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", tree.config.ShutdownTimeout)
	}
}
