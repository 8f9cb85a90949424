// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestTreeConstruction(t *testing.T) {
	t.Run("builds hierarchical tree", func(t *testing.T) {
		tree := NewTree(testLogger(), DefaultTreeConfig())
		if tree.root == nil || tree.data == nil || tree.messaging == nil || tree.api == nil {
			t.Fatal("tree has nil supervisors")
		}
	})

	t.Run("zero config gets defaults", func(t *testing.T) {
		// Construction must not panic on an all-zero config.
		tree := NewTree(testLogger(), TreeConfig{})
		if tree.root == nil {
			t.Fatal("root supervisor is nil")
		}
	})
}

func TestTreeLifecycle(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   100 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	var started atomic.Int32
	svc := func(name string) ServiceFunc {
		return ServiceFunc{Name: name, Run: func(ctx context.Context) error {
			started.Add(1)
			<-ctx.Done()
			return ctx.Err()
		}}
	}
	tree.AddDataService(svc("data"))
	tree.AddMessagingService(svc("messaging"))
	tree.AddAPIService(svc("api"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- tree.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for started.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of 3 services started", started.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop after cancellation")
	}
}

func TestServiceFuncString(t *testing.T) {
	s := ServiceFunc{Name: "sweeper", Run: func(context.Context) error { return nil }}
	if s.String() != "sweeper" {
		t.Errorf("String() = %q, want sweeper", s.String())
	}
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	svc := &HTTPService{
		Addr:            "127.0.0.1:0",
		Handler:         http.NewServeMux(),
		ShutdownTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve returned %v after graceful shutdown", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("http service did not shut down")
	}
}
