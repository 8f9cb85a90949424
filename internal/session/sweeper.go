// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package session

import (
	"context"
	"time"

	"github.com/directrix-io/directrix/internal/logging"
)

// Sweeper periodically evicts idle sessions. It implements
// suture.Service and is run under the supervisor tree; lazy eviction on
// access remains the first line of defense, the sweep catches sessions
// nobody touches again.
type Sweeper struct {
	store    *Store
	interval time.Duration
}

// NewSweeper creates a sweeper for the given store.
func NewSweeper(store *Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{store: store, interval: interval}
}

// Serve implements suture.Service. Returns ctx.Err() on shutdown.
func (sw *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if evicted := sw.store.EvictIdle(now); evicted > 0 {
				logging.Info().Int("evicted", evicted).Msg("session sweep completed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (sw *Sweeper) String() string {
	return "session-sweeper"
}
