// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package feature

import (
	"errors"
	"time"

	"github.com/directrix-io/directrix/internal/models"
)

// ErrInsufficientHistory is returned only for a session with zero
// events. Sessions are created on their first event, so observing this
// in production signals a logic bug upstream, not a user error.
var ErrInsufficientHistory = errors.New("feature: session has no event history")

// Vector is a derived, ephemeral feature vector. Never persisted;
// consumed once by the prediction ensemble.
type Vector struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`

	// Values are ordered per the extractor's schema.
	Values []float64 `json:"values"`
}

// Extractor derives vectors from session snapshots. Stateless apart
// from its immutable schema and variant ordering.
type Extractor struct {
	schema       Schema
	variantIndex map[string]float64
}

// NewExtractor builds an extractor. variantNames fixes the categorical
// encoding of the variant feature; order must match the configured
// variant set so encodings are stable across restarts.
func NewExtractor(variantNames []string) *Extractor {
	idx := make(map[string]float64, len(variantNames))
	for i, name := range variantNames {
		idx[name] = float64(i + 1) // 0 is reserved for unknown
	}
	return &Extractor{
		schema:       NewSchema(),
		variantIndex: idx,
	}
}

// Schema returns the extractor's feature schema.
func (e *Extractor) Schema() Schema {
	return e.schema
}

// Extract derives the feature vector for a session snapshot at the
// given instant. Sparse history degrades gracefully: ratios and
// frequencies zero-fill rather than erroring. The only failure is a
// session with zero events.
func (e *Extractor) Extract(session *models.Session, now time.Time) (Vector, error) {
	if session.Counters.TotalEvents == 0 {
		return Vector{}, ErrInsufficientHistory
	}

	values := make([]float64, e.schema.Len())
	c := &session.Counters
	total := float64(c.TotalEvents)

	values[0] = session.Age(now).Seconds()
	values[1] = c.WatchTimeSeconds
	values[2] = eventRatePerMinute(session.Window)
	values[3] = float64(c.PauseCount)
	values[4] = float64(c.SeekCount)
	values[5] = float64(c.RewindCount)
	values[6] = float64(c.PauseCount) / total
	values[7] = float64(c.SeekCount) / total
	values[8] = float64(session.EngagementTrend())
	values[9] = session.EngagementScore

	// Per-type frequency over the rolling window, as fractions of the
	// window size. Zero-fills for types absent from the window.
	if n := len(session.Window); n > 0 {
		counts := make(map[models.EventType]int, len(frequencyEventTypes))
		for i := range session.Window {
			counts[session.Window[i].Type]++
		}
		for i, t := range frequencyEventTypes {
			values[len(scalarNames)+i] = float64(counts[t]) / float64(n)
		}
	}

	values[e.schema.Len()-1] = e.variantIndex[session.Variant]

	return Vector{
		SessionID: session.ID,
		Timestamp: now,
		Values:    values,
	}, nil
}

// eventRatePerMinute estimates interaction density from the window's
// timestamp span. A single-event or zero-span window yields the count
// itself, avoiding a divide-by-zero spike.
func eventRatePerMinute(window []models.InteractionEvent) float64 {
	n := len(window)
	if n == 0 {
		return 0
	}
	span := window[n-1].Timestamp.Sub(window[0].Timestamp)
	if span <= 0 {
		return float64(n)
	}
	return float64(n) / span.Minutes()
}
