// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package models defines the data structures shared across the Directrix
// decision engine: interaction events, session snapshots, predictions,
// adaptation decisions, and experiment variants.
package models

import "time"

// EventType classifies a viewer interaction.
type EventType string

const (
	EventPlay          EventType = "play"
	EventPause         EventType = "pause"
	EventSeek          EventType = "seek"
	EventRewind        EventType = "rewind"
	EventFastForward   EventType = "fast_forward"
	EventSceneComplete EventType = "scene_complete"
	EventAbandon       EventType = "abandon"
	EventRating        EventType = "rating"
	EventVolumeUp      EventType = "volume_up"
	EventFullscreen    EventType = "fullscreen"
)

// knownEventTypes is the closed set of event types the ingestor accepts.
var knownEventTypes = map[EventType]struct{}{
	EventPlay:          {},
	EventPause:         {},
	EventSeek:          {},
	EventRewind:        {},
	EventFastForward:   {},
	EventSceneComplete: {},
	EventAbandon:       {},
	EventRating:        {},
	EventVolumeUp:      {},
	EventFullscreen:    {},
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// KnownEventTypes returns the accepted event types. The slice is a copy.
func KnownEventTypes() []EventType {
	types := make([]EventType, 0, len(knownEventTypes))
	for t := range knownEventTypes {
		types = append(types, t)
	}
	return types
}

// InteractionEvent is a single viewer interaction. Events are immutable
// once ingested; the ingestor validates them and the session store owns
// their ordering per session.
type InteractionEvent struct {
	// SessionID identifies the viewing session the event belongs to.
	SessionID string `json:"session_id"`

	// Type is the interaction kind (play, pause, seek, ...).
	Type EventType `json:"event_type"`

	// Timestamp is the client-reported event time.
	Timestamp time.Time `json:"timestamp"`

	// SequenceNumber orders events within a session. Expected to be
	// monotonically non-decreasing; regressions are accepted but flagged
	// on the session.
	SequenceNumber uint64 `json:"sequence_number"`

	// Payload carries opaque event attributes (video position, rating
	// value, scene identifier). Never interpreted by the pipeline beyond
	// well-known numeric keys used for counters.
	Payload map[string]interface{} `json:"payload,omitempty"`

	// OutOfOrder is set by the session store when SequenceNumber regressed
	// relative to the previously appended event.
	OutOfOrder bool `json:"out_of_order,omitempty"`
}

// PayloadFloat extracts a numeric payload value. JSON numbers decode as
// float64; integer values stored directly are converted.
func (e *InteractionEvent) PayloadFloat(key string) (float64, bool) {
	v, ok := e.Payload[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
