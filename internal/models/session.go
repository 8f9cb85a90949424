// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package models

import "time"

// PolicyState is the adaptation state machine position for a session.
type PolicyState string

const (
	// StateMonitoring means the session is being observed; adaptations may fire.
	StateMonitoring PolicyState = "monitoring"

	// StateAdapting is carried on a firing decision; applying it moves
	// the session into cooldown and charges the adaptation budget.
	StateAdapting PolicyState = "adapting"

	// StateCooldown means an adaptation fired recently; no further
	// adaptation fires until the cooldown interval elapses.
	StateCooldown PolicyState = "cooldown"
)

// Counters holds cumulative per-session interaction counters.
type Counters struct {
	WatchTimeSeconds float64 `json:"watch_time_seconds"`
	PlayCount        int64   `json:"play_count"`
	PauseCount       int64   `json:"pause_count"`
	SeekCount        int64   `json:"seek_count"`
	RewindCount      int64   `json:"rewind_count"`
	FastForwardCount int64   `json:"fast_forward_count"`
	SceneCompletions int64   `json:"scene_completions"`
	OutOfOrderEvents int64   `json:"out_of_order_events"`
	TotalEvents      int64   `json:"total_events"`
}

// Session is an immutable snapshot of one viewing session as returned by
// the session store. The store owns the live session exclusively; callers
// only ever observe copies, so a snapshot can be read without locking.
type Session struct {
	// ID is the unique session identifier.
	ID string `json:"session_id"`

	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`

	// Window is the rolling feature window: the most recent events in
	// ascending sequence order, bounded by the store's configured capacity.
	Window []InteractionEvent `json:"window"`

	// Counters are cumulative over the whole session, not just the window.
	Counters Counters `json:"counters"`

	// Variant is the sticky experiment assignment for this session.
	Variant string `json:"variant"`

	// EngagementScore is the most recent ensemble engagement estimate.
	EngagementScore float64 `json:"engagement_score"`

	// EngagementHistory holds the last-K engagement scores, oldest first,
	// feeding the trend feature.
	EngagementHistory []float64 `json:"engagement_history,omitempty"`

	// State is the adaptation policy state machine position.
	State PolicyState `json:"state"`

	// CooldownUntil is the wall-clock instant the cooldown expires.
	// Zero when no cooldown is active.
	CooldownUntil time.Time `json:"cooldown_until,omitempty"`

	// AdaptationCount is the number of adaptations emitted for this session.
	AdaptationCount int `json:"adaptation_count"`
}

// InCooldown reports whether the session's cooldown window covers now.
func (s *Session) InCooldown(now time.Time) bool {
	return !s.CooldownUntil.IsZero() && now.Before(s.CooldownUntil)
}

// Age returns the session duration at the given instant.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// Idle returns how long the session has gone without an event.
func (s *Session) Idle(now time.Time) time.Duration {
	return now.Sub(s.LastSeenAt)
}

// Trend classifies the recent engagement score direction.
type Trend int

const (
	TrendDecreasing Trend = -1
	TrendStable     Trend = 0
	TrendIncreasing Trend = 1
)

// String returns a human-readable trend name.
func (t Trend) String() string {
	switch t {
	case TrendIncreasing:
		return "increasing"
	case TrendDecreasing:
		return "decreasing"
	default:
		return "stable"
	}
}

// EngagementTrend compares the mean of the most recent three scores with
// the mean of the three before them. Bands of ±0.1 map to stable.
// Fewer than three recorded scores always classify as stable.
func (s *Session) EngagementTrend() Trend {
	scores := s.EngagementHistory
	if len(scores) < 3 {
		return TrendStable
	}

	recent := mean(scores[len(scores)-3:])
	var earlier float64
	if len(scores) >= 6 {
		earlier = mean(scores[len(scores)-6 : len(scores)-3])
	} else {
		earlier = mean(scores[:len(scores)-3])
	}

	switch delta := recent - earlier; {
	case delta > 0.1:
		return TrendIncreasing
	case delta < -0.1:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
