// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package session implements the sharded, concurrency-safe store of live
// per-session state.
//
// Sessions are sharded by FNV-1a hash of the session ID; each shard
// guards its own map with an independent mutex, so two different
// sessions never contend. All mutation happens through the store's API
// under the owning shard lock, and callers only ever observe immutable
// snapshots, never the live session.
//
// Idle sessions are evicted lazily on access and by a periodic sweep
// (see Sweeper). Lazy eviction and appends for the same session are
// serialized by the shard lock, so eviction never races an append.
package session

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/directrix-io/directrix/internal/logging"
	"github.com/directrix-io/directrix/internal/metrics"
	"github.com/directrix-io/directrix/internal/models"
)

// VariantAssigner supplies the sticky experiment assignment for a new
// session. Implemented by the experiment package.
type VariantAssigner interface {
	Assign(sessionID string) models.ExperimentVariant
}

// Config shapes the store.
type Config struct {
	// ShardCount is rounded up to the next power of two.
	ShardCount int

	// WindowCapacity bounds the rolling feature window per session.
	WindowCapacity int

	// IdleTTL is the idle duration after which a session is evicted.
	IdleTTL time.Duration

	// EngagementHistory is the number of recent engagement scores kept.
	EngagementHistory int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ShardCount:        32,
		WindowCapacity:    64,
		IdleTTL:           30 * time.Minute,
		EngagementHistory: 12,
	}
}

// Store is the sharded session state store.
type Store struct {
	cfg      Config
	assigner VariantAssigner
	shards   []*shard
	mask     uint64
	count    atomic.Int64
}

// shard owns one partition of the session map exclusively.
type shard struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// liveSession is the mutable session record. Only ever touched while
// holding the owning shard's lock.
type liveSession struct {
	id         string
	createdAt  time.Time
	lastSeenAt time.Time

	window   []models.InteractionEvent // ascending sequence order
	lastSeq  uint64
	counters models.Counters

	variant string

	engagementScore   float64
	engagementHistory []float64

	state         models.PolicyState
	cooldownUntil time.Time
	adaptations   int
}

// NewStore creates a session store. assigner must not be nil.
func NewStore(cfg Config, assigner VariantAssigner) *Store {
	if cfg.ShardCount <= 0 {
		cfg.ShardCount = DefaultConfig().ShardCount
	}
	if cfg.WindowCapacity <= 0 {
		cfg.WindowCapacity = DefaultConfig().WindowCapacity
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultConfig().IdleTTL
	}
	if cfg.EngagementHistory <= 0 {
		cfg.EngagementHistory = DefaultConfig().EngagementHistory
	}

	n := nextPowerOfTwo(cfg.ShardCount)
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{sessions: make(map[string]*liveSession)}
	}

	return &Store{
		cfg:      cfg,
		assigner: assigner,
		shards:   shards,
		mask:     uint64(n - 1),
	}
}

// nextPowerOfTwo rounds n up so the shard index is a cheap mask.
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// shardFor picks the owning shard by FNV-1a of the session ID.
func (s *Store) shardFor(sessionID string) *shard {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionID))
	return s.shards[h.Sum64()&s.mask]
}

// GetOrCreate returns a snapshot of the session, creating it (with its
// sticky variant assignment) when absent or expired.
func (s *Store) GetOrCreate(sessionID string, now time.Time) models.Session {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	live := s.getOrCreateLocked(sh, sessionID, now)
	return s.snapshotLocked(live, now)
}

// Get returns a snapshot without creating. The second return is false
// when the session is absent or already past its idle TTL.
func (s *Store) Get(sessionID string, now time.Time) (models.Session, bool) {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	live, ok := sh.sessions[sessionID]
	if !ok {
		return models.Session{}, false
	}
	if s.expiredLocked(live, now) {
		s.evictLocked(sh, live, "lazy")
		return models.Session{}, false
	}
	return s.snapshotLocked(live, now), true
}

// AppendEvent appends an accepted event to the session's rolling window,
// updates the cumulative counters, and returns the updated snapshot.
// The session is created on first event. Out-of-order sequence numbers
// are accepted, flagged on the stored event, and counted.
func (s *Store) AppendEvent(event models.InteractionEvent, now time.Time) models.Session {
	sh := s.shardFor(event.SessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	live := s.getOrCreateLocked(sh, event.SessionID, now)
	s.normalizeLocked(live, now)

	if live.counters.TotalEvents > 0 && event.SequenceNumber < live.lastSeq {
		event.OutOfOrder = true
		live.counters.OutOfOrderEvents++
		metrics.OutOfOrderEvents.Inc()
	} else {
		live.lastSeq = event.SequenceNumber
	}

	live.window = insertBounded(live.window, event, s.cfg.WindowCapacity)
	live.lastSeenAt = now
	s.applyCounters(&live.counters, &event)

	return s.snapshotLocked(live, now)
}

// applyCounters folds one event into the cumulative counters.
func (s *Store) applyCounters(c *models.Counters, event *models.InteractionEvent) {
	c.TotalEvents++
	if secs, ok := event.PayloadFloat("watch_seconds"); ok && secs > 0 {
		c.WatchTimeSeconds += secs
	}

	switch event.Type {
	case models.EventPlay:
		c.PlayCount++
	case models.EventPause:
		c.PauseCount++
	case models.EventSeek, models.EventFastForward:
		c.SeekCount++
		if event.Type == models.EventFastForward {
			c.FastForwardCount++
		}
	case models.EventRewind:
		c.RewindCount++
	case models.EventSceneComplete:
		c.SceneCompletions++
	}
}

// RecordPrediction stores the latest engagement estimate in the
// session's bounded history for the trend feature.
func (s *Store) RecordPrediction(sessionID string, engagementScore float64) {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	live, ok := sh.sessions[sessionID]
	if !ok {
		return
	}

	live.engagementScore = engagementScore
	live.engagementHistory = append(live.engagementHistory, engagementScore)
	if over := len(live.engagementHistory) - s.cfg.EngagementHistory; over > 0 {
		live.engagementHistory = live.engagementHistory[over:]
	}
}

// ApplyDecision folds a policy decision back into the session. Only a
// firing decision (Adapting) transitions the machine: the session
// enters cooldown and one unit of adaptation budget is consumed.
// Monitoring and in-cooldown no-ops leave the stamp and the counter
// untouched, so steady traffic cannot slide the cooldown window or
// drain the budget.
func (s *Store) ApplyDecision(decision *models.AdaptationDecision, cooldown time.Duration, now time.Time) {
	sh := s.shardFor(decision.SessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	live, ok := sh.sessions[decision.SessionID]
	if !ok {
		return
	}

	if decision.State == models.StateAdapting {
		live.state = models.StateCooldown
		live.cooldownUntil = now.Add(cooldown)
		live.adaptations++
		return
	}
	s.normalizeLocked(live, now)
}

// EvictIdle removes every session idle past the TTL. Returns the count
// evicted. Used by the periodic sweep.
func (s *Store) EvictIdle(now time.Time) int {
	var evicted int
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, live := range sh.sessions {
			if s.expiredLocked(live, now) {
				s.evictLocked(sh, live, "sweep")
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	if evicted > 0 {
		logging.Debug().Int("evicted", evicted).Msg("idle session sweep")
	}
	return evicted
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return int(s.count.Load())
}

// Snapshots returns a point-in-time copy of every live session. Used by
// the analytics surface; O(sessions), shard locks taken one at a time.
func (s *Store) Snapshots(now time.Time) []models.Session {
	out := make([]models.Session, 0, s.Len())
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, live := range sh.sessions {
			if !s.expiredLocked(live, now) {
				out = append(out, s.snapshotLocked(live, now))
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

// normalizeLocked retires an elapsed cooldown. Write lock required.
func (s *Store) normalizeLocked(live *liveSession, now time.Time) {
	if live.state == models.StateCooldown && !now.Before(live.cooldownUntil) {
		live.state = models.StateMonitoring
		live.cooldownUntil = time.Time{}
	}
}

func (s *Store) expiredLocked(live *liveSession, now time.Time) bool {
	return now.Sub(live.lastSeenAt) >= s.cfg.IdleTTL
}

func (s *Store) evictLocked(sh *shard, live *liveSession, mode string) {
	delete(sh.sessions, live.id)
	s.count.Add(-1)
	metrics.ActiveSessions.Dec()
	metrics.SessionsEvicted.WithLabelValues(mode).Inc()
}

func (s *Store) getOrCreateLocked(sh *shard, sessionID string, now time.Time) *liveSession {
	if live, ok := sh.sessions[sessionID]; ok {
		if !s.expiredLocked(live, now) {
			return live
		}
		s.evictLocked(sh, live, "lazy")
	}

	variant := s.assigner.Assign(sessionID)
	live := &liveSession{
		id:         sessionID,
		createdAt:  now,
		lastSeenAt: now,
		variant:    variant.Name,
		state:      models.StateMonitoring,
		// New viewers start from a neutral-positive engagement prior
		// rather than zero, so the first prediction is not biased
		// toward abandonment before any signal exists.
		engagementScore: 0.8,
	}
	sh.sessions[sessionID] = live
	s.count.Add(1)
	metrics.ActiveSessions.Inc()

	logging.Debug().
		Str("session_id", sessionID).
		Str("variant", variant.Name).
		Msg("session created")

	return live
}

// snapshotLocked copies the live session into an immutable snapshot.
// Read-only with respect to the live session, so it is safe under
// either the read or write shard lock. A cooldown whose interval has
// elapsed reads as Monitoring; the stored state catches up on the next
// write-path access.
func (s *Store) snapshotLocked(live *liveSession, now time.Time) models.Session {
	state := live.state
	if state == models.StateCooldown && !now.Before(live.cooldownUntil) {
		state = models.StateMonitoring
	}

	window := make([]models.InteractionEvent, len(live.window))
	copy(window, live.window)

	history := make([]float64, len(live.engagementHistory))
	copy(history, live.engagementHistory)

	return models.Session{
		ID:                live.id,
		CreatedAt:         live.createdAt,
		LastSeenAt:        live.lastSeenAt,
		Window:            window,
		Counters:          live.counters,
		Variant:           live.variant,
		EngagementScore:   live.engagementScore,
		EngagementHistory: history,
		State:             state,
		CooldownUntil:     live.cooldownUntil,
		AdaptationCount:   live.adaptations,
	}
}
