// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package aggregate maintains rolling per-variant statistics over
// events, predictions, and decision outcomes.
//
// Hot-path recording uses atomic cells only; snapshots read the same
// cells without blocking writers. The map of variants itself changes
// rarely (first event per variant) and is guarded separately, so the
// per-event cost is a map read under RLock plus a handful of atomic
// adds.
package aggregate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/directrix-io/directrix/internal/models"
)

// Aggregator accumulates per-variant statistics. Safe for concurrent
// use by all pipeline workers.
type Aggregator struct {
	mu       sync.RWMutex
	variants map[string]*variantCells

	// pending maps session ID to the decision awaiting its outcome.
	// A session has at most one in-flight adaptation, so one slot is
	// enough; a newer decision replaces an unresolved older one.
	pendingMu sync.Mutex
	pending   map[string]pendingOutcome
}

type pendingOutcome struct {
	variant    string
	action     models.AdaptationAction
	decisionID string
	before     float64
	issuedAt   time.Time
}

// variantCells is the atomic cell block for one experiment arm.
type variantCells struct {
	events        atomic.Int64
	predictions   atomic.Int64
	fallbacks     atomic.Int64
	engagementSum atomicFloat
	riskSum       atomicFloat

	actions map[models.AdaptationAction]*actionCells
}

type actionCells struct {
	decisions atomic.Int64
	outcomes  atomic.Int64
	upliftSum atomicFloat
}

// NewAggregator builds an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		variants: make(map[string]*variantCells),
		pending:  make(map[string]pendingOutcome),
	}
}

func (a *Aggregator) cells(variant string) *variantCells {
	a.mu.RLock()
	c, ok := a.variants[variant]
	a.mu.RUnlock()
	if ok {
		return c
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok = a.variants[variant]; ok {
		return c
	}
	c = &variantCells{actions: make(map[models.AdaptationAction]*actionCells)}
	for _, action := range models.AdaptationActions() {
		c.actions[action] = &actionCells{}
	}
	a.variants[variant] = c
	return c
}

// RecordEvent counts one ingested event for a variant.
func (a *Aggregator) RecordEvent(variant string) {
	a.cells(variant).events.Add(1)
}

// RecordPrediction folds one ensemble result into the variant's
// running sums and resolves any pending decision outcome for the
// session: the engagement delta since the decision becomes that
// action's observed uplift.
func (a *Aggregator) RecordPrediction(variant, sessionID string, pred models.PredictionResult) {
	c := a.cells(variant)
	c.predictions.Add(1)
	c.engagementSum.Add(pred.EngagementScore)
	c.riskSum.Add(pred.AbandonmentRisk)

	a.pendingMu.Lock()
	p, ok := a.pending[sessionID]
	if ok {
		delete(a.pending, sessionID)
	}
	a.pendingMu.Unlock()
	if !ok {
		return
	}

	pc := a.cells(p.variant).actions[p.action]
	pc.outcomes.Add(1)
	pc.upliftSum.Add(pred.EngagementScore - p.before)
}

// RecordDecision counts one decision. Firing decisions register a
// pending outcome resolved by the session's next prediction.
func (a *Aggregator) RecordDecision(d models.AdaptationDecision) {
	c := a.cells(d.Variant)
	if d.Fallback {
		c.fallbacks.Add(1)
	}
	c.actions[d.Action].decisions.Add(1)

	if d.Action == models.ActionNone {
		return
	}
	a.pendingMu.Lock()
	a.pending[d.SessionID] = pendingOutcome{
		variant:    d.Variant,
		action:     d.Action,
		decisionID: d.DecisionID,
		before:     d.BasedOn.EngagementScore,
		issuedAt:   d.CreatedAt,
	}
	a.pendingMu.Unlock()
}

// ActionOutcomes returns observed outcome stats per action for one
// variant. Implements the policy engine's uplift source.
func (a *Aggregator) ActionOutcomes(variant string) map[models.AdaptationAction]models.ActionOutcome {
	a.mu.RLock()
	c, ok := a.variants[variant]
	a.mu.RUnlock()
	if !ok {
		return nil
	}

	out := make(map[models.AdaptationAction]models.ActionOutcome, len(c.actions))
	for action, cells := range c.actions {
		n := cells.outcomes.Load()
		o := models.ActionOutcome{Observations: n}
		if n > 0 {
			o.MeanUplift = cells.upliftSum.Load() / float64(n)
		}
		out[action] = o
	}
	return out
}

// VariantSnapshot is a point-in-time view of one arm's statistics.
type VariantSnapshot struct {
	Variant        string                                           `json:"variant"`
	Events         int64                                            `json:"events"`
	Predictions    int64                                            `json:"predictions"`
	Fallbacks      int64                                            `json:"fallbacks"`
	MeanEngagement float64                                          `json:"mean_engagement"`
	MeanRisk       float64                                          `json:"mean_risk"`
	Decisions      map[models.AdaptationAction]int64                `json:"decisions"`
	Outcomes       map[models.AdaptationAction]models.ActionOutcome `json:"outcomes"`
}

// Snapshot returns current statistics for every variant. The snapshot
// is not a consistent cut across cells; individual cells are exact.
func (a *Aggregator) Snapshot() []VariantSnapshot {
	a.mu.RLock()
	names := make([]string, 0, len(a.variants))
	for name := range a.variants {
		names = append(names, name)
	}
	a.mu.RUnlock()

	out := make([]VariantSnapshot, 0, len(names))
	for _, name := range names {
		a.mu.RLock()
		c := a.variants[name]
		a.mu.RUnlock()

		snap := VariantSnapshot{
			Variant:     name,
			Events:      c.events.Load(),
			Predictions: c.predictions.Load(),
			Fallbacks:   c.fallbacks.Load(),
			Decisions:   make(map[models.AdaptationAction]int64, len(c.actions)),
			Outcomes:    make(map[models.AdaptationAction]models.ActionOutcome, len(c.actions)),
		}
		if snap.Predictions > 0 {
			snap.MeanEngagement = c.engagementSum.Load() / float64(snap.Predictions)
			snap.MeanRisk = c.riskSum.Load() / float64(snap.Predictions)
		}
		for action, cells := range c.actions {
			snap.Decisions[action] = cells.decisions.Load()
			n := cells.outcomes.Load()
			o := models.ActionOutcome{Observations: n}
			if n > 0 {
				o.MeanUplift = cells.upliftSum.Load() / float64(n)
			}
			snap.Outcomes[action] = o
		}
		out = append(out, snap)
	}
	return out
}
