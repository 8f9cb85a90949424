// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package experiment implements deterministic A/B variant assignment.
//
// A session maps to a variant by FNV-1a hash of its ID taken modulo the
// total variant weight, walked over the cumulative weight table. The
// mapping is pure — same ID, same configuration, same variant — so
// assignment is sticky for a session's lifetime without storing
// anything here; the session store records the name at creation.
//
// Reload replaces the variant table atomically. That re-splits traffic
// for sessions created afterwards; existing sessions keep the variant
// stored on them until they expire, avoiding mid-session flips.
package experiment

import (
	"hash/fnv"
	"sync/atomic"

	"github.com/directrix-io/directrix/internal/logging"
	"github.com/directrix-io/directrix/internal/models"
)

// Assigner maps session IDs onto the configured variant set.
type Assigner struct {
	table atomic.Pointer[variantTable]
}

// variantTable is an immutable snapshot of the variant configuration.
type variantTable struct {
	variants   []models.ExperimentVariant
	cumulative []uint64 // cumulative upper bounds, parallel to variants
	total      uint64
	byName     map[string]models.ExperimentVariant
}

func buildTable(variants []models.ExperimentVariant) *variantTable {
	t := &variantTable{
		variants:   make([]models.ExperimentVariant, len(variants)),
		cumulative: make([]uint64, len(variants)),
		byName:     make(map[string]models.ExperimentVariant, len(variants)),
	}
	copy(t.variants, variants)

	var running uint64
	for i, v := range t.variants {
		running += uint64(v.Weight)
		t.cumulative[i] = running
		t.byName[v.Name] = v
	}
	t.total = running
	return t
}

// NewAssigner creates an assigner over the given variant set. The
// caller guarantees a validated, non-empty set with positive total
// weight (config.Validate enforces this).
func NewAssigner(variants []models.ExperimentVariant) *Assigner {
	a := &Assigner{}
	a.table.Store(buildTable(variants))
	return a
}

// Assign returns the variant for a session ID. Idempotent under an
// unchanged configuration.
func (a *Assigner) Assign(sessionID string) models.ExperimentVariant {
	t := a.table.Load()

	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionID))
	bucket := h.Sum64() % t.total

	for i, upper := range t.cumulative {
		if bucket < upper {
			return t.variants[i]
		}
	}
	// Unreachable: bucket < total == last upper bound.
	return t.variants[len(t.variants)-1]
}

// Variant looks up a variant by name in the current configuration.
func (a *Assigner) Variant(name string) (models.ExperimentVariant, bool) {
	v, ok := a.table.Load().byName[name]
	return v, ok
}

// Variants returns the current variant set. The slice is a copy.
func (a *Assigner) Variants() []models.ExperimentVariant {
	t := a.table.Load()
	out := make([]models.ExperimentVariant, len(t.variants))
	copy(out, t.variants)
	return out
}

// Reload atomically replaces the variant table. New sessions split over
// the new weights; live sessions keep their stored assignment.
func (a *Assigner) Reload(variants []models.ExperimentVariant) {
	a.table.Store(buildTable(variants))
	logging.Info().Int("variants", len(variants)).Msg("experiment configuration reloaded")
}
