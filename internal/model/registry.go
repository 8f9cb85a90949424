// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package model

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/directrix-io/directrix/internal/feature"
	"github.com/directrix-io/directrix/internal/logging"
	"github.com/directrix-io/directrix/internal/metrics"
)

// ErrLastModel is returned when a removal would leave the active set
// empty. The registry always serves at least one model.
var ErrLastModel = errors.New("cannot remove the last active model")

// ErrUnknownModel is returned when removing a model ID that is not in
// the active set.
var ErrUnknownModel = errors.New("model not in active set")

// modelSet is one immutable generation of the active ensemble.
// Readers obtain the whole set with a single atomic pointer load and
// never observe a partially applied swap.
type modelSet struct {
	generation uint64
	models     []Model
	artifacts  map[string]*Artifact
}

// Registry holds the active model set and applies hot swaps.
// Predictions read the set lock-free; mutations serialize on mu and
// publish complete replacement sets.
type Registry struct {
	schema        feature.Schema
	schemaVersion int
	store         ArtifactStore

	mu     sync.Mutex
	active atomic.Pointer[modelSet]
}

// NewRegistry builds a registry bound to the feature schema and
// backing artifact store. The initial set comes from stored artifacts;
// when the store is empty the built-in defaults are loaded and
// persisted, so the registry is never without a servable model.
func NewRegistry(schema feature.Schema, schemaVersion int, store ArtifactStore) (*Registry, error) {
	r := &Registry{
		schema:        schema,
		schemaVersion: schemaVersion,
		store:         store,
	}

	stored, err := store.List()
	if err != nil {
		return nil, err
	}

	set := &modelSet{generation: 1, artifacts: make(map[string]*Artifact)}
	for id, raw := range stored {
		m, art, err := ParseArtifact(raw, schema, schemaVersion)
		if err != nil {
			// A stale artifact from a previous schema must not block
			// startup. Skip it and keep serving what still parses.
			logging.Warn().Err(err).Str("model_id", id).Msg("skipping stored artifact")
			continue
		}
		set.models = append(set.models, m)
		set.artifacts[art.ModelID] = art
	}

	if len(set.models) == 0 {
		for _, raw := range DefaultArtifacts(schema, schemaVersion) {
			m, art, err := ParseArtifact(raw, schema, schemaVersion)
			if err != nil {
				return nil, fmt.Errorf("default artifact: %w", err)
			}
			if err := store.Put(art.ModelID, raw); err != nil {
				return nil, err
			}
			set.models = append(set.models, m)
			set.artifacts[art.ModelID] = art
		}
		logging.Info().Int("models", len(set.models)).Msg("bootstrapped default model set")
	}

	sortModels(set.models)
	r.active.Store(set)
	metrics.ActiveModels.Set(float64(len(set.models)))
	return r, nil
}

// Load validates raw artifact bytes and swaps in a new set containing
// the model. An existing model with the same ID is replaced. The swap
// is atomic with respect to readers.
func (r *Registry) Load(raw []byte) error {
	m, art, err := ParseArtifact(raw, r.schema, r.schemaVersion)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Put(art.ModelID, raw); err != nil {
		return err
	}

	old := r.active.Load()
	next := &modelSet{
		generation: old.generation + 1,
		artifacts:  make(map[string]*Artifact, len(old.artifacts)+1),
	}
	for _, existing := range old.models {
		if existing.ID() == m.ID() {
			continue
		}
		next.models = append(next.models, existing)
		next.artifacts[existing.ID()] = old.artifacts[existing.ID()]
	}
	next.models = append(next.models, m)
	next.artifacts[art.ModelID] = art
	sortModels(next.models)

	r.active.Store(next)
	metrics.ActiveModels.Set(float64(len(next.models)))
	metrics.ModelSetSwaps.Inc()
	logging.Info().
		Str("model_id", art.ModelID).
		Str("version", art.Version).
		Uint64("generation", next.generation).
		Int("models", len(next.models)).
		Msg("model loaded")
	return nil
}

// Remove drops a model from the active set. Removing the only
// remaining model fails with ErrLastModel.
func (r *Registry) Remove(modelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.active.Load()
	if _, ok := old.artifacts[modelID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	if len(old.models) == 1 {
		return ErrLastModel
	}

	if err := r.store.Delete(modelID); err != nil {
		return err
	}

	next := &modelSet{
		generation: old.generation + 1,
		artifacts:  make(map[string]*Artifact, len(old.artifacts)-1),
	}
	for _, existing := range old.models {
		if existing.ID() == modelID {
			continue
		}
		next.models = append(next.models, existing)
		next.artifacts[existing.ID()] = old.artifacts[existing.ID()]
	}

	r.active.Store(next)
	metrics.ActiveModels.Set(float64(len(next.models)))
	metrics.ModelSetSwaps.Inc()
	logging.Info().
		Str("model_id", modelID).
		Uint64("generation", next.generation).
		Int("models", len(next.models)).
		Msg("model removed")
	return nil
}

// ActiveModels returns the current set in stable ID order. The slice
// is shared immutable state and must not be modified.
func (r *Registry) ActiveModels() []Model {
	return r.active.Load().models
}

// Artifacts returns descriptors for the active set, for the admin API.
func (r *Registry) Artifacts() []*Artifact {
	set := r.active.Load()
	out := make([]*Artifact, 0, len(set.artifacts))
	for _, m := range set.models {
		out = append(out, set.artifacts[m.ID()])
	}
	return out
}

// Version identifies the current generation of the active set.
// Predictions stamp it so decisions are attributable to an exact set.
func (r *Registry) Version() string {
	set := r.active.Load()
	return fmt.Sprintf("gen-%d/%d", set.generation, len(set.models))
}

func sortModels(models []Model) {
	sort.Slice(models, func(i, j int) bool { return models[i].ID() < models[j].ID() })
}
