// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/directrix-io/directrix/internal/aggregate"
	"github.com/directrix-io/directrix/internal/ingest"
	"github.com/directrix-io/directrix/internal/journal"
	"github.com/directrix-io/directrix/internal/logging"
	"github.com/directrix-io/directrix/internal/model"
	"github.com/directrix-io/directrix/internal/models"
	"github.com/directrix-io/directrix/internal/session"
)

// maxBodyBytes bounds request bodies; events are small and artifacts
// are weight vectors, not datasets.
const maxBodyBytes = 1 << 20

// Handler serves every API endpoint.
type Handler struct {
	pipeline   *ingest.Pipeline
	store      *session.Store
	registry   *model.Registry
	aggregator *aggregate.Aggregator
	journal    *journal.Journal
	startedAt  time.Time
}

// NewHandler wires the handler's dependencies. journal may be nil when
// journaling is disabled.
func NewHandler(
	pipeline *ingest.Pipeline,
	store *session.Store,
	registry *model.Registry,
	aggregator *aggregate.Aggregator,
	jrnl *journal.Journal,
) *Handler {
	return &Handler{
		pipeline:   pipeline,
		store:      store,
		registry:   registry,
		aggregator: aggregator,
		journal:    jrnl,
		startedAt:  time.Now(),
	}
}

// IngestEvent accepts one interaction event and returns the decision
// it produced.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var raw ingest.RawEvent
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body", err.Error())
		return
	}

	decision, err := h.pipeline.Process(r.Context(), &raw)
	if err != nil {
		var re *ingest.RejectError
		if errors.As(err, &re) {
			writeRejectError(rw, w, re)
			return
		}
		logging.Error().Err(err).Msg("event processing failed")
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "event processing failed")
		return
	}

	rw.Success(decision)
}

// ModelHandle is the public descriptor of one active model.
type ModelHandle struct {
	ModelID        string  `json:"model_id"`
	Version        string  `json:"version"`
	Kind           string  `json:"kind"`
	EnsembleWeight float64 `json:"ensemble_weight"`
	Confidence     float64 `json:"confidence"`
}

// ListModels returns the active model set.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	artifacts := h.registry.Artifacts()
	handles := make([]ModelHandle, 0, len(artifacts))
	for _, a := range artifacts {
		handles = append(handles, ModelHandle{
			ModelID:        a.ModelID,
			Version:        a.Version,
			Kind:           a.Kind,
			EnsembleWeight: a.EnsembleWeight,
			Confidence:     a.Confidence,
		})
	}

	rw.Success(map[string]interface{}{
		"set_version": h.registry.Version(),
		"models":      handles,
	})
}

// LoadModel validates and hot-swaps a model artifact into the set.
func (h *Handler) LoadModel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeBadRequest, "unreadable body", err.Error())
		return
	}

	if err := h.registry.Load(raw); err != nil {
		writeModelError(rw, err)
		return
	}

	rw.Created(map[string]string{"set_version": h.registry.Version()})
}

// RemoveModel drops a model from the active set.
func (h *Handler) RemoveModel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	modelID := chi.URLParam(r, "id")
	if err := h.registry.Remove(modelID); err != nil {
		writeModelError(rw, err)
		return
	}

	rw.Success(map[string]string{"set_version": h.registry.Version()})
}

// SessionStats reports one session's live statistics.
func (h *Handler) SessionStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	sessionID := chi.URLParam(r, "id")
	snap, ok := h.store.Get(sessionID, time.Now())
	if !ok {
		rw.Error(http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	rw.Success(map[string]interface{}{
		"session_id":       snap.ID,
		"variant":          snap.Variant,
		"state":            snap.State,
		"engagement_score": snap.EngagementScore,
		"trend":            snap.EngagementTrend().String(),
		"adaptation_count": snap.AdaptationCount,
		"counters":         snap.Counters,
		"window_events":    len(snap.Window),
		"created_at":       snap.CreatedAt,
		"last_seen_at":     snap.LastSeenAt,
	})
}

// Aggregates returns the per-variant statistics snapshot.
func (h *Handler) Aggregates(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]interface{}{"variants": h.aggregator.Snapshot()})
}

// Analytics reports engine-wide figures plus recent decisions.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var totalEvents, totalPredictions, totalFallbacks int64
	var engagementWeighted float64
	adaptations := make(map[models.AdaptationAction]int64)
	for _, snap := range h.aggregator.Snapshot() {
		totalEvents += snap.Events
		totalPredictions += snap.Predictions
		totalFallbacks += snap.Fallbacks
		engagementWeighted += snap.MeanEngagement * float64(snap.Predictions)
		for action, n := range snap.Decisions {
			adaptations[action] += n
		}
	}
	meanEngagement := 0.0
	if totalPredictions > 0 {
		meanEngagement = engagementWeighted / float64(totalPredictions)
	}

	data := map[string]interface{}{
		"active_sessions":   h.store.Len(),
		"total_events":      totalEvents,
		"total_predictions": totalPredictions,
		"fallbacks":         totalFallbacks,
		"mean_engagement":   meanEngagement,
		"decisions":         adaptations,
	}

	if h.journal != nil {
		recent, err := h.journal.Recent(20)
		if err != nil {
			logging.Warn().Err(err).Msg("journal read failed for analytics")
		} else {
			data["recent_decisions"] = recent
		}
	}

	rw.Success(data)
}

// Health reports liveness and basic readiness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]interface{}{
		"status":          "ok",
		"uptime_seconds":  int64(time.Since(h.startedAt).Seconds()),
		"active_models":   len(h.registry.ActiveModels()),
		"active_sessions": h.store.Len(),
		"model_version":   h.registry.Version(),
	})
}
