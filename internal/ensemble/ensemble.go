// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package ensemble combines the active model set into one bounded
// prediction per decision cycle.
//
// Every cycle runs under a hard deadline; each model additionally gets
// a sub-deadline and a circuit breaker. A slow or failing model is
// excluded from the cycle, never waited on, and the aggregate
// confidence is scaled down by the share of models that participated.
// Identical inputs against an identical model set produce identical
// outputs; there is no sampling anywhere in the path.
package ensemble

import (
	"context"
	"errors"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/directrix-io/directrix/internal/config"
	"github.com/directrix-io/directrix/internal/feature"
	"github.com/directrix-io/directrix/internal/logging"
	"github.com/directrix-io/directrix/internal/metrics"
	"github.com/directrix-io/directrix/internal/model"
	"github.com/directrix-io/directrix/internal/models"
)

// ErrPredictionUnavailable means no model produced an output within
// the cycle deadline. Callers fall back to a no-op decision; this is
// an expected degraded mode, not a pipeline failure.
var ErrPredictionUnavailable = errors.New("no model produced a usable prediction")

// exclusion causes for the per-model exclusion counter.
const (
	causeTimeout     = "timeout"
	causeBreakerOpen = "breaker_open"
	causeError       = "error"
)

// Registry is the model source the predictor consumes.
type Registry interface {
	ActiveModels() []model.Model
	Version() string
}

// Predictor fans a feature vector out to the active model set and
// aggregates the surviving outputs.
type Predictor struct {
	cfg      config.EnsembleConfig
	registry Registry

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[model.Output]
}

// NewPredictor builds a predictor over the registry's active set.
func NewPredictor(cfg config.EnsembleConfig, registry Registry) *Predictor {
	return &Predictor{
		cfg:      cfg,
		registry: registry,
		breakers: make(map[string]*gobreaker.CircuitBreaker[model.Output]),
	}
}

type modelResult struct {
	idx int
	out model.Output
	err error
}

// Predict runs one ensemble cycle. The returned result aggregates
// engagement as an ensemble-weighted mean, risk as the maximum across
// participating models, and confidence scaled by participation.
func (p *Predictor) Predict(ctx context.Context, vec feature.Vector) (models.PredictionResult, error) {
	start := time.Now()
	defer metrics.ObserveEnsemble(start)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Deadline)
	defer cancel()

	active := p.registry.ActiveModels()
	version := p.registry.Version()

	results := make(chan modelResult, len(active))
	for i, m := range active {
		go p.invoke(ctx, i, m, vec, results)
	}

	used := make([]modelResult, 0, len(active))
	pending := len(active)

collect:
	for pending > 0 {
		select {
		case r := <-results:
			pending--
			if r.err != nil {
				continue
			}
			used = append(used, r)
		case <-ctx.Done():
			// Stragglers are abandoned. Their goroutines drain into the
			// buffered channel when the model returns, and each records
			// its own exclusion and breaker failure on the way out.
			break collect
		}
	}

	if len(used) == 0 {
		metrics.PredictionsUnavailable.Inc()
		logging.Warn().
			Str("session_id", vec.SessionID).
			Int("models_total", len(active)).
			Str("model_version", version).
			Msg("prediction unavailable")
		return models.PredictionResult{}, ErrPredictionUnavailable
	}

	result := aggregate(active, used)
	result.SessionID = vec.SessionID
	result.ModelVersion = version
	result.ModelsTotal = len(active)
	result.ModelsUsed = len(used)
	result.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
	result.Timestamp = start
	return result, nil
}

// invoke runs one model under its sub-deadline and circuit breaker.
func (p *Predictor) invoke(ctx context.Context, idx int, m model.Model, vec feature.Vector, out chan<- modelResult) {
	mctx, cancel := context.WithTimeout(ctx, p.cfg.ModelDeadline)
	defer cancel()

	start := time.Now()
	res, err := p.breaker(m.ID()).Execute(func() (model.Output, error) {
		return m.Predict(mctx, vec)
	})
	metrics.ObserveModel(m.ID(), start)

	if err != nil {
		p.recordExclusion(m, err)
	}
	out <- modelResult{idx: idx, out: res, err: err}
}

// breaker returns the circuit breaker for a model ID, creating it on
// first use. Breakers outlive model swaps so a flapping model stays
// tripped across artifact reloads.
func (p *Predictor) breaker(modelID string) *gobreaker.CircuitBreaker[model.Output] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cb, ok := p.breakers[modelID]; ok {
		return cb
	}
	cfg := p.cfg.Breaker
	cb := gobreaker.NewCircuitBreaker[model.Output](gobreaker.Settings{
		Name:        modelID,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("model_id", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("model breaker state change")
		},
	})
	p.breakers[modelID] = cb
	return cb
}

func (p *Predictor) recordExclusion(m model.Model, err error) {
	cause := causeError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		cause = causeBreakerOpen
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		cause = causeTimeout
	}
	metrics.ModelExclusions.WithLabelValues(m.ID(), cause).Inc()
	logging.Debug().
		Str("model_id", m.ID()).
		Str("cause", cause).
		Err(err).
		Msg("model excluded from ensemble")
}

// aggregate folds participating outputs into one result. Engagement
// and confidence are ensemble-weighted means; risk is the maximum, so
// one alarmed model is enough to raise it. Confidence is then scaled
// by the participation ratio.
func aggregate(active []model.Model, used []modelResult) models.PredictionResult {
	var weightSum, engagement, confidence, maxRisk float64
	for _, r := range used {
		w := active[r.idx].EnsembleWeight()
		weightSum += w
		engagement += w * r.out.Engagement
		confidence += w * r.out.Confidence
		if r.out.Risk > maxRisk {
			maxRisk = r.out.Risk
		}
	}
	if weightSum > 0 {
		engagement /= weightSum
		confidence /= weightSum
	}
	participation := float64(len(used)) / float64(len(active))

	return models.PredictionResult{
		EngagementScore: engagement,
		AbandonmentRisk: maxRisk,
		Confidence:      confidence * participation,
	}
}
