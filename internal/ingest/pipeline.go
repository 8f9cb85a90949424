// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package ingest is the decision pipeline entry point: it validates
// interaction events, folds them into session state, and drives the
// predict/decide cycle that produces one decision per accepted event.
//
// Admission control happens here, not in the HTTP layer: a bounded
// slot pool caps concurrent cycles, and everything beyond the ceiling
// is rejected immediately so latency stays flat under overload.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/directrix-io/directrix/internal/aggregate"
	"github.com/directrix-io/directrix/internal/config"
	"github.com/directrix-io/directrix/internal/ensemble"
	"github.com/directrix-io/directrix/internal/feature"
	"github.com/directrix-io/directrix/internal/logging"
	"github.com/directrix-io/directrix/internal/metrics"
	"github.com/directrix-io/directrix/internal/models"
	"github.com/directrix-io/directrix/internal/policy"
	"github.com/directrix-io/directrix/internal/session"
	"github.com/directrix-io/directrix/internal/validation"
	"golang.org/x/time/rate"
)

// RawEvent is the wire form of one interaction event.
type RawEvent struct {
	SessionID      string                 `json:"session_id" validate:"required,max=128"`
	EventType      string                 `json:"event_type" validate:"required"`
	Timestamp      time.Time              `json:"timestamp" validate:"required"`
	SequenceNumber uint64                 `json:"sequence_number"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
}

// Publisher decouples the pipeline from the bus implementation.
type Publisher interface {
	PublishDecision(d *models.AdaptationDecision) error
}

// Pipeline wires the full per-event cycle: session store, feature
// extraction, ensemble, policy, aggregation, and decision publication.
type Pipeline struct {
	cfg        config.IngestConfig
	store      *session.Store
	extractor  *feature.Extractor
	predictor  *ensemble.Predictor
	engine     *policy.Engine
	aggregator *aggregate.Aggregator
	publisher  Publisher

	slots   chan struct{}
	limiter *rate.Limiter

	nowFunc func() time.Time
}

// NewPipeline assembles the pipeline.
func NewPipeline(
	cfg config.IngestConfig,
	store *session.Store,
	extractor *feature.Extractor,
	predictor *ensemble.Predictor,
	engine *policy.Engine,
	aggregator *aggregate.Aggregator,
	publisher Publisher,
) *Pipeline {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		extractor:  extractor,
		predictor:  predictor,
		engine:     engine,
		aggregator: aggregator,
		publisher:  publisher,
		slots:      make(chan struct{}, cfg.MaxInFlight),
		limiter:    limiter,
		nowFunc:    time.Now,
	}
}

// Process runs one event through the full cycle and returns the
// decision it produced. Rejections return a *RejectError.
func (p *Pipeline) Process(ctx context.Context, raw *RawEvent) (*models.AdaptationDecision, error) {
	if p.limiter != nil && !p.limiter.Allow() {
		metrics.EventsRejected.WithLabelValues(string(ReasonOverloaded)).Inc()
		return nil, reject(ReasonOverloaded, "ingestion rate limit %.0f/s exceeded", p.cfg.RateLimit)
	}
	select {
	case p.slots <- struct{}{}:
	default:
		metrics.EventsRejected.WithLabelValues(string(ReasonOverloaded)).Inc()
		return nil, reject(ReasonOverloaded, "concurrency ceiling %d reached", p.cfg.MaxInFlight)
	}
	metrics.InFlightEvents.Inc()
	defer func() {
		<-p.slots
		metrics.InFlightEvents.Dec()
	}()

	start := p.nowFunc()
	defer metrics.ObservePipeline(start)

	event, err := p.admit(raw, start)
	if err != nil {
		return nil, err
	}

	snap := p.store.AppendEvent(*event, start)
	p.aggregator.RecordEvent(snap.Variant)
	metrics.EventsAccepted.WithLabelValues(string(event.Type)).Inc()

	decision := p.decide(ctx, &snap, start)

	p.store.ApplyDecision(decision, p.engine.Cooldown(snap.Variant), start)
	p.aggregator.RecordDecision(*decision)

	if err := p.publisher.PublishDecision(decision); err != nil {
		// Consumers are best-effort; the decision already applied.
		logging.Error().Err(err).Str("decision_id", decision.DecisionID).Msg("decision publish failed")
	}
	return decision, nil
}

// admit validates the raw event against the boundary rules.
func (p *Pipeline) admit(raw *RawEvent, now time.Time) (*models.InteractionEvent, error) {
	if err := validation.ValidateStruct(raw); err != nil {
		metrics.EventsRejected.WithLabelValues(string(ReasonMalformed)).Inc()
		return nil, reject(ReasonMalformed, "%v", err)
	}

	eventType := models.EventType(raw.EventType)
	if !eventType.Valid() {
		metrics.EventsRejected.WithLabelValues(string(ReasonUnknownType)).Inc()
		return nil, reject(ReasonUnknownType, "event_type %q", raw.EventType)
	}

	if skew := raw.Timestamp.Sub(now); skew > p.cfg.ClockSkew || skew < -p.cfg.ClockSkew {
		metrics.EventsRejected.WithLabelValues(string(ReasonClockSkew)).Inc()
		return nil, reject(ReasonClockSkew, "timestamp %s outside ±%s of server time", raw.Timestamp.Format(time.RFC3339), p.cfg.ClockSkew)
	}

	return &models.InteractionEvent{
		SessionID:      raw.SessionID,
		Type:           eventType,
		Timestamp:      raw.Timestamp,
		SequenceNumber: raw.SequenceNumber,
		Payload:        raw.Payload,
	}, nil
}

// decide runs extract -> predict -> evaluate on one session snapshot.
// An unavailable ensemble degrades to the policy's fallback decision.
func (p *Pipeline) decide(ctx context.Context, snap *models.Session, now time.Time) *models.AdaptationDecision {
	vec, err := p.extractor.Extract(snap, now)
	if err != nil {
		logging.Warn().Err(err).Str("session_id", snap.ID).Msg("feature extraction failed")
		d := p.engine.Fallback(now, snap)
		return &d
	}

	pred, err := p.predictor.Predict(ctx, vec)
	if err != nil {
		if !errors.Is(err, ensemble.ErrPredictionUnavailable) {
			logging.Error().Err(err).Str("session_id", snap.ID).Msg("ensemble failed")
		}
		d := p.engine.Fallback(now, snap)
		return &d
	}

	p.store.RecordPrediction(snap.ID, pred.EngagementScore)
	p.aggregator.RecordPrediction(snap.Variant, snap.ID, pred)

	d := p.engine.Evaluate(now, snap, pred)
	return &d
}
