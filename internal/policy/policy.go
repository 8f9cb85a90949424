// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package policy turns predictions into adaptation decisions.
//
// The policy is a per-session state machine: Monitoring until
// abandonment risk crosses the variant's threshold, a single decision
// while Adapting, then Cooldown until the variant's interval elapses.
// At most one adaptation is in flight per session, and a lifetime cap
// bounds how often one session can be adapted at all.
package policy

import (
	"time"

	"github.com/google/uuid"

	"github.com/directrix-io/directrix/internal/config"
	"github.com/directrix-io/directrix/internal/logging"
	"github.com/directrix-io/directrix/internal/metrics"
	"github.com/directrix-io/directrix/internal/models"
)

// engagement tiers selecting the candidate action set.
const (
	criticalEngagement = 0.3
	lowEngagement      = 0.6
	highEngagement     = 0.8
)

// VariantSource resolves experiment arms to their policy overrides.
type VariantSource interface {
	Variant(name string) (models.ExperimentVariant, bool)
}

// UpliftSource reports observed post-decision engagement change per
// action, scoped to one experiment variant.
type UpliftSource interface {
	ActionOutcomes(variant string) map[models.AdaptationAction]models.ActionOutcome
}

// Engine evaluates session snapshots against the adaptation policy.
// Safe for concurrent use; all mutable state lives in the session
// store, never here.
type Engine struct {
	cfg      config.PolicyConfig
	variants VariantSource
	ranker   *upliftRanker
}

// NewEngine builds a policy engine. uplift may be nil, in which case
// action ranking always uses the static disruption-cost order.
func NewEngine(cfg config.PolicyConfig, variants VariantSource, uplift UpliftSource) *Engine {
	return &Engine{
		cfg:      cfg,
		variants: variants,
		ranker:   newUpliftRanker(uplift, cfg.UpliftCacheTTL, cfg.MinObservations),
	}
}

// params are the effective policy parameters after variant overrides.
type params struct {
	riskThreshold  float64
	cooldown       time.Duration
	maxAdaptations int
}

func (e *Engine) effectiveParams(variant string) params {
	p := params{
		riskThreshold:  e.cfg.RiskThreshold,
		cooldown:       e.cfg.Cooldown,
		maxAdaptations: e.cfg.MaxAdaptations,
	}
	if e.variants == nil {
		return p
	}
	v, ok := e.variants.Variant(variant)
	if !ok {
		return p
	}
	if v.Overrides.RiskThreshold != nil {
		p.riskThreshold = *v.Overrides.RiskThreshold
	}
	if v.Overrides.Cooldown != nil {
		p.cooldown = *v.Overrides.Cooldown
	}
	if v.Overrides.MaxAdaptations != nil {
		p.maxAdaptations = *v.Overrides.MaxAdaptations
	}
	return p
}

// Cooldown returns the effective cooldown interval for a variant, for
// the store to stamp when applying a firing decision.
func (e *Engine) Cooldown(variant string) time.Duration {
	return e.effectiveParams(variant).cooldown
}

// Evaluate derives one decision from a session snapshot and its
// prediction. It never mutates the session; the caller folds the
// decision back through the store.
func (e *Engine) Evaluate(now time.Time, sess *models.Session, pred models.PredictionResult) models.AdaptationDecision {
	p := e.effectiveParams(sess.Variant)

	decision := models.AdaptationDecision{
		DecisionID: uuid.NewString(),
		SessionID:  sess.ID,
		Action:     models.ActionNone,
		BasedOn:    pred,
		Variant:    sess.Variant,
		State:      models.StateMonitoring,
		CreatedAt:  now,
	}

	if sess.InCooldown(now) {
		decision.State = models.StateCooldown
		return e.emit(decision)
	}

	capped := sess.AdaptationCount >= p.maxAdaptations
	action := e.selectAction(sess, pred, p, capped)
	if action == models.ActionNone {
		return e.emit(decision)
	}

	decision.Action = action
	decision.Parameters = actionParameters(action, pred)
	if capped {
		// Advisory only: past the lifetime cap a recommendation may
		// still surface, but it does not consume cooldown budget.
		decision.State = models.StateMonitoring
	} else {
		// Adapting marks the decision as firing; the store folds it
		// into Cooldown and charges the adaptation budget.
		decision.State = models.StateAdapting
	}
	return e.emit(decision)
}

// Fallback produces the conservative no-op decision used when the
// ensemble could not serve a prediction. Journaled like any other
// decision so the degraded mode is visible offline.
func (e *Engine) Fallback(now time.Time, sess *models.Session) models.AdaptationDecision {
	state := models.StateMonitoring
	if sess.InCooldown(now) {
		state = models.StateCooldown
	}
	return e.emit(models.AdaptationDecision{
		DecisionID: uuid.NewString(),
		SessionID:  sess.ID,
		Action:     models.ActionNone,
		Variant:    sess.Variant,
		State:      state,
		Fallback:   true,
		CreatedAt:  now,
	})
}

// selectAction picks the action for a session outside cooldown.
func (e *Engine) selectAction(sess *models.Session, pred models.PredictionResult, p params, capped bool) models.AdaptationAction {
	// Reward path: highly engaged sessions get bonus recommendations
	// even when nothing is at risk.
	if pred.AbandonmentRisk < p.riskThreshold {
		if pred.EngagementScore > highEngagement && sess.EngagementTrend() != models.TrendDecreasing {
			return models.ActionRecommend
		}
		return models.ActionNone
	}

	if capped {
		return models.ActionNone
	}

	if pred.AbandonmentRisk >= e.cfg.EscalationRisk {
		return models.ActionIntervene
	}

	var candidates []models.AdaptationAction
	switch {
	case pred.EngagementScore < criticalEngagement:
		candidates = []models.AdaptationAction{models.ActionIntervene, models.ActionReorderScenes}
	case pred.EngagementScore < lowEngagement:
		candidates = []models.AdaptationAction{models.ActionAdjustPacing, models.ActionReorderScenes}
	default:
		candidates = []models.AdaptationAction{models.ActionRecommend}
	}
	return e.ranker.best(sess.Variant, candidates)
}

// actionParameters builds the delivery-layer tuning payload.
func actionParameters(action models.AdaptationAction, pred models.PredictionResult) map[string]interface{} {
	switch action {
	case models.ActionAdjustPacing:
		// Lower engagement slows pacing further, floor 0.7.
		factor := 0.7 + 0.3*pred.EngagementScore
		return map[string]interface{}{"pacing_factor": factor}
	case models.ActionRecommend:
		slot := "alternative_content"
		if pred.EngagementScore > highEngagement {
			slot = "bonus_content"
		}
		return map[string]interface{}{"slot": slot}
	case models.ActionReorderScenes:
		return map[string]interface{}{"strategy": "high_interest_first"}
	case models.ActionIntervene:
		return map[string]interface{}{"overlay": "reengagement_prompt"}
	default:
		return nil
	}
}

func (e *Engine) emit(d models.AdaptationDecision) models.AdaptationDecision {
	metrics.Decisions.WithLabelValues(string(d.Action), d.Variant, boolLabel(d.Fallback)).Inc()
	logging.Debug().
		Str("decision_id", d.DecisionID).
		Str("session_id", d.SessionID).
		Str("action", string(d.Action)).
		Str("variant", d.Variant).
		Str("state", string(d.State)).
		Bool("fallback", d.Fallback).
		Msg("decision emitted")
	return d
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
