// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package models

import "time"

// PredictionResult is the ensemble's estimate for one decision cycle.
// Immutable; produced once per ingested event.
type PredictionResult struct {
	SessionID string `json:"session_id"`

	// EngagementScore estimates the probability the viewer remains
	// actively engaged, in [0,1].
	EngagementScore float64 `json:"engagement_score"`

	// AbandonmentRisk estimates the probability the viewer stops watching
	// imminently, in [0,1].
	AbandonmentRisk float64 `json:"abandonment_risk"`

	// ModelVersion identifies the active model set that produced this
	// result.
	ModelVersion string `json:"model_version"`

	// Confidence is scaled down proportionally when models are excluded
	// for exceeding their sub-deadline or tripping their breaker.
	Confidence float64 `json:"confidence"`

	// ModelsTotal and ModelsUsed describe ensemble participation.
	ModelsTotal int `json:"models_total"`
	ModelsUsed  int `json:"models_used"`

	// LatencyMs is the wall-clock cost of the ensemble call.
	LatencyMs float64 `json:"latency_ms"`

	Timestamp time.Time `json:"timestamp"`
}

// AdaptationAction is a concrete content-delivery change.
type AdaptationAction string

const (
	ActionNone          AdaptationAction = "none"
	ActionAdjustPacing  AdaptationAction = "adjust_pacing"
	ActionRecommend     AdaptationAction = "recommend"
	ActionReorderScenes AdaptationAction = "reorder_scenes"
	ActionIntervene     AdaptationAction = "intervene"
)

// AdaptationActions lists every emittable action.
func AdaptationActions() []AdaptationAction {
	return []AdaptationAction{
		ActionNone,
		ActionAdjustPacing,
		ActionRecommend,
		ActionReorderScenes,
		ActionIntervene,
	}
}

// DisruptionCost ranks how intrusive an action is to the viewing
// experience. Ties in expected uplift break toward the lower cost.
func (a AdaptationAction) DisruptionCost() int {
	switch a {
	case ActionNone:
		return 0
	case ActionAdjustPacing:
		return 1
	case ActionRecommend:
		return 2
	case ActionReorderScenes:
		return 3
	case ActionIntervene:
		return 4
	default:
		return 5
	}
}

// Valid reports whether a is a known action.
func (a AdaptationAction) Valid() bool {
	return a.DisruptionCost() <= 4
}

// ActionOutcome summarizes the observed engagement change following
// decisions that emitted one action, per experiment variant.
type ActionOutcome struct {
	// Observations is the number of completed decision-outcome pairs.
	Observations int64 `json:"observations"`

	// MeanUplift is the mean engagement delta measured after the action.
	MeanUplift float64 `json:"mean_uplift"`
}

// AdaptationDecision is the engine's output artifact. Immutable. Every
// decision references exactly one PredictionResult and the session
// snapshot it was derived from.
type AdaptationDecision struct {
	// DecisionID uniquely identifies the decision for journaling and
	// outcome attribution.
	DecisionID string `json:"decision_id"`

	SessionID string `json:"session_id"`

	// Action is the directive for the delivery layer.
	Action AdaptationAction `json:"action"`

	// Parameters carry action-specific tuning (pacing factor, scene
	// ordering hints, recommendation seeds).
	Parameters map[string]interface{} `json:"parameters,omitempty"`

	// BasedOn is the prediction this decision was derived from.
	BasedOn PredictionResult `json:"based_on"`

	// Variant is the experiment arm whose policy parameters applied.
	Variant string `json:"variant"`

	// State is the policy state after this decision.
	State PolicyState `json:"state"`

	// Fallback marks decisions produced by the conservative static rule
	// when the ensemble was unavailable. Journaled for offline review.
	Fallback bool `json:"fallback,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
