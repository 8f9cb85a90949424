// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package models

import "time"

// PolicyOverrides are per-variant adjustments to the adaptation policy.
// Nil pointer fields fall through to the engine-wide defaults, so a
// variant only states what it changes.
type PolicyOverrides struct {
	// RiskThreshold is the abandonment risk above which the policy
	// transitions Monitoring -> Adapting.
	RiskThreshold *float64 `json:"risk_threshold,omitempty" koanf:"risk_threshold"`

	// Cooldown is the minimum interval between adaptations for a session.
	Cooldown *time.Duration `json:"cooldown,omitempty" koanf:"cooldown"`

	// MaxAdaptations caps adaptations per session; once reached the
	// policy only emits none or recommend.
	MaxAdaptations *int `json:"max_adaptations,omitempty" koanf:"max_adaptations"`
}

// ExperimentVariant is one A/B experiment arm. The variant set is
// process-wide configuration, read-only after load; reassignment of the
// traffic split happens only on explicit configuration reload.
type ExperimentVariant struct {
	// Name identifies the arm (e.g. "control", "aggressive").
	Name string `json:"name" koanf:"name" validate:"required"`

	// Weight is the relative share of sessions assigned to this arm.
	Weight uint32 `json:"weight" koanf:"weight" validate:"gt=0"`

	// Overrides adjust policy parameters for sessions in this arm.
	Overrides PolicyOverrides `json:"policy_overrides" koanf:"policy_overrides"`
}
