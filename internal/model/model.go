// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package model holds the prediction model registry and the model
// implementations it serves.
//
// Models are heterogeneous but share one capability interface; the
// ensemble is polymorphic over that interface, never over concrete
// kinds. The active set is copy-on-write behind an atomic pointer:
// readers never lock, and a swap is all-or-nothing — concurrent
// predictions observe either the full old set or the full new set.
//
// Training happens elsewhere. This package only serves artifacts:
// versioned JSON documents produced by the offline training pipeline,
// validated against the feature schema at load time and persisted in
// the artifact store so the active set survives restarts.
package model

import (
	"context"

	"github.com/directrix-io/directrix/internal/feature"
)

// Output is a single model's estimate for one feature vector.
type Output struct {
	// Engagement estimates the probability the viewer stays engaged.
	Engagement float64

	// Risk estimates the probability of imminent abandonment.
	Risk float64

	// Confidence is the model's self-reported certainty in [0,1].
	Confidence float64
}

// Model is the capability interface every prediction model implements.
type Model interface {
	// ID identifies the model within the active set.
	ID() string

	// Version is the artifact version this model was built from.
	Version() string

	// EnsembleWeight is this model's share in the weighted-average
	// aggregation of engagement scores.
	EnsembleWeight() float64

	// Predict scores one feature vector. Implementations must respect
	// ctx cancellation and be safe for concurrent use.
	Predict(ctx context.Context, vec feature.Vector) (Output, error)
}

// clamp bounds x to [0,1].
func clamp(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
