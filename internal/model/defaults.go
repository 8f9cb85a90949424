// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package model

import (
	"github.com/goccy/go-json"

	"github.com/directrix-io/directrix/internal/feature"
)

// DefaultArtifacts returns the built-in model set used when the
// artifact store is empty. The set covers all three model kinds so a
// fresh deployment exercises the full ensemble path.
func DefaultArtifacts(schema feature.Schema, schemaVersion int) [][]byte {
	artifacts := []Artifact{
		{
			ModelID:        "linear-v1",
			Version:        "builtin-1",
			SchemaVersion:  schemaVersion,
			Kind:           "linear",
			FeatureNames:   schema.Names,
			EnsembleWeight: 0.5,
			Weights:        defaultLinearWeights(schema),
			Bias:           0.4,
			Confidence:     0.7,
		},
		{
			ModelID:        "heuristic-v1",
			Version:        "builtin-1",
			SchemaVersion:  schemaVersion,
			Kind:           "threshold",
			FeatureNames:   schema.Names,
			EnsembleWeight: 0.3,
			Params: map[string]float64{
				"base":          0.7,
				"pause_penalty": 0.2,
				"seek_penalty":  0.4,
				"rewind_bonus":  0.1,
				"play_bonus":    0.1,
				"risk_gain":     1.0,
			},
			Confidence: 0.6,
		},
		{
			ModelID:        "trend-v1",
			Version:        "builtin-1",
			SchemaVersion:  schemaVersion,
			Kind:           "trend",
			FeatureNames:   schema.Names,
			EnsembleWeight: 0.2,
			Params: map[string]float64{
				"step":      0.15,
				"risk_gain": 1.2,
			},
			Confidence: 0.55,
		},
	}

	out := make([][]byte, 0, len(artifacts))
	for i := range artifacts {
		raw, err := json.Marshal(&artifacts[i])
		if err != nil {
			// Marshaling a fully static struct cannot fail.
			panic(err)
		}
		out = append(out, raw)
	}
	return out
}

// defaultLinearWeights maps hand-tuned coefficients onto the schema
// order. Unlisted features get zero weight.
func defaultLinearWeights(schema feature.Schema) []float64 {
	byName := map[string]float64{
		feature.FeatLastScore:  2.0,
		feature.FeatTrend:      1.5,
		feature.FeatPauseRatio: -1.2,
		feature.FeatSeekRatio:  -1.6,
		feature.FeatEventRate:  0.05,
		"freq_play":            0.4,
		"freq_rewind":          0.2,
		"freq_scene_complete":  0.6,
		"freq_fast_forward":    -0.8,
		"freq_abandon":         -3.0,
	}
	weights := make([]float64, len(schema.Names))
	for i, name := range schema.Names {
		weights[i] = byName[name]
	}
	return weights
}
