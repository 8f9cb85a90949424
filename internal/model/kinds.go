// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package model

import (
	"context"
	"math"

	"github.com/directrix-io/directrix/internal/feature"
)

// linearModel is a logistic regression over the full feature vector.
type linearModel struct {
	id         string
	version    string
	weight     float64
	confidence float64
	weights    []float64
	bias       float64
}

func newLinearModel(a *Artifact) *linearModel {
	weights := make([]float64, len(a.Weights))
	copy(weights, a.Weights)
	return &linearModel{
		id:         a.ModelID,
		version:    a.Version,
		weight:     a.EnsembleWeight,
		confidence: a.Confidence,
		weights:    weights,
		bias:       a.Bias,
	}
}

func (m *linearModel) ID() string              { return m.id }
func (m *linearModel) Version() string         { return m.version }
func (m *linearModel) EnsembleWeight() float64 { return m.weight }

func (m *linearModel) Predict(ctx context.Context, vec feature.Vector) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	z := m.bias
	for i, w := range m.weights {
		if i >= len(vec.Values) {
			break
		}
		z += w * vec.Values[i]
	}
	engagement := sigmoid(z)

	return Output{
		Engagement: engagement,
		Risk:       clamp(1 - engagement),
		Confidence: m.confidence,
	}, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// thresholdModel is a deterministic rule cascade over behavioral
// ratios: pauses and seeks penalize engagement, rewinds and plays
// boost it. Parameter names mirror the training pipeline's export.
type thresholdModel struct {
	id         string
	version    string
	weight     float64
	confidence float64

	base         float64
	pausePenalty float64
	seekPenalty  float64
	rewindBonus  float64
	playBonus    float64
	riskGain     float64

	idxPauseRatio  int
	idxSeekRatio   int
	idxFreqRewind  int
	idxFreqPlay    int
	idxFreqAbandon int
}

func newThresholdModel(a *Artifact, schema feature.Schema) (*thresholdModel, error) {
	get := func(name string, def float64) float64 {
		if v, ok := a.Params[name]; ok {
			return v
		}
		return def
	}

	m := &thresholdModel{
		id:         a.ModelID,
		version:    a.Version,
		weight:     a.EnsembleWeight,
		confidence: a.Confidence,

		base:         get("base", 0.7),
		pausePenalty: get("pause_penalty", 0.2),
		seekPenalty:  get("seek_penalty", 0.4),
		rewindBonus:  get("rewind_bonus", 0.1),
		playBonus:    get("play_bonus", 0.1),
		riskGain:     get("risk_gain", 1.0),

		idxPauseRatio:  schema.Index(feature.FeatPauseRatio),
		idxSeekRatio:   schema.Index(feature.FeatSeekRatio),
		idxFreqRewind:  schema.Index("freq_rewind"),
		idxFreqPlay:    schema.Index("freq_play"),
		idxFreqAbandon: schema.Index("freq_abandon"),
	}
	if m.idxPauseRatio < 0 || m.idxSeekRatio < 0 || m.idxFreqRewind < 0 ||
		m.idxFreqPlay < 0 || m.idxFreqAbandon < 0 {
		return nil, loadErr(IncompatibleSchema, a.ModelID, "schema missing behavioral features")
	}
	return m, nil
}

func (m *thresholdModel) ID() string              { return m.id }
func (m *thresholdModel) Version() string         { return m.version }
func (m *thresholdModel) EnsembleWeight() float64 { return m.weight }

func (m *thresholdModel) Predict(ctx context.Context, vec feature.Vector) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	engagement := m.base
	engagement -= vec.Values[m.idxPauseRatio] * m.pausePenalty
	engagement -= vec.Values[m.idxSeekRatio] * m.seekPenalty
	engagement += vec.Values[m.idxFreqRewind] * m.rewindBonus
	engagement += vec.Values[m.idxFreqPlay] * m.playBonus
	engagement = clamp(engagement)

	risk := clamp((1 - engagement) * m.riskGain)
	if vec.Values[m.idxFreqAbandon] > 0 {
		risk = 1
	}

	return Output{Engagement: engagement, Risk: risk, Confidence: m.confidence}, nil
}

// trendModel projects the recent engagement direction forward: a
// decreasing trend pushes risk up, an increasing one pulls it down.
type trendModel struct {
	id         string
	version    string
	weight     float64
	confidence float64

	step     float64
	riskGain float64

	idxTrend     int
	idxLastScore int
}

func newTrendModel(a *Artifact, schema feature.Schema) (*trendModel, error) {
	get := func(name string, def float64) float64 {
		if v, ok := a.Params[name]; ok {
			return v
		}
		return def
	}

	m := &trendModel{
		id:         a.ModelID,
		version:    a.Version,
		weight:     a.EnsembleWeight,
		confidence: a.Confidence,

		step:     get("step", 0.15),
		riskGain: get("risk_gain", 1.2),

		idxTrend:     schema.Index(feature.FeatTrend),
		idxLastScore: schema.Index(feature.FeatLastScore),
	}
	if m.idxTrend < 0 || m.idxLastScore < 0 {
		return nil, loadErr(IncompatibleSchema, a.ModelID, "schema missing trend features")
	}
	return m, nil
}

func (m *trendModel) ID() string              { return m.id }
func (m *trendModel) Version() string         { return m.version }
func (m *trendModel) EnsembleWeight() float64 { return m.weight }

func (m *trendModel) Predict(ctx context.Context, vec feature.Vector) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	trend := vec.Values[m.idxTrend] // -1, 0, or 1
	last := vec.Values[m.idxLastScore]

	engagement := clamp(last + trend*m.step)
	risk := clamp((1 - engagement) * m.riskGain)

	return Output{Engagement: engagement, Risk: risk, Confidence: m.confidence}, nil
}
