// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package model

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/goccy/go-json"

	"github.com/directrix-io/directrix/internal/feature"
)

const testSchemaVersion = 1

func validArtifact(schema feature.Schema) Artifact {
	return Artifact{
		ModelID:        "test-linear",
		Version:        "v1",
		SchemaVersion:  testSchemaVersion,
		Kind:           "linear",
		FeatureNames:   schema.Names,
		EnsembleWeight: 1.0,
		Weights:        make([]float64, schema.Len()),
		Bias:           0,
		Confidence:     0.8,
	}
}

func mustMarshal(t *testing.T, a Artifact) []byte {
	t.Helper()
	raw, err := json.Marshal(&a)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	return raw
}

func TestParseArtifactErrors(t *testing.T) {
	schema := feature.NewSchema()

	tests := []struct {
		name     string
		raw      func(t *testing.T) []byte
		wantKind LoadErrorKind
	}{
		{
			name:     "invalid json",
			raw:      func(t *testing.T) []byte { return []byte("{not json") },
			wantKind: CorruptArtifact,
		},
		{
			name: "missing model id",
			raw: func(t *testing.T) []byte {
				a := validArtifact(schema)
				a.ModelID = ""
				return mustMarshal(t, a)
			},
			wantKind: CorruptArtifact,
		},
		{
			name: "schema version mismatch",
			raw: func(t *testing.T) []byte {
				a := validArtifact(schema)
				a.SchemaVersion = 99
				return mustMarshal(t, a)
			},
			wantKind: VersionMismatch,
		},
		{
			name: "feature names disagree",
			raw: func(t *testing.T) []byte {
				a := validArtifact(schema)
				a.FeatureNames = []string{"something_else"}
				return mustMarshal(t, a)
			},
			wantKind: IncompatibleSchema,
		},
		{
			name: "non-positive ensemble weight",
			raw: func(t *testing.T) []byte {
				a := validArtifact(schema)
				a.EnsembleWeight = 0
				return mustMarshal(t, a)
			},
			wantKind: CorruptArtifact,
		},
		{
			name: "confidence out of range",
			raw: func(t *testing.T) []byte {
				a := validArtifact(schema)
				a.Confidence = 1.5
				return mustMarshal(t, a)
			},
			wantKind: CorruptArtifact,
		},
		{
			name: "linear weights wrong length",
			raw: func(t *testing.T) []byte {
				a := validArtifact(schema)
				a.Weights = []float64{1, 2, 3}
				return mustMarshal(t, a)
			},
			wantKind: IncompatibleSchema,
		},
		{
			name: "unknown kind",
			raw: func(t *testing.T) []byte {
				a := validArtifact(schema)
				a.Kind = "quantum"
				return mustMarshal(t, a)
			},
			wantKind: CorruptArtifact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseArtifact(tt.raw(t), schema, testSchemaVersion)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LoadError, got %T: %v", err, err)
			}
			if le.Kind != tt.wantKind {
				t.Errorf("error kind = %s, want %s", le.Kind, tt.wantKind)
			}
		})
	}
}

func TestParseArtifactValid(t *testing.T) {
	schema := feature.NewSchema()
	raw := mustMarshal(t, validArtifact(schema))

	m, art, err := ParseArtifact(raw, schema, testSchemaVersion)
	if err != nil {
		t.Fatalf("ParseArtifact: %v", err)
	}
	if m.ID() != "test-linear" || m.Version() != "v1" {
		t.Errorf("model identity = %s/%s, want test-linear/v1", m.ID(), m.Version())
	}
	if art.EnsembleWeight != 1.0 {
		t.Errorf("ensemble weight = %v, want 1.0", art.EnsembleWeight)
	}
}

func testVector(schema feature.Schema, values map[string]float64) feature.Vector {
	vec := feature.Vector{Values: make([]float64, schema.Len())}
	for name, v := range values {
		idx := schema.Index(name)
		if idx < 0 {
			panic("unknown feature " + name)
		}
		vec.Values[idx] = v
	}
	return vec
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLinearModelPredict(t *testing.T) {
	schema := feature.NewSchema()

	// Zero weights and bias produce sigmoid(0) = 0.5 regardless of input.
	m, _, err := ParseArtifact(mustMarshal(t, validArtifact(schema)), schema, testSchemaVersion)
	if err != nil {
		t.Fatalf("ParseArtifact: %v", err)
	}

	out, err := m.Predict(context.Background(), testVector(schema, map[string]float64{
		feature.FeatLastScore: 0.9,
	}))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !approx(out.Engagement, 0.5) {
		t.Errorf("engagement = %v, want 0.5", out.Engagement)
	}
	if !approx(out.Risk, 0.5) {
		t.Errorf("risk = %v, want 0.5", out.Risk)
	}

	// A single strong positive weight on the last score drives the
	// sigmoid well above the midpoint.
	a := validArtifact(schema)
	a.Weights[schema.Index(feature.FeatLastScore)] = 5.0
	m2, _, err := ParseArtifact(mustMarshal(t, a), schema, testSchemaVersion)
	if err != nil {
		t.Fatalf("ParseArtifact: %v", err)
	}
	out2, err := m2.Predict(context.Background(), testVector(schema, map[string]float64{
		feature.FeatLastScore: 1.0,
	}))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if out2.Engagement <= 0.9 {
		t.Errorf("engagement = %v, want > 0.9", out2.Engagement)
	}
}

func TestThresholdModelPredict(t *testing.T) {
	schema := feature.NewSchema()
	a := validArtifact(schema)
	a.ModelID = "test-threshold"
	a.Kind = "threshold"
	a.Weights = nil

	m, _, err := ParseArtifact(mustMarshal(t, a), schema, testSchemaVersion)
	if err != nil {
		t.Fatalf("ParseArtifact: %v", err)
	}

	tests := []struct {
		name           string
		values         map[string]float64
		wantEngagement float64
		wantRisk       float64
	}{
		{
			name:           "defaults only",
			values:         nil,
			wantEngagement: 0.7,
			wantRisk:       0.3,
		},
		{
			name: "penalties and bonuses combine",
			values: map[string]float64{
				feature.FeatPauseRatio: 0.5,  // -0.1
				feature.FeatSeekRatio:  0.25, // -0.1
				"freq_rewind":          1,    // +0.1
				"freq_play":            2,    // +0.2
			},
			wantEngagement: 0.8,
			wantRisk:       0.2,
		},
		{
			name: "abandonment forces max risk",
			values: map[string]float64{
				"freq_abandon": 1,
			},
			wantEngagement: 0.7,
			wantRisk:       1.0,
		},
		{
			name: "engagement clamps at zero",
			values: map[string]float64{
				feature.FeatPauseRatio: 10,
			},
			wantEngagement: 0,
			wantRisk:       1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := m.Predict(context.Background(), testVector(schema, tt.values))
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if !approx(out.Engagement, tt.wantEngagement) {
				t.Errorf("engagement = %v, want %v", out.Engagement, tt.wantEngagement)
			}
			if !approx(out.Risk, tt.wantRisk) {
				t.Errorf("risk = %v, want %v", out.Risk, tt.wantRisk)
			}
		})
	}
}

func TestTrendModelPredict(t *testing.T) {
	schema := feature.NewSchema()
	a := validArtifact(schema)
	a.ModelID = "test-trend"
	a.Kind = "trend"
	a.Weights = nil

	m, _, err := ParseArtifact(mustMarshal(t, a), schema, testSchemaVersion)
	if err != nil {
		t.Fatalf("ParseArtifact: %v", err)
	}

	tests := []struct {
		name           string
		trend          float64
		last           float64
		wantEngagement float64
	}{
		{"upward trend projects forward", 1, 0.5, 0.65},
		{"downward trend projects forward", -1, 0.5, 0.35},
		{"flat trend holds", 0, 0.5, 0.5},
		{"projection clamps at one", 1, 0.95, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := m.Predict(context.Background(), testVector(schema, map[string]float64{
				feature.FeatTrend:     tt.trend,
				feature.FeatLastScore: tt.last,
			}))
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if !approx(out.Engagement, tt.wantEngagement) {
				t.Errorf("engagement = %v, want %v", out.Engagement, tt.wantEngagement)
			}
			wantRisk := math.Min(1, (1-tt.wantEngagement)*1.2)
			if !approx(out.Risk, wantRisk) {
				t.Errorf("risk = %v, want %v", out.Risk, wantRisk)
			}
		})
	}
}

func TestPredictRespectsCancelledContext(t *testing.T) {
	schema := feature.NewSchema()
	m, _, err := ParseArtifact(mustMarshal(t, validArtifact(schema)), schema, testSchemaVersion)
	if err != nil {
		t.Fatalf("ParseArtifact: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Predict(ctx, testVector(schema, nil)); err == nil {
		t.Error("expected error from cancelled context")
	}
}
