// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package model

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/directrix-io/directrix/internal/feature"
)

// LoadErrorKind classifies artifact load failures. Load errors are
// local to the registry and its administrative caller; they are never
// propagated to end users.
type LoadErrorKind string

const (
	// CorruptArtifact means the artifact bytes do not decode or carry
	// inconsistent contents.
	CorruptArtifact LoadErrorKind = "corrupt_artifact"

	// VersionMismatch means the artifact schema version is not one this
	// build can serve.
	VersionMismatch LoadErrorKind = "version_mismatch"

	// IncompatibleSchema means the artifact's feature layout disagrees
	// with the extractor's schema.
	IncompatibleSchema LoadErrorKind = "incompatible_schema"
)

// LoadError is the typed failure of an artifact load.
type LoadError struct {
	Kind    LoadErrorKind
	ModelID string
	Detail  string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("model load %s (model=%s): %s", e.Kind, e.ModelID, e.Detail)
}

func loadErr(kind LoadErrorKind, modelID, format string, args ...interface{}) *LoadError {
	return &LoadError{Kind: kind, ModelID: modelID, Detail: fmt.Sprintf(format, args...)}
}

// Artifact is the serialized form of a trained model, produced by the
// offline training pipeline and served here.
type Artifact struct {
	// ModelID names the model slot; loading an artifact with an
	// existing ID replaces that model in the next set.
	ModelID string `json:"model_id"`

	// Version is an opaque artifact version (e.g. training run ID).
	Version string `json:"version"`

	// SchemaVersion is the artifact format version.
	SchemaVersion int `json:"schema_version"`

	// Kind selects the model implementation: linear, threshold, trend.
	Kind string `json:"kind"`

	// FeatureNames is the ordered feature schema the artifact was
	// trained against. Must match the extractor schema exactly.
	FeatureNames []string `json:"feature_names"`

	// EnsembleWeight is the model's share in ensemble aggregation.
	EnsembleWeight float64 `json:"ensemble_weight"`

	// Weights, Bias parameterize the linear kind (ordered per
	// FeatureNames). Params parameterizes the threshold and trend kinds.
	Weights []float64          `json:"weights,omitempty"`
	Bias    float64            `json:"bias,omitempty"`
	Params  map[string]float64 `json:"params,omitempty"`

	// Confidence is the model's self-reported certainty.
	Confidence float64 `json:"confidence"`
}

// ParseArtifact decodes and validates artifact bytes against the
// serving schema, returning a ready model.
func ParseArtifact(raw []byte, schema feature.Schema, schemaVersion int) (Model, *Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, nil, loadErr(CorruptArtifact, "", "invalid JSON: %v", err)
	}
	if a.ModelID == "" {
		return nil, nil, loadErr(CorruptArtifact, "", "missing model_id")
	}
	if a.SchemaVersion != schemaVersion {
		return nil, nil, loadErr(VersionMismatch, a.ModelID,
			"artifact schema_version %d, serving %d", a.SchemaVersion, schemaVersion)
	}
	if !schema.Compatible(feature.Schema{Names: a.FeatureNames}) {
		return nil, nil, loadErr(IncompatibleSchema, a.ModelID,
			"feature schema fingerprint %s does not match serving schema %s",
			(feature.Schema{Names: a.FeatureNames}).Fingerprint(), schema.Fingerprint())
	}
	if a.EnsembleWeight <= 0 {
		return nil, nil, loadErr(CorruptArtifact, a.ModelID, "ensemble_weight must be positive")
	}
	if a.Confidence <= 0 || a.Confidence > 1 {
		return nil, nil, loadErr(CorruptArtifact, a.ModelID, "confidence %v out of (0,1]", a.Confidence)
	}

	m, err := buildModel(&a, schema)
	if err != nil {
		return nil, nil, err
	}
	return m, &a, nil
}

// buildModel dispatches on artifact kind.
func buildModel(a *Artifact, schema feature.Schema) (Model, error) {
	switch a.Kind {
	case "linear":
		if len(a.Weights) != schema.Len() {
			return nil, loadErr(IncompatibleSchema, a.ModelID,
				"linear weights length %d, schema length %d", len(a.Weights), schema.Len())
		}
		return newLinearModel(a), nil
	case "threshold":
		return newThresholdModel(a, schema)
	case "trend":
		return newTrendModel(a, schema)
	default:
		return nil, loadErr(CorruptArtifact, a.ModelID, "unknown kind %q", a.Kind)
	}
}
