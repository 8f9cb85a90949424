// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/directrix-io/directrix/internal/models"
)

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidate_DuplicateVariant(t *testing.T) {
	cfg := Default()
	cfg.Experiments = []models.ExperimentVariant{
		{Name: "control", Weight: 1},
		{Name: "control", Weight: 2},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected duplicate variant name to be rejected")
	}
}

func TestValidate_VariantOverrideRanges(t *testing.T) {
	badRisk := 1.5
	cfg := Default()
	cfg.Experiments = []models.ExperimentVariant{
		{Name: "control", Weight: 1, Overrides: models.PolicyOverrides{RiskThreshold: &badRisk}},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected out-of-range risk threshold to be rejected")
	}

	badCooldown := -time.Minute
	cfg = Default()
	cfg.Experiments = []models.ExperimentVariant{
		{Name: "control", Weight: 1, Overrides: models.PolicyOverrides{Cooldown: &badCooldown}},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected negative cooldown to be rejected")
	}
}

func TestValidate_DeadlineOrdering(t *testing.T) {
	cfg := Default()
	cfg.Ensemble.ModelDeadline = cfg.Ensemble.Deadline * 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected model_deadline > deadline to be rejected")
	}
}

func TestValidate_NoVariants(t *testing.T) {
	cfg := Default()
	cfg.Experiments = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected empty variant set to be rejected")
	}
}

func TestLoadFrom_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9001
ensemble:
  deadline: 80ms
  model_deadline: 25ms
experiments:
  - name: control
    weight: 3
  - name: aggressive
    weight: 1
    policy_overrides:
      risk_threshold: 0.5
      cooldown: 1m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Server.Port)
	}
	if cfg.Ensemble.Deadline != 80*time.Millisecond {
		t.Errorf("expected 80ms deadline, got %s", cfg.Ensemble.Deadline)
	}
	// Defaults survive where the file is silent.
	if cfg.Session.IdleTTL != 30*time.Minute {
		t.Errorf("expected default idle TTL, got %s", cfg.Session.IdleTTL)
	}
	if len(cfg.Experiments) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(cfg.Experiments))
	}
	agg := cfg.Experiments[1]
	if agg.Overrides.RiskThreshold == nil || *agg.Overrides.RiskThreshold != 0.5 {
		t.Errorf("expected aggressive risk threshold 0.5, got %v", agg.Overrides.RiskThreshold)
	}
	if agg.Overrides.Cooldown == nil || *agg.Overrides.Cooldown != time.Minute {
		t.Errorf("expected aggressive cooldown 1m, got %v", agg.Overrides.Cooldown)
	}
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	t.Setenv("HTTP_PORT", "7777")
	t.Setenv("POLICY_RISK_THRESHOLD", "0.7")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("expected env port 7777, got %d", cfg.Server.Port)
	}
	if cfg.Policy.RiskThreshold != 0.7 {
		t.Errorf("expected env risk threshold 0.7, got %v", cfg.Policy.RiskThreshold)
	}
}

func TestLoadFrom_UnmappedEnvIgnored(t *testing.T) {
	t.Setenv("RANDOM_UNRELATED_VAR", "true")

	if _, err := LoadFrom(""); err != nil {
		t.Fatalf("unmapped env var must not break loading: %v", err)
	}
}
