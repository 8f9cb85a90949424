// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package config

import (
	"errors"
	"fmt"

	"github.com/directrix-io/directrix/internal/validation"
)

// Validate checks tag-level constraints and cross-field rules. It is
// called by Load; call it directly when constructing configs in tests.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateExperiments(); err != nil {
		return err
	}

	if c.Ensemble.ModelDeadline > c.Ensemble.Deadline {
		return fmt.Errorf("ensemble model_deadline %s exceeds deadline %s",
			c.Ensemble.ModelDeadline, c.Ensemble.Deadline)
	}

	return nil
}

// validateExperiments enforces variant-set invariants: unique names,
// positive total weight, overrides within range.
func (c *Config) validateExperiments() error {
	if len(c.Experiments) == 0 {
		return errors.New("at least one experiment variant is required")
	}

	seen := make(map[string]struct{}, len(c.Experiments))
	var totalWeight uint64
	for i := range c.Experiments {
		v := &c.Experiments[i]
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("duplicate experiment variant %q", v.Name)
		}
		seen[v.Name] = struct{}{}
		totalWeight += uint64(v.Weight)

		if t := v.Overrides.RiskThreshold; t != nil && (*t <= 0 || *t > 1) {
			return fmt.Errorf("variant %q risk_threshold %v out of (0,1]", v.Name, *t)
		}
		if cd := v.Overrides.Cooldown; cd != nil && *cd <= 0 {
			return fmt.Errorf("variant %q cooldown must be positive", v.Name)
		}
		if m := v.Overrides.MaxAdaptations; m != nil && *m <= 0 {
			return fmt.Errorf("variant %q max_adaptations must be positive", v.Name)
		}
	}

	if totalWeight == 0 {
		return errors.New("experiment variant weights sum to zero")
	}

	return nil
}
