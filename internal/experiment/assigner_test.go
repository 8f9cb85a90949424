// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package experiment

import (
	"fmt"
	"testing"

	"github.com/directrix-io/directrix/internal/models"
)

func twoVariants() []models.ExperimentVariant {
	return []models.ExperimentVariant{
		{Name: "control", Weight: 1},
		{Name: "aggressive", Weight: 1},
	}
}

func TestAssign_Idempotent(t *testing.T) {
	a := NewAssigner(twoVariants())

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("session-%d", i)
		first := a.Assign(id)
		for n := 0; n < 10; n++ {
			if got := a.Assign(id); got.Name != first.Name {
				t.Fatalf("assignment for %q flipped from %s to %s", id, first.Name, got.Name)
			}
		}
	}
}

func TestAssign_CoversAllVariants(t *testing.T) {
	a := NewAssigner(twoVariants())

	seen := map[string]int{}
	for i := 0; i < 1000; i++ {
		v := a.Assign(fmt.Sprintf("session-%d", i))
		seen[v.Name]++
	}

	if len(seen) != 2 {
		t.Fatalf("expected both variants to receive traffic, got %v", seen)
	}
	// Equal weights should split within a loose band.
	for name, count := range seen {
		if count < 300 || count > 700 {
			t.Errorf("variant %s received %d of 1000 sessions, expected a near-even split", name, count)
		}
	}
}

func TestAssign_WeightSkew(t *testing.T) {
	a := NewAssigner([]models.ExperimentVariant{
		{Name: "control", Weight: 9},
		{Name: "canary", Weight: 1},
	})

	seen := map[string]int{}
	for i := 0; i < 2000; i++ {
		seen[a.Assign(fmt.Sprintf("s-%d", i)).Name]++
	}

	if seen["canary"] == 0 {
		t.Fatal("canary variant received no traffic")
	}
	if seen["canary"] > seen["control"] {
		t.Errorf("9:1 weights inverted: %v", seen)
	}
}

func TestAssign_SingleVariant(t *testing.T) {
	a := NewAssigner([]models.ExperimentVariant{{Name: "control", Weight: 1}})
	if got := a.Assign("anything"); got.Name != "control" {
		t.Errorf("expected control, got %s", got.Name)
	}
}

func TestReload_ChangesSplitForNewLookups(t *testing.T) {
	a := NewAssigner([]models.ExperimentVariant{{Name: "control", Weight: 1}})

	a.Reload(twoVariants())

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		seen[a.Assign(fmt.Sprintf("s-%d", i)).Name] = true
	}
	if !seen["aggressive"] {
		t.Error("reloaded variant set should route traffic to the new arm")
	}

	if _, ok := a.Variant("aggressive"); !ok {
		t.Error("Variant lookup should see the reloaded arm")
	}
}

func TestVariants_ReturnsCopy(t *testing.T) {
	a := NewAssigner(twoVariants())
	vs := a.Variants()
	vs[0].Name = "mutated"

	if a.Variants()[0].Name == "mutated" {
		t.Error("Variants must return a copy, not the internal table")
	}
}
