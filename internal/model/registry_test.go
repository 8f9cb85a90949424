// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package model

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/directrix-io/directrix/internal/feature"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store, err := OpenStore("")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	r, err := NewRegistry(feature.NewSchema(), testSchemaVersion, store)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestRegistryBootstrapsDefaults(t *testing.T) {
	r := newTestRegistry(t)

	models := r.ActiveModels()
	if len(models) != 3 {
		t.Fatalf("active models = %d, want 3 defaults", len(models))
	}
	// Stable ID order.
	for i := 1; i < len(models); i++ {
		if models[i-1].ID() >= models[i].ID() {
			t.Errorf("models not sorted: %s before %s", models[i-1].ID(), models[i].ID())
		}
	}
	if !strings.HasPrefix(r.Version(), "gen-1/") {
		t.Errorf("version = %q, want gen-1 prefix", r.Version())
	}
}

func TestRegistryRestoresFromStore(t *testing.T) {
	store, err := OpenStore("")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	schema := feature.NewSchema()
	a := validArtifact(schema)
	a.ModelID = "restored"
	if err := store.Put(a.ModelID, mustMarshal(t, a)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	r, err := NewRegistry(schema, testSchemaVersion, store)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	models := r.ActiveModels()
	if len(models) != 1 || models[0].ID() != "restored" {
		t.Fatalf("active models = %v, want [restored]", modelIDs(models))
	}
}

func TestRegistryLoadReplacesByID(t *testing.T) {
	r := newTestRegistry(t)
	schema := feature.NewSchema()

	a := validArtifact(schema)
	a.ModelID = "linear-v1"
	a.Version = "retrained"
	if err := r.Load(mustMarshal(t, a)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	models := r.ActiveModels()
	if len(models) != 3 {
		t.Fatalf("active models = %d, want 3 after replace", len(models))
	}
	var found bool
	for _, m := range models {
		if m.ID() == "linear-v1" {
			found = true
			if m.Version() != "retrained" {
				t.Errorf("replaced model version = %s, want retrained", m.Version())
			}
		}
	}
	if !found {
		t.Error("replaced model missing from active set")
	}
	if !strings.HasPrefix(r.Version(), "gen-2/") {
		t.Errorf("version = %q, want gen-2 prefix after swap", r.Version())
	}
}

func TestRegistryLoadRejectsBadArtifact(t *testing.T) {
	r := newTestRegistry(t)
	before := len(r.ActiveModels())

	if err := r.Load([]byte("{broken")); err == nil {
		t.Fatal("expected load error")
	}
	if got := len(r.ActiveModels()); got != before {
		t.Errorf("active models = %d after failed load, want %d", got, before)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Remove("trend-v1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := r.Remove("heuristic-v1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if err := r.Remove("linear-v1"); !errors.Is(err, ErrLastModel) {
		t.Errorf("removing last model: err = %v, want ErrLastModel", err)
	}
	if err := r.Remove("no-such-model"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("removing unknown model: err = %v, want ErrUnknownModel", err)
	}
	if got := len(r.ActiveModels()); got != 1 {
		t.Errorf("active models = %d, want 1", got)
	}
}

func TestRegistrySwapAtomicity(t *testing.T) {
	r := newTestRegistry(t)
	schema := feature.NewSchema()

	const iterations = 200

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers: every observed set must be internally consistent —
	// unique IDs in sorted order, never empty, and the flip model
	// present at most once regardless of concurrent replacement.
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				models := r.ActiveModels()
				if len(models) == 0 {
					t.Error("observed empty model set")
					return
				}
				flips := 0
				for i, m := range models {
					if i > 0 && models[i-1].ID() >= m.ID() {
						t.Errorf("observed unsorted set: %v", modelIDs(models))
						return
					}
					if m.ID() == "flip" {
						flips++
					}
				}
				if flips > 1 {
					t.Errorf("observed %d copies of flip model", flips)
					return
				}
			}
		}()
	}

	for i := range iterations {
		a := validArtifact(schema)
		a.ModelID = "flip"
		if i%2 == 0 {
			a.Version = "even"
		} else {
			a.Version = "odd"
		}
		if err := r.Load(mustMarshal(t, a)); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	close(stop)
	wg.Wait()

	if got := len(r.ActiveModels()); got != 4 {
		t.Errorf("active models = %d, want defaults plus flip", got)
	}
}

func modelIDs(models []Model) []string {
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID()
	}
	return ids
}
