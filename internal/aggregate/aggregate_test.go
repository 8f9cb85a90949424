// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package aggregate

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/directrix-io/directrix/internal/models"
)

func TestRecordPredictionAccumulates(t *testing.T) {
	a := NewAggregator()

	a.RecordEvent("control")
	a.RecordEvent("control")
	a.RecordPrediction("control", "s1", models.PredictionResult{EngagementScore: 0.8, AbandonmentRisk: 0.2})
	a.RecordPrediction("control", "s2", models.PredictionResult{EngagementScore: 0.4, AbandonmentRisk: 0.6})

	snaps := a.Snapshot()
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snaps))
	}
	s := snaps[0]
	if s.Events != 2 || s.Predictions != 2 {
		t.Errorf("events/predictions = %d/%d, want 2/2", s.Events, s.Predictions)
	}
	if math.Abs(s.MeanEngagement-0.6) > 1e-9 {
		t.Errorf("mean engagement = %v, want 0.6", s.MeanEngagement)
	}
	if math.Abs(s.MeanRisk-0.4) > 1e-9 {
		t.Errorf("mean risk = %v, want 0.4", s.MeanRisk)
	}
}

func TestDecisionOutcomeResolution(t *testing.T) {
	a := NewAggregator()

	d := models.AdaptationDecision{
		DecisionID: "d1",
		SessionID:  "s1",
		Action:     models.ActionAdjustPacing,
		Variant:    "control",
		BasedOn:    models.PredictionResult{EngagementScore: 0.4},
		CreatedAt:  time.Now(),
	}
	a.RecordDecision(d)

	// The next prediction for the session resolves the outcome: uplift
	// is the engagement delta since the decision.
	a.RecordPrediction("control", "s1", models.PredictionResult{EngagementScore: 0.55, AbandonmentRisk: 0.3})

	outcomes := a.ActionOutcomes("control")
	o := outcomes[models.ActionAdjustPacing]
	if o.Observations != 1 {
		t.Fatalf("observations = %d, want 1", o.Observations)
	}
	if math.Abs(o.MeanUplift-0.15) > 1e-9 {
		t.Errorf("mean uplift = %v, want 0.15", o.MeanUplift)
	}

	// Resolution is one-shot.
	a.RecordPrediction("control", "s1", models.PredictionResult{EngagementScore: 0.9})
	if got := a.ActionOutcomes("control")[models.ActionAdjustPacing].Observations; got != 1 {
		t.Errorf("observations after second prediction = %d, want 1", got)
	}
}

func TestNoneDecisionsLeaveNoPendingOutcome(t *testing.T) {
	a := NewAggregator()

	a.RecordDecision(models.AdaptationDecision{
		DecisionID: "d1",
		SessionID:  "s1",
		Action:     models.ActionNone,
		Variant:    "control",
	})
	a.RecordPrediction("control", "s1", models.PredictionResult{EngagementScore: 0.7})

	for action, o := range a.ActionOutcomes("control") {
		if o.Observations != 0 {
			t.Errorf("action %s observations = %d, want 0", action, o.Observations)
		}
	}
	if got := a.Snapshot()[0].Decisions[models.ActionNone]; got != 1 {
		t.Errorf("none decisions = %d, want 1", got)
	}
}

func TestFallbackDecisionsCounted(t *testing.T) {
	a := NewAggregator()
	a.RecordDecision(models.AdaptationDecision{
		DecisionID: "d1",
		SessionID:  "s1",
		Action:     models.ActionNone,
		Variant:    "control",
		Fallback:   true,
	})
	if got := a.Snapshot()[0].Fallbacks; got != 1 {
		t.Errorf("fallbacks = %d, want 1", got)
	}
}

func TestConcurrentRecordingLosesNothing(t *testing.T) {
	a := NewAggregator()

	const (
		workers = 8
		perW    = 1000
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			variant := "control"
			if w%2 == 1 {
				variant = "aggressive"
			}
			for i := 0; i < perW; i++ {
				sid := fmt.Sprintf("s-%d-%d", w, i)
				a.RecordEvent(variant)
				a.RecordPrediction(variant, sid, models.PredictionResult{
					EngagementScore: 0.5,
					AbandonmentRisk: 0.25,
				})
			}
		}(w)
	}
	wg.Wait()

	var events, predictions int64
	for _, s := range a.Snapshot() {
		events += s.Events
		predictions += s.Predictions
		if math.Abs(s.MeanEngagement-0.5) > 1e-9 {
			t.Errorf("variant %s mean engagement = %v, want 0.5", s.Variant, s.MeanEngagement)
		}
	}
	if events != workers*perW {
		t.Errorf("events = %d, want %d", events, workers*perW)
	}
	if predictions != workers*perW {
		t.Errorf("predictions = %d, want %d", predictions, workers*perW)
	}
}

func TestAtomicFloatConcurrentAdds(t *testing.T) {
	var f atomicFloat
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				f.Add(0.5)
			}
		}()
	}
	wg.Wait()
	if got := f.Load(); math.Abs(got-4000) > 1e-6 {
		t.Errorf("sum = %v, want 4000", got)
	}
}
