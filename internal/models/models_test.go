// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package models

import (
	"testing"
	"time"
)

func TestEventType_Valid(t *testing.T) {
	tests := []struct {
		input EventType
		want  bool
	}{
		{EventPlay, true},
		{EventPause, true},
		{EventSeek, true},
		{EventSceneComplete, true},
		{EventAbandon, true},
		{EventRating, true},
		{EventType("bogus"), false},
		{EventType(""), false},
	}

	for _, tt := range tests {
		if got := tt.input.Valid(); got != tt.want {
			t.Errorf("EventType(%q).Valid() = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInteractionEvent_PayloadFloat(t *testing.T) {
	e := InteractionEvent{Payload: map[string]interface{}{
		"video_time": 12.5,
		"position":   int64(30),
		"label":      "intro",
	}}

	if v, ok := e.PayloadFloat("video_time"); !ok || v != 12.5 {
		t.Errorf("PayloadFloat(video_time) = %v, %v", v, ok)
	}
	if v, ok := e.PayloadFloat("position"); !ok || v != 30 {
		t.Errorf("PayloadFloat(position) = %v, %v", v, ok)
	}
	if _, ok := e.PayloadFloat("label"); ok {
		t.Error("string payload should not convert to float")
	}
	if _, ok := e.PayloadFloat("missing"); ok {
		t.Error("missing payload key should not convert")
	}
}

func TestSession_EngagementTrend(t *testing.T) {
	tests := []struct {
		name    string
		history []float64
		want    Trend
	}{
		{"empty", nil, TrendStable},
		{"too short", []float64{0.8, 0.7}, TrendStable},
		{"decreasing", []float64{0.9, 0.9, 0.9, 0.5, 0.4, 0.3}, TrendDecreasing},
		{"increasing", []float64{0.2, 0.3, 0.3, 0.7, 0.8, 0.9}, TrendIncreasing},
		{"stable", []float64{0.6, 0.6, 0.6, 0.62, 0.61, 0.63}, TrendStable},
		{"short history compares against prefix", []float64{0.9, 0.5, 0.4, 0.3}, TrendDecreasing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Session{EngagementHistory: tt.history}
			if got := s.EngagementTrend(); got != tt.want {
				t.Errorf("EngagementTrend() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSession_InCooldown(t *testing.T) {
	now := time.Now()

	s := Session{}
	if s.InCooldown(now) {
		t.Error("zero CooldownUntil should not be in cooldown")
	}

	s.CooldownUntil = now.Add(time.Minute)
	if !s.InCooldown(now) {
		t.Error("future CooldownUntil should be in cooldown")
	}
	if s.InCooldown(now.Add(2 * time.Minute)) {
		t.Error("elapsed cooldown should not be in cooldown")
	}
}

func TestAdaptationAction_DisruptionCost(t *testing.T) {
	// Pacing adjustment must always rank less disruptive than scene
	// reordering, and interventions must rank highest.
	if ActionAdjustPacing.DisruptionCost() >= ActionReorderScenes.DisruptionCost() {
		t.Error("adjust_pacing should cost less than reorder_scenes")
	}
	for _, a := range AdaptationActions() {
		if a == ActionIntervene {
			continue
		}
		if a.DisruptionCost() >= ActionIntervene.DisruptionCost() {
			t.Errorf("%s should cost less than intervene", a)
		}
	}
}

func TestTrend_String(t *testing.T) {
	if TrendIncreasing.String() != "increasing" ||
		TrendDecreasing.String() != "decreasing" ||
		TrendStable.String() != "stable" {
		t.Error("unexpected trend names")
	}
}
