// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package journal

import (
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/directrix-io/directrix/internal/config"
	"github.com/directrix-io/directrix/internal/models"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(config.JournalConfig{Enabled: true, Retention: time.Hour})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func decisionPayload(t *testing.T, d *models.AdaptationDecision) []byte {
	t.Helper()
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal decision: %v", err)
	}
	return raw
}

func TestAppendAndRecentNewestFirst(t *testing.T) {
	j := openTestJournal(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		d := &models.AdaptationDecision{
			DecisionID: fmt.Sprintf("d%d", i),
			SessionID:  "s1",
			Action:     models.ActionAdjustPacing,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := j.Append(d, decisionPayload(t, d)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	got, err := j.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("recent = %d entries, want 3", len(got))
	}
	for i, want := range []string{"d4", "d3", "d2"} {
		if got[i].DecisionID != want {
			t.Errorf("recent[%d] = %s, want %s", i, got[i].DecisionID, want)
		}
	}
}

func TestRecentOnEmptyJournal(t *testing.T) {
	j := openTestJournal(t)
	got, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("recent = %d entries, want 0", len(got))
	}
}

func TestHandlerJournalsBusMessages(t *testing.T) {
	j := openTestJournal(t)
	handler := j.Handler()

	d := &models.AdaptationDecision{
		DecisionID: "d1",
		SessionID:  "s1",
		Action:     models.ActionIntervene,
		CreatedAt:  time.Now().UTC(),
	}
	msg := message.NewMessage("m1", decisionPayload(t, d))
	if err := handler(msg); err != nil {
		t.Fatalf("handler: %v", err)
	}

	got, err := j.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].DecisionID != "d1" {
		t.Fatalf("journaled = %+v, want decision d1", got)
	}
}

func TestHandlerDropsMalformedMessages(t *testing.T) {
	j := openTestJournal(t)
	handler := j.Handler()

	// Malformed payloads must not error, or the bus would retry forever.
	if err := handler(message.NewMessage("m1", []byte("{broken"))); err != nil {
		t.Fatalf("handler returned error for malformed payload: %v", err)
	}
	got, err := j.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("journal has %d entries, want 0", len(got))
	}
}
