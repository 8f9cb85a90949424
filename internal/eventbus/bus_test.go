// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/directrix-io/directrix/internal/models"
)

func TestPublishDecisionReachesSubscriber(t *testing.T) {
	bus, err := NewBus()
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	defer bus.Close()

	received := make(chan *models.AdaptationDecision, 1)
	bus.Subscribe("test-handler", func(msg *message.Message) error {
		d, err := DecodeDecision(msg)
		if err != nil {
			t.Errorf("DecodeDecision: %v", err)
			return nil
		}
		received <- d
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := bus.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	<-bus.Running()

	want := &models.AdaptationDecision{
		DecisionID: "d1",
		SessionID:  "s1",
		Action:     models.ActionAdjustPacing,
		Variant:    "control",
		State:      models.StateCooldown,
		CreatedAt:  time.Now().UTC(),
	}
	if err := bus.PublishDecision(want); err != nil {
		t.Fatalf("PublishDecision: %v", err)
	}

	select {
	case got := <-received:
		if got.DecisionID != want.DecisionID || got.Action != want.Action || got.Variant != want.Variant {
			t.Errorf("received %+v, want %+v", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("decision never reached subscriber")
	}
}

func TestFanOutDeliversToEverySubscriber(t *testing.T) {
	bus, err := NewBus()
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	defer bus.Close()

	first := make(chan struct{}, 1)
	second := make(chan struct{}, 1)
	bus.Subscribe("first", func(msg *message.Message) error {
		first <- struct{}{}
		return nil
	})
	bus.Subscribe("second", func(msg *message.Message) error {
		second <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bus.Run(ctx) }()
	<-bus.Running()

	if err := bus.PublishDecision(&models.AdaptationDecision{DecisionID: "d1", SessionID: "s1", Action: models.ActionNone}); err != nil {
		t.Fatalf("PublishDecision: %v", err)
	}

	for name, ch := range map[string]chan struct{}{"first": first, "second": second} {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("subscriber %s never received the decision", name)
		}
	}
}

func TestDecisionMetadata(t *testing.T) {
	bus, err := NewBus()
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	defer bus.Close()

	msgs := make(chan *message.Message, 1)
	bus.Subscribe("meta", func(msg *message.Message) error {
		msgs <- msg
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bus.Run(ctx) }()
	<-bus.Running()

	d := &models.AdaptationDecision{
		DecisionID: "d1",
		SessionID:  "s9",
		Action:     models.ActionIntervene,
		Variant:    "aggressive",
	}
	if err := bus.PublishDecision(d); err != nil {
		t.Fatalf("PublishDecision: %v", err)
	}

	select {
	case msg := <-msgs:
		if got := msg.Metadata.Get(MetaSessionID); got != "s9" {
			t.Errorf("session metadata = %q, want s9", got)
		}
		if got := msg.Metadata.Get(MetaAction); got != "intervene" {
			t.Errorf("action metadata = %q, want intervene", got)
		}
		if got := msg.Metadata.Get(MetaVariant); got != "aggressive" {
			t.Errorf("variant metadata = %q, want aggressive", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message never arrived")
	}
}
