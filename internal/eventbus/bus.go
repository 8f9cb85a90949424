// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package eventbus fans adaptation decisions out to their consumers.
//
// The bus is an in-process watermill pub/sub: the ingest pipeline
// publishes each decision once, and every registered handler (journal,
// websocket broadcast) receives its own copy. Handlers run on the
// router with retry and panic recovery, so a failing consumer never
// stalls the decision path.
package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/directrix-io/directrix/internal/models"
)

// TopicDecisions carries every emitted AdaptationDecision.
const TopicDecisions = "decisions"

// metadata keys stamped on decision messages.
const (
	MetaSessionID = "session_id"
	MetaAction    = "action"
	MetaVariant   = "variant"
)

// Bus is the in-process decision pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter
}

// NewBus builds the bus and its handler router.
func NewBus() (*Bus, error) {
	logger := NewLoggerAdapter()

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		// Buffer absorbs consumer hiccups without blocking publishers.
		OutputChannelBuffer: 256,
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create decision router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware)

	return &Bus{pubsub: pubsub, router: router, logger: logger}, nil
}

// PublishDecision serializes a decision onto the decisions topic.
func (b *Bus) PublishDecision(d *models.AdaptationDecision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision %s: %w", d.DecisionID, err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(MetaSessionID, d.SessionID)
	msg.Metadata.Set(MetaAction, string(d.Action))
	msg.Metadata.Set(MetaVariant, d.Variant)

	return b.pubsub.Publish(TopicDecisions, msg)
}

// Subscribe registers a no-output handler for the decisions topic.
// Must be called before Run.
func (b *Bus) Subscribe(name string, handler message.NoPublishHandlerFunc) {
	b.router.AddNoPublisherHandler(name, TopicDecisions, b.pubsub, handler)
}

// Run starts the handler router and blocks until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running returns a channel closed once the router is running, for
// startup ordering in tests and the supervisor.
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

// Close shuts down the router and pub/sub.
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubsub.Close()
}

// DecodeDecision parses a decision message payload.
func DecodeDecision(msg *message.Message) (*models.AdaptationDecision, error) {
	var d models.AdaptationDecision
	if err := json.Unmarshal(msg.Payload, &d); err != nil {
		return nil, fmt.Errorf("decode decision message %s: %w", msg.UUID, err)
	}
	return &d, nil
}
