// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package websocket streams emitted decisions to connected delivery
// layers in real time. Consumers that cannot keep up are dropped in
// favor of the decision path; the journal remains the reliable record.
package websocket

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/directrix-io/directrix/internal/logging"
	"github.com/directrix-io/directrix/internal/metrics"
)

// Envelope frame types pushed to clients.
const (
	MessageTypeDecision = "decision"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Envelope is one frame on the wire.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks connected clients and fans decision frames out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run services client lifecycle and broadcast channels until ctx is
// canceled, then closes every client. Designed for suture supervision.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			logging.Info().
				Str("component", "websocket-hub").
				Msg("websocket hub stopped")
			return ctx.Err()

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebsocketClients.Set(float64(n))
			logging.Info().Int("total_clients", n).Msg("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebsocketClients.Set(float64(n))
			logging.Info().Int("total_clients", n).Msg("websocket client disconnected")

		case payload := <-h.broadcast:
			h.fanOut(payload)
		}
	}
}

// BroadcastRaw queues raw decision JSON for every connected client.
// Never blocks the caller; when the hub's queue is full the frame is
// dropped and counted.
func (h *Hub) BroadcastRaw(payload []byte) {
	select {
	case h.broadcast <- payload:
	default:
		metrics.WebsocketDropped.Inc()
	}
}

// Handler returns the bus subscriber that forwards every decision to
// connected clients, framed as a decision envelope. Broadcast failures
// never propagate; a slow websocket must not cause bus retries.
func (h *Hub) Handler() message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		frame, err := json.Marshal(Envelope{
			Type: MessageTypeDecision,
			Data: json.RawMessage(msg.Payload),
		})
		if err != nil {
			logging.Error().Err(err).Str("message_id", msg.UUID).Msg("dropping unframeable decision")
			return nil
		}
		h.BroadcastRaw(frame)
		return nil
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) fanOut(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Slow consumer: drop the frame, keep the connection.
			metrics.WebsocketDropped.Inc()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	metrics.WebsocketClients.Set(0)
}
