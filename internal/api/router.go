// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ingestPerIPLimit caps event submissions per source IP per second.
const ingestPerIPLimit = 200

// NewRouter assembles the full HTTP surface. hub serves the websocket
// decision feed and may be nil in tests without a feed.
func NewRouter(handler *Handler, hub http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogging())
	r.Use(chimiddleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/v1/health", handler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Per-IP abuse protection only. Process-wide smoothing and the
		// in-flight ceiling live in the pipeline.
		r.With(httprate.LimitByIP(ingestPerIPLimit, time.Second)).
			Post("/events", handler.IngestEvent)

		r.Get("/models", handler.ListModels)
		r.Get("/aggregates", handler.Aggregates)
		r.Get("/analytics", handler.Analytics)
		r.Get("/sessions/{id}/stats", handler.SessionStats)

		r.Route("/admin", func(r chi.Router) {
			r.Use(httprate.LimitByIP(30, time.Minute))
			r.Post("/models", handler.LoadModel)
			r.Delete("/models/{id}", handler.RemoveModel)
		})
	})

	if hub != nil {
		r.Get("/ws", hub.ServeHTTP)
	}

	return r
}
