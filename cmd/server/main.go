// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package main is the entry point for the Directrix server.
//
// Directrix ingests viewer interaction events from streaming sessions,
// scores engagement with an ensemble of prediction models, and decides
// in real time whether and how to adapt the content being delivered.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings from defaults, YAML, and env (Koanf v2)
//  2. Session store: sharded in-memory session state with idle eviction
//  3. Model registry: BadgerDB-backed artifact store and default models
//  4. Decision bus: Watermill fan-out to the journal and WebSocket hub
//  5. Supervisor tree: data, messaging, and API layers under suture
//  6. HTTP server: ingestion, model management, and analytics endpoints
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (DIRECTRIX_SERVER_PORT, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete
//   - Closes the decision bus, journal, and artifact store
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/directrix-io/directrix/internal/aggregate"
	"github.com/directrix-io/directrix/internal/api"
	"github.com/directrix-io/directrix/internal/config"
	"github.com/directrix-io/directrix/internal/ensemble"
	"github.com/directrix-io/directrix/internal/eventbus"
	"github.com/directrix-io/directrix/internal/experiment"
	"github.com/directrix-io/directrix/internal/feature"
	"github.com/directrix-io/directrix/internal/ingest"
	"github.com/directrix-io/directrix/internal/journal"
	"github.com/directrix-io/directrix/internal/logging"
	"github.com/directrix-io/directrix/internal/model"
	"github.com/directrix-io/directrix/internal/policy"
	"github.com/directrix-io/directrix/internal/session"
	"github.com/directrix-io/directrix/internal/supervisor"
	ws "github.com/directrix-io/directrix/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Int("variants", len(cfg.Experiments)).
		Str("model_store", cfg.Models.StorePath).
		Bool("journal", cfg.Journal.Enabled).
		Msg("Starting Directrix")

	// Experiment assignment and the per-variant session store.
	assigner := experiment.NewAssigner(cfg.Experiments)
	store := session.NewStore(session.Config{
		ShardCount:        cfg.Session.ShardCount,
		WindowCapacity:    cfg.Session.WindowCapacity,
		IdleTTL:           cfg.Session.IdleTTL,
		EngagementHistory: cfg.Session.EngagementHistory,
	}, assigner)
	sweeper := session.NewSweeper(store, cfg.Session.SweepInterval)

	// Feature extraction defines the schema the model registry serves.
	variantNames := make([]string, 0, len(cfg.Experiments))
	for _, v := range cfg.Experiments {
		variantNames = append(variantNames, v.Name)
	}
	extractor := feature.NewExtractor(variantNames)

	artifacts, err := model.OpenStore(cfg.Models.StorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open model artifact store")
	}
	defer func() {
		if err := artifacts.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing artifact store")
		}
	}()

	registry, err := model.NewRegistry(extractor.Schema(), cfg.Models.SchemaVersion, artifacts)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize model registry")
	}
	logging.Info().Str("model_set", registry.Version()).Msg("Model registry ready")

	predictor := ensemble.NewPredictor(cfg.Ensemble, registry)
	aggregator := aggregate.NewAggregator()
	prometheus.MustRegister(aggregate.NewCollector(aggregator))
	engine := policy.NewEngine(cfg.Policy, assigner, aggregator)

	// Decision bus fans published decisions out to the journal and the
	// WebSocket hub.
	bus, err := eventbus.NewBus()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create decision bus")
	}

	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		jrnl, err = journal.Open(cfg.Journal)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open decision journal")
		}
		defer func() {
			if err := jrnl.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing decision journal")
			}
		}()
		bus.Subscribe("journal", jrnl.Handler())
	}

	hub := ws.NewHub()
	bus.Subscribe("websocket", hub.Handler())

	pipeline := ingest.NewPipeline(cfg.Ingest, store, extractor, predictor, engine, aggregator, bus)

	handler := api.NewHandler(pipeline, store, registry, aggregator, jrnl)
	router := api.NewRouter(handler, hub)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(sweeper)
	tree.AddMessagingService(&supervisor.ServiceFunc{Name: "decision-bus", Run: bus.Run})
	tree.AddMessagingService(&supervisor.ServiceFunc{Name: "websocket-hub", Run: hub.Run})
	tree.AddAPIService(&supervisor.HTTPService{
		Addr:            cfg.Server.Addr(),
		Handler:         router,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Server starting")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}

	// The bus does not stop with its context; Close releases the
	// gochannel subscribers so deferred stores can shut down cleanly.
	if err := bus.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing decision bus")
	}
	logging.Info().Msg("Shutdown complete")
}
