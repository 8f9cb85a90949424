// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package metrics provides Prometheus instrumentation for the decision
// pipeline: ingestion outcomes, ensemble latency and exclusions, policy
// decisions, session store occupancy, and the websocket feed.
//
// Experiment-level outcome aggregates live in internal/aggregate; this
// package carries only operational metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	EventsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directrix_events_accepted_total",
			Help: "Total number of accepted interaction events",
		},
		[]string{"event_type"},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directrix_events_rejected_total",
			Help: "Total number of rejected interaction events",
		},
		[]string{"reason"}, // "malformed_event", "clock_skew", "overloaded"
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "directrix_pipeline_duration_seconds",
			Help:    "End-to-end duration of the ingest-to-decision pipeline",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	InFlightEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "directrix_events_in_flight",
			Help: "Number of events currently being processed",
		},
	)

	// Ensemble metrics
	EnsembleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "directrix_ensemble_duration_seconds",
			Help:    "Duration of ensemble prediction calls",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1},
		},
	)

	ModelDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "directrix_model_duration_seconds",
			Help:    "Duration of individual model invocations",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05},
		},
		[]string{"model_id"},
	)

	ModelExclusions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directrix_model_exclusions_total",
			Help: "Models excluded from ensemble calls",
		},
		[]string{"model_id", "cause"}, // "deadline", "error", "breaker_open"
	)

	PredictionsUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "directrix_predictions_unavailable_total",
			Help: "Ensemble calls where every model failed or timed out",
		},
	)

	ModelSetSwaps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "directrix_model_set_swaps_total",
			Help: "Atomic swaps of the active model set",
		},
	)

	ActiveModels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "directrix_active_models",
			Help: "Number of models in the active set",
		},
	)

	// Policy metrics
	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directrix_decisions_total",
			Help: "Adaptation decisions emitted",
		},
		[]string{"action", "variant", "fallback"},
	)

	// Session store metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "directrix_active_sessions",
			Help: "Number of live sessions across all shards",
		},
	)

	SessionsEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directrix_sessions_evicted_total",
			Help: "Sessions evicted after the idle TTL",
		},
		[]string{"mode"}, // "lazy", "sweep"
	)

	OutOfOrderEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "directrix_out_of_order_events_total",
			Help: "Events accepted with a regressed sequence number",
		},
	)

	// Websocket feed metrics
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "directrix_websocket_clients",
			Help: "Connected decision-feed clients",
		},
	)

	WebsocketDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "directrix_websocket_dropped_total",
			Help: "Broadcast messages dropped due to slow clients",
		},
	)

	// Journal metrics
	JournalWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directrix_journal_writes_total",
			Help: "Decision journal writes",
		},
		[]string{"status"}, // "ok", "error"
	)
)

// ObservePipeline records one pipeline execution.
func ObservePipeline(start time.Time) {
	PipelineDuration.Observe(time.Since(start).Seconds())
}

// ObserveEnsemble records one ensemble call.
func ObserveEnsemble(start time.Time) {
	EnsembleDuration.Observe(time.Since(start).Seconds())
}

// ObserveModel records one model invocation.
func ObserveModel(modelID string, start time.Time) {
	ModelDuration.WithLabelValues(modelID).Observe(time.Since(start).Seconds())
}
