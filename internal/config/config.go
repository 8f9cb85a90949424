// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package config loads and validates the Directrix engine configuration.
//
// Configuration is layered via Koanf v2 (highest priority wins):
//
//  1. Built-in defaults (structs provider)
//  2. Config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables
//
// The loaded struct is checked with go-playground/validator plus
// cross-field rules (variant weights, shard counts, deadline ordering).
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/directrix-io/directrix/internal/models"
)

// Config is the root engine configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Session  SessionConfig  `koanf:"session"`
	Ensemble EnsembleConfig `koanf:"ensemble"`
	Policy   PolicyConfig   `koanf:"policy"`
	Models   ModelsConfig   `koanf:"models"`
	Journal  JournalConfig  `koanf:"journal"`

	// Experiments defines the A/B variant set. Read-only after load;
	// editing it requires a configuration reload, which re-splits traffic
	// for new sessions only (live sessions keep their assignment).
	Experiments []models.ExperimentVariant `koanf:"experiments" validate:"min=1,dive"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// IngestConfig bounds the validation gate.
type IngestConfig struct {
	// MaxInFlight is the concurrency ceiling; events beyond it are
	// rejected with Overloaded rather than queued.
	MaxInFlight int `koanf:"max_in_flight" validate:"gt=0"`

	// ClockSkew is the accepted window around server time for event
	// timestamps.
	ClockSkew time.Duration `koanf:"clock_skew" validate:"gt=0"`

	// RateLimit and RateBurst smooth overall event ingestion ahead of
	// the in-flight ceiling (events per second, burst size). Zero
	// disables the limiter.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
	RateBurst int     `koanf:"rate_burst" validate:"gte=0"`
}

// SessionConfig shapes the session store.
type SessionConfig struct {
	// ShardCount is rounded up to a power of two.
	ShardCount int `koanf:"shard_count" validate:"gt=0"`

	// WindowCapacity bounds the rolling feature window per session.
	WindowCapacity int `koanf:"window_capacity" validate:"gt=0"`

	// IdleTTL evicts sessions with no events for this long.
	IdleTTL time.Duration `koanf:"idle_ttl" validate:"gt=0"`

	// SweepInterval is the cadence of the background eviction sweep.
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`

	// EngagementHistory is K, the number of recent engagement scores
	// retained per session for the trend feature.
	EngagementHistory int `koanf:"engagement_history" validate:"gt=0"`
}

// EnsembleConfig bounds prediction latency.
type EnsembleConfig struct {
	// Deadline is the hard budget for one ensemble call.
	Deadline time.Duration `koanf:"deadline" validate:"gt=0"`

	// ModelDeadline is the per-model sub-deadline; a model exceeding it
	// is excluded from the call.
	ModelDeadline time.Duration `koanf:"model_deadline" validate:"gt=0"`

	// Breaker configures the per-model circuit breaker.
	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig tunes the gobreaker settings wrapped around each model.
type BreakerConfig struct {
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"gt=0"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxRequests      uint32        `koanf:"max_requests" validate:"gt=0"`
	Interval         time.Duration `koanf:"interval"`
}

// PolicyConfig sets the engine-wide adaptation defaults. Variants may
// override RiskThreshold, Cooldown, and MaxAdaptations per arm.
type PolicyConfig struct {
	// RiskThreshold is the abandonment risk above which an adaptation
	// fires (Monitoring -> Adapting).
	RiskThreshold float64 `koanf:"risk_threshold" validate:"gt=0,lte=1"`

	// EscalationRisk is the risk above which the policy prefers
	// intervene over gentler actions.
	EscalationRisk float64 `koanf:"escalation_risk" validate:"gt=0,lte=1"`

	// Cooldown is the minimum interval between adaptations per session.
	Cooldown time.Duration `koanf:"cooldown" validate:"gt=0"`

	// MaxAdaptations caps adaptations per session lifetime.
	MaxAdaptations int `koanf:"max_adaptations" validate:"gt=0"`

	// UpliftCacheTTL bounds how long ranked action lists derived from
	// aggregate history are reused.
	UpliftCacheTTL time.Duration `koanf:"uplift_cache_ttl" validate:"gt=0"`

	// MinObservations is the outcome sample size below which the ranker
	// falls back to the static priority order.
	MinObservations int64 `koanf:"min_observations" validate:"gt=0"`
}

// ModelsConfig locates the model artifact store.
type ModelsConfig struct {
	// StorePath is the Badger directory persisting loaded artifacts.
	// Empty selects an in-memory store (tests, ephemeral deployments).
	StorePath string `koanf:"store_path"`

	// SchemaVersion is the artifact schema version this build serves.
	SchemaVersion int `koanf:"schema_version" validate:"gt=0"`
}

// JournalConfig shapes the decision journal.
type JournalConfig struct {
	Enabled bool `koanf:"enabled"`

	// Path is the Badger directory for journaled decisions. Empty
	// selects an in-memory journal.
	Path string `koanf:"path"`

	// Retention is how long journaled decisions are kept (Badger TTL).
	Retention time.Duration `koanf:"retention" validate:"gt=0"`
}

// Default returns a Config with production defaults. These are layered
// first, then overridden by config file and environment variables.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8343,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Ingest: IngestConfig{
			MaxInFlight: 1024,
			ClockSkew:   5 * time.Minute,
			RateLimit:   0, // Unlimited
			RateBurst:   0,
		},
		Session: SessionConfig{
			ShardCount:        32,
			WindowCapacity:    64,
			IdleTTL:           30 * time.Minute,
			SweepInterval:     time.Minute,
			EngagementHistory: 12,
		},
		Ensemble: EnsembleConfig{
			Deadline:      50 * time.Millisecond,
			ModelDeadline: 20 * time.Millisecond,
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				Timeout:          30 * time.Second,
				MaxRequests:      1,
				Interval:         0,
			},
		},
		Policy: PolicyConfig{
			RiskThreshold:   0.6,
			EscalationRisk:  0.85,
			Cooldown:        2 * time.Minute,
			MaxAdaptations:  5,
			UpliftCacheTTL:  30 * time.Second,
			MinObservations: 10,
		},
		Models: ModelsConfig{
			StorePath:     "/data/directrix/models",
			SchemaVersion: 1,
		},
		Journal: JournalConfig{
			Enabled:   true,
			Path:      "/data/directrix/journal",
			Retention: 30 * 24 * time.Hour,
		},
		Experiments: []models.ExperimentVariant{
			{Name: "control", Weight: 1},
		},
	}
}
