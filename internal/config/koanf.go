// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/directrix/config.yaml",
	"/etc/directrix/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, then validates it.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit config file path. An empty path
// skips the file layer.
func LoadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// File/env layers replace, not merge, the experiment list; an
	// explicitly empty list would otherwise slip past the struct default.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config
// paths. Unknown variables map to empty string and are ignored, so the
// process environment cannot inject arbitrary keys.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - INGEST_MAX_IN_FLIGHT -> ingest.max_in_flight
//   - ENSEMBLE_DEADLINE -> ensemble.deadline
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"http_host":          "server.host",
		"http_port":          "server.port",
		"http_read_timeout":  "server.read_timeout",
		"http_write_timeout": "server.write_timeout",
		"shutdown_timeout":   "server.shutdown_timeout",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		"ingest_max_in_flight": "ingest.max_in_flight",
		"ingest_clock_skew":    "ingest.clock_skew",
		"ingest_rate_limit":    "ingest.rate_limit",
		"ingest_rate_burst":    "ingest.rate_burst",

		"session_shard_count":        "session.shard_count",
		"session_window_capacity":    "session.window_capacity",
		"session_idle_ttl":           "session.idle_ttl",
		"session_sweep_interval":     "session.sweep_interval",
		"session_engagement_history": "session.engagement_history",

		"ensemble_deadline":         "ensemble.deadline",
		"ensemble_model_deadline":   "ensemble.model_deadline",
		"breaker_failure_threshold": "ensemble.breaker.failure_threshold",
		"breaker_timeout":           "ensemble.breaker.timeout",
		"breaker_max_requests":      "ensemble.breaker.max_requests",
		"breaker_interval":          "ensemble.breaker.interval",

		"policy_risk_threshold":   "policy.risk_threshold",
		"policy_escalation_risk":  "policy.escalation_risk",
		"policy_cooldown":         "policy.cooldown",
		"policy_max_adaptations":  "policy.max_adaptations",
		"policy_uplift_cache_ttl": "policy.uplift_cache_ttl",
		"policy_min_observations": "policy.min_observations",

		"models_store_path":     "models.store_path",
		"models_schema_version": "models.schema_version",

		"journal_enabled":   "journal.enabled",
		"journal_path":      "journal.path",
		"journal_retention": "journal.retention",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return "" // Unmapped variables are ignored
}
