// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package feature derives fixed-length feature vectors from session
// snapshots. Extraction is a pure function of the snapshot plus the
// static schema — no hidden state — so identical sessions always
// produce identical vectors and test fixtures are reproducible.
package feature

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/directrix-io/directrix/internal/models"
)

// Feature names for the scalar block, in schema order. The per-type
// frequency block and the trailing variant feature follow them.
const (
	FeatSessionAge    = "session_age_seconds"
	FeatWatchTime     = "watch_time_seconds"
	FeatEventRate     = "event_rate_per_minute"
	FeatPauseCount    = "pause_count"
	FeatSeekCount     = "seek_count"
	FeatRewindCount   = "rewind_count"
	FeatPauseRatio    = "pause_ratio"
	FeatSeekRatio     = "seek_ratio"
	FeatTrend         = "engagement_trend"
	FeatLastScore     = "last_engagement_score"
	FeatVariantIndex  = "variant_index"
	freqFeaturePrefix = "freq_"
)

// scalarNames is the ordered scalar block of the schema.
var scalarNames = []string{
	FeatSessionAge,
	FeatWatchTime,
	FeatEventRate,
	FeatPauseCount,
	FeatSeekCount,
	FeatRewindCount,
	FeatPauseRatio,
	FeatSeekRatio,
	FeatTrend,
	FeatLastScore,
}

// frequencyEventTypes fixes the order of the per-type frequency block.
// A stable order here is part of the schema contract with models.
var frequencyEventTypes = []models.EventType{
	models.EventPlay,
	models.EventPause,
	models.EventSeek,
	models.EventRewind,
	models.EventFastForward,
	models.EventSceneComplete,
	models.EventAbandon,
	models.EventRating,
	models.EventVolumeUp,
	models.EventFullscreen,
}

// Schema is the ordered list of feature names an extractor produces and
// a model consumes. Models whose artifact schema disagrees with the
// extractor's are rejected at load time.
type Schema struct {
	Names []string `json:"names"`
}

// NewSchema builds the engine's feature schema.
func NewSchema() Schema {
	names := make([]string, 0, len(scalarNames)+len(frequencyEventTypes)+1)
	names = append(names, scalarNames...)
	for _, t := range frequencyEventTypes {
		names = append(names, freqFeaturePrefix+string(t))
	}
	names = append(names, FeatVariantIndex)
	return Schema{Names: names}
}

// Len returns the vector length this schema describes.
func (s Schema) Len() int {
	return len(s.Names)
}

// Index returns the position of a named feature, or -1.
func (s Schema) Index(name string) int {
	for i, n := range s.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Fingerprint is a stable digest of the ordered names, used for cheap
// schema-compatibility checks against model artifacts.
func (s Schema) Fingerprint() string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(s.Names, "\x00")))
	return fmt.Sprintf("%x", h.Sum64())
}

// Compatible reports whether another schema matches exactly.
func (s Schema) Compatible(other Schema) bool {
	if len(s.Names) != len(other.Names) {
		return false
	}
	for i := range s.Names {
		if s.Names[i] != other.Names[i] {
			return false
		}
	}
	return true
}
