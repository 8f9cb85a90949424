// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

// Package journal persists every emitted decision for offline review
// and outcome attribution. Entries age out via Badger TTL; the journal
// is an audit trail, not a source of runtime state.
package journal

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dgraph-io/badger/v4"

	"github.com/directrix-io/directrix/internal/config"
	"github.com/directrix-io/directrix/internal/eventbus"
	"github.com/directrix-io/directrix/internal/logging"
	"github.com/directrix-io/directrix/internal/metrics"
	"github.com/directrix-io/directrix/internal/models"
)

// keys are decision:<created_at_ns>:<decision_id> so range scans come
// back in emission order.
const keyPrefix = "decision:"

// Journal is the Badger-backed decision log.
type Journal struct {
	db        *badger.DB
	retention time.Duration
}

// Open opens the journal at the configured path, or in-memory when the
// path is empty.
func Open(cfg config.JournalConfig) (*Journal, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open decision journal: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.Path == "").
		Dur("retention", cfg.Retention).
		Msg("decision journal opened")
	return &Journal{db: db, retention: cfg.Retention}, nil
}

// Append writes one raw decision payload. Raw bytes are stored as
// published so the journal is byte-faithful to what consumers saw.
func (j *Journal) Append(d *models.AdaptationDecision, payload []byte) error {
	key := fmt.Sprintf("%s%019d:%s", keyPrefix, d.CreatedAt.UnixNano(), d.DecisionID)
	err := j.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), payload)
		if j.retention > 0 {
			entry = entry.WithTTL(j.retention)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		metrics.JournalWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("journal decision %s: %w", d.DecisionID, err)
	}
	metrics.JournalWrites.WithLabelValues("ok").Inc()
	return nil
}

// Recent returns up to limit journaled decisions, newest first.
func (j *Journal) Recent(limit int) ([]models.AdaptationDecision, error) {
	out := make([]models.AdaptationDecision, 0, limit)
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must seek past the prefix range end.
		seek := append([]byte(keyPrefix), 0xFF)
		for it.Seek(seek); it.Valid() && len(out) < limit; it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			d, err := decodePayload(raw)
			if err != nil {
				// A corrupt entry is logged and skipped, never fatal to
				// the read path.
				logging.Warn().Err(err).Msg("skipping corrupt journal entry")
				continue
			}
			out = append(out, *d)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return out, nil
}

// Handler returns the bus subscriber that journals every decision.
func (j *Journal) Handler() message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		d, err := eventbus.DecodeDecision(msg)
		if err != nil {
			// Undecodable messages are dropped, not retried.
			logging.Error().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed decision message")
			return nil
		}
		return j.Append(d, msg.Payload)
	}
}

// Close releases the journal.
func (j *Journal) Close() error {
	return j.db.Close()
}

func decodePayload(raw []byte) (*models.AdaptationDecision, error) {
	return eventbus.DecodeDecision(message.NewMessage("", raw))
}
