// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package model

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/directrix-io/directrix/internal/logging"
)

// artifactKeyPrefix namespaces artifact entries in the store.
const artifactKeyPrefix = "artifact:"

// ArtifactStore persists raw model artifacts so the active set
// survives restarts. Implementations must be safe for concurrent use.
type ArtifactStore interface {
	// Put stores raw artifact bytes under the model ID.
	Put(modelID string, raw []byte) error

	// Delete removes a stored artifact. Missing IDs are not an error.
	Delete(modelID string) error

	// List returns every stored artifact keyed by model ID.
	List() (map[string][]byte, error)

	// Close releases the store.
	Close() error
}

// badgerStore is the BadgerDB-backed artifact store. An empty path
// opens Badger in-memory, for tests and ephemeral deployments.
type badgerStore struct {
	db *badger.DB
}

// OpenStore opens the artifact store at path, or in-memory when path
// is empty.
func OpenStore(path string) (ArtifactStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	// Badger's own logger is noisy at INFO; route through zerolog at
	// the store's discretion instead.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	logging.Info().Str("path", path).Bool("in_memory", path == "").Msg("artifact store opened")
	return &badgerStore{db: db}, nil
}

func (s *badgerStore) Put(modelID string, raw []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(artifactKeyPrefix+modelID), raw)
	})
}

func (s *badgerStore) Delete(modelID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(artifactKeyPrefix + modelID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (s *badgerStore) List() (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(artifactKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(artifactKeyPrefix):])
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[id] = raw
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return out, nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
