// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package store persists analysis results in an embedded Badger database so
// verdicts survive restarts and can be fetched by ID over the API.
package store

import (
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/verascope/verascope/internal/logging"
	"github.com/verascope/verascope/internal/metrics"
	"github.com/verascope/verascope/internal/pipeline"
)

// ErrNotFound reports that no analysis exists for the requested ID.
var ErrNotFound = errors.New("analysis not found")

const keyPrefix = "analysis:"

// Summary is the listing view of a stored analysis.
type Summary struct {
	ID          string    `json:"id"`
	VideoPath   string    `json:"video_path"`
	Label       string    `json:"label"`
	ThreatLevel string    `json:"threat_level"`
	ThreatScore float64   `json:"threat_score"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store is a Badger-backed analysis archive. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithIndexCacheSize(16 << 20)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening analysis store: %w", err)
	}
	logging.Info().Str("dir", dir).Msg("analysis store opened")
	return &Store{db: db}, nil
}

// Put persists one analysis result, keyed by its ID.
func (s *Store) Put(result *pipeline.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		metrics.RecordStoreOperation("put", err)
		return fmt.Errorf("encoding analysis %s: %w", result.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+result.ID), data)
	})
	metrics.RecordStoreOperation("put", err)
	if err != nil {
		return fmt.Errorf("storing analysis %s: %w", result.ID, err)
	}
	return nil
}

// Get fetches one analysis by ID. Returns ErrNotFound for unknown IDs.
func (s *Store) Get(id string) (*pipeline.Result, error) {
	var result pipeline.Result
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if errors.Is(err, ErrNotFound) {
		metrics.RecordStoreOperation("get", nil)
		return nil, ErrNotFound
	}
	metrics.RecordStoreOperation("get", err)
	if err != nil {
		return nil, fmt.Errorf("fetching analysis %s: %w", id, err)
	}
	return &result, nil
}

// List returns summaries of stored analyses, newest first, capped at limit
// (0 means no cap).
func (s *Store) List(limit int) ([]Summary, error) {
	var summaries []Summary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var result pipeline.Result
				if err := json.Unmarshal(val, &result); err != nil {
					return err
				}
				summaries = append(summaries, summarize(&result))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	metrics.RecordStoreOperation("list", err)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CompletedAt.After(summaries[j].CompletedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func summarize(r *pipeline.Result) Summary {
	s := Summary{
		ID:          r.ID,
		VideoPath:   r.VideoPath,
		Label:       r.Prediction.Label,
		CompletedAt: r.CompletedAt,
	}
	if r.Threat != nil {
		s.ThreatLevel = string(r.Threat.Level)
		s.ThreatScore = r.Threat.Score
	}
	return s
}
