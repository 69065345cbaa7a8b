// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists workflow run summaries in a local BadgerDB so
// users can review what ran, when and with what outcome.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrStoreClosed is returned after Close.
var ErrStoreClosed = errors.New("history store is closed")

const runKeyPrefix = "run/"

// RunRecord is one workflow run summary.
type RunRecord struct {
	SessionID   string        `json:"session_id"`
	ContestName string        `json:"contest_name"`
	ProblemName string        `json:"problem_name"`
	Command     string        `json:"command"`
	Language    string        `json:"language"`
	Success     bool          `json:"success"`
	NodeCount   int           `json:"node_count"`
	ErrorCount  int           `json:"error_count"`
	Parallel    bool          `json:"parallel"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Store wraps a badger database holding run records.
//
// Thread Safety:
//
//	Safe for concurrent use; badger serialises transactions internally.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	closed bool
}

// Open opens (or creates) the history database at dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Record persists one run summary.
//
// Keys are run/<unix-nano>/<session>, so lexical iteration is
// chronological.
func (s *Store) Record(rec RunRecord) error {
	if s.closed {
		return ErrStoreClosed
	}

	key := fmt.Sprintf("%s%020d/%s", runKeyPrefix, rec.StartedAt.UnixNano(), rec.SessionID)
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding run record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("writing run record: %w", err)
	}

	s.logger.Debug("run recorded",
		slog.String("session_id", rec.SessionID),
		slog.Bool("success", rec.Success),
	)
	return nil
}

// List returns the most recent run records, newest first.
func (s *Store) List(limit int) ([]RunRecord, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = 20
	}

	var records []RunRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration needs a seek key past the prefix range
		seek := append([]byte(runKeyPrefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix([]byte(runKeyPrefix)) && len(records) < limit; it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var rec RunRecord
				if err := json.Unmarshal(v, &rec); err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing run records: %w", err)
	}
	return records, nil
}

// Prune removes records older than the retention window.
func (s *Store) Prune(retain time.Duration) (int, error) {
	if s.closed {
		return 0, ErrStoreClosed
	}

	cutoff := time.Now().Add(-retain).UnixNano()
	var stale [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(runKeyPrefix)); it.ValidForPrefix([]byte(runKeyPrefix)); it.Next() {
			key := it.Item().KeyCopy(nil)
			ts, err := parseRunKeyTimestamp(key)
			if err != nil {
				continue
			}
			if ts < cutoff {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning run records: %w", err)
	}

	if len(stale) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting run records: %w", err)
	}
	return len(stale), nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func parseRunKeyTimestamp(key []byte) (int64, error) {
	rest := string(key[len(runKeyPrefix):])
	if len(rest) < 20 {
		return 0, fmt.Errorf("short run key %q", key)
	}
	return strconv.ParseInt(rest[:20], 10, 64)
}
