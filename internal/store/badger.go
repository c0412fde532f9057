// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/waymark/internal/config"
	"github.com/tomtom215/waymark/internal/logging"
)

// documentKeyPrefix namespaces document keys in the Badger keyspace.
const documentKeyPrefix = "doc:"

// badgerRecord is the value stored for each path.
type badgerRecord struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Message string `json:"message"`
	Content []byte `json:"content"`
}

// BadgerBackend stores documents in an embedded BadgerDB. It is meant for
// local development and tests; versions and commits are random UUIDs.
type BadgerBackend struct {
	db       *badger.DB
	inMemory bool
}

// OpenBadgerBackend opens (or creates) the database at cfg.BadgerPath, or an
// in-memory database when cfg.InMemory is set.
func OpenBadgerBackend(cfg config.StoreConfig) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(cfg.BadgerPath)
	if cfg.InMemory {
		// A handful of map documents: keep the memtable arena small.
		opts = badger.DefaultOptions("").WithInMemory(true).WithMemTableSize(16 << 20)
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.BadgerPath).
		Bool("in_memory", cfg.InMemory).
		Msg("Document store opened")
	return &BadgerBackend{db: db, inMemory: cfg.InMemory}, nil
}

// NewBadgerBackend wraps an already open database.
func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

// Name implements Backend.
func (b *BadgerBackend) Name() string {
	return "badger"
}

// Get implements Backend.
func (b *BadgerBackend) Get(ctx context.Context, path string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record badgerRecord
	err := b.db.View(func(txn *badger.Txn) error {
		return readRecord(txn, path, &record)
	})
	if err != nil {
		return nil, err
	}
	return &Object{Content: record.Content, Version: record.Version}, nil
}

// Put implements Backend. The version check and the write happen in one
// transaction; a concurrent transaction touching the same key makes the
// commit fail with badger.ErrConflict, reported as ErrVersionMismatch.
func (b *BadgerBackend) Put(ctx context.Context, path string, content []byte, baseVersion, message string) (*PutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &PutResult{
		Version: uuid.New().String(),
		Commit:  uuid.New().String(),
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		var current badgerRecord
		switch err := readRecord(txn, path, &current); {
		case errors.Is(err, ErrObjectNotFound):
			if baseVersion != "" {
				return ErrVersionMismatch
			}
		case err != nil:
			return err
		case current.Version != baseVersion:
			return ErrVersionMismatch
		}

		data, err := json.Marshal(badgerRecord{
			Version: result.Version,
			Commit:  result.Commit,
			Message: message,
			Content: content,
		})
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		return txn.Set([]byte(documentKeyPrefix+path), data)
	})

	switch {
	case errors.Is(err, badger.ErrConflict):
		return nil, ErrVersionMismatch
	case err != nil:
		return nil, err
	}
	return result, nil
}

// RunGC rewrites value log files until badger reports nothing left to
// reclaim. It returns the number of files rewritten. In-memory databases have
// no value log and return immediately.
func (b *BadgerBackend) RunGC(discardRatio float64) (int, error) {
	if b.inMemory {
		return 0, nil
	}

	rewritten := 0
	for {
		err := b.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return rewritten, nil
		}
		if err != nil {
			return rewritten, fmt.Errorf("run value log GC: %w", err)
		}
		rewritten++
	}
}

// Close closes the underlying database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

func readRecord(txn *badger.Txn, path string, record *badgerRecord) error {
	item, err := txn.Get([]byte(documentKeyPrefix + path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, record)
	})
}
