// Package local implements the device-local snippet store on BadgerDB.
//
// The store mirrors a browser extension's storage area: the whole collection
// lives as one JSON array under a single fixed key, and the only operations
// are read-all, replace-all and clear. There is no partial update; the
// service layer does read-modify-write on top.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/sakif/snippet-shelf/internal/model"
	"github.com/sakif/snippet-shelf/internal/repository"
)

// StorageKey is the single key holding the collection.
const StorageKey = "snippet_shelf_contents"

var _ repository.LocalStore = (*Store)(nil)

// Store wraps a BadgerDB instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger adapts slog.Logger to the badger.Logger interface so badger's
// compaction chatter ends up in the same structured log as everything else.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any) {
	l.logger.Error(fmt.Sprintf(msg, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Warningf(msg string, args ...any) {
	l.logger.Warn(fmt.Sprintf(msg, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Infof(msg string, args ...any) {
	l.logger.Debug(fmt.Sprintf(msg, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Debugf(msg string, args ...any) {
	l.logger.Debug(fmt.Sprintf(msg, args...), slog.String("component", "badger"))
}

// Open opens (or creates) the store in dir. With inMemory set, dir is
// ignored and nothing touches disk; tests and `local_in_memory` use this.
func Open(dir string, inMemory bool, logger *slog.Logger) (*Store, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("local: creating store directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("local: opening store: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the whole collection. A store that was never written (or was
// cleared) yields an empty slice, not an error.
func (s *Store) Get(ctx context.Context) ([]model.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snippets := []model.Snippet{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(StorageKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snippets)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("local: reading collection: %w", err)
	}
	return snippets, nil
}

// Set replaces the whole collection.
func (s *Store) Set(ctx context.Context, snippets []model.Snippet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snippets == nil {
		snippets = []model.Snippet{}
	}

	value, err := json.Marshal(snippets)
	if err != nil {
		return fmt.Errorf("local: encoding collection: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(StorageKey), value)
	})
	if err != nil {
		return fmt.Errorf("local: writing collection: %w", err)
	}

	s.logger.Debug("local collection written", slog.Int("count", len(snippets)))
	return nil
}

// Clear removes the collection key entirely.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(StorageKey))
	})
	if err != nil {
		return fmt.Errorf("local: clearing collection: %w", err)
	}

	s.logger.Info("local collection cleared")
	return nil
}
