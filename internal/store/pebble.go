// ABOUTME: Pebble (LSM) implementation of KV for embedded single-process use
// ABOUTME: Writes are synced; values are copied out before the read closer is released

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cockroachdb/pebble"
)

// PebbleStore implements KV on a Pebble database.
type PebbleStore struct {
	db     *pebble.DB
	quota  Quota
	logger *slog.Logger
}

// NewPebbleStore opens (or creates) a Pebble database directory at path.
func NewPebbleStore(path string, quota int) (*PebbleStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating pebble directory: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble: %w", err)
	}
	logger := slog.Default().With("component", "store", "backend", BackendPebble)
	logger.Info("Pebble store initialized", "path", path, "quota", quota)
	return &PebbleStore{db: db, quota: Quota(quota), logger: logger}, nil
}

// Get returns the value for key, or ErrNotFound.
func (s *PebbleStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	defer closer.Close()
	return bytes.Clone(v), nil
}

// Set stores value under key.
func (s *PebbleStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.quota.check(key, value); err != nil {
		return err
	}
	if err := s.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	s.logger.Debug("saved value", "key", key, "size", len(value))
	return nil
}

// Remove deletes key.
func (s *PebbleStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Keys lists keys with the given prefix.
func (s *PebbleStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("creating iterator: %w", err)
	}
	defer iter.Close()

	p := []byte(prefix)
	var keys []string
	for iter.SeekGE(p); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), p) {
			break
		}
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}

// Close flushes and closes the database.
func (s *PebbleStore) Close() error {
	s.logger.Info("closing Pebble store")
	return s.db.Close()
}
