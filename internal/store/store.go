// ABOUTME: KV interface and sentinel errors shared by every storage backend
// ABOUTME: Values are opaque byte strings; per-key size quotas mimic browser storage limits

package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("not found")

// ErrQuotaExceeded is returned when a write would exceed the backend's quota
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// KV is a byte-oriented key-value store.
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. It returns an error wrapping
	// ErrQuotaExceeded when the value does not fit.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Keys lists keys with the given prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Quota limits the size of a single stored value. Zero means unlimited.
type Quota int

func (q Quota) check(key string, value []byte) error {
	if q > 0 && len(value) > int(q) {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrQuotaExceeded, key, len(value), int(q))
	}
	return nil
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// Open creates the named backend at path with the given per-value quota.
func Open(backend, path string, quota int) (KV, error) {
	switch backend {
	case BackendSQLite, "":
		return NewSQLiteStore(path, quota)
	case BackendPebble:
		return NewPebbleStore(path, quota)
	case BackendMemory:
		return NewMemoryStore(quota), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
