// Package store provides key-value storage backends for conversation history.
//
// # Backends
//
//   - SQLiteStore: a single kv table in SQLite (modernc.org/sqlite, no cgo)
//   - PebbleStore: an embedded Pebble LSM directory
//   - MemoryStore: a map, for tests and throwaway sessions
//
// All three implement KV and are created through Open:
//
//	kv, err := store.Open(store.BackendSQLite, "data/history.db", 512*1024)
//
// # Quotas
//
// Each backend can cap the size of a single value. A write over the cap
// fails with an error wrapping ErrQuotaExceeded and leaves the previous
// value in place. The history layer relies on this to trigger its
// trim-and-retry fallback.
//
// # Errors
//
// Get returns ErrNotFound for a missing key. Remove of a missing key
// succeeds.
package store
