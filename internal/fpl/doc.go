// Package fpl fetches Fantasy Premier League reference data.
//
// Client talks to the public API through a token-bucket rate limiter and
// caches raw responses by path. SnapshotProvider merges bootstrap-static
// and fixtures into an indexed Snapshot that tool handlers read.
package fpl
