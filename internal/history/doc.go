// ABOUTME: Package history persists settled conversations to a key-value store
// ABOUTME: Saves are bounded by count and size and degrade gracefully on quota errors

// Package history stores one conversation per key as a versioned JSON record.
//
// Only settled messages are written. A save keeps the most recent
// MaxMessages messages, then drops the oldest user/assistant pairs until the
// encoded record fits in MaxBytes. When the backend rejects the write for
// capacity reasons the store retries with the most recent FallbackMessages
// messages, and if that fails too it removes the record entirely.
//
// Loading never fails: a missing record yields an empty conversation, and a
// corrupt or wrong-version record is removed and yields an empty
// conversation.
package history
