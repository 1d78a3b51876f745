// Package objectstore implements the content-addressed blob layer: a
// typed key maps to an opaque byte blob, with pluggable backends (an
// external append-log daemon, an in-memory map, and an encrypting
// wrapper around either).
package objectstore

import "context"

// Record describes one entry surfaced by a Keys/Rev scan. Timestamp and
// Size are nil when the backend doesn't track them (the in-memory backend
// never does).
type Record struct {
	Key       uint32
	Timestamp *int64
	Size      *int64
}

// Store is the contract every object store backend implements.
//
// Set with existingKey == nil allocates a fresh key and never reuses one
// that has ever been returned, even across restarts of a durable backend.
// Set with existingKey != nil atomically replaces that key's value.
//
// Get returns (nil, false, nil) for an unknown key — this is not an error.
//
// Keys and Rev return channels that are snapshot-consistent with writes
// completed before the call began; a backend may also choose to surface
// writes that race with an in-flight scan, but must never omit a write
// that completed-before the scan started. Closing ctx or abandoning the
// channel must make the producing goroutine exit rather than leak.
// Clone returns a handle on the same logical store for an independent
// caller. Clones share stored data; a networked backend's clone carries
// its own connection so concurrent callers never serialize on one socket.
// Closing a clone must not invalidate its siblings' data.
type Store interface {
	Set(ctx context.Context, existingKey *uint32, data []byte) (uint32, error)
	Get(ctx context.Context, key uint32) ([]byte, bool, error)
	Keys(ctx context.Context) (<-chan Record, error)
	Rev(ctx context.Context) (<-chan Record, error)
	Clone() Store
	Close() error
}
