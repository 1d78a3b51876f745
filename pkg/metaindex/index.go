// Package metaindex implements the per-collection tag index: a three-column
// (key, tag, value) table supporting exact-match tag-intersection queries,
// with a rebuild path from the object store's own log.
package metaindex

import "context"

// FindResult is one element of a Find stream: a matching key, or a
// terminal error if the producer failed partway through.
type FindResult struct {
	Key uint32
	Err error
}

// Index is the contract for one collection's metadata store.
type Index interface {
	// Set upserts each (tag, value) pair of tags for key; tags already
	// stored for key that are absent from tags keep their values.
	Set(ctx context.Context, key uint32, tags map[string]string) error
	// Get returns the tag map previously set for key, or (nil, false) if unknown.
	Get(ctx context.Context, key uint32) (map[string]string, bool, error)
	// Find streams every key whose tag map is a superset of tags. An empty
	// tags map streams every known key. The channel has capacity 10 and
	// its producer exits on context cancellation or consumer abandonment.
	Find(ctx context.Context, tags map[string]string) (<-chan FindResult, error)
	Close() error
}

// Factory lazily creates and caches one Index per collection name.
type Factory interface {
	Get(ctx context.Context, collection string) (Index, error)
	Close() error
}
