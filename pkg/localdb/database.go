// Package localdb implements the authorization-checked CRUD pipeline over
// an object store, a per-collection metadata index and an ACL store. It is
// the database a Router falls back to for Route.Local, and the only
// implementation that ever executes a mutating operation.
package localdb

import (
	"context"

	"github.com/tagdb/tagdb/pkg/types"
)

// ListResult is one element of a List stream.
type ListResult struct {
	Key uint32
	Err error
}

// FindResult is one element of a Find stream: a full object (without its
// blob) or a terminal error.
type FindResult struct {
	Object types.Object
	Err    error
}

// Database is the operation surface both LocalDatabase and Router
// implement. Every method takes the caller's identity/route in rctx
// even though LocalDatabase itself never branches on rctx.Route --
// that belongs to the Router sitting in front of it.
type Database interface {
	// Set creates a new document, owner-only. aclID, if non-nil, is
	// stored as the document's :acl tag.
	Set(ctx context.Context, rctx types.Context, collection string, data []byte, tags types.TagMap, aclID *uint32) (uint32, error)

	// Get fetches a document's blob and tags, scoped to collection.
	Get(ctx context.Context, rctx types.Context, key uint32, collection string) (*types.Object, error)

	// Head fetches a document's tags without its blob, scoped to collection.
	Head(ctx context.Context, rctx types.Context, key uint32, collection string) (types.TagMap, error)

	// Fetch fetches a document's blob and tags without collection scoping.
	// A tombstoned document is returned as its tombstone tag map with no
	// blob rather than NotFound.
	Fetch(ctx context.Context, rctx types.Context, key uint32) (*types.Object, error)

	// Update mutates an existing document's tags and, optionally, its blob and ACL.
	Update(ctx context.Context, rctx types.Context, key uint32, collection string, data []byte, tags types.TagMap, aclID *uint32) error

	// Delete tombstones a document; its blob is left untouched.
	Delete(ctx context.Context, rctx types.Context, key uint32, collection string) error

	// List streams keys matching tags within collection, owner-only.
	List(ctx context.Context, rctx types.Context, collection string, tags types.TagMap) (<-chan ListResult, error)

	// Find streams full objects (without blobs) matching tags within collection, owner-only.
	Find(ctx context.Context, rctx types.Context, collection string, tags types.TagMap) (<-chan FindResult, error)
}
