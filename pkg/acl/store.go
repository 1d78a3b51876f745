package acl

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/tagdb/tagdb/pkg/dberr"
	"github.com/tagdb/tagdb/pkg/objectstore"
)

// ReservedCollection is the internal collection ACL records live in. It
// starts with ':' like every other reserved tag, so the normal reserved-tag
// rule already keeps ordinary client writes out of it.
const ReservedCollection = ":acl-store"

// Entry pairs a stored record with the key it was found under.
type Entry struct {
	ID     uint32
	Record Record
}

// Store persists ACL records as JSON blobs in an object store.
type Store struct {
	backend objectstore.Store
}

// NewStore wraps backend as an ACL store.
func NewStore(backend objectstore.Store) *Store {
	return &Store{backend: backend}
}

// Create stores a new ACL record and returns its id (the object-store key).
func (s *Store) Create(ctx context.Context, rec Record) (uint32, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, dberr.Wrap(dberr.Unknown, "encode acl record", err)
	}
	id, err := s.backend.Set(ctx, nil, payload)
	if err != nil {
		return 0, dberr.Wrap(dberr.Unknown, "store acl record", err)
	}
	return id, nil
}

// Get fetches the ACL record with the given id. It returns ok == false,
// with no error, when no record is stored under id.
func (s *Store) Get(ctx context.Context, id uint32) (*Record, bool, error) {
	data, ok, err := s.backend.Get(ctx, id)
	if err != nil {
		return nil, false, dberr.Wrap(dberr.Unknown, "read acl record", err)
	}
	if !ok {
		return nil, false, nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, dberr.Wrap(dberr.Unknown, "decode acl record", err)
	}
	return &rec, true, nil
}

// ParseID parses a tag value (the string form of a :acl tag) into an ACL
// id, falling back to 0 (fail-closed, never a live ACL) on any parse error.
func ParseID(raw string) uint32 {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(id)
}

// Update replaces the record stored at id.
func (s *Store) Update(ctx context.Context, id uint32, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return dberr.Wrap(dberr.Unknown, "encode acl record", err)
	}
	if _, err := s.backend.Set(ctx, &id, payload); err != nil {
		return dberr.Wrap(dberr.Unknown, "update acl record", err)
	}
	return nil
}

// List streams every stored ACL record. Order is the backend's own scan
// order and carries no other guarantee. The scan runs on its own cloned
// backend handle, so a slow consumer never stalls callers sharing the
// store's primary one.
func (s *Store) List(ctx context.Context) (<-chan Entry, error) {
	backend := s.backend.Clone()
	keys, err := backend.Keys(ctx)
	if err != nil {
		backend.Close()
		return nil, dberr.Wrap(dberr.Unknown, "list acl records", err)
	}

	out := make(chan Entry)
	go func() {
		defer close(out)
		defer backend.Close()
		for rec := range keys {
			data, ok, err := backend.Get(ctx, rec.Key)
			if err != nil || !ok {
				continue
			}
			var r Record
			if err := json.Unmarshal(data, &r); err != nil {
				continue
			}
			select {
			case out <- Entry{ID: rec.Key, Record: r}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
