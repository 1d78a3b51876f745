package localdb

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tagdb/tagdb/pkg/acl"
	"github.com/tagdb/tagdb/pkg/dberr"
	"github.com/tagdb/tagdb/pkg/events"
	"github.com/tagdb/tagdb/pkg/log"
	"github.com/tagdb/tagdb/pkg/metaindex"
	"github.com/tagdb/tagdb/pkg/metrics"
	"github.com/tagdb/tagdb/pkg/objectstore"
	"github.com/tagdb/tagdb/pkg/types"
)

// LocalDatabase is the reference Database implementation: an object store,
// a per-collection metadata index factory and an ACL store, composed
// behind a single authorization pipeline.
type LocalDatabase struct {
	blobs   objectstore.Store
	indexes metaindex.Factory
	acls    *acl.Store
	pool    *WorkerPool
	events  *events.Broker

	mu          sync.Mutex
	collections map[string]struct{}
}

// New builds a LocalDatabase over the given backends. workers bounds the
// number of goroutines dedicated to blocking object-store calls.
func New(blobs objectstore.Store, indexes metaindex.Factory, acls *acl.Store, broker *events.Broker, workers int) *LocalDatabase {
	return &LocalDatabase{
		blobs:       blobs,
		indexes:     indexes,
		acls:        acls,
		pool:        NewWorkerPool(workers),
		events:      broker,
		collections: make(map[string]struct{}),
	}
}

func (d *LocalDatabase) rememberCollection(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.collections[name] = struct{}{}
}

// Collections lists every collection this node has ever written to,
// satisfying metrics.CollectionCounter.
func (d *LocalDatabase) Collections(_ context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.collections))
	for name := range d.collections {
		out = append(out, name)
	}
	return out, nil
}

// Count returns the number of documents found with an unconstrained Find
// over collection, satisfying metrics.CollectionCounter.
func (d *LocalDatabase) Count(ctx context.Context, collection string) (int, error) {
	idx, err := d.indexes.Get(ctx, collection)
	if err != nil {
		return 0, err
	}
	ch, err := idx.Find(ctx, map[string]string{})
	if err != nil {
		return 0, err
	}
	n := 0
	for r := range ch {
		if r.Err != nil {
			return n, r.Err
		}
		n++
	}
	return n, nil
}

func (d *LocalDatabase) Set(ctx context.Context, rctx types.Context, collection string, data []byte, tags types.TagMap, aclID *uint32) (uint32, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.IndexQueryDuration, collection, "set")

	if !rctx.Auth.IsOwner() {
		return 0, dberr.ErrUnauthorized
	}
	if tags.HasReserved() {
		return 0, dberr.ErrInvalidTag
	}

	meta := tags.Clone()
	meta[types.TagCollection] = collection
	meta[types.TagSize] = strconv.Itoa(len(data))
	meta[types.TagCreated] = strconv.FormatInt(time.Now().Unix(), 10)
	if aclID != nil {
		meta[types.TagACL] = strconv.FormatUint(uint64(*aclID), 10)
	}

	key, err := Do(ctx, d.pool, func() (uint32, error) {
		return d.blobs.Set(ctx, nil, data)
	})
	if err != nil {
		return 0, dberr.Wrap(dberr.Unknown, "write blob", err)
	}

	idx, err := d.indexes.Get(ctx, collection)
	if err != nil {
		return 0, err
	}
	if err := idx.Set(ctx, key, meta); err != nil {
		return 0, err
	}

	d.rememberCollection(collection)
	d.publish(events.EventObjectCreated, collection, key)
	docLogger := log.WithCollection(collection)
	docLogger.Debug().Msg("document created")
	return key, nil
}

func (d *LocalDatabase) Get(ctx context.Context, rctx types.Context, key uint32, collection string) (*types.Object, error) {
	idx, err := d.indexes.Get(ctx, collection)
	if err != nil {
		return nil, err
	}
	meta, ok, err := idx.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok || !types.TagMap(meta).IsCollection(collection) || types.TagMap(meta).IsDeleted() {
		return nil, dberr.ErrNotFound
	}

	if err := d.isAuthorized(ctx, rctx, meta, acl.Read); err != nil {
		metrics.ACLDecisionsTotal.WithLabelValues("read", "denied").Inc()
		return nil, err
	}
	metrics.ACLDecisionsTotal.WithLabelValues("read", "allowed").Inc()

	data, err := Do(ctx, d.pool, func() ([]byte, error) {
		found, ok, err := d.blobs.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, dberr.ErrNotFound
		}
		return found, nil
	})
	if err != nil {
		if dberr.CodeOf(err) == dberr.NotFound {
			return nil, err
		}
		return nil, dberr.Wrap(dberr.Unknown, "read blob", err)
	}

	return &types.Object{Key: key, Meta: meta, Data: data}, nil
}

func (d *LocalDatabase) Head(ctx context.Context, rctx types.Context, key uint32, collection string) (types.TagMap, error) {
	idx, err := d.indexes.Get(ctx, collection)
	if err != nil {
		return nil, err
	}
	meta, ok, err := idx.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok || !types.TagMap(meta).IsCollection(collection) || types.TagMap(meta).IsDeleted() {
		return nil, dberr.ErrNotFound
	}
	if err := d.isAuthorized(ctx, rctx, meta, acl.Read); err != nil {
		return nil, err
	}
	return meta, nil
}

// Fetch is Get without collection scoping, the variant remote peers use.
// Unlike Get it does not hide tombstones: a deleted document comes back as
// its tombstone tag map with no blob, so a relaying peer can distinguish
// "deleted" from "never existed".
func (d *LocalDatabase) Fetch(ctx context.Context, rctx types.Context, key uint32) (*types.Object, error) {
	meta, err := d.findMeta(ctx, key)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, dberr.ErrNotFound
	}

	if err := d.isAuthorized(ctx, rctx, meta, acl.Read); err != nil {
		metrics.ACLDecisionsTotal.WithLabelValues("read", "denied").Inc()
		return nil, err
	}
	metrics.ACLDecisionsTotal.WithLabelValues("read", "allowed").Inc()

	if meta.IsDeleted() {
		return &types.Object{Key: key, Meta: meta}, nil
	}

	data, err := Do(ctx, d.pool, func() ([]byte, error) {
		found, ok, err := d.blobs.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, dberr.ErrNotFound
		}
		return found, nil
	})
	if err != nil {
		if dberr.CodeOf(err) == dberr.NotFound {
			return nil, err
		}
		return nil, dberr.Wrap(dberr.Unknown, "read blob", err)
	}

	return &types.Object{Key: key, Meta: meta, Data: data}, nil
}

// findMeta locates a key's tag map by asking each known collection's
// index in turn. Keys are node-unique, so at most one index answers;
// a nil, nil return means no collection knows the key.
func (d *LocalDatabase) findMeta(ctx context.Context, key uint32) (types.TagMap, error) {
	names, err := d.Collections(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		idx, err := d.indexes.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		meta, ok, err := idx.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return meta, nil
		}
	}
	return nil, nil
}

func (d *LocalDatabase) Update(ctx context.Context, rctx types.Context, key uint32, collection string, data []byte, tags types.TagMap, aclID *uint32) error {
	if tags.HasReserved() {
		return dberr.ErrInvalidTag
	}

	idx, err := d.indexes.Get(ctx, collection)
	if err != nil {
		return err
	}
	current, ok, err := idx.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return dberr.ErrNotFound
	}

	if err := d.isAuthorized(ctx, rctx, current, acl.Write); err != nil {
		return err
	}
	if !types.TagMap(current).IsCollection(collection) {
		return dberr.ErrNotFound
	}
	if aclID != nil && !rctx.Auth.IsOwner() {
		return dberr.ErrUnauthorized
	}

	meta := tags.Clone()
	meta[types.TagCollection] = types.TagMap(current).Collection()
	meta[types.TagUpdated] = strconv.FormatInt(time.Now().Unix(), 10)
	if aclID != nil {
		meta[types.TagACL] = strconv.FormatUint(uint64(*aclID), 10)
	} else if raw, ok := current[types.TagACL]; ok {
		meta[types.TagACL] = raw
	}

	if data != nil {
		meta[types.TagSize] = strconv.Itoa(len(data))
		if _, err := Do(ctx, d.pool, func() (uint32, error) {
			return d.blobs.Set(ctx, &key, data)
		}); err != nil {
			return dberr.Wrap(dberr.Unknown, "write blob", err)
		}
	} else if raw, ok := current[types.TagSize]; ok {
		meta[types.TagSize] = raw
	}

	if err := idx.Set(ctx, key, meta); err != nil {
		return err
	}
	d.publish(events.EventObjectUpdated, collection, key)
	return nil
}

func (d *LocalDatabase) Delete(ctx context.Context, rctx types.Context, key uint32, collection string) error {
	idx, err := d.indexes.Get(ctx, collection)
	if err != nil {
		return err
	}
	current, ok, err := idx.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok || !types.TagMap(current).IsCollection(collection) {
		return dberr.ErrNotFound
	}

	if err := d.isAuthorized(ctx, rctx, current, acl.Delete); err != nil {
		return err
	}

	if err := idx.Set(ctx, key, types.TagMap{
		types.TagCollection: collection,
		types.TagDeleted:    "1",
	}); err != nil {
		return err
	}
	d.publish(events.EventObjectTombstoned, collection, key)
	return nil
}

func (d *LocalDatabase) List(ctx context.Context, rctx types.Context, collection string, tags types.TagMap) (<-chan ListResult, error) {
	if !rctx.Auth.IsOwner() {
		return nil, dberr.ErrUnauthorized
	}
	idx, err := d.indexes.Get(ctx, collection)
	if err != nil {
		return nil, err
	}

	query := tags.Clone()
	if collection != "" {
		query[types.TagCollection] = collection
	}

	found, err := idx.Find(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make(chan ListResult, 10)
	go func() {
		defer close(out)
		for r := range found {
			select {
			case out <- ListResult{Key: r.Key, Err: r.Err}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (d *LocalDatabase) Find(ctx context.Context, rctx types.Context, collection string, tags types.TagMap) (<-chan FindResult, error) {
	if !rctx.Auth.IsOwner() {
		return nil, dberr.ErrUnauthorized
	}
	idx, err := d.indexes.Get(ctx, collection)
	if err != nil {
		return nil, err
	}

	query := tags.Clone()
	if collection != "" {
		query[types.TagCollection] = collection
	}

	found, err := idx.Find(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make(chan FindResult, 10)
	go func() {
		defer close(out)
		for r := range found {
			if r.Err != nil {
				select {
				case out <- FindResult{Err: r.Err}:
				case <-ctx.Done():
				}
				return
			}
			meta, ok, err := idx.Get(ctx, r.Key)
			if err != nil {
				select {
				case out <- FindResult{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if !ok {
				continue
			}
			obj := FindResult{Object: types.Object{Key: r.Key, Meta: meta}}
			select {
			case out <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (d *LocalDatabase) publish(kind events.EventType, collection string, key uint32) {
	if d.events == nil {
		return
	}
	d.events.Publish(&events.Event{
		ID:   uuid.NewString(),
		Type: kind,
		Metadata: map[string]string{
			"collection": collection,
			"key":        strconv.FormatUint(uint64(key), 10),
		},
	})
}

// Close releases the worker pool and every open index.
func (d *LocalDatabase) Close() error {
	d.pool.Close()
	return d.indexes.Close()
}

var _ Database = (*LocalDatabase)(nil)
