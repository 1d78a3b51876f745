package metaindex

import (
	"context"
	"encoding/json"

	"github.com/tagdb/tagdb/pkg/dberr"
	"github.com/tagdb/tagdb/pkg/objectstore"
)

// logRecord is the JSON shape mirrored into the auxiliary object-store log
// on every Set, and read back during Rebuild.
type logRecord struct {
	Key  uint32            `json:"key"`
	Tags map[string]string `json:"tags"`
}

// MetaInterceptor wraps an Index and mirrors every Set into an auxiliary
// object-store stream, so the index can be recovered if it's lost or
// corrupted without replaying the primary object log.
type MetaInterceptor struct {
	inner   Index
	storage objectstore.Store
}

// NewMetaInterceptor wraps inner, mirroring writes into storage.
func NewMetaInterceptor(inner Index, storage objectstore.Store) *MetaInterceptor {
	return &MetaInterceptor{inner: inner, storage: storage}
}

func (m *MetaInterceptor) Set(ctx context.Context, key uint32, tags map[string]string) error {
	rec := logRecord{Key: key, Tags: tags}
	payload, err := json.Marshal(rec)
	if err != nil {
		return dberr.Wrap(dberr.Unknown, "encode log record", err)
	}

	// The blob write happens before the index write it describes, so a
	// crash between the two leaves an orphan record a later Rebuild can
	// still discover, never a dangling index entry with no backing log.
	if _, err := m.storage.Set(ctx, nil, payload); err != nil {
		return dberr.Wrap(dberr.Unknown, "mirror log record", err)
	}
	return m.inner.Set(ctx, key, tags)
}

func (m *MetaInterceptor) Get(ctx context.Context, key uint32) (map[string]string, bool, error) {
	return m.inner.Get(ctx, key)
}

func (m *MetaInterceptor) Find(ctx context.Context, tags map[string]string) (<-chan FindResult, error) {
	return m.inner.Find(ctx, tags)
}

func (m *MetaInterceptor) Close() error {
	return m.inner.Close()
}

// Rebuild repopulates the wrapped index from the auxiliary log. With from
// == nil it replays the whole log from the start. With from set, it scans
// backward for the first record at or after that Unix timestamp, then
// replays forward from there. That path needs a backend that reports
// timestamps: the first scanned record without one fails the call with
// dberr.Unknown. An empty log returns nil without any check of timestamp
// support.
func (m *MetaInterceptor) Rebuild(ctx context.Context, from *int64) error {
	if from == nil {
		return m.rebuildAll(ctx)
	}
	return m.rebuildFrom(ctx, *from)
}

func (m *MetaInterceptor) rebuildAll(ctx context.Context) error {
	keys, err := m.storage.Keys(ctx)
	if err != nil {
		return dberr.Wrap(dberr.Unknown, "list log", err)
	}

	for rec := range keys {
		data, ok, err := m.storage.Get(ctx, rec.Key)
		if err != nil {
			return dberr.Wrap(dberr.Unknown, "read log record", err)
		}
		if !ok {
			continue // tombstoned or missing entry, skip rather than fail the whole rebuild
		}
		var lr logRecord
		if err := json.Unmarshal(data, &lr); err != nil {
			continue
		}
		if err := m.inner.Set(ctx, lr.Key, lr.Tags); err != nil {
			return dberr.Wrap(dberr.Unknown, "replay log record", err)
		}
	}
	return nil
}

func (m *MetaInterceptor) rebuildFrom(ctx context.Context, from int64) error {
	// The reverse scan is abandoned as soon as the resume point is found;
	// the child context releases any producer goroutine the backend left
	// blocked on its next send.
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rev, err := m.storage.Rev(scanCtx)
	if err != nil {
		return dberr.Wrap(dberr.Unknown, "reverse-scan log", err)
	}

	var start uint32
	found := false
	for rec := range rev {
		if rec.Timestamp == nil {
			return dberr.New(dberr.Unknown, "rebuild from timestamp is not supported by this object store backend")
		}
		if *rec.Timestamp < from {
			break
		}
		start = rec.Key
		found = true
	}
	cancel()
	if !found {
		return nil // nothing in the log is at or after `from`
	}

	key := start
	for {
		data, ok, err := m.storage.Get(ctx, key)
		if err != nil {
			return dberr.Wrap(dberr.Unknown, "read log record", err)
		}
		if !ok {
			break // gap marks the end of the contiguous log
		}
		var lr logRecord
		if err := json.Unmarshal(data, &lr); err == nil {
			if err := m.inner.Set(ctx, lr.Key, lr.Tags); err != nil {
				return dberr.Wrap(dberr.Unknown, "replay log record", err)
			}
		}
		key++
	}
	return nil
}

var _ Index = (*MetaInterceptor)(nil)
