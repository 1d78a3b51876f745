package metaindex

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tagdb/tagdb/pkg/objectstore"
)

func newInterceptor(t *testing.T) (*MetaInterceptor, *SQLiteIndex, objectstore.Store) {
	t.Helper()
	idx, err := OpenSQLiteIndex(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	storage := objectstore.NewMemoryBackend()
	return NewMetaInterceptor(idx, storage), idx, storage
}

func TestMetaInterceptorMirrorsWrites(t *testing.T) {
	mi, idx, storage := newInterceptor(t)
	ctx := context.Background()

	require.NoError(t, mi.Set(ctx, 1, map[string]string{"color": "red"}))

	tags, ok, err := idx.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "red", tags["color"])

	ch, err := storage.Keys(ctx)
	require.NoError(t, err)
	var mirrored int
	for range ch {
		mirrored++
	}
	require.Equal(t, 1, mirrored)
}

func TestMetaInterceptorRebuildAll(t *testing.T) {
	mi, idx, storage := newInterceptor(t)
	ctx := context.Background()

	require.NoError(t, mi.Set(ctx, 1, map[string]string{"color": "red"}))
	require.NoError(t, mi.Set(ctx, 2, map[string]string{"color": "blue"}))

	// simulate total index loss: fresh index, same mirrored log
	fresh, err := OpenSQLiteIndex(filepath.Join(t.TempDir(), "fresh.sqlite"))
	require.NoError(t, err)
	defer fresh.Close()

	rebuilder := NewMetaInterceptor(fresh, storage)
	require.NoError(t, rebuilder.Rebuild(ctx, nil))

	tags, ok, err := fresh.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "red", tags["color"])

	tags, ok, err = fresh.Get(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "blue", tags["color"])

	_ = idx
}

// timestampedStore is a minimal objectstore.Store that reports timestamps,
// used to exercise the timestamp-bounded rebuild path that MemoryBackend
// (which never reports timestamps) cannot.
type timestampedStore struct {
	recs []struct {
		key  uint32
		ts   int64
		data []byte
	}
	next uint32
}

func (s *timestampedStore) Set(_ context.Context, existingKey *uint32, data []byte) (uint32, error) {
	key := s.next
	if existingKey != nil {
		key = *existingKey
	}
	s.next++
	s.recs = append(s.recs, struct {
		key  uint32
		ts   int64
		data []byte
	}{key, time.Now().Unix(), data})
	return key, nil
}

func (s *timestampedStore) Get(_ context.Context, key uint32) ([]byte, bool, error) {
	for i := len(s.recs) - 1; i >= 0; i-- {
		if s.recs[i].key == key {
			return s.recs[i].data, true, nil
		}
	}
	return nil, false, nil
}

func (s *timestampedStore) Keys(ctx context.Context) (<-chan objectstore.Record, error) {
	out := make(chan objectstore.Record, len(s.recs))
	for _, r := range s.recs {
		ts := r.ts
		out <- objectstore.Record{Key: r.key, Timestamp: &ts}
	}
	close(out)
	return out, nil
}

func (s *timestampedStore) Rev(ctx context.Context) (<-chan objectstore.Record, error) {
	out := make(chan objectstore.Record, len(s.recs))
	for i := len(s.recs) - 1; i >= 0; i-- {
		ts := s.recs[i].ts
		out <- objectstore.Record{Key: s.recs[i].key, Timestamp: &ts}
	}
	close(out)
	return out, nil
}

func (s *timestampedStore) Clone() objectstore.Store { return s }

func (s *timestampedStore) Close() error { return nil }

func TestMetaInterceptorRebuildFromTimestampRequiresSupport(t *testing.T) {
	idx, err := OpenSQLiteIndex(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	defer idx.Close()

	mi := NewMetaInterceptor(idx, objectstore.NewMemoryBackend())
	cutoff := time.Now().Unix()
	err = mi.Rebuild(context.Background(), &cutoff)
	require.Error(t, err)
}

func TestMetaInterceptorRebuildFromTimestamp(t *testing.T) {
	store := &timestampedStore{}
	idx, err := OpenSQLiteIndex(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	defer idx.Close()
	mi := NewMetaInterceptor(idx, store)
	ctx := context.Background()

	require.NoError(t, mi.Set(ctx, 1, map[string]string{"color": "red"}))
	cutoff := time.Now().Unix()
	require.NoError(t, mi.Set(ctx, 2, map[string]string{"color": "blue"}))

	fresh, err := OpenSQLiteIndex(filepath.Join(t.TempDir(), "fresh.sqlite"))
	require.NoError(t, err)
	defer fresh.Close()

	rebuilder := NewMetaInterceptor(fresh, store)
	require.NoError(t, rebuilder.Rebuild(ctx, &cutoff))

	_, ok, err := fresh.Get(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
}
