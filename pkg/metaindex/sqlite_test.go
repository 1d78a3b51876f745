package metaindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	idx, err := OpenSQLiteIndex(path)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func drain(t *testing.T, ch <-chan FindResult) []uint32 {
	t.Helper()
	var keys []uint32
	for r := range ch {
		require.NoError(t, r.Err)
		keys = append(keys, r.Key)
	}
	return keys
}

func TestSQLiteIndexSetGet(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	err := idx.Set(ctx, 1, map[string]string{"color": "red", "size": "m"})
	require.NoError(t, err)

	tags, ok, err := idx.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "red", tags["color"])
	require.Equal(t, "m", tags["size"])

	_, ok, err = idx.Get(ctx, 999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteIndexSetUpsertsOverwrite(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Set(ctx, 1, map[string]string{"color": "red"}))
	require.NoError(t, idx.Set(ctx, 1, map[string]string{"color": "blue"}))

	tags, ok, err := idx.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "blue", tags["color"])
}

func TestSQLiteIndexFindIntersection(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Set(ctx, 1, map[string]string{"color": "red", "size": "m"}))
	require.NoError(t, idx.Set(ctx, 2, map[string]string{"color": "red", "size": "l"}))
	require.NoError(t, idx.Set(ctx, 3, map[string]string{"color": "blue", "size": "m"}))

	tests := []struct {
		name string
		tags map[string]string
		want []uint32
	}{
		{"single tag", map[string]string{"color": "red"}, []uint32{1, 2}},
		{"intersection", map[string]string{"color": "red", "size": "m"}, []uint32{1}},
		{"no match", map[string]string{"color": "green"}, nil},
		{"empty tags returns all", map[string]string{}, []uint32{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := idx.Find(ctx, tt.tags)
			require.NoError(t, err)
			got := drain(t, ch)
			require.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestSQLiteIndexFindStopsOnCancel(t *testing.T) {
	idx := openTestIndex(t)
	bg := context.Background()
	for i := uint32(0); i < 20; i++ {
		require.NoError(t, idx.Set(bg, i, map[string]string{"k": "v"}))
	}

	ctx, cancel := context.WithCancel(bg)
	ch, err := idx.Find(ctx, map[string]string{"k": "v"})
	require.NoError(t, err)

	<-ch
	cancel()

	count := 0
	for range ch {
		count++
		if count > 100 {
			t.Fatal("find producer did not respect cancellation")
		}
	}
}
