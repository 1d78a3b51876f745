package acl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tagdb/tagdb/pkg/objectstore"
)

func TestStoreCreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewStore(objectstore.NewMemoryBackend())

	id, err := store.Create(ctx, Record{Perm: Read, Users: []uint64{1}})
	require.NoError(t, err)

	rec, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Read, rec.Perm)
	require.Equal(t, []uint64{1}, rec.Users)

	require.NoError(t, store.Update(ctx, id, Record{Perm: Read | Write, Users: []uint64{1, 2}}))

	rec, ok, err = store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Read|Write, rec.Perm)
	require.Equal(t, []uint64{1, 2}, rec.Users)
}

func TestStoreGetUnknownID(t *testing.T) {
	store := NewStore(objectstore.NewMemoryBackend())
	_, ok, err := store.Get(context.Background(), 999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseIDFallsBackToZero(t *testing.T) {
	require.Equal(t, uint32(0), ParseID("not-a-number"))
	require.Equal(t, uint32(42), ParseID("42"))
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewStore(objectstore.NewMemoryBackend())

	id1, err := store.Create(ctx, Record{Perm: Read, Users: []uint64{1}})
	require.NoError(t, err)
	id2, err := store.Create(ctx, Record{Perm: Write, Users: []uint64{2}})
	require.NoError(t, err)

	ch, err := store.List(ctx)
	require.NoError(t, err)

	seen := map[uint32]Record{}
	for e := range ch {
		seen[e.ID] = e.Record
	}
	require.Len(t, seen, 2)
	require.Equal(t, Read, seen[id1].Perm)
	require.Equal(t, Write, seen[id2].Perm)
}
