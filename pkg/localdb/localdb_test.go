package localdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tagdb/tagdb/pkg/acl"
	"github.com/tagdb/tagdb/pkg/dberr"
	"github.com/tagdb/tagdb/pkg/events"
	"github.com/tagdb/tagdb/pkg/metaindex"
	"github.com/tagdb/tagdb/pkg/objectstore"
	"github.com/tagdb/tagdb/pkg/types"
)

func newTestDB(t *testing.T) (*LocalDatabase, objectstore.Store) {
	t.Helper()
	blobs := objectstore.NewMemoryBackend()
	factory := metaindex.NewSQLiteFactory(t.TempDir())
	t.Cleanup(func() { factory.Close() })
	acls := acl.NewStore(objectstore.NewMemoryBackend())
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	db := New(blobs, factory, acls, broker, 2)
	t.Cleanup(func() { db.Close() })
	return db, blobs
}

func TestSetGetRoundTrip(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	key, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("hello"), types.TagMap{"color": "red"}, nil)
	require.NoError(t, err)

	obj, err := db.Get(ctx, types.LocalOwner(), key, "docs")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), obj.Data)
	require.Equal(t, "red", obj.Meta["color"])
	require.Equal(t, "docs", obj.Meta[types.TagCollection])
	require.Equal(t, "5", obj.Meta[types.TagSize])
	require.NotEmpty(t, obj.Meta[types.TagCreated])
}

func TestSetRejectsNonOwner(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.Set(ctx, types.Context{Auth: types.UserAuth(1), Route: types.LocalRoute()}, "docs", []byte("x"), nil, nil)
	require.ErrorIs(t, err, dberr.ErrUnauthorized)
}

func TestSetRejectsReservedTag(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("x"), types.TagMap{":size": "99"}, nil)
	require.Error(t, err)
}

func TestGetWrongCollectionIsNotFound(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	key, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("hi"), nil, nil)
	require.NoError(t, err)

	_, err = db.Get(ctx, types.LocalOwner(), key, "other")
	require.Error(t, err)
}

func TestGetUserRequiresACL(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	acls := acl.NewStore(objectstore.NewMemoryBackend())
	aclID, err := acls.Create(ctx, acl.Record{Perm: acl.Read, Users: []uint64{7}})
	require.NoError(t, err)
	db.acls = acls

	key, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("secret"), nil, &aclID)
	require.NoError(t, err)

	userCtx := types.Context{Auth: types.UserAuth(7), Route: types.LocalRoute()}
	obj, err := db.Get(ctx, userCtx, key, "docs")
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), obj.Data)

	otherCtx := types.Context{Auth: types.UserAuth(99), Route: types.LocalRoute()}
	_, err = db.Get(ctx, otherCtx, key, "docs")
	require.Error(t, err)
}

func TestGetUserNoACLIsDenied(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	key, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("x"), nil, nil)
	require.NoError(t, err)

	userCtx := types.Context{Auth: types.UserAuth(1), Route: types.LocalRoute()}
	_, err = db.Get(ctx, userCtx, key, "docs")
	require.Error(t, err)
}

func TestUpdateReplacesBlobAndWritesTags(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	key, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("v1"), nil, nil)
	require.NoError(t, err)

	err = db.Update(ctx, types.LocalOwner(), key, "docs", []byte("v2"), types.TagMap{"x": "1"}, nil)
	require.NoError(t, err)

	obj, err := db.Get(ctx, types.LocalOwner(), key, "docs")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), obj.Data)
	require.Equal(t, "1", obj.Meta["x"])
	require.NotEmpty(t, obj.Meta[types.TagUpdated])
}

func TestUpdateRejectsACLRebindFromNonOwner(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	acls := acl.NewStore(objectstore.NewMemoryBackend())
	aclID, err := acls.Create(ctx, acl.Record{Perm: acl.Write, Users: []uint64{5}})
	require.NoError(t, err)
	db.acls = acls

	key, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("v1"), nil, &aclID)
	require.NoError(t, err)

	newACL := aclID + 1
	userCtx := types.Context{Auth: types.UserAuth(5), Route: types.LocalRoute()}
	err = db.Update(ctx, userCtx, key, "docs", []byte("v2"), nil, &newACL)
	require.Error(t, err)
}

func TestDeleteTombstonesWithoutTouchingBlob(t *testing.T) {
	db, blobs := newTestDB(t)
	ctx := context.Background()

	key, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("x"), nil, nil)
	require.NoError(t, err)

	require.NoError(t, db.Delete(ctx, types.LocalOwner(), key, "docs"))

	_, err = db.Get(ctx, types.LocalOwner(), key, "docs")
	require.Error(t, err) // Get hides tombstones behind NotFound

	raw, ok, err := blobs.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("x"), raw)
}

func TestFetchIgnoresCollectionScoping(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	key, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("hi"), nil, nil)
	require.NoError(t, err)

	_, err = db.Get(ctx, types.LocalOwner(), key, "other")
	require.Error(t, err)

	obj, err := db.Fetch(ctx, types.LocalOwner(), key)
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), obj.Data)
	require.Equal(t, "docs", obj.Meta[types.TagCollection])
}

func TestFetchReturnsTombstoneAfterDelete(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	key, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("x"), types.TagMap{"color": "red"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Delete(ctx, types.LocalOwner(), key, "docs"))

	// Get hides the tombstone; Fetch surfaces it, blob omitted.
	_, err = db.Get(ctx, types.LocalOwner(), key, "docs")
	require.ErrorIs(t, err, dberr.ErrNotFound)

	obj, err := db.Fetch(ctx, types.LocalOwner(), key)
	require.NoError(t, err)
	require.Equal(t, "1", obj.Meta[types.TagDeleted])
	require.Empty(t, obj.Data)
}

func TestFetchUnknownKeyIsNotFound(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("x"), nil, nil)
	require.NoError(t, err)

	_, err = db.Fetch(ctx, types.LocalOwner(), 9999)
	require.ErrorIs(t, err, dberr.ErrNotFound)
}

func TestListAndFindAreOwnerOnly(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	userCtx := types.Context{Auth: types.UserAuth(1), Route: types.LocalRoute()}

	_, err := db.List(ctx, userCtx, "docs", nil)
	require.Error(t, err)

	_, err = db.Find(ctx, userCtx, "docs", nil)
	require.Error(t, err)
}

func TestListAndFind(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	k1, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("a"), types.TagMap{"color": "red"}, nil)
	require.NoError(t, err)
	_, err = db.Set(ctx, types.LocalOwner(), "docs", []byte("b"), types.TagMap{"color": "blue"}, nil)
	require.NoError(t, err)

	ch, err := db.List(ctx, types.LocalOwner(), "docs", types.TagMap{"color": "red"})
	require.NoError(t, err)
	var keys []uint32
	for r := range ch {
		require.NoError(t, r.Err)
		keys = append(keys, r.Key)
	}
	require.Equal(t, []uint32{k1}, keys)

	fch, err := db.Find(ctx, types.LocalOwner(), "docs", types.TagMap{"color": "red"})
	require.NoError(t, err)
	var objs []types.Object
	for r := range fch {
		require.NoError(t, r.Err)
		objs = append(objs, r.Object)
	}
	require.Len(t, objs, 1)
	require.Nil(t, objs[0].Data)
	require.Equal(t, "red", objs[0].Meta["color"])
}

func TestCollectionsAndCount(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.Set(ctx, types.LocalOwner(), "docs", []byte("a"), nil, nil)
	require.NoError(t, err)
	_, err = db.Set(ctx, types.LocalOwner(), "docs", []byte("b"), nil, nil)
	require.NoError(t, err)

	cols, err := db.Collections(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"docs"}, cols)

	n, err := db.Count(ctx, "docs")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
