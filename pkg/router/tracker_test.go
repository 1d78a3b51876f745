package router

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tagdb/tagdb/pkg/dberr"
	"github.com/tagdb/tagdb/pkg/types"
)

// countingPeers wraps a PeersList and counts directory lookups.
type countingPeers struct {
	inner PeersList
	calls int
	fail  bool
}

func (c *countingPeers) Get(ctx context.Context, id uint32) (types.Peer, error) {
	c.calls++
	if c.fail {
		return types.Peer{}, errors.New("directory unreachable")
	}
	return c.inner.Get(ctx, id)
}

func testPeer(id uint32) types.Peer {
	return types.Peer{ID: id, Name: "node", Host: "peer.example:50051"}
}

func TestTrackerCachesResolvedPeers(t *testing.T) {
	list := &countingPeers{inner: NewStaticPeers(testPeer(7))}
	tr, err := NewTracker(list, TrackerConfig{Capacity: 8, TTL: time.Minute}, "")
	require.NoError(t, err)
	defer tr.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		p, err := tr.Get(ctx, 7)
		require.NoError(t, err)
		require.Equal(t, uint32(7), p.ID)
	}
	require.Equal(t, 1, list.calls)
}

func TestTrackerUnknownPeerIsCannotGetPeer(t *testing.T) {
	list := &countingPeers{inner: NewStaticPeers()}
	tr, err := NewTracker(list, TrackerConfig{}, "")
	require.NoError(t, err)
	defer tr.Close()

	_, err = tr.Get(context.Background(), 99)
	require.ErrorIs(t, err, dberr.ErrCannotGetPeer)
}

func TestTrackerTTLExpiryTriggersRefresh(t *testing.T) {
	list := &countingPeers{inner: NewStaticPeers(testPeer(7))}
	tr, err := NewTracker(list, TrackerConfig{Capacity: 8, TTL: 20 * time.Millisecond}, "")
	require.NoError(t, err)
	defer tr.Close()

	ctx := context.Background()
	_, err = tr.Get(ctx, 7)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	_, err = tr.Get(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 2, list.calls)
}

func TestTrackerSnapshotSurvivesDirectoryOutage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.db")
	list := &countingPeers{inner: NewStaticPeers(testPeer(7))}

	tr, err := NewTracker(list, TrackerConfig{Capacity: 8, TTL: 10 * time.Millisecond}, path)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = tr.Get(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	// New process: cache empty, directory down. The snapshot still
	// resolves the peer.
	list.fail = true
	tr2, err := NewTracker(list, TrackerConfig{Capacity: 8, TTL: time.Minute}, path)
	require.NoError(t, err)
	defer tr2.Close()

	p, err := tr2.Get(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "peer.example:50051", p.Host)

	// A peer the snapshot never saw still fails.
	_, err = tr2.Get(ctx, 8)
	require.ErrorIs(t, err, dberr.ErrCannotGetPeer)
}
