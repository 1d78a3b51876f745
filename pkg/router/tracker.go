package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	bolt "go.etcd.io/bbolt"

	"github.com/tagdb/tagdb/pkg/dberr"
	"github.com/tagdb/tagdb/pkg/metrics"
	"github.com/tagdb/tagdb/pkg/types"
)

var bucketPeers = []byte("peers")

// Tracker resolves peer ids through a PeersList, caching results in a
// bounded, TTL-expiring LRU. The lock is deliberately held across the
// underlying list lookup on a cache miss: concurrent requests for the same
// (or different) unresolved peer serialize behind one directory query
// rather than each issuing their own, trading a little latency under
// contention for far fewer directory round trips.
type Tracker struct {
	mu    sync.Mutex
	cache *expirable.LRU[uint32, types.Peer]
	list  PeersList
	snap  *bolt.DB // optional durable last-known-good snapshot
}

// TrackerConfig configures cache capacity and entry lifetime.
type TrackerConfig struct {
	Capacity int
	TTL      time.Duration
}

// NewTracker builds a Tracker over list. If snapshotPath is non-empty, a
// resolved peer is persisted to a local bbolt file so that, after a
// process restart, it can still be served when the directory lookup fails.
func NewTracker(list PeersList, cfg TrackerConfig, snapshotPath string) (*Tracker, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 256
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}

	t := &Tracker{list: list}
	t.cache = expirable.NewLRU[uint32, types.Peer](cfg.Capacity, nil, cfg.TTL)

	if snapshotPath != "" {
		db, err := bolt.Open(snapshotPath, 0600, nil)
		if err != nil {
			return nil, fmt.Errorf("router: open peer snapshot: %w", err)
		}
		if err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketPeers)
			return err
		}); err != nil {
			db.Close()
			return nil, fmt.Errorf("router: init peer snapshot bucket: %w", err)
		}
		t.snap = db
	}

	return t, nil
}

// Get resolves id, consulting the cache first, then the directory on a
// miss, and falling back to the snapshot only when the directory fails.
func (t *Tracker) Get(ctx context.Context, id uint32) (types.Peer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.cache.Get(id); ok {
		metrics.TrackerCacheHits.Inc()
		return p, nil
	}
	metrics.TrackerCacheMisses.Inc()

	p, err := t.list.Get(ctx, id)
	if err != nil {
		if snapPeer, ok := t.loadSnapshot(id); ok {
			return snapPeer, nil
		}
		return types.Peer{}, dberr.Wrap(dberr.CannotGetPeer, "resolve peer", err)
	}

	t.cache.Add(id, p)
	t.saveSnapshot(p)
	return p, nil
}

func (t *Tracker) loadSnapshot(id uint32) (types.Peer, bool) {
	if t.snap == nil {
		return types.Peer{}, false
	}
	var p types.Peer
	found := false
	_ = t.snap.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPeers)
		data := b.Get(peerKey(id))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &p); err == nil {
			found = true
		}
		return nil
	})
	return p, found
}

func (t *Tracker) saveSnapshot(p types.Peer) {
	if t.snap == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = t.snap.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPeers).Put(peerKey(p.ID), data)
	})
}

func peerKey(id uint32) []byte {
	return []byte(fmt.Sprintf("%d", id))
}

// Close releases the durable snapshot handle, if any.
func (t *Tracker) Close() error {
	if t.snap != nil {
		return t.snap.Close()
	}
	return nil
}
