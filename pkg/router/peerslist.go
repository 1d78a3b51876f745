// Package router implements peer discovery, caching, and dispatch between
// the local database and remote peers in the federated trust network.
package router

import (
	"context"
	"sync"

	"github.com/tagdb/tagdb/pkg/types"
)

// PeersList resolves a numeric peer id to its directory record. Loading
// the underlying directory (from a file, an explorer service, or anywhere
// else) is an external front-end's job; the router only ever consumes
// this interface.
type PeersList interface {
	Get(ctx context.Context, id uint32) (types.Peer, error)
}

// ErrPeerNotFound is returned by a PeersList when id has no known record.
type ErrPeerNotFound struct{ ID uint32 }

func (e ErrPeerNotFound) Error() string {
	return "router: no peer record for id"
}

// StaticPeers is an in-memory PeersList over a fixed map, suitable for
// tests and small deployments that don't need an external directory.
type StaticPeers struct {
	mu    sync.RWMutex
	peers map[uint32]types.Peer
}

// NewStaticPeers builds a StaticPeers from the given records.
func NewStaticPeers(peers ...types.Peer) *StaticPeers {
	m := make(map[uint32]types.Peer, len(peers))
	for _, p := range peers {
		m[p.ID] = p
	}
	return &StaticPeers{peers: m}
}

func (s *StaticPeers) Get(_ context.Context, id uint32) (types.Peer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.peers[id]
	if !ok {
		return types.Peer{}, ErrPeerNotFound{ID: id}
	}
	return p, nil
}

// Put adds or replaces a peer record.
func (s *StaticPeers) Put(p types.Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[p.ID] = p
}

var _ PeersList = (*StaticPeers)(nil)
