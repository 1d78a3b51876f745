package router

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/tagdb/tagdb/pkg/dberr"
	"github.com/tagdb/tagdb/pkg/identity"
	"github.com/tagdb/tagdb/pkg/localdb"
	"github.com/tagdb/tagdb/pkg/metrics"
	"github.com/tagdb/tagdb/pkg/peerrpc"
	"github.com/tagdb/tagdb/pkg/types"
)

// PeerDialer opens a peerrpc client to a peer's host. Production code uses
// peerrpc.Dial; tests substitute a fake.
type PeerDialer func(host string) (PeerClient, error)

// PeerClient is the read subset of peerrpc.Client the router depends on.
type PeerClient interface {
	Fetch(ctx context.Context, key uint32, authHeader string) (*types.Object, error)
	Get(ctx context.Context, key uint32, collection, authHeader string) (*types.Object, error)
	Head(ctx context.Context, key uint32, collection, authHeader string) (types.TagMap, error)
	Close() error
}

var _ PeerClient = (*peerrpc.Client)(nil)

func dialPeerRPC(host string) (PeerClient, error) {
	return peerrpc.Dial(host)
}

// Router dispatches a Database operation to the local database or, for a
// remote route, to the peer a Tracker resolves. Every mutating or
// streaming method fails closed with dberr.ErrNotSupported on a remote
// route: only Fetch, Get and Head ever leave the node.
type Router struct {
	local   localdb.Database
	tracker *Tracker
	self    *identity.Identity
	dial    PeerDialer

	mu      sync.Mutex
	clients map[uint32]PeerClient
}

// New builds a Router. self signs outgoing peer requests; it may be nil if
// this node never originates remote reads (e.g. in tests exercising only
// the local path).
func New(local localdb.Database, tracker *Tracker, self *identity.Identity) *Router {
	return &Router{
		local:   local,
		tracker: tracker,
		self:    self,
		dial:    dialPeerRPC,
		clients: make(map[uint32]PeerClient),
	}
}

// WithDialer overrides the peer dial function, for tests.
func (r *Router) WithDialer(d PeerDialer) *Router {
	r.dial = d
	return r
}

func (r *Router) clientFor(ctx context.Context, peerID uint32) (PeerClient, error) {
	r.mu.Lock()
	if c, ok := r.clients[peerID]; ok {
		r.mu.Unlock()
		return c, nil
	}
	r.mu.Unlock()

	peer, err := r.tracker.Get(ctx, peerID)
	if err != nil {
		return nil, err
	}
	c, err := r.dial(peer.Host)
	if err != nil {
		return nil, dberr.Wrap(dberr.CannotGetPeer, "dial peer", err)
	}

	r.mu.Lock()
	r.clients[peerID] = c
	r.mu.Unlock()
	return c, nil
}

func (r *Router) authHeader(headers []string) string {
	if r.self == nil {
		return ""
	}
	sig := r.self.Sign([]byte(fmt.Sprintf("%v", headers)))
	return identity.BuildAuthorizationHeader(r.self, headers, base64.StdEncoding.EncodeToString(sig))
}

func (r *Router) remoteRead(ctx context.Context, rctx types.Context, op string, fn func(PeerClient, string) (any, error)) (any, error) {
	peerID, ok := rctx.Route.PeerID()
	if !ok {
		return nil, dberr.New(dberr.Unknown, "router: remote read without peer id")
	}
	client, err := r.clientFor(ctx, peerID)
	if err != nil {
		metrics.RouterRequestsTotal.WithLabelValues("remote", "error").Inc()
		return nil, err
	}
	timer := metrics.NewTimer()
	header := r.authHeader([]string{op})
	res, err := fn(client, header)
	timer.ObserveDurationVec(metrics.PeerRPCDuration, op)
	if err != nil {
		metrics.RouterRequestsTotal.WithLabelValues("remote", "error").Inc()
		return nil, dberr.Wrap(dberr.CannotGetPeer, op, err)
	}
	metrics.RouterRequestsTotal.WithLabelValues("remote", "ok").Inc()
	return res, nil
}

// Set delegates to the local database. Remote routes never write.
func (r *Router) Set(ctx context.Context, rctx types.Context, collection string, data []byte, tags types.TagMap, aclID *uint32) (uint32, error) {
	if rctx.Route.IsRemote() {
		return 0, dberr.ErrNotSupported
	}
	metrics.RouterRequestsTotal.WithLabelValues("local", "ok").Inc()
	return r.local.Set(ctx, rctx, collection, data, tags, aclID)
}

// Get delegates locally or reads through to the remote peer.
func (r *Router) Get(ctx context.Context, rctx types.Context, key uint32, collection string) (*types.Object, error) {
	if !rctx.Route.IsRemote() {
		metrics.RouterRequestsTotal.WithLabelValues("local", "ok").Inc()
		return r.local.Get(ctx, rctx, key, collection)
	}
	res, err := r.remoteRead(ctx, rctx, "get", func(c PeerClient, h string) (any, error) {
		return c.Get(ctx, key, collection, h)
	})
	if err != nil {
		return nil, err
	}
	return res.(*types.Object), nil
}

// Head delegates locally or reads through to the remote peer.
func (r *Router) Head(ctx context.Context, rctx types.Context, key uint32, collection string) (types.TagMap, error) {
	if !rctx.Route.IsRemote() {
		metrics.RouterRequestsTotal.WithLabelValues("local", "ok").Inc()
		return r.local.Head(ctx, rctx, key, collection)
	}
	res, err := r.remoteRead(ctx, rctx, "head", func(c PeerClient, h string) (any, error) {
		return c.Head(ctx, key, collection, h)
	})
	if err != nil {
		return nil, err
	}
	return res.(types.TagMap), nil
}

// Fetch delegates locally or reads through to the remote peer.
func (r *Router) Fetch(ctx context.Context, rctx types.Context, key uint32) (*types.Object, error) {
	if !rctx.Route.IsRemote() {
		metrics.RouterRequestsTotal.WithLabelValues("local", "ok").Inc()
		return r.local.Fetch(ctx, rctx, key)
	}
	res, err := r.remoteRead(ctx, rctx, "fetch", func(c PeerClient, h string) (any, error) {
		return c.Fetch(ctx, key, h)
	})
	if err != nil {
		return nil, err
	}
	return res.(*types.Object), nil
}

// Update delegates to the local database. Remote routes never write.
func (r *Router) Update(ctx context.Context, rctx types.Context, key uint32, collection string, data []byte, tags types.TagMap, aclID *uint32) error {
	if rctx.Route.IsRemote() {
		return dberr.ErrNotSupported
	}
	metrics.RouterRequestsTotal.WithLabelValues("local", "ok").Inc()
	return r.local.Update(ctx, rctx, key, collection, data, tags, aclID)
}

// Delete delegates to the local database. Remote routes never write.
func (r *Router) Delete(ctx context.Context, rctx types.Context, key uint32, collection string) error {
	if rctx.Route.IsRemote() {
		return dberr.ErrNotSupported
	}
	metrics.RouterRequestsTotal.WithLabelValues("local", "ok").Inc()
	return r.local.Delete(ctx, rctx, key, collection)
}

// List delegates to the local database. The peer RPC surface has no
// streaming methods, so a remote route never supports it.
func (r *Router) List(ctx context.Context, rctx types.Context, collection string, tags types.TagMap) (<-chan localdb.ListResult, error) {
	if rctx.Route.IsRemote() {
		return nil, dberr.ErrNotSupported
	}
	metrics.RouterRequestsTotal.WithLabelValues("local", "ok").Inc()
	return r.local.List(ctx, rctx, collection, tags)
}

// Find delegates to the local database. The peer RPC surface has no
// streaming methods, so a remote route never supports it.
func (r *Router) Find(ctx context.Context, rctx types.Context, collection string, tags types.TagMap) (<-chan localdb.FindResult, error) {
	if rctx.Route.IsRemote() {
		return nil, dberr.ErrNotSupported
	}
	metrics.RouterRequestsTotal.WithLabelValues("local", "ok").Inc()
	return r.local.Find(ctx, rctx, collection, tags)
}

// Close releases peer client connections and the tracker's snapshot handle.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		_ = c.Close()
	}
	return r.tracker.Close()
}

var _ localdb.Database = (*Router)(nil)
