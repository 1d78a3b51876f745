package peerrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/tagdb/tagdb/pkg/dberr"
	"github.com/tagdb/tagdb/pkg/types"
)

// Client is a grpc connection to one peer's RPC surface, scoped to the
// read subset a Router ever needs.
type Client struct {
	conn *grpc.ClientConn
}

// Dial opens a connection to a peer at addr. Production deployments are
// expected to pass transport credentials derived from the peer's known
// public key; insecure.NewCredentials is used here because certificate
// provisioning for the federated trust network is an external concern
// this module doesn't own.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("peerrpc: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close tears down the connection.
func (c *Client) Close() error { return c.conn.Close() }

func withAuthHeader(ctx context.Context, header string) context.Context {
	if header == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", header)
}

// Fetch calls the peer's Fetch method.
func (c *Client) Fetch(ctx context.Context, key uint32, authHeader string) (*types.Object, error) {
	ctx = withAuthHeader(ctx, authHeader)
	req := &FetchRequest{Key: key}
	resp := &ObjectResponse{}
	if err := c.conn.Invoke(ctx, MethodFetch, req, resp); err != nil {
		return nil, dberr.Wrap(dberr.CannotGetPeer, "fetch", err)
	}
	return toObject(resp), nil
}

// Get calls the peer's Get method.
func (c *Client) Get(ctx context.Context, key uint32, collection, authHeader string) (*types.Object, error) {
	ctx = withAuthHeader(ctx, authHeader)
	req := &GetRequest{Key: key, Collection: collection}
	resp := &ObjectResponse{}
	if err := c.conn.Invoke(ctx, MethodGet, req, resp); err != nil {
		return nil, dberr.Wrap(dberr.CannotGetPeer, "get", err)
	}
	return toObject(resp), nil
}

// Head calls the peer's Head method.
func (c *Client) Head(ctx context.Context, key uint32, collection, authHeader string) (types.TagMap, error) {
	ctx = withAuthHeader(ctx, authHeader)
	req := &HeadRequest{Key: key, Collection: collection}
	resp := &ObjectResponse{}
	if err := c.conn.Invoke(ctx, MethodHead, req, resp); err != nil {
		return nil, dberr.Wrap(dberr.CannotGetPeer, "head", err)
	}
	return resp.Meta, nil
}

func toObject(resp *ObjectResponse) *types.Object {
	return &types.Object{Key: resp.Key, Meta: resp.Meta, Data: resp.Data}
}
