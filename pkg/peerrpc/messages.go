package peerrpc

// Besides the read methods below, the peer RPC surface carries write and
// streaming methods (set, update, delete, list, find); a router only ever
// calls the read subset below, since every write and every streaming call
// over a remote route returns dberr.ErrNotSupported before any RPC is
// attempted.

const (
	MethodFetch = "/bcdb.Peer/Fetch"
	MethodGet   = "/bcdb.Peer/Get"
	MethodHead  = "/bcdb.Peer/Head"
)

// FetchRequest asks a peer for a document by key, with no collection scoping.
type FetchRequest struct {
	Key uint32 `json:"key"`
}

// GetRequest asks a peer for a document scoped to a collection.
type GetRequest struct {
	Key        uint32 `json:"key"`
	Collection string `json:"collection"`
}

// HeadRequest asks a peer for a document's tags only, scoped to a collection.
type HeadRequest struct {
	Key        uint32 `json:"key"`
	Collection string `json:"collection"`
}

// ObjectResponse carries a resolved document's tags and, for Fetch/Get,
// its blob.
type ObjectResponse struct {
	Key  uint32            `json:"key"`
	Meta map[string]string `json:"meta"`
	Data []byte            `json:"data,omitempty"`
}
