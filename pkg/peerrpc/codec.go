// Package peerrpc implements the client side of the peer RPC surface's
// read subset (Fetch, Get, Head) that the router uses to serve a remote
// route. There is no local .proto toolchain available in this build
// environment, so messages are plain Go structs carried over a
// hand-registered JSON grpc codec instead of generated protobuf types;
// the transport (TLS, multiplexing, flow control) still comes from
// google.golang.org/grpc unchanged.
package peerrpc

import (
	"encoding/json"
	"fmt"
)

// jsonCodec implements grpc/encoding.Codec over encoding/json.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("peerrpc: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return "json" }
