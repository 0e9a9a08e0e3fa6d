// Package rpc holds the connect wiring shared by the API handlers and the
// payout client: a JSON codec for plain Go message structs.
package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// codecNameJSON replaces connect's default protojson codec.
const codecNameJSON = "json"

// JSONCodec marshals plain Go structs with encoding/json.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return codecNameJSON }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSON registers JSONCodec on a handler or client.
func WithJSON() connect.Option {
	return connect.WithCodec(JSONCodec{})
}
