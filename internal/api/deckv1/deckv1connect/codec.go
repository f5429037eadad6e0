// Package deckv1connect wires the deck.v1 services to Connect handlers and
// clients.
package deckv1connect

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// codecName replaces Connect's protobuf JSON codec, so plain structs can be
// used as messages.
const codecName = "json"

type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSON returns the option every deck.v1 handler and client needs.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
