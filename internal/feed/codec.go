package feed

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns frames and notices into websocket messages.
type Codec interface {
	Name() string
	// MessageType is the websocket message type everything is sent as.
	MessageType() int
	Encode(v any) ([]byte, error)
}

// NewCodec returns the codec registered under name ("json" or "msgpack").
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return jsonCodec{}, nil
	case "msgpack":
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string     { return "json" }
func (jsonCodec) MessageType() int { return websocket.TextMessage }
func (jsonCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string     { return "msgpack" }
func (msgpackCodec) MessageType() int { return websocket.BinaryMessage }
func (msgpackCodec) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}
