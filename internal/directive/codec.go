package directive

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts directives to and from their wire form.
type Codec interface {
	Name() string
	Encode(d Directive) ([]byte, error)
	Decode(data []byte) (Directive, error)
}

// JSONCodec is the default wire form: {"command":"move","north":1,...}.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(d Directive) ([]byte, error) { return json.Marshal(d) }

func (JSONCodec) Decode(data []byte) (Directive, error) {
	var d Directive
	if err := json.Unmarshal(data, &d); err != nil {
		return Directive{}, fmt.Errorf("%w: %v", ErrInvalidDirective, err)
	}
	return d, nil
}

// MsgpackCodec is the compact binary wire form.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Encode(d Directive) ([]byte, error) { return msgpack.Marshal(d) }

func (MsgpackCodec) Decode(data []byte) (Directive, error) {
	var d Directive
	if err := msgpack.Unmarshal(data, &d); err != nil {
		return Directive{}, fmt.Errorf("%w: %v", ErrInvalidDirective, err)
	}
	return d, nil
}

// CodecFor returns the codec with the given name; empty means JSON.
func CodecFor(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
