package codec

import (
	"fmt"
	"io"
	"reflect"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

// Msgpack is the default binary codec.
type Msgpack struct {
	handle *codec.MsgpackHandle
}

// NewMsgpack returns a msgpack codec.
//
// Strings are written with the str type so they decode back as strings, and
// maps nested inside interface values decode as map[string]any.
func NewMsgpack() *Msgpack {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	h.MapType = reflect.TypeOf(map[string]any(nil))
	return &Msgpack{handle: h}
}

// Name implements Codec.
func (m *Msgpack) Name() string { return NameMsgpack }

// Encode implements Codec.
func (m *Msgpack) Encode(w io.Writer, v any) error {
	if err := codec.NewEncoder(w, m.handle).Encode(v); err != nil {
		return fmt.Errorf("msgpack: encode: %w", err)
	}
	return nil
}

// Decode implements Codec.
func (m *Msgpack) Decode(r io.Reader, v any) error {
	if err := codec.NewDecoder(r, m.handle).Decode(v); err != nil {
		return fmt.Errorf("msgpack: decode: %w", err)
	}
	return nil
}
