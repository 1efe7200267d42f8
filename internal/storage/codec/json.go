package codec

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSON encodes values as JSON text.
type JSON struct{}

// NewJSON returns a JSON codec.
func NewJSON() *JSON { return &JSON{} }

// Name implements Codec.
func (JSON) Name() string { return NameJSON }

// Encode implements Codec.
func (JSON) Encode(w io.Writer, v any) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("json: encode: %w", err)
	}
	return nil
}

// Decode implements Codec. Numbers inside interface values decode as
// json.Number, so integers beyond 2^53 keep their exact value.
func (JSON) Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("json: decode: %w", err)
	}
	return nil
}
