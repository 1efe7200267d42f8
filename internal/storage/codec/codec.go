package codec

import (
	"fmt"
	"io"
)

// Codec names accepted by New.
const (
	NameMsgpack = "msgpack"
	NameJSON    = "json"

	DefaultName = NameMsgpack
)

// Codec encodes and decodes values.
type Codec interface {
	// Name returns the identifier recorded in file headers.
	Name() string

	// Encode writes the encoding of v to w.
	Encode(w io.Writer, v any) error

	// Decode reads one encoded value from r into v, which must be a pointer.
	Decode(r io.Reader, v any) error
}

// New returns the codec registered under name.
func New(name string) (Codec, error) {
	switch name {
	case "", NameMsgpack:
		return NewMsgpack(), nil
	case NameJSON:
		return NewJSON(), nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}

// Names returns the supported codec names.
func Names() []string {
	return []string{NameMsgpack, NameJSON}
}

// Size returns the number of bytes c produces when encoding v.
// Nothing is buffered; the output is only counted.
func Size(c Codec, v any) (int64, error) {
	var cw countingWriter
	if err := c.Encode(&cw, v); err != nil {
		return 0, err
	}
	return cw.n, nil
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
