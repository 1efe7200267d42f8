package envelope

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Header field numbers. Unknown fields are skipped on read.
const (
	fieldVersion    protowire.Number = 1
	fieldCodec      protowire.Number = 2
	fieldGeneration protowire.Number = 3
	fieldCreatedAt  protowire.Number = 4
	fieldChunkIndex protowire.Number = 5
	fieldEntryCount protowire.Number = 6
)

// HeaderVersion is the header layout written by this package.
const HeaderVersion = 1

// Header describes the body of a state or chunk file.
type Header struct {
	Version int `json:"version" yaml:"version"`

	// Codec names the codec that produced the body.
	Codec string `json:"codec" yaml:"codec"`

	// Generation identifies the write that produced the file. A state file
	// and its chunk files share one generation.
	Generation string `json:"generation" yaml:"generation"`

	// CreatedAt is the write time in Unix milliseconds.
	CreatedAt int64 `json:"created_at" yaml:"created_at"`

	// ChunkIndex is the chunk number; zero for state files.
	ChunkIndex int `json:"chunk_index" yaml:"chunk_index"`

	// EntryCount is the number of entries in a chunk body, or the number of
	// records persisted alongside a state file.
	EntryCount int64 `json:"entry_count" yaml:"entry_count"`
}

func (h Header) marshal() []byte {
	b := make([]byte, 0, 64)
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Version))
	b = protowire.AppendTag(b, fieldCodec, protowire.BytesType)
	b = protowire.AppendString(b, h.Codec)
	if h.Generation != "" {
		b = protowire.AppendTag(b, fieldGeneration, protowire.BytesType)
		b = protowire.AppendString(b, h.Generation)
	}
	b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.CreatedAt))
	b = protowire.AppendTag(b, fieldChunkIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.ChunkIndex))
	b = protowire.AppendTag(b, fieldEntryCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.EntryCount))
	return b
}

func unmarshalHeader(b []byte) (Header, error) {
	var h Header
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Header{}, fmt.Errorf("%w: %v", ErrInvalidHeader, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && num != fieldCodec && num != fieldGeneration:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Header{}, fmt.Errorf("%w: %v", ErrInvalidHeader, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldVersion:
				h.Version = int(v)
			case fieldCreatedAt:
				h.CreatedAt = int64(v)
			case fieldChunkIndex:
				h.ChunkIndex = int(v)
			case fieldEntryCount:
				h.EntryCount = int64(v)
			}
		case typ == protowire.BytesType && (num == fieldCodec || num == fieldGeneration):
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return Header{}, fmt.Errorf("%w: %v", ErrInvalidHeader, protowire.ParseError(n))
			}
			b = b[n:]
			if num == fieldCodec {
				h.Codec = s
			} else {
				h.Generation = s
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Header{}, fmt.Errorf("%w: %v", ErrInvalidHeader, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if h.Version == 0 || h.Codec == "" {
		return Header{}, fmt.Errorf("%w: missing version or codec", ErrInvalidHeader)
	}
	if h.Version > HeaderVersion {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidHeader, h.Version)
	}
	return h, nil
}
