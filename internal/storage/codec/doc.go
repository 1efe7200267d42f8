// Package codec provides the binary encoders used for state and chunk files.
//
// A Codec turns one in-memory value into a byte stream and back. Two
// implementations are available:
//
//   - msgpack: compact binary encoding (default)
//   - json: human-inspectable encoding, larger on disk
//
// Codecs stream to an io.Writer so callers never have to hold a full
// encoded copy of a large value in memory.
package codec
