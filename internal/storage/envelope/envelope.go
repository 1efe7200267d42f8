package envelope

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yndnr/statecache/internal/infra/mmfile"
)

// Kind selects the magic bytes of a file.
type Kind uint8

const (
	KindState Kind = iota + 1
	KindChunk
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindChunk:
		return "chunk"
	default:
		return "unknown"
	}
}

var (
	stateMagic = []byte("SCSTATE\x01")
	chunkMagic = []byte("SCCHUNK\x01")
)

func (k Kind) magic() []byte {
	if k == KindChunk {
		return chunkMagic
	}
	return stateMagic
}

// File format constants.
const (
	MagicSize       = 8
	ChecksumSize    = 32
	TempSuffix      = ".tmp"
	DefaultFilePerm = 0600

	headerLenSize = 4
	maxHeaderSize = 64 << 10
	writeBufSize  = 1 << 20
)

// Errors returned when a file fails verification.
var (
	ErrInvalidMagic     = errors.New("envelope: invalid magic bytes")
	ErrChecksumMismatch = errors.New("envelope: checksum mismatch")
	ErrTruncated        = errors.New("envelope: file truncated")
	ErrInvalidHeader    = errors.New("envelope: invalid header")
)

// IsCorruption reports whether err means the file content is unusable, as
// opposed to the file being unreadable.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrInvalidMagic) ||
		errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrInvalidHeader)
}

// Write atomically writes a file of the given kind to path.
//
// encode receives the body writer; everything it writes is checksummed and
// buffered in fixed-size blocks on its way to disk. Write returns the final
// file size.
func Write(path string, kind Kind, hdr Header, encode func(w io.Writer) error) (int64, error) {
	if hdr.Version == 0 {
		hdr.Version = HeaderVersion
	}
	hdrBytes := hdr.marshal()

	tempPath := path + TempSuffix
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, DefaultFilePerm)
	if err != nil {
		return 0, fmt.Errorf("envelope: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	bw := bufio.NewWriterSize(file, writeBufSize)
	hash := sha256.New()
	cw := &countingWriter{w: io.MultiWriter(bw, hash)}

	if _, err := cw.Write(kind.magic()); err != nil {
		file.Close()
		return 0, fmt.Errorf("envelope: write magic: %w", err)
	}

	var hdrLen [headerLenSize]byte
	binary.BigEndian.PutUint32(hdrLen[:], uint32(len(hdrBytes)))
	if _, err := cw.Write(hdrLen[:]); err != nil {
		file.Close()
		return 0, fmt.Errorf("envelope: write header length: %w", err)
	}
	if _, err := cw.Write(hdrBytes); err != nil {
		file.Close()
		return 0, fmt.Errorf("envelope: write header: %w", err)
	}

	if err := encode(cw); err != nil {
		file.Close()
		return 0, err
	}

	// Checksum trailer is not part of the hash.
	if _, err := bw.Write(hash.Sum(nil)); err != nil {
		file.Close()
		return 0, fmt.Errorf("envelope: write checksum: %w", err)
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return 0, fmt.Errorf("envelope: flush: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return 0, fmt.Errorf("envelope: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("envelope: close: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return 0, fmt.Errorf("envelope: rename: %w", err)
	}
	return cw.n + ChecksumSize, nil
}

// File is a verified state or chunk file opened for decoding.
type File struct {
	Path   string
	Kind   Kind
	Header Header
	Size   int64

	body    io.Reader
	release func() error
}

// Body returns a reader over the codec stream.
func (f *File) Body() io.Reader {
	return f.body
}

// Close releases the file handle or memory mapping.
func (f *File) Close() error {
	if f.release == nil {
		return nil
	}
	release := f.release
	f.release = nil
	return release()
}

// Open opens path, verifies its checksum, magic and header, and positions
// Body at the start of the codec stream.
//
// With useMmap the file is mapped read-only; the body reader then points
// into the mapping and must not be used after Close. Where mmap is not
// supported the file is streamed instead of being read whole.
func Open(path string, kind Kind, useMmap bool) (*File, error) {
	if useMmap && mmfile.Supported {
		return openMapped(path, kind)
	}
	return openFile(path, kind)
}

func openMapped(path string, kind Kind) (*File, error) {
	data, release, err := mmfile.Map(path)
	if err != nil {
		return nil, err
	}

	size := int64(len(data))
	if size < MagicSize+headerLenSize+ChecksumSize {
		release()
		return nil, ErrTruncated
	}

	payload := data[:size-ChecksumSize]
	sum := sha256.Sum256(payload)
	if !bytes.Equal(sum[:], data[size-ChecksumSize:]) {
		release()
		return nil, ErrChecksumMismatch
	}

	hdr, bodyStart, err := parsePrefix(payload, kind)
	if err != nil {
		release()
		return nil, err
	}

	return &File{
		Path:    path,
		Kind:    kind,
		Header:  hdr,
		Size:    size,
		body:    bytes.NewReader(payload[bodyStart:]),
		release: release,
	}, nil
}

func openFile(path string, kind Kind) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := stat.Size()
	if size < MagicSize+headerLenSize+ChecksumSize {
		f.Close()
		return nil, ErrTruncated
	}

	// Verify checksum.
	dataLen := size - ChecksumSize
	expected := make([]byte, ChecksumSize)
	if _, err := f.ReadAt(expected, dataLen); err != nil {
		f.Close()
		return nil, err
	}
	h := sha256.New()
	if _, err := io.Copy(h, bufio.NewReaderSize(io.NewSectionReader(f, 0, dataLen), writeBufSize)); err != nil {
		f.Close()
		return nil, err
	}
	if !bytes.Equal(h.Sum(nil), expected) {
		f.Close()
		return nil, ErrChecksumMismatch
	}

	hdr, bodyStart, err := readPrefix(f, dataLen, kind)
	if err != nil {
		f.Close()
		return nil, err
	}

	body := bufio.NewReaderSize(io.NewSectionReader(f, bodyStart, dataLen-bodyStart), writeBufSize)
	return &File{
		Path:    path,
		Kind:    kind,
		Header:  hdr,
		Size:    size,
		body:    body,
		release: f.Close,
	}, nil
}

// ReadHeader returns the header and size of the file at path without
// verifying its checksum or reading its body.
func ReadHeader(path string, kind Kind) (Header, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, 0, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return Header{}, 0, err
	}
	size := stat.Size()
	if size < MagicSize+headerLenSize+ChecksumSize {
		return Header{}, size, ErrTruncated
	}

	hdr, _, err := readPrefix(f, size-ChecksumSize, kind)
	if err != nil {
		return Header{}, size, err
	}
	return hdr, size, nil
}

// readPrefix reads magic and header from r, where limit is the payload size.
func readPrefix(r io.ReaderAt, limit int64, kind Kind) (Header, int64, error) {
	var fixed [MagicSize + headerLenSize]byte
	if _, err := r.ReadAt(fixed[:], 0); err != nil {
		return Header{}, 0, err
	}
	hdrLen, err := checkFixed(fixed[:], limit, kind)
	if err != nil {
		return Header{}, 0, err
	}

	hdrBytes := make([]byte, hdrLen)
	if _, err := r.ReadAt(hdrBytes, int64(len(fixed))); err != nil {
		return Header{}, 0, err
	}
	hdr, err := unmarshalHeader(hdrBytes)
	if err != nil {
		return Header{}, 0, err
	}
	return hdr, int64(len(fixed)) + hdrLen, nil
}

// parsePrefix is readPrefix over an in-memory payload.
func parsePrefix(payload []byte, kind Kind) (Header, int64, error) {
	const fixedLen = MagicSize + headerLenSize
	hdrLen, err := checkFixed(payload[:fixedLen], int64(len(payload)), kind)
	if err != nil {
		return Header{}, 0, err
	}
	hdr, err := unmarshalHeader(payload[fixedLen : fixedLen+hdrLen])
	if err != nil {
		return Header{}, 0, err
	}
	return hdr, fixedLen + hdrLen, nil
}

func checkFixed(fixed []byte, limit int64, kind Kind) (int64, error) {
	if !bytes.Equal(fixed[:MagicSize], kind.magic()) {
		return 0, ErrInvalidMagic
	}
	hdrLen := int64(binary.BigEndian.Uint32(fixed[MagicSize:]))
	if hdrLen == 0 || hdrLen > maxHeaderSize {
		return 0, fmt.Errorf("%w: header length %d", ErrInvalidHeader, hdrLen)
	}
	if int64(len(fixed))+hdrLen > limit {
		return 0, ErrTruncated
	}
	return hdrLen, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
