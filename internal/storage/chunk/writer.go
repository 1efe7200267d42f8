package chunk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yndnr/statecache/internal/core/domain"
	"github.com/yndnr/statecache/internal/storage/codec"
	"github.com/yndnr/statecache/internal/storage/envelope"
	"github.com/yndnr/statecache/internal/telemetry/logger"
)

// WriteStats summarizes one chunked write.
type WriteStats struct {
	Chunks         int   `json:"chunks" yaml:"chunks"`
	Entries        int   `json:"entries" yaml:"entries"`
	ChunkSize      int   `json:"chunk_size" yaml:"chunk_size"`
	MaxSampleBytes int64 `json:"max_sample_bytes" yaml:"max_sample_bytes"`
	Bytes          int64 `json:"bytes" yaml:"bytes"`
	Removed        int   `json:"removed" yaml:"removed"`
}

// Writer writes the record collection as chunk files.
type Writer struct {
	files     Files
	codec     codec.Codec
	estimator *Estimator
	logger    logger.Logger
}

// NewWriter creates a chunk writer. A nil logger uses logger.Default().
func NewWriter(files Files, c codec.Codec, est *Estimator, log logger.Logger) *Writer {
	if log == nil {
		log = logger.Default()
	}
	return &Writer{
		files:     files,
		codec:     c,
		estimator: est,
		logger:    log.With("component", "chunk_writer"),
	}
}

// Clean deletes every file carrying the chunk prefix and returns how many
// were removed.
func (w *Writer) Clean() (int, error) {
	paths, err := w.files.Matching()
	if err != nil {
		return 0, domain.ErrStorageIO.WithDetails("list chunk files").WithCause(err)
	}

	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return removed, domain.ErrStorageIO.WithDetails("remove " + p).WithCause(err)
		}
		removed++
	}
	return removed, nil
}

// Write replaces the chunk files on disk with entries.
//
// Existing chunk files are removed first. entries is split into
// ceil(len/ChunkSize) contiguous groups, the last possibly shorter, and
// group i is written to <prefix>i.
func (w *Writer) Write(entries []domain.Entry, generation string) (*WriteStats, error) {
	start := time.Now()

	removed, err := w.Clean()
	if err != nil {
		return nil, err
	}
	stats := &WriteStats{Removed: removed, Entries: len(entries)}
	if removed > 0 {
		w.logger.Debug("removed previous chunk files", "count", removed)
	}
	if len(entries) == 0 {
		return stats, nil
	}

	est, err := w.estimator.Estimate(entries)
	if err != nil {
		return nil, err
	}
	stats.ChunkSize = est.ChunkSize
	stats.MaxSampleBytes = est.MaxSampleBytes

	count := ChunkCount(len(entries), est.ChunkSize)
	w.logger.Debug("chunk size estimated",
		"entries", len(entries),
		"samples", est.Samples,
		"max_sample_bytes", est.MaxSampleBytes,
		"chunk_size", est.ChunkSize,
		"chunks", count)

	now := time.Now().UnixMilli()
	for i := 0; i < count; i++ {
		lo := i * est.ChunkSize
		hi := min(lo+est.ChunkSize, len(entries))
		group := entries[lo:hi]

		hdr := envelope.Header{
			Codec:      w.codec.Name(),
			Generation: generation,
			CreatedAt:  now,
			ChunkIndex: i,
			EntryCount: int64(len(group)),
		}
		n, err := envelope.Write(w.files.Path(i), envelope.KindChunk, hdr, func(out io.Writer) error {
			if err := w.codec.Encode(out, group); err != nil {
				return domain.ErrEncodeFailed.WithDetails(fmt.Sprintf("chunk %d", i)).WithCause(err)
			}
			return nil
		})
		if err != nil {
			if domain.IsDomainError(err, "") {
				return nil, err
			}
			return nil, domain.ErrStorageIO.WithDetails(fmt.Sprintf("write chunk %d", i)).WithCause(err)
		}

		stats.Chunks++
		stats.Bytes += n
		w.logger.Debug("chunk written", "index", i, "entries", len(group), "bytes", n)
	}

	w.logger.Info("chunks written",
		"chunks", stats.Chunks,
		"entries", stats.Entries,
		"bytes", stats.Bytes,
		"elapsed", time.Since(start))
	return stats, nil
}
