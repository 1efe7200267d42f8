package chunk

import (
	"fmt"

	"github.com/yndnr/statecache/internal/core/domain"
	"github.com/yndnr/statecache/internal/storage/codec"
)

// Estimator defaults.
const (
	// DefaultSampleCount is the number of entries sampled per estimate.
	DefaultSampleCount = 11

	// DefaultTargetBytes bounds the encoded size of one chunk: 1.5 GiB,
	// under a 2 GiB single-buffer ceiling.
	DefaultTargetBytes int64 = 3 << 29
)

// Estimate is the outcome of sampling a collection.
type Estimate struct {
	// ChunkSize is the maximum number of entries per chunk file.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// MaxSampleBytes is the largest encoded size among the samples.
	MaxSampleBytes int64 `json:"max_sample_bytes" yaml:"max_sample_bytes"`

	// Samples is the number of entries encoded.
	Samples int `json:"samples" yaml:"samples"`
}

// Estimator derives a safe chunk size from a sample of entries.
//
// The result is a best-effort bound: entries are sampled at a fixed stride,
// so an oversized entry the stride skips can still push one chunk past
// TargetBytes. Such a chunk surfaces as an encode or write error.
type Estimator struct {
	Codec       codec.Codec
	SampleCount int
	TargetBytes int64
}

// NewEstimator returns an estimator with defaults applied to zero values.
func NewEstimator(c codec.Codec, sampleCount int, targetBytes int64) *Estimator {
	if sampleCount <= 0 {
		sampleCount = DefaultSampleCount
	}
	if targetBytes <= 0 {
		targetBytes = DefaultTargetBytes
	}
	return &Estimator{Codec: c, SampleCount: sampleCount, TargetBytes: targetBytes}
}

// Estimate samples entries and returns the chunk size to use for them.
func (e *Estimator) Estimate(entries []domain.Entry) (Estimate, error) {
	if len(entries) == 0 {
		return Estimate{}, domain.ErrInvalidArgument.WithDetails("estimate needs at least one entry")
	}

	stride := len(entries) / e.SampleCount
	if stride < 1 {
		stride = 1
	}

	var est Estimate
	for i := 0; i < len(entries); i += stride {
		n, err := codec.Size(e.Codec, entries[i])
		if err != nil {
			return Estimate{}, domain.ErrEncodeFailed.
				WithDetails(fmt.Sprintf("sample entry %q", entries[i].ID)).
				WithCause(err)
		}
		est.Samples++
		if n > est.MaxSampleBytes {
			est.MaxSampleBytes = n
		}
	}

	est.ChunkSize = chunkSize(e.TargetBytes, est.MaxSampleBytes)
	return est, nil
}

func chunkSize(targetBytes, maxSampleBytes int64) int {
	if maxSampleBytes <= 0 {
		maxSampleBytes = 1
	}
	size := targetBytes / maxSampleBytes
	if size < 1 {
		// A single sampled entry already exceeds the target.
		return 1
	}
	if size > int64(maxInt) {
		return maxInt
	}
	return int(size)
}

const maxInt = int(^uint(0) >> 1)

// ChunkCount returns ceil(entries / chunkSize).
func ChunkCount(entries, chunkSize int) int {
	if entries <= 0 || chunkSize <= 0 {
		return 0
	}
	n := entries / chunkSize
	if entries%chunkSize != 0 {
		n++
	}
	return n
}
