package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/statecache/internal/core/domain"
	"github.com/yndnr/statecache/internal/storage/chunk"
)

// EstimateCommand returns the estimate command.
func EstimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Estimate the chunk layout of the stored records",
		Description: "Reads the stored state and samples its records the way a write\n" +
			"would, optionally with other estimator settings. Nothing is written.",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "sample-count",
				Usage: "Number of records to sample (default from config)",
			},
			&cli.Int64Flag{
				Name:  "target-bytes",
				Usage: "Upper bound on the encoded size of one chunk (default from config)",
			},
		},
		Action: estimate,
	}
}

// estimateResult is the outcome of estimate.
type estimateResult struct {
	Records        int    `json:"records" yaml:"records"`
	Codec          string `json:"codec" yaml:"codec"`
	SampleCount    int    `json:"sample_count" yaml:"sample_count"`
	Samples        int    `json:"samples" yaml:"samples"`
	MaxSampleBytes int64  `json:"max_sample_bytes" yaml:"max_sample_bytes"`
	TargetBytes    int64  `json:"target_bytes" yaml:"target_bytes"`
	ChunkSize      int    `json:"chunk_size" yaml:"chunk_size"`
	Chunks         int    `json:"chunks" yaml:"chunks"`
	CurrentChunks  int    `json:"current_chunks" yaml:"current_chunks"`
}

func estimate(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}

	sampleCount := e.cfg.Chunk.SampleCount
	if c.IsSet("sample-count") {
		sampleCount = c.Int("sample-count")
	}
	targetBytes := e.cfg.Chunk.TargetBytes
	if c.IsSet("target-bytes") {
		targetBytes = c.Int64("target-bytes")
	}
	if sampleCount < 1 {
		return domain.ErrInvalidArgument.WithDetails("--sample-count must be at least 1")
	}
	if targetBytes < 1 {
		return domain.ErrInvalidArgument.WithDetails("--target-bytes must be positive")
	}

	st, err := e.openStore()
	if err != nil {
		return err
	}
	state, res, err := st.Read()
	if err != nil {
		return err
	}
	entries := state.Entries()
	if len(entries) == 0 {
		return domain.ErrInvalidArgument.WithDetails("stored state has no records to estimate")
	}

	est, err := chunk.NewEstimator(st.Codec(), sampleCount, targetBytes).Estimate(entries)
	if err != nil {
		return err
	}

	return e.render(estimateResult{
		Records:        len(entries),
		Codec:          st.Codec().Name(),
		SampleCount:    sampleCount,
		Samples:        est.Samples,
		MaxSampleBytes: est.MaxSampleBytes,
		TargetBytes:    targetBytes,
		ChunkSize:      est.ChunkSize,
		Chunks:         chunk.ChunkCount(len(entries), est.ChunkSize),
		CurrentChunks:  res.Chunks.Chunks,
	}, nil)
}
