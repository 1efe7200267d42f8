package command

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statecache/internal/core/domain"
)

// GenerateCommand returns the generate command.
func GenerateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Write a synthetic state to the cache",
		Description: "Builds a state with the given number of records and writes it\n" +
			"through the store, replacing whatever the cache held. Every\n" +
			"--skew-every'th record is --skew times larger than the rest.",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "records",
				Usage: "Number of records",
				Value: 1000,
			},
			&cli.IntFlag{
				Name:  "record-bytes",
				Usage: "Content size of a regular record",
				Value: 1024,
			},
			&cli.IntFlag{
				Name:  "skew",
				Usage: "Content size multiplier of skewed records",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "skew-every",
				Usage: "Make every Nth record a skewed one",
				Value: 100,
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Random seed",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "no-records",
				Usage: "Write a state without a Records mapping",
			},
		},
		Action: generate,
	}
}

// GenerateOptions shapes a synthetic state.
type GenerateOptions struct {
	Records     int
	RecordBytes int
	Skew        int
	SkewEvery   int
	Seed        uint64

	// NoRecords leaves Records nil instead of empty.
	NoRecords bool
}

var recordTypes = []string{"Module", "Function", "Class", "Variable", "Import"}

// GenerateState builds a deterministic synthetic state from opts.
func GenerateState(opts GenerateOptions) (*domain.PersistedState, error) {
	if opts.Records < 0 || opts.RecordBytes < 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("--records and --record-bytes must not be negative")
	}
	if opts.Skew < 1 || opts.SkewEvery < 1 {
		return nil, domain.ErrInvalidArgument.WithDetails("--skew and --skew-every must be at least 1")
	}

	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:8], opts.Seed)
	src := rand.NewChaCha8(seed)
	rng := rand.New(src)

	state := &domain.PersistedState{
		Version:     1,
		ProgramPath: "generated",
		Schema:      "synthetic",
		Status: map[string]any{
			"generated_at": time.Now().UTC().Format(time.RFC3339),
			"seed":         opts.Seed,
		},
		Components: map[string]string{"generator": "statecache"},
		TypeIndex:  make(map[string][]domain.RecordID),
	}
	if opts.NoRecords {
		return state, nil
	}

	state.Records = make(map[domain.RecordID]*domain.Record, opts.Records)
	for i := 0; i < opts.Records; i++ {
		id := domain.RecordID(fmt.Sprintf("rec-%08d", i))
		size := opts.RecordBytes
		if i%opts.SkewEvery == opts.SkewEvery-1 {
			size *= opts.Skew
		}
		content := make([]byte, size)
		_, _ = src.Read(content)

		rec := &domain.Record{
			ID:      id,
			Type:    recordTypes[rng.IntN(len(recordTypes))],
			Owner:   fmt.Sprintf("file-%04d", i/64),
			Content: content,
		}
		if i > 0 {
			rec.Parent = domain.RecordID(fmt.Sprintf("rec-%08d", (i-1)/8))
			parent := state.Records[rec.Parent]
			parent.Children = append(parent.Children, id)
		}
		state.Records[id] = rec
		state.TypeIndex[rec.Type] = append(state.TypeIndex[rec.Type], id)
	}
	return state, nil
}

// writeSummary is the outcome of generate.
type writeSummary struct {
	Generation string        `json:"generation" yaml:"generation"`
	StatePath  string        `json:"state_path" yaml:"state_path"`
	Records    int           `json:"records" yaml:"records"`
	Chunks     int           `json:"chunks" yaml:"chunks"`
	ChunkSize  int           `json:"chunk_size" yaml:"chunk_size"`
	Bytes      int64         `json:"bytes" yaml:"bytes"`
	Removed    int           `json:"removed" yaml:"removed" table:"wide"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
}

func generate(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}

	state, err := GenerateState(GenerateOptions{
		Records:     c.Int("records"),
		RecordBytes: c.Int("record-bytes"),
		Skew:        c.Int("skew"),
		SkewEvery:   c.Int("skew-every"),
		Seed:        c.Uint64("seed"),
		NoRecords:   c.Bool("no-records"),
	})
	if err != nil {
		return err
	}

	st, err := e.openStore()
	if err != nil {
		return err
	}
	res, err := st.Write(state)
	if err != nil {
		return err
	}

	return e.render(writeSummary{
		Generation: res.Generation,
		StatePath:  res.StatePath,
		Records:    res.Records,
		Chunks:     res.Chunks.Chunks,
		ChunkSize:  res.Chunks.ChunkSize,
		Bytes:      res.StateBytes + res.Chunks.Bytes,
		Removed:    res.Chunks.Removed,
		Elapsed:    res.Elapsed,
	}, nil)
}
