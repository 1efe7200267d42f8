package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yndnr/statecache/internal/core/domain"
	"github.com/yndnr/statecache/internal/storage/chunk"
	"github.com/yndnr/statecache/internal/storage/codec"
	"github.com/yndnr/statecache/internal/storage/envelope"
	"github.com/yndnr/statecache/internal/telemetry/logger"
	"github.com/yndnr/statecache/internal/telemetry/metric"
)

// Default layout of the cache directory.
const (
	DefaultCacheDir  = ".cache"
	DefaultStateFile = "redux.state"
	DefaultDirPerm   = 0750
)

// Config configures a Store.
type Config struct {
	// BaseDir is the directory the cache directory lives in. Required.
	BaseDir string

	// CacheDir is the cache directory, relative to BaseDir.
	CacheDir string

	// StateFile is the file name of the core state file.
	StateFile string

	// ChunkPrefix is the file name prefix of chunk files.
	ChunkPrefix string

	// Codec names the codec used for writes. Reads follow the file header.
	Codec string

	// UseMmap maps files into memory for reading instead of streaming them.
	UseMmap bool

	// SampleCount and TargetBytes tune the chunk size estimator.
	SampleCount int
	TargetBytes int64

	// Logger is the structured logger. Nil uses logger.Default().
	Logger logger.Logger

	// Metrics is optional.
	Metrics *metric.Registry
}

// DefaultConfig returns the default configuration rooted at baseDir.
func DefaultConfig(baseDir string) Config {
	return Config{
		BaseDir:     baseDir,
		CacheDir:    DefaultCacheDir,
		StateFile:   DefaultStateFile,
		ChunkPrefix: chunk.DefaultPrefix,
		Codec:       codec.DefaultName,
		UseMmap:     true,
		SampleCount: chunk.DefaultSampleCount,
		TargetBytes: chunk.DefaultTargetBytes,
	}
}

// WriteResult describes a completed Write.
type WriteResult struct {
	Generation string           `json:"generation" yaml:"generation"`
	StatePath  string           `json:"state_path" yaml:"state_path"`
	StateBytes int64            `json:"state_bytes" yaml:"state_bytes"`
	Records    int              `json:"records" yaml:"records"`
	Chunks     chunk.WriteStats `json:"chunks" yaml:"chunks"`
	Elapsed    time.Duration    `json:"elapsed" yaml:"elapsed"`
}

// ReadResult describes a completed Read.
type ReadResult struct {
	Generation string          `json:"generation" yaml:"generation"`
	StateBytes int64           `json:"state_bytes" yaml:"state_bytes"`
	Records    int             `json:"records" yaml:"records"`
	Chunks     chunk.ReadStats `json:"chunks" yaml:"chunks"`

	// Consistent is false when chunk files carry another generation than the
	// state file, or hold a different number of records than it recorded.
	// This happens when a write was interrupted between the two.
	Consistent bool          `json:"consistent" yaml:"consistent"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
}

// StateInfo describes the core state file.
type StateInfo struct {
	Name       string `json:"name" yaml:"name"`
	Size       int64  `json:"size" yaml:"size"`
	Codec      string `json:"codec" yaml:"codec"`
	Generation string `json:"generation" yaml:"generation"`
	CreatedAt  int64  `json:"created_at" yaml:"created_at"`
	Records    int64  `json:"records" yaml:"records"`
}

// Inventory lists the files of a cache directory from their headers.
type Inventory struct {
	Dir        string       `json:"dir" yaml:"dir"`
	State      *StateInfo   `json:"state,omitempty" yaml:"state,omitempty"`
	Chunks     []chunk.Info `json:"chunks" yaml:"chunks"`
	Records    int64        `json:"records" yaml:"records"`
	TotalBytes int64        `json:"total_bytes" yaml:"total_bytes"`
	Consistent bool         `json:"consistent" yaml:"consistent"`
}

// Store writes and reads the persisted state of one cache directory.
type Store struct {
	cfg       Config
	dir       string
	statePath string

	codec   codec.Codec
	chunks  chunk.Files
	writer  *chunk.Writer
	reader  *chunk.Reader
	logger  logger.Logger
	metrics *metric.Registry
}

// New creates a Store and its cache directory.
func New(cfg Config) (*Store, error) {
	if cfg.BaseDir == "" {
		return nil, domain.ErrInvalidConfig.WithDetails("base_dir is required")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}
	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFile
	}
	if cfg.ChunkPrefix == "" {
		cfg.ChunkPrefix = chunk.DefaultPrefix
	}
	if strings.HasPrefix(cfg.StateFile, cfg.ChunkPrefix) {
		return nil, domain.ErrInvalidConfig.WithDetails(
			fmt.Sprintf("state file %q carries chunk prefix %q", cfg.StateFile, cfg.ChunkPrefix))
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	c, err := codec.New(cfg.Codec)
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithCause(err)
	}

	dir := filepath.Join(cfg.BaseDir, cfg.CacheDir)
	if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
		return nil, domain.ErrStorageIO.WithDetails("create cache dir").WithCause(err)
	}

	log := cfg.Logger.With("component", "store")
	files := chunk.Files{Dir: dir, Prefix: cfg.ChunkPrefix}
	return &Store{
		cfg:       cfg,
		dir:       dir,
		statePath: filepath.Join(dir, cfg.StateFile),
		codec:     c,
		chunks:    files,
		writer:    chunk.NewWriter(files, c, chunk.NewEstimator(c, cfg.SampleCount, cfg.TargetBytes), cfg.Logger),
		reader:    chunk.NewReader(files, c, cfg.UseMmap, cfg.Logger),
		logger:    log,
		metrics:   cfg.Metrics,
	}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// StatePath returns the path of the core state file.
func (s *Store) StatePath() string { return s.statePath }

// ChunkPrefix returns the path prefix shared by chunk files.
func (s *Store) ChunkPrefix() string { return filepath.Join(s.dir, s.cfg.ChunkPrefix) }

// Codec returns the codec used for writes.
func (s *Store) Codec() codec.Codec { return s.codec }

// Write persists state.
//
// The core view of state goes to the state file first. Then every existing
// chunk file is removed and, if state.Records is not nil, its entries are
// written as new chunk files. state itself is not modified.
func (s *Store) Write(state *domain.PersistedState) (*WriteResult, error) {
	start := time.Now()
	if state == nil {
		return nil, s.fail(metric.OpWrite, domain.ErrInvalidArgument.WithDetails("nil state"))
	}

	gen, err := domain.NewGeneration()
	if err != nil {
		return nil, s.fail(metric.OpWrite, err)
	}
	log := s.logger.With("generation", gen)

	hdr := envelope.Header{
		Codec:      s.codec.Name(),
		Generation: gen,
		CreatedAt:  start.UnixMilli(),
		EntryCount: int64(len(state.Records)),
	}
	core := state.Core()
	n, err := envelope.Write(s.statePath, envelope.KindState, hdr, func(w io.Writer) error {
		if err := s.codec.Encode(w, core); err != nil {
			return domain.ErrEncodeFailed.WithDetails("state").WithCause(err)
		}
		return nil
	})
	if err != nil {
		if !domain.IsDomainError(err, "") {
			err = domain.ErrStorageIO.WithDetails("write state").WithCause(err)
		}
		return nil, s.fail(metric.OpWrite, err)
	}
	log.Debug("state written", "path", s.statePath, "bytes", n)

	res := &WriteResult{
		Generation: gen,
		StatePath:  s.statePath,
		StateBytes: n,
		Records:    len(state.Records),
	}

	if state.HasRecords() {
		stats, err := s.writer.Write(state.Entries(), gen)
		if err != nil {
			return nil, s.fail(metric.OpWrite, err)
		}
		res.Chunks = *stats
	} else {
		// Chunks from an earlier generation must not outlive a state
		// without records.
		removed, err := s.writer.Clean()
		if err != nil {
			return nil, s.fail(metric.OpWrite, err)
		}
		res.Chunks.Removed = removed
	}
	res.Elapsed = time.Since(start)

	s.metrics.ObserveDuration(metric.OpWrite, res.Elapsed.Seconds())
	s.metrics.AddBytesWritten(res.StateBytes + res.Chunks.Bytes)
	s.metrics.SetChunkLayout(res.Chunks.Chunks, res.Records)
	if res.Chunks.ChunkSize > 0 {
		s.metrics.SetEstimate(res.Chunks.ChunkSize, res.Chunks.MaxSampleBytes)
	}
	s.metrics.MarkWrite(float64(start.Unix()))

	log.Info("state persisted",
		"records", res.Records,
		"chunks", res.Chunks.Chunks,
		"chunk_size", res.Chunks.ChunkSize,
		"bytes", res.StateBytes+res.Chunks.Bytes,
		"elapsed", res.Elapsed)
	return res, nil
}

// Read restores the persisted state.
//
// If chunk files hold any entries they replace whatever Records the state
// file decoded to; otherwise Records is left as decoded.
func (s *Store) Read() (*domain.PersistedState, *ReadResult, error) {
	start := time.Now()

	state, hdr, size, err := s.readState()
	if err != nil {
		return nil, nil, s.fail(metric.OpRead, err)
	}

	entries, stats, err := s.reader.Read()
	if err != nil {
		return nil, nil, s.fail(metric.OpRead, err)
	}
	if len(entries) > 0 {
		state.Records = domain.EntriesToRecords(entries)
	}

	res := &ReadResult{
		Generation: hdr.Generation,
		StateBytes: size,
		Records:    len(state.Records),
		Chunks:     *stats,
		Consistent: true,
	}
	for _, g := range stats.Generations {
		if g != hdr.Generation {
			res.Consistent = false
			s.logger.Warn("chunk generation differs from state",
				"state_generation", hdr.Generation,
				"chunk_generation", g)
		}
	}
	if int64(stats.Entries) != hdr.EntryCount {
		res.Consistent = false
		s.logger.Warn("chunk entries differ from state record count",
			"state_records", hdr.EntryCount,
			"chunk_entries", stats.Entries)
	}
	res.Elapsed = time.Since(start)

	s.metrics.ObserveDuration(metric.OpRead, res.Elapsed.Seconds())
	s.metrics.AddBytesRead(res.StateBytes + stats.Bytes)
	s.metrics.SetChunkLayout(stats.Chunks, res.Records)

	s.logger.Info("state restored",
		"generation", hdr.Generation,
		"records", res.Records,
		"chunks", stats.Chunks,
		"bytes", res.StateBytes+stats.Bytes,
		"elapsed", res.Elapsed)
	return state, res, nil
}

func (s *Store) readState() (*domain.PersistedState, envelope.Header, int64, error) {
	f, err := envelope.Open(s.statePath, envelope.KindState, s.cfg.UseMmap)
	if err != nil {
		return nil, envelope.Header{}, 0, stateError(err)
	}
	defer f.Close()

	c := s.codec
	if f.Header.Codec != c.Name() {
		if c, err = codec.New(f.Header.Codec); err != nil {
			return nil, envelope.Header{}, 0, domain.ErrStateCorrupted.WithCause(err)
		}
	}

	state := &domain.PersistedState{}
	if err := c.Decode(f.Body(), state); err != nil {
		return nil, envelope.Header{}, 0, domain.ErrStateCorrupted.WithCause(err)
	}
	return state, f.Header, f.Size, nil
}

func stateError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.ErrStateNotFound.WithCause(err)
	case envelope.IsCorruption(err):
		return domain.ErrStateCorrupted.WithCause(err)
	default:
		return domain.ErrStorageIO.WithDetails("open state").WithCause(err)
	}
}

// Inspect lists the state and chunk files from their headers. Bodies are
// not read. A missing state file leaves Inventory.State nil.
func (s *Store) Inspect() (*Inventory, error) {
	inv := &Inventory{Dir: s.dir, Consistent: true}

	hdr, size, err := envelope.ReadHeader(s.statePath, envelope.KindState)
	switch {
	case err == nil:
		inv.State = &StateInfo{
			Name:       filepath.Base(s.statePath),
			Size:       size,
			Codec:      hdr.Codec,
			Generation: hdr.Generation,
			CreatedAt:  hdr.CreatedAt,
			Records:    hdr.EntryCount,
		}
		inv.TotalBytes += size
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, stateError(err)
	}

	infos, err := s.reader.List()
	if err != nil {
		return nil, err
	}
	inv.Chunks = infos
	for _, info := range infos {
		inv.Records += info.Entries
		inv.TotalBytes += info.Size
		if inv.State != nil && info.Generation != inv.State.Generation {
			inv.Consistent = false
		}
	}
	if inv.State == nil {
		inv.Consistent = len(infos) == 0
	} else if inv.Records != inv.State.Records {
		inv.Consistent = false
	}
	return inv, nil
}

// Purge removes the state file and every chunk file, returning how many
// files were deleted.
func (s *Store) Purge() (int, error) {
	start := time.Now()

	removed := 0
	for _, p := range []string{s.statePath, s.statePath + envelope.TempSuffix} {
		if err := os.Remove(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, s.fail(metric.OpPurge, domain.ErrStorageIO.WithDetails("remove "+p).WithCause(err))
		}
		removed++
	}

	n, err := s.writer.Clean()
	removed += n
	if err != nil {
		return removed, s.fail(metric.OpPurge, err)
	}

	s.metrics.ObserveDuration(metric.OpPurge, time.Since(start).Seconds())
	s.metrics.SetChunkLayout(0, 0)
	s.logger.Info("cache purged", "dir", s.dir, "removed", removed)
	return removed, nil
}

func (s *Store) fail(op string, err error) error {
	s.metrics.IncError(op, domain.GetErrorCode(err))
	s.logger.Error(fmt.Sprintf("%s failed", op), "error", err)
	return err
}
