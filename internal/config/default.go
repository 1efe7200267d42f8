package config

import (
	"github.com/yndnr/statecache/internal/storage"
	"github.com/yndnr/statecache/internal/storage/chunk"
	"github.com/yndnr/statecache/internal/storage/codec"
)

// Default configuration values.
const (
	DefaultBaseDir   = "."
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Cache: CacheSection{
			BaseDir:     DefaultBaseDir,
			Dir:         storage.DefaultCacheDir,
			StateFile:   storage.DefaultStateFile,
			ChunkPrefix: chunk.DefaultPrefix,
			Codec:       codec.DefaultName,
			Mmap:        true,
		},
		Chunk: ChunkSection{
			SampleCount: chunk.DefaultSampleCount,
			TargetBytes: chunk.DefaultTargetBytes,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
