package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/yndnr/statecache/internal/core/domain"
	"github.com/yndnr/statecache/internal/storage/codec"
	"github.com/yndnr/statecache/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyCache(&cfg.Cache); err != nil {
		return err
	}
	if err := verifyChunk(&cfg.Chunk); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyCache(cfg *CacheSection) error {
	if cfg.BaseDir == "" {
		return invalid("cache.base_dir is required")
	}
	if cfg.Dir == "" || filepath.IsAbs(cfg.Dir) {
		return invalid("cache.dir must be a relative directory name")
	}
	for key, name := range map[string]string{"cache.state_file": cfg.StateFile, "cache.chunk_prefix": cfg.ChunkPrefix} {
		if name == "" || strings.ContainsRune(name, filepath.Separator) {
			return invalid(key + " must be a plain file name")
		}
	}
	if strings.HasPrefix(cfg.StateFile, cfg.ChunkPrefix) {
		return invalid("cache.state_file must not start with cache.chunk_prefix")
	}
	if !slices.Contains(codec.Names(), cfg.Codec) {
		return invalid(fmt.Sprintf("cache.codec %q is not one of %v", cfg.Codec, codec.Names()))
	}
	return nil
}

func verifyChunk(cfg *ChunkSection) error {
	if cfg.SampleCount < 1 {
		return invalid("chunk.sample_count must be at least 1")
	}
	if cfg.TargetBytes < 1 {
		return invalid("chunk.target_bytes must be positive")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return invalid(fmt.Sprintf("log.level %q is not valid", cfg.Level))
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
		return nil
	}
	return invalid(fmt.Sprintf("log.format %q is not valid", cfg.Format))
}

func invalid(details string) error {
	return domain.ErrInvalidConfig.WithDetails(details)
}
