package config

import (
	"github.com/yndnr/statecache/internal/core/domain"
	"github.com/yndnr/statecache/internal/infra/confloader"
	"github.com/yndnr/statecache/internal/storage"
	"github.com/yndnr/statecache/internal/telemetry/logger"
	"github.com/yndnr/statecache/internal/telemetry/metric"
)

// Load builds the configuration from Default, the YAML file at path (if
// any), STATECACHE_* environment variables and overrides, then verifies it.
func Load(path string, overrides map[string]any) (*Config, error) {
	cfg := Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, domain.ErrInvalidConfig.WithCause(err)
	}
	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToStoreConfig maps the configuration onto a storage.Config.
func ToStoreConfig(cfg *Config, log logger.Logger, metrics *metric.Registry) storage.Config {
	return storage.Config{
		BaseDir:     cfg.Cache.BaseDir,
		CacheDir:    cfg.Cache.Dir,
		StateFile:   cfg.Cache.StateFile,
		ChunkPrefix: cfg.Cache.ChunkPrefix,
		Codec:       cfg.Cache.Codec,
		UseMmap:     cfg.Cache.Mmap,
		SampleCount: cfg.Chunk.SampleCount,
		TargetBytes: cfg.Chunk.TargetBytes,
		Logger:      log,
		Metrics:     metrics,
	}
}

// LoggerConfig maps the log section onto a logger.Config.
func LoggerConfig(cfg *Config) logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Format = cfg.Log.Format
	return lc
}
