package config

// Config is the root statecache configuration.
type Config struct {
	Cache   CacheSection   `koanf:"cache" yaml:"cache" json:"cache"`
	Chunk   ChunkSection   `koanf:"chunk" yaml:"chunk" json:"chunk"`
	Log     LogSection     `koanf:"log" yaml:"log" json:"log"`
	Metrics MetricsSection `koanf:"metrics" yaml:"metrics" json:"metrics"`
}

// CacheSection configures where and how state files are written.
type CacheSection struct {
	// BaseDir holds the cache directory.
	BaseDir string `koanf:"base_dir" yaml:"base_dir" json:"base_dir"`

	// Dir is the cache directory, relative to BaseDir.
	Dir string `koanf:"dir" yaml:"dir" json:"dir"`

	StateFile   string `koanf:"state_file" yaml:"state_file" json:"state_file"`
	ChunkPrefix string `koanf:"chunk_prefix" yaml:"chunk_prefix" json:"chunk_prefix"`

	// Codec is "msgpack" or "json".
	Codec string `koanf:"codec" yaml:"codec" json:"codec"`

	// Mmap enables memory-mapped reads.
	Mmap bool `koanf:"mmap" yaml:"mmap" json:"mmap"`
}

// ChunkSection tunes the chunk size estimator.
type ChunkSection struct {
	SampleCount int   `koanf:"sample_count" yaml:"sample_count" json:"sample_count"`
	TargetBytes int64 `koanf:"target_bytes" yaml:"target_bytes" json:"target_bytes"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}

// MetricsSection configures metric export.
type MetricsSection struct {
	// Textfile, if set, receives all metrics in the Prometheus text format
	// after each command.
	Textfile string `koanf:"textfile" yaml:"textfile" json:"textfile"`
}
