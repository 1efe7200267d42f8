package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "statecache"

// Operation labels.
const (
	OpWrite = "write"
	OpRead  = "read"
	OpPurge = "purge"
)

// Registry holds the persistence metrics. A nil *Registry is valid and
// records nothing.
type Registry struct {
	registry *prometheus.Registry

	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	BytesWritten      prometheus.Counter
	BytesRead         prometheus.Counter
	ChunkFiles        prometheus.Gauge
	Records           prometheus.Gauge
	ChunkSize         prometheus.Gauge
	MaxSampleBytes    prometheus.Gauge
	LastWrite         prometheus.Gauge
}

// NewRegistry creates a registry with the persistence metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of state write, read and purge operations",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"op"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Failed store operations by operation and error code",
		}, []string{"op", "code"}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "written_bytes_total",
			Help:      "Bytes written to state and chunk files",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "read_bytes_total",
			Help:      "Bytes read from state and chunk files",
		}),
		ChunkFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chunk",
			Name:      "files",
			Help:      "Chunk files produced or consumed by the last operation",
		}),
		Records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chunk",
			Name:      "records",
			Help:      "Records in the last written or read state",
		}),
		ChunkSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chunk",
			Name:      "size_records",
			Help:      "Records per chunk chosen by the last write",
		}),
		MaxSampleBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chunk",
			Name:      "max_sample_bytes",
			Help:      "Largest sampled record size seen by the last write",
		}),
		LastWrite: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "last_write_timestamp_seconds",
			Help:      "Unix timestamp of the last successful write",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.OperationDuration,
		r.OperationErrors,
		r.BytesWritten,
		r.BytesRead,
		r.ChunkFiles,
		r.Records,
		r.ChunkSize,
		r.MaxSampleBytes,
		r.LastWrite,
	)
	return r
}

// Register adds further collectors, such as a DirCollector.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	if r == nil {
		return nil
	}
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// WriteToTextfile writes every metric to path in the text exposition
// format, replacing the file atomically.
func (r *Registry) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Gatherer())
}

// ObserveDuration records how long op took.
func (r *Registry) ObserveDuration(op string, seconds float64) {
	if r == nil {
		return
	}
	r.OperationDuration.WithLabelValues(op).Observe(seconds)
}

// IncError counts a failed op. code is the domain error code, or "unknown".
func (r *Registry) IncError(op, code string) {
	if r == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	r.OperationErrors.WithLabelValues(op, code).Inc()
}

// AddBytesWritten adds n to the written bytes counter.
func (r *Registry) AddBytesWritten(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.BytesWritten.Add(float64(n))
}

// AddBytesRead adds n to the read bytes counter.
func (r *Registry) AddBytesRead(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.BytesRead.Add(float64(n))
}

// SetChunkLayout records the shape of the last write or read.
func (r *Registry) SetChunkLayout(files, records int) {
	if r == nil {
		return
	}
	r.ChunkFiles.Set(float64(files))
	r.Records.Set(float64(records))
}

// SetEstimate records the last chunk size estimate.
func (r *Registry) SetEstimate(chunkSize int, maxSampleBytes int64) {
	if r == nil {
		return
	}
	r.ChunkSize.Set(float64(chunkSize))
	r.MaxSampleBytes.Set(float64(maxSampleBytes))
}

// MarkWrite sets the last write timestamp to unixSeconds.
func (r *Registry) MarkWrite(unixSeconds float64) {
	if r == nil {
		return
	}
	r.LastWrite.Set(unixSeconds)
}
