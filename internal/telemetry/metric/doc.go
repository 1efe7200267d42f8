// Package metric provides Prometheus metrics for statecache.
//
//   - prometheus.go: the Registry of persistence metrics and textfile export
//   - collector.go: a collector reporting the cache directory's disk usage
//
// statecache runs as a command rather than a server, so metrics are written
// in the node_exporter textfile format instead of being scraped over HTTP.
package metric
