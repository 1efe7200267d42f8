package metric

import (
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// DirCollector reports the number and total size of files under a cache
// directory whose names start with one of the given prefixes. The directory
// is listed on every collection.
type DirCollector struct {
	dir      string
	prefixes []string

	files *prometheus.Desc
	bytes *prometheus.Desc
}

// NewDirCollector creates a collector for dir. With no prefixes every
// regular file counts.
func NewDirCollector(dir string, prefixes ...string) *DirCollector {
	return &DirCollector{
		dir:      dir,
		prefixes: prefixes,
		files: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "files"),
			"Files in the cache directory",
			nil, nil),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "bytes"),
			"Total size of the files in the cache directory",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *DirCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.files
	ch <- c.bytes
}

// Collect implements prometheus.Collector. A missing directory reports zero.
func (c *DirCollector) Collect(ch chan<- prometheus.Metric) {
	files, size := c.usage()
	ch <- prometheus.MustNewConstMetric(c.files, prometheus.GaugeValue, float64(files))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(size))
}

func (c *DirCollector) usage() (int, int64) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, 0
	}

	var files int
	var size int64
	for _, e := range entries {
		if !e.Type().IsRegular() || !c.matches(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files++
		size += info.Size()
	}
	return files, size
}

func (c *DirCollector) matches(name string) bool {
	if len(c.prefixes) == 0 {
		return true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
