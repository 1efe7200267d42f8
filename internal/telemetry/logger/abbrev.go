package logger

import (
	"fmt"
	"log/slog"
)

// DefaultMaxValueLen is the longest string attribute written verbatim.
const DefaultMaxValueLen = 256

// abbreviate shortens string and []byte values longer than limit. Record
// contents can run to megabytes and must not end up in a log line.
func abbreviate(a slog.Attr, limit int) slog.Attr {
	if limit < 0 {
		return a
	}

	switch a.Value.Kind() {
	case slog.KindString:
		if s := a.Value.String(); len(s) > limit {
			return slog.String(a.Key, Abbrev(s, limit))
		}
	case slog.KindAny:
		if b, ok := a.Value.Any().([]byte); ok && len(b) > limit {
			return slog.String(a.Key, fmt.Sprintf("<%d bytes>", len(b)))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = abbreviate(attr, limit)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// Abbrev cuts s to limit bytes and appends how much was dropped.
func Abbrev(s string, limit int) string {
	if limit < 0 || len(s) <= limit {
		return s
	}
	return fmt.Sprintf("%s...(%d more bytes)", s[:limit], len(s)-limit)
}
