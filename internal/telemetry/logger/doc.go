// Package logger provides structured logging for statecache.
//
// It wraps log/slog behind a small Logger interface:
//
//   - logger.go: configuration, handler selection and the process-wide default
//   - context.go: carrying a logger and an operation ID through a context
//   - abbrev.go: shortening oversized attribute values such as record bodies
//
// JSON is the default output format; "text" selects slog's key=value form.
package logger
