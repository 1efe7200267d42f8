package logger

import "context"

type contextKey string

const (
	loggerKey    contextKey = "statecache.logger"
	operationKey contextKey = "statecache.operation"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if ctx == nil {
		return Default()
	}
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithOperation tags the context with the ID of the operation in progress,
// such as one CLI command invocation.
func WithOperation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationKey, id)
}

// OperationFromContext returns the operation ID, or "" if none is set.
func OperationFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(operationKey).(string); ok {
		return id
	}
	return ""
}

// L returns the context's logger, tagged with the operation ID if present.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if op := OperationFromContext(ctx); op != "" {
		l = l.With("op", op)
	}
	return l
}
