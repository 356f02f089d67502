package services

import "context"

type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	generationKey contextKey = "generation"
	operationKey  contextKey = "operation"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithGeneration annotates context with the backend process generation id.
func WithGeneration(ctx context.Context, generation string) context.Context {
	if generation == "" {
		return ctx
	}
	return context.WithValue(ctx, generationKey, generation)
}

// GenerationFromContext returns the backend generation id if present.
func GenerationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(generationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOperation annotates context with the user-facing operation name (info, download, probe).
func WithOperation(ctx context.Context, operation string) context.Context {
	if operation == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, operation)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(operationKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
