package logging

import (
	"context"
	"log/slog"

	"ytdesk/internal/services"
)

// WithContext returns logger tagged with the operation, backend generation
// and request id carried by ctx, if any.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	if op, ok := services.OperationFromContext(ctx); ok {
		args = append(args, slog.String(FieldOperation, op))
	}
	if gen, ok := services.GenerationFromContext(ctx); ok {
		args = append(args, slog.String(FieldGeneration, gen))
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldCorrelationID, id))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
