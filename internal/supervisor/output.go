package supervisor

import (
	"log/slog"

	"ytdesk/internal/logging"
)

// chunkWriter forwards each write from the child verbatim as one log record.
type chunkWriter struct {
	logger *slog.Logger
}

func newChunkWriter(logger *slog.Logger, stream, generation string) *chunkWriter {
	return &chunkWriter{
		logger: logger.With(
			logging.String(logging.FieldStream, stream),
			logging.String(logging.FieldGeneration, generation),
		),
	}
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.logger.Info(string(p))
	}
	return len(p), nil
}
