package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ytdesk/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// OutputPaths accepts "stdout", "stderr" or file paths; files are
	// appended to. Empty means stdout.
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
	// SessionID, when set, is stamped on every record.
	SessionID string
	// Hub receives a copy of every record for in-process consumers.
	Hub *StreamHub
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	w, err := openOutputs(append(append([]string(nil), opts.OutputPaths...), opts.ErrorOutputPaths...))
	if err != nil {
		return nil, err
	}
	handler, err := newFormatHandler(w, opts.Format, opts.Level, opts.Development)
	if err != nil {
		return nil, err
	}
	return slog.New(decorate(handler, opts.SessionID, opts.Hub)), nil
}

// ConfigOptions tunes NewFromConfig for the command being run.
type ConfigOptions struct {
	// ConsoleLevel raises the console threshold without affecting the log file.
	ConsoleLevel string
	SessionID    string
	Hub          *StreamHub
}

// NewFromConfig logs to stderr in the configured format and, when a log
// directory is configured, to a per-session JSON file inside it.
func NewFromConfig(cfg *config.Config, opts ConfigOptions) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", OutputPaths: []string{"stderr"}, SessionID: opts.SessionID, Hub: opts.Hub})
	}

	console, err := newFormatHandler(os.Stderr, cfg.Logging.Format, cfg.Logging.Level, false)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.ConsoleLevel) != "" {
		console = withFloor(console, parseLevel(opts.ConsoleLevel))
	}

	var file slog.Handler
	if dir := cfg.Logging.Dir; dir != "" {
		w, err := openOutputs([]string{SessionLogPath(dir, time.Now())})
		if err != nil {
			return nil, err
		}
		if file, err = newFormatHandler(w, "json", cfg.Logging.Level, false); err != nil {
			return nil, err
		}
	}
	return slog.New(decorate(TeeHandler(console, file), opts.SessionID, opts.Hub)), nil
}

// NewConsole builds a console-only logger writing to w. One-shot commands use
// it so they do not leave a session log file behind.
func NewConsole(w io.Writer, level string) *slog.Logger {
	lvl := parseLevel(level)
	return slog.New(newConsoleHandler(w, lvl, lvl <= slog.LevelDebug))
}

// SessionLogPath returns the per-session log file name inside dir.
func SessionLogPath(dir string, started time.Time) string {
	return filepath.Join(dir, "ytdesk-"+started.Format("20060102-150405")+".log")
}

func newFormatHandler(w io.Writer, format, level string, development bool) (slog.Handler, error) {
	lvl := parseLevel(level)
	source := development || lvl <= slog.LevelDebug
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return newConsoleHandler(w, lvl, source), nil
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: source}), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

func decorate(handler slog.Handler, sessionID string, hub *StreamHub) slog.Handler {
	if id := strings.TrimSpace(sessionID); id != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String(FieldSessionID, id)})
	}
	if hub != nil {
		handler = &streamHandler{next: handler, hub: hub}
	}
	return handler
}

// parseLevel maps a config level name to slog; unknown names mean info.
func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func openOutputs(paths []string) (io.Writer, error) {
	seen := make(map[string]bool)
	var writers []io.Writer
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		switch p {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", p, err)
			}
			writers = append(writers, f)
		}
	}
	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}
