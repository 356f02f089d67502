package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// infoFieldLimit caps how many attrs an info-or-above line prints; debug
// lines print everything.
const infoFieldLimit = 8

// consoleHandler writes one human-readable header line per record followed
// by indented key/value lines:
//
//	2024-05-01 10:00:00 INFO  [supervisor] gen 01234567 stderr: Running on http://127.0.0.1:5000
//	    pid: 4242
type consoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	source bool
	attrs  []slog.Attr
	prefix string
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source bool) *consoleHandler {
	return &consoleHandler{mu: new(sync.Mutex), w: w, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = flatten(next.attrs, h.prefix, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	all := append([]slog.Attr(nil), h.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		all = flatten(all, h.prefix, a)
		return true
	})

	var component, operation, generation, stream string
	fields := make([]slog.Attr, 0, len(all))
	for _, a := range all {
		switch a.Key {
		case FieldComponent:
			component = a.Value.String()
		case FieldOperation:
			operation = a.Value.String()
		case FieldGeneration:
			generation = a.Value.String()
		case FieldStream:
			stream = a.Value.String()
		case FieldSessionID:
		default:
			fields = append(fields, a)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Format(time.DateTime))
	fmt.Fprintf(&b, " %-5s", record.Level.String())
	if component != "" {
		b.WriteString(" [" + component + "]")
	}
	if subject := subjectText(operation, generation, stream); subject != "" {
		b.WriteString(" " + subject + ":")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(" " + msg)
	if h.source && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		if frame.File != "" {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(frame.File), frame.Line)
		}
	}
	b.WriteByte('\n')

	shown := fields
	if record.Level >= slog.LevelInfo && len(shown) > infoFieldLimit {
		shown = shown[:infoFieldLimit]
	}
	for _, a := range shown {
		b.WriteString("    " + a.Key + ": " + consoleValue(a.Key, a.Value) + "\n")
	}
	if hidden := len(fields) - len(shown); hidden > 0 {
		fmt.Fprintf(&b, "    (+%d more)\n", hidden)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// subjectText names what a line is about: a user operation, or one backend
// generation and its output stream.
func subjectText(operation, generation, stream string) string {
	var parts []string
	if operation != "" {
		parts = append(parts, operation)
	}
	if generation != "" {
		if len(generation) > 8 {
			generation = generation[:8]
		}
		parts = append(parts, "gen "+generation)
	}
	if stream != "" {
		parts = append(parts, stream)
	}
	return strings.Join(parts, " ")
}

func flatten(dst []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			dst = flatten(dst, inner, ga)
		}
		return dst
	}
	if a.Key == "" {
		return dst
	}
	a.Key = prefix + a.Key
	return append(dst, a)
}

func consoleValue(key string, v slog.Value) string {
	switch v.Kind() {
	case slog.KindDuration:
		d := v.Duration()
		if d >= time.Second {
			return d.Round(100 * time.Millisecond).String()
		}
		return d.Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().Format(time.DateTime)
	case slog.KindInt64:
		if strings.HasSuffix(key, "_bytes") && v.Int64() >= 0 {
			return humanize.IBytes(uint64(v.Int64()))
		}
	case slog.KindUint64:
		if strings.HasSuffix(key, "_bytes") {
			return humanize.IBytes(v.Uint64())
		}
	}
	return v.String()
}
