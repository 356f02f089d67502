package logging

import (
	"context"
	"errors"
	"log/slog"
)

// TeeHandler sends each record to every handler that accepts its level.
// Nil handlers are skipped.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	var live teeHandler
	for _, h := range handlers {
		if h != nil {
			live = append(live, h)
		}
	}
	switch len(live) {
	case 0:
		return slog.DiscardHandler
	case 1:
		return live[0]
	}
	return live
}

type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

// floorHandler raises the minimum level of an inner handler. The terminal UI
// uses it to keep the console quiet while the session file stays verbose.
type floorHandler struct {
	inner slog.Handler
	floor slog.Level
}

func withFloor(inner slog.Handler, floor slog.Level) slog.Handler {
	return floorHandler{inner: inner, floor: floor}
}

func (f floorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= f.floor && f.inner.Enabled(ctx, level)
}

func (f floorHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < f.floor {
		return nil
	}
	return f.inner.Handle(ctx, record)
}

func (f floorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return floorHandler{inner: f.inner.WithAttrs(attrs), floor: f.floor}
}

func (f floorHandler) WithGroup(name string) slog.Handler {
	return floorHandler{inner: f.inner.WithGroup(name), floor: f.floor}
}
