package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEvent is one log record as published to a StreamHub and its sinks.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Operation     string            `json:"operation,omitempty"`
	Generation    string            `json:"generation,omitempty"`
	Stream        string            `json:"stream,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// LogEventSink receives every event published to a hub.
type LogEventSink interface {
	Append(LogEvent)
}

// StreamHub keeps the most recent events in memory so the window and tests
// can read backend output without going through log files.
type StreamHub struct {
	mu    sync.Mutex
	ring  []LogEvent
	size  int
	seq   uint64
	sinks []LogEventSink
}

// NewStreamHub returns a hub holding at most capacity events (512 if <= 0).
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	return &StreamHub{size: capacity, ring: make([]LogEvent, 0, capacity)}
}

// AddSink registers sink for all future events.
func (h *StreamHub) AddSink(sink LogEventSink) {
	if h == nil || sink == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	h.mu.Unlock()
}

// Publish numbers evt, buffers it and forwards it to the sinks.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.seq++
	evt.Sequence = h.seq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.ring) == h.size {
		h.ring = append(h.ring[:0], h.ring[1:]...)
	}
	h.ring = append(h.ring, evt)
	sinks := h.sinks
	h.mu.Unlock()

	for _, s := range sinks {
		s.Append(evt)
	}
}

// Tail returns up to limit of the newest events and the last sequence issued.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	start := 0
	if limit > 0 && len(h.ring) > limit {
		start = len(h.ring) - limit
	}
	return append([]LogEvent(nil), h.ring[start:]...), h.seq
}

// Filter returns the newest limit buffered events accepted by keep, oldest
// first. A limit <= 0 returns every match.
func (h *StreamHub) Filter(limit int, keep func(LogEvent) bool) []LogEvent {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []LogEvent
	for _, evt := range h.ring {
		if keep == nil || keep(evt) {
			out = append(out, evt)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// streamHandler publishes every handled record to a hub before passing it on.
type streamHandler struct {
	next  slog.Handler
	hub   *StreamHub
	attrs []slog.Attr
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(newLogEvent(record, h.attrs))
	return h.next.Handle(ctx, record)
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &streamHandler{
		next:  h.next.WithAttrs(attrs),
		hub:   h.hub,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub, attrs: h.attrs}
}

func newLogEvent(record slog.Record, bound []slog.Attr) LogEvent {
	evt := LogEvent{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   strings.TrimSpace(record.Message),
	}
	set := func(a slog.Attr) {
		a.Value = a.Value.Resolve()
		value := a.Value.String()
		switch a.Key {
		case "":
		case FieldComponent:
			evt.Component = value
		case FieldOperation:
			evt.Operation = value
		case FieldGeneration:
			evt.Generation = value
		case FieldStream:
			evt.Stream = value
		case FieldCorrelationID:
			evt.CorrelationID = value
		default:
			if evt.Fields == nil {
				evt.Fields = make(map[string]string)
			}
			evt.Fields[a.Key] = value
		}
	}
	for _, a := range bound {
		set(a)
	}
	record.Attrs(func(a slog.Attr) bool {
		set(a)
		return true
	})
	return evt
}
