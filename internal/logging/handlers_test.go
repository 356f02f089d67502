package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeHandlerRespectsEachLevel(t *testing.T) {
	var console, file bytes.Buffer
	logger := slog.New(TeeHandler(
		withFloor(newConsoleHandler(&console, slog.LevelDebug, false), slog.LevelError),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))

	logger.Debug("probe attempt", String("url", "http://127.0.0.1:5000/"))
	logger.Error("backend exited", Int("exit_code", 1))

	if strings.Contains(console.String(), "probe attempt") {
		t.Fatalf("console should drop records below error: %q", console.String())
	}
	if !strings.Contains(console.String(), "backend exited") {
		t.Fatalf("console missing error record: %q", console.String())
	}
	if got := strings.Count(file.String(), "\n"); got != 2 {
		t.Fatalf("file handler should see both records, got %d lines: %q", got, file.String())
	}
}

func TestTeeHandlerJoinsErrorsAndKeepsWriting(t *testing.T) {
	var buf bytes.Buffer
	ok := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(TeeHandler(failingHandler{ok}, nil, ok))

	err := logger.Handler().Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "saved", 0))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined handler error, got %v", err)
	}
	if !strings.Contains(buf.String(), `"msg":"saved"`) {
		t.Fatalf("healthy handler should still write: %q", buf.String())
	}
}

func TestTeeHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(TeeHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil)))
	logger.With(String(FieldComponent, "backend")).WithGroup("request").Info("lookup", String("url", "https://youtu.be/x"))

	for _, buf := range []*bytes.Buffer{&a, &b} {
		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("decode %q: %v", buf.String(), err)
		}
		if rec[FieldComponent] != "backend" {
			t.Fatalf("component missing: %v", rec)
		}
		group, _ := rec["request"].(map[string]any)
		if group["url"] != "https://youtu.be/x" {
			t.Fatalf("grouped url missing: %v", rec)
		}
	}
}

func TestTeeHandlerWithNoHandlersDiscards(t *testing.T) {
	if TeeHandler(nil, nil).Enabled(context.Background(), slog.LevelError) {
		t.Fatal("empty tee should discard")
	}
}

func TestSessionIDStampedOnFileRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(decorate(slog.NewJSONHandler(&buf, nil), "sess-9", nil))
	logger.Info("host ready")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec[FieldSessionID] != "sess-9" {
		t.Fatalf("expected session id, got %v", rec)
	}
}

func TestConsoleHidesSessionIDAndCapsInfoFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(decorate(newConsoleHandler(&buf, slog.LevelDebug, false), "sess-9", nil))

	attrs := make([]Attr, 0, infoFieldLimit+2)
	for i := range infoFieldLimit + 2 {
		attrs = append(attrs, Int("f"+string(rune('a'+i)), i))
	}
	logger.Info("many fields", Args(attrs...)...)
	out := buf.String()
	if strings.Contains(out, "sess-9") {
		t.Fatalf("console should not print the session id: %q", out)
	}
	if !strings.Contains(out, "(+2 more)") {
		t.Fatalf("expected overflow marker, got %q", out)
	}

	buf.Reset()
	logger.Debug("many fields", Args(attrs...)...)
	if strings.Contains(buf.String(), "more)") {
		t.Fatalf("debug lines print every field: %q", buf.String())
	}
}

func TestConsoleValueFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, slog.LevelInfo, false))
	logger.WithGroup("download").Info("saved",
		Int64("size_bytes", 5*1024*1024),
		Duration("elapsed", 1234567890*time.Nanosecond),
	)
	out := buf.String()
	for _, want := range []string{"download.size_bytes: 5.0 MiB", "download.elapsed: 1.2s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}
