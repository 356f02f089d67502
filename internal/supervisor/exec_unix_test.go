//go:build !windows

package supervisor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ytdesk/internal/logging"
	"ytdesk/internal/supervisor"
	"ytdesk/internal/testsupport"
)

func TestExecStarterRunsRealProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Backend.Interpreter = "/bin/sh"
	cfg.Backend.Script = filepath.Join(testsupport.BaseDir(cfg), "backend.sh")
	if err := os.WriteFile(cfg.Backend.Script, []byte("echo \"mode=$FLASK_ENV unbuffered=$PYTHONUNBUFFERED\"\nexit 0\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	hub := logging.NewStreamHub(16)
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{filepath.Join(t.TempDir(), "out.log")}, Hub: hub})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	sup, err := supervisor.New(cfg, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sup.Stop(context.Background()) //nolint:errcheck

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForState(t, sup, supervisor.StateCleanExit)

	events := hub.Filter(0, func(evt logging.LogEvent) bool { return evt.Stream == "stdout" })
	if len(events) == 0 || events[0].Message != "mode=development unbuffered=1" {
		t.Fatalf("unexpected stdout events: %+v", events)
	}
	info, err := os.Stat(cfg.Backend.Script)
	if err != nil {
		t.Fatalf("stat script: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Fatalf("expected script marked executable, got %v", info.Mode().Perm())
	}
}

func TestExecStarterStopsProcessGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Backend.Interpreter = "/bin/sh"
	cfg.Backend.Script = filepath.Join(testsupport.BaseDir(cfg), "sleep.sh")
	if err := os.WriteFile(cfg.Backend.Script, []byte("sleep 30 &\nwait\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	sup, err := supervisor.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForState(t, sup, supervisor.StateRunning)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := sup.Status().State; got != supervisor.StateStopped {
		t.Fatalf("state = %s, want stopped", got)
	}
}
