package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ytdesk/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The project directory contains a python/app.py placeholder and restart
// delays are shortened so supervisor tests run quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.App.ProjectDir = filepath.Join(base, "project")
	cfgVal.App.ResourcesDir = filepath.Join(base, "resources")
	cfgVal.App.StateDir = filepath.Join(base, "state")
	cfgVal.App.EnvFile = ""
	cfgVal.Downloads.Dir = filepath.Join(base, "downloads")
	cfgVal.Downloads.HistoryPath = filepath.Join(base, "state", "history.db")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Backend.RestartDelayMillis = 50
	cfgVal.Backend.MaxRestartDelayMillis = 400
	cfgVal.Backend.StopGraceSeconds = 1
	cfgVal.Window.StartupDelayMillis = 10
	cfgVal.Window.ContentBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	builder.writeScript(cfgVal.App.ProjectDir)

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPackaged switches the config to packaged mode with a populated
// resources directory.
func WithPackaged() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.App.Mode = config.ModePackaged
		b.writeScript(b.cfg.App.ResourcesDir)
	}
}

// WithBackendURL points the backend client at url (usually an httptest server).
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.BaseURL = url
	}
}

// WithBackoff enables the backoff restart policy with an optional cap.
func WithBackoff(maxRestarts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.RestartPolicy = config.RestartPolicyBackoff
		b.cfg.Backend.MaxRestarts = maxRestarts
	}
}

// WithHistoryDisabled turns off the download history.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Downloads.HistoryEnabled = false
	}
}

// WithVenvInterpreter writes a stub interpreter at the virtualenv location
// of the active resource root.
func WithVenvInterpreter() ConfigOption {
	return func(b *configBuilder) {
		root := b.cfg.ResourceRoot()
		target := filepath.Join(root, "python", "venv", "bin", "python3")
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			b.t.Fatalf("mkdir venv: %v", err)
		}
		if err := os.WriteFile(target, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			b.t.Fatalf("write stub interpreter: %v", err)
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, python3 is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"python3"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

func (b *configBuilder) writeScript(root string) {
	script := filepath.Join(root, "python", "app.py")
	if err := os.MkdirAll(filepath.Dir(script), 0o755); err != nil {
		b.t.Fatalf("mkdir python dir: %v", err)
	}
	if err := os.WriteFile(script, []byte("print('backend')\n"), 0o644); err != nil {
		b.t.Fatalf("write backend script: %v", err)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.App.StateDir)
}
