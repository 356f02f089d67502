package supervisor

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"ytdesk/internal/config"
	"ytdesk/internal/testsupport"
)

func TestResolveInterpreterShapes(t *testing.T) {
	cases := []struct {
		name        string
		goos        string
		packaged    bool
		venvPresent bool
		wantInterp  func(root string) string
	}{
		{"unix dev venv", "linux", false, true, func(root string) string { return filepath.Join(root, "python", "venv", "bin", "python3") }},
		{"unix dev fallback", "linux", false, false, func(string) string { return "python3" }},
		{"darwin packaged venv", "darwin", true, true, func(root string) string { return filepath.Join(root, "python", "venv", "bin", "python3") }},
		{"windows fallback", "windows", false, false, func(string) string { return "python" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.App.ProjectDir = "/srv/dev"
			cfg.App.ResourcesDir = "/opt/ytdesk/resources"
			if tc.packaged {
				cfg.App.Mode = config.ModePackaged
			}
			root := cfg.ResourceRoot()
			resolver := Resolver{
				GOOS:    tc.goos,
				Exists:  func(string) bool { return tc.venvPresent },
				Environ: func() []string { return nil },
			}
			cmd, err := resolver.Resolve(&cfg)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if want := tc.wantInterp(root); cmd.Interpreter != want {
				t.Fatalf("interpreter = %q, want %q", cmd.Interpreter, want)
			}
			if cmd.Fallback == tc.venvPresent {
				t.Fatalf("fallback = %v with venv present = %v", cmd.Fallback, tc.venvPresent)
			}
			if !strings.HasSuffix(cmd.Script, "app.py") || !strings.HasPrefix(cmd.Script, root) {
				t.Fatalf("unexpected script path %q for root %q", cmd.Script, root)
			}
		})
	}
}

func TestPreferredInterpreterWindowsShape(t *testing.T) {
	got := PreferredInterpreter(`C:\ytdesk\resources`, "windows")
	if !strings.HasSuffix(got, `python\venv\Scripts\python.exe`) {
		t.Fatalf("unexpected windows interpreter path %q", got)
	}
	if got := PreferredInterpreter("/opt/ytdesk", "linux"); got != "/opt/ytdesk/python/venv/bin/python3" {
		t.Fatalf("unexpected unix interpreter path %q", got)
	}
}

func TestResolveOverridesAndEnvironment(t *testing.T) {
	cfg := config.Default()
	cfg.App.Mode = config.ModePackaged
	cfg.Backend.Interpreter = "/usr/local/bin/python3.12"
	cfg.Backend.Script = "/srv/backend/app.py"
	resolver := Resolver{
		GOOS:    "linux",
		Exists:  func(string) bool { return true },
		Environ: func() []string { return []string{"HOME=/home/u", "FLASK_ENV=debug", "PYTHONUNBUFFERED=0"} },
	}
	cmd, err := resolver.Resolve(&cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cmd.Interpreter != "/usr/local/bin/python3.12" || cmd.Script != "/srv/backend/app.py" {
		t.Fatalf("expected overrides to win, got %+v", cmd)
	}
	want := []string{"HOME=/home/u", "FLASK_ENV=production", "PYTHONUNBUFFERED=1"}
	if strings.Join(cmd.Env, ",") != strings.Join(want, ",") {
		t.Fatalf("env = %v, want %v", cmd.Env, want)
	}
}

func TestRestartPolicyNext(t *testing.T) {
	fixed := RestartPolicy{Delay: time.Second}
	for attempt := 0; attempt < 50; attempt += 7 {
		delay, ok := fixed.Next(attempt)
		if !ok || delay != time.Second {
			t.Fatalf("fixed policy attempt %d: delay=%s ok=%v", attempt, delay, ok)
		}
	}

	backoff := RestartPolicy{Backoff: true, Delay: time.Second, MaxDelay: 5 * time.Second, MaxRestarts: 4}
	wants := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for attempt, want := range wants {
		delay, ok := backoff.Next(attempt)
		if !ok || delay != want {
			t.Fatalf("backoff attempt %d: delay=%s ok=%v, want %s", attempt, delay, ok, want)
		}
	}
	if _, ok := backoff.Next(4); ok {
		t.Fatal("expected cap to stop restarts")
	}
}

func TestPolicyFromConfigDefaultsToFixedUnlimited(t *testing.T) {
	policy := PolicyFromConfig(config.Default().Backend)
	if policy.Backoff || policy.MaxRestarts != 0 || policy.Delay != time.Second {
		t.Fatalf("unexpected default policy %+v", policy)
	}
}

func TestDefaultResolverFindsPackagedVenv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("venv layout differs on windows")
	}
	cfg := testsupport.NewConfig(t, testsupport.WithPackaged(), testsupport.WithVenvInterpreter())

	cmd, err := DefaultResolver().Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cmd.Fallback {
		t.Fatalf("expected bundled venv, got fallback %+v", cmd)
	}
	if want := filepath.Join(cfg.App.ResourcesDir, "python", "venv", "bin", "python3"); cmd.Interpreter != want {
		t.Fatalf("interpreter = %q, want %q", cmd.Interpreter, want)
	}
	if cmd.Script != filepath.Join(cfg.App.ResourcesDir, "python", "app.py") {
		t.Fatalf("unexpected script %q", cmd.Script)
	}
}

func TestPolicyFromConfigBackoff(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackoff(3))
	policy := PolicyFromConfig(cfg.Backend)
	if !policy.Backoff || policy.MaxRestarts != 3 {
		t.Fatalf("unexpected policy %+v", policy)
	}
	if policy.Delay != 50*time.Millisecond || policy.MaxDelay != 400*time.Millisecond {
		t.Fatalf("delays not taken from config: %+v", policy)
	}
}
