package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckInterpreterBundled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venv", "bin", "python3")
	writeStub(t, path)

	status := CheckInterpreter(path, false)
	if !status.Available || status.Command != path {
		t.Fatalf("expected bundled interpreter available, got %#v", status)
	}

	missing := CheckInterpreter(filepath.Join(t.TempDir(), "python3"), false)
	if missing.Available || missing.Detail == "" {
		t.Fatalf("expected missing interpreter, got %#v", missing)
	}
}

func TestCheckInterpreterNotExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	path := filepath.Join(t.TempDir(), "python3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	status := CheckInterpreter(path, false)
	if status.Available {
		t.Fatalf("expected non-executable interpreter to fail, got %#v", status)
	}
}

func TestCheckInterpreterFallbackUsesPath(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, filepath.Join(binDir, executableName("python3")))
	t.Setenv("PATH", binDir)

	status := CheckInterpreter("python3", true)
	if !status.Available {
		t.Fatalf("expected fallback interpreter on PATH, got %#v", status)
	}
	if status.Detail == "" {
		t.Fatal("expected fallback to be called out in detail")
	}
}

func TestCheckScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "app.py")
	if err := os.WriteFile(script, []byte("print()"), 0o644); err != nil {
		t.Fatal(err)
	}
	if status := CheckScript(script); !status.Available {
		t.Fatalf("expected script available, got %#v", status)
	}
	if status := CheckScript(dir); status.Available {
		t.Fatal("expected directory to be rejected")
	}
	if status := CheckScript(filepath.Join(dir, "missing.py")); status.Available {
		t.Fatal("expected missing script to be rejected")
	}
}

func TestCheckFFmpegPrefersSidecar(t *testing.T) {
	tmp := t.TempDir()
	interpreter := filepath.Join(tmp, "venv", "bin", executableName("python3"))
	ffmpegPath := filepath.Join(tmp, "venv", "bin", executableName("ffmpeg"))
	writeStub(t, interpreter)
	writeStub(t, ffmpegPath)

	status := CheckFFmpeg(interpreter)
	if !status.Available {
		t.Fatalf("expected ffmpeg sidecar to be available, got detail %q", status.Detail)
	}
	if status.Command != ffmpegPath {
		t.Fatalf("expected ffmpeg command %q, got %q", ffmpegPath, status.Command)
	}
}

func TestCheckFFmpegPathFallback(t *testing.T) {
	tmp := t.TempDir()
	interpreter := filepath.Join(tmp, "venv", "bin", executableName("python3"))
	writeStub(t, interpreter)

	binDir := filepath.Join(tmp, "bin")
	ffmpegPath := filepath.Join(binDir, executableName("ffmpeg"))
	writeStub(t, ffmpegPath)
	t.Setenv("PATH", binDir)

	status := CheckFFmpeg(interpreter)
	if !status.Available {
		t.Fatalf("expected ffmpeg fallback to be available, got detail %q", status.Detail)
	}
	if status.Command != ffmpegPath {
		t.Fatalf("expected ffmpeg command %q, got %q", ffmpegPath, status.Command)
	}
}

func TestCheckFFmpegMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	status := CheckFFmpeg("python3")
	if status.Available || !status.Optional {
		t.Fatalf("expected optional missing ffmpeg, got %#v", status)
	}
}

func TestCheckInterpreterFallbackMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	status := CheckInterpreter("python3", true)
	if status.Available || status.Command != "python3" {
		t.Fatalf("expected missing fallback interpreter, got %#v", status)
	}
}
