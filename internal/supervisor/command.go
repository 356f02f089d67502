package supervisor

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"ytdesk/internal/config"
)

// Command describes one backend launch.
type Command struct {
	Interpreter string
	Script      string
	Dir         string
	Env         []string
	// Fallback is true when the bundled interpreter was missing and a bare
	// system interpreter name is used instead.
	Fallback bool
}

// Environment variables set on every backend launch.
const (
	EnvFlaskMode  = "FLASK_ENV"
	EnvUnbuffered = "PYTHONUNBUFFERED"
)

// Resolver computes the backend Command for a configuration.
type Resolver struct {
	GOOS    string
	Exists  func(path string) bool
	Environ func() []string
}

// DefaultResolver resolves against the running platform and filesystem.
func DefaultResolver() Resolver {
	return Resolver{GOOS: runtime.GOOS, Exists: fileExists, Environ: os.Environ}
}

// Resolve returns the interpreter, script, and environment for cfg.
// Explicit interpreter and script settings win over the derived paths.
func (r Resolver) Resolve(cfg *config.Config) (Command, error) {
	if cfg == nil {
		return Command{}, errors.New("supervisor: configuration required")
	}
	goos := r.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	exists := r.Exists
	if exists == nil {
		exists = fileExists
	}
	environ := r.Environ
	if environ == nil {
		environ = os.Environ
	}

	root := cfg.ResourceRoot()
	join := joinerFor(goos)

	script := strings.TrimSpace(cfg.Backend.Script)
	if script == "" {
		script = join(root, "python", "app.py")
	}

	cmd := Command{Script: script, Dir: root}
	if interpreter := strings.TrimSpace(cfg.Backend.Interpreter); interpreter != "" {
		cmd.Interpreter = interpreter
	} else {
		preferred := PreferredInterpreter(root, goos)
		if exists(preferred) {
			cmd.Interpreter = preferred
		} else {
			cmd.Interpreter = SystemInterpreter(goos)
			cmd.Fallback = true
		}
	}

	mode := "development"
	if cfg.Packaged() {
		mode = "production"
	}
	cmd.Env = mergeEnv(environ(), map[string]string{
		EnvFlaskMode:  mode,
		EnvUnbuffered: "1",
	})
	return cmd, nil
}

// PreferredInterpreter returns the project-local virtualenv interpreter path
// for the platform family.
func PreferredInterpreter(root, goos string) string {
	join := joinerFor(goos)
	if goos == "windows" {
		return join(root, "python", "venv", "Scripts", "python.exe")
	}
	return join(root, "python", "venv", "bin", "python3")
}

// SystemInterpreter returns the bare interpreter name looked up on PATH.
func SystemInterpreter(goos string) string {
	if goos == "windows" {
		return "python"
	}
	return "python3"
}

// joinerFor keeps Windows path shapes stable even when resolving on another OS.
func joinerFor(goos string) func(elem ...string) string {
	if goos == "windows" && runtime.GOOS != "windows" {
		return func(elem ...string) string {
			parts := make([]string, 0, len(elem))
			for _, e := range elem {
				if e = strings.TrimRight(e, `\/`); e != "" {
					parts = append(parts, e)
				}
			}
			return strings.Join(parts, `\`)
		}
	}
	return filepath.Join
}

func mergeEnv(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, replaced := overrides[key]; replaced {
			continue
		}
		out = append(out, kv)
	}
	for _, key := range []string{EnvFlaskMode, EnvUnbuffered} {
		if value, ok := overrides[key]; ok {
			out = append(out, key+"="+value)
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// markExecutable sets 0755 on the backend script.
func markExecutable(path string) error {
	return os.Chmod(path, 0o755)
}
