package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Mode values accepted by App.Mode.
const (
	ModeDevelopment = "development"
	ModePackaged    = "packaged"
)

// App contains host-wide settings: run mode and where bundled resources live.
type App struct {
	Mode         string `toml:"mode"`
	ProjectDir   string `toml:"project_dir"`
	ResourcesDir string `toml:"resources_dir"`
	StateDir     string `toml:"state_dir"`
	EnvFile      string `toml:"env_file"`
}

// Backend contains configuration for the supervised backend process.
type Backend struct {
	Interpreter            string `toml:"interpreter"`
	Script                 string `toml:"script"`
	BaseURL                string `toml:"base_url"`
	RestartPolicy          string `toml:"restart_policy"`
	RestartDelayMillis     int    `toml:"restart_delay_ms"`
	MaxRestartDelayMillis  int    `toml:"max_restart_delay_ms"`
	MaxRestarts            int    `toml:"max_restarts"`
	StopGraceSeconds       int    `toml:"stop_grace_seconds"`
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
	ProbeURL               string `toml:"probe_url"`
}

// Window contains configuration for the window host.
type Window struct {
	UI                 string `toml:"ui"`
	DevURL             string `toml:"dev_url"`
	StaticFile         string `toml:"static_file"`
	StartupDelayMillis int    `toml:"startup_delay_ms"`
	ContentBind        string `toml:"content_bind"`
	Width              int    `toml:"width"`
	Height             int    `toml:"height"`
}

// Downloads contains configuration for saving payloads and the local history.
type Downloads struct {
	Dir            string `toml:"dir"`
	HistoryEnabled bool   `toml:"history_enabled"`
	HistoryPath    string `toml:"history_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	Dir           string `toml:"dir"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ytdesk.
//
// Configuration sections by subsystem:
//   - App: run mode (development/packaged) and resource roots
//   - Backend: interpreter/script resolution, restart policy, HTTP endpoint
//   - Window: content source and window startup delay
//   - Downloads: save directory and download history
//   - Logging: log format, level, and directory
type Config struct {
	App       App       `toml:"app"`
	Backend   Backend   `toml:"backend"`
	Window    Window    `toml:"window"`
	Downloads Downloads `toml:"downloads"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ytdesk/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Environment overrides (including any
// values from the configured .env file) are applied after the file is decoded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadEnvFile(cfg.App.EnvFile); err != nil {
		return nil, "", false, err
	}
	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ytdesk.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadEnvFile reads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("app.env_file: %w", err)
	}
	if _, err := os.Stat(expanded); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(expanded); err != nil {
		return fmt.Errorf("load env file %q: %w", expanded, err)
	}
	return nil
}

// EnsureDirectories creates the directories the host writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.App.StateDir, c.Logging.Dir, c.Downloads.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Downloads.HistoryEnabled && strings.TrimSpace(c.Downloads.HistoryPath) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Downloads.HistoryPath), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// Packaged reports whether the host runs from a bundled installation.
func (c *Config) Packaged() bool {
	return c.App.Mode == ModePackaged
}

// ResourceRoot returns the directory that holds python/ and dist/ for the
// current mode.
func (c *Config) ResourceRoot() string {
	if c.Packaged() {
		return c.App.ResourcesDir
	}
	return c.App.ProjectDir
}

// LockPath returns the supervisor single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.App.StateDir, "backend.lock")
}

// PIDPath returns the file recording the current backend process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.App.StateDir, "backend.pid")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "ytdesk")
	}
	if runtime.GOOS == "windows" {
		if base, err := os.UserCacheDir(); err == nil {
			return filepath.Join(base, "ytdesk")
		}
	}
	return "~/.local/state/ytdesk"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
