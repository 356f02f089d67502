package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables that override file values.
const (
	EnvMode         = "YTDESK_MODE"
	EnvBackendURL   = "YTDESK_BACKEND_URL"
	EnvInterpreter  = "YTDESK_PYTHON"
	EnvDownloadsDir = "YTDESK_DOWNLOADS_DIR"
	EnvLogLevel     = "YTDESK_LOG_LEVEL"
	EnvUI           = "YTDESK_UI"
)

func (c *Config) applyEnv() {
	if value, ok := lookupEnv(EnvMode); ok {
		c.App.Mode = value
	}
	if value, ok := lookupEnv(EnvBackendURL); ok {
		c.Backend.BaseURL = value
	}
	if value, ok := lookupEnv(EnvInterpreter); ok {
		c.Backend.Interpreter = value
	}
	if value, ok := lookupEnv(EnvDownloadsDir); ok {
		c.Downloads.Dir = value
	}
	if value, ok := lookupEnv(EnvLogLevel); ok {
		c.Logging.Level = value
	}
	if value, ok := lookupEnv(EnvUI); ok {
		c.Window.UI = value
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalize() error {
	if err := c.normalizeApp(); err != nil {
		return err
	}
	if err := c.normalizeBackend(); err != nil {
		return err
	}
	if err := c.normalizeWindow(); err != nil {
		return err
	}
	if err := c.normalizeDownloads(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeApp() error {
	c.App.Mode = strings.ToLower(strings.TrimSpace(c.App.Mode))
	if c.App.Mode == "" {
		c.App.Mode = defaultMode
	}
	if c.App.Mode == "dev" {
		c.App.Mode = ModeDevelopment
	}

	var err error
	if strings.TrimSpace(c.App.ProjectDir) == "" {
		c.App.ProjectDir = defaultProjectDir
	}
	if c.App.ProjectDir, err = expandPath(c.App.ProjectDir); err != nil {
		return fmt.Errorf("app.project_dir: %w", err)
	}
	if strings.TrimSpace(c.App.ResourcesDir) == "" {
		c.App.ResourcesDir = defaultResourcesDir()
	}
	if c.App.ResourcesDir, err = expandPath(c.App.ResourcesDir); err != nil {
		return fmt.Errorf("app.resources_dir: %w", err)
	}
	if strings.TrimSpace(c.App.StateDir) == "" {
		c.App.StateDir = defaultStateDir()
	}
	if c.App.StateDir, err = expandPath(c.App.StateDir); err != nil {
		return fmt.Errorf("app.state_dir: %w", err)
	}
	return nil
}

// defaultResourcesDir mirrors the bundled layout where python/ and dist/
// sit in a resources directory next to the executable.
func defaultResourcesDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "resources"
	}
	return filepath.Join(filepath.Dir(exe), "resources")
}

func (c *Config) normalizeBackend() error {
	c.Backend.Interpreter = strings.TrimSpace(c.Backend.Interpreter)
	c.Backend.Script = strings.TrimSpace(c.Backend.Script)
	if c.Backend.Script != "" {
		var err error
		if c.Backend.Script, err = expandPath(c.Backend.Script); err != nil {
			return fmt.Errorf("backend.script: %w", err)
		}
	}
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendBaseURL
	}
	if !strings.Contains(c.Backend.BaseURL, "://") {
		c.Backend.BaseURL = "http://" + c.Backend.BaseURL
	}
	c.Backend.RestartPolicy = strings.ToLower(strings.TrimSpace(c.Backend.RestartPolicy))
	if c.Backend.RestartPolicy == "" {
		c.Backend.RestartPolicy = defaultRestartPolicy
	}
	if c.Backend.RestartDelayMillis <= 0 {
		c.Backend.RestartDelayMillis = defaultRestartDelayMillis
	}
	if c.Backend.MaxRestartDelayMillis <= 0 {
		c.Backend.MaxRestartDelayMillis = defaultMaxRestartDelayMillis
	}
	if c.Backend.StopGraceSeconds <= 0 {
		c.Backend.StopGraceSeconds = defaultStopGraceSeconds
	}
	if c.Backend.RequestTimeoutSeconds <= 0 {
		c.Backend.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	c.Backend.ProbeURL = strings.TrimSpace(c.Backend.ProbeURL)
	if c.Backend.ProbeURL == "" {
		c.Backend.ProbeURL = defaultProbeURL
	}
	return nil
}

func (c *Config) normalizeWindow() error {
	c.Window.UI = strings.ToLower(strings.TrimSpace(c.Window.UI))
	if c.Window.UI == "" {
		c.Window.UI = defaultWindowUI
	}
	c.Window.DevURL = strings.TrimSpace(c.Window.DevURL)
	if c.Window.DevURL == "" {
		c.Window.DevURL = defaultDevURL
	}
	c.Window.StaticFile = strings.TrimSpace(c.Window.StaticFile)
	if c.Window.StaticFile == "" {
		c.Window.StaticFile = defaultStaticFile
	}
	if c.Window.StartupDelayMillis < 0 {
		c.Window.StartupDelayMillis = 0
	}
	c.Window.ContentBind = strings.TrimSpace(c.Window.ContentBind)
	if c.Window.ContentBind == "" {
		c.Window.ContentBind = defaultContentBind
	}
	if c.Window.Width <= 0 {
		c.Window.Width = defaultWindowWidth
	}
	if c.Window.Height <= 0 {
		c.Window.Height = defaultWindowHeight
	}
	return nil
}

func (c *Config) normalizeDownloads() error {
	var err error
	if strings.TrimSpace(c.Downloads.Dir) == "" {
		c.Downloads.Dir = defaultDownloadsDir
	}
	if c.Downloads.Dir, err = expandPath(c.Downloads.Dir); err != nil {
		return fmt.Errorf("downloads.dir: %w", err)
	}
	if strings.TrimSpace(c.Downloads.HistoryPath) == "" {
		c.Downloads.HistoryPath = defaultHistoryPath
	}
	if c.Downloads.HistoryPath, err = expandPath(c.Downloads.HistoryPath); err != nil {
		return fmt.Errorf("downloads.history_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		return nil
	}
	var err error
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
