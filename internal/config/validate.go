package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateApp(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateWindow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateApp() error {
	switch c.App.Mode {
	case ModeDevelopment, ModePackaged:
		return nil
	default:
		return fmt.Errorf("app.mode: unsupported value %q (want %q or %q)", c.App.Mode, ModeDevelopment, ModePackaged)
	}
}

func (c *Config) validateBackend() error {
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url: unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("backend.base_url: host is required")
	}
	switch c.Backend.RestartPolicy {
	case RestartPolicyFixed, RestartPolicyBackoff:
	default:
		return fmt.Errorf("backend.restart_policy: unsupported value %q", c.Backend.RestartPolicy)
	}
	if c.Backend.MaxRestarts < 0 {
		return errors.New("backend.max_restarts must be >= 0 (0 means unlimited)")
	}
	if c.Backend.DownloadTimeoutSeconds < 0 {
		return errors.New("backend.download_timeout_seconds must be >= 0 (0 means unlimited)")
	}
	if c.Backend.RestartPolicy == RestartPolicyBackoff && c.Backend.MaxRestartDelayMillis < c.Backend.RestartDelayMillis {
		return errors.New("backend.max_restart_delay_ms must be >= backend.restart_delay_ms")
	}
	return nil
}

func (c *Config) validateWindow() error {
	switch c.Window.UI {
	case WindowUITerminal, WindowUIBrowser:
	default:
		return fmt.Errorf("window.ui: unsupported value %q", c.Window.UI)
	}
	if _, err := url.Parse(c.Window.DevURL); err != nil {
		return fmt.Errorf("window.dev_url: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0 (0 disables pruning)")
	}
	return nil
}
