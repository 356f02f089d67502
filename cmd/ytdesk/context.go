package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ytdesk/internal/backend"
	"ytdesk/internal/config"
	"ytdesk/internal/history"
	"ytdesk/internal/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) isVerbose() bool {
	return c.verbose != nil && *c.verbose
}

// cliLogger is the logger for one-shot commands: console only, quiet unless
// --verbose is set.
func (c *commandContext) cliLogger(w io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	level := "warn"
	if c.isVerbose() {
		level = cfg.Logging.Level
	}
	if w == nil {
		w = os.Stderr
	}
	return logging.NewConsole(w, level), nil
}

func (c *commandContext) backendClient(logger *slog.Logger) (*backend.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := backend.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	return client, nil
}

// openHistory returns nil without error when history is disabled.
func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg)
	if errors.Is(err, history.ErrDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open download history: %w", err)
	}
	return store, nil
}

// session is the logging setup for long-running commands: console plus a
// session log file, an in-memory hub, and the on-disk event archive read by
// `ytdesk logs`.
type session struct {
	id      string
	logger  *slog.Logger
	hub     *logging.StreamHub
	archive *logging.EventArchive
}

func (c *commandContext) startSession(stderr io.Writer, consoleLevel string) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if c.isVerbose() {
		consoleLevel = ""
	}
	s := &session{
		id:  uuid.NewString(),
		hub: logging.NewStreamHub(4096),
	}
	archive, archiveErr := logging.NewEventArchive(logging.ArchivePath(cfg.Logging.Dir))
	if archiveErr != nil {
		fmt.Fprintf(stderr, "warn: unable to initialize log archive: %v\n", archiveErr)
	} else if archive != nil {
		s.archive = archive
		s.hub.AddSink(archive)
	}
	s.logger, err = logging.NewFromConfig(cfg, logging.ConfigOptions{
		ConsoleLevel: consoleLevel,
		SessionID:    s.id,
		Hub:          s.hub,
	})
	if err != nil {
		_ = s.archive.Close()
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.Logging.Dir != "" {
		logging.CleanupOldLogs(s.logger, cfg.Logging.RetentionDays,
			logging.RetentionTarget{Dir: cfg.Logging.Dir, Pattern: "ytdesk-*.log"},
		)
	}
	return s, nil
}

func (s *session) Close() {
	if s == nil {
		return
	}
	_ = s.archive.Close()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
