package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ytdesk/internal/backend"
	"ytdesk/internal/config"
	"ytdesk/internal/history"
	"ytdesk/internal/host"
	"ytdesk/internal/logging"
	"ytdesk/internal/savefile"
	"ytdesk/internal/shell"
	"ytdesk/internal/supervisor"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var ui string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the backend and open the window",
		Long: "Start the supervised backend, then open the window after the configured delay.\n" +
			"Closing the window stops the backend; on macOS the host keeps running until it\n" +
			"receives SIGINT/SIGTERM and SIGUSR1 reopens the window.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd.Context(), ctx, ui, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&ui, "ui", "", "Window front-end: terminal or browser (defaults to window.ui)")
	return cmd
}

func runHost(cmdCtx context.Context, ctx *commandContext, ui string, in io.Reader, out, errOut io.Writer) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ui = strings.ToLower(strings.TrimSpace(ui))
	if ui == "" {
		ui = cfg.Window.UI
	}
	if ui != config.WindowUITerminal && ui != config.WindowUIBrowser {
		return fmt.Errorf("unsupported window ui %q (want %s or %s)", ui, config.WindowUITerminal, config.WindowUIBrowser)
	}

	consoleLevel := ""
	if ui == config.WindowUITerminal {
		consoleLevel = "error"
	}
	sess, err := ctx.startSession(errOut, consoleLevel)
	if err != nil {
		return err
	}
	defer sess.Close()
	logger := sess.logger

	sup, err := supervisor.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create supervisor: %w", err)
	}
	client, err := backend.NewFromConfig(cfg, logger, backend.WithGeneration(func() string {
		return sup.Status().Generation
	}))
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}
	store, err := ctx.openHistory()
	if err != nil {
		logging.WarnWithContext(logger, "download history unavailable", "history_open_failed",
			logging.String(logging.FieldImpact, "downloads are not recorded this session"),
			logging.Error(err),
		)
	}
	if store != nil {
		defer store.Close()
	}

	factory, err := newWindowFactory(cfg, ui, windowDeps{
		client: client,
		saver:  savefile.NewFromConfig(cfg, logger),
		store:  store,
		in:     in,
		out:    out,
		logger: logger,
		hub:    sess.hub,
	})
	if err != nil {
		return err
	}

	h := host.New(cfg, sup, factory, logger)
	logger.Info("ytdesk host starting",
		logging.String("ui", ui),
		logging.String("mode", cfg.App.Mode),
		logging.String("backend_url", cfg.Backend.BaseURL),
		logging.String("content", h.Content().String()),
	)
	return h.Run(signalCtx)
}

type windowDeps struct {
	client *backend.Client
	saver  *savefile.Saver
	store  *history.Store
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
	hub    *logging.StreamHub
}

func newWindowFactory(cfg *config.Config, ui string, deps windowDeps) (host.WindowFactory, error) {
	switch ui {
	case config.WindowUITerminal:
		inline := false
		if f, ok := deps.out.(*os.File); ok {
			inline = isTerminal(f)
		}
		return func() (host.Window, error) {
			opts := []shell.Option{shell.WithLogger(deps.logger)}
			if deps.store != nil {
				opts = append(opts, shell.WithRecorder(deps.store))
			}
			sh := shell.New(deps.client, deps.saver, opts...)
			return newTerminalWindow(sh, deps.in, deps.out, inline, deps.logger, deps.hub), nil
		}, nil
	case config.WindowUIBrowser:
		return func() (host.Window, error) {
			return host.NewBrowserWindow(cfg.Window.ContentBind, cfg.Backend.BaseURL, deps.logger)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported window ui %q (want %s or %s)", ui, config.WindowUITerminal, config.WindowUIBrowser)
	}
}
