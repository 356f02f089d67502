package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ytdesk/internal/logging"
	"ytdesk/internal/supervisor"
)

func newBackendCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Run the supervised backend without a window",
		Long:  "Run the backend under the supervisor until SIGINT/SIGTERM. Crashed backends are restarted per backend.restart_policy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sess, err := ctx.startSession(cmd.ErrOrStderr(), "")
			if err != nil {
				return err
			}
			defer sess.Close()

			sup, err := supervisor.New(cfg, sess.logger)
			if err != nil {
				return fmt.Errorf("create supervisor: %w", err)
			}
			if err := sup.Start(signalCtx); err != nil {
				return fmt.Errorf("start backend: %w", err)
			}
			status := sup.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "Backend started (pid %d) at %s\n", status.PID, cfg.Backend.BaseURL)

			<-signalCtx.Done()
			sess.logger.Info("backend shutting down")
			if err := sup.Stop(cmd.Context()); err != nil {
				sess.logger.Warn("backend stop incomplete", logging.Error(err))
				return err
			}
			return nil
		},
	}
}
