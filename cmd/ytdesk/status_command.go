package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytdesk/internal/preflight"
	"ytdesk/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Run preflight checks and show backend status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.cliLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			var prober preflight.Prober
			if !offline {
				client, err := ctx.backendClient(logger)
				if err != nil {
					return err
				}
				prober = client
			}

			results := preflight.RunAll(cmd.Context(), cfg, prober)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Configuration", colorize)
			lines = append(lines,
				renderStatusLine("Mode", statusInfo, cfg.App.Mode, colorize),
				renderStatusLine("Backend URL", statusInfo, cfg.Backend.BaseURL, colorize),
				renderStatusLine("Window UI", statusInfo, cfg.Window.UI, colorize),
				renderStatusLine("Downloads", statusInfo, cfg.Downloads.Dir, colorize),
				renderStatusLine("History", statusInfo, textutil.Ternary(cfg.Downloads.HistoryEnabled, "enabled", "disabled"), colorize),
				"",
			)
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			for _, r := range results {
				lines = append(lines, renderStatusLine(r.Name, resultKind(r), r.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if preflight.Failed(results) {
				return errors.New("one or more required checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the backend reachability probe")
	return cmd
}
