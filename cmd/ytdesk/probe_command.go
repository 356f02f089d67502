package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check whether the backend answers requests",
		Long: "Send one metadata lookup for the configured probe URL. Any answer, including\n" +
			"an error from the backend, counts as connected; only network failures do not.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.cliLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			client, err := ctx.backendClient(logger)
			if err != nil {
				return err
			}
			connected, probeErr := client.Probe(cmd.Context())
			if !connected {
				return fmt.Errorf("backend at %s is not reachable: %v", cfg.Backend.BaseURL, probeErr)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s\n", cfg.Backend.BaseURL)
			return nil
		},
	}
}
