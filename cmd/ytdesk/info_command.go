package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytdesk/internal/services"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info <url>",
		Short: "Show title, duration and available qualities for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.cliLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			client, err := ctx.backendClient(logger)
			if err != nil {
				return err
			}
			info, err := client.Info(cmd.Context(), args[0])
			if err != nil {
				return cliError(err)
			}
			if asJSON {
				return writeJSON(cmd, info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title:     %s\n", info.Title)
			fmt.Fprintf(out, "Duration:  %s\n", info.Duration)
			if info.Thumbnail != "" {
				fmt.Fprintf(out, "Thumbnail: %s\n", info.Thumbnail)
			}
			if len(info.Qualities) == 0 {
				fmt.Fprintln(out, "No video qualities reported.")
				return nil
			}
			rows := make([][]string, 0, len(info.Qualities))
			for _, q := range info.Qualities {
				def := ""
				if q.ID == info.DefaultQuality {
					def = "default"
				}
				rows = append(rows, []string{q.ID, q.Label, def})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Quality", ""}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// cliError turns a classified error into the message a user should see.
// Backend messages are shown verbatim; transport failures get a hint.
func cliError(err error) error {
	if err == nil {
		return nil
	}
	switch services.Classify(err) {
	case services.KindTransport:
		return fmt.Errorf("%s (is the backend running? try `ytdesk status`)", services.UserMessage(err))
	case services.KindApplication, services.KindValidation:
		return errors.New(strings.TrimSpace(services.UserMessage(err)))
	default:
		return err
	}
}
