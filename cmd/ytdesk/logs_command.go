package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ytdesk/internal/logging"
)

const logsPollInterval = 500 * time.Millisecond

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var follow bool
	var component string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show events from the current or last host session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logging.ArchivePath(cfg.Logging.Dir)
			if path == "" {
				return errors.New("logging.dir is not set; no event archive to read")
			}
			keep := func(evt logging.LogEvent) bool {
				return component == "" || strings.EqualFold(evt.Component, component)
			}

			events, highest, err := logging.ReadArchive(path, 0, 0)
			if err != nil {
				return err
			}
			events = filterEvents(events, keep)
			if limit > 0 && len(events) > limit {
				events = events[len(events)-limit:]
			}
			out := cmd.OutOrStdout()
			if err := printEvents(cmd, out, events, asJSON); err != nil {
				return err
			}
			if !follow {
				return nil
			}

			ticker := time.NewTicker(logsPollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
				}
				next, top, err := logging.ReadArchive(path, highest, 0)
				if err != nil {
					return err
				}
				if top < highest {
					// A new session truncated the archive.
					next, top, err = logging.ReadArchive(path, 0, 0)
					if err != nil {
						return err
					}
				}
				highest = top
				if err := printEvents(cmd, out, filterEvents(next, keep), asJSON); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().IntVarP(&limit, "lines", "n", 50, "Number of recent events to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new events")
	cmd.Flags().StringVar(&component, "component", "", "Only show events from this component (e.g. supervisor, backend)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print events as JSON lines")
	return cmd
}

func filterEvents(events []logging.LogEvent, keep func(logging.LogEvent) bool) []logging.LogEvent {
	out := events[:0]
	for _, evt := range events {
		if keep(evt) {
			out = append(out, evt)
		}
	}
	return out
}

func printEvents(cmd *cobra.Command, out io.Writer, events []logging.LogEvent, asJSON bool) error {
	for _, evt := range events {
		if asJSON {
			if err := writeJSON(cmd, evt); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(out, formatEvent(evt))
	}
	return nil
}

func formatEvent(evt logging.LogEvent) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp.Local().Format("15:04:05"))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%-5s", strings.ToUpper(evt.Level)))
	if evt.Component != "" {
		b.WriteString(" [" + evt.Component)
		if evt.Stream != "" {
			b.WriteString("/" + evt.Stream)
		}
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(evt.Message)
	for _, key := range slices.Sorted(maps.Keys(evt.Fields)) {
		if key == logging.FieldSessionID {
			continue
		}
		b.WriteString("\n    " + key + ": " + evt.Fields[key])
	}
	return b.String()
}
