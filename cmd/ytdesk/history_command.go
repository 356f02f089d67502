package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ytdesk/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local download history",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	store, err := ctx.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("download history is disabled (downloads.history_enabled = false)")
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent downloads, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				entries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No downloads recorded.")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, historyRow(e))
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "When", "Kind", "Quality", "Status", "Size", "Title / Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func historyRow(e history.Entry) []string {
	quality := e.QualityLabel
	if quality == "" {
		quality = e.FormatID
	}
	size := ""
	if e.Bytes > 0 {
		size = humanize.Bytes(uint64(e.Bytes))
	}
	detail := e.Title
	if detail == "" {
		detail = e.URL
	}
	if e.Status == history.StatusFailed && e.ErrorMessage != "" {
		detail = e.ErrorMessage
	}
	return []string{
		strconv.FormatInt(e.ID, 10),
		humanize.Time(e.CreatedAt),
		string(e.Kind),
		quality,
		string(e.Status),
		size,
		detail,
	}
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all download history entries",
		Long: "Delete all download history entries.\n" +
			"With --reset the database is rebuilt from scratch, which also recovers a file\n" +
			"written by a ytdesk version with a different history layout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reset {
				return resetHistory(cmd, ctx)
			}
			return withHistory(ctx, func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d history entries\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop and recreate the history database")
	return cmd
}

func resetHistory(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Downloads.HistoryEnabled {
		return errors.New("download history is disabled (downloads.history_enabled = false)")
	}
	store, err := history.ResetPath(cmd.Context(), cfg.Downloads.HistoryPath)
	if err != nil {
		return fmt.Errorf("reset download history: %w", err)
	}
	defer store.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "History database rebuilt at %s\n", store.Path())
	return nil
}
