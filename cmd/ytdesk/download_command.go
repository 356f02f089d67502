package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"ytdesk/internal/config"
	"ytdesk/internal/logging"
	"ytdesk/internal/savefile"
	"ytdesk/internal/shell"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var quality string
	var audio bool
	var dir string

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a video or its audio into the downloads directory",
		Long: "Look up the video, then download the chosen rendition. Without --quality the\n" +
			"first listed quality is used. --audio downloads audio only.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if audio && strings.TrimSpace(quality) != "" {
				return errors.New("--quality and --audio are mutually exclusive")
			}
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

			saver := savefile.NewFromConfig(cfg, logger)
			if strings.TrimSpace(dir) != "" {
				target, err := config.ExpandPath(dir)
				if err != nil {
					return fmt.Errorf("resolve --dir: %w", err)
				}
				saver = savefile.New(afero.NewOsFs(), target, logger)
			}

			opts := []shell.Option{shell.WithLogger(logger)}
			store, err := ctx.openHistory()
			if err != nil {
				logging.WarnWithContext(logger, "download history unavailable", "history_open_failed", logging.Error(err))
			}
			if store != nil {
				defer store.Close()
				opts = append(opts, shell.WithRecorder(store))
			}
			sh := shell.New(client, saver, opts...)

			out := cmd.OutOrStdout()
			inline := false
			if f, ok := out.(*os.File); ok {
				inline = isTerminal(f)
			}
			return runDownload(cmd.Context(), sh, downloadOptions{
				url:     args[0],
				quality: quality,
				audio:   audio,
				inline:  inline,
			}, out)
		},
	}
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "Format id to download (see `ytdesk info`)")
	cmd.Flags().BoolVarP(&audio, "audio", "a", false, "Download audio only")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Save into this directory instead of downloads.dir")
	return cmd
}

type downloadOptions struct {
	url     string
	quality string
	audio   bool
	inline  bool
}

func runDownload(ctx context.Context, sh *shell.Shell, opts downloadOptions, out io.Writer) error {
	sh.SetURL(opts.url)
	if opts.audio {
		sh.SetDownloadType(shell.TypeAudio)
	}

	st, err := sh.Lookup(ctx)
	if err != nil {
		return cliError(err)
	}
	fmt.Fprintf(out, "%s (%s)\n", st.Info.Title, st.Info.Duration)

	if !opts.audio {
		if q := strings.TrimSpace(opts.quality); q != "" {
			if err := sh.SelectQuality(q); err != nil {
				return cliError(err)
			}
		}
		st = sh.Snapshot()
		if !st.CanDownload() {
			return errors.New("backend reported no video qualities; retry with --audio")
		}
		fmt.Fprintf(out, "Quality: %s\n", st.QualityLabel())
	}

	progress := newProgressReporter(out, opts.inline, "Downloading ")
	progress.Start("Downloading")
	midLine := false
	unsubscribe := sh.Subscribe(func(s shell.State) {
		if !s.Downloading || !s.ProgressKnown {
			return
		}
		if progress.Update(s.Progress) {
			midLine = true
		}
	})
	st, err = sh.Download(ctx)
	unsubscribe()
	progress.Stop()
	if midLine {
		fmt.Fprintln(out)
	}
	if err != nil {
		return cliError(err)
	}

	size := ""
	if info, statErr := os.Stat(st.LastSavedPath); statErr == nil {
		size = " (" + humanize.Bytes(uint64(info.Size())) + ")"
	}
	fmt.Fprintf(out, "Saved to %s%s\n", st.LastSavedPath, size)
	return nil
}
