package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"ytdesk/internal/host"
	"ytdesk/internal/logging"
	"ytdesk/internal/shell"
)

const terminalHelp = `Commands:
  <url>             look up a video
  :video / :audio   choose the download type
  :quality <id>     choose a quality from the list
  :download, :d     download the selected rendition
  :cancel           abandon the running lookup or download
  :status           show the current selection
  :logs [n|backend] show recent log lines (backend: process output only)
  :help             show this help
  :q                close the window`

// terminalWindow renders the shell in the terminal. Lines read from in drive
// the shell; EOF or :q closes the window.
type terminalWindow struct {
	shell  *shell.Shell
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
	hub    *logging.StreamHub

	mu        sync.Mutex
	prev      shell.State
	progress  *progressReporter
	midLine   bool
	ctx       context.Context
	cancel    context.CancelFunc
	unsub     func()
	closed    chan struct{}
	closeOnce sync.Once
}

func newTerminalWindow(sh *shell.Shell, in io.Reader, out io.Writer, inline bool, logger *slog.Logger, hub *logging.StreamHub) *terminalWindow {
	return &terminalWindow{
		shell:    sh,
		in:       in,
		out:      out,
		logger:   logging.NewComponentLogger(logger, "terminal"),
		hub:      hub,
		progress: newProgressReporter(out, inline, "  "),
		closed:   make(chan struct{}),
	}
}

func (w *terminalWindow) Open(ctx context.Context, src host.ContentSource) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w.mu.Lock()
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.prev = w.shell.Snapshot()
	fmt.Fprintf(w.out, "ytdesk (content: %s)\n", src)
	fmt.Fprintln(w.out, "Paste a video URL and press Enter. Type :help for commands.")
	w.mu.Unlock()

	unsub := w.shell.Subscribe(w.render)
	w.mu.Lock()
	w.unsub = unsub
	w.mu.Unlock()
	go w.shell.CheckConnection(w.ctx)
	go w.readLoop()
	return nil
}

func (w *terminalWindow) Closed() <-chan struct{} {
	return w.closed
}

func (w *terminalWindow) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		cancel := w.cancel
		unsub := w.unsub
		w.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		if unsub != nil {
			unsub()
		}
		close(w.closed)
	})
	return nil
}

func (w *terminalWindow) isClosed() bool {
	select {
	case <-w.closed:
		return true
	default:
		return false
	}
}

func (w *terminalWindow) readLoop() {
	defer w.Close()
	scanner := bufio.NewScanner(w.in)
	for scanner.Scan() {
		if w.isClosed() {
			return
		}
		// A blank line is a submission with an empty URL; the lookup rejects it.
		line := strings.TrimSpace(scanner.Text())
		if !w.handle(line) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		w.logger.Debug("terminal input ended", logging.Error(err))
	}
}

// handle runs one input line and reports whether the window stays open.
func (w *terminalWindow) handle(line string) bool {
	if !strings.HasPrefix(line, ":") {
		w.shell.SetURL(line)
		go w.lookup()
		return true
	}
	command, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(command) {
	case "q", "quit", "exit":
		return false
	case "help", "h":
		w.println(terminalHelp)
	case "video", "audio":
		t, _ := shell.ParseDownloadType(command)
		w.shell.SetDownloadType(t)
	case "type":
		t, ok := shell.ParseDownloadType(arg)
		if !ok {
			w.println("Unknown download type " + arg + "; use video or audio.")
			break
		}
		w.shell.SetDownloadType(t)
	case "quality":
		if err := w.shell.SelectQuality(arg); err != nil {
			w.println(err.Error())
		}
	case "download", "d":
		st := w.shell.Snapshot()
		if !st.CanDownload() {
			w.println(downloadBlockedReason(st))
			break
		}
		go w.download()
	case "cancel":
		w.shell.Cancel()
		w.println("Cancelled.")
	case "status":
		w.println(describeSelection(w.shell.Snapshot()))
	case "logs":
		w.println(w.recentLogs(arg))
	default:
		w.println("Unknown command :" + command + ". Type :help for commands.")
	}
	return true
}

func (w *terminalWindow) lookup() {
	_, err := w.shell.Lookup(w.ctx)
	if err != nil && !errors.Is(err, shell.ErrSuperseded) {
		w.logger.Debug("lookup ended with error", logging.Error(err))
	}
}

func (w *terminalWindow) download() {
	_, err := w.shell.Download(w.ctx)
	if errors.Is(err, shell.ErrBusy) {
		w.println("A download is already in progress.")
	}
}

func (w *terminalWindow) println(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.endLineLocked()
	fmt.Fprintln(w.out, text)
}

func (w *terminalWindow) endLineLocked() {
	if w.midLine {
		fmt.Fprintln(w.out)
		w.midLine = false
	}
}

// render prints what changed between the previous state and st.
func (w *terminalWindow) render(st shell.State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev := w.prev
	w.prev = st

	if st.Connectivity != prev.Connectivity {
		switch st.Connectivity {
		case shell.ConnectivityConnected:
			w.lineLocked("Connected to the download service.")
		case shell.ConnectivityDisconnected:
			w.lineLocked("Download service not reachable. It may still be starting.")
		}
	}

	if st.Phase != prev.Phase {
		switch st.Phase {
		case shell.PhaseLoading:
			w.lineLocked("Fetching video info...")
		case shell.PhaseLoaded:
			w.lineLocked(renderVideoInfo(st))
		}
	}

	if st.DownloadType != prev.DownloadType {
		w.lineLocked("Download type: " + st.DownloadType.Label())
	}
	if st.Phase == prev.Phase && st.Phase == shell.PhaseLoaded && st.SelectedQuality != prev.SelectedQuality {
		w.lineLocked("Quality: " + st.QualityLabel())
	}

	if st.Downloading && !prev.Downloading {
		w.lineLocked("Downloading " + strings.ToLower(st.DownloadType.Label()) + "...")
		w.progress.Start(st.DownloadType.Label())
	}
	if st.Downloading && st.ProgressKnown && (st.Progress != prev.Progress || !prev.ProgressKnown) {
		if w.progress.Update(st.Progress) {
			w.midLine = true
		}
	}
	if !st.Downloading && prev.Downloading {
		w.progress.Stop()
	}
	if !st.Downloading && prev.Downloading && st.LastSavedPath != "" && st.LastSavedPath != prev.LastSavedPath {
		w.lineLocked("Saved to " + st.LastSavedPath)
	}

	if st.Error != "" && (st.Error != prev.Error || (st.Phase == shell.PhaseError && prev.Phase != shell.PhaseError)) {
		w.lineLocked("Error: " + st.Error)
	}
}

func (w *terminalWindow) lineLocked(text string) {
	w.endLineLocked()
	fmt.Fprintln(w.out, text)
}

const defaultLogLines = 10

// recentLogs renders the newest buffered log events. arg is a line count or
// "backend" for the backend's own output.
func (w *terminalWindow) recentLogs(arg string) string {
	if w.hub == nil {
		return "No log buffer in this session."
	}
	limit := defaultLogLines
	var keep func(logging.LogEvent) bool
	switch {
	case arg == "":
	case strings.EqualFold(arg, "backend"):
		keep = func(evt logging.LogEvent) bool { return evt.Stream != "" }
	default:
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return "Usage: :logs [n|backend]"
		}
		limit = n
	}

	var events []logging.LogEvent
	if keep == nil {
		events, _ = w.hub.Tail(limit)
	} else {
		events = w.hub.Filter(limit, keep)
	}
	if len(events) == 0 {
		return "No log lines yet."
	}
	lines := make([]string, 0, len(events))
	for _, evt := range events {
		lines = append(lines, formatLogEvent(evt))
	}
	return strings.Join(lines, "\n")
}

func formatLogEvent(evt logging.LogEvent) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp.Local().Format("15:04:05"))
	b.WriteString(" ")
	b.WriteString(evt.Level)
	if evt.Component != "" {
		b.WriteString(" [" + evt.Component + "]")
	}
	if evt.Stream != "" {
		b.WriteString(" " + evt.Stream + ":")
	}
	b.WriteString(" " + evt.Message)
	return b.String()
}

func renderVideoInfo(st shell.State) string {
	if st.Info == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Title:    %s\n", st.Info.Title)
	fmt.Fprintf(&b, "Duration: %s\n", st.Info.Duration)
	if st.Info.Thumbnail != "" {
		fmt.Fprintf(&b, "Thumb:    %s\n", st.Info.Thumbnail)
	}
	if len(st.Info.Qualities) == 0 {
		b.WriteString("No video qualities reported; audio only is available.")
		return b.String()
	}
	rows := make([][]string, 0, len(st.Info.Qualities))
	for _, q := range st.Info.Qualities {
		marker := ""
		if q.ID == st.SelectedQuality {
			marker = "*"
		}
		rows = append(rows, []string{marker, q.ID, q.Label})
	}
	b.WriteString(renderTable([]string{"", "ID", "Quality"}, rows, nil))
	return b.String()
}

func describeSelection(st shell.State) string {
	if st.Info == nil {
		if st.URL == "" {
			return "No video selected."
		}
		return "URL: " + st.URL + " (" + string(st.Phase) + ")"
	}
	parts := []string{st.Info.Title, st.DownloadType.Label()}
	if st.DownloadType == shell.TypeVideo {
		parts = append(parts, st.QualityLabel())
	}
	if st.Downloading {
		parts = append(parts, "downloading")
	}
	return strings.Join(parts, " | ")
}

func downloadBlockedReason(st shell.State) string {
	switch {
	case st.Downloading:
		return "A download is already in progress."
	case st.Phase == shell.PhaseLoading:
		return "Still fetching video info."
	case st.Phase != shell.PhaseLoaded:
		return "Look up a video URL first."
	default:
		return "Choose a quality with :quality <id> or switch to :audio."
	}
}
