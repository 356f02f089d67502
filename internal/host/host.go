package host

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"time"

	"ytdesk/internal/config"
	"ytdesk/internal/logging"
)

// ErrNotReady is returned by Activate before Ready has run.
var ErrNotReady = errors.New("host is not ready")

// Backend is the part of the supervisor the host drives.
type Backend interface {
	Start(ctx context.Context) error
	Terminate()
	Stop(ctx context.Context) error
}

// Option customizes a Host.
type Option func(*Host)

// WithGOOS overrides the platform used for the last-window-closed policy.
func WithGOOS(goos string) Option {
	return func(h *Host) {
		if goos != "" {
			h.goos = goos
		}
	}
}

// WithWindowDelay overrides the delay between starting the backend and
// opening the first window.
func WithWindowDelay(delay time.Duration) Option {
	return func(h *Host) {
		if delay >= 0 {
			h.delay = delay
		}
	}
}

// WithContent overrides the content source handed to windows.
func WithContent(src ContentSource) Option {
	return func(h *Host) {
		h.content = src
	}
}

// WithStopTimeout bounds how long Quit waits for the backend when the host
// quits on its own.
func WithStopTimeout(timeout time.Duration) Option {
	return func(h *Host) {
		if timeout > 0 {
			h.stopTimeout = timeout
		}
	}
}

// Host coordinates the window and the backend supervisor.
type Host struct {
	backend     Backend
	newWindow   WindowFactory
	logger      *slog.Logger
	content     ContentSource
	goos        string
	delay       time.Duration
	stopTimeout time.Duration

	mu       sync.Mutex
	ctx      context.Context
	ready    bool
	quitting bool
	window   Window
	timer    *time.Timer

	quitOnce sync.Once
	quitErr  error
	done     chan struct{}
}

// New builds a host around the backend supervisor and a window factory.
func New(cfg *config.Config, backend Backend, newWindow WindowFactory, logger *slog.Logger, opts ...Option) *Host {
	h := &Host{
		backend:     backend,
		newWindow:   newWindow,
		logger:      logging.NewComponentLogger(logger, "host"),
		content:     ResolveContent(cfg),
		goos:        runtime.GOOS,
		delay:       time.Second,
		stopTimeout: 15 * time.Second,
		done:        make(chan struct{}),
	}
	if cfg != nil {
		h.delay = time.Duration(cfg.Window.StartupDelayMillis) * time.Millisecond
		h.stopTimeout = time.Duration(cfg.Backend.StopGraceSeconds)*time.Second + 5*time.Second
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Done is closed once the host has quit.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Content returns the source windows load.
func (h *Host) Content() ContentSource {
	return h.content
}

// WindowOpen reports whether a window is currently showing.
func (h *Host) WindowOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.window != nil
}

// Ready starts the backend and schedules the first window. The window opens
// after the delay whether or not the backend is listening yet.
func (h *Host) Ready(ctx context.Context) error {
	h.mu.Lock()
	if h.ready || h.quitting {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	if err := h.backend.Start(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = true
	h.ctx = ctx
	h.logger.Info("backend started; window scheduled",
		logging.Duration("window_delay", h.delay),
		logging.String("content", h.content.String()),
	)
	h.timer = time.AfterFunc(h.delay, h.openScheduled)
	return nil
}

func (h *Host) openScheduled() {
	h.mu.Lock()
	h.timer = nil
	h.mu.Unlock()
	if err := h.openWindow(); err != nil {
		logging.ErrorWithContext(h.logger, "window could not be opened", "window_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check window.ui and the content source"),
		)
		h.windowGone()
	}
}

// Activate opens a new window when none is showing. The backend is left as
// it is; a backend terminated by an earlier window close stays down.
func (h *Host) Activate() error {
	h.mu.Lock()
	if !h.ready {
		h.mu.Unlock()
		return ErrNotReady
	}
	if h.quitting || h.window != nil || h.timer != nil {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()
	h.logger.Info("activate with no window; reopening")
	return h.openWindow()
}

func (h *Host) openWindow() error {
	h.mu.Lock()
	if h.quitting || h.window != nil {
		h.mu.Unlock()
		return nil
	}
	w, err := h.newWindow()
	if err != nil {
		h.mu.Unlock()
		return err
	}
	h.window = w
	ctx := h.ctx
	h.mu.Unlock()

	if err := w.Open(ctx, h.content); err != nil {
		h.mu.Lock()
		if h.window == w {
			h.window = nil
		}
		h.mu.Unlock()
		return err
	}
	h.logger.Info("window opened", logging.String("content", h.content.String()))
	go h.watch(w)
	return nil
}

func (h *Host) watch(w Window) {
	select {
	case <-w.Closed():
		h.onWindowClosed(w)
	case <-h.done:
	}
}

func (h *Host) onWindowClosed(w Window) {
	h.mu.Lock()
	if h.window != w {
		h.mu.Unlock()
		return
	}
	h.window = nil
	h.mu.Unlock()

	h.logger.Info("window closed; terminating backend")
	h.backend.Terminate()
	h.windowGone()
}

// windowGone applies the last-window-closed policy.
func (h *Host) windowGone() {
	if h.goos == "darwin" {
		h.logger.Info("no windows open; host stays active")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.stopTimeout)
	defer cancel()
	if err := h.Quit(ctx); err != nil {
		h.logger.Warn("backend stop incomplete", logging.Error(err))
	}
}

// Quit closes any open window, stops the backend and marks the host done.
// Later calls return the first result.
func (h *Host) Quit(ctx context.Context) error {
	h.quitOnce.Do(func() {
		h.mu.Lock()
		h.quitting = true
		if h.timer != nil {
			h.timer.Stop()
			h.timer = nil
		}
		w := h.window
		h.window = nil
		h.mu.Unlock()

		if w != nil {
			if err := w.Close(); err != nil {
				h.logger.Debug("window close failed", logging.Error(err))
			}
		}
		h.quitErr = h.backend.Stop(ctx)
		h.logger.Info("host quit")
		close(h.done)
	})
	return h.quitErr
}

// Run drives the host until it quits: ctx cancellation is the quit event and
// SIGUSR1 (Unix) is the activate event.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Ready(ctx); err != nil {
		return err
	}
	activate := make(chan os.Signal, 1)
	notifyActivate(activate)
	defer signal.Stop(activate)

	for {
		select {
		case <-h.done:
			return nil
		case <-activate:
			if err := h.Activate(); err != nil {
				logging.WarnWithContext(h.logger, "activate failed", "window_activate_failed", logging.Error(err))
			}
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), h.stopTimeout)
			err := h.Quit(stopCtx)
			cancel()
			return err
		}
	}
}
