package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"ytdesk/internal/logging"
)

// Opener hands a URL to the desktop environment.
type Opener func(ctx context.Context, target string) error

// SystemOpener returns the opener for goos: open on darwin, rundll32 on
// Windows and xdg-open elsewhere. The launched process is not waited on.
func SystemOpener(goos string) Opener {
	return func(ctx context.Context, target string) error {
		var cmd *exec.Cmd
		switch goos {
		case "darwin":
			cmd = exec.CommandContext(ctx, "open", target)
		case "windows":
			cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", target)
		default:
			cmd = exec.CommandContext(ctx, "xdg-open", target)
		}
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("open %s: %w", target, err)
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}

// BrowserOption customizes a BrowserWindow.
type BrowserOption func(*BrowserWindow)

// WithOpener replaces the system browser launcher.
func WithOpener(open Opener) BrowserOption {
	return func(w *BrowserWindow) {
		if open != nil {
			w.open = open
		}
	}
}

// BrowserWindow shows the content source in the system browser. Static
// content is served from a loopback listener that also forwards /api/ to the
// backend so the page can use relative API paths.
//
// The browser gives no signal when its tab is closed, so a BrowserWindow
// closes only when Close is called.
type BrowserWindow struct {
	bind    string
	backend *url.URL
	open    Opener
	logger  *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	address  string
	closed   chan struct{}
	closeOne sync.Once
}

// NewBrowserWindow builds a browser window. bind is the listen address for
// static content; backendURL is the base the /api/ proxy forwards to.
func NewBrowserWindow(bind, backendURL string, logger *slog.Logger, opts ...BrowserOption) (*BrowserWindow, error) {
	target, err := url.Parse(backendURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", backendURL)
	}
	w := &BrowserWindow{
		bind:    bind,
		backend: target,
		open:    SystemOpener(runtime.GOOS),
		logger:  logging.NewComponentLogger(logger, "browser"),
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Open starts the static server when needed and launches the browser.
func (w *BrowserWindow) Open(ctx context.Context, src ContentSource) error {
	if ctx == nil {
		ctx = context.Background()
	}
	target := src.URL
	if src.Static() {
		address, err := w.serve(src.File)
		if err != nil {
			return err
		}
		target = "http://" + address + "/"
	}
	if target == "" {
		return errors.New("content source is empty")
	}
	w.logger.Info("opening browser", logging.String("url", target))
	return w.open(ctx, target)
}

// Address returns the static server's listen address, or "" when content is
// not served locally.
func (w *BrowserWindow) Address() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address
}

func (w *BrowserWindow) serve(entry string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.server != nil {
		return w.address, nil
	}
	listener, err := net.Listen("tcp", w.bind)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", w.bind, err)
	}
	w.server = &http.Server{
		Handler:           w.handler(entry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	w.address = listener.Addr().String()
	server := w.server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Warn("content server stopped", logging.Error(err))
		}
	}()
	w.logger.Info("serving bundled content", logging.String("address", w.address), logging.String("entry", entry))
	return w.address, nil
}

func (w *BrowserWindow) handler(entry string) http.Handler {
	root := filepath.Dir(entry)
	index := filepath.Base(entry)
	files := http.FileServer(http.Dir(root))

	proxy := httputil.NewSingleHostReverseProxy(w.backend)
	proxy.ErrorHandler = func(rw http.ResponseWriter, r *http.Request, err error) {
		w.logger.Debug("api proxy failed", logging.String("path", r.URL.Path), logging.Error(err))
		http.Error(rw, "backend unavailable", http.StatusBadGateway)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", proxy)
	mux.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || strings.EqualFold(r.URL.Path, "/"+index) {
			http.ServeFile(rw, r, entry)
			return
		}
		files.ServeHTTP(rw, r)
	})
	return mux
}

// Closed is closed once Close has run.
func (w *BrowserWindow) Closed() <-chan struct{} {
	return w.closed
}

// Close shuts the content server down.
func (w *BrowserWindow) Close() error {
	var err error
	w.closeOne.Do(func() {
		w.mu.Lock()
		server := w.server
		w.server = nil
		w.mu.Unlock()
		if server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = server.Shutdown(ctx)
			cancel()
		}
		close(w.closed)
	})
	return err
}
