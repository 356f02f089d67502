package host

import "context"

// Window is a single top-level window. Open shows it and returns once it is
// visible. Closed is closed when the window goes away, whether the user closed
// it or Close was called.
type Window interface {
	Open(ctx context.Context, src ContentSource) error
	Closed() <-chan struct{}
	Close() error
}

// WindowFactory builds a fresh window. The host calls it once at startup and
// again for every activate event that finds no window.
type WindowFactory func() (Window, error)
