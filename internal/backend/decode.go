package backend

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

const acceptEncoding = "br, gzip"

// decodeBody wraps body according to the Content-Encoding header. The
// returned close function releases decoder state and never closes body.
func decodeBody(encoding string, body io.Reader) (io.Reader, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, noop, nil
	case "br":
		return brotli.NewReader(body), noop, nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, noop, fmt.Errorf("gzip reader: %w", err)
		}
		return gz, gz.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
