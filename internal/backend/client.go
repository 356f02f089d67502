package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"ytdesk/internal/config"
	"ytdesk/internal/logging"
	"ytdesk/internal/services"
)

const (
	component = "backend"

	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"

	infoPath     = "/api/info"
	downloadPath = "/api/download"

	maxJSONBody = 4 << 20
)

// Client talks to the backend HTTP API.
type Client struct {
	base            *url.URL
	http            *http.Client
	logger          *slog.Logger
	requestTimeout  time.Duration
	downloadTimeout time.Duration
	probeURL        string
	generation      func() string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, component)
		}
	}
}

// WithTimeouts bounds metadata and download requests. Zero disables a bound.
func WithTimeouts(request, download time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = request
		c.downloadTimeout = download
	}
}

// WithGeneration tags request logs with the id of the backend process
// generation current when each request is sent.
func WithGeneration(current func() string) Option {
	return func(c *Client) {
		c.generation = current
	}
}

// WithProbeURL sets the sample URL used by Probe.
func WithProbeURL(raw string) Option {
	return func(c *Client) {
		c.probeURL = strings.TrimSpace(raw)
	}
}

// New constructs a client for the backend at baseURL. A bare host:port is
// treated as http.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "new client", "base url is empty", nil)
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new client", "parse base url", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	client := &Client{
		base:   base,
		http:   &http.Client{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewFromConfig builds a client using the backend section of cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new client", "config is nil", nil)
	}
	base := []Option{
		WithLogger(logger),
		WithTimeouts(
			time.Duration(cfg.Backend.RequestTimeoutSeconds)*time.Second,
			time.Duration(cfg.Backend.DownloadTimeoutSeconds)*time.Second,
		),
		WithProbeURL(cfg.Backend.ProbeURL),
	}
	return New(cfg.Backend.BaseURL, append(base, opts...)...)
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Info fetches metadata and quality options for rawURL. An empty URL is
// rejected without contacting the backend.
func (c *Client) Info(ctx context.Context, rawURL string) (VideoInfo, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return VideoInfo{}, services.Invalid(component, "info", "a video URL is required")
	}
	ctx, cancel := withTimeout(ctx, c.requestTimeout)
	defer cancel()
	ctx = services.WithOperation(ctx, "info")

	resp, err := c.post(ctx, infoPath, infoRequest{URL: rawURL})
	if err != nil {
		return VideoInfo{}, err
	}
	defer resp.Body.Close()

	body, closeBody, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return VideoInfo{}, services.Wrap(services.ErrTransport, component, "info", "decode response", err)
	}
	defer closeBody()

	var payload infoResponse
	decodeErr := json.NewDecoder(io.LimitReader(body, maxJSONBody)).Decode(&payload)
	if resp.StatusCode >= http.StatusBadRequest {
		return VideoInfo{}, applicationError(resp.StatusCode, payload.Error)
	}
	if decodeErr != nil {
		return VideoInfo{}, services.Wrap(services.ErrTransport, component, "info", "parse response", decodeErr)
	}
	if !payload.Success {
		return VideoInfo{}, applicationError(resp.StatusCode, payload.Error)
	}
	return toVideoInfo(payload), nil
}

// Download fetches the media bytes for req. When the response carries a
// Content-Length, progress receives one event per transferred chunk.
func (c *Client) Download(ctx context.Context, req DownloadRequest, progress ProgressFunc) (Payload, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.FormatID = strings.TrimSpace(req.FormatID)
	if req.URL == "" {
		return Payload{}, services.Invalid(component, "download", "a video URL is required")
	}
	if !req.AudioOnly && req.FormatID == "" {
		return Payload{}, services.Invalid(component, "download", "select a quality first")
	}
	ctx, cancel := withTimeout(ctx, c.downloadTimeout)
	defer cancel()
	ctx = services.WithOperation(ctx, "download")

	body := downloadBody{URL: req.URL}
	if req.AudioOnly {
		body.IsAudio = true
	} else {
		body.FormatID = req.FormatID
	}

	resp, err := c.post(ctx, downloadPath, body)
	if err != nil {
		return Payload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Payload{}, readApplicationError(resp)
	}

	counted := newProgressReader(resp.Body, resp.ContentLength, progress)
	reader, closeBody, err := decodeBody(resp.Header.Get("Content-Encoding"), counted)
	if err != nil {
		return Payload{}, services.Wrap(services.ErrTransport, component, "download", "decode response", err)
	}
	defer closeBody()

	data, err := io.ReadAll(reader)
	if err != nil {
		return Payload{}, services.Wrap(services.ErrTransport, component, "download", "read payload", err)
	}
	payload := Payload{
		Filename:    FilenameFromDisposition(resp.Header.Get("Content-Disposition"), req.AudioOnly),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}
	logging.WithContext(ctx, c.logger).Info("download received",
		logging.String(logging.FieldEventType, "download_received"),
		logging.String("filename", payload.Filename),
		logging.Int64("bytes", int64(len(data))),
	)
	return payload, nil
}

// Probe issues one metadata request against the configured sample URL and
// reports whether the backend answered. Any response, including an error
// reported by the backend, counts as connected; only network-class failures
// mean disconnected. The request error is returned for diagnostics.
func (c *Client) Probe(ctx context.Context) (bool, error) {
	target := c.probeURL
	if target == "" {
		target = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	}
	_, err := c.Info(services.WithOperation(ctx, "probe"), target)
	return !IsUnavailable(err), err
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	op, _ := services.OperationFromContext(ctx)
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, component, op, "encode request", err)
	}

	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = services.WithRequestID(ctx, requestID)
	}
	if c.generation != nil {
		ctx = services.WithGeneration(ctx, c.generation())
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, component, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set(RequestIDHeader, requestID)

	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("backend request failed",
			logging.String(logging.FieldEventType, "request_failed"),
			logging.String("path", path),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
		)
		return nil, services.Wrap(services.ErrTransport, component, op, "could not reach the download service", err)
	}
	logger.Debug("backend responded",
		logging.String(logging.FieldEventType, "response"),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)
	return resp, nil
}

func readApplicationError(resp *http.Response) error {
	var detail errorBody
	if reader, closeBody, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body); err == nil {
		_ = json.NewDecoder(io.LimitReader(reader, maxJSONBody)).Decode(&detail)
		_ = closeBody()
	}
	return applicationError(resp.StatusCode, detail.Error)
}

func applicationError(status int, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = fmt.Sprintf("backend returned %d %s", status, http.StatusText(status))
	}
	return &services.ApplicationError{StatusCode: status, Message: message}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// IsUnavailable reports whether err means the backend could not be reached:
// connection failures and timeouts, as opposed to errors the backend itself
// returned.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil {
			err = urlErr.Err
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) && errors.Is(err, services.ErrTransport)
}
