package host_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"ytdesk/internal/host"
	"ytdesk/internal/logging"
)

type recordingOpener struct {
	mu      sync.Mutex
	targets []string
}

func (o *recordingOpener) open(_ context.Context, target string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.targets = append(o.targets, target)
	return nil
}

func (o *recordingOpener) last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.targets) == 0 {
		return ""
	}
	return o.targets[len(o.targets)-1]
}

func fetch(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestBrowserWindowOpensDevURLDirectly(t *testing.T) {
	opener := &recordingOpener{}
	w, err := host.NewBrowserWindow("127.0.0.1:0", "http://127.0.0.1:5000", logging.NewNop(), host.WithOpener(opener.open))
	require.NoError(t, err)

	require.NoError(t, w.Open(context.Background(), host.ContentSource{URL: "http://localhost:3001"}))
	require.Equal(t, "http://localhost:3001", opener.last())
	require.Empty(t, w.Address())
	require.NoError(t, w.Close())
}

func TestBrowserWindowServesBundleAndProxiesAPI(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rw.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(rw, `{"path":"`+r.URL.Path+`","body":`+string(body)+`}`)
	}))
	defer backend.Close()

	dist := filepath.Join(t.TempDir(), "dist")
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>ytdesk</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	opener := &recordingOpener{}
	w, err := host.NewBrowserWindow("127.0.0.1:0", backend.URL, logging.NewNop(), host.WithOpener(opener.open))
	require.NoError(t, err)
	require.NoError(t, w.Open(context.Background(), host.ContentSource{File: filepath.Join(dist, "index.html")}))

	base := "http://" + w.Address()
	require.Equal(t, base+"/", opener.last())

	status, body := fetch(t, http.MethodGet, base+"/", "")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "ytdesk")

	status, body = fetch(t, http.MethodGet, base+"/assets/app.js", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "console.log(1)", body)

	status, body = fetch(t, http.MethodPost, base+"/api/info", `{"url":"u"}`)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"path":"/api/info","body":{"url":"u"}}`, body)

	require.NoError(t, w.Close())
	select {
	case <-w.Closed():
	default:
		t.Fatal("Closed should be closed after Close")
	}
	_, err = http.Get(base + "/")
	require.Error(t, err)
}

func TestBrowserWindowProxyReportsUnavailableBackend(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	backendURL := backend.URL
	backend.Close()

	dist := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("ok"), 0o644))

	w, err := host.NewBrowserWindow("127.0.0.1:0", backendURL, logging.NewNop(), host.WithOpener((&recordingOpener{}).open))
	require.NoError(t, err)
	require.NoError(t, w.Open(context.Background(), host.ContentSource{File: filepath.Join(dist, "index.html")}))
	defer w.Close()

	status, _ := fetch(t, http.MethodPost, "http://"+w.Address()+"/api/info", `{}`)
	require.Equal(t, http.StatusBadGateway, status)
}

func TestNewBrowserWindowRejectsBadBackendURL(t *testing.T) {
	_, err := host.NewBrowserWindow("127.0.0.1:0", "not a url", logging.NewNop())
	require.Error(t, err)
}
