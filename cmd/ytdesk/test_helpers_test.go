package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ytdesk/internal/config"
	"ytdesk/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	backend    *httptest.Server
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	backend := newFakeBackend(t)
	opts = append([]testsupport.ConfigOption{
		testsupport.WithStubbedBinaries(),
		testsupport.WithBackendURL(backend.URL),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)

	configPath := filepath.Join(base, "ytdesk.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, backend: backend, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}

// newFakeBackend mimics the backend's /api/info and /api/download endpoints.
// URLs containing "bad" are rejected the way the backend rejects them.
func newFakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(fakeBackendMux())
	t.Cleanup(server.Close)
	return server
}

func fakeBackendMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(req.URL, "bad") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"error":"Unsupported URL: ` + req.URL + `"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"title":"Test Video","duration":212,` +
			`"thumbnail":"https://img.example/t.jpg","formats":[` +
			`{"id":"22","height":720,"size_mb":12.5},{"id":"18","height":360,"size_mb":4}]}`))
	})
	mux.HandleFunc("/api/download", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL      string `json:"url"`
			FormatID string `json:"format_id"`
			IsAudio  bool   `json:"isAudio"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		name, body := "Test Video.mp4", "video-"+req.FormatID
		if req.IsAudio {
			name, body = "Test Video.mp3", "audio-bytes"
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write([]byte(body))
	})
	return mux
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
