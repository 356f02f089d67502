package shell_test

import (
	"context"
	"errors"
	"net"
	"net/url"
	"sync"
	"testing"

	"ytdesk/internal/backend"
	"ytdesk/internal/history"
	"ytdesk/internal/services"
	"ytdesk/internal/shell"
)

type fakeBackend struct {
	info     func(ctx context.Context, rawURL string) (backend.VideoInfo, error)
	download func(ctx context.Context, req backend.DownloadRequest, progress backend.ProgressFunc) (backend.Payload, error)
	probe    func(ctx context.Context) (bool, error)
}

func (f *fakeBackend) Info(ctx context.Context, rawURL string) (backend.VideoInfo, error) {
	return f.info(ctx, rawURL)
}

func (f *fakeBackend) Download(ctx context.Context, req backend.DownloadRequest, progress backend.ProgressFunc) (backend.Payload, error) {
	return f.download(ctx, req, progress)
}

func (f *fakeBackend) Probe(ctx context.Context) (bool, error) {
	return f.probe(ctx)
}

type fakeSaver struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (f *fakeSaver) Save(name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	return "/downloads/" + name, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (f *fakeRecorder) Record(_ context.Context, entry history.Entry) (history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return entry, nil
}

func sampleInfo(title string) backend.VideoInfo {
	return backend.VideoInfo{
		Title:    title,
		Duration: "10:30",
		Qualities: []backend.QualityOption{
			{ID: "137", Label: "1080p (50 MB)"},
			{ID: "22", Label: "720p (25 MB)"},
		},
		DefaultQuality: "137",
	}
}

func transportErr() error {
	return services.Wrap(services.ErrTransport, "backend", "info", "could not reach the download service",
		&url.Error{Op: "Post", URL: "http://127.0.0.1:5000/api/info", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}})
}

func TestLookupLoadsMetadataAndDefaultQuality(t *testing.T) {
	fb := &fakeBackend{info: func(_ context.Context, rawURL string) (backend.VideoInfo, error) {
		if rawURL != "https://youtu.be/x" {
			t.Errorf("unexpected url %q", rawURL)
		}
		return sampleInfo("Sample"), nil
	}}
	s := shell.New(fb, &fakeSaver{})
	s.SetURL("https://youtu.be/x")

	state, err := s.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if state.Phase != shell.PhaseLoaded || state.Info == nil || state.Info.Title != "Sample" {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.SelectedQuality != "137" || state.QualityLabel() != "1080p (50 MB)" {
		t.Fatalf("expected first quality selected, got %q", state.SelectedQuality)
	}
	if state.Connectivity != shell.ConnectivityUnknown {
		t.Fatalf("lookup must not set connectivity, got %q", state.Connectivity)
	}
	if !state.CanDownload() {
		t.Fatal("expected download to be allowed")
	}
}

func TestLookupErrorsByKind(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		wantKind    services.Kind
		wantMessage string
	}{
		{
			name:        "validation",
			err:         services.Invalid("backend", "info", "a video URL is required"),
			wantKind:    services.KindValidation,
			wantMessage: "a video URL is required",
		},
		{
			name:        "application",
			err:         &services.ApplicationError{StatusCode: 400, Message: "Invalid YouTube URL. Please enter a valid URL."},
			wantKind:    services.KindApplication,
			wantMessage: "Invalid YouTube URL. Please enter a valid URL.",
		},
		{
			name:        "transport",
			err:         transportErr(),
			wantKind:    services.KindTransport,
			wantMessage: "Could not reach the download service. It may still be starting; try again in a moment.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb := &fakeBackend{info: func(context.Context, string) (backend.VideoInfo, error) {
				return backend.VideoInfo{}, tc.err
			}}
			s := shell.New(fb, &fakeSaver{})
			state, err := s.Lookup(context.Background())
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected error to be returned, got %v", err)
			}
			if state.Phase != shell.PhaseError || state.ErrorKind != tc.wantKind {
				t.Fatalf("unexpected state %+v", state)
			}
			if tc.wantMessage != "" && state.Error != tc.wantMessage {
				t.Fatalf("expected message %q, got %q", tc.wantMessage, state.Error)
			}
			if state.Error == "" {
				t.Fatal("expected an error message")
			}
			if state.Connectivity != shell.ConnectivityUnknown {
				t.Fatalf("lookup errors must not set connectivity, got %q", state.Connectivity)
			}
			if state.CanDownload() {
				t.Fatal("download must not be allowed after a failed lookup")
			}
		})
	}
}

func TestLookupDiscardsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fb := &fakeBackend{info: func(_ context.Context, rawURL string) (backend.VideoInfo, error) {
		if rawURL == "slow" {
			close(started)
			<-release
			return sampleInfo("Slow"), nil
		}
		return sampleInfo("Fast"), nil
	}}
	s := shell.New(fb, &fakeSaver{})

	s.SetURL("slow")
	done := make(chan error, 1)
	go func() {
		_, err := s.Lookup(context.Background())
		done <- err
	}()
	<-started

	s.SetURL("fast")
	if _, err := s.Lookup(context.Background()); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	close(release)

	if err := <-done; !errors.Is(err, shell.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded for the slow response, got %v", err)
	}
	if got := s.Snapshot().Info.Title; got != "Fast" {
		t.Fatalf("stale response overwrote state: title %q", got)
	}
}

func TestDownloadSavesRecordsAndReportsProgress(t *testing.T) {
	var (
		gotReq       backend.DownloadRequest
		gotRequestID string
	)
	fb := &fakeBackend{
		info: func(context.Context, string) (backend.VideoInfo, error) { return sampleInfo("Sample"), nil },
		download: func(ctx context.Context, req backend.DownloadRequest, progress backend.ProgressFunc) (backend.Payload, error) {
			gotReq = req
			gotRequestID, _ = services.RequestIDFromContext(ctx)
			progress(backend.Progress{Loaded: 1, Total: 2, Percent: 50})
			return backend.Payload{Filename: "clip.mp4", Data: []byte("abcd")}, nil
		},
	}
	saver := &fakeSaver{}
	recorder := &fakeRecorder{}
	s := shell.New(fb, saver, shell.WithRecorder(recorder))

	var mu sync.Mutex
	var seen []int
	unsubscribe := s.Subscribe(func(st shell.State) {
		if st.Downloading && st.ProgressKnown {
			mu.Lock()
			seen = append(seen, st.Progress)
			mu.Unlock()
		}
	})
	defer unsubscribe()

	s.SetURL("https://youtu.be/x")
	if _, err := s.Lookup(context.Background()); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if err := s.SelectQuality("22"); err != nil {
		t.Fatalf("SelectQuality: %v", err)
	}
	state, err := s.Download(context.Background())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if gotReq.FormatID != "22" || gotReq.AudioOnly {
		t.Fatalf("unexpected request %+v", gotReq)
	}
	if state.Downloading || state.LastSavedPath != "/downloads/clip.mp4" || state.Progress != 100 {
		t.Fatalf("unexpected state %+v", state)
	}
	mu.Lock()
	if len(seen) != 1 || seen[0] != 50 {
		t.Fatalf("expected one 50%% progress update, got %v", seen)
	}
	mu.Unlock()

	if len(recorder.entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Status != history.StatusSaved || entry.QualityLabel != "720p (25 MB)" || entry.Title != "Sample" || entry.Bytes != 4 {
		t.Fatalf("unexpected history entry %+v", entry)
	}
	if entry.RequestID == "" || entry.RequestID != gotRequestID {
		t.Fatalf("history request id %q does not match the backend request %q", entry.RequestID, gotRequestID)
	}
}

func TestConnectivitySurvivesLaterRequestOutcomes(t *testing.T) {
	fb := &fakeBackend{
		probe: func(context.Context) (bool, error) { return true, nil },
		info: func(context.Context, string) (backend.VideoInfo, error) {
			return backend.VideoInfo{}, transportErr()
		},
		download: func(context.Context, backend.DownloadRequest, backend.ProgressFunc) (backend.Payload, error) {
			return backend.Payload{}, transportErr()
		},
	}
	s := shell.New(fb, &fakeSaver{})
	if got := s.CheckConnection(context.Background()); got != shell.ConnectivityConnected {
		t.Fatalf("expected connected, got %q", got)
	}

	s.SetURL("https://youtu.be/x")
	state, err := s.Lookup(context.Background())
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if state.Connectivity != shell.ConnectivityConnected {
		t.Fatalf("failed lookup changed connectivity to %q", state.Connectivity)
	}
	if state.Error != "Could not reach the download service. It may still be starting; try again in a moment." {
		t.Fatalf("unexpected message %q", state.Error)
	}

	s.SetDownloadType(shell.TypeAudio)
	state, _ = s.Download(context.Background())
	if state.Connectivity != shell.ConnectivityConnected {
		t.Fatalf("failed download changed connectivity to %q", state.Connectivity)
	}
}

func TestDownloadSavedThenSupersededIsStillRecorded(t *testing.T) {
	var s *shell.Shell
	saver := &cancellingSaver{}
	fb := &fakeBackend{
		download: func(context.Context, backend.DownloadRequest, backend.ProgressFunc) (backend.Payload, error) {
			return backend.Payload{Filename: "clip.mp3", Data: []byte("abc")}, nil
		},
	}
	recorder := &fakeRecorder{}
	s = shell.New(fb, saver, shell.WithRecorder(recorder))
	saver.cancel = s.Cancel
	s.SetURL("https://youtu.be/x")
	s.SetDownloadType(shell.TypeAudio)

	if _, err := s.Download(context.Background()); !errors.Is(err, shell.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if len(recorder.entries) != 1 {
		t.Fatalf("saved file must be recorded, got %d entries", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Status != history.StatusSaved || entry.Path != "/downloads/clip.mp3" || entry.Kind != history.KindAudio {
		t.Fatalf("unexpected history entry %+v", entry)
	}
}

// cancellingSaver saves and then supersedes the download before the shell
// publishes the result.
type cancellingSaver struct {
	cancel func()
}

func (c *cancellingSaver) Save(name string, _ []byte) (string, error) {
	c.cancel()
	return "/downloads/" + name, nil
}

func TestDownloadAudioOnlyDropsQuality(t *testing.T) {
	var gotReq backend.DownloadRequest
	fb := &fakeBackend{
		info: func(context.Context, string) (backend.VideoInfo, error) { return sampleInfo("Sample"), nil },
		download: func(_ context.Context, req backend.DownloadRequest, _ backend.ProgressFunc) (backend.Payload, error) {
			gotReq = req
			return backend.Payload{Filename: "audio.mp3", Data: []byte("ID3")}, nil
		},
	}
	recorder := &fakeRecorder{}
	s := shell.New(fb, &fakeSaver{}, shell.WithRecorder(recorder))
	s.SetURL("https://youtu.be/x")
	if _, err := s.Lookup(context.Background()); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	s.SetDownloadType(shell.TypeAudio)

	if _, err := s.Download(context.Background()); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !gotReq.AudioOnly || gotReq.FormatID != "" {
		t.Fatalf("unexpected request %+v", gotReq)
	}
	if recorder.entries[0].Kind != history.KindAudio {
		t.Fatalf("expected audio history entry, got %+v", recorder.entries[0])
	}
}

func TestDownloadFailureRecordsFailedEntry(t *testing.T) {
	fb := &fakeBackend{
		download: func(context.Context, backend.DownloadRequest, backend.ProgressFunc) (backend.Payload, error) {
			return backend.Payload{}, &services.ApplicationError{StatusCode: 400, Message: "Error during download: nope"}
		},
	}
	recorder := &fakeRecorder{}
	saver := &fakeSaver{}
	s := shell.New(fb, saver, shell.WithRecorder(recorder))
	s.SetURL("https://youtu.be/x")

	state, err := s.Download(context.Background())
	if !errors.Is(err, services.ErrApplication) {
		t.Fatalf("expected application error, got %v", err)
	}
	if state.Downloading || state.Error != "Error during download: nope" {
		t.Fatalf("unexpected state %+v", state)
	}
	if len(saver.names) != 0 {
		t.Fatal("nothing should be saved on failure")
	}
	if len(recorder.entries) != 1 || recorder.entries[0].Status != history.StatusFailed {
		t.Fatalf("expected failed history entry, got %+v", recorder.entries)
	}
}

func TestDownloadValidationIsNotRecorded(t *testing.T) {
	fb := &fakeBackend{
		download: func(context.Context, backend.DownloadRequest, backend.ProgressFunc) (backend.Payload, error) {
			return backend.Payload{}, services.Invalid("backend", "download", "select a quality first")
		},
	}
	recorder := &fakeRecorder{}
	s := shell.New(fb, &fakeSaver{}, shell.WithRecorder(recorder))
	s.SetURL("https://youtu.be/x")

	state, err := s.Download(context.Background())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if state.Error != "select a quality first" {
		t.Fatalf("unexpected message %q", state.Error)
	}
	if len(recorder.entries) != 0 {
		t.Fatalf("validation failures must not be recorded, got %+v", recorder.entries)
	}
}

func TestDownloadWhileBusyAndCancel(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fb := &fakeBackend{
		download: func(_ context.Context, _ backend.DownloadRequest, progress backend.ProgressFunc) (backend.Payload, error) {
			close(started)
			<-release
			progress(backend.Progress{Loaded: 1, Total: 1, Percent: 100})
			return backend.Payload{Filename: "late.mp4", Data: []byte("x")}, nil
		},
	}
	saver := &fakeSaver{}
	s := shell.New(fb, saver)
	s.SetURL("https://youtu.be/x")

	done := make(chan error, 1)
	go func() {
		_, err := s.Download(context.Background())
		done <- err
	}()
	<-started

	if _, err := s.Download(context.Background()); !errors.Is(err, shell.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	s.Cancel()
	close(release)
	if err := <-done; !errors.Is(err, shell.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded after cancel, got %v", err)
	}
	if len(saver.names) != 0 {
		t.Fatalf("cancelled download must not be saved, got %v", saver.names)
	}
	state := s.Snapshot()
	if state.Downloading || state.ProgressKnown {
		t.Fatalf("unexpected state after cancel %+v", state)
	}
}

func TestSelectQualityRejectsUnknown(t *testing.T) {
	fb := &fakeBackend{info: func(context.Context, string) (backend.VideoInfo, error) { return sampleInfo("S"), nil }}
	s := shell.New(fb, &fakeSaver{})
	if err := s.SelectQuality("137"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error before lookup, got %v", err)
	}
	if _, err := s.Lookup(context.Background()); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if err := s.SelectQuality("999"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown id, got %v", err)
	}
	if s.Snapshot().SelectedQuality != "137" {
		t.Fatal("selection must not change on rejection")
	}
}

func TestCheckConnection(t *testing.T) {
	connected := true
	fb := &fakeBackend{probe: func(context.Context) (bool, error) {
		if connected {
			return true, nil
		}
		return false, transportErr()
	}}
	s := shell.New(fb, &fakeSaver{})
	if got := s.CheckConnection(context.Background()); got != shell.ConnectivityConnected {
		t.Fatalf("expected connected, got %q", got)
	}
	connected = false
	if got := s.CheckConnection(context.Background()); got != shell.ConnectivityDisconnected {
		t.Fatalf("expected disconnected, got %q", got)
	}
	if s.Snapshot().Connectivity != shell.ConnectivityDisconnected {
		t.Fatal("snapshot should reflect probe result")
	}
}

func TestDownloadTypeLabelsAndParsing(t *testing.T) {
	if got := shell.TypeAudio.Label(); got != "Audio Only" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := shell.TypeVideo.Label(); got != "Video" {
		t.Fatalf("unexpected label %q", got)
	}
	for input, want := range map[string]shell.DownloadType{
		"VIDEO":      shell.TypeVideo,
		"Audio":      shell.TypeAudio,
		"audio-only": shell.TypeAudio,
	} {
		got, ok := shell.ParseDownloadType(input)
		if !ok || got != want {
			t.Fatalf("ParseDownloadType(%q) = %q, %v", input, got, ok)
		}
	}
	if _, ok := shell.ParseDownloadType("gif"); ok {
		t.Fatal("expected unknown type to be rejected")
	}
}
