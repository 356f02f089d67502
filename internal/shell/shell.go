package shell

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ytdesk/internal/backend"
	"ytdesk/internal/history"
	"ytdesk/internal/logging"
	"ytdesk/internal/services"
)

const component = "shell"

// ErrSuperseded is returned when a response arrives after a newer request of
// the same kind was issued. The response is dropped.
var ErrSuperseded = errors.New("request superseded by a newer one")

// ErrBusy is returned when a download is requested while one is running.
var ErrBusy = errors.New("a download is already in progress")

const transportMessage = "Could not reach the download service. It may still be starting; try again in a moment."

// Backend is the subset of the backend client the shell drives.
type Backend interface {
	Info(ctx context.Context, rawURL string) (backend.VideoInfo, error)
	Download(ctx context.Context, req backend.DownloadRequest, progress backend.ProgressFunc) (backend.Payload, error)
	Probe(ctx context.Context) (bool, error)
}

// Saver persists a downloaded payload and returns where it landed.
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// Recorder stores download history. It may be nil.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (history.Entry, error)
}

// Shell is the view-state machine.
type Shell struct {
	backend  Backend
	saver    Saver
	recorder Recorder
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	infoSeq     uint64
	downloadSeq uint64
	listeners   map[int]func(State)
	nextID      int
}

// Option customizes a Shell.
type Option func(*Shell)

// WithRecorder enables history recording.
func WithRecorder(r Recorder) Option {
	return func(s *Shell) {
		s.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shell) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, component)
		}
	}
}

// New returns a Shell in the idle state.
func New(client Backend, saver Saver, opts ...Option) *Shell {
	s := &Shell{
		backend: client,
		saver:   saver,
		logger:  logging.NewNop(),
		state: State{
			Phase:        PhaseIdle,
			DownloadType: TypeVideo,
			Connectivity: ConnectivityUnknown,
		},
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Shell) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive every state change. The returned function
// removes the subscription. fn must not call back into the Shell.
func (s *Shell) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// update applies mutate under the lock and notifies listeners afterwards.
func (s *Shell) update(mutate func(*State)) State {
	s.mu.Lock()
	mutate(&s.state)
	snapshot := s.state.clone()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(snapshot)
	}
	return snapshot
}

// SetURL records the URL typed by the user.
func (s *Shell) SetURL(raw string) {
	s.update(func(st *State) { st.URL = raw })
}

// SetDownloadType switches between video and audio-only.
func (s *Shell) SetDownloadType(t DownloadType) {
	s.update(func(st *State) { st.DownloadType = t })
}

// SelectQuality picks a quality by id. Unknown ids are rejected.
func (s *Shell) SelectQuality(id string) error {
	var err error
	s.update(func(st *State) {
		if st.Info == nil {
			err = services.Invalid(component, "select quality", "no video loaded")
			return
		}
		for _, q := range st.Info.Qualities {
			if q.ID == id {
				st.SelectedQuality = id
				return
			}
		}
		err = services.Invalid(component, "select quality", "unknown quality "+id)
	})
	return err
}

// Lookup fetches metadata for the current URL.
func (s *Shell) Lookup(ctx context.Context) (State, error) {
	var (
		seq uint64
		url string
	)
	s.update(func(st *State) {
		s.infoSeq++
		seq = s.infoSeq
		url = st.URL
		st.Phase = PhaseLoading
		st.Error = ""
		st.ErrorKind = services.KindNone
	})

	info, err := s.backend.Info(ctx, url)

	var stale bool
	snapshot := s.update(func(st *State) {
		if seq != s.infoSeq {
			stale = true
			return
		}
		if err != nil {
			st.Phase = PhaseError
			st.Info = nil
			st.SelectedQuality = ""
			s.applyError(st, err)
			return
		}
		st.Phase = PhaseLoaded
		st.Info = &info
		st.SelectedQuality = info.DefaultQuality
	})
	if stale {
		s.logger.Debug("discarding stale metadata response",
			logging.String(logging.FieldEventType, "stale_response"),
			logging.Uint64("sequence", seq),
		)
		return snapshot, ErrSuperseded
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "metadata lookup failed", "lookup_failed",
			logging.String(logging.FieldErrorHint, "check the URL or the backend output"),
			logging.String("kind", string(services.Classify(err))),
			logging.Error(err),
		)
	}
	return snapshot, err
}

// Download fetches the selected rendition, saves it, and records history.
func (s *Shell) Download(ctx context.Context) (State, error) {
	var (
		seq  uint64
		req  backend.DownloadRequest
		meta history.Entry
		busy bool
	)
	s.update(func(st *State) {
		if st.Downloading {
			busy = true
			return
		}
		s.downloadSeq++
		seq = s.downloadSeq
		req = backend.DownloadRequest{
			URL:       st.URL,
			FormatID:  st.SelectedQuality,
			AudioOnly: st.DownloadType == TypeAudio,
		}
		meta = history.Entry{URL: strings.TrimSpace(st.URL), Kind: history.KindVideo}
		if req.AudioOnly {
			meta.Kind = history.KindAudio
			req.FormatID = ""
		} else {
			meta.FormatID = st.SelectedQuality
			meta.QualityLabel = st.QualityLabel()
		}
		if st.Info != nil {
			meta.Title = st.Info.Title
		}
		st.Downloading = true
		st.Progress = 0
		st.ProgressKnown = false
		st.Error = ""
		st.ErrorKind = services.KindNone
	})
	if busy {
		return s.Snapshot(), ErrBusy
	}
	meta.RequestID = uuid.NewString()
	ctx = services.WithRequestID(ctx, meta.RequestID)

	payload, err := s.backend.Download(ctx, req, func(p backend.Progress) {
		s.update(func(st *State) {
			if seq != s.downloadSeq {
				return
			}
			st.Progress = p.Percent
			st.ProgressKnown = true
		})
	})

	var path string
	if err == nil && s.current(seq) {
		path, err = s.saver.Save(payload.Filename, payload.Data)
	}

	var stale bool
	snapshot := s.update(func(st *State) {
		if seq != s.downloadSeq {
			stale = true
			return
		}
		st.Downloading = false
		if err != nil {
			s.applyError(st, err)
			return
		}
		st.Progress = 100
		st.LastSavedPath = path
	})

	meta.Filename = payload.Filename
	meta.Path = path
	meta.Bytes = int64(len(payload.Data))
	meta.Status = history.StatusSaved
	if err != nil {
		meta.Status = history.StatusFailed
		meta.ErrorMessage = services.UserMessage(err)
		logging.WarnWithContext(s.logger, "download failed", "download_failed",
			logging.String(logging.FieldErrorHint, "check the selected quality or the backend output"),
			logging.String("kind", string(services.Classify(err))),
			logging.Error(err),
		)
	}
	// A file that reached disk is always recorded, even if a newer request
	// superseded this one after the save.
	if path != "" || (!stale && services.Classify(err) != services.KindValidation) {
		s.record(ctx, meta)
	}
	if stale {
		return snapshot, ErrSuperseded
	}
	return snapshot, err
}

// Cancel abandons the running download and any pending lookup. Their
// responses are discarded when they arrive.
func (s *Shell) Cancel() {
	s.update(func(st *State) {
		s.infoSeq++
		s.downloadSeq++
		st.Downloading = false
		st.ProgressKnown = false
		if st.Phase == PhaseLoading {
			st.Phase = PhaseIdle
		}
	})
}

// CheckConnection probes the backend and records the result.
func (s *Shell) CheckConnection(ctx context.Context) Connectivity {
	connected, err := s.backend.Probe(ctx)
	result := ConnectivityDisconnected
	if connected {
		result = ConnectivityConnected
	}
	s.update(func(st *State) { st.Connectivity = result })
	if !connected {
		s.logger.Info("backend unreachable",
			logging.String(logging.FieldEventType, "probe_disconnected"),
			logging.Error(err),
		)
	}
	return result
}

func (s *Shell) current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.downloadSeq
}

// applyError must be called with the state lock held (inside update).
// Connectivity is left alone: only CheckConnection sets it.
func (s *Shell) applyError(st *State, err error) {
	kind := services.Classify(err)
	st.ErrorKind = kind
	switch kind {
	case services.KindTransport:
		st.Error = transportMessage
	default:
		st.Error = services.UserMessage(err)
	}
}

func (s *Shell) record(ctx context.Context, entry history.Entry) {
	if s.recorder == nil || entry.URL == "" {
		return
	}
	if _, err := s.recorder.Record(ctx, entry); err != nil {
		logging.WarnWithContext(s.logger, "history record failed", "history_write_failed",
			logging.String(logging.FieldErrorHint, "run 'ytdesk history clear' if the schema changed"),
			logging.Error(err),
		)
	}
}
