package shell

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ytdesk/internal/backend"
	"ytdesk/internal/services"
)

// Phase is the metadata lookup state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseError   Phase = "error"
)

// DownloadType selects between the video rendition and audio only.
type DownloadType string

const (
	TypeVideo DownloadType = "video"
	TypeAudio DownloadType = "audio only"
)

// Label is the display form, e.g. "Audio Only".
func (t DownloadType) Label() string {
	return cases.Title(language.English).String(string(t))
}

// ParseDownloadType accepts "video", "audio", or "audio only" in any case.
func ParseDownloadType(value string) (DownloadType, bool) {
	switch cases.Fold().String(value) {
	case "video", "":
		return TypeVideo, true
	case "audio", "audio only", "audio-only":
		return TypeAudio, true
	default:
		return "", false
	}
}

// Connectivity is the last known backend reachability.
type Connectivity string

const (
	ConnectivityUnknown      Connectivity = "unknown"
	ConnectivityConnected    Connectivity = "connected"
	ConnectivityDisconnected Connectivity = "disconnected"
)

// State is an immutable snapshot of the view.
type State struct {
	URL             string
	Phase           Phase
	Info            *backend.VideoInfo
	DownloadType    DownloadType
	SelectedQuality string
	Downloading     bool
	Progress        int
	ProgressKnown   bool
	Error           string
	ErrorKind       services.Kind
	Connectivity    Connectivity
	LastSavedPath   string
}

// QualityLabel returns the label of the selected quality, if any.
func (s State) QualityLabel() string {
	if s.Info == nil {
		return ""
	}
	for _, q := range s.Info.Qualities {
		if q.ID == s.SelectedQuality {
			return q.Label
		}
	}
	return ""
}

// CanDownload reports whether a download may be started from this state.
func (s State) CanDownload() bool {
	if s.Downloading || s.Phase != PhaseLoaded {
		return false
	}
	return s.DownloadType == TypeAudio || s.SelectedQuality != ""
}

func (s State) clone() State {
	if s.Info != nil {
		info := *s.Info
		info.Qualities = append([]backend.QualityOption(nil), s.Info.Qualities...)
		s.Info = &info
	}
	return s
}
