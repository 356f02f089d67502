package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Height is the vertical resolution reported for a format. The backend sends
// either a number or the placeholder string "N/A".
type Height string

// UnmarshalJSON accepts numbers, strings, and null.
func (h *Height) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*h = "N/A"
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*h = Height(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*h = Height(strconv.FormatInt(i, 10))
		return nil
	}
	*h = Height(n.String())
	return nil
}

// Format is one downloadable rendition as reported by /api/info.
type Format struct {
	ID     string  `json:"id"`
	Height Height  `json:"height"`
	SizeMB float64 `json:"size_mb"`
}

type infoRequest struct {
	URL string `json:"url"`
}

type infoResponse struct {
	Success   bool     `json:"success"`
	Title     string   `json:"title"`
	Duration  *float64 `json:"duration"`
	Thumbnail string   `json:"thumbnail"`
	Formats   []Format `json:"formats"`
	Error     string   `json:"error"`
}

type downloadBody struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id,omitempty"`
	IsAudio  bool   `json:"isAudio,omitempty"`
}

type errorBody struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// QualityOption is a selectable entry in the quality list.
type QualityOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// VideoInfo is the display-ready metadata for one URL.
type VideoInfo struct {
	Title           string          `json:"title"`
	Duration        string          `json:"duration"`
	DurationSeconds float64         `json:"duration_seconds"`
	Thumbnail       string          `json:"thumbnail"`
	Qualities       []QualityOption `json:"qualities"`
	DefaultQuality  string          `json:"default_quality"`
}

// DownloadRequest selects what to fetch. FormatID is required unless
// AudioOnly is set.
type DownloadRequest struct {
	URL       string
	FormatID  string
	AudioOnly bool
}

// Payload is a completed download held in memory.
type Payload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Progress reports transfer state for a download whose size is known.
type Progress struct {
	Loaded  int64
	Total   int64
	Percent int
}

// ProgressFunc receives progress events. It is called on the goroutine
// performing the download.
type ProgressFunc func(Progress)
