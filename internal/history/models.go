package history

import "time"

// Kind distinguishes video downloads from audio-only ones.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Status is the outcome of a download attempt.
type Status string

const (
	StatusSaved  Status = "saved"
	StatusFailed Status = "failed"
)

// Entry is one row of download history.
type Entry struct {
	ID           int64
	URL          string
	Title        string
	Kind         Kind
	FormatID     string
	QualityLabel string
	Filename     string
	Path         string
	Bytes        int64
	Status       Status
	ErrorMessage string
	RequestID    string
	CreatedAt    time.Time
}
