package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ArchivePath is the event journal location inside the log directory.
func ArchivePath(logDir string) string {
	if strings.TrimSpace(logDir) == "" {
		return ""
	}
	return filepath.Join(logDir, "events.jsonl")
}

// EventArchive is a JSON-lines journal of hub events. `ytdesk logs` reads it
// from another process while the host runs.
type EventArchive struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewEventArchive truncates path and opens it for appending. An empty path
// disables archiving and returns a nil archive, which is safe to use.
func NewEventArchive(path string) (*EventArchive, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure archive dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &EventArchive{f: f, enc: json.NewEncoder(f)}, nil
}

// Append writes evt as one line. Write errors are dropped; the archive is a
// convenience copy and must never block logging.
func (a *EventArchive) Append(evt LogEvent) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enc != nil {
		_ = a.enc.Encode(evt)
	}
}

// Close releases the file. Later Appends are ignored.
func (a *EventArchive) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f, a.enc = nil, nil
	return err
}

// ReadArchive returns events with a sequence above since, up to limit
// (0 for all), plus the highest sequence seen in the file. A missing file
// reads as empty.
func ReadArchive(path string, since uint64, limit int) ([]LogEvent, uint64, error) {
	highest := since
	if strings.TrimSpace(path) == "" {
		return nil, highest, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, highest, nil
	}
	if err != nil {
		return nil, highest, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer f.Close()

	var events []LogEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var evt LogEvent
		if err := json.Unmarshal(line, &evt); err != nil {
			// A line still being written by the host.
			break
		}
		highest = max(highest, evt.Sequence)
		if evt.Sequence <= since {
			continue
		}
		events = append(events, evt)
		if limit > 0 && len(events) == limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return events, highest, fmt.Errorf("read archive %s: %w", path, err)
	}
	return events, highest, nil
}
