package savefile

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"ytdesk/internal/config"
	"ytdesk/internal/fileutil"
	"ytdesk/internal/logging"
	"ytdesk/internal/services"
	"ytdesk/internal/textutil"
)

const (
	component    = "savefile"
	fallbackStem = "download"
	maxSuffix    = 9999
	fileMode     = 0o644
	dirMode      = 0o755
)

// ErrNoFreeName is returned when every numbered variant of a name is taken.
var ErrNoFreeName = errors.New("no free filename")

// Saver writes payloads into a single directory.
type Saver struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// New returns a Saver that writes into dir on fs.
func New(fs afero.Fs, dir string, logger *slog.Logger) *Saver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Saver{
		fs:     fs,
		dir:    filepath.Clean(dir),
		logger: logging.NewComponentLogger(logger, component),
	}
}

// NewFromConfig returns a Saver for the configured downloads directory on the
// OS filesystem.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Saver {
	return New(afero.NewOsFs(), cfg.Downloads.Dir, logger)
}

// Dir returns the target directory.
func (s *Saver) Dir() string {
	return s.dir
}

// Save writes data under a sanitized, unused variant of name and returns the
// full path written.
func (s *Saver) Save(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, dirMode); err != nil {
		return "", services.Wrap(services.ErrStorage, component, "save", "create downloads directory", err)
	}
	target, err := UniquePath(s.fs, s.dir, name)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, component, "save", "choose filename", err)
	}
	if err := fileutil.WriteFileVerified(s.fs, target, data, fileMode); err != nil {
		return "", services.Wrap(services.ErrStorage, component, "save", "write payload", err)
	}
	s.logger.Info("payload saved",
		logging.String(logging.FieldEventType, "payload_saved"),
		logging.String("path", target),
		logging.Int64("bytes", int64(len(data))),
	)
	return target, nil
}

// UniquePath returns dir/name, sanitized, or the first "name (n).ext" variant
// that does not exist yet.
func UniquePath(fs afero.Fs, dir, name string) (string, error) {
	clean := textutil.SanitizeFileName(name)
	ext := filepath.Ext(clean)
	stem := strings.TrimSuffix(clean, ext)
	if stem == "" {
		stem = fallbackStem
	}

	candidate := filepath.Join(dir, stem+ext)
	for n := 1; ; n++ {
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		if n > maxSuffix {
			return "", fmt.Errorf("%w for %q", ErrNoFreeName, stem+ext)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
	}
}
