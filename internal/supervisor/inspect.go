package supervisor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"ytdesk/internal/config"
)

// Inspection describes a supervisor owned by some other process.
type Inspection struct {
	Running  bool
	PID      int
	LockPath string
}

// Inspect reports whether a host currently holds the backend lock. It never
// keeps the lock: if the lock can be taken, nothing is running and the lock
// is released immediately.
func Inspect(cfg *config.Config) (Inspection, error) {
	if cfg == nil {
		return Inspection{}, errors.New("configuration required")
	}
	result := Inspection{LockPath: cfg.LockPath()}
	if _, err := os.Stat(result.LockPath); errors.Is(err, os.ErrNotExist) {
		return result, nil
	}

	lock := flock.New(result.LockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return result, fmt.Errorf("inspect backend lock: %w", err)
	}
	if acquired {
		_ = lock.Unlock()
		return result, nil
	}

	result.Running = true
	if data, err := os.ReadFile(cfg.PIDPath()); err == nil {
		if pid, parseErr := strconv.Atoi(strings.TrimSpace(string(data))); parseErr == nil && pid > 0 {
			result.PID = pid
		}
	}
	return result, nil
}
