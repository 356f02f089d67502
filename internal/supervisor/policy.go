package supervisor

import (
	"time"

	"ytdesk/internal/config"
)

// RestartPolicy decides whether and when a crashed backend is relaunched.
type RestartPolicy struct {
	Backoff bool
	Delay   time.Duration
	// MaxDelay caps the doubled delay when Backoff is set.
	MaxDelay time.Duration
	// MaxRestarts caps consecutive crash restarts; 0 means unlimited.
	MaxRestarts int
}

// PolicyFromConfig builds the policy described by the backend section.
func PolicyFromConfig(cfg config.Backend) RestartPolicy {
	return RestartPolicy{
		Backoff:     cfg.RestartPolicy == config.RestartPolicyBackoff,
		Delay:       time.Duration(cfg.RestartDelayMillis) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.MaxRestartDelayMillis) * time.Millisecond,
		MaxRestarts: cfg.MaxRestarts,
	}
}

// Next returns the delay before restart number attempt+1, where attempt is
// the number of consecutive restarts already made. ok is false once the cap
// has been reached.
func (p RestartPolicy) Next(attempt int) (time.Duration, bool) {
	if p.MaxRestarts > 0 && attempt >= p.MaxRestarts {
		return 0, false
	}
	delay := p.Delay
	if delay <= 0 {
		delay = time.Second
	}
	if !p.Backoff {
		return delay, true
	}
	limit := p.MaxDelay
	if limit < delay {
		limit = delay
	}
	for i := 0; i < attempt && delay < limit; i++ {
		delay *= 2
	}
	if delay > limit {
		delay = limit
	}
	return delay, true
}
