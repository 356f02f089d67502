package logging

// ProgressSampler thins out transfer progress so a download reports once per
// step of percent instead of on every chunk.
type ProgressSampler struct {
	step float64
	last int
}

// NewProgressSampler reports each time progress enters a new step-sized
// bucket (5 when step <= 0).
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step, last: -1}
}

// ShouldReport reports whether percent starts a new bucket. Negative percent
// means unknown and is never reported; 100 is always reported once.
func (s *ProgressSampler) ShouldReport(percent float64) bool {
	if s == nil {
		return true
	}
	if percent < 0 {
		return false
	}
	bucket := int(min(percent, 100) / s.step)
	if bucket <= s.last {
		return false
	}
	s.last = bucket
	return true
}

// Reset forgets the last bucket, for the next download.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.last = -1
	}
}
