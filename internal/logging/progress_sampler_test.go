package logging

import "testing"

func TestProgressSamplerReportsEachBucketOnce(t *testing.T) {
	s := NewProgressSampler(10)
	var reported []float64
	for _, pct := range []float64{0, 3, 9.9, 10, 15, 42, 41, 99, 100, 100} {
		if s.ShouldReport(pct) {
			reported = append(reported, pct)
		}
	}
	want := []float64{0, 10, 42, 99, 100}
	if len(reported) != len(want) {
		t.Fatalf("reported %v, want %v", reported, want)
	}
	for i := range want {
		if reported[i] != want[i] {
			t.Fatalf("reported %v, want %v", reported, want)
		}
	}
}

func TestProgressSamplerIgnoresUnknownAndClampsOvershoot(t *testing.T) {
	s := NewProgressSampler(0)
	if s.ShouldReport(-1) {
		t.Fatal("unknown progress should not report")
	}
	if !s.ShouldReport(250) {
		t.Fatal("first overshoot should report as complete")
	}
	if s.ShouldReport(100) {
		t.Fatal("100 after clamped overshoot should not repeat")
	}
}

func TestProgressSamplerResetStartsOver(t *testing.T) {
	s := NewProgressSampler(25)
	s.ShouldReport(80)
	s.Reset()
	if !s.ShouldReport(5) {
		t.Fatal("expected report after reset")
	}
	var nilSampler *ProgressSampler
	if !nilSampler.ShouldReport(1) {
		t.Fatal("nil sampler reports everything")
	}
}
