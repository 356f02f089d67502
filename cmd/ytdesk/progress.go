package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"ytdesk/internal/logging"
)

// progressReporter draws download progress. On a terminal it redraws one bar
// in place; otherwise it prints a line every ten percent.
type progressReporter struct {
	out     io.Writer
	inline  bool
	prefix  string
	sampler *logging.ProgressSampler
	bar     *progressbar.ProgressBar
}

func newProgressReporter(out io.Writer, inline bool, prefix string) *progressReporter {
	return &progressReporter{
		out:     out,
		inline:  inline,
		prefix:  prefix,
		sampler: logging.NewProgressSampler(10),
	}
}

// Start prepares for a new download; label describes it on the bar.
func (p *progressReporter) Start(label string) {
	p.sampler.Reset()
	p.bar = nil
	if !p.inline {
		return
	}
	p.bar = progressbar.NewOptions(100,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Update reports percent and returns true when the cursor was left mid-line.
func (p *progressReporter) Update(percent int) bool {
	if p.bar != nil {
		if err := p.bar.Set(percent); err != nil {
			return false
		}
		return true
	}
	if p.sampler.ShouldReport(float64(percent)) {
		fmt.Fprintf(p.out, "%s%d%%\n", p.prefix, percent)
	}
	return false
}

// Stop drops the bar; the caller ends the line.
func (p *progressReporter) Stop() {
	p.bar = nil
}
