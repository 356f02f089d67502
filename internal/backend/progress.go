package backend

import (
	"io"
	"math"
)

// Percent returns round(loaded*100/total).
func Percent(loaded, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(loaded) * 100 / float64(total)))
}

// progressReader counts bytes as they are transferred and reports each chunk.
// No events are produced when total is unknown.
type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	report ProgressFunc
}

func newProgressReader(r io.Reader, total int64, report ProgressFunc) io.Reader {
	if report == nil || total <= 0 {
		return r
	}
	return &progressReader{r: r, total: total, report: report}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.report(Progress{Loaded: p.loaded, Total: p.total, Percent: Percent(p.loaded, p.total)})
	}
	return n, err
}
