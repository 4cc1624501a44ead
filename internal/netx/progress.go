package netx

import (
	"io"
	"sync"
)

// ProgressFunc receives the number of bytes consumed so far and the total.
type ProgressFunc func(sent, total int64)

// ProgressReader counts bytes read through it.
type ProgressReader struct {
	r     io.Reader
	total int64
	fn    ProgressFunc

	mu   sync.Mutex
	sent int64
}

func NewProgressReader(r io.Reader, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, fn: fn}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.sent += int64(n)
		sent := p.sent
		p.mu.Unlock()
		if p.fn != nil {
			p.fn(sent, p.total)
		}
	}
	return n, err
}

func (p *ProgressReader) Sent() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

// Percent maps sent/total onto 0..ceiling. A body that is fully read is not
// yet acknowledged by the server, so callers pass 99 and report 100 only
// once the response has arrived.
func Percent(sent, total int64, ceiling float64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(sent) / float64(total) * 100
	if p > ceiling {
		p = ceiling
	}
	if p < 0 {
		p = 0
	}
	return p
}
