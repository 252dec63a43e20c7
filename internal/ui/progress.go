package ui

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressReader wraps a download stream and renders a progress bar
// with throughput to Out. With an unknown Total it stays silent.
type ProgressReader struct {
	R     io.Reader
	Total int64
	Out   io.Writer

	read  int64
	start time.Time
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	if p.start.IsZero() {
		p.start = time.Now()
	}
	n, err := p.R.Read(b)
	p.read += int64(n)
	if p.Total > 0 && p.Out != nil {
		pct := float64(p.read) / float64(p.Total) * 100.0
		elapsed := time.Since(p.start).Seconds()
		var mbps float64
		if elapsed > 0 {
			mbps = (float64(p.read) * 8) / (elapsed * 1_000_000)
		}
		fmt.Fprintf(p.Out, "\r[%-20s] %3.0f%% | %5.1f Mbps", bar(pct), pct, mbps)
	}
	return n, err
}

func bar(pct float64) string {
	filled := int(pct / 5) // 20 slots
	if filled < 0 {
		filled = 0
	}
	if filled > 20 {
		filled = 20
	}
	return strings.Repeat("=", filled) + strings.Repeat(" ", 20-filled)
}
