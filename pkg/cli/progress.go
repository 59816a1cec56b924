package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const waitBarWidth = 30

// WaitProgress renders time spent waiting for a response against the most
// the caller is willing to wait:
//
//	Waiting: [█████████░░░░░░░░░░░░░░░░░░░░░] 18s/60s
//
// Each render rewrites the current line. Done ends the line.
type WaitProgress struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	limit   time.Duration
	now     func() time.Time
	started time.Time
	done    bool
}

// NewWaitProgress creates a reporter writing to w, or to os.Stderr when w is
// nil. A limit <= 0 renders elapsed time without a bar.
func NewWaitProgress(w io.Writer, label string, limit time.Duration) *WaitProgress {
	if w == nil {
		w = os.Stderr
	}
	return &WaitProgress{w: w, label: label, limit: limit, now: time.Now}
}

// Start records the start time and renders the empty bar.
func (p *WaitProgress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = p.now()
	p.done = false
	p.render(p.started)
}

// Tick renders the time elapsed since Start.
func (p *WaitProgress) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done {
		p.render(p.now())
	}
}

// Done renders the final state and ends the line with the outcome. Later
// calls are ignored.
func (p *WaitProgress) Done(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.render(p.now())
	p.done = true
	if err != nil {
		fmt.Fprintf(p.w, "\n✗ Error: %v\n", err)
		return
	}
	fmt.Fprintln(p.w)
}

// Run starts the reporter and ticks it every interval until the returned
// function is called with the outcome or ctx ends.
func (p *WaitProgress) Run(ctx context.Context, interval time.Duration) func(error) {
	p.Start()

	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Tick()
			}
		}
	}()

	return func(err error) {
		cancel()
		<-stopped
		p.Done(err)
	}
}

func (p *WaitProgress) render(now time.Time) {
	elapsed := now.Sub(p.started).Truncate(time.Second)
	if p.limit <= 0 {
		fmt.Fprintf(p.w, "\r%s: %s", p.label, elapsed)
		return
	}

	filled := int(float64(waitBarWidth) * float64(elapsed) / float64(p.limit))
	filled = max(0, min(filled, waitBarWidth))
	fmt.Fprintf(p.w, "\r%s: [%s%s] %s/%s", p.label,
		strings.Repeat("█", filled), strings.Repeat("░", waitBarWidth-filled),
		elapsed, p.limit.Truncate(time.Second))
}
