package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"goldmap/internal/fetch"
	"goldmap/internal/resolve"
)

// progressReporter drives one terminal bar per phase. It satisfies both the
// fetch and resolve observer interfaces.
type progressReporter struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

func newProgressReporter(out io.Writer) *progressReporter {
	return &progressReporter{out: out}
}

func (p *progressReporter) newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// Fetched implements fetch.Observer.
func (p *progressReporter) Fetched(ev fetch.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = p.newBar(ev.Total, "fetching")
	}
	p.bar.Describe(fmt.Sprintf("fetching (%d found)", ev.Found))
	_ = p.bar.Set(ev.Completed)
	if ev.Completed >= ev.Total {
		p.finishLocked()
	}
}

// Resolved implements resolve.Observer.
func (p *progressReporter) Resolved(ev resolve.Resolved) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = p.newBar(ev.Total, "resolving")
	}
	_ = p.bar.Set(ev.Position)
	if ev.Position >= ev.Total {
		p.finishLocked()
	}
}

// Checkpointed implements resolve.Observer.
func (p *progressReporter) Checkpointed(ev resolve.Checkpointed) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Describe(fmt.Sprintf("resolving (%d matched, %d manual)", ev.Tally.Matched, ev.Tally.Manual))
	}
	if ev.Forced {
		p.finishLocked()
	}
}

// Close clears any bar left by an interrupted phase.
func (p *progressReporter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *progressReporter) finishLocked() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
