// Package progress draws scan progress on stderr.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for one phase of work.
type Tracker struct {
	bar   *progressbar.ProgressBar
	label string
	w     io.Writer
}

// NewSpinner creates a spinner on w for work of unknown size.
func NewSpinner(w io.Writer, label string) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Tracker{bar: bar, label: label, w: w}
}

func newTracker(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label, w: w}
}

// Tick advances by one. Safe for concurrent use.
func (t *Tracker) Tick() {
	_ = t.bar.Add(1)
}

// FinishSuccess clears the bar.
func (t *Tracker) FinishSuccess() {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}

// FinishError clears the bar and prints the error.
func (t *Tracker) FinishError(err error) {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	fmt.Fprintf(t.w, "  %s error: %v\n", t.label, err)
}

// Phases shows one bar per scan phase. It satisfies the engine's progress
// hook: Start opens a bar, Tick advances it, Done clears it.
type Phases struct {
	mu      sync.Mutex
	w       io.Writer
	current *Tracker
}

// NewPhasesTo reports to w.
func NewPhasesTo(w io.Writer) *Phases { return &Phases{w: w} }

// Start replaces any open bar with a new one for phase.
func (p *Phases) Start(phase string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.FinishSuccess()
	}
	p.current = newTracker(p.w, phase, total)
}

// Tick advances the open bar.
func (p *Phases) Tick() {
	p.mu.Lock()
	t := p.current
	p.mu.Unlock()
	if t != nil {
		t.Tick()
	}
}

// Done clears the open bar.
func (p *Phases) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.FinishSuccess()
		p.current = nil
	}
}
