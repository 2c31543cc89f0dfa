package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/johnayoung/legal-consensus/internal/consensus"
	"github.com/johnayoung/legal-consensus/internal/runner"
)

// SourceStatus represents the current state of a source query.
type SourceStatus int

const (
	StatusPending SourceStatus = iota
	StatusRunning
	StatusStreaming
	StatusComplete
	StatusFailed
)

// SourceState holds the state of a single source query.
type SourceState struct {
	Source    string
	Status    SourceStatus
	StartTime time.Time
	EndTime   time.Time
	Error     string
	CharCount int
	TokenEst  int // rough token estimate
}

// Progress displays real-time progress of source queries.
type Progress struct {
	mu        sync.Mutex
	w         io.Writer
	s         Styles
	sources   map[string]*SourceState
	order     []string
	startTime time.Time
	ticker    *time.Ticker
	done      chan struct{}
	quiet     bool
	rendered  bool
}

// NewProgress creates a new progress display.
func NewProgress(w io.Writer, sources []string, quiet bool) *Progress {
	p := &Progress{
		w:         w,
		s:         NewStyles(lipgloss.NewRenderer(w)),
		sources:   make(map[string]*SourceState),
		order:     sources,
		startTime: time.Now(),
		done:      make(chan struct{}),
		quiet:     quiet,
	}

	for _, src := range sources {
		p.sources[src] = &SourceState{Source: src, Status: StatusPending}
	}

	return p
}

// Callbacks adapts the display to runner events.
func (p *Progress) Callbacks() runner.Callbacks {
	return runner.Callbacks{
		OnStart: p.SourceStarted,
		OnChunk: p.SourceStreaming,
		OnComplete: func(source string, res consensus.SourceResult) {
			if res.Succeeded {
				p.SourceCompleted(source)
			} else {
				p.SourceFailed(source, res.ResponseText)
			}
		},
	}
}

// Start begins the progress display refresh loop.
func (p *Progress) Start() {
	if p.quiet {
		return
	}

	p.ticker = time.NewTicker(100 * time.Millisecond)
	go func() {
		for {
			select {
			case <-p.ticker.C:
				p.render()
			case <-p.done:
				return
			}
		}
	}()

	p.render()
}

// Stop ends the progress display.
func (p *Progress) Stop() {
	if p.quiet {
		return
	}

	close(p.done)
	if p.ticker != nil {
		p.ticker.Stop()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rendered {
		p.clearLines(len(p.order) + 2)
	}
}

// SourceStarted marks a source as starting its query.
func (p *Progress) SourceStarted(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state, ok := p.sources[source]; ok {
		state.Status = StatusRunning
		state.StartTime = time.Now()
	}
}

// SourceStreaming updates the streaming state for a source.
func (p *Progress) SourceStreaming(source string, chunk string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state, ok := p.sources[source]; ok {
		state.Status = StatusStreaming
		state.CharCount += len(chunk)
		state.TokenEst = state.CharCount / 4 // ~4 chars per token
	}
}

// SourceCompleted marks a source as finished.
func (p *Progress) SourceCompleted(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state, ok := p.sources[source]; ok {
		state.Status = StatusComplete
		state.EndTime = time.Now()
	}
}

// SourceFailed marks a source as failed.
func (p *Progress) SourceFailed(source string, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state, ok := p.sources[source]; ok {
		state.Status = StatusFailed
		state.EndTime = time.Now()
		state.Error = msg
	}
}

// State returns a copy of a source's state.
func (p *Progress) State(source string) (SourceState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, ok := p.sources[source]
	if !ok {
		return SourceState{}, false
	}
	return *state, true
}

// render draws the current progress state.
func (p *Progress) render() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rendered {
		p.clearLines(len(p.order) + 2)
	}
	p.rendered = true

	elapsed := time.Since(p.startTime)
	fmt.Fprintf(p.w, "%s %s\n",
		p.s.Title.Render(fmt.Sprintf("⚡ Querying %d sources", len(p.order))),
		p.s.Muted.Render(fmt.Sprintf("(%.1fs)", elapsed.Seconds())))

	for _, src := range p.order {
		p.renderSourceLine(p.sources[src])
	}

	fmt.Fprintln(p.w)
}

// renderSourceLine draws a single source's status.
func (p *Progress) renderSourceLine(state *SourceState) {
	var icon, status string
	var style lipgloss.Style

	switch state.Status {
	case StatusPending:
		icon, style, status = "○", p.s.Muted, "pending"
	case StatusRunning:
		icon, style = spinner(time.Now()), p.s.Running
		status = fmt.Sprintf("connecting... %.1fs", time.Since(state.StartTime).Seconds())
	case StatusStreaming:
		icon, style = spinner(time.Now()), p.s.Title
		status = fmt.Sprintf("streaming ~%d tokens %.1fs", state.TokenEst, time.Since(state.StartTime).Seconds())
	case StatusComplete:
		icon, style = "✓", p.s.Success
		status = fmt.Sprintf("done in %.1fs", state.EndTime.Sub(state.StartTime).Seconds())
	case StatusFailed:
		icon, style = "✗", p.s.Error
		status = "failed: " + truncate(state.Error, 50)
	}

	fmt.Fprintf(p.w, "  %s %-25s %s\n", style.Render(icon), truncate(state.Source, 25), style.Render(status))
}

// clearLines moves cursor up and clears lines.
func (p *Progress) clearLines(n int) {
	for i := 0; i < n; i++ {
		fmt.Fprint(p.w, "\033[A\033[K")
	}
}

// spinner returns a spinning character based on time.
func spinner(t time.Time) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	idx := int(t.UnixMilli()/100) % len(frames)
	return frames[idx]
}
