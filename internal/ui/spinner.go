package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// SpinnerState represents the current state of a spinner.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
	SpinnerSkipped
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Spinner shows an animated label while a slow step (a discovery fetch, a
// Grafana upload) runs, then replaces it with a final status line. On a
// non-terminal writer it skips the animation and prints only the final line.
type Spinner struct {
	mu           sync.Mutex
	label        string
	state        SpinnerState
	frame        int
	startTime    time.Time
	stopChan     chan struct{}
	doneChan     chan struct{}
	output       func(string)
	animate      bool
	running      bool
	lastRendered string
}

// NewSpinner creates a spinner that animates on stdout when it is a terminal.
func NewSpinner(label string) *Spinner {
	return NewSpinnerTo(os.Stdout, label)
}

// NewSpinnerTo creates a spinner writing to w. Animation is enabled only
// when w is a terminal.
func NewSpinnerTo(w io.Writer, label string) *Spinner {
	return &Spinner{
		label:   label,
		state:   SpinnerPending,
		output:  func(s string) { _, _ = io.WriteString(w, s) },
		animate: IsTerminal(w),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SetOutput redirects output and turns animation on, for tests.
func (s *Spinner) SetOutput(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = fn
	s.animate = true
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.state = SpinnerInProgress
	s.startTime = time.Now()
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	animate := s.animate
	s.mu.Unlock()

	if !animate {
		close(s.doneChan)
		return
	}
	s.render()
	go s.loop()
}

// Stop halts the animation without changing state.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	<-s.doneChan
}

// Success stops the spinner and marks it as successful.
func (s *Spinner) Success() { s.finish(SpinnerSuccess) }

// Fail stops the spinner and marks it as failed.
func (s *Spinner) Fail() { s.finish(SpinnerFailed) }

// Skip stops the spinner and marks it as skipped.
func (s *Spinner) Skip() { s.finish(SpinnerSkipped) }

func (s *Spinner) finish(state SpinnerState) {
	s.Stop()
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.renderFinal()
}

// State returns the current spinner state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Label returns the spinner's label.
func (s *Spinner) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// SetLabel updates the spinner's label.
func (s *Spinner) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
}

func (s *Spinner) loop() {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.mu.Unlock()
			s.render()
		}
	}
}

func (s *Spinner) clear() {
	if s.lastRendered != "" {
		s.output("\r" + strings.Repeat(" ", lipgloss.Width(s.lastRendered)) + "\r")
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()

	style := lipgloss.NewStyle().Foreground(GradientColors[(s.frame/2)%len(GradientColors)])
	line := fmt.Sprintf("%s %s...", style.Render(spinnerFrames[s.frame]), s.label)

	s.clear()
	s.output(line)
	s.lastRendered = line
}

func (s *Spinner) renderFinal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var symbol string
	var style lipgloss.Style
	switch s.state {
	case SpinnerSuccess:
		symbol, style = SymbolComplete, SuccessStyle()
	case SpinnerFailed:
		symbol, style = SymbolFail, ErrorStyle()
	case SpinnerSkipped:
		symbol, style = SymbolSkipped, WarningStyle()
	default:
		symbol, style = SymbolPending, MutedStyle()
	}

	s.clear()
	s.lastRendered = ""
	s.output(fmt.Sprintf("%s %s %s\n",
		style.Render(symbol),
		s.label,
		MutedStyle().Render(formatDuration(time.Since(s.startTime))),
	))
}

// formatDuration formats a duration for display (e.g., "0.03s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
