package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captured collects spinner output safely across the animation goroutine.
type captured struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (c *captured) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.WriteString(s)
}

func (c *captured) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Discovering metrics")
	assert.Equal(t, "Discovering metrics", s.Label())
	assert.Equal(t, SpinnerPending, s.State())
}

func TestSpinnerFinalStates(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*Spinner)
		state  SpinnerState
		symbol string
	}{
		{"success", (*Spinner).Success, SpinnerSuccess, SymbolComplete},
		{"fail", (*Spinner).Fail, SpinnerFailed, SymbolFail},
		{"skip", (*Spinner).Skip, SpinnerSkipped, SymbolSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out captured
			s := NewSpinner("Pushing nodes")
			s.SetOutput(out.write)

			s.Start()
			assert.Equal(t, SpinnerInProgress, s.State())
			time.Sleep(20 * time.Millisecond)
			tt.finish(s)

			assert.Equal(t, tt.state, s.State())
			assert.Contains(t, out.String(), tt.symbol)
			assert.Contains(t, out.String(), "Pushing nodes")
		})
	}
}

func TestSpinnerStopKeepsState(t *testing.T) {
	s := NewSpinner("Test")
	s.SetOutput(func(_ string) {})

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	s.Stop()

	assert.Equal(t, SpinnerInProgress, s.State())
}

func TestSpinnerDoubleStart(t *testing.T) {
	s := NewSpinner("Test")
	s.SetOutput(func(_ string) {})

	s.Start()
	s.Start()

	assert.Equal(t, SpinnerInProgress, s.State())
	s.Stop()
}

func TestSpinnerNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinnerTo(&buf, "Fetching metadata from prom")

	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Success()

	out := buf.String()
	assert.NotContains(t, out, "\r", "no animation frames on a plain writer")
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "Fetching metadata from prom")
}

func TestSpinnerSetLabel(t *testing.T) {
	s := NewSpinner("Initial")
	s.SetLabel("Updated")
	assert.Equal(t, "Updated", s.Label())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{0, "0.00s"},
		{50 * time.Millisecond, "0.05s"},
		{100 * time.Millisecond, "0.1s"},
		{1500 * time.Millisecond, "1.5s"},
		{10 * time.Second, "10.0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.duration))
		})
	}
}

func TestSpinnerConcurrentAccess(t *testing.T) {
	s := NewSpinner("Test")
	s.SetOutput(func(_ string) {})
	s.Start()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.State()
			_ = s.Label()
		}()
	}
	wg.Wait()
	s.Success()

	require.Equal(t, SpinnerSuccess, s.State())
}
