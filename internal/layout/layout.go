// Package layout places panels on Grafana's fixed-width grid with a greedy
// left-to-right, top-to-bottom flow.
package layout

// DefaultGridWidth is the width of a Grafana dashboard grid.
const DefaultGridWidth = 24

// Engine tracks the cursor of one flow. It is not safe for concurrent use;
// each dashboard build and each collapsed section gets its own.
type Engine struct {
	gridWidth int
	cursorX   int
	cursorY   int
	rowHeight int
}

// Option configures an Engine.
type Option func(*Engine)

// WithGridWidth overrides the grid width. Non-positive widths are ignored.
func WithGridWidth(w int) Option {
	return func(e *Engine) {
		if w > 0 {
			e.gridWidth = w
		}
	}
}

// New creates an Engine positioned at the top-left corner.
func New(opts ...Option) *Engine {
	e := &Engine{gridWidth: DefaultGridWidth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GridWidth returns the width panels wrap at.
func (e *Engine) GridWidth() int {
	return e.gridWidth
}

// Reset returns the cursor to the origin.
func (e *Engine) Reset() {
	e.cursorX = 0
	e.cursorY = 0
	e.rowHeight = 0
}

// Place assigns coordinates to a width x height panel. A panel that does not
// fit in the rest of the current row starts a new one below the tallest
// panel placed so far. Panels wider than the grid still land at x=0.
func (e *Engine) Place(width, height int) (x, y int) {
	if e.cursorX+width > e.gridWidth {
		e.wrap()
	}
	x, y = e.cursorX, e.cursorY
	e.cursorX += width
	e.rowHeight = max(e.rowHeight, height)
	return x, y
}

// AddRow flushes any partial row and reserves one grid unit for a row
// header, returning the header's y.
func (e *Engine) AddRow() int {
	e.FinishSection()
	y := e.cursorY
	e.cursorY++
	e.cursorX = 0
	e.rowHeight = 0
	return y
}

// FinishSection flushes a partial row so the next content starts on a clean line.
func (e *Engine) FinishSection() {
	if e.cursorX > 0 {
		e.wrap()
	}
}

func (e *Engine) wrap() {
	e.cursorY += e.rowHeight
	e.cursorX = 0
	e.rowHeight = 0
}
