package models

import "sync"

// DefaultWindowSize is the rolling window capacity used by scout runners.
const DefaultWindowSize = 100

// Window is a bounded, oldest-evicting buffer of recent candles for one
// symbol. Feed callbacks append from the stream goroutine while analysis
// ticks snapshot from the runner goroutine, so access is guarded.
type Window struct {
	mu   sync.RWMutex
	max  int
	data []Candle
}

// NewWindow creates a window with the given capacity.
func NewWindow(max int) *Window {
	if max <= 0 {
		max = DefaultWindowSize
	}
	return &Window{max: max, data: make([]Candle, 0, max)}
}

// Append adds a candle at the tail, evicting the oldest entry once full.
func (w *Window) Append(c Candle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.data) == w.max {
		copy(w.data, w.data[1:])
		w.data = w.data[:len(w.data)-1]
	}
	w.data = append(w.data, c)
}

// Seed replaces the window contents with the most recent candles of cs.
func (w *Window) Seed(cs []Candle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(cs) > w.max {
		cs = cs[len(cs)-w.max:]
	}
	w.data = w.data[:0]
	w.data = append(w.data, cs...)
}

// Len returns the number of candles currently held.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.data)
}

// Snapshot returns a copy of the window contents, oldest first.
func (w *Window) Snapshot() []Candle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Candle, len(w.data))
	copy(out, w.data)
	return out
}
