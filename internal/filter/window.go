// Package filter provides the fixed-window moving average used to smooth
// orientation angles.
//
// Averaging is done on raw scalar values. Angles that wrap at ±180° average
// incorrectly across the wrap (samples of +179 and -179 average to 0 instead
// of ±180). The device never operates upside down, so callers accept this;
// anything that must work at every orientation has to unwrap first.
package filter

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSize is the window length used for pitch and roll.
const DefaultSize = 5

// Window is a circular buffer of the last N samples.
//
// Not safe for concurrent use; each smoothed scalar owns its own Window.
type Window struct {
	buf    []float64
	cursor int
	init   bool
}

// NewWindow returns a window of n samples. n <= 0 selects DefaultSize.
func NewWindow(n int) *Window {
	if n <= 0 {
		n = DefaultSize
	}
	return &Window{buf: make([]float64, n)}
}

// Size returns the window length.
func (w *Window) Size() int { return len(w.buf) }

// Initialized reports whether the window has seen its first sample.
func (w *Window) Initialized() bool { return w.init }

// Update pushes v and returns the mean of the window.
//
// The first call fills every slot with v so there is no ramp from zero.
func (w *Window) Update(v float64) float64 {
	if !w.init {
		for i := range w.buf {
			w.buf[i] = v
		}
		w.init = true
		return v
	}

	w.cursor++
	if w.cursor >= len(w.buf) {
		w.cursor = 0
	}
	w.buf[w.cursor] = v

	// Summation rounding can push the mean just outside the sample range.
	mean := stat.Mean(w.buf, nil)
	lo, hi := floats.Min(w.buf), floats.Max(w.buf)
	if mean < lo {
		return lo
	}
	if mean > hi {
		return hi
	}
	return mean
}

// Reset drops all history; the next Update pre-fills again.
func (w *Window) Reset() {
	for i := range w.buf {
		w.buf[i] = 0
	}
	w.cursor = 0
	w.init = false
}
