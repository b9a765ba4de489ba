package aim

import (
	"log"

	"gonum.org/v1/gonum/spatial/r3"

	"opticsight/internal/orientation"
	"opticsight/internal/rangefinder"
)

// ByteSource yields the serial bytes received since the previous call.
type ByteSource interface {
	Drain() []byte
}

// Bytes is a fixed ByteSource, used when replaying a capture.
type Bytes []byte

func (b Bytes) Drain() []byte { return b }

// Input is what one cycle consumed. Serial is nil while the latch is closed.
type Input struct {
	Accel   r3.Vec
	Pressed bool
	Serial  []byte
}

// Cycle owns the per-process state of the polling loop: smoothing windows,
// decoder position and the lock latch. It is not safe for concurrent use.
type Cycle struct {
	est    *orientation.Estimator
	dec    *rangefinder.Decoder
	state  rangefinder.State
	solver *Solver

	seq  uint64
	prev Solution
	have bool
}

func NewCycle(est *orientation.Estimator, solver *Solver) *Cycle {
	return &Cycle{est: est, dec: &rangefinder.Decoder{}, solver: solver}
}

// Step runs one polling iteration.
//
// Order: orientation, button, range, solve. While the latch is closed rx is
// not drained and the frozen distance is reused.
func (c *Cycle) Step(accel r3.Vec, pressed bool, rx ByteSource) (Solution, Input) {
	in := Input{Accel: accel, Pressed: pressed}

	sample := c.est.Estimate(accel)

	if c.state.Button(pressed) {
		if c.state.Locked {
			log.Printf("range locked distance=%s", c.state.LastDistance)
		} else {
			log.Printf("range unlocked")
		}
	}

	if !c.state.Locked {
		if rx != nil {
			in.Serial = rx.Drain()
		}
		c.state.Poll(c.dec, in.Serial)
	}

	c.seq++
	sol := c.solver.Solve(sample, c.state.LastDistance)
	sol.Seq = c.seq
	sol.Locked = c.state.Locked

	c.logTransitions(sol)
	c.prev = sol
	c.have = true
	return sol, in
}

// Replay feeds a recorded input through Step.
func (c *Cycle) Replay(in Input) Solution {
	var rx ByteSource
	if in.Serial != nil {
		rx = Bytes(in.Serial)
	}
	sol, _ := c.Step(in.Accel, in.Pressed, rx)
	return sol
}

// Level re-zeros the orientation estimate at the current attitude.
func (c *Cycle) Level() error { return c.est.Level() }

// RangeState returns a copy of the latch and last reading.
func (c *Cycle) RangeState() rangefinder.State { return c.state }

// DecoderStats returns the decoder counters.
func (c *Cycle) DecoderStats() (good, badChecksum, resyncs uint64) {
	return c.dec.Good, c.dec.BadChecksum, c.dec.Resyncs
}

// logTransitions logs changes only; a steady state is silent.
func (c *Cycle) logTransitions(sol Solution) {
	if !c.have {
		log.Printf("aim first cycle distance=%s on_screen=%t", sol.Distance, sol.Pixel.OnScreen)
		return
	}
	if sol.Distance.Kind() != c.prev.Distance.Kind() {
		log.Printf("range state=%s cm=%d", sol.Distance.Kind(), sol.Distance.CM())
	}
	if sol.Pixel.OnScreen != c.prev.Pixel.OnScreen {
		log.Printf("aim on_screen=%t x=%d y=%d", sol.Pixel.OnScreen, sol.Pixel.X, sol.Pixel.Y)
	}
	if sol.Err != "" && sol.Err != c.prev.Err {
		log.Printf("aim solve failed: %s", sol.Err)
	}
}
