// Package aim joins orientation, range, ballistics and projection into one
// solution per polling cycle.
package aim

import (
	"gonum.org/v1/gonum/spatial/r3"

	"opticsight/internal/ballistics"
	"opticsight/internal/orientation"
	"opticsight/internal/rangefinder"
	"opticsight/internal/screen"
)

// Solution is what the display collaborator draws for one cycle.
type Solution struct {
	Seq         uint64               `json:"seq"`
	Orientation orientation.Sample   `json:"orientation"`
	Distance    rangefinder.Distance `json:"distance"`
	Locked      bool                 `json:"locked"`

	// Drop is the impact offset at the target (X lateral, Z vertical), metres.
	Drop     r3.Vec             `json:"drop"`
	Pixel    screen.PixelOffset `json:"pixel"`
	Computed bool               `json:"computed"`
	Err      string             `json:"error,omitempty"`
}

// Solver holds the immutable calibration for a run.
type Solver struct {
	Profile  ballistics.Profile
	Geometry screen.Geometry
}

func NewSolver(p ballistics.Profile, g screen.Geometry) *Solver {
	return &Solver{Profile: p, Geometry: g}
}

// centre is the dot position when no ballistic solution is drawn.
var centre = screen.PixelOffset{OnScreen: true}

// Solve computes the dot for one orientation sample and distance.
//
// Disconnected and max-range readings skip the ballistic computation and
// leave the dot at the crosshair. Degenerate geometry yields an off-screen
// result carrying the error text.
func (s *Solver) Solve(o orientation.Sample, d rangefinder.Distance) Solution {
	sol := Solution{Orientation: o, Distance: d, Pixel: centre}

	m, ok := d.Meters()
	if !ok {
		return sol
	}

	drop, err := ballistics.ComputeDrop(m, o.PitchThetaDeg, o.RollAlphaDeg, s.Profile)
	if err != nil {
		sol.Pixel = screen.OffScreen()
		sol.Err = err.Error()
		return sol
	}
	sol.Drop = drop
	sol.Pixel = screen.Project(drop, o.RollAlphaDeg, o.PitchThetaDeg, m, s.Geometry)
	sol.Computed = true
	return sol
}
