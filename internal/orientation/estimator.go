// Package orientation estimates elevation (pitch) and cant (roll) from the
// gravity vector reported by the accelerometer.
package orientation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"opticsight/internal/filter"
)

// Accelerometer supplies calibrated acceleration in m/s^2, sensor frame.
type Accelerometer interface {
	Read() (r3.Vec, error)
}

// Sample is one smoothed orientation reading.
//
// Pitch (elevation) and roll (cant) are always window-averaged values.
type Sample struct {
	MagnitudeR    float64 `json:"magnitude_r"`
	PitchThetaDeg float64 `json:"pitch_theta_deg"`
	RollAlphaDeg  float64 `json:"roll_alpha_deg"`
}

type Config struct {
	// WindowSize is the moving-average length for both angles (default 5).
	WindowSize int

	// Mounting offsets added after smoothing.
	PitchOffsetDeg float64
	RollOffsetDeg  float64
}

// Estimator turns acceleration samples into pitch/roll.
//
// It owns one smoothing window per angle and is not safe for concurrent use;
// the polling loop is its only caller.
type Estimator struct {
	pitch *filter.Window
	roll  *filter.Window

	pitchOffsetDeg float64
	rollOffsetDeg  float64

	last Sample
	have bool
}

func NewEstimator(cfg Config) *Estimator {
	return &Estimator{
		pitch:          filter.NewWindow(cfg.WindowSize),
		roll:           filter.NewWindow(cfg.WindowSize),
		pitchOffsetDeg: cfg.PitchOffsetDeg,
		rollOffsetDeg:  cfg.RollOffsetDeg,
	}
}

// Estimate consumes one acceleration sample.
//
// The axis pairing matches how the sensor sits in the housing: Y points
// along the barrel and -Z is up when the device is level.
func (e *Estimator) Estimate(a r3.Vec) Sample {
	rawPitch := atan2Deg(a.Y, math.Hypot(a.X, a.Z))
	rawRoll := atan2Deg(a.X, -a.Z)

	s := Sample{
		MagnitudeR:    r3.Norm(a),
		PitchThetaDeg: e.pitch.Update(rawPitch) + e.pitchOffsetDeg,
		RollAlphaDeg:  e.roll.Update(rawRoll) + e.rollOffsetDeg,
	}
	e.last = s
	e.have = true
	return s
}

// Last returns the most recent sample, if any.
func (e *Estimator) Last() (Sample, bool) {
	return e.last, e.have
}

// Level re-zeros pitch and roll so the current attitude reads (0,0).
// The offset is not persisted; it lives for the process lifetime.
func (e *Estimator) Level() error {
	if !e.have {
		return fmt.Errorf("orientation: no samples yet")
	}
	e.pitchOffsetDeg -= e.last.PitchThetaDeg
	e.rollOffsetDeg -= e.last.RollAlphaDeg
	e.last.PitchThetaDeg = 0
	e.last.RollAlphaDeg = 0
	return nil
}

// Offsets returns the current mounting offsets.
func (e *Estimator) Offsets() (pitchDeg, rollDeg float64) {
	return e.pitchOffsetDeg, e.rollOffsetDeg
}

// atan2Deg is atan2 in degrees with atan2(0,0) pinned to 0 regardless of
// the signs of the zeros.
func atan2Deg(y, x float64) float64 {
	if y == 0 && x == 0 {
		return 0
	}
	return math.Atan2(y, x) * 180 / math.Pi
}
