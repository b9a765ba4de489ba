// Package ballistics predicts where the projectile lands relative to the
// boresight.
//
// Drop is split into a pure gravity term and an empirical bias term. The
// bias coefficients are fitted to test firing at fixed ranges and absorb the
// sight's zero offset and drag. Sight height is a screen concern.
package ballistics

import "fmt"

const (
	StandardGravity = 9.80665

	yard = 0.9144
)

// Bias is a displacement term 0.5*Accel*t^2 + Velocity*t.
type Bias struct {
	Accel    float64 `yaml:"accel" json:"accel"`
	Velocity float64 `yaml:"velocity" json:"velocity"`
}

// Profile is the per-load calibration. It is loaded once and never mutated.
type Profile struct {
	MuzzleVelocity float64 // m/s
	Gravity        float64 // m/s^2
	ElevationBias  Bias    // vertical bias, m/s^2 and m/s
	LateralBias    float64 // horizontal drift, m/s
}

// CalibrationPoint is an observed vertical impact offset (negative is low)
// at a range, fired level.
type CalibrationPoint struct {
	DistanceM float64 `yaml:"distance_m" json:"distance_m"`
	DropM     float64 `yaml:"drop_m" json:"drop_m"`
}

// ReferencePoints are the test-firing results the default profile is fitted to.
var ReferencePoints = []CalibrationPoint{
	{DistanceM: 25 * yard, DropM: 0},
	{DistanceM: 50 * yard, DropM: -0.050},
	{DistanceM: 100 * yard, DropM: -0.250},
}

const DefaultMuzzleVelocity = 330.0

// DefaultProfile returns the profile fitted to ReferencePoints.
func DefaultProfile() Profile {
	p := Profile{
		MuzzleVelocity: DefaultMuzzleVelocity,
		Gravity:        StandardGravity,
	}
	bias, err := FitBias(ReferencePoints, p.MuzzleVelocity, p.Gravity)
	if err != nil {
		// ReferencePoints is a fixed, well-conditioned set.
		panic(fmt.Sprintf("ballistics: default fit failed: %v", err))
	}
	p.ElevationBias = bias
	return p
}

// Validate reports configuration mistakes that would make every solution
// meaningless.
func (p Profile) Validate() error {
	if !(p.MuzzleVelocity > 0) {
		return fmt.Errorf("ballistics: muzzle velocity must be > 0")
	}
	if p.Gravity < 0 {
		return fmt.Errorf("ballistics: gravity must be >= 0")
	}
	return nil
}
