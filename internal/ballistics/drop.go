package ballistics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateGeometry is returned when time of flight is undefined
// (elevation at or near ±90°) or the inputs are not finite.
var ErrDegenerateGeometry = errors.New("ballistics: degenerate geometry")

// MinForwardVelocity is the smallest forward muzzle-velocity component (m/s)
// for which time of flight is computed.
const MinForwardVelocity = 1e-3

// ComputeDrop returns the impact displacement relative to the aim line at the
// target's forward distance, in metres. Tilting the optic moves the aim line
// but not the modelled trajectory, so elevation and cant both shift the
// result.
//
// Axes: X lateral (right), Y forward, Z vertical (up). Y is always zero.
func ComputeDrop(distanceM, elevationDeg, cantDeg float64, p Profile) (r3.Vec, error) {
	if !finite(distanceM) || !finite(elevationDeg) || !finite(cantDeg) || distanceM < 0 {
		return r3.Vec{}, fmt.Errorf("%w: distance=%v elevation=%v cant=%v", ErrDegenerateGeometry, distanceM, elevationDeg, cantDeg)
	}

	dir := boresight(deg2rad(elevationDeg), deg2rad(cantDeg))
	vel := r3.Scale(p.MuzzleVelocity, dir)
	aim := r3.Scale(distanceM, dir)

	if vel.Y < MinForwardVelocity {
		return r3.Vec{}, fmt.Errorf("%w: forward velocity %.3g m/s at elevation %.2f", ErrDegenerateGeometry, vel.Y, elevationDeg)
	}
	t := aim.Y / vel.Y

	// The bias terms are measured against the level boresight, so only the
	// aim line carries the rotation.
	vertical := displacement(p.ElevationBias.Accel-p.Gravity, p.ElevationBias.Velocity, t) - aim.Z
	lateral := displacement(0, p.LateralBias, t) - aim.X

	return r3.Vec{X: lateral, Y: 0, Z: vertical}, nil
}

// TimeOfFlight returns the time for the projectile to cover the forward
// component of distanceM.
func TimeOfFlight(distanceM, elevationDeg float64, p Profile) (float64, error) {
	dir := boresight(deg2rad(elevationDeg), 0)
	fwd := p.MuzzleVelocity * dir.Y
	if !finite(distanceM) || fwd < MinForwardVelocity {
		return 0, ErrDegenerateGeometry
	}
	return distanceM * dir.Y / fwd, nil
}

// boresight is the unit barrel direction after elevating and canting.
// Both the muzzle-velocity and the aim-line vectors are scaled copies of it,
// so they always share a frame.
func boresight(elevRad, cantRad float64) r3.Vec {
	se, ce := math.Sincos(elevRad)
	sc, cc := math.Sincos(cantRad)
	return r3.Vec{X: sc * se, Y: ce, Z: cc * se}
}

// displacement covers both the gravity term and the empirical bias term.
func displacement(a, v, t float64) float64 {
	return 0.5*a*t*t + v*t
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
