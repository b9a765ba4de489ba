package ballistics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FitBias least-squares fits the vertical bias to level-fire calibration
// points.
//
// At zero elevation the model's vertical displacement is
// 0.5*(Accel-g)*t^2 + Velocity*t with t = d/v0, which is linear in the two
// unknowns, so the fit is a two-column linear solve.
func FitBias(points []CalibrationPoint, muzzleVelocity, gravity float64) (Bias, error) {
	if !(muzzleVelocity > 0) {
		return Bias{}, fmt.Errorf("ballistics: fit: muzzle velocity must be > 0")
	}
	if len(points) < 2 {
		return Bias{}, fmt.Errorf("ballistics: fit: need at least 2 calibration points, got %d", len(points))
	}

	a := mat.NewDense(len(points), 2, nil)
	b := mat.NewVecDense(len(points), nil)
	for i, pt := range points {
		if !finite(pt.DistanceM) || pt.DistanceM <= 0 || !finite(pt.DropM) {
			return Bias{}, fmt.Errorf("ballistics: fit: point %d invalid (distance=%v drop=%v)", i, pt.DistanceM, pt.DropM)
		}
		t := pt.DistanceM / muzzleVelocity
		a.Set(i, 0, 0.5*t*t)
		a.Set(i, 1, t)
		b.SetVec(i, pt.DropM)
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return Bias{}, fmt.Errorf("ballistics: fit: %w", err)
	}
	return Bias{Accel: x.AtVec(0) + gravity, Velocity: x.AtVec(1)}, nil
}

// Residuals returns observed minus predicted drop for each point, level fire.
func Residuals(points []CalibrationPoint, p Profile) ([]float64, error) {
	out := make([]float64, len(points))
	for i, pt := range points {
		d, err := ComputeDrop(pt.DistanceM, 0, 0, p)
		if err != nil {
			return nil, err
		}
		out[i] = pt.DropM - d.Z
	}
	return out, nil
}
