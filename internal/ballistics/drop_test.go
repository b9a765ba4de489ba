package ballistics

import (
	"errors"
	"math"
	"testing"
)

func TestComputeDrop_ZeroCantHasNoRotationLateral(t *testing.T) {
	p := DefaultProfile()
	for _, elev := range []float64{-30, -5, 0, 3.3, 15, 45, 80} {
		for _, dist := range []float64{0, 10, 91.44, 150} {
			d, err := ComputeDrop(dist, elev, 0, p)
			if err != nil {
				t.Fatalf("elev=%v dist=%v: %v", elev, dist, err)
			}
			if d.X != 0 {
				t.Fatalf("elev=%v dist=%v: lateral=%v want exactly 0", elev, dist, d.X)
			}
			if d.Y != 0 {
				t.Fatalf("y=%v want 0", d.Y)
			}
		}
	}
}

func TestComputeDrop_LateralBiasOnly(t *testing.T) {
	p := DefaultProfile()
	p.LateralBias = 0.1
	d, err := ComputeDrop(33, 0, 0, p)
	if err != nil {
		t.Fatalf("ComputeDrop: %v", err)
	}
	// t = 33/330 = 0.1 s.
	if math.Abs(d.X-0.01) > 1e-12 {
		t.Fatalf("lateral=%v want 0.01", d.X)
	}
}

func TestComputeDrop_MatchesCalibrationBand(t *testing.T) {
	p := DefaultProfile()
	cases := []struct {
		distM float64
		want  float64
	}{
		{distM: 25 * yard, want: 0},
		{distM: 50 * yard, want: -0.050},
		{distM: 100 * yard, want: -0.250},
	}
	for _, tc := range cases {
		d, err := ComputeDrop(tc.distM, 0, 0, p)
		if err != nil {
			t.Fatalf("ComputeDrop: %v", err)
		}
		if math.Abs(d.Z-tc.want) > 0.01 {
			t.Fatalf("dist=%v drop=%v want %v±0.01", tc.distM, d.Z, tc.want)
		}
	}
}

func TestComputeDrop_HundredYards(t *testing.T) {
	d, err := ComputeDrop(91.44, 0, 0, DefaultProfile())
	if err != nil {
		t.Fatalf("ComputeDrop: %v", err)
	}
	if d.Z > -0.20 || d.Z < -0.30 {
		t.Fatalf("drop=%v want within [-0.30,-0.20]", d.Z)
	}
}

func TestComputeDrop_PureGravity(t *testing.T) {
	p := Profile{MuzzleVelocity: 100, Gravity: 10}
	d, err := ComputeDrop(100, 0, 0, p)
	if err != nil {
		t.Fatalf("ComputeDrop: %v", err)
	}
	// t = 1 s, drop = 0.5*g*t^2.
	if math.Abs(d.Z+5) > 1e-12 {
		t.Fatalf("drop=%v want -5", d.Z)
	}
}

func TestComputeDrop_TiltMovesAimLine(t *testing.T) {
	p := DefaultProfile()
	level, err := ComputeDrop(91.44, 0, 0, p)
	if err != nil {
		t.Fatalf("ComputeDrop: %v", err)
	}

	// Aim line at 5 deg elevation and 20 deg cant: 91.44*sin5*(sin20, cos20).
	d, err := ComputeDrop(91.44, 5, 20, p)
	if err != nil {
		t.Fatalf("ComputeDrop: %v", err)
	}
	if math.Abs(d.X+2.7257) > 1e-3 || math.Abs(d.Z+7.7394) > 1e-3 {
		t.Fatalf("d=%+v want {X:-2.7257 Z:-7.7394}", d)
	}
	if d.Z == level.Z {
		t.Fatalf("drop=%v does not depend on elevation", d.Z)
	}

	// Cant direction flips only the lateral term.
	m, err := ComputeDrop(91.44, 5, -20, p)
	if err != nil {
		t.Fatalf("ComputeDrop: %v", err)
	}
	if math.Abs(m.X+d.X) > 1e-12 || math.Abs(m.Z-d.Z) > 1e-12 {
		t.Fatalf("cant=-20 d=%+v want mirror of %+v", m, d)
	}
}

func TestComputeDrop_NoBiasFollowsBoresight(t *testing.T) {
	// Without gravity or bias the offset is minus the aim line itself.
	p := Profile{MuzzleVelocity: 300}
	for _, elev := range []float64{-60, -10, 20, 70} {
		for _, cant := range []float64{-25, 0, 40} {
			d, err := ComputeDrop(120, elev, cant, p)
			if err != nil {
				t.Fatalf("ComputeDrop: %v", err)
			}
			se := math.Sin(elev * math.Pi / 180)
			sc, cc := math.Sincos(cant * math.Pi / 180)
			if math.Abs(d.X+120*sc*se) > 1e-9 || math.Abs(d.Z+120*cc*se) > 1e-9 {
				t.Fatalf("elev=%v cant=%v d=%+v", elev, cant, d)
			}
		}
	}
}

func TestComputeDrop_ZeroDistance(t *testing.T) {
	d, err := ComputeDrop(0, 12, 7, DefaultProfile())
	if err != nil {
		t.Fatalf("ComputeDrop: %v", err)
	}
	if d.X != 0 || d.Z != 0 {
		t.Fatalf("d=%+v want zero", d)
	}
}

func TestComputeDrop_DegenerateGeometry(t *testing.T) {
	p := DefaultProfile()
	cases := []struct {
		name             string
		dist, elev, cant float64
	}{
		{name: "Vertical", dist: 50, elev: 90},
		{name: "VerticalDown", dist: 50, elev: -90},
		{name: "NegativeDistance", dist: -1},
		{name: "NaNDistance", dist: math.NaN()},
		{name: "InfElevation", dist: 10, elev: math.Inf(1)},
		{name: "NaNCant", dist: 10, cant: math.NaN()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeDrop(tc.dist, tc.elev, tc.cant, p)
			if !errors.Is(err, ErrDegenerateGeometry) {
				t.Fatalf("err=%v want ErrDegenerateGeometry", err)
			}
		})
	}
}

func TestTimeOfFlight(t *testing.T) {
	p := Profile{MuzzleVelocity: 330}
	tof, err := TimeOfFlight(33, 30, p)
	if err != nil {
		t.Fatalf("TimeOfFlight: %v", err)
	}
	if math.Abs(tof-0.1) > 1e-12 {
		t.Fatalf("tof=%v want 0.1", tof)
	}
	if _, err := TimeOfFlight(33, 90, p); err == nil {
		t.Fatalf("expected error at 90 degrees")
	}
}
