package sim

import (
	"math"
	"testing"
	"time"

	"opticsight/internal/orientation"
	"opticsight/internal/rangefinder"
)

func TestGravityVector_EstimatorRecoversAngles(t *testing.T) {
	cases := []struct{ pitch, roll float64 }{
		{0, 0}, {10, 0}, {0, -15}, {-20, 30}, {45, 5},
	}
	for _, tc := range cases {
		e := orientation.NewEstimator(orientation.Config{})
		s := e.Estimate(GravityVector(tc.pitch, tc.roll))
		if math.Abs(s.PitchThetaDeg-tc.pitch) > 1e-9 || math.Abs(s.RollAlphaDeg-tc.roll) > 1e-9 {
			t.Fatalf("in=(%v,%v) got=(%v,%v)", tc.pitch, tc.roll, s.PitchThetaDeg, s.RollAlphaDeg)
		}
		if math.Abs(s.MagnitudeR-standardGravity) > 1e-9 {
			t.Fatalf("r=%v want %v", s.MagnitudeR, standardGravity)
		}
	}
}

func TestShooterSim_StaysWithinSway(t *testing.T) {
	s := ShooterSim{SwayDeg: 3, Period: 4 * time.Second}
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 200; i++ {
		p, r := s.Attitude(start.Add(time.Duration(i) * 37 * time.Millisecond))
		if math.Abs(p) > 3+1e-9 || math.Abs(r) > 1.5+1e-9 {
			t.Fatalf("i=%d pitch=%v roll=%v out of sway", i, p, r)
		}
	}
}

func TestAccelerometer_UsesClock(t *testing.T) {
	now := time.Unix(0, 0)
	a := &Accelerometer{Sim: ShooterSim{SwayDeg: 5, Period: time.Second}, Now: func() time.Time { return now }}
	v, err := a.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v.Y != 0 || v.Z >= 0 {
		t.Fatalf("v=%+v want level at phase 0", v)
	}
	now = now.Add(250 * time.Millisecond)
	v, _ = a.Read()
	if v.Y <= 0 {
		t.Fatalf("v=%+v want nose up at quarter period", v)
	}
}

func TestRangefinderSim_DecodesToDistance(t *testing.T) {
	s := &RangefinderSim{DistanceM: 91.44, NoiseBytes: 7}
	var st rangefinder.State
	d := &rangefinder.Decoder{}
	for i := 0; i < 3; i++ {
		got := st.Poll(d, s.Drain())
		if got.CM() != 9144 {
			t.Fatalf("cycle %d cm=%d want 9144", i, got.CM())
		}
	}
	if st.LastFrame.TempC() != 25 {
		t.Fatalf("temp=%v want 25", st.LastFrame.TempC())
	}
}

func TestRangefinderSim_DropEvery(t *testing.T) {
	s := &RangefinderSim{DistanceM: 10, DropEvery: 3}
	var st rangefinder.State
	d := &rangefinder.Decoder{}
	var kinds []rangefinder.DistanceKind
	for i := 0; i < 6; i++ {
		kinds = append(kinds, st.Poll(d, s.Drain()).Kind())
	}
	want := []rangefinder.DistanceKind{
		rangefinder.Valid, rangefinder.Valid, rangefinder.Disconnected,
		rangefinder.Valid, rangefinder.Valid, rangefinder.Disconnected,
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds=%v want %v", kinds, want)
		}
	}
}

func TestRangefinderSim_BeyondMaxRange(t *testing.T) {
	s := &RangefinderSim{DistanceM: 400}
	var st rangefinder.State
	if got := st.Poll(&rangefinder.Decoder{}, s.Drain()); got.Kind() != rangefinder.MaxRange {
		t.Fatalf("kind=%s want max_range", got.Kind())
	}
}
