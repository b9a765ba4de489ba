package sim

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

const standardGravity = 9.80665

// ShooterSim models a hand-held optic swaying around level.
type ShooterSim struct {
	// SwayDeg is the pitch amplitude; roll sways at half amplitude and
	// twice the rate.
	SwayDeg float64
	Period  time.Duration
}

// Attitude returns deterministic pitch and roll for now.
func (s ShooterSim) Attitude(now time.Time) (pitchDeg, rollDeg float64) {
	period := s.Period
	if period <= 0 {
		period = 8 * time.Second
	}
	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())
	w := 2 * math.Pi * phase
	return s.SwayDeg * math.Sin(w), 0.5 * s.SwayDeg * math.Sin(2*w)
}

// Accel returns the gravity reading the sensor would report at now.
func (s ShooterSim) Accel(now time.Time) r3.Vec {
	p, r := s.Attitude(now)
	return GravityVector(p, r)
}

// GravityVector is the sensor-frame reaction to gravity for a given
// elevation and cant: Y along the barrel, -Z up when level.
func GravityVector(pitchDeg, rollDeg float64) r3.Vec {
	sp, cp := math.Sincos(pitchDeg * math.Pi / 180)
	sr, cr := math.Sincos(rollDeg * math.Pi / 180)
	return r3.Vec{
		X: standardGravity * cp * sr,
		Y: standardGravity * sp,
		Z: -standardGravity * cp * cr,
	}
}

// Accelerometer adapts ShooterSim to a polled sensor.
type Accelerometer struct {
	Sim ShooterSim
	Now func() time.Time
}

func (a *Accelerometer) Read() (r3.Vec, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	return a.Sim.Accel(now()), nil
}
