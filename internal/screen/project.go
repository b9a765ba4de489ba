// Package screen maps a ballistic displacement at the target onto pixel
// offsets from the crosshair.
package screen

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Geometry describes the optic and the visible dot window around the
// crosshair anchor. Bounds are half-open: MinX <= x < MaxX, MinY <= y < MaxY.
type Geometry struct {
	EyeReliefM   float64
	SightHeightM float64
	PixelPitchM  float64

	MinX, MaxX int32
	MinY, MaxY int32
}

const (
	DefaultEyeReliefM   = 0.2
	DefaultSightHeightM = 0.05
	DefaultPixelPitchM  = 0.000254
)

// DefaultGeometry matches the 128x64 OLED behind the optic. The window is
// asymmetric because the crosshair is not centred in the visible area.
func DefaultGeometry() Geometry {
	return Geometry{
		EyeReliefM:   DefaultEyeReliefM,
		SightHeightM: DefaultSightHeightM,
		PixelPitchM:  DefaultPixelPitchM,
		MinX:         -16,
		MaxX:         16,
		MinY:         -24,
		MaxY:         16,
	}
}

// PixelOffset is the dot position relative to the crosshair.
// X grows to the right and Y grows upward, so bullet drop is a negative Y.
// Panel rows count downward: a display plots the dot at crosshair row minus Y.
// When OnScreen is false the offending axis holds the violated bound and the
// display must draw its off-screen indicator instead of a dot.
type PixelOffset struct {
	X        int32 `json:"x"`
	Y        int32 `json:"y"`
	OnScreen bool  `json:"on_screen"`
}

// OffScreen is returned when no meaningful position exists.
func OffScreen() PixelOffset { return PixelOffset{} }

// Project converts a boresight-relative displacement at distanceM into a
// pixel offset. It is a pure function.
func Project(offset r3.Vec, cantDeg, elevationDeg, distanceM float64, g Geometry) PixelOffset {
	if !(g.PixelPitchM > 0) || !(g.EyeReliefM > 0) {
		return OffScreen()
	}
	denom := distanceM + g.EyeReliefM
	cosElev := math.Cos(elevationDeg * math.Pi / 180)
	if !(denom > 0) || math.Abs(cosElev) < 1e-9 {
		return OffScreen()
	}

	x := offset.X
	z := offset.Z - g.SightHeightM

	// A tilted screen stretches drop along the line of sight.
	z /= cosElev

	scale := g.EyeReliefM / denom
	x *= scale
	z *= scale

	// The screen is fixed to the shooter's eye, so un-rotate the cant.
	sc, cc := math.Sincos(-cantDeg * math.Pi / 180)
	sx := x*cc - z*sc
	sz := x*sc + z*cc

	px, okX := toPixels(sx, g.PixelPitchM, g.MinX, g.MaxX)
	py, okY := toPixels(sz, g.PixelPitchM, g.MinY, g.MaxY)
	return PixelOffset{X: px, Y: py, OnScreen: okX && okY}
}

// toPixels rounds metres to pixels and clamps to [lo, hi]. ok is false when
// the value is outside the half-open window [lo, hi).
func toPixels(m, pitch float64, lo, hi int32) (int32, bool) {
	v := math.Round(m / pitch)
	if math.IsNaN(v) {
		return 0, false
	}
	if v < float64(lo) {
		return lo, false
	}
	if v >= float64(hi) {
		return hi, false
	}
	return int32(v), true
}
