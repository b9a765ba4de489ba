package screen

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// unitGeometry makes metres map 1:1 onto centimetre pixels at distance 0.
func unitGeometry() Geometry {
	g := DefaultGeometry()
	g.EyeReliefM = 1
	g.SightHeightM = 0
	g.PixelPitchM = 0.01
	return g
}

func TestProject_Idempotent(t *testing.T) {
	off := r3.Vec{X: 0.013, Z: -0.21}
	a := Project(off, 3.5, 2, 91.44, DefaultGeometry())
	b := Project(off, 3.5, 2, 91.44, DefaultGeometry())
	if a != b {
		t.Fatalf("a=%+v b=%+v", a, b)
	}
}

func TestProject_HundredYardDrop(t *testing.T) {
	got := Project(r3.Vec{Z: -0.25}, 0, 0, 91.44, DefaultGeometry())
	want := PixelOffset{X: 0, Y: -3, OnScreen: true}
	if got != want {
		t.Fatalf("got=%+v want %+v", got, want)
	}
}

func TestProject_DropIsNegativeY(t *testing.T) {
	g := unitGeometry()
	low := Project(r3.Vec{X: 0.03, Z: -0.05}, 0, 0, 0, g)
	if low != (PixelOffset{X: 3, Y: -5, OnScreen: true}) {
		t.Fatalf("low=%+v want {3 -5 true}", low)
	}
	high := Project(r3.Vec{X: -0.03, Z: 0.05}, 0, 0, 0, g)
	if high != (PixelOffset{X: -3, Y: 5, OnScreen: true}) {
		t.Fatalf("high=%+v want {-3 5 true}", high)
	}
	// The window extends further below the crosshair than above it.
	if got := Project(r3.Vec{Z: -0.20}, 0, 0, 0, g); !got.OnScreen || got.Y != -20 {
		t.Fatalf("deep drop=%+v want on screen at -20", got)
	}
	if got := Project(r3.Vec{Z: 0.20}, 0, 0, 0, g); got.OnScreen || got.Y != g.MaxY {
		t.Fatalf("high=%+v want clamped to %d", got, g.MaxY)
	}
}

func TestProject_ZeroDistanceNoDivideByZero(t *testing.T) {
	got := Project(r3.Vec{}, 0, 0, 0, DefaultGeometry())
	// Only the sight height remains: 0.05 m at the eye is far below the window.
	if got.OnScreen || got.Y != -24 || got.X != 0 {
		t.Fatalf("got=%+v want {0 -24 false}", got)
	}
}

func TestProject_SightHeightSubtracted(t *testing.T) {
	g := unitGeometry()
	g.SightHeightM = 0.03
	got := Project(r3.Vec{Z: 0.05}, 0, 0, 0, g)
	if got.Y != 2 {
		t.Fatalf("y=%d want 2", got.Y)
	}
}

func TestProject_ElevationForeshortening(t *testing.T) {
	got := Project(r3.Vec{Z: -0.05}, 0, 60, 0, unitGeometry())
	if got.Y != -10 || !got.OnScreen {
		t.Fatalf("got=%+v want y=-10 on screen", got)
	}
}

func TestProject_EyeReliefScaling(t *testing.T) {
	// distance 1 m with 1 m eye relief halves the apparent offset.
	got := Project(r3.Vec{X: 0.1, Z: -0.1}, 0, 0, 1, unitGeometry())
	if got.X != 5 || got.Y != -5 {
		t.Fatalf("got=%+v want (5,-5)", got)
	}
}

func TestProject_CantUnrotated(t *testing.T) {
	cases := []struct {
		cant  float64
		wantX int32
		wantY int32
	}{
		{cant: 0, wantX: 0, wantY: -5},
		{cant: 90, wantX: -5, wantY: 0},
		{cant: -90, wantX: 5, wantY: 0},
		{cant: 180, wantX: 0, wantY: 5},
	}
	for _, tc := range cases {
		got := Project(r3.Vec{Z: -0.05}, tc.cant, 0, 0, unitGeometry())
		if got.X != tc.wantX || got.Y != tc.wantY || !got.OnScreen {
			t.Fatalf("cant=%v got=%+v want (%d,%d)", tc.cant, got, tc.wantX, tc.wantY)
		}
	}
}

func TestProject_CantPreservesLength(t *testing.T) {
	g := unitGeometry()
	for _, cant := range []float64{-33, 12, 47} {
		got := Project(r3.Vec{X: 0.06, Z: -0.08}, cant, 0, 0, g)
		r := math.Hypot(float64(got.X), float64(got.Y))
		if math.Abs(r-10) > 1 {
			t.Fatalf("cant=%v got=%+v radius=%v want ~10", cant, got, r)
		}
	}
}

func TestProject_Bounds(t *testing.T) {
	g := unitGeometry()
	cases := []struct {
		name string
		off  r3.Vec
		want PixelOffset
	}{
		{name: "RightEdgeInside", off: r3.Vec{X: 0.15}, want: PixelOffset{X: 15, Y: 0, OnScreen: true}},
		{name: "RightEdgeOutside", off: r3.Vec{X: 0.16}, want: PixelOffset{X: 16, Y: 0, OnScreen: false}},
		{name: "LeftEdgeInside", off: r3.Vec{X: -0.16}, want: PixelOffset{X: -16, Y: 0, OnScreen: true}},
		{name: "LeftFarOutside", off: r3.Vec{X: -3}, want: PixelOffset{X: -16, Y: 0, OnScreen: false}},
		{name: "BottomEdgeInside", off: r3.Vec{Z: -0.24}, want: PixelOffset{X: 0, Y: -24, OnScreen: true}},
		{name: "BottomOutside", off: r3.Vec{Z: -0.25}, want: PixelOffset{X: 0, Y: -24, OnScreen: false}},
		{name: "TopEdgeInside", off: r3.Vec{Z: 0.15}, want: PixelOffset{X: 0, Y: 15, OnScreen: true}},
		{name: "TopOutside", off: r3.Vec{Z: 0.4}, want: PixelOffset{X: 0, Y: 16, OnScreen: false}},
		{name: "BothOutside", off: r3.Vec{X: 1, Z: -1}, want: PixelOffset{X: 16, Y: -24, OnScreen: false}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Project(tc.off, 0, 0, 0, g)
			if got != tc.want {
				t.Fatalf("got=%+v want %+v", got, tc.want)
			}
		})
	}
}

func TestProject_InvalidInputsOffScreen(t *testing.T) {
	g := DefaultGeometry()
	cases := []struct {
		name string
		off  r3.Vec
		elev float64
		dist float64
		g    Geometry
	}{
		{name: "NaNOffset", off: r3.Vec{Z: math.NaN()}, dist: 10, g: g},
		{name: "NegativeDenominator", dist: -1, g: g},
		{name: "VerticalScreen", elev: 90, dist: 10, g: g},
		{name: "ZeroPitch", dist: 10, g: Geometry{EyeReliefM: 0.2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Project(tc.off, 0, tc.elev, tc.dist, tc.g); got.OnScreen {
				t.Fatalf("got=%+v want off screen", got)
			}
		})
	}
}
