package rangefinder

import (
	"encoding/json"
	"fmt"
)

// Out-of-band distance values shared with the display. They must not change.
const (
	DisconnectedCM = -1
	MaxRangeCM     = 18000
)

type DistanceKind uint8

const (
	Disconnected DistanceKind = iota
	MaxRange
	Valid
)

func (k DistanceKind) String() string {
	switch k {
	case Disconnected:
		return "disconnected"
	case MaxRange:
		return "max_range"
	case Valid:
		return "valid"
	default:
		return fmt.Sprintf("DistanceKind(%d)", uint8(k))
	}
}

// Distance is a rangefinder reading that is either disconnected, beyond
// maximum range, or a valid centimetre value.
//
// The zero value is Disconnected.
type Distance struct {
	kind DistanceKind
	cm   int16
}

// DistanceFromCM maps a raw reading onto the three-way variant.
// Negative readings (including the -1 sentinel) are disconnected and
// anything at or beyond MaxRangeCM is max range.
func DistanceFromCM(cm int) Distance {
	switch {
	case cm < 0:
		return Distance{kind: Disconnected}
	case cm >= MaxRangeCM:
		return Distance{kind: MaxRange}
	default:
		return Distance{kind: Valid, cm: int16(cm)}
	}
}

func DisconnectedDistance() Distance { return Distance{kind: Disconnected} }

func MaxRangeDistance() Distance { return Distance{kind: MaxRange} }

func (d Distance) Kind() DistanceKind { return d.kind }

func (d Distance) IsValid() bool { return d.kind == Valid }

// CM returns the interface integer: DisconnectedCM, MaxRangeCM or the reading.
func (d Distance) CM() int {
	switch d.kind {
	case Valid:
		return int(d.cm)
	case MaxRange:
		return MaxRangeCM
	default:
		return DisconnectedCM
	}
}

// Meters returns the reading in metres; ok is false unless the distance is valid.
func (d Distance) Meters() (m float64, ok bool) {
	if d.kind != Valid {
		return 0, false
	}
	return float64(d.cm) / 100, true
}

func (d Distance) String() string {
	if d.kind == Valid {
		return fmt.Sprintf("%dcm", d.cm)
	}
	return d.kind.String()
}

type distanceJSON struct {
	Kind string `json:"kind"`
	CM   int    `json:"cm"`
}

func (d Distance) MarshalJSON() ([]byte, error) {
	return json.Marshal(distanceJSON{Kind: d.kind.String(), CM: d.CM()})
}
