package sim

import (
	"math"

	"opticsight/internal/rangefinder"
)

// RangefinderSim produces the byte stream a rangefinder would send during
// one polling cycle.
type RangefinderSim struct {
	DistanceM float64
	// NoiseBytes of line noise precede each frame.
	NoiseBytes int
	// DropEvery makes every Nth cycle silent; 0 never drops.
	DropEvery int

	cycle uint64
}

// Drain returns this cycle's bytes.
func (s *RangefinderSim) Drain() []byte {
	s.cycle++
	if s.DropEvery > 0 && s.cycle%uint64(s.DropEvery) == 0 {
		return nil
	}

	cm := int(math.Round(s.DistanceM * 100))
	if cm > math.MaxInt16 {
		cm = math.MaxInt16
	}
	if cm < rangefinder.DisconnectedCM {
		cm = rangefinder.DisconnectedCM
	}

	out := make([]byte, 0, s.NoiseBytes+rangefinder.FrameLen)
	for i := 0; i < s.NoiseBytes; i++ {
		b := byte(int(s.cycle)*31 + i*37 + 11)
		if b == rangefinder.SyncByte {
			b++
		}
		out = append(out, b)
	}
	// Strength and temperature are fixed plausible values (25 C).
	f := rangefinder.Frame{DistanceCM: int16(cm), Strength: 1200, TempRaw: (25 + 256) * 8}
	return append(out, rangefinder.EncodeFrame(f)...)
}
