package rangefinder

// State is the process-wide range state: last distance plus the lock latch.
//
// It starts disconnected and unlocked. The polling loop is the only writer.
type State struct {
	LastDistance Distance
	LastFrame    Frame
	Locked       bool

	prevPressed bool
}

// Poll decodes the bytes received this cycle.
//
// If at least one valid frame completed, LastDistance becomes the newest
// reading. Otherwise it becomes Disconnected: a silent or noisy cycle is an
// explicit disconnect, never a reason to hold the previous value.
func (s *State) Poll(d *Decoder, p []byte) Distance {
	var (
		got  Frame
		have bool
	)
	for _, b := range p {
		if f, ok := d.Feed(b); ok {
			got = f
			have = true
		}
	}
	if !have {
		s.LastDistance = DisconnectedDistance()
		return s.LastDistance
	}
	s.LastFrame = got
	s.LastDistance = DistanceFromCM(int(got.DistanceCM))
	return s.LastDistance
}

// Button feeds the debounced button level for this cycle.
// A not-pressed to pressed transition flips Locked; the return value
// reports whether that happened.
func (s *State) Button(pressed bool) bool {
	if pressed == s.prevPressed {
		return false
	}
	s.prevPressed = pressed
	if !pressed {
		return false
	}
	s.Locked = !s.Locked
	return true
}
