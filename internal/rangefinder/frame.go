// Package rangefinder decodes the laser rangefinder's 9-byte serial frames
// and tracks the last known distance and the distance lock.
//
// Frame layout (little-endian):
//
//	0: 0x59 sync
//	1: 0x59 sync
//	2: distance low   3: distance high   (cm, signed)
//	4: strength low   5: strength high
//	6: temp low       7: temp high       (raw/8 - 256 = deg C)
//	8: checksum = low byte of sum(bytes 0..7)
package rangefinder

const (
	SyncByte = 0x59
	FrameLen = 9
)

// Frame is one checksum-validated reading.
type Frame struct {
	DistanceCM int16
	Strength   uint16
	TempRaw    uint16
}

// TempC returns the sensor chip temperature.
func (f Frame) TempC() float64 {
	return float64(f.TempRaw)/8 - 256
}

// Decoder is a byte-at-a-time frame synchronizer.
//
// Partial frames survive between calls, so bytes can be fed in whatever
// chunks the UART delivers them. Not safe for concurrent use.
type Decoder struct {
	buf [FrameLen]byte
	pos int

	frames []Frame

	// Counters for status reporting.
	Good        uint64
	BadChecksum uint64
	Resyncs     uint64
}

// Feed consumes one byte and returns a frame when b completes a valid one.
func (d *Decoder) Feed(b byte) (Frame, bool) {
	d.buf[d.pos] = b
	switch d.pos {
	case 0, 1:
		if b != SyncByte {
			if d.pos == 1 {
				d.Resyncs++
			}
			d.pos = 0
			return Frame{}, false
		}
		d.pos++
		return Frame{}, false
	case FrameLen - 1:
		d.pos = 0
		if checksum(d.buf[:FrameLen-1]) != b {
			d.BadChecksum++
			return Frame{}, false
		}
		d.Good++
		return Frame{
			DistanceCM: int16(uint16(d.buf[2]) | uint16(d.buf[3])<<8),
			Strength:   uint16(d.buf[4]) | uint16(d.buf[5])<<8,
			TempRaw:    uint16(d.buf[6]) | uint16(d.buf[7])<<8,
		}, true
	default:
		d.pos++
		return Frame{}, false
	}
}

// Write implements io.Writer. Completed frames are kept until Frames is called.
func (d *Decoder) Write(p []byte) (int, error) {
	for _, b := range p {
		if f, ok := d.Feed(b); ok {
			d.frames = append(d.frames, f)
		}
	}
	return len(p), nil
}

// Frames returns and clears the frames completed by Write.
func (d *Decoder) Frames() []Frame {
	out := d.frames
	d.frames = nil
	return out
}

// Pending returns how many bytes of a partial frame are buffered.
func (d *Decoder) Pending() int { return d.pos }

// Reset drops any partial frame.
func (d *Decoder) Reset() {
	d.pos = 0
	d.frames = nil
}

// EncodeFrame builds a valid frame. Used by the simulator and tests.
func EncodeFrame(f Frame) []byte {
	b := make([]byte, FrameLen)
	b[0], b[1] = SyncByte, SyncByte
	b[2], b[3] = byte(uint16(f.DistanceCM)), byte(uint16(f.DistanceCM)>>8)
	b[4], b[5] = byte(f.Strength), byte(f.Strength>>8)
	b[6], b[7] = byte(f.TempRaw), byte(f.TempRaw>>8)
	b[8] = checksum(b[:FrameLen-1])
	return b
}

func checksum(p []byte) byte {
	var sum int
	for _, b := range p {
		sum += int(b)
	}
	return byte(sum & 0xFF)
}
