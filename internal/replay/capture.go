package replay

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"opticsight/internal/aim"
)

// Capture format: line-oriented text, one line per polling cycle.
//
// - Blank lines ignored.
// - Lines starting with '#' ignored.
// - Line "START" resets the origin (next record time is relative to 0 again).
// - Data lines are: <t_ns>,<ax>,<ay>,<az>,<pressed>,<hex>
//   where t_ns is nanoseconds since START, ax..az are m/s^2, pressed is 0 or
//   1, and hex is the serial bytes drained that cycle (empty when none).
//
// Floats are written in shortest round-trip form so replay is bit-exact.

type Record struct {
	At    time.Duration
	Start bool
	Input aim.Input
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{Start: true})
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("replay: line %d: %w", lineNo, err)
		}
		recs = append(recs, rec)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func parseLine(line string) (Record, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 6 {
		return Record{}, fmt.Errorf("want 6 fields, got %d: %q", len(fields), line)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	tsNs, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid timestamp %q: %w", fields[0], err)
	}
	if tsNs < 0 {
		return Record{}, fmt.Errorf("invalid timestamp (negative): %d", tsNs)
	}

	var axis [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[1+i], 64)
		if err != nil {
			return Record{}, fmt.Errorf("invalid accel %q: %w", fields[1+i], err)
		}
		axis[i] = v
	}

	var pressed bool
	switch fields[4] {
	case "0":
	case "1":
		pressed = true
	default:
		return Record{}, fmt.Errorf("invalid pressed %q", fields[4])
	}

	var serial []byte
	if h := strings.ReplaceAll(fields[5], " ", ""); h != "" {
		serial, err = hex.DecodeString(h)
		if err != nil {
			return Record{}, fmt.Errorf("invalid serial hex: %w", err)
		}
	}

	return Record{
		At: time.Duration(tsNs),
		Input: aim.Input{
			Accel:   r3.Vec{X: axis[0], Y: axis[1], Z: axis[2]},
			Pressed: pressed,
			Serial:  serial,
		},
	}, nil
}

type Writer struct {
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: time.Now()}, nil
}

func (ww *Writer) WriteCycle(now time.Time, in aim.Input) error {
	if ww.closed {
		return errors.New("replay writer is closed")
	}
	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	pressed := 0
	if in.Pressed {
		pressed = 1
	}
	_, err := fmt.Fprintf(ww.w, "%d,%s,%s,%s,%d,%s\n",
		d.Nanoseconds(),
		formatFloat(in.Accel.X), formatFloat(in.Accel.Y), formatFloat(in.Accel.Z),
		pressed,
		hex.EncodeToString(in.Serial),
	)
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (ww *Writer) Flush() error {
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

// Load reads a capture file.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Play replays records with their relative timing.
//
// The callback runs for every data record; START markers reset the origin.
// A callback error stops playback and is returned.
//
// speedMultiplier: 1.0 = real time, 2.0 = 2x speed (half waits), 0.5 = half speed.
func Play(records []Record, speedMultiplier float64, loop bool, sleeper Sleeper, cb func(in aim.Input) error) error {
	if speedMultiplier <= 0 {
		return fmt.Errorf("speedMultiplier must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(records) == 0 {
		return errors.New("no records")
	}

	for {
		var origin time.Duration
		var lastAt time.Duration
		var haveLast bool

		for _, r := range records {
			if r.Start {
				origin = r.At
				lastAt = 0
				haveLast = false
				continue
			}

			at := r.At - origin
			if at < 0 {
				at = 0
			}
			if haveLast {
				wait := at - lastAt
				if wait < 0 {
					wait = 0
				}
				wait = time.Duration(float64(wait) / speedMultiplier)
				if wait > 0 {
					sleeper.Sleep(wait)
				}
			}

			if err := cb(r.Input); err != nil {
				return err
			}

			lastAt = at
			haveLast = true
		}

		if !loop {
			return nil
		}
	}
}
