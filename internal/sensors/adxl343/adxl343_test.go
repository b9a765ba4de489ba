package adxl343

import (
	"errors"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/spi"
)

type fakeRegs struct {
	regs   map[byte][]byte
	writes []writeOp

	readErrFor map[byte]error
	// ignoreMeasure drops writes to POWER_CTL.
	ignoreMeasure bool
}

type writeOp struct {
	reg byte
	val byte
}

func (f *fakeRegs) ReadRegU8(reg byte) (byte, error) {
	if err := f.readErrFor[reg]; err != nil {
		return 0, err
	}
	b := f.regs[reg]
	if len(b) < 1 {
		return 0, errors.New("no reg")
	}
	return b[0], nil
}

func (f *fakeRegs) ReadReg(reg byte, dst []byte) error {
	if err := f.readErrFor[reg]; err != nil {
		return err
	}
	b := f.regs[reg]
	if len(b) < len(dst) {
		return errors.New("short reg")
	}
	copy(dst, b[:len(dst)])
	return nil
}

func (f *fakeRegs) WriteReg(reg, value byte) error {
	f.writes = append(f.writes, writeOp{reg: reg, val: value})
	if reg == regPowerCtl && f.ignoreMeasure {
		return nil
	}
	f.regs[reg] = []byte{value}
	return nil
}

func noSleep(t *testing.T) {
	t.Helper()
	old := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = old })
}

func TestNew_DevIDMismatch(t *testing.T) {
	noSleep(t)
	f := &fakeRegs{regs: map[byte][]byte{regDevID: {0x00}}}
	if _, err := newWithIO(f); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNew_SetsMeasureBit(t *testing.T) {
	noSleep(t)
	f := &fakeRegs{regs: map[byte][]byte{regDevID: {devIDVal}, regPowerCtl: {0x01}}}
	if _, err := newWithIO(f); err != nil {
		t.Fatalf("newWithIO: %v", err)
	}
	if len(f.writes) != 1 {
		t.Fatalf("writes=%v want 1", f.writes)
	}
	if f.writes[0] != (writeOp{reg: regPowerCtl, val: 0x09}) {
		t.Fatalf("write=%+v want POWER_CTL=0x09", f.writes[0])
	}
}

func TestNew_MeasureBitNotLatched(t *testing.T) {
	noSleep(t)
	f := &fakeRegs{regs: map[byte][]byte{regDevID: {devIDVal}, regPowerCtl: {0x00}}, ignoreMeasure: true}
	if _, err := newWithIO(f); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRead_ScalesLittleEndian(t *testing.T) {
	noSleep(t)
	f := &fakeRegs{regs: map[byte][]byte{
		regDevID:    {devIDVal},
		regPowerCtl: {0x00},
		// x=+256 (1 g), y=-256 (-1 g), z=+128 (0.5 g)
		regDataX0: {0x00, 0x01, 0x00, 0xFF, 0x80, 0x00},
	}}
	d, err := newWithIO(f)
	if err != nil {
		t.Fatalf("newWithIO: %v", err)
	}
	v, err := d.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	g := standardGravity
	if math.Abs(v.X-g) > 1e-9 || math.Abs(v.Y+g) > 1e-9 || math.Abs(v.Z-g/2) > 1e-9 {
		t.Fatalf("v=%+v want (%v,%v,%v)", v, g, -g, g/2)
	}
}

func TestRead_Error(t *testing.T) {
	noSleep(t)
	f := &fakeRegs{regs: map[byte][]byte{regDevID: {devIDVal}, regPowerCtl: {0x00}}}
	d, err := newWithIO(f)
	if err != nil {
		t.Fatalf("newWithIO: %v", err)
	}
	f.readErrFor = map[byte]error{regDataX0: errors.New("bus")}
	if _, err := d.Read(); err == nil {
		t.Fatalf("expected error")
	}
	var nilDev *Device
	if _, err := nilDev.Read(); err == nil {
		t.Fatalf("expected error for nil device")
	}
}

type fakeSPI struct {
	lastW []byte
	reply []byte
}

func (f *fakeSPI) String() string               { return "fake" }
func (f *fakeSPI) Duplex() conn.Duplex          { return conn.Full }
func (f *fakeSPI) TxPackets([]spi.Packet) error { return errors.New("unsupported") }

func (f *fakeSPI) Tx(w, r []byte) error {
	f.lastW = append([]byte(nil), w...)
	copy(r, f.reply)
	return nil
}

func TestSPIIO_CommandByte(t *testing.T) {
	cases := []struct {
		name string
		reg  byte
		n    int
		want byte
	}{
		{name: "Single", reg: regDevID, n: 1, want: 0x80},
		{name: "Multi", reg: regDataX0, n: 6, want: 0xF2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeSPI{reply: []byte{0x00, 0xE5, 1, 2, 3, 4, 5}}
			s := &spiIO{conn: f}
			dst := make([]byte, tc.n)
			if err := s.ReadReg(tc.reg, dst); err != nil {
				t.Fatalf("ReadReg: %v", err)
			}
			if f.lastW[0] != tc.want || len(f.lastW) != tc.n+1 {
				t.Fatalf("cmd=0x%02X len=%d want 0x%02X len=%d", f.lastW[0], len(f.lastW), tc.want, tc.n+1)
			}
			if dst[0] != 0xE5 {
				t.Fatalf("dst[0]=0x%02X want 0xE5", dst[0])
			}
		})
	}
}

func TestSPIIO_Write(t *testing.T) {
	f := &fakeSPI{}
	s := &spiIO{conn: f}
	if err := s.WriteReg(regPowerCtl, bitMeasure); err != nil {
		t.Fatalf("WriteReg: %v", err)
	}
	if len(f.lastW) != 2 || f.lastW[0] != 0x2D || f.lastW[1] != 0x08 {
		t.Fatalf("w=% X want 2D 08", f.lastW)
	}
}
