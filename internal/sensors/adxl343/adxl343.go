package adxl343

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

var sleep = time.Sleep

// Minimal ADXL343 driver.
//
// Check DEVID, set the measure bit, then read the 6-byte data block.
// The part powers up in ±2 g, 10-bit mode, which is what the scale assumes.

const (
	addrDefault = 0x53

	regDevID    = 0x00
	devIDVal    = 0xE5
	regPowerCtl = 0x2D
	bitMeasure  = 1 << 3
	regDataX0   = 0x32

	// g per LSB in the power-on ±2 g range.
	sensitivity2G   = 1.0 / 256
	standardGravity = 9.80665
)

type Device struct {
	dev   regIO
	scale float64
}

type regIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

func DefaultAddress() uint16 { return addrDefault }

func newWithIO(dev regIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("adxl343: dev is nil")
	}
	d := &Device{dev: dev, scale: sensitivity2G * standardGravity}

	// The first SPI transfer after power-up leaves SCK in the wrong idle
	// state; its result is discarded.
	_, _ = d.dev.ReadRegU8(regDevID)

	id, err := d.dev.ReadRegU8(regDevID)
	if err != nil {
		return nil, fmt.Errorf("adxl343: devid read failed: %w", err)
	}
	if id != devIDVal {
		return nil, fmt.Errorf("adxl343: devid=0x%02X want 0x%02X", id, devIDVal)
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) init() error {
	pc, err := d.dev.ReadRegU8(regPowerCtl)
	if err != nil {
		return fmt.Errorf("adxl343: power_ctl read failed: %w", err)
	}
	if err := d.dev.WriteReg(regPowerCtl, pc|bitMeasure); err != nil {
		return fmt.Errorf("adxl343: measure enable failed: %w", err)
	}
	pc, err = d.dev.ReadRegU8(regPowerCtl)
	if err != nil {
		return fmt.Errorf("adxl343: power_ctl readback failed: %w", err)
	}
	if pc&bitMeasure == 0 {
		return fmt.Errorf("adxl343: measure bit not set power_ctl=0x%02X", pc)
	}
	// First conversion at the default 100 Hz output rate.
	sleep(20 * time.Millisecond)
	return nil
}

// Read returns acceleration in m/s^2 in the sensor frame.
func (d *Device) Read() (r3.Vec, error) {
	if d == nil {
		return r3.Vec{}, fmt.Errorf("adxl343: device is nil")
	}
	buf := make([]byte, 6)
	if err := d.dev.ReadReg(regDataX0, buf); err != nil {
		return r3.Vec{}, fmt.Errorf("adxl343: read data failed: %w", err)
	}

	ax := int16(uint16(buf[1])<<8 | uint16(buf[0]))
	ay := int16(uint16(buf[3])<<8 | uint16(buf[2]))
	az := int16(uint16(buf[5])<<8 | uint16(buf[4]))

	return r3.Vec{
		X: float64(ax) * d.scale,
		Y: float64(ay) * d.scale,
		Z: float64(az) * d.scale,
	}, nil
}
