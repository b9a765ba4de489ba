package adxl343

import (
	"fmt"
	"io"
	"strings"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	BusSPI = "spi"
	BusI2C = "i2c"

	spiFreq = physic.MegaHertz

	spiRead      = 0x80
	spiMultiByte = 0x40
)

type Config struct {
	// Bus is "spi" or "i2c".
	Bus string
	// Device is the periph port name, e.g. "/dev/spidev0.0" or "1".
	// Empty selects the first registered port.
	Device string
	// Addr is the I2C address (default 0x53).
	Addr uint16
}

// Open brings up the host drivers and the configured bus, then checks the
// part. The returned closer releases the bus.
func Open(cfg Config) (*Device, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("adxl343: periph host init: %w", err)
	}

	var (
		rio    regIO
		closer io.Closer
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Bus)) {
	case "", BusSPI:
		port, err := spireg.Open(cfg.Device)
		if err != nil {
			return nil, nil, fmt.Errorf("adxl343: open spi %q: %w", cfg.Device, err)
		}
		conn, err := port.Connect(spiFreq, spi.Mode3, 8)
		if err != nil {
			_ = port.Close()
			return nil, nil, fmt.Errorf("adxl343: spi connect: %w", err)
		}
		rio, closer = &spiIO{conn: conn}, port
	case BusI2C:
		bus, err := i2creg.Open(cfg.Device)
		if err != nil {
			return nil, nil, fmt.Errorf("adxl343: open i2c %q: %w", cfg.Device, err)
		}
		addr := cfg.Addr
		if addr == 0 {
			addr = addrDefault
		}
		rio, closer = &i2cIO{dev: &i2c.Dev{Addr: addr, Bus: bus}}, bus
	default:
		return nil, nil, fmt.Errorf("adxl343: unknown bus %q", cfg.Bus)
	}

	d, err := newWithIO(rio)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return d, closer, nil
}

// spiIO frames register access as a command byte: read flag, multi-byte
// flag, then the 6-bit register address.
type spiIO struct {
	conn spi.Conn
}

func (s *spiIO) ReadRegU8(reg byte) (byte, error) {
	var b [1]byte
	if err := s.ReadReg(reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *spiIO) ReadReg(reg byte, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	cmd := spiRead | reg&0x3F
	if len(dst) > 1 {
		cmd |= spiMultiByte
	}
	w := make([]byte, len(dst)+1)
	r := make([]byte, len(dst)+1)
	w[0] = cmd
	if err := s.conn.Tx(w, r); err != nil {
		return err
	}
	copy(dst, r[1:])
	return nil
}

func (s *spiIO) WriteReg(reg, value byte) error {
	return s.conn.Tx([]byte{reg & 0x3F, value}, nil)
}

type i2cIO struct {
	dev *i2c.Dev
}

func (d *i2cIO) ReadRegU8(reg byte) (byte, error) {
	var b [1]byte
	if err := d.dev.Tx([]byte{reg}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *i2cIO) ReadReg(reg byte, dst []byte) error {
	return d.dev.Tx([]byte{reg}, dst)
}

func (d *i2cIO) WriteReg(reg, value byte) error {
	return d.dev.Tx([]byte{reg, value}, nil)
}
