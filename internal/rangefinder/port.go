package rangefinder

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

const (
	DefaultDevice = "/dev/serial0"
	DefaultBaud   = 115200

	// Bytes kept between polls. At 115200 baud and 100 Hz frames this is
	// roughly a second of traffic.
	defaultRxBuffer = 1024
)

// Port is a UART receive buffer that the polling loop drains once per cycle.
//
// A background goroutine blocks on the serial device and appends to the
// buffer; Drain never blocks. When the loop falls behind, the oldest bytes
// are dropped, which the decoder treats like line noise.
type Port struct {
	mu      sync.Mutex
	buf     []byte
	max     int
	dropped uint64
	total   uint64
	lastErr string

	rc     io.ReadCloser
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OpenPort opens the serial device and starts the reader.
func OpenPort(ctx context.Context, device string, baud int) (*Port, error) {
	if ctx == nil {
		return nil, fmt.Errorf("rangefinder: ctx is nil")
	}
	device = strings.TrimSpace(device)
	if device == "" {
		device = DefaultDevice
	}
	if baud == 0 {
		baud = DefaultBaud
	}
	rc, err := openSerial(device, baud)
	if err != nil {
		return nil, fmt.Errorf("rangefinder: open device=%s baud=%d: %w", device, baud, err)
	}
	log.Printf("rangefinder enabled device=%s baud=%d", device, baud)
	return NewPort(ctx, rc, defaultRxBuffer), nil
}

// NewPort starts a reader on rc. max <= 0 selects the default buffer size.
func NewPort(ctx context.Context, rc io.ReadCloser, max int) *Port {
	if max <= 0 {
		max = defaultRxBuffer
	}
	childCtx, cancel := context.WithCancel(ctx)
	p := &Port{rc: rc, max: max, cancel: cancel}
	p.wg.Add(1)
	go p.run(childCtx)
	return p
}

func (p *Port) run(ctx context.Context) {
	defer p.wg.Done()
	chunk := make([]byte, 64)
	for {
		n, err := p.rc.Read(chunk)
		if n > 0 {
			p.push(chunk[:n])
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.setErr(fmt.Sprintf("rangefinder read stopped: %v", err))
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (p *Port) push(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total += uint64(len(b))
	p.buf = append(p.buf, b...)
	if over := len(p.buf) - p.max; over > 0 {
		p.buf = append(p.buf[:0], p.buf[over:]...)
		p.dropped += uint64(over)
	}
}

func (p *Port) setErr(msg string) {
	p.mu.Lock()
	p.lastErr = msg
	p.mu.Unlock()
	log.Print(msg)
}

// Drain returns every byte received since the previous Drain.
func (p *Port) Drain() []byte {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) == 0 {
		return nil
	}
	out := make([]byte, len(p.buf))
	copy(out, p.buf)
	p.buf = p.buf[:0]
	return out
}

type PortStats struct {
	BytesTotal   uint64 `json:"bytes_total"`
	BytesDropped uint64 `json:"bytes_dropped"`
	LastError    string `json:"last_error,omitempty"`
}

func (p *Port) Stats() PortStats {
	if p == nil {
		return PortStats{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return PortStats{BytesTotal: p.total, BytesDropped: p.dropped, LastError: p.lastErr}
}

// Close stops the reader and closes the device.
func (p *Port) Close() error {
	if p == nil {
		return nil
	}
	p.cancel()
	// Closing the device unblocks a pending Read.
	err := p.rc.Close()
	p.wg.Wait()
	return err
}
