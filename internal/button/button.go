// Package button reads the range-lock push button.
package button

import (
	"fmt"
	"time"
)

const (
	DefaultPin      = 16
	DefaultDebounce = 10 * time.Millisecond

	consumer = "opticsight-lock"
)

type Config struct {
	// Pin is the BCM GPIO number, wired active-low to ground.
	Pin      int
	Debounce time.Duration
}

// Button is a debounced digital input.
type Button struct {
	line inputLine
}

type inputLine interface {
	// Value returns the logical level; active-low is already applied.
	Value() (int, error)
	Close() error
}

// Open requests the GPIO line as an input with pull-up and kernel debounce.
func Open(cfg Config) (*Button, error) {
	if cfg.Pin == 0 {
		cfg.Pin = DefaultPin
	}
	if cfg.Pin < 0 {
		return nil, fmt.Errorf("button: invalid gpio pin %d", cfg.Pin)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	line, err := openLineFn(cfg.Pin, cfg.Debounce)
	if err != nil {
		return nil, err
	}
	return &Button{line: line}, nil
}

// Pressed reports the current debounced level.
func (b *Button) Pressed() (bool, error) {
	if b == nil || b.line == nil {
		return false, fmt.Errorf("button: not initialized")
	}
	v, err := b.line.Value()
	if err != nil {
		return false, fmt.Errorf("button: read: %w", err)
	}
	return v != 0, nil
}

func (b *Button) Close() error {
	if b == nil || b.line == nil {
		return nil
	}
	err := b.line.Close()
	b.line = nil
	return err
}
