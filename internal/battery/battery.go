// Package battery maps the cell voltage onto the 0-4 bar gauge shown next
// to the distance readout.
package battery

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultSupply = "/sys/class/power_supply/battery"

	// Single Li-ion cell: empty and full voltages.
	cellLowV  = 2.8
	cellHighV = 4.2

	MaxBars = 4
)

// Bars converts a cell voltage into gauge bars.
func Bars(volts float64) int {
	scaled := (volts - cellLowV) * 5 / (cellHighV - cellLowV)
	switch {
	case scaled > 4:
		return 4
	case scaled > 3:
		return 3
	case scaled > 2:
		return 2
	case scaled > 1:
		return 1
	default:
		return 0
	}
}

func parseVoltage(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("battery: voltage empty")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("battery: parse voltage %q: %w", s, err)
	}
	// power_supply reports microvolts; some drivers report millivolts.
	if n > 100000 {
		return float64(n) / 1e6, nil
	}
	if n > 100 {
		return float64(n) / 1e3, nil
	}
	return float64(n), nil
}

// ReadVoltage reads voltage_now from a power_supply directory.
func ReadVoltage(supplyDir string) (float64, error) {
	if strings.TrimSpace(supplyDir) == "" {
		supplyDir = DefaultSupply
	}
	b, err := os.ReadFile(filepath.Join(supplyDir, "voltage_now"))
	if err != nil {
		return 0, fmt.Errorf("battery: read voltage: %w", err)
	}
	return parseVoltage(string(b))
}

// Level is one gauge reading.
type Level struct {
	Volts float64 `json:"volts"`
	Bars  int     `json:"bars"`
}

// Read returns the current gauge level.
func Read(supplyDir string) (Level, error) {
	v, err := ReadVoltage(supplyDir)
	if err != nil {
		return Level{}, err
	}
	return Level{Volts: v, Bars: Bars(v)}, nil
}
