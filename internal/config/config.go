package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"opticsight/internal/ballistics"
	"opticsight/internal/screen"
)

type Config struct {
	Loop        LoopConfig        `yaml:"loop"`
	Accel       AccelConfig       `yaml:"accel"`
	Rangefinder RangefinderConfig `yaml:"rangefinder"`
	Button      ButtonConfig      `yaml:"button"`
	Battery     BatteryConfig     `yaml:"battery"`
	Profile     ProfileConfig     `yaml:"profile"`
	Screen      ScreenConfig      `yaml:"screen"`
	Display     DisplayConfig     `yaml:"display"`
	Web         WebConfig         `yaml:"web"`
	Record      RecordConfig      `yaml:"record"`
	Replay      ReplayConfig      `yaml:"replay"`
	Sim         SimConfig         `yaml:"sim"`
}

type LoopConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type AccelConfig struct {
	Enable bool   `yaml:"enable"`
	Bus    string `yaml:"bus"`
	Device string `yaml:"device"`
	Addr   uint16 `yaml:"i2c_addr"`

	Window         int     `yaml:"window"`
	PitchOffsetDeg float64 `yaml:"pitch_offset_deg"`
	RollOffsetDeg  float64 `yaml:"roll_offset_deg"`
}

type RangefinderConfig struct {
	Enable bool   `yaml:"enable"`
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type ButtonConfig struct {
	Enable   bool          `yaml:"enable"`
	Pin      int           `yaml:"pin"`
	Debounce time.Duration `yaml:"debounce"`
}

type BatteryConfig struct {
	Enable   bool          `yaml:"enable"`
	Supply   string        `yaml:"supply"`
	Interval time.Duration `yaml:"interval"`
}

// ProfileConfig selects the ballistic calibration. Explicit elevation_bias
// wins; otherwise calibration points are fitted; otherwise the built-in
// reference firing is used.
type ProfileConfig struct {
	MuzzleVelocity float64                       `yaml:"muzzle_velocity"`
	Gravity        float64                       `yaml:"gravity"`
	ElevationBias  *ballistics.Bias              `yaml:"elevation_bias"`
	LateralBias    float64                       `yaml:"lateral_bias"`
	Calibration    []ballistics.CalibrationPoint `yaml:"calibration"`
}

type ScreenConfig struct {
	EyeReliefM   float64 `yaml:"eye_relief_m"`
	SightHeightM float64 `yaml:"sight_height_m"`
	PixelPitchM  float64 `yaml:"pixel_pitch_m"`
	// Bounds as [min_x, max_x, min_y, max_y]; empty selects the OLED window.
	Bounds []int32 `yaml:"bounds"`
}

type DisplayConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type WebConfig struct {
	Enable   bool   `yaml:"enable"`
	Listen   string `yaml:"listen"`
	LogLines int    `yaml:"log_lines"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ReplayConfig struct {
	Enable bool    `yaml:"enable"`
	Path   string  `yaml:"path"`
	Speed  float64 `yaml:"speed"`
	Loop   bool    `yaml:"loop"`
}

type SimConfig struct {
	Enable    bool          `yaml:"enable"`
	DistanceM float64       `yaml:"distance_m"`
	SwayDeg   float64       `yaml:"sway_deg"`
	Period    time.Duration `yaml:"period"`
	// NoiseBytes is the number of junk bytes injected before each frame.
	NoiseBytes int `yaml:"noise_bytes"`
	// DropEvery skips one frame in N to exercise the disconnect path; 0 never drops.
	DropEvery int `yaml:"drop_every"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns a validated config for a bench run with no hardware.
func Default() Config {
	cfg := Config{Sim: SimConfig{Enable: true}}
	if err := DefaultAndValidate(&cfg); err != nil {
		panic(fmt.Sprintf("config: default invalid: %v", err))
	}
	return cfg
}

// DefaultAndValidate fills zero values and rejects inconsistent settings.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Loop.Interval == 0 {
		cfg.Loop.Interval = 50 * time.Millisecond
	}
	if cfg.Loop.Interval < 0 {
		return fmt.Errorf("loop.interval must be > 0")
	}

	cfg.Accel.Bus = strings.ToLower(strings.TrimSpace(cfg.Accel.Bus))
	if cfg.Accel.Bus == "" {
		cfg.Accel.Bus = "spi"
	}
	if cfg.Accel.Bus != "spi" && cfg.Accel.Bus != "i2c" {
		return fmt.Errorf("accel.bus must be 'spi' or 'i2c'")
	}
	if cfg.Accel.Addr == 0 {
		cfg.Accel.Addr = 0x53
	}
	if cfg.Accel.Window == 0 {
		cfg.Accel.Window = 5
	}
	if cfg.Accel.Window < 0 {
		return fmt.Errorf("accel.window must be > 0")
	}

	if strings.TrimSpace(cfg.Rangefinder.Device) == "" {
		cfg.Rangefinder.Device = "/dev/serial0"
	}
	if cfg.Rangefinder.Baud == 0 {
		cfg.Rangefinder.Baud = 115200
	}
	if cfg.Rangefinder.Baud < 0 {
		return fmt.Errorf("rangefinder.baud must be > 0")
	}

	if cfg.Button.Pin == 0 {
		cfg.Button.Pin = 16
	}
	if cfg.Button.Pin < 0 {
		return fmt.Errorf("button.pin must be >= 0")
	}
	if cfg.Button.Debounce <= 0 {
		cfg.Button.Debounce = 10 * time.Millisecond
	}

	if cfg.Battery.Interval <= 0 {
		cfg.Battery.Interval = 10 * time.Second
	}

	if err := defaultProfile(&cfg.Profile); err != nil {
		return err
	}
	if err := defaultScreen(&cfg.Screen); err != nil {
		return err
	}

	if cfg.Display.Enable && strings.TrimSpace(cfg.Display.Dest) == "" {
		return fmt.Errorf("display.dest is required when display.enable is true")
	}

	if strings.TrimSpace(cfg.Web.Listen) == "" {
		cfg.Web.Listen = ":8080"
	}
	if cfg.Web.LogLines <= 0 {
		cfg.Web.LogLines = 2000
	}

	if cfg.Record.Enable && strings.TrimSpace(cfg.Record.Path) == "" {
		return fmt.Errorf("record.path is required when record.enable is true")
	}
	if cfg.Replay.Enable {
		if strings.TrimSpace(cfg.Replay.Path) == "" {
			return fmt.Errorf("replay.path is required when replay.enable is true")
		}
		if cfg.Replay.Speed == 0 {
			cfg.Replay.Speed = 1
		}
		if cfg.Replay.Speed < 0 {
			return fmt.Errorf("replay.speed must be > 0")
		}
	}
	if cfg.Record.Enable && cfg.Replay.Enable {
		return fmt.Errorf("record and replay cannot both be enabled")
	}
	if cfg.Sim.Enable && cfg.Replay.Enable {
		return fmt.Errorf("sim and replay cannot both be enabled")
	}

	// Simulator defaults (safe even if disabled).
	if cfg.Sim.DistanceM <= 0 {
		cfg.Sim.DistanceM = 91.44
	}
	if cfg.Sim.SwayDeg == 0 {
		cfg.Sim.SwayDeg = 2
	}
	if cfg.Sim.Period <= 0 {
		cfg.Sim.Period = 8 * time.Second
	}
	if cfg.Sim.NoiseBytes < 0 || cfg.Sim.DropEvery < 0 {
		return fmt.Errorf("sim.noise_bytes and sim.drop_every must be >= 0")
	}

	return nil
}

func defaultProfile(p *ProfileConfig) error {
	if p.MuzzleVelocity == 0 {
		p.MuzzleVelocity = ballistics.DefaultMuzzleVelocity
	}
	if p.MuzzleVelocity < 0 {
		return fmt.Errorf("profile.muzzle_velocity must be > 0")
	}
	if p.Gravity == 0 {
		p.Gravity = ballistics.StandardGravity
	}
	if p.Gravity < 0 {
		return fmt.Errorf("profile.gravity must be >= 0")
	}
	if p.ElevationBias == nil && len(p.Calibration) == 1 {
		return fmt.Errorf("profile.calibration needs at least 2 points")
	}
	return nil
}

func defaultScreen(s *ScreenConfig) error {
	g := screen.DefaultGeometry()
	if s.EyeReliefM == 0 {
		s.EyeReliefM = g.EyeReliefM
	}
	if s.SightHeightM == 0 {
		s.SightHeightM = g.SightHeightM
	}
	if s.PixelPitchM == 0 {
		s.PixelPitchM = g.PixelPitchM
	}
	if s.EyeReliefM < 0 || s.PixelPitchM < 0 {
		return fmt.Errorf("screen.eye_relief_m and screen.pixel_pitch_m must be > 0")
	}
	switch len(s.Bounds) {
	case 0:
		s.Bounds = []int32{g.MinX, g.MaxX, g.MinY, g.MaxY}
	case 4:
		if s.Bounds[0] >= s.Bounds[1] || s.Bounds[2] >= s.Bounds[3] {
			return fmt.Errorf("screen.bounds must be [min_x, max_x, min_y, max_y] with min < max")
		}
	default:
		return fmt.Errorf("screen.bounds must have 4 values")
	}
	return nil
}

// BallisticProfile resolves the configured calibration into a profile.
func (p ProfileConfig) BallisticProfile() (ballistics.Profile, error) {
	out := ballistics.Profile{
		MuzzleVelocity: p.MuzzleVelocity,
		Gravity:        p.Gravity,
		LateralBias:    p.LateralBias,
	}
	switch {
	case p.ElevationBias != nil:
		out.ElevationBias = *p.ElevationBias
	default:
		pts := p.Calibration
		if len(pts) == 0 {
			pts = ballistics.ReferencePoints
		}
		bias, err := ballistics.FitBias(pts, p.MuzzleVelocity, p.Gravity)
		if err != nil {
			return ballistics.Profile{}, fmt.Errorf("profile.calibration: %w", err)
		}
		out.ElevationBias = bias
	}
	if err := out.Validate(); err != nil {
		return ballistics.Profile{}, err
	}
	return out, nil
}

// Geometry returns the projector geometry. Call after DefaultAndValidate.
func (s ScreenConfig) Geometry() screen.Geometry {
	g := screen.Geometry{
		EyeReliefM:   s.EyeReliefM,
		SightHeightM: s.SightHeightM,
		PixelPitchM:  s.PixelPitchM,
	}
	if len(s.Bounds) == 4 {
		g.MinX, g.MaxX, g.MinY, g.MaxY = s.Bounds[0], s.Bounds[1], s.Bounds[2], s.Bounds[3]
	}
	return g
}
