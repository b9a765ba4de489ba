package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"opticsight/internal/aim"
	"opticsight/internal/battery"
	"opticsight/internal/button"
	"opticsight/internal/config"
	"opticsight/internal/orientation"
	"opticsight/internal/rangefinder"
	"opticsight/internal/replay"
	"opticsight/internal/sensors/adxl343"
	"opticsight/internal/sim"
	"opticsight/internal/udp"
	"opticsight/internal/web"
)

type accelReader interface {
	Read() (r3.Vec, error)
}

type pressReader interface {
	Pressed() (bool, error)
}

// aimRuntime owns every input and output of one polling loop. All cycle
// state is touched from the loop goroutine only; other goroutines reach
// it through levelReq.
type aimRuntime struct {
	cfg    config.Config
	mode   string
	cycle  *aim.Cycle
	status *web.Status
	stream *web.SolutionBroadcaster

	accel  accelReader
	rx     aim.ByteSource
	port   *rangefinder.Port
	button pressReader
	sender *udp.Sender
	rec    *replay.Writer

	closers  []io.Closer
	ticker   *time.Ticker
	levelReq chan chan error

	lastAccel   r3.Vec
	lastPressed bool
	lastBars    int
	errs        map[string]string
}

func runMode(cfg config.Config) string {
	switch {
	case cfg.Replay.Enable:
		return "replay"
	case cfg.Sim.Enable:
		return "sim"
	default:
		return "live"
	}
}

func newCycle(cfg config.Config) (*aim.Cycle, error) {
	profile, err := cfg.Profile.BallisticProfile()
	if err != nil {
		return nil, err
	}
	est := orientation.NewEstimator(orientation.Config{
		WindowSize:     cfg.Accel.Window,
		PitchOffsetDeg: cfg.Accel.PitchOffsetDeg,
		RollOffsetDeg:  cfg.Accel.RollOffsetDeg,
	})
	return aim.NewCycle(est, aim.NewSolver(profile, cfg.Screen.Geometry())), nil
}

// newRuntime brings up the configured inputs. Hardware that fails to
// initialise is logged and left out; the loop keeps running and reports
// the failure in status.
func newRuntime(ctx context.Context, cfg config.Config, status *web.Status, stream *web.SolutionBroadcaster) (*aimRuntime, error) {
	c := cfg
	if err := config.DefaultAndValidate(&c); err != nil {
		return nil, err
	}
	if status == nil {
		return nil, fmt.Errorf("status is nil")
	}
	cycle, err := newCycle(c)
	if err != nil {
		return nil, err
	}

	r := &aimRuntime{
		cfg:      c,
		mode:     runMode(c),
		cycle:    cycle,
		status:   status,
		stream:   stream,
		levelReq: make(chan chan error),
		lastBars: -1,
		errs:     map[string]string{},
	}

	switch r.mode {
	case "sim":
		r.accel = &sim.Accelerometer{Sim: sim.ShooterSim{SwayDeg: c.Sim.SwayDeg, Period: c.Sim.Period}}
		r.rx = &sim.RangefinderSim{DistanceM: c.Sim.DistanceM, NoiseBytes: c.Sim.NoiseBytes, DropEvery: c.Sim.DropEvery}
		status.SetInput("accel", "sim")
		status.SetInput("rangefinder", "sim")
		log.Printf("sim enabled distance_m=%.2f sway_deg=%.1f period=%s", c.Sim.DistanceM, c.Sim.SwayDeg, c.Sim.Period)
	case "live":
		r.initHardware(ctx)
	}
	if r.mode != "replay" && c.Button.Enable {
		r.initButton()
	}

	if c.Display.Enable {
		s, err := udp.NewSender(c.Display.Dest)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("display sender init failed: %w", err)
		}
		r.sender = s
	}
	if c.Record.Enable {
		w, err := replay.CreateWriter(c.Record.Path)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("record init failed: %w", err)
		}
		r.rec = w
		log.Printf("recording path=%s", c.Record.Path)
	}

	if r.mode != "replay" {
		r.ticker = time.NewTicker(c.Loop.Interval)
	}
	status.SetStatic(r.mode, c.Display.Dest, c.Loop.Interval.String())
	return r, nil
}

func (r *aimRuntime) initHardware(ctx context.Context) {
	c := r.cfg
	if c.Accel.Enable {
		dev, closer, err := adxl343.Open(adxl343.Config{Bus: c.Accel.Bus, Device: c.Accel.Device, Addr: c.Accel.Addr})
		if err != nil {
			log.Printf("accel init failed: %v", err)
			r.status.SetInput("accel", err.Error())
		} else {
			r.accel = dev
			r.closers = append(r.closers, closer)
			r.status.SetInput("accel", "ok")
			log.Printf("accel enabled bus=%s device=%q", c.Accel.Bus, c.Accel.Device)
		}
	} else {
		r.status.SetInput("accel", "disabled")
	}

	if c.Rangefinder.Enable {
		p, err := rangefinder.OpenPort(ctx, c.Rangefinder.Device, c.Rangefinder.Baud)
		if err != nil {
			log.Printf("rangefinder init failed: %v", err)
			r.status.SetInput("rangefinder", err.Error())
		} else {
			r.port = p
			r.rx = p
			r.closers = append(r.closers, p)
			r.status.SetInput("rangefinder", "ok")
		}
	} else {
		r.status.SetInput("rangefinder", "disabled")
	}
}

func (r *aimRuntime) initButton() {
	b, err := button.Open(button.Config{Pin: r.cfg.Button.Pin, Debounce: r.cfg.Button.Debounce})
	if err != nil {
		log.Printf("button init failed: %v", err)
		r.status.SetInput("button", err.Error())
		return
	}
	r.button = b
	r.closers = append(r.closers, b)
	r.status.SetInput("button", "ok")
	log.Printf("button enabled pin=%d debounce=%s", r.cfg.Button.Pin, r.cfg.Button.Debounce)
}

func (r *aimRuntime) Close() {
	if r == nil {
		return
	}
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	if r.rec != nil {
		if err := r.rec.Close(); err != nil {
			log.Printf("record close failed: %v", err)
		}
		r.rec = nil
	}
	if r.sender != nil {
		_ = r.sender.Close()
		r.sender = nil
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i].Close()
	}
	r.closers = nil
}

func (r *aimRuntime) TickChan() <-chan time.Time {
	if r == nil || r.ticker == nil {
		return nil
	}
	return r.ticker.C
}

// Level implements web.Leveler by handing the request to the loop.
func (r *aimRuntime) Level(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case r.levelReq <- reply:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *aimRuntime) level() error {
	if err := r.cycle.Level(); err != nil {
		return err
	}
	log.Printf("orientation leveled")
	return nil
}

// serviceLevel answers a pending level request without blocking.
func (r *aimRuntime) serviceLevel() {
	select {
	case reply := <-r.levelReq:
		reply <- r.level()
	default:
	}
}

// Run polls until ctx is cancelled.
func (r *aimRuntime) Run(ctx context.Context) error {
	var batteryC <-chan time.Time
	if r.cfg.Battery.Enable {
		t := time.NewTicker(r.cfg.Battery.Interval)
		defer t.Stop()
		batteryC = t.C
		r.readBattery()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-r.TickChan():
			r.tick(now.UTC())
		case reply := <-r.levelReq:
			reply <- r.level()
		case <-batteryC:
			r.readBattery()
		}
	}
}

// tick runs one polling cycle from the live or simulated inputs.
func (r *aimRuntime) tick(now time.Time) aim.Solution {
	sol, in := r.cycle.Step(r.readAccel(), r.readButton(), r.rx)
	if r.rec != nil {
		r.noteErr("record", r.rec.WriteCycle(now, in))
	}
	r.publish(now, sol)
	return sol
}

// Replay drives the cycle from a capture at its recorded pace.
func (r *aimRuntime) Replay(ctx context.Context, records []replay.Record) error {
	log.Printf("replay starting records=%d speed=%.2fx loop=%t", len(records), r.cfg.Replay.Speed, r.cfg.Replay.Loop)
	err := replay.Play(records, r.cfg.Replay.Speed, r.cfg.Replay.Loop, ctxSleeper{ctx: ctx}, func(in aim.Input) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.serviceLevel()
		r.publish(time.Now().UTC(), r.cycle.Replay(in))
		return nil
	})
	if err == nil {
		log.Printf("replay finished")
	}
	return err
}

func (r *aimRuntime) publish(now time.Time, sol aim.Solution) {
	frames := 0
	if r.sender != nil {
		err := r.sender.SendSolution(sol, r.status.BatteryBars())
		r.noteErr("display send", err)
		if err == nil {
			frames = 1
		}
	}
	good, bad, resyncs := r.cycle.DecoderStats()
	var ps rangefinder.PortStats
	if r.port != nil {
		ps = r.port.Stats()
	}
	r.status.MarkCycle(now, sol, web.DecoderCounters{Good: good, BadChecksum: bad, Resyncs: resyncs}, ps, frames)
	r.stream.Publish(sol)
}

// readAccel returns the newest sample, or the previous one when the
// sensor is missing or the read fails.
func (r *aimRuntime) readAccel() r3.Vec {
	if r.accel == nil {
		return r.lastAccel
	}
	v, err := r.accel.Read()
	r.noteErr("accel read", err)
	if err != nil {
		return r.lastAccel
	}
	r.lastAccel = v
	return v
}

// readButton returns the current level, or the previous one when the read
// fails so a glitch mid-hold does not look like a second press.
func (r *aimRuntime) readButton() bool {
	if r.button == nil {
		return false
	}
	pressed, err := r.button.Pressed()
	r.noteErr("button read", err)
	if err != nil {
		return r.lastPressed
	}
	r.lastPressed = pressed
	return pressed
}

func (r *aimRuntime) readBattery() {
	lvl, err := battery.Read(r.cfg.Battery.Supply)
	r.noteErr("battery read", err)
	if err != nil {
		return
	}
	r.status.SetBattery(lvl)
	if lvl.Bars != r.lastBars {
		log.Printf("battery volts=%.2f bars=%d", lvl.Volts, lvl.Bars)
		r.lastBars = lvl.Bars
	}
}

// noteErr logs when an error starts, changes, or clears.
func (r *aimRuntime) noteErr(what string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	prev := r.errs[what]
	if msg == prev {
		return
	}
	r.errs[what] = msg
	if msg == "" {
		log.Printf("%s recovered", what)
		return
	}
	log.Printf("%s failed: %s", what, msg)
}

type ctxSleeper struct {
	ctx context.Context
}

func (s ctxSleeper) Sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.ctx.Done():
	}
}
