package web

import (
	"sync"
	"sync/atomic"
	"time"

	"opticsight/internal/aim"
	"opticsight/internal/battery"
	"opticsight/internal/rangefinder"
)

// Status is the process-wide view served at /api/status. The polling loop
// is the only writer.
type Status struct {
	startUnixNano int64
	lastTickNano  int64

	cycles        uint64
	computed      uint64
	offScreen     uint64
	noRange       uint64
	displayFrames uint64

	mode        atomic.Value // string
	displayDest atomic.Value // string
	interval    atomic.Value // string

	mu       sync.RWMutex
	solution aim.Solution
	haveSol  bool
	decoder  DecoderCounters
	port     rangefinder.PortStats
	battery  *battery.Level
	inputs   map[string]string
}

type DecoderCounters struct {
	Good        uint64 `json:"good"`
	BadChecksum uint64 `json:"bad_checksum"`
	Resyncs     uint64 `json:"resyncs"`
}

func NewStatus() *Status {
	s := &Status{inputs: map[string]string{}}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.mode.Store("")
	s.displayDest.Store("")
	s.interval.Store("")
	return s
}

func (s *Status) SetStatic(mode string, displayDest string, interval string) {
	if mode != "" {
		s.mode.Store(mode)
	}
	if displayDest != "" {
		s.displayDest.Store(displayDest)
	}
	if interval != "" {
		s.interval.Store(interval)
	}
}

// SetInput records the bring-up state of one input ("ok", "sim", or an error).
func (s *Status) SetInput(name, state string) {
	s.mu.Lock()
	s.inputs[name] = state
	s.mu.Unlock()
}

func (s *Status) SetBattery(l battery.Level) {
	s.mu.Lock()
	s.battery = &l
	s.mu.Unlock()
}

// BatteryBars returns the last gauge reading, or 0 when unknown.
func (s *Status) BatteryBars() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.battery == nil {
		return 0
	}
	return s.battery.Bars
}

// MarkCycle records one solved cycle.
func (s *Status) MarkCycle(nowUTC time.Time, sol aim.Solution, dec DecoderCounters, port rangefinder.PortStats, displayFrames int) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.StoreInt64(&s.lastTickNano, nowUTC.UnixNano())
	atomic.AddUint64(&s.cycles, 1)
	switch {
	case sol.Computed:
		atomic.AddUint64(&s.computed, 1)
	case sol.Err == "":
		atomic.AddUint64(&s.noRange, 1)
	}
	if !sol.Pixel.OnScreen {
		atomic.AddUint64(&s.offScreen, 1)
	}
	if displayFrames > 0 {
		atomic.AddUint64(&s.displayFrames, uint64(displayFrames))
	}

	s.mu.Lock()
	s.solution = sol
	s.haveSol = true
	s.decoder = dec
	s.port = port
	s.mu.Unlock()
}

type CycleCounters struct {
	Total     uint64 `json:"total"`
	Computed  uint64 `json:"computed"`
	NoRange   uint64 `json:"no_range"`
	OffScreen uint64 `json:"off_screen"`
}

type StatusSnapshot struct {
	Service            string                `json:"service"`
	NowUTC             string                `json:"now_utc"`
	UptimeSec          int64                 `json:"uptime_sec"`
	Mode               string                `json:"mode"`
	DisplayDest        string                `json:"display_dest"`
	Interval           string                `json:"interval"`
	DisplayFramesTotal uint64                `json:"display_frames_total"`
	LastTickUTC        string                `json:"last_tick_utc,omitempty"`
	Cycles             CycleCounters         `json:"cycles"`
	Solution           *aim.Solution         `json:"solution,omitempty"`
	Decoder            DecoderCounters       `json:"decoder"`
	Serial             rangefinder.PortStats `json:"serial"`
	Battery            *battery.Level        `json:"battery,omitempty"`
	Inputs             map[string]string     `json:"inputs"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	lastTick := atomic.LoadInt64(&s.lastTickNano)

	snap := StatusSnapshot{
		Service:            "opticsight",
		NowUTC:             nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:          int64(nowUTC.Sub(start).Seconds()),
		Mode:               s.mode.Load().(string),
		DisplayDest:        s.displayDest.Load().(string),
		Interval:           s.interval.Load().(string),
		DisplayFramesTotal: atomic.LoadUint64(&s.displayFrames),
		Cycles: CycleCounters{
			Total:     atomic.LoadUint64(&s.cycles),
			Computed:  atomic.LoadUint64(&s.computed),
			NoRange:   atomic.LoadUint64(&s.noRange),
			OffScreen: atomic.LoadUint64(&s.offScreen),
		},
	}
	if lastTick != 0 {
		snap.LastTickUTC = time.Unix(0, lastTick).UTC().Format(time.RFC3339Nano)
	}

	s.mu.RLock()
	if s.haveSol {
		sol := s.solution
		snap.Solution = &sol
	}
	snap.Decoder = s.decoder
	snap.Serial = s.port
	if s.battery != nil {
		b := *s.battery
		snap.Battery = &b
	}
	snap.Inputs = make(map[string]string, len(s.inputs))
	for k, v := range s.inputs {
		snap.Inputs[k] = v
	}
	s.mu.RUnlock()
	return snap
}
