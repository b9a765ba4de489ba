package main

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"opticsight/internal/aim"
	"opticsight/internal/replay"
)

type captureSummary struct {
	Segments    int
	Cycles      int
	Pressed     int
	SerialBytes uint64
	MaxDuration time.Duration

	Computed  int
	OffScreen int
	Errors    int
	Locks     int
	Kinds     map[string]int

	Good        uint64
	BadChecksum uint64
	Resyncs     uint64
}

// summarizeCapture walks a capture and, when cycle is non-nil, re-solves
// every record through it.
func summarizeCapture(records []replay.Record, cycle *aim.Cycle) captureSummary {
	s := captureSummary{Kinds: map[string]int{}}
	if len(records) == 0 {
		return s
	}

	origin := time.Duration(0)
	hasCycles := false
	segments := 0
	locked := false

	for _, r := range records {
		if r.Start {
			segments++
			origin = r.At
			continue
		}
		hasCycles = true

		s.Cycles++
		at := r.At - origin
		if at < 0 {
			at = 0
		}
		if at > s.MaxDuration {
			s.MaxDuration = at
		}
		if r.Input.Pressed {
			s.Pressed++
		}
		s.SerialBytes += uint64(len(r.Input.Serial))

		if cycle == nil {
			continue
		}
		sol := cycle.Replay(r.Input)
		if sol.Computed {
			s.Computed++
		}
		if sol.Err != "" {
			s.Errors++
		}
		if !sol.Pixel.OnScreen {
			s.OffScreen++
		}
		if sol.Locked && !locked {
			s.Locks++
		}
		locked = sol.Locked
		s.Kinds[sol.Distance.Kind().String()]++
	}
	if segments == 0 && hasCycles {
		segments = 1
	}
	s.Segments = segments
	if cycle != nil {
		s.Good, s.BadChecksum, s.Resyncs = cycle.DecoderStats()
	}
	return s
}

func printCaptureSummary(w io.Writer, path string, s captureSummary) {
	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "cycles: %s\n", humanize.Comma(int64(s.Cycles)))
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	fmt.Fprintf(w, "button_pressed_cycles: %s\n", humanize.Comma(int64(s.Pressed)))
	fmt.Fprintf(w, "serial_bytes: %s\n", humanize.Bytes(s.SerialBytes))
	fmt.Fprintf(w, "frames: good=%s bad_checksum=%s resyncs=%s\n",
		humanize.Comma(int64(s.Good)), humanize.Comma(int64(s.BadChecksum)), humanize.Comma(int64(s.Resyncs)))
	fmt.Fprintf(w, "solutions: computed=%s off_screen=%s errors=%s locks=%d\n",
		humanize.Comma(int64(s.Computed)), humanize.Comma(int64(s.OffScreen)), humanize.Comma(int64(s.Errors)), s.Locks)

	kinds := make([]string, 0, len(s.Kinds))
	for k := range s.Kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	fmt.Fprintf(w, "distance_kinds:\n")
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s: %s\n", k, humanize.Comma(int64(s.Kinds[k])))
	}
}

func newReplayCmd(load configLoader) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "replay <capture>",
		Short: "Re-solve a capture offline and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			if path == "" {
				return fmt.Errorf("path is empty")
			}
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			records, err := replay.Load(path)
			if err != nil {
				return err
			}
			cycle, err := newCycle(cfg)
			if err != nil {
				return err
			}
			if !verbose {
				prev := log.Writer()
				log.SetOutput(io.Discard)
				defer log.SetOutput(prev)
			}
			printCaptureSummary(cmd.OutOrStdout(), path, summarizeCapture(records, cycle))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log state transitions while re-solving")
	return cmd
}
