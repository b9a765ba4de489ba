package main

import (
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"opticsight/internal/aim"
	"opticsight/internal/ballistics"
	"opticsight/internal/orientation"
	"opticsight/internal/rangefinder"
)

const metersPerYard = 0.9144

func newSolveCmd(load configLoader) *cobra.Command {
	var (
		distanceM    float64
		distanceYd   float64
		elevationDeg float64
		cantDeg      float64
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Compute the drop and dot position for one shot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			profile, err := cfg.Profile.BallisticProfile()
			if err != nil {
				return err
			}
			d := distanceM
			if cmd.Flags().Changed("yards") {
				d = distanceYd * metersPerYard
			}
			if err := validateShot(d, elevationDeg, cantDeg); err != nil {
				return err
			}
			solver := aim.NewSolver(profile, cfg.Screen.Geometry())
			return printSolve(cmd.OutOrStdout(), solver, d, elevationDeg, cantDeg)
		},
	}
	cmd.Flags().Float64Var(&distanceM, "distance", 91.44, "Target distance in metres")
	cmd.Flags().Float64Var(&distanceYd, "yards", 0, "Target distance in yards (overrides --distance)")
	cmd.Flags().Float64Var(&elevationDeg, "elevation", 0, "Elevation (pitch) in degrees, positive up")
	cmd.Flags().Float64Var(&cantDeg, "cant", 0, "Cant (roll) in degrees")
	return cmd
}

// maxSolveDistanceM is far beyond the rangefinder's limit but keeps the
// centimetre conversion inside int32.
const maxSolveDistanceM = 1e6

func validateShot(distanceM, elevationDeg, cantDeg float64) error {
	if math.IsNaN(distanceM) || math.IsInf(distanceM, 0) {
		return fmt.Errorf("distance must be finite, got %v", distanceM)
	}
	if distanceM < 0 || distanceM > maxSolveDistanceM {
		return fmt.Errorf("distance must be in [0, %s] m, got %v", humanize.Comma(maxSolveDistanceM), distanceM)
	}
	if math.IsNaN(elevationDeg) || math.IsInf(elevationDeg, 0) {
		return fmt.Errorf("elevation must be finite, got %v", elevationDeg)
	}
	if math.IsNaN(cantDeg) || math.IsInf(cantDeg, 0) {
		return fmt.Errorf("cant must be finite, got %v", cantDeg)
	}
	return nil
}

// printSolve runs the distance through the rangefinder's centimetre
// encoding so out-of-range input behaves as it does on the device.
func printSolve(w io.Writer, solver *aim.Solver, distanceM, elevationDeg, cantDeg float64) error {
	dist := rangefinder.DistanceFromCM(int(math.Round(distanceM * 100)))
	sol := solver.Solve(orientation.Sample{
		MagnitudeR:    ballistics.StandardGravity,
		PitchThetaDeg: elevationDeg,
		RollAlphaDeg:  cantDeg,
	}, dist)

	fmt.Fprintf(w, "distance: %s\n", dist)
	fmt.Fprintf(w, "elevation_deg: %s\n", humanize.FtoaWithDigits(elevationDeg, 2))
	fmt.Fprintf(w, "cant_deg: %s\n", humanize.FtoaWithDigits(cantDeg, 2))
	if m, ok := dist.Meters(); ok {
		if tof, err := ballistics.TimeOfFlight(m, elevationDeg, solver.Profile); err == nil {
			fmt.Fprintf(w, "time_of_flight_s: %s\n", humanize.FtoaWithDigits(tof, 4))
		}
	}
	if sol.Computed {
		fmt.Fprintf(w, "drop_m: lateral=%s vertical=%s\n",
			humanize.FtoaWithDigits(sol.Drop.X, 4), humanize.FtoaWithDigits(sol.Drop.Z, 4))
	} else if sol.Err == "" {
		fmt.Fprintf(w, "drop_m: not computed\n")
	}
	if sol.Err != "" {
		fmt.Fprintf(w, "error: %s\n", sol.Err)
	}
	fmt.Fprintf(w, "pixel: x=%d y=%d on_screen=%t\n", sol.Pixel.X, sol.Pixel.Y, sol.Pixel.OnScreen)
	return nil
}
