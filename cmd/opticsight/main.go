package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"opticsight/internal/config"
	"opticsight/internal/replay"
	"opticsight/internal/web"
)

var _ web.Leveler = (*aimRuntime)(nil)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type configLoader func() (config.Config, error)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "opticsight",
		Short:        "Aiming dot for a handheld optic: tilt, range and drop to a screen pixel",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (empty runs the built-in simulator)")

	load := func() (config.Config, error) {
		if strings.TrimSpace(configPath) == "" {
			return config.Default(), nil
		}
		return config.Load(configPath)
	}

	root.AddCommand(newRunCmd(load), newSolveCmd(load), newReplayCmd(load))
	return root
}

func newRunCmd(load configLoader) *cobra.Command {
	var (
		forceSim   bool
		replayPath string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the polling loop against hardware, the simulator, or a capture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			if forceSim {
				cfg.Sim.Enable = true
				cfg.Replay.Enable = false
			}
			if strings.TrimSpace(replayPath) != "" {
				cfg.Sim.Enable = false
				cfg.Record.Enable = false
				cfg.Replay.Enable = true
				cfg.Replay.Path = replayPath
			}
			if err := config.DefaultAndValidate(&cfg); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg, os.Stderr)
		},
	}
	cmd.Flags().BoolVar(&forceSim, "sim", false, "Use the simulated accelerometer and rangefinder")
	cmd.Flags().StringVar(&replayPath, "replay", "", "Replay a capture file instead of polling inputs")
	return cmd
}

// run wires the runtime, the web UI and the log tee, then blocks until ctx
// ends or a finite replay completes.
func run(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	logs := web.NewLogBuffer(cfg.Web.LogLines)
	prevOut := log.Writer()
	log.SetOutput(io.MultiWriter(logOut, logs))
	defer log.SetOutput(prevOut)

	status := web.NewStatus()
	stream := web.NewSolutionBroadcaster()

	r, err := newRuntime(ctx, cfg, status, stream)
	if err != nil {
		return err
	}
	defer r.Close()

	log.Printf("opticsight starting mode=%s interval=%s", r.mode, cfg.Loop.Interval)
	if cfg.Display.Enable {
		log.Printf("display dest=%s", cfg.Display.Dest)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Web.Enable {
		go func() {
			log.Printf("web listening addr=%s", cfg.Web.Listen)
			err := web.Serve(ctx, cfg.Web.Listen, web.Handler(status, logs, stream, r))
			if err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
				cancel()
			}
		}()
	}

	if cfg.Replay.Enable {
		var records []replay.Record
		records, err = replay.Load(cfg.Replay.Path)
		if err != nil {
			return fmt.Errorf("replay load failed: %w", err)
		}
		err = r.Replay(ctx, records)
	} else {
		err = r.Run(ctx)
	}
	log.Printf("opticsight stopping")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
