// Command secsdemo drives a small rendering-shaped scene through secs.
//
// Window surfaces are built asynchronously into Lazy cells, cameras orbit and
// flag their transforms as changed, and renderers pick both up through
// indirect references. Everything runs on one shared world driven by a Runner.
//
// Usage:
//
//	secsdemo [-config secsdemo.yaml] [-profile cpu|mem]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"

	"github.com/oriumgames/secs"
	"github.com/oriumgames/secs/internal/config"
	"github.com/oriumgames/secs/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	profileMode := flag.String("profile", "", "write a cpu or mem profile")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *profileMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, profileMode string) error {
	log := logging.Default()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if profileMode != "" {
		cfg.Profile.Mode = profileMode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log = logging.New(cfg.Logging, secs.Version)
	slog.SetDefault(log.Logger)
	log.Info("configuration loaded",
		"path", configPath,
		"tick_rate", cfg.GetTickRate(),
		"ticks", cfg.Runner.Ticks,
		"windows", cfg.Scene.Windows,
	)

	if p := startProfile(cfg.Profile); p != nil {
		defer p.Stop()
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	stats, err := simulate(ctx, stop, cfg, log)
	if err != nil {
		return err
	}
	log.Info("finished",
		"frames", stats.Frames.Load(),
		"skipped", stats.Skipped.Load(),
		"rebuilds", stats.Rebuilds.Load(),
		"failures", stats.Failures.Load(),
	)
	return nil
}

// simulate builds the scene and runs it until ctx is done or stop is called.
func simulate(ctx context.Context, stop context.CancelFunc, cfg *config.Config, log *logging.Logger) (*Stats, error) {
	w := secs.NewWorld(secs.WithWorldLogger(log.With("component", "world").Logger))
	sc, err := spawnScene(w, cfg)
	if err != nil {
		return nil, err
	}
	h := secs.NewHandle(w)

	s, err := buildSchedules(ctx, stop, log.Logger, sc, cfg.Runner.Ticks, cfg.Runner.Workers)
	if err != nil {
		return nil, fmt.Errorf("building schedules: %w", err)
	}

	runner := secs.NewRunner(h,
		secs.WithTickRate(cfg.GetTickRate()),
		secs.WithLogger(log.With("component", "runner").Logger),
	).
		Loop(s.input, 0, secs.Before).
		Loop(s.frame, 0, secs.Default).
		Loop(s.stats, time.Second, secs.After).
		Loop(s.limit, 0, secs.After)

	runner.After(newSpawnWindow(log.Logger, "late-window", sc.camera), 10*cfg.GetTickRate())
	if cfg.Runner.Ticks > 0 {
		runner.After(newResize(log.Logger, sc.windows[0]), time.Duration(cfg.Runner.Ticks/2)*cfg.GetTickRate())
	}

	runner.Start(ctx)
	if err := runner.Wait(); err != nil {
		return nil, err
	}

	var stats *Stats
	h.View(func(v *secs.View) {
		stats = secs.MustGet[Stats](v, sc.stats)
	})
	return stats, nil
}

type stopper interface {
	Stop()
}

func startProfile(cfg config.ProfileConfig) stopper {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfileAllocs
	default:
		return nil
	}
	return profile.Start(mode, profile.ProfilePath(cfg.Path), profile.NoShutdownHook)
}
