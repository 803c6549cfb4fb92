package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/renderer"
	"github.com/pthm-cable/flex/scene"
	"github.com/pthm-cable/flex/stream"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	sceneName := flag.String("scene", "", "Scene to build (empty = use config)")
	mode := flag.String("mode", "", "Solver mode, 2d or 3d (empty = use config)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "Scene and wind seed (0 = use config)")
	maxSteps := flag.Int64("max-steps", 0, "Stop after N solver steps (0 = unlimited)")
	listen := flag.String("listen", "", "Address for the websocket frame stream (empty = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *sceneName != "" {
		cfg.Scene.Name = *sceneName
	}
	if *mode != "" {
		cfg.Solver.Mode = *mode
	}
	if *seed != 0 {
		cfg.Scene.Seed = *seed
		cfg.Solver.Wind.Seed = *seed
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}
	if *outputDir == "" {
		*outputDir = cfg.Telemetry.OutputDir
	}
	if *listen == "" {
		*listen = cfg.Stream.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var hub *stream.Hub
	if *listen != "" {
		hub = stream.NewHub(logger, 16)
		srv := serveStream(*listen, hub)
		defer func() {
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	runner, err := scene.NewRunner(cfg, scene.Options{
		Logger:    logger,
		OutputDir: *outputDir,
		LogStats:  *logStats,
		Hub:       hub,
	})
	if err != nil {
		slog.Error("failed to build scene", "error", err, "scenes", scene.Names())
		os.Exit(1)
	}
	defer func() {
		if err := runner.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}()

	if *headless {
		slog.Info("starting headless simulation",
			"scene", cfg.Scene.Name,
			"mode", cfg.Solver.Mode,
			"max_steps", *maxSteps,
			"listen", *listen,
		)
		if err := runner.RunHeadless(ctx, *maxSteps); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("simulation failed", "error", err)
			return
		}
		slog.Info("simulation finished", "steps", runner.Scene().Solver.StepCount())
		return
	}

	runWindowed(ctx, cfg, runner, *maxSteps)
}

// serveStream starts the websocket endpoint at /ws in the background.
func serveStream(addr string, hub *stream.Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("stream server failed", "error", err)
		}
	}()
	slog.Info("streaming frames", "addr", addr, "path", "/ws")
	return srv
}

// runWindowed drives the runner from the raylib frame loop.
func runWindowed(ctx context.Context, cfg *config.Config, runner *scene.Runner, maxSteps int64) {
	viewer := renderer.NewViewer(renderer.Options{
		Width:     int32(cfg.Screen.Width),
		Height:    int32(cfg.Screen.Height),
		TargetFPS: int32(cfg.Screen.TargetFPS),
		Title:     "Flex",
		Mode:      cfg.Solver.ModeValue(),
	})
	viewer.Open()
	defer viewer.Close()

	for !viewer.ShouldClose() && ctx.Err() == nil {
		sc := runner.Scene()
		in := viewer.HandleInput(runner.Frame())
		if in.TogglePause {
			runner.SetPaused(!runner.Paused())
		}
		if in.Step {
			runner.StepOnce()
		}
		if in.Reset {
			if err := runner.Reset(); err != nil {
				slog.Error("reset failed", "error", err)
			}
			viewer.Select(-1)
			sc = runner.Scene()
		}
		if in.Pick {
			viewer.Select(sc.Pick(renderer.PickRay(in.PickRay)))
		}

		runner.Update(viewer.FrameTime())

		actions := viewer.Draw(renderer.View{
			Frame:     runner.Frame(),
			Colliders: sc.World.Snapshot(),
			Contacts:  sc.Contacts(),
			Particles: sc.Solver.Particles(),
			Stats:     sc.Solver.Stats(),
			Perf:      sc.Perf.Stats(),
			Scene:     sc.Name,
			TimeScale: float64(runner.Tuning().TimeScale),
			Paused:    runner.Paused(),
			Skipped:   runner.Skipped(),
			ActorName: sc.ActorName,
		}, runner.Tuning())

		if actions.Changed {
			if err := runner.ApplyTuning(); err != nil {
				slog.Error("failed to apply settings", "error", err)
			}
		}
		if actions.TogglePause {
			runner.SetPaused(!runner.Paused())
		}
		if actions.Step {
			runner.StepOnce()
		}
		if actions.Reset {
			if err := runner.Reset(); err != nil {
				slog.Error("reset failed", "error", err)
			}
			viewer.Select(-1)
		}

		if maxSteps > 0 && runner.Scene().Solver.StepCount() >= maxSteps {
			break
		}
	}
}
