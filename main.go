package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in ticks (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	hallOfFame := flag.String("hall-of-fame", "", "Seed the hall of fame from a previous run's hall_of_fame.json")
	restore := flag.String("restore", "", "Start from a snapshot file")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	parallel := flag.String("parallel", "", "Override world.parallel (true/false)")
	verbose := flag.Bool("v", false, "Log every tick at debug level")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	switch *parallel {
	case "":
	case "true":
		cfg.World.Parallel = true
	case "false":
		cfg.World.Parallel = false
	default:
		slog.Error("invalid -parallel value", "value", *parallel)
		os.Exit(1)
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	g, err := game.NewGame(game.Options{
		Seed:           rngSeed,
		LogStats:       *logStats,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
		HallOfFamePath: *hallOfFame,
		RestorePath:    *restore,
	})
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"population", g.Population(),
		"max_ticks", *maxTicks,
		"parallel", cfg.World.Parallel,
		"substeps", cfg.World.SubstepsPerTick,
	)

	code := 0
	for *maxTicks <= 0 || g.Tick() < uint64(*maxTicks) {
		if err := g.Update(); err != nil {
			slog.Error("simulation halted", "error", err)
			code = 1
			break
		}
	}
	if code == 0 {
		slog.Info("max ticks reached", "tick", g.Tick())
	}

	g.LogWorldState()
	if err := g.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
		code = 1
	}
	os.Exit(code)
}
