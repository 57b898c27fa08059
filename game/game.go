// Package game drives a headless run: it owns the physics and cell worlds,
// mirrors live cells into an ECS, manages the population and feeds
// telemetry.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/physics"
	"github.com/pthm-cable/cellsim/sim"
	"github.com/pthm-cable/cellsim/telemetry"
)

// Options configures a run beyond the loaded config.
type Options struct {
	Seed           int64
	LogStats       bool   // emit stats and perf via slog on each window
	SnapshotDir    string // snapshot on bookmarks and at Close
	OutputDir      string // CSV output, config, hall of fame; snapshots when SnapshotDir is empty
	HallOfFamePath string // seed the hall from a previous run
	RestorePath    string // start from a snapshot instead of a fresh population
}

// Game holds the complete state of a run.
type Game struct {
	cfg     *config.Config
	rngSeed int64
	rng     *rand.Rand // the sim world's source

	phys   *physics.World
	world  *sim.World
	mirror *mirror

	// Tick of the restored snapshot, zero for fresh runs
	baseTick uint64

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	lifetimeTracker  *telemetry.LifetimeTracker
	hallOfFame       *telemetry.HallOfFame
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	statsCallback    func(telemetry.WindowStats)

	logStats    bool
	snapshotDir string
}

// NewGame creates a game from the global config.
func NewGame(opts Options) (*Game, error) {
	return NewGameWithConfig(config.Cfg(), opts)
}

// NewGameWithConfig creates a game from cfg.
func NewGameWithConfig(cfg *config.Config, opts Options) (*Game, error) {
	phys := physics.NewWorld(physics.ParamsFromConfig(cfg))
	world := sim.NewWorld(sim.OptionsFromConfig(cfg), phys, opts.Seed)

	g := &Game{
		cfg:              cfg,
		rngSeed:          opts.Seed,
		rng:              world.Rand(),
		phys:             phys,
		world:            world,
		mirror:           newMirror(),
		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Derived.DT32),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		lifetimeTracker:  telemetry.NewLifetimeTracker(),
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize),
		logStats:         opts.LogStats,
		snapshotDir:      opts.SnapshotDir,
	}

	if cfg.HallOfFame.Enabled {
		if opts.HallOfFamePath != "" {
			hof, err := telemetry.LoadHallOfFameFromFile(opts.HallOfFamePath, cfg.HallOfFame, g.rng)
			if err != nil {
				g.release()
				return nil, err
			}
			g.hallOfFame = hof
			slog.Info("hall of fame loaded", "path", opts.HallOfFamePath, "entries", hof.Size())
		} else {
			g.hallOfFame = telemetry.NewHallOfFame(cfg.HallOfFame, g.rng)
		}
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		g.release()
		return nil, err
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	if opts.RestorePath != "" {
		snap, err := telemetry.LoadSnapshot(opts.RestorePath)
		if err == nil {
			err = g.restore(snap)
		}
		if err != nil {
			g.release()
			return nil, fmt.Errorf("restore %s: %w", opts.RestorePath, err)
		}
	} else if err := g.spawnInitialPopulation(); err != nil {
		g.release()
		return nil, err
	}

	if err := g.mirror.sync(g.world); err != nil {
		g.release()
		return nil, err
	}
	return g, nil
}

// SetStatsCallback registers fn to receive every flushed stats window.
func (g *Game) SetStatsCallback(fn func(telemetry.WindowStats)) {
	g.statsCallback = fn
}

// Update runs one tick followed by bookkeeping. An error leaves the game
// unusable.
func (g *Game) Update() error {
	g.perfCollector.StartTick()

	report, err := g.world.Tick()
	if err != nil {
		return fmt.Errorf("tick %d: %w", g.Tick(), err)
	}
	g.perfCollector.RecordPhase(telemetry.PhaseSnapshot, report.Snapshot)
	g.perfCollector.RecordPhase(telemetry.PhaseCompute, report.Compute)
	g.perfCollector.RecordPhase(telemetry.PhaseCommit, report.Commit)
	g.perfCollector.RecordPhase(telemetry.PhasePhysics, report.Physics)

	g.perfCollector.StartPhase(telemetry.PhaseRespawn)
	g.recordCommit(report)
	g.handleDeaths(report)
	if err := g.respawnIfNeeded(); err != nil {
		return fmt.Errorf("tick %d: %w", g.Tick(), err)
	}

	g.perfCollector.StartPhase(telemetry.PhaseMirror)
	if err := g.mirror.sync(g.world); err != nil {
		return fmt.Errorf("tick %d: %w", g.Tick(), err)
	}

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.EndTick()
	return nil
}

// Tick returns the number of completed ticks, including those before a
// restored snapshot.
func (g *Game) Tick() uint64 {
	return g.baseTick + g.world.Ticks()
}

// Population returns the number of live cells.
func (g *Game) Population() int {
	return g.world.Len()
}

// HallOfFame returns the hall of fame, nil when disabled.
func (g *Game) HallOfFame() *telemetry.HallOfFame {
	return g.hallOfFame
}

// World returns the cell world.
func (g *Game) World() *sim.World {
	return g.world
}

// Close writes a final snapshot and the hall of fame, then releases the
// worker pool.
func (g *Game) Close() error {
	g.saveSnapshot(nil)
	var firstErr error
	if err := g.outputManager.WriteHallOfFame(g.hallOfFame); err != nil {
		firstErr = err
	}
	if err := g.release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (g *Game) release() error {
	g.world.Close()
	return g.outputManager.Close()
}
