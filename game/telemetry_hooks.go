package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/cellsim/arena"
	"github.com/pthm-cable/cellsim/cell"
	"github.com/pthm-cable/cellsim/chem"
	"github.com/pthm-cable/cellsim/metabolism"
	"github.com/pthm-cable/cellsim/physics"
	"github.com/pthm-cable/cellsim/sim"
	"github.com/pthm-cable/cellsim/telemetry"
	"github.com/pthm-cable/cellsim/vec"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	tick := g.Tick()
	if !g.collector.ShouldFlush(tick) {
		return
	}

	stats := g.collector.Flush(tick, g.sample())
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		g.saveSnapshot(&bm)
	}
}

// sample collects the population state at window end. Sizes come from the
// mirror; ledgers and components from the cells themselves.
func (g *Game) sample() telemetry.Sample {
	s := telemetry.Sample{Sizes: g.mirror.sizes()}
	g.world.Each(func(_ sim.CellID, c *cell.Cell, _ physics.Binding) {
		l := c.Ledger()
		for k := chem.Kind(0); k < chem.KindCount; k++ {
			s.Ledger.Add(k, l.Get(k))
		}
		for _, k := range metabolism.Kinds() {
			if c.Slots[k] != nil {
				s.Components[k]++
			}
		}
	})
	return s
}

// saveSnapshot writes a snapshot to the snapshot dir, or under the output
// dir when only that is set. It does nothing when neither is.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	if g.snapshotDir == "" && g.outputManager == nil {
		return
	}
	snapshot, err := g.createSnapshot(bookmark)
	if err != nil {
		slog.Error("failed to build snapshot", "error", err)
		return
	}

	var path string
	if g.snapshotDir != "" {
		path, err = telemetry.SaveSnapshot(snapshot, g.snapshotDir)
	} else {
		path, err = g.outputManager.WriteSnapshot(snapshot)
	}
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	slog.Info("snapshot saved", "path", path, "tick", g.Tick())
}

// createSnapshot builds a snapshot from the current state.
func (g *Game) createSnapshot(bookmark *telemetry.Bookmark) (*telemetry.Snapshot, error) {
	tick := g.Tick()
	snapshot := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		RNGSeed:     g.rngSeed,
		WorldWidth:  g.cfg.Derived.WorldW32,
		WorldHeight: g.cfg.Derived.WorldH32,
		Tick:        tick,
		Bookmark:    bookmark,
	}

	dt := g.cfg.Derived.DT32
	var err error
	g.world.Each(func(id sim.CellID, c *cell.Cell, b physics.Binding) {
		if err != nil {
			return
		}
		body, berr := g.phys.Body(b.Body)
		if berr != nil {
			err = berr
			return
		}
		col, cerr := g.phys.Collider(b.Collider)
		if cerr != nil {
			err = cerr
			return
		}

		h := arena.Handle(id)
		g.lifetimeTracker.UpdateSurvivalTime(h, tick, dt)

		pos, vel := body.Position(), body.Velocity()
		snapshot.Cells = append(snapshot.Cells, telemetry.CellState{
			Index:      id.Index,
			Gen:        id.Gen,
			X:          pos.X,
			Y:          pos.Y,
			VelX:       vel.X,
			VelY:       vel.Y,
			Radius:     col.Radius(),
			Size:       c.Size(),
			Seed:       c.Seed(),
			Ledger:     c.Ledger(),
			Membrane:   c.Membrane.Size,
			Components: c.Slots.Named(),
			Lifetime:   g.lifetimeTracker.Get(h).ToJSON(),
		})
	})
	return snapshot, err
}

// restore populates an empty world from a snapshot. Cells get fresh slots;
// their random streams restart from their seeds.
func (g *Game) restore(snap *telemetry.Snapshot) error {
	g.baseTick = snap.Tick
	opts := g.world.Options()

	for i, cs := range snap.Cells {
		slots, err := metabolism.SlotsFromNamed(cs.Components)
		if err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
		ledger := chem.Ledger(cs.Ledger)
		if !ledger.Valid() {
			return fmt.Errorf("cell %d: invalid ledger %v", i, cs.Ledger)
		}
		c := cell.Restore(ledger, cell.Membrane{Size: cs.Membrane}, slots, cs.Size, cs.Seed, opts.Units)
		if err := c.CheckInvariants(); err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}

		id, err := g.placeCell(c, vec.Vec2{X: cs.X, Y: cs.Y}, false)
		if err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
		if lt := cs.Lifetime.FromJSON(cs.Seed); lt != nil {
			g.lifetimeTracker.Put(arena.Handle(id), lt)
		}

		b, err := g.world.Binding(id)
		if err != nil {
			return err
		}
		body, err := g.phys.Body(b.Body)
		if err != nil {
			return err
		}
		body.SetVelocity(vec.Vec2{X: cs.VelX, Y: cs.VelY})
	}

	slog.Info("snapshot restored", "tick", snap.Tick, "cells", len(snap.Cells))
	return nil
}
