package game

import (
	"log/slog"

	"github.com/pthm-cable/cellsim/arena"
	"github.com/pthm-cable/cellsim/cell"
	"github.com/pthm-cable/cellsim/sim"
	"github.com/pthm-cable/cellsim/vec"
)

// spawnInitialPopulation creates the starting cells.
func (g *Game) spawnInitialPopulation() error {
	for i := 0; i < g.cfg.World.InitialPopulation; i++ {
		if _, err := g.spawnCell(g.world.RandomCell(), false); err != nil {
			return err
		}
	}
	return nil
}

// spawnCell places c at a random position and registers it for telemetry.
func (g *Game) spawnCell(c *cell.Cell, fromHall bool) (sim.CellID, error) {
	return g.placeCell(c, g.world.RandomPosition(), fromHall)
}

func (g *Game) placeCell(c *cell.Cell, pos vec.Vec2, fromHall bool) (sim.CellID, error) {
	id, err := g.world.AddCell(c, pos)
	if err != nil {
		return sim.CellID{}, err
	}
	g.lifetimeTracker.Register(arena.Handle(id), g.Tick(), c.Seed(), c.Size(), fromHall)
	g.collector.RecordBirth(1)
	return id, nil
}

// recordCommit feeds the tick's committed deltas to the lifetime tracker.
func (g *Game) recordCommit(report sim.TickReport) {
	for _, cd := range g.world.Deltas() {
		d := cd.Delta
		if d.Dead {
			continue
		}
		if d.HasMotion {
			g.lifetimeTracker.RecordMotion(arena.Handle(cd.ID))
		}
		if d.HasSize {
			g.lifetimeTracker.RecordSize(arena.Handle(cd.ID), d.Size)
		}
	}
	g.collector.RecordCommit(report.Moved, report.Resized)
}

// handleDeaths retires dead cells from the mirror and lifetime tracker and
// offers their components to the hall of fame.
func (g *Game) handleDeaths(report sim.TickReport) {
	dt := g.cfg.Derived.DT32
	for i, id := range report.Died {
		h := arena.Handle(id)
		g.lifetimeTracker.UpdateSurvivalTime(h, g.Tick(), dt)
		stats := g.lifetimeTracker.Remove(h)
		g.mirror.remove(id)

		if g.hallOfFame != nil && stats != nil {
			g.hallOfFame.Consider(&report.Remains[i].Slots, stats)
		}
	}
	g.collector.RecordDeath(len(report.Died))
}

// respawnIfNeeded tops up a collapsing population. A share of the new cells
// reuse component sets from the hall of fame; the rest are random.
func (g *Game) respawnIfNeeded() error {
	pop := g.cfg.Population
	before := g.world.Len()
	if before >= pop.RespawnThreshold {
		return nil
	}

	fromHall := 0
	for i := 0; i < pop.RespawnCount; i++ {
		c, hall := g.respawnCell()
		if hall {
			fromHall++
		}
		if _, err := g.spawnCell(c, hall); err != nil {
			return err
		}
	}

	attrs := []any{
		"tick", g.Tick(),
		"population_before", before,
		"spawned", pop.RespawnCount,
		"from_hall", fromHall,
	}
	if g.hallOfFame != nil {
		attrs = append(attrs, "hall_size", g.hallOfFame.Size())
	}
	slog.Info("respawn", attrs...)
	return nil
}

func (g *Game) respawnCell() (*cell.Cell, bool) {
	if g.hallOfFame != nil && g.rng.Float64() < g.cfg.HallOfFame.ReseedFraction {
		if slots, ok := g.hallOfFame.Sample(); ok {
			opts := g.world.Options()
			return cell.NewWithSlots(g.rng, opts.Ranges, slots, opts.Units), true
		}
	}
	return g.world.RandomCell(), false
}
