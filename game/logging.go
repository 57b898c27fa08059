package game

import (
	"log/slog"

	"github.com/pthm-cable/cellsim/cell"
	"github.com/pthm-cable/cellsim/physics"
	"github.com/pthm-cable/cellsim/sim"
)

// LogWorldState logs a one-line summary of the population.
func (g *Game) LogWorldState() {
	var totalSize, minSize, maxSize float32
	var components int
	n := 0
	g.world.Each(func(_ sim.CellID, c *cell.Cell, _ physics.Binding) {
		size := c.Size()
		if n == 0 || size < minSize {
			minSize = size
		}
		if size > maxSize {
			maxSize = size
		}
		totalSize += size
		components += c.Slots.Count()
		n++
	})

	attrs := []any{
		"tick", g.Tick(),
		"population", n,
		"mirrored", g.mirror.len(),
		"bodies", g.phys.Bodies(),
	}
	if n > 0 {
		attrs = append(attrs,
			"size_avg", totalSize/float32(n),
			"size_min", minSize,
			"size_max", maxSize,
			"components_avg", float32(components)/float32(n),
		)
	}
	if g.hallOfFame != nil {
		attrs = append(attrs,
			"hall_size", g.hallOfFame.Size(),
			"hall_top_fitness", g.hallOfFame.TopFitness(),
		)
	}
	slog.Info("world", attrs...)
}
