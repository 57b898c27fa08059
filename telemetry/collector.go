// Package telemetry provides population statistics, bookmarking, a hall of
// fame of long-lived component sets, and snapshots.
package telemetry

import (
	"github.com/pthm-cable/cellsim/chem"
	"github.com/pthm-cable/cellsim/metabolism"
)

// Collector accumulates events within tick windows and produces WindowStats.
type Collector struct {
	windowDurationTicks uint64
	dt                  float32

	windowStartTick uint64

	// Event counters for current window
	births  int
	deaths  int
	moved   int
	resized int
	ticks   int
}

// NewCollector creates a collector that flushes every windowTicks ticks.
// dt is the physics timestep, used for tick-to-time conversion.
func NewCollector(windowTicks int, dt float32) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: uint64(windowTicks),
		dt:                  dt,
	}
}

// RecordBirth records n cells added.
func (c *Collector) RecordBirth(n int) {
	c.births += n
}

// RecordDeath records n cells reclaimed.
func (c *Collector) RecordDeath(n int) {
	c.deaths += n
}

// RecordCommit records the commit work of one tick.
func (c *Collector) RecordCommit(moved, resized int) {
	c.moved += moved
	c.resized += resized
	c.ticks++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Sample is the population state at window end.
type Sample struct {
	Sizes      []float64
	Ledger     chem.Ledger // summed over live cells
	Components [metabolism.KindCount]int
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick uint64, s Sample) WindowStats {
	sizes := ComputeSizeStats(s.Sizes)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		Population: len(s.Sizes),
		Births:     c.births,
		Deaths:     c.deaths,
		Moved:      c.moved,
		Resized:    c.resized,

		SizeMean:  sizes.Mean,
		SizeStd:   sizes.Std,
		SizeP10:   sizes.P10,
		SizeP50:   sizes.P50,
		SizeP90:   sizes.P90,
		SizeTotal: sizes.Total,

		Energy:     float64(s.Ledger[chem.Energy]),
		Feedstock:  float64(s.Ledger[chem.Feedstock]),
		Nucleotide: float64(s.Ledger[chem.Nucleotide]),
		Protein:    float64(s.Ledger[chem.Protein]),

		WithFlagellum:      s.Components[metabolism.Flagellum],
		WithPhotosynthesis: s.Components[metabolism.Photosynthesis],
		WithGlycolysis:     s.Components[metabolism.Glycolysis],
		WithNucleotideSyn:  s.Components[metabolism.NucleotideSynthesis],
		WithProteinSyn:     s.Components[metabolism.ProteinSynthesis],
		WithAutolysis:      s.Components[metabolism.Autolysis],
	}

	c.windowStartTick = currentTick
	c.births = 0
	c.deaths = 0
	c.moved = 0
	c.resized = 0
	c.ticks = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() uint64 {
	return c.windowDurationTicks
}
