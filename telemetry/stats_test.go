package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/cellsim/chem"
	"github.com/pthm-cable/cellsim/metabolism"
)

func TestComputeSizeStats(t *testing.T) {
	values := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}
	s := ComputeSizeStats(values)

	if math.Abs(s.Mean-5.5) > 1e-9 {
		t.Errorf("mean = %v, want 5.5", s.Mean)
	}
	if math.Abs(s.Total-55) > 1e-9 {
		t.Errorf("total = %v, want 55", s.Total)
	}
	// Sample standard deviation of 1..10
	if math.Abs(s.Std-3.02765) > 1e-4 {
		t.Errorf("std = %v, want ~3.0277", s.Std)
	}
	// Empirical quantiles pick observed values
	if s.P10 != 1 || s.P50 != 5 || s.P90 != 9 {
		t.Errorf("percentiles = %v/%v/%v, want 1/5/9", s.P10, s.P50, s.P90)
	}
	if values[0] != 10 {
		t.Error("input slice was reordered")
	}
}

func TestComputeSizeStatsEdgeCases(t *testing.T) {
	if s := ComputeSizeStats(nil); s != (SizeStats{}) {
		t.Errorf("empty: got %+v, want zero", s)
	}
	s := ComputeSizeStats([]float64{4})
	if s.Mean != 4 || s.Std != 0 || s.P50 != 4 {
		t.Errorf("single: got %+v", s)
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(10, 0.5)
	c.RecordBirth(5)
	c.RecordDeath(2)
	c.RecordCommit(3, 4)
	c.RecordCommit(1, 0)

	if c.ShouldFlush(9) {
		t.Error("should not flush before window end")
	}
	if !c.ShouldFlush(10) {
		t.Error("should flush at window end")
	}

	var comps [metabolism.KindCount]int
	comps[metabolism.Flagellum] = 2
	stats := c.Flush(10, Sample{
		Sizes:      []float64{1, 2, 3},
		Ledger:     chem.Ledger{chem.Energy: 7},
		Components: comps,
	})

	if stats.Population != 3 || stats.Births != 5 || stats.Deaths != 2 {
		t.Errorf("counts: %+v", stats)
	}
	if stats.Moved != 4 || stats.Resized != 4 {
		t.Errorf("commit counts: moved=%d resized=%d", stats.Moved, stats.Resized)
	}
	if stats.SimTimeSec != 5 {
		t.Errorf("sim time: got %v, want 5", stats.SimTimeSec)
	}
	if stats.Energy != 7 || stats.WithFlagellum != 2 {
		t.Errorf("ledger/components: %+v", stats)
	}

	// Counters reset; the window now starts at tick 10.
	next := c.Flush(20, Sample{})
	if next.Births != 0 || next.WindowStartTick != 10 {
		t.Errorf("after reset: %+v", next)
	}
}
