package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a tick window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end and events during the window
	Population int `csv:"population"`
	Births     int `csv:"births"`
	Deaths     int `csv:"deaths"`
	Moved      int `csv:"motion_deltas"`
	Resized    int `csv:"size_deltas"`

	// Size distribution (sampled at window end)
	SizeMean  float64 `csv:"size_mean"`
	SizeStd   float64 `csv:"size_std"`
	SizeP10   float64 `csv:"size_p10"`
	SizeP50   float64 `csv:"size_p50"`
	SizeP90   float64 `csv:"size_p90"`
	SizeTotal float64 `csv:"size_total"`

	// Ledger totals over live cells
	Energy     float64 `csv:"energy"`
	Feedstock  float64 `csv:"feedstock"`
	Nucleotide float64 `csv:"nucleotide"`
	Protein    float64 `csv:"protein"`

	// Cells carrying each component
	WithFlagellum      int `csv:"with_flagellum"`
	WithPhotosynthesis int `csv:"with_photosynthesis"`
	WithGlycolysis     int `csv:"with_glycolysis"`
	WithNucleotideSyn  int `csv:"with_nucleotide_synthesis"`
	WithProteinSyn     int `csv:"with_protein_synthesis"`
	WithAutolysis      int `csv:"with_autolysis"`
}

// SizeStats summarizes a size distribution.
type SizeStats struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Total         float64
}

// ComputeSizeStats calculates mean, standard deviation, empirical
// percentiles and total from values. values is not modified.
func ComputeSizeStats(values []float64) SizeStats {
	n := len(values)
	if n == 0 {
		return SizeStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var s SizeStats
	s.Total = floats.Sum(sorted)
	if n > 1 {
		s.Mean, s.Std = stat.MeanStdDev(sorted, nil)
	} else {
		s.Mean = sorted[0]
	}
	s.P10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	s.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	s.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("population", s.Population),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("motion_deltas", s.Moved),
		slog.Int("size_deltas", s.Resized),
		slog.Float64("size_mean", s.SizeMean),
		slog.Float64("size_std", s.SizeStd),
		slog.Float64("size_p50", s.SizeP50),
		slog.Float64("energy", s.Energy),
		slog.Float64("feedstock", s.Feedstock),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"population", s.Population,
		"births", s.Births,
		"deaths", s.Deaths,
		"motion_deltas", s.Moved,
		"size_deltas", s.Resized,
		"size_mean", s.SizeMean,
		"size_std", s.SizeStd,
		"size_p10", s.SizeP10,
		"size_p50", s.SizeP50,
		"size_p90", s.SizeP90,
		"size_total", s.SizeTotal,
		"energy", s.Energy,
		"feedstock", s.Feedstock,
		"nucleotide", s.Nucleotide,
		"protein", s.Protein,
	)
}
