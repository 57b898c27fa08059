package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/game"
	"github.com/pthm-cable/cellsim/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   uint64
	seeds      []int64
	baseConfig *config.Config

	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
	lastQuality    float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks uint64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// A run ends once the population stays below minViablePop for
// extinctionGraceSec of sim time.
const (
	minViablePop       = 3
	extinctionGraceSec = 10.0
	warmupSec          = 2.0
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks uint64
	windowStats   []telemetry.WindowStats
	hallOfFame    *telemetry.HallOfFame
	failed        bool
}

type seedResult struct {
	fitness    float64
	quality    float64
	hallOfFame *telemetry.HallOfFame
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg, err := fe.configFor(x)
	if err != nil {
		return 0
	}

	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(cfg, s)
			results[idx] = seedResult{
				fitness:    fe.computeFitness(result),
				quality:    computeQuality(result.windowStats),
				hallOfFame: result.hallOfFame,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedHallOfFame *telemetry.HallOfFame
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedHallOfFame = r.hallOfFame
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestHallOfFame = bestSeedHallOfFame
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// configFor returns a copy of the base config carrying x. Respawning is off so
// the population has to sustain itself, and each run stays on one goroutine
// because seeds already run concurrently.
func (fe *FitnessEvaluator) configFor(x []float64) (*config.Config, error) {
	return fe.baseConfig.Clone(func(c *config.Config) {
		fe.params.ApplyToConfig(c, x)
		c.Population.RespawnThreshold = 0
		c.World.Parallel = false
	})
}

// runSimulation executes a single headless run until functional extinction
// or maxTicks, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) *runResult {
	result := &runResult{}

	g, err := game.NewGameWithConfig(cfg, game.Options{Seed: seed})
	if err != nil {
		result.failed = true
		return result
	}
	g.SetStatsCallback(func(stats telemetry.WindowStats) {
		result.windowStats = append(result.windowStats, stats)
	})
	defer g.Close()

	dt := cfg.Physics.DT
	graceTicks := uint64(extinctionGraceSec / dt)
	warmupTicks := uint64(warmupSec / dt)
	var belowTicks uint64

	for g.Tick() < fe.maxTicks {
		if err := g.Update(); err != nil {
			result.failed = true
			break
		}
		tick := g.Tick()
		if tick < warmupTicks {
			continue
		}

		pop := g.Population()
		if pop == 0 {
			break
		}
		if pop < minViablePop {
			belowTicks++
		} else {
			belowTicks = 0
		}
		if belowTicks >= graceTicks {
			break
		}
	}

	result.survivalTicks = g.Tick()
	result.hallOfFame = g.HallOfFame()
	return result
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	if r.failed {
		return 0
	}
	survival := float64(r.survivalTicks)
	return -(survival * (1.0 + 0.2*computeQuality(r.windowStats)))
}

// Quality component weights.
const (
	qualityWeightRetention = 0.40
	qualityWeightGrowth    = 0.35
	qualityWeightDiversity = 0.25

	qualityWarmupWindows = 1
)

// computeQuality scores a run in [0, 1] from its window stats: how much of
// the population survives each window, how far median size grows and how many
// component kinds stay in use.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	first := windows[0]
	valid := windows[qualityWarmupWindows:]

	retention := make([]float64, 0, len(valid))
	var diversitySum float64
	for _, w := range valid {
		start := w.Population + w.Deaths - w.Births
		if start > 0 {
			retention = append(retention, float64(w.Population-w.Births)/float64(start))
		}
		diversitySum += componentDiversity(w)
	}
	if len(retention) == 0 {
		return 0
	}

	mean, std := stat.MeanStdDev(retention, nil)
	if math.IsNaN(std) {
		std = 0
	}
	retentionScore := clamp01(mean) * math.Exp(-std*std)

	growthScore := 0.0
	last := valid[len(valid)-1]
	if first.SizeP50 > 0 && last.SizeP50 > first.SizeP50 {
		growthScore = 1 - first.SizeP50/last.SizeP50
	}

	diversityScore := diversitySum / float64(len(valid))

	return clamp01(qualityWeightRetention*retentionScore +
		qualityWeightGrowth*growthScore +
		qualityWeightDiversity*diversityScore)
}

// componentDiversity returns the share of component kinds carried by at least
// one live cell.
func componentDiversity(w telemetry.WindowStats) float64 {
	counts := []int{
		w.WithFlagellum, w.WithPhotosynthesis, w.WithGlycolysis,
		w.WithNucleotideSyn, w.WithProteinSyn, w.WithAutolysis,
	}
	present := 0
	for _, n := range counts {
		if n > 0 {
			present++
		}
	}
	return float64(present) / float64(len(counts))
}

func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
