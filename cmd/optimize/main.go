// Command optimize searches, with CMA-ES, for metabolism, starting ledger and
// light parameters under which a population without respawns lives longest.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/cellsim/config"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Uint64("max-ticks", 3600, "Maximum simulation duration in ticks (cap)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if *outputDir == "" {
		fatal("missing flag", fmt.Errorf("--output is required"))
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fatal("failed to create output directory", err)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		fatal("failed to load config", err)
	}

	params := NewParamVector()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, *maxTicks, evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.Clamp(params.ExtractFromConfig(baseCfg)))

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0,
	}

	logPath := filepath.Join(*outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		fatal("failed to create log file", err)
	}
	defer logFile.Close()

	// Columns depend on the parameter set, so rows are written untyped.
	logWriter := csv.NewWriter(logFile)
	defer logWriter.Flush()

	header := []string{"eval", "fitness", "quality"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := logWriter.Write(header); err != nil {
		fatal("failed to write log header", err)
	}

	evalCount := 0
	bestFitness := 0.0
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			quality := evaluator.LastQuality()
			evalCount++

			if bestParams == nil || fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			row := []string{
				strconv.Itoa(evalCount),
				strconv.FormatFloat(fitness, 'f', 6, 64),
				strconv.FormatFloat(quality, 'f', 4, 64),
			}
			for _, v := range clamped {
				row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
			}
			if err := logWriter.Write(row); err != nil {
				slog.Error("failed to write log row", "error", err)
			}
			logWriter.Flush()

			elapsed := time.Since(startTime)
			remaining := time.Duration(*maxEvals-evalCount) * (elapsed / time.Duration(evalCount))
			slog.Info("eval",
				"n", evalCount,
				"of", *maxEvals,
				"survived_ticks", -fitness/(1.0+0.2*quality),
				"quality", quality,
				"best", bestFitness,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return fitness
		},
	}

	slog.Info("starting CMA-ES",
		"params", dim,
		"population", popSize,
		"max_evals", *maxEvals,
		"seeds", *seeds,
		"max_ticks", *maxTicks,
	)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		fatal("no evaluation completed", err)
	}

	slog.Info("optimization complete",
		"evals", evalCount,
		"elapsed", formatDuration(time.Since(startTime)),
		"best_fitness", bestFitness,
	)
	for i, spec := range params.Specs {
		slog.Info("best", "param", spec.Name, "value", bestParams[i])
	}

	bestCfg, err := baseCfg.Clone(func(c *config.Config) {
		params.ApplyToConfig(c, bestParams)
	})
	if err != nil {
		fatal("best parameters do not validate", err)
	}
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		slog.Error("failed to write best config", "error", err)
	} else {
		slog.Info("best config saved", "path", configOutPath)
	}

	if hof := evaluator.BestHallOfFame(); hof != nil {
		hofPath := filepath.Join(*outputDir, "hall_of_fame.json")
		hofData, err := json.MarshalIndent(hof, "", "  ")
		if err != nil {
			slog.Error("failed to marshal hall of fame", "error", err)
		} else if err := os.WriteFile(hofPath, hofData, 0644); err != nil {
			slog.Error("failed to write hall of fame", "error", err)
		} else {
			slog.Info("hall of fame saved", "path", hofPath)
		}
	}
}
