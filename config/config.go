// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Chemistry  ChemistryConfig  `yaml:"chemistry"`
	Metabolism MetabolismConfig `yaml:"metabolism"`
	Cell       CellConfig       `yaml:"cell"`
	Light      LightConfig      `yaml:"light"`
	Population PopulationConfig `yaml:"population"`
	HallOfFame HallOfFameConfig `yaml:"hall_of_fame"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds tick orchestration parameters and world dimensions.
type WorldConfig struct {
	InitialPopulation int     `yaml:"initial_population"`
	SubstepsPerTick   int     `yaml:"substeps_per_tick"`
	StepSize          float64 `yaml:"step_size"`       // Metabolic time quantum per sub-step
	Parallel          bool    `yaml:"parallel"`        // Compute deltas on the worker pool
	OverlapPhysics    bool    `yaml:"overlap_physics"` // Step physics while deltas are computed
	Width             int     `yaml:"width"`
	Height            int     `yaml:"height"`
}

// PhysicsConfig holds rigid-body parameters.
type PhysicsConfig struct {
	DT          float64 `yaml:"dt"`
	GravityX    float64 `yaml:"gravity_x"`
	GravityY    float64 `yaml:"gravity_y"`
	CellMass    float64 `yaml:"cell_mass"`
	RadiusScale float64 `yaml:"radius_scale"` // Collider radius per unit of cell size
	MinRadius   float64 `yaml:"min_radius"`
	Elasticity  float64 `yaml:"elasticity"`
	Friction    float64 `yaml:"friction"`
	MotionMode  string  `yaml:"motion_mode"` // "impulse" (Δv = j/m) or "velocity" (Δv = j)
}

// ChemistryConfig holds per-unit size weights of each chemical kind.
type ChemistryConfig struct {
	Energy     float64 `yaml:"energy"`
	Feedstock  float64 `yaml:"feedstock"`
	Nucleotide float64 `yaml:"nucleotide"`
	Protein    float64 `yaml:"protein"`
}

// MetabolismConfig holds component parameter ranges for randomized cells.
type MetabolismConfig struct {
	ThroughputMin  float64 `yaml:"throughput_min"`
	ThroughputMax  float64 `yaml:"throughput_max"`
	CapacityMin    float64 `yaml:"capacity_min"`
	CapacityMax    float64 `yaml:"capacity_max"`
	Presence       float64 `yaml:"presence"`        // Probability a slot is filled
	AutolysisFloor float64 `yaml:"autolysis_floor"` // Reserve below which autolysis kicks in
}

// CellConfig holds initial ledger ranges for randomized cells.
type CellConfig struct {
	EnergyMin     float64 `yaml:"energy_min"`
	EnergyMax     float64 `yaml:"energy_max"`
	FeedstockMin  float64 `yaml:"feedstock_min"`
	FeedstockMax  float64 `yaml:"feedstock_max"`
	NucleotideMax float64 `yaml:"nucleotide_max"`
	ProteinMax    float64 `yaml:"protein_max"`
	MembraneSize  float64 `yaml:"membrane_size"`
}

// LightConfig holds the light field: light = clamp(base + gradient*y/height, 0, 1).
type LightConfig struct {
	Base     float64 `yaml:"base"`
	Gradient float64 `yaml:"gradient"`
}

// PopulationConfig holds population management parameters.
type PopulationConfig struct {
	RespawnThreshold int `yaml:"respawn_threshold"`
	RespawnCount     int `yaml:"respawn_count"`
}

// HallOfFameConfig holds hall of fame parameters.
type HallOfFameConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Size           int     `yaml:"size"`
	MinSurvivalSec float64 `yaml:"min_survival_sec"`
	SurvivalWeight float64 `yaml:"survival_weight"`
	SizeWeight     float64 `yaml:"size_weight"`
	ReseedFraction float64 `yaml:"reseed_fraction"` // Share of respawns drawn from the hall
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"` // Ticks per stats window
	PerfCollectorWindow int `yaml:"perf_collector_window"`
	BookmarkHistorySize int `yaml:"bookmark_history_size"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32         float32    // Physics.DT as float32
	StepSize32   float32    // World.StepSize as float32
	WorldW32     float32    // World.Width as float32
	WorldH32     float32    // World.Height as float32
	UnitSizes    [4]float32 // energy, feedstock, nucleotide, protein
	VelocityMode bool       // Physics.MotionMode == "velocity"
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.World.SubstepsPerTick < 0:
		return fmt.Errorf("world.substeps_per_tick must be >= 0, got %d", c.World.SubstepsPerTick)
	case c.World.StepSize < 0:
		return fmt.Errorf("world.step_size must be >= 0, got %g", c.World.StepSize)
	case c.Physics.CellMass <= 0:
		return fmt.Errorf("physics.cell_mass must be > 0, got %g", c.Physics.CellMass)
	case c.Physics.MotionMode != "impulse" && c.Physics.MotionMode != "velocity":
		return fmt.Errorf("physics.motion_mode must be impulse or velocity, got %q", c.Physics.MotionMode)
	case c.Metabolism.ThroughputMax < c.Metabolism.ThroughputMin:
		return fmt.Errorf("metabolism.throughput_max < throughput_min")
	case c.Metabolism.CapacityMax < c.Metabolism.CapacityMin:
		return fmt.Errorf("metabolism.capacity_max < capacity_min")
	case c.Chemistry.Energy < 0, c.Chemistry.Feedstock < 0, c.Chemistry.Nucleotide < 0, c.Chemistry.Protein < 0:
		return fmt.Errorf("chemistry unit sizes must be >= 0, got %+v", c.Chemistry)
	case c.HallOfFame.ReseedFraction < 0 || c.HallOfFame.ReseedFraction > 1:
		return fmt.Errorf("hall_of_fame.reseed_fraction must be in [0, 1], got %g", c.HallOfFame.ReseedFraction)
	case c.Telemetry.StatsWindow < 1:
		return fmt.Errorf("telemetry.stats_window must be >= 1, got %d", c.Telemetry.StatsWindow)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.StepSize32 = float32(c.World.StepSize)
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
	c.Derived.UnitSizes = [4]float32{
		float32(c.Chemistry.Energy),
		float32(c.Chemistry.Feedstock),
		float32(c.Chemistry.Nucleotide),
		float32(c.Chemistry.Protein),
	}
	c.Derived.VelocityMode = c.Physics.MotionMode == "velocity"
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Clone returns a copy of c with derived values recomputed, after checking
// that edits made to the copy still validate.
func (c *Config) Clone(edit func(*Config)) (*Config, error) {
	out := *c
	if edit != nil {
		edit(&out)
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	out.computeDerived()
	return &out, nil
}
