// Package main provides CMA-ES tuning of cell population parameters.
package main

import (
	"github.com/pthm-cable/cellsim/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
// Lower bounds of the ranges being tuned stay at their configured values.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Metabolism
			{
				Name: "metabolism.throughput_max", Min: 0.1, Max: 5, Default: 1,
				get: func(c *config.Config) float64 { return c.Metabolism.ThroughputMax },
				set: func(c *config.Config, v float64) { c.Metabolism.ThroughputMax = v },
			},
			{
				Name: "metabolism.capacity_max", Min: 1, Max: 50, Default: 10,
				get: func(c *config.Config) float64 { return c.Metabolism.CapacityMax },
				set: func(c *config.Config, v float64) { c.Metabolism.CapacityMax = v },
			},
			{
				Name: "metabolism.presence", Min: 0.1, Max: 0.95, Default: 0.5,
				get: func(c *config.Config) float64 { return c.Metabolism.Presence },
				set: func(c *config.Config, v float64) { c.Metabolism.Presence = v },
			},
			{
				Name: "metabolism.autolysis_floor", Min: 0.0001, Max: 0.05, Default: 0.001,
				get: func(c *config.Config) float64 { return c.Metabolism.AutolysisFloor },
				set: func(c *config.Config, v float64) { c.Metabolism.AutolysisFloor = v },
			},
			// Starting ledger
			{
				Name: "cell.energy_max", Min: 50, Max: 500, Default: 200,
				get: func(c *config.Config) float64 { return c.Cell.EnergyMax },
				set: func(c *config.Config, v float64) { c.Cell.EnergyMax = v },
			},
			{
				Name: "cell.feedstock_max", Min: 10, Max: 300, Default: 100,
				get: func(c *config.Config) float64 { return c.Cell.FeedstockMax },
				set: func(c *config.Config, v float64) { c.Cell.FeedstockMax = v },
			},
			{
				Name: "cell.protein_max", Min: 0, Max: 200, Default: 50,
				get: func(c *config.Config) float64 { return c.Cell.ProteinMax },
				set: func(c *config.Config, v float64) { c.Cell.ProteinMax = v },
			},
			// Light field
			{
				Name: "light.base", Min: 0, Max: 1, Default: 1,
				get: func(c *config.Config) float64 { return c.Light.Base },
				set: func(c *config.Config, v float64) { c.Light.Base = v },
			},
			{
				Name: "light.gradient", Min: -1, Max: 0, Default: -0.5,
				get: func(c *config.Config) float64 { return c.Light.Gradient },
				set: func(c *config.Config, v float64) { c.Light.Gradient = v },
			},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg. A range maximum is
// never pushed below its minimum.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
	cfg.Metabolism.ThroughputMax = max(cfg.Metabolism.ThroughputMax, cfg.Metabolism.ThroughputMin)
	cfg.Metabolism.CapacityMax = max(cfg.Metabolism.CapacityMax, cfg.Metabolism.CapacityMin)
	cfg.Cell.EnergyMax = max(cfg.Cell.EnergyMax, cfg.Cell.EnergyMin)
	cfg.Cell.FeedstockMax = max(cfg.Cell.FeedstockMax, cfg.Cell.FeedstockMin)
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.get(cfg)
	}
	return v
}
