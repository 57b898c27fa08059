package metabolism

import (
	"math/rand"

	"github.com/pthm-cable/cellsim/chem"
	"github.com/pthm-cable/cellsim/config"
)

// Props are the parameters of one component instance.
// Efficiency is derived and must only change through NewProps, SetThroughput
// or SetCapacity.
type Props struct {
	Throughput float32 `json:"throughput"`
	Capacity   float32 `json:"capacity"`
	Efficiency float32 `json:"efficiency"`
}

// NewProps builds a component with efficiency = 1/(1+throughput/capacity).
func NewProps(throughput, capacity float32) Props {
	p := Props{Throughput: throughput, Capacity: capacity}
	p.recompute()
	return p
}

// SetThroughput updates throughput and recomputes efficiency.
func (p *Props) SetThroughput(t float32) {
	p.Throughput = t
	p.recompute()
}

// SetCapacity updates capacity and recomputes efficiency.
func (p *Props) SetCapacity(c float32) {
	p.Capacity = c
	p.recompute()
}

func (p *Props) recompute() {
	if p.Throughput < 0 {
		p.Throughput = 0
	}
	if p.Capacity <= 0 {
		p.Capacity = 0
		p.Efficiency = 0
		return
	}
	p.Efficiency = 1 / (1 + p.Throughput/p.Capacity)
}

// Amount computes the clamped transfer for one activation against the
// available quantity of the component's input.
func (p Props) Amount(available, step float32) chem.Transfer {
	return chem.Clamp(p.Throughput, step, available, p.Efficiency)
}

// Size is the structural size the component contributes to its cell.
func (p Props) Size(units chem.UnitSizes) float32 {
	return p.Capacity * units[chem.Protein]
}

// Ranges bound randomized component parameters.
type Ranges struct {
	ThroughputMin, ThroughputMax float32
	CapacityMin, CapacityMax     float32
	Presence                     float32 // probability a slot is filled
}

// DefaultRanges mirrors the embedded configuration defaults.
var DefaultRanges = Ranges{
	ThroughputMin: 0,
	ThroughputMax: 1,
	CapacityMin:   0,
	CapacityMax:   10,
	Presence:      0.5,
}

// RangesFromConfig reads component ranges from cfg.
func RangesFromConfig(cfg *config.Config) Ranges {
	m := cfg.Metabolism
	return Ranges{
		ThroughputMin: float32(m.ThroughputMin),
		ThroughputMax: float32(m.ThroughputMax),
		CapacityMin:   float32(m.CapacityMin),
		CapacityMax:   float32(m.CapacityMax),
		Presence:      float32(m.Presence),
	}
}

// RandomProps draws a component uniformly within r.
func RandomProps(rng *rand.Rand, r Ranges) Props {
	t := r.ThroughputMin + rng.Float32()*(r.ThroughputMax-r.ThroughputMin)
	c := r.CapacityMin + rng.Float32()*(r.CapacityMax-r.CapacityMin)
	return NewProps(t, c)
}
