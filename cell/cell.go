// Package cell models a single cell: its ledger, membrane, fixed component
// slots and the per-tick sub-stepping that turns them into a Delta.
package cell

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/cellsim/chem"
	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/metabolism"
	"github.com/pthm-cable/cellsim/vec"
)

// ErrComponentIndex is returned for a component kind outside the registry.
var ErrComponentIndex = errors.New("component index out of range")

// Membrane is the cell boundary. It only contributes a fixed size for now.
type Membrane struct {
	Size float32 `json:"size"`
}

// Delta is the outcome of one tick of a cell's metabolism, pending commit.
// A dead delta carries no motion or size.
type Delta struct {
	Motion    vec.Vec2
	HasMotion bool
	Size      float32
	HasSize   bool
	Dead      bool
}

// Empty reports whether the delta requires no commit work.
func (d Delta) Empty() bool {
	return !d.Dead && !d.HasMotion && !d.HasSize
}

// Cell is exclusively owned by one slot. It is not safe for concurrent use,
// but distinct cells can be stepped concurrently.
type Cell struct {
	state    metabolism.State
	Membrane Membrane
	Slots    metabolism.Slots

	units chem.UnitSizes
	seed  int64
	rng   *rand.Rand
}

// New builds a cell whose size is the weighted ledger plus membrane plus
// component sizes. seed drives the cell's private random stream.
func New(ledger chem.Ledger, membrane Membrane, slots metabolism.Slots, seed int64, units chem.UnitSizes) *Cell {
	size := ledger.Size(units) + membrane.Size + slots.Size(units)
	return Restore(ledger, membrane, slots, size, seed, units)
}

// Restore rebuilds a cell with an explicit size, as read back from a snapshot.
func Restore(ledger chem.Ledger, membrane Membrane, slots metabolism.Slots, size float32, seed int64, units chem.UnitSizes) *Cell {
	c := &Cell{
		Membrane: membrane,
		Slots:    slots.Clone(),
		units:    units,
		seed:     seed,
		rng:      rand.New(rand.NewSource(seed)),
	}
	c.state.Ledger = ledger
	c.state.Size = size
	return c
}

// Ranges bound the randomized initial state of a cell.
type Ranges struct {
	Components                 metabolism.Ranges
	EnergyMin, EnergyMax       float32
	FeedstockMin, FeedstockMax float32
	NucleotideMax, ProteinMax  float32
	MembraneSize               float32
}

// RangesFromConfig reads initial cell and component ranges from cfg.
func RangesFromConfig(cfg *config.Config) Ranges {
	c := cfg.Cell
	return Ranges{
		Components:    metabolism.RangesFromConfig(cfg),
		EnergyMin:     float32(c.EnergyMin),
		EnergyMax:     float32(c.EnergyMax),
		FeedstockMin:  float32(c.FeedstockMin),
		FeedstockMax:  float32(c.FeedstockMax),
		NucleotideMax: float32(c.NucleotideMax),
		ProteinMax:    float32(c.ProteinMax),
		MembraneSize:  float32(c.MembraneSize),
	}
}

// NewRandom draws a cell from r. All randomness, including the seed of the
// cell's own stream, comes from rng.
func NewRandom(rng *rand.Rand, r Ranges, units chem.UnitSizes) *Cell {
	ledger := RandomLedger(rng, r)

	var slots metabolism.Slots
	for k := range slots {
		if rng.Float32() < r.Components.Presence {
			p := metabolism.RandomProps(rng, r.Components)
			slots[k] = &p
		}
	}
	return New(ledger, Membrane{Size: r.MembraneSize}, slots, rng.Int63(), units)
}

// NewWithSlots draws a fresh ledger and seed from rng around a given set of
// components, e.g. one sampled from the hall of fame.
func NewWithSlots(rng *rand.Rand, r Ranges, slots metabolism.Slots, units chem.UnitSizes) *Cell {
	ledger := RandomLedger(rng, r)
	return New(ledger, Membrane{Size: r.MembraneSize}, slots, rng.Int63(), units)
}

// RandomLedger draws an initial ledger within r.
func RandomLedger(rng *rand.Rand, r Ranges) chem.Ledger {
	var ledger chem.Ledger
	ledger.Add(chem.Energy, uniform(rng, r.EnergyMin, r.EnergyMax))
	ledger.Add(chem.Feedstock, uniform(rng, r.FeedstockMin, r.FeedstockMax))
	ledger.Add(chem.Nucleotide, uniform(rng, 0, r.NucleotideMax))
	ledger.Add(chem.Protein, uniform(rng, 0, r.ProteinMax))
	return ledger
}

func uniform(rng *rand.Rand, lo, hi float32) float32 {
	return lo + rng.Float32()*(hi-lo)
}

// Size returns the current size. It is never negative.
func (c *Cell) Size() float32 { return c.state.Size }

// Ledger returns a copy of the chemical ledger.
func (c *Cell) Ledger() chem.Ledger { return c.state.Ledger }

// Seed returns the seed of the cell's random stream.
func (c *Cell) Seed() int64 { return c.seed }

// Radius maps size to a collider radius.
func (c *Cell) Radius(scale, minRadius float32) float32 {
	return Radius(c.state.Size, scale, minRadius)
}

// Radius maps a size to a collider radius, never below minRadius.
func Radius(size, scale, minRadius float32) float32 {
	r := size * scale
	if r < minRadius {
		return minRadius
	}
	return r
}

// Component returns the parameters in slot k, if present.
func (c *Cell) Component(k metabolism.Kind) (metabolism.Props, bool) {
	if !k.Valid() || c.Slots[k] == nil {
		return metabolism.Props{}, false
	}
	return *c.Slots[k], true
}

// InjectComponent replaces slot k with p and adjusts size by the change in
// component size.
func (c *Cell) InjectComponent(k metabolism.Kind, p metabolism.Props) error {
	if !k.Valid() {
		return fmt.Errorf("inject %v: %w", k, ErrComponentIndex)
	}
	var old float32
	if c.Slots[k] != nil {
		old = c.Slots[k].Size(c.units)
	}
	c.Slots[k] = &p
	c.state.Size += p.Size(c.units) - old
	return nil
}

// Kill marks the cell dead. The next Step reports it.
func (c *Cell) Kill() { c.state.Kill() }

// Dead reports whether the cell has been killed.
func (c *Cell) Dead() bool { return c.state.Dead() }

// Step runs the component pipeline substeps times and returns the tick's
// delta. Motion and size are each reported at most once; the accumulators are
// cleared afterwards. A death aborts the remaining sub-steps.
func (c *Cell) Step(env metabolism.Env, substeps int) Delta {
	if c.state.Dead() {
		return Delta{Dead: true}
	}
	env.Units = c.units
	env.Rand = c.rng

	for i := 0; i < substeps; i++ {
		c.Slots.Run(&c.state, &env)
		if c.state.Dead() {
			c.state.ClearPending()
			return Delta{Dead: true}
		}
	}

	var d Delta
	if c.state.MotionChanged() {
		d.Motion = c.state.Impulse
		d.HasMotion = true
	}
	if c.state.SizeChanged() {
		d.Size = c.state.Size
		d.HasSize = true
	}
	c.state.ClearPending()
	return d
}

// CheckInvariants reports a non-negative, finite ledger and size.
func (c *Cell) CheckInvariants() error {
	if !c.state.Ledger.Valid() {
		return fmt.Errorf("invalid ledger %v", c.state.Ledger)
	}
	if c.state.Size < 0 {
		return fmt.Errorf("negative size %f", c.state.Size)
	}
	return nil
}
