package metabolism

import (
	"github.com/pthm-cable/cellsim/chem"
	"github.com/pthm-cable/cellsim/vec"
)

// Func is a reaction: a pure function of the component parameters and
// environment whose only effects land on s.
type Func func(p *Props, s *State, env *Env)

// Table maps each Kind to its reaction.
var Table = [KindCount]Func{
	Flagellum:           flagellum,
	Photosynthesis:      photosynthesis,
	Glycolysis:          glycolysis,
	NucleotideSynthesis: nucleotideSynthesis,
	ProteinSynthesis:    proteinSynthesis,
	Autolysis:           autolysis,
}

// convert moves a clamped amount of from into to and applies the size delta.
func convert(p *Props, s *State, env *Env, from, to chem.Kind) chem.Transfer {
	t := p.Amount(s.Ledger.Get(from), env.StepSize)
	t.Input = s.Ledger.Take(from, t.Input)
	s.Ledger.Add(to, t.Output)
	s.ModifySize(t.SizeDelta(env.Units[from], env.Units[to]))
	return t
}

// flagellum burns energy into thrust along a random direction. The axis
// magnitudes always sum to the produced output.
func flagellum(p *Props, s *State, env *Env) {
	t := p.Amount(s.Ledger.Get(chem.Energy), env.StepSize)
	t.Input = s.Ledger.Take(chem.Energy, t.Input)
	s.ModifySize(-t.Input * env.Units[chem.Energy])

	leftNeg := env.Rand.Intn(2) == 1
	rightNeg := env.Rand.Intn(2) == 1
	left := env.Rand.Float32()
	right := 1 - left
	if leftNeg {
		left = -left
	}
	if rightNeg {
		right = -right
	}
	s.AddImpulse(vec.Vec2{X: left * t.Output, Y: right * t.Output})
}

// photosynthesis draws on an unbounded ambient source. Light scales the rate
// at which the source is taken up.
func photosynthesis(p *Props, s *State, env *Env) {
	t := chem.Clamp(p.Throughput*env.Light, env.StepSize, chem.Unconstrained, p.Efficiency)
	s.Ledger.Add(chem.Feedstock, t.Output)
	s.ModifySize(t.Output * env.Units[chem.Feedstock])
}

func glycolysis(p *Props, s *State, env *Env) {
	convert(p, s, env, chem.Feedstock, chem.Energy)
}

func nucleotideSynthesis(p *Props, s *State, env *Env) {
	convert(p, s, env, chem.Energy, chem.Nucleotide)
}

func proteinSynthesis(p *Props, s *State, env *Env) {
	convert(p, s, env, chem.Energy, chem.Protein)
}

// autolysis digests protein back into energy once energy runs out. A cell
// with neither left is dead.
func autolysis(p *Props, s *State, env *Env) {
	if s.Ledger.Get(chem.Energy) > env.AutolysisFloor {
		return
	}
	if s.Ledger.Get(chem.Protein) <= env.AutolysisFloor {
		s.Kill()
		return
	}
	convert(p, s, env, chem.Protein, chem.Energy)
}

// Slots is a per-cell mapping from Kind to optional component parameters.
type Slots [KindCount]*Props

// Run executes every present component once, in declared order. It stops
// as soon as a reaction kills the cell.
func (sl *Slots) Run(s *State, env *Env) {
	for k, p := range sl {
		if p == nil {
			continue
		}
		Table[k](p, s, env)
		if s.dead {
			return
		}
	}
}

// Size sums the structural size of all present components.
func (sl *Slots) Size(units chem.UnitSizes) float32 {
	var total float32
	for _, p := range sl {
		if p != nil {
			total += p.Size(units)
		}
	}
	return total
}

// Count returns the number of present components.
func (sl *Slots) Count() int {
	n := 0
	for _, p := range sl {
		if p != nil {
			n++
		}
	}
	return n
}

// Clone returns a copy that shares no Props with sl.
func (sl *Slots) Clone() Slots {
	var out Slots
	for k, p := range sl {
		if p != nil {
			cp := *p
			out[k] = &cp
		}
	}
	return out
}
