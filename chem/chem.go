// Package chem holds the per-cell chemical ledger and the clamped transfer
// arithmetic every metabolic reaction is built on.
package chem

import (
	"fmt"
	"math"
)

// Kind identifies a chemical species tracked by a ledger.
type Kind uint8

const (
	Energy     Kind = iota // ATP
	Feedstock              // glucose
	Nucleotide             // nucleotide pool
	Protein                // protein pool
	KindCount
)

var kindNames = [KindCount]string{"energy", "feedstock", "nucleotide", "protein"}

func (k Kind) String() string {
	if k < KindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// UnitSizes is the size contribution of one unit of each kind.
type UnitSizes [KindCount]float32

// DefaultUnitSizes are the weights used when no configuration is supplied.
var DefaultUnitSizes = UnitSizes{
	Energy:     1,
	Feedstock:  10,
	Nucleotide: 10,
	Protein:    10,
}

// Ledger holds non-negative quantities of each chemical kind.
type Ledger [KindCount]float32

// Get returns the quantity of k.
func (l *Ledger) Get(k Kind) float32 {
	return l[k]
}

// Add credits q of k. Non-positive amounts are ignored.
func (l *Ledger) Add(k Kind, q float32) {
	if q > 0 {
		l[k] += q
	}
}

// Take debits up to q of k and returns the amount actually removed.
// The ledger never goes negative.
func (l *Ledger) Take(k Kind, q float32) float32 {
	if q <= 0 {
		return 0
	}
	if q > l[k] {
		q = l[k]
	}
	l[k] -= q
	if l[k] < 0 {
		l[k] = 0
	}
	return q
}

// Size returns the weighted size of the ledger contents.
func (l *Ledger) Size(units UnitSizes) float32 {
	var s float32
	for k := range l {
		s += l[k] * units[k]
	}
	return s
}

// Total returns the unweighted sum of all quantities.
func (l *Ledger) Total() float32 {
	var s float32
	for _, q := range l {
		s += q
	}
	return s
}

// Valid reports whether every quantity is finite and non-negative.
func (l *Ledger) Valid() bool {
	for _, q := range l {
		if q < 0 || math.IsNaN(float64(q)) || math.IsInf(float64(q), 0) {
			return false
		}
	}
	return true
}

// Transfer is the outcome of one clamped reaction activation.
type Transfer struct {
	Input  float32
	Output float32
}

// Unconstrained marks a source with no availability limit (light).
var Unconstrained = float32(math.Inf(1))

// Clamp computes a transfer: input = min(rate*step, available),
// output = input*efficiency. Negative availability counts as empty.
func Clamp(rate, step, available, efficiency float32) Transfer {
	want := rate * step
	if want < 0 {
		want = 0
	}
	if available < 0 {
		available = 0
	}
	in := want
	if available < in {
		in = available
	}
	return Transfer{Input: in, Output: in * efficiency}
}

// SizeDelta is the change in cell size when t consumes input measured in
// inUnit and produces output measured in outUnit.
func (t Transfer) SizeDelta(inUnit, outUnit float32) float32 {
	return t.Output*outUnit - t.Input*inUnit
}
