// Package metabolism implements the metabolic component set: a registry of
// pure reaction functions indexed by Kind, the per-component parameters, and
// the accumulator state the reactions mutate.
package metabolism

import (
	"fmt"
	"strings"
)

// Kind enumerates the known metabolic components. The declared order is the
// order in which a cell runs its components on every sub-step.
type Kind uint8

const (
	Flagellum Kind = iota
	Photosynthesis
	Glycolysis
	NucleotideSynthesis
	ProteinSynthesis
	Autolysis
	KindCount
)

var kindNames = [KindCount]string{
	"flagellum",
	"photosynthesis",
	"glycolysis",
	"nucleotide_synthesis",
	"protein_synthesis",
	"autolysis",
}

func (k Kind) String() string {
	if k < KindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Valid reports whether k names a known component.
func (k Kind) Valid() bool {
	return k < KindCount
}

// ParseKind resolves a component name as produced by String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown component kind %q", s)
}

// Kinds returns all kinds in declared order.
func Kinds() []Kind {
	ks := make([]Kind, KindCount)
	for i := range ks {
		ks[i] = Kind(i)
	}
	return ks
}
