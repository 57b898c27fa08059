package metabolism

import "fmt"

// Named returns the filled slots keyed by component name.
func (sl *Slots) Named() map[string]Props {
	out := make(map[string]Props, KindCount)
	for k, p := range sl {
		if p != nil {
			out[Kind(k).String()] = *p
		}
	}
	return out
}

// SlotsFromNamed is the inverse of Named. Efficiency is recomputed from
// throughput and capacity rather than trusted.
func SlotsFromNamed(m map[string]Props) (Slots, error) {
	var sl Slots
	for name, p := range m {
		k, err := ParseKind(name)
		if err != nil {
			return Slots{}, fmt.Errorf("slot %q: %w", name, err)
		}
		np := NewProps(p.Throughput, p.Capacity)
		sl[k] = &np
	}
	return sl, nil
}
