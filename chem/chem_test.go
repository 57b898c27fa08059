package chem

import (
	"math"
	"testing"
)

func TestTakeClampsAtZero(t *testing.T) {
	var l Ledger
	l.Add(Energy, 3)

	got := l.Take(Energy, 5)
	if got != 3 {
		t.Errorf("Take returned %f, want 3", got)
	}
	if l.Get(Energy) != 0 {
		t.Errorf("energy after over-debit: got %f, want 0", l.Get(Energy))
	}
	if got := l.Take(Energy, 1); got != 0 {
		t.Errorf("Take from empty returned %f, want 0", got)
	}
}

func TestAddIgnoresNegative(t *testing.T) {
	var l Ledger
	l.Add(Protein, -4)
	if l.Get(Protein) != 0 {
		t.Errorf("protein: got %f, want 0", l.Get(Protein))
	}
}

func TestSizeWeightsByUnit(t *testing.T) {
	l := Ledger{Energy: 2, Feedstock: 1, Nucleotide: 0.5, Protein: 0}
	got := l.Size(DefaultUnitSizes)
	want := float32(2*1 + 1*10 + 0.5*10)
	if got != want {
		t.Errorf("Size: got %f, want %f", got, want)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name                   string
		rate, step, avail, eff float32
		wantIn, wantOut        float32
	}{
		{"unconstrained by supply", 1, 0.01, 100, 0.5, 0.01, 0.005},
		{"limited by supply", 1, 0.5, 0.2, 0.5, 0.2, 0.1},
		{"empty supply", 1, 0.01, 0, 0.5, 0, 0},
		{"negative supply", 1, 0.01, -3, 0.5, 0, 0},
		{"unbounded source", 2, 0.01, Unconstrained, 1, 0.02, 0.02},
		{"zero rate", 0, 0.01, 5, 1, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := Clamp(tc.rate, tc.step, tc.avail, tc.eff)
			if math.Abs(float64(tr.Input-tc.wantIn)) > 1e-6 {
				t.Errorf("input: got %f, want %f", tr.Input, tc.wantIn)
			}
			if math.Abs(float64(tr.Output-tc.wantOut)) > 1e-6 {
				t.Errorf("output: got %f, want %f", tr.Output, tc.wantOut)
			}
			if tr.Input > tc.avail && tc.avail >= 0 {
				t.Errorf("input %f exceeds available %f", tr.Input, tc.avail)
			}
		})
	}
}

func TestSizeDelta(t *testing.T) {
	tr := Transfer{Input: 1, Output: 0.5}
	if got := tr.SizeDelta(10, 1); got != -9.5 {
		t.Errorf("SizeDelta: got %f, want -9.5", got)
	}
}

func TestKindString(t *testing.T) {
	if Feedstock.String() != "feedstock" {
		t.Errorf("got %q", Feedstock.String())
	}
	if Kind(9).String() != "Kind(9)" {
		t.Errorf("got %q", Kind(9).String())
	}
}
