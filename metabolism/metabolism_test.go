package metabolism

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/cellsim/chem"
)

func testEnv() *Env {
	return &Env{
		StepSize:       0.01,
		Units:          chem.DefaultUnitSizes,
		Light:          1,
		AutolysisFloor: 0.001,
		Rand:           rand.New(rand.NewSource(1)),
	}
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

// ---------- Props ----------

func TestEfficiencyRecomputed(t *testing.T) {
	p := NewProps(1, 2)
	if !near(p.Efficiency, 1.0/1.5) {
		t.Errorf("efficiency: got %f, want %f", p.Efficiency, 1.0/1.5)
	}
	p.SetThroughput(2)
	if !near(p.Efficiency, 0.5) {
		t.Errorf("after SetThroughput: got %f, want 0.5", p.Efficiency)
	}
	p.SetCapacity(6)
	if !near(p.Efficiency, 0.75) {
		t.Errorf("after SetCapacity: got %f, want 0.75", p.Efficiency)
	}
	p.SetCapacity(0)
	if p.Efficiency != 0 {
		t.Errorf("zero capacity: got %f, want 0", p.Efficiency)
	}
}

func TestRandomPropsWithinRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	r := Ranges{ThroughputMin: 0.2, ThroughputMax: 0.4, CapacityMin: 3, CapacityMax: 5}
	for i := 0; i < 1000; i++ {
		p := RandomProps(rng, r)
		if p.Throughput < r.ThroughputMin || p.Throughput > r.ThroughputMax {
			t.Fatalf("throughput %f out of range", p.Throughput)
		}
		if p.Capacity < r.CapacityMin || p.Capacity > r.CapacityMax {
			t.Fatalf("capacity %f out of range", p.Capacity)
		}
		if want := 1 / (1 + p.Throughput/p.Capacity); !near(p.Efficiency, want) {
			t.Fatalf("efficiency %f, want %f", p.Efficiency, want)
		}
	}
}

// ---------- Reactions ----------

func TestConversionNeverOverdraws(t *testing.T) {
	conversions := []struct {
		kind     Kind
		from, to chem.Kind
	}{
		{Glycolysis, chem.Feedstock, chem.Energy},
		{NucleotideSynthesis, chem.Energy, chem.Nucleotide},
		{ProteinSynthesis, chem.Energy, chem.Protein},
	}
	for _, c := range conversions {
		t.Run(c.kind.String(), func(t *testing.T) {
			env := testEnv()
			env.StepSize = 1 // request far more than is available
			p := NewProps(5, 5)
			var s State
			s.Ledger.Add(c.from, 0.3)
			before := s.Ledger.Get(c.from)

			Table[c.kind](&p, &s, env)

			input := before - s.Ledger.Get(c.from)
			if input > before {
				t.Errorf("input %f exceeds available %f", input, before)
			}
			if !near(s.Ledger.Get(c.to), input*p.Efficiency) {
				t.Errorf("output: got %f, want %f", s.Ledger.Get(c.to), input*p.Efficiency)
			}
			if !s.Ledger.Valid() {
				t.Errorf("ledger went invalid: %v", s.Ledger)
			}
		})
	}
}

func TestGlycolysisWithoutFeedstock(t *testing.T) {
	env := testEnv()
	p := NewProps(1, 2)
	var s State
	s.Ledger.Add(chem.Energy, 3)
	s.Size = 50

	for i := 0; i < 10; i++ {
		Table[Glycolysis](&p, &s, env)
	}
	if s.Ledger.Get(chem.Energy) != 3 {
		t.Errorf("energy: got %f, want 3", s.Ledger.Get(chem.Energy))
	}
	if s.Size != 50 || s.SizeChanged() {
		t.Errorf("size should be unchanged: got %f (changed=%v)", s.Size, s.SizeChanged())
	}
}

func TestFlagellumAxisSplit(t *testing.T) {
	env := testEnv()
	p := NewProps(1, 2)
	var s State
	s.Ledger.Add(chem.Energy, 5)
	s.Size = 100

	Table[Flagellum](&p, &s, env)

	wantIn := float32(0.01)
	wantOut := wantIn * p.Efficiency
	if !near(5-s.Ledger.Get(chem.Energy), wantIn) {
		t.Errorf("energy debited: got %f, want %f", 5-s.Ledger.Get(chem.Energy), wantIn)
	}
	if !near(s.Impulse.L1(), wantOut) {
		t.Errorf("|x|+|y|: got %f, want %f", s.Impulse.L1(), wantOut)
	}
	if !s.MotionChanged() {
		t.Error("motion flag not set")
	}
	if !near(s.Size, 100-wantIn*env.Units[chem.Energy]) {
		t.Errorf("size: got %f", s.Size)
	}
}

func TestPhotosynthesisScalesWithLight(t *testing.T) {
	env := testEnv()
	p := NewProps(1, 1)

	var lit State
	Table[Photosynthesis](&p, &lit, env)

	env.Light = 0
	var dark State
	Table[Photosynthesis](&p, &dark, env)

	if !near(lit.Ledger.Get(chem.Feedstock), 0.01*0.5) {
		t.Errorf("lit feedstock: got %f, want 0.005", lit.Ledger.Get(chem.Feedstock))
	}
	if dark.Ledger.Get(chem.Feedstock) != 0 || dark.SizeChanged() {
		t.Errorf("dark cell should not grow: %v", dark.Ledger)
	}
}

func TestPhotosynthesisKeepsEfficiencyInDimLight(t *testing.T) {
	env := testEnv()
	env.Light = 0.75
	p := NewProps(1, 1)

	var s State
	Table[Photosynthesis](&p, &s, env)

	input := p.Throughput * env.Light * env.StepSize
	want := input * p.Efficiency
	if got := s.Ledger.Get(chem.Feedstock); got != want {
		t.Errorf("feedstock: got %f, want input*efficiency = %f*%f = %f", got, input, p.Efficiency, want)
	}
	if !near(s.Size, want*env.Units[chem.Feedstock]) {
		t.Errorf("size: got %f, want %f", s.Size, want*env.Units[chem.Feedstock])
	}
}

func TestModifySizeDoesNotClamp(t *testing.T) {
	var s State
	s.Size = 1
	s.ModifySize(-3)
	if s.Size != -2 {
		t.Errorf("size: got %f, want -2", s.Size)
	}
	if !s.SizeChanged() {
		t.Error("size flag not set")
	}
}

func TestAutolysis(t *testing.T) {
	env := testEnv()
	p := NewProps(1, 1)

	var fed State
	fed.Ledger.Add(chem.Energy, 1)
	fed.Ledger.Add(chem.Protein, 1)
	Table[Autolysis](&p, &fed, env)
	if fed.Ledger.Get(chem.Protein) != 1 {
		t.Error("autolysis should idle while energy remains")
	}

	var starving State
	starving.Ledger.Add(chem.Protein, 1)
	Table[Autolysis](&p, &starving, env)
	if starving.Ledger.Get(chem.Energy) <= 0 {
		t.Error("autolysis should recover energy from protein")
	}
	if starving.Dead() {
		t.Error("cell with protein should not die")
	}

	var empty State
	Table[Autolysis](&p, &empty, env)
	if !empty.Dead() {
		t.Error("cell with no energy and no protein should die")
	}
}

// ---------- Slots ----------

func TestSlotsRunStopsOnDeath(t *testing.T) {
	env := testEnv()
	var slots Slots
	auto := NewProps(1, 1)
	slots[Autolysis] = &auto

	var s State
	slots.Run(&s, env)
	if !s.Dead() {
		t.Fatal("expected death")
	}
}

func TestSlotsCloneIsDeep(t *testing.T) {
	var slots Slots
	p := NewProps(1, 1)
	slots[Glycolysis] = &p

	cp := slots.Clone()
	cp[Glycolysis].SetThroughput(0.5)
	if slots[Glycolysis].Throughput != 1 {
		t.Error("clone shares props with original")
	}
	if cp.Count() != 1 {
		t.Errorf("Count: got %d, want 1", cp.Count())
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("mitochondria"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestSlotsNamedRoundTrip(t *testing.T) {
	var sl Slots
	g := NewProps(0.5, 2)
	a := NewProps(1, 4)
	sl[Glycolysis] = &g
	sl[Autolysis] = &a

	named := sl.Named()
	if len(named) != 2 || named["glycolysis"] != g {
		t.Fatalf("named: %+v", named)
	}

	// Efficiency is recomputed rather than taken from the input.
	named["glycolysis"] = Props{Throughput: 0.5, Capacity: 2, Efficiency: 99}
	back, err := SlotsFromNamed(named)
	if err != nil {
		t.Fatal(err)
	}
	if *back[Glycolysis] != g || *back[Autolysis] != a || back[Flagellum] != nil {
		t.Errorf("round trip: %+v %+v", back[Glycolysis], back[Autolysis])
	}

	if _, err := SlotsFromNamed(map[string]Props{"cilia": {}}); err == nil {
		t.Error("expected error for unknown component")
	}
}
