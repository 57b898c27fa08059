package cell

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/cellsim/chem"
	"github.com/pthm-cable/cellsim/metabolism"
)

func env() metabolism.Env {
	return metabolism.Env{StepSize: 0.01, Light: 1, AutolysisFloor: 0.001}
}

func withOnly(k metabolism.Kind, p metabolism.Props) metabolism.Slots {
	var slots metabolism.Slots
	slots[k] = &p
	return slots
}

func TestNewSize(t *testing.T) {
	ledger := chem.Ledger{chem.Energy: 5, chem.Feedstock: 1}
	slots := withOnly(metabolism.Glycolysis, metabolism.NewProps(1, 2))
	c := New(ledger, Membrane{Size: 3}, slots, 1, chem.DefaultUnitSizes)

	want := float32(5*1 + 1*10 + 3 + 2*10)
	if c.Size() != want {
		t.Errorf("size: got %f, want %f", c.Size(), want)
	}
}

func TestStepGlycolysisNoFeedstock(t *testing.T) {
	ledger := chem.Ledger{chem.Energy: 2}
	c := New(ledger, Membrane{}, withOnly(metabolism.Glycolysis, metabolism.NewProps(1, 2)), 1, chem.DefaultUnitSizes)
	sizeBefore := c.Size()

	d := c.Step(env(), 10)

	if !d.Empty() {
		t.Errorf("expected empty delta, got %+v", d)
	}
	if c.Ledger() != ledger {
		t.Errorf("ledger changed: got %v, want %v", c.Ledger(), ledger)
	}
	if c.Size() != sizeBefore {
		t.Errorf("size changed: got %f, want %f", c.Size(), sizeBefore)
	}
}

func TestStepFlagellum(t *testing.T) {
	p := metabolism.NewProps(1, 2)
	c := New(chem.Ledger{chem.Energy: 5}, Membrane{}, withOnly(metabolism.Flagellum, p), 42, chem.DefaultUnitSizes)

	const substeps = 10
	d := c.Step(env(), substeps)

	totalIn := float32(substeps) * 0.01
	totalOut := totalIn * p.Efficiency
	ledger := c.Ledger()
	if got := 5 - ledger.Get(chem.Energy); math.Abs(float64(got-totalIn)) > 1e-4 {
		t.Errorf("energy debited: got %f, want %f", got, totalIn)
	}
	if !d.HasMotion {
		t.Fatal("expected a motion delta")
	}
	// Per-activation |x|+|y| equals the output; signs may cancel across sub-steps.
	if d.Motion.L1() > totalOut+1e-4 {
		t.Errorf("|x|+|y| = %f exceeds total output %f", d.Motion.L1(), totalOut)
	}
	if !d.HasSize {
		t.Error("expected a size delta from burned energy")
	}

	// Accumulators were consumed: a second tick with no energy emits no motion.
	c2 := New(chem.Ledger{}, Membrane{}, withOnly(metabolism.Flagellum, p), 42, chem.DefaultUnitSizes)
	if d := c2.Step(env(), substeps); d.HasMotion || d.HasSize {
		t.Errorf("cell without energy should not move: %+v", d)
	}
}

func TestStepMotionReportedOnce(t *testing.T) {
	c := New(chem.Ledger{chem.Energy: 5}, Membrane{}, withOnly(metabolism.Flagellum, metabolism.NewProps(1, 2)), 3, chem.DefaultUnitSizes)
	first := c.Step(env(), 1)
	if !first.HasMotion {
		t.Fatal("expected motion on first tick")
	}
	c.Slots[metabolism.Flagellum] = nil
	if second := c.Step(env(), 1); second.HasMotion {
		t.Errorf("motion re-emitted after removal: %+v", second)
	}
}

func TestKillAbortsStep(t *testing.T) {
	c := New(chem.Ledger{chem.Energy: 5}, Membrane{}, withOnly(metabolism.Flagellum, metabolism.NewProps(1, 2)), 1, chem.DefaultUnitSizes)
	c.Kill()
	d := c.Step(env(), 10)
	if !d.Dead || d.HasMotion || d.HasSize {
		t.Errorf("expected bare dead delta, got %+v", d)
	}
	if ledger := c.Ledger(); ledger.Get(chem.Energy) != 5 {
		t.Error("dead cell should not metabolize")
	}
}

func TestAutolysisDeathMidPipeline(t *testing.T) {
	var slots metabolism.Slots
	flag := metabolism.NewProps(1, 2)
	auto := metabolism.NewProps(1, 1)
	slots[metabolism.Flagellum] = &flag
	slots[metabolism.Autolysis] = &auto

	// Enough energy for a few sub-steps, no protein to fall back on.
	c := New(chem.Ledger{chem.Energy: 0.03}, Membrane{}, slots, 1, chem.DefaultUnitSizes)
	d := c.Step(env(), 100)
	if !d.Dead {
		t.Fatalf("expected death once energy ran out, got %+v", d)
	}
}

func TestInjectComponent(t *testing.T) {
	c := New(chem.Ledger{}, Membrane{}, metabolism.Slots{}, 1, chem.DefaultUnitSizes)
	if err := c.InjectComponent(metabolism.ProteinSynthesis, metabolism.NewProps(1, 4)); err != nil {
		t.Fatal(err)
	}
	if c.Size() != 40 {
		t.Errorf("size after inject: got %f, want 40", c.Size())
	}
	if err := c.InjectComponent(metabolism.ProteinSynthesis, metabolism.NewProps(1, 1)); err != nil {
		t.Fatal(err)
	}
	if c.Size() != 10 {
		t.Errorf("size after replace: got %f, want 10", c.Size())
	}
	p, ok := c.Component(metabolism.ProteinSynthesis)
	if !ok || p.Capacity != 1 {
		t.Errorf("component: got %+v, %v", p, ok)
	}

	err := c.InjectComponent(metabolism.KindCount, metabolism.NewProps(1, 1))
	if !errors.Is(err, ErrComponentIndex) {
		t.Errorf("expected ErrComponentIndex, got %v", err)
	}
}

func TestNewRandomDeterministic(t *testing.T) {
	r := Ranges{
		Components:   metabolism.DefaultRanges,
		EnergyMin:    1,
		EnergyMax:    10,
		FeedstockMax: 5,
		ProteinMax:   3,
		MembraneSize: 2,
	}
	a := NewRandom(rand.New(rand.NewSource(9)), r, chem.DefaultUnitSizes)
	b := NewRandom(rand.New(rand.NewSource(9)), r, chem.DefaultUnitSizes)
	if a.Ledger() != b.Ledger() || a.Size() != b.Size() || a.Seed() != b.Seed() {
		t.Error("same seed produced different cells")
	}
	if err := a.CheckInvariants(); err != nil {
		t.Error(err)
	}
}

func TestNewWithSlotsKeepsComponents(t *testing.T) {
	r := Ranges{EnergyMin: 1, EnergyMax: 2, MembraneSize: 4}
	slots := withOnly(metabolism.Photosynthesis, metabolism.NewProps(0.5, 3))
	c := NewWithSlots(rand.New(rand.NewSource(2)), r, slots, chem.DefaultUnitSizes)

	got, ok := c.Component(metabolism.Photosynthesis)
	if !ok || got != *slots[metabolism.Photosynthesis] {
		t.Errorf("component: got %+v ok=%v", got, ok)
	}
	// The cell owns a copy of the slots.
	slots[metabolism.Photosynthesis].SetCapacity(9)
	if got, _ := c.Component(metabolism.Photosynthesis); got.Capacity != 3 {
		t.Errorf("slots aliased: capacity %f", got.Capacity)
	}
	if c.Membrane.Size != 4 {
		t.Errorf("membrane: got %f, want 4", c.Membrane.Size)
	}
}

func TestNonNegativeOverManyTicks(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	r := Ranges{Components: metabolism.Ranges{ThroughputMax: 1, CapacityMax: 10, Presence: 1}, EnergyMax: 2, FeedstockMax: 1, ProteinMax: 1}
	for i := 0; i < 20; i++ {
		c := NewRandom(rng, r, chem.DefaultUnitSizes)
		for tick := 0; tick < 20; tick++ {
			if d := c.Step(env(), 50); d.Dead {
				break
			}
			if err := c.CheckInvariants(); err != nil {
				t.Fatalf("cell %d tick %d: %v", i, tick, err)
			}
		}
	}
}

func TestRadius(t *testing.T) {
	if got := Radius(200, 0.5, 1); got != 100 {
		t.Errorf("got %f, want 100", got)
	}
	if got := Radius(1, 0.5, 1); got != 1 {
		t.Errorf("got %f, want min radius 1", got)
	}
}
