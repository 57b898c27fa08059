package metabolism

import (
	"math/rand"

	"github.com/pthm-cable/cellsim/chem"
	"github.com/pthm-cable/cellsim/vec"
)

// State is the mutable part of a cell that reactions write to: its ledger,
// running size, and the motion accumulated since the last delta was taken.
type State struct {
	Ledger  chem.Ledger
	Size    float32
	Impulse vec.Vec2

	sizeChanged   bool
	motionChanged bool
	dead          bool
}

// ModifySize adds d to the running size. Size is not clamped; a negative
// size is an accounting error reported by the cell's invariant check.
func (s *State) ModifySize(d float32) {
	if d == 0 {
		return
	}
	s.Size += d
	s.sizeChanged = true
}

// AddImpulse accumulates a motion contribution.
func (s *State) AddImpulse(v vec.Vec2) {
	if v.IsZero() {
		return
	}
	s.Impulse = s.Impulse.Add(v)
	s.motionChanged = true
}

// Kill signals the death condition. The owning cell aborts its remaining
// sub-steps.
func (s *State) Kill() { s.dead = true }

func (s *State) Dead() bool          { return s.dead }
func (s *State) SizeChanged() bool   { return s.sizeChanged }
func (s *State) MotionChanged() bool { return s.motionChanged }

// ClearPending drops the motion accumulator and both change flags.
func (s *State) ClearPending() {
	s.Impulse = vec.Zero
	s.sizeChanged = false
	s.motionChanged = false
}

// Env is the read-only context handed to every reaction in a sub-step.
type Env struct {
	StepSize       float32
	Units          chem.UnitSizes
	Light          float32 // ambient light at the cell, 0..1
	AutolysisFloor float32
	Rand           *rand.Rand // owned by the cell being stepped
}
