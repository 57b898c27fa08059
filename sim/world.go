// Package sim owns the cell slot table and runs the per-tick pipeline:
// compute every live cell's delta, commit the deltas into the physics world,
// step physics and reclaim dead slots.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/pthm-cable/cellsim/arena"
	"github.com/pthm-cable/cellsim/cell"
	"github.com/pthm-cable/cellsim/chem"
	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/metabolism"
	"github.com/pthm-cable/cellsim/physics"
	"github.com/pthm-cable/cellsim/vec"
)

var (
	// ErrInvalidSlot is returned for a CellID that is out of range or whose
	// slot has been freed.
	ErrInvalidSlot = errors.New("invalid cell slot")
	// ErrMidTick is returned when the slot table is mutated during a tick.
	ErrMidTick = errors.New("world is mid-tick")
)

// CellID addresses a slot. Index is stable for the life of the cell.
type CellID arena.Handle

func (id CellID) String() string { return arena.Handle(id).String() }

// Phase is the tick state machine.
type Phase uint8

const (
	Idle Phase = iota
	ComputingDeltas
	Committing
	SteppingPhysics
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ComputingDeltas:
		return "computing_deltas"
	case Committing:
		return "committing"
	case SteppingPhysics:
		return "stepping_physics"
	}
	return fmt.Sprintf("Phase(%d)", p)
}

// Options configure tick orchestration.
type Options struct {
	Substeps       int
	StepSize       float32
	Parallel       bool
	OverlapPhysics bool // step physics concurrently with delta computation
	VelocityMode   bool // motion deltas add velocity directly instead of j/m
	RadiusScale    float32
	MinRadius      float32
	AutolysisFloor float32
	DT             float32
	Width, Height  float32
	Light          LightField
	Units          chem.UnitSizes
	Ranges         cell.Ranges
}

// OptionsFromConfig reads tick options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Substeps:       cfg.World.SubstepsPerTick,
		StepSize:       cfg.Derived.StepSize32,
		Parallel:       cfg.World.Parallel,
		OverlapPhysics: cfg.World.OverlapPhysics,
		VelocityMode:   cfg.Derived.VelocityMode,
		RadiusScale:    float32(cfg.Physics.RadiusScale),
		MinRadius:      float32(cfg.Physics.MinRadius),
		AutolysisFloor: float32(cfg.Metabolism.AutolysisFloor),
		DT:             cfg.Derived.DT32,
		Width:          cfg.Derived.WorldW32,
		Height:         cfg.Derived.WorldH32,
		Light: LightField{
			Base:     float32(cfg.Light.Base),
			Gradient: float32(cfg.Light.Gradient),
			Height:   cfg.Derived.WorldH32,
		},
		Units:  chem.UnitSizes(cfg.Derived.UnitSizes),
		Ranges: cell.RangesFromConfig(cfg),
	}
}

// slot is a live cell with its physics binding.
type slot struct {
	cell    *cell.Cell
	binding physics.Binding
}

// job is the read-only input for one cell's compute.
type job struct {
	id   CellID
	cell *cell.Cell
	env  metabolism.Env
}

// CellDelta pairs a delta with the cell it came from.
type CellDelta struct {
	ID    CellID
	Delta cell.Delta
}

// TickReport summarizes one tick.
type TickReport struct {
	Tick     uint64
	Live     int // live cells after the tick
	Computed int
	Died     []CellID
	Remains  []*cell.Cell // the cells of Died, in the same order
	Moved    int
	Resized  int

	Snapshot time.Duration
	Compute  time.Duration
	Commit   time.Duration
	Physics  time.Duration
}

// World owns the slot table and the physics world. It is driven from a
// single goroutine; Tick fans out internally.
type World struct {
	opts  Options
	phys  *physics.World
	slots arena.Arena[slot]
	rng   *rand.Rand
	phase Phase
	tick  uint64

	jobs   []job
	deltas []CellDelta
	pool   *pool
}

// NewWorld creates an empty world over phys. All randomness used to create
// cells flows from seed.
func NewWorld(opts Options, phys *physics.World, seed int64) *World {
	w := &World{
		opts:   opts,
		phys:   phys,
		rng:    rand.New(rand.NewSource(seed)),
		jobs:   make([]job, 0, 512),
		deltas: make([]CellDelta, 0, 512),
	}
	w.pool = newPool(w.computeChunk)
	return w
}

// Close stops the worker pool.
func (w *World) Close() {
	w.pool.stop()
}

// Options returns the world's options.
func (w *World) Options() Options { return w.opts }

// Physics returns the physics world. Callers must not mutate it mid-tick.
func (w *World) Physics() *physics.World { return w.phys }

// Phase returns the current tick phase.
func (w *World) Phase() Phase { return w.phase }

// Ticks returns the number of completed ticks.
func (w *World) Ticks() uint64 { return w.tick }

// Len returns the number of live cells.
func (w *World) Len() int { return w.slots.Len() }

// FreeList returns reclaimed slot indices, next to be reused first.
func (w *World) FreeList() []uint32 { return w.slots.FreeList() }

// Rand returns the world's random source.
func (w *World) Rand() *rand.Rand { return w.rng }

func (w *World) radius(size float32) float32 {
	return cell.Radius(size, w.opts.RadiusScale, w.opts.MinRadius)
}

// AddCell inserts c at pos with a body and a collider sized to the cell.
func (w *World) AddCell(c *cell.Cell, pos vec.Vec2) (CellID, error) {
	if w.phase != Idle {
		return CellID{}, ErrMidTick
	}
	body := w.phys.InsertBody(pos)
	col, err := w.phys.InsertCollider(physics.Circle{Radius: w.radius(c.Size())}, body)
	if err != nil {
		return CellID{}, fmt.Errorf("add cell: %w", err)
	}
	h := w.slots.Insert(slot{cell: c, binding: physics.Binding{Body: body, Collider: col}})
	return CellID(h), nil
}

// RandomCell draws a cell from the configured ranges using the world's
// random source.
func (w *World) RandomCell() *cell.Cell {
	return cell.NewRandom(w.rng, w.opts.Ranges, w.opts.Units)
}

// RandomPosition draws a point inside the world bounds.
func (w *World) RandomPosition() vec.Vec2 {
	return vec.Vec2{X: w.rng.Float32() * w.opts.Width, Y: w.rng.Float32() * w.opts.Height}
}

// AddRandomCell inserts a randomized cell at a random position.
func (w *World) AddRandomCell() (CellID, error) {
	c := w.RandomCell()
	return w.AddCell(c, w.RandomPosition())
}

func (w *World) get(id CellID) (*slot, error) {
	s, err := w.slots.Get(arena.Handle(id))
	if err != nil {
		return nil, fmt.Errorf("cell %v: %w: %w", id, ErrInvalidSlot, err)
	}
	return s, nil
}

// Cell returns the live cell at id.
func (w *World) Cell(id CellID) (*cell.Cell, error) {
	s, err := w.get(id)
	if err != nil {
		return nil, err
	}
	return s.cell, nil
}

// Binding returns the physics binding of the live cell at id.
func (w *World) Binding(id CellID) (physics.Binding, error) {
	s, err := w.get(id)
	if err != nil {
		return physics.Binding{}, err
	}
	return s.binding, nil
}

// Live returns the ids of all live cells in index order.
func (w *World) Live() []CellID {
	ids := make([]CellID, 0, w.slots.Len())
	w.slots.Each(func(h arena.Handle, _ *slot) {
		ids = append(ids, CellID(h))
	})
	return ids
}

// Each calls fn for every live cell in index order. fn must not add or
// remove cells.
func (w *World) Each(fn func(CellID, *cell.Cell, physics.Binding)) {
	w.slots.Each(func(h arena.Handle, s *slot) {
		fn(CellID(h), s.cell, s.binding)
	})
}

// InjectComponent replaces a component of the cell at id and resizes its
// collider immediately.
func (w *World) InjectComponent(id CellID, k metabolism.Kind, p metabolism.Props) error {
	if w.phase != Idle {
		return ErrMidTick
	}
	s, err := w.get(id)
	if err != nil {
		return err
	}
	if err := s.cell.InjectComponent(k, p); err != nil {
		return err
	}
	col, err := w.phys.Collider(s.binding.Collider)
	if err != nil {
		return fmt.Errorf("inject into %v: %w", id, err)
	}
	return col.SetShape(physics.Circle{Radius: w.radius(s.cell.Size())})
}

// Kill marks the cell at id dead. Its slot is reclaimed on the next commit.
func (w *World) Kill(id CellID) error {
	s, err := w.get(id)
	if err != nil {
		return err
	}
	s.cell.Kill()
	return nil
}

// Deltas returns the deltas of the last tick in index order. The slice is
// reused by the next tick.
func (w *World) Deltas() []CellDelta { return w.deltas }

// Tick runs one full tick. An error means a slot or handle invariant was
// broken and the world should not be ticked again.
func (w *World) Tick() (TickReport, error) {
	if w.phase != Idle {
		return TickReport{}, ErrMidTick
	}
	report := TickReport{Tick: w.tick}

	// Snapshot: resolve each live cell's physics context single-threaded.
	t0 := time.Now()
	if err := w.snapshot(); err != nil {
		return report, err
	}
	report.Computed = len(w.jobs)
	report.Snapshot = time.Since(t0)

	// Compute, optionally overlapped with this tick's physics step.
	t0 = time.Now()
	w.phase = ComputingDeltas
	var stepped sync.WaitGroup
	var physicsTime time.Duration
	if w.opts.OverlapPhysics {
		stepped.Add(1)
		go func() {
			defer stepped.Done()
			start := time.Now()
			w.phys.Step(physics.StepParams{DT: w.opts.DT})
			physicsTime = time.Since(start)
		}()
	}
	w.compute()
	stepped.Wait()
	report.Compute = time.Since(t0)

	t0 = time.Now()
	w.phase = Committing
	if err := w.commit(&report); err != nil {
		w.phase = Idle
		return report, err
	}
	report.Commit = time.Since(t0)

	if w.opts.OverlapPhysics {
		report.Physics = physicsTime
	} else {
		t0 = time.Now()
		w.phase = SteppingPhysics
		w.phys.Step(physics.StepParams{DT: w.opts.DT})
		report.Physics = time.Since(t0)
	}

	w.phase = Idle
	w.tick++
	report.Live = w.slots.Len()

	slog.Debug("tick",
		"tick", report.Tick,
		"live", report.Live,
		"died", len(report.Died),
		"moved", report.Moved,
		"resized", report.Resized,
	)
	return report, nil
}

func (w *World) snapshot() error {
	w.jobs = w.jobs[:0]
	var err error
	w.slots.Each(func(h arena.Handle, s *slot) {
		if err != nil {
			return
		}
		body, berr := w.phys.Body(s.binding.Body)
		if berr != nil {
			err = fmt.Errorf("snapshot cell %v: %w", CellID(h), berr)
			return
		}
		w.jobs = append(w.jobs, job{
			id:   CellID(h),
			cell: s.cell,
			env: metabolism.Env{
				StepSize:       w.opts.StepSize,
				Units:          w.opts.Units,
				Light:          w.opts.Light.At(body.Position()),
				AutolysisFloor: w.opts.AutolysisFloor,
			},
		})
	})
	return err
}

func (w *World) compute() {
	n := len(w.jobs)
	if cap(w.deltas) < n {
		w.deltas = make([]CellDelta, n)
	}
	w.deltas = w.deltas[:n]
	if n == 0 {
		return
	}

	if w.opts.Parallel && n >= parallelThreshold {
		w.pool.run(n)
	} else {
		w.computeChunk(0, n)
	}
}

// computeChunk steps jobs[i0:i1]. Each cell is touched by exactly one
// worker and each worker writes only its own range of deltas.
func (w *World) computeChunk(i0, i1 int) {
	for i := i0; i < i1; i++ {
		j := &w.jobs[i]
		w.deltas[i] = CellDelta{ID: j.id, Delta: j.cell.Step(j.env, w.opts.Substeps)}
	}
}

func (w *World) commit(report *TickReport) error {
	for _, cd := range w.deltas {
		d := cd.Delta
		if d.Empty() {
			continue
		}
		s, err := w.get(cd.ID)
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		if d.Dead {
			if err := w.phys.RemoveBody(s.binding.Body); err != nil {
				return fmt.Errorf("commit death of %v: %w", cd.ID, err)
			}
			dead, err := w.slots.Remove(arena.Handle(cd.ID))
			if err != nil {
				return fmt.Errorf("commit death of %v: %w: %w", cd.ID, ErrInvalidSlot, err)
			}
			report.Died = append(report.Died, cd.ID)
			report.Remains = append(report.Remains, dead.cell)
			continue
		}

		if d.HasMotion {
			body, err := w.phys.Body(s.binding.Body)
			if err != nil {
				return fmt.Errorf("commit motion of %v: %w", cd.ID, err)
			}
			if w.opts.VelocityMode {
				body.AddVelocity(d.Motion)
			} else {
				body.ApplyImpulse(d.Motion)
			}
			report.Moved++
		}
		if d.HasSize {
			col, err := w.phys.Collider(s.binding.Collider)
			if err != nil {
				return fmt.Errorf("commit size of %v: %w", cd.ID, err)
			}
			if err := col.SetShape(physics.Circle{Radius: w.radius(d.Size)}); err != nil {
				return fmt.Errorf("commit size of %v: %w", cd.ID, err)
			}
			report.Resized++
		}
	}
	return nil
}
