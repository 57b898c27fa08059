// Package physics is the rigid-body service the simulation steps once per
// tick. Bodies and colliders are addressed through generational handles
// into arenas owned by World; the solver itself is chipmunk.
package physics

import (
	"fmt"

	"github.com/vova616/chipmunk"
	"github.com/vova616/chipmunk/vect"

	"github.com/pthm-cable/cellsim/arena"
	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/vec"
)

var (
	ErrInvalidHandle = arena.ErrInvalid
	ErrStaleHandle   = arena.ErrStale
)

// BodyHandle addresses a body in a World.
type BodyHandle arena.Handle

// ColliderHandle addresses a collider in a World.
type ColliderHandle arena.Handle

// Binding is the non-owning back-reference from a cell slot into the
// physics stores.
type Binding struct {
	Body     BodyHandle
	Collider ColliderHandle
}

// Circle is the only collider shape cells use.
type Circle struct {
	Radius float32
}

// Params configure a World at construction.
type Params struct {
	Gravity    vec.Vec2
	Mass       float32
	Elasticity float32
	Friction   float32
	// Width and Height enclose the world in static walls when both are > 0.
	Width, Height float32
}

// ParamsFromConfig reads physics parameters from cfg.
func ParamsFromConfig(cfg *config.Config) Params {
	p := cfg.Physics
	return Params{
		Gravity:    vec.Vec2{X: float32(p.GravityX), Y: float32(p.GravityY)},
		Mass:       float32(p.CellMass),
		Elasticity: float32(p.Elasticity),
		Friction:   float32(p.Friction),
		Width:      cfg.Derived.WorldW32,
		Height:     cfg.Derived.WorldH32,
	}
}

// StepParams are the per-step solver inputs.
type StepParams struct {
	DT float32
}

// Body is a dynamic rigid body. A body joins the solver once its first
// collider is attached.
type Body struct {
	body      *chipmunk.Body
	mass      float32
	colliders []ColliderHandle
	inSpace   bool
}

// Position returns the body's centre.
func (b *Body) Position() vec.Vec2 { return fromVect(b.body.Position()) }

// Velocity returns the body's linear velocity.
func (b *Body) Velocity() vec.Vec2 { return fromVect(b.body.Velocity()) }

// Mass returns the body's mass.
func (b *Body) Mass() float32 { return b.mass }

// SetVelocity overwrites the linear velocity.
func (b *Body) SetVelocity(v vec.Vec2) {
	b.body.SetVelocity(v.X, v.Y)
}

// AddVelocity adds dv to the linear velocity.
func (b *Body) AddVelocity(dv vec.Vec2) {
	b.SetVelocity(b.Velocity().Add(dv))
}

// ApplyImpulse changes velocity by j/m.
func (b *Body) ApplyImpulse(j vec.Vec2) {
	if b.mass <= 0 {
		return
	}
	b.AddVelocity(j.Scale(1 / b.mass))
}

// Collider is a circle attached to one body.
type Collider struct {
	shape *chipmunk.Shape
	owner BodyHandle
	world *World
}

// Radius returns the current circle radius.
func (c *Collider) Radius() float32 {
	return float32(c.shape.GetAsCircle().Radius)
}

// Owner returns the body the collider is attached to.
func (c *Collider) Owner() BodyHandle { return c.owner }

// SetShape resizes the circle and updates the owning body's moment.
func (c *Collider) SetShape(s Circle) error {
	body, err := c.world.Body(c.owner)
	if err != nil {
		return fmt.Errorf("collider owner: %w", err)
	}
	c.shape.GetAsCircle().Radius = vect.Float(s.Radius)
	body.body.SetMoment(c.shape.Moment(body.mass))
	return nil
}

// World owns the solver space and the body and collider stores.
type World struct {
	space     *chipmunk.Space
	params    Params
	bodies    arena.Arena[*Body]
	colliders arena.Arena[*Collider]
	walls     *chipmunk.Body
}

// NewWorld creates an empty world.
func NewWorld(p Params) *World {
	space := chipmunk.NewSpace()
	space.Gravity = toVect(p.Gravity)
	w := &World{space: space, params: p}
	if p.Width > 0 && p.Height > 0 {
		w.addWalls(p.Width, p.Height)
	}
	return w
}

func (w *World) addWalls(width, height float32) {
	corners := []vect.Vect{
		{X: 0, Y: 0},
		{X: vect.Float(width), Y: 0},
		{X: vect.Float(width), Y: vect.Float(height)},
		{X: 0, Y: vect.Float(height)},
	}
	w.walls = chipmunk.NewBodyStatic()
	for i := range corners {
		seg := chipmunk.NewSegment(corners[i], corners[(i+1)%len(corners)], 0)
		seg.SetElasticity(w.params.Elasticity)
		seg.SetFriction(w.params.Friction)
		w.walls.AddShape(seg)
	}
	w.space.AddBody(w.walls)
}

// Params returns the construction parameters.
func (w *World) Params() Params { return w.params }

// InsertBody creates a dynamic body at pos.
func (w *World) InsertBody(pos vec.Vec2) BodyHandle {
	// Moment is replaced as soon as a collider is attached.
	b := chipmunk.NewBody(vect.Float(w.params.Mass), 1)
	b.SetPosition(toVect(pos))
	return BodyHandle(w.bodies.Insert(&Body{body: b, mass: w.params.Mass}))
}

// InsertCollider attaches a circle to owner.
func (w *World) InsertCollider(s Circle, owner BodyHandle) (ColliderHandle, error) {
	body, err := w.Body(owner)
	if err != nil {
		return ColliderHandle{}, fmt.Errorf("insert collider: %w", err)
	}
	shape := chipmunk.NewCircle(vect.Vector_Zero, s.Radius)
	shape.SetElasticity(w.params.Elasticity)
	shape.SetFriction(w.params.Friction)

	// Shapes are registered with the space when their body is added.
	if body.inSpace {
		w.space.RemoveBody(body.body)
	}
	body.body.AddShape(shape)
	body.body.SetMoment(shape.Moment(body.mass))
	w.space.AddBody(body.body)
	body.inSpace = true

	h := ColliderHandle(w.colliders.Insert(&Collider{shape: shape, owner: owner, world: w}))
	body.colliders = append(body.colliders, h)
	return h, nil
}

// Body resolves h.
func (w *World) Body(h BodyHandle) (*Body, error) {
	b, err := w.bodies.Get(arena.Handle(h))
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	return *b, nil
}

// Collider resolves h.
func (w *World) Collider(h ColliderHandle) (*Collider, error) {
	c, err := w.colliders.Get(arena.Handle(h))
	if err != nil {
		return nil, fmt.Errorf("collider: %w", err)
	}
	return *c, nil
}

// RemoveBody removes a body and every collider attached to it. All handles
// to them go stale.
func (w *World) RemoveBody(h BodyHandle) error {
	body, err := w.bodies.Remove(arena.Handle(h))
	if err != nil {
		return fmt.Errorf("remove body: %w", err)
	}
	for _, ch := range body.colliders {
		if _, err := w.colliders.Remove(arena.Handle(ch)); err != nil {
			return fmt.Errorf("remove body collider: %w", err)
		}
	}
	if body.inSpace {
		w.space.RemoveBody(body.body)
	}
	return nil
}

// Step advances every body by one timestep.
func (w *World) Step(p StepParams) {
	w.space.Step(vect.Float(p.DT))
}

// Bodies returns the number of live bodies.
func (w *World) Bodies() int { return w.bodies.Len() }

// Colliders returns the number of live colliders.
func (w *World) Colliders() int { return w.colliders.Len() }

func toVect(v vec.Vec2) vect.Vect {
	return vect.Vect{X: vect.Float(v.X), Y: vect.Float(v.Y)}
}

func fromVect(v vect.Vect) vec.Vec2 {
	return vec.Vec2{X: float32(v.X), Y: float32(v.Y)}
}
