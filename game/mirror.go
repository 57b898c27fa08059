package game

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellsim/cell"
	"github.com/pthm-cable/cellsim/physics"
	"github.com/pthm-cable/cellsim/sim"
)

// CellRef ties an entity to the slot of the cell it mirrors.
type CellRef struct {
	ID sim.CellID
}

// Transform is the body state after the last physics step.
type Transform struct {
	X, Y       float32
	VelX, VelY float32
}

// Body is the collider radius and the cell size behind it.
type Body struct {
	Radius float32
	Size   float32
}

// mirror keeps one ECS entity per live cell. It is read-only with respect
// to the simulation and is rebuilt from it after every tick.
type mirror struct {
	world    *ecs.World
	mapper   *ecs.Map3[CellRef, Transform, Body]
	filter   *ecs.Filter3[CellRef, Transform, Body]
	entities map[sim.CellID]ecs.Entity
}

func newMirror() *mirror {
	world := ecs.NewWorld()
	return &mirror{
		world:    world,
		mapper:   ecs.NewMap3[CellRef, Transform, Body](world),
		filter:   ecs.NewFilter3[CellRef, Transform, Body](world),
		entities: make(map[sim.CellID]ecs.Entity),
	}
}

// remove deletes the entity of a dead cell from the ECS world.
func (m *mirror) remove(id sim.CellID) {
	e, ok := m.entities[id]
	if !ok {
		return
	}
	if m.world.Alive(e) {
		m.world.RemoveEntity(e)
	}
	delete(m.entities, id)
}

// sync creates entities for new cells and refreshes every transform.
func (m *mirror) sync(w *sim.World) error {
	phys := w.Physics()
	var err error
	w.Each(func(id sim.CellID, c *cell.Cell, b physics.Binding) {
		if err != nil {
			return
		}
		body, berr := phys.Body(b.Body)
		if berr != nil {
			err = fmt.Errorf("mirror %v: %w", id, berr)
			return
		}
		col, cerr := phys.Collider(b.Collider)
		if cerr != nil {
			err = fmt.Errorf("mirror %v: %w", id, cerr)
			return
		}
		pos, vel := body.Position(), body.Velocity()

		e, ok := m.entities[id]
		if !ok {
			ref := CellRef{ID: id}
			tr := Transform{X: pos.X, Y: pos.Y, VelX: vel.X, VelY: vel.Y}
			bd := Body{Radius: col.Radius(), Size: c.Size()}
			m.entities[id] = m.mapper.NewEntity(&ref, &tr, &bd)
			return
		}
		_, tr, bd := m.mapper.Get(e)
		tr.X, tr.Y, tr.VelX, tr.VelY = pos.X, pos.Y, vel.X, vel.Y
		bd.Radius, bd.Size = col.Radius(), c.Size()
	})
	return err
}

// sizes returns the mirrored cell sizes.
func (m *mirror) sizes() []float64 {
	out := make([]float64, 0, len(m.entities))
	query := m.filter.Query()
	for query.Next() {
		_, _, bd := query.Get()
		out = append(out, float64(bd.Size))
	}
	return out
}

// len returns the number of mirrored cells.
func (m *mirror) len() int {
	return len(m.entities)
}
