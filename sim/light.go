package sim

import "github.com/pthm-cable/cellsim/vec"

// LightField is a vertical gradient: brightest at y=0 for a negative
// gradient.
type LightField struct {
	Base     float32
	Gradient float32
	Height   float32
}

// At returns the light level at p, clamped to [0, 1].
func (l LightField) At(p vec.Vec2) float32 {
	v := l.Base
	if l.Height > 0 {
		v += l.Gradient * p.Y / l.Height
	}
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
