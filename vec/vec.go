// Package vec provides the small 2D vector type shared by metabolism,
// cells and the physics binding.
package vec

import "math"

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X, Y float32
}

// Zero is the zero vector.
var Zero = Vec2{}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Len returns the Euclidean length.
func (v Vec2) Len() float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Y)))
}

// L1 returns |X| + |Y|.
func (v Vec2) L1() float32 {
	return abs(v.X) + abs(v.Y)
}

// IsZero reports whether both components are zero.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
