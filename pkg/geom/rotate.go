package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rotated returns a copy of p rotated counter-clockwise by angle radians
// about the origin, rounded back to units.
func (p Polygon) Rotated(angle float64) Polygon {
	m := mgl64.Rotate2D(angle)
	out := make(Polygon, len(p))
	for i, pt := range p {
		v := m.Mul2x1(mgl64.Vec2{float64(pt.X), float64(pt.Y)})
		out[i] = Point{X: int64(math.Round(v[0])), Y: int64(math.Round(v[1]))}
	}
	return out
}

// Rotated returns a copy of every ring rotated by angle radians.
func (ps Polygons) Rotated(angle float64) Polygons {
	if angle == 0 {
		return ps.Clone()
	}
	out := make(Polygons, len(ps))
	for i, p := range ps {
		out[i] = p.Rotated(angle)
	}
	return out
}
