// Package geom holds the fixed-point 2D primitives shared by the whole
// support pipeline: points, polygons, expolygons and bounding boxes.
//
// Coordinates are int64 units of 1e-6 mm. Use Scale and Unscale at the
// boundary between millimetres and units.
package geom

import "math"

// ScalingFactor is the size of one coordinate unit in millimetres.
const ScalingFactor = 1e-6

// Epsilon absorbs rounding error in Z comparisons (millimetres).
const Epsilon = 1e-4

// ScaledEpsilon is Epsilon expressed in coordinate units.
const ScaledEpsilon int64 = 100

// Scale converts millimetres to coordinate units, rounding to nearest.
func Scale(mm float64) int64 {
	return int64(math.Round(mm / ScalingFactor))
}

// ScaleF converts millimetres to coordinate units without rounding.
// Offsets are passed to the polygon kernel as floats.
func ScaleF(mm float64) float64 {
	return mm / ScalingFactor
}

// Unscale converts coordinate units to millimetres.
func Unscale(v int64) float64 {
	return float64(v) * ScalingFactor
}

// Point is a 2D point in coordinate units.
type Point struct {
	X, Y int64
}

// Pt builds a point from millimetre coordinates.
func Pt(x, y float64) Point {
	return Point{X: Scale(x), Y: Scale(y)}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Cross returns the z component of the cross product p×q.
func (p Point) Cross(q Point) float64 {
	return float64(p.X)*float64(q.Y) - float64(p.Y)*float64(q.X)
}

// Less orders points by x, then y.
func (p Point) Less(q Point) bool {
	return p.X < q.X || (p.X == q.X && p.Y < q.Y)
}
