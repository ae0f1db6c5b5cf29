// Package kernel defines the abstract geometry kernels the support
// pipeline is written against. Kernel covers 2D polygon booleans and
// offsets; Modeler covers 3D solids and slicing them into layers.
// Backends (clipper, sdfx) live in sub-packages so the pipeline never
// depends on a concrete library.
package kernel

import "github.com/chazu/buttress/pkg/geom"

// JoinType selects how offset corners are joined.
type JoinType int

const (
	// JoinSquare is used for all support surfaces.
	JoinSquare JoinType = iota
	JoinMiter
	JoinRound
)

// String returns the human-readable name of the join type.
func (j JoinType) String() string {
	switch j {
	case JoinSquare:
		return "square"
	case JoinMiter:
		return "miter"
	case JoinRound:
		return "round"
	default:
		return "unknown"
	}
}

// Kernel is the 2D polygon boolean and offset interface. All operations use
// the non-zero fill rule and never modify their inputs. Degenerate results
// are returned as empty sets, never as errors.
type Kernel interface {
	// Booleans
	Union(p geom.Polygons) geom.Polygons
	UnionEx(p geom.Polygons) geom.ExPolygons
	Difference(subject, clip geom.Polygons) geom.Polygons
	DifferenceEx(subject, clip geom.Polygons) geom.ExPolygons
	Intersection(subject, clip geom.Polygons) geom.Polygons
	IntersectionEx(subject, clip geom.Polygons) geom.ExPolygons

	// Offset grows (delta > 0) or shrinks (delta < 0) by delta units.
	Offset(p geom.Polygons, delta float64, join JoinType) geom.Polygons
}

// Solid is an opaque handle to a modeler solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box in millimetres.
	BoundingBox() (min, max [3]float64)
}

// Modeler builds solids and slices them into horizontal cross-sections.
type Modeler interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	RotateZ(s Solid, degrees float64) Solid

	// Slice returns the cross-section of s at height z, traced on a grid
	// of the given pixel size (mm).
	Slice(s Solid, z, pixel float64) (geom.Polygons, error)
}
