// Package sdfx implements kernel.Modeler with the github.com/deadsy/sdfx
// signed-distance CAD library. Cross-sections are found by sampling the
// distance field on a pixel grid and tracing the occupied cells.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/kernel"
	"github.com/chazu/buttress/pkg/raster"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Modeler = (*Modeler)(nil)

// maxCells bounds the sampling grid of one slice.
const maxCells = 1 << 26

// ErrBadPixel is returned for a non-positive slicing pixel.
var ErrBadPixel = errors.New("sdfx: pixel size must be positive")

// solid wraps an sdf.SDF3 to implement kernel.Solid.
type solid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box in millimetres.
func (s *solid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	return [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}, [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
}

// Modeler implements kernel.Modeler using sdfx.
type Modeler struct{}

// New returns a new Modeler.
func New() *Modeler {
	return &Modeler{}
}

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*solid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &solid{s: s}
}

// Box creates a box with its minimum corner at the origin. sdf.Box3D is
// centred, so it is shifted by half its size.
func (m *Modeler) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})))
}

// Cylinder creates a Z-axis cylinder centred on the Z axis and standing on
// the XY plane.
func (m *Modeler) Cylinder(height, radius float64) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2})))
}

// Union returns the union of two solids.
func (m *Modeler) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns a minus b.
func (m *Modeler) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (m *Modeler) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (m *Modeler) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return wrap(sdf.Transform3D(unwrap(s), sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})))
}

// RotateZ rotates a solid about the Z axis by degrees.
func (m *Modeler) RotateZ(s kernel.Solid, degrees float64) kernel.Solid {
	return wrap(sdf.Transform3D(unwrap(s), sdf.RotateZ(degrees*math.Pi/180)))
}

// Slice samples the solid at height z on a grid of pixel-sized cells and
// traces the occupied cells into polygons. A cell is occupied when the
// distance field is negative at its centre. Slicing above or below the
// solid returns nothing.
func (m *Modeler) Slice(s kernel.Solid, z, pixel float64) (geom.Polygons, error) {
	if pixel <= 0 {
		return nil, ErrBadPixel
	}
	f := unwrap(s)
	bb := f.BoundingBox()
	if z < bb.Min.Z || z > bb.Max.Z {
		return nil, nil
	}

	// Align the grid to the pixel and keep an empty ring of cells around
	// the solid so every traced boundary closes.
	x0 := (math.Floor(bb.Min.X/pixel) - 1) * pixel
	y0 := (math.Floor(bb.Min.Y/pixel) - 1) * pixel
	w := int(math.Ceil((bb.Max.X-x0)/pixel)) + 2
	h := int(math.Ceil((bb.Max.Y-y0)/pixel)) + 2
	if w*h > maxCells {
		return nil, fmt.Errorf("sdfx: slice at z=%.3f needs %dx%d cells, limit %d", z, w, h, maxCells)
	}

	grid := raster.New(geom.Pt(x0, y0), geom.Scale(pixel), w, h)
	for r := 1; r < h-1; r++ {
		y := y0 + (float64(r)+0.5)*pixel
		for c := 1; c < w-1; c++ {
			x := x0 + (float64(c)+0.5)*pixel
			if f.Evaluate(v3.Vec{X: x, Y: y, Z: z}) < 0 {
				grid.Set(c, r)
			}
		}
	}
	if grid.Count() == 0 {
		return nil, nil
	}
	return grid.Contours(0, false), nil
}
