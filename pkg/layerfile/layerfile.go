// Package layerfile reads and writes object layer stacks as text, so a
// sliced object can be handed to the support generator without a scene.
//
//	object "bracket"
//	layer 0.2 height 0.2 {
//	  slice { contour (0,0) (10,0) (10,10) (0,10) hole (4,4) (4,6) (6,6) (6,4) }
//	  top { polygon (0,0) (10,0) (10,10) (0,10) }
//	  width 0.45
//	}
//
// Coordinates and heights are millimetres. A slice block lists contours,
// each followed by its holes. The other blocks are plain polygon sets:
// top surfaces, bottom bridges, bridging perimeters, enforcer and blocker
// annotations. Comments start with '#'.
package layerfile

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/object"
)

// DefaultWidth is the external perimeter width of a region that does not
// state one (mm).
const DefaultWidth = 0.45

// Parse reads one object. Errors carry the line and column they refer to.
func Parse(r io.Reader) (*object.Object, error) {
	return parse("", r)
}

// ParseString reads one object from s.
func ParseString(s string) (*object.Object, error) {
	return parse("", strings.NewReader(s))
}

// ParseNamed reads one object and reports positions against filename.
func ParseNamed(filename string, r io.Reader) (*object.Object, error) {
	return parse(filename, r)
}

func parse(filename string, r io.Reader) (*object.Object, error) {
	ast, err := fileParser.Parse(filename, r)
	if err != nil {
		return nil, fmt.Errorf("layerfile: %w", err)
	}
	obj := object.New(string(ast.Name))
	for i, la := range ast.Layers {
		l, err := buildLayer(la)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			if prev := obj.Layers[i-1]; l.PrintZ <= prev.PrintZ {
				return nil, posError(la.Pos, "layer %g is not above layer %g", l.PrintZ, prev.PrintZ)
			}
		}
		obj.AddLayer(l)
	}
	return obj, nil
}

func posError(pos lexer.Position, format string, args ...any) error {
	return fmt.Errorf("layerfile: %s: %s", pos, fmt.Sprintf(format, args...))
}

// buildLayer resolves the statements of one layer body.
func buildLayer(la *layerAST) (*object.Layer, error) {
	if la.Height <= 0 {
		return nil, posError(la.Pos, "layer %g has height %g, must be positive", la.PrintZ, la.Height)
	}
	l := &object.Layer{PrintZ: la.PrintZ, Height: la.Height}

	var (
		region    object.Region
		hasRegion bool
	)
	for _, it := range la.Items {
		switch {
		case it.Width != nil:
			if *it.Width <= 0 {
				return nil, posError(it.Pos, "width %g must be positive", *it.Width)
			}
			region.ExternalPerimeterWidth = *it.Width
			hasRegion = true
		case it.Bridging != nil:
			if *it.Bridging < 0 {
				return nil, posError(it.Pos, "bridging height %g must not be negative", *it.Bridging)
			}
			region.BridgingHeight = *it.Bridging
			hasRegion = true
		case it.Block == "slice":
			ex, err := buildExPolygons(it.Rings)
			if err != nil {
				return nil, err
			}
			l.Slices = append(l.Slices, ex...)
		default:
			polys := buildPolygons(it.Rings)
			switch it.Block {
			case "top":
				region.TopSurfaces = append(region.TopSurfaces, polys...)
			case "bridge":
				region.BottomBridges = append(region.BottomBridges, polys...)
			case "perimeters":
				region.BridgingPerimeters = append(region.BridgingPerimeters, polys...)
			case "enforcer":
				l.Enforcers = append(l.Enforcers, polys...)
			case "blocker":
				l.Blockers = append(l.Blockers, polys...)
			}
			if it.Block == "top" || it.Block == "bridge" || it.Block == "perimeters" {
				hasRegion = true
			}
		}
	}
	if hasRegion {
		if len(l.Slices) == 0 {
			return nil, posError(la.Pos, "layer %g has region data but no slice", la.PrintZ)
		}
		if region.ExternalPerimeterWidth == 0 {
			region.ExternalPerimeterWidth = DefaultWidth
		}
		region.Slices = l.Slices
		l.Regions = []object.Region{region}
	}
	return l, nil
}

func ring(ra *ringAST) geom.Polygon {
	p := make(geom.Polygon, len(ra.Points))
	for i, pt := range ra.Points {
		p[i] = geom.Pt(pt.X, pt.Y)
	}
	return p
}

// buildExPolygons groups each contour with the holes that follow it.
// Contours are made counter-clockwise and holes clockwise.
func buildExPolygons(rings []*ringAST) (geom.ExPolygons, error) {
	var out geom.ExPolygons
	for _, ra := range rings {
		p := ring(ra)
		switch ra.Kind {
		case "contour", "polygon":
			if !p.IsCounterClockwise() {
				p = p.Reversed()
			}
			out = append(out, geom.ExPolygon{Contour: p})
		case "hole":
			if len(out) == 0 {
				return nil, posError(ra.Pos, "hole before any contour")
			}
			if p.IsCounterClockwise() {
				p = p.Reversed()
			}
			last := &out[len(out)-1]
			last.Holes = append(last.Holes, p)
		}
	}
	return out, nil
}

// buildPolygons reads a plain polygon set. Contours and holes are
// oriented, polygons are kept as written.
func buildPolygons(rings []*ringAST) geom.Polygons {
	out := make(geom.Polygons, 0, len(rings))
	for _, ra := range rings {
		p := ring(ra)
		switch ra.Kind {
		case "contour":
			if !p.IsCounterClockwise() {
				p = p.Reversed()
			}
		case "hole":
			if p.IsCounterClockwise() {
				p = p.Reversed()
			}
		}
		out = append(out, p)
	}
	return out
}
