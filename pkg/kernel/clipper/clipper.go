// Package clipper implements kernel.Kernel on top of
// github.com/ctessum/go.clipper, a port of Angus Johnson's Clipper.
package clipper

import (
	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/kernel"
	clip "github.com/ctessum/go.clipper"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// miterLimit matches the limit used for support surface offsets.
const miterLimit = 3

// Kernel is a stateless kernel.Kernel. A fresh Clipper is created per call
// so one Kernel can be shared by concurrent pipeline stages.
type Kernel struct{}

// New returns a new clipper-backed kernel.
func New() *Kernel {
	return &Kernel{}
}

func toPaths(ps geom.Polygons) clip.Paths {
	out := make(clip.Paths, 0, len(ps))
	for _, p := range ps {
		if len(p) < 3 {
			continue
		}
		path := make(clip.Path, len(p))
		for i, pt := range p {
			path[i] = &clip.IntPoint{X: clip.CInt(pt.X), Y: clip.CInt(pt.Y)}
		}
		out = append(out, path)
	}
	return out
}

func toPolygon(path clip.Path) geom.Polygon {
	out := make(geom.Polygon, len(path))
	for i, ip := range path {
		out[i] = geom.Point{X: int64(ip.X), Y: int64(ip.Y)}
	}
	return out
}

func toPolygons(paths clip.Paths) geom.Polygons {
	if len(paths) == 0 {
		return nil
	}
	out := make(geom.Polygons, 0, len(paths))
	for _, path := range paths {
		if len(path) >= 3 {
			out = append(out, toPolygon(path))
		}
	}
	return out
}

// toExPolygons walks a PolyTree: children of the root are contours, their
// children are holes, and children of holes are nested contours.
func toExPolygons(tree *clip.PolyTree) geom.ExPolygons {
	if tree == nil {
		return nil
	}
	var out geom.ExPolygons
	var walk func(outers []*clip.PolyNode)
	walk = func(outers []*clip.PolyNode) {
		for _, outer := range outers {
			ex := geom.ExPolygon{Contour: toPolygon(outer.Contour())}
			for _, hole := range outer.Childs() {
				ex.Holes = append(ex.Holes, toPolygon(hole.Contour()))
				walk(hole.Childs())
			}
			if len(ex.Contour) >= 3 {
				out = append(out, ex)
			}
		}
	}
	walk(tree.Childs())
	return out
}

func execute(ct clip.ClipType, subject, clipSet geom.Polygons) geom.Polygons {
	c := clip.NewClipper(clip.IoNone)
	c.AddPaths(toPaths(subject), clip.PtSubject, true)
	if clipSet != nil {
		c.AddPaths(toPaths(clipSet), clip.PtClip, true)
	}
	sol, ok := c.Execute1(ct, clip.PftNonZero, clip.PftNonZero)
	if !ok {
		return nil
	}
	return toPolygons(sol)
}

func executeEx(ct clip.ClipType, subject, clipSet geom.Polygons) geom.ExPolygons {
	c := clip.NewClipper(clip.IoNone)
	c.AddPaths(toPaths(subject), clip.PtSubject, true)
	if clipSet != nil {
		c.AddPaths(toPaths(clipSet), clip.PtClip, true)
	}
	tree, ok := c.Execute2(ct, clip.PftNonZero, clip.PftNonZero)
	if !ok {
		return nil
	}
	return toExPolygons(tree)
}

// Union merges all polygons.
func (k *Kernel) Union(p geom.Polygons) geom.Polygons {
	if len(p) == 0 {
		return nil
	}
	return execute(clip.CtUnion, p, nil)
}

// UnionEx merges all polygons and resolves holes.
func (k *Kernel) UnionEx(p geom.Polygons) geom.ExPolygons {
	if len(p) == 0 {
		return nil
	}
	return executeEx(clip.CtUnion, p, nil)
}

// Difference returns subject minus clip.
func (k *Kernel) Difference(subject, clipSet geom.Polygons) geom.Polygons {
	if len(subject) == 0 {
		return nil
	}
	if len(clipSet) == 0 {
		return k.Union(subject)
	}
	return execute(clip.CtDifference, subject, clipSet)
}

// DifferenceEx returns subject minus clip with holes resolved.
func (k *Kernel) DifferenceEx(subject, clipSet geom.Polygons) geom.ExPolygons {
	if len(subject) == 0 {
		return nil
	}
	return executeEx(clip.CtDifference, subject, clipSet)
}

// Intersection returns the area common to subject and clip.
func (k *Kernel) Intersection(subject, clipSet geom.Polygons) geom.Polygons {
	if len(subject) == 0 || len(clipSet) == 0 {
		return nil
	}
	return execute(clip.CtIntersection, subject, clipSet)
}

// IntersectionEx returns the area common to subject and clip with holes
// resolved.
func (k *Kernel) IntersectionEx(subject, clipSet geom.Polygons) geom.ExPolygons {
	if len(subject) == 0 || len(clipSet) == 0 {
		return nil
	}
	return executeEx(clip.CtIntersection, subject, clipSet)
}

// Offset grows or shrinks p by delta units.
func (k *Kernel) Offset(p geom.Polygons, delta float64, join kernel.JoinType) geom.Polygons {
	if len(p) == 0 {
		return nil
	}
	co := clip.NewClipperOffset()
	co.MiterLimit = miterLimit
	co.AddPaths(toPaths(p), joinType(join), clip.EtClosedPolygon)
	return toPolygons(co.Execute(delta))
}

func joinType(j kernel.JoinType) clip.JoinType {
	switch j {
	case kernel.JoinMiter:
		return clip.JtMiter
	case kernel.JoinRound:
		return clip.JtRound
	default:
		return clip.JtSquare
	}
}
