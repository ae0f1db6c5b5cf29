// Package gridpattern turns contact areas into printable support
// footprints. Grid style rasterises the areas, stretches every touched
// macro cell up to the object, and re-extracts simplified contours; snug
// style closes the areas directly with polygon morphology.
package gridpattern

import (
	"math"
	"sort"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/kernel"
	"github.com/chazu/buttress/pkg/raster"
	"github.com/dhconnelly/rtreego"
)

// Params is the per-run grid configuration.
type Params struct {
	Style Style
	// Spacing is the macro grid resolution (mm).
	Spacing float64
	// Angle rotates the grid (radians).
	Angle          float64
	ExtrusionWidth float64 // mm
	ClosingRadius  float64 // mm
	// ExpansionToSlice and ExpansionToPropagate are contour offsets in
	// units: the first for printed footprints, the second for footprints
	// projected to lower layers.
	ExpansionToSlice     int64
	ExpansionToPropagate int64
}

// NewParams derives grid parameters from the base pattern spacing and the
// support flow.
func NewParams(style Style, basePatternSpacing, angleDeg, flowSpacing float64) Params {
	return Params{
		Style:                style,
		Spacing:              basePatternSpacing + flowSpacing,
		Angle:                angleDeg * math.Pi / 180,
		ExtrusionWidth:       flowSpacing,
		ClosingRadius:        2,
		ExpansionToSlice:     geom.Scale(flowSpacing)/2 + 5,
		ExpansionToPropagate: -3,
	}
}

// sampleShrink is how far inside each source island its samples are taken.
const sampleShrink = 20

// Pattern is one prepared extraction. It is immutable after New and safe
// to Extract from concurrently.
type Pattern struct {
	k        kernel.Kernel
	params   Params
	support  geom.Polygons
	trimming geom.Polygons
	grid     *raster.Grid
}

// New prepares support (the areas to stretch) against trimming (the areas
// support must stay out of).
func New(k kernel.Kernel, support, trimming geom.Polygons, params Params) *Pattern {
	p := &Pattern{k: k, params: params, support: support, trimming: trimming}
	if params.Style == StyleSnug || len(support) == 0 {
		return p
	}
	if params.Angle != 0 {
		p.support = support.Rotated(-params.Angle)
		p.trimming = trimming.Rotated(-params.Angle)
	}

	resolution := geom.Scale(params.Spacing)
	bbox := p.support.BoundingBox()
	bbox.Offset(20)
	bbox.AlignToGrid(resolution)

	extrusion := geom.Scale(params.ExtrusionWidth)
	oversampling := int(resolution / (extrusion + 100))
	oversampling = min(max(oversampling, 1), 8)
	pixel := max(extrusion+21, geom.Scale(params.Spacing/float64(oversampling)))
	bbox.Offset(pixel)

	size := bbox.Size()
	rawW := int(math.Ceil(float64(size.X) / float64(pixel)))
	rawH := int(math.Ceil(float64(size.Y) / float64(pixel)))
	blocksX := (rawW + oversampling - 1 - 2) / oversampling
	blocksY := (rawH + oversampling - 1 - 2) / oversampling
	w := blocksX*oversampling + 2
	h := blocksY*oversampling + 2

	grid := raster.New(bbox.Min, pixel, w, h)
	grid.Rasterize(p.support)
	mask := raster.New(bbox.Min, pixel, w, h)
	mask.Rasterize(p.trimming)
	grid.SeedFillBlocks(mask.ShrinkMask(), blocksX, blocksY, oversampling)
	p.grid = grid
	return p
}

// Extract returns the support footprint with its grid contours pushed out
// by offset units. Fragments left by trimming that carry no sample of the
// original support are dropped.
func (p *Pattern) Extract(offset int64, fillHoles bool) geom.Polygons {
	if len(p.support) == 0 {
		return nil
	}
	if p.params.Style == StyleSnug {
		closed := kernel.Closing(p.k, p.support, geom.ScaleF(p.params.ClosingRadius))
		return kernel.SmoothOutward(p.k, closed, geom.ScaleF(p.params.ExtrusionWidth))
	}

	simplified := p.grid.Contours(offset, fillHoles)
	islands := p.k.DifferenceEx(simplified, p.trimming)
	if len(islands) == 0 {
		return nil
	}
	var source geom.ExPolygons
	if offset > 0 {
		source = p.k.UnionEx(p.support)
	} else {
		source = p.k.IntersectionEx(p.support, islands.Polygons())
	}
	index := newSampleIndex(islandSamples(p.k, source))

	var out geom.Polygons
	for _, island := range islands {
		if index.anyInside(island) {
			out = append(out, island.Polygons()...)
		}
	}
	if p.params.Angle != 0 {
		out = out.Rotated(p.params.Angle)
	}
	return out
}

// islandSamples takes up to four evenly strided points from each island
// shrunk slightly inward, sorted for determinism.
func islandSamples(k kernel.Kernel, islands geom.ExPolygons) []geom.Point {
	var pts []geom.Point
	for _, ex := range islands {
		if len(ex.Contour) < 3 {
			continue
		}
		for _, poly := range k.Offset(ex.Polygons(), -sampleShrink, kernel.JoinMiter) {
			if len(poly) == 0 {
				continue
			}
			n := len(poly)
			stride := n / min(n, 4)
			for i := 0; i < n; i += stride {
				pts = append(pts, poly[i])
			}
			break
		}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].Less(pts[j]) })
	return pts
}

type sample struct {
	pt geom.Point
}

func (s *sample) Bounds() rtreego.Rect {
	return rtreego.Point{float64(s.pt.X), float64(s.pt.Y)}.ToRect(0.5)
}

type sampleIndex struct {
	tree *rtreego.Rtree
}

func newSampleIndex(pts []geom.Point) *sampleIndex {
	objs := make([]rtreego.Spatial, len(pts))
	for i, pt := range pts {
		objs[i] = &sample{pt: pt}
	}
	return &sampleIndex{tree: rtreego.NewTree(2, 4, 16, objs...)}
}

// anyInside reports whether any sample within the island's bounding box
// passes the even-odd test against the contour and its holes.
func (s *sampleIndex) anyInside(island geom.ExPolygon) bool {
	bb := island.Contour.BoundingBox()
	if !bb.Defined {
		return false
	}
	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{float64(bb.Min.X - 1), float64(bb.Min.Y - 1)},
		rtreego.Point{float64(bb.Max.X + 1), float64(bb.Max.Y + 1)},
	)
	if err != nil {
		return false
	}
	for _, obj := range s.tree.SearchIntersect(rect) {
		pt := obj.(*sample).pt
		if bb.Contains(pt) && island.ContainsEvenOdd(pt) {
			return true
		}
	}
	return false
}
