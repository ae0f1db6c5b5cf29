package support

import (
	"math"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/kernel"
	"github.com/chazu/buttress/pkg/object"
	"github.com/chazu/buttress/pkg/parallel"
	"github.com/samber/lo"
)

// noOverlapGapXY is the horizontal clearance to object layers that do not
// share Z with the support layer.
const noOverlapGapXY = 0.2 // mm

// overlapsInZ reports whether support layer s and object layer o share
// some Z. A non-zero layerHeight overrides the object layer height.
func overlapsInZ(s *Layer, o *object.Layer, layerHeight float64) bool {
	if math.Abs(s.PrintZ-o.PrintZ) < geom.Epsilon {
		return true
	}
	lh := o.Height
	if layerHeight > geom.Epsilon {
		lh = layerHeight
	}
	if s.PrintZ < o.PrintZ && s.PrintZ > o.PrintZ-lh {
		return true
	}
	return s.PrintZ > o.PrintZ && s.BottomZ < o.PrintZ-geom.Epsilon
}

// trimByObject cuts every non-empty, non-raft support layer back from the
// object slices it shares Z with, widened by the vertical gaps.
func (r *run) trimByObject(layers []*Layer) error {
	sp := r.g.sp
	work := lo.Filter(layers, func(l *Layer, _ int) bool {
		return len(l.Polygons) > 0 && l.PrintZ >= sp.RaftContactTopZ+geom.Epsilon
	})
	return parallel.ForEach(r.ctx, r.g.pool, len(work), func(i int) {
		s := work[i]
		if trimming := r.objectTrimming(s); len(trimming) > 0 {
			s.Polygons = r.g.k.Difference(s.Polygons, trimming)
		}
	})
}

// objectTrimming collects the grown object areas support layer s must
// stay out of. Islands holding a sharp tail keep the fixed sharp tail gap.
func (r *run) objectTrimming(s *Layer) geom.Polygons {
	k := r.g.k
	sp := r.g.sp
	gapXY := geom.ScaleF(r.g.params.GapXY)
	noOverlap := geom.ScaleF(noOverlapGapXY)
	tailGap := geom.ScaleF(sharpTailGapXY)
	gapAbove, gapBelow := sp.GapSupportObject, sp.GapObjectSupport

	layers := r.obj.Layers
	threshold := s.BottomZ - gapBelow + geom.Epsilon
	i := 0
	for i < len(layers) && layers[i].PrintZ < threshold {
		i++
	}

	var trimming geom.Polygons
	for ; i < len(layers); i++ {
		o := layers[i]
		if o.BottomZ() > s.PrintZ+gapAbove-geom.Epsilon {
			break
		}
		offset := noOverlap
		if overlapsInZ(s, o, 0) {
			offset = gapXY
		}
		tails := r.tailPolygonsAt(i)
		if len(tails) == 0 {
			trimming = append(trimming, kernel.Expand(k, o.Polygons(), offset)...)
			continue
		}
		for _, ex := range o.Slices {
			p := ex.Polygons()
			d := offset
			if kernel.Overlaps(k, p, tails) {
				d = tailGap
			}
			trimming = append(trimming, kernel.Expand(k, p, d)...)
		}
	}

	if sp.SolubleInterface || !r.g.cfg.ThickBridges {
		return trimming
	}
	// Bridging extrusions above hang down into the support layer.
	for ; i < len(layers); i++ {
		o := layers[i]
		overlaps := false
		for _, region := range o.Regions {
			if o.PrintZ-region.BridgingHeight > s.PrintZ+gapAbove-geom.Epsilon {
				break
			}
			overlaps = true
			offset := noOverlap
			if overlapsInZ(s, o, region.BridgingHeight) {
				offset = gapXY
			}
			trimming = append(trimming, kernel.Expand(k, region.BottomBridges, offset)...)
			trimming = append(trimming, kernel.Expand(k, region.BridgingPerimeters, gapXY)...)
		}
		if !overlaps {
			break
		}
	}
	return trimming
}

func (r *run) tailPolygonsAt(i int) geom.Polygons {
	if i >= len(r.tails) {
		return nil
	}
	return tailPolygons(r.tails[i])
}

// trimTopByBottom removes from each top contact the bottom contacts whose
// Z span it overlaps.
func (r *run) trimTopByBottom(tops, bottoms []*Layer) error {
	if len(bottoms) == 0 {
		return nil
	}
	return parallel.ForEach(r.ctx, r.g.pool, len(tops), func(i int) {
		t := tops[i]
		var clip geom.Polygons
		for _, b := range bottoms {
			if b.BottomZ-geom.Epsilon <= t.BottomZ && t.PrintZ < b.PrintZ+geom.Epsilon {
				clip = append(clip, b.Polygons...)
			}
		}
		if len(clip) > 0 && len(t.Polygons) > 0 {
			t.Polygons = r.g.k.Difference(t.Polygons, clip)
		}
	})
}
