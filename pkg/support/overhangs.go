package support

import (
	"math"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/kernel"
	"github.com/chazu/buttress/pkg/object"
	"github.com/chazu/buttress/pkg/parallel"
	"github.com/samber/lo"
)

const (
	// wellSupportedLength is the footprint side above which an island
	// stands on its own (mm).
	wellSupportedLength = 6.0
	// sharpTailGapXY is the horizontal clearance kept to sharp tails (mm).
	sharpTailGapXY = 0.2
	// maxSharpTailHeight stops tracking a sharp tail upward (mm).
	maxSharpTailHeight = 16.0
	// sharpTailGrowth is how much wider than the tail below an island may
	// get and still count as the same tail (mm).
	sharpTailGrowth = 5.0
	// cantileverReach is how far an overhang must reach out from its
	// anchor to count as a cantilever (mm).
	cantileverReach = 3.0
)

// sharpTail is an island that starts in mid air, or grows out of one,
// and height is how tall the tail is up to and including its layer.
type sharpTail struct {
	area   geom.ExPolygon
	height float64
}

// layerOverhangs is what overhang detection finds on one object layer.
type layerOverhangs struct {
	islands     geom.ExPolygons
	tails       []sharpTail
	cantilevers geom.ExPolygons
}

func tailPolygons(tails []sharpTail) geom.Polygons {
	var out geom.Polygons
	for _, t := range tails {
		out = append(out, t.area.Polygons()...)
	}
	return out
}

// overhangs detects the overhang islands of every object layer, extends
// sharp tails upward and drops small overhang clusters. The sharp tails
// are kept on the run for trimming.
func (r *run) overhangs(covered []geom.Polygons) ([]layerOverhangs, error) {
	n := r.obj.LayerCount()
	found := make([]layerOverhangs, n)
	err := parallel.ForEach(r.ctx, r.g.pool, n, func(i int) {
		found[i] = r.detectOverhangs(r.obj.Layers[i], covered[i])
	})
	if err != nil {
		return nil, err
	}
	cfg := r.g.cfg
	if cfg.SharpTails && cfg.Auto && cfg.Enabled {
		if err := r.trackSharpTails(found); err != nil {
			return nil, err
		}
	}
	if cfg.RemoveSmallOverhangs {
		r.removeSmallOverhangs(found)
	}
	r.tails = lo.Map(found, func(f layerOverhangs, _ int) []sharpTail { return f.tails })
	return found, nil
}

// blockers returns the grown blocker annotations of layer.
func (r *run) blockers(layer *object.Layer) geom.Polygons {
	if len(layer.Blockers) == 0 {
		return nil
	}
	k := r.g.k
	return kernel.Expand(k, k.Union(layer.Blockers), geom.ScaleF(blockerGrowth))
}

// sharpTailsAt finds the islands of region that have nothing below them
// and are too small to stand. It returns their overhang, slightly grown,
// and the tails.
func (r *run) sharpTailsAt(layer *object.Layer, region object.Region, anchored geom.Polygons, fw float64) (geom.Polygons, []sharpTail) {
	k := r.g.k
	var (
		overhang geom.Polygons
		tails    []sharpTail
	)
	for _, ex := range region.Slices {
		p := ex.Polygons()
		if len(kernel.Shrink(k, p, 0.5*fw)) == 0 {
			continue
		}
		if kernel.Overlaps(k, kernel.Expand(k, p, 0.5*fw), anchored) {
			continue
		}
		if ex.Area()*geom.ScalingFactor*geom.ScalingFactor >= wellSupportedLength*wellSupportedLength {
			continue
		}
		tails = append(tails, sharpTail{area: ex, height: layer.Height})
		overhang = append(overhang, kernel.Expand(k, k.Difference(p, anchored), 0.05*fw)...)
	}
	return overhang, tails
}

// firstLayerTails marks the first layer's islands that are too small to
// stand on a raft without support.
func firstLayerTails(layer *object.Layer) []sharpTail {
	limit := geom.Scale(wellSupportedLength)
	var tails []sharpTail
	for _, ex := range layer.Slices {
		if sz := ex.Contour.BoundingBox().Size(); sz.X > limit && sz.Y > limit {
			continue
		}
		tails = append(tails, sharpTail{area: ex, height: layer.Height})
	}
	return tails
}

// clipTails removes the blocked area from tails. Pieces keep the height
// of the tail they came from.
func (r *run) clipTails(tails []sharpTail, blockers geom.Polygons) []sharpTail {
	var out []sharpTail
	for _, t := range tails {
		for _, ex := range r.g.k.DifferenceEx(t.area.Polygons(), blockers) {
			out = append(out, sharpTail{area: ex, height: t.height})
		}
	}
	return out
}

// cantilevers returns the islands whose farthest contour point is more
// than cantileverReach from where they meet the lower layer.
func (r *run) cantilevers(layer *object.Layer, islands geom.ExPolygons, reach float64) geom.ExPolygons {
	k := r.g.k
	grown := kernel.Expand(k, layer.Lower().Polygons(), reach)
	limit := geom.ScaleF(cantileverReach)
	var out geom.ExPolygons
	for _, island := range islands {
		anchor := k.Intersection(island.Polygons(), grown)
		if len(anchor) == 0 {
			continue
		}
		far := 0.0
		for _, pt := range island.Contour {
			far = math.Max(far, anchor.DistanceTo(pt))
		}
		if far > limit {
			out = append(out, island)
		}
	}
	return out
}

// trackSharpTails walks up the object and marks islands resting on a
// sharp tail as the tail's continuation while it stays narrow and short.
// Their new overhang is added to the layer's islands. This is serial:
// each layer depends on the tails of the one below.
func (r *run) trackSharpTails(found []layerOverhangs) error {
	k := r.g.k
	ew := geom.ScaleF(r.g.params.FlowWidth)
	lengthLimit := geom.Scale(wellSupportedLength)
	growthLimit := geom.Scale(sharpTailGrowth)

	for i := 1; i < len(found); i++ {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		lowerTails := found[i-1].tails
		if len(lowerTails) == 0 {
			continue
		}
		layer := r.obj.Layers[i]
		tailPolys := tailPolygons(lowerTails)
		tailSize := tailPolys.BoundingBox().Size()
		blockers := r.blockers(layer)

		for _, ex := range layer.Slices {
			p := ex.Polygons()
			held := k.Intersection(p, tailPolys)
			if len(held) == 0 {
				continue
			}
			if sz := held.BoundingBox().Size(); sz.X > lengthLimit && sz.Y > lengthLimit {
				continue
			}
			height := layer.Height
			for _, t := range lowerTails {
				if kernel.Overlaps(k, t.area.Polygons(), p) {
					height += t.height
					break
				}
			}
			if height > maxSharpTailHeight {
				continue
			}
			rest := k.Difference(p, tailPolys)
			d := rest.BoundingBox().Size().Sub(tailSize)
			if (d.X > growthLimit && d.Y > growthLimit) || len(kernel.Shrink(k, rest, 5*ew)) > 0 {
				continue
			}

			found[i].tails = append(found[i].tails, sharpTail{area: ex, height: height})
			hang := k.Difference(p, layer.Lower().Polygons())
			if len(blockers) > 0 {
				hang = k.Difference(hang, blockers)
			}
			if len(hang) > 0 {
				found[i].islands = append(found[i].islands, k.UnionEx(hang)...)
			}
		}
	}
	return nil
}

// overhangCluster groups overhang islands that touch across adjacent
// layers.
type overhangCluster struct {
	members    [][2]int // layer, island index
	dilated    geom.Polygons
	minLayer   int
	maxLayer   int
	cantilever bool
}

func (c *overhangCluster) touches(k kernel.Kernel, grown geom.Polygons, layer int) bool {
	if layer < 1 || layer < c.minLayer-1 || layer > c.maxLayer+1 {
		return false
	}
	return kernel.Overlaps(k, grown, c.dilated)
}

func (c *overhangCluster) add(k kernel.Kernel, grown geom.Polygons, layer, idx int) {
	c.members = append(c.members, [2]int{layer, idx})
	if len(grown) > 0 {
		c.dilated = k.Union(append(c.dilated.Clone(), grown...))
	}
	c.minLayer = min(c.minLayer, layer)
	c.maxLayer = max(c.maxLayer, layer)
}

// removeSmallOverhangs clusters the overhang islands of all layers and
// drops the clusters that are narrower than two extrusion widths once
// eroded, unless they hold a sharp tail or a cantilever.
func (r *run) removeSmallOverhangs(found []layerOverhangs) {
	k := r.g.k
	fw := geom.ScaleF(r.g.params.FlowWidth)

	var clusters []*overhangCluster
	for i := range found {
		for j, island := range found[i].islands {
			p := island.Polygons()
			grown := kernel.Expand(k, p, fw)
			var c *overhangCluster
			for _, cand := range clusters {
				if cand.touches(k, grown, i) {
					c = cand
					break
				}
			}
			if c == nil {
				c = &overhangCluster{minLayer: i, maxLayer: i}
				clusters = append(clusters, c)
			}
			c.add(k, grown, i, j)
			if kernel.Overlaps(k, p, found[i].cantilevers.Polygons()) {
				c.cantilever = true
			}
		}
	}

	removed := make(map[[2]int]bool)
	limit := int64(2 * fw)
	for _, c := range clusters {
		if c.cantilever || r.clusterHasTail(c, found) {
			continue
		}
		sz := kernel.Shrink(k, c.dilated, fw).BoundingBox().Size()
		if sz.X >= limit && sz.Y >= limit {
			continue
		}
		for _, m := range c.members {
			removed[m] = true
		}
	}
	if len(removed) == 0 {
		return
	}
	for i := range found {
		found[i].islands = lo.Reject(found[i].islands, func(_ geom.ExPolygon, j int) bool {
			return removed[[2]int{i, j}]
		})
	}
	r.log.Debug("small overhangs removed", "islands", len(removed))
}

func (r *run) clusterHasTail(c *overhangCluster, found []layerOverhangs) bool {
	for i := c.minLayer; i <= c.maxLayer; i++ {
		if kernel.Overlaps(r.g.k, tailPolygons(found[i].tails), c.dilated) {
			return true
		}
	}
	return false
}
