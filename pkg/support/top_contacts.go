package support

import (
	"math"
	"sort"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/gridpattern"
	"github.com/chazu/buttress/pkg/kernel"
	"github.com/chazu/buttress/pkg/object"
	"github.com/chazu/buttress/pkg/parallel"
)

const (
	// blockerGrowth inflates blocker annotations before subtraction.
	blockerGrowth = 0.1 // mm
	// maxThresholdAngle caps the overhang threshold (degrees).
	maxThresholdAngle = 89
)

// contactDetection is what one object layer contributes to the top
// contacts before the areas are gridded.
type contactDetection struct {
	overhang  geom.Polygons
	contact   geom.Polygons
	enforcers geom.Polygons
	// margin is the area support must keep out of: the lower layer,
	// merged with the build-plate-covered area when that is in effect.
	margin geom.Polygons
	// allPolygons is the margin without the build-plate mask. It is only
	// set when enforcers must reach past the mask.
	allPolygons geom.Polygons
	// noInterfaceOffset is the smallest external perimeter width (units).
	noInterfaceOffset float64
}

// topContacts detects the contact layers under every overhang and merges
// those too close to print separately. Layers come back sorted by PrintZ.
func (r *run) topContacts(covered []geom.Polygons) ([]*Layer, error) {
	found, err := r.overhangs(covered)
	if err != nil {
		return nil, err
	}
	n := r.obj.LayerCount()
	slots := make([][]*Layer, n)
	err = parallel.ForEach(r.ctx, r.g.pool, n, func(i int) {
		var overhang geom.Polygons
		if len(found[i].islands) > 0 {
			overhang = r.g.k.Union(found[i].islands.Polygons())
		}
		slots[i] = r.topContactsAt(r.obj.Layers[i], overhang, covered[i])
	})
	if err != nil {
		return nil, err
	}
	var contacts []*Layer
	for _, s := range slots {
		contacts = append(contacts, s...)
	}
	return r.mergeContactLayers(contacts), nil
}

func (r *run) topContactsAt(layer *object.Layer, overhang, covered geom.Polygons) []*Layer {
	d := r.detectContacts(layer, overhang, covered)
	if len(d.contact) == 0 && len(d.overhang) == 0 {
		return nil
	}
	main, bridging := r.newContactLayer(layer)
	if main == nil {
		return nil
	}
	r.fillContactLayer(main, layer, d)
	if bridging == nil {
		return []*Layer{main}
	}
	bridging.Polygons = main.Polygons.Clone()
	bridging.ContactPolygons = main.ContactPolygons.Clone()
	bridging.OverhangPolygons = main.OverhangPolygons.Clone()
	bridging.EnforcerPolygons = main.EnforcerPolygons.Clone()
	return []*Layer{main, bridging}
}

// regions returns the print regions of layer. A layer without region
// data is treated as a single region printed at the support width.
func (r *run) regions(layer *object.Layer) []object.Region {
	if len(layer.Regions) > 0 {
		return layer.Regions
	}
	return []object.Region{{Slices: layer.Slices, ExternalPerimeterWidth: r.g.cfg.ExtrusionWidth}}
}

// lowerLayerOffset is how far the lower layer is grown before the
// overhang is taken: zero inside the enforce band, the angle derived
// step otherwise.
func (r *run) lowerLayerOffset(layer *object.Layer, perimeterWidth float64) float64 {
	cfg := r.g.cfg
	if layer.ID < cfg.EnforceLayers {
		return 0
	}
	if angle := thresholdAngle(cfg.ThresholdAngle); angle > 0 {
		return geom.ScaleF(layer.Lower().Height / math.Tan(angle*math.Pi/180))
	}
	return perimeterWidth - cfg.ThresholdOverlap*perimeterWidth
}

func thresholdAngle(deg float64) float64 {
	if deg <= 0 {
		return 0
	}
	return math.Min(deg+1, maxThresholdAngle)
}

// detectOverhangs returns the islands of layer that hang out over the
// layer below further than the threshold allows, with the sharp tails and
// cantilevers among them.
func (r *run) detectOverhangs(layer *object.Layer, covered geom.Polygons) layerOverhangs {
	k := r.g.k
	cfg := r.g.cfg
	var found layerOverhangs
	if layer.ID == 0 {
		// The first layer only needs support when it sits on a raft.
		if !r.g.sp.HasRaft() {
			return found
		}
		found.islands = append(geom.ExPolygons(nil), layer.Slices...)
		if cfg.SharpTails {
			found.tails = firstLayerTails(layer)
		}
		return found
	}

	lower := layer.Lower().Polygons()
	auto := cfg.Auto && cfg.Enabled
	blockers := r.blockers(layer)
	regions := r.regions(layer)

	// Lower islands thinner than half a perimeter do not anchor anything.
	var anchored geom.Polygons
	if cfg.SharpTails && auto {
		half := 0.5 * geom.ScaleF(regions[0].ExternalPerimeterWidth)
		for _, ex := range layer.Lower().Slices {
			if len(kernel.Shrink(k, ex.Polygons(), half)) > 0 {
				anchored = append(anchored, ex.Polygons()...)
			}
		}
	}

	var (
		out        geom.Polygons
		lastOffset float64
	)
	for _, region := range regions {
		fw := geom.ScaleF(region.ExternalPerimeterWidth)
		offset := r.lowerLayerOffset(layer, fw)
		lastOffset = offset
		slices := region.Slices.Polygons()

		var diff geom.Polygons
		switch {
		case offset == 0:
			diff = k.Difference(slices, lower)
			if len(covered) > 0 {
				diff = k.Difference(diff, covered)
			}
		case auto:
			diff = k.Difference(slices, kernel.Expand(k, lower, offset))
			if len(covered) > 0 {
				diff = k.Difference(diff, covered)
			}
			if len(diff) > 0 {
				// Grow back to the full overhang, never past the slice.
				diff = k.Difference(k.Intersection(kernel.Expand(k, diff, offset), slices), lower)
			}
			if cfg.SharpTails {
				hang, tails := r.sharpTailsAt(layer, region, anchored, fw)
				diff = append(diff, hang...)
				found.tails = append(found.tails, tails...)
			}
		}
		if len(diff) == 0 {
			continue
		}
		if len(blockers) > 0 {
			diff = k.Difference(diff, blockers)
			found.tails = r.clipTails(found.tails, blockers)
		}
		if cfg.BridgeNoSupport {
			diff = r.removeBridges(region, diff, fw)
		}
		if len(diff) == 0 || len(kernel.Shrink(k, diff, 0.1*fw)) == 0 {
			continue
		}
		if cfg.Expansion > 0 {
			diff = kernel.Expand(k, diff, geom.ScaleF(cfg.Expansion))
		}
		out = append(out, diff...)
	}
	if len(out) == 0 {
		return found
	}
	found.islands = k.UnionEx(out)
	fw := geom.ScaleF(regions[0].ExternalPerimeterWidth)
	reach := math.Max(fw, lastOffset) + geom.ScaleF(0.1)
	found.cantilevers = r.cantilevers(layer, found.islands, reach)
	return found
}

// removeBridges drops the overhang under the region's bridges.
func (r *run) removeBridges(region object.Region, overhang geom.Polygons, perimeterWidth float64) geom.Polygons {
	bridges := append(region.BottomBridges.Clone(), region.BridgingPerimeters...)
	if len(bridges) == 0 {
		return overhang
	}
	bridges = kernel.Expand(r.g.k, r.g.k.Union(bridges), perimeterWidth)
	return kernel.DifferenceSafe(r.g.k, overhang, bridges)
}

// detectContacts turns the overhang of layer into contact areas trimmed
// by the slices margin and folds in the enforcers.
func (r *run) detectContacts(layer *object.Layer, overhang, covered geom.Polygons) contactDetection {
	k := r.g.k
	d := contactDetection{overhang: overhang}
	if layer.ID == 0 {
		d.contact = overhang
		if len(overhang) > 0 && r.g.cfg.RaftExpansion > 0 {
			d.contact = kernel.Expand(k, overhang, geom.ScaleF(r.g.cfg.RaftExpansion))
		}
		return d
	}

	d.noInterfaceOffset = math.Inf(1)
	for _, region := range r.regions(layer) {
		d.noInterfaceOffset = math.Min(d.noInterfaceOffset, geom.ScaleF(region.ExternalPerimeterWidth))
	}

	lower := layer.Lower()
	d.margin = lower.Polygons()
	hasEnforcers := len(layer.Enforcers) > 0
	if len(covered) > 0 {
		if hasEnforcers {
			d.allPolygons = d.margin
		}
		d.margin = k.Union(append(d.margin.Clone(), covered...))
	}
	if len(overhang) > 0 {
		d.contact = k.Difference(k.Intersection(overhang, layer.Polygons()), d.margin)
	}

	if !hasEnforcers {
		return d
	}
	enforced := k.Difference(
		k.Intersection(layer.Polygons(), layer.Enforcers),
		kernel.Expand(k, lower.Polygons(), 0.05*d.noInterfaceOffset),
	)
	if len(enforced) == 0 {
		return d
	}
	d.enforcers = enforced
	d.overhang = k.Union(append(d.overhang.Clone(), enforced...))
	trim := d.margin
	if d.allPolygons != nil {
		trim = d.allPolygons
	}
	d.contact = k.Union(append(d.contact, k.Difference(enforced, trim)...))
	return d
}

// syncGapBelow walks down from layer until the accumulated height reaches
// gap and returns the object layer the contact should align with.
func syncGapBelow(layer *object.Layer, gap float64) *object.Layer {
	synced := 0.0
	cur, last := layer.Lower(), layer.Lower()
	for cur != nil && synced < gap {
		last = cur
		synced += cur.Height
		cur = cur.Lower()
	}
	if math.Abs(synced-last.Height-gap) < math.Abs(synced-gap) {
		last = last.Upper()
	}
	if below := last.Lower(); below != nil {
		return below
	}
	return last
}

// syncGapAbove is syncGapBelow for bottom contacts, walking up.
func syncGapAbove(layer *object.Layer, gap float64) *object.Layer {
	synced := 0.0
	cur, last := layer.Upper(), layer.Upper()
	for cur != nil && synced < gap {
		last = cur
		synced += cur.Height
		cur = cur.Upper()
	}
	if last == nil {
		return nil
	}
	if math.Abs(synced-last.Height-gap) < math.Abs(synced-gap) {
		last = last.Lower()
	}
	up := layer.Upper()
	if gap > 0 {
		up = last
		if above := last.Upper(); above != nil {
			up = above
		}
	}
	return up
}

// newContactLayer allocates the contact layer for layer and, under thick
// bridges, a second thinner one for the bridging flow. Either may be nil.
func (r *run) newContactLayer(layer *object.Layer) (main, bridging *Layer) {
	sp := r.g.sp
	var printZ, bottomZ, height float64
	minPrintZ := sp.FirstPrintLayerHeight
	switch {
	case layer.ID == 0:
		if !sp.HasRaft() {
			return nil, nil
		}
		printZ, bottomZ, height = sp.RaftContactTopZ, sp.RaftInterfaceTopZ, sp.ContactRaftLayerHeight
	case sp.SolubleInterface:
		lower := layer.Lower()
		printZ = layer.BottomZ()
		bottomZ = sp.ObjectPrintZMin
		if ll := lower.Lower(); ll != nil {
			bottomZ = ll.PrintZ
		}
		height = printZ - bottomZ
	default:
		if r.g.params.Independent {
			printZ = layer.BottomZ() - sp.GapSupportObject
		} else {
			synced := syncGapBelow(layer, sp.GapSupportObject)
			printZ, height = synced.PrintZ, synced.Height
		}
		bottomZ = printZ - height
		if printZ < sp.FirstPrintLayerHeight-geom.Epsilon {
			// Below the first layer: not printable, not supported.
			return nil, nil
		}
		multiRaft := sp.RaftLayers() > 1
		if multiRaft {
			minPrintZ = sp.RaftContactTopZ
		}
		if printZ < minPrintZ+r.g.params.MinLayerHeight {
			printZ = minPrintZ
			if multiRaft {
				bottomZ, height = sp.RaftInterfaceTopZ, sp.ContactRaftLayerHeight
			} else {
				bottomZ, height = 0, minPrintZ
			}
		}
		if r.g.cfg.ThickBridges && layer.HasBridging() && r.g.params.Independent {
			bridging = r.bridgingContactLayer(layer, printZ, minPrintZ)
		}
	}

	main = r.arena.Get(r.arena.Allocate(TopContact))
	main.PrintZ, main.BottomZ, main.Height = printZ, bottomZ, height
	main.IdxObjectLayerAbove = layer.ID
	return main, bridging
}

func (r *run) bridgingContactLayer(layer *object.Layer, printZ, minPrintZ float64) *Layer {
	sp := r.g.sp
	var bridgingHeight float64
	for _, region := range layer.Regions {
		bridgingHeight += region.BridgingHeight
	}
	bridgingHeight /= float64(len(layer.Regions))

	z := layer.PrintZ - bridgingHeight - sp.GapSupportObject
	if z < minPrintZ {
		return nil
	}
	if printZ < minPrintZ+r.g.params.MinLayerHeight {
		z = minPrintZ
	}
	if z >= printZ-geom.Epsilon {
		return nil
	}
	l := r.arena.Get(r.arena.Allocate(TopContact))
	l.PrintZ, l.BottomZ = z, z
	l.Bridging = true
	l.IdxObjectLayerAbove = layer.ID
	if z == sp.FirstPrintLayerHeight {
		l.BottomZ, l.Height = 0, sp.FirstPrintLayerHeight
	}
	return l
}

// fillContactLayer grids the detected areas into the layer's footprints.
func (r *run) fillContactLayer(l *Layer, layer *object.Layer, d contactDetection) {
	k := r.g.k
	grid := r.g.params.Grid
	reduce := r.g.cfg.ReduceInterfaces && grid.Style != gridpattern.StyleSnug &&
		layer.ID > 0 && !r.g.sp.SolubleInterface

	pattern := gridpattern.New(k, d.contact, d.margin, grid)
	l.ContactPolygons = pattern.Extract(grid.ExpansionToPropagate, true)
	l.Polygons = r.printedFootprint(layer, pattern, d.overhang, d.margin, l.ContactPolygons, d.noInterfaceOffset, reduce)

	if len(d.enforcers) > 0 && d.allPolygons != nil && layer.ID > 0 {
		// Enforcers ignore the build-plate mask and are gridded apart.
		ep := gridpattern.New(k, d.enforcers, d.allPolygons, grid)
		propagated := ep.Extract(grid.ExpansionToPropagate, true)
		extra := r.printedFootprint(layer, ep, d.enforcers, d.allPolygons, propagated, d.noInterfaceOffset, reduce)
		if len(extra) > 0 {
			l.Polygons = k.Union(append(l.Polygons, extra...))
		}
	}
	l.OverhangPolygons = d.overhang
	l.EnforcerPolygons = d.enforcers
}

// printedFootprint extracts what is printed on a contact layer. With
// reduced interfaces only the densely overhanging part is printed.
func (r *run) printedFootprint(layer *object.Layer, p *gridpattern.Pattern, source, trimming, propagated geom.Polygons, noIf float64, reduce bool) geom.Polygons {
	grid := r.g.params.Grid
	if !reduce {
		return p.Extract(grid.ExpansionToSlice, true)
	}
	k := r.g.k
	lower := layer.Lower().Polygons()
	dense := k.Difference(source, kernel.Opening(k, lower, 0.5*noIf, 1.1*noIf))
	if len(dense) == 0 {
		return nil
	}
	dense = k.Difference(kernel.Expand(k, dense, 0.1*noIf), trimming)
	dense = k.Intersection(dense, propagated)
	return gridpattern.New(k, dense, trimming, grid).Extract(grid.ExpansionToSlice, false)
}

// mergeContactLayers merges contact layers closer than the minimum
// support layer height. Layers below the first layer height are merged
// into one snapped to it.
func (r *run) mergeContactLayers(layers []*Layer) []*Layer {
	sort.SliceStable(layers, func(i, j int) bool { return layers[i].PrintZ < layers[j].PrintZ })
	first := r.g.sp.FirstPrintLayerHeight
	minH := r.g.params.MinLayerHeight

	var out []*Layer
	j := 0
	for j < len(layers) && layers[j].PrintZ < first+minH-geom.Epsilon {
		j++
	}
	if j > 0 {
		dst := layers[0]
		for _, src := range layers[1:j] {
			r.mergeLayer(dst, src)
		}
		dst.PrintZ, dst.Height, dst.BottomZ = first, first, 0
		out = append(out, dst)
	}
	for i := j; i < len(layers); {
		next := i + 1
		zmax := layers[i].PrintZ + minH + geom.Epsilon
		for next < len(layers) && layers[next].PrintZ < zmax {
			next++
		}
		dst := layers[i]
		for _, src := range layers[i+1 : next] {
			r.mergeLayer(dst, src)
		}
		out = append(out, dst)
		i = next
	}
	return out
}

// mergeLayer folds src into dst. dst keeps its print_z and extends down
// to the lower of the two bottoms.
func (r *run) mergeLayer(dst, src *Layer) {
	k := r.g.k
	dst.Polygons = unionSets(k, dst.Polygons, src.Polygons)
	dst.ContactPolygons = unionSets(k, dst.ContactPolygons, src.ContactPolygons)
	dst.OverhangPolygons = unionSets(k, dst.OverhangPolygons, src.OverhangPolygons)
	dst.EnforcerPolygons = unionSets(k, dst.EnforcerPolygons, src.EnforcerPolygons)
	dst.BottomZ = math.Min(dst.BottomZ, src.BottomZ)
	dst.Height = dst.PrintZ - dst.BottomZ
	dst.Bridging = dst.Bridging || src.Bridging
	dst.IdxObjectLayerAbove = min(dst.IdxObjectLayerAbove, src.IdxObjectLayerAbove)
}

func unionSets(k kernel.Kernel, a, b geom.Polygons) geom.Polygons {
	switch {
	case len(b) == 0:
		return a
	case len(a) == 0:
		return b
	}
	return k.Union(append(a.Clone(), b...))
}
