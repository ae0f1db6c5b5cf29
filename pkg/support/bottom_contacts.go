package support

import (
	"context"
	"math"
	"slices"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/gridpattern"
	"github.com/chazu/buttress/pkg/kernel"
	"github.com/chazu/buttress/pkg/object"
	"github.com/chazu/buttress/pkg/parallel"
)

// projection is the accumulator of the top-down scan: the contact areas
// above the current object layer that nothing has supported yet.
type projection struct {
	overhangs geom.Polygons
	enforcers geom.Polygons
}

func (p projection) empty() bool {
	return len(p.overhangs) == 0 && len(p.enforcers) == 0
}

// add folds a top contact into the projection. Overhangs are grown a
// little so they overlap the gridded contact areas.
func (p projection) add(k kernel.Kernel, top *Layer) projection {
	fresh := append(top.ContactPolygons.Clone(), kernel.Expand(k, top.OverhangPolygons, float64(geom.ScaledEpsilon))...)
	if len(fresh) > 0 {
		p.overhangs = append(p.overhangs, k.Union(fresh)...)
	}
	p.enforcers = append(p.enforcers, top.EnforcerPolygons...)
	return p
}

// layerStep is what one object layer contributes to the scan.
type layerStep struct {
	area   geom.Polygons
	bottom *bottomCandidate
}

// bottomCandidate is a bottom contact found on an object top surface.
// It is applied to the shared state after the layer's subtasks join.
type bottomCandidate struct {
	layer    *Layer
	touching geom.Polygons
	// snapped is the top contact the layer was aligned with, if any.
	snapped *Layer
}

// bottomContacts scans the object top-down, projecting the top contacts
// until they land on top surfaces. It returns the bottom contacts sorted
// by PrintZ and, per object layer, the support area to print there.
func (r *run) bottomContacts(tops []*Layer, covered []geom.Polygons) ([]*Layer, []geom.Polygons, error) {
	n := r.obj.LayerCount()
	areas := make([]geom.Polygons, n)
	if len(tops) == 0 {
		return nil, areas, nil
	}
	k := r.g.k

	var (
		acc      projection
		bottoms  []*Layer
		contactI = len(tops) - 1
	)
	for id := n - 2; id >= 0; id-- {
		if err := r.ctx.Err(); err != nil {
			return nil, nil, err
		}
		layer := r.obj.Layers[id]
		for ; contactI >= 0 && tops[contactI].PrintZ > layer.PrintZ-geom.Epsilon; contactI-- {
			acc = acc.add(k, tops[contactI])
		}
		if acc.empty() {
			continue
		}

		var (
			step layerStep
			err  error
		)
		acc, step, err = r.projectLayer(layer, acc, tops, contactI, covered[id])
		if err != nil {
			return nil, nil, err
		}
		areas[id] = step.area
		if c := step.bottom; c != nil {
			if b := r.applyBottomContact(c, areas); b != nil {
				bottoms = append(bottoms, b)
			}
		}
	}

	slices.Reverse(bottoms)
	if err := r.trimByObject(bottoms); err != nil {
		return nil, nil, err
	}
	return bottoms, areas, nil
}

// projectLayer runs one step of the scan. The bottom contact search and
// the two projections are independent and run concurrently.
func (r *run) projectLayer(layer *object.Layer, acc projection, tops []*Layer, contactI int, covered geom.Polygons) (projection, layerStep, error) {
	k := r.g.k
	overhangs := unionOrNil(k, acc.overhangs)
	enforcers := unionOrNil(k, acc.enforcers)
	buildplateOnly := r.g.cfg.BuildplateOnly

	forBottom := overhangs
	if buildplateOnly {
		forBottom = enforcers
	}

	var (
		step              layerStep
		next              projection
		enforcerArea      geom.Polygons
		trimming          geom.Polygons
		trimByCoveredArea = buildplateOnly
	)
	if trimByCoveredArea {
		trimming = covered
	}

	g := parallel.NewGroup(r.ctx)
	if len(forBottom) > 0 {
		g.Go(func(context.Context) error {
			step.bottom = r.detectBottomContact(layer, forBottom, tops, contactI)
			return nil
		})
	}
	g.Go(func(ctx context.Context) error {
		var err error
		step.area, next.overhangs, err = r.projectToGrid(ctx, layer, overhangs, trimming, trimByCoveredArea)
		return err
	})
	if len(enforcers) > 0 {
		// Enforcers are never masked to the build plate.
		g.Go(func(ctx context.Context) error {
			var err error
			enforcerArea, next.enforcers, err = r.projectToGrid(ctx, layer, enforcers, nil, false)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return projection{}, layerStep{}, err
	}
	if len(enforcerArea) > 0 {
		step.area = unionSets(k, step.area, enforcerArea)
	}
	return next, step, nil
}

// projectToGrid removes the layer's own slices from the projected areas
// and grids the rest twice: once to print and once to carry down.
func (r *run) projectToGrid(ctx context.Context, layer *object.Layer, overhangs, trimming geom.Polygons, useTrimming bool) (area, next geom.Polygons, err error) {
	if len(overhangs) == 0 {
		return nil, nil, nil
	}
	k := r.g.k
	if !useTrimming {
		trimming = k.Offset(layer.Polygons(), float64(geom.ScaledEpsilon), kernel.JoinMiter)
	}
	projected := geom.RemoveDegenerate(geom.RemoveSticks(k.Difference(overhangs, trimming)))

	grid := r.g.params.Grid
	p := gridpattern.New(k, projected, trimming, grid)
	g := parallel.NewGroup(ctx)
	g.Go(func(context.Context) error {
		area = p.Extract(grid.ExpansionToSlice, true)
		return nil
	})
	g.Go(func(context.Context) error {
		next = p.Extract(grid.ExpansionToPropagate, true)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return area, next, nil
}

// detectBottomContact finds where the projected areas land on the top
// surfaces of layer. It only reads shared state.
func (r *run) detectBottomContact(layer *object.Layer, projected geom.Polygons, tops []*Layer, contactI int) *bottomCandidate {
	k := r.g.k
	var top geom.Polygons
	for _, region := range layer.Regions {
		top = append(top, region.TopSurfaces...)
	}
	if len(top) == 0 {
		return nil
	}
	touching := k.Intersection(k.Union(top), projected)
	if len(touching) == 0 {
		return nil
	}

	sp := r.g.sp
	var printZ, height float64
	if r.g.params.Independent {
		upper := layer.Upper()
		if sp.SolubleInterface {
			printZ, height = upper.PrintZ, upper.Height
		} else {
			height = r.g.params.InterfaceFlowHeight
			printZ = layer.PrintZ + height + sp.GapObjectSupport
		}
	} else {
		upper := syncGapAbove(layer, sp.GapObjectSupport)
		if upper == nil {
			return nil
		}
		printZ, height = upper.PrintZ, upper.Height
	}

	l := &Layer{
		Type:                BottomContact,
		PrintZ:              printZ,
		Height:              height,
		Bridging:            !sp.SolubleInterface && r.g.cfg.ThickBridges,
		Polygons:            kernel.Expand(k, touching, geom.ScaleF(r.g.params.FlowWidth)),
		IdxObjectLayerAbove: -1,
		IdxObjectLayerBelow: layer.ID,
	}
	c := &bottomCandidate{layer: l, touching: touching}

	if !sp.SolubleInterface {
		// Snap to a nearby top contact so no layer ends up thinner than
		// the minimum support layer height.
		minH := r.g.params.MinLayerHeight
		for i := max(0, contactI); i < len(tops) && tops[i].PrintZ < l.PrintZ+minH+geom.Epsilon; i++ {
			t := tops[i]
			if t.PrintZ <= l.PrintZ-minH-geom.Epsilon {
				continue
			}
			diff := l.PrintZ - t.PrintZ
			if diff > 0 && l.Height-diff <= minH {
				continue
			}
			l.PrintZ = t.PrintZ
			l.Height -= diff
			c.snapped = t
			break
		}
	}
	// The layer spans its full height so Check holds:
	// height == print_z - bottom_z.
	l.BottomZ = l.PrintZ - l.Height
	return c
}

// applyBottomContact commits a candidate: support areas already projected
// between the surface and the contact are cut back, and a contact snapped
// onto a top contact is folded into it. It returns the new bottom contact
// layer, or nil when it was folded.
func (r *run) applyBottomContact(c *bottomCandidate, areas []geom.Polygons) *Layer {
	k := r.g.k
	touching := kernel.Expand(k, c.touching, float64(geom.ScaledEpsilon))
	for id := c.layer.IdxObjectLayerBelow + 1; id < r.obj.LayerCount(); id++ {
		if r.obj.Layers[id].PrintZ > c.layer.PrintZ-geom.Epsilon {
			break
		}
		if len(areas[id]) > 0 {
			areas[id] = k.Difference(areas[id], touching)
		}
	}

	if t := c.snapped; t != nil && math.Abs(t.PrintZ-c.layer.PrintZ) < geom.Epsilon {
		t.Polygons = unionSets(k, t.Polygons, c.layer.Polygons)
		t.BottomZ = math.Min(t.BottomZ, c.layer.BottomZ)
		t.Height = t.PrintZ - t.BottomZ
		t.IdxObjectLayerBelow = c.layer.IdxObjectLayerBelow
		return nil
	}
	h := r.arena.Allocate(BottomContact)
	l := r.arena.Get(h)
	*l = *c.layer
	return l
}

func unionOrNil(k kernel.Kernel, p geom.Polygons) geom.Polygons {
	if len(p) == 0 {
		return nil
	}
	return k.Union(p)
}
