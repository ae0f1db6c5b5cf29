// Package slicer turns a scene into print objects: each scene object is
// built into a solid, cut into layers on the configured Z stack and its
// surfaces classified for the support generator. Enforcer and blocker
// solids are cut on the same Z values and attached as layer annotations.
package slicer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/chazu/buttress/pkg/config"
	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/kernel"
	"github.com/chazu/buttress/pkg/object"
	"github.com/chazu/buttress/pkg/parallel"
	"github.com/chazu/buttress/pkg/scene"
	"github.com/chazu/buttress/pkg/slicing"
	"github.com/samber/lo"
)

// DefaultPixel is the sampling pixel used when Options.Pixel is zero (mm).
const DefaultPixel = 0.1

// ErrNoObjects is returned for a scene without objects.
var ErrNoObjects = errors.New("slicer: scene has no objects")

// Options tune one slicing run.
type Options struct {
	// Pixel is the cross-section sampling resolution in mm.
	Pixel float64
	// Pool runs the per-layer work. Nil slices serially.
	Pool *parallel.WorkerPool
}

// span is one layer of the Z stack in model coordinates.
type span struct {
	bottom, top float64
}

func (s span) mid() float64 {
	return (s.bottom + s.top) / 2
}

// zStack returns the layer spans covering [0, top]. The first layer is
// first thick, the rest layer thick.
func zStack(top, first, layer float64) []span {
	if top <= geom.Epsilon || first <= 0 || layer <= 0 {
		return nil
	}
	n := 1
	if top > first+geom.Epsilon {
		n += int(math.Ceil((top-first)/layer - geom.Epsilon))
	}
	spans := make([]span, n)
	spans[0] = span{0, first}
	for i := 1; i < n; i++ {
		bottom := first + float64(i-1)*layer
		spans[i] = span{bottom, bottom + layer}
	}
	return spans
}

// Slice builds and slices every object of sc, in declaration order.
func Slice(ctx context.Context, sc *scene.Scene, m kernel.Modeler, k kernel.Kernel, opts Options) ([]*object.Object, error) {
	if sc == nil || len(sc.Objects) == 0 {
		return nil, ErrNoObjects
	}
	if findings := scene.Validate(sc); scene.HasErrors(findings) {
		errs := lo.FilterMap(findings, func(f scene.ValidationError, _ int) (error, bool) {
			return f, f.Severity == scene.SeverityError
		})
		return nil, fmt.Errorf("slicer: invalid scene: %w", errors.Join(errs...))
	}
	if opts.Pixel == 0 {
		opts.Pixel = DefaultPixel
	}

	b := newBuilder(sc, m)
	enforcers, err := b.solids(sc.Enforcers)
	if err != nil {
		return nil, fmt.Errorf("slicer: enforcers: %w", err)
	}
	blockers, err := b.solids(sc.Blockers)
	if err != nil {
		return nil, fmt.Errorf("slicer: blockers: %w", err)
	}

	s := &slicer{
		cfg:       sc.Support,
		sp:        slicing.New(sc.Support),
		m:         m,
		k:         k,
		opts:      opts,
		enforcers: enforcers,
		blockers:  blockers,
	}
	objs := make([]*object.Object, 0, len(sc.Objects))
	for _, o := range sc.Objects {
		solid, err := b.solid(o.Root)
		if err != nil {
			return nil, fmt.Errorf("slicer: object %q: %w", o.Name, err)
		}
		obj, err := s.object(ctx, o.Name, solid)
		if err != nil {
			return nil, fmt.Errorf("slicer: object %q: %w", o.Name, err)
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

type slicer struct {
	cfg  config.Support
	sp   slicing.Parameters
	m    kernel.Modeler
	k    kernel.Kernel
	opts Options

	enforcers []kernel.Solid
	blockers  []kernel.Solid
}

// object cuts one solid into a linked layer stack.
func (s *slicer) object(ctx context.Context, name string, solid kernel.Solid) (*object.Object, error) {
	_, hi := solid.BoundingBox()
	spans := zStack(hi[2], s.sp.FirstObjectLayerHeight, s.sp.LayerHeight)

	obj := object.New(name)
	for _, sp := range spans {
		obj.AddLayer(&object.Layer{
			PrintZ: s.sp.ObjectPrintZMin + sp.top,
			Height: sp.top - sp.bottom,
		})
	}

	errs := make([]error, len(spans))
	err := parallel.ForEach(ctx, s.opts.Pool, len(spans), func(i int) {
		errs[i] = s.cut(obj.Layers[i], solid, spans[i].mid())
	})
	if err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	// Surfaces need both neighbours, so they are classified once every
	// layer is cut.
	err = parallel.ForEach(ctx, s.opts.Pool, len(spans), func(i int) {
		s.classify(obj.Layers[i])
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// cut fills the slices and annotations of l at model height z.
func (s *slicer) cut(l *object.Layer, solid kernel.Solid, z float64) error {
	raw, err := s.m.Slice(solid, z, s.opts.Pixel)
	if err != nil {
		return fmt.Errorf("layer %d: %w", l.ID, err)
	}
	l.Slices = s.k.UnionEx(raw)
	if len(l.Slices) > 0 {
		l.Regions = []object.Region{{
			Slices:                 l.Slices,
			ExternalPerimeterWidth: s.cfg.ExtrusionWidth,
		}}
	}
	if l.Enforcers, err = s.annotation(s.enforcers, z); err != nil {
		return fmt.Errorf("layer %d: enforcers: %w", l.ID, err)
	}
	if l.Blockers, err = s.annotation(s.blockers, z); err != nil {
		return fmt.Errorf("layer %d: blockers: %w", l.ID, err)
	}
	return nil
}

func (s *slicer) annotation(solids []kernel.Solid, z float64) (geom.Polygons, error) {
	var all geom.Polygons
	for _, solid := range solids {
		p, err := s.m.Slice(solid, z, s.opts.Pixel)
		if err != nil {
			return nil, err
		}
		all = append(all, p...)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return s.k.Union(all), nil
}

// classify derives the top surfaces and bridges of l from its neighbours.
func (s *slicer) classify(l *object.Layer) {
	if len(l.Regions) == 0 {
		return
	}
	r := &l.Regions[0]
	flat := l.Polygons()

	if up := l.Upper(); up != nil {
		r.TopSurfaces = s.k.Difference(flat, up.Polygons())
	} else {
		r.TopSurfaces = flat.Clone()
	}

	down := l.Lower()
	if down == nil {
		return
	}
	r.BottomBridges = s.bridges(flat, down.Polygons())
	if len(r.BottomBridges) == 0 {
		return
	}
	r.BridgingHeight = l.Height
	if s.cfg.ThickBridges {
		r.BridgingHeight = s.cfg.ExtrusionWidth
	}
}

// bridges returns the unsupported islands of flat that are anchored on the
// layer below in at least two separate places. Islands held on one side
// only are overhangs.
func (s *slicer) bridges(flat, below geom.Polygons) geom.Polygons {
	var out geom.Polygons
	anchor := geom.ScaleF(s.cfg.ExtrusionWidth)
	for _, island := range s.k.DifferenceEx(flat, below) {
		grown := kernel.Expand(s.k, island.Polygons(), anchor)
		if len(s.k.IntersectionEx(grown, below)) >= 2 {
			out = append(out, island.Polygons()...)
		}
	}
	return out
}
