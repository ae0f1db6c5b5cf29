// Package support synthesises the support structure of a sliced object:
// contact layers under overhangs, contact layers resting on top surfaces,
// and the base layers in between, each trimmed clear of the object.
//
// A run is a fixed sequence of stages. Stages that work per layer run in
// parallel on a worker pool; the top-down projection of contact areas is
// serial. A cancelled context aborts the whole run and nothing is
// returned.
package support

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/chazu/buttress/pkg/config"
	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/kernel"
	"github.com/chazu/buttress/pkg/object"
	"github.com/chazu/buttress/pkg/parallel"
	"github.com/chazu/buttress/pkg/slicing"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	// ErrNoExternalStrategy is returned for tree and organic styles when
	// no external strategy is configured.
	ErrNoExternalStrategy = errors.New("support: style requires an external strategy")
	// ErrEmptyObject is returned for an object without layers.
	ErrEmptyObject = errors.New("support: object has no layers")
)

// ExternalStrategy generates support for the styles this package does not
// implement itself.
type ExternalStrategy interface {
	Generate(ctx context.Context, obj *object.Object) ([]*Layer, error)
}

// Option configures a Generator.
type Option func(*Generator)

// WithPool runs the parallel stages on pool. Without it they run serially.
func WithPool(pool *parallel.WorkerPool) Option {
	return func(g *Generator) { g.pool = pool }
}

// WithExternal sets the strategy used for tree and organic styles.
func WithExternal(s ExternalStrategy) Option {
	return func(g *Generator) { g.external = s }
}

// Generator produces support layers for objects sliced with one set of
// parameters. It holds no per-run state and may be reused.
type Generator struct {
	cfg      config.Support
	sp       slicing.Parameters
	params   Params
	k        kernel.Kernel
	pool     *parallel.WorkerPool
	external ExternalStrategy
}

// New creates a generator.
func New(cfg config.Support, sp slicing.Parameters, k kernel.Kernel, opts ...Option) *Generator {
	g := &Generator{
		cfg:    cfg,
		sp:     sp,
		params: NewParams(cfg, sp),
		k:      k,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Params returns the derived support parameters.
func (g *Generator) Params() Params {
	return g.params
}

// Result is the output of one run.
type Result struct {
	RunID uuid.UUID
	// Layers is ordered by PrintZ. At equal PrintZ top contacts come
	// first, then bottom contacts, then base layers.
	Layers []*Layer
	// Arena owns every layer allocated during the run, including those
	// merged away or left empty.
	Arena *Arena
}

// ByType returns the layers of type t in output order.
func (r *Result) ByType(t LayerType) []*Layer {
	return lo.Filter(r.Layers, func(l *Layer, _ int) bool { return l.Type == t })
}

// TypeStats summarises the layers of one type.
type TypeStats struct {
	Count int
	Area  float64 // mm²
}

// Stats returns layer counts and printed area per type.
func (r *Result) Stats() map[LayerType]TypeStats {
	out := make(map[LayerType]TypeStats)
	for t, layers := range lo.GroupBy(r.Layers, func(l *Layer) LayerType { return l.Type }) {
		out[t] = TypeStats{
			Count: len(layers),
			Area:  lo.SumBy(layers, func(l *Layer) float64 { return l.Area() }),
		}
	}
	return out
}

// Generate runs the support pipeline on obj. The object must not be
// modified while it runs.
func (g *Generator) Generate(ctx context.Context, obj *object.Object) (*Result, error) {
	if obj == nil || obj.LayerCount() == 0 {
		return nil, ErrEmptyObject
	}
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}
	obj.Link()
	vr := object.Validate(obj)
	if vr.HasErrors() {
		errs := lo.Map(vr.Errors(), func(e object.ValidationError, _ int) error { return e })
		return nil, fmt.Errorf("support: invalid object %q: %w", obj.Name, errors.Join(errs...))
	}

	res := &Result{RunID: uuid.New(), Arena: &Arena{}}
	log := Logger().With("run", res.RunID.String(), "object", obj.Name)
	for _, w := range vr.Warnings() {
		log.Warn("object validation", "finding", w.Error())
	}
	start := time.Now()

	var (
		layers []*Layer
		err    error
	)
	switch {
	case g.cfg.Style.IsExternal():
		layers, err = g.generateExternal(ctx, obj, res.Arena)
	case !g.cfg.Enabled && !obj.HasEnforcers() && !g.sp.HasRaft():
		log.Debug("support disabled")
	default:
		r := &run{g: g, ctx: ctx, obj: obj, arena: res.Arena, log: log}
		layers, err = r.generate()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("support: generation aborted: %w", err)
		}
		return nil, err
	}

	sortLayers(layers)
	for _, l := range layers {
		if err := l.Check(); err != nil {
			return nil, err
		}
	}
	res.Layers = layers
	log.Info("support generated",
		"layers", len(layers),
		"allocated", res.Arena.Len(),
		"elapsed", time.Since(start))
	return res, nil
}

func (g *Generator) generateExternal(ctx context.Context, obj *object.Object, arena *Arena) ([]*Layer, error) {
	if g.external == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoExternalStrategy, g.cfg.Style)
	}
	layers, err := g.external.Generate(ctx, obj)
	if err != nil {
		return nil, fmt.Errorf("support: %s strategy: %w", g.cfg.Style, err)
	}
	for _, l := range layers {
		arena.adopt(l)
	}
	return layers, nil
}

// sortLayers orders layers by PrintZ, breaking ties by type.
func sortLayers(layers []*Layer) {
	sort.SliceStable(layers, func(i, j int) bool {
		a, b := layers[i], layers[j]
		if a.PrintZ != b.PrintZ {
			return a.PrintZ < b.PrintZ
		}
		return a.Type.rank() < b.Type.rank()
	})
}

// run is the state of one Generate call.
type run struct {
	g     *Generator
	ctx   context.Context
	obj   *object.Object
	arena *Arena
	log   *slog.Logger
	// tails holds the sharp tails found on each object layer.
	tails [][]sharpTail
}

func (r *run) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.log.Debug("support stage",
		"stage", name,
		"elapsed", time.Since(start),
		"allocated", r.arena.Len(),
		"err", err)
	return err
}

func (r *run) generate() ([]*Layer, error) {
	var (
		covered []geom.Polygons
		tops    []*Layer
		bottoms []*Layer
		areas   []geom.Polygons
		inter   []*Layer
	)
	err := r.stage("buildplate", func() (err error) {
		covered, err = r.buildplateCovered()
		return err
	})
	if err != nil {
		return nil, err
	}
	err = r.stage("top-contacts", func() (err error) {
		tops, err = r.topContacts(covered)
		return err
	})
	if err != nil || len(tops) == 0 {
		return nil, err
	}
	err = r.stage("bottom-contacts", func() (err error) {
		bottoms, areas, err = r.bottomContacts(tops, covered)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = r.stage("intermediate", func() error {
		inter = r.intermediateLayers(tops, bottoms)
		return r.ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	if err := r.stage("trim-top", func() error { return r.trimByObject(tops) }); err != nil {
		return nil, err
	}
	if err := r.stage("base", func() error { return r.generateBaseLayers(inter, tops, bottoms, areas) }); err != nil {
		return nil, err
	}
	if err := r.stage("trim-top-by-bottom", func() error { return r.trimTopByBottom(tops, bottoms) }); err != nil {
		return nil, err
	}

	all := make([]*Layer, 0, len(tops)+len(bottoms)+len(inter))
	all = append(all, tops...)
	all = append(all, bottoms...)
	all = append(all, inter...)
	return lo.Filter(all, func(l *Layer, _ int) bool { return len(l.Polygons) > 0 }), nil
}
