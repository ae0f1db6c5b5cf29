package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/chazu/buttress/pkg/config"
	"github.com/chazu/buttress/pkg/engine"
	"github.com/chazu/buttress/pkg/kernel"
	"github.com/chazu/buttress/pkg/kernel/clipper"
	"github.com/chazu/buttress/pkg/kernel/sdfx"
	"github.com/chazu/buttress/pkg/layerfile"
	"github.com/chazu/buttress/pkg/object"
	"github.com/chazu/buttress/pkg/parallel"
	"github.com/chazu/buttress/pkg/slicer"
	"github.com/chazu/buttress/pkg/slicing"
	"github.com/chazu/buttress/pkg/support"
)

// App chains the pipeline: script evaluation, slicing and support
// generation. Output is left to the caller.
type App struct {
	engine  *engine.Engine
	modeler kernel.Modeler
	kernel  kernel.Kernel
	pool    *parallel.WorkerPool
	pixel   float64
	// overlay is a JSON support configuration applied over the script's
	// or the default configuration.
	overlay []byte
	log     *slog.Logger
}

// NewApp creates an App using the sdfx modeler and the clipper kernel.
func NewApp(pool *parallel.WorkerPool, pixel float64, overlay []byte, log *slog.Logger) *App {
	return &App{
		engine:  engine.NewEngine(),
		modeler: sdfx.New(),
		kernel:  clipper.New(),
		pool:    pool,
		pixel:   pixel,
		overlay: overlay,
		log:     log,
	}
}

// Job is one object and the configuration its support is generated with.
type Job struct {
	Object *object.Object
	Config config.Support
}

func (a *App) configure(base config.Support) (config.Support, error) {
	if len(a.overlay) == 0 {
		return base, nil
	}
	cfg, err := config.Overlay(base, bytes.NewReader(a.overlay))
	if err != nil {
		return config.Support{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadScene evaluates a scene script and slices every object it declares.
func (a *App) LoadScene(ctx context.Context, source string) ([]Job, error) {
	sc, warnings, evalErrs, err := a.engine.EvaluateWithWarnings(source)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("script: %w", errors.Join(errs...))
	}
	for _, w := range warnings {
		a.log.Warn("scene", "warning", w.Message)
	}

	if sc.Support, err = a.configure(sc.Support); err != nil {
		return nil, err
	}
	objs, err := slicer.Slice(ctx, sc, a.modeler, a.kernel, slicer.Options{Pixel: a.pixel, Pool: a.pool})
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, len(objs))
	for i, obj := range objs {
		jobs[i] = Job{Object: obj, Config: sc.Support}
		a.log.Debug("sliced", "object", obj.Name, "layers", obj.LayerCount())
	}
	return jobs, nil
}

// LoadLayers reads a layer-stack file.
func (a *App) LoadLayers(name string, r io.Reader) ([]Job, error) {
	obj, err := layerfile.ParseNamed(name, r)
	if err != nil {
		return nil, err
	}
	cfg, err := a.configure(config.Default())
	if err != nil {
		return nil, err
	}
	return []Job{{Object: obj, Config: cfg}}, nil
}

// Generate runs the support generator on one job.
func (a *App) Generate(ctx context.Context, job Job) (*support.Result, error) {
	gen := support.New(job.Config, slicing.New(job.Config), a.kernel, support.WithPool(a.pool))
	return gen.Generate(ctx, job.Object)
}
