// Command buttress generates support structures for a sliced object and
// writes them as a text layer stack, with an optional PDF preview.
//
//	buttress -scene part.lisp -out support.txt -pdf preview.pdf
//	buttress -layers part.layers -config support.json
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/buttress/pkg/layerfile"
	"github.com/chazu/buttress/pkg/parallel"
	"github.com/chazu/buttress/pkg/preview"
	"github.com/chazu/buttress/pkg/support"
)

type options struct {
	scene   string
	layers  string
	config  string
	out     string
	pdf     string
	pixel   float64
	workers int
	timeout time.Duration
	verbose bool
}

func main() {
	var opts options
	flag.StringVar(&opts.scene, "scene", "", "scene script to slice")
	flag.StringVar(&opts.layers, "layers", "", "layer-stack file to read instead of a scene")
	flag.StringVar(&opts.config, "config", "", "JSON support configuration applied over the defaults")
	flag.StringVar(&opts.out, "out", "", "support output file (default stdout)")
	flag.StringVar(&opts.pdf, "pdf", "", "write a PDF preview to this file")
	flag.Float64Var(&opts.pixel, "pixel", 0.1, "slicing resolution in mm")
	flag.IntVar(&opts.workers, "workers", 0, "worker count (0 = GOMAXPROCS)")
	flag.DurationVar(&opts.timeout, "timeout", 0, "abort after this long (0 = no limit)")
	flag.BoolVar(&opts.verbose, "v", false, "log stage timings")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	support.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, opts, os.Stdout, logger)
	stop()
	if err != nil {
		logger.Error("buttress failed", "err", err)
		os.Exit(1)
	}
}

// output is the rendered result of one object.
type output struct {
	name   string
	layers []*support.Layer
	pdf    []byte
}

// run loads the input, generates support for every object and only then
// writes the outputs, so an aborted run leaves no files behind.
func run(ctx context.Context, opts options, stdout io.Writer, log *slog.Logger) error {
	if (opts.scene == "") == (opts.layers == "") {
		return errors.New("exactly one of -scene and -layers is required")
	}
	if opts.pixel <= 0 {
		return fmt.Errorf("-pixel must be positive, got %v", opts.pixel)
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	var overlay []byte
	if opts.config != "" {
		data, err := os.ReadFile(opts.config)
		if err != nil {
			return err
		}
		overlay = data
	}

	pool := parallel.NewWorkerPool(opts.workers)
	defer pool.Close()
	app := NewApp(pool, opts.pixel, overlay, log)

	jobs, err := load(ctx, app, opts)
	if err != nil {
		return err
	}

	outs := make([]output, 0, len(jobs))
	for _, job := range jobs {
		res, err := app.Generate(ctx, job)
		if err != nil {
			return fmt.Errorf("object %q: %w", job.Object.Name, err)
		}
		for t, s := range res.Stats() {
			log.Debug("support layers", "object", job.Object.Name, "type", t.String(), "count", s.Count, "area", s.Area)
		}
		o := output{name: job.Object.Name, layers: res.Layers}
		if opts.pdf != "" && len(res.Layers) > 0 {
			var buf bytes.Buffer
			if err := preview.WritePDF(&buf, job.Object, res.Layers, preview.Options{}); err != nil {
				return err
			}
			o.pdf = buf.Bytes()
		}
		outs = append(outs, o)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return write(opts, outs, stdout)
}

func load(ctx context.Context, app *App, opts options) ([]Job, error) {
	if opts.scene != "" {
		src, err := os.ReadFile(opts.scene)
		if err != nil {
			return nil, err
		}
		return app.LoadScene(ctx, string(src))
	}
	f, err := os.Open(opts.layers)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return app.LoadLayers(opts.layers, f)
}

func write(opts options, outs []output, stdout io.Writer) error {
	var buf bytes.Buffer
	for _, o := range outs {
		fmt.Fprintf(&buf, "# object %q\n", o.name)
		if err := layerfile.WriteSupport(&buf, o.layers); err != nil {
			return err
		}
	}
	if opts.out == "" || opts.out == "-" {
		if _, err := stdout.Write(buf.Bytes()); err != nil {
			return err
		}
	} else if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
		return err
	}

	for _, o := range outs {
		if o.pdf == nil {
			continue
		}
		if err := os.WriteFile(pdfPath(opts.pdf, o.name, len(outs)), o.pdf, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// pdfPath returns path, or path with the object name before the
// extension when several objects share one run.
func pdfPath(path, name string, objects int) string {
	if objects <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + name + ext
}
