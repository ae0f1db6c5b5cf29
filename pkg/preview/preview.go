// Package preview renders generated support layers to a PDF for visual
// inspection: one page per support layer, with the object cross-section
// printed at the same height drawn underneath.
package preview

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/object"
	"github.com/chazu/buttress/pkg/support"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
)

// ErrNoLayers is returned when there is nothing to draw.
var ErrNoLayers = errors.New("preview: no support layers")

// Options control the page geometry. Zero values select the defaults.
type Options struct {
	// Scale is page millimetres per model millimetre.
	Scale float64
	// Margin around the drawing (page mm).
	Margin float64
	// Title is stored in the document info.
	Title string
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 4
	}
	if o.Margin <= 0 {
		o.Margin = 10
	}
	return o
}

var (
	objectFill   = canvas.Hex("#c8c8c8")
	overhangLine = canvas.Hex("#d62728")
	typeFill     = map[support.LayerType]color.RGBA{
		support.TopContact:    canvas.Hex("#1f77b4cc"),
		support.BottomContact: canvas.Hex("#9467bdcc"),
		support.Intermediate:  canvas.Hex("#2ca02c99"),
		support.Base:          canvas.Hex("#2ca02c99"),
		support.RaftBase:      canvas.Hex("#8c564bcc"),
		support.RaftInterface: canvas.Hex("#e377c2cc"),
	}
)

// page is the drawing of one support layer.
type page struct {
	layer  *support.Layer
	object *object.Layer
}

// frame maps model coordinates to page millimetres.
type frame struct {
	origin        geom.Point
	scale, margin float64
	width, height float64
}

func newFrame(bb geom.BoundingBox, o Options) frame {
	size := bb.Size()
	return frame{
		origin: bb.Min,
		scale:  o.Scale,
		margin: o.Margin,
		width:  geom.Unscale(size.X)*o.Scale + 2*o.Margin,
		height: geom.Unscale(size.Y)*o.Scale + 2*o.Margin,
	}
}

func (f frame) point(p geom.Point) (x, y float64) {
	return geom.Unscale(p.X-f.origin.X)*f.scale + f.margin,
		geom.Unscale(p.Y-f.origin.Y)*f.scale + f.margin
}

func (f frame) path(polys geom.Polygons) *canvas.Path {
	p := &canvas.Path{}
	for _, ring := range polys {
		if len(ring) < 3 {
			continue
		}
		p.MoveTo(f.point(ring[0]))
		for _, pt := range ring[1:] {
			p.LineTo(f.point(pt))
		}
		p.Close()
	}
	return p
}

// objectLayerAt returns the object layer printed at z, or nil above the
// object.
func objectLayerAt(obj *object.Object, z float64) *object.Layer {
	if obj == nil {
		return nil
	}
	for _, l := range obj.Layers {
		if l.PrintZ >= z-geom.Epsilon {
			return l
		}
	}
	return nil
}

// plan pairs every support layer with its object layer and sizes one
// frame that fits all of them.
func plan(obj *object.Object, layers []*support.Layer, o Options) ([]page, frame) {
	var bb geom.BoundingBox
	pages := make([]page, 0, len(layers))
	for _, l := range layers {
		pg := page{layer: l, object: objectLayerAt(obj, l.PrintZ)}
		bb.Merge(l.Polygons.BoundingBox())
		if pg.object != nil {
			bb.Merge(pg.object.Slices.BoundingBox())
		}
		pages = append(pages, pg)
	}
	return pages, newFrame(bb, o)
}

// WritePDF renders one page per support layer, in the given order.
func WritePDF(w io.Writer, obj *object.Object, layers []*support.Layer, opts Options) error {
	if len(layers) == 0 {
		return ErrNoLayers
	}
	opts = opts.withDefaults()
	pages, f := plan(obj, layers, opts)

	doc := pdf.New(w, f.width, f.height, nil)
	title := opts.Title
	if title == "" && obj != nil {
		title = fmt.Sprintf("support for %s", obj.Name)
	}
	doc.SetInfo(title, "", "", "", "buttress")

	for i, pg := range pages {
		if i > 0 {
			doc.NewPage(f.width, f.height)
		}
		c := canvas.New(f.width, f.height)
		draw(canvas.NewContext(c), f, pg)
		c.RenderTo(doc)
	}
	if err := doc.Close(); err != nil {
		return fmt.Errorf("preview: write pdf: %w", err)
	}
	return nil
}

func draw(ctx *canvas.Context, f frame, pg page) {
	if pg.object != nil && len(pg.object.Slices) > 0 {
		ctx.SetFillColor(objectFill)
		ctx.SetStrokeColor(color.RGBA{})
		ctx.DrawPath(0, 0, f.path(pg.object.Polygons()))
	}

	fill, ok := typeFill[pg.layer.Type]
	if !ok {
		fill = canvas.Hex("#7f7f7f99")
	}
	ctx.SetFillColor(fill)
	ctx.SetStrokeColor(color.RGBA{})
	ctx.DrawPath(0, 0, f.path(pg.layer.Polygons))

	if len(pg.layer.OverhangPolygons) > 0 {
		ctx.SetFillColor(color.RGBA{})
		ctx.SetStrokeColor(overhangLine)
		ctx.SetStrokeWidth(0.3)
		ctx.DrawPath(0, 0, f.path(pg.layer.OverhangPolygons))
	}
}
