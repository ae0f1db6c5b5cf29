package layerfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/object"
	"github.com/chazu/buttress/pkg/support"
)

// writer accumulates the first write error.
type writer struct {
	w   *bufio.Writer
	err error
}

func (w *writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func (w *writer) flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// mm formats a coordinate with the six decimals one unit needs.
func mm(v int64) string {
	s := strconv.FormatFloat(geom.Unscale(v), 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (w *writer) ring(indent, kind string, p geom.Polygon) {
	w.printf("%s%s", indent, kind)
	for _, pt := range p {
		w.printf(" (%s,%s)", mm(pt.X), mm(pt.Y))
	}
	w.printf("\n")
}

func (w *writer) block(name string, polys geom.Polygons) {
	if len(polys) == 0 {
		return
	}
	w.printf("  %s {\n", name)
	for _, p := range polys {
		w.ring("    ", "polygon", p)
	}
	w.printf("  }\n")
}

// Write writes obj in the format Parse reads.
func Write(out io.Writer, obj *object.Object) error {
	w := &writer{w: bufio.NewWriter(out)}
	w.printf("object %s\n", strconv.Quote(obj.Name))
	for _, l := range obj.Layers {
		w.printf("layer %s height %s {\n", num(l.PrintZ), num(l.Height))
		if len(l.Slices) > 0 {
			w.printf("  slice {\n")
			for _, ex := range l.Slices {
				w.ring("    ", "contour", ex.Contour)
				for _, h := range ex.Holes {
					w.ring("    ", "hole", h)
				}
			}
			w.printf("  }\n")
		}
		for _, r := range l.Regions {
			w.block("top", r.TopSurfaces)
			w.block("bridge", r.BottomBridges)
			w.block("perimeters", r.BridgingPerimeters)
			w.printf("  width %s\n", num(r.ExternalPerimeterWidth))
			if r.BridgingHeight > 0 {
				w.printf("  bridging %s\n", num(r.BridgingHeight))
			}
		}
		w.block("enforcer", l.Enforcers)
		w.block("blocker", l.Blockers)
		w.printf("}\n")
	}
	return w.flush()
}

// WriteSupport writes generated support layers, one block per layer in
// the given order.
func WriteSupport(out io.Writer, layers []*support.Layer) error {
	w := &writer{w: bufio.NewWriter(out)}
	for _, l := range layers {
		w.printf("support %s %s bottom %s", l.Type, num(l.PrintZ), num(l.BottomZ))
		if l.Bridging {
			w.printf(" bridging")
		}
		w.printf(" {\n")
		for _, p := range l.Polygons {
			w.ring("  ", "polygon", p)
		}
		w.printf("}\n")
	}
	return w.flush()
}
