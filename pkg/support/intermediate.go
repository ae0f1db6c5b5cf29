package support

import (
	"math"
	"sort"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/kernel"
	"github.com/chazu/buttress/pkg/parallel"
)

// extremeZ is the Z a contact layer bounds the filler layers at: the
// bottom of a top contact, the top of a bottom contact.
func extremeZ(l *Layer) float64 {
	if l.Type == TopContact {
		return l.BottomZ
	}
	return l.PrintZ
}

// intermediateLayers allocates the filler layers between consecutive
// contact extremes. Top contacts without a height get one here.
func (r *run) intermediateLayers(tops, bottoms []*Layer) []*Layer {
	extremes := make([]*Layer, 0, len(tops)+len(bottoms))
	extremes = append(extremes, tops...)
	extremes = append(extremes, bottoms...)
	if len(extremes) == 0 {
		return nil
	}
	sort.SliceStable(extremes, func(i, j int) bool {
		zi, zj := extremeZ(extremes[i]), extremeZ(extremes[j])
		return zi < zj || (zi == zj && extremes[i].Type == TopContact && extremes[j].Type == BottomContact)
	})

	sp := r.g.sp
	first := sp.FirstPrintLayerHeight
	var out []*Layer
	add := func(bottomZ, printZ float64) *Layer {
		l := r.arena.Get(r.arena.Allocate(Intermediate))
		l.BottomZ, l.PrintZ, l.Height = bottomZ, printZ, printZ-bottomZ
		out = append(out, l)
		return l
	}

	start := 0
	if math.Abs(extremeZ(extremes[0])-sp.RaftInterfaceTopZ) < geom.Epsilon {
		// The raft contact layer already has its height.
		start = 1
	}
	idxObject := 0
	for i := start; i < len(extremes); i++ {
		extr2 := extremes[i]
		extr2z := extremeZ(extr2)
		if math.Abs(extr2z-first) < geom.Epsilon {
			if len(out) == 0 || out[len(out)-1].PrintZ < first {
				add(0, first)
			}
			continue
		}
		var extr1 *Layer
		extr1z := sp.RaftInterfaceTopZ
		if i > start {
			extr1 = extremes[i-1]
			extr1z = extremeZ(extr1)
		}
		if math.Abs(extr1z) < geom.Epsilon {
			// The span starts on the bed: print the first layer at its
			// prescribed height.
			add(0, first)
			extr1z = first
		}
		dist := extr2z - extr1z
		if dist <= 0 {
			continue
		}

		if r.g.params.Synchronize {
			layers := r.obj.Layers
			for idxObject < len(layers) && layers[idxObject].PrintZ < extr1z+geom.Epsilon {
				idxObject++
			}
			if idxObject == 0 && extr1z == sp.RaftInterfaceTopZ {
				add(sp.RaftInterfaceTopZ, sp.ObjectPrintZMin)
			}
			for ; idxObject < len(layers) && layers[idxObject].PrintZ < extr2z+geom.Epsilon; idxObject++ {
				ol := layers[idxObject]
				bottom := ol.BottomZ()
				if idxObject > 0 {
					bottom = layers[idxObject-1].PrintZ
				}
				add(bottom, ol.PrintZ)
			}
			continue
		}

		n := layerCount(dist, sp.MaxSupportLayerHeight)
		step := dist / float64(n)
		if extr1 != nil && extr1.Type == TopContact && extr1.PrintZ+r.g.params.MinLayerHeight > extr1.BottomZ+step {
			// Keep the first filler layer from ending just under the top
			// contact above it.
			add(extr1.BottomZ, extr1.PrintZ)
			extr1z = extr1.PrintZ
			dist = extr2z - extr1z
			if dist <= 0 {
				continue
			}
			n = layerCount(dist, sp.MaxSupportLayerHeight)
			step = dist / float64(n)
		}
		if !sp.SolubleInterface && extr2.Type == TopContact && extr2.Height == 0 {
			extr2.Height = step
			extr2.BottomZ = extr2.PrintZ - step
			extr2z = extr2.BottomZ
			if n--; n == 0 {
				continue
			}
		}
		for j := range n {
			if j+1 == n {
				bottom := extr1z
				if j > 0 {
					bottom = out[len(out)-1].PrintZ
				}
				add(bottom, extr2z)
				continue
			}
			bottom := extr1z + float64(j)*step
			add(bottom, bottom+step)
		}
	}
	return out
}

// layerCount is the number of equal layers no thicker than maxHeight
// needed to fill dist.
func layerCount(dist, maxHeight float64) int {
	return max(int(math.Ceil(dist/maxHeight-geom.Epsilon)), 1)
}

// generateBaseLayers fills every intermediate layer with the support area
// of the object layer above it, minus any contact layer fully containing
// it, then trims the result by the object.
func (r *run) generateBaseLayers(inter, tops, bottoms []*Layer, areas []geom.Polygons) error {
	if len(tops) == 0 || len(inter) == 0 {
		return nil
	}
	k := r.g.k
	layers := r.obj.Layers
	err := parallel.ForEach(r.ctx, r.g.pool, len(inter), func(i int) {
		l := inter[i]

		// Highest object layer not above this layer.
		above := sort.Search(len(layers), func(j int) bool {
			return layers[j].PrintZ > l.PrintZ+geom.Epsilon
		}) - 1

		var polys geom.Polygons
		if above < 0 {
			// Below the object: project the contacts resting on the first
			// object layer directly.
			polys = areas[0].Clone()
			firstZ := layers[0].PrintZ
			for _, t := range tops {
				if t.BottomZ <= l.PrintZ-geom.Epsilon {
					continue
				}
				if t.PrintZ > firstZ+geom.Epsilon {
					break
				}
				polys = append(polys, t.Polygons...)
			}
		} else {
			polys = areas[above].Clone()
			l.IdxObjectLayerAbove = above
		}

		var trimming geom.Polygons
		for _, t := range tops {
			if t.BottomZ > l.PrintZ-geom.Epsilon || t.PrintZ < l.BottomZ+geom.Epsilon {
				continue
			}
			if l.PrintZ <= t.PrintZ+geom.Epsilon && l.BottomZ >= t.BottomZ-geom.Epsilon {
				trimming = append(trimming, t.Polygons...)
			}
		}
		for _, b := range bottoms {
			if b.BottomZ > l.PrintZ-geom.Epsilon || b.PrintZ < l.BottomZ+geom.Epsilon {
				continue
			}
			if l.PrintZ <= b.PrintZ+geom.Epsilon && l.BottomZ >= b.BottomZ-geom.Epsilon {
				trimming = append(trimming, b.Polygons...)
			}
		}

		if len(trimming) == 0 {
			l.Polygons = polys
		} else {
			l.Polygons = kernel.DifferenceSafe(k, polys, trimming)
		}
		l.Type = Base
	})
	if err != nil {
		return err
	}
	return r.trimByObject(inter)
}
