package raster

import (
	"sort"

	"github.com/chazu/buttress/pkg/geom"
)

type line struct {
	a, b geom.Point
}

type startIndex struct {
	p   geom.Point
	idx int
}

// Contours traces the boundary between set and empty cells and returns it
// as world-space polygons: counter-clockwise contours and clockwise holes.
// Only corner points are kept, and each corner is pushed outward by offset
// units (inward when offset is negative). With fillHoles, empty cells
// squeezed between two set neighbours are treated as set first.
func (g *Grid) Contours(offset int64, fillHoles bool) geom.Polygons {
	w := g.Width
	inside := g.Cells
	if fillHoles {
		inside = append([]uint8(nil), g.Cells...)
		for r := 1; r+1 < g.Height; r++ {
			for c := 1; c+1 < w; c++ {
				addr := r*w + c
				if (g.Cells[addr-1] != 0 && g.Cells[addr+1] != 0) ||
					(g.Cells[addr-w] != 0 && g.Cells[addr+w] != 0) {
					inside[addr] = 1
				}
			}
		}
	}

	// Collect directed boundary edges in cell coordinates. Set regions end
	// up clockwise here and are reversed on output.
	var lines []line
	var starts []startIndex
	for r := 1; r < g.Height; r++ {
		for c := 1; c < w; c++ {
			addr := r*w + c
			left := inside[addr-1] != 0
			top := inside[addr-w] != 0
			cur := inside[addr] != 0
			if left != cur {
				l := line{a: geom.Point{X: int64(c), Y: int64(r)}, b: geom.Point{X: int64(c), Y: int64(r + 1)}}
				if left {
					l.a, l.b = l.b, l.a
				}
				lines = append(lines, l)
				starts = append(starts, startIndex{p: l.a, idx: len(lines) - 1})
			}
			if top != cur {
				l := line{a: geom.Point{X: int64(c + 1), Y: int64(r)}, b: geom.Point{X: int64(c), Y: int64(r)}}
				if top {
					l.a, l.b = l.b, l.a
				}
				lines = append(lines, l)
				starts = append(starts, startIndex{p: l.a, idx: len(lines) - 1})
			}
		}
	}
	sort.SliceStable(starts, func(i, j int) bool { return starts[i].p.Less(starts[j].p) })

	// Chain the edges into closed loops.
	processed := make([]bool, len(lines))
	var loops []geom.Polygon
	for cand := range lines {
		if processed[cand] {
			continue
		}
		processed[cand] = true
		loop := geom.Polygon{lines[cand].b}
		cur := cand
	chain:
		for {
			end := lines[cur].b
			lo := sort.Search(len(starts), func(i int) bool { return !starts[i].p.Less(end) })
			next := -1
			for i := lo; i < len(starts) && starts[i].p == end; i++ {
				idx := starts[i].idx
				if idx == cand {
					break chain
				}
				if processed[idx] {
					continue
				}
				if next == -1 {
					next = idx
					continue
				}
				// Two edges leave this corner: take the convex turn.
				v1 := lines[cur].b.Sub(lines[cur].a)
				v2 := lines[idx].b.Sub(lines[idx].a)
				if v1.Cross(v2) > 0 {
					next = idx
					break
				}
			}
			if next == -1 {
				// Open chain; only possible when a set cell touches the border.
				break
			}
			processed[next] = true
			cur = next
			loop = append(loop, lines[cur].b)
		}
		loops = append(loops, loop)
	}

	// Map into world space, keep corners, apply the offset.
	out := make(geom.Polygons, 0, len(loops))
	for _, loop := range loops {
		n := len(loop)
		world := make(geom.Polygon, n)
		for i, p := range loop {
			world[i] = geom.Point{X: p.X*g.Pixel + g.Origin.X, Y: p.Y*g.Pixel + g.Origin.Y}
		}
		pts := make(geom.Polygon, 0, n)
		for j := 0; j < n; j++ {
			v := world[(j+1)%n].Sub(world[(j+n-1)%n])
			if v.X == 0 || v.Y == 0 {
				continue
			}
			p := world[j]
			if v.X < 0 {
				p.Y -= offset
			} else {
				p.Y += offset
			}
			if v.Y > 0 {
				p.X -= offset
			} else {
				p.X += offset
			}
			pts = append(pts, p)
		}
		if len(pts) >= 3 {
			out = append(out, pts.Reversed())
		}
	}
	return out
}
