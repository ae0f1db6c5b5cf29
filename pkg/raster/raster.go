// Package raster is a coarse occupancy grid over the XY plane. It turns
// polygon sets into cells, propagates cells inside fixed-size blocks, and
// traces the cell boundaries back into simplified polygons.
//
// Cell (c, r) covers [Origin.X + c*Pixel, Origin.X + (c+1)*Pixel) in x and
// the same span of rows in y. Callers keep the outermost ring of cells
// empty so every traced boundary closes.
package raster

import (
	"math"
	"sort"

	"github.com/chazu/buttress/pkg/geom"
)

// subsamples is the per-axis supersampling factor used by Rasterize.
const subsamples = 4

// Grid is a row-major occupancy grid.
type Grid struct {
	Width, Height int
	Origin        geom.Point
	Pixel         int64
	Cells         []uint8
}

// New returns an empty grid.
func New(origin geom.Point, pixel int64, width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Origin: origin,
		Pixel:  pixel,
		Cells:  make([]uint8, width*height),
	}
}

// Index returns the linear address of cell (c, r).
func (g *Grid) Index(c, r int) int {
	return r*g.Width + c
}

// At reports whether cell (c, r) is set. Out-of-range cells are empty.
func (g *Grid) At(c, r int) bool {
	if c < 0 || r < 0 || c >= g.Width || r >= g.Height {
		return false
	}
	return g.Cells[g.Index(c, r)] != 0
}

// Set marks cell (c, r).
func (g *Grid) Set(c, r int) {
	g.Cells[g.Index(c, r)] = 1
}

// Count returns the number of set cells.
func (g *Grid) Count() int {
	n := 0
	for _, v := range g.Cells {
		if v != 0 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	out := *g
	out.Cells = append([]uint8(nil), g.Cells...)
	return &out
}

type edge struct {
	ax, ay, bx, by float64
	dir            int
}

type crossing struct {
	x   float64
	dir int
}

// Rasterize marks every cell covered by polys under the non-zero rule.
// A cell counts as covered when any of its 4x4 subsample centres is inside,
// so edges lying exactly on cell borders do not spill into neighbours.
func (g *Grid) Rasterize(polys geom.Polygons) {
	var edges []edge
	for _, p := range polys {
		n := len(p)
		if n < 3 {
			continue
		}
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			a, b := p[j], p[i]
			if a.Y == b.Y {
				continue
			}
			e := edge{ax: float64(a.X), ay: float64(a.Y), bx: float64(b.X), by: float64(b.Y), dir: 1}
			if b.Y < a.Y {
				e.dir = -1
			}
			edges = append(edges, e)
		}
	}
	if len(edges) == 0 {
		return
	}

	px := float64(g.Pixel)
	ox, oy := float64(g.Origin.X), float64(g.Origin.Y)
	maxSub := g.Width * subsamples
	var xs []crossing
	for r := 0; r < g.Height; r++ {
		for s := 0; s < subsamples; s++ {
			y := oy + (float64(r)+(float64(s)+0.5)/subsamples)*px
			xs = xs[:0]
			for _, e := range edges {
				if (e.ay <= y) == (e.by <= y) {
					continue
				}
				x := e.ax + (y-e.ay)*(e.bx-e.ax)/(e.by-e.ay)
				xs = append(xs, crossing{x: x, dir: e.dir})
			}
			if len(xs) < 2 {
				continue
			}
			sort.Slice(xs, func(i, j int) bool { return xs[i].x < xs[j].x })
			winding := 0
			var start float64
			for _, cr := range xs {
				prev := winding
				winding += cr.dir
				switch {
				case prev == 0 && winding != 0:
					start = cr.x
				case prev != 0 && winding == 0:
					j0 := int(math.Ceil((start-ox)/px*subsamples - 0.5))
					j1 := int(math.Ceil((cr.x-ox)/px*subsamples - 0.5))
					j0 = max(j0, 0)
					j1 = min(j1, maxSub)
					if j0 >= j1 {
						continue
					}
					for c := j0 / subsamples; c <= (j1-1)/subsamples; c++ {
						g.Set(c, r)
					}
				}
			}
		}
	}
}

// ShrinkMask returns a copy where a cell stays set only if it and all eight
// neighbours are set. Shrinking the trimming mask widens the region the
// seed fill may reach.
func (g *Grid) ShrinkMask() *Grid {
	out := New(g.Origin, g.Pixel, g.Width, g.Height)
	for r := 1; r+1 < g.Height; r++ {
		for c := 1; c+1 < g.Width; c++ {
			ok := true
			for dr := -1; dr <= 1 && ok; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if g.Cells[g.Index(c+dc, r+dr)] == 0 {
						ok = false
						break
					}
				}
			}
			if ok {
				out.Set(c, r)
			}
		}
	}
	return out
}

// SeedFillBlocks spreads set cells inside every oversampling x oversampling
// block, never entering or leaving a masked cell. Block (bc, br) starts at
// cell (bc*oversampling+1, br*oversampling+1).
func (g *Grid) SeedFillBlocks(mask *Grid, blocksX, blocksY, oversampling int) {
	size := oversampling
	stride := g.Width
	grid, m := g.Cells, mask.Cells
	for br := 0; br < blocksY; br++ {
		for bc := 0; bc < blocksX; bc++ {
			base := bc*size + 1 + (br*size+1)*stride
			step := func(r, c, offset int) {
				addr := base + r*stride + c
				addr2 := addr + offset
				if grid[addr2] != 0 && m[addr] == 0 && m[addr2] == 0 {
					grid[addr] = 1
				}
			}
			// Top to bottom.
			for r := 0; r < size; r++ {
				if r > 0 {
					for c := 0; c < size; c++ {
						step(r, c, -stride)
					}
				}
				for c := 1; c < size; c++ {
					step(r, c, -1)
				}
				for c := size - 2; c >= 0; c-- {
					step(r, c, 1)
				}
			}
			// Bottom to top.
			for r := size - 2; r >= 0; r-- {
				for c := 0; c < size; c++ {
					step(r, c, stride)
				}
				for c := 1; c < size; c++ {
					step(r, c, -1)
				}
				for c := size - 2; c >= 0; c-- {
					step(r, c, 1)
				}
			}
		}
	}
}
