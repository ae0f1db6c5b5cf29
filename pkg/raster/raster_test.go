package raster

import (
	"testing"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitGrid returns a grid with 1mm pixels and its origin at (-1mm, -1mm).
func unitGrid(w, h int) *Grid {
	return New(geom.Pt(-1, -1), geom.Scale(1), w, h)
}

// --- Rasterize ---

func TestRasterizeAlignedSquare(t *testing.T) {
	g := unitGrid(6, 6)
	g.Rasterize(geom.Polygons{geom.Rectangle(0, 0, 3, 2)})

	// Cells 1..3 in x, 1..2 in y; edges on cell borders do not spill.
	assert.Equal(t, 6, g.Count())
	assert.True(t, g.At(1, 1))
	assert.True(t, g.At(3, 2))
	assert.False(t, g.At(4, 1))
	assert.False(t, g.At(1, 3))
}

func TestRasterizePartialCoverage(t *testing.T) {
	g := unitGrid(6, 6)
	// Covers a bit more than half of cell column 4.
	g.Rasterize(geom.Polygons{geom.Rectangle(0, 0, 3.6, 1)})
	assert.True(t, g.At(4, 1))
	assert.Equal(t, 4, g.Count())
}

func TestRasterizeHoleNonZero(t *testing.T) {
	g := unitGrid(7, 7)
	outer := geom.Rectangle(0, 0, 5, 5)
	hole := geom.Rectangle(2, 2, 3, 3).Reversed()
	g.Rasterize(geom.Polygons{outer, hole})
	assert.Equal(t, 24, g.Count())
	assert.False(t, g.At(3, 3))
}

// --- ShrinkMask ---

func TestShrinkMask(t *testing.T) {
	g := unitGrid(7, 7)
	g.Rasterize(geom.Polygons{geom.Rectangle(0, 0, 5, 5)})
	m := g.ShrinkMask()
	// A 5x5 block shrinks to its 3x3 core.
	assert.Equal(t, 9, m.Count())
	assert.True(t, m.At(3, 3))
	assert.False(t, m.At(1, 1))
}

// --- SeedFillBlocks ---

func TestSeedFillFillsBlock(t *testing.T) {
	g := unitGrid(10, 10)
	g.Set(2, 2)
	mask := unitGrid(10, 10)
	g.SeedFillBlocks(mask, 2, 2, 4)
	// Block (0,0) covers cells 1..4 in both axes.
	assert.Equal(t, 16, g.Count())
	assert.True(t, g.At(1, 1))
	assert.True(t, g.At(4, 4))
	assert.False(t, g.At(5, 5))
}

func TestSeedFillStopsAtMask(t *testing.T) {
	g := unitGrid(10, 10)
	g.Set(1, 1)
	mask := unitGrid(10, 10)
	for r := 1; r <= 4; r++ {
		mask.Set(3, r)
	}
	g.SeedFillBlocks(mask, 2, 2, 4)
	// Only columns 1 and 2 of the block are reachable.
	assert.Equal(t, 8, g.Count())
	assert.False(t, g.At(4, 1))
}

// --- Contours ---

func TestContoursSquare(t *testing.T) {
	g := unitGrid(6, 6)
	g.Rasterize(geom.Polygons{geom.Rectangle(0, 0, 3, 2)})
	got := g.Contours(0, false)
	require.Len(t, got, 1)
	assert.Len(t, got[0], 4)
	assert.True(t, got[0].IsCounterClockwise())
	assert.InDelta(t, 6.0, got.Area()*geom.ScalingFactor*geom.ScalingFactor, 1e-9)
	bb := got.BoundingBox()
	assert.Equal(t, geom.Pt(0, 0), bb.Min)
	assert.Equal(t, geom.Pt(3, 2), bb.Max)
}

func TestContoursOffset(t *testing.T) {
	g := unitGrid(6, 6)
	g.Rasterize(geom.Polygons{geom.Rectangle(0, 0, 3, 2)})

	grown := g.Contours(geom.Scale(0.1), false).BoundingBox()
	assert.Equal(t, geom.Pt(-0.1, -0.1), grown.Min)
	assert.Equal(t, geom.Pt(3.1, 2.1), grown.Max)

	shrunk := g.Contours(-geom.Scale(0.1), false).BoundingBox()
	assert.Equal(t, geom.Pt(0.1, 0.1), shrunk.Min)
	assert.Equal(t, geom.Pt(2.9, 1.9), shrunk.Max)
}

func TestContoursHole(t *testing.T) {
	g := unitGrid(8, 8)
	g.Rasterize(geom.Polygons{geom.Rectangle(0, 0, 5, 5), geom.Rectangle(2, 2, 3, 3).Reversed()})

	withHole := g.Contours(0, false)
	require.Len(t, withHole, 2)
	ccw := 0
	for _, p := range withHole {
		if p.IsCounterClockwise() {
			ccw++
		}
	}
	assert.Equal(t, 1, ccw)

	filled := g.Contours(0, true)
	require.Len(t, filled, 1)
	assert.InDelta(t, 25.0, filled.Area()*geom.ScalingFactor*geom.ScalingFactor, 1e-9)
}

func TestContoursLShape(t *testing.T) {
	g := unitGrid(6, 6)
	g.Rasterize(geom.Polygons{geom.Rectangle(0, 0, 3, 1), geom.Rectangle(0, 0, 1, 3)})
	got := g.Contours(0, false)
	require.Len(t, got, 1)
	assert.Len(t, got[0], 6)
	assert.InDelta(t, 5.0, got.Area()*geom.ScalingFactor*geom.ScalingFactor, 1e-9)
}

func TestContoursDiagonalTouch(t *testing.T) {
	// Two cells meeting only at a corner; the tracer turns into the second
	// cell at the shared corner, so both are covered with positive area.
	g := unitGrid(5, 5)
	g.Set(1, 1)
	g.Set(2, 2)
	got := g.Contours(0, false)
	require.NotEmpty(t, got)
	assert.InDelta(t, 2.0, got.Area()*geom.ScalingFactor*geom.ScalingFactor, 1e-9)
}

func TestContoursDeterministic(t *testing.T) {
	g := unitGrid(8, 8)
	g.Rasterize(geom.Polygons{geom.Rectangle(0, 0, 4, 1), geom.Rectangle(2, 0, 3, 5)})
	assert.Equal(t, g.Contours(-3, true), g.Contours(-3, true))
}
