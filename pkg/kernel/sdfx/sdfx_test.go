package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/kernel"
)

const mm2 = geom.ScalingFactor * geom.ScalingFactor

func sliceArea(t *testing.T, m *Modeler, s kernel.Solid, z, pixel float64) (float64, geom.Polygons) {
	t.Helper()
	polys, err := m.Slice(s, z, pixel)
	if err != nil {
		t.Fatalf("Slice(z=%v): %v", z, err)
	}
	return polys.Area() * mm2, polys
}

func TestBoxSliceIsExact(t *testing.T) {
	m := New()
	box := m.Box(10, 5, 3)

	area, polys := sliceArea(t, m, box, 1.5, 0.1)
	if math.Abs(area-50) > 1e-6 {
		t.Fatalf("box slice area = %v, want 50", area)
	}
	if len(polys) != 1 || !polys[0].IsCounterClockwise() {
		t.Fatalf("want one counter-clockwise contour, got %d", len(polys))
	}
	bb := polys.BoundingBox()
	if bb.Min != geom.Pt(0, 0) || bb.Max != geom.Pt(10, 5) {
		t.Errorf("bbox = %v..%v, want (0,0)..(10,5)", bb.Min, bb.Max)
	}
}

func TestSliceOutsideSolid(t *testing.T) {
	m := New()
	box := m.Box(1, 1, 1)
	for _, z := range []float64{-0.5, 1.5} {
		polys, err := m.Slice(box, z, 0.1)
		if err != nil {
			t.Fatalf("Slice(z=%v): %v", z, err)
		}
		if len(polys) != 0 {
			t.Errorf("Slice(z=%v) returned %d polygons, want none", z, len(polys))
		}
	}
}

func TestCylinderSliceApproximatesDisc(t *testing.T) {
	m := New()
	cyl := m.Cylinder(4, 5)

	min, max := cyl.BoundingBox()
	if min[2] != 0 || max[2] != 4 {
		t.Fatalf("cylinder z range = %v..%v, want 0..4", min[2], max[2])
	}
	area, _ := sliceArea(t, m, cyl, 2, 0.05)
	want := math.Pi * 25
	if math.Abs(area-want)/want > 0.02 {
		t.Errorf("disc area = %v, want about %v", area, want)
	}
}

func TestDifferenceLeavesHole(t *testing.T) {
	m := New()
	plate := m.Box(10, 10, 2)
	hole := m.Translate(m.Box(4, 4, 4), 3, 3, -1)

	area, polys := sliceArea(t, m, m.Difference(plate, hole), 1, 0.1)
	if math.Abs(area-84) > 1e-6 {
		t.Fatalf("plate with hole area = %v, want 84", area)
	}
	if len(polys) != 2 {
		t.Fatalf("want a contour and a hole, got %d polygons", len(polys))
	}
}

func TestUnionAndIntersection(t *testing.T) {
	m := New()
	a := m.Box(4, 4, 1)
	b := m.Translate(m.Box(4, 4, 1), 2, 0, 0)

	if area, _ := sliceArea(t, m, m.Union(a, b), 0.5, 0.1); math.Abs(area-24) > 1e-6 {
		t.Errorf("union area = %v, want 24", area)
	}
	if area, _ := sliceArea(t, m, m.Intersection(a, b), 0.5, 0.1); math.Abs(area-8) > 1e-6 {
		t.Errorf("intersection area = %v, want 8", area)
	}
}

func TestRotateZ(t *testing.T) {
	m := New()
	bar := m.RotateZ(m.Box(10, 2, 1), 90)

	_, polys := sliceArea(t, m, bar, 0.5, 0.1)
	size := polys.BoundingBox().Size()
	w, h := geom.Unscale(size.X), geom.Unscale(size.Y)
	if math.Abs(w-2) > 0.11 || math.Abs(h-10) > 0.11 {
		t.Errorf("rotated bar is %.2f x %.2f, want 2 x 10", w, h)
	}
}

func TestSliceRejectsBadPixel(t *testing.T) {
	m := New()
	if _, err := m.Slice(m.Box(1, 1, 1), 0.5, 0); !errors.Is(err, ErrBadPixel) {
		t.Fatalf("Slice with zero pixel: err = %v, want ErrBadPixel", err)
	}
}
