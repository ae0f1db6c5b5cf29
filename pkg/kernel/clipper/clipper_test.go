package clipper

import (
	"math"
	"testing"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/kernel"
)

func mm2(a float64) float64 {
	return a * geom.ScalingFactor * geom.ScalingFactor
}

func TestUnionOverlapping(t *testing.T) {
	k := New()
	got := k.Union(geom.Polygons{geom.Rectangle(0, 0, 10, 10), geom.Rectangle(5, 0, 15, 10)})
	if len(got) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(got))
	}
	if a := mm2(got.Area()); math.Abs(a-150) > 1e-6 {
		t.Fatalf("union area = %f, want 150", a)
	}
	if !got[0].IsCounterClockwise() {
		t.Fatal("union contour should be counter-clockwise")
	}
}

func TestDifferenceMakesHole(t *testing.T) {
	k := New()
	outer := geom.Polygons{geom.Rectangle(0, 0, 10, 10)}
	inner := geom.Polygons{geom.Rectangle(3, 3, 7, 7)}

	ex := k.DifferenceEx(outer, inner)
	if len(ex) != 1 {
		t.Fatalf("expected 1 expolygon, got %d", len(ex))
	}
	if len(ex[0].Holes) != 1 {
		t.Fatalf("expected 1 hole, got %d", len(ex[0].Holes))
	}
	if a := mm2(ex.Area()); math.Abs(a-84) > 1e-6 {
		t.Fatalf("difference area = %f, want 84", a)
	}

	flat := k.Difference(outer, inner)
	if a := mm2(flat.Area()); math.Abs(a-84) > 1e-6 {
		t.Fatalf("flat difference area = %f, want 84", a)
	}
}

func TestIntersectionDisjoint(t *testing.T) {
	k := New()
	got := k.Intersection(geom.Polygons{geom.Rectangle(0, 0, 1, 1)}, geom.Polygons{geom.Rectangle(2, 2, 3, 3)})
	if len(got) != 0 {
		t.Fatalf("expected empty intersection, got %d polygons", len(got))
	}
}

func TestEmptyInputs(t *testing.T) {
	k := New()
	if got := k.Union(nil); got != nil {
		t.Fatalf("Union(nil) = %v", got)
	}
	if got := k.Difference(nil, geom.Polygons{geom.Rectangle(0, 0, 1, 1)}); got != nil {
		t.Fatalf("Difference(nil, x) = %v", got)
	}
	if got := k.Offset(nil, 100, kernel.JoinSquare); got != nil {
		t.Fatalf("Offset(nil) = %v", got)
	}
}

func TestOffsetSquare(t *testing.T) {
	k := New()
	sq := geom.Polygons{geom.Rectangle(0, 0, 10, 10)}

	grown := k.Offset(sq, geom.ScaleF(1), kernel.JoinMiter)
	if a := mm2(grown.Area()); math.Abs(a-144) > 1e-3 {
		t.Fatalf("grown area = %f, want 144", a)
	}
	shrunk := k.Offset(sq, -geom.ScaleF(1), kernel.JoinSquare)
	if a := mm2(shrunk.Area()); math.Abs(a-64) > 1e-3 {
		t.Fatalf("shrunk area = %f, want 64", a)
	}
	gone := k.Offset(sq, -geom.ScaleF(6), kernel.JoinSquare)
	if len(gone) != 0 {
		t.Fatalf("expected square to vanish, got %d polygons", len(gone))
	}
}
