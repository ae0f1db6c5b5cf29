package object

import (
	"strings"
	"testing"

	"github.com/chazu/buttress/pkg/geom"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func square(size float64) geom.ExPolygons {
	return geom.ExPolygons{{Contour: geom.Rectangle(0, 0, size, size)}}
}

// buildStack creates n 0.2mm layers of a 10mm square.
func buildStack(n int) *Object {
	o := New("stack")
	for i := 0; i < n; i++ {
		o.AddLayer(&Layer{PrintZ: 0.2 * float64(i+1), Height: 0.2, Slices: square(10)})
	}
	return o
}

func hasFinding(errs []ValidationError, sev Severity, substr string) bool {
	for _, e := range errs {
		if e.Severity == sev && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Navigation
// ---------------------------------------------------------------------------

func TestLayerNavigation(t *testing.T) {
	o := buildStack(3)
	if o.Layers[0].Lower() != nil {
		t.Fatal("first layer has a lower neighbour")
	}
	if o.Layers[1].Lower() != o.Layers[0] || o.Layers[1].Upper() != o.Layers[2] {
		t.Fatal("middle layer neighbours are wrong")
	}
	if o.Layers[2].Upper() != nil {
		t.Fatal("top layer has an upper neighbour")
	}
	if got := o.Layers[1].BottomZ(); got < 0.2-1e-9 || got > 0.2+1e-9 {
		t.Fatalf("BottomZ = %v, want 0.2", got)
	}
}

func TestLinkAfterDirectAssignment(t *testing.T) {
	o := &Object{Name: "direct", Layers: []*Layer{
		{PrintZ: 0.2, Height: 0.2}, {PrintZ: 0.4, Height: 0.2},
	}}
	o.Link()
	if o.Layers[1].ID != 1 || o.Layers[1].Lower() != o.Layers[0] {
		t.Fatal("Link did not wire layers")
	}
}

func TestPolygonsFlattensHoles(t *testing.T) {
	o := New("ring")
	o.AddLayer(&Layer{PrintZ: 0.2, Height: 0.2, Slices: geom.ExPolygons{{
		Contour: geom.Rectangle(0, 0, 10, 10),
		Holes:   geom.Polygons{geom.Rectangle(4, 4, 6, 6).Reversed()},
	}}})
	if got := len(o.Polygons(0)); got != 2 {
		t.Fatalf("Polygons len = %d, want 2", got)
	}
}

func TestAnnotations(t *testing.T) {
	o := buildStack(2)
	if o.HasEnforcers() || o.HasBlockers() {
		t.Fatal("fresh stack reports annotations")
	}
	o.Layers[1].Enforcers = geom.Polygons{geom.Rectangle(1, 1, 2, 2)}
	if !o.HasEnforcers() || len(o.Enforcers(1)) != 1 {
		t.Fatal("enforcer not reported")
	}
}

func TestHasBridging(t *testing.T) {
	l := &Layer{Regions: []Region{{ExternalPerimeterWidth: 0.45}}}
	if l.HasBridging() {
		t.Fatal("region without bridging reported as bridging")
	}
	l.Regions = append(l.Regions, Region{BridgingHeight: 0.3})
	if !l.HasBridging() {
		t.Fatal("bridging region not reported")
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestValidateCleanStack(t *testing.T) {
	r := Validate(buildStack(4))
	if len(r.Findings) != 0 {
		t.Fatalf("expected no findings, got %v", r.Findings)
	}
}

func TestValidateNonIncreasingZ(t *testing.T) {
	o := buildStack(3)
	o.Layers[2].PrintZ = 0.4
	r := Validate(o)
	if !r.HasErrors() || !hasFinding(r.Errors(), SeverityError, "does not increase") {
		t.Fatalf("expected ordering error, got %v", r.Findings)
	}
}

func TestValidateNonPositiveHeight(t *testing.T) {
	o := buildStack(2)
	o.Layers[1].Height = 0
	if !hasFinding(Validate(o).Errors(), SeverityError, "must be positive") {
		t.Fatal("expected height error")
	}
}

func TestValidateGapWarning(t *testing.T) {
	o := buildStack(2)
	o.Layers[1].Height = 0.1
	r := Validate(o)
	if r.HasErrors() {
		t.Fatalf("gap should only warn, got %v", r.Errors())
	}
	if !hasFinding(r.Warnings(), SeverityWarning, "does not meet") {
		t.Fatal("expected gap warning")
	}
}

func TestValidateDegeneratePolygons(t *testing.T) {
	o := buildStack(2)
	o.Layers[1].Slices = append(o.Layers[1].Slices, geom.ExPolygon{Contour: geom.Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}}})
	o.Layers[0].Blockers = geom.Polygons{{{X: 0, Y: 0}}}
	errs := Validate(o).Errors()
	if !hasFinding(errs, SeverityError, "has 2 points") {
		t.Fatal("expected degenerate contour error")
	}
	if !hasFinding(errs, SeverityError, "has 1 points") {
		t.Fatal("expected degenerate blocker error")
	}
}

func TestValidateClockwiseContourWarns(t *testing.T) {
	o := buildStack(1)
	o.Layers[0].Slices = geom.ExPolygons{{Contour: geom.Rectangle(0, 0, 5, 5).Reversed()}}
	if !hasFinding(Validate(o).Warnings(), SeverityWarning, "clockwise") {
		t.Fatal("expected orientation warning")
	}
}

func TestValidateEmptyFirstLayerWarns(t *testing.T) {
	o := buildStack(2)
	o.Layers[0].Slices = nil
	r := Validate(o)
	if r.HasErrors() || !hasFinding(r.Warnings(), SeverityWarning, "first layer is empty") {
		t.Fatalf("expected empty-first-layer warning, got %v", r.Findings)
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{LayerID: 3, Field: "height", Message: "bad", Severity: SeverityError}
	if got := e.Error(); got != "[error] layer 3 height: bad" {
		t.Fatalf("Error() = %q", got)
	}
	e.LayerID = -1
	if got := e.Error(); got != "[error] bad" {
		t.Fatalf("Error() = %q", got)
	}
}
