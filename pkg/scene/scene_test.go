package scene

import (
	"strings"
	"testing"
)

func addBox(s *Scene, path string, x, y, z float64) NodeID {
	id := NewNodeID(path)
	s.AddNode(&Node{ID: id, Kind: NodeBox, Data: BoxData{X: x, Y: y, Z: z}})
	return id
}

func addOp(s *Scene, path string, kind NodeKind, data NodeData, children ...NodeID) NodeID {
	id := NewNodeID(path)
	s.AddNode(&Node{ID: id, Kind: kind, Data: data, Children: children})
	return id
}

// validScene is a plate resting on a column, with an enforcer box.
func validScene() *Scene {
	s := New()
	col := addBox(s, "box/1", 2, 2, 5)
	plate := addOp(s, "translate/2", NodeTranslate, TranslateData{Z: 5}, addBox(s, "box/3", 10, 2, 0.5))
	s.AddObject("tab", addOp(s, "union/4", NodeUnion, nil, col, plate))
	s.AddEnforcer(addBox(s, "box/5", 10, 2, 6))
	return s
}

func findings(errs []ValidationError) string {
	var b strings.Builder
	for _, e := range errs {
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Scene construction
// ---------------------------------------------------------------------------

func TestNewScene(t *testing.T) {
	s := New()
	if s.Nodes == nil {
		t.Fatal("Nodes map should be initialized")
	}
	if s.NodeCount() != 0 {
		t.Errorf("empty scene should have 0 nodes, got %d", s.NodeCount())
	}
	if !s.Support.Enabled || s.Support.LayerHeight != 0.2 {
		t.Errorf("scene should start from the default support config, got %+v", s.Support)
	}
}

func TestNodeIDsAreContentAddressed(t *testing.T) {
	if NewNodeID("box/1") != NewNodeID("box/1") {
		t.Fatal("same path produced different ids")
	}
	if NewNodeID("box/1") == NewNodeID("box/2") {
		t.Fatal("different paths produced the same id")
	}
	if got := NewNodeID("box/1").Short(); len(got) != 8 {
		t.Errorf("Short() = %q, want 8 characters", got)
	}
	if !ZeroID.IsZero() || NewNodeID("x").IsZero() {
		t.Error("IsZero misreports")
	}
}

func TestLookupAndChildren(t *testing.T) {
	s := validScene()
	obj := s.Lookup("tab")
	if obj == nil {
		t.Fatal("Lookup('tab') returned nil")
	}
	root := s.Get(obj.Root)
	if root == nil || root.Kind != NodeUnion {
		t.Fatalf("object root = %+v, want union node", root)
	}
	if n := len(s.Children(root)); n != 2 {
		t.Errorf("union has %d children, want 2", n)
	}
	if s.Lookup("nope") != nil {
		t.Error("Lookup should return nil for a missing name")
	}
	if s.MustLookup("tab").Root != obj.Root {
		t.Error("MustLookup returned the wrong object")
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New().MustLookup("missing")
}

func TestNodeKindString(t *testing.T) {
	for kind, want := range map[NodeKind]string{
		NodeBox:          "box",
		NodeRotateZ:      "rotate-z",
		NodeIntersection: "intersection",
		NodeKind(99):     "unknown",
	} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(kind), got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestValidateValidScene(t *testing.T) {
	if errs := Validate(validScene()); len(errs) != 0 {
		t.Fatalf("unexpected findings:\n%s", findings(errs))
	}
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Scene)
		want   string
	}{
		{
			name: "negative box",
			mutate: func(s *Scene) {
				s.AddObject("bad", addBox(s, "box/bad", 1, -1, 1))
			},
			want: "must be positive",
		},
		{
			name: "cylinder without radius",
			mutate: func(s *Scene) {
				id := NewNodeID("cyl/bad")
				s.AddNode(&Node{ID: id, Kind: NodeCylinder, Data: CylinderData{Height: 3}})
				s.AddObject("cyl", id)
			},
			want: "cylinder height",
		},
		{
			name: "difference with one child",
			mutate: func(s *Scene) {
				s.AddObject("diff", addOp(s, "diff/1", NodeDifference, nil, addBox(s, "box/d", 1, 1, 1)))
			},
			want: "at least two children",
		},
		{
			name: "translate with two children",
			mutate: func(s *Scene) {
				a, b := addBox(s, "box/a", 1, 1, 1), addBox(s, "box/b", 1, 1, 1)
				s.AddObject("tr", addOp(s, "tr/1", NodeTranslate, TranslateData{}, a, b))
			},
			want: "exactly one child",
		},
		{
			name: "dangling child",
			mutate: func(s *Scene) {
				s.AddObject("dangle", addOp(s, "union/d", NodeUnion, nil, NewNodeID("missing")))
			},
			want: "does not exist",
		},
		{
			name: "cycle",
			mutate: func(s *Scene) {
				a := NewNodeID("cycle/a")
				b := NewNodeID("cycle/b")
				s.AddNode(&Node{ID: a, Kind: NodeUnion, Children: []NodeID{b}})
				s.AddNode(&Node{ID: b, Kind: NodeUnion, Children: []NodeID{a}})
			},
			want: "cycle",
		},
		{
			name: "duplicate object name",
			mutate: func(s *Scene) {
				s.AddObject("tab", addBox(s, "box/dup", 1, 1, 1))
			},
			want: "duplicate object name",
		},
		{
			name: "missing blocker root",
			mutate: func(s *Scene) {
				s.AddBlocker(NewNodeID("nowhere"))
			},
			want: "root does not exist",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScene()
			tt.mutate(s)
			errs := Validate(s)
			if !HasErrors(errs) {
				t.Fatalf("expected an error, got:\n%s", findings(errs))
			}
			if !strings.Contains(findings(errs), tt.want) {
				t.Errorf("findings do not mention %q:\n%s", tt.want, findings(errs))
			}
		})
	}
}

func TestValidateEmptySceneWarns(t *testing.T) {
	errs := Validate(New())
	if HasErrors(errs) {
		t.Fatalf("empty scene should not error:\n%s", findings(errs))
	}
	if len(errs) != 1 || errs[0].Severity != SeverityWarning {
		t.Fatalf("want one warning, got:\n%s", findings(errs))
	}
}
