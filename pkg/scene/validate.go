package scene

import (
	"fmt"
	"sort"
)

// Severity indicates whether a finding blocks slicing.
type Severity int

const (
	SeverityError   Severity = iota // blocks slicing
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID // zero for scene-level findings
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs the structural and dimensional checks on s. Findings come
// back in a stable order. Validate never mutates the scene.
func Validate(s *Scene) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(s)...)
	errs = append(errs, validateReferences(s)...)
	errs = append(errs, validateArity(s)...)
	errs = append(errs, validateDimensions(s)...)
	errs = append(errs, validateRoots(s)...)
	return errs
}

// sortedIDs returns the node ids of s in a stable order.
func sortedIDs(s *Scene) []NodeID {
	ids := make([]NodeID, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// validateDAG checks for cycles using DFS with 3-colour marking.
func validateDAG(s *Scene) []ValidationError {
	const (
		white = iota
		gray
		black
	)
	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "node is part of a cycle",
				Severity: SeverityError,
			})
			return true
		}
		color[id] = gray
		if n, ok := s.Nodes[id]; ok {
			for _, c := range n.Children {
				if visit(c) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, id := range sortedIDs(s) {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

func validateReferences(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, id := range sortedIDs(s) {
		for _, c := range s.Nodes[id].Children {
			if _, ok := s.Nodes[c]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("child reference %s does not exist", c.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateArity checks the child count each kind expects.
func validateArity(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, id := range sortedIDs(s) {
		n := s.Nodes[id]
		got := len(n.Children)
		var want string
		switch {
		case n.Kind.IsPrimitive() && got != 0:
			want = "no children"
		case (n.Kind == NodeTranslate || n.Kind == NodeRotateZ) && got != 1:
			want = "exactly one child"
		case n.Kind == NodeDifference && got < 2:
			want = "at least two children"
		case n.Kind.IsBoolean() && got < 1:
			want = "at least one child"
		}
		if want != "" {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("%s expects %s, has %d", n.Kind, want, got),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateDimensions checks that primitives have positive extents and that
// payloads match their kind.
func validateDimensions(s *Scene) []ValidationError {
	var errs []ValidationError
	bad := func(id NodeID, format string, args ...any) {
		errs = append(errs, ValidationError{NodeID: id, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
	}
	for _, id := range sortedIDs(s) {
		n := s.Nodes[id]
		switch n.Kind {
		case NodeBox:
			d, ok := n.Data.(BoxData)
			if !ok {
				bad(id, "box has %T payload", n.Data)
				continue
			}
			if d.X <= 0 || d.Y <= 0 || d.Z <= 0 {
				bad(id, "box dimensions %.3f x %.3f x %.3f must be positive", d.X, d.Y, d.Z)
			}
		case NodeCylinder:
			d, ok := n.Data.(CylinderData)
			if !ok {
				bad(id, "cylinder has %T payload", n.Data)
				continue
			}
			if d.Height <= 0 || d.Radius <= 0 {
				bad(id, "cylinder height %.3f and radius %.3f must be positive", d.Height, d.Radius)
			}
		case NodeTranslate:
			if _, ok := n.Data.(TranslateData); !ok {
				bad(id, "translate has %T payload", n.Data)
			}
		case NodeRotateZ:
			if _, ok := n.Data.(RotateData); !ok {
				bad(id, "rotate-z has %T payload", n.Data)
			}
		}
	}
	return errs
}

// validateRoots checks object names and that every root exists.
func validateRoots(s *Scene) []ValidationError {
	var errs []ValidationError
	if len(s.Objects) == 0 {
		errs = append(errs, ValidationError{Message: "scene has no objects", Severity: SeverityWarning})
	}
	seen := make(map[string]bool)
	for _, o := range s.Objects {
		if o.Name == "" {
			errs = append(errs, ValidationError{NodeID: o.Root, Message: "object has no name", Severity: SeverityError})
		} else if seen[o.Name] {
			errs = append(errs, ValidationError{
				NodeID:   o.Root,
				Message:  fmt.Sprintf("duplicate object name %q", o.Name),
				Severity: SeverityError,
			})
		}
		seen[o.Name] = true
	}
	roots := append([]NodeID{}, s.Enforcers...)
	roots = append(roots, s.Blockers...)
	for _, o := range s.Objects {
		roots = append(roots, o.Root)
	}
	for _, id := range roots {
		if _, ok := s.Nodes[id]; !ok {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "root does not exist",
				Severity: SeverityError,
			})
		}
	}
	return errs
}
