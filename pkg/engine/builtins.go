package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chazu/buttress/pkg/config"
	"github.com/chazu/buttress/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Values passed between builtins
// ---------------------------------------------------------------------------

// sexpSolid is a reference to a scene node, returned by every solid builtin.
type sexpSolid struct {
	id   scene.NodeID
	kind scene.NodeKind
	name string // object name, if any
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	if s.name != "" {
		return fmt.Sprintf("(object %q)", s.name)
	}
	return fmt.Sprintf("(%s %s)", s.kind, s.id.Short())
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs is a call's argument list split into keyword and positional parts.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates keyword pairs from positional arguments. A trailing
// keyword without a value maps to null.
func parseArgs(args []zygo.Sexp) kwArgs {
	pa := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			pa.positional = append(pa.positional, args[i])
			continue
		}
		var v zygo.Sexp = zygo.SexpNull
		if i+1 < len(args) {
			v = args[i+1]
			i++
		}
		if _, dup := pa.kw[name]; !dup {
			pa.order = append(pa.order, name)
		}
		pa.kw[name] = v
	}
	return pa
}

// float returns keyword name as a number, or def when absent.
func (pa kwArgs) float(name string, def float64) (float64, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// toFloat64 extracts a float64 from a SexpInt or SexpFloat.
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toSolid extracts the node id from a solid reference.
func toSolid(s zygo.Sexp) (scene.NodeID, error) {
	if ref, ok := s.(*sexpSolid); ok {
		return ref.id, nil
	}
	return scene.ZeroID, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// toSolids extracts every positional argument as a solid.
func toSolids(op string, args []zygo.Sexp) ([]scene.NodeID, error) {
	ids := make([]scene.NodeID, 0, len(args))
	for i, a := range args {
		id, err := toSolid(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", op, i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// toJSONValue converts a scalar Sexp to a value encoding/json understands.
// Keywords turn into their bare names, so :snug reads as "snug".
func toJSONValue(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return v.Val, nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpStr:
		if name, ok := isKW(v); ok {
			return name, nil
		}
		return v.S, nil
	}
	return nil, fmt.Errorf("expected number, boolean or string, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Scene builder
// ---------------------------------------------------------------------------

// builder collects the nodes one evaluation creates. Node ids derive from
// a per-evaluation counter, so the same script always yields the same ids.
type builder struct {
	sc   *scene.Scene
	next int
}

func newBuilder(sc *scene.Scene) *builder {
	return &builder{sc: sc}
}

func (b *builder) add(kind scene.NodeKind, data scene.NodeData, children ...scene.NodeID) *sexpSolid {
	b.next++
	id := scene.NewNodeID(fmt.Sprintf("%s/%d", kind, b.next))
	b.sc.AddNode(&scene.Node{ID: id, Kind: kind, Data: data, Children: children})
	return &sexpSolid{id: id, kind: kind}
}

// overlaySupport applies keyword settings to the scene's support config.
// Keyword names are the kebab-case form of the config's JSON keys.
func (b *builder) overlaySupport(op string, pa kwArgs) error {
	doc := make(map[string]any, len(pa.order))
	for _, name := range pa.order {
		v, err := toJSONValue(pa.kw[name])
		if err != nil {
			return fmt.Errorf("%s: %s: %w", op, name, err)
		}
		doc[strings.ReplaceAll(name, "-", "_")] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	cfg, err := config.Overlay(b.sc.Support, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	b.sc.Support = cfg
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene builtins into env. Source must be
// preprocessed with preprocessSource so keywords and kebab-case names
// reach the builtins in the form they expect.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	fn := func(name string, f func(args []zygo.Sexp) (zygo.Sexp, error)) {
		env.AddFunction(name, func(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			return f(args)
		})
	}

	// (box :x 10 :y 2 :z 0.5) or (box 10 2 0.5)
	fn("box", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var d scene.BoxData
		if len(pa.positional) == 3 {
			dims := []*float64{&d.X, &d.Y, &d.Z}
			for i, a := range pa.positional {
				f, err := toFloat64(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("box: argument %d: %w", i+1, err)
				}
				*dims[i] = f
			}
			return b.add(scene.NodeBox, d), nil
		}
		var err error
		if d.X, err = pa.float("x", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		if d.Y, err = pa.float("y", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		if d.Z, err = pa.float("z", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return b.add(scene.NodeBox, d), nil
	})

	// (cylinder :h 5 :r 1.5)
	fn("cylinder", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		h, err := pa.float("h", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		r, err := pa.float("r", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return b.add(scene.NodeCylinder, scene.CylinderData{Height: h, Radius: r}), nil
	})

	// (translate solid :x 1 :y 2 :z 3)
	fn("translate", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("translate requires one solid, got %d arguments", len(pa.positional))
		}
		child, err := toSolid(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		var d scene.TranslateData
		for name, dst := range map[string]*float64{"x": &d.X, "y": &d.Y, "z": &d.Z} {
			if *dst, err = pa.float(name, 0); err != nil {
				return zygo.SexpNull, fmt.Errorf("translate: %w", err)
			}
		}
		return b.add(scene.NodeTranslate, d, child), nil
	})

	// (rotate-z solid 45)
	fn("rotate_z", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("rotate-z requires a solid and an angle, got %d arguments", len(args))
		}
		child, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate-z: %w", err)
		}
		deg, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate-z: angle: %w", err)
		}
		return b.add(scene.NodeRotateZ, scene.RotateData{Degrees: deg}, child), nil
	})

	// (union a b ...), (difference a b ...), (intersection a b ...)
	for name, kind := range map[string]scene.NodeKind{
		"union":        scene.NodeUnion,
		"difference":   scene.NodeDifference,
		"intersection": scene.NodeIntersection,
	} {
		fn(name, func(args []zygo.Sexp) (zygo.Sexp, error) {
			ids, err := toSolids(name, args)
			if err != nil {
				return zygo.SexpNull, err
			}
			if len(ids) == 0 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least one solid", name)
			}
			return b.add(kind, nil, ids...), nil
		})
	}

	// (object "name" solid)
	fn("object", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("object requires a name and a solid")
		}
		name, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("object: name: %w", err)
		}
		root, err := toSolid(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("object %q: %w", name, err)
		}
		b.sc.AddObject(name, root)
		return &sexpSolid{id: root, kind: b.sc.Get(root).Kind, name: name}, nil
	})

	// (enforcer solid) and (blocker solid)
	for name, register := range map[string]func(scene.NodeID){
		"enforcer": b.sc.AddEnforcer,
		"blocker":  b.sc.AddBlocker,
	} {
		fn(name, func(args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires one solid", name)
			}
			root, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			register(root)
			return args[0], nil
		})
	}

	// (support :style :snug :threshold-angle 45 :buildplate-only true)
	fn("support", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("support takes keyword arguments only")
		}
		return zygo.SexpNull, b.overlaySupport("support", pa)
	})

	// (slicing :layer-height 0.2 :first-layer-height 0.3)
	fn("slicing", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		for _, name := range pa.order {
			if name != "layer-height" && name != "first-layer-height" {
				return zygo.SexpNull, fmt.Errorf("slicing: unknown setting %q", name)
			}
		}
		return zygo.SexpNull, b.overlaySupport("slicing", pa)
	})
}
