package slicer

import (
	"fmt"

	"github.com/chazu/buttress/pkg/kernel"
	"github.com/chazu/buttress/pkg/scene"
)

// builder turns scene nodes into modeler solids. Shared subtrees are built
// once.
type builder struct {
	sc    *scene.Scene
	m     kernel.Modeler
	cache map[scene.NodeID]kernel.Solid
}

func newBuilder(sc *scene.Scene, m kernel.Modeler) *builder {
	return &builder{sc: sc, m: m, cache: make(map[scene.NodeID]kernel.Solid)}
}

// solid builds the solid rooted at id.
func (b *builder) solid(id scene.NodeID) (kernel.Solid, error) {
	if s, ok := b.cache[id]; ok {
		return s, nil
	}
	n := b.sc.Get(id)
	if n == nil {
		return nil, fmt.Errorf("node %s does not exist", id.Short())
	}

	var (
		s   kernel.Solid
		err error
	)
	switch {
	case n.Kind.IsPrimitive():
		s, err = b.primitive(n)
	case n.Kind.IsBoolean():
		s, err = b.boolean(n)
	default:
		s, err = b.transform(n)
	}
	if err != nil {
		return nil, err
	}
	b.cache[id] = s
	return s, nil
}

// solids builds one solid per root.
func (b *builder) solids(roots []scene.NodeID) ([]kernel.Solid, error) {
	out := make([]kernel.Solid, 0, len(roots))
	for _, id := range roots {
		s, err := b.solid(id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (b *builder) primitive(n *scene.Node) (kernel.Solid, error) {
	switch data := n.Data.(type) {
	case scene.BoxData:
		return b.m.Box(data.X, data.Y, data.Z), nil
	case scene.CylinderData:
		return b.m.Cylinder(data.Height, data.Radius), nil
	default:
		return nil, fmt.Errorf("%s node %s has unsupported data %T", n.Kind, n.ID.Short(), n.Data)
	}
}

func (b *builder) boolean(n *scene.Node) (kernel.Solid, error) {
	children, err := b.solids(n.Children)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("%s node %s has no children", n.Kind, n.ID.Short())
	}
	acc := children[0]
	for _, c := range children[1:] {
		switch n.Kind {
		case scene.NodeUnion:
			acc = b.m.Union(acc, c)
		case scene.NodeDifference:
			acc = b.m.Difference(acc, c)
		case scene.NodeIntersection:
			acc = b.m.Intersection(acc, c)
		}
	}
	return acc, nil
}

func (b *builder) transform(n *scene.Node) (kernel.Solid, error) {
	if len(n.Children) != 1 {
		return nil, fmt.Errorf("%s node %s has %d children, want 1", n.Kind, n.ID.Short(), len(n.Children))
	}
	child, err := b.solid(n.Children[0])
	if err != nil {
		return nil, err
	}
	switch data := n.Data.(type) {
	case scene.TranslateData:
		return b.m.Translate(child, data.X, data.Y, data.Z), nil
	case scene.RotateData:
		return b.m.RotateZ(child, data.Degrees), nil
	default:
		return nil, fmt.Errorf("%s node %s has unsupported data %T", n.Kind, n.ID.Short(), n.Data)
	}
}
