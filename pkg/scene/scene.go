// Package scene defines the solid scene a script evaluates to. A scene is
// a DAG of primitives, transforms and booleans; named object roots are
// sliced into print objects, enforcer and blocker roots into per-layer
// annotations. Each evaluation produces a new scene.
package scene

import (
	"fmt"

	"github.com/chazu/buttress/pkg/config"
)

// Object is a named root of the scene.
type Object struct {
	Name string `json:"name"`
	Root NodeID `json:"root"`
}

// Scene is the output of one script evaluation.
type Scene struct {
	Nodes     map[NodeID]*Node `json:"nodes"`
	Objects   []Object         `json:"objects"`
	Enforcers []NodeID         `json:"enforcers,omitempty"`
	Blockers  []NodeID         `json:"blockers,omitempty"`
	// Support starts from config.Default and is amended by the script.
	Support config.Support `json:"support"`
}

// New creates an empty scene with the default support configuration.
func New() *Scene {
	return &Scene{
		Nodes:   make(map[NodeID]*Node),
		Support: config.Default(),
	}
}

// AddNode adds n. A node with the same id is replaced.
func (s *Scene) AddNode(n *Node) {
	s.Nodes[n.ID] = n
}

// AddObject registers root as a named print object.
func (s *Scene) AddObject(name string, root NodeID) {
	s.Objects = append(s.Objects, Object{Name: name, Root: root})
}

// AddEnforcer registers root as a support enforcer volume.
func (s *Scene) AddEnforcer(root NodeID) {
	s.Enforcers = append(s.Enforcers, root)
}

// AddBlocker registers root as a support blocker volume.
func (s *Scene) AddBlocker(root NodeID) {
	s.Blockers = append(s.Blockers, root)
}

// Get returns the node with the given id, or nil.
func (s *Scene) Get(id NodeID) *Node {
	return s.Nodes[id]
}

// Lookup returns the object with the given name, or nil.
func (s *Scene) Lookup(name string) *Object {
	for i := range s.Objects {
		if s.Objects[i].Name == name {
			return &s.Objects[i]
		}
	}
	return nil
}

// MustLookup returns the named object, or panics.
func (s *Scene) MustLookup(name string) *Object {
	o := s.Lookup(name)
	if o == nil {
		panic(fmt.Sprintf("scene: no object named %q", name))
	}
	return o
}

// Children returns the child nodes of n, skipping dangling ids.
func (s *Scene) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := s.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (s *Scene) NodeCount() int {
	return len(s.Nodes)
}
