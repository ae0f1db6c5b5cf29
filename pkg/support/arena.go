package support

import (
	"fmt"
	"math"
	"sync"

	"github.com/chazu/buttress/pkg/geom"
)

// LayerType tags a generated support layer.
type LayerType int

const (
	TopContact LayerType = iota
	BottomContact
	// Intermediate layers become Base once their footprint is filled.
	Intermediate
	Base
	RaftBase
	RaftInterface
)

// String returns the human-readable name of the layer type.
func (t LayerType) String() string {
	switch t {
	case TopContact:
		return "top-contact"
	case BottomContact:
		return "bottom-contact"
	case Intermediate:
		return "intermediate"
	case Base:
		return "base"
	case RaftBase:
		return "raft-base"
	case RaftInterface:
		return "raft-interface"
	default:
		return fmt.Sprintf("LayerType(%d)", int(t))
	}
}

// rank orders layer types sharing a print_z in the output.
func (t LayerType) rank() int {
	switch t {
	case TopContact:
		return 0
	case BottomContact:
		return 1
	default:
		return 2
	}
}

// Layer is one generated support layer. Z values are millimetres.
type Layer struct {
	PrintZ  float64
	BottomZ float64
	Height  float64
	Type    LayerType

	// Polygons is the printable footprint.
	Polygons geom.Polygons
	// ContactPolygons is the slightly shrunk footprint projected to the
	// layers below. Top contacts only.
	ContactPolygons geom.Polygons
	// OverhangPolygons is the snug overhang the contact supports.
	OverhangPolygons geom.Polygons
	// EnforcerPolygons is the part forced by enforcer annotations. It is
	// projected down even when support is restricted to the build plate.
	EnforcerPolygons geom.Polygons

	// Bridging marks a contact layer placed under bridging extrusions.
	Bridging bool
	// Object layers bracketing this layer, -1 when unknown.
	IdxObjectLayerAbove int
	IdxObjectLayerBelow int
}

// Area returns the printed area in mm².
func (l *Layer) Area() float64 {
	return l.Polygons.Area() * geom.ScalingFactor * geom.ScalingFactor
}

// InvariantError reports a generated layer whose Z span is inconsistent.
// It indicates a bug in the generator and is never recovered from.
type InvariantError struct {
	Type    LayerType
	PrintZ  float64
	BottomZ float64
	Height  float64
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("support: %s layer at z=%.4f (bottom %.4f, height %.4f): %s",
		e.Type, e.PrintZ, e.BottomZ, e.Height, e.Message)
}

// Check verifies the Z span of l.
func (l *Layer) Check() error {
	fail := func(msg string) error {
		return &InvariantError{Type: l.Type, PrintZ: l.PrintZ, BottomZ: l.BottomZ, Height: l.Height, Message: msg}
	}
	switch {
	case l.Height < 0:
		return fail("negative height")
	case l.BottomZ > l.PrintZ+geom.Epsilon:
		return fail("bottom above top")
	case math.Abs(l.Height-(l.PrintZ-l.BottomZ)) > geom.Epsilon:
		return fail("height does not match z span")
	}
	return nil
}

// Handle addresses a layer in an Arena. Handles stay valid for the life
// of the arena.
type Handle int

// Arena owns every layer generated in one run. Allocate may be called
// concurrently; a layer itself is only written by the stage that owns it.
type Arena struct {
	mu     sync.Mutex
	layers []*Layer
}

// Allocate adds an empty layer of type t.
func (a *Arena) Allocate(t LayerType) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.layers = append(a.layers, &Layer{Type: t, IdxObjectLayerAbove: -1, IdxObjectLayerBelow: -1})
	return Handle(len(a.layers) - 1)
}

// Get returns the layer behind h.
func (a *Arena) Get(h Handle) *Layer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.layers[h]
}

// Len returns the number of allocated layers.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.layers)
}

// Handles returns every handle in allocation order.
func (a *Arena) Handles() []Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	hs := make([]Handle, len(a.layers))
	for i := range hs {
		hs[i] = Handle(i)
	}
	return hs
}

// adopt takes ownership of a layer produced elsewhere.
func (a *Arena) adopt(l *Layer) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.layers = append(a.layers, l)
	return Handle(len(a.layers) - 1)
}
