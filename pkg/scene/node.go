package scene

import "github.com/google/uuid"

// NodeID is a content-addressed identifier for scene nodes. Evaluating the
// same script twice yields the same ids.
type NodeID string

// ZeroID is the empty node id.
const ZeroID NodeID = ""

var nodeNamespace = uuid.MustParse("6f1d2c1e-4b7a-5e0c-9a43-2d5b8f0e7c11")

// NewNodeID derives an id from a path such as "box/3" or "object/bracket".
func NewNodeID(path string) NodeID {
	return NodeID(uuid.NewSHA1(nodeNamespace, []byte(path)).String())
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

// Short returns the first eight characters, for messages.
func (id NodeID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// NodeKind enumerates the node types of a scene.
type NodeKind int

const (
	NodeBox NodeKind = iota
	NodeCylinder
	NodeTranslate
	NodeRotateZ
	NodeUnion
	NodeDifference
	NodeIntersection
)

func (k NodeKind) String() string {
	switch k {
	case NodeBox:
		return "box"
	case NodeCylinder:
		return "cylinder"
	case NodeTranslate:
		return "translate"
	case NodeRotateZ:
		return "rotate-z"
	case NodeUnion:
		return "union"
	case NodeDifference:
		return "difference"
	case NodeIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// IsPrimitive reports whether nodes of kind k are leaves.
func (k NodeKind) IsPrimitive() bool {
	return k == NodeBox || k == NodeCylinder
}

// IsBoolean reports whether nodes of kind k combine their children.
func (k NodeKind) IsBoolean() bool {
	return k == NodeUnion || k == NodeDifference || k == NodeIntersection
}

// Node is one solid-producing step of the scene.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Children []NodeID `json:"children,omitempty"`
	Data     NodeData `json:"data,omitempty"`
}

// NodeData is the kind-specific payload of a node.
type NodeData interface {
	nodeData()
}

// BoxData is an axis-aligned box with its minimum corner at the origin.
type BoxData struct {
	X, Y, Z float64 // mm
}

func (BoxData) nodeData() {}

// CylinderData is a Z-axis cylinder standing on the origin.
type CylinderData struct {
	Height float64 `json:"height"` // mm
	Radius float64 `json:"radius"` // mm
}

func (CylinderData) nodeData() {}

// TranslateData moves the single child.
type TranslateData struct {
	X, Y, Z float64 // mm
}

func (TranslateData) nodeData() {}

// RotateData rotates the single child about the Z axis.
type RotateData struct {
	Degrees float64 `json:"degrees"`
}

func (RotateData) nodeData() {}
