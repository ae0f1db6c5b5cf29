// Package slicing derives the read-only slicing parameters the support
// generator needs: first layer height, raft Z stack and clearance gaps.
package slicing

import (
	"math"

	"github.com/chazu/buttress/pkg/config"
	"github.com/chazu/buttress/pkg/geom"
)

// Parameters is the per-object slicing snapshot.
type Parameters struct {
	LayerHeight            float64
	FirstPrintLayerHeight  float64
	FirstObjectLayerHeight float64
	// ObjectPrintZMin is where the object starts above the raft.
	ObjectPrintZMin float64

	BaseRaftLayers           int
	InterfaceRaftLayers      int
	BaseRaftLayerHeight      float64
	InterfaceRaftLayerHeight float64
	ContactRaftLayerHeight   float64
	RaftBaseTopZ             float64
	RaftInterfaceTopZ        float64
	RaftContactTopZ          float64

	SolubleInterface bool
	GapRaftObject    float64
	// GapSupportObject is the vertical gap between a top contact and the
	// object above it; GapObjectSupport the gap between an object top
	// surface and the bottom contact resting on it.
	GapSupportObject float64
	GapObjectSupport float64

	MinSupportLayerHeight float64
	MaxSupportLayerHeight float64
}

// HasRaft reports whether a raft is printed below the object.
func (p Parameters) HasRaft() bool {
	return p.RaftLayers() > 0
}

// RaftLayers returns the total number of raft layers.
func (p Parameters) RaftLayers() int {
	return p.BaseRaftLayers + p.InterfaceRaftLayers
}

// New derives slicing parameters from the support configuration. The
// nozzle diameter is taken to be the support extrusion width.
func New(cfg config.Support) Parameters {
	first := cfg.FirstLayerHeight
	if first <= 0 {
		first = cfg.LayerHeight
	}
	p := Parameters{
		LayerHeight:            cfg.LayerHeight,
		FirstPrintLayerHeight:  first,
		FirstObjectLayerHeight: first,
		BaseRaftLayers:         cfg.RaftLayers,
		SolubleInterface:       cfg.SolubleInterface || cfg.TopZDistance == 0,
		MinSupportLayerHeight:  math.Max(cfg.MinLayerHeight, geom.Epsilon),
		MaxSupportLayerHeight:  cfg.MaxLayerHeight,
	}
	if !p.SolubleInterface {
		p.GapRaftObject = cfg.TopZDistance
		p.GapObjectSupport = cfg.BottomZDistance
		p.GapSupportObject = cfg.TopZDistance
		if !cfg.IndependentLayerHeight {
			p.GapRaftObject = roundToLayer(p.GapRaftObject, cfg.LayerHeight)
			p.GapObjectSupport = roundToLayer(p.GapObjectSupport, cfg.LayerHeight)
			p.GapSupportObject = roundToLayer(p.GapSupportObject, cfg.LayerHeight)
		}
	}

	if p.BaseRaftLayers > 0 {
		p.InterfaceRaftLayers = (p.BaseRaftLayers + 1) / 2
		p.BaseRaftLayers -= p.InterfaceRaftLayers
		thick := math.Max(cfg.LayerHeight, 0.75*cfg.ExtrusionWidth)
		p.BaseRaftLayerHeight = thick
		p.InterfaceRaftLayerHeight = thick
		p.ContactRaftLayerHeight = thick
		p.FirstObjectLayerHeight = cfg.LayerHeight
	}
	if p.HasRaft() {
		if p.RaftLayers() == 1 {
			p.ContactRaftLayerHeight = first
			p.RaftContactTopZ = first
		} else {
			p.RaftBaseTopZ = first + float64(p.BaseRaftLayers-1)*p.BaseRaftLayerHeight
			p.RaftInterfaceTopZ = p.RaftBaseTopZ + float64(p.InterfaceRaftLayers-1)*p.InterfaceRaftLayerHeight
			p.RaftContactTopZ = p.RaftInterfaceTopZ + p.ContactRaftLayerHeight
		}
		p.ObjectPrintZMin = p.RaftContactTopZ + p.GapRaftObject
	}
	return p
}

func roundToLayer(gap, layer float64) float64 {
	return math.Round(gap/layer+geom.Epsilon) * layer
}
