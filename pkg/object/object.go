// Package object holds the sliced print object the support generator reads:
// a stack of layers, each with its cross-section and per-region surface
// classification. Objects are read-only once handed to the generator.
package object

import (
	"sync"

	"github.com/chazu/buttress/pkg/geom"
)

// Region is one print region of a layer. Surfaces are in layer coordinates.
type Region struct {
	Slices             geom.ExPolygons `json:"slices"`
	TopSurfaces        geom.Polygons   `json:"top_surfaces,omitempty"`
	BottomBridges      geom.Polygons   `json:"bottom_bridges,omitempty"`
	BridgingPerimeters geom.Polygons   `json:"bridging_perimeters,omitempty"`

	ExternalPerimeterWidth float64 `json:"external_perimeter_width"` // mm
	// BridgingHeight is the thickness of bridging extrusions (mm).
	// Zero means the region has none.
	BridgingHeight float64 `json:"bridging_height,omitempty"`
}

// Layer is one horizontal slice of an object.
type Layer struct {
	ID      int             `json:"id"`
	PrintZ  float64         `json:"print_z"` // mm
	Height  float64         `json:"height"`  // mm
	Slices  geom.ExPolygons `json:"slices"`
	Regions []Region        `json:"regions,omitempty"`

	// User annotations painted on this layer.
	Enforcers geom.Polygons `json:"enforcers,omitempty"`
	Blockers  geom.Polygons `json:"blockers,omitempty"`

	object   *Object
	flatOnce sync.Once
	flat     geom.Polygons
}

// BottomZ returns the Z of the layer's bottom face.
func (l *Layer) BottomZ() float64 {
	return l.PrintZ - l.Height
}

// Lower returns the layer directly below, or nil.
func (l *Layer) Lower() *Layer {
	if l.object == nil || l.ID == 0 {
		return nil
	}
	return l.object.Layers[l.ID-1]
}

// Upper returns the layer directly above, or nil.
func (l *Layer) Upper() *Layer {
	if l.object == nil || l.ID+1 >= len(l.object.Layers) {
		return nil
	}
	return l.object.Layers[l.ID+1]
}

// Polygons returns the slices flattened to a polygon set. The result is
// computed once and must not be modified.
func (l *Layer) Polygons() geom.Polygons {
	l.flatOnce.Do(func() {
		l.flat = l.Slices.Polygons()
	})
	return l.flat
}

// HasBridging reports whether any region carries bridging extrusions.
func (l *Layer) HasBridging() bool {
	for _, r := range l.Regions {
		if r.BridgingHeight > 0 {
			return true
		}
	}
	return false
}

// Object is a named stack of layers ordered by PrintZ.
type Object struct {
	Name   string   `json:"name"`
	Layers []*Layer `json:"layers"`
}

// New creates an empty object.
func New(name string) *Object {
	return &Object{Name: name}
}

// AddLayer appends l on top of the stack, assigning its ID.
func (o *Object) AddLayer(l *Layer) *Layer {
	l.ID = len(o.Layers)
	l.object = o
	o.Layers = append(o.Layers, l)
	return l
}

// Link re-establishes layer IDs and back references after Layers was
// assigned directly.
func (o *Object) Link() {
	for i, l := range o.Layers {
		l.ID = i
		l.object = o
	}
}

// LayerCount returns the number of layers.
func (o *Object) LayerCount() int {
	return len(o.Layers)
}

// Polygons returns the flattened slices of layer i.
func (o *Object) Polygons(i int) geom.Polygons {
	return o.Layers[i].Polygons()
}

// Enforcers returns the enforcer annotation of layer i.
func (o *Object) Enforcers(i int) geom.Polygons {
	return o.Layers[i].Enforcers
}

// Blockers returns the blocker annotation of layer i.
func (o *Object) Blockers(i int) geom.Polygons {
	return o.Layers[i].Blockers
}

// HasEnforcers reports whether any layer carries an enforcer annotation.
func (o *Object) HasEnforcers() bool {
	for _, l := range o.Layers {
		if len(l.Enforcers) > 0 {
			return true
		}
	}
	return false
}

// HasBlockers reports whether any layer carries a blocker annotation.
func (o *Object) HasBlockers() bool {
	for _, l := range o.Layers {
		if len(l.Blockers) > 0 {
			return true
		}
	}
	return false
}

// Top returns the PrintZ of the highest layer, or 0 for an empty object.
func (o *Object) Top() float64 {
	if len(o.Layers) == 0 {
		return 0
	}
	return o.Layers[len(o.Layers)-1].PrintZ
}
