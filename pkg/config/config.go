// Package config holds the support configuration snapshot for one object.
// Values are plain millimetres and degrees; derived quantities live in the
// support package.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/chazu/buttress/pkg/gridpattern"
)

// Support is the per-object support configuration.
type Support struct {
	Enabled bool `json:"enabled"`
	// Auto enables angle-based detection. When false only enforcers and
	// the enforce band create contacts.
	Auto  bool              `json:"auto"`
	Style gridpattern.Style `json:"style"`

	ThresholdAngle   float64 `json:"threshold_angle"`   // deg, 0 = automatic
	ThresholdOverlap float64 `json:"threshold_overlap"` // fraction of perimeter width
	EnforceLayers    int     `json:"enforce_layers"`
	BuildplateOnly   bool    `json:"buildplate_only"`
	ThickBridges     bool    `json:"thick_bridges"`
	BridgeNoSupport  bool    `json:"bridge_no_support"`
	// SharpTails supports small islands that start in mid air and tracks
	// them upward while they stay thin.
	SharpTails bool `json:"sharp_tails"`
	// RemoveSmallOverhangs drops overhang clusters too narrow to need
	// support, unless they are sharp tails or cantilevers.
	RemoveSmallOverhangs bool `json:"remove_small_overhangs"`

	BasePatternSpacing   float64 `json:"base_pattern_spacing"` // mm
	InterfaceSpacing     float64 `json:"interface_spacing"`    // mm
	ClosingRadius        float64 `json:"closing_radius"`       // mm
	Angle                float64 `json:"angle"`                // deg
	ExtrusionWidth       float64 `json:"extrusion_width"`      // mm
	InterfaceLayerHeight float64 `json:"interface_layer_height"`

	TopZDistance    float64 `json:"top_z_distance"`    // mm
	BottomZDistance float64 `json:"bottom_z_distance"` // mm
	XYDistance      float64 `json:"xy_distance"`       // mm
	Expansion       float64 `json:"expansion"`         // mm

	RaftExpansion float64 `json:"raft_expansion"` // mm
	RaftLayers    int     `json:"raft_layers"`

	MinLayerHeight         float64 `json:"min_layer_height"` // mm
	MaxLayerHeight         float64 `json:"max_layer_height"` // mm
	IndependentLayerHeight bool    `json:"independent_layer_height"`
	SolubleInterface       bool    `json:"soluble_interface"`
	SynchronizeLayers      bool    `json:"synchronize_layers"`
	ReduceInterfaces       bool    `json:"reduce_interfaces"`

	LayerHeight      float64 `json:"layer_height"`       // mm
	FirstLayerHeight float64 `json:"first_layer_height"` // mm
}

// Default returns the default support configuration.
func Default() Support {
	return Support{
		Enabled:                true,
		Auto:                   true,
		Style:                  gridpattern.StyleGrid,
		ThresholdAngle:         30,
		ThresholdOverlap:       0.5,
		ThickBridges:           true,
		BasePatternSpacing:     2.5,
		InterfaceSpacing:       0.5,
		ClosingRadius:          2,
		ExtrusionWidth:         0.4,
		TopZDistance:           0.2,
		BottomZDistance:        0.2,
		XYDistance:             0.35,
		RaftExpansion:          1.5,
		MinLayerHeight:         0.07,
		MaxLayerHeight:         0.4,
		IndependentLayerHeight: true,
		LayerHeight:            0.2,
		FirstLayerHeight:       0.2,
	}
}

// Validate reports every violation, joined into one error.
func (s Support) Validate() error {
	var errs []error
	if s.ThresholdAngle < 0 || s.ThresholdAngle >= 90 {
		errs = append(errs, fmt.Errorf("threshold_angle %.2f out of range [0, 90)", s.ThresholdAngle))
	}
	if s.ThresholdOverlap < 0 || s.ThresholdOverlap > 1 {
		errs = append(errs, fmt.Errorf("threshold_overlap %.2f out of range [0, 1]", s.ThresholdOverlap))
	}
	if s.Angle < -360 || s.Angle > 360 {
		errs = append(errs, fmt.Errorf("angle %.2f out of range [-360, 360]", s.Angle))
	}
	for _, h := range []struct {
		name string
		v    float64
	}{
		{"layer_height", s.LayerHeight},
		{"first_layer_height", s.FirstLayerHeight},
		{"extrusion_width", s.ExtrusionWidth},
		{"max_layer_height", s.MaxLayerHeight},
	} {
		if h.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %.4f", h.name, h.v))
		}
	}
	if s.MinLayerHeight < 0 {
		errs = append(errs, fmt.Errorf("min_layer_height must not be negative, got %.4f", s.MinLayerHeight))
	}
	if s.MinLayerHeight > s.MaxLayerHeight {
		errs = append(errs, fmt.Errorf("min_layer_height %.4f exceeds max_layer_height %.4f", s.MinLayerHeight, s.MaxLayerHeight))
	}
	for _, d := range []struct {
		name string
		v    float64
	}{
		{"base_pattern_spacing", s.BasePatternSpacing},
		{"interface_spacing", s.InterfaceSpacing},
		{"closing_radius", s.ClosingRadius},
		{"interface_layer_height", s.InterfaceLayerHeight},
		{"top_z_distance", s.TopZDistance},
		{"bottom_z_distance", s.BottomZDistance},
		{"xy_distance", s.XYDistance},
		{"expansion", s.Expansion},
		{"raft_expansion", s.RaftExpansion},
	} {
		if d.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %.4f", d.name, d.v))
		}
	}
	if s.EnforceLayers < 0 {
		errs = append(errs, fmt.Errorf("enforce_layers must not be negative, got %d", s.EnforceLayers))
	}
	if s.RaftLayers < 0 {
		errs = append(errs, fmt.Errorf("raft_layers must not be negative, got %d", s.RaftLayers))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid support settings: %w", err)
	}
	return nil
}

// InterfaceHeight returns the interface layer height, falling back to the
// regular layer height.
func (s Support) InterfaceHeight() float64 {
	if s.InterfaceLayerHeight > 0 {
		return s.InterfaceLayerHeight
	}
	return s.LayerHeight
}

// Load decodes JSON from r on top of Default. Unknown fields are rejected.
func Load(r io.Reader) (Support, error) {
	return Overlay(Default(), r)
}

// Overlay decodes JSON from r on top of base. Only the keys present in the
// document change. Unknown fields are rejected.
func Overlay(base Support, r io.Reader) (Support, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&base); err != nil {
		return Support{}, fmt.Errorf("config: decode: %w", err)
	}
	return base, nil
}
