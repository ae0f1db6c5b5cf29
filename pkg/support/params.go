package support

import (
	"math"

	"github.com/chazu/buttress/pkg/config"
	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/gridpattern"
	"github.com/chazu/buttress/pkg/slicing"
)

// Params are the support quantities derived once per run.
type Params struct {
	FlowWidth   float64 // mm
	FlowSpacing float64 // mm
	// InterfaceFlowHeight is the thickness of a bottom contact layer.
	InterfaceFlowHeight float64
	GapXY               float64 // mm

	MinLayerHeight float64
	MaxLayerHeight float64

	// Synchronize lays intermediate layers on object layer boundaries.
	Synchronize bool
	// Independent places contacts at the exact gap instead of snapping
	// them to object layers.
	Independent bool

	Grid gridpattern.Params
}

// NewParams derives support parameters from cfg and the slicing snapshot.
func NewParams(cfg config.Support, sp slicing.Parameters) Params {
	spacing := cfg.ExtrusionWidth - cfg.LayerHeight*(1-math.Pi/4)
	grid := gridpattern.NewParams(cfg.Style, cfg.BasePatternSpacing, cfg.Angle, spacing)
	grid.ClosingRadius = cfg.ClosingRadius
	return Params{
		FlowWidth:           cfg.ExtrusionWidth,
		FlowSpacing:         spacing,
		InterfaceFlowHeight: cfg.InterfaceHeight(),
		GapXY:               cfg.XYDistance,
		MinLayerHeight:      math.Max(sp.MinSupportLayerHeight, geom.Epsilon),
		MaxLayerHeight:      sp.MaxSupportLayerHeight,
		Synchronize:         sp.SolubleInterface && cfg.SynchronizeLayers,
		Independent:         cfg.IndependentLayerHeight,
		Grid:                grid,
	}
}
