package support

import (
	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/kernel"
)

// coveredGrowth is how far each lower layer's slices are grown before
// being added to the build-plate-covered union.
const coveredGrowth = 0.01 // mm

// buildplateCovered returns, for every object layer, the area already
// covered by the object below it. Support restricted to the build plate
// must stay out of it. The slice is empty unless BuildplateOnly is set.
func (r *run) buildplateCovered() ([]geom.Polygons, error) {
	n := r.obj.LayerCount()
	covered := make([]geom.Polygons, n)
	if !r.g.cfg.BuildplateOnly {
		return covered, nil
	}
	k := r.g.k
	for i := 1; i < n; i++ {
		if err := r.ctx.Err(); err != nil {
			return nil, err
		}
		grown := kernel.Expand(k, r.obj.Polygons(i-1), geom.ScaleF(coveredGrowth))
		acc := append(covered[i-1].Clone(), grown...)
		covered[i] = k.Union(acc)
	}
	return covered, nil
}
