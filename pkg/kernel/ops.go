package kernel

import "github.com/chazu/buttress/pkg/geom"

// safetyOffset is added to the clip set of DifferenceSafe so that touching
// subject polygons merge instead of leaving slivers.
const safetyOffset = 10

// Expand grows p by delta units using square joins.
func Expand(k Kernel, p geom.Polygons, delta float64) geom.Polygons {
	if len(p) == 0 {
		return nil
	}
	if delta == 0 {
		return k.Union(p)
	}
	return k.Offset(p, delta, JoinSquare)
}

// Shrink shrinks p by delta units using square joins.
func Shrink(k Kernel, p geom.Polygons, delta float64) geom.Polygons {
	return Expand(k, p, -delta)
}

// Offset2 offsets by d1 and then by d2.
func Offset2(k Kernel, p geom.Polygons, d1, d2 float64) geom.Polygons {
	return Expand(k, Expand(k, p, d1), d2)
}

// Opening shrinks by r1 and grows back by r2.
func Opening(k Kernel, p geom.Polygons, r1, r2 float64) geom.Polygons {
	return Offset2(k, p, -r1, r2)
}

// Closing grows by r and shrinks back by r.
func Closing(k Kernel, p geom.Polygons, r float64) geom.Polygons {
	return Offset2(k, p, r, -r)
}

// DifferenceSafe subtracts clip inflated by a tiny safety offset.
func DifferenceSafe(k Kernel, subject, clip geom.Polygons) geom.Polygons {
	if len(clip) == 0 {
		return k.Union(subject)
	}
	return k.Difference(subject, k.Offset(clip, safetyOffset, JoinMiter))
}

// Overlaps reports whether a and b share any area.
func Overlaps(k Kernel, a, b geom.Polygons) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if !a.BoundingBox().Overlaps(b.BoundingBox()) {
		return false
	}
	return len(k.Intersection(a, b)) > 0
}

// SmoothOutward removes concave notches shallower than distance units by
// dropping concave vertices close to the chord between their neighbours.
// The result only ever grows.
func SmoothOutward(k Kernel, p geom.Polygons, distance float64) geom.Polygons {
	if len(p) == 0 || distance <= 0 {
		return p
	}
	out := make(geom.Polygons, 0, len(p))
	for _, ring := range p {
		out = append(out, smoothRing(ring, distance))
	}
	return k.Union(out)
}

func smoothRing(ring geom.Polygon, distance float64) geom.Polygon {
	// Holes are left alone; smoothing them would shrink the region.
	if !ring.IsCounterClockwise() {
		return ring
	}
	pts := append(geom.Polygon(nil), ring...)
	for changed := true; changed && len(pts) > 3; {
		changed = false
		for i := 0; i < len(pts) && len(pts) > 3; i++ {
			prev := pts[(i+len(pts)-1)%len(pts)]
			cur := pts[i]
			next := pts[(i+1)%len(pts)]
			chord := next.Sub(prev)
			turn := cur.Sub(prev).Cross(next.Sub(cur))
			if turn >= 0 {
				continue
			}
			l2 := float64(chord.X)*float64(chord.X) + float64(chord.Y)*float64(chord.Y)
			if l2 == 0 {
				continue
			}
			// Distance from cur to the chord prev-next.
			d := cur.Sub(prev).Cross(chord)
			if d*d <= distance*distance*l2 {
				pts = append(pts[:i], pts[i+1:]...)
				changed = true
				i--
			}
		}
	}
	return pts
}
