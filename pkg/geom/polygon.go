package geom

import "math"

// Polygon is an implicitly closed ring. Counter-clockwise rings are
// contours, clockwise rings are holes.
type Polygon []Point

// Polygons is an unordered set of rings. Contours and holes are not
// associated until a union or difference resolves them.
type Polygons []Polygon

// Rectangle returns a counter-clockwise rectangle given in millimetres.
func Rectangle(x0, y0, x1, y1 float64) Polygon {
	return Polygon{Pt(x0, y0), Pt(x1, y0), Pt(x1, y1), Pt(x0, y1)}
}

// Area returns the signed area in square units. Positive for CCW.
func (p Polygon) Area() float64 {
	n := len(p)
	if n < 3 {
		return 0
	}
	var a float64
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a += (float64(p[j].X) + float64(p[i].X)) * (float64(p[j].Y) - float64(p[i].Y))
	}
	return -a / 2
}

// IsCounterClockwise reports whether the ring is a contour.
func (p Polygon) IsCounterClockwise() bool {
	return p.Area() > 0
}

// Reversed returns a copy with the opposite orientation.
func (p Polygon) Reversed() Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[len(p)-1-i] = pt
	}
	return out
}

// Translated returns a copy moved by d.
func (p Polygon) Translated(d Point) Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = pt.Add(d)
	}
	return out
}

// BoundingBox returns the extents of the ring.
func (p Polygon) BoundingBox() BoundingBox {
	var bb BoundingBox
	for _, pt := range p {
		bb.MergePoint(pt)
	}
	return bb
}

// ContainsEvenOdd casts a ray along +x and reports odd crossing parity.
// Points on the boundary may land on either side.
func (p Polygon) ContainsEvenOdd(pt Point) bool {
	inside := false
	n := len(p)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := float64(a.X) + float64(pt.Y-a.Y)*float64(b.X-a.X)/float64(b.Y-a.Y)
			if float64(pt.X) < x {
				inside = !inside
			}
		}
	}
	return inside
}

// DistanceTo returns the distance in units from pt to the nearest edge of
// the closed ring p, or +Inf for an empty ring.
func (p Polygon) DistanceTo(pt Point) float64 {
	d := math.Inf(1)
	n := len(p)
	if n == 1 {
		return segmentDistance(pt, p[0], p[0])
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		d = math.Min(d, segmentDistance(pt, p[j], p[i]))
	}
	return d
}

func segmentDistance(pt, a, b Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	px, py := float64(pt.X-a.X), float64(pt.Y-a.Y)
	if l2 := dx*dx + dy*dy; l2 > 0 {
		t := math.Max(0, math.Min(1, (px*dx+py*dy)/l2))
		px, py = px-t*dx, py-t*dy
	}
	return math.Hypot(px, py)
}

// DistanceTo returns the distance from pt to the nearest edge of any ring.
func (ps Polygons) DistanceTo(pt Point) float64 {
	d := math.Inf(1)
	for _, p := range ps {
		d = math.Min(d, p.DistanceTo(pt))
	}
	return d
}

// Area returns the summed signed area of all rings.
func (ps Polygons) Area() float64 {
	var a float64
	for _, p := range ps {
		a += p.Area()
	}
	return a
}

// BoundingBox returns the extents of all rings.
func (ps Polygons) BoundingBox() BoundingBox {
	var bb BoundingBox
	for _, p := range ps {
		for _, pt := range p {
			bb.MergePoint(pt)
		}
	}
	return bb
}

// Clone returns a deep copy.
func (ps Polygons) Clone() Polygons {
	if ps == nil {
		return nil
	}
	out := make(Polygons, len(ps))
	for i, p := range ps {
		out[i] = append(Polygon(nil), p...)
	}
	return out
}

// Translated returns a copy moved by d.
func (ps Polygons) Translated(d Point) Polygons {
	out := make(Polygons, len(ps))
	for i, p := range ps {
		out[i] = p.Translated(d)
	}
	return out
}

// ContainsEvenOdd applies the parity rule across every ring at once.
func (ps Polygons) ContainsEvenOdd(pt Point) bool {
	inside := false
	for _, p := range ps {
		if p.ContainsEvenOdd(pt) {
			inside = !inside
		}
	}
	return inside
}

// RemoveDegenerate drops rings with fewer than three points.
func RemoveDegenerate(ps Polygons) Polygons {
	out := make(Polygons, 0, len(ps))
	for _, p := range ps {
		if len(p) >= 3 {
			out = append(out, p)
		}
	}
	return out
}

// isStick reports whether p2 can be removed because the path p1-p2-p3
// either repeats a point or folds back on itself.
func isStick(p1, p2, p3 Point) bool {
	v1 := p2.Sub(p1)
	v2 := p3.Sub(p2)
	dot := float64(v1.X)*float64(v2.X) + float64(v1.Y)*float64(v2.Y)
	l1 := float64(v1.X)*float64(v1.X) + float64(v1.Y)*float64(v1.Y)
	l2 := float64(v2.X)*float64(v2.X) + float64(v2.Y)*float64(v2.Y)
	switch {
	case dot > 0:
		return false
	case dot == 0:
		return l1 == 0 || l2 == 0
	}
	// p3 turns back towards p1: a stick when the three are collinear.
	cross := v1.Cross(v2)
	dist2 := cross * cross / math.Max(l1, l2)
	return dist2 < 1
}

// RemoveSticks drops zero-width spikes and then any ring left with fewer
// than three points.
func RemoveSticks(ps Polygons) Polygons {
	out := make(Polygons, 0, len(ps))
	for _, p := range ps {
		p = removeSticks(p)
		if len(p) >= 3 {
			out = append(out, p)
		}
	}
	return out
}

func removeSticks(p Polygon) Polygon {
	if len(p) < 3 {
		return p
	}
	kept := Polygon{p[0]}
	for i := 1; i+1 < len(p); i++ {
		if !isStick(kept[len(kept)-1], p[i], p[i+1]) {
			kept = append(kept, p[i])
		}
	}
	kept = append(kept, p[len(p)-1])
	for len(kept) >= 3 && isStick(kept[len(kept)-2], kept[len(kept)-1], kept[0]) {
		kept = kept[:len(kept)-1]
	}
	for len(kept) >= 3 && isStick(kept[len(kept)-1], kept[0], kept[1]) {
		kept = kept[1:]
	}
	return kept
}
