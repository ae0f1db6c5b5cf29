package geom

// ExPolygon is a contour with its holes resolved.
type ExPolygon struct {
	Contour Polygon
	Holes   []Polygon
}

// ExPolygons is a set of non-overlapping expolygons.
type ExPolygons []ExPolygon

// Area returns the contour area minus the hole areas.
func (e ExPolygon) Area() float64 {
	a := e.Contour.Area()
	for _, h := range e.Holes {
		a += h.Area()
	}
	return a
}

// Polygons flattens the contour and holes into one ring set.
func (e ExPolygon) Polygons() Polygons {
	out := make(Polygons, 0, 1+len(e.Holes))
	out = append(out, e.Contour)
	out = append(out, e.Holes...)
	return out
}

// ContainsEvenOdd tests pt against the contour and every hole.
func (e ExPolygon) ContainsEvenOdd(pt Point) bool {
	return e.Polygons().ContainsEvenOdd(pt)
}

// Polygons flattens every expolygon.
func (es ExPolygons) Polygons() Polygons {
	var out Polygons
	for _, e := range es {
		out = append(out, e.Contour)
		out = append(out, e.Holes...)
	}
	return out
}

// Area sums the areas of all expolygons.
func (es ExPolygons) Area() float64 {
	var a float64
	for _, e := range es {
		a += e.Area()
	}
	return a
}

// BoundingBox returns the extents of all contours.
func (es ExPolygons) BoundingBox() BoundingBox {
	var bb BoundingBox
	for _, e := range es {
		bb.Merge(e.Contour.BoundingBox())
	}
	return bb
}
