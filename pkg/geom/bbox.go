package geom

// BoundingBox is an axis-aligned box in coordinate units. The zero value is
// an undefined (empty) box.
type BoundingBox struct {
	Min, Max Point
	Defined  bool
}

// MergePoint grows the box to include pt.
func (b *BoundingBox) MergePoint(pt Point) {
	if !b.Defined {
		b.Min, b.Max, b.Defined = pt, pt, true
		return
	}
	b.Min.X = min(b.Min.X, pt.X)
	b.Min.Y = min(b.Min.Y, pt.Y)
	b.Max.X = max(b.Max.X, pt.X)
	b.Max.Y = max(b.Max.Y, pt.Y)
}

// Merge grows the box to include o.
func (b *BoundingBox) Merge(o BoundingBox) {
	if !o.Defined {
		return
	}
	b.MergePoint(o.Min)
	b.MergePoint(o.Max)
}

// Offset grows the box by d on every side.
func (b *BoundingBox) Offset(d int64) {
	if !b.Defined {
		return
	}
	b.Min.X -= d
	b.Min.Y -= d
	b.Max.X += d
	b.Max.Y += d
}

// AlignToGrid floors the minimum corner onto a grid of the given cell size.
// The maximum corner is left alone.
func (b *BoundingBox) AlignToGrid(cell int64) {
	if !b.Defined || cell <= 0 {
		return
	}
	b.Min.X = alignToGrid(b.Min.X, cell)
	b.Min.Y = alignToGrid(b.Min.Y, cell)
}

func alignToGrid(v, cell int64) int64 {
	if v >= 0 {
		return v - v%cell
	}
	return ((v - cell + 1) / cell) * cell
}

// Size returns the box extent per axis.
func (b BoundingBox) Size() Point {
	return b.Max.Sub(b.Min)
}

// Contains reports whether pt lies inside or on the box.
func (b BoundingBox) Contains(pt Point) bool {
	return b.Defined && pt.X >= b.Min.X && pt.X <= b.Max.X && pt.Y >= b.Min.Y && pt.Y <= b.Max.Y
}

// Overlaps reports whether two boxes share any point.
func (b BoundingBox) Overlaps(o BoundingBox) bool {
	return b.Defined && o.Defined &&
		b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y
}
