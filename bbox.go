package geoprox

import "math"

// BoundingBox is an axis-aligned extent in the ambient dimension.
// IsTight distinguishes an exact minimal bound from a conservative
// overestimate: an overestimate may only grow past the true bound,
// never shrink inside it.
type BoundingBox struct {
	Min, Max Vector
	IsTight  bool
}

// NewBoundingBox returns an empty (inverted) box ready to be expanded.
func NewBoundingBox(dim int) BoundingBox {
	b := BoundingBox{
		Min:     make(Vector, dim),
		Max:     make(Vector, dim),
		IsTight: true,
	}
	for k := 0; k < dim; k++ {
		b.Min[k] = math.Inf(1)
		b.Max[k] = math.Inf(-1)
	}
	return b
}

// Dim returns the ambient dimension.
func (b BoundingBox) Dim() int { return len(b.Min) }

// ExpandToIncludePoint grows the box to contain p.
func (b *BoundingBox) ExpandToIncludePoint(p Vector) {
	for k, v := range p {
		if v < b.Min[k] {
			b.Min[k] = v
		}
		if v > b.Max[k] {
			b.Max[k] = v
		}
	}
}

// ExpandToIncludeBox grows the box to contain o. The result is tight
// only if both inputs were.
func (b *BoundingBox) ExpandToIncludeBox(o BoundingBox) {
	for k := range o.Min {
		if o.Min[k] < b.Min[k] {
			b.Min[k] = o.Min[k]
		}
		if o.Max[k] > b.Max[k] {
			b.Max[k] = o.Max[k]
		}
	}
	b.IsTight = b.IsTight && o.IsTight
}

// Extent returns Max - Min.
func (b BoundingBox) Extent() Vector { return b.Max.Sub(b.Min) }

// Centroid returns the box center.
func (b BoundingBox) Centroid() Vector { return b.Min.Add(b.Max).Scaled(0.5) }

// MaxDimension returns the axis of largest extent.
func (b BoundingBox) MaxDimension() int {
	e := b.Extent()
	axis := 0
	for k := 1; k < len(e); k++ {
		if e[k] > e[axis] {
			axis = k
		}
	}
	return axis
}

// SurfaceArea returns the boundary measure of the box: in dimension n,
// the sum over axes of twice the product of the other extents.
func (b BoundingBox) SurfaceArea() float64 {
	e := b.Extent()
	area := 0.0
	for k := range e {
		side := 2.0
		for j := range e {
			if j != k {
				side *= e[j]
			}
		}
		area += side
	}
	return area
}

// Volume returns the product of the extents.
func (b BoundingBox) Volume() float64 {
	vol := 1.0
	for _, e := range b.Extent() {
		vol *= e
	}
	return vol
}

// Contains reports whether p lies inside the box (boundary included).
func (b BoundingBox) Contains(p Vector) bool {
	for k, v := range p {
		if v < b.Min[k] || v > b.Max[k] {
			return false
		}
	}
	return true
}

// Intersect runs the slab test against r. tNear is the (clamped to 0)
// entry distance, tFar the exit distance; ok reports whether the box
// overlaps the ray within [0, r.TMax].
func (b BoundingBox) Intersect(r *Ray) (tNear, tFar float64, ok bool) {
	tMin, tMax := math.Inf(-1), math.Inf(1)
	for k := range b.Min {
		if r.parallel[k] {
			if r.Origin[k] < b.Min[k] || r.Origin[k] > b.Max[k] {
				return 0, 0, false
			}
			continue
		}
		t1 := (b.Min[k] - r.Origin[k]) * r.invDir[k]
		t2 := (b.Max[k] - r.Origin[k]) * r.invDir[k]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
	}
	if tMax < 0 || tMin > tMax || tMin > r.TMax {
		return 0, 0, false
	}
	if tMin < 0 {
		tMin = 0
	}
	return tMin, tMax, true
}

// Overlaps reports whether the box overlaps the sphere, together with
// the squared distances from the sphere center to the nearest and
// farthest points of the box.
func (b BoundingBox) Overlaps(s *BoundingSphere) (d2Min, d2Max float64, ok bool) {
	for k, c := range s.Center {
		if c < b.Min[k] {
			d := b.Min[k] - c
			d2Min += d * d
		} else if c > b.Max[k] {
			d := c - b.Max[k]
			d2Min += d * d
		}
		f := math.Max(c-b.Min[k], b.Max[k]-c)
		d2Max += f * f
	}
	return d2Min, d2Max, d2Min <= s.R2
}

// BoundingSphere carries the mutable state of one closest-point query:
// a center and a squared search radius R2, non-increasing within the
// query as better candidates are found. It must not be shared across
// concurrent queries.
type BoundingSphere struct {
	Center Vector
	R2     float64
}

// NewBoundingSphere builds a query sphere. Pass math.Inf(1) as r2 for
// an unbounded search.
func NewBoundingSphere(center Vector, r2 float64) *BoundingSphere {
	return &BoundingSphere{Center: center, R2: r2}
}

// Clone returns a sphere sharing the center but owning its own radius,
// for handing to an independently pruned sub-query.
func (s *BoundingSphere) Clone() *BoundingSphere {
	c := *s
	return &c
}
