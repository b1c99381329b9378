package geoprox

import (
	"math"
)

// solidBox is the test leaf: an axis-aligned solid box with exact
// ray-crossing and closest-point math in any dimension. An interior ray
// origin reports only the exit crossing, so hit-count parity encodes
// containment as the Primitive contract requires.
type solidBox struct {
	min, max Vector
}

func newSolidBox(min, max Vector) *solidBox { return &solidBox{min: min, max: max} }

func (b *solidBox) BoundingBox() BoundingBox {
	return BoundingBox{Min: b.min.Clone(), Max: b.max.Clone(), IsTight: true}
}

func (b *solidBox) Centroid() Vector { return b.min.Add(b.max).Scaled(0.5) }

func (b *solidBox) SurfaceArea() float64 { return b.BoundingBox().SurfaceArea() }

func (b *solidBox) SignedVolume() float64 { return b.BoundingBox().Volume() }

func axisNormal(dim, axis int, negative bool) Vector {
	n := zeroVector(dim)
	n[axis] = 1
	if negative {
		n[axis] = -1
	}
	return n
}

func (b *solidBox) Intersect(r *Ray, checkOcclusion, countHits bool) []Interaction {
	tEnter, tExit := math.Inf(-1), math.Inf(1)
	enterAxis, exitAxis := 0, 0
	enterNeg, exitNeg := false, false
	for k := range b.min {
		d := r.Dir[k]
		if math.Abs(d) < 1e-15 {
			if r.Origin[k] < b.min[k] || r.Origin[k] > b.max[k] {
				return nil
			}
			continue
		}
		t1 := (b.min[k] - r.Origin[k]) / d
		t2 := (b.max[k] - r.Origin[k]) / d
		nearNeg, farNeg := d > 0, d < 0
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tEnter {
			tEnter, enterAxis, enterNeg = t1, k, nearNeg
		}
		if t2 < tExit {
			tExit, exitAxis, exitNeg = t2, k, farNeg
		}
	}
	if tEnter > tExit {
		return nil
	}

	dim := len(b.min)
	var is []Interaction
	if tEnter > 1e-12 && tEnter <= r.TMax {
		is = append(is, Interaction{
			D: tEnter, P: r.At(tEnter),
			N: axisNormal(dim, enterAxis, enterNeg), Sign: 1, Info: DistanceExact,
		})
	}
	if tExit > 1e-12 && tExit <= r.TMax {
		is = append(is, Interaction{
			D: tExit, P: r.At(tExit),
			N: axisNormal(dim, exitAxis, exitNeg), Sign: 1, Info: DistanceExact,
		})
	}
	if len(is) == 0 {
		return nil
	}
	if checkOcclusion || !countHits {
		return is[:1]
	}
	return is
}

func (b *solidBox) ClosestPoint(s *BoundingSphere) (Interaction, bool) {
	c := s.Center
	dim := len(c)
	inside := true
	for k := range b.min {
		if c[k] < b.min[k] || c[k] > b.max[k] {
			inside = false
			break
		}
	}

	if !inside {
		p := c.Clone()
		for k := range p {
			if p[k] < b.min[k] {
				p[k] = b.min[k]
			} else if p[k] > b.max[k] {
				p[k] = b.max[k]
			}
		}
		d := c.DistanceTo(p)
		if d*d > s.R2 {
			return Interaction{}, false
		}
		return Interaction{D: d, P: p, N: c.Sub(p).Normalized(), Sign: 1, Info: DistanceExact}, true
	}

	// interior center: project to the nearest face
	bestAxis, bestD := 0, math.Inf(1)
	toMax := false
	for k := range b.min {
		if d := c[k] - b.min[k]; d < bestD {
			bestAxis, bestD, toMax = k, d, false
		}
		if d := b.max[k] - c[k]; d < bestD {
			bestAxis, bestD, toMax = k, d, true
		}
	}
	if bestD*bestD > s.R2 {
		return Interaction{}, false
	}
	p := c.Clone()
	n := axisNormal(dim, bestAxis, true)
	if toMax {
		p[bestAxis] = b.max[bestAxis]
		n = axisNormal(dim, bestAxis, false)
	} else {
		p[bestAxis] = b.min[bestAxis]
	}
	return Interaction{D: bestD, P: p, N: n, Sign: -1, Info: DistanceExact}, true
}

// --- shared test helpers ---

func vec(components ...float64) Vector { return NewVector(components...) }

func box3(x0, y0, z0, x1, y1, z1 float64) *solidBox {
	return newSolidBox(vec(x0, y0, z0), vec(x1, y1, z1))
}

func ray3(ox, oy, oz, dx, dy, dz float64) *Ray {
	return NewRay(vec(ox, oy, oz), vec(dx, dy, dz), math.Inf(1))
}

// boxRow lays out n unit boxes along x with unit gaps: box i spans
// [2i, 2i+1] on x and [0,1] on the other axes.
func boxRow(n int) []Primitive {
	prims := make([]Primitive, n)
	for i := 0; i < n; i++ {
		x := float64(2 * i)
		prims[i] = box3(x, 0, 0, x+1, 1, 1)
	}
	return prims
}

func interactionDistances(is []Interaction) []float64 {
	ds := make([]float64, len(is))
	for i, it := range is {
		ds[i] = it.D
	}
	return ds
}
