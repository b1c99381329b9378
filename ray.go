package geoprox

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Direction components below this magnitude are treated as parallel to
// the corresponding slab.
const parallelEps = 1e-18

// Ray carries the mutable state of one intersection query: TMax shrinks
// as closer hits are confirmed, pruning the rest of the traversal. A
// Ray must not be shared across concurrent queries.
type Ray struct {
	Origin Vector
	Dir    Vector
	TMax   float64

	// cached reciprocals of Dir; zero where parallel[k] is set
	invDir   Vector
	parallel []bool
}

// NewRay builds a ray with precomputed direction reciprocals. Pass
// math.Inf(1) as tMax for an unbounded query.
func NewRay(origin, dir Vector, tMax float64) *Ray {
	r := &Ray{
		Origin:   origin,
		Dir:      dir,
		TMax:     tMax,
		invDir:   make(Vector, len(dir)),
		parallel: make([]bool, len(dir)),
	}
	for k, d := range dir {
		if d > parallelEps || d < -parallelEps {
			r.invDir[k] = 1 / d
		} else {
			r.parallel[k] = true
		}
	}
	return r
}

// At returns the point origin + t*dir.
func (r *Ray) At(t float64) Vector {
	p := make(Vector, len(r.Origin))
	floats.AddScaledTo(p, r.Origin, t, r.Dir)
	return p
}

// Clone returns a ray sharing the immutable origin/direction but owning
// its own TMax, for handing to an independently pruned sub-query.
func (r *Ray) Clone() *Ray {
	c := *r
	return &c
}

// Unbounded resets TMax to +inf and returns the ray, for reuse in tests
// and repeated queries.
func (r *Ray) Unbounded() *Ray {
	r.TMax = math.Inf(1)
	return r
}
