// Package geoprox answers ray-intersection and closest-point queries
// over collections of geometric primitives embedded in an arbitrary
// fixed dimension, accelerated by bounding-volume trees and CSG
// composition nodes. Leaf primitive math is supplied by the caller
// through the Primitive interface.
package geoprox

import (
	"gonum.org/v1/gonum/floats"
)

// Vector is a point or direction in the ambient space. All vectors fed
// to one structure must share the same length; the dimension is fixed
// at build time.
type Vector []float64

// NewVector builds a vector from its components.
func NewVector(components ...float64) Vector {
	v := make(Vector, len(components))
	copy(v, components)
	return v
}

func zeroVector(dim int) Vector { return make(Vector, dim) }

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

// Add returns a + b.
func (a Vector) Add(b Vector) Vector {
	out := make(Vector, len(a))
	floats.AddTo(out, a, b)
	return out
}

// Sub returns a - b.
func (a Vector) Sub(b Vector) Vector {
	out := make(Vector, len(a))
	floats.SubTo(out, a, b)
	return out
}

// Scaled returns v scaled by s.
func (v Vector) Scaled(s float64) Vector {
	out := make(Vector, len(v))
	floats.ScaleTo(out, s, v)
	return out
}

// Dot returns the dot product of a and b.
func (a Vector) Dot(b Vector) float64 { return floats.Dot(a, b) }

// SquaredNorm returns the squared Euclidean length.
func (v Vector) SquaredNorm() float64 { return floats.Dot(v, v) }

// Norm returns the Euclidean length.
func (v Vector) Norm() float64 { return floats.Norm(v, 2) }

// DistanceTo returns the Euclidean distance between a and b.
func (a Vector) DistanceTo(b Vector) float64 { return floats.Distance(a, b, 2) }

// Normalized returns a unit-length version of the vector. A (near)
// zero vector is returned unchanged, as-is.
func (v Vector) Normalized() Vector {
	l := v.Norm()
	if l == 0 {
		return v.Clone()
	}
	return v.Scaled(1 / l)
}
