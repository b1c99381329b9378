package geoprox

// Primitive is the capability contract shared by leaf geometry and by
// every aggregate in this package, so trees and CSG nodes nest freely
// (a CSG child may itself be a tree or another CSG node).
//
// Intersect reports the hits r makes against the primitive, count =
// len of the result. With checkOcclusion it may return after the first
// confirmed hit; with countHits it must return every crossing in
// ascending distance order. An implementation whose ray origin lies
// inside its solid must still report the exit crossing, so that the
// parity of its hit count encodes interior containment (CSG interval
// inference relies on this). Hits beyond r.TMax are not reported.
//
// ClosestPoint reports the closest point on the primitive to s.Center,
// or false when none lies within the search radius. Implementations
// must not report candidates with squared distance above s.R2.
//
// Zero hits and not-found are ordinary results, never errors.
type Primitive interface {
	BoundingBox() BoundingBox
	Centroid() Vector
	SurfaceArea() float64
	SignedVolume() float64
	Intersect(r *Ray, checkOcclusion, countHits bool) []Interaction
	ClosestPoint(s *BoundingSphere) (Interaction, bool)
}
