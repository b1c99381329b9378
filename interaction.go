package geoprox

import (
	"math"
	"sort"
)

// DistanceInfo marks whether an interaction's distance is provably the
// true closest distance or only a safe bound. Bounds appear whenever a
// result was derived through an approximate bounding volume, e.g.
// inside CSG composition.
type DistanceInfo int

const (
	DistanceExact DistanceInfo = iota
	DistanceBounded
)

// Interaction is one reported hit or closest-point candidate.
type Interaction struct {
	D    float64      // distance along the query
	P    Vector       // hit point or closest point
	N    Vector       // surface normal at P
	Sign int          // -1 inside, +1 outside, 0 unknown
	Info DistanceInfo

	// index of the source primitive within its aggregate, stamped
	// during traversal; used to collapse duplicates from spatially
	// split references
	primIndex int
}

// SignedDistance returns the signed distance from x to the interaction
// point, negative when x is inside the solid.
func (it *Interaction) SignedDistance(x Vector) float64 {
	return float64(it.Sign) * x.DistanceTo(it.P)
}

// sortInteractions orders a hit list by ascending distance, breaking
// ties by primitive so duplicate collapsing sees them adjacent.
func sortInteractions(is []Interaction) {
	sort.Slice(is, func(i, j int) bool {
		if is[i].D != is[j].D {
			return is[i].D < is[j].D
		}
		return is[i].primIndex < is[j].primIndex
	})
}

// dedupInteractions collapses adjacent entries reported by the same
// primitive at (numerically) the same distance. The input must already
// be sorted by sortInteractions.
func dedupInteractions(is []Interaction) []Interaction {
	if len(is) < 2 {
		return is
	}
	out := is[:1]
	for _, it := range is[1:] {
		last := &out[len(out)-1]
		if it.primIndex == last.primIndex && math.Abs(it.D-last.D) < 1e-12 {
			continue
		}
		out = append(out, it)
	}
	return out
}

// mergeSortedInteractions merges two distance-ascending lists into one.
func mergeSortedInteractions(a, b []Interaction) []Interaction {
	out := make([]Interaction, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].D <= b[j].D {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
