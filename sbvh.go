package geoprox

import (
	"math"
	"sort"
	"time"

	"github.com/golang/geo/r1"
	"github.com/pkg/errors"
)

// Overhang required on both sides of a split plane before a straddling
// reference is divided instead of routed by centroid.
const straddleEps = 1e-9

// reference binds a primitive index to the box it occupies within one
// subtree. A spatially split primitive is referenced from both children
// with clipped (hence non-tight) boxes.
type reference struct {
	prim int
	box  BoundingBox
}

// SBVH is the heuristic variant of BVH: a configurable cost heuristic
// selects split planes and primitives straddling a chosen plane may be
// divided across both children, trading build cost and possible
// duplication for tighter trees. The query contract is identical to
// BVH.
type SBVH struct {
	primitives []Primitive
	references []reference
	flatTree   []flatNode
	dim        int
	leafSize   int
	binCount   int
	heuristic  CostHeuristic
	nLeaves    int
}

// NewSBVH builds the tree, honoring WithCostHeuristic and WithBinCount.
func NewSBVH(primitives []Primitive, opts ...Option) (*SBVH, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if len(primitives) == 0 {
		return nil, errors.New("sbvh: primitive list is empty")
	}

	s := &SBVH{
		primitives: primitives,
		dim:        primitives[0].BoundingBox().Dim(),
		leafSize:   cfg.leafSize,
		binCount:   cfg.binCount,
		heuristic:  cfg.heuristic,
	}
	refs := make([]reference, len(primitives))
	for i, p := range primitives {
		refs[i] = reference{prim: i, box: p.BoundingBox()}
		if refs[i].box.Dim() != s.dim {
			return nil, errors.Errorf("sbvh: primitive %d has dimension %d, want %d", i, refs[i].box.Dim(), s.dim)
		}
	}

	start := time.Now()
	s.buildNode(refs)
	cfg.logger.Debugw("built sbvh",
		"primitives", len(primitives),
		"references", len(s.references),
		"nodes", len(s.flatTree),
		"leaves", s.nLeaves,
		"heuristic", s.heuristic,
		"elapsed", time.Since(start),
	)
	return s, nil
}

// buildNode emits the subtree over refs in preorder.
func (s *SBVH) buildNode(refs []reference) {
	node := len(s.flatTree)
	s.flatTree = append(s.flatTree, flatNode{})

	bb := NewBoundingBox(s.dim)
	for _, ref := range refs {
		bb.ExpandToIncludeBox(ref.box)
	}

	if len(refs) <= s.leafSize {
		start := len(s.references)
		s.references = append(s.references, refs...)
		s.flatTree[node] = flatNode{box: bb, start: start, count: len(refs)}
		s.nLeaves++
		return
	}

	cb := NewBoundingBox(s.dim)
	for _, ref := range refs {
		cb.ExpandToIncludePoint(ref.box.Centroid())
	}
	axis := cb.MaxDimension()
	if cb.Extent()[axis] <= 1e-18 {
		axis = bb.MaxDimension()
	}

	extent := r1.Interval{Lo: bb.Min[axis], Hi: bb.Max[axis]}
	split := 0.5 * (cb.Min[axis] + cb.Max[axis])
	if s.heuristic == CostSurfaceArea && extent.Length() > 0 {
		split = s.binnedSplit(refs, axis, extent)
	}

	var left, right []reference
	for _, ref := range refs {
		span := r1.Interval{Lo: ref.box.Min[axis], Hi: ref.box.Max[axis]}
		switch {
		case span.Hi <= split:
			left = append(left, ref)
		case span.Lo >= split:
			right = append(right, ref)
		case s.heuristic == CostSurfaceArea &&
			split-span.Lo > straddleEps && span.Hi-split > straddleEps:
			l, r := clipReference(ref, axis, split)
			left = append(left, l)
			right = append(right, r)
		default:
			if ref.box.Centroid()[axis] <= split {
				left = append(left, ref)
			} else {
				right = append(right, ref)
			}
		}
	}

	// degenerate partition (one side empty, or straddle splits gave a
	// child as many references as its parent): fall back to an
	// in-place median split so the recursion always shrinks
	if len(left) == 0 || len(right) == 0 ||
		len(left) >= len(refs) || len(right) >= len(refs) {
		sort.Slice(refs, func(i, j int) bool {
			return refs[i].box.Centroid()[axis] < refs[j].box.Centroid()[axis]
		})
		mid := len(refs) / 2
		left, right = refs[:mid], refs[mid:]
	}

	s.buildNode(left)
	s.flatTree[node] = flatNode{box: bb, rightOffset: len(s.flatTree) - node}
	s.buildNode(right)
}

// binnedSplit sweeps binCount uniform bins along axis and returns the
// boundary minimizing leftArea*leftCount + rightArea*rightCount.
func (s *SBVH) binnedSplit(refs []reference, axis int, extent r1.Interval) float64 {
	type bin struct {
		box   BoundingBox
		count int
	}
	bins := make([]bin, s.binCount)
	for i := range bins {
		bins[i].box = NewBoundingBox(s.dim)
	}
	width := extent.Length() / float64(s.binCount)
	for _, ref := range refs {
		i := int((ref.box.Centroid()[axis] - extent.Lo) / width)
		if i < 0 {
			i = 0
		} else if i >= s.binCount {
			i = s.binCount - 1
		}
		bins[i].box.ExpandToIncludeBox(ref.box)
		bins[i].count++
	}

	// prefix sweep
	leftArea := make([]float64, s.binCount)
	leftCount := make([]int, s.binCount)
	acc := NewBoundingBox(s.dim)
	n := 0
	for i := 0; i < s.binCount-1; i++ {
		if bins[i].count > 0 {
			acc.ExpandToIncludeBox(bins[i].box)
		}
		n += bins[i].count
		leftArea[i], leftCount[i] = acc.SurfaceArea(), n
	}

	// suffix sweep, tracking the cheapest boundary
	bestCost := math.MaxFloat64
	best := 0.5 * (extent.Lo + extent.Hi)
	acc = NewBoundingBox(s.dim)
	n = 0
	for i := s.binCount - 1; i >= 1; i-- {
		if bins[i].count > 0 {
			acc.ExpandToIncludeBox(bins[i].box)
		}
		n += bins[i].count
		if leftCount[i-1] == 0 || n == 0 {
			continue
		}
		cost := leftArea[i-1]*float64(leftCount[i-1]) + acc.SurfaceArea()*float64(n)
		if cost < bestCost {
			bestCost = cost
			best = extent.Lo + width*float64(i)
		}
	}
	return best
}

// clipReference divides a straddling reference at the split plane. The
// clipped boxes bound the clipped geometry conservatively, so they are
// marked non-tight.
func clipReference(ref reference, axis int, split float64) (reference, reference) {
	l := reference{prim: ref.prim, box: cloneBox(ref.box)}
	r := reference{prim: ref.prim, box: cloneBox(ref.box)}
	l.box.Max[axis] = split
	r.box.Min[axis] = split
	l.box.IsTight = false
	r.box.IsTight = false
	return l, r
}

func cloneBox(b BoundingBox) BoundingBox {
	return BoundingBox{Min: b.Min.Clone(), Max: b.Max.Clone(), IsTight: b.IsTight}
}

// BoundingBox returns the root bound.
func (s *SBVH) BoundingBox() BoundingBox { return s.flatTree[0].box }

// Centroid returns the root bound's center.
func (s *SBVH) Centroid() Vector { return s.flatTree[0].box.Centroid() }

// SurfaceArea returns the summed surface area of the primitives.
func (s *SBVH) SurfaceArea() float64 {
	area := 0.0
	for _, p := range s.primitives {
		area += p.SurfaceArea()
	}
	return area
}

// SignedVolume returns the summed signed volume of the primitives.
func (s *SBVH) SignedVolume() float64 {
	vol := 0.0
	for _, p := range s.primitives {
		vol += p.SignedVolume()
	}
	return vol
}

// Intersect mirrors BVH.Intersect; leaves additionally cull through the
// per-reference box, and full hit lists are de-duplicated because a
// spatially split primitive may be reached through both children.
func (s *SBVH) Intersect(r *Ray, checkOcclusion, countHits bool) []Interaction {
	var all []Interaction
	var nearest Interaction
	found := false

	stack := make([]traversal, 1, 64)
	stack[0] = traversal{node: 0}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.tNear > r.TMax {
			continue
		}
		node := &s.flatTree[e.node]

		if node.rightOffset == 0 {
			for i := node.start; i < node.start+node.count; i++ {
				ref := s.references[i]
				if _, _, ok := ref.box.Intersect(r); !ok {
					continue
				}
				hits := s.primitives[ref.prim].Intersect(r, checkOcclusion, countHits)
				if len(hits) == 0 {
					continue
				}
				for j := range hits {
					hits[j].primIndex = ref.prim
				}
				if checkOcclusion {
					return hits[:1]
				}
				if countHits {
					all = append(all, hits...)
					continue
				}
				for _, h := range hits {
					if !found || h.D < nearest.D {
						nearest = h
						found = true
					}
				}
				if found && nearest.D < r.TMax {
					r.TMax = nearest.D
				}
			}
			continue
		}

		left, right := e.node+1, e.node+node.rightOffset
		tLeft, _, okLeft := s.flatTree[left].box.Intersect(r)
		tRight, _, okRight := s.flatTree[right].box.Intersect(r)
		switch {
		case okLeft && okRight:
			if tLeft <= tRight {
				stack = append(stack, traversal{right, tRight}, traversal{left, tLeft})
			} else {
				stack = append(stack, traversal{left, tLeft}, traversal{right, tRight})
			}
		case okLeft:
			stack = append(stack, traversal{left, tLeft})
		case okRight:
			stack = append(stack, traversal{right, tRight})
		}
	}

	if countHits {
		sortInteractions(all)
		return dedupInteractions(all)
	}
	if found {
		return []Interaction{nearest}
	}
	return nil
}

// ClosestPoint mirrors BVH.ClosestPoint with per-reference box culling.
// Duplicated references are harmless here: both report the same best
// candidate.
func (s *SBVH) ClosestPoint(sp *BoundingSphere) (Interaction, bool) {
	var best Interaction
	found := false

	stack := make([]traversal, 1, 64)
	stack[0] = traversal{node: 0}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.tNear > sp.R2 {
			continue
		}
		node := &s.flatTree[e.node]

		if node.rightOffset == 0 {
			for i := node.start; i < node.start+node.count; i++ {
				ref := s.references[i]
				if _, _, ok := ref.box.Overlaps(sp); !ok {
					continue
				}
				it, ok := s.primitives[ref.prim].ClosestPoint(sp)
				if !ok {
					continue
				}
				it.primIndex = ref.prim
				if !found || it.D < best.D {
					best = it
					found = true
				}
				if d2 := it.D * it.D; d2 < sp.R2 {
					sp.R2 = d2
				}
			}
			continue
		}

		left, right := e.node+1, e.node+node.rightOffset
		dLeft, _, okLeft := s.flatTree[left].box.Overlaps(sp)
		dRight, _, okRight := s.flatTree[right].box.Overlaps(sp)
		switch {
		case okLeft && okRight:
			if dLeft <= dRight {
				stack = append(stack, traversal{right, dRight}, traversal{left, dLeft})
			} else {
				stack = append(stack, traversal{left, dLeft}, traversal{right, dRight})
			}
		case okLeft:
			stack = append(stack, traversal{left, dLeft})
		case okRight:
			stack = append(stack, traversal{right, dRight})
		}
	}
	return best, found
}
