package geoprox

import (
	"time"

	"github.com/pkg/errors"
)

// flatNode is one entry of a flattened binary tree stored in depth-first
// preorder: the left child of an internal node is the next entry, the
// right child sits rightOffset entries ahead. rightOffset == 0 marks a
// leaf, whose start/count index a reordered reference array.
type flatNode struct {
	box         BoundingBox
	start       int
	count       int
	rightOffset int
}

// traversal is one pending stack entry during a query.
type traversal struct {
	node  int
	tNear float64
}

// BVH is a flattened median-split binary tree over a caller-owned
// primitive slice. The slice is held by reference and never reordered;
// the caller must keep it alive and unmodified after the build. Built
// trees are immutable and safe for concurrent queries as long as each
// query owns its Ray or BoundingSphere.
type BVH struct {
	primitives []Primitive
	indices    []int
	flatTree   []flatNode
	dim        int
	leafSize   int
	nLeaves    int

	// cached per-primitive bounds, build only
	boxes     []BoundingBox
	centroids []Vector
}

// NewBVH builds the tree. The primitive list must be non-empty and all
// primitives must share one ambient dimension.
func NewBVH(primitives []Primitive, opts ...Option) (*BVH, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if len(primitives) == 0 {
		return nil, errors.New("bvh: primitive list is empty")
	}

	b := &BVH{
		primitives: primitives,
		indices:    make([]int, len(primitives)),
		dim:        primitives[0].BoundingBox().Dim(),
		leafSize:   cfg.leafSize,
		boxes:      make([]BoundingBox, len(primitives)),
		centroids:  make([]Vector, len(primitives)),
	}
	for i, p := range primitives {
		b.indices[i] = i
		b.boxes[i] = p.BoundingBox()
		b.centroids[i] = p.Centroid()
		if b.boxes[i].Dim() != b.dim {
			return nil, errors.Errorf("bvh: primitive %d has dimension %d, want %d", i, b.boxes[i].Dim(), b.dim)
		}
	}

	start := time.Now()
	b.buildRange(0, len(primitives))
	b.boxes, b.centroids = nil, nil
	cfg.logger.Debugw("built bvh",
		"primitives", len(primitives),
		"nodes", len(b.flatTree),
		"leaves", b.nLeaves,
		"leafSize", b.leafSize,
		"elapsed", time.Since(start),
	)
	return b, nil
}

// buildRange emits the subtree over indices[start:end) in preorder.
func (b *BVH) buildRange(start, end int) {
	node := len(b.flatTree)
	b.flatTree = append(b.flatTree, flatNode{})

	bb := NewBoundingBox(b.dim)
	cb := NewBoundingBox(b.dim)
	for i := start; i < end; i++ {
		bb.ExpandToIncludeBox(b.boxes[b.indices[i]])
		cb.ExpandToIncludePoint(b.centroids[b.indices[i]])
	}

	if end-start <= b.leafSize {
		b.flatTree[node] = flatNode{box: bb, start: start, count: end - start}
		b.nLeaves++
		return
	}

	// axis of largest centroid spread; if all centroids coincide,
	// fall back to the longest box extent axis
	axis := cb.MaxDimension()
	if cb.Extent()[axis] <= 1e-18 {
		axis = bb.MaxDimension()
	}
	split := 0.5 * (cb.Min[axis] + cb.Max[axis])

	// partition the index range: centroids at or below the split go left
	mid := start
	for i := start; i < end; i++ {
		if b.centroids[b.indices[i]][axis] <= split {
			b.indices[i], b.indices[mid] = b.indices[mid], b.indices[i]
			mid++
		}
	}
	if mid == start || mid == end {
		mid = start + (end-start)/2
	}

	b.buildRange(start, mid)
	b.flatTree[node] = flatNode{box: bb, rightOffset: len(b.flatTree) - node}
	b.buildRange(mid, end)
}

// BoundingBox returns the root bound.
func (b *BVH) BoundingBox() BoundingBox { return b.flatTree[0].box }

// Centroid returns the root bound's center.
func (b *BVH) Centroid() Vector { return b.flatTree[0].box.Centroid() }

// SurfaceArea returns the summed surface area of the primitives.
func (b *BVH) SurfaceArea() float64 {
	area := 0.0
	for _, p := range b.primitives {
		area += p.SurfaceArea()
	}
	return area
}

// SignedVolume returns the summed signed volume of the primitives.
func (b *BVH) SignedVolume() float64 {
	vol := 0.0
	for _, p := range b.primitives {
		vol += p.SignedVolume()
	}
	return vol
}

// Intersect descends only into nodes whose box overlaps the ray, with
// near-to-far child ordering. Leaves test every primitive in range.
// When not counting hits, r.TMax shrinks to the nearest confirmed hit
// to prune the remaining traversal.
func (b *BVH) Intersect(r *Ray, checkOcclusion, countHits bool) []Interaction {
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
		node := &b.flatTree[e.node]

		if node.rightOffset == 0 {
			for i := node.start; i < node.start+node.count; i++ {
				idx := b.indices[i]
				hits := b.primitives[idx].Intersect(r, checkOcclusion, countHits)
				if len(hits) == 0 {
					continue
				}
				for j := range hits {
					hits[j].primIndex = idx
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
		tLeft, _, okLeft := b.flatTree[left].box.Intersect(r)
		tRight, _, okRight := b.flatTree[right].box.Intersect(r)
		switch {
		case okLeft && okRight:
			// push far first so the near child is processed next
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
		return all
	}
	if found {
		return []Interaction{nearest}
	}
	return nil
}

// ClosestPoint descends only into nodes whose box overlaps the sphere,
// keeping the best interaction and shrinking the sphere's squared
// radius as candidates improve.
func (b *BVH) ClosestPoint(s *BoundingSphere) (Interaction, bool) {
	var best Interaction
	found := false

	stack := make([]traversal, 1, 64)
	stack[0] = traversal{node: 0}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.tNear > s.R2 {
			continue
		}
		node := &b.flatTree[e.node]

		if node.rightOffset == 0 {
			for i := node.start; i < node.start+node.count; i++ {
				idx := b.indices[i]
				it, ok := b.primitives[idx].ClosestPoint(s)
				if !ok {
					continue
				}
				it.primIndex = idx
				if !found || it.D < best.D {
					best = it
					found = true
				}
				if d2 := it.D * it.D; d2 < s.R2 {
					s.R2 = d2
				}
			}
			continue
		}

		left, right := e.node+1, e.node+node.rightOffset
		dLeft, _, okLeft := b.flatTree[left].box.Overlaps(s)
		dRight, _, okRight := b.flatTree[right].box.Overlaps(s)
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
