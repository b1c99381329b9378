package geoprox

import (
	"math"
)

// BooleanOperation selects how a CSGNode combines its two children.
type BooleanOperation int

const (
	// OperationNone keeps both children ungrouped: queries merge the
	// two result streams without boolean trimming.
	OperationNone BooleanOperation = iota
	OperationUnion
	OperationIntersection
	OperationDifference
)

func (op BooleanOperation) String() string {
	switch op {
	case OperationUnion:
		return "union"
	case OperationIntersection:
		return "intersection"
	case OperationDifference:
		return "difference"
	default:
		return "none"
	}
}

// CSGNode combines two aggregates through a boolean set operation,
// evaluated on demand against the implicit composition. Children are
// shared values: one subtree may sit under several parents. The node is
// immutable once constructed.
type CSGNode struct {
	left, right Primitive
	operation   BooleanOperation
	box         BoundingBox
}

// NewCSGNode binds two children under op. Both children must be
// non-nil; violating that is a programmer error and panics.
func NewCSGNode(left, right Primitive, op BooleanOperation, opts ...Option) *CSGNode {
	cfg, err := newConfig(opts)
	if err != nil {
		panic(err)
	}
	if left == nil || right == nil {
		panic("geoprox: csg node children cannot be nil")
	}
	n := &CSGNode{left: left, right: right, operation: op}
	n.computeBoundingBox()
	cfg.logger.Debugw("csg node", "operation", op.String(), "tight", n.box.IsTight)
	return n
}

func (n *CSGNode) computeBoundingBox() {
	leftBox := n.left.BoundingBox()
	rightBox := n.right.BoundingBox()
	box := NewBoundingBox(leftBox.Dim())

	switch n.operation {
	case OperationIntersection:
		// the child box with the smaller squared extent; not the
		// tightest fit box
		if leftBox.Extent().SquaredNorm() < rightBox.Extent().SquaredNorm() {
			box.ExpandToIncludeBox(leftBox)
		} else {
			box.ExpandToIncludeBox(rightBox)
		}
		box.IsTight = false
	case OperationDifference:
		// the subtrahend cannot shrink the bound, so the left child's
		// box alone; not the tightest fit box
		box.ExpandToIncludeBox(leftBox)
		box.IsTight = false
	default:
		box.ExpandToIncludeBox(leftBox)
		box.ExpandToIncludeBox(rightBox)
		box.IsTight = leftBox.IsTight && rightBox.IsTight
	}
	n.box = box
}

// BoundingBox returns the eagerly computed bound.
func (n *CSGNode) BoundingBox() BoundingBox { return n.box }

// Centroid returns the bound's center.
func (n *CSGNode) Centroid() Vector { return n.box.Centroid() }

// SurfaceArea sums the children's areas, ignoring boolean topology; an
// overestimate.
func (n *CSGNode) SurfaceArea() float64 {
	return n.left.SurfaceArea() + n.right.SurfaceArea()
}

// SignedVolume overestimates the composed volume, clamped by the box
// volume (a degenerate box substitutes a large sentinel).
func (n *CSGNode) SignedVolume() float64 {
	boxVolume := n.box.Volume()
	if boxVolume == 0 {
		boxVolume = math.MaxFloat64
	}
	switch n.operation {
	case OperationIntersection:
		return math.Min(boxVolume, math.Min(n.left.SignedVolume(), n.right.SignedVolume()))
	case OperationDifference:
		return math.Min(boxVolume, n.left.SignedVolume())
	default:
		return math.Min(boxVolume, n.left.SignedVolume()+n.right.SignedVolume())
	}
}

// mergeInteractions runs the boundary-crossing merge over the two
// children's full, distance-sorted hit lists. Each list alternates
// interval-start/interval-end events; its starting parity is inferred
// from hit-count evenness (even count: the list begins on an interval
// start). Under Difference the right child uses the opposite
// convention, since entering the subtrahend exits the result. An event
// is emitted exactly when the inside-count crosses the membership pair
// the operation requires.
func (n *CSGNode) mergeInteractions(isLeft, isRight []Interaction) []Interaction {
	hitsLeft, hitsRight := len(isLeft), len(isRight)
	leftIntervalStart := hitsLeft%2 == 0
	rightIntervalStart := hitsRight%2 == 0
	if n.operation == OperationDifference {
		rightIntervalStart = hitsRight%2 == 1
	}
	counter := 0
	if !leftIntervalStart {
		counter++
	}
	if !rightIntervalStart {
		counter++
	}

	emit := func(before, after int) bool {
		if n.operation == OperationIntersection || n.operation == OperationDifference {
			return (before == 1 && after == 2) || (before == 2 && after == 1)
		}
		return (before == 0 && after == 1) || (before == 1 && after == 0)
	}

	var is []Interaction
	nLeft, nRight := 0, 0
	for nLeft != hitsLeft || nRight != hitsRight {
		// no further emissions possible
		if n.operation == OperationIntersection && (nLeft == hitsLeft || nRight == hitsRight) {
			break
		}
		if n.operation == OperationDifference && nLeft == hitsLeft {
			break
		}

		before := counter
		if nRight == hitsRight || (nLeft != hitsLeft && isLeft[nLeft].D < isRight[nRight].D) {
			if leftIntervalStart {
				counter++
			} else {
				counter--
			}
			leftIntervalStart = !leftIntervalStart
			if emit(before, counter) {
				is = append(is, isLeft[nLeft])
			}
			nLeft++
		} else {
			if rightIntervalStart {
				counter++
			} else {
				counter--
			}
			rightIntervalStart = !rightIntervalStart
			if emit(before, counter) {
				it := isRight[nRight]
				if n.operation == OperationDifference {
					// subtraction inverts the subtrahend's
					// boundary orientation
					it.N = it.N.Scaled(-1)
				}
				is = append(is, it)
			}
			nRight++
		}
	}
	return is
}

// Intersect queries both children for their full interval streams and
// combines them under the node's operation.
//
// TODO: short-circuit checkOcclusion once any emitted interval survives
// instead of running the full merge.
func (n *CSGNode) Intersect(r *Ray, checkOcclusion, countHits bool) []Interaction {
	if _, _, ok := n.box.Intersect(r); !ok {
		return nil
	}

	isLeft := n.left.Intersect(r.Clone(), false, true)
	// an empty left side forces emptiness for intersection and
	// difference, whatever the right side holds
	if len(isLeft) == 0 &&
		(n.operation == OperationIntersection || n.operation == OperationDifference) {
		return nil
	}

	isRight := n.right.Intersect(r.Clone(), false, true)
	if len(isLeft) == 0 && len(isRight) == 0 {
		return nil
	}

	var is []Interaction
	switch {
	case len(isLeft) > 0 && len(isRight) > 0:
		if n.operation == OperationNone {
			is = mergeSortedInteractions(isLeft, isRight)
		} else {
			is = n.mergeInteractions(isLeft, isRight)
		}
	case len(isLeft) > 0:
		if n.operation == OperationIntersection {
			return nil
		}
		is = isLeft
	default:
		// reached only for union/none: the other operations returned
		// on the empty left side above
		is = isRight
	}

	if len(is) > 0 && !countHits {
		if is[0].D < r.TMax {
			r.TMax = is[0].D
		}
		is = is[:1]
	}
	return is
}

// ClosestPoint queries both children independently and combines the
// candidates through signed distances (negative inside), propagating
// whether the chosen distance is exact or merely a safe bound.
func (n *CSGNode) ClosestPoint(s *BoundingSphere) (Interaction, bool) {
	if _, _, ok := n.box.Overlaps(s); !ok {
		return Interaction{}, false
	}

	iLeft, foundLeft := n.left.ClosestPoint(s.Clone())
	if !foundLeft &&
		(n.operation == OperationIntersection || n.operation == OperationDifference) {
		return Interaction{}, false
	}

	iRight, foundRight := n.right.ClosestPoint(s.Clone())
	if !foundLeft && !foundRight {
		return Interaction{}, false
	}

	var i Interaction
	switch {
	case foundLeft && foundRight:
		sdLeft := iLeft.SignedDistance(s.Center)
		sdRight := iRight.SignedDistance(s.Center)
		bothExact := iLeft.Info == DistanceExact && iRight.Info == DistanceExact

		switch n.operation {
		case OperationUnion:
			if sdLeft < sdRight {
				i = iLeft
			} else {
				i = iRight
			}
			i.Info = DistanceBounded
			if bothExact && sdLeft > 0 && sdRight > 0 {
				i.Info = DistanceExact
			}
		case OperationIntersection:
			if sdLeft > sdRight {
				i = iLeft
			} else {
				i = iRight
			}
			i.Info = DistanceBounded
			if bothExact && sdLeft < 0 && sdRight < 0 {
				i.Info = DistanceExact
			}
		case OperationDifference:
			iRight.N = iRight.N.Scaled(-1)
			iRight.Sign = -iRight.Sign
			if sdLeft > -sdRight {
				i = iLeft
			} else {
				i = iRight
			}
			i.Info = DistanceBounded
			if bothExact && sdLeft < 0 && sdRight > 0 {
				i.Info = DistanceExact
			}
		default:
			// ungrouped coexistence: the closer of the two
			if iLeft.D < iRight.D {
				i = iLeft
			} else {
				i = iRight
			}
		}
	case foundLeft:
		if n.operation == OperationIntersection {
			return Interaction{}, false
		}
		i = iLeft
	default:
		i = iRight
	}

	if d2 := i.D * i.D; d2 < s.R2 {
		s.R2 = d2
	}
	return i, true
}
