package domain

import "fmt"

// And intersects two masks: set where both are set. The persistence mask of
// a multi-period comparison is the AND across all periods.
func And(a, b *Mask) (*Mask, error) {
	if !a.Grid.Equal(b.Grid) {
		return nil, fmt.Errorf("mask and: grids differ")
	}
	out := NewMask(a.Grid)
	for i := range out.set {
		out.set[i] = a.set[i] && b.set[i]
	}
	return out, nil
}

// Or unions two masks: set where either is set.
func Or(a, b *Mask) (*Mask, error) {
	if !a.Grid.Equal(b.Grid) {
		return nil, fmt.Errorf("mask or: grids differ")
	}
	out := NewMask(a.Grid)
	for i := range out.set {
		out.set[i] = a.set[i] || b.set[i]
	}
	return out, nil
}

// AndAll folds And over one or more masks.
func AndAll(masks ...*Mask) (*Mask, error) {
	if len(masks) == 0 {
		return nil, fmt.Errorf("mask and: no masks given")
	}
	out := masks[0].Clone()
	for _, m := range masks[1:] {
		var err error
		out, err = And(out, m)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// OrAll folds Or over one or more masks.
func OrAll(masks ...*Mask) (*Mask, error) {
	if len(masks) == 0 {
		return nil, fmt.Errorf("mask or: no masks given")
	}
	out := masks[0].Clone()
	for _, m := range masks[1:] {
		var err error
		out, err = Or(out, m)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Similarity captures the cross-period overlap of hotspot masks.
type Similarity struct {
	IntersectionAreaM2 float64
	UnionAreaM2        float64
	// Jaccard is intersection/union, nil when the union area is zero (no
	// hotspots in any period) — undefined, not zero and not an error.
	Jaccard *float64
}

// NewSimilarity computes the Jaccard index from intersection and union
// areas, leaving it undefined for a zero union.
func NewSimilarity(intersectionM2, unionM2 float64) Similarity {
	s := Similarity{IntersectionAreaM2: intersectionM2, UnionAreaM2: unionM2}
	if unionM2 > 0 {
		j := intersectionM2 / unionM2
		s.Jaccard = &j
	}
	return s
}
