package filament

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Split cuts the filament at segments i and j (i < j), producing two
// filaments: the first keeps nodes i+1..j, the second keeps the
// complementary arc j+1..i (traversing the parent's wrap). The shift is
// the periodic displacement applied to the first child's closure; the
// children's offsets sum to the parent's offset plus shift.
//
// A child below its method's minimum node count is returned as nil with
// [ErrDegenerate]; the other child is still valid.
func (f *Filament) Split(i, j int, shift r3.Vec) (*Filament, *Filament, error) {
	n := f.NumNodes()
	if i < 1 || j <= i || j > n {
		return nil, nil, fmt.Errorf("filament: invalid split segments (%d, %d) for N=%d", i, j, n)
	}

	ptsA := make([]r3.Vec, 0, j-i)
	for l := i + 1; l <= j; l++ {
		ptsA = append(ptsA, f.X.At(l))
	}
	ptsB := make([]r3.Vec, 0, n-(j-i))
	for l := j + 1; l <= n; l++ {
		ptsB = append(ptsB, f.X.At(l))
	}
	for l := 1; l <= i; l++ {
		ptsB = append(ptsB, r3.Add(f.X.At(l), f.Offset))
	}

	var firstErr error
	a, err := New(ptsA, f.method, shift)
	if err != nil {
		a, firstErr = nil, err
	}
	b, err := New(ptsB, f.method, f.Offset)
	if err != nil {
		b = nil
		if firstErr == nil {
			firstErr = err
		}
	}
	return a, b, firstErr
}

// Merge rewires two filaments into one: the result traverses f up to
// node i, jumps by shift onto other at node j+1, follows other for a
// full period back to node j, then jumps back and continues f from node
// i+1. The merged offset is the sum of the parents' offsets (the shift
// cancels over the loop).
func (f *Filament) Merge(other *Filament, i, j int, shift r3.Vec) (*Filament, error) {
	na, nb := f.NumNodes(), other.NumNodes()
	if i < 1 || i > na || j < 1 || j > nb {
		return nil, fmt.Errorf("filament: invalid merge nodes (%d, %d) for N=(%d, %d)", i, j, na, nb)
	}

	pts := make([]r3.Vec, 0, na+nb)
	for l := 1; l <= i; l++ {
		pts = append(pts, f.X.At(l))
	}
	for l := j + 1; l <= j+nb; l++ {
		v := other.X.At(wrapIndex(l, nb))
		if l > nb {
			v = r3.Add(v, other.Offset)
		}
		pts = append(pts, r3.Add(v, shift))
	}
	for l := i + 1; l <= na; l++ {
		pts = append(pts, f.X.At(l))
	}
	return New(pts, f.method, r3.Add(f.Offset, other.Offset))
}
