package filament

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/padded"
)

// RefinementCriterion decides, per segment of an unmodified filament,
// whether to insert a midpoint node and whether the segment's end node
// may be removed. Decisions are combined into a single-pass plan;
// adjacent removals are suppressed by the planner.
type RefinementCriterion interface {
	// decide inspects segment i (nodes i and i+1) and reports whether a
	// node should be inserted at its midpoint and whether node i+1
	// should be removed.
	decide(f *Filament, i int) (insert, remove bool)
}

// NoRefinement leaves the filament untouched.
type NoRefinement struct{}

func (NoRefinement) decide(*Filament, int) (bool, bool) { return false, false }

// BasedOnSegmentLength inserts a midpoint in segments longer than LMax
// and removes nodes closing segments shorter than LMin, unless the
// coalesced segment would itself exceed LMax.
type BasedOnSegmentLength struct {
	LMin, LMax float64
}

func (c BasedOnSegmentLength) decide(f *Filament, i int) (insert, remove bool) {
	l := f.SegmentLength(i)
	if l > c.LMax {
		return true, false
	}
	if l < c.LMin && f.coalescedLength(i) <= c.LMax {
		return false, true
	}
	return false, false
}

// BasedOnCurvature gates decisions on the product of segment length and
// segment-averaged curvature ρ = (κ(i) + κ(i+1))/2, with the absolute
// bounds LMin and LMax still enforced.
type BasedOnCurvature struct {
	RLMax, RLMin float64
	LMin, LMax   float64
}

func (c BasedOnCurvature) decide(f *Filament, i int) (insert, remove bool) {
	l := f.SegmentLength(i)
	rho := 0.5 * (f.CurvatureScalar(i, 0) + f.CurvatureScalar(i, 1))
	rl := rho * l
	if l > c.LMax || (rl > c.RLMax && l > 2*c.LMin) {
		return true, false
	}
	if rl < c.RLMin && l < c.LMax && f.coalescedLength(i) <= c.LMax {
		return false, true
	}
	return false, false
}

// coalescedLength is the chord length of the segment that would result
// from removing node i+1.
func (f *Filament) coalescedLength(i int) float64 {
	return r3.Norm(r3.Sub(f.X.At(i+2), f.X.At(i)))
}

// Refine applies the criterion in a single pass: all decisions are
// taken on the unmodified filament, then insertions and removals are
// applied together, knots are recomputed and coefficients refreshed.
// Two adjacent removals are never performed in one pass.
//
// Returns the number of inserted and removed nodes. If the filament
// drops below its method's minimum node count the error is
// [ErrDegenerate] and the filament is left unmodified; the caller must
// drop it.
func (f *Filament) Refine(crit RefinementCriterion) (inserted, removed int, err error) {
	n := f.NumSegments()
	insertAt := make([]bool, n+1)   // per segment 1..n
	removeNode := make([]bool, n+1) // per node 1..n
	mids := make([]r3.Vec, n+1)

	for i := 1; i <= n; i++ {
		ins, rem := crit.decide(f, i)
		if ins {
			insertAt[i] = true
			mids[i] = f.Evaluate(i, 0.5, 0)
			inserted++
		}
		if rem {
			node := i + 1
			if node > n {
				node = 1
			}
			prev := node - 1
			if prev < 1 {
				prev = n
			}
			next := node + 1
			if next > n {
				next = 1
			}
			// forbid adjacent removals within one pass
			if !removeNode[prev] && !removeNode[next] && !removeNode[node] {
				removeNode[node] = true
				removed++
			}
		}
	}
	if inserted == 0 && removed == 0 {
		return 0, 0, nil
	}

	points := make([]r3.Vec, 0, n+inserted-removed)
	for i := 1; i <= n; i++ {
		if !removeNode[i] {
			points = append(points, f.X.At(i))
		}
		if insertAt[i] {
			points = append(points, mids[i])
		}
	}
	if len(points) < f.method.MinNodes() {
		return inserted, removed, ErrDegenerate
	}

	f.rebuild(points)
	return inserted, removed, nil
}

// rebuild replaces the node set, recomputes arc-length knots and
// refreshes coefficients. The offset is preserved.
func (f *Filament) rebuild(points []r3.Vec) {
	m := f.method.PadWidth()
	f.X = padded.FromSlice(points, m)
	f.Knots = padded.New[float64](len(points), m)
	f.allocCoefficients()
	f.ResetKnots()
	f.UpdateCoefficients()
}
