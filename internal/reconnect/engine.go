package reconnect

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/cells"
	"github.com/san-kum/vortexsim/internal/filament"
	"github.com/san-kum/vortexsim/internal/quadrature"
)

// Mode tells a callback what happened to a filament during surgery.
type Mode int

const (
	// Modified: the filament at this index was rewired in place.
	Modified Mode = iota
	// Appended: a new filament was added at this index.
	Appended
	// Removed: the filament at this index is gone.
	Removed
)

func (m Mode) String() string {
	switch m {
	case Modified:
		return "modified"
	case Appended:
		return "appended"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Callback observes each affected filament. For Modified and Appended,
// index is the position in the filament list returned by Step; for
// Removed, it is the position in the list passed to Step.
type Callback func(f *filament.Filament, index int, mode Mode)

// Stats accumulates per-step reconnection diagnostics.
type Stats struct {
	Reconnections  int
	LengthLoss     float64
	Removed        int
	RemovedLength  float64
	PairsExamined  int
	PairsCandidate int
}

// Engine detects and performs reconnections over a filament set.
type Engine struct {
	crit   Criterion
	box    cells.Box
	finder cells.Finder
	rule   quadrature.Rule
}

// NewEngine builds an engine for the given criterion and box. The
// neighbour finder is configured at the criterion cutoff, so candidate
// pairs are found within twice the critical distance.
func NewEngine(crit Criterion, box cells.Box) (*Engine, error) {
	if crit == nil || crit.Cutoff() <= 0 {
		return nil, errors.New("reconnect: criterion with positive cutoff required")
	}
	e := &Engine{
		crit: crit,
		box:  box,
		rule: quadrature.GaussLegendre(3),
	}
	if box.Periodic() {
		cl, err := cells.NewCellList(box, crit.Cutoff())
		if err == nil {
			e.finder = cl
		}
	}
	if e.finder == nil {
		e.finder = cells.NewNaive(box, crit.Cutoff())
	}
	return e, nil
}

// Step examines the current filaments, performs at most one surgery per
// unordered segment pair, drops degenerate children and returns the new
// filament list. Filaments already rewired in this step are left alone
// until the next step, which keeps the outcome independent of the
// enumeration order of later candidates.
func (e *Engine) Step(fs []*filament.Filament, cb Callback) ([]*filament.Filament, Stats, error) {
	var stats Stats
	if len(fs) == 0 {
		return fs, stats, nil
	}

	segs := make([]cells.Segment, 0, 256)
	for fi, f := range fs {
		for i := 1; i <= f.NumSegments(); i++ {
			mid := r3.Scale(0.5, r3.Add(f.X.At(i), f.X.At(i+1)))
			segs = append(segs, cells.Segment{Filament: fi, Index: i, Mid: mid})
		}
	}
	e.finder.Reset(segs)

	type pair struct{ a, b cells.Segment }
	var pairs []pair
	e.finder.ForEachPair(func(a, b cells.Segment) {
		pairs = append(pairs, pair{a, b})
	})
	stats.PairsExamined = len(pairs)

	cur := make([]*filament.Filament, len(fs))
	copy(cur, fs)
	touched := make([]bool, len(fs))
	removed := make([]bool, len(fs))
	var appended []*filament.Filament

	dropChild := func(f *filament.Filament) {
		stats.Removed++
		if f != nil {
			stats.RemovedLength += f.Length(e.rule)
		}
	}

	for _, pr := range pairs {
		fa, fb := pr.a.Filament, pr.b.Filament
		if touched[fa] || touched[fb] || removed[fa] || removed[fb] {
			continue
		}
		i, j := pr.a.Index, pr.b.Index
		if fa == fb && tooCloseAlongFilament(i, j, cur[fa].NumSegments()) {
			continue
		}
		cand, ok := e.crit.Evaluate(cur[fa], cur[fb], i, j, e.box)
		if !ok {
			continue
		}
		cand.A, cand.B = fa, fb
		stats.PairsCandidate++

		if fa == fb {
			if err := e.selfReconnect(cur, fa, cand, &stats, &appended, removed, dropChild); err != nil {
				return nil, stats, err
			}
		} else {
			if err := e.otherReconnect(cur, cand, &stats, removed, dropChild); err != nil {
				return nil, stats, err
			}
		}
		touched[fa], touched[fb] = true, true
		stats.Reconnections++
	}

	if stats.Reconnections == 0 {
		return fs, stats, nil
	}

	out := make([]*filament.Filament, 0, len(cur)+len(appended))
	for fi, f := range cur {
		if removed[fi] {
			if cb != nil {
				cb(fs[fi], fi, Removed)
			}
			continue
		}
		if touched[fi] && cb != nil {
			cb(f, len(out), Modified)
		}
		out = append(out, f)
	}
	for _, f := range appended {
		out = append(out, f)
		if cb != nil {
			cb(f, len(out)-1, Appended)
		}
	}
	return out, stats, nil
}

// selfReconnect splits one filament into two.
func (e *Engine) selfReconnect(cur []*filament.Filament, fi int, cand Candidate, stats *Stats, appended *[]*filament.Filament, removed []bool, drop func(*filament.Filament)) error {
	i, j := cand.I, cand.J
	shift := cand.Shift
	if i > j {
		// Shift moves segment J next to segment I; with the roles
		// swapped it points the other way.
		i, j = j, i
		shift = r3.Scale(-1, shift)
	}
	parent := cur[fi]
	lenBefore := parent.Length(e.rule)

	// The first child closes through the image jump, so its offset is
	// the negated approach shift.
	a, b, err := parent.Split(i, j, r3.Scale(-1, shift))
	if err != nil && !errors.Is(err, filament.ErrDegenerate) {
		return err
	}

	lenAfter := 0.0
	switch {
	case a != nil:
		cur[fi] = a
		lenAfter += a.Length(e.rule)
		if b != nil {
			*appended = append(*appended, b)
			lenAfter += b.Length(e.rule)
		} else {
			drop(b)
		}
	case b != nil:
		cur[fi] = b
		lenAfter += b.Length(e.rule)
		drop(a)
	default:
		removed[fi] = true
		drop(nil)
		drop(nil)
	}
	stats.LengthLoss += lenBefore - lenAfter
	return nil
}

// otherReconnect merges two filaments into one.
func (e *Engine) otherReconnect(cur []*filament.Filament, cand Candidate, stats *Stats, removed []bool, drop func(*filament.Filament)) error {
	fa, fb := cand.A, cand.B
	a, b := cur[fa], cur[fb]
	lenBefore := a.Length(e.rule) + b.Length(e.rule)

	merged, err := a.Merge(b, cand.I, cand.J, cand.Shift)
	if err != nil {
		if errors.Is(err, filament.ErrDegenerate) {
			removed[fa], removed[fb] = true, true
			drop(a)
			drop(b)
			return nil
		}
		return err
	}
	if !merged.CheckNodes() {
		removed[fa], removed[fb] = true, true
		drop(merged)
		return nil
	}
	cur[fa] = merged
	removed[fb] = true
	stats.LengthLoss += lenBefore - merged.Length(e.rule)
	return nil
}

// tooCloseAlongFilament reports whether segments i and j of an
// n-segment closed filament are separated by fewer than three segments
// along the curve. Splitting closer pairs would produce a child below
// the smallest supported node count.
func tooCloseAlongFilament(i, j, n int) bool {
	d := i - j
	if d < 0 {
		d = -d
	}
	if n-d < d {
		d = n - d
	}
	return d < 3
}
