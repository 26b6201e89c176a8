package reconnect

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/cells"
	"github.com/san-kum/vortexsim/internal/filament"
	"github.com/san-kum/vortexsim/internal/quadrature"
)

func TestSegmentDistance(t *testing.T) {
	tests := []struct {
		name           string
		a0, a1, b0, b1 r3.Vec
		want           float64
	}{
		{
			"crossing at right angles",
			r3.Vec{X: -1}, r3.Vec{X: 1},
			r3.Vec{Y: -1, Z: 0.5}, r3.Vec{Y: 1, Z: 0.5},
			0.5,
		},
		{
			"parallel offset",
			r3.Vec{}, r3.Vec{X: 1},
			r3.Vec{Z: 2}, r3.Vec{X: 1, Z: 2},
			2,
		},
		{
			"endpoint to endpoint",
			r3.Vec{}, r3.Vec{X: 1},
			r3.Vec{X: 3}, r3.Vec{X: 5},
			2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := segmentDistance(tt.a0, tt.a1, tt.b0, tt.b1)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("distance = %v, want %v", got, tt.want)
			}
		})
	}
}

// straightLine builds a periodic line filament of N nodes advancing by
// the offset over one period, with a small transverse wiggle so the
// discretization is well conditioned.
func straightLine(t *testing.T, base r3.Vec, offset r3.Vec, n int) *filament.Filament {
	t.Helper()
	pts := make([]r3.Vec, n)
	for i := range pts {
		s := float64(i) / float64(n)
		wig := 1e-3 * math.Sin(2*math.Pi*s)
		pts[i] = r3.Add(r3.Add(base, r3.Scale(s, offset)), r3.Vec{X: wig})
	}
	f, err := filament.New(pts, filament.CubicSpline(), offset)
	if err != nil {
		t.Fatalf("line filament: %v", err)
	}
	return f
}

func TestCriterionAntiparallelFilter(t *testing.T) {
	box := cells.PeriodicCube(2 * math.Pi)
	L := 2 * math.Pi
	up := straightLine(t, r3.Vec{X: 1, Y: 1}, r3.Vec{Z: L}, 16)
	// The descending line is based so that its segment 3 overlaps the
	// ascending line's segment 3 in z.
	downBase := r3.Vec{X: 1.05, Y: 1, Z: L * 5.0 / 16}
	down := straightLine(t, downBase, r3.Vec{Z: -L}, 16)
	parallel := straightLine(t, r3.Vec{X: 1.05, Y: 1}, r3.Vec{Z: L}, 16)

	crit := BasedOnDistance{DCrit: 0.2}
	if _, ok := crit.Evaluate(up, down, 3, 3, box); !ok {
		t.Error("antiparallel segments within DCrit must be accepted")
	}
	if _, ok := crit.Evaluate(up, parallel, 3, 3, box); ok {
		t.Error("parallel segments must be rejected")
	}
	far := straightLine(t, r3.Vec{X: 2.5, Y: 1, Z: downBase.Z}, r3.Vec{Z: -L}, 16)
	if _, ok := crit.Evaluate(up, far, 3, 3, box); ok {
		t.Error("distant segments must be rejected")
	}
}

func TestCriterionPeriodicImage(t *testing.T) {
	// Segments close only through the boundary: the candidate carries
	// the lattice shift that brings B next to A.
	box := cells.PeriodicCube(2 * math.Pi)
	L := 2 * math.Pi
	a := straightLine(t, r3.Vec{X: 0.02, Y: 1}, r3.Vec{Z: L}, 16)
	b := straightLine(t, r3.Vec{X: L - 0.02, Y: 1, Z: L * 9.0 / 16}, r3.Vec{Z: -L}, 16)

	crit := BasedOnDistance{DCrit: 0.2}
	cand, ok := crit.Evaluate(a, b, 5, 5, box)
	if !ok {
		t.Fatal("periodic-image pair not accepted")
	}
	if math.Abs(cand.Shift.X+L) > 1e-12 {
		t.Errorf("shift = %v, want x-component %v", cand.Shift, -L)
	}
}

func TestEngineSelfReconnection(t *testing.T) {
	// A flat pinched loop: the two long sides run antiparallel a small
	// distance apart, so the loop splits into two.
	n := 64
	pts := make([]r3.Vec, n)
	for i := range pts {
		th := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = r3.Vec{X: math.Cos(th), Y: 0.02 * math.Sin(th)}
	}
	f, err := filament.New(pts, filament.CubicSpline(), r3.Vec{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rule := quadrature.GaussLegendre(3)
	lenBefore := f.Length(rule)

	eng, err := NewEngine(BasedOnDistance{DCrit: 0.06}, cells.OpenBox())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	modes := map[Mode]int{}
	out, stats, err := eng.Step([]*filament.Filament{f}, func(_ *filament.Filament, _ int, m Mode) {
		modes[m]++
	})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if stats.Reconnections != 1 {
		t.Fatalf("reconnections = %d, want 1 (one per pair per step)", stats.Reconnections)
	}
	if len(out) != 2 {
		t.Fatalf("filament count = %d, want 2", len(out))
	}
	if modes[Modified] != 1 || modes[Appended] != 1 {
		t.Errorf("callback modes = %v, want one modified and one appended", modes)
	}

	lenAfter := out[0].Length(rule) + out[1].Length(rule)
	if math.Abs(lenBefore-stats.LengthLoss-lenAfter) > 1e-8*lenBefore {
		t.Errorf("length accounting: before %v, loss %v, after %v",
			lenBefore, stats.LengthLoss, lenAfter)
	}
}

func TestEngineMergeAntiparallelLines(t *testing.T) {
	// Two antiparallel lines crossing below the critical distance merge
	// into a single filament whose offset is the signed sum of the
	// parents' offsets.
	box := cells.PeriodicCube(2 * math.Pi)
	L := 2 * math.Pi
	up := straightLine(t, r3.Vec{X: 1, Y: 1}, r3.Vec{Z: L}, 24)
	down := straightLine(t, r3.Vec{X: 1.04, Y: 1}, r3.Vec{Z: -L}, 24)

	eng, err := NewEngine(BasedOnDistance{DCrit: 0.1}, box)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	fs := []*filament.Filament{up, down}
	out, stats, err := eng.Step(fs, nil)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if stats.Reconnections != 1 {
		t.Fatalf("reconnections = %d, want 1", stats.Reconnections)
	}
	if len(out) != 1 {
		t.Fatalf("filament count = %d, want 1", len(out))
	}
	wantOffset := r3.Add(up.Offset, down.Offset)
	if r3.Norm(r3.Sub(out[0].Offset, wantOffset)) > 1e-12 {
		t.Errorf("merged offset = %v, want %v", out[0].Offset, wantOffset)
	}
	if out[0].NumNodes() != 48 {
		t.Errorf("merged node count = %d, want 48", out[0].NumNodes())
	}
}

func TestEngineNoFalsePositives(t *testing.T) {
	// Two well-separated rings stay untouched.
	mk := func(c r3.Vec) *filament.Filament {
		pts := make([]r3.Vec, 24)
		for i := range pts {
			th := 2 * math.Pi * float64(i) / 24
			pts[i] = r3.Add(c, r3.Vec{X: 0.5 * math.Cos(th), Y: 0.5 * math.Sin(th)})
		}
		f, _ := filament.New(pts, filament.CubicSpline(), r3.Vec{})
		return f
	}
	eng, _ := NewEngine(BasedOnDistance{DCrit: 0.05}, cells.OpenBox())
	fs := []*filament.Filament{mk(r3.Vec{}), mk(r3.Vec{X: 3})}
	out, stats, err := eng.Step(fs, nil)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if stats.Reconnections != 0 || len(out) != 2 {
		t.Errorf("expected no surgery, got %d reconnections, %d filaments",
			stats.Reconnections, len(out))
	}
}
