package filament

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/cells"
	"github.com/san-kum/vortexsim/internal/quadrature"
)

// ringPoints samples a circle of radius r in the xy plane, centred at c.
func ringPoints(n int, r float64, c r3.Vec) []r3.Vec {
	pts := make([]r3.Vec, n)
	for i := range pts {
		th := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = r3.Add(c, r3.Vec{X: r * math.Cos(th), Y: r * math.Sin(th)})
	}
	return pts
}

func methods() map[string]Discretisation {
	return map[string]Discretisation{
		"fd1":     NewFiniteDifference(1),
		"fd2":     NewFiniteDifference(2),
		"cubic":   CubicSpline(),
		"quintic": QuinticSpline(),
	}
}

func TestInterpolationReproducesNodes(t *testing.T) {
	pts := ringPoints(24, 1.3, r3.Vec{})
	for name, m := range methods() {
		t.Run(name, func(t *testing.T) {
			f, err := New(pts, m, r3.Vec{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			for i := 1; i <= f.NumNodes(); i++ {
				got := f.Evaluate(i, 0, 0)
				want := f.X.At(i)
				if r3.Norm(r3.Sub(got, want)) > 1e-10 {
					t.Errorf("f(%d, 0) = %v, want node %v", i, got, want)
				}
			}
			// End of each segment must reproduce the next node,
			// including the wrap-around segment.
			for i := 1; i <= f.NumSegments(); i++ {
				got := f.Evaluate(i, 1, 0)
				want := f.X.At(i + 1)
				if r3.Norm(r3.Sub(got, want)) > 1e-8 {
					t.Errorf("f(%d, 1) = %v, want node %v", i, got, want)
				}
			}
		})
	}
}

func TestKnotPeriodicity(t *testing.T) {
	pts := ringPoints(16, 0.8, r3.Vec{})
	for name, m := range methods() {
		t.Run(name, func(t *testing.T) {
			f, err := New(pts, m, r3.Vec{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if f.Period() <= 0 {
				t.Fatalf("period = %v, want > 0", f.Period())
			}
			n := f.NumNodes()
			for i := 1; i <= f.X.Pad(); i++ {
				up := f.Knots.At(i+n) - f.Knots.At(i)
				if math.Abs(up-f.Period()) > 1e-12 {
					t.Errorf("t[%d+N] - t[%d] = %v, want period %v", i, i, up, f.Period())
				}
			}
		})
	}
}

func TestOffsetPadding(t *testing.T) {
	// An infinite line along x in a box of period 2π.
	n := 16
	off := r3.Vec{X: 2 * math.Pi}
	pts := make([]r3.Vec, n)
	for i := range pts {
		x := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = r3.Vec{X: x, Y: 0.1 * math.Sin(x), Z: 1}
	}
	f, err := New(pts, CubicSpline(), off)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 1; i <= f.X.Pad(); i++ {
		d := r3.Sub(f.X.At(i+n), f.X.At(i))
		if r3.Norm(r3.Sub(d, off)) > 1e-12 {
			t.Errorf("X[%d+N] - X[%d] = %v, want offset %v", i, i, d)
		}
	}
}

func TestTangentCirculationClosed(t *testing.T) {
	// For a closed curve, the arc-length-weighted tangent integral
	// equals the end-to-end offset, i.e. zero.
	pts := ringPoints(32, 1.1, r3.Vec{X: 1, Y: 2, Z: 3})
	rule := quadrature.GaussLegendre(4)
	for name, m := range methods() {
		t.Run(name, func(t *testing.T) {
			f, err := New(pts, m, r3.Vec{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			var sum r3.Vec
			for i := 1; i <= f.NumSegments(); i++ {
				dt := f.Knots.At(i+1) - f.Knots.At(i)
				for q, z := range rule.Nodes {
					sum = r3.Add(sum, r3.Scale(rule.Weights[q]*dt, f.Evaluate(i, z, 1)))
				}
			}
			if r3.Norm(sum) > 1e-8 {
				t.Errorf("tangent circulation = %v, want 0", sum)
			}
		})
	}
}

func TestRingCurvature(t *testing.T) {
	const R = 2.5
	pts := ringPoints(64, R, r3.Vec{})
	for _, name := range []string{"fd2", "cubic", "quintic"} {
		m := methods()[name]
		t.Run(name, func(t *testing.T) {
			f, err := New(pts, m, r3.Vec{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			for _, i := range []int{1, 17, 40} {
				kappa := f.CurvatureScalar(i, 0.5)
				if math.Abs(kappa-1/R)/(1/R) > 0.02 {
					t.Errorf("curvature at segment %d = %v, want %v", i, kappa, 1/R)
				}
				that := f.UnitTangent(i, 0.5)
				if math.Abs(r3.Norm(that)-1) > 1e-12 {
					t.Errorf("tangent not unit at %d: %v", i, that)
				}
			}
		})
	}
}

func TestEvaluateAt(t *testing.T) {
	pts := ringPoints(20, 1, r3.Vec{})
	f, err := New(pts, CubicSpline(), r3.Vec{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 1; i <= f.NumNodes(); i++ {
		got := f.EvaluateAt(f.Knots.At(i), 0)
		if r3.Norm(r3.Sub(got, f.X.At(i))) > 1e-10 {
			t.Errorf("EvaluateAt(t[%d]) = %v, want %v", i, got, f.X.At(i))
		}
	}
	// One parametric period later gives the same point plus the offset.
	got := f.EvaluateAt(f.Knots.At(3)+f.Period(), 0)
	if r3.Norm(r3.Sub(got, f.X.At(3))) > 1e-10 {
		t.Errorf("EvaluateAt(t+T) = %v, want %v", got, f.X.At(3))
	}
}

func TestLengthOfRing(t *testing.T) {
	const R = 1.4
	pts := ringPoints(48, R, r3.Vec{})
	f, err := New(pts, QuinticSpline(), r3.Vec{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := f.Length(quadrature.GaussLegendre(4))
	want := 2 * math.Pi * R
	if math.Abs(got-want)/want > 1e-4 {
		t.Errorf("length = %v, want %v", got, want)
	}
}

func TestFoldPeriodic(t *testing.T) {
	box := cells.PeriodicCube(2 * math.Pi)
	pts := ringPoints(16, 1, r3.Vec{X: 10, Y: 10, Z: 10})
	f, err := New(pts, CubicSpline(), r3.Vec{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	lenBefore := f.Length(quadrature.GaussLegendre(3))

	moved := f.FoldPeriodic(box)
	if !moved {
		t.Fatal("expected nodes to move")
	}
	f.UpdateCoefficients()

	for i := 1; i <= f.NumNodes(); i++ {
		v := f.X.At(i)
		for _, c := range []float64{v.X, v.Y, v.Z} {
			if c < 0 || c >= 2*math.Pi {
				t.Errorf("node %d = %v outside fundamental cell", i, v)
			}
		}
	}
	if f.Offset != (r3.Vec{}) {
		t.Errorf("offset changed by fold: %v", f.Offset)
	}
	lenAfter := f.Length(quadrature.GaussLegendre(3))
	if math.Abs(lenAfter-lenBefore) > 1e-10 {
		t.Errorf("length changed by fold: %v -> %v", lenBefore, lenAfter)
	}

	if f.FoldPeriodic(box) {
		t.Error("second fold must be a no-op")
	}
}

func TestDegenerateConstruction(t *testing.T) {
	pts := ringPoints(3, 1, r3.Vec{})
	if _, err := New(pts, QuinticSpline(), r3.Vec{}); err == nil {
		t.Error("expected degenerate error for 3 nodes with quintic spline")
	}
	if _, err := New(pts, CubicSpline(), r3.Vec{}); err != nil {
		t.Errorf("3 nodes must be enough for cubic: %v", err)
	}
}

func TestCheckNodes(t *testing.T) {
	pts := ringPoints(12, 1, r3.Vec{})
	f, err := New(pts, CubicSpline(), r3.Vec{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !f.CheckNodes() {
		t.Error("healthy filament failed CheckNodes")
	}
	f.X.Set(4, r3.Vec{X: math.NaN()})
	if f.CheckNodes() {
		t.Error("NaN node passed CheckNodes")
	}
}
