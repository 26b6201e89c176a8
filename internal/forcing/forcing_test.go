package forcing

import (
	"log"
	"math"
	"os"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/filament"
)

func ring(t *testing.T, n int, r float64) *filament.Filament {
	t.Helper()
	pts := make([]r3.Vec, n)
	for i := range pts {
		th := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = r3.Vec{X: r * math.Cos(th), Y: r * math.Sin(th)}
	}
	f, err := filament.New(pts, filament.CubicSpline(), r3.Vec{})
	if err != nil {
		t.Fatalf("ring: %v", err)
	}
	return f
}

func TestExternalVelocityAdditive(t *testing.T) {
	f := ring(t, 16, 1)
	fs := []*filament.Filament{f}
	vel := [][]r3.Vec{make([]r3.Vec, 16)}
	for i := range vel[0] {
		vel[0][i] = r3.Vec{Z: 1}
	}

	fc := &Forcing{ExternalVelocity: func(x r3.Vec, t float64) r3.Vec {
		return r3.Vec{X: 2 * t}
	}}
	fc.Apply(fs, vel, nil, 3)

	for i, v := range vel[0] {
		want := r3.Vec{X: 6, Z: 1}
		if r3.Norm(r3.Sub(v, want)) > 1e-14 {
			t.Errorf("node %d velocity = %v, want %v", i, v, want)
		}
	}
}

func TestExternalStreamfunctionFactorTwo(t *testing.T) {
	f := ring(t, 16, 1)
	fs := []*filament.Filament{f}
	psi := [][]r3.Vec{make([]r3.Vec, 16)}

	fc := &Forcing{ExternalStreamfunction: func(x r3.Vec, t float64) r3.Vec {
		return r3.Vec{Y: 1}
	}}
	fc.Apply(fs, nil, psi, 0)

	for i, p := range psi[0] {
		if math.Abs(p.Y-2) > 1e-14 {
			t.Errorf("node %d streamfunction = %v, want factor-2 sample", i, p)
		}
	}
}

func TestStretchingMovesNodesOutward(t *testing.T) {
	// On a ring the curvature normal points to the centre; a positive
	// stretching velocity moves nodes outward (against n̂).
	f := ring(t, 32, 1)
	fs := []*filament.Filament{f}
	vel := [][]r3.Vec{make([]r3.Vec, 32)}

	fc := &Forcing{StretchingVelocity: func(kappa float64) float64 { return 0.5 }}
	fc.Apply(fs, vel, nil, 0)

	for i := 1; i <= 32; i++ {
		x := f.X.At(i)
		radial := r3.Unit(r3.Vec{X: x.X, Y: x.Y})
		got := vel[0][i-1]
		if r3.Dot(got, radial) < 0.49 {
			t.Errorf("node %d: stretching velocity %v not outward along %v", i, got, radial)
		}
	}
}

func TestMutualFrictionReducesToCopy(t *testing.T) {
	f := ring(t, 16, 1)
	fs := []*filament.Filament{f}
	vs := [][]r3.Vec{make([]r3.Vec, 16)}
	vL := [][]r3.Vec{make([]r3.Vec, 16)}
	for i := range vs[0] {
		vs[0][i] = r3.Vec{Z: 0.7}
	}

	var fc *Forcing
	fc.ApplyMutualFriction(fs, vs, vL, 0)
	for i := range vL[0] {
		if r3.Norm(r3.Sub(vL[0][i], vs[0][i])) > 1e-15 {
			t.Errorf("node %d: vL = %v, want copy of vs", i, vL[0][i])
		}
	}
}

func TestMutualFrictionHVBK(t *testing.T) {
	f := ring(t, 16, 1)
	fs := []*filament.Filament{f}
	vs := [][]r3.Vec{make([]r3.Vec, 16)}
	vL := [][]r3.Vec{make([]r3.Vec, 16)}

	alpha := 0.1
	fc := &Forcing{NormalFluid: &NormalFluid{
		Velocity: func(x r3.Vec, t float64) r3.Vec { return r3.Vec{Z: 1} },
		Alpha:    alpha,
	}}
	fc.ApplyMutualFriction(fs, vs, vL, 0)

	// vs = 0, so vL = α·vn×t̂. At node 1 (x = R, y = 0) the tangent is
	// +y, and ẑ×ŷ = −x̂.
	want := r3.Vec{X: -alpha}
	if r3.Norm(r3.Sub(vL[0][0], want)) > 1e-10 {
		t.Errorf("vL at node 1 = %v, want %v", vL[0][0], want)
	}
	// vs must be untouched.
	if r3.Norm(vs[0][0]) != 0 {
		t.Error("vs mutated by mutual friction")
	}
}

func TestCheckConsistency(t *testing.T) {
	logger := log.New(os.Stderr, "", 0)

	// ψ = (0, 0, x) has curl (0, −1, 0).
	stream := func(x r3.Vec, t float64) r3.Vec { return r3.Vec{Z: x.X} }
	good := func(x r3.Vec, t float64) r3.Vec { return r3.Vec{Y: -1} }
	bad := func(x r3.Vec, t float64) r3.Vec { return r3.Vec{Y: 1} }

	if !CheckConsistency(good, stream, r3.Vec{X: 0.3, Y: 0.2, Z: 0.1}, 0, logger) {
		t.Error("consistent pair flagged")
	}
	if CheckConsistency(bad, stream, r3.Vec{X: 0.3, Y: 0.2, Z: 0.1}, 0, logger) {
		t.Error("inconsistent pair not flagged")
	}
}
