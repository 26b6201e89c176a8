package diag

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/cells"
	"github.com/san-kum/vortexsim/internal/filament"
	"github.com/san-kum/vortexsim/internal/quadrature"
)

func ring(t *testing.T, n int, r float64, c r3.Vec) *filament.Filament {
	t.Helper()
	pts := make([]r3.Vec, n)
	for i := range pts {
		th := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = r3.Add(c, r3.Vec{X: r * math.Cos(th), Y: r * math.Sin(th)})
	}
	f, err := filament.New(pts, filament.CubicSpline(), r3.Vec{})
	if err != nil {
		t.Fatalf("ring: %v", err)
	}
	return f
}

func TestTotalLength(t *testing.T) {
	const R = 1.3
	fs := []*filament.Filament{
		ring(t, 48, R, r3.Vec{}),
		ring(t, 48, R, r3.Vec{Z: 2}),
	}
	got := TotalLength(fs, quadrature.GaussLegendre(4))
	want := 2 * 2 * math.Pi * R
	if math.Abs(got-want)/want > 1e-4 {
		t.Errorf("length = %v, want %v", got, want)
	}
}

func TestImpulseOfRing(t *testing.T) {
	// A ring of radius R in the xy plane has impulse (Γ/2)·2πR²·ẑ.
	const R = 0.9
	gamma := 1.7
	fs := []*filament.Filament{ring(t, 64, R, r3.Vec{X: 3, Y: -2})}
	p := Impulse(fs, gamma)
	want := gamma * math.Pi * R * R
	if math.Abs(p.Z-want)/want > 1e-3 {
		t.Errorf("impulse z = %v, want %v", p.Z, want)
	}
	if math.Hypot(p.X, p.Y) > 1e-10*want {
		t.Errorf("in-plane impulse %v should vanish", p)
	}
}

func TestImpulseCentreIndependent(t *testing.T) {
	// For a closed loop, ∮ s × ds is independent of the origin.
	gamma := 1.0
	a := Impulse([]*filament.Filament{ring(t, 48, 1, r3.Vec{})}, gamma)
	b := Impulse([]*filament.Filament{ring(t, 48, 1, r3.Vec{X: 10, Y: 5, Z: -3})}, gamma)
	if r3.Norm(r3.Sub(a, b)) > 1e-9 {
		t.Errorf("impulse moved with the origin: %v vs %v", a, b)
	}
}

func TestHelicityOfUniformPsi(t *testing.T) {
	// A constant streamfunction contracts to Δ per period: zero for a
	// closed loop.
	fs := []*filament.Filament{ring(t, 32, 1, r3.Vec{})}
	psi := [][]r3.Vec{make([]r3.Vec, 32)}
	for i := range psi[0] {
		psi[0][i] = r3.Vec{X: 1, Y: 2, Z: 3}
	}
	h := Helicity(fs, psi, 1.0)
	if math.Abs(h) > 1e-10 {
		t.Errorf("helicity of constant ψ on a closed loop = %v, want 0", h)
	}
}

func TestKineticEnergySelectsEstimator(t *testing.T) {
	fs := []*filament.Filament{ring(t, 32, 1, r3.Vec{})}
	vel := [][]r3.Vec{make([]r3.Vec, 32)}
	psi := [][]r3.Vec{make([]r3.Vec, 32)}
	for i := range psi[0] {
		psi[0][i] = r3.Vec{Z: 1}
		vel[0][i] = r3.Vec{Z: 1}
	}

	open := KineticEnergy(fs, vel, psi, 1.0, cells.OpenBox())
	per := KineticEnergy(fs, vel, psi, 1.0, cells.PeriodicCube(2*math.Pi))

	// Open estimator: Γ·Σ v·(s×t̂)·w with v = ẑ and (s×t̂)·ẑ = 1 on the
	// unit ring, so every node contributes its weight, half of each
	// adjacent chord. The sum is the 32-gon perimeter 64·sin(π/32), which
	// approximates 2·area = 2π to 0.2%.
	wantOpen := 64 * math.Sin(math.Pi/32)
	if math.Abs(open-wantOpen)/wantOpen > 1e-3 {
		t.Errorf("open energy = %v, want %v", open, wantOpen)
	}
	// Periodic estimator: ψ = ẑ is orthogonal to every tangent.
	if math.Abs(per) > 1e-10 {
		t.Errorf("periodic energy = %v, want 0", per)
	}
}

func TestRecorder(t *testing.T) {
	fs := []*filament.Filament{ring(t, 32, 1, r3.Vec{})}
	vel := [][]r3.Vec{make([]r3.Vec, 32)}
	psi := [][]r3.Vec{make([]r3.Vec, 32)}

	rec := &Recorder{Gamma: 1, Box: cells.OpenBox(), Rule: quadrature.GaussLegendre(3)}
	rec.Observe(0, fs, vel, psi)
	rec.Observe(0.1, fs, vel, psi)

	if len(rec.Samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(rec.Samples))
	}
	lengths := rec.Series(func(r Record) float64 { return r.Length })
	if math.Abs(lengths[0]-2*math.Pi) > 1e-3 {
		t.Errorf("recorded length = %v, want %v", lengths[0], 2*math.Pi)
	}
}

func TestMaxCurvature(t *testing.T) {
	fs := []*filament.Filament{ring(t, 64, 2, r3.Vec{})}
	k := MaxCurvature(fs)
	if math.Abs(k-0.5)/0.5 > 0.02 {
		t.Errorf("max curvature = %v, want 0.5", k)
	}
}
