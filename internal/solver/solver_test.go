package solver

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/biotsavart"
	"github.com/san-kum/vortexsim/internal/cells"
	"github.com/san-kum/vortexsim/internal/filament"
	"github.com/san-kum/vortexsim/internal/quadrature"
)

func openRingProblem(t *testing.T, n int, r float64) Problem {
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
	return Problem{
		Filaments: []*filament.Filament{f},
		Params: biotsavart.Params{
			Gamma:           1.0,
			CoreRadius:      1e-6,
			CoreParameter:   0.25,
			Box:             cells.OpenBox(),
			QuadratureShort: quadrature.GaussLegendre(4),
			QuadratureLong:  quadrature.GaussLegendre(4),
		},
		TSpan: [2]float64{0, 1},
	}
}

func TestConfigValidation(t *testing.T) {
	p := openRingProblem(t, 32, 1)

	tests := []struct {
		name string
		p    Problem
		cfg  Config
	}{
		{"zero dt", p, Config{}},
		{"lia with short-range fast term", p, Config{Dt: 0.01, LIAOnly: true, FastTerm: FastShortRange}},
		{"fold in open box", p, Config{Dt: 0.01, FoldPeriodic: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.p, RK4(), tt.cfg); !errors.Is(err, ErrConfig) {
				t.Errorf("got %v, want ErrConfig", err)
			}
		})
	}

	empty := p
	empty.Filaments = nil
	if _, err := New(empty, RK4(), Config{Dt: 0.01}); !errors.Is(err, ErrConfig) {
		t.Error("empty filament set must be rejected")
	}
}

func TestRingTranslation(t *testing.T) {
	// Scenario: a thin-core ring translates along its axis at
	// Γ/(4πR)·(ln(8R/a) − Δ − 1/2).
	const R = 1.0
	p := openRingProblem(t, 64, R)
	dt := 1e-3
	steps := 10

	s, err := New(p, RK4(), Config{Dt: dt})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	z0 := s.Filaments[0].X.At(1).Z
	for i := 0; i < steps; i++ {
		st, err := s.Step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if st != StatusOK {
			t.Fatalf("step %d: status %v", i, st)
		}
	}

	vring := p.Params.Gamma / (4 * math.Pi * R) *
		(math.Log(8*R/p.Params.CoreRadius) - p.Params.CoreParameter - 0.5)
	wantDz := vring * dt * float64(steps)
	gotDz := s.Filaments[0].X.At(1).Z - z0
	if math.Abs(gotDz-wantDz)/wantDz > 1e-2 {
		t.Errorf("ring moved %v, want %v (rel err %.2e)", gotDz, wantDz,
			math.Abs(gotDz-wantDz)/wantDz)
	}

	// The ring must stay circular: radius spread below 0.1%.
	for i := 1; i <= s.Filaments[0].NumNodes(); i++ {
		x := s.Filaments[0].X.At(i)
		rad := math.Hypot(x.X, x.Y)
		if math.Abs(rad-R) > 1e-3*R {
			t.Errorf("node %d radius %v drifted from %v", i, rad, R)
		}
	}
}

func TestStepRejection(t *testing.T) {
	p := openRingProblem(t, 64, 1)
	s, err := New(p, Euler(), Config{
		Dt:    1.0, // far beyond the displacement ceiling
		Adapt: BasedOnSegmentLength{Gamma: 0.5},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st, err := s.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if st != StatusOK {
		t.Fatalf("status %v", st)
	}
	if s.Stats.Rejections == 0 {
		t.Error("expected at least one rejection with dt=1")
	}
}

func TestDtTooSmall(t *testing.T) {
	p := openRingProblem(t, 64, 1)
	s, err := New(p, Euler(), Config{
		Dt:    1.0,
		DtMin: 0.4,
		Adapt: BasedOnSegmentLength{Gamma: 0.5},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st, err := s.Step()
	if st != StatusDtTooSmall {
		t.Fatalf("status = %v, want StatusDtTooSmall", st)
	}
	if !errors.Is(err, ErrDtTooSmall) {
		t.Errorf("err = %v, want ErrDtTooSmall", err)
	}
}

func TestNoVorticesLeft(t *testing.T) {
	pts := make([]r3.Vec, 6)
	for i := range pts {
		th := 2 * math.Pi * float64(i) / 6
		pts[i] = r3.Vec{X: 1e-3 * math.Cos(th), Y: 1e-3 * math.Sin(th)}
	}
	f, err := filament.New(pts, filament.QuinticSpline(), r3.Vec{})
	if err != nil {
		t.Fatalf("New filament: %v", err)
	}
	p := openRingProblem(t, 32, 1)
	p.Filaments = []*filament.Filament{f}

	s, err := New(p, Euler(), Config{
		Dt:         1e-12,
		Refinement: filament.BasedOnSegmentLength{LMin: 0.1, LMax: 100},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st, err := s.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if st != StatusNoVorticesLeft {
		t.Fatalf("status = %v, want StatusNoVorticesLeft", st)
	}
	if s.Stats.FilamentsRemoved != 1 {
		t.Errorf("FilamentsRemoved = %d, want 1", s.Stats.FilamentsRemoved)
	}
}

func TestCallbacksAndInjection(t *testing.T) {
	p := openRingProblem(t, 32, 1)
	afterCalls := 0
	injectedAt := -1

	cfg := Config{
		Dt: 1e-4,
		AffectBefore: func(sv *Solver) {
			if sv.Stats.Steps == 1 && injectedAt < 0 {
				pts := make([]r3.Vec, 32)
				for i := range pts {
					th := 2 * math.Pi * float64(i) / 32
					pts[i] = r3.Vec{X: 0.8 * math.Cos(th), Y: 0.8 * math.Sin(th), Z: 5}
				}
				f, _ := filament.New(pts, filament.CubicSpline(), r3.Vec{})
				sv.Inject(f)
				injectedAt = sv.Stats.Steps
			}
		},
		CallbackAfter: func(sv *Solver) {
			afterCalls++
			if len(sv.Velocity) != len(sv.Filaments) {
				t.Error("velocity arrays out of lockstep with filaments")
			}
		},
	}
	s, err := New(p, Midpoint(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 3; i++ {
		if st, err := s.Step(); err != nil || st != StatusOK {
			t.Fatalf("step %d: status %v err %v", i, st, err)
		}
	}
	if afterCalls != 3 {
		t.Errorf("callback fired %d times, want 3", afterCalls)
	}
	if len(s.Filaments) != 2 {
		t.Errorf("filament count = %d, want 2 after injection", len(s.Filaments))
	}
}

func TestStopFlag(t *testing.T) {
	p := openRingProblem(t, 32, 1)
	s, err := New(p, Euler(), Config{Dt: 1e-4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Stop()
	if st, _ := s.Step(); st != StatusStopped {
		t.Errorf("status = %v, want StatusStopped", st)
	}
}

func TestSplitSchemesRun(t *testing.T) {
	for _, tc := range []struct {
		name   string
		scheme Scheme
	}{
		{"imex", IMEXEuler(3)},
		{"mrigark3", MRIGARK3(2)},
		{"mrigark4", MRIGARK4(2)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := openRingProblem(t, 32, 1)
			s, err := New(p, tc.scheme, Config{Dt: 1e-4})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			for i := 0; i < 2; i++ {
				if st, err := s.Step(); err != nil || st != StatusOK {
					t.Fatalf("step %d: status %v err %v", i, st, err)
				}
			}
			for i := 1; i <= s.Filaments[0].NumNodes(); i++ {
				x := s.Filaments[0].X.At(i)
				rad := math.Hypot(x.X, x.Y)
				if math.Abs(rad-1) > 0.05 {
					t.Fatalf("node %d radius %v: scheme unstable", i, rad)
				}
			}
		})
	}
}

func TestAdaptCombined(t *testing.T) {
	p := openRingProblem(t, 64, 1)
	s, err := New(p, Euler(), Config{Dt: 1e-4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a := BasedOnVelocity{Delta: 0.01}
	b := BasedOnSegmentLength{Gamma: 1.0}
	c := Combined{a, b}

	dta, dtb := a.NextDt(s), b.NextDt(s)
	want := math.Min(dta, dtb)
	if got := c.NextDt(s); math.Abs(got-want) > 1e-15 {
		t.Errorf("combined dt = %v, want min(%v, %v)", got, dta, dtb)
	}
}

func TestSchemeByName(t *testing.T) {
	for _, name := range []string{"euler", "midpoint", "rk4", "imex", "mrigark3", "mrigark4"} {
		if _, err := SchemeByName(name); err != nil {
			t.Errorf("SchemeByName(%q): %v", name, err)
		}
	}
	if _, err := SchemeByName("nope"); err == nil {
		t.Error("unknown scheme must error")
	}
}
