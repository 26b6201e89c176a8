package filament

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Discretisation selects how node values are interpolated between
// nodes. Implementations are stateless and safe to share between
// filaments; per-filament coefficient storage lives on the Filament.
type Discretisation interface {
	Name() string
	// PadWidth is the ghost width M required by the backend.
	PadWidth() int
	// MinNodes is the smallest node count the backend supports.
	MinNodes() int

	update(f *Filament)
	evaluate(f *Filament, i int, zeta float64, d int) r3.Vec
}

// FiniteDifference estimates parametric derivatives at nodes with a
// (2M+1)-point stencil and interpolates with a Hermite polynomial of
// order M (degree 2M+1). M must be 0, 1 or 2.
type FiniteDifference struct {
	M int
}

// NewFiniteDifference returns the finite-difference method of order m.
func NewFiniteDifference(m int) *FiniteDifference {
	if m < 0 || m > 2 {
		panic(fmt.Sprintf("filament: unsupported Hermite order %d", m))
	}
	return &FiniteDifference{M: m}
}

func (fd *FiniteDifference) Name() string { return fmt.Sprintf("FiniteDifference(%d)", fd.M) }

func (fd *FiniteDifference) PadWidth() int { return max(fd.M, 1) }

func (fd *FiniteDifference) MinNodes() int { return 2*fd.M + 1 }

// spline is the shared implementation of the periodic B-spline methods.
type spline struct {
	order int // 4 for cubic, 6 for quintic
}

// CubicSpline returns the periodic cubic B-spline method (order 4).
func CubicSpline() Discretisation { return &spline{order: 4} }

// QuinticSpline returns the periodic quintic B-spline method (order 6).
func QuinticSpline() Discretisation { return &spline{order: 6} }

func (s *spline) Name() string {
	if s.order == 6 {
		return "QuinticSpline"
	}
	return "CubicSpline"
}

func (s *spline) PadWidth() int { return s.order }

func (s *spline) MinNodes() int {
	if s.order == 4 {
		return 3
	}
	return 5
}

// MethodByName resolves a configuration string to a discretization.
func MethodByName(name string) (Discretisation, error) {
	switch name {
	case "cubic", "cubic_spline":
		return CubicSpline(), nil
	case "quintic", "quintic_spline":
		return QuinticSpline(), nil
	case "fd0":
		return NewFiniteDifference(0), nil
	case "fd1", "hermite":
		return NewFiniteDifference(1), nil
	case "fd2":
		return NewFiniteDifference(2), nil
	}
	return nil, fmt.Errorf("filament: unknown discretization %q", name)
}
