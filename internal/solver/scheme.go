package solver

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Scheme advances the filament positions over one step of size dt. The
// velocity recorded at the end of the previous step is still valid at
// its start: the explicit Runge–Kutta schemes reuse it as their first
// stage slope, while the split schemes evaluate their fast and slow
// components afresh.
type Scheme interface {
	Name() string
	Stages() int
	// Advance mutates the solver's filaments from time t to t+dt.
	Advance(s *Solver, t, dt float64) error
}

// explicitRK is a classic explicit Runge–Kutta tableau.
type explicitRK struct {
	name string
	a    [][]float64
	b    []float64
	c    []float64
}

// Euler is the 1-stage forward Euler scheme.
func Euler() Scheme {
	return &explicitRK{
		name: "Euler",
		a:    [][]float64{{}},
		b:    []float64{1},
		c:    []float64{0},
	}
}

// Midpoint is the 2-stage explicit midpoint scheme.
func Midpoint() Scheme {
	return &explicitRK{
		name: "Midpoint",
		a:    [][]float64{{}, {0.5}},
		b:    []float64{0, 1},
		c:    []float64{0, 0.5},
	}
}

// RK4 is the classic 4-stage fourth-order scheme.
func RK4() Scheme {
	return &explicitRK{
		name: "RK4",
		a: [][]float64{
			{},
			{0.5},
			{0, 0.5},
			{0, 0, 1},
		},
		b: []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
		c: []float64{0, 0.5, 0.5, 1},
	}
}

func (rk *explicitRK) Name() string { return rk.name }
func (rk *explicitRK) Stages() int  { return len(rk.b) }

func (rk *explicitRK) Advance(s *Solver, t, dt float64) error {
	base := s.snapshotPositions()
	stages := rk.Stages()
	k := make([][][]r3.Vec, stages)

	// Stage 1 reuses the velocity computed at the end of the previous
	// step (the positions have not moved since).
	k[0] = clonePerNode(s.Velocity)

	for m := 1; m < stages; m++ {
		if err := s.setStagePositions(base, dt, rk.a[m], k[:m]); err != nil {
			return err
		}
		k[m] = s.allocPerNode()
		if err := s.evalStageVelocity(k[m], t+rk.c[m]*dt); err != nil {
			return err
		}
	}
	return s.setStagePositions(base, dt, rk.b, k)
}

// SchemeByName resolves a configuration string.
func SchemeByName(name string) (Scheme, error) {
	switch name {
	case "euler":
		return Euler(), nil
	case "midpoint":
		return Midpoint(), nil
	case "rk4", "":
		return RK4(), nil
	case "imex":
		return IMEXEuler(4), nil
	case "mrigark3":
		return MRIGARK3(4), nil
	case "mrigark4":
		return MRIGARK4(4), nil
	}
	return nil, fmt.Errorf("%w: unknown scheme %q", ErrConfig, name)
}
