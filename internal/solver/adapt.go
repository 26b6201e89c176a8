package solver

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AdaptCriterion proposes the next timestep and the ceiling on nodal
// displacement used for step rejection.
type AdaptCriterion interface {
	// NextDt returns the proposed timestep for the coming step, or 0
	// to keep the current one.
	NextDt(s *Solver) float64
	// Ceiling returns the largest admissible nodal displacement in one
	// step; +Inf disables rejection.
	Ceiling(s *Solver) float64
}

// NoAdapt keeps the timestep fixed.
type NoAdapt struct{}

func (NoAdapt) NextDt(*Solver) float64  { return 0 }
func (NoAdapt) Ceiling(*Solver) float64 { return math.Inf(1) }

// BasedOnSegmentLength sets dt to a fraction of the Kelvin wave period
// at the smallest node spacing, the shortest timescale the mesh can
// represent.
type BasedOnSegmentLength struct {
	// Gamma is the safety fraction applied to the Kelvin wave period.
	Gamma float64
}

func (c BasedOnSegmentLength) NextDt(s *Solver) float64 {
	delta := s.minNodeDistance()
	if !(delta > 0) || math.IsInf(delta, 1) {
		return 0
	}
	T := s.cache.Params().KelvinWavePeriod(delta)
	if T <= 0 {
		return 0
	}
	return c.Gamma * T
}

func (c BasedOnSegmentLength) Ceiling(s *Solver) float64 {
	return s.minNodeDistance()
}

// BasedOnVelocity keeps the fastest node from travelling more than
// Delta in one step.
type BasedOnVelocity struct {
	Delta float64
}

func (c BasedOnVelocity) NextDt(s *Solver) float64 {
	vmax := s.maxVelocity()
	if vmax <= 0 {
		return 0
	}
	return c.Delta / vmax
}

func (c BasedOnVelocity) Ceiling(*Solver) float64 { return math.Inf(1) }

// Combined takes the most restrictive member per step.
type Combined []AdaptCriterion

func (cs Combined) NextDt(s *Solver) float64 {
	dt := 0.0
	for _, c := range cs {
		if d := c.NextDt(s); d > 0 && (dt == 0 || d < dt) {
			dt = d
		}
	}
	return dt
}

func (cs Combined) Ceiling(s *Solver) float64 {
	ceil := math.Inf(1)
	for _, c := range cs {
		ceil = math.Min(ceil, c.Ceiling(s))
	}
	return ceil
}

func (s *Solver) minNodeDistance() float64 {
	minD := math.Inf(1)
	for _, f := range s.Filaments {
		if d := f.MinNodeDistance(); d < minD {
			minD = d
		}
	}
	return minD
}

func (s *Solver) maxVelocity() float64 {
	vmax := 0.0
	for _, v := range s.Velocity {
		for _, u := range v {
			vmax = math.Max(vmax, r3.Norm(u))
		}
	}
	return vmax
}
