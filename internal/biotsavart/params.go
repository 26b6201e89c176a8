// Package biotsavart evaluates the velocity and streamfunction induced
// by a set of vortex filaments.
//
// The singular Biot–Savart integral is split Ewald-style into
//
//   - a desingularized local term (the local induction approximation),
//   - a short-range part, screened by erfc and summed over nearby
//     segments found through a neighbour finder,
//   - a long-range part, computed on a periodic Fourier grid from a
//     Gaussian-smoothed deposition of the filament vorticity.
//
// Open domains (all periods infinite) have no long-range part; the
// short-range sum then extends over all segments unscreened.
package biotsavart

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/vortexsim/internal/cells"
	"github.com/san-kum/vortexsim/internal/quadrature"
)

// Short-range backend selection.
type ShortRangeBackend int

const (
	BackendCellList ShortRangeBackend = iota
	BackendNaive
)

// Long-range backend selection.
type LongRangeBackend int

const (
	BackendNUFFT LongRangeBackend = iota
	BackendExactSum
)

// NUFFT tunes the nonuniform FFT used by the long-range part.
type NUFFT struct {
	// Tolerance bounds the spreading error; the Gaussian window is
	// truncated where it decays below this value.
	Tolerance float64
	// Support is the half-width of the spreading window in grid cells.
	Support int
	// Oversampling enlarges the transform grid relative to the
	// resolved wavenumber grid.
	Oversampling float64
}

// DefaultNUFFT matches a relative accuracy of about 1e-6.
func DefaultNUFFT() NUFFT {
	return NUFFT{Tolerance: 1e-6, Support: 4, Oversampling: 1.5}
}

// Params configures the evaluator. The zero value is not valid;
// construct explicitly and validate through NewCache.
type Params struct {
	// Gamma is the quantum of circulation.
	Gamma float64
	// CoreRadius is the vortex core radius a.
	CoreRadius float64
	// CoreParameter is the core model constant Δ (1/4 solid body, 1/2
	// hollow core).
	CoreParameter float64
	// Box holds the domain periods; +Inf marks an open direction.
	Box cells.Box
	// Alpha is the Ewald splitting parameter. Zero in open domains.
	Alpha float64
	// RCut is the short-range cutoff. Must be below half the smallest
	// period.
	RCut float64
	// GridSize is the resolved Fourier grid, one even extent per
	// dimension. Ignored in open domains.
	GridSize [3]int

	QuadratureShort quadrature.Rule
	QuadratureLong  quadrature.Rule

	ShortBackend ShortRangeBackend
	LongBackend  LongRangeBackend
	NUFFT        NUFFT
}

// KMax returns the largest resolved wavenumber per dimension,
// (N/2)·2π/L.
func (p Params) KMax() [3]float64 {
	L := [3]float64{p.Box.L.X, p.Box.L.Y, p.Box.L.Z}
	var km [3]float64
	for d := 0; d < 3; d++ {
		km[d] = float64(p.GridSize[d]/2) * 2 * math.Pi / L[d]
	}
	return km
}

var errMixedPeriodicity = errors.New("biotsavart: mixed periodic/open dimensions not supported")

// Validate checks the configuration errors that are fatal at
// construction time.
func (p Params) Validate() error {
	if p.Gamma <= 0 {
		return fmt.Errorf("biotsavart: circulation must be positive, got %g", p.Gamma)
	}
	if p.CoreRadius <= 0 {
		return fmt.Errorf("biotsavart: core radius must be positive, got %g", p.CoreRadius)
	}
	if p.CoreParameter < 0 || p.CoreParameter > 1 {
		return fmt.Errorf("biotsavart: core parameter must be in [0, 1], got %g", p.CoreParameter)
	}
	if p.QuadratureShort.Len() == 0 || p.QuadratureLong.Len() == 0 {
		return errors.New("biotsavart: quadrature rules not set")
	}
	if p.Box.Open() {
		if p.Alpha != 0 {
			return fmt.Errorf("biotsavart: Ewald alpha must be zero in an open domain, got %g", p.Alpha)
		}
		return nil
	}
	if !p.Box.Periodic() {
		return errMixedPeriodicity
	}
	if p.Alpha <= 0 {
		return fmt.Errorf("biotsavart: Ewald alpha must be positive, got %g", p.Alpha)
	}
	if p.RCut <= 0 || p.RCut >= p.Box.MinPeriod()/2 {
		return fmt.Errorf("biotsavart: cutoff %g must be in (0, L/2) with L = %g", p.RCut, p.Box.MinPeriod())
	}
	for d, n := range p.GridSize {
		if n <= 0 || n%2 != 0 {
			return fmt.Errorf("biotsavart: grid size %d in dimension %d must be even and positive", n, d)
		}
	}
	if p.LongBackend == BackendNUFFT {
		nf := p.NUFFT
		if nf.Tolerance <= 0 || nf.Tolerance >= 1 {
			return fmt.Errorf("biotsavart: NUFFT tolerance %g out of range", nf.Tolerance)
		}
		if nf.Support < 1 {
			return fmt.Errorf("biotsavart: NUFFT support %d must be at least 1", nf.Support)
		}
		if nf.Oversampling < 1 {
			return fmt.Errorf("biotsavart: NUFFT oversampling %g must be at least 1", nf.Oversampling)
		}
	}
	return nil
}

// Component selects the subset of the Ewald decomposition to evaluate.
type Component int

const (
	// Full is local + short-range + long-range.
	Full Component = iota
	// LongRange is the smooth Fourier part alone.
	LongRange
	// ShortRange is the screened near-field plus the local term.
	ShortRange
	// LocalOnly is the local induction term alone.
	LocalOnly
	// ShortRangeNoLocal is the screened near-field without the local
	// term.
	ShortRangeNoLocal
)

func (c Component) String() string {
	switch c {
	case Full:
		return "full"
	case LongRange:
		return "longrange"
	case ShortRange:
		return "shortrange"
	case LocalOnly:
		return "local"
	case ShortRangeNoLocal:
		return "shortrange-nolocal"
	}
	return fmt.Sprintf("Component(%d)", int(c))
}

func (c Component) wantsShort() bool {
	return c == Full || c == ShortRange || c == ShortRangeNoLocal
}

func (c Component) wantsLocal() bool {
	return c == Full || c == ShortRange || c == LocalOnly
}

func (c Component) wantsLong() bool {
	return c == Full || c == LongRange
}
