// Package filament represents closed vortex filaments as discretized
// parametric curves.
//
// A filament owns its node positions, parametric knots and the derived
// interpolation coefficients for one of the discretization backends:
//
//   - [FiniteDifference]: stencil derivative estimates paired with
//     Hermite interpolation of order M in {0, 1, 2}
//   - [CubicSpline], [QuinticSpline]: periodic B-splines of order 4/6
//
// Nodes live at logical indices 1..N. A closed loop has zero end-to-end
// offset; an infinite line in a periodic box carries the lattice vector
// Δ with X[i+N] = X[i] + Δ. All per-node data is ghost-padded so that
// stencils and spline evaluations read past the endpoints without
// branching; [Filament.UpdateCoefficients] refreshes the pads and the
// interpolation coefficients and must be called after any mutation.
package filament

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/cells"
	"github.com/san-kum/vortexsim/internal/padded"
	"github.com/san-kum/vortexsim/internal/quadrature"
)

// ErrDegenerate is returned when an operation would leave a filament
// with fewer nodes than its discretization method supports.
var ErrDegenerate = errors.New("filament: node count below method minimum")

// Filament is a closed curve discretized at N nodes.
type Filament struct {
	X      *padded.Sequence[r3.Vec]
	Knots  *padded.Sequence[float64]
	Offset r3.Vec // end-to-end offset over one parametric period

	method Discretisation
	period float64 // total parametric period T

	// Backend coefficient storage; each method uses its own subset.
	deriv1  *padded.Sequence[r3.Vec] // FD first-derivative estimates
	deriv2  *padded.Sequence[r3.Vec] // FD second-derivative estimates
	cpoints *padded.Sequence[r3.Vec] // spline control points
}

// New constructs a filament from sampled points. Knots are assigned the
// arc-length-proportional parametrization t[i+1]-t[i] = |X[i+1]-X[i]|
// and interpolation coefficients are computed before returning.
func New(points []r3.Vec, method Discretisation, offset r3.Vec) (*Filament, error) {
	if len(points) < method.MinNodes() {
		return nil, fmt.Errorf("%w: %d < %d (%s)", ErrDegenerate, len(points), method.MinNodes(), method.Name())
	}
	m := method.PadWidth()
	f := &Filament{
		X:      padded.FromSlice(points, m),
		Knots:  padded.New[float64](len(points), m),
		Offset: offset,
		method: method,
	}
	f.allocCoefficients()
	f.ResetKnots()
	f.UpdateCoefficients()
	return f, nil
}

func (f *Filament) allocCoefficients() {
	n, m := f.X.Len(), f.X.Pad()
	switch f.method.(type) {
	case *FiniteDifference:
		f.deriv1 = padded.New[r3.Vec](n, m)
		f.deriv2 = padded.New[r3.Vec](n, m)
	default:
		f.cpoints = padded.New[r3.Vec](n, m)
	}
}

// Method returns the discretization backend.
func (f *Filament) Method() Discretisation { return f.method }

// NumNodes returns the number of visible nodes N.
func (f *Filament) NumNodes() int { return f.X.Len() }

// NumSegments returns the number of segments, equal to N for a closed
// curve (segment N joins X[N] to X[1] + Δ).
func (f *Filament) NumSegments() int { return f.X.Len() }

// Period returns the total parametric period T.
func (f *Filament) Period() float64 { return f.period }

// ResetKnots recomputes the arc-length-proportional knots from the
// current node positions. The first knot is kept at its current value
// so that reparametrizations do not shift the parameter origin.
func (f *Filament) ResetKnots() {
	n := f.X.Len()
	t0 := f.Knots.At(1)
	f.Knots.Set(1, t0)
	for i := 1; i < n; i++ {
		d := r3.Norm(r3.Sub(f.X.At(i+1), f.X.At(i)))
		f.Knots.Set(i+1, f.Knots.At(i)+d)
	}
	closing := r3.Norm(r3.Sub(r3.Add(f.X.At(1), f.Offset), f.X.At(n)))
	f.period = f.Knots.At(n) + closing - t0
}

// UpdateCoefficients refreshes the ghost pads of positions and knots and
// recomputes the interpolation coefficients. Must be called after any
// mutation of X, the knots or N before evaluating off-node quantities.
func (f *Filament) UpdateCoefficients() {
	off := f.Offset
	f.X.PadPeriodic(func(v r3.Vec, image int) r3.Vec {
		return r3.Add(v, r3.Scale(float64(image), off))
	})
	T := f.period
	f.Knots.PadPeriodic(func(v float64, image int) float64 {
		return v + T*float64(image)
	})
	f.method.update(f)
}

// Evaluate returns the d-th parametric derivative of the curve at the
// parameter t(i) + ζ·(t(i+1)-t(i)), ζ in [0, 1]. d = 0 gives the
// position. Derivative orders beyond the interpolant degree return the
// zero vector.
func (f *Filament) Evaluate(i int, zeta float64, d int) r3.Vec {
	return f.method.evaluate(f, i, zeta, d)
}

// EvaluateAt locates the segment bracketing the open parameter t in
// [t(1), t(1)+T) and evaluates there.
func (f *Filament) EvaluateAt(t float64, d int) r3.Vec {
	n := f.X.Len()
	t0 := f.Knots.At(1)
	t = math.Mod(t-t0, f.period)
	if t < 0 {
		t += f.period
	}
	t += t0
	// Linear scan is fine: the caller's t is usually near the last hit
	// and N is modest.
	i := n
	for s := 1; s <= n; s++ {
		if t < f.knotEnd(s) {
			i = s
			break
		}
	}
	dt := f.knotEnd(i) - f.Knots.At(i)
	zeta := (t - f.Knots.At(i)) / dt
	return f.Evaluate(i, zeta, d)
}

// knotEnd returns the parameter at the end of segment i.
func (f *Filament) knotEnd(i int) float64 { return f.Knots.At(i + 1) }

// SegmentLength returns |X[i+1] - X[i]|, the chord length of segment i.
func (f *Filament) SegmentLength(i int) float64 {
	return r3.Norm(r3.Sub(f.X.At(i+1), f.X.At(i)))
}

// UnitTangent returns the unit tangent at (i, ζ).
func (f *Filament) UnitTangent(i int, zeta float64) r3.Vec {
	return r3.Unit(f.Evaluate(i, zeta, 1))
}

// CurvatureVector returns the curvature vector κ·n̂ at (i, ζ), obtained
// from the parametric derivatives by the chain rule.
func (f *Filament) CurvatureVector(i int, zeta float64) r3.Vec {
	d1 := f.Evaluate(i, zeta, 1)
	d2 := f.Evaluate(i, zeta, 2)
	n2 := r3.Norm2(d1)
	that := r3.Unit(d1)
	perp := r3.Sub(d2, r3.Scale(r3.Dot(d2, that), that))
	return r3.Scale(1/n2, perp)
}

// CurvatureScalar returns |κ| at (i, ζ).
func (f *Filament) CurvatureScalar(i int, zeta float64) float64 {
	return r3.Norm(f.CurvatureVector(i, zeta))
}

// CurvatureBinormal returns (s′ × s″)/|s′|³ = κ·b̂ at (i, ζ), the
// vector entering the local induction approximation.
func (f *Filament) CurvatureBinormal(i int, zeta float64) r3.Vec {
	d1 := f.Evaluate(i, zeta, 1)
	d2 := f.Evaluate(i, zeta, 2)
	n1 := r3.Norm(d1)
	return r3.Scale(1/(n1*n1*n1), r3.Cross(d1, d2))
}

// MinNodeDistance returns the smallest chord length over all segments.
func (f *Filament) MinNodeDistance() float64 {
	minD := math.Inf(1)
	for i := 1; i <= f.NumSegments(); i++ {
		if d := f.SegmentLength(i); d < minD {
			minD = d
		}
	}
	return minD
}

// MinKnotIncrement returns the smallest knot spacing.
func (f *Filament) MinKnotIncrement() float64 {
	minDt := math.Inf(1)
	for i := 1; i <= f.NumSegments(); i++ {
		if dt := f.knotEnd(i) - f.Knots.At(i); dt < minDt {
			minDt = dt
		}
	}
	return minDt
}

// Length returns the filament length using the given quadrature rule on
// each segment.
func (f *Filament) Length(rule quadrature.Rule) float64 {
	sum := 0.0
	for i := 1; i <= f.NumSegments(); i++ {
		dt := f.knotEnd(i) - f.Knots.At(i)
		for q, zeta := range rule.Nodes {
			sum += rule.Weights[q] * dt * r3.Norm(f.Evaluate(i, zeta, 1))
		}
	}
	return sum
}

// FoldPeriodic shifts the filament rigidly by a lattice vector so that
// its nodes lie in the fundamental cell [0, L) where the extent allows.
// A rigid shift keeps the curve continuous; the end-to-end offset is
// unchanged. Reports whether any node moved, in which case the caller
// must refresh the coefficients.
func (f *Filament) FoldPeriodic(box cells.Box) bool {
	n := f.X.Len()
	lo := f.X.At(1)
	for i := 2; i <= n; i++ {
		v := f.X.At(i)
		lo = r3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
	}
	shift := r3.Vec{
		X: foldShift(lo.X, box.L.X),
		Y: foldShift(lo.Y, box.L.Y),
		Z: foldShift(lo.Z, box.L.Z),
	}
	if shift == (r3.Vec{}) {
		return false
	}
	for i := 1; i <= n; i++ {
		f.X.Set(i, r3.Add(f.X.At(i), shift))
	}
	return true
}

func foldShift(lo, period float64) float64 {
	if math.IsInf(period, 1) {
		return 0
	}
	return -period * math.Floor(lo/period)
}

// CheckNodes reports whether the filament is non-degenerate: enough
// nodes for its method, finite positions, strictly increasing knots.
func (f *Filament) CheckNodes() bool {
	n := f.X.Len()
	if n < f.method.MinNodes() {
		return false
	}
	for i := 1; i <= n; i++ {
		v := f.X.At(i)
		if !isFinite(v.X) || !isFinite(v.Y) || !isFinite(v.Z) {
			return false
		}
	}
	for i := 1; i < n; i++ {
		if !(f.Knots.At(i+1) > f.Knots.At(i)) {
			return false
		}
	}
	return f.period > 0
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Nodes returns a copy of the visible node positions.
func (f *Filament) Nodes() []r3.Vec {
	out := make([]r3.Vec, f.X.Len())
	copy(out, f.X.Visible())
	return out
}

// Clone returns a deep copy sharing nothing with the receiver.
func (f *Filament) Clone() *Filament {
	c := &Filament{
		X:      f.X.Clone(),
		Knots:  f.Knots.Clone(),
		Offset: f.Offset,
		method: f.method,
		period: f.period,
	}
	if f.deriv1 != nil {
		c.deriv1 = f.deriv1.Clone()
		c.deriv2 = f.deriv2.Clone()
	}
	if f.cpoints != nil {
		c.cpoints = f.cpoints.Clone()
	}
	return c
}

// SetNodes replaces the visible node positions (N unchanged) without
// recomputing anything; the caller must call ResetKnots and
// UpdateCoefficients afterwards.
func (f *Filament) SetNodes(points []r3.Vec) {
	if len(points) != f.X.Len() {
		panic(fmt.Sprintf("filament: SetNodes length %d != N %d", len(points), f.X.Len()))
	}
	copy(f.X.Visible(), points)
}
