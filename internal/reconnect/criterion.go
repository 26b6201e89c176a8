// Package reconnect detects close approaches between vortex filament
// segments and performs the topology-changing surgery.
package reconnect

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/cells"
	"github.com/san-kum/vortexsim/internal/filament"
)

// Candidate describes an accepted reconnection between segment I of
// filament A and segment J of filament B. Shift is the lattice
// displacement that brings B's segment next to A's; it is applied to
// B's side during the surgery.
type Candidate struct {
	A, B     int // filament indices
	I, J     int // segment indices
	Shift    r3.Vec
	Distance float64
}

// Criterion decides whether two segments should reconnect.
type Criterion interface {
	// Cutoff returns the distance below which segment pairs are
	// examined; the engine configures its neighbour finder from it.
	Cutoff() float64
	// Evaluate inspects segments (fa, i) and (fb, j) under the periodic
	// box and returns a candidate if they should reconnect.
	Evaluate(fa, fb *filament.Filament, i, j int, box cells.Box) (Candidate, bool)
}

// BasedOnDistance accepts segment pairs whose minimum distance is below
// DCrit and whose tangents point against each other, filtering the
// grazing parallel approaches that would immediately reconnect back.
type BasedOnDistance struct {
	DCrit float64
	// MaxTangentDot is the acceptance threshold on the tangent dot
	// product; the default 0 requires antiparallel segments.
	MaxTangentDot float64
	// UseCurves samples the interpolated curves instead of treating
	// segments as straight chords.
	UseCurves bool
}

func (c BasedOnDistance) Cutoff() float64 { return c.DCrit }

func (c BasedOnDistance) Evaluate(fa, fb *filament.Filament, i, j int, box cells.Box) (Candidate, bool) {
	a0 := fa.X.At(i)
	a1 := fa.X.At(i + 1)
	b0 := fb.X.At(j)
	b1 := fb.X.At(j + 1)

	// Periodic image: move b's segment next to a's.
	midA := r3.Scale(0.5, r3.Add(a0, a1))
	midB := r3.Scale(0.5, r3.Add(b0, b1))
	shift := r3.Scale(-1, box.ImageShift(r3.Sub(midB, midA)))
	b0 = r3.Add(b0, shift)
	b1 = r3.Add(b1, shift)

	ta := fa.UnitTangent(i, 0.5)
	tb := fb.UnitTangent(j, 0.5)
	if r3.Dot(ta, tb) >= c.MaxTangentDot {
		return Candidate{}, false
	}

	var d float64
	if c.UseCurves {
		d = curveDistance(fa, i, fb, j, shift)
	} else {
		d = segmentDistance(a0, a1, b0, b1)
	}
	if d >= c.DCrit {
		return Candidate{}, false
	}
	return Candidate{I: i, J: j, Shift: shift, Distance: d}, true
}

// segmentDistance returns the minimum distance between the straight
// segments [a0, a1] and [b0, b1].
func segmentDistance(a0, a1, b0, b1 r3.Vec) float64 {
	u := r3.Sub(a1, a0)
	v := r3.Sub(b1, b0)
	w := r3.Sub(a0, b0)

	a := r3.Norm2(u)
	b := r3.Dot(u, v)
	cc := r3.Norm2(v)
	d := r3.Dot(u, w)
	e := r3.Dot(v, w)
	den := a*cc - b*b

	var s, t float64
	if den > 1e-14*a*cc {
		s = clamp01((b*e - cc*d) / den)
	}
	t = 0.0
	if cc > 0 {
		t = clamp01((b*s + e) / cc)
	}
	// Re-clamp s against the chosen t.
	if a > 0 {
		s = clamp01((b*t - d) / a)
	}
	p := r3.Add(a0, r3.Scale(s, u))
	q := r3.Add(b0, r3.Scale(t, v))
	return r3.Norm(r3.Sub(p, q))
}

// curveDistance samples the two interpolated segments and returns the
// smallest pairwise distance. Five samples per segment resolve the
// cubic shape well below the reconnection scale.
func curveDistance(fa *filament.Filament, i int, fb *filament.Filament, j int, shift r3.Vec) float64 {
	const samples = 5
	minD := math.Inf(1)
	for si := 0; si < samples; si++ {
		za := float64(si) / (samples - 1)
		p := fa.Evaluate(i, za, 0)
		for sj := 0; sj < samples; sj++ {
			zb := float64(sj) / (samples - 1)
			q := r3.Add(fb.Evaluate(j, zb, 0), shift)
			if d := r3.Norm(r3.Sub(p, q)); d < minD {
				minD = d
			}
		}
	}
	return minD
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
