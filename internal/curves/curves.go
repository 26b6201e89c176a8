// Package curves provides parametric seed curves for initial
// conditions: rings, torus knots, helical and straight lines.
package curves

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/filament"
)

// Curve maps the periodic parameter θ in [0, 2π) to a point. Offset is
// the displacement accumulated over one period (zero for closed
// curves).
type Curve struct {
	At     func(theta float64) r3.Vec
	Offset r3.Vec
}

// Sample evaluates the curve at n uniformly spaced parameters.
func (c Curve) Sample(n int) []r3.Vec {
	pts := make([]r3.Vec, n)
	for i := range pts {
		pts[i] = c.At(2 * math.Pi * float64(i) / float64(n))
	}
	return pts
}

// Filament samples the curve and builds a filament with the method.
func (c Curve) Filament(n int, method filament.Discretisation) (*filament.Filament, error) {
	return filament.New(c.Sample(n), method, c.Offset)
}

// Ring is a circle of radius r centred at c, normal along z.
func Ring(r float64, c r3.Vec) Curve {
	return Curve{At: func(th float64) r3.Vec {
		return r3.Add(c, r3.Vec{X: r * math.Cos(th), Y: r * math.Sin(th)})
	}}
}

// TorusKnot is the (p, q) knot wound on a torus with main radius r and
// tube radius rt, centred at c. TorusKnot(2, 3, …) is the trefoil.
func TorusKnot(p, q int, r, rt float64, c r3.Vec) Curve {
	return Curve{At: func(th float64) r3.Vec {
		fp, fq := float64(p), float64(q)
		w := r + rt*math.Cos(fq*th)
		return r3.Add(c, r3.Vec{
			X: w * math.Cos(fp*th),
			Y: w * math.Sin(fp*th),
			Z: rt * math.Sin(fq*th),
		})
	}}
}

// Trefoil is the standard (2, 3) torus knot.
func Trefoil(r float64, c r3.Vec) Curve {
	return TorusKnot(2, 3, r, r/3, c)
}

// HelicalLine winds around a straight line along z through base with
// the given radius and number of turns per period l.
func HelicalLine(radius float64, turns int, l float64, base r3.Vec) Curve {
	return Curve{
		At: func(th float64) r3.Vec {
			return r3.Add(base, r3.Vec{
				X: radius * math.Cos(float64(turns)*th),
				Y: radius * math.Sin(float64(turns)*th),
				Z: l * th / (2 * math.Pi),
			})
		},
		Offset: r3.Vec{Z: l},
	}
}

// StraightLine advances by offset over one period.
func StraightLine(base, offset r3.Vec) Curve {
	return Curve{
		At: func(th float64) r3.Vec {
			return r3.Add(base, r3.Scale(th/(2*math.Pi), offset))
		},
		Offset: offset,
	}
}

// HopfLink returns two singly-linked rings of radius r: one in the xy
// plane centred at c, one in the xz plane centred on the first ring's
// core at c + (r, 0, 0) and passing through c.
func HopfLink(r float64, c r3.Vec) [2]Curve {
	first := Ring(r, c)
	second := Curve{At: func(th float64) r3.Vec {
		return r3.Add(c, r3.Vec{X: r + r*math.Cos(th), Z: r * math.Sin(th)})
	}}
	return [2]Curve{first, second}
}

// LeapfrogPair returns two coaxial rings a distance d apart, set up for
// the classic leapfrogging motion.
func LeapfrogPair(r, d float64, c r3.Vec) [2]Curve {
	return [2]Curve{
		Ring(r, c),
		Ring(r, r3.Add(c, r3.Vec{Z: d})),
	}
}
