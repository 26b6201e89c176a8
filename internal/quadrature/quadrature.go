// Package quadrature provides Gauss–Legendre rules for integrating
// along a filament segment parametrized on [0, 1].
package quadrature

import (
	"fmt"

	"gonum.org/v1/gonum/integrate/quad"
)

// Rule holds quadrature nodes and weights on [0, 1].
type Rule struct {
	Nodes   []float64
	Weights []float64
}

// GaussLegendre returns the n-point Gauss–Legendre rule on [0, 1].
func GaussLegendre(n int) Rule {
	if n < 1 {
		panic(fmt.Sprintf("quadrature: invalid order %d", n))
	}
	r := Rule{
		Nodes:   make([]float64, n),
		Weights: make([]float64, n),
	}
	(quad.Legendre{}).FixedLocations(r.Nodes, r.Weights, 0, 1)
	return r
}

// Len returns the number of quadrature points.
func (r Rule) Len() int { return len(r.Nodes) }

// Integrate approximates the integral of f over [0, 1].
func (r Rule) Integrate(f func(x float64) float64) float64 {
	sum := 0.0
	for i, x := range r.Nodes {
		sum += r.Weights[i] * f(x)
	}
	return sum
}
