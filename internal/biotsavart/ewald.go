package biotsavart

import "math"

// eulerGamma is the Euler–Mascheroni constant entering the local
// induction logarithm.
const eulerGamma = 0.5772156649015329

const twoOverSqrtPi = 2 / math.SqrtPi

// velocityScreen is the short-range screening factor of the Biot–Savart
// kernel: erfc(αr) + (2αr/√π)·exp(−α²r²). It multiplies the bare
// 1/r³ integrand; alpha = 0 gives 1 (no splitting).
func velocityScreen(alpha, r float64) float64 {
	if alpha == 0 {
		return 1
	}
	ar := alpha * r
	return math.Erfc(ar) + twoOverSqrtPi*ar*math.Exp(-ar*ar)
}

// streamScreen is the short-range screening factor of the streamfunction
// kernel 1/r: erfc(αr).
func streamScreen(alpha, r float64) float64 {
	if alpha == 0 {
		return 1
	}
	return math.Erfc(alpha * r)
}

// liaCoefficient is the logarithmic prefactor of the desingularized
// local velocity term,
//
//	β = ln(2·sqrt(l⁻·l⁺)/a) − Δ − 1/2,
//
// with a the core radius, Δ the core parameter and l± the lengths of
// the two segments adjacent to the node. This variant complements a
// neighbour sum that excludes exactly those two segments: the cut-ring
// integral contributes ln(4R/l), so the total converges to the
// thin-core ring velocity Γ/4πR·(ln(8R/a) − Δ − 1/2).
func liaCoefficient(a, delta, lm, lp float64) float64 {
	return math.Log(2*math.Sqrt(lm*lp)/a) - delta - 0.5
}

// KelvinWavePeriod returns the period of a Kelvin wave of wavelength
// lambda on a filament with these core parameters,
//
//	T(λ) = (2λ²/Γ)·[ln(λ/(πa)) + 1/2 − (Δ + γ)]⁻¹.
//
// It sets the natural timestep scale of the smallest resolved
// perturbations. A nonpositive logarithm (λ of the order of the core
// size) returns 0.
func (p Params) KelvinWavePeriod(lambda float64) float64 {
	denom := math.Log(lambda/(math.Pi*p.CoreRadius)) + 0.5 - (p.CoreParameter + eulerGamma)
	if denom <= 0 {
		return 0
	}
	return 2 * lambda * lambda / (p.Gamma * denom)
}

// liaStreamCoefficient is the corresponding local coefficient for the
// streamfunction, expressed through the adjacent segment lengths so it
// stays finite on straight filaments:
//
//	βψ = ln(2·sqrt(l⁻·l⁺)/a) − Δ − γ + 1.
func liaStreamCoefficient(a, delta, lm, lp float64) float64 {
	return math.Log(2*math.Sqrt(lm*lp)/a) - delta - eulerGamma + 1
}

// longRangeFilter is the Ewald smoothing factor exp(−k²/4α²) applied to
// every Fourier mode of the long-range part.
func longRangeFilter(alpha, k2 float64) float64 {
	return math.Exp(-k2 / (4 * alpha * alpha))
}
