package filament

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// update solves the periodic collocation system for the B-spline
// control points: sum_j B_j(t_i) c_j = X_i for every visible node. The
// system is a cyclic band of width order-1; it is assembled dense and
// solved by LU, which is cheap at typical node counts and avoids a
// bespoke cyclic band solver.
func (s *spline) update(f *Filament) {
	n := f.X.Len()
	k := s.order

	a := mat.NewDense(n, n, nil)
	b := mat.NewDense(n, 3, nil)
	for i := 1; i <= n; i++ {
		ti := f.Knots.At(i)
		vals := s.basisFuns(f, i, ti)
		// Control points wrap with the end-to-end offset,
		// c[j±n] = c[j] ± Δ, so out-of-range columns fold back with
		// their image count moved to the right-hand side.
		images := 0.0
		for r := 0; r < k; r++ {
			j, image := i-k+1+r, 0
			for j < 1 {
				j += n
				image--
			}
			for j > n {
				j -= n
				image++
			}
			a.Set(i-1, j-1, a.At(i-1, j-1)+vals[r])
			images += vals[r] * float64(image)
		}
		x := r3.Sub(f.X.At(i), r3.Scale(images, f.Offset))
		b.Set(i-1, 0, x.X)
		b.Set(i-1, 1, x.Y)
		b.Set(i-1, 2, x.Z)
	}

	var lu mat.LU
	lu.Factorize(a)
	var c mat.Dense
	if err := lu.SolveTo(&c, false, b); err != nil {
		panic(fmt.Sprintf("filament: singular spline collocation system: %v", err))
	}
	for j := 1; j <= n; j++ {
		f.cpoints.Set(j, r3.Vec{X: c.At(j-1, 0), Y: c.At(j-1, 1), Z: c.At(j-1, 2)})
	}
	off := f.Offset
	f.cpoints.PadPeriodic(func(v r3.Vec, image int) r3.Vec {
		return r3.Add(v, r3.Scale(float64(image), off))
	})
}

// evaluate computes the d-th parametric derivative by de Boor's
// recurrence. Derivatives of order >= k vanish identically.
func (s *spline) evaluate(f *Filament, i int, zeta float64, d int) r3.Vec {
	k := s.order
	if d >= k {
		return r3.Vec{}
	}
	ti := f.Knots.At(i)
	t := ti + zeta*(f.Knots.At(i+1)-ti)
	ders := s.dersBasisFuns(f, i, t, d)
	var v r3.Vec
	for r := 0; r < k; r++ {
		v = r3.Add(v, r3.Scale(ders[d][r], f.cpoints.At(i-k+1+r)))
	}
	return v
}

// wrapIndex folds a cyclic index into [1, n].
func wrapIndex(j, n int) int {
	j = (j - 1) % n
	if j < 0 {
		j += n
	}
	return j + 1
}

// basisFuns evaluates the k nonvanishing B-spline basis functions of
// order k on the knot span [t_i, t_{i+1}) at parameter t. The result
// res[r] is B_{i-k+1+r}(t). Ghost knots come from the padded knot
// sequence, so spans near the ends wrap by the parametric period.
func (s *spline) basisFuns(f *Filament, i int, t float64) []float64 {
	k := s.order
	res := make([]float64, k)
	left := make([]float64, k)
	right := make([]float64, k)
	res[0] = 1
	for j := 1; j < k; j++ {
		left[j] = t - f.Knots.At(i+1-j)
		right[j] = f.Knots.At(i+j) - t
		saved := 0.0
		for r := 0; r < j; r++ {
			tmp := res[r] / (right[r+1] + left[j-r])
			res[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		res[j] = saved
	}
	return res
}

// dersBasisFuns evaluates the nonvanishing basis functions and their
// derivatives up to order nd on span i at parameter t (The NURBS Book,
// algorithm A2.3). ders[d][r] is the d-th derivative of B_{i-k+1+r}.
func (s *spline) dersBasisFuns(f *Filament, i int, t float64, nd int) [][]float64 {
	k := s.order
	p := k - 1 // polynomial degree
	if nd > p {
		nd = p
	}

	ndu := make([][]float64, k)
	for j := range ndu {
		ndu[j] = make([]float64, k)
	}
	left := make([]float64, k)
	right := make([]float64, k)
	ndu[0][0] = 1
	for j := 1; j <= p; j++ {
		left[j] = t - f.Knots.At(i+1-j)
		right[j] = f.Knots.At(i+j) - t
		saved := 0.0
		for r := 0; r < j; r++ {
			ndu[j][r] = right[r+1] + left[j-r]
			tmp := ndu[r][j-1] / ndu[j][r]
			ndu[r][j] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		ndu[j][j] = saved
	}

	ders := make([][]float64, nd+1)
	for d := range ders {
		ders[d] = make([]float64, k)
	}
	for r := 0; r <= p; r++ {
		ders[0][r] = ndu[r][p]
	}

	a := [2][]float64{make([]float64, k), make([]float64, k)}
	for r := 0; r <= p; r++ {
		s1, s2 := 0, 1
		a[0][0] = 1
		for d := 1; d <= nd; d++ {
			der := 0.0
			rk, pk := r-d, p-d
			if r >= d {
				a[s2][0] = a[s1][0] / ndu[pk+1][rk]
				der = a[s2][0] * ndu[rk][pk]
			}
			j1 := 1
			if rk < -1 {
				j1 = -rk
			}
			j2 := d - 1
			if r-1 > pk {
				j2 = p - r
			}
			for j := j1; j <= j2; j++ {
				a[s2][j] = (a[s1][j] - a[s1][j-1]) / ndu[pk+1][rk+j]
				der += a[s2][j] * ndu[rk+j][pk]
			}
			if r <= pk {
				a[s2][d] = -a[s1][d-1] / ndu[pk+1][r]
				der += a[s2][d] * ndu[r][pk]
			}
			ders[d][r] = der
			s1, s2 = s2, s1
		}
	}

	fac := float64(p)
	for d := 1; d <= nd; d++ {
		for r := 0; r <= p; r++ {
			ders[d][r] *= fac
		}
		fac *= float64(p - d)
	}
	return ders
}
