package filament

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// update estimates first and second parametric derivatives at every
// visible node from the (2M+1)-point stencil around it, then pads the
// estimates periodically.
func (fd *FiniteDifference) update(f *Filament) {
	if fd.M == 0 {
		return // linear interpolation needs no node derivatives
	}
	n := f.X.Len()
	m := fd.M
	ts := make([]float64, 2*m+1)
	for i := 1; i <= n; i++ {
		for j := -m; j <= m; j++ {
			ts[j+m] = f.Knots.At(i + j)
		}
		w := fornberg(f.Knots.At(i), ts, 2)
		var d1, d2 r3.Vec
		for j := -m; j <= m; j++ {
			x := f.X.At(i + j)
			d1 = r3.Add(d1, r3.Scale(w[1][j+m], x))
			d2 = r3.Add(d2, r3.Scale(w[2][j+m], x))
		}
		f.deriv1.Set(i, d1)
		f.deriv2.Set(i, d2)
	}
	f.deriv1.PadPeriodic(nil)
	f.deriv2.PadPeriodic(nil)
}

// evaluate computes the Hermite interpolant (degree 2M+1) on segment i
// in the normalized parameter τ = ζ, returning the d-th parametric
// derivative. Orders beyond the polynomial degree give zero.
func (fd *FiniteDifference) evaluate(f *Filament, i int, zeta float64, d int) r3.Vec {
	if d > 2*fd.M+1 {
		return r3.Vec{}
	}
	dt := f.Knots.At(i+1) - f.Knots.At(i)
	x0, x1 := f.X.At(i), f.X.At(i+1)

	switch fd.M {
	case 0:
		switch d {
		case 0:
			return r3.Add(r3.Scale(1-zeta, x0), r3.Scale(zeta, x1))
		case 1:
			return r3.Scale(1/dt, r3.Sub(x1, x0))
		}
		return r3.Vec{}
	case 1:
		return hermite3(zeta, dt, d, x0, x1, f.deriv1.At(i), f.deriv1.At(i+1))
	default:
		return hermite5(zeta, dt, d, x0, x1,
			f.deriv1.At(i), f.deriv1.At(i+1), f.deriv2.At(i), f.deriv2.At(i+1))
	}
}

// hermite3 evaluates the cubic Hermite interpolant reproducing values
// and first derivatives at both segment endpoints.
func hermite3(t, dt float64, d int, x0, x1, d0, d1 r3.Vec) r3.Vec {
	var h00, h10, h01, h11 float64
	switch d {
	case 0:
		h00 = 2*t*t*t - 3*t*t + 1
		h10 = t*t*t - 2*t*t + t
		h01 = -2*t*t*t + 3*t*t
		h11 = t*t*t - t*t
	case 1:
		h00 = 6*t*t - 6*t
		h10 = 3*t*t - 4*t + 1
		h01 = -6*t*t + 6*t
		h11 = 3*t*t - 2*t
	case 2:
		h00 = 12*t - 6
		h10 = 6*t - 4
		h01 = -12*t + 6
		h11 = 6*t - 2
	case 3:
		h00, h10, h01, h11 = 12, 6, -12, 6
	}
	v := r3.Add(r3.Add(r3.Add(r3.Scale(h00, x0), r3.Scale(dt*h10, d0)), r3.Scale(h01, x1)), r3.Scale(dt*h11, d1))
	// Chain rule: each τ-derivative brings a factor 1/dt.
	for k := 0; k < d; k++ {
		v = r3.Scale(1/dt, v)
	}
	return v
}

// hermite5 evaluates the quintic Hermite interpolant reproducing
// values, first and second derivatives at both segment endpoints.
func hermite5(t, dt float64, d int, x0, x1, d0, d1, s0, s1 r3.Vec) r3.Vec {
	t2, t3 := t*t, t*t*t
	t4, t5 := t*t*t*t, t*t*t*t*t
	var h0, h1, h2, k0, k1, k2 float64
	switch d {
	case 0:
		h0 = 1 - 10*t3 + 15*t4 - 6*t5
		h1 = t - 6*t3 + 8*t4 - 3*t5
		h2 = 0.5 * (t2 - 3*t3 + 3*t4 - t5)
		k0 = 10*t3 - 15*t4 + 6*t5
		k1 = -4*t3 + 7*t4 - 3*t5
		k2 = 0.5 * (t3 - 2*t4 + t5)
	case 1:
		h0 = -30*t2 + 60*t3 - 30*t4
		h1 = 1 - 18*t2 + 32*t3 - 15*t4
		h2 = 0.5 * (2*t - 9*t2 + 12*t3 - 5*t4)
		k0 = 30*t2 - 60*t3 + 30*t4
		k1 = -12*t2 + 28*t3 - 15*t4
		k2 = 0.5 * (3*t2 - 8*t3 + 5*t4)
	case 2:
		h0 = -60*t + 180*t2 - 120*t3
		h1 = -36*t + 96*t2 - 60*t3
		h2 = 0.5 * (2 - 18*t + 36*t2 - 20*t3)
		k0 = 60*t - 180*t2 + 120*t3
		k1 = -24*t + 84*t2 - 60*t3
		k2 = 0.5 * (6*t - 24*t2 + 20*t3)
	case 3:
		h0 = -60 + 360*t - 360*t2
		h1 = -36 + 192*t - 180*t2
		h2 = 0.5 * (-18 + 72*t - 60*t2)
		k0 = 60 - 360*t + 360*t2
		k1 = -24 + 168*t - 180*t2
		k2 = 0.5 * (6 - 48*t + 60*t2)
	case 4:
		h0 = 360 - 720*t
		h1 = 192 - 360*t
		h2 = 0.5 * (72 - 120*t)
		k0 = -360 + 720*t
		k1 = 168 - 360*t
		k2 = 0.5 * (-48 + 120*t)
	case 5:
		h0, h1, h2 = -720, -360, -60
		k0, k1, k2 = 720, -360, 60
	}
	v := r3.Add(r3.Add(r3.Add(r3.Add(r3.Add(r3.Scale(h0, x0), r3.Scale(dt*h1, d0)), r3.Scale(dt*dt*h2, s0)), r3.Scale(k0, x1)), r3.Scale(dt*k1, d1)), r3.Scale(dt*dt*k2, s1))
	for k := 0; k < d; k++ {
		v = r3.Scale(1/dt, v)
	}
	return v
}

// fornberg computes finite-difference weights on an arbitrary grid
// (Fornberg 1988). Given stencil points xs and expansion point x0 it
// returns c[k][j], the weight of xs[j] in the k-th derivative, for
// k = 0..m.
func fornberg(x0 float64, xs []float64, m int) [][]float64 {
	n := len(xs)
	c := make([][]float64, m+1)
	for k := range c {
		c[k] = make([]float64, n)
	}
	c[0][0] = 1
	c1 := 1.0
	for i := 1; i < n; i++ {
		c2 := 1.0
		mn := min(i, m)
		for j := 0; j < i; j++ {
			c3 := xs[i] - xs[j]
			c2 *= c3
			if j == i-1 {
				for k := mn; k >= 1; k-- {
					c[k][i] = c1 * (float64(k)*c[k-1][i-1] - (xs[i-1]-x0)*c[k][i-1]) / c2
				}
				c[0][i] = -c1 * (xs[i-1] - x0) * c[0][i-1] / c2
			}
			for k := mn; k >= 1; k-- {
				c[k][j] = ((xs[i]-x0)*c[k][j] - float64(k)*c[k-1][j]) / c3
			}
			c[0][j] = (xs[i] - x0) * c[0][j] / c3
		}
		c1 = c2
	}
	return c
}
