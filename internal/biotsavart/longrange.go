package biotsavart

import (
	"math"
	"runtime"
	"sync"

	"github.com/mjibson/go-dsp/dsputils"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/filament"
)

// longCache holds the oversampled Fourier grid used by the long-range
// part. The layout is row-major with z slowest: idx = (iz*ny+iy)*nx+ix.
type longCache struct {
	ng   [3]int     // oversampled grid extents
	h    [3]float64 // grid spacing per dimension
	tau  [3]float64 // Gaussian window variance per dimension
	kmax [3]float64 // resolved wavenumber ceiling (pre-oversampling)
	vol  float64

	w [3][]complex128 // vorticity spread onto the grid, one per component

	// Last transformed spectra, kept for the energy spectrum
	// diagnostic: the smoothed vorticity in Fourier space.
	spectrum [3][]complex128
}

func newLongCache(p Params) *longCache {
	lc := &longCache{}
	L := [3]float64{p.Box.L.X, p.Box.L.Y, p.Box.L.Z}
	logTol := math.Log(1 / p.NUFFT.Tolerance)
	for d := 0; d < 3; d++ {
		n := int(math.Ceil(p.NUFFT.Oversampling * float64(p.GridSize[d])))
		if n%2 != 0 {
			n++
		}
		lc.ng[d] = n
		lc.h[d] = L[d] / float64(n)
		lc.tau[d] = (float64(p.NUFFT.Support) * lc.h[d]) * (float64(p.NUFFT.Support) * lc.h[d]) / (4 * logTol)
	}
	lc.kmax = p.KMax()
	lc.vol = L[0] * L[1] * L[2]
	total := lc.ng[0] * lc.ng[1] * lc.ng[2]
	for d := 0; d < 3; d++ {
		lc.w[d] = make([]complex128, total)
	}
	return lc
}

func (lc *longCache) idx(ix, iy, iz int) int {
	return (iz*lc.ng[1]+iy)*lc.ng[0] + ix
}

// waveNumber maps an FFT index to a signed wavenumber using the
// standard FFT frequency convention.
func (lc *longCache) waveNumber(n, d int) float64 {
	if n > lc.ng[d]/2 {
		n -= lc.ng[d]
	}
	return 2 * math.Pi * float64(n) / (lc.h[d] * float64(lc.ng[d]))
}

// quadPoint is one vorticity sample along a filament: position and the
// weighted line element Γ·s′·w·dt.
type quadPoint struct {
	pos    r3.Vec
	weight r3.Vec
}

// gatherQuadPoints samples every segment of every filament with the
// long-range quadrature rule.
func (c *Cache) gatherQuadPoints(fs []*filament.Filament) []quadPoint {
	rule := c.p.QuadratureLong
	var pts []quadPoint
	for _, f := range fs {
		for i := 1; i <= f.NumSegments(); i++ {
			dt := f.Knots.At(i+1) - f.Knots.At(i)
			for q, zeta := range rule.Nodes {
				pts = append(pts, quadPoint{
					pos:    f.Evaluate(i, zeta, 0),
					weight: r3.Scale(c.p.Gamma*rule.Weights[q]*dt, f.Evaluate(i, zeta, 1)),
				})
			}
		}
	}
	return pts
}

// spread deposits the weighted samples onto the grid with a truncated
// Gaussian window. Sequential on purpose: the accumulation order is
// then fixed and results reproduce bitwise.
func (lc *longCache) spread(pts []quadPoint, support int) {
	for d := 0; d < 3; d++ {
		for i := range lc.w[d] {
			lc.w[d][i] = 0
		}
	}
	wx := make([]float64, 2*support+1)
	wy := make([]float64, 2*support+1)
	wz := make([]float64, 2*support+1)
	for _, p := range pts {
		ix0 := lc.windowWeights(p.pos.X, 0, support, wx)
		iy0 := lc.windowWeights(p.pos.Y, 1, support, wy)
		iz0 := lc.windowWeights(p.pos.Z, 2, support, wz)
		for dz := 0; dz <= 2*support; dz++ {
			iz := wrapGrid(iz0+dz, lc.ng[2])
			for dy := 0; dy <= 2*support; dy++ {
				iy := wrapGrid(iy0+dy, lc.ng[1])
				wyz := wy[dy] * wz[dz]
				for dx := 0; dx <= 2*support; dx++ {
					ix := wrapGrid(ix0+dx, lc.ng[0])
					phi := wx[dx] * wyz
					if phi == 0 {
						continue
					}
					at := lc.idx(ix, iy, iz)
					lc.w[0][at] += complex(p.weight.X*phi, 0)
					lc.w[1][at] += complex(p.weight.Y*phi, 0)
					lc.w[2][at] += complex(p.weight.Z*phi, 0)
				}
			}
		}
	}
}

// windowWeights fills w with the 1-D Gaussian window values around
// coordinate x and returns the first grid index of the window.
func (lc *longCache) windowWeights(x float64, d, support int, w []float64) int {
	h := lc.h[d]
	i0 := int(math.Floor(x/h)) - support
	for j := range w {
		xg := float64(i0+j) * h
		dx := x - xg
		w[j] = math.Exp(-dx * dx / (4 * lc.tau[d]))
	}
	return i0
}

func wrapGrid(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// windowTransform is the Fourier transform of the 1-D Gaussian window,
// 2·sqrt(π·τ)·exp(−τ·k²).
func (lc *longCache) windowTransform(k float64, d int) float64 {
	return 2 * math.Sqrt(math.Pi*lc.tau[d]) * math.Exp(-lc.tau[d]*k*k)
}

// longRangeGrids transforms the spread vorticity and returns the
// velocity and/or streamfunction grids ready for interpolation.
func (c *Cache) longRangeGrids(wantVel, wantStr bool) (vel, str [3][]complex128) {
	lc := c.long
	dims := []int{lc.ng[2], lc.ng[1], lc.ng[0]}
	var what [3]*dsputils.Matrix
	for d := 0; d < 3; d++ {
		what[d] = fft.FFTN(dsputils.MakeMatrix(lc.w[d], dims))
	}

	total := lc.ng[0] * lc.ng[1] * lc.ng[2]
	if wantVel {
		for d := 0; d < 3; d++ {
			vel[d] = make([]complex128, total)
		}
	}
	if wantStr {
		for d := 0; d < 3; d++ {
			str[d] = make([]complex128, total)
		}
	}
	for d := 0; d < 3; d++ {
		lc.spectrum[d] = make([]complex128, total)
	}

	h3 := lc.h[0] * lc.h[1] * lc.h[2]
	alpha := c.p.Alpha

	var wg sync.WaitGroup
	nworkers := runtime.NumCPU()
	chunk := (lc.ng[2] + nworkers - 1) / nworkers
	for w := 0; w < nworkers; w++ {
		zlo, zhi := w*chunk, min((w+1)*chunk, lc.ng[2])
		if zlo >= zhi {
			break
		}
		wg.Add(1)
		go func(zlo, zhi int) {
			defer wg.Done()
			pos := []int{0, 0, 0}
			for iz := zlo; iz < zhi; iz++ {
				kz := lc.waveNumber(iz, 2)
				for iy := 0; iy < lc.ng[1]; iy++ {
					ky := lc.waveNumber(iy, 1)
					for ix := 0; ix < lc.ng[0]; ix++ {
						kx := lc.waveNumber(ix, 0)
						at := lc.idx(ix, iy, iz)
						k2 := kx*kx + ky*ky + kz*kz
						if k2 == 0 ||
							math.Abs(kx) > lc.kmax[0] ||
							math.Abs(ky) > lc.kmax[1] ||
							math.Abs(kz) > lc.kmax[2] {
							continue
						}
						pos[0], pos[1], pos[2] = iz, iy, ix
						wk := [3]complex128{
							what[0].Value(pos),
							what[1].Value(pos),
							what[2].Value(pos),
						}
						// Deconvolve spreading and interpolation
						// windows, smooth, and divide by k².
						phihat := lc.windowTransform(kx, 0) *
							lc.windowTransform(ky, 1) *
							lc.windowTransform(kz, 2)
						// One h³ from the forward DFT scaling, divided
						// back out by the inverse-plus-interpolation
						// pair, leaves a single net factor.
						scale := complex(h3*longRangeFilter(alpha, k2)/(k2*phihat*phihat), 0)

						// Smoothed vorticity spectrum for diagnostics.
						smooth := complex(h3*longRangeFilter(alpha, k2)/phihat, 0)
						for d := 0; d < 3; d++ {
							lc.spectrum[d][at] = smooth * wk[d]
						}

						if wantStr {
							for d := 0; d < 3; d++ {
								str[d][at] = scale * wk[d]
							}
						}
						if wantVel {
							// i·k × w
							ik := [3]complex128{complex(0, kx), complex(0, ky), complex(0, kz)}
							vel[0][at] = scale * (ik[1]*wk[2] - ik[2]*wk[1])
							vel[1][at] = scale * (ik[2]*wk[0] - ik[0]*wk[2])
							vel[2][at] = scale * (ik[0]*wk[1] - ik[1]*wk[0])
						}
					}
				}
			}
		}(zlo, zhi)
	}
	wg.Wait()

	toReal := func(g [3][]complex128) [3][]complex128 {
		for d := 0; d < 3; d++ {
			if g[d] == nil {
				continue
			}
			m := fft.IFFTN(dsputils.MakeMatrix(g[d], dims))
			pos := []int{0, 0, 0}
			for iz := 0; iz < lc.ng[2]; iz++ {
				for iy := 0; iy < lc.ng[1]; iy++ {
					for ix := 0; ix < lc.ng[0]; ix++ {
						pos[0], pos[1], pos[2] = iz, iy, ix
						g[d][lc.idx(ix, iy, iz)] = m.Value(pos)
					}
				}
			}
		}
		return g
	}
	return toReal(vel), toReal(str)
}

// addLongRange computes the smooth Ewald component at every node:
// spread, transform, multiply, transform back, interpolate.
func (c *Cache) addLongRange(out Fields, fs []*filament.Filament) error {
	lc := c.long
	pts := c.gatherQuadPoints(fs)
	lc.spread(pts, c.p.NUFFT.Support)

	vel, str := c.longRangeGrids(out.Velocity != nil, out.Streamfunction != nil)

	support := c.p.NUFFT.Support

	var wg sync.WaitGroup
	for fi, f := range fs {
		wg.Add(1)
		go func(fi int, f *filament.Filament) {
			defer wg.Done()
			wx := make([]float64, 2*support+1)
			wy := make([]float64, 2*support+1)
			wz := make([]float64, 2*support+1)
			for i := 1; i <= f.NumNodes(); i++ {
				x := f.X.At(i)
				ix0 := lc.windowWeights(x.X, 0, support, wx)
				iy0 := lc.windowWeights(x.Y, 1, support, wy)
				iz0 := lc.windowWeights(x.Z, 2, support, wz)
				var v, s r3.Vec
				for dz := 0; dz <= 2*support; dz++ {
					iz := wrapGrid(iz0+dz, lc.ng[2])
					for dy := 0; dy <= 2*support; dy++ {
						iy := wrapGrid(iy0+dy, lc.ng[1])
						wyz := wy[dy] * wz[dz]
						for dx := 0; dx <= 2*support; dx++ {
							phi := wx[dx] * wyz
							if phi == 0 {
								continue
							}
							at := lc.idx(wrapGrid(ix0+dx, lc.ng[0]), iy, iz)
							if out.Velocity != nil {
								v.X += real(vel[0][at]) * phi
								v.Y += real(vel[1][at]) * phi
								v.Z += real(vel[2][at]) * phi
							}
							if out.Streamfunction != nil {
								s.X += real(str[0][at]) * phi
								s.Y += real(str[1][at]) * phi
								s.Z += real(str[2][at]) * phi
							}
						}
					}
				}
				if out.Velocity != nil {
					out.Velocity[fi][i-1] = r3.Add(out.Velocity[fi][i-1], v)
				}
				if out.Streamfunction != nil {
					out.Streamfunction[fi][i-1] = r3.Add(out.Streamfunction[fi][i-1], s)
				}
			}
		}(fi, f)
	}
	wg.Wait()
	return nil
}

// Spectrum returns the most recent smoothed vorticity spectrum and the
// grid geometry, for the energy spectrum diagnostic. Returns nil before
// the first long-range evaluation.
func (c *Cache) Spectrum() (w [3][]complex128, ng [3]int, kfun func(n, d int) float64) {
	if c.long == nil || c.long.spectrum[0] == nil {
		return w, ng, nil
	}
	return c.long.spectrum, c.long.ng, c.long.waveNumber
}
