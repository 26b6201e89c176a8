package biotsavart

import (
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/filament"
)

// addLongRangeExact evaluates the smooth Ewald component by a direct
// Fourier sum over all resolved modes, with no gridding error. It is
// O(modes × points) and exists as the reference the NUFFT backend is
// validated against.
func (c *Cache) addLongRangeExact(out Fields, fs []*filament.Filament) error {
	pts := c.gatherQuadPoints(fs)
	modes := c.resolvedModes()
	vol := c.p.Box.L.X * c.p.Box.L.Y * c.p.Box.L.Z
	alpha := c.p.Alpha

	// Vorticity spectrum at each mode: w(k) = sum_q weight_q e^{-ik·s_q}.
	what := make([][3]complex128, len(modes))
	var wg sync.WaitGroup
	nworkers := runtime.NumCPU()
	chunk := (len(modes) + nworkers - 1) / nworkers
	for w := 0; w < nworkers; w++ {
		lo, hi := w*chunk, min((w+1)*chunk, len(modes))
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for mi := lo; mi < hi; mi++ {
				k := modes[mi]
				var acc [3]complex128
				for _, p := range pts {
					phase := -(k.X*p.pos.X + k.Y*p.pos.Y + k.Z*p.pos.Z)
					e := complex(math.Cos(phase), math.Sin(phase))
					acc[0] += complex(p.weight.X, 0) * e
					acc[1] += complex(p.weight.Y, 0) * e
					acc[2] += complex(p.weight.Z, 0) * e
				}
				what[mi] = acc
			}
		}(lo, hi)
	}
	wg.Wait()

	// Field at each node: u(x) = (1/V) sum_k K(k)·w(k) e^{ik·x}.
	for fi, f := range fs {
		wg.Add(1)
		go func(fi int, f *filament.Filament) {
			defer wg.Done()
			for i := 1; i <= f.NumNodes(); i++ {
				x := f.X.At(i)
				var v, s r3.Vec
				for mi, k := range modes {
					k2 := r3.Norm2(k)
					filter := longRangeFilter(alpha, k2) / (k2 * vol)
					phase := k.X*x.X + k.Y*x.Y + k.Z*x.Z
					e := complex(math.Cos(phase), math.Sin(phase))
					wk := what[mi]
					if out.Streamfunction != nil {
						s.X += real(wk[0]*e) * filter
						s.Y += real(wk[1]*e) * filter
						s.Z += real(wk[2]*e) * filter
					}
					if out.Velocity != nil {
						ik := [3]complex128{complex(0, k.X), complex(0, k.Y), complex(0, k.Z)}
						v.X += real((ik[1]*wk[2]-ik[2]*wk[1])*e) * filter
						v.Y += real((ik[2]*wk[0]-ik[0]*wk[2])*e) * filter
						v.Z += real((ik[0]*wk[1]-ik[1]*wk[0])*e) * filter
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

// resolvedModes enumerates all nonzero wavevectors of the resolved
// grid, in a fixed deterministic order.
func (c *Cache) resolvedModes() []r3.Vec {
	N := c.p.GridSize
	L := [3]float64{c.p.Box.L.X, c.p.Box.L.Y, c.p.Box.L.Z}
	modes := make([]r3.Vec, 0, N[0]*N[1]*N[2])
	for nz := -N[2] / 2; nz < N[2]/2; nz++ {
		for ny := -N[1] / 2; ny < N[1]/2; ny++ {
			for nx := -N[0] / 2; nx < N[0]/2; nx++ {
				if nx == 0 && ny == 0 && nz == 0 {
					continue
				}
				modes = append(modes, r3.Vec{
					X: 2 * math.Pi * float64(nx) / L[0],
					Y: 2 * math.Pi * float64(ny) / L[1],
					Z: 2 * math.Pi * float64(nz) / L[2],
				})
			}
		}
	}
	return modes
}
