package diag

import (
	"math"

	"github.com/san-kum/vortexsim/internal/biotsavart"
	"github.com/san-kum/vortexsim/internal/cells"
)

// EnergySpectrum bins the kinetic energy of the long-range (smoothed)
// velocity field into spherical wavenumber shells of width 2π/Lx. It
// reads the vorticity spectrum left on the Fourier grid by the last
// long-range evaluation; before that, it returns nil.
func EnergySpectrum(cache *biotsavart.Cache, box cells.Box) (ks, ek []float64) {
	w, ng, kfun := cache.Spectrum()
	if kfun == nil {
		return nil, nil
	}
	vol := box.L.X * box.L.Y * box.L.Z
	dk := 2 * math.Pi / box.L.X

	// Shell width follows the x period; spectra are usually taken in
	// cubic boxes where all three agree.
	kmax := 0.0
	for d := 0; d < 3; d++ {
		kmax = math.Max(kmax, math.Pi*float64(ng[d])/box.L.X)
	}
	nshell := int(kmax/dk) + 2
	ek = make([]float64, nshell)
	ks = make([]float64, nshell)
	for n := range ks {
		ks[n] = (float64(n) + 0.5) * dk
	}

	at := func(ix, iy, iz int) int { return (iz*ng[1]+iy)*ng[0] + ix }
	for iz := 0; iz < ng[2]; iz++ {
		kz := kfun(iz, 2)
		for iy := 0; iy < ng[1]; iy++ {
			ky := kfun(iy, 1)
			for ix := 0; ix < ng[0]; ix++ {
				kx := kfun(ix, 0)
				k2 := kx*kx + ky*ky + kz*kz
				if k2 == 0 {
					continue
				}
				i := at(ix, iy, iz)
				wx, wy, wz := w[0][i], w[1][i], w[2][i]
				// |v|² = |k × w|²/k⁴ for a divergence-free field.
				cx := complex(0, ky)*wz - complex(0, kz)*wy
				cy := complex(0, kz)*wx - complex(0, kx)*wz
				cz := complex(0, kx)*wy - complex(0, ky)*wx
				v2 := (real(cx)*real(cx) + imag(cx)*imag(cx) +
					real(cy)*real(cy) + imag(cy)*imag(cy) +
					real(cz)*real(cz) + imag(cz)*imag(cz)) / (k2 * k2)
				shell := int(math.Sqrt(k2) / dk)
				if shell < nshell {
					ek[shell] += v2 / (2 * vol * vol)
				}
			}
		}
	}
	return ks, ek
}
