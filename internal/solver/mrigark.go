package solver

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// mriGARK implements multirate infinitesimal GARK schemes with uniform
// outer stages: each of the s outer stages spans dt/s, inside which the
// fast component is advanced by M explicit midpoint substeps while the
// slow velocities enter as a forcing that is affine in the normalized
// intra-stage time τ, with coefficients Γ₀[i][k] + τ·Γ₁[i][k].
type mriGARK struct {
	name     string
	g0, g1   [][]float64
	substeps int
}

// MRIGARK3 is the third-order MRI-GARK-ERK33a scheme (decoupling
// parameter δ = −1/2) with M fast substeps per outer stage.
func MRIGARK3(substeps int) Scheme {
	return &mriGARK{
		name: "MRI-GARK-ERK33a",
		g0: [][]float64{
			{1.0 / 3, 0, 0},
			{-1.0 / 3, 2.0 / 3, 0},
			{0, -2.0 / 3, 1},
		},
		g1: [][]float64{
			{0, 0, 0},
			{0, 0, 0},
			{0.5, 0, -0.5},
		},
		substeps: max(substeps, 1),
	}
}

// MRIGARK4 is the fourth-order MRI-GARK-ERK45a scheme with M fast
// substeps per outer stage.
func MRIGARK4(substeps int) Scheme {
	return &mriGARK{
		name: "MRI-GARK-ERK45a",
		g0: [][]float64{
			{1.0 / 5, 0, 0, 0, 0},
			{-53.0 / 16, 281.0 / 80, 0, 0, 0},
			{-36562993.0 / 71394880, 34903117.0 / 17848720, -88770499.0 / 71394880, 0, 0},
			{-7631593.0 / 71394880, -166232021.0 / 35697440, 6068517.0 / 1519040, 8644289.0 / 8924360, 0},
			{277061.0 / 303808, -209323.0 / 1139280, -1360217.0 / 1139280, -148789.0 / 56964, 147889.0 / 45120},
		},
		g1: [][]float64{
			{0, 0, 0, 0, 0},
			{503.0 / 80, -503.0 / 80, 0, 0, 0},
			{-1365537.0 / 35697440, 4963773.0 / 7139488, -1465833.0 / 2231090, 0, 0},
			{66974357.0 / 35697440, 21445367.0 / 7139488, -3, -8388609.0 / 4462180, 0},
			{-18227.0 / 7520, 2, 1, 5, -41933.0 / 7520},
		},
		substeps: max(substeps, 1),
	}
}

func (m *mriGARK) Name() string { return m.name }
func (m *mriGARK) Stages() int  { return len(m.g0) }

func (m *mriGARK) Advance(s *Solver, t, dt float64) error {
	stages := len(m.g0)
	fastComp, slowComp := s.splitComponents()

	// Slow velocities at the start of each outer stage.
	vslow := make([][][]r3.Vec, stages)

	cdt := dt / float64(stages)
	h := cdt / float64(m.substeps)

	vfast := s.allocPerNode()
	g := s.allocPerNode()
	mid := s.allocPerNode()

	for i := 0; i < stages; i++ {
		ti := t + float64(i)*cdt
		vslow[i] = s.allocPerNode()
		if err := s.evalSplitVelocity(vslow[i], slowComp, ti, true); err != nil {
			return err
		}

		// forcing(τ) = s/Δc · Σ_k (Γ₀[i][k] + τ·Γ₁[i][k])·v_slow[k],
		// with Δc = 1/stages absorbed into the prefactor.
		forcing := func(dst [][]r3.Vec, tau float64) {
			for fi := range dst {
				for n := range dst[fi] {
					var acc r3.Vec
					for k := 0; k <= i; k++ {
						w := m.g0[i][k] + tau*m.g1[i][k]
						if w != 0 {
							acc = r3.Add(acc, r3.Scale(w, vslow[k][fi][n]))
						}
					}
					dst[fi][n] = r3.Scale(float64(stages), acc)
				}
			}
		}

		for sub := 0; sub < m.substeps; sub++ {
			tau0 := float64(sub) / float64(m.substeps)
			tauH := (float64(sub) + 0.5) / float64(m.substeps)
			tsub := ti + float64(sub)*h

			// Explicit midpoint on dx/dt = v_fast(x) + F(τ).
			base := s.snapshotPositions()
			if err := s.evalSplitVelocity(vfast, fastComp, tsub, false); err != nil {
				return err
			}
			forcing(g, tau0)
			addPerNode(g, g, vfast)
			if err := s.setStagePositions(base, h, []float64{0.5}, [][][]r3.Vec{g}); err != nil {
				return err
			}

			if err := s.evalSplitVelocity(vfast, fastComp, tsub+0.5*h, false); err != nil {
				return err
			}
			forcing(mid, tauH)
			addPerNode(mid, mid, vfast)
			if err := s.setStagePositions(base, h, []float64{1}, [][][]r3.Vec{mid}); err != nil {
				return err
			}
		}
	}
	return nil
}
