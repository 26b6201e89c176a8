// Package forcing adds external fields and dissipative couplings on top
// of the self-induced filament motion.
package forcing

import (
	"log"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/filament"
)

// Field samples a vector field at a position and time.
type Field func(x r3.Vec, t float64) r3.Vec

// NormalFluid couples the filaments to a prescribed normal-fluid
// velocity through mutual friction.
type NormalFluid struct {
	// Velocity samples the normal fluid at a node.
	Velocity Field
	// Alpha and AlphaPrime are the mutual friction coefficients.
	Alpha, AlphaPrime float64
}

// LineVelocity applies the HVBK law at one node:
//
//	vL = vs + α·(vn − vs)×t̂ − α′·t̂×((vn − vs)×t̂).
//
// The self-induced vs is left to the caller for diagnostics.
func (nf *NormalFluid) LineVelocity(x, vs, tangent r3.Vec, t float64) r3.Vec {
	dv := r3.Sub(nf.Velocity(x, t), vs)
	cross := r3.Cross(dv, tangent)
	v := r3.Add(vs, r3.Scale(nf.Alpha, cross))
	return r3.Sub(v, r3.Scale(nf.AlphaPrime, r3.Cross(tangent, cross)))
}

// Forcing bundles the optional hooks invoked by the solver each stage.
// Nil members are skipped.
type Forcing struct {
	// ExternalVelocity is added to the node velocities.
	ExternalVelocity Field
	// ExternalStreamfunction is added to the node streamfunction with a
	// factor 2, so that the half-sum energy identity stays exact.
	ExternalStreamfunction Field
	// StretchingVelocity adds −v(κ)·n̂ along the inward curvature
	// normal, modelling locally induced line stretching.
	StretchingVelocity func(kappa float64) float64
	// NormalFluid enables mutual friction.
	NormalFluid *NormalFluid
}

// Empty reports whether no hook is configured.
func (fc *Forcing) Empty() bool {
	return fc == nil || (fc.ExternalVelocity == nil &&
		fc.ExternalStreamfunction == nil &&
		fc.StretchingVelocity == nil &&
		fc.NormalFluid == nil)
}

// Apply adds the external velocity, streamfunction and stretching
// contributions in place. vel and psi may be nil to skip the
// corresponding quantity.
func (fc *Forcing) Apply(fs []*filament.Filament, vel, psi [][]r3.Vec, t float64) {
	if fc.Empty() {
		return
	}
	for fi, f := range fs {
		for i := 1; i <= f.NumNodes(); i++ {
			x := f.X.At(i)
			if vel != nil {
				v := vel[fi][i-1]
				if fc.ExternalVelocity != nil {
					v = r3.Add(v, fc.ExternalVelocity(x, t))
				}
				if fc.StretchingVelocity != nil {
					kv := f.CurvatureVector(i, 0)
					kappa := r3.Norm(kv)
					if kappa > 0 {
						nhat := r3.Scale(1/kappa, kv)
						v = r3.Sub(v, r3.Scale(fc.StretchingVelocity(kappa), nhat))
					}
				}
				vel[fi][i-1] = v
			}
			if psi != nil && fc.ExternalStreamfunction != nil {
				psi[fi][i-1] = r3.Add(psi[fi][i-1], r3.Scale(2, fc.ExternalStreamfunction(x, t)))
			}
		}
	}
}

// ApplyMutualFriction converts the self-induced velocities vs into line
// velocities vL node by node. vs is read only; vL may alias vs when the
// caller does not need to keep the self-induced field.
func (fc *Forcing) ApplyMutualFriction(fs []*filament.Filament, vs, vL [][]r3.Vec, t float64) {
	if fc == nil || fc.NormalFluid == nil {
		for fi := range vs {
			copy(vL[fi], vs[fi])
		}
		return
	}
	for fi, f := range fs {
		for i := 1; i <= f.NumNodes(); i++ {
			that := f.UnitTangent(i, 0)
			vL[fi][i-1] = fc.NormalFluid.LineVelocity(f.X.At(i), vs[fi][i-1], that, t)
		}
	}
}

// CheckConsistency verifies once, by a central-difference curl at a
// sample point, that a user-supplied velocity field matches its
// streamfunction. Inconsistency is a warning, not an error: the
// simulation proceeds with the fields as given.
func CheckConsistency(vel, stream Field, x r3.Vec, t float64, logger *log.Logger) bool {
	if vel == nil || stream == nil {
		return true
	}
	const h = 1e-4
	curl := r3.Vec{
		X: (stream(r3.Add(x, r3.Vec{Y: h}), t).Z-stream(r3.Add(x, r3.Vec{Y: -h}), t).Z)/(2*h) -
			(stream(r3.Add(x, r3.Vec{Z: h}), t).Y-stream(r3.Add(x, r3.Vec{Z: -h}), t).Y)/(2*h),
		Y: (stream(r3.Add(x, r3.Vec{Z: h}), t).X-stream(r3.Add(x, r3.Vec{Z: -h}), t).X)/(2*h) -
			(stream(r3.Add(x, r3.Vec{X: h}), t).Z-stream(r3.Add(x, r3.Vec{X: -h}), t).Z)/(2*h),
		Z: (stream(r3.Add(x, r3.Vec{X: h}), t).Y-stream(r3.Add(x, r3.Vec{X: -h}), t).Y)/(2*h) -
			(stream(r3.Add(x, r3.Vec{Y: h}), t).X-stream(r3.Add(x, r3.Vec{Y: -h}), t).X)/(2*h),
	}
	v := vel(x, t)
	diff := r3.Norm(r3.Sub(curl, v))
	scale := r3.Norm(v) + 1e-12
	if diff > 1e-3*scale+1e-6 {
		if logger != nil {
			logger.Printf("forcing: external streamfunction inconsistent with velocity at %v: curl=%v v=%v", x, curl, v)
		}
		return false
	}
	return true
}
