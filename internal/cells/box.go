package cells

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box describes the simulation domain. A period of +Inf marks an open
// (non-periodic) direction. Mixed open/periodic boxes are accepted here;
// callers that cannot handle them must reject the configuration.
type Box struct {
	L r3.Vec
}

// OpenBox is the fully open domain.
func OpenBox() Box {
	inf := math.Inf(1)
	return Box{L: r3.Vec{X: inf, Y: inf, Z: inf}}
}

// PeriodicCube returns a triply-periodic box of side l.
func PeriodicCube(l float64) Box {
	return Box{L: r3.Vec{X: l, Y: l, Z: l}}
}

// Periodic reports whether all three directions are periodic.
func (b Box) Periodic() bool {
	return !math.IsInf(b.L.X, 1) && !math.IsInf(b.L.Y, 1) && !math.IsInf(b.L.Z, 1)
}

// Open reports whether all three directions are open.
func (b Box) Open() bool {
	return math.IsInf(b.L.X, 1) && math.IsInf(b.L.Y, 1) && math.IsInf(b.L.Z, 1)
}

// MinPeriod returns the smallest finite period, or +Inf for open boxes.
func (b Box) MinPeriod() float64 {
	return math.Min(b.L.X, math.Min(b.L.Y, b.L.Z))
}

// NearestImage maps a separation vector to its minimal periodic image.
func (b Box) NearestImage(d r3.Vec) r3.Vec {
	return r3.Vec{
		X: wrapComponent(d.X, b.L.X),
		Y: wrapComponent(d.Y, b.L.Y),
		Z: wrapComponent(d.Z, b.L.Z),
	}
}

// ImageShift returns the lattice displacement p such that d - p is the
// minimal image of d: p is an integer combination of period vectors.
func (b Box) ImageShift(d r3.Vec) r3.Vec {
	return r3.Sub(d, b.NearestImage(d))
}

// Distance returns the minimal-image distance between two points.
func (b Box) Distance(p, q r3.Vec) float64 {
	return r3.Norm(b.NearestImage(r3.Sub(p, q)))
}

func wrapComponent(d, period float64) float64 {
	if math.IsInf(period, 1) {
		return d
	}
	d -= period * math.Round(d/period)
	return d
}
