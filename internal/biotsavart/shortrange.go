package biotsavart

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/cells"
	"github.com/san-kum/vortexsim/internal/filament"
)

// segmentQuad caches the quadrature samples of one segment: positions,
// parametric derivatives and the knot increment. Sampled once per
// evaluation and shared by every node that sees the segment.
type segmentQuad struct {
	pos []r3.Vec
	der []r3.Vec
	dt  float64
}

// sampleSegments fills the per-segment quadrature cache.
func (c *Cache) sampleSegments(fs []*filament.Filament) {
	rule := c.p.QuadratureShort
	if cap(c.quads) < len(fs) {
		c.quads = make([][]segmentQuad, len(fs))
	}
	c.quads = c.quads[:len(fs)]
	for fi, f := range fs {
		n := f.NumSegments()
		if cap(c.quads[fi]) < n {
			c.quads[fi] = make([]segmentQuad, n)
		}
		c.quads[fi] = c.quads[fi][:n]
		for i := 1; i <= n; i++ {
			sq := &c.quads[fi][i-1]
			if sq.pos == nil {
				sq.pos = make([]r3.Vec, rule.Len())
				sq.der = make([]r3.Vec, rule.Len())
			}
			sq.dt = f.Knots.At(i+1) - f.Knots.At(i)
			for q, zeta := range rule.Nodes {
				sq.pos[q] = f.Evaluate(i, zeta, 0)
				sq.der[q] = f.Evaluate(i, zeta, 1)
			}
		}
	}
}

// addShortRange accumulates the screened near-field and/or the local
// induction term at every node. Work is distributed per filament;
// every node writes only its own output slot and accumulates segment
// contributions in the finder's deterministic order, so results are
// reproducible bitwise.
func (c *Cache) addShortRange(out Fields, fs []*filament.Filament, near, local bool) error {
	c.refreshSegments(fs)
	if near {
		c.sampleSegments(fs)
	}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for fi := range fs {
		g.Go(func() error {
			c.shortRangeOnFilament(out, fs, fi, near, local)
			return nil
		})
	}
	return g.Wait()
}

func (c *Cache) shortRangeOnFilament(out Fields, fs []*filament.Filament, fi int, near, local bool) {
	f := fs[fi]
	n := f.NumNodes()
	pref := c.p.Gamma / (4 * math.Pi)

	for i := 1; i <= n; i++ {
		x := f.X.At(i)
		var vel, str r3.Vec

		if near {
			prev := i - 1
			if prev < 1 {
				prev = n
			}
			c.finder.ForEachNear(x, func(s cells.Segment) {
				adjacent := s.Filament == fi && (s.Index == i || s.Index == prev)
				v, p := c.segmentContribution(s.Filament, s.Index, x, adjacent)
				vel = r3.Add(vel, v)
				str = r3.Add(str, p)
			})
		}
		if local {
			v, p := c.localContribution(f, i)
			vel = r3.Add(vel, v)
			str = r3.Add(str, p)
		}

		if out.Velocity != nil {
			out.Velocity[fi][i-1] = r3.Add(out.Velocity[fi][i-1], r3.Scale(pref, vel))
		}
		if out.Streamfunction != nil {
			out.Streamfunction[fi][i-1] = r3.Add(out.Streamfunction[fi][i-1], r3.Scale(pref, str))
		}
	}
}

// segmentContribution integrates the screened Biot–Savart kernel over
// one cached segment. For the two segments adjacent to the evaluation
// node the bare kernel is owned by the local induction term, so only
// the difference between the screened and the bare kernel remains; it
// vanishes in open domains.
func (c *Cache) segmentContribution(fj, seg int, x r3.Vec, adjacent bool) (vel, str r3.Vec) {
	alpha := c.p.Alpha
	if adjacent && alpha == 0 {
		return vel, str
	}
	// A nonpositive or infinite cutoff (open domain) disables culling.
	applyCut := c.p.RCut > 0 && !math.IsInf(c.p.RCut, 1)
	rcut2 := c.p.RCut * c.p.RCut
	sq := &c.quads[fj][seg-1]
	weights := c.p.QuadratureShort.Weights

	for q := range sq.pos {
		r := c.p.Box.NearestImage(r3.Sub(x, sq.pos[q]))
		r2 := r3.Norm2(r)
		if r2 == 0 {
			continue
		}
		if !adjacent && applyCut && r2 > rcut2 {
			continue
		}
		rn := math.Sqrt(r2)
		w := weights[q] * sq.dt

		gv := velocityScreen(alpha, rn)
		gs := streamScreen(alpha, rn)
		if adjacent {
			gv -= 1
			gs -= 1
		}
		vel = r3.Add(vel, r3.Scale(w*gv/(r2*rn), r3.Cross(sq.der[q], r)))
		str = r3.Add(str, r3.Scale(w*gs/rn, sq.der[q]))
	}
	return vel, str
}

// localContribution is the desingularized local induction term at node
// i: the velocity follows the curvature binormal with the logarithmic
// coefficient of liaCoefficient; the streamfunction follows the local
// tangent.
func (c *Cache) localContribution(f *filament.Filament, i int) (vel, str r3.Vec) {
	lp := f.SegmentLength(i)
	lm := r3.Norm(r3.Sub(f.X.At(i), f.X.At(i-1)))

	kb := f.CurvatureBinormal(i, 0)
	beta := liaCoefficient(c.p.CoreRadius, c.p.CoreParameter, lm, lp)
	vel = r3.Scale(beta, kb)

	that := f.UnitTangent(i, 0)
	betaPsi := liaStreamCoefficient(c.p.CoreRadius, c.p.CoreParameter, lm, lp)
	str = r3.Scale(2*betaPsi, that)
	return vel, str
}
