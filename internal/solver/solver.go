// Package solver advances a set of vortex filaments in time.
//
// A [Solver] is built from a [Problem] (initial filaments, Biot–Savart
// parameters, time span), a [Scheme] and a [Config]. Each call to
// [Solver.Step] performs one timestep:
//
//  1. the scheme's inner stages evaluate the induced velocity and
//     advect the nodes,
//  2. positions are folded into the fundamental cell,
//  3. the reconnection engine rewires close approaches,
//  4. the refinement criterion inserts and removes nodes,
//  5. the full velocity and streamfunction are recomputed at the new
//     positions,
//  6. the adaptive criterion proposes the next timestep,
//  7. the user callback fires.
//
// Step rejection, degenerate-filament removal and the terminal
// conditions follow the contract described in the package's status and
// error values.
package solver

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/biotsavart"
	"github.com/san-kum/vortexsim/internal/filament"
	"github.com/san-kum/vortexsim/internal/forcing"
	"github.com/san-kum/vortexsim/internal/reconnect"
)

// Problem is the immutable description of a simulation.
type Problem struct {
	Filaments []*filament.Filament
	Params    biotsavart.Params
	TSpan     [2]float64
}

// Config collects the optional solver knobs. Zero values disable the
// corresponding feature.
type Config struct {
	// Dt is the initial timestep; required.
	Dt float64
	// DtMin aborts the run when adaptive rejection pushes dt below it.
	DtMin float64
	// Refinement is applied to every filament after each step.
	Refinement filament.RefinementCriterion
	// Reconnect enables the reconnection engine.
	Reconnect reconnect.Criterion
	// Adapt proposes the next timestep and the rejection ceiling.
	Adapt AdaptCriterion
	// Forcing bundles external fields and mutual friction.
	Forcing *forcing.Forcing
	// FastTerm selects the stiff part for the split schemes.
	FastTerm FastTerm
	// LIAOnly restricts the velocity to the local induction term.
	LIAOnly bool
	// FoldPeriodic recentres filaments into the fundamental cell after
	// each step (periodic domains only).
	FoldPeriodic bool
	// AffectBefore runs before the stages; it may inject filaments.
	AffectBefore func(*Solver)
	// CallbackAfter runs at the end of each accepted step.
	CallbackAfter func(*Solver)
	// Logger receives warnings; defaults to log.Default().
	Logger *log.Logger
}

// Solver is the time integration state. All exported fields are
// read-only for callbacks; filament injection must go through
// [Solver.Inject].
type Solver struct {
	Filaments []*filament.Filament
	// Velocity is the line velocity vL used for advection.
	Velocity [][]r3.Vec
	// SelfVelocity is the self-induced vs, kept when mutual friction is
	// active (otherwise it aliases Velocity).
	SelfVelocity [][]r3.Vec
	// Streamfunction at the nodes, consistent with current positions.
	Streamfunction [][]r3.Vec

	Time  float64
	Dt    float64
	Stats Stats

	cache    *biotsavart.Cache
	scheme   Scheme
	cfg      Config
	tEnd     float64
	engine   *reconnect.Engine
	stopFlag bool
	injected bool
	logger   *log.Logger
}

// New validates the configuration and prepares the solver, including
// the first full velocity evaluation.
func New(p Problem, scheme Scheme, cfg Config) (*Solver, error) {
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("%w: initial dt must be positive", ErrConfig)
	}
	if len(p.Filaments) == 0 {
		return nil, fmt.Errorf("%w: no initial filaments", ErrConfig)
	}
	if p.TSpan[1] <= p.TSpan[0] {
		return nil, fmt.Errorf("%w: empty time span", ErrConfig)
	}
	if cfg.LIAOnly && cfg.FastTerm == FastShortRange {
		return nil, fmt.Errorf("%w: LIA-only dynamics cannot use a non-local fast term", ErrConfig)
	}
	if cfg.FoldPeriodic && !p.Params.Box.Periodic() {
		return nil, fmt.Errorf("%w: fold requested in a non-periodic domain", ErrConfig)
	}
	cache, err := biotsavart.NewCache(p.Params)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	s := &Solver{
		Filaments: append([]*filament.Filament(nil), p.Filaments...),
		Time:      p.TSpan[0],
		Dt:        cfg.Dt,
		cache:     cache,
		scheme:    scheme,
		cfg:       cfg,
		tEnd:      p.TSpan[1],
		logger:    cfg.Logger,
	}
	if cfg.Adapt == nil {
		s.cfg.Adapt = NoAdapt{}
	}
	if cfg.Reconnect != nil {
		s.engine, err = reconnect.NewEngine(cfg.Reconnect, p.Params.Box)
		if err != nil {
			return nil, err
		}
	}
	if fc := cfg.Forcing; fc != nil && fc.ExternalVelocity != nil && fc.ExternalStreamfunction != nil {
		x0 := s.Filaments[0].X.At(1)
		forcing.CheckConsistency(fc.ExternalVelocity, fc.ExternalStreamfunction, x0, s.Time, s.logger)
	}

	if err := s.refreshFields(); err != nil {
		return nil, err
	}
	return s, nil
}

// Cache exposes the Biot–Savart cache, e.g. for spectrum diagnostics.
func (s *Solver) Cache() *biotsavart.Cache { return s.cache }

// Stop requests cooperative termination; checked at step boundaries.
func (s *Solver) Stop() { s.stopFlag = true }

// Inject adds a filament mid-run. Allowed from AffectBefore only; the
// per-node quantity arrays are resized and refreshed before the stage
// loop reads them.
func (s *Solver) Inject(f *filament.Filament) {
	s.Filaments = append(s.Filaments, f)
	s.injected = true
}

// Run steps until a terminal status is reached.
func (s *Solver) Run() (Status, error) {
	for {
		st, err := s.Step()
		if st != StatusOK || err != nil {
			return st, err
		}
	}
}

// Step advances one timestep and returns the resulting status.
func (s *Solver) Step() (Status, error) {
	if s.stopFlag {
		return StatusStopped, nil
	}
	if s.Time >= s.tEnd {
		return StatusDone, nil
	}
	if len(s.Filaments) == 0 {
		return StatusNoVorticesLeft, nil
	}

	if s.cfg.AffectBefore != nil {
		s.cfg.AffectBefore(s)
		if s.injected {
			s.injected = false
			if err := s.refreshFields(); err != nil {
				return StatusOK, err
			}
		}
	}

	dt := s.Dt
	if s.Time+dt > s.tEnd {
		dt = s.tEnd - s.Time
	}

	// Stage loop with rejection: on an excessive displacement the
	// pre-step state is restored, dt halved and the stages rerun.
	backup := s.snapshotState()
	for {
		if err := s.scheme.Advance(s, s.Time, dt); err != nil {
			return StatusOK, err
		}
		ceiling := s.cfg.Adapt.Ceiling(s)
		if math.IsInf(ceiling, 1) || s.maxDisplacement(backup.positions) <= ceiling {
			break
		}
		s.restoreState(backup)
		dt /= 2
		s.Stats.Rejections++
		if s.cfg.DtMin > 0 && dt < s.cfg.DtMin {
			return StatusDtTooSmall, fmt.Errorf("%w: dt=%g < dtmin=%g at t=%g",
				ErrDtTooSmall, dt, s.cfg.DtMin, s.Time)
		}
	}

	if s.cfg.FoldPeriodic {
		for _, f := range s.Filaments {
			if f.FoldPeriodic(s.cache.Params().Box) {
				f.UpdateCoefficients()
			}
		}
	}

	if s.engine != nil {
		fs, st, err := s.engine.Step(s.Filaments, nil)
		if err != nil {
			return StatusOK, err
		}
		s.Filaments = fs
		s.Stats.Reconnections += st.Reconnections
		s.Stats.ReconnectionLoss += st.LengthLoss
		s.Stats.FilamentsRemoved += st.Removed
		s.Stats.RemovedLength += st.RemovedLength
	}

	if s.cfg.Refinement != nil {
		s.applyRefinement()
	}

	if len(s.Filaments) == 0 {
		s.Time += dt
		s.Stats.Steps++
		return StatusNoVorticesLeft, nil
	}

	// Full fields at the new positions: needed by the next step's first
	// stage and by the callback.
	if err := s.refreshFields(); err != nil {
		return StatusOK, err
	}

	s.Time += dt
	s.Stats.Steps++
	if next := s.cfg.Adapt.NextDt(s); next > 0 {
		s.Dt = next
	} else {
		s.Dt = dt
	}

	if s.cfg.CallbackAfter != nil {
		s.cfg.CallbackAfter(s)
	}
	if s.Time >= s.tEnd {
		return StatusDone, nil
	}
	return StatusOK, nil
}

// applyRefinement refines every filament and drops the ones that come
// out degenerate.
func (s *Solver) applyRefinement() {
	kept := s.Filaments[:0]
	for _, f := range s.Filaments {
		ins, rem, err := f.Refine(s.cfg.Refinement)
		s.Stats.NodesInserted += ins
		s.Stats.NodesRemoved += rem
		if err != nil {
			s.Stats.FilamentsRemoved++
			s.Stats.RemovedLength += f.Length(s.cache.Params().QuadratureShort)
			s.logger.Printf("solver: dropping degenerate filament (%d nodes) at t=%g", f.NumNodes(), s.Time)
			continue
		}
		kept = append(kept, f)
	}
	s.Filaments = kept
}

// refreshFields recomputes velocity and streamfunction at the current
// positions, applies the forcing hooks and the mutual friction law, and
// resizes the per-node arrays to the current topology.
func (s *Solver) refreshFields() error {
	comp := biotsavart.Full
	if s.cfg.LIAOnly {
		comp = biotsavart.LocalOnly
	}
	out := biotsavart.AllocFields(s.Filaments, true, true)
	if err := s.cache.ComputeOnNodes(out, s.Filaments, comp); err != nil {
		return err
	}
	if fc := s.cfg.Forcing; fc != nil {
		fc.Apply(s.Filaments, out.Velocity, out.Streamfunction, s.Time)
	}
	s.Streamfunction = out.Streamfunction
	s.SelfVelocity = out.Velocity
	if fc := s.cfg.Forcing; fc != nil && fc.NormalFluid != nil {
		s.Velocity = s.allocPerNode()
		fc.ApplyMutualFriction(s.Filaments, s.SelfVelocity, s.Velocity, s.Time)
	} else {
		s.Velocity = out.Velocity
	}
	return nil
}

// evalStageVelocity fills buf with the advecting velocity at the
// current filament positions, forcing included.
func (s *Solver) evalStageVelocity(buf [][]r3.Vec, t float64) error {
	comp := biotsavart.Full
	if s.cfg.LIAOnly {
		comp = biotsavart.LocalOnly
	}
	if err := s.cache.ComputeOnNodes(biotsavart.Fields{Velocity: buf}, s.Filaments, comp); err != nil {
		return err
	}
	if fc := s.cfg.Forcing; fc != nil {
		fc.Apply(s.Filaments, buf, nil, t)
		if fc.NormalFluid != nil {
			fc.ApplyMutualFriction(s.Filaments, buf, buf, t)
		}
	}
	return nil
}

// evalSplitVelocity accumulates the listed evaluator components into
// buf. Forcing (and mutual friction) ride on the slow part only.
func (s *Solver) evalSplitVelocity(buf [][]r3.Vec, comps []biotsavart.Component, t float64, slow bool) error {
	tmp := s.allocPerNode()
	zero(buf)
	for _, comp := range comps {
		if err := s.cache.ComputeOnNodes(biotsavart.Fields{Velocity: tmp}, s.Filaments, comp); err != nil {
			return err
		}
		addPerNode(buf, buf, tmp)
	}
	if slow {
		if fc := s.cfg.Forcing; fc != nil {
			fc.Apply(s.Filaments, buf, nil, t)
			if fc.NormalFluid != nil {
				fc.ApplyMutualFriction(s.Filaments, buf, buf, t)
			}
		}
	}
	return nil
}

// setStagePositions sets X = base + dt·Σ w[j]·k[j] on every node and
// refreshes knots and coefficients.
func (s *Solver) setStagePositions(base [][]r3.Vec, dt float64, w []float64, k [][][]r3.Vec) error {
	for fi, f := range s.Filaments {
		for i := 1; i <= f.NumNodes(); i++ {
			x := base[fi][i-1]
			for j, wj := range w {
				if wj == 0 {
					continue
				}
				x = r3.Add(x, r3.Scale(dt*wj, k[j][fi][i-1]))
			}
			f.X.Set(i, x)
		}
		f.ResetKnots()
		f.UpdateCoefficients()
	}
	return nil
}

type stateBackup struct {
	positions [][]r3.Vec
	velocity  [][]r3.Vec
}

func (s *Solver) snapshotState() stateBackup {
	return stateBackup{
		positions: s.snapshotPositions(),
		velocity:  clonePerNode(s.Velocity),
	}
}

func (s *Solver) restoreState(b stateBackup) {
	for fi, f := range s.Filaments {
		for i := 1; i <= f.NumNodes(); i++ {
			f.X.Set(i, b.positions[fi][i-1])
		}
		f.ResetKnots()
		f.UpdateCoefficients()
	}
	s.Velocity = clonePerNode(b.velocity)
}

func (s *Solver) snapshotPositions() [][]r3.Vec {
	out := make([][]r3.Vec, len(s.Filaments))
	for fi, f := range s.Filaments {
		out[fi] = f.Nodes()
	}
	return out
}

func (s *Solver) maxDisplacement(base [][]r3.Vec) float64 {
	maxD := 0.0
	for fi, f := range s.Filaments {
		for i := 1; i <= f.NumNodes(); i++ {
			d := r3.Norm(r3.Sub(f.X.At(i), base[fi][i-1]))
			maxD = math.Max(maxD, d)
		}
	}
	return maxD
}

func (s *Solver) allocPerNode() [][]r3.Vec {
	out := make([][]r3.Vec, len(s.Filaments))
	for fi, f := range s.Filaments {
		out[fi] = make([]r3.Vec, f.NumNodes())
	}
	return out
}

func clonePerNode(vs [][]r3.Vec) [][]r3.Vec {
	out := make([][]r3.Vec, len(vs))
	for i, v := range vs {
		out[i] = append([]r3.Vec(nil), v...)
	}
	return out
}

func zero(vs [][]r3.Vec) {
	for _, v := range vs {
		for i := range v {
			v[i] = r3.Vec{}
		}
	}
}
