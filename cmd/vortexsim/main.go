package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/config"
	"github.com/san-kum/vortexsim/internal/diag"
	"github.com/san-kum/vortexsim/internal/filament"
	"github.com/san-kum/vortexsim/internal/quadrature"
	"github.com/san-kum/vortexsim/internal/reconnect"
	"github.com/san-kum/vortexsim/internal/solver"
	"github.com/san-kum/vortexsim/internal/storage"
	"github.com/san-kum/vortexsim/internal/tui"
)

var (
	dataDir    string
	configFile string
	schemeName string
	dt         float64
	tEnd       float64
	nodes      int
	gridSize   int
	period     float64
	live       bool
	watch      bool
	frameRate  int
	plot       string
	saveRun    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vortexsim",
		Short: "vortex filament dynamics in a periodic superfluid",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".vortexsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "YAML configuration file")
	runCmd.Flags().StringVar(&schemeName, "scheme", "", "time scheme (euler, midpoint, rk4, imex, mrigark3, mrigark4)")
	runCmd.Flags().Float64Var(&dt, "dt", 0, "timestep")
	runCmd.Flags().Float64Var(&tEnd, "time", 0, "end time")
	runCmd.Flags().IntVar(&nodes, "nodes", 0, "nodes per filament")
	runCmd.Flags().IntVar(&gridSize, "grid", 0, "long-range grid size per dimension")
	runCmd.Flags().Float64Var(&period, "period", -1, "box period (0 = open domain)")
	runCmd.Flags().BoolVar(&live, "live", false, "interactive live view")
	runCmd.Flags().BoolVar(&watch, "watch", false, "plain ANSI live view (non-interactive)")
	runCmd.Flags().IntVar(&frameRate, "fps", 20, "live view frame rate")
	runCmd.Flags().StringVar(&plot, "plot", "length", "post-run plot: length, energy, helicity, none")
	runCmd.Flags().BoolVar(&saveRun, "save", false, "persist the run under the data directory")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in initial conditions",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, name := range config.PresetNames() {
				fmt.Fprintf(w, "%s\t%s\n", name, config.PresetDescription(name))
			}
			w.Flush()
		},
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := storage.New(dataDir)
			runs, err := store.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "id\tpreset\tscheme\tdt\tsteps")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%.0f\n", r.ID, r.Preset, r.Scheme, r.Dt, r.Stats["steps"])
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, presetsCmd, runsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(args []string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}
	if len(args) > 0 {
		cfg.Preset = args[0]
	}
	if schemeName != "" {
		cfg.Scheme = schemeName
	}
	if dt > 0 {
		cfg.Dt = dt
	}
	if tEnd > 0 {
		cfg.TEnd = tEnd
	}
	if nodes > 0 {
		cfg.Nodes = nodes
	}
	if gridSize > 0 {
		cfg.GridSize = gridSize
	}
	if period >= 0 {
		cfg.Period = period
	}
	return cfg, nil
}

func buildSolver(cfg *config.Config) (*solver.Solver, *diag.Recorder, error) {
	params, err := cfg.BiotSavartParams()
	if err != nil {
		return nil, nil, err
	}
	fs, err := cfg.Filaments()
	if err != nil {
		return nil, nil, err
	}
	scheme, err := solver.SchemeByName(cfg.Scheme)
	if err != nil {
		return nil, nil, err
	}

	rec := &diag.Recorder{
		Gamma: params.Gamma,
		Box:   params.Box,
		Rule:  quadrature.GaussLegendre(cfg.QuadShort),
	}

	sCfg := solver.Config{
		Dt:           cfg.Dt,
		DtMin:        cfg.DtMin,
		FoldPeriodic: cfg.FoldPeriodic && params.Box.Periodic(),
		CallbackAfter: func(s *solver.Solver) {
			rec.Observe(s.Time, s.Filaments, s.Velocity, s.Streamfunction)
		},
	}
	if cfg.Refinement != nil {
		sCfg.Refinement = filament.BasedOnSegmentLength{
			LMin: cfg.Refinement.LMin,
			LMax: cfg.Refinement.LMax,
		}
	}
	if cfg.ReconnectDistance > 0 {
		sCfg.Reconnect = reconnect.BasedOnDistance{DCrit: cfg.ReconnectDistance}
	}
	switch cfg.Adaptivity.Kind {
	case "", "none":
	case "segment_length":
		sCfg.Adapt = solver.BasedOnSegmentLength{Gamma: cfg.Adaptivity.Gamma}
	case "velocity":
		sCfg.Adapt = solver.BasedOnVelocity{Delta: cfg.Adaptivity.Delta}
	case "combined":
		sCfg.Adapt = solver.Combined{
			solver.BasedOnSegmentLength{Gamma: cfg.Adaptivity.Gamma},
			solver.BasedOnVelocity{Delta: cfg.Adaptivity.Delta},
		}
	default:
		return nil, nil, fmt.Errorf("unknown adaptivity kind %q", cfg.Adaptivity.Kind)
	}

	prob := solver.Problem{
		Filaments: fs,
		Params:    params,
		TSpan:     [2]float64{0, cfg.TEnd},
	}
	s, err := solver.New(prob, scheme, sCfg)
	if err != nil {
		return nil, nil, err
	}
	return s, rec, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	s, rec, err := buildSolver(cfg)
	if err != nil {
		return err
	}

	var writer *storage.Writer
	if saveRun {
		store := storage.New(dataDir)
		if err := store.Init(); err != nil {
			return err
		}
		writer, err = store.CreateRun(storage.RunMetadata{
			Preset: cfg.Preset,
			Scheme: cfg.Scheme,
			Method: cfg.Method,
			Dt:     cfg.Dt,
			TEnd:   cfg.TEnd,
		})
		if err != nil {
			return err
		}
		defer writer.Close()
	}

	persist := func(sv *solver.Solver) {
		if writer == nil {
			return
		}
		sr := storage.StepRecord{Time: sv.Time, Step: int64(sv.Stats.Steps)}
		for fi, f := range sv.Filaments {
			sr.Filaments = append(sr.Filaments, storage.FilamentRecord{
				Offset:         f.Offset,
				Nodes:          f.Nodes(),
				Velocity:       append([]r3.Vec(nil), sv.Velocity[fi]...),
				Streamfunction: append([]r3.Vec(nil), sv.Streamfunction[fi]...),
			})
		}
		if err := writer.WriteStep(sr); err != nil {
			fmt.Fprintf(os.Stderr, "persist: %v\n", err)
		}
	}

	var status solver.Status
	if live {
		status, err = runLive(s, rec, persist)
	} else {
		status, err = runHeadless(s, rec, persist)
	}
	if err != nil {
		return err
	}

	fmt.Printf("finished: %v after %d steps (t=%.5f), %d filaments, %d reconnections, %d rejections\n",
		status, s.Stats.Steps, s.Time, len(s.Filaments), s.Stats.Reconnections, s.Stats.Rejections)

	if writer != nil {
		store := storage.New(dataDir)
		store.UpdateStats(writer.ID, map[string]float64{
			"steps":         float64(s.Stats.Steps),
			"reconnections": float64(s.Stats.Reconnections),
			"rejections":    float64(s.Stats.Rejections),
		})
	}

	if plot != "none" && len(rec.Samples) > 1 {
		series := rec.Series(func(r diag.Record) float64 {
			switch plot {
			case "energy":
				return r.Energy
			case "helicity":
				return r.Helicity
			default:
				return r.Length
			}
		})
		fmt.Println(asciigraph.Plot(series,
			asciigraph.Height(12),
			asciigraph.Caption(plot+" over time")))
	}
	return nil
}

func runHeadless(s *solver.Solver, rec *diag.Recorder, persist func(*solver.Solver)) (solver.Status, error) {
	var view *tui.LiveRenderer
	if watch {
		view = tui.NewLiveRenderer(frameRate)
		defer view.Done()
	}
	for {
		st, err := s.Step()
		if err != nil {
			return st, err
		}
		persist(s)
		if view != nil {
			view.OnStep(s.Filaments, s.Time, s.Stats.Steps)
		}
		if st != solver.StatusOK {
			return st, nil
		}
	}
}

func runLive(s *solver.Solver, rec *diag.Recorder, persist func(*solver.Solver)) (solver.Status, error) {
	frames := make(chan tui.Frame, 1)
	done := make(chan struct{})
	var status solver.Status
	var runErr error

	go func() {
		defer close(done)
		defer close(frames)
		for {
			st, err := s.Step()
			if err != nil {
				status, runErr = st, err
				return
			}
			persist(s)
			var last diag.Record
			if n := len(rec.Samples); n > 0 {
				last = rec.Samples[n-1]
			}
			select {
			case frames <- tui.Frame{
				Filaments: s.Filaments,
				Time:      s.Time,
				Step:      s.Stats.Steps,
				Length:    last.Length,
				Energy:    last.Energy,
			}:
			default:
			}
			if st != solver.StatusOK {
				status = st
				return
			}
		}
	}()

	err := tui.Run(frames)
	// The viewer may exit before the solver does (user quit): stop the
	// loop and wait so the final status is settled.
	s.Stop()
	<-done
	if err != nil {
		return status, err
	}
	return status, runErr
}
