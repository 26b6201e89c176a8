// Package config loads and validates simulation configurations from
// YAML files and named presets.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/vortexsim/internal/biotsavart"
	"github.com/san-kum/vortexsim/internal/cells"
	"github.com/san-kum/vortexsim/internal/filament"
	"github.com/san-kum/vortexsim/internal/quadrature"
)

const (
	DefaultNodes     = 48
	DefaultGridSize  = 32
	DefaultDt        = 1e-3
	DefaultTEnd      = 0.1
	DefaultQuadOrder = 4
)

// NUFFTConfig mirrors biotsavart.NUFFT in the YAML schema.
type NUFFTConfig struct {
	Tolerance    float64 `yaml:"tolerance"`
	Support      int     `yaml:"support"`
	Oversampling float64 `yaml:"oversampling"`
}

// RefinementConfig selects the node refinement criterion.
type RefinementConfig struct {
	LMin float64 `yaml:"lmin"`
	LMax float64 `yaml:"lmax"`
}

// AdaptivityConfig selects the timestep criterion.
type AdaptivityConfig struct {
	Kind  string  `yaml:"kind"` // none | segment_length | velocity | combined
	Gamma float64 `yaml:"gamma"`
	Delta float64 `yaml:"delta"`
}

// Config is the YAML-facing simulation description.
type Config struct {
	Preset string `yaml:"preset"`
	Scheme string `yaml:"scheme"`
	Method string `yaml:"method"`
	Nodes  int    `yaml:"nodes"`

	Dt    float64 `yaml:"dt"`
	DtMin float64 `yaml:"dt_min"`
	TEnd  float64 `yaml:"t_end"`

	Circulation   float64 `yaml:"circulation"`
	CoreRadius    float64 `yaml:"core_radius"`
	CoreParameter float64 `yaml:"core_parameter"`

	// Period of the cubic box; 0 requests an open domain.
	Period   float64 `yaml:"period"`
	GridSize int     `yaml:"grid_size"`
	// Alpha and RCut are derived from the grid when left zero.
	Alpha float64 `yaml:"alpha"`
	RCut  float64 `yaml:"rcut"`

	QuadShort    int         `yaml:"quadrature_short"`
	QuadLong     int         `yaml:"quadrature_long"`
	ShortBackend string      `yaml:"backend_short"` // celllist | naive
	LongBackend  string      `yaml:"backend_long"`  // nufft | exact
	NUFFT        NUFFTConfig `yaml:"nufft"`

	Refinement        *RefinementConfig `yaml:"refinement"`
	ReconnectDistance float64           `yaml:"reconnect_distance"`
	Adaptivity        AdaptivityConfig  `yaml:"adaptivity"`
	FoldPeriodic      bool              `yaml:"fold_periodic"`
}

// Default returns the configuration every load starts from.
func Default() *Config {
	return &Config{
		Preset:        "ring",
		Scheme:        "rk4",
		Method:        "cubic",
		Nodes:         DefaultNodes,
		Dt:            DefaultDt,
		TEnd:          DefaultTEnd,
		Circulation:   1.0,
		CoreRadius:    1e-6,
		CoreParameter: 0.25,
		Period:        2 * math.Pi,
		GridSize:      DefaultGridSize,
		QuadShort:     DefaultQuadOrder,
		QuadLong:      DefaultQuadOrder,
		ShortBackend:  "celllist",
		LongBackend:   "nufft",
		NUFFT: NUFFTConfig{
			Tolerance:    1e-6,
			Support:      4,
			Oversampling: 1.5,
		},
		Adaptivity: AdaptivityConfig{Kind: "none"},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Box returns the simulation domain.
func (c *Config) Box() cells.Box {
	if c.Period <= 0 {
		return cells.OpenBox()
	}
	return cells.PeriodicCube(c.Period)
}

// BiotSavartParams assembles and validates the evaluator parameters,
// deriving alpha and rcut from the grid when unset: α = kmax/5 and
// rcut = 4√2/α, capped just below the half period.
func (c *Config) BiotSavartParams() (biotsavart.Params, error) {
	p := biotsavart.Params{
		Gamma:           c.Circulation,
		CoreRadius:      c.CoreRadius,
		CoreParameter:   c.CoreParameter,
		Box:             c.Box(),
		GridSize:        [3]int{c.GridSize, c.GridSize, c.GridSize},
		QuadratureShort: quadrature.GaussLegendre(c.QuadShort),
		QuadratureLong:  quadrature.GaussLegendre(c.QuadLong),
		NUFFT: biotsavart.NUFFT{
			Tolerance:    c.NUFFT.Tolerance,
			Support:      c.NUFFT.Support,
			Oversampling: c.NUFFT.Oversampling,
		},
	}
	switch c.ShortBackend {
	case "", "celllist":
		p.ShortBackend = biotsavart.BackendCellList
	case "naive":
		p.ShortBackend = biotsavart.BackendNaive
	default:
		return p, fmt.Errorf("config: unknown short-range backend %q", c.ShortBackend)
	}
	switch c.LongBackend {
	case "", "nufft":
		p.LongBackend = biotsavart.BackendNUFFT
	case "exact":
		p.LongBackend = biotsavart.BackendExactSum
	default:
		return p, fmt.Errorf("config: unknown long-range backend %q", c.LongBackend)
	}

	if p.Box.Periodic() {
		p.Alpha = c.Alpha
		if p.Alpha == 0 {
			kmax := p.KMax()
			p.Alpha = kmax[0] / 5
		}
		p.RCut = c.RCut
		if p.RCut == 0 {
			p.RCut = 4 * math.Sqrt2 / p.Alpha
			if half := p.Box.MinPeriod() / 2; p.RCut >= half {
				p.RCut = 0.99 * half
			}
		}
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// DiscretisationMethod resolves the configured method name.
func (c *Config) DiscretisationMethod() (filament.Discretisation, error) {
	return filament.MethodByName(c.Method)
}
