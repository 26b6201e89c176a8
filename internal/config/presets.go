package config

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/curves"
	"github.com/san-kum/vortexsim/internal/filament"
)

// preset builds the initial filaments for a named scenario. The centre
// is the middle of the periodic cell (or the origin in open domains).
type preset struct {
	desc  string
	build func(c *Config, centre r3.Vec, m filament.Discretisation) ([]*filament.Filament, error)
}

var presets = map[string]preset{
	"ring": {
		desc: "single vortex ring of radius π/3",
		build: func(c *Config, centre r3.Vec, m filament.Discretisation) ([]*filament.Filament, error) {
			f, err := curves.Ring(math.Pi/3, centre).Filament(c.Nodes, m)
			if err != nil {
				return nil, err
			}
			return []*filament.Filament{f}, nil
		},
	},
	"leapfrog": {
		desc: "two coaxial rings exchanging diameters",
		build: func(c *Config, centre r3.Vec, m filament.Discretisation) ([]*filament.Filament, error) {
			pair := curves.LeapfrogPair(math.Pi/3, 0.4, centre)
			a, err := pair[0].Filament(c.Nodes, m)
			if err != nil {
				return nil, err
			}
			b, err := pair[1].Filament(c.Nodes, m)
			if err != nil {
				return nil, err
			}
			return []*filament.Filament{a, b}, nil
		},
	},
	"hopf": {
		desc: "Hopf link of two rings",
		build: func(c *Config, centre r3.Vec, m filament.Discretisation) ([]*filament.Filament, error) {
			link := curves.HopfLink(1.2, centre)
			a, err := link[0].Filament(c.Nodes, m)
			if err != nil {
				return nil, err
			}
			b, err := link[1].Filament(c.Nodes, m)
			if err != nil {
				return nil, err
			}
			return []*filament.Filament{a, b}, nil
		},
	},
	"trefoil": {
		desc: "trefoil knot",
		build: func(c *Config, centre r3.Vec, m filament.Discretisation) ([]*filament.Filament, error) {
			f, err := curves.Trefoil(1.2, centre).Filament(c.Nodes, m)
			if err != nil {
				return nil, err
			}
			return []*filament.Filament{f}, nil
		},
	},
	"lines": {
		desc: "two antiparallel line vortices (periodic only)",
		build: func(c *Config, centre r3.Vec, m filament.Discretisation) ([]*filament.Filament, error) {
			if c.Period <= 0 {
				return nil, fmt.Errorf("config: preset lines requires a periodic box")
			}
			l := c.Period
			up := curves.HelicalLine(0.05, 1, l, r3.Add(centre, r3.Vec{X: -0.5}))
			down := curves.HelicalLine(0.05, 1, -l, r3.Add(centre, r3.Vec{X: 0.5}))
			a, err := up.Filament(c.Nodes, m)
			if err != nil {
				return nil, err
			}
			b, err := down.Filament(c.Nodes, m)
			if err != nil {
				return nil, err
			}
			return []*filament.Filament{a, b}, nil
		},
	},
}

// PresetNames lists the built-in scenarios in stable order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PresetDescription returns the one-line summary of a preset.
func PresetDescription(name string) string {
	return presets[name].desc
}

// Filaments builds the initial condition of the configured preset.
func (c *Config) Filaments() ([]*filament.Filament, error) {
	p, ok := presets[c.Preset]
	if !ok {
		return nil, fmt.Errorf("config: unknown preset %q (have %v)", c.Preset, PresetNames())
	}
	m, err := c.DiscretisationMethod()
	if err != nil {
		return nil, err
	}
	var centre r3.Vec
	if c.Period > 0 {
		half := c.Period / 2
		centre = r3.Vec{X: half, Y: half, Z: half}
	}
	return p.build(c, centre, m)
}
