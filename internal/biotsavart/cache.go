package biotsavart

import (
	"log"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/cells"
	"github.com/san-kum/vortexsim/internal/filament"
)

// Cache owns the reusable evaluator state: the neighbour finder for the
// short-range part and the Fourier grids for the long-range part. A
// cache is bound to one Params value; it is not safe for concurrent use
// by multiple goroutines.
type Cache struct {
	p      Params
	finder cells.Finder
	long   *longCache
	segs   []cells.Segment
	quads  [][]segmentQuad
	logger *log.Logger
}

// NewCache validates the parameters and allocates the evaluator state.
func NewCache(p Params) (*Cache, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	c := &Cache{p: p, logger: log.Default()}

	switch {
	case p.Box.Open():
		// Open domain: every segment interacts with every node.
		c.finder = cells.NewNaive(p.Box, math.Inf(1))
	case p.ShortBackend == BackendNaive:
		c.finder = cells.NewNaive(p.Box, p.RCut)
	default:
		cl, err := cells.NewCellList(p.Box, p.RCut)
		if err != nil {
			// Cutoff too large for the box to be tiled; the naive
			// finder gives identical results, only slower.
			c.logger.Printf("biotsavart: %v; falling back to naive finder", err)
			c.finder = cells.NewNaive(p.Box, p.RCut)
		} else {
			c.finder = cl
		}
	}

	if p.Box.Periodic() {
		c.long = newLongCache(p)
	}
	return c, nil
}

// Params returns the configuration the cache was built with.
func (c *Cache) Params() Params { return c.p }

// SetLogger redirects evaluator warnings.
func (c *Cache) SetLogger(l *log.Logger) { c.logger = l }

// refreshSegments registers the current segment midpoints with the
// neighbour finder.
func (c *Cache) refreshSegments(fs []*filament.Filament) {
	c.segs = c.segs[:0]
	for fi, f := range fs {
		for i := 1; i <= f.NumSegments(); i++ {
			mid := r3.Scale(0.5, r3.Add(f.X.At(i), f.X.At(i+1)))
			c.segs = append(c.segs, cells.Segment{Filament: fi, Index: i, Mid: mid})
		}
	}
	c.finder.Reset(c.segs)
}

// Fields selects and stores the evaluator outputs. A nil slice disables
// the corresponding quantity; per-filament inner slices must match the
// node counts.
type Fields struct {
	Velocity       [][]r3.Vec
	Streamfunction [][]r3.Vec
}

// AllocFields allocates per-node output arrays matching the filaments.
func AllocFields(fs []*filament.Filament, velocity, streamfunction bool) Fields {
	var out Fields
	if velocity {
		out.Velocity = allocPerNode(fs)
	}
	if streamfunction {
		out.Streamfunction = allocPerNode(fs)
	}
	return out
}

func allocPerNode(fs []*filament.Filament) [][]r3.Vec {
	out := make([][]r3.Vec, len(fs))
	for i, f := range fs {
		out[i] = make([]r3.Vec, f.NumNodes())
	}
	return out
}

func zeroPerNode(vs [][]r3.Vec) {
	for _, v := range vs {
		for i := range v {
			v[i] = r3.Vec{}
		}
	}
}
