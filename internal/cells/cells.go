// Package cells finds nearby filament segments.
//
// Segments are registered with a representative point (the midpoint of
// the segment) and queried either per evaluation point or as candidate
// pairs. Two finders implement the same contract:
//
//   - [Naive]: O(n²) enumeration, the reference implementation
//   - [CellList]: a regular 3-D grid of cells with periodic wrap
//
// Both are deterministic: given the same registered segments they visit
// neighbours and pairs in the same order.
package cells

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Segment identifies one filament segment and its representative point.
type Segment struct {
	Filament int
	Index    int
	Mid      r3.Vec
}

// Finder enumerates segments near a point and candidate segment pairs.
// Reset must be called whenever segment positions change.
type Finder interface {
	// Reset registers a new set of segments.
	Reset(segments []Segment)
	// ForEachNear calls fn for every segment whose representative point
	// lies within the pair cutoff 2r of x under the minimal image.
	ForEachNear(x r3.Vec, fn func(s Segment))
	// ForEachPair calls fn once per unordered pair of distinct segments
	// whose representative points lie within 2r of each other.
	ForEachPair(fn func(a, b Segment))
	// Cutoff returns the base cutoff r.
	Cutoff() float64
}

// Naive is the quadratic reference finder.
type Naive struct {
	box  Box
	r    float64
	segs []Segment
}

// NewNaive returns a naive finder with base cutoff r.
func NewNaive(box Box, r float64) *Naive {
	return &Naive{box: box, r: r}
}

func (f *Naive) Reset(segments []Segment) {
	f.segs = append(f.segs[:0], segments...)
}

func (f *Naive) Cutoff() float64 { return f.r }

func (f *Naive) ForEachNear(x r3.Vec, fn func(s Segment)) {
	cut2 := 4 * f.r * f.r
	for _, s := range f.segs {
		d := f.box.NearestImage(r3.Sub(s.Mid, x))
		if r3.Norm2(d) <= cut2 {
			fn(s)
		}
	}
}

func (f *Naive) ForEachPair(fn func(a, b Segment)) {
	cut2 := 4 * f.r * f.r
	for i := 0; i < len(f.segs); i++ {
		for j := i + 1; j < len(f.segs); j++ {
			d := f.box.NearestImage(r3.Sub(f.segs[i].Mid, f.segs[j].Mid))
			if r3.Norm2(d) <= cut2 {
				fn(f.segs[i], f.segs[j])
			}
		}
	}
}

// CellList partitions the periodic box into cells of side >= r and
// restricts neighbour searches to the 3×3×3 block of cells around a
// point. Periodic images are handled by wrapping the cell index ring.
type CellList struct {
	box   Box
	r     float64
	nc    [3]int
	cw    [3]float64
	cells [][]int
	segs  []Segment
}

// NewCellList returns a cell-list finder for a fully periodic box. The
// number of cells per dimension is floor(L/2r), so a cell side is never
// smaller than the pair cutoff 2r and the 3×3×3 block around a cell
// covers every candidate; at least 3 cells per dimension are required
// for the wrap to be unambiguous.
func NewCellList(box Box, r float64) (*CellList, error) {
	if !box.Periodic() {
		return nil, fmt.Errorf("cells: cell list requires a fully periodic box")
	}
	if r <= 0 {
		return nil, fmt.Errorf("cells: cutoff must be positive, got %g", r)
	}
	var nc [3]int
	var cw [3]float64
	L := [3]float64{box.L.X, box.L.Y, box.L.Z}
	for d := 0; d < 3; d++ {
		n := int(math.Floor(L[d] / (2 * r)))
		if n < 3 {
			return nil, fmt.Errorf("cells: cutoff %g too large for period %g (need >= 3 cells)", r, L[d])
		}
		nc[d] = n
		cw[d] = L[d] / float64(n)
	}
	cl := &CellList{box: box, r: r, nc: nc, cw: cw}
	cl.cells = make([][]int, nc[0]*nc[1]*nc[2])
	return cl, nil
}

func (f *CellList) Cutoff() float64 { return f.r }

func (f *CellList) cellIndex(x r3.Vec) int {
	i := f.fold(int(math.Floor(x.X/f.cw[0])), 0)
	j := f.fold(int(math.Floor(x.Y/f.cw[1])), 1)
	k := f.fold(int(math.Floor(x.Z/f.cw[2])), 2)
	return (k*f.nc[1]+j)*f.nc[0] + i
}

func (f *CellList) fold(i, d int) int {
	n := f.nc[d]
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func (f *CellList) Reset(segments []Segment) {
	f.segs = append(f.segs[:0], segments...)
	for i := range f.cells {
		f.cells[i] = f.cells[i][:0]
	}
	for id, s := range f.segs {
		c := f.cellIndex(s.Mid)
		f.cells[c] = append(f.cells[c], id)
	}
}

// neighbourhood collects the segment ids in the 27-cell block around
// cell (i, j, k), in ascending cell order. Duplicate cells (when a
// dimension has exactly 3 cells) are visited once.
func (f *CellList) neighbourhood(i, j, k int, out []int) []int {
	out = out[:0]
	seen := make(map[int]bool, 27)
	for dk := -1; dk <= 1; dk++ {
		for dj := -1; dj <= 1; dj++ {
			for di := -1; di <= 1; di++ {
				ci := f.fold(i+di, 0)
				cj := f.fold(j+dj, 1)
				ck := f.fold(k+dk, 2)
				c := (ck*f.nc[1]+cj)*f.nc[0] + ci
				if seen[c] {
					continue
				}
				seen[c] = true
				out = append(out, f.cells[c]...)
			}
		}
	}
	sort.Ints(out)
	return out
}

func (f *CellList) ForEachNear(x r3.Vec, fn func(s Segment)) {
	i := f.fold(int(math.Floor(x.X/f.cw[0])), 0)
	j := f.fold(int(math.Floor(x.Y/f.cw[1])), 1)
	k := f.fold(int(math.Floor(x.Z/f.cw[2])), 2)
	cut2 := 4 * f.r * f.r
	var buf [64]int
	for _, id := range f.neighbourhood(i, j, k, buf[:0]) {
		s := f.segs[id]
		d := f.box.NearestImage(r3.Sub(s.Mid, x))
		if r3.Norm2(d) <= cut2 {
			fn(s)
		}
	}
}

func (f *CellList) ForEachPair(fn func(a, b Segment)) {
	cut2 := 4 * f.r * f.r
	var buf [64]int
	for ci := 0; ci < f.nc[0]; ci++ {
		for cj := 0; cj < f.nc[1]; cj++ {
			for ck := 0; ck < f.nc[2]; ck++ {
				c := (ck*f.nc[1]+cj)*f.nc[0] + ci
				home := f.cells[c]
				if len(home) == 0 {
					continue
				}
				near := f.neighbourhood(ci, cj, ck, buf[:0])
				for _, a := range home {
					for _, b := range near {
						if b <= a {
							continue
						}
						d := f.box.NearestImage(r3.Sub(f.segs[a].Mid, f.segs[b].Mid))
						if r3.Norm2(d) <= cut2 {
							fn(f.segs[a], f.segs[b])
						}
					}
				}
			}
		}
	}
}
