// Package tui renders a running simulation in the terminal: a plain
// ANSI live view of the filament projections and a bubbletea
// interactive mode.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/filament"
)

const (
	width       = 72
	height      = 24
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer draws the xz projection of the filaments at a bounded
// frame rate. It is an observer suitable for a solver callback.
type LiveRenderer struct {
	frameRate int
	lastFrame time.Time
	canvas    [][]rune
	started   bool
}

// NewLiveRenderer returns a renderer limited to frameRate frames/s.
func NewLiveRenderer(frameRate int) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	return &LiveRenderer{frameRate: frameRate, canvas: canvas}
}

// OnStep renders the current state if enough time has passed since the
// previous frame.
func (r *LiveRenderer) OnStep(fs []*filament.Filament, t float64, step int) {
	elapsed := time.Since(r.lastFrame)
	if elapsed < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()
	if !r.started {
		fmt.Print(hideCursor)
		r.started = true
	}
	fmt.Print(clearScreen)
	fmt.Print(RenderFrame(fs, r.canvas))
	fmt.Printf("\n t = %.5f   step %d   filaments %d\n", t, step, len(fs))
}

// Done restores the cursor.
func (r *LiveRenderer) Done() {
	if r.started {
		fmt.Print(showCursor)
	}
}

// RenderFrame draws the filaments into the canvas and returns it as a
// string. The view is the xz plane, auto-scaled to the bounding box.
func RenderFrame(fs []*filament.Filament, canvas [][]rune) string {
	for y := range canvas {
		for x := range canvas[y] {
			canvas[y][x] = ' '
		}
	}
	lo, hi := bounds(fs)
	span := math.Max(hi.X-lo.X, hi.Z-lo.Z)
	if span <= 0 {
		span = 1
	}
	pad := 0.1 * span
	lo = r3.Sub(lo, r3.Vec{X: pad, Z: pad})
	span *= 1.2

	glyphs := []rune{'o', '*', '+', 'x', '#'}
	h := len(canvas)
	w := len(canvas[0])
	toCell := func(p r3.Vec) (int, int) {
		cx := int((p.X - lo.X) / span * float64(w-1))
		cy := int((p.Z - lo.Z) / span * float64(h-1))
		return cx, (h - 1) - cy
	}
	for fi, f := range fs {
		g := glyphs[fi%len(glyphs)]
		n := f.NumNodes()
		for i := 1; i <= n; i++ {
			x0, y0 := toCell(f.X.At(i))
			x1, y1 := toCell(f.X.At(i + 1))
			line(canvas, x0, y0, x1, y1, g)
		}
	}

	var b strings.Builder
	for _, row := range canvas {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func bounds(fs []*filament.Filament) (lo, hi r3.Vec) {
	lo = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi = r3.Scale(-1, lo)
	for _, f := range fs {
		for i := 1; i <= f.NumNodes(); i++ {
			v := f.X.At(i)
			lo.X, lo.Y, lo.Z = math.Min(lo.X, v.X), math.Min(lo.Y, v.Y), math.Min(lo.Z, v.Z)
			hi.X, hi.Y, hi.Z = math.Max(hi.X, v.X), math.Max(hi.Y, v.Y), math.Max(hi.Z, v.Z)
		}
	}
	return lo, hi
}

// line draws with Bresenham's algorithm, clipping to the canvas.
func line(canvas [][]rune, x1, y1, x2, y2 int, c rune) {
	dx, dy := abs(x2-x1), abs(y2-y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		set(canvas, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func set(canvas [][]rune, x, y int, c rune) {
	if y >= 0 && y < len(canvas) && x >= 0 && x < len(canvas[y]) {
		canvas[y][x] = c
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
