// Package padded provides a one-dimensional sequence with ghost slots on
// both ends.
//
// Every per-node quantity of a vortex filament (positions, knots,
// velocities, tangents) is stored in a [Sequence] so that stencils and
// spline evaluations can read past the endpoints without branching. The
// visible domain is the logical index range [1, N]; indices in
// [1-M, N+M] are addressable once the pad has been filled.
//
// Consumers that read from the pad must call [Sequence.PadPeriodic] (or
// [Sequence.PadRight]) after any change to the visible entries or to N.
package padded

import "fmt"

// Sequence is an indexed sequence of N visible elements with M ghost
// slots on each side. The zero value is not usable; construct with [New].
type Sequence[T any] struct {
	data []T // length n + 2m
	m    int
	n    int
}

// New returns a sequence with n visible elements and pad width m. The
// visible elements are zero-valued; the pad is unfilled.
func New[T any](n, m int) *Sequence[T] {
	if n < 0 || m < 0 {
		panic(fmt.Sprintf("padded: invalid dimensions n=%d m=%d", n, m))
	}
	return &Sequence[T]{
		data: make([]T, n+2*m),
		m:    m,
		n:    n,
	}
}

// FromSlice returns a sequence whose visible elements are copied from vs.
func FromSlice[T any](vs []T, m int) *Sequence[T] {
	s := New[T](len(vs), m)
	copy(s.data[m:], vs)
	return s
}

// Len returns the number of visible elements N.
func (s *Sequence[T]) Len() int { return s.n }

// Pad returns the ghost width M.
func (s *Sequence[T]) Pad() int { return s.m }

// Begin and End delimit the visible iteration domain [Begin, End].
func (s *Sequence[T]) Begin() int { return 1 }
func (s *Sequence[T]) End() int   { return s.n }

func (s *Sequence[T]) index(i int) int {
	if i < 1-s.m || i > s.n+s.m {
		panic(fmt.Sprintf("padded: index %d out of range [%d, %d]", i, 1-s.m, s.n+s.m))
	}
	return i - 1 + s.m
}

// At returns the element at logical index i, ghosts included.
func (s *Sequence[T]) At(i int) T { return s.data[s.index(i)] }

// Set stores v at logical index i, ghosts included.
func (s *Sequence[T]) Set(i int, v T) { s.data[s.index(i)] = v }

// Visible returns the visible elements as a slice backed by the
// sequence's storage. Mutating the slice mutates the sequence.
func (s *Sequence[T]) Visible() []T { return s.data[s.m : s.m+s.n] }

// Clone returns a deep copy of the sequence, pad included.
func (s *Sequence[T]) Clone() *Sequence[T] {
	c := &Sequence[T]{data: make([]T, len(s.data)), m: s.m, n: s.n}
	copy(c.data, s.data)
	return c
}

// Resize changes the visible length to n, preserving the first
// min(n, N) visible elements. The pad becomes stale.
func (s *Sequence[T]) Resize(n int) {
	if n < 0 {
		panic(fmt.Sprintf("padded: invalid length %d", n))
	}
	if n == s.n {
		return
	}
	data := make([]T, n+2*s.m)
	keep := min(n, s.n)
	copy(data[s.m:], s.data[s.m:s.m+keep])
	s.data = data
	s.n = n
}

// Insert places v at logical index i, shifting elements i..N right.
// i must be in [1, N+1]. The pad becomes stale.
func (s *Sequence[T]) Insert(i int, v T) {
	if i < 1 || i > s.n+1 {
		panic(fmt.Sprintf("padded: insert index %d out of range [1, %d]", i, s.n+1))
	}
	var zero T
	s.data = append(s.data, zero)
	at := i - 1 + s.m
	copy(s.data[at+1:], s.data[at:])
	s.data[at] = v
	s.n++
}

// Remove deletes the element at logical index i, shifting elements
// i+1..N left. i must be visible. The pad becomes stale.
func (s *Sequence[T]) Remove(i int) {
	if i < 1 || i > s.n {
		panic(fmt.Sprintf("padded: remove index %d out of range [1, %d]", i, s.n))
	}
	at := i - 1 + s.m
	copy(s.data[at:], s.data[at+1:])
	s.data = s.data[:len(s.data)-1]
	s.n--
}

// PadPeriodic fills both pads from the visible centre: the left pad
// receives the last M visible elements and the right pad the first M,
// each passed through wrap with the signed image count (-1 for the left
// pad, +1 for the right). A nil wrap copies values unchanged.
//
// Filling requires N >= 1; ghost values for N < M repeat across more
// than one image and are wrapped the corresponding number of times.
func (s *Sequence[T]) PadPeriodic(wrap func(v T, image int) T) {
	if s.n == 0 {
		return
	}
	for k := 1; k <= s.m; k++ {
		// left ghost 1-k mirrors visible element N+1-k (shifted down
		// by as many periods as the wrap spans).
		src, img := periodicSource(s.n, 1-k)
		s.Set(1-k, applyWrap(wrap, s.At(src), img))
		src, img = periodicSource(s.n, s.n+k)
		s.Set(s.n+k, applyWrap(wrap, s.At(src), img))
	}
}

// PadRight fills the same ghosts as [Sequence.PadPeriodic], the right
// pad first and the left pad after it. Every ghost is read from its
// visible source, so the result equals that of PadPeriodic; values held
// in the right pad beforehand are overwritten, not given priority.
func (s *Sequence[T]) PadRight(wrap func(v T, image int) T) {
	if s.n == 0 {
		return
	}
	for k := s.m; k >= 1; k-- {
		src, img := periodicSource(s.n, s.n+k)
		s.Set(s.n+k, applyWrap(wrap, s.At(src), img))
	}
	for k := 1; k <= s.m; k++ {
		src, img := periodicSource(s.n, 1-k)
		s.Set(1-k, applyWrap(wrap, s.At(src), img))
	}
}

// periodicSource maps a ghost index i to its visible source index and
// the number of periods separating them.
func periodicSource(n, i int) (src, image int) {
	src = i
	for src < 1 {
		src += n
		image--
	}
	for src > n {
		src -= n
		image++
	}
	return src, image
}

func applyWrap[T any](wrap func(T, int) T, v T, image int) T {
	if wrap == nil || image == 0 {
		return v
	}
	return wrap(v, image)
}
