package padded

import "testing"

func TestVisibleIndexing(t *testing.T) {
	s := FromSlice([]float64{10, 20, 30, 40}, 2)

	if s.Len() != 4 {
		t.Fatalf("expected length 4, got %d", s.Len())
	}
	if got := s.At(1); got != 10 {
		t.Errorf("At(1) = %v, want 10", got)
	}
	if got := s.At(4); got != 40 {
		t.Errorf("At(4) = %v, want 40", got)
	}

	s.Set(3, 33)
	if got := s.At(3); got != 33 {
		t.Errorf("At(3) = %v after Set, want 33", got)
	}
}

func TestOutOfRangePanics(t *testing.T) {
	s := FromSlice([]float64{1, 2, 3}, 1)

	tests := []struct {
		name string
		idx  int
	}{
		{"below left ghost", -1},
		{"above right ghost", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for index %d", tt.idx)
				}
			}()
			s.At(tt.idx)
		})
	}
}

func TestPadPeriodic(t *testing.T) {
	s := FromSlice([]float64{1, 2, 3, 4, 5}, 2)
	s.PadPeriodic(nil)

	// Left pad mirrors the tail, right pad the head.
	if got := s.At(0); got != 5 {
		t.Errorf("At(0) = %v, want 5", got)
	}
	if got := s.At(-1); got != 4 {
		t.Errorf("At(-1) = %v, want 4", got)
	}
	if got := s.At(6); got != 1 {
		t.Errorf("At(6) = %v, want 1", got)
	}
	if got := s.At(7); got != 2 {
		t.Errorf("At(7) = %v, want 2", got)
	}
}

func TestPadPeriodicOffset(t *testing.T) {
	// Knot-like sequence with period 10: t[i±N] = t[i] ± 10.
	s := FromSlice([]float64{0, 2, 5, 8}, 3)
	wrap := func(v float64, image int) float64 { return v + 10*float64(image) }
	s.PadPeriodic(wrap)

	if got := s.At(0); got != -2 {
		t.Errorf("At(0) = %v, want -2", got)
	}
	if got := s.At(-2); got != -8 {
		t.Errorf("At(-2) = %v, want -8", got)
	}
	if got := s.At(5); got != 10 {
		t.Errorf("At(5) = %v, want 10", got)
	}
	if got := s.At(7); got != 15 {
		t.Errorf("At(7) = %v, want 15", got)
	}
}

func TestPadPeriodicShortSequence(t *testing.T) {
	// N < M: ghosts span more than one image.
	s := FromSlice([]float64{0, 1}, 3)
	wrap := func(v float64, image int) float64 { return v + 2*float64(image) }
	s.PadPeriodic(wrap)

	if got := s.At(-2); got != -3 {
		t.Errorf("At(-2) = %v, want -3", got)
	}
	if got := s.At(5); got != 4 {
		t.Errorf("At(5) = %v, want 4", got)
	}
}

func TestInsertRemove(t *testing.T) {
	s := FromSlice([]float64{1, 2, 4}, 1)

	s.Insert(3, 3)
	if s.Len() != 4 {
		t.Fatalf("expected length 4 after insert, got %d", s.Len())
	}
	for i, want := range []float64{1, 2, 3, 4} {
		if got := s.At(i + 1); got != want {
			t.Errorf("At(%d) = %v, want %v", i+1, got, want)
		}
	}

	s.Remove(2)
	if s.Len() != 3 {
		t.Fatalf("expected length 3 after remove, got %d", s.Len())
	}
	for i, want := range []float64{1, 3, 4} {
		if got := s.At(i + 1); got != want {
			t.Errorf("At(%d) = %v, want %v", i+1, got, want)
		}
	}
}

func TestResize(t *testing.T) {
	s := FromSlice([]float64{1, 2, 3}, 2)

	s.Resize(5)
	if s.Len() != 5 {
		t.Fatalf("expected length 5, got %d", s.Len())
	}
	if got := s.At(2); got != 2 {
		t.Errorf("At(2) = %v after grow, want 2", got)
	}

	s.Resize(2)
	if s.Len() != 2 {
		t.Fatalf("expected length 2, got %d", s.Len())
	}
	if got := s.At(1); got != 1 {
		t.Errorf("At(1) = %v after shrink, want 1", got)
	}
}
