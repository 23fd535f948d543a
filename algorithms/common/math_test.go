package common

import (
	"math"
	"testing"
)

func TestBasicStats(t *testing.T) {
	data := []float64{2.0, 4.0, 4.0, 4.0, 5.0, 5.0, 7.0, 9.0}

	if got := Mean(data); math.Abs(got-5.0) > 1e-12 {
		t.Errorf("Mean = %v, want 5", got)
	}
	wantStd := math.Sqrt(32.0 / 7.0)
	if got := StandardDeviation(data); math.Abs(got-wantStd) > 1e-12 {
		t.Errorf("StandardDeviation = %v, want %v", got, wantStd)
	}
	if got := Min(data); got != 2.0 {
		t.Errorf("Min = %v, want 2", got)
	}
	if got := Max(data); got != 9.0 {
		t.Errorf("Max = %v, want 9", got)
	}
	if got := Sum(data); got != 40.0 {
		t.Errorf("Sum = %v, want 40", got)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want float64
	}{
		{"odd length", []float64{3.0, 1.0, 2.0}, 2.0},
		{"even length", []float64{4.0, 1.0, 3.0, 2.0}, 2.5},
		{"single", []float64{7.0}, 7.0},
		{"empty", []float64{}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := append([]float64(nil), tt.data...)
			if got := Median(tt.data); got != tt.want {
				t.Errorf("Median = %v, want %v", got, tt.want)
			}
			// Median must not reorder the caller's slice
			for i := range input {
				if tt.data[i] != input[i] {
					t.Fatalf("input mutated at %d", i)
				}
			}
		})
	}
}

func TestArgMax(t *testing.T) {
	if got := ArgMax([]float64{1.0, 5.0, 3.0, 5.0}); got != 1 {
		t.Errorf("ArgMax = %d, want first maximum at 1", got)
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
	}
	for _, tt := range tests {
		if got := Clip(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clip(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestFitLength(t *testing.T) {
	t.Run("truncate", func(t *testing.T) {
		got := FitLength([]float64{1, 2, 3, 4}, 2)
		if len(got) != 2 || got[0] != 1 || got[1] != 2 {
			t.Errorf("got %v", got)
		}
	})

	t.Run("pad repeats last value", func(t *testing.T) {
		got := FitLength([]float64{1, 2}, 4)
		want := []float64{1, 2, 2, 2}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("got %v, want %v", got, want)
			}
		}
	})

	t.Run("pad empty with zeros", func(t *testing.T) {
		got := FitLength(nil, 3)
		if len(got) != 3 {
			t.Fatalf("length = %d", len(got))
		}
		for _, v := range got {
			if v != 0 {
				t.Fatalf("got %v, want zeros", got)
			}
		}
	})

	t.Run("exact length unchanged", func(t *testing.T) {
		in := []float64{1, 2, 3}
		got := FitLength(in, 3)
		if len(got) != 3 || got[2] != 3 {
			t.Errorf("got %v", got)
		}
	})
}
