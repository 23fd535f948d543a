package windowing

import (
	"math"
	"testing"
)

func TestHannPeriodic(t *testing.T) {
	h := NewHann(8, false)
	coeffs := h.GetCoefficients()

	if coeffs[0] != 0.0 {
		t.Errorf("coeffs[0] = %v, want 0", coeffs[0])
	}
	if math.Abs(coeffs[4]-1.0) > 1e-12 {
		t.Errorf("midpoint = %v, want 1", coeffs[4])
	}
	// Periodic window: last coefficient is not zero
	if coeffs[7] == 0.0 {
		t.Error("periodic window must not end at zero")
	}
}

func TestHannSymmetric(t *testing.T) {
	h := NewHann(9, true)
	coeffs := h.GetCoefficients()

	if coeffs[0] != 0.0 || math.Abs(coeffs[8]) > 1e-12 {
		t.Errorf("symmetric window endpoints = %v, %v, want 0, 0", coeffs[0], coeffs[8])
	}
	for i := range 4 {
		if math.Abs(coeffs[i]-coeffs[8-i]) > 1e-12 {
			t.Errorf("asymmetry at %d: %v vs %v", i, coeffs[i], coeffs[8-i])
		}
	}
}

func TestHannApply(t *testing.T) {
	h := NewHann(4, false)

	signal := []float64{1.0, 1.0, 1.0, 1.0}
	windowed := h.Apply(signal)

	if windowed == nil {
		t.Fatal("Apply returned nil for matching size")
	}
	for i, w := range h.GetCoefficients() {
		if windowed[i] != w {
			t.Errorf("windowed[%d] = %v, want %v", i, windowed[i], w)
		}
	}

	// Input untouched
	for _, v := range signal {
		if v != 1.0 {
			t.Fatal("Apply must not modify its input")
		}
	}

	if h.Apply([]float64{1.0}) != nil {
		t.Error("size mismatch should return nil")
	}
}

func TestHannApplyInPlace(t *testing.T) {
	h := NewHann(4, false)

	signal := []float64{2.0, 2.0, 2.0, 2.0}
	if err := h.ApplyInPlace(signal); err != nil {
		t.Fatalf("ApplyInPlace failed: %v", err)
	}
	for i, w := range h.GetCoefficients() {
		if signal[i] != 2.0*w {
			t.Errorf("signal[%d] = %v, want %v", i, signal[i], 2.0*w)
		}
	}

	if err := h.ApplyInPlace([]float64{1.0, 2.0}); err == nil {
		t.Error("size mismatch should error")
	}
}
