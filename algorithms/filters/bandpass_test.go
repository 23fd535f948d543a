package filters

import (
	"math"
	"testing"
)

const testSampleRate = 22050

func sine(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2.0 * math.Pi * freq * float64(i) / testSampleRate)
	}
	return out
}

// rms over the second half of a buffer, past the filter's settling time
func settledRMS(buf []float64) float64 {
	tail := buf[len(buf)/2:]
	sum := 0.0
	for _, v := range tail {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(tail)))
}

func TestButterworthBandpassSelectivity(t *testing.T) {
	bp, err := NewButterworthBandpass(testSampleRate, 500.0, 2000.0)
	if err != nil {
		t.Fatalf("NewButterworthBandpass failed: %v", err)
	}

	inBand := settledRMS(bp.ProcessBuffer(sine(1000.0, testSampleRate)))
	bp.Reset()
	below := settledRMS(bp.ProcessBuffer(sine(50.0, testSampleRate)))
	bp.Reset()
	above := settledRMS(bp.ProcessBuffer(sine(8000.0, testSampleRate)))

	if inBand < 4*below {
		t.Errorf("in-band rms %v should dominate below-band rms %v", inBand, below)
	}
	if inBand < 4*above {
		t.Errorf("in-band rms %v should dominate above-band rms %v", inBand, above)
	}
}

func TestButterworthBandpassDegenerate(t *testing.T) {
	tests := []struct {
		name      string
		low, high float64
	}{
		{"inverted", 5000.0, 4000.0},
		{"equal", 3000.0, 3000.0},
		{"band above nyquist", 12000.0, 16000.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewButterworthBandpass(testSampleRate, tt.low, tt.high); err == nil {
				t.Errorf("expected error for low=%v high=%v", tt.low, tt.high)
			}
		})
	}
}

func TestButterworthBandpassClampsToNyquist(t *testing.T) {
	bp, err := NewButterworthBandpass(testSampleRate, 6000.0, 20000.0)
	if err != nil {
		t.Fatalf("band reaching past Nyquist should clamp, got error: %v", err)
	}

	_, high := bp.Passband()
	if high >= float64(testSampleRate)/2.0 {
		t.Errorf("clamped high = %v, must be below Nyquist", high)
	}

	out := bp.ProcessBuffer(sine(8000.0, testSampleRate))
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("out[%d] = %v", i, v)
		}
	}
}

func TestBandpassFilterStability(t *testing.T) {
	bf := NewBandpassFilter(testSampleRate, 1000.0, 500.0)

	// Feed noise-like input; output must stay bounded
	out := make([]float64, testSampleRate)
	x := 1.0
	for i := range out {
		x = math.Mod(x*1.1+0.7, 2.0) - 1.0
		out[i] = bf.Process(x)
	}

	for i, v := range out {
		if math.IsNaN(v) || math.Abs(v) > 100.0 {
			t.Fatalf("out[%d] = %v, filter unstable", i, v)
		}
	}
}

func TestBandpassFilterReset(t *testing.T) {
	bf := NewBandpassFilter(testSampleRate, 1000.0, 500.0)

	first := bf.ProcessBuffer(sine(1000.0, 512))
	bf.Reset()
	second := bf.ProcessBuffer(sine(1000.0, 512))

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("outputs diverge at %d after Reset: %v vs %v", i, first[i], second[i])
		}
	}
}
