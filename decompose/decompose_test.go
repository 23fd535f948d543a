package decompose

import (
	"context"
	"errors"
	"math"
	"testing"
)

const testSampleRate = 22050

func sine(freq float64, seconds float64) []float64 {
	n := int(seconds * testSampleRate)
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2.0*math.Pi*freq*float64(i)/testSampleRate)
	}
	return out
}

func clickTrain(intervalSec float64, seconds float64) []float64 {
	n := int(seconds * testSampleRate)
	out := make([]float64, n)
	step := int(intervalSec * testSampleRate)
	for i := 0; i < n; i += step {
		// Short wideband burst
		for j := range 32 {
			if i+j < n {
				out[i+j] = 0.8 * math.Pow(-1, float64(j)) * math.Exp(-float64(j)/8.0)
			}
		}
	}
	return out
}

func energy(signal []float64) float64 {
	sum := 0.0
	for _, v := range signal {
		sum += v * v
	}
	return sum
}

func TestSeparatePreservesLength(t *testing.T) {
	d := NewDecomposer(testSampleRate, 1.0, 1.0)
	signal := sine(440.0, 0.5)

	result, err := d.Separate(signal)
	if err != nil {
		t.Fatalf("Separate failed: %v", err)
	}

	if len(result.Harmonic) != len(signal) {
		t.Errorf("harmonic length = %d, want %d", len(result.Harmonic), len(signal))
	}
	if len(result.Percussive) != len(signal) {
		t.Errorf("percussive length = %d, want %d", len(result.Percussive), len(signal))
	}
	if result.SampleRate != testSampleRate {
		t.Errorf("sample rate = %d, want %d", result.SampleRate, testSampleRate)
	}
	wantDuration := float64(len(signal)) / testSampleRate
	if math.Abs(result.Duration-wantDuration) > 1e-9 {
		t.Errorf("duration = %v, want %v", result.Duration, wantDuration)
	}
}

func TestSeparateSineIsHarmonic(t *testing.T) {
	d := NewDecomposer(testSampleRate, 1.0, 1.0)

	result, err := d.Separate(sine(440.0, 1.0))
	if err != nil {
		t.Fatalf("Separate failed: %v", err)
	}

	harmonicEnergy := energy(result.Harmonic)
	percussiveEnergy := energy(result.Percussive)
	if harmonicEnergy <= percussiveEnergy {
		t.Errorf("sustained tone should land in the harmonic component: harmonic=%v percussive=%v",
			harmonicEnergy, percussiveEnergy)
	}
}

func TestSeparateClicksArePercussive(t *testing.T) {
	d := NewDecomposer(testSampleRate, 1.0, 1.0)

	result, err := d.Separate(clickTrain(0.5, 2.0))
	if err != nil {
		t.Fatalf("Separate failed: %v", err)
	}

	harmonicEnergy := energy(result.Harmonic)
	percussiveEnergy := energy(result.Percussive)
	if percussiveEnergy <= harmonicEnergy {
		t.Errorf("transients should land in the percussive component: harmonic=%v percussive=%v",
			harmonicEnergy, percussiveEnergy)
	}
}

func TestSeparateSilence(t *testing.T) {
	d := NewDecomposer(testSampleRate, 1.0, 1.0)

	result, err := d.Separate(make([]float64, testSampleRate/2))
	if err != nil {
		t.Fatalf("Separate failed: %v", err)
	}

	for i, v := range result.Harmonic {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("harmonic[%d] = %v on silent input", i, v)
		}
	}
	for i, v := range result.Percussive {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("percussive[%d] = %v on silent input", i, v)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	d := NewDecomposer(testSampleRate, 1.0, 1.0)

	_, err := d.Load(context.Background(), "/nonexistent/audio.wav")
	if err == nil {
		t.Fatal("expected error for missing file")
	}

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error should be a DecodeError, got %T", err)
	}
	if decodeErr.Path != "/nonexistent/audio.wav" {
		t.Errorf("DecodeError path = %q", decodeErr.Path)
	}
}
