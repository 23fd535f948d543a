package spectral

import (
	"math"
)

// SpectralFlux computes spectral flux (measure of frame-to-frame spectral change)
type SpectralFlux struct {
	// No state needed
}

// NewSpectralFlux creates a new spectral flux calculator
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{}
}

// Compute calculates spectral flux between consecutive frames using only
// positive changes (energy increases). Returns len(spectrogram)-1 values.
func (sf *SpectralFlux) Compute(spectrogram [][]float64) []float64 {
	if len(spectrogram) < 2 {
		return []float64{}
	}

	flux := make([]float64, len(spectrogram)-1)

	for t := 1; t < len(spectrogram); t++ {
		sum := 0.0
		for f := 0; f < len(spectrogram[t]); f++ {
			diff := spectrogram[t][f] - spectrogram[t-1][f]
			if diff > 0 { // Only positive changes (energy increases)
				sum += diff * diff
			}
		}
		flux[t-1] = math.Sqrt(sum)
	}

	return flux
}

// ComputeEnvelope calculates an onset-strength envelope aligned to the input
// frame grid: the mean of positive magnitude increases per frame, with a
// leading zero so envelope[t] describes the change arriving at frame t.
func (sf *SpectralFlux) ComputeEnvelope(spectrogram [][]float64) []float64 {
	if len(spectrogram) == 0 {
		return []float64{}
	}

	envelope := make([]float64, len(spectrogram))

	for t := 1; t < len(spectrogram); t++ {
		sum := 0.0
		for f := 0; f < len(spectrogram[t]); f++ {
			diff := spectrogram[t][f] - spectrogram[t-1][f]
			if diff > 0 {
				sum += diff
			}
		}
		envelope[t] = sum / float64(len(spectrogram[t]))
	}

	return envelope
}
