package temporal

import (
	"github.com/chromascope/chromascope/algorithms/common"
	"github.com/chromascope/chromascope/algorithms/spectral"
	"github.com/chromascope/chromascope/algorithms/windowing"
)

// OnsetDetection detects note/event onsets in audio signals
type OnsetDetection struct {
	spectralFlux *spectral.SpectralFlux
	stft         *spectral.STFT
}

// NewOnsetDetection creates a new onset detector
func NewOnsetDetection() *OnsetDetection {
	return &OnsetDetection{
		spectralFlux: spectral.NewSpectralFlux(),
		stft:         spectral.NewSTFT(),
	}
}

// OnsetStrength computes an onset-strength envelope aligned to the centered
// frame grid (len(signal)/hopSize + 1 entries): the half-wave rectified
// spectral flux of the signal at the given hop.
func (od *OnsetDetection) OnsetStrength(signal []float64, sampleRate, windowSize, hopSize int) ([]float64, error) {
	if len(signal) == 0 {
		return []float64{}, nil
	}

	window := windowing.NewHann(windowSize, false)
	stftResult, err := od.stft.ComputeCentered(signal, windowSize, hopSize, sampleRate, window)
	if err != nil {
		return nil, err
	}

	return od.spectralFlux.ComputeEnvelope(stftResult.Magnitude), nil
}

// DetectOnsets picks onset frames from an onset-strength envelope using an
// adaptive threshold (mean + 1.5 std) and a minimum inter-onset spacing.
// Returns ascending frame indices on the envelope's frame grid.
func (od *OnsetDetection) DetectOnsets(envelope []float64, sampleRate, hopSize int, minInterval float64) []int {
	if len(envelope) < 3 {
		return []int{}
	}

	threshold := common.Mean(envelope) + 1.5*common.StandardDeviation(envelope)

	minIntervalFrames := int(minInterval * float64(sampleRate) / float64(hopSize))
	if minIntervalFrames < 1 {
		minIntervalFrames = 1
	}

	var peaks []int
	lastPeakFrame := -minIntervalFrames // Allow first peak

	for i := 1; i < len(envelope)-1; i++ {
		if envelope[i] > envelope[i-1] &&
			envelope[i] >= envelope[i+1] &&
			envelope[i] >= threshold &&
			i-lastPeakFrame >= minIntervalFrames {
			peaks = append(peaks, i)
			lastPeakFrame = i
		}
	}

	if peaks == nil {
		return []int{}
	}

	return peaks
}
