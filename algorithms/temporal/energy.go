package temporal

import (
	"math"
)

// Envelope provides amplitude envelope extraction
type Envelope struct {
	// No state needed - stateless calculation
}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes an RMS envelope with left-aligned frames
func (e *Envelope) ComputeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		startIdx := i * hopSize
		endIdx := startIdx + frameSize

		sumSquares := 0.0
		for j := startIdx; j < endIdx; j++ {
			sumSquares += signal[j] * signal[j]
		}
		envelope[i] = math.Sqrt(sumSquares / float64(frameSize))
	}

	return envelope
}

// ComputeRMSCentered computes an RMS envelope on the centered frame grid:
// frame t covers the frameSize samples around t*hopSize (zero-padded at the
// edges), giving len(signal)/hopSize + 1 frames.
func (e *Envelope) ComputeRMSCentered(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) == 0 || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := len(signal)/hopSize + 1
	envelope := make([]float64, numFrames)

	half := frameSize / 2

	for t := range numFrames {
		center := t * hopSize

		sumSquares := 0.0
		for j := center - half; j < center-half+frameSize; j++ {
			if j >= 0 && j < len(signal) {
				sumSquares += signal[j] * signal[j]
			}
		}
		envelope[t] = math.Sqrt(sumSquares / float64(frameSize))
	}

	return envelope
}
