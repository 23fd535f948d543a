package spectral

// ZeroCrossingRate calculates the zero crossing rate of a signal.
// High values indicate noisy or high-frequency content, low values
// sustained tonal content.
type ZeroCrossingRate struct {
	sampleRate int
	frameSize  int
	hopSize    int
}

// NewZeroCrossingRate creates a new zero crossing rate calculator
func NewZeroCrossingRate(sampleRate int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		sampleRate: sampleRate,
		frameSize:  2048,
		hopSize:    512,
	}
}

// NewZeroCrossingRateWithParams creates a calculator with custom framing
func NewZeroCrossingRateWithParams(sampleRate, frameSize, hopSize int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		hopSize:    hopSize,
	}
}

// ComputeNormalized calculates normalized ZCR (0-1 range) for a single frame
func (zcr *ZeroCrossingRate) ComputeNormalized(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0 && frame[i] < 0) || (frame[i-1] < 0 && frame[i] >= 0) {
			crossings++
		}
	}

	maxCrossings := len(frame) - 1
	return float64(crossings) / float64(maxCrossings)
}

// ComputeFramesCentered calculates normalized ZCR on a centered frame grid:
// frame t covers the frameSize samples around t*hopSize, so the output has
// len(signal)/hopSize + 1 entries.
func (zcr *ZeroCrossingRate) ComputeFramesCentered(signal []float64) []float64 {
	if len(signal) == 0 {
		return []float64{}
	}

	numFrames := len(signal)/zcr.hopSize + 1
	values := make([]float64, numFrames)

	half := zcr.frameSize / 2
	frame := make([]float64, zcr.frameSize)

	for t := range numFrames {
		center := t * zcr.hopSize

		for i := range frame {
			idx := center - half + i
			if idx >= 0 && idx < len(signal) {
				frame[i] = signal[idx]
			} else {
				frame[i] = 0
			}
		}

		values[t] = zcr.ComputeNormalized(frame)
	}

	return values
}
