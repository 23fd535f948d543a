package spectral

import (
	"fmt"
	"math/cmplx"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft *FFT
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Magnitude      [][]float64    `json:"magnitude"`       // Time x Frequency magnitude matrix
	Complex        [][]complex128 `json:"-"`               // Raw complex spectrogram (not serialized)
	TimeFrames     int            `json:"time_frames"`     // Number of time frames
	FreqBins       int            `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int            `json:"sample_rate"`     // Sample rate
	WindowSize     int            `json:"window_size"`     // FFT window size
	HopSize        int            `json:"hop_size"`        // Hop size between frames
	Centered       bool           `json:"centered"`        // Whether frames were centered on t*hop
	FreqResolution float64        `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64        `json:"time_resolution"` // Time resolution (seconds/frame)
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

// ComputeCentered computes an STFT whose frame t is centered on sample
// t*hopSize. The signal is zero-padded by windowSize/2 on both ends, so the
// frame count is len(signal)/hopSize + 1 regardless of window size. Every
// per-frame feature in the pipeline shares this grid.
func (s *STFT) ComputeCentered(signal []float64, windowSize, hopSize, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	numFrames := len(signal)/hopSize + 1

	pad := windowSize / 2
	padded := make([]float64, pad+len(signal)+pad+windowSize)
	copy(padded[pad:], signal)

	result := s.compute(padded, numFrames, windowSize, hopSize, sampleRate, window)
	result.Centered = true
	return result, nil
}

// Compute computes a left-aligned STFT: frame t covers samples
// [t*hopSize, t*hopSize+windowSize).
func (s *STFT) Compute(signal []float64, windowSize, hopSize, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	numFrames := (len(signal)-windowSize)/hopSize + 1
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	return s.compute(signal, numFrames, windowSize, hopSize, sampleRate, window), nil
}

func (s *STFT) compute(signal []float64, numFrames, windowSize, hopSize, sampleRate int, window Window) *STFTResult {
	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	complexSpectrum := make([][]complex128, numFrames)

	frameBuffer := make([]float64, windowSize)

	for t := range numFrames {
		start := t * hopSize
		end := start + windowSize
		if end > len(signal) {
			end = len(signal)
		}

		for i := range frameBuffer {
			frameBuffer[i] = 0
		}
		copy(frameBuffer, signal[start:end])

		if window != nil {
			if err := window.ApplyInPlace(frameBuffer); err != nil {
				// Window size mismatch cannot happen for a fixed buffer;
				// leave the frame rectangular if it somehow does.
				_ = err
			}
		}

		spectrum := s.fft.Compute(frameBuffer)

		magnitude[t] = make([]float64, freqBins)
		complexSpectrum[t] = make([]complex128, freqBins)

		for f := range freqBins {
			complexSpectrum[t][f] = spectrum[f]
			magnitude[t][f] = cmplx.Abs(spectrum[f])
		}
	}

	return &STFTResult{
		Magnitude:      magnitude,
		Complex:        complexSpectrum,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}
}

// Inverse reconstructs a time-domain signal from a complex spectrogram via
// overlap-add, using the given synthesis window (normally the same window
// used for analysis). length is the number of samples to return; for a
// centered STFT the windowSize/2 leading pad is stripped first.
func (s *STFT) Inverse(result *STFTResult, window []float64, length int) ([]float64, error) {
	if result == nil || len(result.Complex) == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}

	windowSize := result.WindowSize
	hopSize := result.HopSize

	if window != nil && len(window) != windowSize {
		return nil, fmt.Errorf("window length (%d) doesn't match window size (%d)", len(window), windowSize)
	}

	total := (result.TimeFrames-1)*hopSize + windowSize
	output := make([]float64, total)
	windowSum := make([]float64, total)

	fullSpectrum := make([]complex128, windowSize)

	for t, half := range result.Complex {
		// Rebuild the full conjugate-symmetric spectrum from the
		// positive-frequency half.
		for f := range half {
			fullSpectrum[f] = half[f]
		}
		for f := 1; f < windowSize-len(half)+1; f++ {
			fullSpectrum[windowSize-f] = cmplx.Conj(half[f])
		}

		frame := s.fft.ComputeInverseReal(fullSpectrum)

		start := t * hopSize
		for i := range windowSize {
			w := 1.0
			if window != nil {
				w = window[i]
			}
			output[start+i] += frame[i] * w
			windowSum[start+i] += w * w
		}
	}

	for i := range output {
		if windowSum[i] > 1e-10 {
			output[i] /= windowSum[i]
		}
	}

	offset := 0
	if result.Centered {
		offset = windowSize / 2
	}

	if length <= 0 || offset+length > len(output) {
		length = len(output) - offset
	}

	return output[offset : offset+length], nil
}
