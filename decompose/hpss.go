package decompose

import (
	"github.com/chromascope/chromascope/algorithms/common"
	"github.com/chromascope/chromascope/algorithms/spectral"
	"github.com/chromascope/chromascope/algorithms/windowing"
)

// HPSS parameters. The analysis frame grid is independent of these; HPSS
// runs on its own window/hop and returns full-length time-domain components.
const (
	hpssWindowSize   = 2048
	hpssHopSize      = 512
	hpssMedianKernel = 31
)

// HPSS performs harmonic-percussive source separation by median filtering a
// magnitude spectrogram: horizontal (time-axis) medians preserve sustained
// harmonic ridges, vertical (frequency-axis) medians preserve broadband
// percussive columns. Soft masks derived from the two estimates split the
// complex spectrogram, which is inverted back to the time domain.
type HPSS struct {
	marginHarmonic   float64
	marginPercussive float64
	stft             *spectral.STFT
	window           *windowing.Hann
}

// NewHPSS creates a separator with the given margins. Margin 1.0 yields
// complementary masks; larger margins demand more dominance before energy is
// assigned, giving cleaner but more artifact-prone separation.
func NewHPSS(marginHarmonic, marginPercussive float64) *HPSS {
	return &HPSS{
		marginHarmonic:   marginHarmonic,
		marginPercussive: marginPercussive,
		stft:             spectral.NewSTFT(),
		window:           windowing.NewHann(hpssWindowSize, false),
	}
}

// Separate splits a signal into harmonic and percussive components of the
// same length as the input.
func (h *HPSS) Separate(signal []float64, sampleRate int) (harmonic, percussive []float64, err error) {
	stftResult, err := h.stft.ComputeCentered(signal, hpssWindowSize, hpssHopSize, sampleRate, h.window)
	if err != nil {
		return nil, nil, err
	}

	harmEst := medianFilterTime(stftResult.Magnitude, hpssMedianKernel)
	percEst := medianFilterFrequency(stftResult.Magnitude, hpssMedianKernel)

	harmSpec, percSpec := h.applyMasks(stftResult, harmEst, percEst)

	harmonic, err = h.invert(stftResult, harmSpec, len(signal))
	if err != nil {
		return nil, nil, err
	}

	percussive, err = h.invert(stftResult, percSpec, len(signal))
	if err != nil {
		return nil, nil, err
	}

	return harmonic, percussive, nil
}

// applyMasks builds power-2 soft masks from the filtered estimates and
// applies them to the complex spectrogram
func (h *HPSS) applyMasks(stftResult *spectral.STFTResult, harmEst, percEst [][]float64) (harmSpec, percSpec [][]complex128) {
	harmSpec = make([][]complex128, stftResult.TimeFrames)
	percSpec = make([][]complex128, stftResult.TimeFrames)

	for t := range stftResult.TimeFrames {
		harmSpec[t] = make([]complex128, stftResult.FreqBins)
		percSpec[t] = make([]complex128, stftResult.FreqBins)

		for f := range stftResult.FreqBins {
			he := harmEst[t][f]
			pe := percEst[t][f]

			maskH := softMask(he, h.marginHarmonic*pe)
			maskP := softMask(pe, h.marginPercussive*he)

			harmSpec[t][f] = stftResult.Complex[t][f] * complex(maskH, 0)
			percSpec[t][f] = stftResult.Complex[t][f] * complex(maskP, 0)
		}
	}

	return harmSpec, percSpec
}

// softMask computes x^2 / (x^2 + ref^2), the relative dominance of x over
// its competing estimate. Both-zero cells get 0 so silence stays silent.
func softMask(x, ref float64) float64 {
	den := x*x + ref*ref
	if den < 1e-12 {
		return 0.0
	}
	return x * x / den
}

// invert runs the inverse STFT for a masked spectrogram
func (h *HPSS) invert(stftResult *spectral.STFTResult, masked [][]complex128, length int) ([]float64, error) {
	maskedResult := &spectral.STFTResult{
		Complex:    masked,
		TimeFrames: stftResult.TimeFrames,
		FreqBins:   stftResult.FreqBins,
		SampleRate: stftResult.SampleRate,
		WindowSize: stftResult.WindowSize,
		HopSize:    stftResult.HopSize,
		Centered:   stftResult.Centered,
	}

	return h.stft.Inverse(maskedResult, h.window.GetCoefficients(), length)
}

// medianFilterTime applies a sliding median along the time axis per
// frequency bin, suppressing transients
func medianFilterTime(magnitude [][]float64, kernel int) [][]float64 {
	numFrames := len(magnitude)
	if numFrames == 0 {
		return nil
	}
	numBins := len(magnitude[0])
	half := kernel / 2

	out := make([][]float64, numFrames)
	for t := range out {
		out[t] = make([]float64, numBins)
	}

	column := make([]float64, 0, kernel)

	for f := range numBins {
		for t := range numFrames {
			column = column[:0]
			for k := t - half; k <= t+half; k++ {
				if k >= 0 && k < numFrames {
					column = append(column, magnitude[k][f])
				}
			}
			out[t][f] = common.Median(column)
		}
	}

	return out
}

// medianFilterFrequency applies a sliding median along the frequency axis
// per frame, suppressing tonal ridges
func medianFilterFrequency(magnitude [][]float64, kernel int) [][]float64 {
	numFrames := len(magnitude)
	if numFrames == 0 {
		return nil
	}
	numBins := len(magnitude[0])
	half := kernel / 2

	out := make([][]float64, numFrames)

	row := make([]float64, 0, kernel)

	for t := range numFrames {
		out[t] = make([]float64, numBins)
		for f := range numBins {
			row = row[:0]
			for k := f - half; k <= f+half; k++ {
				if k >= 0 && k < numBins {
					row = append(row, magnitude[t][k])
				}
			}
			out[t][f] = common.Median(row)
		}
	}

	return out
}
