package spectral

import (
	"fmt"
	"math"
)

// MFCC computes Mel-Frequency Cepstral Coefficients, a compact timbre
// fingerprint of the spectral envelope
type MFCC struct {
	numCoefficients int
	numMelFilters   int
	sampleRate      int
	lowFreq         float64
	highFreq        float64

	melScale    *MelScale
	filterBank  [][]float64
	dctMatrix   [][]float64
	initialized bool
}

// NewMFCC creates a new MFCC computer. numCoefficients defaults to 13 when
// non-positive; the mel bank uses 26 filters over 0..sampleRate/2.
func NewMFCC(sampleRate, numCoefficients int) *MFCC {
	if numCoefficients <= 0 {
		numCoefficients = 13
	}

	return &MFCC{
		numCoefficients: numCoefficients,
		numMelFilters:   26,
		sampleRate:      sampleRate,
		lowFreq:         0.0,
		highFreq:        float64(sampleRate) / 2.0,
		melScale:        NewMelScale(),
	}
}

// Initialize prepares the filter bank and DCT matrix for the given FFT size
func (m *MFCC) Initialize(fftSize int) error {
	if fftSize <= 0 {
		return fmt.Errorf("invalid FFT size: %d", fftSize)
	}

	m.filterBank = m.melScale.CreateMelFilterBank(
		m.numMelFilters,
		fftSize,
		m.sampleRate,
		m.lowFreq,
		m.highFreq,
	)

	if len(m.filterBank) == 0 {
		return fmt.Errorf("failed to create mel filter bank")
	}

	m.createDCTMatrix()

	m.initialized = true
	return nil
}

// createDCTMatrix builds a DCT-II matrix mapping mel energies to cepstral
// coefficients
func (m *MFCC) createDCTMatrix() {
	m.dctMatrix = make([][]float64, m.numCoefficients)

	for i := range m.numCoefficients {
		m.dctMatrix[i] = make([]float64, m.numMelFilters)
		for j := range m.numMelFilters {
			m.dctMatrix[i][j] = math.Cos(math.Pi * float64(i) * (float64(j) + 0.5) / float64(m.numMelFilters))
		}
	}
}

// Compute calculates MFCC coefficients from a single magnitude spectrum
func (m *MFCC) Compute(magnitudeSpectrum []float64) ([]float64, error) {
	if !m.initialized {
		fftSize := (len(magnitudeSpectrum) - 1) * 2
		if err := m.Initialize(fftSize); err != nil {
			return nil, fmt.Errorf("failed to initialize MFCC: %w", err)
		}
	}

	powerSpectrum := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		powerSpectrum[i] = mag * mag
	}

	melSpectrum := m.melScale.ApplyFilterBank(powerSpectrum, m.filterBank)

	// Log compression with a floor against silent frames
	logMel := make([]float64, len(melSpectrum))
	for i, energy := range melSpectrum {
		logMel[i] = math.Log(math.Max(energy, 1e-10))
	}

	coefficients := make([]float64, m.numCoefficients)
	for i := range m.numCoefficients {
		sum := 0.0
		for j := 0; j < len(logMel) && j < m.numMelFilters; j++ {
			sum += m.dctMatrix[i][j] * logMel[j]
		}
		coefficients[i] = sum
	}

	return coefficients, nil
}

// ComputeFrames calculates MFCCs for every frame of a magnitude spectrogram.
// The result is coefficient-major: result[c][t] is coefficient c at frame t.
func (m *MFCC) ComputeFrames(spectrogram [][]float64) ([][]float64, error) {
	result := make([][]float64, m.numCoefficients)
	for c := range result {
		result[c] = make([]float64, len(spectrogram))
	}

	for t, spectrum := range spectrogram {
		coeffs, err := m.Compute(spectrum)
		if err != nil {
			return nil, err
		}
		for c := range coeffs {
			result[c][t] = coeffs[c]
		}
	}

	return result, nil
}
