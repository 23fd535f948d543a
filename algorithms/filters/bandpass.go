package filters

import (
	"fmt"
	"math"
)

// BandpassFilter implements a second-order digital bandpass filter using a
// biquad topology.
//
// Coefficients follow Robert Bristow-Johnson's "Cookbook formulae for audio
// EQ biquad filter coefficients"
// Reference: https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
type BandpassFilter struct {
	sampleRate int
	centerFreq float64 // Center frequency in Hz
	bandwidth  float64 // Bandwidth in Hz
	qFactor    float64 // Quality factor (centerFreq/bandwidth)

	// Biquad coefficients
	b0, b1, b2 float64 // Numerator coefficients
	a0, a1, a2 float64 // Denominator coefficients

	// State variables for direct form II implementation
	x1, x2 float64

	initialized bool
}

// NewBandpassFilter creates a new bandpass filter. The Q factor is
// centerFreq/bandwidth; higher Q means a narrower filter.
func NewBandpassFilter(sampleRate int, centerFreq, bandwidth float64) *BandpassFilter {
	bf := &BandpassFilter{
		sampleRate: sampleRate,
		centerFreq: centerFreq,
		bandwidth:  bandwidth,
		qFactor:    centerFreq / bandwidth,
	}

	bf.computeCoefficients()
	return bf
}

// computeCoefficients calculates the biquad coefficients using the cookbook formula
func (bf *BandpassFilter) computeCoefficients() {
	// Normalize frequency: w0 = 2*pi*f0/Fs
	w0 := 2.0 * math.Pi * bf.centerFreq / float64(bf.sampleRate)

	// Prevent numerical issues at Nyquist
	if w0 >= math.Pi {
		w0 = math.Pi * 0.99
	}

	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)

	alpha := sinW0 / (2.0 * bf.qFactor)

	bf.b0 = alpha
	bf.b1 = 0.0
	bf.b2 = -alpha
	bf.a0 = 1.0 + alpha
	bf.a1 = -2.0 * cosW0
	bf.a2 = 1.0 - alpha

	// Normalize by a0 for direct form II implementation
	bf.b0 /= bf.a0
	bf.b1 /= bf.a0
	bf.b2 /= bf.a0
	bf.a1 /= bf.a0
	bf.a2 /= bf.a0
	bf.a0 = 1.0

	bf.initialized = true
}

// Process applies the bandpass filter to a single sample.
// Uses Direct Form II for numerical stability.
func (bf *BandpassFilter) Process(input float64) float64 {
	if !bf.initialized {
		bf.computeCoefficients()
	}

	// w[n] = x[n] - a1*w[n-1] - a2*w[n-2]
	w := input - bf.a1*bf.x1 - bf.a2*bf.x2

	// y[n] = b0*w[n] + b1*w[n-1] + b2*w[n-2]
	output := bf.b0*w + bf.b1*bf.x1 + bf.b2*bf.x2

	bf.x2 = bf.x1
	bf.x1 = w

	return output
}

// ProcessBuffer applies the bandpass filter to an entire buffer of samples
func (bf *BandpassFilter) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = bf.Process(sample)
	}
	return output
}

// Reset clears the filter's internal state (delay line).
// Call this when processing discontinuous audio segments.
func (bf *BandpassFilter) Reset() {
	bf.x1, bf.x2 = 0.0, 0.0
}

// ButterworthBandpass is a 4th-order bandpass filter built as a cascade of
// two biquad sections, passing frequencies between lowFreq and highFreq
type ButterworthBandpass struct {
	sections [2]*BandpassFilter
	lowFreq  float64
	highFreq float64
}

// NewButterworthBandpass creates a 4th-order bandpass filter for the
// [lowFreq, highFreq] passband. Returns an error when the band collapses
// after clamping to Nyquist (lowFreq >= effective highFreq); callers that
// want the fail-soft contract should treat that as an all-zero band.
func NewButterworthBandpass(sampleRate int, lowFreq, highFreq float64) (*ButterworthBandpass, error) {
	nyquist := float64(sampleRate) / 2.0

	if highFreq > nyquist*0.99 {
		highFreq = nyquist * 0.99
	}

	if lowFreq <= 0 || lowFreq >= highFreq {
		return nil, fmt.Errorf("degenerate passband [%g, %g] at sample rate %d", lowFreq, highFreq, sampleRate)
	}

	centerFreq := math.Sqrt(lowFreq * highFreq)
	bandwidth := highFreq - lowFreq

	bp := &ButterworthBandpass{
		lowFreq:  lowFreq,
		highFreq: highFreq,
	}
	for i := range bp.sections {
		bp.sections[i] = NewBandpassFilter(sampleRate, centerFreq, bandwidth)
	}

	return bp, nil
}

// Process applies the cascade to a single sample
func (bp *ButterworthBandpass) Process(input float64) float64 {
	out := input
	for _, section := range bp.sections {
		out = section.Process(out)
	}
	return out
}

// ProcessBuffer applies the cascade to an entire buffer of samples
func (bp *ButterworthBandpass) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = bp.Process(sample)
	}
	return output
}

// Reset clears the state of both sections
func (bp *ButterworthBandpass) Reset() {
	for _, section := range bp.sections {
		section.Reset()
	}
}

// Passband returns the effective low and high cutoff frequencies
func (bp *ButterworthBandpass) Passband() (low, high float64) {
	return bp.lowFreq, bp.highFreq
}
