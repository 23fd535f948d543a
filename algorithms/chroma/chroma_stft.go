package chroma

import (
	"math"

	"github.com/chromascope/chromascope/algorithms/spectral"
)

// NoteNames are the 12 pitch-class names, index 0 = C
var NoteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ChromaSTFT computes a chromagram using the Short-Time Fourier Transform.
// Frequencies are folded onto 12 semitone bins (all octaves of C map to the
// same bin), with adjustable tuning frequency (default A4 = 440 Hz).
type ChromaSTFT struct {
	sampleRate int
	stft       *spectral.STFT
	tuningFreq float64 // A4 frequency
	chromaBins int     // Always 12
	minFreq    float64 // Minimum frequency to consider
	maxFreq    float64 // Maximum frequency to consider
}

// NewChromaSTFT creates a new STFT-based chromagram calculator
func NewChromaSTFT(sampleRate int, tuningFreq float64) *ChromaSTFT {
	return &ChromaSTFT{
		sampleRate: sampleRate,
		stft:       spectral.NewSTFT(),
		tuningFreq: tuningFreq,
		chromaBins: 12,
		minFreq:    80.0,   // Approximate E2
		maxFreq:    8000.0, // High enough for harmonics
	}
}

// NewChromaSTFTDefault creates a chromagram with standard A4=440Hz tuning
func NewChromaSTFTDefault(sampleRate int) *ChromaSTFT {
	return NewChromaSTFT(sampleRate, 440.0)
}

// ComputeChroma computes a chromagram on the centered frame grid. The result
// is pitch-class-major: chroma[p][t] is the energy of pitch class p at frame
// t, with each frame normalized to unit sum.
func (cs *ChromaSTFT) ComputeChroma(signal []float64, windowSize, hopSize int, window spectral.Window) ([][]float64, error) {
	if len(signal) == 0 {
		return nil, nil
	}

	stftResult, err := cs.stft.ComputeCentered(signal, windowSize, hopSize, cs.sampleRate, window)
	if err != nil {
		return nil, err
	}

	return cs.convertSTFTToChroma(stftResult), nil
}

// convertSTFTToChroma folds a magnitude spectrogram onto 12 pitch classes
func (cs *ChromaSTFT) convertSTFTToChroma(stftResult *spectral.STFTResult) [][]float64 {
	chromagram := make([][]float64, cs.chromaBins)
	for p := range chromagram {
		chromagram[p] = make([]float64, stftResult.TimeFrames)
	}

	chromaMapping := cs.calculateChromaMapping(stftResult.FreqBins, stftResult.FreqResolution)

	frame := make([]float64, cs.chromaBins)

	for t := 0; t < stftResult.TimeFrames; t++ {
		for p := range frame {
			frame[p] = 0
		}

		for f := 0; f < stftResult.FreqBins; f++ {
			chromaBin := chromaMapping[f]
			if chromaBin < 0 {
				continue
			}

			// Magnitude squared for energy
			magnitude := stftResult.Magnitude[t][f]
			frame[chromaBin] += magnitude * magnitude
		}

		cs.normalizeChromaFrame(frame)

		for p := range frame {
			chromagram[p][t] = frame[p]
		}
	}

	return chromagram
}

// calculateChromaMapping maps FFT bins to chroma bins (-1 = out of range)
func (cs *ChromaSTFT) calculateChromaMapping(freqBins int, freqResolution float64) []int {
	mapping := make([]int, freqBins)

	for f := range freqBins {
		frequency := float64(f) * freqResolution

		if frequency < cs.minFreq || frequency > cs.maxFreq {
			mapping[f] = -1
			continue
		}

		midiNote := cs.frequencyToMIDI(frequency)
		chromaBin := int(math.Round(midiNote)) % 12
		mapping[f] = chromaBin
	}

	return mapping
}

// frequencyToMIDI converts frequency to MIDI note number (A4 = 69)
func (cs *ChromaSTFT) frequencyToMIDI(frequency float64) float64 {
	if frequency <= 0 {
		return 0
	}

	return 69.0 + 12.0*math.Log2(frequency/cs.tuningFreq)
}

// normalizeChromaFrame normalizes a single chroma frame to unit sum
func (cs *ChromaSTFT) normalizeChromaFrame(chromaFrame []float64) {
	totalEnergy := 0.0
	for _, energy := range chromaFrame {
		totalEnergy += energy
	}

	if totalEnergy > 1e-10 {
		for i := range chromaFrame {
			chromaFrame[i] /= totalEnergy
		}
	}
}

// IndexToName converts a chroma index (0-11) to its note name
func IndexToName(index int) string {
	return NoteNames[((index%12)+12)%12]
}
