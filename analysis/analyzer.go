package analysis

import (
	"fmt"
	"math"

	"github.com/chromascope/chromascope/algorithms/chroma"
	"github.com/chromascope/chromascope/algorithms/common"
	"github.com/chromascope/chromascope/algorithms/filters"
	"github.com/chromascope/chromascope/algorithms/spectral"
	"github.com/chromascope/chromascope/algorithms/temporal"
	"github.com/chromascope/chromascope/algorithms/windowing"
	"github.com/chromascope/chromascope/decompose"
	"github.com/chromascope/chromascope/logging"
)

const (
	defaultWindowSize   = 2048
	defaultNumMFCC      = 13
	rolloffThreshold    = 0.85
	minOnsetInterval    = 0.05
	minTempoIntervalSec = 0.001
)

// FeatureAnalyzer extracts temporal, energy, and tonality features from
// decomposed audio on a frame grid derived from the target frame rate.
type FeatureAnalyzer struct {
	targetFPS  int
	windowSize int

	stft          *spectral.STFT
	flux          *spectral.SpectralFlux
	onsetDetector *temporal.OnsetDetection
	beatTracker   *temporal.BeatTracker
	envelope      *temporal.Envelope
	logger        logging.Logger
}

// NewFeatureAnalyzer creates an analyzer producing features at the given
// frames per second
func NewFeatureAnalyzer(targetFPS int) *FeatureAnalyzer {
	return &FeatureAnalyzer{
		targetFPS:     targetFPS,
		windowSize:    defaultWindowSize,
		stft:          spectral.NewSTFT(),
		flux:          spectral.NewSpectralFlux(),
		onsetDetector: temporal.NewOnsetDetection(),
		beatTracker:   temporal.NewBeatTracker(),
		envelope:      temporal.NewEnvelope(),
		logger:        logging.WithFields(logging.Fields{"component": "analyzer"}),
	}
}

// ComputeHopLength returns the hop size in samples that yields the target
// frame rate at the given sample rate
func ComputeHopLength(sampleRate, targetFPS int) int {
	return int(math.Round(float64(sampleRate) / float64(targetFPS)))
}

// Analyze extracts all features. Every per-frame array in the result has
// length NumFrames and frame i covers time i*HopLength/SampleRate.
func (fa *FeatureAnalyzer) Analyze(audio *decompose.DecomposedAudio) (*ExtractedFeatures, error) {
	if audio == nil || len(audio.Original) == 0 {
		return nil, fmt.Errorf("no audio to analyze")
	}

	hopLength := ComputeHopLength(audio.SampleRate, fa.targetFPS)
	numFrames := len(audio.Original)/hopLength + 1

	fa.logger.Debug("starting feature extraction", logging.Fields{
		"sample_rate": audio.SampleRate,
		"hop_length":  hopLength,
		"n_frames":    numFrames,
	})

	window := windowing.NewHann(fa.windowSize, false)
	stftOriginal, err := fa.stft.ComputeCentered(audio.Original, fa.windowSize, hopLength, audio.SampleRate, window)
	if err != nil {
		return nil, fmt.Errorf("stft failed: %w", err)
	}

	fluxEnvelope := common.FitLength(fa.flux.ComputeEnvelope(stftOriginal.Magnitude), numFrames)

	temporalFeatures, err := fa.extractTemporal(audio, fluxEnvelope, hopLength, numFrames)
	if err != nil {
		return nil, fmt.Errorf("temporal extraction failed: %w", err)
	}

	energy, err := fa.extractEnergy(audio, fluxEnvelope, hopLength, numFrames)
	if err != nil {
		return nil, fmt.Errorf("energy extraction failed: %w", err)
	}

	tonality, err := fa.extractTonality(audio, stftOriginal, hopLength, numFrames)
	if err != nil {
		return nil, fmt.Errorf("tonality extraction failed: %w", err)
	}

	frameTimes := make([]float64, numFrames)
	for i := range frameTimes {
		frameTimes[i] = float64(i*hopLength) / float64(audio.SampleRate)
	}

	return &ExtractedFeatures{
		Temporal:   *temporalFeatures,
		Energy:     *energy,
		Tonality:   *tonality,
		NumFrames:  numFrames,
		HopLength:  hopLength,
		SampleRate: audio.SampleRate,
		FrameTimes: frameTimes,
	}, nil
}

// extractTemporal derives tempo and event features. Beat tracking runs on
// the full-mix onset envelope; onsets are detected on the percussive
// component where transients are cleanest.
func (fa *FeatureAnalyzer) extractTemporal(audio *decompose.DecomposedAudio, fluxEnvelope []float64, hopLength, numFrames int) (*TemporalFeatures, error) {
	beats := fa.beatTracker.TrackEnvelope(fluxEnvelope, audio.SampleRate, hopLength)

	percussiveEnvelope, err := fa.onsetDetector.OnsetStrength(audio.Percussive, audio.SampleRate, fa.windowSize, hopLength)
	if err != nil {
		return nil, err
	}
	percussiveEnvelope = common.FitLength(percussiveEnvelope, numFrames)

	onsetFrames := fa.onsetDetector.DetectOnsets(percussiveEnvelope, audio.SampleRate, hopLength, minOnsetInterval)

	beatFrames := clampFrames(beats.BeatFrames, numFrames)
	onsetFrames = clampFrames(onsetFrames, numFrames)

	beatTimes := framesToTimes(beatFrames, hopLength, audio.SampleRate)
	onsetTimes := framesToTimes(onsetFrames, hopLength, audio.SampleRate)

	tempoCurveBPM, tempoCurveTimes := tempoCurve(beatTimes)

	fa.logger.Debug("temporal features extracted", logging.Fields{
		"bpm":    beats.BPM,
		"beats":  len(beatFrames),
		"onsets": len(onsetFrames),
	})

	return &TemporalFeatures{
		BPM:             beats.BPM,
		BeatFrames:      beatFrames,
		BeatTimes:       beatTimes,
		OnsetFrames:     onsetFrames,
		OnsetTimes:      onsetTimes,
		TempoCurveBPM:   tempoCurveBPM,
		TempoCurveTimes: tempoCurveTimes,
	}, nil
}

// extractEnergy computes RMS envelopes and the banded spectrum
func (fa *FeatureAnalyzer) extractEnergy(audio *decompose.DecomposedAudio, fluxEnvelope []float64, hopLength, numFrames int) (*EnergyFeatures, error) {
	rms := common.FitLength(fa.envelope.ComputeRMSCentered(audio.Original, fa.windowSize, hopLength), numFrames)
	rmsHarmonic := common.FitLength(fa.envelope.ComputeRMSCentered(audio.Harmonic, fa.windowSize, hopLength), numFrames)
	rmsPercussive := common.FitLength(fa.envelope.ComputeRMSCentered(audio.Percussive, fa.windowSize, hopLength), numFrames)

	bands, legacy := bandEdges(audio.SampleRate)

	bandRMS := make(map[string][]float64, len(bands)+len(legacy))
	for _, band := range bands {
		bandRMS[band.Name] = fa.bandpassRMS(audio.Original, audio.SampleRate, band, hopLength, numFrames)
	}
	for _, band := range legacy {
		bandRMS["legacy_"+band.Name] = fa.bandpassRMS(audio.Original, audio.SampleRate, band, hopLength, numFrames)
	}

	return &EnergyFeatures{
		RMS:           rms,
		RMSHarmonic:   rmsHarmonic,
		RMSPercussive: rmsPercussive,
		SpectralFlux:  fluxEnvelope,
		FrequencyBands: FrequencyBands{
			SubBass:    bandRMS["sub_bass"],
			Bass:       bandRMS["bass"],
			LowMid:     bandRMS["low_mid"],
			Mid:        bandRMS["mid"],
			HighMid:    bandRMS["high_mid"],
			Presence:   bandRMS["presence"],
			Brilliance: bandRMS["brilliance"],
			Low:        bandRMS["legacy_low"],
			MidLegacy:  bandRMS["legacy_mid"],
			High:       bandRMS["legacy_high"],
		},
	}, nil
}

// bandpassRMS filters the signal to a band and computes framewise RMS.
// Degenerate bands resolve to a zero array instead of an error.
func (fa *FeatureAnalyzer) bandpassRMS(signal []float64, sampleRate int, band BandDefinition, hopLength, numFrames int) []float64 {
	filter, err := filters.NewButterworthBandpass(sampleRate, band.Low, band.High)
	if err != nil {
		fa.logger.Warn("skipping degenerate frequency band", logging.Fields{
			"band": band.Name,
			"low":  band.Low,
			"high": band.High,
		})
		return make([]float64, numFrames)
	}

	filtered := filter.ProcessBuffer(signal)
	return common.FitLength(fa.envelope.ComputeRMSCentered(filtered, fa.windowSize, hopLength), numFrames)
}

// extractTonality computes chroma on the harmonic component and timbre
// descriptors on the full mix
func (fa *FeatureAnalyzer) extractTonality(audio *decompose.DecomposedAudio, stftOriginal *spectral.STFTResult, hopLength, numFrames int) (*TonalityFeatures, error) {
	window := windowing.NewHann(fa.windowSize, false)

	chromagram, err := chroma.NewChromaSTFTDefault(audio.SampleRate).ComputeChroma(audio.Harmonic, fa.windowSize, hopLength, window)
	if err != nil {
		return nil, err
	}
	for i := range chromagram {
		chromagram[i] = common.FitLength(chromagram[i], numFrames)
	}

	dominant := make([]int, numFrames)
	frame := make([]float64, len(chromagram))
	for t := range numFrames {
		for pc := range chromagram {
			frame[pc] = chromagram[pc][t]
		}
		dominant[t] = common.ArgMax(frame)
	}

	centroid := common.FitLength(spectral.NewSpectralCentroid(audio.SampleRate).ComputeFrames(stftOriginal.Magnitude), numFrames)
	flatness := common.FitLength(spectral.NewSpectralFlatness().ComputeFrames(stftOriginal.Magnitude), numFrames)
	rolloff := common.FitLength(spectral.NewSpectralRolloff(audio.SampleRate).ComputeFrames(stftOriginal.Magnitude, rolloffThreshold), numFrames)

	zcr := spectral.NewZeroCrossingRateWithParams(audio.SampleRate, fa.windowSize, hopLength)
	zeroCrossing := common.FitLength(zcr.ComputeFramesCentered(audio.Original), numFrames)

	mfcc := spectral.NewMFCC(audio.SampleRate, defaultNumMFCC)
	mfccFrames, err := mfcc.ComputeFrames(stftOriginal.Magnitude)
	if err != nil {
		return nil, err
	}
	for i := range mfccFrames {
		mfccFrames[i] = common.FitLength(mfccFrames[i], numFrames)
	}

	return &TonalityFeatures{
		Chroma:           chromagram,
		DominantChroma:   dominant,
		SpectralCentroid: centroid,
		SpectralFlatness: flatness,
		SpectralRolloff:  rolloff,
		ZeroCrossingRate: zeroCrossing,
		MFCC:             mfccFrames,
	}, nil
}

// tempoCurve converts beat times into a local BPM curve sampled at beat
// interval midpoints. Intervals are clamped away from zero so duplicate
// beat times cannot produce infinite tempo.
func tempoCurve(beatTimes []float64) (bpm, times []float64) {
	if len(beatTimes) < 2 {
		return []float64{}, []float64{}
	}

	bpm = make([]float64, 0, len(beatTimes)-1)
	times = make([]float64, 0, len(beatTimes)-1)
	for i := 1; i < len(beatTimes); i++ {
		interval := beatTimes[i] - beatTimes[i-1]
		if interval < minTempoIntervalSec {
			interval = minTempoIntervalSec
		}
		bpm = append(bpm, 60.0/interval)
		times = append(times, (beatTimes[i]+beatTimes[i-1])/2.0)
	}
	return bpm, times
}

// clampFrames drops frame indices outside [0, numFrames)
func clampFrames(frames []int, numFrames int) []int {
	out := make([]int, 0, len(frames))
	for _, f := range frames {
		if f >= 0 && f < numFrames {
			out = append(out, f)
		}
	}
	return out
}

func framesToTimes(frames []int, hopLength, sampleRate int) []float64 {
	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = float64(f*hopLength) / float64(sampleRate)
	}
	return times
}
