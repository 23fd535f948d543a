// Package polish turns raw extracted features into smoothed, normalized
// signals suitable for driving visuals. Raw feature curves flicker at frame
// rate; the asymmetric attack/release envelopes here give every stream a
// fast rise and a slow decay.
package polish

import (
	"math"

	"github.com/chromascope/chromascope/algorithms/common"
	"github.com/chromascope/chromascope/analysis"
	"github.com/chromascope/chromascope/logging"
)

// Normalization floor: ranges narrower than this are treated as constant
// and collapse to zero instead of amplifying noise.
const normalizeFloor = 0.001

// Brightness maps the spectral centroid's typical musical range onto [0,1]
const (
	brightnessMinHz = 100.0
	brightnessMaxHz = 10000.0
)

// EnvelopeParams holds attack/release times in milliseconds
type EnvelopeParams struct {
	AttackMS  float64 `json:"attack_ms"`
	ReleaseMS float64 `json:"release_ms"`
}

// DefaultImpactEnvelope returns the preset for percussive signals: instant
// attack, short decay.
func DefaultImpactEnvelope() EnvelopeParams {
	return EnvelopeParams{AttackMS: 0.0, ReleaseMS: 200.0}
}

// DefaultEnergyEnvelope returns the preset for sustained energy signals:
// softened attack, longer decay.
func DefaultEnergyEnvelope() EnvelopeParams {
	return EnvelopeParams{AttackMS: 50.0, ReleaseMS: 300.0}
}

// PolishedFeatures holds frame-aligned signals ready for rendering. All
// continuous arrays are in [0,1] and have length NumFrames; Chroma is
// pitch-class-major with shape [12][NumFrames].
type PolishedFeatures struct {
	IsBeat  []bool `json:"is_beat"`
	IsOnset []bool `json:"is_onset"`

	PercussiveImpact []float64 `json:"percussive_impact"`
	HarmonicEnergy   []float64 `json:"harmonic_energy"`
	GlobalEnergy     []float64 `json:"global_energy"`
	SpectralFlux     []float64 `json:"spectral_flux"`

	SubBass    []float64 `json:"sub_bass"`
	Bass       []float64 `json:"bass"`
	LowMid     []float64 `json:"low_mid"`
	Mid        []float64 `json:"mid"`
	HighMid    []float64 `json:"high_mid"`
	Presence   []float64 `json:"presence"`
	Brilliance []float64 `json:"brilliance"`

	LowEnergy  []float64 `json:"low_energy"`
	MidEnergy  []float64 `json:"mid_energy"`
	HighEnergy []float64 `json:"high_energy"`

	SpectralBrightness []float64 `json:"spectral_brightness"`
	SpectralFlatness   []float64 `json:"spectral_flatness"`
	SpectralRolloff    []float64 `json:"spectral_rolloff"`
	ZeroCrossingRate   []float64 `json:"zero_crossing_rate"`

	Chroma         [][]float64 `json:"chroma"`
	DominantChroma []int       `json:"dominant_chroma"`

	NumFrames  int       `json:"n_frames"`
	FPS        int       `json:"fps"`
	FrameTimes []float64 `json:"frame_times"`
}

// SignalPolisher applies normalization and envelope smoothing to raw
// features
type SignalPolisher struct {
	fps               int
	impactEnvelope    EnvelopeParams
	energyEnvelope    EnvelopeParams
	adaptiveEnvelopes bool
	logger            logging.Logger
}

// NewSignalPolisher creates a polisher for the given frame rate. Nil
// envelope params select the defaults. When adaptive is true, release times
// scale inversely with detected BPM.
func NewSignalPolisher(fps int, impact, energy *EnvelopeParams, adaptive bool) *SignalPolisher {
	p := &SignalPolisher{
		fps:               fps,
		impactEnvelope:    DefaultImpactEnvelope(),
		energyEnvelope:    DefaultEnergyEnvelope(),
		adaptiveEnvelopes: adaptive,
		logger:            logging.WithFields(logging.Fields{"component": "polisher"}),
	}
	if impact != nil {
		p.impactEnvelope = *impact
	}
	if energy != nil {
		p.energyEnvelope = *energy
	}
	return p
}

// ImpactEnvelope returns the configured percussive envelope preset
func (p *SignalPolisher) ImpactEnvelope() EnvelopeParams {
	return p.impactEnvelope
}

// EnergyEnvelope returns the configured sustained-energy envelope preset
func (p *SignalPolisher) EnergyEnvelope() EnvelopeParams {
	return p.energyEnvelope
}

func (p *SignalPolisher) msToFrames(ms float64) int {
	frames := int(math.Round(ms / 1000.0 * float64(p.fps)))
	if frames < 1 {
		return 1
	}
	return frames
}

// Normalize min-max scales a signal to [0,1]. Signals with a range below
// the floor collapse to all zeros.
func (p *SignalPolisher) Normalize(signal []float64) []float64 {
	out := make([]float64, len(signal))
	if len(signal) == 0 {
		return out
	}

	minVal := common.Min(signal)
	maxVal := common.Max(signal)
	rangeVal := maxVal - minVal
	if rangeVal < normalizeFloor {
		return out
	}

	for i, v := range signal {
		out[i] = common.Clip((v-minVal)/rangeVal, 0.0, 1.0)
	}
	return out
}

// ApplyEnvelope runs an asymmetric exponential follower over a normalized
// signal: rising values step toward the target at the attack rate, falling
// values decay at the release rate. An attack or release of one frame or
// less moves instantly.
func (p *SignalPolisher) ApplyEnvelope(signal []float64, params EnvelopeParams) []float64 {
	attackFrames := p.msToFrames(params.AttackMS)
	releaseFrames := p.msToFrames(params.ReleaseMS)

	out := make([]float64, len(signal))
	current := 0.0

	for i, target := range signal {
		if target > current {
			if attackFrames <= 1 {
				current = target
			} else {
				current += (target - current) / float64(attackFrames)
			}
		} else {
			if releaseFrames <= 1 {
				current = target
			} else {
				current -= (current - target) / float64(releaseFrames)
			}
		}
		out[i] = common.Clip(current, 0.0, 1.0)
	}

	return out
}

// CreateBeatArray maps sparse beat frame indices onto a dense boolean
// array. Indices beyond the frame range are dropped.
func (p *SignalPolisher) CreateBeatArray(numFrames int, beatFrames []int) []bool {
	return createTriggerArray(numFrames, beatFrames)
}

// CreateOnsetArray maps sparse onset frame indices onto a dense boolean
// array
func (p *SignalPolisher) CreateOnsetArray(numFrames int, onsetFrames []int) []bool {
	return createTriggerArray(numFrames, onsetFrames)
}

func createTriggerArray(numFrames int, frames []int) []bool {
	out := make([]bool, numFrames)
	for _, f := range frames {
		if f >= 0 && f < numFrames {
			out[f] = true
		}
	}
	return out
}

// SmoothSpectralCentroid rescales the centroid from its typical musical
// range in Hz to a [0,1] brightness curve, then smooths it with the energy
// envelope
func (p *SignalPolisher) SmoothSpectralCentroid(centroid []float64, energyEnv EnvelopeParams) []float64 {
	brightness := make([]float64, len(centroid))
	for i, hz := range centroid {
		brightness[i] = common.Clip((hz-brightnessMinHz)/(brightnessMaxHz-brightnessMinHz), 0.0, 1.0)
	}
	return p.ApplyEnvelope(brightness, energyEnv)
}

// adaptEnvelopes scales release times inversely with tempo so the visual
// decay tracks the beat interval. The scale is clamped to [0.5, 2.0].
func (p *SignalPolisher) adaptEnvelopes(bpm float64) (impact, energy EnvelopeParams) {
	impact = p.impactEnvelope
	energy = p.energyEnvelope
	if !p.adaptiveEnvelopes {
		return impact, energy
	}

	if bpm < 1.0 {
		bpm = 120.0
	}
	scale := common.Clip(120.0/bpm, 0.5, 2.0)

	impact.ReleaseMS *= scale
	energy.ReleaseMS *= scale
	return impact, energy
}

// Polish applies the full normalization and smoothing map to raw features.
// Percussive and flux streams go through the impact envelope, sustained
// streams through the energy envelope. Chroma rows are normalized but not
// enveloped so note changes stay sharp.
func (p *SignalPolisher) Polish(features *analysis.ExtractedFeatures) *PolishedFeatures {
	numFrames := features.NumFrames
	impactEnv, energyEnv := p.adaptEnvelopes(features.Temporal.BPM)

	p.logger.Debug("polishing features", logging.Fields{
		"n_frames": numFrames,
		"fps":      p.fps,
		"adaptive": p.adaptiveEnvelopes,
	})

	impact := func(signal []float64) []float64 {
		return p.ApplyEnvelope(p.Normalize(signal), impactEnv)
	}
	energy := func(signal []float64) []float64 {
		return p.ApplyEnvelope(p.Normalize(signal), energyEnv)
	}

	bands := features.Energy.FrequencyBands

	chromaNormalized := make([][]float64, len(features.Tonality.Chroma))
	for i, row := range features.Tonality.Chroma {
		chromaNormalized[i] = p.Normalize(row)
	}

	return &PolishedFeatures{
		IsBeat:  p.CreateBeatArray(numFrames, features.Temporal.BeatFrames),
		IsOnset: p.CreateOnsetArray(numFrames, features.Temporal.OnsetFrames),

		PercussiveImpact: impact(features.Energy.RMSPercussive),
		HarmonicEnergy:   energy(features.Energy.RMSHarmonic),
		GlobalEnergy:     energy(features.Energy.RMS),
		SpectralFlux:     impact(features.Energy.SpectralFlux),

		SubBass:    energy(bands.SubBass),
		Bass:       energy(bands.Bass),
		LowMid:     energy(bands.LowMid),
		Mid:        energy(bands.Mid),
		HighMid:    energy(bands.HighMid),
		Presence:   energy(bands.Presence),
		Brilliance: energy(bands.Brilliance),

		LowEnergy:  energy(bands.Low),
		MidEnergy:  energy(bands.MidLegacy),
		HighEnergy: energy(bands.High),

		SpectralBrightness: p.SmoothSpectralCentroid(features.Tonality.SpectralCentroid, energyEnv),
		SpectralFlatness:   energy(features.Tonality.SpectralFlatness),
		SpectralRolloff:    energy(features.Tonality.SpectralRolloff),
		ZeroCrossingRate:   energy(features.Tonality.ZeroCrossingRate),

		Chroma:         chromaNormalized,
		DominantChroma: features.Tonality.DominantChroma,

		NumFrames:  numFrames,
		FPS:        p.fps,
		FrameTimes: features.FrameTimes,
	}
}
