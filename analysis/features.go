package analysis

// BandDefinition describes a named frequency range in Hz
type BandDefinition struct {
	Name string
	Low  float64
	High float64
}

// bandEdges returns the seven analysis bands plus the three legacy
// aggregate bands, clipped below the Nyquist frequency for the given
// sample rate. The legacy bands overlap the seven-band breakdown and are
// kept for older manifest consumers.
func bandEdges(sampleRate int) (bands, legacy []BandDefinition) {
	nyquist := float64(sampleRate) / 2.0
	ceiling := nyquist - 100.0

	bands = []BandDefinition{
		{Name: "sub_bass", Low: 20, High: 60},
		{Name: "bass", Low: 60, High: 250},
		{Name: "low_mid", Low: 250, High: 500},
		{Name: "mid", Low: 500, High: 2000},
		{Name: "high_mid", Low: 2000, High: 4000},
		{Name: "presence", Low: 4000, High: 6000},
		{Name: "brilliance", Low: 6000, High: min(20000, ceiling)},
	}
	legacy = []BandDefinition{
		{Name: "low", Low: 20, High: 200},
		{Name: "mid", Low: 200, High: 4000},
		{Name: "high", Low: 4000, High: min(16000, ceiling)},
	}
	return bands, legacy
}

// FrequencyBands holds per-frame RMS for each analysis band. All arrays
// share the analysis frame grid.
type FrequencyBands struct {
	SubBass    []float64 `json:"sub_bass"`
	Bass       []float64 `json:"bass"`
	LowMid     []float64 `json:"low_mid"`
	Mid        []float64 `json:"mid"`
	HighMid    []float64 `json:"high_mid"`
	Presence   []float64 `json:"presence"`
	Brilliance []float64 `json:"brilliance"`

	// Legacy aggregates retained for older manifest consumers
	Low       []float64 `json:"low"`
	MidLegacy []float64 `json:"mid_legacy"`
	High      []float64 `json:"high"`
}

// TemporalFeatures holds beat, onset, and tempo information
type TemporalFeatures struct {
	BPM             float64   `json:"bpm"`
	BeatFrames      []int     `json:"beat_frames"`
	BeatTimes       []float64 `json:"beat_times"`
	OnsetFrames     []int     `json:"onset_frames"`
	OnsetTimes      []float64 `json:"onset_times"`
	TempoCurveBPM   []float64 `json:"tempo_curve_bpm"`
	TempoCurveTimes []float64 `json:"tempo_curve_times"`
}

// EnergyFeatures holds per-frame loudness measures
type EnergyFeatures struct {
	RMS            []float64      `json:"rms"`
	RMSHarmonic    []float64      `json:"rms_harmonic"`
	RMSPercussive  []float64      `json:"rms_percussive"`
	SpectralFlux   []float64      `json:"spectral_flux"`
	FrequencyBands FrequencyBands `json:"frequency_bands"`
}

// TonalityFeatures holds per-frame pitch and timbre measures. Chroma and
// MFCC are coefficient-major: Chroma[pitchClass][frame], MFCC[coeff][frame].
type TonalityFeatures struct {
	Chroma           [][]float64 `json:"chroma"`
	DominantChroma   []int       `json:"dominant_chroma"`
	SpectralCentroid []float64   `json:"spectral_centroid"`
	SpectralFlatness []float64   `json:"spectral_flatness"`
	SpectralRolloff  []float64   `json:"spectral_rolloff"`
	ZeroCrossingRate []float64   `json:"zero_crossing_rate"`
	MFCC             [][]float64 `json:"mfcc"`
}

// ExtractedFeatures is the complete raw feature set on a shared frame grid
type ExtractedFeatures struct {
	Temporal TemporalFeatures `json:"temporal"`
	Energy   EnergyFeatures   `json:"energy"`
	Tonality TonalityFeatures `json:"tonality"`

	NumFrames  int       `json:"n_frames"`
	HopLength  int       `json:"hop_length"`
	SampleRate int       `json:"sample_rate"`
	FrameTimes []float64 `json:"frame_times"`
}
