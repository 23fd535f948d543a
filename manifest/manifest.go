// Package manifest serializes polished features into the versioned
// per-frame manifest consumed by rendering engines.
package manifest

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/chromascope/chromascope/algorithms/chroma"
	"github.com/chromascope/chromascope/algorithms/common"
	"github.com/chromascope/chromascope/logging"
	"github.com/chromascope/chromascope/polish"
)

const (
	// Version identifies the analysis content; bumping it invalidates caches
	Version = "1.1"
	// SchemaVersion identifies the manifest payload layout for consumers
	SchemaVersion = "1.1"

	defaultPrecision = 4
)

// Metadata is the manifest header
type Metadata struct {
	BPM           float64 `json:"bpm"`
	Duration      float64 `json:"duration"`
	FPS           int     `json:"fps"`
	NumFrames     int     `json:"n_frames"`
	Version       string  `json:"version"`
	SchemaVersion string  `json:"schema_version"`
}

// Frame is one frame's worth of visual driver values. All continuous
// fields are in [0,1]; FrameIndex always equals the frame's position in
// the manifest's frames array.
type Frame struct {
	FrameIndex int     `json:"frame_index"`
	Time       float64 `json:"time"`
	IsBeat     bool    `json:"is_beat"`
	IsOnset    bool    `json:"is_onset"`

	PercussiveImpact float64 `json:"percussive_impact"`
	HarmonicEnergy   float64 `json:"harmonic_energy"`
	GlobalEnergy     float64 `json:"global_energy"`
	SpectralFlux     float64 `json:"spectral_flux"`

	SubBass    float64 `json:"sub_bass"`
	Bass       float64 `json:"bass"`
	LowMid     float64 `json:"low_mid"`
	Mid        float64 `json:"mid"`
	HighMid    float64 `json:"high_mid"`
	Presence   float64 `json:"presence"`
	Brilliance float64 `json:"brilliance"`

	LowEnergy  float64 `json:"low_energy"`
	MidEnergy  float64 `json:"mid_energy"`
	HighEnergy float64 `json:"high_energy"`

	SpectralBrightness float64 `json:"spectral_brightness"`
	SpectralFlatness   float64 `json:"spectral_flatness"`
	SpectralRolloff    float64 `json:"spectral_rolloff"`
	ZeroCrossingRate   float64 `json:"zero_crossing_rate"`

	DominantChroma string             `json:"dominant_chroma"`
	ChromaValues   map[string]float64 `json:"chroma_values"`

	// Derived primitives: a stable renderer-facing vocabulary that stays
	// defined even as the raw feature set grows
	Impact     float64 `json:"impact"`
	Fluidity   float64 `json:"fluidity"`
	Brightness float64 `json:"brightness"`
	PitchHue   float64 `json:"pitch_hue"`
	Texture    float64 `json:"texture"`
	Sharpness  float64 `json:"sharpness"`
}

// Manifest is the complete exported artifact
type Manifest struct {
	Metadata Metadata `json:"metadata"`
	Frames   []Frame  `json:"frames"`
}

// Exporter builds and writes manifests
type Exporter struct {
	precision int
	logger    logging.Logger
}

// NewExporter creates an exporter rounding floats to the given number of
// decimal places. Non-positive precision selects the default.
func NewExporter(precision int) *Exporter {
	if precision <= 0 {
		precision = defaultPrecision
	}
	return &Exporter{
		precision: precision,
		logger:    logging.WithFields(logging.Fields{"component": "exporter"}),
	}
}

func (e *Exporter) round(v float64) float64 {
	scale := math.Pow(10, float64(e.precision))
	return math.Round(v*scale) / scale
}

// BuildManifest assembles the full manifest from polished features. It is
// pure: no I/O, deterministic for a given input.
func (e *Exporter) BuildManifest(polished *polish.PolishedFeatures, bpm, duration float64) *Manifest {
	frames := make([]Frame, polished.NumFrames)
	for i := range frames {
		frames[i] = e.buildFrame(i, polished)
	}

	return &Manifest{
		Metadata: Metadata{
			BPM:           e.round(bpm),
			Duration:      e.round(duration),
			FPS:           polished.FPS,
			NumFrames:     polished.NumFrames,
			Version:       Version,
			SchemaVersion: SchemaVersion,
		},
		Frames: frames,
	}
}

func (e *Exporter) buildFrame(index int, polished *polish.PolishedFeatures) Frame {
	chromaIndex := polished.DominantChroma[index]

	chromaValues := make(map[string]float64, len(chroma.NoteNames))
	for pc, name := range chroma.NoteNames {
		chromaValues[name] = e.round(polished.Chroma[pc][index])
	}

	frame := Frame{
		FrameIndex: index,
		Time:       e.round(polished.FrameTimes[index]),
		IsBeat:     polished.IsBeat[index],
		IsOnset:    polished.IsOnset[index],

		PercussiveImpact: e.round(polished.PercussiveImpact[index]),
		HarmonicEnergy:   e.round(polished.HarmonicEnergy[index]),
		GlobalEnergy:     e.round(polished.GlobalEnergy[index]),
		SpectralFlux:     e.round(polished.SpectralFlux[index]),

		SubBass:    e.round(polished.SubBass[index]),
		Bass:       e.round(polished.Bass[index]),
		LowMid:     e.round(polished.LowMid[index]),
		Mid:        e.round(polished.Mid[index]),
		HighMid:    e.round(polished.HighMid[index]),
		Presence:   e.round(polished.Presence[index]),
		Brilliance: e.round(polished.Brilliance[index]),

		LowEnergy:  e.round(polished.LowEnergy[index]),
		MidEnergy:  e.round(polished.MidEnergy[index]),
		HighEnergy: e.round(polished.HighEnergy[index]),

		SpectralBrightness: e.round(polished.SpectralBrightness[index]),
		SpectralFlatness:   e.round(polished.SpectralFlatness[index]),
		SpectralRolloff:    e.round(polished.SpectralRolloff[index]),
		ZeroCrossingRate:   e.round(polished.ZeroCrossingRate[index]),

		DominantChroma: chroma.IndexToName(chromaIndex),
		ChromaValues:   chromaValues,
	}

	e.computePrimitives(&frame, chromaIndex)
	return frame
}

// computePrimitives fills the derived renderer-facing fields from the
// frame's already-rounded raw fields
func (e *Exporter) computePrimitives(frame *Frame, chromaIndex int) {
	frame.Impact = frame.PercussiveImpact
	frame.Fluidity = frame.HarmonicEnergy
	frame.Brightness = frame.SpectralBrightness

	// Hue over the 12-note circle
	if chromaIndex < 0 || chromaIndex >= len(chroma.NoteNames) {
		chromaIndex = 0
	}
	frame.PitchHue = e.round(float64(chromaIndex) / float64(len(chroma.NoteNames)-1))

	texture := (frame.SpectralFlatness + frame.ZeroCrossingRate + frame.Presence + frame.Brilliance) / 4.0
	frame.Texture = e.round(common.Clip(texture, 0.0, 1.0))

	sharpness := (frame.SpectralFlux + frame.SpectralRolloff) / 2.0
	frame.Sharpness = e.round(common.Clip(sharpness, 0.0, 1.0))
}

// ExportJSON writes a manifest as indented JSON
func (e *Exporter) ExportJSON(m *Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	e.logger.Info("wrote JSON manifest", logging.Fields{
		"path":   path,
		"frames": m.Metadata.NumFrames,
	})
	return nil
}
