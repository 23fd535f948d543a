package manifest

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chromascope/chromascope/algorithms/chroma"
	"github.com/chromascope/chromascope/polish"
)

func polishedFixture(numFrames int) *polish.PolishedFeatures {
	ramp := make([]float64, numFrames)
	frameTimes := make([]float64, numFrames)
	for i := range ramp {
		ramp[i] = float64(i) / float64(numFrames-1)
		frameTimes[i] = float64(i) / 60.0
	}

	chromagram := make([][]float64, 12)
	for pc := range chromagram {
		chromagram[pc] = make([]float64, numFrames)
		for i := range chromagram[pc] {
			chromagram[pc][i] = float64(pc) / 11.0
		}
	}

	dominant := make([]int, numFrames)
	for i := range dominant {
		dominant[i] = 9 // A
	}

	isBeat := make([]bool, numFrames)
	isBeat[0] = true
	isOnset := make([]bool, numFrames)
	isOnset[2] = true

	return &polish.PolishedFeatures{
		IsBeat:  isBeat,
		IsOnset: isOnset,

		PercussiveImpact: ramp,
		HarmonicEnergy:   ramp,
		GlobalEnergy:     ramp,
		SpectralFlux:     ramp,

		SubBass: ramp, Bass: ramp, LowMid: ramp, Mid: ramp,
		HighMid: ramp, Presence: ramp, Brilliance: ramp,
		LowEnergy: ramp, MidEnergy: ramp, HighEnergy: ramp,

		SpectralBrightness: ramp,
		SpectralFlatness:   ramp,
		SpectralRolloff:    ramp,
		ZeroCrossingRate:   ramp,

		Chroma:         chromagram,
		DominantChroma: dominant,

		NumFrames:  numFrames,
		FPS:        60,
		FrameTimes: frameTimes,
	}
}

func TestBuildManifestMetadata(t *testing.T) {
	e := NewExporter(4)
	m := e.BuildManifest(polishedFixture(10), 123.45678, 2.000049)

	if m.Metadata.BPM != 123.4568 {
		t.Errorf("bpm = %v, want 123.4568", m.Metadata.BPM)
	}
	if m.Metadata.Duration != 2.0 {
		t.Errorf("duration = %v, want 2.0", m.Metadata.Duration)
	}
	if m.Metadata.FPS != 60 {
		t.Errorf("fps = %v, want 60", m.Metadata.FPS)
	}
	if m.Metadata.NumFrames != 10 {
		t.Errorf("n_frames = %v, want 10", m.Metadata.NumFrames)
	}
	if m.Metadata.Version == "" || m.Metadata.SchemaVersion == "" {
		t.Errorf("version fields must be set, got %q / %q", m.Metadata.Version, m.Metadata.SchemaVersion)
	}
}

func TestBuildManifestFrames(t *testing.T) {
	e := NewExporter(4)
	m := e.BuildManifest(polishedFixture(10), 120.0, 2.0)

	if len(m.Frames) != 10 {
		t.Fatalf("frames = %d, want 10", len(m.Frames))
	}

	for i, frame := range m.Frames {
		if frame.FrameIndex != i {
			t.Errorf("frame %d: frame_index = %d", i, frame.FrameIndex)
		}
		if len(frame.ChromaValues) != 12 {
			t.Errorf("frame %d: chroma_values has %d entries", i, len(frame.ChromaValues))
		}
		for _, name := range chroma.NoteNames {
			if _, ok := frame.ChromaValues[name]; !ok {
				t.Errorf("frame %d: chroma_values missing %q", i, name)
			}
		}
		if frame.DominantChroma != "A" {
			t.Errorf("frame %d: dominant_chroma = %q, want A", i, frame.DominantChroma)
		}
	}

	if !m.Frames[0].IsBeat || m.Frames[1].IsBeat {
		t.Errorf("beat flags not carried through")
	}
	if !m.Frames[2].IsOnset {
		t.Errorf("onset flag not carried through")
	}
}

func TestBuildManifestPrimitives(t *testing.T) {
	e := NewExporter(4)
	m := e.BuildManifest(polishedFixture(10), 120.0, 2.0)

	for i, frame := range m.Frames {
		if frame.Impact != frame.PercussiveImpact {
			t.Errorf("frame %d: impact = %v, want %v", i, frame.Impact, frame.PercussiveImpact)
		}
		if frame.Fluidity != frame.HarmonicEnergy {
			t.Errorf("frame %d: fluidity = %v, want %v", i, frame.Fluidity, frame.HarmonicEnergy)
		}
		if frame.Brightness != frame.SpectralBrightness {
			t.Errorf("frame %d: brightness = %v, want %v", i, frame.Brightness, frame.SpectralBrightness)
		}

		// Dominant chroma index 9 over the 12-note circle
		if math.Abs(frame.PitchHue-9.0/11.0) > 1e-4 {
			t.Errorf("frame %d: pitch_hue = %v, want %v", i, frame.PitchHue, 9.0/11.0)
		}

		wantTexture := (frame.SpectralFlatness + frame.ZeroCrossingRate + frame.Presence + frame.Brilliance) / 4.0
		if math.Abs(frame.Texture-wantTexture) > 1e-4 {
			t.Errorf("frame %d: texture = %v, want %v", i, frame.Texture, wantTexture)
		}

		wantSharpness := (frame.SpectralFlux + frame.SpectralRolloff) / 2.0
		if math.Abs(frame.Sharpness-wantSharpness) > 1e-4 {
			t.Errorf("frame %d: sharpness = %v, want %v", i, frame.Sharpness, wantSharpness)
		}

		for name, v := range map[string]float64{
			"impact": frame.Impact, "fluidity": frame.Fluidity,
			"brightness": frame.Brightness, "pitch_hue": frame.PitchHue,
			"texture": frame.Texture, "sharpness": frame.Sharpness,
		} {
			if v < 0.0 || v > 1.0 {
				t.Errorf("frame %d: %s = %v outside [0,1]", i, name, v)
			}
		}
	}
}

func TestExportJSONRoundTrip(t *testing.T) {
	e := NewExporter(4)
	m := e.BuildManifest(polishedFixture(10), 120.0, 2.0)

	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := e.ExportJSON(m, path); err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}

	var loaded Manifest
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if loaded.Metadata != m.Metadata {
		t.Errorf("metadata round trip mismatch: %+v vs %+v", loaded.Metadata, m.Metadata)
	}
	if len(loaded.Frames) != len(m.Frames) {
		t.Fatalf("frames = %d, want %d", len(loaded.Frames), len(m.Frames))
	}
	if loaded.Frames[3].SpectralFlux != m.Frames[3].SpectralFlux {
		t.Errorf("frame values must survive the round trip")
	}
}

func TestExportJSONSchemaFields(t *testing.T) {
	e := NewExporter(4)
	m := e.BuildManifest(polishedFixture(3), 120.0, 0.05)

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var generic struct {
		Metadata map[string]any   `json:"metadata"`
		Frames   []map[string]any `json:"frames"`
	}
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"bpm", "duration", "fps", "n_frames", "version", "schema_version"} {
		if _, ok := generic.Metadata[key]; !ok {
			t.Errorf("metadata missing %q", key)
		}
	}

	required := []string{
		"frame_index", "time", "is_beat", "is_onset",
		"percussive_impact", "harmonic_energy", "global_energy", "spectral_flux",
		"sub_bass", "bass", "low_mid", "mid", "high_mid", "presence", "brilliance",
		"low_energy", "mid_energy", "high_energy",
		"spectral_brightness", "spectral_flatness", "spectral_rolloff", "zero_crossing_rate",
		"dominant_chroma", "chroma_values",
		"impact", "fluidity", "brightness", "pitch_hue", "texture", "sharpness",
	}
	for _, key := range required {
		if _, ok := generic.Frames[0][key]; !ok {
			t.Errorf("frame missing %q", key)
		}
	}
}
