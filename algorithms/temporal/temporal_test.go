package temporal

import (
	"math"
	"testing"
)

const testSampleRate = 22050

func TestComputeRMSCentered(t *testing.T) {
	env := NewEnvelope()

	signal := make([]float64, 22050)
	for i := range signal {
		signal[i] = 0.5
	}

	hop := 368
	rms := env.ComputeRMSCentered(signal, 2048, hop)

	wantFrames := len(signal)/hop + 1
	if len(rms) != wantFrames {
		t.Fatalf("frames = %d, want %d", len(rms), wantFrames)
	}

	// Interior frames of a constant signal read its absolute value
	for i := 5; i < wantFrames-5; i++ {
		if math.Abs(rms[i]-0.5) > 1e-9 {
			t.Fatalf("rms[%d] = %v, want 0.5", i, rms[i])
		}
	}

	// Edge frames include zero padding, so they read lower
	if rms[0] >= rms[wantFrames/2] {
		t.Errorf("first frame %v should be attenuated relative to interior %v", rms[0], rms[wantFrames/2])
	}
}

func TestDetectOnsets(t *testing.T) {
	od := NewOnsetDetection()
	hop := 368

	// Sparse peaks over a quiet floor
	envelope := make([]float64, 200)
	for _, peak := range []int{20, 80, 140} {
		envelope[peak] = 1.0
	}

	onsets := od.DetectOnsets(envelope, testSampleRate, hop, 0.05)

	if len(onsets) != 3 {
		t.Fatalf("onsets = %v, want the 3 peaks", onsets)
	}
	for i, want := range []int{20, 80, 140} {
		if onsets[i] != want {
			t.Errorf("onsets[%d] = %d, want %d", i, onsets[i], want)
		}
	}
}

func TestDetectOnsetsMinInterval(t *testing.T) {
	od := NewOnsetDetection()
	hop := 368

	// Two peaks closer than the minimum interval; only the first survives.
	// 0.1 s at 22050/368 fps is about 6 frames.
	envelope := make([]float64, 100)
	envelope[50] = 1.0
	envelope[52] = 0.9

	onsets := od.DetectOnsets(envelope, testSampleRate, hop, 0.1)

	if len(onsets) != 1 || onsets[0] != 50 {
		t.Errorf("onsets = %v, want [50]", onsets)
	}
}

func TestDetectOnsetsFlatEnvelope(t *testing.T) {
	od := NewOnsetDetection()

	envelope := make([]float64, 100)
	onsets := od.DetectOnsets(envelope, testSampleRate, 368, 0.05)

	if onsets == nil {
		t.Fatal("result must be an empty slice, not nil")
	}
	if len(onsets) != 0 {
		t.Errorf("flat envelope produced onsets: %v", onsets)
	}
}

func TestTrackEnvelopeClickGrid(t *testing.T) {
	bt := NewBeatTracker()
	hop := 368
	framesPerSecond := float64(testSampleRate) / float64(hop) // ~59.9

	// 120 BPM: impulse every 0.5 s, about every 30 frames, 20 s long
	period := int(math.Round(0.5 * framesPerSecond))
	envelope := make([]float64, 1200)
	for i := 0; i < len(envelope); i += period {
		envelope[i] = 1.0
	}

	result := bt.TrackEnvelope(envelope, testSampleRate, hop)

	if math.Abs(result.BPM-120.0) > 10.0 {
		t.Errorf("bpm = %v, want 120 +/- 10", result.BPM)
	}

	if len(result.BeatFrames) < 30 {
		t.Fatalf("beats = %d, want a full grid over 20s", len(result.BeatFrames))
	}

	// Beats should sit on or near the impulse grid
	aligned := 0
	for _, frame := range result.BeatFrames {
		if frame%period <= 2 || frame%period >= period-2 {
			aligned++
		}
	}
	if aligned < len(result.BeatFrames)*3/4 {
		t.Errorf("only %d/%d beats aligned to the impulse grid", aligned, len(result.BeatFrames))
	}
}

func TestTrackEnvelopeDegenerate(t *testing.T) {
	bt := NewBeatTracker()

	tests := []struct {
		name     string
		envelope []float64
	}{
		{"silence", make([]float64, 100)},
		{"constant", []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}},
		{"too short", []float64{1.0, 0.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := bt.TrackEnvelope(tt.envelope, testSampleRate, 368)
			if result.BPM != 120.0 {
				t.Errorf("bpm = %v, want the 120 fallback", result.BPM)
			}
			if result.BeatFrames == nil {
				t.Error("beat frames must be an empty slice, not nil")
			}
			if len(result.BeatFrames) != 0 {
				t.Errorf("degenerate input produced beats: %v", result.BeatFrames)
			}
		})
	}
}

func TestOnsetStrengthFrameCount(t *testing.T) {
	od := NewOnsetDetection()

	signal := make([]float64, 22050)
	for i := range signal {
		signal[i] = math.Sin(2.0 * math.Pi * 440.0 * float64(i) / testSampleRate)
	}

	hop := 368
	envelope, err := od.OnsetStrength(signal, testSampleRate, 2048, hop)
	if err != nil {
		t.Fatalf("OnsetStrength failed: %v", err)
	}

	wantFrames := len(signal)/hop + 1
	if len(envelope) != wantFrames {
		t.Errorf("frames = %d, want %d", len(envelope), wantFrames)
	}
	for i, v := range envelope {
		if v < 0.0 || math.IsNaN(v) {
			t.Fatalf("envelope[%d] = %v, must be non-negative", i, v)
		}
	}
}
