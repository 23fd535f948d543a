package polish

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	p := NewSignalPolisher(60, nil, nil, false)

	tests := []struct {
		name  string
		input []float64
		want  []float64
	}{
		{
			name:  "simple range",
			input: []float64{0.0, 5.0, 10.0},
			want:  []float64{0.0, 0.5, 1.0},
		},
		{
			name:  "constant collapses to zeros",
			input: []float64{3.0, 3.0, 3.0, 3.0},
			want:  []float64{0.0, 0.0, 0.0, 0.0},
		},
		{
			name:  "near-constant below floor collapses to zeros",
			input: []float64{1.0, 1.0002, 1.0005},
			want:  []float64{0.0, 0.0, 0.0},
		},
		{
			name:  "negative values shift to zero",
			input: []float64{-2.0, 0.0, 2.0},
			want:  []float64{0.0, 0.5, 1.0},
		},
		{
			name:  "empty",
			input: []float64{},
			want:  []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Normalize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("length = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("got[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestApplyEnvelopeImpulse(t *testing.T) {
	// 60 fps, instant attack, 300 ms release (18 frames)
	p := NewSignalPolisher(60, nil, nil, false)
	params := EnvelopeParams{AttackMS: 0.0, ReleaseMS: 300.0}

	signal := make([]float64, 30)
	signal[5] = 1.0

	out := p.ApplyEnvelope(signal, params)

	if out[5] != 1.0 {
		t.Errorf("instant attack should reach target immediately, got %v", out[5])
	}
	if out[4] != 0.0 {
		t.Errorf("output before impulse should be zero, got %v", out[4])
	}

	// Release decays gradually toward zero
	if out[6] >= out[5] || out[6] <= 0.0 {
		t.Errorf("frame after impulse should decay, got %v", out[6])
	}
	for i := 7; i < 30; i++ {
		if out[i] >= out[i-1] {
			t.Errorf("decay must be monotonic: out[%d]=%v >= out[%d]=%v", i, out[i], i-1, out[i-1])
		}
	}

	// One release step is 1/18 of the gap
	wantStep := 1.0 - 1.0/18.0
	if math.Abs(out[6]-wantStep) > 1e-9 {
		t.Errorf("first decay step = %v, want %v", out[6], wantStep)
	}
}

func TestApplyEnvelopeSlowAttack(t *testing.T) {
	// 50 ms attack at 60 fps is 3 frames
	p := NewSignalPolisher(60, nil, nil, false)
	params := EnvelopeParams{AttackMS: 50.0, ReleaseMS: 300.0}

	signal := []float64{1.0, 1.0, 1.0, 1.0, 1.0}
	out := p.ApplyEnvelope(signal, params)

	if out[0] >= 1.0 {
		t.Errorf("slow attack should not reach target instantly, got %v", out[0])
	}
	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] {
			t.Errorf("attack must rise monotonically: out[%d]=%v <= out[%d]=%v", i, out[i], i-1, out[i-1])
		}
	}
	if math.Abs(out[0]-1.0/3.0) > 1e-9 {
		t.Errorf("first attack step = %v, want %v", out[0], 1.0/3.0)
	}
}

func TestApplyEnvelopeBounds(t *testing.T) {
	p := NewSignalPolisher(60, nil, nil, false)
	signal := []float64{0.5, 1.5, -0.5, 0.8, 2.0}

	out := p.ApplyEnvelope(signal, DefaultImpactEnvelope())
	for i, v := range out {
		if v < 0.0 || v > 1.0 {
			t.Errorf("out[%d] = %v outside [0,1]", i, v)
		}
	}
}

func TestCreateTriggerArrays(t *testing.T) {
	p := NewSignalPolisher(60, nil, nil, false)

	beats := p.CreateBeatArray(10, []int{0, 3, 9, 10, 15})
	wantTrue := map[int]bool{0: true, 3: true, 9: true}
	for i, v := range beats {
		if v != wantTrue[i] {
			t.Errorf("beats[%d] = %v, want %v", i, v, wantTrue[i])
		}
	}

	onsets := p.CreateOnsetArray(5, []int{-1, 2, 7})
	if onsets[2] != true {
		t.Errorf("onsets[2] should be true")
	}
	count := 0
	for _, v := range onsets {
		if v {
			count++
		}
	}
	if count != 1 {
		t.Errorf("out-of-range indices must be dropped, got %d triggers", count)
	}
}

func TestSmoothSpectralCentroid(t *testing.T) {
	p := NewSignalPolisher(60, nil, nil, false)
	centroid := []float64{50.0, 100.0, 5050.0, 10000.0, 20000.0}

	out := p.SmoothSpectralCentroid(centroid, EnvelopeParams{AttackMS: 0.0, ReleaseMS: 0.0})

	want := []float64{0.0, 0.0, 0.5, 1.0, 1.0}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestAdaptEnvelopes(t *testing.T) {
	tests := []struct {
		name        string
		adaptive    bool
		bpm         float64
		wantRelease float64
	}{
		{"disabled keeps release", false, 60.0, 200.0},
		{"slow song stretches release", true, 60.0, 400.0},
		{"fast song shortens release", true, 240.0, 100.0},
		{"scale clamps at 2x", true, 30.0, 400.0},
		{"scale clamps at 0.5x", true, 600.0, 100.0},
		{"degenerate bpm falls back", true, 0.0, 200.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewSignalPolisher(60, nil, nil, tt.adaptive)
			impact, energy := p.adaptEnvelopes(tt.bpm)

			if math.Abs(impact.ReleaseMS-tt.wantRelease) > 1e-9 {
				t.Errorf("impact release = %v, want %v", impact.ReleaseMS, tt.wantRelease)
			}
			if impact.AttackMS != 0.0 {
				t.Errorf("attack must not scale, got %v", impact.AttackMS)
			}
			wantEnergy := tt.wantRelease * 300.0 / 200.0
			if math.Abs(energy.ReleaseMS-wantEnergy) > 1e-9 {
				t.Errorf("energy release = %v, want %v", energy.ReleaseMS, wantEnergy)
			}
		})
	}
}

func TestMsToFrames(t *testing.T) {
	p := NewSignalPolisher(60, nil, nil, false)

	tests := []struct {
		ms   float64
		want int
	}{
		{0.0, 1},
		{200.0, 12},
		{300.0, 18},
		{50.0, 3},
		{8.0, 1},
	}

	for _, tt := range tests {
		if got := p.msToFrames(tt.ms); got != tt.want {
			t.Errorf("msToFrames(%v) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}
