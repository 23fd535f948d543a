package temporal

import (
	"math"

	"github.com/chromascope/chromascope/algorithms/common"
)

// Default tempo search range and prior
const (
	minTrackableBPM = 30.0
	maxTrackableBPM = 300.0
	priorCenterBPM  = 120.0
	fallbackBPM     = 120.0
)

// BeatTracker estimates global tempo and beat positions from an
// onset-strength envelope using autocorrelation and phase search
type BeatTracker struct {
	onsetDetector *OnsetDetection
}

// BeatTrackingResult holds tempo and beat positions on the envelope's frame grid
type BeatTrackingResult struct {
	BPM        float64 `json:"bpm"`
	BeatFrames []int   `json:"beat_frames"`
}

// NewBeatTracker creates a new beat tracker
func NewBeatTracker() *BeatTracker {
	return &BeatTracker{
		onsetDetector: NewOnsetDetection(),
	}
}

// Track estimates tempo and beat frames for a signal. The hop size defines
// the frame grid of the returned beat frames.
func (bt *BeatTracker) Track(signal []float64, sampleRate, windowSize, hopSize int) (*BeatTrackingResult, error) {
	envelope, err := bt.onsetDetector.OnsetStrength(signal, sampleRate, windowSize, hopSize)
	if err != nil {
		return nil, err
	}

	return bt.TrackEnvelope(envelope, sampleRate, hopSize), nil
}

// TrackEnvelope estimates tempo and beat frames from a precomputed
// onset-strength envelope
func (bt *BeatTracker) TrackEnvelope(envelope []float64, sampleRate, hopSize int) *BeatTrackingResult {
	if len(envelope) < 4 || common.StandardDeviation(envelope) < 1e-12 {
		// Silence or constant input carries no rhythm
		return &BeatTrackingResult{BPM: fallbackBPM, BeatFrames: []int{}}
	}

	framesPerSecond := float64(sampleRate) / float64(hopSize)

	minLag := int(60.0 / maxTrackableBPM * framesPerSecond)
	maxLag := int(60.0 / minTrackableBPM * framesPerSecond)

	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(envelope) {
		maxLag = len(envelope) - 1
	}
	if maxLag <= minLag {
		return &BeatTrackingResult{BPM: fallbackBPM, BeatFrames: []int{}}
	}

	bestLag := bt.findBestLag(envelope, minLag, maxLag, framesPerSecond)
	if bestLag == 0 {
		return &BeatTrackingResult{BPM: fallbackBPM, BeatFrames: []int{}}
	}

	bpm := 60.0 * framesPerSecond / float64(bestLag)
	beats := bt.placeBeats(envelope, bestLag)

	return &BeatTrackingResult{BPM: bpm, BeatFrames: beats}
}

// findBestLag autocorrelates the envelope and picks the lag with the
// strongest correlation, weighted by a log-normal tempo prior centered on
// 120 BPM so octave-ambiguous peaks resolve to the musically likely tempo
func (bt *BeatTracker) findBestLag(envelope []float64, minLag, maxLag int, framesPerSecond float64) int {
	mean := common.Mean(envelope)

	bestLag := 0
	bestScore := 0.0

	for lag := minLag; lag <= maxLag; lag++ {
		sum := 0.0
		count := 0
		for i := 0; i+lag < len(envelope); i++ {
			sum += (envelope[i] - mean) * (envelope[i+lag] - mean)
			count++
		}
		if count == 0 {
			continue
		}

		corr := sum / float64(count)
		if corr <= 0 {
			continue
		}

		bpm := 60.0 * framesPerSecond / float64(lag)
		octaves := math.Log2(bpm / priorCenterBPM)
		prior := math.Exp(-0.5 * octaves * octaves)

		score := corr * prior
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}

	return bestLag
}

// placeBeats lays a period-spaced grid at the phase that best aligns with
// envelope energy, then snaps each beat to the strongest nearby frame
func (bt *BeatTracker) placeBeats(envelope []float64, period int) []int {
	bestPhase := 0
	bestScore := math.Inf(-1)

	for phase := 0; phase < period; phase++ {
		score := 0.0
		for i := phase; i < len(envelope); i += period {
			score += envelope[i]
		}
		if score > bestScore {
			bestScore = score
			bestPhase = phase
		}
	}

	snapRadius := period / 8
	beats := make([]int, 0, len(envelope)/period+1)
	lastBeat := -period

	for i := bestPhase; i < len(envelope); i += period {
		beat := bt.snapToLocalMax(envelope, i, snapRadius)
		if beat > lastBeat {
			beats = append(beats, beat)
			lastBeat = beat
		}
	}

	return beats
}

// snapToLocalMax moves a beat to the strongest envelope frame within radius
func (bt *BeatTracker) snapToLocalMax(envelope []float64, center, radius int) int {
	best := center
	bestVal := envelope[center]

	for i := center - radius; i <= center+radius; i++ {
		if i < 0 || i >= len(envelope) {
			continue
		}
		if envelope[i] > bestVal {
			bestVal = envelope[i]
			best = i
		}
	}

	return best
}
