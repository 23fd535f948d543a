package decompose

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chromascope/chromascope/logging"
	"github.com/chromascope/chromascope/transcode"
)

// DecodeError indicates a source file could not be loaded or decoded.
// Callers can distinguish it from separation failures with errors.As.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecomposedAudio holds the separated components of a loaded signal. All
// three slices have the same length.
type DecomposedAudio struct {
	Original   []float64 `json:"-"`
	Harmonic   []float64 `json:"-"`
	Percussive []float64 `json:"-"`
	SampleRate int       `json:"sample_rate"`
	Duration   float64   `json:"duration"`
}

// NumSamples returns the length of the decoded signal
func (d *DecomposedAudio) NumSamples() int {
	return len(d.Original)
}

// Decomposer loads audio files and separates them into harmonic and
// percussive components. WAV files are decoded natively; everything else
// goes through ffmpeg.
type Decomposer struct {
	sampleRate int
	hpss       *HPSS
	decoder    *transcode.Decoder
	logger     logging.Logger
}

// NewDecomposer creates a decomposer targeting the given sample rate with
// the given HPSS margins
func NewDecomposer(sampleRate int, marginHarmonic, marginPercussive float64) *Decomposer {
	decoderConfig := transcode.DefaultDecoderConfig()
	decoderConfig.TargetSampleRate = sampleRate

	return &Decomposer{
		sampleRate: sampleRate,
		hpss:       NewHPSS(marginHarmonic, marginPercussive),
		decoder:    transcode.NewDecoder(decoderConfig),
		logger:     logging.WithFields(logging.Fields{"component": "decomposer"}),
	}
}

// Load decodes an audio file into a mono float64 signal at the decomposer's
// sample rate
func (d *Decomposer) Load(ctx context.Context, path string) ([]float64, error) {
	var (
		signal []float64
		srcSR  int
		err    error
	)

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		signal, srcSR, err = transcode.ReadWAVMono(path)
		if err == nil {
			signal, err = transcode.ResampleIfNeeded(signal, srcSR, d.sampleRate)
		}
	} else {
		var audio *transcode.AudioData
		audio, err = d.decoder.DecodeFile(ctx, path)
		if err == nil {
			signal = audio.PCM
		}
	}

	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if len(signal) == 0 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("decoded signal is empty")}
	}

	d.logger.Debug("loaded audio file", logging.Fields{
		"path":        path,
		"samples":     len(signal),
		"sample_rate": d.sampleRate,
	})

	return signal, nil
}

// Separate runs HPSS on a decoded signal
func (d *Decomposer) Separate(signal []float64) (*DecomposedAudio, error) {
	harmonic, percussive, err := d.hpss.Separate(signal, d.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("harmonic-percussive separation failed: %w", err)
	}

	return &DecomposedAudio{
		Original:   signal,
		Harmonic:   harmonic,
		Percussive: percussive,
		SampleRate: d.sampleRate,
		Duration:   float64(len(signal)) / float64(d.sampleRate),
	}, nil
}

// DecomposeFile loads and separates an audio file in one step
func (d *Decomposer) DecomposeFile(ctx context.Context, path string) (*DecomposedAudio, error) {
	signal, err := d.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	d.logger.Info("separating harmonic and percussive components", logging.Fields{
		"path":     path,
		"duration": float64(len(signal)) / float64(d.sampleRate),
	})

	return d.Separate(signal)
}
