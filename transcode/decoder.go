package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"time"

	"github.com/chromascope/chromascope/logging"
)

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // Raw PCM data
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"`
	TargetChannels   int           `json:"target_channels"`
	FFmpegPath       string        `json:"ffmpeg_path"` // Path to ffmpeg binary
	Timeout          time.Duration `json:"timeout"`     // Timeout for ffmpeg operations
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 22050,
		TargetChannels:   1, // Mono for analysis
		FFmpegPath:       "ffmpeg",
		Timeout:          120 * time.Second,
	}
}

// Decoder converts audio files of any container/codec to mono float64 PCM
// using FFmpeg. WAV files have a native fast path (see ReadWAVMono) that
// avoids the subprocess entirely.
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}

	return &Decoder{
		config: config,
		logger: logging.GetGlobalLogger().WithFields(logging.Fields{
			"component": "decoder",
		}),
	}
}

// DecodeFile decodes an audio file to mono float64 PCM at the configured
// sample rate. FFmpeg performs decoding, channel mixdown, and resampling in
// one pass (f64le on stdout).
func (d *Decoder) DecodeFile(ctx context.Context, path string) (*AudioData, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-f", "f64le",
		"-acodec", "pcm_f64le",
		"-ac", fmt.Sprintf("%d", d.config.TargetChannels),
		"-ar", fmt.Sprintf("%d", d.config.TargetSampleRate),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	d.logger.Debug("decoding audio file", logging.Fields{
		"path":        path,
		"sample_rate": d.config.TargetSampleRate,
	})

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed for %s: %w (%s)", path, err, stderr.String())
	}

	raw := stdout.Bytes()
	if len(raw) < 8 {
		return nil, fmt.Errorf("ffmpeg produced no audio for %s", path)
	}

	pcm := bytesToFloat64(raw)

	return &AudioData{
		PCM:        pcm,
		SampleRate: d.config.TargetSampleRate,
		Channels:   d.config.TargetChannels,
		Duration:   time.Duration(float64(len(pcm)) / float64(d.config.TargetSampleRate) * float64(time.Second)),
	}, nil
}

// bytesToFloat64 converts little-endian f64 bytes to a float64 slice
func bytesToFloat64(raw []byte) []float64 {
	n := len(raw) / 8
	pcm := make([]float64, n)

	for i := range n {
		bits := binary.LittleEndian.Uint64(raw[i*8:])
		pcm[i] = math.Float64frombits(bits)
	}

	return pcm
}
