package pipeline

import (
	"os"
	"path/filepath"

	"github.com/chromascope/chromascope/polish"
)

// AnalysisVersion identifies the analysis logic. Increment whenever
// feature extraction or polishing changes so cached manifests are
// invalidated and regenerated.
const AnalysisVersion = "1.1"

const (
	DefaultTargetFPS  = 60
	DefaultSampleRate = 22050
	DefaultPrecision  = 4
)

// Config holds all analysis-affecting pipeline settings. Every field that
// changes analysis output participates in the cache key.
type Config struct {
	TargetFPS  int `json:"target_fps"`
	SampleRate int `json:"sample_rate"`

	// HPSS separation aggressiveness: [harmonic, percussive]
	HPSSMargin [2]float64 `json:"hpss_margin"`

	// Nil envelopes select the polisher defaults
	ImpactEnvelope    *polish.EnvelopeParams `json:"impact_envelope,omitempty"`
	EnergyEnvelope    *polish.EnvelopeParams `json:"energy_envelope,omitempty"`
	AdaptiveEnvelopes bool                   `json:"adaptive_envelopes"`

	// Decimal places for manifest floats
	Precision int `json:"precision"`

	// Where cached manifests live; empty selects the default user cache
	CacheDir string `json:"cache_dir,omitempty"`
}

// DefaultConfig returns the standard pipeline settings
func DefaultConfig() *Config {
	return &Config{
		TargetFPS:  DefaultTargetFPS,
		SampleRate: DefaultSampleRate,
		HPSSMargin: [2]float64{1.0, 1.0},
		Precision:  DefaultPrecision,
	}
}

// DefaultCacheDir returns the well-known manifest cache location
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "chromascope", "manifests")
	}
	return filepath.Join(home, ".cache", "chromascope", "manifests")
}

func (c *Config) cacheDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return DefaultCacheDir()
}

// normalize fills zero-valued fields with defaults
func (c *Config) normalize() {
	if c.TargetFPS <= 0 {
		c.TargetFPS = DefaultTargetFPS
	}
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.HPSSMargin[0] <= 0 {
		c.HPSSMargin[0] = 1.0
	}
	if c.HPSSMargin[1] <= 0 {
		c.HPSSMargin[1] = 1.0
	}
	if c.Precision <= 0 {
		c.Precision = DefaultPrecision
	}
}
