// Package pipeline orchestrates the complete flow from audio file to
// visual driver manifest: decompose, analyze, polish, export, with
// content-addressed caching of finished manifests.
package pipeline

import (
	"context"
	"fmt"

	"github.com/chromascope/chromascope/analysis"
	"github.com/chromascope/chromascope/decompose"
	"github.com/chromascope/chromascope/logging"
	"github.com/chromascope/chromascope/manifest"
	"github.com/chromascope/chromascope/polish"
)

// Output formats accepted by Process
const (
	FormatJSON  = "json"
	FormatNumpy = "numpy"
)

// ProcessOptions controls a single Process call
type ProcessOptions struct {
	// OutputPath, when set, writes the manifest to this file
	OutputPath string
	// Format selects the export encoding; defaults to JSON
	Format string
	// UseCache enables the manifest cache for both lookup and write
	UseCache bool
}

// DefaultProcessOptions returns the standard options: cached, JSON, no
// file output
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{Format: FormatJSON, UseCache: true}
}

// Result is the outcome of a Process call
type Result struct {
	Manifest   *manifest.Manifest
	BPM        float64
	Duration   float64
	NumFrames  int
	FPS        int
	OutputPath string
	FromCache  bool
}

// Pipeline runs the complete audio analysis. A single Pipeline is safe to
// reuse across calls; concurrent calls on different files are independent.
type Pipeline struct {
	config *Config

	decomposer *decompose.Decomposer
	analyzer   *analysis.FeatureAnalyzer
	polisher   *polish.SignalPolisher
	exporter   *manifest.Exporter
	cache      *manifestCache
	logger     logging.Logger

	// indirection over the decompose stage so tests can observe cache hits
	decomposeFn func(ctx context.Context, path string) (*decompose.DecomposedAudio, error)
}

// NewPipeline creates a pipeline from the given config. A nil config
// selects the defaults.
func NewPipeline(config *Config) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	config.normalize()

	decomposer := decompose.NewDecomposer(config.SampleRate, config.HPSSMargin[0], config.HPSSMargin[1])

	p := &Pipeline{
		config:     config,
		decomposer: decomposer,
		analyzer:   analysis.NewFeatureAnalyzer(config.TargetFPS),
		polisher:   polish.NewSignalPolisher(config.TargetFPS, config.ImpactEnvelope, config.EnergyEnvelope, config.AdaptiveEnvelopes),
		exporter:   manifest.NewExporter(config.Precision),
		cache:      newManifestCache(config.cacheDir()),
		logger:     logging.WithFields(logging.Fields{"component": "pipeline"}),
	}
	p.decomposeFn = decomposer.DecomposeFile
	return p
}

// Config returns the pipeline's effective configuration
func (p *Pipeline) Config() *Config {
	return p.config
}

// ClearCache removes all cached manifests
func (p *Pipeline) ClearCache() error {
	return p.cache.clear()
}

// Process runs the full pipeline on an audio file. On a cache hit the
// expensive stages are skipped entirely; cache failures of any kind fall
// back to a full run rather than failing the request.
func (p *Pipeline) Process(ctx context.Context, audioPath string, opts ProcessOptions) (*Result, error) {
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if opts.Format != FormatJSON && opts.Format != FormatNumpy {
		return nil, fmt.Errorf("unsupported output format %q", opts.Format)
	}

	configHash := hashConfig(p.config, p.polisher.ImpactEnvelope(), p.polisher.EnergyEnvelope())

	var cachePath string
	if opts.UseCache {
		path, err := p.cache.entryPath(audioPath, configHash)
		if err != nil {
			// Unreadable input will fail decode anyway; skip the cache
			p.logger.Warn("cache lookup skipped", logging.Fields{"error": err.Error()})
		} else {
			cachePath = path
			if result, ok := p.tryCache(path, opts); ok {
				return result, nil
			}
		}
	}

	decomposed, err := p.decomposeFn(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	features, err := p.analyzer.Analyze(decomposed)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	polished := p.polisher.Polish(features)
	built := p.exporter.BuildManifest(polished, features.Temporal.BPM, decomposed.Duration)

	if opts.UseCache && cachePath != "" {
		if err := p.cache.store(cachePath, built); err != nil {
			p.logger.Warn("failed to write cache entry", logging.Fields{
				"path":  cachePath,
				"error": err.Error(),
			})
		}
	}

	// Report the rounded manifest values so fresh and cached runs of the
	// same file and config agree.
	result := &Result{
		Manifest:  built,
		BPM:       built.Metadata.BPM,
		Duration:  built.Metadata.Duration,
		NumFrames: polished.NumFrames,
		FPS:       p.config.TargetFPS,
	}

	if opts.OutputPath != "" {
		if err := p.export(polished, built, opts); err != nil {
			return nil, err
		}
		result.OutputPath = opts.OutputPath
	}

	return result, nil
}

// tryCache attempts to serve a request from a cached manifest. Corrupt or
// missing entries simply report a miss.
func (p *Pipeline) tryCache(cachePath string, opts ProcessOptions) (*Result, bool) {
	m, err := p.cache.load(cachePath)
	if err != nil {
		p.logger.Debug("cache miss", logging.Fields{
			"path":  cachePath,
			"error": err.Error(),
		})
		return nil, false
	}

	p.logger.Info("loaded manifest from cache", logging.Fields{"path": cachePath})

	result := &Result{
		Manifest:  m,
		BPM:       m.Metadata.BPM,
		Duration:  m.Metadata.Duration,
		NumFrames: m.Metadata.NumFrames,
		FPS:       p.config.TargetFPS,
		FromCache: true,
	}

	if opts.OutputPath != "" {
		// Cached entries are JSON; re-export the manifest as requested
		if err := p.exporter.ExportJSON(m, opts.OutputPath); err != nil {
			p.logger.Warn("failed to write cached manifest to output", logging.Fields{
				"path":  opts.OutputPath,
				"error": err.Error(),
			})
			return nil, false
		}
		result.OutputPath = opts.OutputPath
	}

	return result, true
}

func (p *Pipeline) export(polished *polish.PolishedFeatures, built *manifest.Manifest, opts ProcessOptions) error {
	switch opts.Format {
	case FormatNumpy:
		return p.exporter.ExportNPZ(polished, opts.OutputPath)
	default:
		return p.exporter.ExportJSON(built, opts.OutputPath)
	}
}

// ProcessToManifest runs the pipeline and returns only the manifest, for
// in-memory callers that do not need file output
func (p *Pipeline) ProcessToManifest(ctx context.Context, audioPath string) (*manifest.Manifest, error) {
	result, err := p.Process(ctx, audioPath, DefaultProcessOptions())
	if err != nil {
		return nil, err
	}
	return result.Manifest, nil
}
