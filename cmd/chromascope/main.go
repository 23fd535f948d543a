// Command chromascope extracts visual driver features from audio files
// and writes them as a versioned manifest.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chromascope/chromascope/logging"
	"github.com/chromascope/chromascope/pipeline"
	"github.com/chromascope/chromascope/polish"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		output     string
		fps        int
		sampleRate int
		format     string
		attackMS   float64
		releaseMS  float64
		noCache    bool
		clearCache bool
		quiet      bool
		summary    bool
	)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: chromascope [options] <input>\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Extract visual driver features from audio files.\n\nOptions:\n")
		flag.PrintDefaults()
	}

	flag.StringVar(&output, "o", "", "output manifest file path (default: <input>_manifest.json)")
	flag.StringVar(&output, "output", "", "output manifest file path")
	flag.IntVar(&fps, "f", pipeline.DefaultTargetFPS, "target frames per second")
	flag.IntVar(&fps, "fps", pipeline.DefaultTargetFPS, "target frames per second")
	flag.IntVar(&sampleRate, "s", pipeline.DefaultSampleRate, "audio sample rate for analysis")
	flag.IntVar(&sampleRate, "sample-rate", pipeline.DefaultSampleRate, "audio sample rate for analysis")
	flag.StringVar(&format, "format", pipeline.FormatJSON, "output format: json or numpy")
	flag.Float64Var(&attackMS, "attack", 0.0, "impact envelope attack time in ms")
	flag.Float64Var(&releaseMS, "release", 200.0, "impact envelope release time in ms")
	flag.BoolVar(&noCache, "no-cache", false, "disable the manifest cache")
	flag.BoolVar(&clearCache, "clear-cache", false, "clear the manifest cache before processing")
	flag.BoolVar(&quiet, "q", false, "suppress progress output")
	flag.BoolVar(&quiet, "quiet", false, "suppress progress output")
	flag.BoolVar(&summary, "summary", false, "print manifest summary to stdout")
	flag.Parse()

	if quiet {
		logging.SetGlobalLogger(nil)
	} else {
		logger := logging.NewDefaultLogger()
		logger.SetLevel(logging.InfoLevel)
		logging.SetGlobalLogger(logger)
	}

	config := pipeline.DefaultConfig()
	config.TargetFPS = fps
	config.SampleRate = sampleRate
	config.ImpactEnvelope = &polish.EnvelopeParams{AttackMS: attackMS, ReleaseMS: releaseMS}

	p := pipeline.NewPipeline(config)

	if clearCache {
		if err := p.ClearCache(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to clear cache: %v\n", err)
			return 1
		}
		if !quiet {
			fmt.Println("Cache cleared")
		}
		if flag.NArg() == 0 {
			return 0
		}
	}

	if flag.NArg() != 1 {
		flag.Usage()
		return 1
	}
	input := flag.Arg(0)

	if _, err := os.Stat(input); err != nil {
		fmt.Fprintf(os.Stderr, "Error: input file not found: %s\n", input)
		return 1
	}

	if output == "" {
		suffix := ".json"
		if format == pipeline.FormatNumpy {
			suffix = ".npz"
		}
		stem := strings.TrimSuffix(input, filepath.Ext(input))
		output = stem + "_manifest" + suffix
	}

	if !quiet {
		fmt.Printf("Processing: %s\n", input)
		fmt.Printf("Target FPS: %d\n", fps)
	}

	result, err := p.Process(context.Background(), input, pipeline.ProcessOptions{
		OutputPath: output,
		Format:     format,
		UseCache:   !noCache,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if !quiet {
		fmt.Printf("BPM: %.1f\n", result.BPM)
		fmt.Printf("Duration: %.2fs\n", result.Duration)
		fmt.Printf("Frames: %d\n", result.NumFrames)
		fmt.Printf("Output: %s\n", result.OutputPath)
	}

	if summary {
		printSummary(result)
	}

	return 0
}

func printSummary(result *pipeline.Result) {
	fmt.Println("\n--- Manifest Summary ---")
	printJSON(result.Manifest.Metadata)

	frames := result.Manifest.Frames
	if len(frames) > 0 {
		fmt.Println("\nFirst frame:")
		printJSON(frames[0])
	}
	if len(frames) > 1 {
		mid := len(frames) / 2
		fmt.Printf("\nMiddle frame (%d):\n", mid)
		printJSON(frames[mid])
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", v)
		return
	}
	fmt.Println(string(data))
}
