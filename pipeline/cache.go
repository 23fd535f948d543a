package pipeline

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chromascope/chromascope/logging"
	"github.com/chromascope/chromascope/manifest"
	"github.com/chromascope/chromascope/polish"
)

// manifestCache stores built manifests on disk, addressed by audio content
// and analysis configuration. Entries are immutable: any analysis-affecting
// change produces a different filename, so stale entries are never read,
// only orphaned.
type manifestCache struct {
	dir    string
	logger logging.Logger
}

func newManifestCache(dir string) *manifestCache {
	return &manifestCache{
		dir:    dir,
		logger: logging.WithFields(logging.Fields{"component": "cache"}),
	}
}

// entryPath computes the cache file path for an audio file under the given
// configuration
func (c *manifestCache) entryPath(audioPath, configHash string) (string, error) {
	fileHash, err := hashFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to hash audio file: %w", err)
	}
	return filepath.Join(c.dir, fmt.Sprintf("manifest_%s_%s.json", fileHash, configHash)), nil
}

// load reads a cached manifest. Missing or corrupt entries return an error
// so the caller can fall back to reprocessing.
func (c *manifestCache) load(path string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("corrupt cache entry: %w", err)
	}
	if len(m.Frames) != m.Metadata.NumFrames {
		return nil, fmt.Errorf("corrupt cache entry: frame count mismatch")
	}
	return &m, nil
}

// store writes a manifest to the cache, creating the directory on demand
func (c *manifestCache) store(path string, m *manifest.Manifest) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// clear removes all cached manifests
func (c *manifestCache) clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return os.MkdirAll(c.dir, 0o755)
}

// hashFile computes the SHA-256 of a file's contents
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashConfig derives a stable digest of the analysis-affecting settings.
// Keys are serialized in sorted order so the digest is deterministic.
func hashConfig(cfg *Config, impact, energy polish.EnvelopeParams) string {
	payload := map[string]any{
		"version": AnalysisVersion,
		"fps":     cfg.TargetFPS,
		"sr":      cfg.SampleRate,
		"margin":  cfg.HPSSMargin,
		"impact":  [2]float64{impact.AttackMS, impact.ReleaseMS},
		"energy":  [2]float64{energy.AttackMS, energy.ReleaseMS},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// Marshal of plain numbers cannot fail; keep a fixed fallback anyway
		data = []byte(AnalysisVersion)
	}

	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
