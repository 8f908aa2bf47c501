package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"NewsForge/internal/domain"
)

// Store is the filesystem artifact layer shared by all stages. Writes are
// atomic-publish: encode to a temp file in the target directory, then rename,
// so readers never observe a half-written artifact.
type Store struct {
	root string
}

// NewStore roots the store at the configured data directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// RawPath locates the per-source raw artifact.
func (s *Store) RawPath(sourceName string) string {
	return filepath.Join(s.root, "raw", sourceName, sourceName+"_raw.json")
}

// ConsolidatedPath locates the normalized dataset artifact.
func (s *Store) ConsolidatedPath() string {
	return filepath.Join(s.root, "processed", "consolidated.json")
}

// InsightsPath locates the insight bundle artifact.
func (s *Store) InsightsPath() string {
	return filepath.Join(s.root, "processed", "insights.json")
}

// VisualizationDir locates the best-effort chart output directory.
func (s *Store) VisualizationDir() string {
	return filepath.Join(s.root, "processed", "visualizations")
}

// ArticleDir locates the accepted-article output directory.
func (s *Store) ArticleDir() string {
	return filepath.Join(s.root, "articles")
}

// ArticlePath locates one accepted article keyed by its cluster id.
func (s *Store) ArticlePath(clusterID string) string {
	return filepath.Join(s.ArticleDir(), clusterID+".json")
}

// Exists reports whether an artifact is already published.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteJSON publishes v atomically at path. Failures are reported as
// *domain.ArtifactWriteError and leave any previous artifact untouched.
func (s *Store) WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.ArtifactWriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &domain.ArtifactWriteError{Path: path, Err: err}
	}

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return &domain.ArtifactWriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return &domain.ArtifactWriteError{Path: path, Err: err}
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return &domain.ArtifactWriteError{Path: path, Err: err}
	}

	return nil
}

// ReadJSON decodes the artifact at path into v. A missing file surfaces as
// os.ErrNotExist so callers can map it to the missing-artifact condition.
func (s *Store) ReadJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return nil
}
