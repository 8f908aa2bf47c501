package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"NewsForge/internal/domain"
)

func TestWriteAndReadJSONRoundtrip(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	want := []domain.RawItem{{Source: domain.SourcePortal, SourceID: "abc", Text: "conteúdo"}}

	path := store.RawPath("g1")
	if err := store.WriteJSON(path, want); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got []domain.RawItem
	if err := store.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if len(got) != 1 || got[0].SourceID != "abc" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestWriteJSONLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	path := store.ConsolidatedPath()
	if err := store.WriteJSON(path, map[string]int{"x": 1}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly the artifact, got %d entries", len(entries))
	}
}

func TestWriteJSONOverwritesAtomically(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	path := store.InsightsPath()

	if err := store.WriteJSON(path, map[string]string{"version": "first"}); err != nil {
		t.Fatalf("first WriteJSON: %v", err)
	}
	if err := store.WriteJSON(path, map[string]string{"version": "second"}); err != nil {
		t.Fatalf("second WriteJSON: %v", err)
	}

	var got map[string]string
	if err := store.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got["version"] != "second" {
		t.Fatalf("expected the second write, got %q", got["version"])
	}
}

func TestReadJSONMissingFile(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	var v map[string]string
	err := store.ReadJSON(store.ConsolidatedPath(), &v)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestWriteJSONReportsArtifactWriteError(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	// Occupy the parent path with a file so MkdirAll fails.
	if err := os.WriteFile(filepath.Join(root, "processed"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	store := NewStore(root)
	err := store.WriteJSON(store.ConsolidatedPath(), map[string]int{"x": 1})

	var writeErr *domain.ArtifactWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected *domain.ArtifactWriteError, got %v", err)
	}
}

func TestArtifactPaths(t *testing.T) {
	t.Parallel()

	store := NewStore("data")

	if got := store.RawPath("g1"); got != filepath.Join("data", "raw", "g1", "g1_raw.json") {
		t.Errorf("RawPath = %q", got)
	}
	if got := store.ArticlePath("abcd1234"); got != filepath.Join("data", "articles", "abcd1234.json") {
		t.Errorf("ArticlePath = %q", got)
	}
}
