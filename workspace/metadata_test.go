package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSaveLoadMetadataRoundTrip(t *testing.T) {
	root := t.TempDir()
	want := &Metadata{
		MainPath:     "app",
		ManifestPath: "git-ws.toml",
		GroupFilters: []string{"+dev"},
		CloneDepth:   1,
	}
	if err := SaveMetadata(root, want); err != nil {
		t.Fatalf("SaveMetadata() error = %v", err)
	}

	got, err := LoadMetadata(root)
	if err != nil {
		t.Fatalf("LoadMetadata() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("metadata round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFindWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, MetadataDir), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "app", "nested", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindWorkspaceRoot(nested)
	if err != nil {
		t.Fatalf("FindWorkspaceRoot() error = %v", err)
	}
	if got != root {
		t.Errorf("FindWorkspaceRoot() = %q, want %q", got, root)
	}
}

func TestFindWorkspaceRootNotFound(t *testing.T) {
	root := t.TempDir()
	if _, err := FindWorkspaceRoot(root); err == nil {
		t.Fatal("FindWorkspaceRoot() = nil error, want ErrWorkspaceNotFound")
	}
}
