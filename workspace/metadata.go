package workspace

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// MetadataDir is the directory name under a workspace root holding
// persisted state.
const MetadataDir = ".git-ws"

// metadataFile is the filename of the metadata record within MetadataDir.
const metadataFile = "config.toml"

// Metadata is the small key-value record persisted per workspace.
type Metadata struct {
	MainPath     string   `toml:"main_path,omitempty"`
	ManifestPath string   `toml:"manifest_path,omitempty"`
	GroupFilters []string `toml:"group_filters,omitempty"`
	CloneDepth   int      `toml:"clone_depth,omitempty"`
}

// FindWorkspaceRoot walks upward from startDir until a .git-ws directory is
// found, returning its parent (the workspace root).
func FindWorkspaceRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if fi, err := os.Stat(filepath.Join(dir, MetadataDir)); err == nil && fi.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrWorkspaceNotFound
		}
		dir = parent
	}
}

// LoadMetadata reads the metadata record for the workspace rooted at root.
func LoadMetadata(root string) (*Metadata, error) {
	raw, err := os.ReadFile(filepath.Join(root, MetadataDir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, root)
		}
		return nil, err
	}
	var m Metadata
	if _, err := toml.Decode(string(raw), &m); err != nil {
		return nil, fmt.Errorf("decode workspace metadata: %w", err)
	}
	return &m, nil
}

// SaveMetadata atomically (over)writes the metadata record for the
// workspace rooted at root, creating .git-ws/ if needed.
func SaveMetadata(root string, m *Metadata) error {
	dir := filepath.Join(root, MetadataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode workspace metadata: %w", err)
	}

	dest := filepath.Join(dir, metadataFile)
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}

// DeleteMetadata removes .git-ws/ entirely, implementing `deinit`.
func DeleteMetadata(root string) error {
	return os.RemoveAll(filepath.Join(root, MetadataDir))
}

// FrozenManifestPath returns the path a `tag` command writes a frozen
// manifest to.
func FrozenManifestPath(root, tagName string) string {
	return filepath.Join(root, MetadataDir, "manifests", tagName+".toml")
}
