package manifest

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a manifest file, validating it before returning.
func Load(path string) (*ManifestSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a manifest document already in memory.
func Parse(raw []byte) (*ManifestSpec, error) {
	var m ManifestSpec
	meta, err := toml.Decode(string(raw), &m)
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, undecoded[0].String())
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save serializes m and writes it atomically to path: encode to a temp
// file in the same directory, then rename over the destination, so a
// reader never observes a partially-written manifest.
func Save(path string, m *ManifestSpec) error {
	var buf bytes.Buffer
	buf.WriteString(schemaHeader(m.Version))
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp, err := os.CreateTemp(dirOf(path), ".git-ws-manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename manifest into place: %w", err)
	}
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

func schemaHeader(version int) string {
	return fmt.Sprintf("# git-ws manifest, schema version %d.\n# Generated fields may be rewritten; hand-edit with care.\n\n", version)
}
