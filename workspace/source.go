package workspace

import (
	"os"
	"path/filepath"

	"github.com/utilitywarehouse/git-ws/manifest"
)

// DiskManifestSource implements resolver.ManifestSource by reading a
// dependency's manifest straight off the filesystem: if the dependency's
// clone exists at <root>/<path> and contains <manifestRelPath>, that
// manifest is loaded; if the file is missing, "not found" is returned
// rather than an error, per the resolver's "missing manifest" rule. A
// manifest file that exists but fails to load is returned as an error.
type DiskManifestSource struct {
	Root string
}

func (s DiskManifestSource) LoadManifest(workspacePath, manifestRelPath string) (*manifest.ManifestSpec, bool, error) {
	if manifestRelPath == "" {
		manifestRelPath = manifest.DefaultFilename
	}
	full := filepath.Join(s.Root, workspacePath, manifestRelPath)
	if _, err := os.Stat(full); err != nil {
		return nil, false, nil
	}
	m, err := manifest.Load(full)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}
