// Package transform implements the manifest rewriting operations:
// resolve, freeze, validate, upgrade.
package transform

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/utilitywarehouse/git-ws/manifest"
	"github.com/utilitywarehouse/git-ws/resolver"
)

// RevParser is the narrow slice of workspace.GitDriver that Freeze needs:
// the current commit SHA of a clone.
type RevParser interface {
	RevParseHead(ctx context.Context, dir string) (string, error)
}

// Resolve flattens a resolved project list into a single self-contained
// manifest: every non-main project becomes a ProjectSpec with an absolute
// URL, its source revision preserved, and empty defaults/group_filters
// (the filtering already happened during resolution).
func Resolve(result *resolver.Result) *manifest.ManifestSpec {
	m := &manifest.ManifestSpec{Version: manifest.CurrentSchemaVersion}
	for _, p := range result.Projects {
		if p.IsMain {
			continue
		}
		m.Dependencies = append(m.Dependencies, manifest.ProjectSpec{
			Name:      p.Name,
			URL:       p.URL,
			Revision:  p.Revision,
			Path:      p.Path,
			Groups:    p.Groups,
			LinkFiles: p.LinkFiles,
			CopyFiles: p.CopyFiles,
		})
	}
	return m
}

// Freeze behaves like Resolve, but overwrites each ProjectSpec's revision
// with the clone's current commit SHA, obtained via the git driver. It
// fails if any project's clone does not yet exist.
func Freeze(ctx context.Context, root string, result *resolver.Result, driver RevParser) (*manifest.ManifestSpec, error) {
	m := Resolve(result)
	for i := range m.Dependencies {
		dir := filepath.Join(root, m.Dependencies[i].Path)
		sha, err := driver.RevParseHead(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("freeze %s: %w", m.Dependencies[i].Name, err)
		}
		m.Dependencies[i].Revision = sha
	}
	return m, nil
}

// Validate loads and validates a manifest document, returning a
// structured error on failure.
func Validate(raw []byte) error {
	_, err := manifest.Parse(raw)
	return err
}

// Upgrade rewrites a manifest document at the latest schema version,
// preserving user data.
func Upgrade(raw []byte) (*manifest.ManifestSpec, error) {
	return manifest.Upgrade(raw)
}
