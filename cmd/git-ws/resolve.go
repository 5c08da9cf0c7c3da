package main

import (
	"fmt"
	"path/filepath"

	"github.com/utilitywarehouse/git-ws/manifest"
	"github.com/utilitywarehouse/git-ws/resolver"
	"github.com/utilitywarehouse/git-ws/workspace"
)

// resolveWorkspace loads the main manifest and runs the resolver for the
// workspace rooted at root, applying the persisted group filters plus any
// extra CLI filters on top.
func resolveWorkspace(root string, meta *workspace.Metadata, extraFilters []string) (*resolver.Result, error) {
	mainManifestPath := filepath.Join(root, meta.MainPath, effectiveManifestPath(meta))
	mainManifest, err := manifest.Load(mainManifestPath)
	if err != nil {
		return nil, fmt.Errorf("loading main manifest: %w", err)
	}

	driver := workspace.NewExecDriver(logger)
	mainURL, _ := driver.RemoteURL(cliContext(), filepath.Join(root, meta.MainPath))

	cliFilters, err := manifest.ParseFilters(append(append([]string{}, meta.GroupFilters...), extraFilters...), "cli")
	if err != nil {
		return nil, fmt.Errorf("parsing group filters: %w", err)
	}

	return resolver.Resolve(resolver.Options{
		MainManifest: mainManifest,
		MainURL:      mainURL,
		MainPath:     meta.MainPath,
		CLIFilters:   cliFilters,
		Source:       workspace.DiskManifestSource{Root: root},
	})
}

func effectiveManifestPath(meta *workspace.Metadata) string {
	if meta.ManifestPath != "" {
		return meta.ManifestPath
	}
	return manifest.DefaultFilename
}
