package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/utilitywarehouse/git-ws/manifest"
	"github.com/utilitywarehouse/git-ws/resolver"
	"github.com/utilitywarehouse/git-ws/transform"
	"github.com/utilitywarehouse/git-ws/workspace"
)

func runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	manifestPath := fs.String("manifest", manifest.DefaultFilename, "manifest filename, relative to the main project")
	groupFilters := fs.String("group-filters", "", "comma-separated group filters, e.g. +dev,-docs")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	mainPath := "."
	if fs.NArg() > 0 {
		mainPath = fs.Arg(0)
	}

	root, err := os.Getwd()
	if err != nil {
		return fatalf("getwd: %v", err)
	}
	if filepath.IsAbs(mainPath) {
		root = filepath.Dir(mainPath)
		mainPath = filepath.Base(mainPath)
	}

	meta := &workspace.Metadata{
		MainPath:     mainPath,
		ManifestPath: *manifestPath,
		GroupFilters: splitFilters(*groupFilters),
	}
	if err := workspace.SaveMetadata(root, meta); err != nil {
		return fatalf("saving workspace metadata: %v", err)
	}

	logger.Info("workspace initialized", "root", root, "main", mainPath)
	return runUpdateIn(root, meta, defaultUpdateOptions(nil))
}

func runClone(args []string) int {
	fs := flag.NewFlagSet("clone", flag.ContinueOnError)
	manifestPath := fs.String("manifest", manifest.DefaultFilename, "manifest filename, relative to the main project")
	groupFilters := fs.String("group-filters", "", "comma-separated group filters, e.g. +dev,-docs")
	depth := fs.Int("depth", 0, "shallow clone depth; 0 means full history")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		return fatalf("clone requires a URL argument")
	}
	url := fs.Arg(0)

	mainPath := filepath.Base(url)
	if fs.NArg() > 1 {
		mainPath = fs.Arg(1)
	}

	root, err := os.Getwd()
	if err != nil {
		return fatalf("getwd: %v", err)
	}

	driver := workspace.NewExecDriver(logger)
	dir := filepath.Join(root, mainPath)
	if err := driver.Clone(cliContext(), dir, url, *depth, workspace.Auth{}); err != nil {
		return fatalf("cloning main project: %v", err)
	}

	meta := &workspace.Metadata{
		MainPath:     mainPath,
		ManifestPath: *manifestPath,
		GroupFilters: splitFilters(*groupFilters),
		CloneDepth:   *depth,
	}
	if err := workspace.SaveMetadata(root, meta); err != nil {
		return fatalf("saving workspace metadata: %v", err)
	}

	return runUpdateIn(root, meta, defaultUpdateOptions(nil))
}

// updateOptions carries the update subcommand's flag surface through to
// runUpdateIn. Callers that invoke runUpdateIn as a side effect of init,
// clone or checkout use defaultUpdateOptions instead of exposing these
// flags themselves.
type updateOptions struct {
	extraFilters     []string
	skipMain         bool
	rebase           bool
	prune            bool
	force            bool
	projects         []string
	manifestOverride string
}

func defaultUpdateOptions(extraFilters []string) updateOptions {
	return updateOptions{extraFilters: extraFilters, rebase: true}
}

func runUpdate(args []string) int {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	groupFilter := fs.String("group-filter", "", "extra comma-separated group filters on top of the workspace's stored ones")
	skipMain := fs.Bool("skip-main", false, "don't materialize the main project itself")
	rebase := fs.Bool("rebase", true, "rebase local commits on top of the manifest-declared revision during reconciliation")
	prune := fs.Bool("prune", false, "remove clones on disk that are no longer part of the resolved project set")
	force := fs.Bool("force", false, "prune dirty clones too, discarding local changes")
	project := fs.String("project", "", "comma-separated project names/paths to restrict the update to")
	manifestOverride := fs.String("manifest", "", "path to a manifest file to use instead of the main project's configured one")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}
	return runUpdateIn(root, meta, updateOptions{
		extraFilters:     splitFilters(*groupFilter),
		skipMain:         *skipMain,
		rebase:           *rebase,
		prune:            *prune,
		force:            *force,
		projects:         splitFilters(*project),
		manifestOverride: *manifestOverride,
	})
}

func runUpdateIn(root string, meta *workspace.Metadata, opts updateOptions) int {
	effectiveMeta := meta
	if opts.manifestOverride != "" {
		clone := *meta
		clone.ManifestPath = opts.manifestOverride
		effectiveMeta = &clone
	}

	result, err := resolveWorkspace(root, effectiveMeta, opts.extraFilters)
	if err != nil {
		return fatalf("resolving manifest: %v", err)
	}
	for _, d := range result.Diagnostics {
		logger.Info("resolver diagnostic", "kind", d.Kind.String(), "path", d.Path, "name", d.Name, "message", d.Message)
	}

	projects := filterProjects(result.Projects, opts)

	driver := workspace.NewExecDriver(logger)
	mz := &workspace.Materializer{Root: root, Driver: driver}

	diags := mz.Materialize(cliContext(), projects, workspace.Options{
		Rebase:     opts.rebase,
		Prune:      opts.prune,
		Force:      opts.force,
		CloneDepth: meta.CloneDepth,
	})
	ok := true
	for _, d := range diags {
		logger.Error("materialize failed", "path", d.Path, "err", d.Err, "output", d.Output)
		ok = false
	}

	linkDiags := mz.LinkCopyFiles(projects)
	for _, d := range linkDiags {
		logger.Error("link/copy failed", "path", d.Path, "err", d.Err)
		ok = false
	}

	if opts.prune {
		keep := make(map[string]bool, len(result.Projects))
		for _, p := range result.Projects {
			keep[p.Path] = true
		}
		removed, errs := workspace.Prune(cliContext(), root, driver, keep, opts.force)
		for _, r := range removed {
			logger.Info("pruned clone no longer in resolved set", "path", r)
		}
		for _, e := range errs {
			logger.Error("prune failed", "err", e)
			ok = false
		}
	}

	if !ok {
		return 1
	}
	logger.Info("update complete", "projects", len(projects))
	return 0
}

// filterProjects applies --skip-main and --project restrictions on top of
// the resolver's full BFS-ordered project set.
func filterProjects(all []resolver.Project, opts updateOptions) []resolver.Project {
	wantProject := func(p resolver.Project) bool {
		if len(opts.projects) == 0 {
			return true
		}
		for _, name := range opts.projects {
			if p.Name == name || p.Path == name {
				return true
			}
		}
		return false
	}

	out := make([]resolver.Project, 0, len(all))
	for _, p := range all {
		if opts.skipMain && p.IsMain {
			continue
		}
		if !wantProject(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func runCheckout(args []string) int {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		return fatalf("checkout requires a revision argument")
	}
	revision := fs.Arg(0)

	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}

	driver := workspace.NewExecDriver(logger)
	dir := filepath.Join(root, meta.MainPath)
	if err := driver.Checkout(cliContext(), dir, revision); err != nil {
		return fatalf("checking out %s in main project: %v", revision, err)
	}

	return runUpdateIn(root, meta, defaultUpdateOptions(nil))
}

func runTag(args []string) int {
	fs := flag.NewFlagSet("tag", flag.ContinueOnError)
	message := fs.String("m", "", "snapshot message, recorded alongside the frozen manifest")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		return fatalf("tag requires a name argument")
	}
	name := fs.Arg(0)

	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}

	result, err := resolveWorkspace(root, meta, nil)
	if err != nil {
		return fatalf("resolving manifest: %v", err)
	}

	driver := workspace.NewExecDriver(logger)
	frozen, err := transform.Freeze(cliContext(), root, result, driver)
	if err != nil {
		return fatalf("freezing manifest: %v", err)
	}

	dest := workspace.FrozenManifestPath(root, name)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fatalf("creating snapshot directory: %v", err)
	}
	if err := manifest.Save(dest, frozen); err != nil {
		return fatalf("saving frozen manifest: %v", err)
	}

	mainDir := filepath.Join(root, meta.MainPath)
	mainProject := resolver.Project{Name: "main", Path: meta.MainPath, IsMain: true}
	relDest, err := filepath.Rel(mainDir, dest)
	if err != nil {
		relDest = dest
	}
	if err := runIn(cliContext(), mainDir, mainProject, "git", "add", relDest); err != nil {
		return fatalf("staging frozen manifest: %v", err)
	}
	commitMsg := *message
	if commitMsg == "" {
		commitMsg = fmt.Sprintf("git-ws: freeze manifest for tag %s", name)
	}
	if err := runIn(cliContext(), mainDir, mainProject, "git", "commit", "-m", commitMsg); err != nil {
		return fatalf("committing frozen manifest: %v", err)
	}
	if err := runIn(cliContext(), mainDir, mainProject, "git", "tag", name); err != nil {
		return fatalf("creating git tag: %v", err)
	}

	logger.Info("tag created", "name", name, "message", *message, "path", dest)
	return 0
}

func runDeinit(args []string) int {
	root, _, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}
	if err := workspace.DeleteMetadata(root); err != nil {
		return fatalf("removing workspace metadata: %v", err)
	}
	logger.Info("workspace metadata removed; working copies left untouched", "root", root)
	return 0
}

func splitFilters(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range splitComma(s) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
