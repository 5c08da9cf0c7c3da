// Package resolver implements the breadth-first dependency walk that turns
// a manifest's declarative ProjectSpec entries into a flat, deduplicated
// set of resolved Project records.
package resolver

import (
	"errors"
	"fmt"

	"github.com/utilitywarehouse/git-ws/manifest"
	"github.com/utilitywarehouse/git-ws/pathurl"
)

// ErrURLResolutionFailed reports a dependency whose absolute URL could not
// be computed: a relative URL with no containing project URL to resolve
// against (e.g. a main-less workspace), or a reference to an undeclared
// remote.
var ErrURLResolutionFailed = errors.New("url resolution failed")

// Project is the resolved form of a dependency: an absolute (or
// workspace-relative) URL, a normalized workspace path, and the BFS depth
// at which it was first discovered.
type Project struct {
	Name         string
	Path         string
	Level        int
	URL          string
	Revision     string
	ManifestPath string
	Groups       []string
	WithGroups   []string
	Submodules   bool
	LinkFiles    []manifest.FileRef
	CopyFiles    []manifest.FileRef
	IsMain       bool
}

// DiagnosticKind classifies a non-fatal event recorded during resolution.
type DiagnosticKind int

const (
	Duplicate DiagnosticKind = iota
	FilteredOut
	MissingRevision
)

func (k DiagnosticKind) String() string {
	switch k {
	case Duplicate:
		return "DUPLICATE"
	case FilteredOut:
		return "FILTERED_OUT"
	case MissingRevision:
		return "MISSING_REVISION"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic is a non-fatal event surfaced alongside the resolved set:
// a duplicate path, a filtered-out project, or a dependency with no
// revision pinned.
type Diagnostic struct {
	Kind    DiagnosticKind
	Path    string
	Name    string
	Message string
}

// ManifestSource loads the manifest belonging to an already-resolved
// Project, if its working copy exists on disk and holds one. Returning
// (nil, false, nil) means "no manifest here" — not an error, per the
// resolver's "missing manifest" rule.
type ManifestSource interface {
	LoadManifest(workspacePath string, manifestRelPath string) (*manifest.ManifestSpec, bool, error)
}

// Options configures one resolver run.
type Options struct {
	// MainManifest is the already-loaded manifest of the main project
	// (or, for a main-less workspace, the manifest found at the
	// workspace root).
	MainManifest *manifest.ManifestSpec

	// MainURL is the main project's own remote URL, used as the base
	// for resolving its direct dependencies' relative URLs. May be
	// empty for a main-less workspace with no remote of its own.
	MainURL string

	// MainPath is the main project's workspace-relative path. Empty
	// means main-less: no synthetic Project is emitted for "main", but
	// MainManifest's dependencies are still walked.
	MainPath string

	// CLIFilters are command-line group filters, highest precedence.
	CLIFilters []manifest.Filter

	Source ManifestSource
}

// Result is a completed resolver run: the resolved projects in BFS order,
// and the diagnostics collected along the way.
type Result struct {
	Projects    []Project
	Diagnostics []Diagnostic
}

type queueEntry struct {
	proj            Project
	manifestSpec    *manifest.ManifestSpec
	withGroupsChain [][]manifest.Filter
}

// Resolve runs the breadth-first walk described by the project resolver:
// first-wins deduplication by path, group-filter pruning, and silent
// cycle/duplicate handling.
func Resolve(opts Options) (*Result, error) {
	if opts.MainManifest == nil {
		return nil, fmt.Errorf("resolver: MainManifest is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("resolver: Source is required")
	}

	mainFilters, err := manifest.ParseFilters(opts.MainManifest.GroupFilters, "manifest")
	if err != nil {
		return nil, fmt.Errorf("resolver: parsing main manifest group filters: %w", err)
	}

	r := &resolveRun{
		opts:        opts,
		resolved:    make(map[string]Project),
		mainFilters: mainFilters,
	}

	var queue []queueEntry
	if opts.MainPath != "" {
		main := Project{
			Name:       "main",
			Path:       opts.MainPath,
			Level:      0,
			URL:        opts.MainURL,
			Submodules: true,
			IsMain:     true,
		}
		r.resolved[main.Path] = main
		r.order = append(r.order, main)
		queue = append(queue, queueEntry{proj: main, manifestSpec: opts.MainManifest})
	} else {
		// Main-less: there is no synthetic main Project, but the main
		// manifest's dependencies are still walked as if from a virtual
		// root one level above the first real project, so that direct
		// dependencies land at level 0 and BFS ordering still holds.
		queue = append(queue, queueEntry{
			proj:         Project{Level: -1, URL: opts.MainURL},
			manifestSpec: opts.MainManifest,
		})
	}

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		if entry.manifestSpec == nil {
			loaded, found, err := opts.Source.LoadManifest(entry.proj.Path, entry.proj.ManifestPath)
			if err != nil {
				return nil, fmt.Errorf("resolver: loading manifest for %s: %w", entry.proj.Path, err)
			}
			if !found {
				// Missing manifest: subtree is empty, not an error.
				continue
			}
			entry.manifestSpec = loaded
		}

		children, err := r.expand(entry)
		if err != nil {
			return nil, err
		}
		queue = append(queue, children...)
	}

	return &Result{Projects: r.order, Diagnostics: r.diagnostics}, nil
}

type resolveRun struct {
	opts        Options
	resolved    map[string]Project
	order       []Project
	diagnostics []Diagnostic

	// mainFilters is the main manifest's own group_filters list, parsed
	// once and threaded through every BFS level: per spec.md §4.3 this
	// tier is always the *main* manifest's filters, never a dependency's
	// own manifest (a nested manifest's group_filters is not a documented
	// precedence tier — with_groups is the sole mechanism for an ancestor
	// to push filtering down to its own dependencies).
	mainFilters []manifest.Filter
}

// expand processes one manifest's dependency list (step 2/3 of the
// algorithm), returning the queue entries for any newly-resolved children.
// A failure to compute a dependency's absolute URL is a hard error
// (ErrURLResolutionFailed), not a diagnostic: per spec.md §8 a main-less
// workspace with an unqualified relative dependency must abort the walk,
// not silently drop that dependency.
func (r *resolveRun) expand(entry queueEntry) ([]queueEntry, error) {
	m := entry.manifestSpec

	remotes := make([]pathurl.RemoteBase, 0, len(m.Remotes))
	for _, rm := range m.Remotes {
		remotes = append(remotes, pathurl.RemoteBase{Name: rm.Name, URLBase: rm.URLBase})
	}

	var children []queueEntry

	for _, dep := range m.Dependencies {
		path := dep.EffectivePath()

		url, err := pathurl.ResolveURL(
			pathurl.Spec{Name: dep.Name, Remote: effectiveRemote(dep, m.Defaults), SubURL: dep.SubURL, URL: dep.URL},
			entry.proj.URL,
			remotes,
		)
		if err != nil {
			return nil, fmt.Errorf("resolver: resolving url for %q at %q: %v: %w", dep.Name, path, err, ErrURLResolutionFailed)
		}

		if _, exists := r.resolved[path]; exists {
			r.diagnostics = append(r.diagnostics, Diagnostic{
				Kind: Duplicate, Path: path, Name: dep.Name,
				Message: "path already resolved by an earlier declaration",
			})
			continue
		}

		groups := effectiveGroups(dep, m.Defaults)
		withGroups := effectiveWithGroups(dep, m.Defaults)
		// with_groups lists group names; each becomes an enabling filter.
		withGroupsExprs := make([]string, 0, len(withGroups))
		for _, g := range withGroups {
			withGroupsExprs = append(withGroupsExprs, "+"+g)
		}
		withGroupsFilters, _ := manifest.ParseFilters(withGroupsExprs, "with_groups@"+entry.proj.Path)

		lists := make([][]manifest.Filter, 0, len(entry.withGroupsChain)+3)
		lists = append(lists, r.mainFilters)
		lists = append(lists, entry.withGroupsChain...)
		if len(withGroupsFilters) > 0 {
			lists = append(lists, withGroupsFilters)
		}
		lists = append(lists, r.opts.CLIFilters)

		selected, _ := manifest.Selected(false, groups, path, lists...)
		if !selected {
			r.diagnostics = append(r.diagnostics, Diagnostic{
				Kind: FilteredOut, Path: path, Name: dep.Name,
				Message: "no enabling filter matched this project's groups",
			})
			continue
		}

		revision := effectiveRevision(dep, m.Defaults)
		if revision == "" {
			r.diagnostics = append(r.diagnostics, Diagnostic{
				Kind: MissingRevision, Path: path, Name: dep.Name,
				Message: "no revision pinned; leaving the checked-out branch alone",
			})
		}

		proj := Project{
			Name:         dep.Name,
			Path:         path,
			Level:        entry.proj.Level + 1,
			URL:          url,
			Revision:     revision,
			ManifestPath: dep.EffectiveManifestPath(),
			Groups:       groups,
			WithGroups:   withGroups,
			Submodules:   dep.EffectiveSubmodules(m.Defaults),
			LinkFiles:    dep.LinkFiles,
			CopyFiles:    dep.CopyFiles,
		}

		r.resolved[path] = proj
		r.order = append(r.order, proj)

		chain := entry.withGroupsChain
		if len(withGroupsFilters) > 0 {
			chain = append(append([][]manifest.Filter{}, chain...), withGroupsFilters)
		}

		children = append(children, queueEntry{proj: proj, withGroupsChain: chain})
	}

	return children, nil
}

func effectiveRemote(dep manifest.ProjectSpec, d manifest.Defaults) string {
	if dep.Remote != "" {
		return dep.Remote
	}
	if dep.URL != "" {
		return ""
	}
	return d.Remote
}

func effectiveGroups(dep manifest.ProjectSpec, d manifest.Defaults) []string {
	if len(dep.Groups) > 0 {
		return dep.Groups
	}
	return d.Groups
}

// effectiveWithGroups resolves the dependency-site-vs-defaults ambiguity
// the spec leaves open by letting an explicit site-level with_groups
// override the manifest's defaults.with_groups entirely, the same
// precedence rule used for every other inheritable field (groups,
// revision, submodules): the more specific declaration wins outright
// rather than merging.
func effectiveWithGroups(dep manifest.ProjectSpec, d manifest.Defaults) []string {
	if len(dep.WithGroups) > 0 {
		return dep.WithGroups
	}
	return d.WithGroups
}

func effectiveRevision(dep manifest.ProjectSpec, d manifest.Defaults) string {
	if dep.Revision != "" {
		return dep.Revision
	}
	return d.Revision
}
