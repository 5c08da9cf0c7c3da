// Package manifest defines the on-disk schema of a git-ws.toml document,
// validates it, and serializes it to and from TOML.
package manifest

// CurrentSchemaVersion is the schema version emitted by this build.
const CurrentSchemaVersion = 1

// DefaultFilename is the manifest filename used when a ProjectSpec or the
// workspace metadata store does not name one explicitly.
const DefaultFilename = "git-ws.toml"

// ManifestSpec is the on-disk form of a manifest: remotes, shared defaults,
// group filters, dependencies, and link/copy files.
type ManifestSpec struct {
	Version      int           `toml:"version"`
	Remotes      []Remote      `toml:"remotes,omitempty"`
	Defaults     Defaults      `toml:"defaults,omitempty"`
	GroupFilters []string      `toml:"group_filters,omitempty"`
	Dependencies []ProjectSpec `toml:"dependencies,omitempty"`
	LinkFiles    []FileRef     `toml:"linkfiles,omitempty"`
	CopyFiles    []FileRef     `toml:"copyfiles,omitempty"`
}

// Remote is a named base URL that ProjectSpec entries can reference instead
// of spelling out a full URL.
type Remote struct {
	Name    string `toml:"name"`
	URLBase string `toml:"url_base"`
}

// Defaults holds the fields a ProjectSpec inherits when it leaves them
// unset.
type Defaults struct {
	Remote      string   `toml:"remote,omitempty"`
	Revision    string   `toml:"revision,omitempty"`
	Groups      []string `toml:"groups,omitempty"`
	WithGroups  []string `toml:"with_groups,omitempty"`
	Submodules  *bool    `toml:"submodules,omitempty"`
}

// ProjectSpec is one declared dependency entry.
type ProjectSpec struct {
	Name         string    `toml:"name"`
	Remote       string    `toml:"remote,omitempty"`
	SubURL       string    `toml:"sub_url,omitempty"`
	URL          string    `toml:"url,omitempty"`
	Revision     string    `toml:"revision,omitempty"`
	Path         string    `toml:"path,omitempty"`
	ManifestPath string    `toml:"manifest_path,omitempty"`
	Groups       []string  `toml:"groups,omitempty"`
	WithGroups   []string  `toml:"with_groups,omitempty"`
	Submodules   *bool     `toml:"submodules,omitempty"`
	LinkFiles    []FileRef `toml:"linkfiles,omitempty"`
	CopyFiles    []FileRef `toml:"copyfiles,omitempty"`
}

// FileRef names a link or copy file relative to the enclosing project, with
// an optional group filter of its own.
type FileRef struct {
	Src    string   `toml:"src"`
	Dest   string   `toml:"dest"`
	Groups []string `toml:"groups,omitempty"`
}

// EffectivePath returns spec.Path, defaulting to spec.Name.
func (p ProjectSpec) EffectivePath() string {
	if p.Path != "" {
		return p.Path
	}
	return p.Name
}

// EffectiveManifestPath returns spec.ManifestPath, defaulting to
// DefaultFilename.
func (p ProjectSpec) EffectiveManifestPath() string {
	if p.ManifestPath != "" {
		return p.ManifestPath
	}
	return DefaultFilename
}

// EffectiveSubmodules returns spec.Submodules if set, else d.Submodules if
// set, else true.
func (p ProjectSpec) EffectiveSubmodules(d Defaults) bool {
	if p.Submodules != nil {
		return *p.Submodules
	}
	if d.Submodules != nil {
		return *d.Submodules
	}
	return true
}
