package manifest

import (
	"fmt"
	"regexp"
)

var identifierRgx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// IsValidIdentifier reports whether name matches the identifier grammar
// required of remote names, group names, and dependency names.
func IsValidIdentifier(name string) bool {
	return identifierRgx.MatchString(name)
}

// Validate checks a ManifestSpec's structural constraints: schema version,
// remote name uniqueness, identifier grammar, and the mutual-exclusion
// rules between a ProjectSpec's remote/url/sub_url fields.
func Validate(m *ManifestSpec) error {
	if m.Version > CurrentSchemaVersion {
		return fmt.Errorf("version %d: %w", m.Version, ErrSchemaTooNew)
	}

	seenRemotes := make(map[string]bool, len(m.Remotes))
	for _, r := range m.Remotes {
		if r.Name == "" {
			return fieldErr(ErrMissingRequired, "remotes[].name")
		}
		if !IsValidIdentifier(r.Name) {
			return fieldErr(ErrBadIdentifier, "remotes."+r.Name)
		}
		if r.URLBase == "" {
			return fieldErr(ErrMissingRequired, "remotes."+r.Name+".url_base")
		}
		if seenRemotes[r.Name] {
			return fieldErr(ErrDuplicateRemote, r.Name)
		}
		seenRemotes[r.Name] = true
	}

	if m.Defaults.Remote != "" && !seenRemotes[m.Defaults.Remote] {
		return fieldErr(ErrUnknownRemote, "defaults.remote="+m.Defaults.Remote)
	}
	for _, g := range m.Defaults.Groups {
		if !IsValidIdentifier(g) {
			return fieldErr(ErrBadIdentifier, "defaults.groups="+g)
		}
	}
	for _, g := range m.Defaults.WithGroups {
		if !IsValidIdentifier(g) {
			return fieldErr(ErrBadIdentifier, "defaults.with_groups="+g)
		}
	}

	for _, f := range m.GroupFilters {
		if _, err := ParseFilter(f); err != nil {
			return fmt.Errorf("group_filters: %w", err)
		}
	}

	for _, dep := range m.Dependencies {
		if err := validateProjectSpec(dep, seenRemotes); err != nil {
			return fmt.Errorf("dependencies[%s]: %w", dep.Name, err)
		}
	}

	if err := validateFileRefs(m.LinkFiles); err != nil {
		return fmt.Errorf("linkfiles: %w", err)
	}
	if err := validateFileRefs(m.CopyFiles); err != nil {
		return fmt.Errorf("copyfiles: %w", err)
	}

	return nil
}

func validateProjectSpec(p ProjectSpec, remotes map[string]bool) error {
	if p.Name == "" {
		return fieldErr(ErrMissingRequired, "name")
	}
	if !IsValidIdentifier(p.Name) {
		return fieldErr(ErrBadIdentifier, p.Name)
	}

	if p.Remote != "" && p.URL != "" {
		return fieldErr(ErrConflictingURLSources, p.Name)
	}
	if p.SubURL != "" && p.Remote == "" {
		return fieldErr(ErrInvalidSubURL, p.Name)
	}
	if p.Remote != "" && !remotes[p.Remote] {
		return fieldErr(ErrUnknownRemote, p.Name+".remote="+p.Remote)
	}

	for _, g := range p.Groups {
		if !IsValidIdentifier(g) {
			return fieldErr(ErrBadIdentifier, p.Name+".groups="+g)
		}
	}
	for _, g := range p.WithGroups {
		if !IsValidIdentifier(g) {
			return fieldErr(ErrBadIdentifier, p.Name+".with_groups="+g)
		}
	}

	if err := validateFileRefs(p.LinkFiles); err != nil {
		return fmt.Errorf("%s.linkfiles: %w", p.Name, err)
	}
	if err := validateFileRefs(p.CopyFiles); err != nil {
		return fmt.Errorf("%s.copyfiles: %w", p.Name, err)
	}

	return nil
}

func validateFileRefs(refs []FileRef) error {
	for _, r := range refs {
		if r.Src == "" {
			return fieldErr(ErrMissingRequired, "src")
		}
		if r.Dest == "" {
			return fieldErr(ErrMissingRequired, "dest")
		}
		for _, g := range r.Groups {
			if !IsValidIdentifier(g) {
				return fieldErr(ErrBadIdentifier, "groups="+g)
			}
		}
	}
	return nil
}
