package manifest

import (
	"fmt"
	"regexp"
)

var filterRgx = regexp.MustCompile(`^([+-])([A-Za-z_][A-Za-z0-9_-]*)(?:@(.+))?$`)

// Filter is one parsed group-filter expression: `('+'|'-') identifier
// ('@' path)?`.
type Filter struct {
	Enable bool // true for '+', false for '-'
	Group  string
	Path   string // empty if unqualified

	// Source names which filter list this rule came from, used only for
	// `info dep-tree --primary` style tracing; it plays no role in
	// matching.
	Source string
}

// ParseFilter parses a single filter expression.
func ParseFilter(expr string) (Filter, error) {
	m := filterRgx.FindStringSubmatch(expr)
	if m == nil {
		return Filter{}, fmt.Errorf("%q is not a valid filter expression", expr)
	}
	return Filter{
		Enable: m[1] == "+",
		Group:  m[2],
		Path:   m[3],
	}, nil
}

// ParseFilters parses an ordered list of filter expressions, tagging each
// with the given source label.
func ParseFilters(exprs []string, source string) ([]Filter, error) {
	out := make([]Filter, 0, len(exprs))
	for _, e := range exprs {
		f, err := ParseFilter(e)
		if err != nil {
			return nil, err
		}
		f.Source = source
		out = append(out, f)
	}
	return out, nil
}

func (f Filter) matches(groups []string, path string) bool {
	if f.Path != "" && f.Path != path {
		return false
	}
	for _, g := range groups {
		if g == f.Group {
			return true
		}
	}
	return false
}

// Decide evaluates an ordered sequence of filter lists (lowest precedence
// first — manifest group_filters, then inherited with_groups, then
// command-line filters) against a candidate project's groups and resolved
// path, implementing spec's group-filter engine: within a single list, the
// last matching rule wins; across lists, a later list's match (if any)
// overrides the decision carried from earlier lists.
//
// Decide does not implement the "main project" or "empty groups" shortcuts
// — callers apply those before consulting the filter lists.
func Decide(groups []string, path string, lists ...[]Filter) (selected bool, trace *Filter) {
	for _, list := range lists {
		for i := range list {
			f := list[i]
			if f.matches(groups, path) {
				selected = f.Enable
				trace = &list[i]
			}
		}
	}
	return selected, trace
}

// Selected reports whether a project with the given groups is selected,
// applying the two unconditional shortcuts from the spec (main project,
// empty groups) ahead of Decide.
func Selected(isMain bool, groups []string, path string, lists ...[]Filter) (bool, *Filter) {
	if isMain {
		return true, nil
	}
	if len(groups) == 0 {
		return true, nil
	}
	return Decide(groups, path, lists...)
}

// SelectFileRef reports whether a FileRef should be materialized, applying
// the same predicate used for projects: a FileRef with no groups is always
// selected.
func SelectFileRef(ref FileRef, path string, lists ...[]Filter) (bool, *Filter) {
	if len(ref.Groups) == 0 {
		return true, nil
	}
	return Decide(ref.Groups, path, lists...)
}
