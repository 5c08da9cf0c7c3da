// Package pathurl parses git remote URLs and implements the pure
// path/URL arithmetic used to derive dependency URLs from a manifest:
// joining a base URL with a relative segment, and deriving the default
// sibling URL for a dependency that only declares a name.
//
// No function in this package touches the network or the filesystem.
package pathurl

import (
	"fmt"
	"regexp"
	"strings"
)

// Scheme identifies which of the four supported git remote URL forms a
// URL was parsed from.
type Scheme string

const (
	SchemeSCP   Scheme = "scp"
	SchemeSSH   Scheme = "ssh"
	SchemeHTTPS Scheme = "https"
	SchemeLocal Scheme = "local"
)

// form binds one supported URL syntax to the regexp that recognizes it
// and the Scheme it yields. Parse and the Is*URL predicates both walk
// this table instead of repeating a regex per branch.
type form struct {
	scheme  Scheme
	pattern *regexp.Regexp
}

// forms lists every supported syntax. Repo names may contain ASCII
// letters, digits, and the characters ., -, and _.
var forms = []form{
	{SchemeSCP, regexp.MustCompile(`^(?P<user>[\w\-\.]+)@(?P<host>([\w\-]+\.?[\w\-]+)+(\:\d+)?):(?P<path>([\w\-\.]+\/)*)(?P<repo>[\w\-\.]+(\.git)?)$`)},
	{SchemeSSH, regexp.MustCompile(`^ssh://(?P<user>[\w\-\.]+)@(?P<host>([\w\-]+\.?[\w\-]+)+(\:\d+)??)/(?P<path>([\w\-\.]+\/)*)(?P<repo>[\w\-\.]+(\.git)?)$`)},
	{SchemeHTTPS, regexp.MustCompile(`^https://(?P<host>([\w\-]+\.?[\w\-]+)+(\:\d+)?)/(?P<path>([\w\-\.]+\/)*)(?P<repo>[\w\-\.]+(\.git)?)$`)},
	{SchemeLocal, regexp.MustCompile(`^file:///(?P<path>([\w\-\.]+\/)*)(?P<repo>[\w\-\.]+(\.git)?)$`)},
}

func lookup(scheme Scheme) form {
	for _, f := range forms {
		if f.scheme == scheme {
			return f
		}
	}
	return form{}
}

// field extracts a named capture group from a FindStringSubmatch result,
// returning "" if the form has no group by that name (e.g. https/local
// have no "user" group).
func (f form) field(sections []string, name string) string {
	idx := f.pattern.SubexpIndex(name)
	if idx < 0 || idx >= len(sections) {
		return ""
	}
	return sections[idx]
}

// URL represents a parsed git remote URL.
type URL struct {
	Scheme Scheme
	User   string // empty for https and local urls
	Host   string // host or host:port, empty for local urls
	Path   string // path to the repo, not including the repo name itself
	Repo   string // repository name from the path, includes .git if present
}

// NormaliseURL returns the lower-cased, trimmed form of a raw URL string.
func NormaliseURL(rawURL string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(rawURL)), "/")
}

// IsAbsolute returns whether the given raw URL string is one of the
// supported absolute forms (scp, ssh, https or file). A relative path
// (e.g. "../sibling" or "sibling") is not absolute.
func IsAbsolute(rawURL string) bool {
	_, sections := matchAny(NormaliseURL(rawURL))
	return sections != nil
}

// matchAny finds the first form (in declaration order) whose pattern
// matches an already-normalised URL string, along with its captures.
func matchAny(normalised string) (form, []string) {
	for _, f := range forms {
		if sections := f.pattern.FindStringSubmatch(normalised); sections != nil {
			return f, sections
		}
	}
	return form{}, nil
}

// Parse parses a raw url into a URL structure.
// valid git urls are...
//   - user@host.xz:path/to/repo.git
//   - ssh://user@host.xz[:port]/path/to/repo.git
//   - https://host.xz[:port]/path/to/repo.git
//   - file:///path/to/repo.git
func Parse(rawURL string) (*URL, error) {
	normalised := NormaliseURL(rawURL)

	f, sections := matchAny(normalised)
	if sections == nil {
		return nil, fmt.Errorf(
			"provided '%s' remote url is invalid, supported urls are 'user@host.xz:path/to/repo.git', 'ssh://user@host.xz/path/to/repo.git', 'https://host.xz/path/to/repo.git' or 'file:///path/to/repo.git'",
			normalised)
	}

	u := &URL{
		Scheme: f.scheme,
		User:   f.field(sections, "user"),
		Host:   f.field(sections, "host"),
		// scp paths have no leading "/"; trim any trailing one too,
		// for consistency across schemes.
		Path: strings.Trim(f.field(sections, "path"), "/"),
		Repo: f.field(sections, "repo"),
	}

	if u.Repo == "" || u.Repo == ".git" {
		return nil, fmt.Errorf("repo name is invalid")
	}

	return u, nil
}

// Equals returns whether or not the two parsed URLs are equivalent.
// git URLs can be represented in multiple schemes so if host, path and repo
// name of URLs are the same then those URLs are for the same remote
// repository.
func (u *URL) Equals(other *URL) bool {
	return u.Host == other.Host &&
		u.Path == other.Path &&
		(u.Repo == other.Repo ||
			strings.TrimSuffix(u.Repo, ".git") == strings.TrimSuffix(other.Repo, ".git"))
}

// SameRawURL returns whether or not the two remote URL strings are
// equivalent.
func SameRawURL(lRepo, rRepo string) (bool, error) {
	l, err := Parse(lRepo)
	if err != nil {
		return false, err
	}
	r, err := Parse(rRepo)
	if err != nil {
		return false, err
	}

	return l.Equals(r), nil
}

// IsSCPURL returns true if supplied URL is scp-like syntax.
func IsSCPURL(rawURL string) bool { return lookup(SchemeSCP).pattern.MatchString(rawURL) }

// IsSSHURL returns true if supplied URL is SSH URL.
func IsSSHURL(rawURL string) bool { return lookup(SchemeSSH).pattern.MatchString(rawURL) }

// IsHTTPSURL returns true if supplied URL is HTTPS URL.
func IsHTTPSURL(rawURL string) bool { return lookup(SchemeHTTPS).pattern.MatchString(rawURL) }

// IsLocalURL returns true if supplied URL is a file:// URL.
func IsLocalURL(rawURL string) bool { return lookup(SchemeLocal).pattern.MatchString(rawURL) }
