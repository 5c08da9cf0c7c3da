package pathurl

import (
	"fmt"
	"strings"
)

// Join returns the URL obtained by resolving rel against base.
//
// If rel is itself an absolute URL (scp, ssh, https or file scheme) it is
// returned unchanged (normalised). Otherwise rel is resolved the way a git
// relative submodule URL is: resolution starts from base's full path, repo
// name included, so the first "../" segment in rel replaces base's repo
// name and each further one pops one more path component before the
// remaining segments of rel are appended. A rel with more "../" segments
// than base has path components is an error. "file://" URLs keep their
// scheme; scp and ssh URLs keep their user/host.
//
// Join performs no network or filesystem access.
func Join(base, rel string) (string, error) {
	if rel == "" {
		return NormaliseURL(base), nil
	}

	rel = NormaliseURL(rel)
	if IsAbsolute(rel) {
		return rel, nil
	}

	bURL, err := Parse(base)
	if err != nil {
		return "", fmt.Errorf("base url %q is invalid: %w", base, err)
	}

	segs := pathSegments(bURL)

	for _, s := range strings.Split(strings.Trim(rel, "/"), "/") {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(segs) == 0 {
				return "", fmt.Errorf("relative url %q resolves outside of %q", rel, base)
			}
			segs = segs[:len(segs)-1]
		default:
			segs = append(segs, s)
		}
	}

	if len(segs) == 0 {
		return "", fmt.Errorf("relative url %q resolves outside of %q", rel, base)
	}

	return buildURL(bURL, segs), nil
}

// DefaultURL returns the default sibling URL for a dependency that
// declares only a name: a repository placed alongside containingProjectURL
// on the same remote server.
func DefaultURL(dependencyName, containingProjectURL string) (string, error) {
	return Join(containingProjectURL, "../"+dependencyName)
}

// pathSegments splits a parsed URL's org path and repo name into an
// ordered list of path segments, e.g. {Path: "org/sub", Repo: "app.git"}
// becomes ["org", "sub", "app.git"].
func pathSegments(u *URL) []string {
	var segs []string
	if u.Path != "" {
		segs = append(segs, strings.Split(u.Path, "/")...)
	}
	segs = append(segs, u.Repo)
	return segs
}

// buildURL reassembles a URL string from the scheme/user/host of template
// and the given path segments, the last of which becomes the repo name.
func buildURL(template *URL, segs []string) string {
	path := strings.Join(segs[:len(segs)-1], "/")
	repo := segs[len(segs)-1]

	switch template.Scheme {
	case "scp":
		if path == "" {
			return fmt.Sprintf("%s@%s:%s", template.User, template.Host, repo)
		}
		return fmt.Sprintf("%s@%s:%s/%s", template.User, template.Host, path, repo)
	case "ssh":
		if path == "" {
			return fmt.Sprintf("ssh://%s@%s/%s", template.User, template.Host, repo)
		}
		return fmt.Sprintf("ssh://%s@%s/%s/%s", template.User, template.Host, path, repo)
	case "local":
		if path == "" {
			return fmt.Sprintf("file:///%s", repo)
		}
		return fmt.Sprintf("file:///%s/%s", path, repo)
	default: // https
		if path == "" {
			return fmt.Sprintf("https://%s/%s", template.Host, repo)
		}
		return fmt.Sprintf("https://%s/%s/%s", template.Host, path, repo)
	}
}
