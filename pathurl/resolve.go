package pathurl

import "fmt"

// RemoteBase is the subset of a manifest's declared remote that ResolveURL
// needs: its base URL.
type RemoteBase struct {
	Name    string
	URLBase string
}

// Spec is the subset of a dependency's declarative fields that feed URL
// resolution: an explicit remote reference, an explicit sub-path beneath
// that remote, or a fully-qualified URL.
type Spec struct {
	Name    string
	Remote  string
	SubURL  string
	URL     string
}

// ResolveURL computes the absolute URL for a dependency declaration,
// applying the precedence rule:
//
//  1. an explicit Spec.URL, joined against containingProjectURL if relative
//  2. remote.URLBase joined with Spec.SubURL (or Spec.Name if SubURL is
//     empty), when Spec.Remote names one of remotes
//  3. the default sibling URL alongside containingProjectURL
//
// remotes is searched by Spec.Remote; a non-empty Remote that names none
// of remotes is returned as an error.
func ResolveURL(spec Spec, containingProjectURL string, remotes []RemoteBase) (string, error) {
	if spec.URL != "" {
		return Join(containingProjectURL, spec.URL)
	}

	if spec.Remote != "" {
		for _, r := range remotes {
			if r.Name == spec.Remote {
				sub := spec.SubURL
				if sub == "" {
					sub = spec.Name
				}
				return Join(r.URLBase, sub)
			}
		}
		return "", fmt.Errorf("remote %q is not declared", spec.Remote)
	}

	return DefaultURL(spec.Name, containingProjectURL)
}
