package pathurl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		want    *URL
		wantErr bool
	}{
		{"scp",
			"user@host.xz:path/to/repo.git",
			&URL{Scheme: "scp", User: "user", Host: "host.xz", Path: "path/to", Repo: "repo.git"},
			false,
		},
		{"scp-no-dotgit",
			"git@github.com:org/repo",
			&URL{Scheme: "scp", User: "git", Host: "github.com", Path: "org", Repo: "repo"},
			false,
		},
		{"ssh-port",
			"ssh://user@host.xz:123/path/to/repo.git",
			&URL{Scheme: "ssh", User: "user", Host: "host.xz:123", Path: "path/to", Repo: "repo.git"},
			false,
		},
		{"ssh",
			"ssh://git@github.com/org/repo",
			&URL{Scheme: "ssh", User: "git", Host: "github.com", Path: "org", Repo: "repo"},
			false,
		},
		{"https-port",
			"https://host.xz:345/path/to/repo.git",
			&URL{Scheme: "https", Host: "host.xz:345", Path: "path/to", Repo: "repo.git"},
			false,
		},
		{"https",
			"https://github.com/org/repo",
			&URL{Scheme: "https", Host: "github.com", Path: "org", Repo: "repo"},
			false,
		},
		{"local",
			"file:///path/to/repo.git",
			&URL{Scheme: "local", Path: "path/to", Repo: "repo.git"},
			false,
		},

		{"invalid_ssh_hostname", "ssh://git@github.com:org/repo.git", nil, true},
		{"invalid_scp_url", "git@github.com/org/repo.git", nil, true},
		{"http_unsupported", "http://host.xz:123/path/to/repo.git", nil, true},
		{"invalid_port", "https://host.xz:yk/path/to/repo.git", nil, true},
		{"invalid_path_root", "git@host.xz:/r.git", nil, true},
		{"invalid_path_dotgit_only", "git@host.xz:.git", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.rawURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateComparable(URL{})); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSameRawURL(t *testing.T) {
	tests := []struct {
		name    string
		l, r    string
		want    bool
		wantErr bool
	}{
		{"case-insensitive", "user@host.xz:path/to/repo.git", "USER@HOST.XZ:PATH/TO/REPO.GIT", true, false},
		{"scp-vs-ssh", "git@github.com:org/repo.git", "ssh://git@github.com/org/repo.git", true, false},
		{"scp-vs-https", "git@github.com:org/repo.git", "https://github.com/org/repo.git", true, false},
		{"dotgit-optional", "ssh://git@github.com/org/repo.git", "ssh://git@github.com/org/repo", true, false},
		{"different-repo", "https://github.com/org/repo.git", "https://github.com/org/other.git", false, false},
		{"invalid-l", "not-a-url", "https://github.com/org/repo.git", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SameRawURL(tt.l, tt.r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SameRawURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SameRawURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAbsolute(t *testing.T) {
	tests := []struct {
		rawURL string
		want   bool
	}{
		{"https://example.com/app", true},
		{"git@github.com:org/repo.git", true},
		{"ssh://git@github.com/org/repo.git", true},
		{"file:///srv/repos/app.git", true},
		{"../mylib", false},
		{"mylib", false},
		{"sub/mylib", false},
	}
	for _, tt := range tests {
		t.Run(tt.rawURL, func(t *testing.T) {
			if got := IsAbsolute(tt.rawURL); got != tt.want {
				t.Errorf("IsAbsolute(%q) = %v, want %v", tt.rawURL, got, tt.want)
			}
		})
	}
}
