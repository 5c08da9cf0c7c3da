package manifest

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       ManifestSpec
		wantErr error
	}{
		{
			"minimal-valid",
			ManifestSpec{Version: 1},
			nil,
		},
		{
			"valid-with-remote-and-dep",
			ManifestSpec{
				Version: 1,
				Remotes: []Remote{{Name: "origin", URLBase: "https://example.com/org"}},
				Dependencies: []ProjectSpec{
					{Name: "mylib", Remote: "origin"},
				},
			},
			nil,
		},
		{
			"duplicate-remote",
			ManifestSpec{
				Version: 1,
				Remotes: []Remote{
					{Name: "origin", URLBase: "https://example.com/a"},
					{Name: "origin", URLBase: "https://example.com/b"},
				},
			},
			ErrDuplicateRemote,
		},
		{
			"unknown-remote-on-dependency",
			ManifestSpec{
				Version:      1,
				Dependencies: []ProjectSpec{{Name: "mylib", Remote: "nope"}},
			},
			ErrUnknownRemote,
		},
		{
			"conflicting-url-sources",
			ManifestSpec{
				Version: 1,
				Remotes: []Remote{{Name: "origin", URLBase: "https://example.com/org"}},
				Dependencies: []ProjectSpec{
					{Name: "mylib", Remote: "origin", URL: "https://example.com/mylib"},
				},
			},
			ErrConflictingURLSources,
		},
		{
			"sub-url-without-remote",
			ManifestSpec{
				Version:      1,
				Dependencies: []ProjectSpec{{Name: "mylib", SubURL: "x"}},
			},
			ErrInvalidSubURL,
		},
		{
			"bad-identifier",
			ManifestSpec{
				Version:      1,
				Dependencies: []ProjectSpec{{Name: "1mylib"}},
			},
			ErrBadIdentifier,
		},
		{
			"schema-too-new",
			ManifestSpec{Version: CurrentSchemaVersion + 1},
			ErrSchemaTooNew,
		},
		{
			"bad-filter-expression",
			ManifestSpec{Version: 1, GroupFilters: []string{"dev"}},
			nil, // wrapped generic error, checked separately below
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.m)
			if tt.name == "bad-filter-expression" {
				if err == nil {
					t.Fatal("Validate() = nil, want error for malformed group_filters entry")
				}
				return
			}
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want wrapping %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"mylib", true},
		{"_private", true},
		{"my-lib_2", true},
		{"1mylib", false},
		{"", false},
		{"my lib", false},
	}
	for _, tt := range tests {
		if got := IsValidIdentifier(tt.name); got != tt.want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
