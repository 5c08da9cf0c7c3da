package resolver

import (
	"errors"
	"testing"

	"github.com/utilitywarehouse/git-ws/manifest"
)

// fakeSource serves manifests keyed by workspace path, simulating clones
// that are already present on disk with their own git-ws.toml.
type fakeSource struct {
	byPath map[string]*manifest.ManifestSpec
}

func (s *fakeSource) LoadManifest(path, _ string) (*manifest.ManifestSpec, bool, error) {
	m, ok := s.byPath[path]
	if !ok {
		return nil, false, nil
	}
	return m, true, nil
}

func TestResolveSimpleSibling(t *testing.T) {
	main := &manifest.ManifestSpec{
		Version: 1,
		Dependencies: []manifest.ProjectSpec{
			{Name: "mylib", Revision: "v1.0"},
		},
	}
	src := &fakeSource{byPath: map[string]*manifest.ManifestSpec{}}

	res, err := Resolve(Options{
		MainManifest: main,
		MainURL:      "https://example.com/app",
		MainPath:     "app",
		Source:       src,
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(res.Projects) != 2 {
		t.Fatalf("Projects = %+v, want [main, mylib]", res.Projects)
	}
	if res.Projects[0].Path != "app" || !res.Projects[0].IsMain {
		t.Errorf("Projects[0] = %+v, want main", res.Projects[0])
	}
	lib := res.Projects[1]
	if lib.Path != "mylib" || lib.URL != "https://example.com/mylib" || lib.Revision != "v1.0" {
		t.Errorf("Projects[1] = %+v, want mylib @ https://example.com/mylib @ v1.0", lib)
	}
}

func TestResolveTransitiveOverride(t *testing.T) {
	main := &manifest.ManifestSpec{
		Version: 1,
		Dependencies: []manifest.ProjectSpec{
			{Name: "foolib", Revision: "v2.4.0"},
			{Name: "bazlib", Revision: "v5.6.7"},
		},
	}
	fooManifest := &manifest.ManifestSpec{
		Version: 1,
		Dependencies: []manifest.ProjectSpec{
			{Name: "barlib", Revision: "v42"},
		},
	}
	bazManifest := &manifest.ManifestSpec{
		Version: 1,
		Dependencies: []manifest.ProjectSpec{
			{Name: "barlib", Revision: "v44"},
		},
	}
	src := &fakeSource{byPath: map[string]*manifest.ManifestSpec{
		"foolib": fooManifest,
		"bazlib": bazManifest,
	}}

	res, err := Resolve(Options{
		MainManifest: main,
		MainURL:      "https://example.com/app",
		MainPath:     "app",
		Source:       src,
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	wantPaths := []string{"app", "foolib", "bazlib", "barlib"}
	if len(res.Projects) != len(wantPaths) {
		t.Fatalf("Projects = %+v, want paths %v", res.Projects, wantPaths)
	}
	for i, p := range wantPaths {
		if res.Projects[i].Path != p {
			t.Errorf("Projects[%d].Path = %q, want %q", i, res.Projects[i].Path, p)
		}
	}
	bar := res.Projects[3]
	if bar.Revision != "v42" {
		t.Errorf("barlib revision = %q, want v42 (first-wins, foolib before bazlib)", bar.Revision)
	}

	var dup *Diagnostic
	for i := range res.Diagnostics {
		if res.Diagnostics[i].Name == "barlib" && res.Diagnostics[i].Kind == Duplicate {
			dup = &res.Diagnostics[i]
		}
	}
	if dup == nil {
		t.Fatalf("Diagnostics = %+v, want a DUPLICATE entry for barlib@v44", res.Diagnostics)
	}
}

func TestResolveGroupFilter(t *testing.T) {
	main := &manifest.ManifestSpec{
		Version: 1,
		Dependencies: []manifest.ProjectSpec{
			{Name: "printlib", Revision: "v1"},
		},
	}
	printManifest := &manifest.ManifestSpec{
		Version: 1,
		Dependencies: []manifest.ProjectSpec{
			{Name: "iolib", Revision: "v1"},
			{Name: "simpleut", Revision: "v1", Groups: []string{"dev"}},
		},
	}
	src := &fakeSource{byPath: map[string]*manifest.ManifestSpec{
		"printlib": printManifest,
	}}

	withoutFilter, err := Resolve(Options{
		MainManifest: main, MainURL: "https://example.com/app", MainPath: "app", Source: src,
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	wantWithout := []string{"app", "printlib", "iolib"}
	assertPaths(t, withoutFilter.Projects, wantWithout)

	devFilters, _ := manifest.ParseFilters([]string{"+dev"}, "cli")
	withFilter, err := Resolve(Options{
		MainManifest: main, MainURL: "https://example.com/app", MainPath: "app", Source: src,
		CLIFilters: devFilters,
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	wantWith := []string{"app", "printlib", "iolib", "simpleut"}
	assertPaths(t, withFilter.Projects, wantWith)
}

func assertPaths(t *testing.T, got []Project, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len(Projects) = %d, want %d (%v vs %v)", len(got), len(want), got, want)
	}
	for i, p := range want {
		if got[i].Path != p {
			t.Errorf("Projects[%d].Path = %q, want %q", i, got[i].Path, p)
		}
	}
}

func TestResolveCycleIsSilentlyDropped(t *testing.T) {
	main := &manifest.ManifestSpec{
		Version: 1,
		Dependencies: []manifest.ProjectSpec{
			{Name: "a", Revision: "v1"},
		},
	}
	aManifest := &manifest.ManifestSpec{
		Version: 1,
		Dependencies: []manifest.ProjectSpec{
			{Name: "main", Path: "app", Revision: "v1"},
		},
	}
	src := &fakeSource{byPath: map[string]*manifest.ManifestSpec{"a": aManifest}}

	res, err := Resolve(Options{
		MainManifest: main, MainURL: "https://example.com/app", MainPath: "app", Source: src,
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	assertPaths(t, res.Projects, []string{"app", "a"})
}

func TestResolveMainless(t *testing.T) {
	main := &manifest.ManifestSpec{
		Version: 1,
		Dependencies: []manifest.ProjectSpec{
			{Name: "mylib", Remote: "", URL: "https://example.com/mylib", Revision: "v1"},
		},
	}
	src := &fakeSource{byPath: map[string]*manifest.ManifestSpec{}}

	res, err := Resolve(Options{
		MainManifest: main,
		Source:       src,
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	assertPaths(t, res.Projects, []string{"mylib"})
	if res.Projects[0].Level != 0 {
		t.Errorf("Level = %d, want 0 for a main-less workspace's direct dependency", res.Projects[0].Level)
	}
}

func TestResolveMainlessUnqualifiedRelativeFails(t *testing.T) {
	main := &manifest.ManifestSpec{
		Version: 1,
		Dependencies: []manifest.ProjectSpec{
			{Name: "mylib", Revision: "v1"},
		},
	}
	src := &fakeSource{byPath: map[string]*manifest.ManifestSpec{}}

	_, err := Resolve(Options{
		MainManifest: main,
		Source:       src,
	})
	if !errors.Is(err, ErrURLResolutionFailed) {
		t.Fatalf("Resolve() error = %v, want ErrURLResolutionFailed", err)
	}
}

func TestResolveUndeclaredRemoteFails(t *testing.T) {
	main := &manifest.ManifestSpec{
		Version: 1,
		Dependencies: []manifest.ProjectSpec{
			{Name: "mylib", Remote: "missing", Revision: "v1"},
		},
	}
	src := &fakeSource{byPath: map[string]*manifest.ManifestSpec{}}

	_, err := Resolve(Options{
		MainManifest: main,
		MainURL:      "https://example.com/app",
		MainPath:     "app",
		Source:       src,
	})
	if !errors.Is(err, ErrURLResolutionFailed) {
		t.Fatalf("Resolve() error = %v, want ErrURLResolutionFailed", err)
	}
}
