package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/utilitywarehouse/git-ws/resolver"
)

type fakeDriver struct {
	cloned      map[string]string
	checkedOut  map[string]string
	pulled      map[string]bool
	branches    map[string]string
	untracked   map[string]bool
	cloneErr    error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		cloned:     map[string]string{},
		checkedOut: map[string]string{},
		pulled:     map[string]bool{},
		branches:   map[string]string{},
		untracked:  map[string]bool{},
	}
}

func (f *fakeDriver) Clone(_ context.Context, dir, url string, _ int, _ Auth) error {
	if f.cloneErr != nil {
		return f.cloneErr
	}
	f.cloned[dir] = url
	return os.MkdirAll(filepath.Join(dir, ".git"), 0o755)
}
func (f *fakeDriver) Fetch(context.Context, string, Auth) error { return nil }
func (f *fakeDriver) Pull(_ context.Context, dir string, _ bool, _ Auth) error {
	f.pulled[dir] = true
	return nil
}
func (f *fakeDriver) Checkout(_ context.Context, dir, revision string) error {
	f.checkedOut[dir] = revision
	return nil
}
func (f *fakeDriver) Rebase(context.Context, string, string) error          { return nil }
func (f *fakeDriver) SubmoduleUpdate(context.Context, string, Auth) error   { return nil }
func (f *fakeDriver) Branch(_ context.Context, dir string) (string, error)  { return f.branches[dir], nil }
func (f *fakeDriver) RemoteURL(context.Context, string) (string, error)     { return "", nil }
func (f *fakeDriver) RevParseHead(context.Context, string) (string, error)  { return "", nil }
func (f *fakeDriver) IsClean(context.Context, string) (bool, error)         { return true, nil }
func (f *fakeDriver) HasUntracked(_ context.Context, dir string) (bool, error) {
	return f.untracked[dir], nil
}
func (f *fakeDriver) HasUnpushed(context.Context, string) (bool, error) { return false, nil }
func (f *fakeDriver) HasStash(context.Context, string) (bool, error)    { return false, nil }

func TestMaterializeClonesMissing(t *testing.T) {
	root := t.TempDir()
	driver := newFakeDriver()
	mz := &Materializer{Root: root, Driver: driver}

	projects := []resolver.Project{
		{Name: "mylib", Path: "mylib", URL: "https://example.com/mylib", Revision: "v1.0", Submodules: true},
	}

	diags := mz.Materialize(context.Background(), projects, Options{})
	if len(diags) != 0 {
		t.Fatalf("Materialize() diags = %+v, want none", diags)
	}

	dir := filepath.Join(root, "mylib")
	if driver.cloned[dir] != "https://example.com/mylib" {
		t.Errorf("cloned[%s] = %q, want the resolved URL", dir, driver.cloned[dir])
	}
	if driver.checkedOut[dir] != "v1.0" {
		t.Errorf("checkedOut[%s] = %q, want v1.0", dir, driver.checkedOut[dir])
	}
}

func TestMaterializeExistingBranchPulls(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "mylib")
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	driver := newFakeDriver()
	driver.branches[dir] = "main"
	mz := &Materializer{Root: root, Driver: driver}

	projects := []resolver.Project{
		{Name: "mylib", Path: "mylib", URL: "https://example.com/mylib", Revision: "main"},
	}

	mz.Materialize(context.Background(), projects, Options{})

	if !driver.pulled[dir] {
		t.Errorf("pulled[%s] = false, want true: revision matches the checked-out branch", dir)
	}
}

func TestMaterializeNotAGitCloneErrorsWithoutForce(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "mylib")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	driver := newFakeDriver()
	mz := &Materializer{Root: root, Driver: driver}
	projects := []resolver.Project{
		{Name: "mylib", Path: "mylib", URL: "https://example.com/mylib", Revision: "main"},
	}

	diags := mz.Materialize(context.Background(), projects, Options{})
	if len(diags) != 1 {
		t.Fatalf("diags = %+v, want one NotAGitClone diagnostic", diags)
	}
}

func TestMaterializeForceReplacesNonGitDirectory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "mylib")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("leftover"), 0o644); err != nil {
		t.Fatal(err)
	}

	driver := newFakeDriver()
	mz := &Materializer{Root: root, Driver: driver}
	projects := []resolver.Project{
		{Name: "mylib", Path: "mylib", URL: "https://example.com/mylib", Revision: "main"},
	}

	diags := mz.Materialize(context.Background(), projects, Options{Force: true})
	if len(diags) != 0 {
		t.Fatalf("diags = %+v, want none: --force should wipe and reclone", diags)
	}
	if driver.cloned[dir] != "https://example.com/mylib" {
		t.Errorf("cloned[%s] = %q, want the project URL", dir, driver.cloned[dir])
	}
	if driver.checkedOut[dir] != "main" {
		t.Errorf("checkedOut[%s] = %q, want main", dir, driver.checkedOut[dir])
	}
	if _, err := os.Stat(filepath.Join(dir, "stray.txt")); !os.IsNotExist(err) {
		t.Errorf("stray.txt still present after force reclone, want it removed by ReCreate")
	}
}

func TestPruneRefusesUntracked(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "lib2")
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	driver := newFakeDriver()
	driver.untracked[dir] = true

	removed, errs := Prune(context.Background(), root, driver, map[string]bool{"app": true, "lib1": true}, false)
	if len(removed) != 0 {
		t.Errorf("removed = %v, want none", removed)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want one PruneRefused error", errs)
	}

	removed, errs = Prune(context.Background(), root, driver, map[string]bool{"app": true, "lib1": true}, true)
	if len(errs) != 0 {
		t.Fatalf("errs = %v, want none with force", errs)
	}
	if len(removed) != 1 || removed[0] != "lib2" {
		t.Errorf("removed = %v, want [lib2]", removed)
	}
}

func TestPruneDescendsIntoNestedLayout(t *testing.T) {
	root := t.TempDir()
	keptDir := filepath.Join(root, "team", "kept")
	staleDir := filepath.Join(root, "team", "stale")
	if err := os.MkdirAll(filepath.Join(keptDir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(staleDir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	driver := newFakeDriver()
	removed, errs := Prune(context.Background(), root, driver, map[string]bool{"team/kept": true}, false)
	if len(errs) != 0 {
		t.Fatalf("errs = %v, want none", errs)
	}
	if len(removed) != 1 || removed[0] != "team/stale" {
		t.Errorf("removed = %v, want [team/stale]: a nested stale clone should be discovered by recursing into the non-clone container directory", removed)
	}
	if _, err := os.Stat(keptDir); err != nil {
		t.Errorf("kept nested clone was removed: %v", err)
	}
}
