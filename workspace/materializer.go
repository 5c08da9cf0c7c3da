package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/utilitywarehouse/git-ws/internal/utils"
	"github.com/utilitywarehouse/git-ws/resolver"
)

// maxConcurrentMaterialize bounds the goroutine-per-project fan-out:
// unlike repopool.StartLoop, which spins one goroutine per mirrored repo
// unconditionally, a workspace can hold hundreds of dependencies, so the
// fan-out here is capped by a semaphore instead.
const maxConcurrentMaterialize = 8

// AuthResolver returns the credentials to use for a project's remote,
// typically derived from the application's layered settings.
type AuthResolver func(project resolver.Project) Auth

// Options configures one materialize pass.
type Options struct {
	Rebase     bool
	Prune      bool
	Force      bool
	CloneDepth int
	Auth       AuthResolver
}

// Materializer reconciles a resolved project list against the filesystem.
type Materializer struct {
	Root   string
	Driver GitDriver
}

// Materialize walks projects in BFS order (the order Resolve already
// produced) and brings each clone into sync, per the workspace
// materializer's reconciliation rules. Each project's failure is recorded
// as a Diagnostic rather than aborting the run, except for the main
// project, whose failure is a precondition failure and stops the pass.
func (mz *Materializer) Materialize(ctx context.Context, projects []resolver.Project, opts Options) []Diagnostic {
	var out []Diagnostic
	rest := projects

	if len(projects) > 0 && projects[0].IsMain {
		diag, hasDiag, failed := mz.materializeProject(ctx, projects[0], opts)
		if failed {
			return []Diagnostic{diag}
		}
		if hasDiag {
			out = append(out, diag)
		}
		rest = projects[1:]
	}

	diags := make([]Diagnostic, len(rest))
	present := make([]bool, len(rest))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentMaterialize)

	for i, p := range rest {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p resolver.Project) {
			defer wg.Done()
			defer func() { <-sem }()
			if d, hasDiag, _ := mz.materializeProject(ctx, p, opts); hasDiag {
				diags[i] = d
				present[i] = true
			}
		}(i, p)
	}
	wg.Wait()

	for i, ok := range present {
		if ok {
			out = append(out, diags[i])
		}
	}
	return out
}

// materializeProject reconciles one project and, on success, updates its
// submodules. failed is true when the project itself failed to
// materialize (the caller decides whether that aborts the pass); hasDiag
// is true whenever a Diagnostic is returned at all, including a
// submodule-update warning on an otherwise successful project.
func (mz *Materializer) materializeProject(ctx context.Context, p resolver.Project, opts Options) (diag Diagnostic, hasDiag bool, failed bool) {
	start := time.Now()
	err := mz.materializeOne(ctx, p, opts)
	observeMaterializeLatency(p.Path, start)
	recordMaterialize(p.Path, err == nil)

	if err != nil {
		return Diagnostic{Path: p.Path, IsMain: p.IsMain, Err: err}, true, true
	}

	if p.Submodules {
		if err := mz.Driver.SubmoduleUpdate(ctx, mz.dir(p.Path), mz.authFor(p, opts)); err != nil {
			return Diagnostic{Path: p.Path, IsMain: p.IsMain, Err: err, Warning: true}, true, false
		}
	}
	return Diagnostic{}, false, false
}

func (mz *Materializer) dir(path string) string {
	return filepath.Join(mz.Root, path)
}

func (mz *Materializer) authFor(p resolver.Project, opts Options) Auth {
	if opts.Auth == nil {
		return Auth{}
	}
	return opts.Auth(p)
}

func (mz *Materializer) materializeOne(ctx context.Context, p resolver.Project, opts Options) error {
	dir := mz.dir(p.Path)
	a := mz.authFor(p, opts)

	exists, isGit := cloneState(dir)

	switch {
	case !exists:
		if err := mz.Driver.Clone(ctx, dir, p.URL, opts.CloneDepth, a); err != nil {
			return err
		}
		if p.Revision != "" {
			if err := mz.Driver.Checkout(ctx, dir, p.Revision); err != nil {
				return err
			}
		}
		return nil

	case !isGit:
		if !opts.Force {
			return fmt.Errorf("%s: %w", p.Path, ErrNotAGitClone)
		}
		if err := utils.ReCreate(dir); err != nil {
			return err
		}
		if err := mz.Driver.Clone(ctx, dir, p.URL, opts.CloneDepth, a); err != nil {
			return err
		}
		if p.Revision != "" {
			return mz.Driver.Checkout(ctx, dir, p.Revision)
		}
		return nil

	default:
		return mz.reconcileExisting(ctx, dir, p, a, opts)
	}
}

func (mz *Materializer) reconcileExisting(ctx context.Context, dir string, p resolver.Project, a Auth, opts Options) error {
	if p.Revision == "" {
		return nil
	}

	if isRevisionABranch(ctx, mz.Driver, dir, p.Revision) {
		if err := mz.Driver.Pull(ctx, dir, opts.Rebase, a); err != nil {
			return err
		}
		return nil
	}

	if err := mz.Driver.Fetch(ctx, dir, a); err != nil {
		return err
	}
	return mz.Driver.Checkout(ctx, dir, p.Revision)
}

// isRevisionABranch reports whether revision names the branch already
// checked out in dir. A driver error is treated as "not a branch", the
// safer of the two reconciliation paths.
func isRevisionABranch(ctx context.Context, d GitDriver, dir, revision string) bool {
	branch, err := d.Branch(ctx, dir)
	if err != nil {
		return false
	}
	return branch == revision
}

// cloneState reports whether dir exists, and if so whether it looks like a
// git checkout (has a .git entry).
func cloneState(dir string) (exists, isGit bool) {
	fi, err := os.Stat(dir)
	if err != nil {
		return false, false
	}
	if !fi.IsDir() {
		return true, false
	}
	_, err = os.Stat(filepath.Join(dir, ".git"))
	return true, err == nil
}

// Prune removes clone directories under root that are no longer present
// in keepPaths (workspace-relative, as resolved by the project resolver),
// refusing any directory with uncommitted work unless force is set. The
// workspace layout may be flat or nested, so Prune walks recursively:
// a plain (non-clone) directory is a container that may hold clones
// deeper in the tree and is descended into rather than skipped.
func Prune(ctx context.Context, root string, driver GitDriver, keepPaths map[string]bool, force bool) ([]string, []error) {
	var removed []string
	var errs []error
	pruneDir(ctx, root, "", driver, keepPaths, force, &removed, &errs)
	return removed, errs
}

func pruneDir(ctx context.Context, dir, relPrefix string, driver GitDriver, keepPaths map[string]bool, force bool, removed *[]string, errs *[]error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		*errs = append(*errs, err)
		return
	}

	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || (relPrefix == "" && name == MetadataDir) {
			continue
		}
		rel := name
		if relPrefix != "" {
			rel = relPrefix + "/" + name
		}
		if keepPaths[rel] {
			continue
		}
		childDir := filepath.Join(dir, name)

		if _, isGit := cloneState(childDir); !isGit {
			// Not a clone itself: recurse in case a stale or kept
			// project is nested deeper under this container.
			pruneDir(ctx, childDir, rel, driver, keepPaths, force, removed, errs)
			continue
		}

		if !force {
			if reason, dirty, err := dirtyReason(ctx, driver, childDir); err != nil {
				*errs = append(*errs, fmt.Errorf("%s: %w", rel, err))
				continue
			} else if dirty {
				*errs = append(*errs, fmt.Errorf("%s: %w (%s)", rel, ErrPruneRefused, reason))
				continue
			}
		}

		if err := os.RemoveAll(childDir); err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}
		*removed = append(*removed, rel)
	}
}

func dirtyReason(ctx context.Context, d GitDriver, dir string) (reason string, dirty bool, err error) {
	if untracked, err := d.HasUntracked(ctx, dir); err != nil {
		return "", false, err
	} else if untracked {
		return "untracked", true, nil
	}
	if unpushed, err := d.HasUnpushed(ctx, dir); err != nil {
		return "", false, err
	} else if unpushed {
		return "unpushed", true, nil
	}
	if stashed, err := d.HasStash(ctx, dir); err != nil {
		return "", false, err
	} else if stashed {
		return "stashed", true, nil
	}
	if clean, err := d.IsClean(ctx, dir); err != nil {
		return "", false, err
	} else if !clean {
		return "staged", true, nil
	}
	return "", false, nil
}
