package workspace

import (
	"errors"

	"github.com/utilitywarehouse/git-ws/resolver"
)

// Sentinel error kinds for workspace operations, wrapped with the
// offending project path via fmt.Errorf("%s: %w", path, err) at the call
// site, in the same style as repopool.ErrExist/ErrNotExist.
var (
	ErrManifestNotFound     = errors.New("manifest not found")
	ErrManifestInvalid      = errors.New("manifest invalid")
	ErrManifestSchemaTooNew = errors.New("manifest schema too new")

	// ErrURLResolutionFailed is the resolver's sentinel, re-exported here
	// so workspace-level callers can check a single package for every
	// op-level error kind without reaching into resolver directly.
	ErrURLResolutionFailed = resolver.ErrURLResolutionFailed

	ErrGitOperationFailed = errors.New("git operation failed")
	ErrCloneFailed        = errors.New("clone failed")
	ErrCheckoutFailed     = errors.New("checkout failed")
	ErrPullFailed         = errors.New("pull failed")
	ErrFetchFailed        = errors.New("fetch failed")
	ErrRebaseConflict     = errors.New("rebase conflict")
	ErrDirtyTree          = errors.New("dirty tree")

	ErrWorkspaceNotFound   = errors.New("workspace not found")
	ErrNotAGitClone        = errors.New("path exists but is not a git clone")
	ErrPathOutsideWorkspace = errors.New("path is outside the workspace")
	ErrForceRequired       = errors.New("operation refused, pass --force")

	ErrPruneRefused    = errors.New("prune refused")
	ErrCopyFileModified = errors.New("destination copy file was modified since last update")
)

// Diagnostic is the per-project report the materializer and foreach-style
// commands accumulate: a banner identifying the project and its role
// (MAIN or dependency), plus captured Git driver output.
type Diagnostic struct {
	Path    string
	IsMain  bool
	Err     error
	Output  string
	Warning bool
}
