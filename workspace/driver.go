package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/utilitywarehouse/git-ws/internal/lock"
	"github.com/utilitywarehouse/git-ws/internal/utils"
	"github.com/utilitywarehouse/git-ws/pathurl"
)

// Auth carries the credentials the driver may need for a clone's remote:
// SSH key, static HTTPS username/password, or GitHub App installation
// credentials. It mirrors repository.Auth's fields, generalized from "one
// set of auth per mirrored repo" to "one set of auth per resolved
// dependency's remote host".
type Auth struct {
	Username                string
	Password                string
	SSHKeyPath              string
	SSHKnownHostsPath       string
	GithubAppID             string
	GithubAppInstallationID string
	GithubAppPrivateKeyPath string
}

// GitDriver is the process-invocation contract the materializer drives.
// Every method returns a structured error; no caller parses freeform
// stderr.
type GitDriver interface {
	Clone(ctx context.Context, dir, url string, depth int, auth Auth) error
	Fetch(ctx context.Context, dir string, auth Auth) error
	Pull(ctx context.Context, dir string, rebase bool, auth Auth) error
	Checkout(ctx context.Context, dir, revision string) error
	Rebase(ctx context.Context, dir, onto string) error
	SubmoduleUpdate(ctx context.Context, dir string, auth Auth) error
	Branch(ctx context.Context, dir string) (string, error)
	RemoteURL(ctx context.Context, dir string) (string, error)
	RevParseHead(ctx context.Context, dir string) (string, error)
	IsClean(ctx context.Context, dir string) (bool, error)
	HasUntracked(ctx context.Context, dir string) (bool, error)
	HasUnpushed(ctx context.Context, dir string) (bool, error)
	HasStash(ctx context.Context, dir string) (bool, error)
}

// ExecDriver implements GitDriver by invoking the external git binary,
// adapted from the mirrored-repository process driver: one lock per clone
// directory serializes operations against that directory, and every
// invocation goes through the same captured-stdout/stderr wrapper.
type ExecDriver struct {
	log      *slog.Logger
	gitMutex lock.Mutex
	dirLocks map[string]*lock.RWMutex
}

// NewExecDriver constructs a driver that serializes git invocations per
// clone directory.
func NewExecDriver(log *slog.Logger) *ExecDriver {
	return &ExecDriver{log: log, dirLocks: make(map[string]*lock.RWMutex)}
}

func (d *ExecDriver) dirLock(dir string) *lock.RWMutex {
	d.gitMutex.Lock()
	defer d.gitMutex.Unlock()
	l, ok := d.dirLocks[dir]
	if !ok {
		l = &lock.RWMutex{}
		d.dirLocks[dir] = l
	}
	return l
}

func (d *ExecDriver) git(ctx context.Context, dir string, envs []string, args ...string) (string, error) {
	l := d.dirLock(dir)
	l.Lock()
	defer l.Unlock()
	return utils.RunCommand(ctx, d.log, envs, dir, "git", args...)
}

func (d *ExecDriver) Clone(ctx context.Context, dir, url string, depth int, a Auth) error {
	l := d.dirLock(dir)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("%w: %s", ErrCloneFailed, err)
	}

	args := []string{"clone", url, dir}
	if depth > 0 {
		args = append([]string{"clone", "--depth", strconv.Itoa(depth)}, url, dir)
	}

	envs, err := authEnv(ctx, dir, url, a)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCloneFailed, err)
	}

	if _, err := utils.RunCommand(ctx, d.log, envs, "", "git", args...); err != nil {
		return fmt.Errorf("%w: %w", ErrCloneFailed, err)
	}
	return nil
}

func (d *ExecDriver) Fetch(ctx context.Context, dir string, a Auth) error {
	url, err := d.RemoteURL(ctx, dir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFetchFailed, err)
	}
	envs, err := authEnv(ctx, dir, url, a)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFetchFailed, err)
	}
	if _, err := d.git(ctx, dir, envs, "fetch", "--prune", "origin"); err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return nil
}

func (d *ExecDriver) Pull(ctx context.Context, dir string, rebase bool, a Auth) error {
	url, err := d.RemoteURL(ctx, dir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPullFailed, err)
	}
	envs, err := authEnv(ctx, dir, url, a)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPullFailed, err)
	}
	args := []string{"pull"}
	if rebase {
		args = append(args, "--rebase")
	}
	if _, err := d.git(ctx, dir, envs, args...); err != nil {
		if rebase && strings.Contains(err.Error(), "CONFLICT") {
			return fmt.Errorf("%w: %w", ErrRebaseConflict, err)
		}
		return fmt.Errorf("%w: %w", ErrPullFailed, err)
	}
	return nil
}

func (d *ExecDriver) Checkout(ctx context.Context, dir, revision string) error {
	if _, err := d.git(ctx, dir, nil, "checkout", revision); err != nil {
		return fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	return nil
}

func (d *ExecDriver) Rebase(ctx context.Context, dir, onto string) error {
	if _, err := d.git(ctx, dir, nil, "rebase", onto); err != nil {
		return fmt.Errorf("%w: %w", ErrRebaseConflict, err)
	}
	return nil
}

func (d *ExecDriver) SubmoduleUpdate(ctx context.Context, dir string, a Auth) error {
	if _, err := d.git(ctx, dir, nil, "submodule", "update", "--init", "--recursive"); err != nil {
		return fmt.Errorf("%w: submodule update: %w", ErrGitOperationFailed, err)
	}
	return nil
}

func (d *ExecDriver) Branch(ctx context.Context, dir string) (string, error) {
	out, err := d.git(ctx, dir, nil, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGitOperationFailed, err)
	}
	return out, nil
}

func (d *ExecDriver) RemoteURL(ctx context.Context, dir string) (string, error) {
	out, err := d.git(ctx, dir, nil, "remote", "get-url", "origin")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGitOperationFailed, err)
	}
	return pathurl.NormaliseURL(out), nil
}

func (d *ExecDriver) RevParseHead(ctx context.Context, dir string) (string, error) {
	out, err := d.git(ctx, dir, nil, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGitOperationFailed, err)
	}
	return out, nil
}

func (d *ExecDriver) IsClean(ctx context.Context, dir string) (bool, error) {
	out, err := d.git(ctx, dir, nil, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrGitOperationFailed, err)
	}
	return out == "", nil
}

func (d *ExecDriver) HasUntracked(ctx context.Context, dir string) (bool, error) {
	out, err := d.git(ctx, dir, nil, "status", "--porcelain", "--untracked-files=normal")
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrGitOperationFailed, err)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "??") {
			return true, nil
		}
	}
	return false, nil
}

func (d *ExecDriver) HasUnpushed(ctx context.Context, dir string) (bool, error) {
	out, err := d.git(ctx, dir, nil, "log", "@{u}..HEAD", "--oneline")
	if err != nil {
		// no upstream configured is not "has unpushed work"
		return false, nil
	}
	return out != "", nil
}

func (d *ExecDriver) HasStash(ctx context.Context, dir string) (bool, error) {
	out, err := d.git(ctx, dir, nil, "stash", "list")
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrGitOperationFailed, err)
	}
	return out != "", nil
}
